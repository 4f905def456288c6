package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/TPP-insulA/insula-bot/internal/config"
	"github.com/TPP-insulA/insula-bot/internal/database"
	"github.com/TPP-insulA/insula-bot/internal/database/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "validate-config",
		Short:         "Check the insulA bot configuration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			printSummary(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✅ Configuración válida")
			return nil
		},
	}
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "List the embedded SQL migrations, or apply them with --apply",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := migrations.New()
			if err != nil {
				return err
			}
			for _, id := range m.IDs() {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", id)
			}

			apply, _ := cmd.Flags().GetBool("apply")
			if !apply {
				return nil
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			// NewPostgresDB runs AutoMigrate and every pending migration
			if _, err := database.NewPostgresDB(cfg.DB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✅ Migraciones aplicadas")
			return nil
		},
	}
	cmd.Flags().Bool("apply", false, "connect to the database and apply pending migrations")
	return cmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := godotenv.Load(envFile); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  %s no encontrado: %v\n", envFile, err)
	}
	return config.Load()
}

func printSummary(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "📋 Configuración:")
	fmt.Fprintf(out, "  - Telegram Token: %s\n", maskToken(cfg.TelegramToken))
	fmt.Fprintf(out, "  - Gemini API Key: %s\n", maskToken(cfg.GeminiAPIKey))
	fmt.Fprintf(out, "  - Gemini Model: %s\n", cfg.GeminiModel)
	fmt.Fprintf(out, "  - API Base URL: %s\n", cfg.API.BaseURL)
	fmt.Fprintf(out, "  - API Timeout: %s\n", cfg.API.Timeout)
	fmt.Fprintf(out, "  - API Retries: %d\n", cfg.API.RetryCount)
	fmt.Fprintf(out, "  - DB: %s@%s:%s/%s\n", cfg.DB.User, cfg.DB.Host, cfg.DB.Port, cfg.DB.DBName)
	fmt.Fprintf(out, "  - State Backend: %s\n", cfg.StateBackend)
	if cfg.StateBackend == config.StateBackendRedis {
		fmt.Fprintf(out, "  - Redis: %s:%s\n", cfg.Redis.Host, cfg.Redis.Port)
	}
	fmt.Fprintf(out, "  - Display Timezone: %s\n", cfg.DisplayTimezone)
	fmt.Fprintf(out, "  - Log Level: %v\n", cfg.Logger.Level)
	fmt.Fprintf(out, "  - Log Output: %s\n", cfg.Logger.OutputPath)
	fmt.Fprintf(out, "  - Log Format: %s\n", cfg.Logger.Format)
}

func maskToken(token string) string {
	if token == "" {
		return "<no configurado>"
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
