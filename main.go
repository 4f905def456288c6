package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/TPP-insulA/insula-bot/internal/api"
	"github.com/TPP-insulA/insula-bot/internal/bot"
	"github.com/TPP-insulA/insula-bot/internal/bot/handlers"
	"github.com/TPP-insulA/insula-bot/internal/bot/state"
	"github.com/TPP-insulA/insula-bot/internal/config"
	"github.com/TPP-insulA/insula-bot/internal/database"
	"github.com/TPP-insulA/insula-bot/internal/logger"
	"github.com/TPP-insulA/insula-bot/internal/prediction"
	"github.com/TPP-insulA/insula-bot/internal/repository"
	"github.com/TPP-insulA/insula-bot/internal/services"
	"github.com/TPP-insulA/insula-bot/internal/session"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}
	if err := logger.InitWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	}); err != nil {
		logger.Fatal("Failed to initialize logger", "error", err)
	}
	defer logger.Close()

	logger.Info("Starting insulA bot")
	if envErr != nil {
		logger.Warn(".env file not found, using environment only")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", "error", err)
	}
	if err := prediction.SetDisplayTimezone(cfg.DisplayTimezone); err != nil {
		logger.Fatal("Invalid display timezone", "error", err)
	}

	db, err := database.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	users := repository.NewUserRepository(db)
	sessions := session.NewManager(users)

	var stateStore state.Store = state.NewManager()
	if cfg.StateBackend == config.StateBackendRedis {
		redisStore, err := state.NewRedisManager(cfg.Redis.Host, cfg.Redis.Port)
		if err != nil {
			logger.Fatal("Failed to connect to redis", "error", err)
		}
		defer redisStore.Close()
		stateStore = redisStore
	}
	logger.Info("Conversation state backend ready", "backend", cfg.StateBackend)

	backend := api.NewClient(api.Options{
		BaseURL:      cfg.API.BaseURL,
		Timeout:      cfg.API.Timeout,
		RetryCount:   cfg.API.RetryCount,
		RetryWait:    cfg.API.RetryWait,
		RetryMaxWait: cfg.API.RetryMaxWait,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := handlers.Dependencies{
		UserService: services.NewUserService(users),
		Sessions:    sessions,
		InsulinSvc:  services.NewInsulinService(backend, backend, sessions),
		GlucoseSvc:  services.NewGlucoseService(backend, sessions),
	}
	if cfg.GeminiAPIKey != "" {
		gen, err := services.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Fatal("Failed to create Gemini client", "error", err)
		}
		defer gen.Close()
		deps.AISvc = services.NewAIService(gen, backend, backend, backend, sessions)
	} else {
		logger.Warn("GEMINI_API_KEY not set, chat assistant disabled")
	}
	logger.Info("Services initialized")

	telegramBot, err := bot.NewBot(cfg.TelegramToken, deps, sessions, stateStore)
	if err != nil {
		logger.Fatal("Failed to create bot", "error", err)
	}

	logger.Info("Bot is running. Press Ctrl+C to stop.")
	if err := telegramBot.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("Bot stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Bot stopped")
}
