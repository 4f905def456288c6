package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/TPP-insulA/insula-bot/internal/logger"
)

//go:embed sql/*.sql
var sqlFiles embed.FS

// Migration is one schema change, applied once and recorded by ID
type Migration struct {
	ID string
	Up func(*gorm.DB) error
}

// MigrationRecord marks an applied migration
type MigrationRecord struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt int64  `gorm:"autoCreateTime"`
}

// Migrator applies migrations in ID order
type Migrator struct {
	migrations map[string]Migration
	log        *slog.Logger
}

// New returns a migrator preloaded with the bundled SQL migrations
func New() (*Migrator, error) {
	m := &Migrator{migrations: make(map[string]Migration), log: logger.For("migrations")}
	sub, err := fs.Sub(sqlFiles, "sql")
	if err != nil {
		return nil, err
	}
	if err := m.LoadSQL(sub); err != nil {
		return nil, err
	}
	return m, nil
}

// Register adds a migration; a later registration with the same ID wins
func (m *Migrator) Register(id string, up func(*gorm.DB) error) {
	m.migrations[id] = Migration{ID: id, Up: up}
}

// LoadSQL registers every .sql file at the root of fsys, named by file
// name without extension
func (m *Migrator) LoadSQL(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}
		statement := string(content)
		m.Register(strings.TrimSuffix(entry.Name(), ".sql"), func(db *gorm.DB) error {
			return db.Exec(statement).Error
		})
	}
	return nil
}

// IDs lists registered migrations in the order they run
func (m *Migrator) IDs() []string {
	ids := make([]string, 0, len(m.migrations))
	for id := range m.migrations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Run applies every migration not yet recorded
func (m *Migrator) Run(db *gorm.DB) error {
	if err := db.AutoMigrate(&MigrationRecord{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var executed []MigrationRecord
	if err := db.Find(&executed).Error; err != nil {
		return fmt.Errorf("failed to get executed migrations: %w", err)
	}
	done := make(map[string]bool, len(executed))
	for _, r := range executed {
		done[r.ID] = true
	}

	for _, id := range m.IDs() {
		if done[id] {
			continue
		}
		m.log.Info("Running migration", "id", id)
		if err := m.migrations[id].Up(db); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", id, err)
		}
		if err := db.Create(&MigrationRecord{ID: id}).Error; err != nil {
			return fmt.Errorf("failed to record migration %s: %w", id, err)
		}
	}
	return nil
}
