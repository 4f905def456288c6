package interfaces

import (
	"context"
	"time"

	"github.com/TPP-insulA/insula-bot/internal/database"
	"github.com/TPP-insulA/insula-bot/internal/domain"
	"github.com/TPP-insulA/insula-bot/internal/prediction"
	"github.com/TPP-insulA/insula-bot/internal/session"
)

// UserServiceInterface defines the contract for user operations
type UserServiceInterface interface {
	RegisterUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*database.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*database.User, error)
}

// SessionManagerInterface defines the contract for backend session handling
type SessionManagerInterface interface {
	SignIn(ctx context.Context, telegramID int64, token string) (session.Session, error)
	Current(ctx context.Context, telegramID int64) (session.Session, error)
	SignOut(ctx context.Context, telegramID int64) error
}

// InsulinServiceInterface defines the contract for dose predictions
type InsulinServiceInterface interface {
	SeedDoseForm(ctx context.Context, telegramID int64, form *prediction.DoseForm) error
	SubmitDose(ctx context.Context, telegramID int64, form *prediction.DoseForm) (*domain.InsulinPredictionResult, error)
	SeedOutcomeForm(ctx context.Context, telegramID int64, date time.Time, form *prediction.OutcomeForm) error
	SaveOutcome(ctx context.Context, telegramID int64, form *prediction.OutcomeForm) (*domain.InsulinPredictionResult, error)
	ClearOutcome(ctx context.Context, telegramID int64, predictionID string) (*domain.InsulinPredictionResult, error)
	LoadHistory(ctx context.Context, telegramID int64) ([]domain.InsulinPredictionResult, error)
	DeletePrediction(ctx context.Context, telegramID int64, id string) error
}

// GlucoseServiceInterface defines the contract for glucose readings
type GlucoseServiceInterface interface {
	LogReading(ctx context.Context, telegramID int64, value int, notes string) (*domain.GlucoseReading, error)
	Recent(ctx context.Context, telegramID int64, period time.Duration) ([]domain.GlucoseReading, error)
}

// AIServiceInterface defines the contract for the chat assistant
type AIServiceInterface interface {
	Answer(ctx context.Context, telegramID int64, history []domain.ChatTurn, question string) (string, error)
}
