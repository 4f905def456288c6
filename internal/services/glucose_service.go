package services

import (
	"context"
	"fmt"
	"time"

	"github.com/TPP-insulA/insula-bot/internal/domain"
	apperrors "github.com/TPP-insulA/insula-bot/internal/errors"
)

const (
	MinLoggedGlucose = 20
	MaxLoggedGlucose = 600
)

// GlucoseService records and lists manual readings
type GlucoseService struct {
	glucose  domain.GlucoseAPI
	sessions Sessions
	now      func() time.Time
}

func NewGlucoseService(glucose domain.GlucoseAPI, sessions Sessions) *GlucoseService {
	return &GlucoseService{glucose: glucose, sessions: sessions, now: time.Now}
}

// LogReading stores a reading taken now
func (s *GlucoseService) LogReading(ctx context.Context, telegramID int64, value int, notes string) (*domain.GlucoseReading, error) {
	if value < MinLoggedGlucose || value > MaxLoggedGlucose {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("El valor debe estar entre %d y %d mg/dL", MinLoggedGlucose, MaxLoggedGlucose))
	}

	token, err := s.sessions.Token(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	reading, err := s.glucose.CreateReading(ctx, token, domain.NewGlucoseReading{
		Value:     value,
		Timestamp: s.now().UTC(),
		Notes:     notes,
	})
	if err = s.sessions.Guard(ctx, telegramID, err); err != nil {
		return nil, err
	}
	return reading, nil
}

// Recent lists readings of the last period, as returned by the backend
func (s *GlucoseService) Recent(ctx context.Context, telegramID int64, period time.Duration) ([]domain.GlucoseReading, error) {
	token, err := s.sessions.Token(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	readings, err := s.glucose.FetchReadings(ctx, token, domain.ReadingsQuery{
		StartDate: now.Add(-period),
		EndDate:   now,
	})
	if err = s.sessions.Guard(ctx, telegramID, err); err != nil {
		return nil, err
	}
	return readings, nil
}
