package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/TPP-insulA/insula-bot/internal/domain"
	apperrors "github.com/TPP-insulA/insula-bot/internal/errors"
	"github.com/TPP-insulA/insula-bot/internal/logger"
	"github.com/TPP-insulA/insula-bot/internal/prediction"
)

// InsulinService runs the dose calculation, outcome and history flows
// against the backend
type InsulinService struct {
	insulin  domain.InsulinAPI
	glucose  domain.GlucoseAPI
	sessions Sessions
	log      *slog.Logger
	now      func() time.Time
}

func NewInsulinService(insulin domain.InsulinAPI, glucose domain.GlucoseAPI, sessions Sessions) *InsulinService {
	return &InsulinService{
		insulin:  insulin,
		glucose:  glucose,
		sessions: sessions,
		log:      logger.For("insulin"),
		now:      time.Now,
	}
}

// SeedDoseForm loads the readings of the window before now into the form
func (s *InsulinService) SeedDoseForm(ctx context.Context, telegramID int64, form *prediction.DoseForm) error {
	if !form.CanLoadSeed() {
		return apperrors.NewValidationError("No hay lecturas recientes. Reiniciá el formulario para volver a intentar.")
	}
	start, end := prediction.PreDoseWindow(s.now())
	readings, err := s.readings(ctx, telegramID, start, end)
	if err != nil {
		return err
	}
	return form.LoadSeed(readings)
}

// SubmitDose sends a submittable form. The form records the outcome so a
// failure keeps every input for a retry.
func (s *InsulinService) SubmitDose(ctx context.Context, telegramID int64, form *prediction.DoseForm) (*domain.InsulinPredictionResult, error) {
	req, err := form.BeginSubmit(s.now())
	if err != nil {
		return nil, err
	}

	token, err := s.sessions.Token(ctx, telegramID)
	if err != nil {
		form.Fail(apperrors.UserMessage(err))
		return nil, err
	}

	start := time.Now()
	result, err := s.insulin.Calculate(ctx, token, req)
	if err = s.sessions.Guard(ctx, telegramID, err); err != nil {
		form.Fail(apperrors.UserMessage(err))
		s.log.Warn("Dose calculation failed", "telegram_id", telegramID, "error", err)
		return nil, err
	}

	form.Succeed()
	s.log.Info("Dose calculated",
		"telegram_id", telegramID,
		"prediction_id", result.ID,
		"readings", len(req.CGMPrev),
		"duration", time.Since(start))
	return result, nil
}

// SeedOutcomeForm loads the readings of the window after the prediction
func (s *InsulinService) SeedOutcomeForm(ctx context.Context, telegramID int64, date time.Time, form *prediction.OutcomeForm) error {
	if !form.CanLoadSeed() {
		return apperrors.NewValidationError("No hay lecturas posteriores. Reiniciá el formulario para volver a intentar.")
	}
	start, end := prediction.PostDoseWindow(date)
	readings, err := s.readings(ctx, telegramID, start, end)
	if err != nil {
		return err
	}
	return form.LoadSeed(readings)
}

func (s *InsulinService) readings(ctx context.Context, telegramID int64, start, end time.Time) ([]domain.GlucoseReading, error) {
	token, err := s.sessions.Token(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	readings, err := s.glucose.FetchReadings(ctx, token, domain.ReadingsQuery{
		StartDate: start,
		EndDate:   end,
		Limit:     prediction.SeedSlots,
	})
	return readings, s.sessions.Guard(ctx, telegramID, err)
}

// SaveOutcome replaces the post-dose data with the current form contents
func (s *InsulinService) SaveOutcome(ctx context.Context, telegramID int64, form *prediction.OutcomeForm) (*domain.InsulinPredictionResult, error) {
	update, err := form.Update()
	if err != nil {
		return nil, err
	}
	return s.updateOutcome(ctx, telegramID, form.PredictionID, update)
}

// ClearOutcome removes the post-dose data, keeping the prediction
func (s *InsulinService) ClearOutcome(ctx context.Context, telegramID int64, predictionID string) (*domain.InsulinPredictionResult, error) {
	return s.updateOutcome(ctx, telegramID, predictionID, prediction.ClearOutcome())
}

func (s *InsulinService) updateOutcome(ctx context.Context, telegramID int64, id string, update domain.OutcomeUpdate) (*domain.InsulinPredictionResult, error) {
	token, err := s.sessions.Token(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	result, err := s.insulin.UpdateOutcome(ctx, token, id, update)
	if err = s.sessions.Guard(ctx, telegramID, err); err != nil {
		return nil, err
	}
	s.log.Info("Outcome updated", "telegram_id", telegramID, "prediction_id", id, "readings", len(update.CGMPost))
	return result, nil
}

// LoadHistory fetches every prediction of the user
func (s *InsulinService) LoadHistory(ctx context.Context, telegramID int64) ([]domain.InsulinPredictionResult, error) {
	token, err := s.sessions.Token(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	items, err := s.insulin.FetchHistory(ctx, token)
	if err = s.sessions.Guard(ctx, telegramID, err); err != nil {
		return nil, err
	}
	return items, nil
}

// DeletePrediction issues one delete call. A response without success is
// reported as a server error so the item stays listed.
func (s *InsulinService) DeletePrediction(ctx context.Context, telegramID int64, id string) error {
	token, err := s.sessions.Token(ctx, telegramID)
	if err != nil {
		return err
	}
	ok, err := s.insulin.DeletePrediction(ctx, token, id)
	if err = s.sessions.Guard(ctx, telegramID, err); err != nil {
		return err
	}
	if !ok {
		return apperrors.NewServerError("No se pudo eliminar la predicción")
	}
	s.log.Info("Prediction deleted", "telegram_id", telegramID, "prediction_id", id)
	return nil
}
