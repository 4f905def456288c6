package services

import (
	"context"
	"sync"

	"github.com/TPP-insulA/insula-bot/internal/domain"
	apperrors "github.com/TPP-insulA/insula-bot/internal/errors"
)

type fakeSessions struct {
	token   string
	err     error
	expired []int64
}

func (f *fakeSessions) Token(context.Context, int64) (string, error) {
	return f.token, f.err
}

func (f *fakeSessions) Guard(_ context.Context, id int64, err error) error {
	if apperrors.IsType(err, apperrors.ErrorTypeAuth) {
		f.expired = append(f.expired, id)
	}
	return err
}

type fakeBackend struct {
	mu sync.Mutex

	readings    []domain.GlucoseReading
	readingsErr error
	queries     []domain.ReadingsQuery
	created     []domain.NewGlucoseReading

	result     *domain.InsulinPredictionResult
	calcErr    error
	requests   []domain.InsulinPredictionRequest
	history    []domain.InsulinPredictionResult
	historyErr error
	updates    map[string]domain.OutcomeUpdate
	deleteOK   bool
	deleteErr  error
	deletes    []string

	meals    []domain.Meal
	mealsErr error
	tokens   []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{updates: make(map[string]domain.OutcomeUpdate), deleteOK: true}
}

func (f *fakeBackend) seen(token string) {
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()
}

func (f *fakeBackend) FetchReadings(_ context.Context, token string, q domain.ReadingsQuery) ([]domain.GlucoseReading, error) {
	f.seen(token)
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	return f.readings, f.readingsErr
}

func (f *fakeBackend) CreateReading(_ context.Context, token string, r domain.NewGlucoseReading) (*domain.GlucoseReading, error) {
	f.seen(token)
	f.created = append(f.created, r)
	return &domain.GlucoseReading{ID: "g1", Value: r.Value, Timestamp: r.Timestamp, Notes: r.Notes}, nil
}

func (f *fakeBackend) Calculate(_ context.Context, token string, req domain.InsulinPredictionRequest) (*domain.InsulinPredictionResult, error) {
	f.seen(token)
	f.requests = append(f.requests, req)
	return f.result, f.calcErr
}

func (f *fakeBackend) FetchHistory(_ context.Context, token string) ([]domain.InsulinPredictionResult, error) {
	f.seen(token)
	return f.history, f.historyErr
}

func (f *fakeBackend) UpdateOutcome(_ context.Context, token, id string, update domain.OutcomeUpdate) (*domain.InsulinPredictionResult, error) {
	f.seen(token)
	f.updates[id] = update
	return &domain.InsulinPredictionResult{ID: id, ApplyDose: update.ApplyDose, CGMPost: update.CGMPost}, nil
}

func (f *fakeBackend) DeletePrediction(_ context.Context, token, id string) (bool, error) {
	f.seen(token)
	f.deletes = append(f.deletes, id)
	return f.deleteOK, f.deleteErr
}

func (f *fakeBackend) FetchMeals(_ context.Context, token string, _ domain.MealsQuery) ([]domain.Meal, error) {
	f.seen(token)
	return f.meals, f.mealsErr
}

type fakeGenerator struct {
	prompt  string
	history []domain.ChatTurn
	reply   string
	err     error
}

func (g *fakeGenerator) Generate(_ context.Context, history []domain.ChatTurn, prompt string) (string, error) {
	g.history = history
	g.prompt = prompt
	return g.reply, g.err
}
