package handlers

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"github.com/TPP-insulA/insula-bot/internal/bot/state"
	"github.com/TPP-insulA/insula-bot/internal/database"
	"github.com/TPP-insulA/insula-bot/internal/domain"
	apperrors "github.com/TPP-insulA/insula-bot/internal/errors"
	"github.com/TPP-insulA/insula-bot/internal/prediction"
	"github.com/TPP-insulA/insula-bot/internal/session"
)

const userID int64 = 42

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// text returns the message text or caption of c
func text(c tgbotapi.Chattable) string {
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		return m.Text
	case tgbotapi.PhotoConfig:
		return m.Caption
	case tgbotapi.DocumentConfig:
		return m.Caption
	}
	return ""
}

func markupOf(c tgbotapi.Chattable) any {
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		return m.ReplyMarkup
	case tgbotapi.PhotoConfig:
		return m.ReplyMarkup
	}
	return nil
}

// buttons lists the callback data of the inline keyboard on c
func buttons(c tgbotapi.Chattable) []string {
	kb, ok := markupOf(c).(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		return nil
	}
	var data []string
	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			if b.CallbackData != nil {
				data = append(data, *b.CallbackData)
			}
		}
	}
	return data
}

func (f *fakeSender) last() tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

// texts joins every text sent since the last reset
func (f *fakeSender) texts() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	parts := make([]string, 0, len(f.sent))
	for _, c := range f.sent {
		parts = append(parts, text(c))
	}
	return strings.Join(parts, "\n---\n")
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
	f.requests = nil
}

type fakeUsers struct{}

func (fakeUsers) RegisterUser(_ context.Context, telegramID int64, username, firstName, lastName string) (*database.User, error) {
	return &database.User{TelegramID: telegramID, Username: username, FirstName: firstName, LastName: lastName}, nil
}

func (fakeUsers) GetUserByTelegramID(_ context.Context, telegramID int64) (*database.User, error) {
	return &database.User{TelegramID: telegramID}, nil
}

type fakeInsulin struct {
	result    domain.InsulinPredictionResult
	submitErr error
	forms     []prediction.DoseForm
	readings  []domain.GlucoseReading

	history   []domain.InsulinPredictionResult
	deleteErr error
	deleted   []string
	cleared   []string
	saved     []domain.OutcomeUpdate
}

func (f *fakeInsulin) SeedDoseForm(_ context.Context, _ int64, form *prediction.DoseForm) error {
	return form.LoadSeed(f.readings)
}

func (f *fakeInsulin) SubmitDose(_ context.Context, _ int64, form *prediction.DoseForm) (*domain.InsulinPredictionResult, error) {
	if _, err := form.BeginSubmit(fixedNow); err != nil {
		return nil, err
	}
	f.forms = append(f.forms, *form)
	if f.submitErr != nil {
		form.Fail(apperrors.UserMessage(f.submitErr))
		return nil, f.submitErr
	}
	form.Succeed()
	r := f.result
	return &r, nil
}

func (f *fakeInsulin) SeedOutcomeForm(_ context.Context, _ int64, _ time.Time, form *prediction.OutcomeForm) error {
	return form.LoadSeed(f.readings)
}

func (f *fakeInsulin) SaveOutcome(_ context.Context, _ int64, form *prediction.OutcomeForm) (*domain.InsulinPredictionResult, error) {
	update, err := form.Update()
	if err != nil {
		return nil, err
	}
	f.saved = append(f.saved, update)
	return &domain.InsulinPredictionResult{ID: form.PredictionID, ApplyDose: update.ApplyDose, CGMPost: update.CGMPost}, nil
}

func (f *fakeInsulin) ClearOutcome(_ context.Context, _ int64, id string) (*domain.InsulinPredictionResult, error) {
	f.cleared = append(f.cleared, id)
	return &domain.InsulinPredictionResult{ID: id, CGMPost: []int{}}, nil
}

func (f *fakeInsulin) LoadHistory(context.Context, int64) ([]domain.InsulinPredictionResult, error) {
	return append([]domain.InsulinPredictionResult(nil), f.history...), nil
}

func (f *fakeInsulin) DeletePrediction(_ context.Context, _ int64, id string) error {
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

type fakeGlucose struct {
	logged []domain.NewGlucoseReading
	recent []domain.GlucoseReading
}

func (f *fakeGlucose) LogReading(_ context.Context, _ int64, value int, notes string) (*domain.GlucoseReading, error) {
	if value < 20 || value > 600 {
		return nil, apperrors.NewValidationError("El valor debe estar entre 20 y 600 mg/dL")
	}
	f.logged = append(f.logged, domain.NewGlucoseReading{Value: value, Timestamp: fixedNow, Notes: notes})
	return &domain.GlucoseReading{ID: "g1", Value: value, Timestamp: fixedNow, Notes: notes}, nil
}

func (f *fakeGlucose) Recent(context.Context, int64, time.Duration) ([]domain.GlucoseReading, error) {
	return f.recent, nil
}

type fakeAI struct {
	histories [][]domain.ChatTurn
	reply     string
}

func (f *fakeAI) Answer(_ context.Context, _ int64, history []domain.ChatTurn, _ string) (string, error) {
	f.histories = append(f.histories, append([]domain.ChatTurn(nil), history...))
	return f.reply, nil
}

type harness struct {
	t        *testing.T
	api      *fakeSender
	handler  *UpdateHandler
	store    *state.Manager
	sessions *session.Manager
	insulin  *fakeInsulin
	glucose  *fakeGlucose
	ai       *fakeAI
	nextID   int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		api:      &fakeSender{},
		store:    state.NewManager(),
		sessions: session.NewManager(session.NewMemoryStore()),
		insulin:  &fakeInsulin{},
		glucose:  &fakeGlucose{},
		ai:       &fakeAI{reply: "Vas muy bien."},
	}
	h.handler = NewUpdateHandler(h.api, Dependencies{
		UserService: fakeUsers{},
		Sessions:    h.sessions,
		InsulinSvc:  h.insulin,
		GlucoseSvc:  h.glucose,
		AISvc:       h.ai,
	}, h.store)
	h.handler.now = func() time.Time { return fixedNow }
	h.sessions.Subscribe(h.handler.HandleSessionEvent)
	return h
}

func (h *harness) signIn() {
	h.t.Helper()
	_, err := h.sessions.SignIn(context.Background(), userID, "backend-token")
	require.NoError(h.t, err)
}

func (h *harness) message(text string) *tgbotapi.Message {
	h.nextID++
	return &tgbotapi.Message{
		MessageID: h.nextID,
		From:      &tgbotapi.User{ID: userID, UserName: "ana"},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}
}

func (h *harness) text(s string) {
	h.t.Helper()
	require.NoError(h.t, h.handler.Handle(context.Background(), tgbotapi.Update{Message: h.message(s)}))
}

func (h *harness) command(s string) {
	h.t.Helper()
	m := h.message(s)
	name := strings.SplitN(s, " ", 2)[0]
	m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}}
	require.NoError(h.t, h.handler.Handle(context.Background(), tgbotapi.Update{Message: m}))
}

func (h *harness) press(data string) {
	h.t.Helper()
	h.nextID++
	q := &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{MessageID: h.nextID, Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	}
	require.NoError(h.t, h.handler.Handle(context.Background(), tgbotapi.Update{CallbackQuery: q}))
}

func (h *harness) conversation() *state.Conversation {
	h.t.Helper()
	c, err := h.store.Load(context.Background(), userID)
	require.NoError(h.t, err)
	return c
}
