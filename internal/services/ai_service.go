package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/TPP-insulA/insula-bot/internal/domain"
	apperrors "github.com/TPP-insulA/insula-bot/internal/errors"
	"github.com/TPP-insulA/insula-bot/internal/logger"
	"github.com/TPP-insulA/insula-bot/internal/prediction"
)

const (
	// ContextWindow is how far back readings and meals are pulled for the
	// assistant
	ContextWindow = 24 * time.Hour

	contextPredictions = 5
	contextReadings    = 48
)

// Generator produces the assistant reply for a conversation
type Generator interface {
	Generate(ctx context.Context, history []domain.ChatTurn, prompt string) (string, error)
}

// GeminiGenerator talks to Gemini
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, history []domain.ChatTurn, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	chat := model.StartChat()
	for _, turn := range history {
		chat.History = append(chat.History, &genai.Content{
			Role:  turn.Role,
			Parts: []genai.Part{genai.Text(turn.Text)},
		})
	}

	resp, err := chat.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

// AIService answers questions with the user's recent data as context
type AIService struct {
	gen      Generator
	glucose  domain.GlucoseAPI
	insulin  domain.InsulinAPI
	meals    domain.MealAPI
	sessions Sessions
	loc      *time.Location
	log      *slog.Logger
	now      func() time.Time
}

func NewAIService(gen Generator, glucose domain.GlucoseAPI, insulin domain.InsulinAPI, meals domain.MealAPI, sessions Sessions) *AIService {
	return &AIService{
		gen:      gen,
		glucose:  glucose,
		insulin:  insulin,
		meals:    meals,
		sessions: sessions,
		loc:      prediction.DisplayLocation(),
		log:      logger.For("ai"),
		now:      time.Now,
	}
}

// UserContext is the data the assistant sees
type UserContext struct {
	Readings    []domain.GlucoseReading
	Predictions []domain.InsulinPredictionResult
	Meals       []domain.Meal
}

// Gather fetches readings, predictions and meals in parallel. A failing
// source contributes nothing; only an auth failure aborts, since the
// session is gone.
func (s *AIService) Gather(ctx context.Context, telegramID int64) (UserContext, error) {
	token, err := s.sessions.Token(ctx, telegramID)
	if err != nil {
		return UserContext{}, err
	}

	now := s.now()
	var (
		uc                               UserContext
		readingsErr, historyErr, mealErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		uc.Readings, readingsErr = s.glucose.FetchReadings(ctx, token, domain.ReadingsQuery{
			StartDate: now.Add(-ContextWindow),
			EndDate:   now,
			Limit:     contextReadings,
		})
		return nil
	})
	g.Go(func() error {
		uc.Predictions, historyErr = s.insulin.FetchHistory(ctx, token)
		return nil
	})
	g.Go(func() error {
		uc.Meals, mealErr = s.meals.FetchMeals(ctx, token, domain.MealsQuery{
			StartDate: now.Add(-ContextWindow),
			EndDate:   now,
		})
		return nil
	})
	_ = g.Wait()

	for source, err := range map[string]error{"readings": readingsErr, "history": historyErr, "meals": mealErr} {
		if err == nil {
			continue
		}
		if apperrors.IsType(err, apperrors.ErrorTypeAuth) {
			return UserContext{}, s.sessions.Guard(ctx, telegramID, err)
		}
		s.log.Warn("Assistant context source unavailable", "source", source, "error", err)
	}
	if readingsErr != nil {
		uc.Readings = nil
	}
	if historyErr != nil {
		uc.Predictions = nil
	}
	if mealErr != nil {
		uc.Meals = nil
	}
	return uc, nil
}

// Answer replies to question, continuing history
func (s *AIService) Answer(ctx context.Context, telegramID int64, history []domain.ChatTurn, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", apperrors.NewValidationError("Escribí tu pregunta.")
	}

	uc, err := s.Gather(ctx, telegramID)
	if err != nil {
		return "", err
	}

	reply, err := s.gen.Generate(ctx, history, BuildPrompt(uc, question, s.loc))
	if err != nil {
		s.log.Error("Assistant generation failed", "telegram_id", telegramID, "error", err)
		return "", apperrors.NewExternalAPIError(err, "gemini")
	}
	if reply == "" {
		return "", apperrors.NewExternalAPIError(fmt.Errorf("empty reply"), "gemini")
	}
	return reply, nil
}

// BuildPrompt renders the user's data followed by the question
func BuildPrompt(uc UserContext, question string, loc *time.Location) string {
	var sb strings.Builder
	sb.WriteString(`Sos un asistente para personas con diabetes tipo 1 que usan la app insulA.
Respondé en español rioplatense, breve y claro. No reemplazás al médico: ante
valores peligrosos recomendá consultar a un profesional. Usá los datos del
usuario cuando sean relevantes.

`)

	sb.WriteString("Glucosas de las últimas 24 horas (mg/dL):\n")
	if len(uc.Readings) == 0 {
		sb.WriteString("- sin datos\n")
	}
	readings := append([]domain.GlucoseReading(nil), uc.Readings...)
	sort.SliceStable(readings, func(i, j int) bool { return readings[i].Timestamp.After(readings[j].Timestamp) })
	for _, r := range readings {
		fmt.Fprintf(&sb, "- %s: %d\n", r.Timestamp.In(loc).Format("02/01 15:04"), r.Value)
	}

	sb.WriteString("\nÚltimas predicciones de dosis:\n")
	predictions := prediction.SortPredictions(uc.Predictions, prediction.SortByDate, prediction.SortDesc)
	if len(predictions) > contextPredictions {
		predictions = predictions[:contextPredictions]
	}
	if len(predictions) == 0 {
		sb.WriteString("- sin datos\n")
	}
	for _, p := range predictions {
		cgm := "-"
		if v, ok := p.FirstCGM(); ok {
			cgm = strconv.Itoa(v)
		}
		fmt.Fprintf(&sb, "- %s: glucosa %s, carbohidratos %sg, recomendada %s",
			p.Date.In(loc).Format("02/01 15:04"), cgm,
			strconv.FormatFloat(p.Carbs, 'f', -1, 64), prediction.FormatUnits(p.RecommendedDose))
		if p.ApplyDose != nil {
			fmt.Fprintf(&sb, ", aplicada %s", prediction.FormatUnits(*p.ApplyDose))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\nComidas de las últimas 24 horas:\n")
	if len(uc.Meals) == 0 {
		sb.WriteString("- sin datos\n")
	}
	for _, m := range uc.Meals {
		fmt.Fprintf(&sb, "- %s: %s, %sg de carbohidratos\n",
			m.Timestamp.In(loc).Format("02/01 15:04"), m.Name, strconv.FormatFloat(m.Carbs, 'f', -1, 64))
	}

	sb.WriteString("\nPregunta: ")
	sb.WriteString(question)
	return sb.String()
}
