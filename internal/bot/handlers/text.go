package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/TPP-insulA/insula-bot/internal/bot/state"
)

// TextHandler handles free text, routed by the step the user is in
type TextHandler struct {
	*actions
}

// NewTextHandler creates a new text handler
func NewTextHandler(a *actions) *TextHandler {
	return &TextHandler{actions: a}
}

// Handle processes a text message
func (h *TextHandler) Handle(ctx context.Context, message *tgbotapi.Message, conv *state.Conversation) error {
	chatID := message.Chat.ID
	userID := message.From.ID
	text := message.Text

	if field, ok := doseField(conv.Step); ok {
		if conv.Dose == nil {
			return h.stale(ctx, chatID, userID, conv)
		}
		if conv.Step == state.WaitingForGlucose {
			return h.doseGlucoseText(chatID, conv, text)
		}
		return h.doseValue(chatID, conv, field, text)
	}

	switch conv.Step {
	case state.WaitingForOutcomeGlucose, state.WaitingForOutcomeDose:
		if conv.Outcome == nil {
			return h.stale(ctx, chatID, userID, conv)
		}
		if conv.Step == state.WaitingForOutcomeDose {
			return h.outcomeDoseText(chatID, conv, text)
		}
		return h.outcomeGlucoseText(chatID, conv, text)
	case state.WaitingForFilterDate, state.WaitingForFilterCGM, state.WaitingForFilterDose:
		if conv.History == nil {
			return h.stale(ctx, chatID, userID, conv)
		}
		return h.historyFilterText(chatID, conv, text)
	case state.WaitingForGlucoseLog:
		return h.glucoseLogText(ctx, chatID, userID, conv, text)
	case state.Chatting:
		return h.chatText(ctx, chatID, userID, conv, text)
	default:
		return h.mainMenu(ctx, chatID, userID, conv)
	}
}
