package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/TPP-insulA/insula-bot/internal/bot/menus"
	"github.com/TPP-insulA/insula-bot/internal/bot/state"
	apperrors "github.com/TPP-insulA/insula-bot/internal/errors"
)

// CommandHandler handles bot commands
type CommandHandler struct {
	*actions
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(a *actions) *CommandHandler {
	return &CommandHandler{actions: a}
}

// Handle processes a command message
func (h *CommandHandler) Handle(ctx context.Context, message *tgbotapi.Message, conv *state.Conversation) error {
	chatID := message.Chat.ID
	userID := message.From.ID
	h.log.Info("Handling command", "command", message.Command(), "user_id", userID)

	switch message.Command() {
	case "start", "cancel":
		return h.mainMenu(ctx, chatID, userID, conv)
	case "help":
		return menus.SendHelp(h.api, chatID)
	case "login":
		return h.handleLogin(ctx, message, conv)
	case "logout":
		return h.handleLogout(ctx, chatID, userID, conv)
	case "dosis":
		return h.startDose(ctx, chatID, userID, conv)
	case "historial":
		return h.openHistory(ctx, chatID, userID, conv)
	case "glucosa":
		return h.startGlucoseLog(ctx, chatID, userID, conv)
	case "chat":
		return h.startChat(ctx, chatID, userID, conv)
	default:
		return menus.Send(h.api, chatID, "Comando desconocido. Usá /help para ver las opciones.", nil)
	}
}

// handleLogin links the backend token. The message carrying the token is
// deleted from the chat first.
func (h *CommandHandler) handleLogin(ctx context.Context, message *tgbotapi.Message, conv *state.Conversation) error {
	chatID := message.Chat.ID
	userID := message.From.ID

	if _, err := h.api.Request(tgbotapi.NewDeleteMessage(chatID, message.MessageID)); err != nil {
		h.log.Warn("Could not delete login message", "chat_id", chatID, "error", err)
	}

	if _, err := h.deps.Sessions.SignIn(ctx, userID, message.CommandArguments()); err != nil {
		h.log.Warn("Sign in rejected", append([]any{"user_id", userID}, logFields(err)...)...)
		text := apperrors.UserMessage(err)
		if apperrors.IsType(err, apperrors.ErrorTypeAuth) {
			text = "Ese token ya expiró. Generá uno nuevo en la app de insulA."
		}
		return menus.Send(h.api, chatID, "❌ "+text, nil)
	}

	if err := menus.Send(h.api, chatID, "✅ Sesión iniciada.", nil); err != nil {
		return err
	}
	return h.mainMenu(ctx, chatID, userID, conv)
}

func (h *CommandHandler) handleLogout(ctx context.Context, chatID, userID int64, conv *state.Conversation) error {
	if err := h.deps.Sessions.SignOut(ctx, userID); err != nil {
		return h.replyError(chatID, err)
	}
	if err := menus.Send(h.api, chatID, "👋 Cerraste sesión.", nil); err != nil {
		return err
	}
	return h.mainMenu(ctx, chatID, userID, conv)
}
