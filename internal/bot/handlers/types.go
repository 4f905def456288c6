package handlers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/TPP-insulA/insula-bot/internal/bot/keyboards"
	"github.com/TPP-insulA/insula-bot/internal/bot/menus"
	"github.com/TPP-insulA/insula-bot/internal/bot/state"
	apperrors "github.com/TPP-insulA/insula-bot/internal/errors"
	"github.com/TPP-insulA/insula-bot/internal/interfaces"
)

// Dependencies holds all service dependencies for handlers. AISvc is nil
// when no Gemini key is configured.
type Dependencies struct {
	UserService interfaces.UserServiceInterface
	Sessions    interfaces.SessionManagerInterface
	InsulinSvc  interfaces.InsulinServiceInterface
	GlucoseSvc  interfaces.GlucoseServiceInterface
	AISvc       interfaces.AIServiceInterface
}

// actions are the screens and transitions shared by commands, callbacks
// and text input. Every method mutates the conversation it is given; the
// update handler persists it afterwards.
type actions struct {
	api  menus.Sender
	deps Dependencies
	log  *slog.Logger
	now  func() time.Time
}

// replyError renders err inline. Expired sessions are announced by the
// session subscriber, so they are only logged here.
func (a *actions) replyError(chatID int64, err error) error {
	if apperrors.IsType(err, apperrors.ErrorTypeAuth) && !errors.Is(err, apperrors.ErrNotSignedIn) {
		a.log.Info("Request rejected by expired session", "chat_id", chatID)
		return nil
	}
	a.log.Warn("Action failed", append([]any{"chat_id", chatID}, logFields(err)...)...)
	return menus.Send(a.api, chatID, "❌ "+apperrors.UserMessage(err), nil)
}

func logFields(err error) []any {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.LogFields()
	}
	return []any{"error", err}
}

// signedIn reports whether the user has a live session
func (a *actions) signedIn(ctx context.Context, userID int64) bool {
	_, err := a.deps.Sessions.Current(ctx, userID)
	return err == nil
}

// requireSession answers with the sign-in hint when there is no session
func (a *actions) requireSession(ctx context.Context, chatID, userID int64) (bool, error) {
	if _, err := a.deps.Sessions.Current(ctx, userID); err != nil {
		return false, a.replyError(chatID, err)
	}
	return true, nil
}

// mainMenu drops whatever was in progress and shows the menu
func (a *actions) mainMenu(ctx context.Context, chatID, userID int64, conv *state.Conversation) error {
	*conv = *state.NewConversation()
	return menus.SendMainMenu(a.api, chatID, a.signedIn(ctx, userID))
}

// cancelMarkup is attached to prompts that wait for free text
func cancelMarkup() *tgbotapi.InlineKeyboardMarkup {
	m := keyboards.Cancel()
	return &m
}
