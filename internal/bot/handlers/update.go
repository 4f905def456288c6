package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/TPP-insulA/insula-bot/internal/bot/keyboards"
	"github.com/TPP-insulA/insula-bot/internal/bot/menus"
	"github.com/TPP-insulA/insula-bot/internal/bot/state"
	apperrors "github.com/TPP-insulA/insula-bot/internal/errors"
	"github.com/TPP-insulA/insula-bot/internal/logger"
	"github.com/TPP-insulA/insula-bot/internal/session"
)

// UpdateHandler handles telegram updates and coordinates other handlers.
// Updates of one user are processed one at a time so the conversation is
// loaded and saved without interleaving.
type UpdateHandler struct {
	*actions
	stateStore      state.Store
	callbackHandler *CallbackHandler
	commandHandler  *CommandHandler
	textHandler     *TextHandler

	locks sync.Map // user id -> *sync.Mutex
}

// NewUpdateHandler creates a new update handler
func NewUpdateHandler(api menus.Sender, deps Dependencies, stateStore state.Store) *UpdateHandler {
	a := &actions{
		api:  api,
		deps: deps,
		log:  logger.For("bot"),
		now:  time.Now,
	}
	return &UpdateHandler{
		actions:         a,
		stateStore:      stateStore,
		callbackHandler: NewCallbackHandler(a),
		commandHandler:  NewCommandHandler(a),
		textHandler:     NewTextHandler(a),
	}
}

func (h *UpdateHandler) lock(userID int64) func() {
	m, _ := h.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Handle processes a telegram update
func (h *UpdateHandler) Handle(ctx context.Context, update tgbotapi.Update) error {
	var from *tgbotapi.User
	switch {
	case update.CallbackQuery != nil:
		from = update.CallbackQuery.From
	case update.Message != nil:
		from = update.Message.From
	}
	if from == nil {
		return nil
	}

	unlock := h.lock(from.ID)
	defer unlock()

	if _, err := h.deps.UserService.RegisterUser(ctx, from.ID, from.UserName, from.FirstName, from.LastName); err != nil {
		return fmt.Errorf("failed to get/create user: %w", err)
	}

	conv, err := h.stateStore.Load(ctx, from.ID)
	if err != nil {
		h.log.Error("Failed to load conversation, starting fresh", "user_id", from.ID, "error", err)
		conv = state.NewConversation()
	}

	handleErr := h.dispatch(ctx, update, conv)

	if err := h.stateStore.Save(ctx, from.ID, conv); err != nil {
		h.log.Error("Failed to save conversation", "user_id", from.ID, "error", err)
	}
	return handleErr
}

func (h *UpdateHandler) dispatch(ctx context.Context, update tgbotapi.Update, conv *state.Conversation) error {
	if update.CallbackQuery != nil {
		return h.callbackHandler.Handle(ctx, update.CallbackQuery, conv)
	}

	message := update.Message
	if message.IsCommand() {
		return h.commandHandler.Handle(ctx, message, conv)
	}
	if message.Text != "" {
		return h.textHandler.Handle(ctx, message, conv)
	}
	return menus.Send(h.api, message.Chat.ID, "Por ahora solo entiendo mensajes de texto.", nil)
}

// HandleSessionEvent tells the user their session expired. It is meant to
// be subscribed to the session manager; private chats share the user id.
func (h *UpdateHandler) HandleSessionEvent(e session.Event) {
	if e.Type != session.Expired {
		return
	}
	markup := keyboards.Main(false)
	if err := menus.Send(h.api, e.TelegramID, apperrors.MsgSessionExpired, &markup); err != nil {
		h.log.Error("Failed to notify expired session", "user_id", e.TelegramID, "error", err)
	}
}
