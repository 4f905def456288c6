package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/TPP-insulA/insula-bot/internal/bot/keyboards"
	"github.com/TPP-insulA/insula-bot/internal/bot/menus"
	"github.com/TPP-insulA/insula-bot/internal/bot/state"
	"github.com/TPP-insulA/insula-bot/internal/domain"
	"github.com/TPP-insulA/insula-bot/internal/navigation"
)

func (a *actions) startChat(ctx context.Context, chatID, userID int64, conv *state.Conversation) error {
	if a.deps.AISvc == nil {
		return menus.Send(a.api, chatID, "El asistente no está disponible en este momento.", nil)
	}
	if ok, err := a.requireSession(ctx, chatID, userID); !ok {
		return err
	}
	*conv = *state.NewConversation()
	if err := conv.Routes.Push(navigation.Chat, nil); err != nil {
		return err
	}
	conv.Step = state.Chatting
	return menus.SendChatIntro(a.api, chatID)
}

func (a *actions) chatText(ctx context.Context, chatID, userID int64, conv *state.Conversation, text string) error {
	if a.deps.AISvc == nil {
		return a.endChat(ctx, chatID, userID, conv)
	}
	if _, err := a.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		a.log.Debug("Could not send typing action", "chat_id", chatID, "error", err)
	}

	reply, err := a.deps.AISvc.Answer(ctx, userID, conv.Chat, text)
	if err != nil {
		return a.replyError(chatID, err)
	}
	conv.AppendChat(domain.ChatTurn{Role: domain.ChatRoleUser, Text: text})
	conv.AppendChat(domain.ChatTurn{Role: domain.ChatRoleModel, Text: reply})

	markup := keyboards.ChatControls()
	return menus.Send(a.api, chatID, reply, &markup)
}

func (a *actions) endChat(ctx context.Context, chatID, userID int64, conv *state.Conversation) error {
	return a.mainMenu(ctx, chatID, userID, conv)
}
