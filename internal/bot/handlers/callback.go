package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/TPP-insulA/insula-bot/internal/bot/keyboards"
	"github.com/TPP-insulA/insula-bot/internal/bot/menus"
	"github.com/TPP-insulA/insula-bot/internal/bot/state"
	"github.com/TPP-insulA/insula-bot/internal/prediction"
)

// CallbackHandler handles callback query messages
type CallbackHandler struct {
	*actions
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(a *actions) *CallbackHandler {
	return &CallbackHandler{actions: a}
}

// Handle processes a callback query
func (h *CallbackHandler) Handle(ctx context.Context, query *tgbotapi.CallbackQuery, conv *state.Conversation) error {
	// Answer the callback query first
	callback := tgbotapi.NewCallback(query.ID, "")
	if _, err := h.api.Request(callback); err != nil {
		return err
	}
	if query.Message == nil {
		return nil
	}

	chatID := query.Message.Chat.ID
	userID := query.From.ID
	action, args := keyboards.Parse(query.Data)

	switch {
	case strings.HasPrefix(action, "dose_") && action != keyboards.DoseNew && conv.Dose == nil,
		strings.HasPrefix(action, "out_") && action != keyboards.OutcomeClearYes && action != keyboards.OutcomeClearNo && conv.Outcome == nil,
		strings.HasPrefix(action, "hist_") && conv.History == nil:
		return h.stale(ctx, chatID, userID, conv)
	}

	switch action {
	case keyboards.MainMenu:
		return h.mainMenu(ctx, chatID, userID, conv)
	case keyboards.Help:
		return menus.SendHelp(h.api, chatID)
	case keyboards.Back:
		return h.back(ctx, chatID, userID, conv)
	case keyboards.Noop:
		return nil

	case keyboards.DoseNew:
		return h.startDose(ctx, chatID, userID, conv)
	case keyboards.DoseSeed:
		return h.doseSeed(ctx, chatID, userID, conv)
	case keyboards.DoseNext:
		return h.doseNext(chatID, conv)
	case keyboards.DoseLevel:
		if len(args) != 2 {
			return h.stale(ctx, chatID, userID, conv)
		}
		return h.doseValue(chatID, conv, prediction.Field(args[0]), args[1])
	case keyboards.DoseSubmit:
		return h.doseSubmit(ctx, chatID, userID, conv)
	case keyboards.DoseRetry:
		return h.doseRetry(ctx, chatID, userID, conv)
	case keyboards.DoseReset:
		return h.doseReset(chatID, conv)

	case keyboards.ResultOutcome:
		return h.editOutcome(ctx, chatID, userID, conv)
	case keyboards.OutcomeSeed:
		return h.outcomeSeed(ctx, chatID, userID, conv)
	case keyboards.OutcomeDose:
		return h.outcomeDosePrompt(chatID, conv)
	case keyboards.OutcomeSave:
		return h.outcomeSave(ctx, chatID, userID, conv)
	case keyboards.OutcomeClear:
		return h.outcomeClear(ctx, chatID, userID, conv)
	case keyboards.OutcomeClearYes:
		return h.outcomeClearConfirm(ctx, chatID, userID, conv, true)
	case keyboards.OutcomeClearNo:
		return h.outcomeClearConfirm(ctx, chatID, userID, conv, false)

	case keyboards.History:
		return h.openHistory(ctx, chatID, userID, conv)
	case keyboards.HistoryNext:
		return h.historyPage(chatID, conv, true)
	case keyboards.HistoryPrev:
		return h.historyPage(chatID, conv, false)
	case keyboards.HistorySort:
		if len(args) != 1 {
			return h.stale(ctx, chatID, userID, conv)
		}
		return h.historySort(chatID, conv, prediction.SortKey(args[0]))
	case keyboards.HistoryDirection:
		return h.historyDirection(chatID, conv)
	case keyboards.HistoryFilterDate:
		return h.historyFilterPrompt(chatID, conv, state.WaitingForFilterDate)
	case keyboards.HistoryFilterCGM:
		return h.historyFilterPrompt(chatID, conv, state.WaitingForFilterCGM)
	case keyboards.HistoryFilterDose:
		return h.historyFilterPrompt(chatID, conv, state.WaitingForFilterDose)
	case keyboards.HistoryFilterNone:
		return h.historyClearFilters(chatID, conv)
	case keyboards.HistoryOpen:
		if len(args) != 1 {
			return h.stale(ctx, chatID, userID, conv)
		}
		return h.historyOpen(chatID, conv, args[0])
	case keyboards.HistoryDelete:
		if len(args) != 1 {
			return h.stale(ctx, chatID, userID, conv)
		}
		return h.historyDelete(chatID, conv, args[0])
	case keyboards.HistoryDeleteYes:
		return h.historyDeleteConfirm(ctx, chatID, userID, conv, true)
	case keyboards.HistoryDeleteNo:
		return h.historyDeleteConfirm(ctx, chatID, userID, conv, false)
	case keyboards.HistoryExport:
		return h.sendExport(chatID, conv.History)

	case keyboards.GlucoseLog:
		return h.startGlucoseLog(ctx, chatID, userID, conv)

	case keyboards.Chat:
		return h.startChat(ctx, chatID, userID, conv)
	case keyboards.ChatEnd:
		return h.endChat(ctx, chatID, userID, conv)

	default:
		h.log.Warn("Unknown callback", "data", query.Data, "user_id", userID)
		return h.stale(ctx, chatID, userID, conv)
	}
}
