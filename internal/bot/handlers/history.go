package handlers

import (
	"context"
	"strings"

	"github.com/TPP-insulA/insula-bot/internal/bot/keyboards"
	"github.com/TPP-insulA/insula-bot/internal/bot/menus"
	"github.com/TPP-insulA/insula-bot/internal/bot/state"
	"github.com/TPP-insulA/insula-bot/internal/navigation"
	"github.com/TPP-insulA/insula-bot/internal/prediction"
)

const numericFilterHint = "Usá =, > o < seguido de un número. Ej: >150 o =4. Enviá - para quitar el filtro."

// openHistory reloads the list from the backend, keeping filters, order
// and page of a view that was already open
func (a *actions) openHistory(ctx context.Context, chatID, userID int64, conv *state.Conversation) error {
	items, err := a.deps.InsulinSvc.LoadHistory(ctx, userID)
	if err != nil {
		return a.replyError(chatID, err)
	}
	if conv.History != nil {
		conv.History.Items = items
	} else {
		conv.History = prediction.NewHistoryView(items)
	}

	conv.Step = state.None
	conv.PendingDelete = ""
	if conv.Routes.Current().Route != navigation.History {
		if err := conv.Routes.Push(navigation.History, nil); err != nil {
			return err
		}
	}
	return menus.SendHistory(a.api, chatID, conv.History)
}

func (a *actions) historyPage(chatID int64, conv *state.Conversation, forward bool) error {
	if forward {
		conv.History.NextPage()
	} else {
		conv.History.PrevPage()
	}
	return menus.SendHistory(a.api, chatID, conv.History)
}

func (a *actions) historySort(chatID int64, conv *state.Conversation, key prediction.SortKey) error {
	switch key {
	case prediction.SortByDate, prediction.SortByCGM, prediction.SortByDose:
	default:
		return menus.SendHistory(a.api, chatID, conv.History)
	}
	if conv.History.SortKey == key {
		conv.History.ToggleDirection()
	} else {
		conv.History.SetSort(key, prediction.SortDesc)
	}
	return menus.SendHistory(a.api, chatID, conv.History)
}

func (a *actions) historyDirection(chatID int64, conv *state.Conversation) error {
	conv.History.ToggleDirection()
	return menus.SendHistory(a.api, chatID, conv.History)
}

func (a *actions) historyFilterPrompt(chatID int64, conv *state.Conversation, step state.Step) error {
	conv.Step = step
	text := numericFilterHint
	if step == state.WaitingForFilterDate {
		text = "Escribí el día a buscar como dd/mm, o una parte. Ej: 15/03 o /03. Enviá - para quitar el filtro."
	}
	return menus.Send(a.api, chatID, text, cancelMarkup())
}

func (a *actions) historyFilterText(chatID int64, conv *state.Conversation, text string) error {
	text = strings.TrimSpace(text)
	unset := text == "-"
	filters := conv.History.Filters

	switch conv.Step {
	case state.WaitingForFilterDate:
		if unset {
			text = ""
		}
		filters.Date = text
	case state.WaitingForFilterCGM, state.WaitingForFilterDose:
		var f prediction.NumericFilter
		if !unset {
			var ok bool
			if f, ok = prediction.ParseNumericFilter(text); !ok {
				return menus.Send(a.api, chatID, numericFilterHint, cancelMarkup())
			}
		}
		if conv.Step == state.WaitingForFilterCGM {
			filters.CGM = f
		} else {
			filters.Dose = f
		}
	}

	conv.History.SetFilters(filters)
	conv.Step = state.None
	return menus.SendHistory(a.api, chatID, conv.History)
}

func (a *actions) historyClearFilters(chatID int64, conv *state.Conversation) error {
	conv.History.SetFilters(prediction.Filters{})
	return menus.SendHistory(a.api, chatID, conv.History)
}

func (a *actions) historyOpen(chatID int64, conv *state.Conversation, id string) error {
	r, ok := conv.History.Find(id)
	if !ok {
		if err := menus.Send(a.api, chatID, "Esa predicción ya no está en tu historial.", nil); err != nil {
			return err
		}
		return menus.SendHistory(a.api, chatID, conv.History)
	}
	if err := conv.Routes.Push(navigation.PredictionResult, r); err != nil {
		return err
	}
	return a.sendResult(chatID, r)
}

// historyDelete asks for confirmation. Only rows on the current page can
// be deleted, matching the buttons that were rendered.
func (a *actions) historyDelete(chatID int64, conv *state.Conversation, id string) error {
	if !conv.History.IsVisible(id) {
		if err := menus.Send(a.api, chatID, "Esa predicción no está en la página actual.", nil); err != nil {
			return err
		}
		return menus.SendHistory(a.api, chatID, conv.History)
	}
	r, _ := conv.History.Find(id)
	conv.PendingDelete = id
	markup := keyboards.Confirm(keyboards.HistoryDeleteYes, keyboards.HistoryDeleteNo)
	return menus.Send(a.api, chatID,
		"¿Borrar la predicción del "+menus.HistoryLabel(r)+"? No se puede deshacer.", &markup)
}

// historyDeleteConfirm removes the row only after the backend confirmed
// the delete
func (a *actions) historyDeleteConfirm(ctx context.Context, chatID, userID int64, conv *state.Conversation, confirmed bool) error {
	id := conv.PendingDelete
	conv.PendingDelete = ""
	if id == "" || !confirmed {
		return menus.SendHistory(a.api, chatID, conv.History)
	}

	if err := a.deps.InsulinSvc.DeletePrediction(ctx, userID, id); err != nil {
		return a.replyError(chatID, err)
	}
	conv.History.Remove(id)
	a.log.Info("Prediction deleted", "user_id", userID, "prediction_id", id)
	if err := menus.Send(a.api, chatID, "🗑️ Predicción eliminada.", nil); err != nil {
		return err
	}
	return menus.SendHistory(a.api, chatID, conv.History)
}
