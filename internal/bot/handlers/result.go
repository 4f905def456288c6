package handlers

import (
	"context"
	"strings"

	"github.com/TPP-insulA/insula-bot/internal/bot/keyboards"
	"github.com/TPP-insulA/insula-bot/internal/bot/menus"
	"github.com/TPP-insulA/insula-bot/internal/bot/state"
	"github.com/TPP-insulA/insula-bot/internal/domain"
	"github.com/TPP-insulA/insula-bot/internal/navigation"
	"github.com/TPP-insulA/insula-bot/internal/prediction"
)

const staleText = "Esa opción ya no está disponible."

// currentResult is the prediction on screen, if any
func currentResult(conv *state.Conversation) (domain.InsulinPredictionResult, bool) {
	entry := conv.Routes.Current()
	if entry.Route != navigation.PredictionResult {
		return domain.InsulinPredictionResult{}, false
	}
	r, err := navigation.Decode[domain.InsulinPredictionResult](entry)
	return r, err == nil
}

func (a *actions) stale(ctx context.Context, chatID, userID int64, conv *state.Conversation) error {
	if err := menus.Send(a.api, chatID, staleText, nil); err != nil {
		return err
	}
	return a.mainMenu(ctx, chatID, userID, conv)
}

func (a *actions) editOutcome(ctx context.Context, chatID, userID int64, conv *state.Conversation) error {
	r, ok := currentResult(conv)
	if !ok {
		return a.stale(ctx, chatID, userID, conv)
	}
	conv.Outcome = prediction.NewOutcomeForm(r)
	conv.Step = state.WaitingForOutcomeGlucose
	return menus.SendOutcome(a.api, chatID, conv.Outcome, prediction.HasPostData(r))
}

func (a *actions) sendOutcome(chatID int64, conv *state.Conversation) error {
	r, _ := currentResult(conv)
	return menus.SendOutcome(a.api, chatID, conv.Outcome, prediction.HasPostData(r))
}

func (a *actions) outcomeGlucoseText(chatID int64, conv *state.Conversation, text string) error {
	accepted, rejected := prediction.SplitEntries(text)
	if len(accepted) == 0 {
		return menus.Send(a.api, chatID,
			"No reconocí ninguna glucemia. Usá números de hasta 3 dígitos mayores a 0.", nil)
	}
	conv.Outcome.SetGlucoseEntries(accepted)
	if len(rejected) > 0 {
		if err := menus.Send(a.api, chatID, "Ignoré: "+strings.Join(rejected, ", "), nil); err != nil {
			return err
		}
	}
	return a.sendOutcome(chatID, conv)
}

func (a *actions) outcomeDosePrompt(chatID int64, conv *state.Conversation) error {
	conv.Step = state.WaitingForOutcomeDose
	return menus.Send(a.api, chatID,
		"¿Cuántas unidades aplicaste? Ej: 4 o 4,5. Enviá - para dejarla vacía.", nil)
}

func (a *actions) outcomeDoseText(chatID int64, conv *state.Conversation, text string) error {
	text = strings.TrimSpace(text)
	if text == "-" {
		text = ""
	}
	if !conv.Outcome.SetApplyDose(text) {
		return menus.Send(a.api, chatID, "Ese valor no es válido. Ej: 4 o 4,5", nil)
	}
	conv.Step = state.WaitingForOutcomeGlucose
	return a.sendOutcome(chatID, conv)
}

func (a *actions) outcomeSeed(ctx context.Context, chatID, userID int64, conv *state.Conversation) error {
	r, ok := currentResult(conv)
	if !ok {
		return a.stale(ctx, chatID, userID, conv)
	}
	if err := a.deps.InsulinSvc.SeedOutcomeForm(ctx, userID, r.Date, conv.Outcome); err != nil {
		return a.replyError(chatID, err)
	}
	return a.sendOutcome(chatID, conv)
}

func (a *actions) outcomeSave(ctx context.Context, chatID, userID int64, conv *state.Conversation) error {
	r, ok := currentResult(conv)
	if !ok || r.ID != conv.Outcome.PredictionID {
		return a.stale(ctx, chatID, userID, conv)
	}
	updated, err := a.deps.InsulinSvc.SaveOutcome(ctx, userID, conv.Outcome)
	if err != nil {
		return a.replyError(chatID, err)
	}

	r, err = a.applyOutcome(conv, r, updated)
	if err != nil {
		return err
	}
	conv.Outcome = nil
	conv.Step = state.None
	return a.sendResult(chatID, r)
}

// applyOutcome copies the stored outcome into the result on screen and
// into the loaded history
func (a *actions) applyOutcome(conv *state.Conversation, r domain.InsulinPredictionResult, updated *domain.InsulinPredictionResult) (domain.InsulinPredictionResult, error) {
	r.ApplyDose = updated.ApplyDose
	r.CGMPost = updated.CGMPost
	if err := conv.Routes.Replace(navigation.PredictionResult, r); err != nil {
		return r, err
	}
	if conv.History != nil {
		conv.History.Replace(r)
	}
	return r, nil
}

func (a *actions) outcomeClear(ctx context.Context, chatID, userID int64, conv *state.Conversation) error {
	r, ok := currentResult(conv)
	if !ok {
		return a.stale(ctx, chatID, userID, conv)
	}
	if !prediction.HasPostData(r) {
		return a.sendResult(chatID, r)
	}
	conv.PendingClear = r.ID
	markup := keyboards.Confirm(keyboards.OutcomeClearYes, keyboards.OutcomeClearNo)
	return menus.Send(a.api, chatID,
		"¿Borrar el resultado registrado? La predicción se mantiene.", &markup)
}

func (a *actions) outcomeClearConfirm(ctx context.Context, chatID, userID int64, conv *state.Conversation, confirmed bool) error {
	id := conv.PendingClear
	conv.PendingClear = ""
	r, ok := currentResult(conv)
	if id == "" || !ok || r.ID != id {
		return a.stale(ctx, chatID, userID, conv)
	}
	if !confirmed {
		if conv.Outcome != nil {
			return a.sendOutcome(chatID, conv)
		}
		return a.sendResult(chatID, r)
	}

	updated, err := a.deps.InsulinSvc.ClearOutcome(ctx, userID, id)
	if err != nil {
		return a.replyError(chatID, err)
	}
	r, err = a.applyOutcome(conv, r, updated)
	if err != nil {
		return err
	}
	conv.Outcome = nil
	conv.Step = state.None
	if err := menus.Send(a.api, chatID, "🗑️ Resultado borrado.", nil); err != nil {
		return err
	}
	return a.sendResult(chatID, r)
}

// back leaves the outcome editor, or pops one screen
func (a *actions) back(ctx context.Context, chatID, userID int64, conv *state.Conversation) error {
	conv.Step = state.None
	conv.PendingClear = ""
	conv.PendingDelete = ""

	if conv.Outcome != nil {
		conv.Outcome = nil
		if r, ok := currentResult(conv); ok {
			return a.sendResult(chatID, r)
		}
	}

	entry := conv.Routes.Pop()
	switch entry.Route {
	case navigation.PredictionResult:
		r, err := navigation.Decode[domain.InsulinPredictionResult](entry)
		if err != nil {
			return a.mainMenu(ctx, chatID, userID, conv)
		}
		return a.sendResult(chatID, r)
	case navigation.History:
		if conv.History == nil {
			return a.openHistory(ctx, chatID, userID, conv)
		}
		return menus.SendHistory(a.api, chatID, conv.History)
	case navigation.DoseForm:
		if conv.Dose == nil {
			return a.mainMenu(ctx, chatID, userID, conv)
		}
		return menus.SendDoseSummary(a.api, chatID, conv.Dose)
	default:
		return a.mainMenu(ctx, chatID, userID, conv)
	}
}
