package handlers

import (
	"context"
	"strings"

	"github.com/TPP-insulA/insula-bot/internal/bot/menus"
	"github.com/TPP-insulA/insula-bot/internal/bot/state"
	"github.com/TPP-insulA/insula-bot/internal/navigation"
	"github.com/TPP-insulA/insula-bot/internal/prediction"
)

// doseSteps is the order in which the dose form is filled
var doseSteps = []struct {
	step  state.Step
	field prediction.Field
}{
	{state.WaitingForGlucose, prediction.FieldGlucose},
	{state.WaitingForCarbs, prediction.FieldCarbs},
	{state.WaitingForInsulinOnBoard, prediction.FieldInsulinOnBoard},
	{state.WaitingForObjective, prediction.FieldGlucoseObjective},
	{state.WaitingForSleepLevel, prediction.FieldSleepLevel},
	{state.WaitingForWorkLevel, prediction.FieldWorkLevel},
	{state.WaitingForActivityLevel, prediction.FieldActivityLevel},
}

func doseField(step state.Step) (prediction.Field, bool) {
	for _, s := range doseSteps {
		if s.step == step {
			return s.field, true
		}
	}
	return "", false
}

func (a *actions) startDose(ctx context.Context, chatID, userID int64, conv *state.Conversation) error {
	if ok, err := a.requireSession(ctx, chatID, userID); !ok {
		return err
	}
	*conv = *state.NewConversation()
	conv.Dose = prediction.NewDoseForm()
	if err := conv.Routes.Push(navigation.DoseForm, nil); err != nil {
		return err
	}
	conv.Step = state.WaitingForGlucose
	return menus.SendDoseGlucose(a.api, chatID, conv.Dose)
}

func (a *actions) doseGlucoseText(chatID int64, conv *state.Conversation, text string) error {
	accepted, rejected := prediction.SplitEntries(text)
	if len(accepted) == 0 {
		return menus.Send(a.api, chatID,
			"No reconocí ninguna glucemia. Usá números de hasta 3 dígitos mayores a 0.", cancelMarkup())
	}
	conv.Dose.SetGlucoseEntries(accepted)
	if len(rejected) > 0 {
		if err := menus.Send(a.api, chatID, "Ignoré: "+strings.Join(rejected, ", "), nil); err != nil {
			return err
		}
	}
	return menus.SendDoseGlucose(a.api, chatID, conv.Dose)
}

func (a *actions) doseSeed(ctx context.Context, chatID, userID int64, conv *state.Conversation) error {
	if err := a.deps.InsulinSvc.SeedDoseForm(ctx, userID, conv.Dose); err != nil {
		return a.replyError(chatID, err)
	}
	conv.Step = state.WaitingForGlucose
	return menus.SendDoseGlucose(a.api, chatID, conv.Dose)
}

func (a *actions) doseNext(chatID int64, conv *state.Conversation) error {
	if !prediction.HasGlucose(conv.Dose.Glucose) {
		return menus.SendDoseGlucose(a.api, chatID, conv.Dose)
	}
	return a.advanceDose(chatID, conv, prediction.FieldGlucose)
}

// doseValue stores a scalar answer and moves on when it is valid
func (a *actions) doseValue(chatID int64, conv *state.Conversation, field prediction.Field, value string) error {
	if !conv.Dose.Set(field, value) {
		if err := menus.Send(a.api, chatID, "Ese valor no es válido.", nil); err != nil {
			return err
		}
		return menus.SendDoseField(a.api, chatID, field)
	}
	return a.advanceDose(chatID, conv, field)
}

// advanceDose asks for the field after current, or shows the summary
// once every field was answered
func (a *actions) advanceDose(chatID int64, conv *state.Conversation, current prediction.Field) error {
	for i, s := range doseSteps {
		if s.field != current || i+1 >= len(doseSteps) {
			continue
		}
		next := doseSteps[i+1]
		conv.Step = next.step
		return menus.SendDoseField(a.api, chatID, next.field)
	}
	conv.Step = state.None
	return menus.SendDoseSummary(a.api, chatID, conv.Dose)
}

func (a *actions) doseSubmit(ctx context.Context, chatID, userID int64, conv *state.Conversation) error {
	result, err := a.deps.InsulinSvc.SubmitDose(ctx, userID, conv.Dose)
	if err != nil {
		a.log.Warn("Dose calculation failed", append([]any{"user_id", userID}, logFields(err)...)...)
		return menus.SendDoseSummary(a.api, chatID, conv.Dose)
	}

	conv.Dose = nil
	conv.Step = state.None
	if err := conv.Routes.Replace(navigation.PredictionResult, result); err != nil {
		return err
	}
	return a.sendResult(chatID, *result)
}

func (a *actions) doseRetry(ctx context.Context, chatID, userID int64, conv *state.Conversation) error {
	conv.Dose.Retry()
	return a.doseSubmit(ctx, chatID, userID, conv)
}

func (a *actions) doseReset(chatID int64, conv *state.Conversation) error {
	conv.Dose.Reset()
	conv.Step = state.WaitingForGlucose
	return menus.SendDoseGlucose(a.api, chatID, conv.Dose)
}
