package menus

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/TPP-insulA/insula-bot/internal/bot/keyboards"
	"github.com/TPP-insulA/insula-bot/internal/domain"
	"github.com/TPP-insulA/insula-bot/internal/prediction"
)

// Sender is the part of the Telegram API the bot uses. *tgbotapi.BotAPI
// satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// DateLayout is how prediction dates are shown
const DateLayout = "02/01 15:04"

// Send sends a plain text message with an optional inline keyboard
func Send(api Sender, chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	_, err := api.Send(msg)
	return err
}

// SendMainMenu sends the main menu to a chat
func SendMainMenu(api Sender, chatID int64, signedIn bool) error {
	text := `🩸 *insulA*, tu asistente para calcular dosis de insulina

• Calculá tu dosis a partir de tus glucemias y lo que vas a comer
• Registrá cómo te fue después de aplicarla
• Revisá y exportá tu historial

⚠️ *Importante:* las recomendaciones no reemplazan la indicación de tu médico.`

	if signedIn {
		text += "\n\nElegí una opción:"
	} else {
		text += "\n\nPara empezar, iniciá sesión con /login <token>."
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = keyboards.Main(signedIn)
	_, err := api.Send(msg)
	return err
}

// SendHelp lists the commands
func SendHelp(api Sender, chatID int64) error {
	text := `Comandos disponibles:
/start - Mostrar el menú principal
/login <token> - Vincular tu cuenta de insulA
/logout - Cerrar sesión
/dosis - Calcular una dosis
/historial - Ver tus predicciones
/glucosa - Registrar una glucemia
/chat - Hablar con el asistente
/cancel - Cancelar lo que estés haciendo

El token lo encontrás en la app de insulA, en Perfil.`

	return Send(api, chatID, text, nil)
}

// DosePrompt is the question asked for each field of the dose form
func DosePrompt(field prediction.Field) string {
	switch field {
	case prediction.FieldGlucose:
		return "Ingresá tus últimas glucemias en mg/dL, de la más reciente a la más antigua, separadas por espacios.\nEj: 130 125 118"
	case prediction.FieldCarbs:
		return "¿Cuántos gramos de carbohidratos vas a comer? Ej: 45 o 45,5"
	case prediction.FieldInsulinOnBoard:
		return "¿Cuántas unidades de insulina activa tenés? Ej: 0 o 1,5"
	case prediction.FieldGlucoseObjective:
		return fmt.Sprintf("¿Cuál es tu glucemia objetivo? Entre %d y %d mg/dL.",
			prediction.MinGlucoseObjective, prediction.MaxGlucoseObjective)
	case prediction.FieldSleepLevel:
		return "¿Qué tan bien dormiste? Elegí del 1 al 10."
	case prediction.FieldWorkLevel:
		return "¿Cuánta carga de trabajo tuviste hoy? Elegí del 1 al 10."
	case prediction.FieldActivityLevel:
		return "¿Cuánta actividad física hiciste? Elegí del 1 al 10."
	default:
		return ""
	}
}

// SendDoseGlucose shows the glucose entries collected so far
func SendDoseGlucose(api Sender, chatID int64, form *prediction.DoseForm) error {
	var b strings.Builder
	b.WriteString(DosePrompt(prediction.FieldGlucose))
	if entries := prediction.GlucoseValues(form.Glucose); len(entries) > 0 {
		fmt.Fprintf(&b, "\n\nCargadas: %s mg/dL", joinInts(entries))
	}
	if form.Seed == prediction.SeedNoData {
		b.WriteString("\n\nNo hay lecturas del sensor en las últimas horas, ingresalas a mano.")
	}
	markup := keyboards.DoseGlucose(form.CanLoadSeed(), prediction.HasGlucose(form.Glucose))
	return Send(api, chatID, b.String(), &markup)
}

// SendDoseField asks for a scalar field; levels get a picker
func SendDoseField(api Sender, chatID int64, field prediction.Field) error {
	var markup tgbotapi.InlineKeyboardMarkup
	switch field {
	case prediction.FieldSleepLevel, prediction.FieldWorkLevel, prediction.FieldActivityLevel:
		markup = keyboards.LevelPicker(field)
	default:
		markup = keyboards.Cancel()
	}
	return Send(api, chatID, DosePrompt(field), &markup)
}

// DoseSummaryText lists every input, marking the invalid ones
func DoseSummaryText(form *prediction.DoseForm) string {
	invalid := make(map[prediction.Field]bool)
	for _, f := range form.Invalid() {
		invalid[f] = true
	}
	line := func(b *strings.Builder, field prediction.Field, value, unit string) {
		mark := "✅"
		if invalid[field] {
			mark = "⚠️"
		}
		if value == "" {
			value = "—"
		} else if unit != "" {
			value += " " + unit
		}
		label := field.Label()
		fmt.Fprintf(b, "%s %s%s: %s\n", mark, strings.ToUpper(label[:1]), label[1:], value)
	}

	var b strings.Builder
	b.WriteString("📝 Resumen\n\n")
	line(&b, prediction.FieldGlucose, joinInts(prediction.GlucoseValues(form.Glucose)), "mg/dL")
	line(&b, prediction.FieldCarbs, form.Carbs, "g")
	line(&b, prediction.FieldInsulinOnBoard, form.InsulinOnBoard, "U")
	line(&b, prediction.FieldGlucoseObjective, form.GlucoseObjective, "mg/dL")
	line(&b, prediction.FieldSleepLevel, form.SleepLevel, "")
	line(&b, prediction.FieldWorkLevel, form.WorkLevel, "")
	line(&b, prediction.FieldActivityLevel, form.ActivityLevel, "")

	switch form.Status() {
	case prediction.StatusSubmittable:
		b.WriteString("\nTodo listo para calcular.")
	case prediction.StatusSubmitting:
		b.WriteString("\n⏳ Calculando…")
	case prediction.StatusFailed:
		b.WriteString("\n❌ " + form.Error)
	case prediction.StatusEditing:
		b.WriteString("\nFaltan datos: " + prediction.FieldLabels(form.Invalid()) + ".")
	}
	return b.String()
}

// SendDoseSummary shows the form with the actions its status allows
func SendDoseSummary(api Sender, chatID int64, form *prediction.DoseForm) error {
	markup := keyboards.DoseSummary(form.Status())
	return Send(api, chatID, DoseSummaryText(form), &markup)
}

// ResultText describes a prediction and its recorded outcome
func ResultText(r domain.InsulinPredictionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💉 Dosis recomendada: %s\n", prediction.FormatUnits(r.RecommendedDose))
	fmt.Fprintf(&b, "📅 %s\n\n", r.Date.In(prediction.DisplayLocation()).Format(DateLayout))
	if len(r.CGMPrev) > 0 {
		fmt.Fprintf(&b, "Glucemias previas: %s mg/dL\n", joinInts(prediction.Chronological(r.CGMPrev)))
	}
	fmt.Fprintf(&b, "Carbohidratos: %s g\n", formatFloat(r.Carbs))
	fmt.Fprintf(&b, "Insulina activa: %s U\n", formatFloat(r.InsulinOnBoard))
	fmt.Fprintf(&b, "Objetivo: %d mg/dL\n", r.GlucoseObjective)
	fmt.Fprintf(&b, "Sueño %d · Trabajo %d · Actividad %d\n", r.SleepLevel, r.WorkLevel, r.ActivityLevel)

	if !prediction.HasPostData(r) {
		b.WriteString("\nTodavía no registraste cómo te fue.")
		return b.String()
	}
	b.WriteString("\nResultado:\n")
	if r.ApplyDose != nil {
		fmt.Fprintf(&b, "Dosis aplicada: %s\n", prediction.FormatUnits(*r.ApplyDose))
	}
	if len(r.CGMPost) > 0 {
		fmt.Fprintf(&b, "Glucemias posteriores: %s mg/dL\n", joinInts(r.CGMPost))
	}
	return strings.TrimRight(b.String(), "\n")
}

// OutcomeText shows the outcome being edited
func OutcomeText(form *prediction.OutcomeForm) string {
	var b strings.Builder
	b.WriteString("📝 Resultado de la dosis\n\n")
	b.WriteString("Escribí las glucemias posteriores a la dosis, de la más antigua a la más reciente, separadas por espacios.\n\n")

	entries := prediction.GlucoseValues(form.Glucose)
	if len(entries) > 0 {
		fmt.Fprintf(&b, "Glucemias: %s mg/dL\n", joinInts(entries))
	} else {
		b.WriteString("Glucemias: —\n")
	}
	if form.ApplyDose != "" {
		fmt.Fprintf(&b, "Dosis aplicada: %s U\n", form.ApplyDose)
	} else {
		b.WriteString("Dosis aplicada: —\n")
	}
	if form.Seed == prediction.SeedNoData {
		b.WriteString("\nNo hay lecturas del sensor posteriores a la dosis.")
	}
	return strings.TrimRight(b.String(), "\n")
}

// SendOutcome shows the outcome form; hasPost enables clearing
func SendOutcome(api Sender, chatID int64, form *prediction.OutcomeForm, hasPost bool) error {
	markup := keyboards.Outcome(form.CanLoadSeed(), form.CanUpdatePost(), hasPost)
	return Send(api, chatID, OutcomeText(form), &markup)
}

// HistoryLabel is the button text of a history row
func HistoryLabel(r domain.InsulinPredictionResult) string {
	label := r.Date.In(prediction.DisplayLocation()).Format(DateLayout) + " · " + prediction.FormatUnits(r.RecommendedDose)
	if cgm, ok := r.FirstCGM(); ok {
		label += " · " + strconv.Itoa(cgm) + " mg/dL"
	}
	return label
}

// HistoryText summarizes the list state above the row buttons
func HistoryText(v *prediction.HistoryView) string {
	filtered := v.Filtered()
	if len(v.Items) == 0 {
		return "📋 Todavía no tenés predicciones."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 Historial: %d de %d predicciones", len(filtered), len(v.Items))
	if pages := v.Pages(); pages > 1 {
		fmt.Fprintf(&b, " · página %d/%d", v.CurrentPage(), pages)
	}
	b.WriteString("\n")

	if !v.Filters.Empty() {
		b.WriteString("\nFiltros:")
		if v.Filters.Date != "" {
			fmt.Fprintf(&b, " fecha %q", v.Filters.Date)
		}
		if v.Filters.CGM.Active() {
			fmt.Fprintf(&b, " glucosa %s%s", v.Filters.CGM.Op, v.Filters.CGM.Value)
		}
		if v.Filters.Dose.Active() {
			fmt.Fprintf(&b, " dosis %s%s", v.Filters.Dose.Op, v.Filters.Dose.Value)
		}
		b.WriteString("\n")
	}
	if len(filtered) == 0 {
		b.WriteString("\nNinguna predicción coincide con los filtros.")
	} else {
		b.WriteString("\nTocá una fila para verla o 🗑️ para borrarla.")
	}
	return b.String()
}

// SendHistory shows the current page of the history
func SendHistory(api Sender, chatID int64, v *prediction.HistoryView) error {
	markup := keyboards.HistoryPage(v, v.Visible(), HistoryLabel)
	return Send(api, chatID, HistoryText(v), &markup)
}

// SendChatIntro starts an assistant conversation
func SendChatIntro(api Sender, chatID int64) error {
	markup := keyboards.ChatControls()
	return Send(api, chatID,
		"💬 Preguntame lo que quieras sobre tus glucemias, tus dosis o tus comidas de las últimas 24 horas.",
		&markup)
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
