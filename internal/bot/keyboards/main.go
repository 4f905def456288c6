package keyboards

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/TPP-insulA/insula-bot/internal/domain"
	"github.com/TPP-insulA/insula-bot/internal/prediction"
)

// Callback data. Actions taking an argument are sent as "action:arg".
const (
	MainMenu = "main_menu"
	Back     = "back"
	Help     = "help"

	DoseNew    = "dose_new"
	DoseSeed   = "dose_seed"
	DoseNext   = "dose_next"
	DoseLevel  = "dose_lvl" // dose_lvl:<field>:<n>
	DoseSubmit = "dose_submit"
	DoseRetry  = "dose_retry"
	DoseReset  = "dose_reset"

	ResultOutcome = "res_outcome"

	OutcomeSeed     = "out_seed"
	OutcomeDose     = "out_dose"
	OutcomeSave     = "out_save"
	OutcomeClear    = "out_clear"
	OutcomeClearYes = "out_clear_yes"
	OutcomeClearNo  = "out_clear_no"

	History           = "hist"
	HistoryNext       = "hist_next"
	HistoryPrev       = "hist_prev"
	HistorySort       = "hist_sort" // hist_sort:<key>
	HistoryDirection  = "hist_dir"
	HistoryFilterDate = "hist_fdate"
	HistoryFilterCGM  = "hist_fcgm"
	HistoryFilterDose = "hist_fdose"
	HistoryFilterNone = "hist_fclear"
	HistoryOpen       = "hist_open" // hist_open:<id>
	HistoryDelete     = "hist_del"  // hist_del:<id>
	HistoryDeleteYes  = "hist_del_yes"
	HistoryDeleteNo   = "hist_del_no"
	HistoryExport     = "hist_export"

	GlucoseLog = "glucose_log"

	Chat    = "chat"
	ChatEnd = "chat_end"

	Noop = "noop"
)

// Data joins an action with its arguments
func Data(action string, args ...string) string {
	return strings.Join(append([]string{action}, args...), ":")
}

// Parse splits callback data into action and arguments
func Parse(data string) (string, []string) {
	parts := strings.Split(data, ":")
	return parts[0], parts[1:]
}

func menuRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🏠 Menú", MainMenu),
	)
}

// Main creates the main menu keyboard
func Main(signedIn bool) tgbotapi.InlineKeyboardMarkup {
	if !signedIn {
		return tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("❓ Ayuda", Help),
			),
		)
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💉 Calcular dosis", DoseNew),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Historial", History),
			tgbotapi.NewInlineKeyboardButtonData("🩸 Registrar glucosa", GlucoseLog),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💬 Asistente", Chat),
			tgbotapi.NewInlineKeyboardButtonData("❓ Ayuda", Help),
		),
	)
}

// Cancel offers a way back to the menu while waiting for text
func Cancel() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(menuRow())
}

// DoseGlucose is shown while collecting pre-dose readings
func DoseGlucose(canSeed, hasGlucose bool) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if canSeed {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📡 Cargar del sensor", DoseSeed),
		))
	}
	if hasGlucose {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➡️ Continuar", DoseNext),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔄 Reiniciar", DoseReset),
		tgbotapi.NewInlineKeyboardButtonData("🏠 Menú", MainMenu),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// LevelPicker offers 1 through 10 for a level field
func LevelPicker(field prediction.Field) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for start := 1; start <= 10; start += 5 {
		var row []tgbotapi.InlineKeyboardButton
		for n := start; n < start+5; n++ {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(
				strconv.Itoa(n), Data(DoseLevel, string(field), strconv.Itoa(n))))
		}
		rows = append(rows, row)
	}
	rows = append(rows, menuRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// DoseSummary offers the actions valid for the form status
func DoseSummary(status prediction.Status) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	switch status {
	case prediction.StatusSubmittable:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Calcular", DoseSubmit),
		))
	case prediction.StatusFailed:
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 Reintentar", DoseRetry),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔄 Reiniciar", DoseReset),
		tgbotapi.NewInlineKeyboardButtonData("🏠 Menú", MainMenu),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// Result is shown under a prediction
func Result(hasPost bool) tgbotapi.InlineKeyboardMarkup {
	label := "📝 Registrar resultado"
	if hasPost {
		label = "✏️ Editar resultado"
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, ResultOutcome),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️ Volver", Back),
			tgbotapi.NewInlineKeyboardButtonData("📋 Historial", History),
		),
		menuRow(),
	)
}

// Outcome is shown while editing post-dose data
func Outcome(canSeed, canSave, hasPost bool) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if canSeed {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📡 Cargar del sensor", OutcomeSeed),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("💉 Dosis aplicada", OutcomeDose),
	))
	if canSave {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💾 Guardar", OutcomeSave),
		))
	}
	if hasPost {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑️ Borrar resultado", OutcomeClear),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️ Volver", Back),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// Confirm asks for a yes/no answer
func Confirm(yes, no string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Sí, borrar", yes),
			tgbotapi.NewInlineKeyboardButtonData("No", no),
		),
	)
}

// HistoryPage lists one action row per visible prediction plus paging,
// sorting and filtering controls. Delete buttons exist only for rows on the
// current page.
func HistoryPage(v *prediction.HistoryView, rows []domain.InsulinPredictionResult, label func(domain.InsulinPredictionResult) string) tgbotapi.InlineKeyboardMarkup {
	var kb [][]tgbotapi.InlineKeyboardButton
	for _, r := range rows {
		kb = append(kb, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label(r), Data(HistoryOpen, r.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑️", Data(HistoryDelete, r.ID)),
		))
	}

	if pages := v.Pages(); pages > 1 {
		kb = append(kb, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️", HistoryPrev),
			tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(v.CurrentPage())+"/"+strconv.Itoa(pages), Noop),
			tgbotapi.NewInlineKeyboardButtonData("➡️", HistoryNext),
		))
	}

	arrow := "⬇️"
	if v.SortDir == prediction.SortAsc {
		arrow = "⬆️"
	}
	sortButton := func(key prediction.SortKey, text string) tgbotapi.InlineKeyboardButton {
		if v.SortKey == key {
			text = "• " + text
		}
		return tgbotapi.NewInlineKeyboardButtonData(text, Data(HistorySort, string(key)))
	}
	kb = append(kb, tgbotapi.NewInlineKeyboardRow(
		sortButton(prediction.SortByDate, "Fecha"),
		sortButton(prediction.SortByCGM, "Glucosa"),
		sortButton(prediction.SortByDose, "Dosis"),
		tgbotapi.NewInlineKeyboardButtonData(arrow, HistoryDirection),
	))

	filterRow := tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔎 Fecha", HistoryFilterDate),
		tgbotapi.NewInlineKeyboardButtonData("🔎 Glucosa", HistoryFilterCGM),
		tgbotapi.NewInlineKeyboardButtonData("🔎 Dosis", HistoryFilterDose),
	)
	if !v.Filters.Empty() {
		filterRow = append(filterRow, tgbotapi.NewInlineKeyboardButtonData("✖️", HistoryFilterNone))
	}
	kb = append(kb, filterRow)

	kb = append(kb, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📊 Exportar", HistoryExport),
		tgbotapi.NewInlineKeyboardButtonData("🏠 Menú", MainMenu),
	))
	return tgbotapi.NewInlineKeyboardMarkup(kb...)
}

// ChatControls ends the assistant conversation
func ChatControls() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✖️ Terminar chat", ChatEnd),
		),
	)
}
