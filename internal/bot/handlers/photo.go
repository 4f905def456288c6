package handlers

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/TPP-insulA/insula-bot/internal/bot/keyboards"
	"github.com/TPP-insulA/insula-bot/internal/bot/menus"
	"github.com/TPP-insulA/insula-bot/internal/chart"
	"github.com/TPP-insulA/insula-bot/internal/domain"
	"github.com/TPP-insulA/insula-bot/internal/export"
	"github.com/TPP-insulA/insula-bot/internal/prediction"
)

// sendResult shows a prediction as its glucose chart with the details in
// the caption. Predictions without readings are sent as text.
func (a *actions) sendResult(chatID int64, r domain.InsulinPredictionResult) error {
	markup := keyboards.Result(prediction.HasPostData(r))
	text := menus.ResultText(r)

	png, err := chart.RenderTimeline(prediction.BuildTimeline(r), chart.Options{
		Title: "Glucemia alrededor de la dosis",
	})
	if err != nil {
		a.log.Debug("Sending result without chart", "prediction_id", r.ID, "error", err)
		return menus.Send(a.api, chatID, text, &markup)
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "prediccion.png", Bytes: png})
	photo.Caption = text
	photo.ReplyMarkup = markup
	_, err = a.api.Send(photo)
	return err
}

// sendExport sends the filtered, sorted history as a spreadsheet
func (a *actions) sendExport(chatID int64, v *prediction.HistoryView) error {
	items := v.Filtered()
	if len(items) == 0 {
		return menus.Send(a.api, chatID, "No hay predicciones para exportar.", nil)
	}

	loc := prediction.DisplayLocation()
	data, err := export.HistoryXLSX(items, loc)
	if err != nil {
		return err
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: export.FileName(a.now(), loc), Bytes: data})
	doc.Caption = "📊 Tu historial de predicciones"
	_, err = a.api.Send(doc)
	return err
}
