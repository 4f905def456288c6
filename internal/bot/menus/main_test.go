package menus

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/TPP-insulA/insula-bot/internal/domain"
	"github.com/TPP-insulA/insula-bot/internal/prediction"
)

func TestResultText(t *testing.T) {
	applied := 3.5
	r := domain.InsulinPredictionResult{
		ID: "p1",
		InsulinPredictionRequest: domain.InsulinPredictionRequest{
			// 15:00 UTC is 12:00 in Buenos Aires
			Date:             time.Date(2024, 3, 15, 15, 0, 0, 0, time.UTC),
			CGMPrev:          []int{130, 120, 110},
			GlucoseObjective: 100,
			Carbs:            45.5,
		},
		RecommendedDose: 4.2,
	}

	text := ResultText(r)
	assert.Contains(t, text, "4.2 unidades")
	assert.Contains(t, text, "15/03 12:00")
	assert.Contains(t, text, "110, 120, 130 mg/dL", "readings are shown oldest first")
	assert.Contains(t, text, "Todavía no registraste")

	r.ApplyDose = &applied
	r.CGMPost = []int{150, 140}
	text = ResultText(r)
	assert.Contains(t, text, "Dosis aplicada: 3.5 unidades")
	assert.Contains(t, text, "Glucemias posteriores: 150, 140 mg/dL")
}

func TestDoseSummaryText(t *testing.T) {
	form := prediction.NewDoseForm()
	form.SetGlucoseEntries([]string{"130"})
	form.Set(prediction.FieldCarbs, "45,5")

	text := DoseSummaryText(form)
	assert.Contains(t, text, "✅")
	assert.Contains(t, text, "Faltan datos:")
	assert.NotContains(t, text, "Todo listo")

	form.Set(prediction.FieldInsulinOnBoard, "0")
	form.Set(prediction.FieldGlucoseObjective, "110")
	form.Set(prediction.FieldSleepLevel, "7")
	form.Set(prediction.FieldWorkLevel, "5")
	form.Set(prediction.FieldActivityLevel, "3")
	assert.Contains(t, DoseSummaryText(form), "Todo listo para calcular.")
}

func TestHistoryText(t *testing.T) {
	assert.Equal(t, "📋 Todavía no tenés predicciones.", HistoryText(prediction.NewHistoryView(nil)))

	items := make([]domain.InsulinPredictionResult, 7)
	for i := range items {
		items[i] = domain.InsulinPredictionResult{
			ID:                       fmt.Sprintf("p%d", i),
			InsulinPredictionRequest: domain.InsulinPredictionRequest{CGMPrev: []int{100 + 10*i}},
		}
	}
	v := prediction.NewHistoryView(items)
	assert.Contains(t, HistoryText(v), "7 de 7 predicciones · página 1/2")

	f, ok := prediction.ParseNumericFilter(">150")
	assert.True(t, ok)
	v.SetFilters(prediction.Filters{CGM: f})
	text := HistoryText(v)
	assert.Contains(t, text, "1 de 7 predicciones")
	assert.NotContains(t, text, "página")
	assert.Contains(t, text, "glucosa >150")
}
