// Package export writes prediction history to spreadsheet files
package export

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/TPP-insulA/insula-bot/internal/domain"
)

// SheetName is the single sheet of the exported workbook
const SheetName = "Historial"

// HistoryHeader is the column order of the export
var HistoryHeader = []string{
	"Fecha",
	"Glucosa actual",
	"Glucosas previas",
	"Objetivo",
	"Carbohidratos",
	"Insulina activa",
	"Sueño",
	"Trabajo",
	"Actividad",
	"Dosis recomendada",
	"Dosis aplicada",
	"Glucosas posteriores",
}

var columnWidths = []float64{18, 14, 30, 10, 14, 14, 8, 8, 10, 18, 14, 30}

// HistoryXLSX renders predictions, in the given order, with dates shown in
// loc
func HistoryXLSX(items []domain.InsulinPredictionResult, loc *time.Location) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range HistoryHeader {
		if err := setCell(f, col+1, 1, header); err != nil {
			f.Close()
			return nil, err
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(SheetName, name, name, columnWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(HistoryHeader), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	for i, r := range items {
		row := i + 2
		for col, value := range rowValues(r, loc) {
			if value == nil {
				continue
			}
			if err := setCell(f, col+1, row, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("row %d: %w", row, err)
			}
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func rowValues(r domain.InsulinPredictionResult, loc *time.Location) []any {
	values := []any{
		r.Date.In(loc).Format("02/01/2006 15:04"),
		nil,
		joinInts(r.CGMPrev),
		r.GlucoseObjective,
		r.Carbs,
		r.InsulinOnBoard,
		r.SleepLevel,
		r.WorkLevel,
		r.ActivityLevel,
		r.RecommendedDose,
		nil,
		joinInts(r.CGMPost),
	}
	if v, ok := r.FirstCGM(); ok {
		values[1] = v
	}
	if r.ApplyDose != nil {
		values[10] = *r.ApplyDose
	}
	return values
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}

func setCell(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellValue(SheetName, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	return nil
}

// FileName names an export generated at now
func FileName(now time.Time, loc *time.Location) string {
	return "historial-" + now.In(loc).Format("20060102-1504") + ".xlsx"
}
