// Package chart renders the glucose timeline of a prediction as a PNG
package chart

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"strconv"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/TPP-insulA/insula-bot/internal/prediction"
)

const (
	width   = 800
	height  = 420
	marginL = 60
	marginR = 24
	marginT = 40
	marginB = 48

	// target range band, mg/dL
	rangeLow  = 70
	rangeHigh = 180
)

var (
	colorBackground = color.RGBA{255, 255, 255, 255}
	colorGrid       = color.RGBA{225, 228, 232, 255}
	colorBand       = color.RGBA{220, 245, 228, 255}
	colorPre        = color.RGBA{52, 120, 246, 255}
	colorPost       = color.RGBA{255, 149, 0, 255}
	colorDose       = color.RGBA{220, 38, 38, 255}
	colorText       = color.RGBA{60, 64, 67, 255}
)

// Options tweaks the rendered image
type Options struct {
	Title string
}

// RenderTimeline draws the pre-dose readings, the dose marker and the
// post-dose readings. An empty timeline is an error.
func RenderTimeline(tl prediction.Timeline, opts Options) ([]byte, error) {
	if len(tl.Values) == 0 {
		return nil, fmt.Errorf("timeline has no values")
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(colorBackground)
	dc.Clear()

	if err := loadFont(dc, 13); err != nil {
		return nil, err
	}

	lo, hi := bounds(tl.Values)
	plotW := float64(width - marginL - marginR)
	plotH := float64(height - marginT - marginB)

	x := func(i int) float64 {
		if len(tl.Values) == 1 {
			return marginL + plotW/2
		}
		return marginL + plotW*float64(i)/float64(len(tl.Values)-1)
	}
	y := func(v float64) float64 {
		return marginT + plotH*(1-(v-lo)/(hi-lo))
	}

	// target band, clipped to the visible range
	bandTop, bandBottom := clamp(rangeHigh, lo, hi), clamp(rangeLow, lo, hi)
	if bandTop > bandBottom {
		dc.SetColor(colorBand)
		dc.DrawRectangle(marginL, y(bandTop), plotW, y(bandBottom)-y(bandTop))
		dc.Fill()
	}

	// horizontal grid with labels
	dc.SetLineWidth(1)
	for _, v := range gridLines(lo, hi) {
		dc.SetColor(colorGrid)
		dc.DrawLine(marginL, y(v), marginL+plotW, y(v))
		dc.Stroke()
		dc.SetColor(colorText)
		dc.DrawStringAnchored(strconv.Itoa(int(v)), marginL-8, y(v), 1, 0.5)
	}

	dc.SetLineWidth(3)
	drawSeries(dc, tl.Values, 0, tl.DoseIndex, x, y, colorPre)
	start := tl.DoseIndex
	if start < 0 {
		start = 0
	}
	drawSeries(dc, tl.Values, start, len(tl.Values)-1, x, y, colorPost)

	for i, v := range tl.Values {
		c := colorPre
		if i > tl.DoseIndex {
			c = colorPost
		}
		dc.SetColor(c)
		dc.DrawCircle(x(i), y(float64(v)), 3.5)
		dc.Fill()
	}

	if tl.DoseIndex >= 0 && tl.DoseIndex < len(tl.Values) {
		dx, dy := x(tl.DoseIndex), y(float64(tl.Values[tl.DoseIndex]))
		dc.SetColor(colorDose)
		dc.SetDash(6, 4)
		dc.SetLineWidth(1.5)
		dc.DrawLine(dx, marginT, dx, marginT+plotH)
		dc.Stroke()
		dc.SetDash()
		dc.DrawCircle(dx, dy, 7)
		dc.Fill()
		dc.DrawStringAnchored("dosis", dx, marginT+plotH+18, 0.5, 0.5)
	}

	if opts.Title != "" {
		dc.SetColor(colorText)
		dc.DrawStringAnchored(opts.Title, width/2, marginT/2, 0.5, 0.5)
	}
	dc.SetColor(colorText)
	dc.DrawStringAnchored("mg/dL", 8, marginT/2, 0, 0.5)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("failed to encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

func loadFont(dc *gg.Context, size float64) error {
	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return fmt.Errorf("failed to parse font: %w", err)
	}
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: size}))
	return nil
}

func drawSeries(dc *gg.Context, values []int, from, to int, x func(int) float64, y func(float64) float64, c color.Color) {
	if from < 0 || to >= len(values) || to <= from {
		return
	}
	dc.SetColor(c)
	dc.MoveTo(x(from), y(float64(values[from])))
	for i := from + 1; i <= to; i++ {
		dc.LineTo(x(i), y(float64(values[i])))
	}
	dc.Stroke()
}

// bounds pads the value range and always includes the target band
func bounds(values []int) (float64, float64) {
	lo, hi := float64(rangeLow), float64(rangeHigh)
	for _, v := range values {
		if f := float64(v); f < lo {
			lo = f
		} else if f > hi {
			hi = f
		}
	}
	lo -= 20
	if lo < 0 {
		lo = 0
	}
	return lo, hi + 20
}

func gridLines(lo, hi float64) []float64 {
	step := 50.0
	if hi-lo > 400 {
		step = 100
	}
	var out []float64
	for v := step * float64(int(lo/step)+1); v < hi; v += step {
		out = append(out, v)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
