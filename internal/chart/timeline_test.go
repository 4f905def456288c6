package chart

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TPP-insulA/insula-bot/internal/prediction"
)

func TestRenderTimeline(t *testing.T) {
	data, err := RenderTimeline(prediction.Timeline{
		Values:    []int{120, 130, 140, 150, 160},
		DoseIndex: 2,
	}, Options{Title: "4.2 unidades"})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, width, img.Bounds().Dx())
	assert.Equal(t, height, img.Bounds().Dy())
}

func TestRenderTimeline_SinglePointAndNoDose(t *testing.T) {
	_, err := RenderTimeline(prediction.Timeline{Values: []int{110}, DoseIndex: 0}, Options{})
	require.NoError(t, err)

	_, err = RenderTimeline(prediction.Timeline{Values: []int{150, 160}, DoseIndex: -1}, Options{})
	require.NoError(t, err)
}

func TestRenderTimeline_Empty(t *testing.T) {
	_, err := RenderTimeline(prediction.Timeline{DoseIndex: -1}, Options{})
	assert.Error(t, err)
}

func TestBounds(t *testing.T) {
	lo, hi := bounds([]int{100, 120})
	assert.Equal(t, 50.0, lo)
	assert.Equal(t, 200.0, hi)

	lo, hi = bounds([]int{10, 400})
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 420.0, hi)
}
