package prediction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TPP-insulA/insula-bot/internal/domain"
)

func ptr(f float64) *float64 { return &f }

func TestBuildTimeline(t *testing.T) {
	r := domain.InsulinPredictionResult{
		InsulinPredictionRequest: domain.InsulinPredictionRequest{CGMPrev: []int{140, 130, 120}},
	}
	tl := BuildTimeline(r)
	assert.Equal(t, []int{120, 130, 140}, tl.Values)
	assert.Equal(t, 2, tl.DoseIndex)

	r.CGMPost = []int{150, 160}
	tl = BuildTimeline(r)
	assert.Equal(t, []int{120, 130, 140, 150, 160}, tl.Values)
	assert.Equal(t, 2, tl.DoseIndex)

	assert.Equal(t, -1, BuildTimeline(domain.InsulinPredictionResult{}).DoseIndex)
}

func TestHasPostData(t *testing.T) {
	assert.False(t, HasPostData(domain.InsulinPredictionResult{}))
	assert.False(t, HasPostData(domain.InsulinPredictionResult{ApplyDose: ptr(0)}))
	assert.False(t, HasPostData(domain.InsulinPredictionResult{CGMPost: []int{}}))
	assert.True(t, HasPostData(domain.InsulinPredictionResult{ApplyDose: ptr(3)}))
	assert.True(t, HasPostData(domain.InsulinPredictionResult{CGMPost: []int{150}}))
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "4.2 unidades", FormatUnits(4.2))
	assert.Equal(t, "3 unidades", FormatUnits(3))
}

func TestNewOutcomeForm(t *testing.T) {
	empty := NewOutcomeForm(domain.InsulinPredictionResult{ID: "abc"})
	assert.Equal(t, "abc", empty.PredictionID)
	assert.Equal(t, []string{""}, empty.Glucose)
	assert.Empty(t, empty.ApplyDose)
	assert.False(t, empty.CanUpdatePost())

	filled := NewOutcomeForm(domain.InsulinPredictionResult{
		ID:        "abc",
		ApplyDose: ptr(3.5),
		CGMPost:   []int{150, 160},
	})
	assert.Equal(t, []string{"150", "160", ""}, filled.Glucose)
	assert.Equal(t, "3.5", filled.ApplyDose)
	assert.True(t, filled.CanUpdatePost())
}

func TestOutcomeForm_UpdateReplacesEverything(t *testing.T) {
	f := NewOutcomeForm(domain.InsulinPredictionResult{ID: "abc", ApplyDose: ptr(3), CGMPost: []int{150}})

	require.True(t, f.SetApplyDose(""))
	f.SetGlucoseEntries([]string{"170", "0", "165"})

	update, err := f.Update()
	require.NoError(t, err)
	assert.Nil(t, update.ApplyDose)
	assert.Equal(t, []int{170, 165}, update.CGMPost)
}

func TestOutcomeForm_UpdateRequiresData(t *testing.T) {
	f := NewOutcomeForm(domain.InsulinPredictionResult{ID: "abc"})
	_, err := f.Update()
	require.Error(t, err)

	assert.False(t, f.SetApplyDose("abc"))
	assert.False(t, f.CanUpdatePost())

	assert.True(t, f.SetApplyDose("2,5"))
	update, err := f.Update()
	require.NoError(t, err)
	require.NotNil(t, update.ApplyDose)
	assert.InDelta(t, 2.5, *update.ApplyDose, 1e-9)
	assert.Empty(t, update.CGMPost)
}

func TestOutcomeForm_LoadSeed(t *testing.T) {
	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	f := NewOutcomeForm(domain.InsulinPredictionResult{ID: "abc"})

	require.NoError(t, f.LoadSeed([]domain.GlucoseReading{
		{Value: 170, Timestamp: base.Add(20 * time.Minute)},
		{Value: 150, Timestamp: base.Add(5 * time.Minute)},
	}))
	assert.Equal(t, []string{"150", "170", ""}, f.Glucose)

	g := NewOutcomeForm(domain.InsulinPredictionResult{ID: "abc"})
	require.NoError(t, g.LoadSeed(nil))
	assert.False(t, g.CanLoadSeed())
}

func TestClearOutcome(t *testing.T) {
	c := ClearOutcome()
	assert.Nil(t, c.ApplyDose)
	assert.NotNil(t, c.CGMPost)
	assert.Empty(t, c.CGMPost)
}
