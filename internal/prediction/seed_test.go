package prediction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TPP-insulA/insula-bot/internal/domain"
)

func TestWindows(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	start, end := PreDoseWindow(now)
	assert.Equal(t, time.Date(2024, 3, 15, 9, 45, 0, 0, time.UTC), start)
	assert.Equal(t, now, end)

	start, end = PostDoseWindow(now)
	assert.Equal(t, now, start)
	assert.Equal(t, time.Date(2024, 3, 15, 14, 15, 0, 0, time.UTC), end)
}

func TestSeedPostDose_OldestFirst(t *testing.T) {
	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	slots, ok := SeedPostDose([]domain.GlucoseReading{
		{Value: 180, Timestamp: base.Add(30 * time.Minute)},
		{Value: 1000, Timestamp: base.Add(40 * time.Minute)},
		{Value: 150, Timestamp: base.Add(10 * time.Minute)},
	})
	require.True(t, ok)
	assert.Equal(t, []string{"150", "180", ""}, slots)
}

func TestSeed_TruncatesToSlots(t *testing.T) {
	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	readings := make([]domain.GlucoseReading, 30)
	for i := range readings {
		readings[i] = domain.GlucoseReading{Value: 100 + i, Timestamp: base.Add(time.Duration(i) * 5 * time.Minute)}
	}

	slots, ok := SeedPreDose(readings)
	require.True(t, ok)
	assert.Len(t, slots, SeedSlots+1)
	assert.Equal(t, "129", slots[0])
	assert.Equal(t, "", slots[SeedSlots])
}

func TestSeed_NothingUsable(t *testing.T) {
	_, ok := SeedPreDose([]domain.GlucoseReading{{Value: 0}, {Value: -4}})
	assert.False(t, ok)
}
