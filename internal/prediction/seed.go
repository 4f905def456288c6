package prediction

import (
	"sort"
	"strconv"
	"time"

	"github.com/TPP-insulA/insula-bot/internal/domain"
)

// SeedState tracks CGM loading for a glucose input list
type SeedState string

const (
	SeedIdle   SeedState = ""
	SeedLoaded SeedState = "loaded"
	SeedNoData SeedState = "no_data"
)

const (
	// SeedWindow is how far around the dose readings are pulled from
	SeedWindow = 2*time.Hour + 15*time.Minute

	// SeedSlots is the number of readings kept; one more slot stays empty
	// for manual additions
	SeedSlots = MaxGlucoseSlots - 1
)

// PreDoseWindow is the window preceding now
func PreDoseWindow(now time.Time) (time.Time, time.Time) {
	return now.Add(-SeedWindow), now
}

// PostDoseWindow is the window following the prediction date
func PostDoseWindow(date time.Time) (time.Time, time.Time) {
	return date, date.Add(SeedWindow)
}

// SeedPreDose orders readings most-recent-first. ok is false when there
// is nothing to load.
func SeedPreDose(readings []domain.GlucoseReading) ([]string, bool) {
	return seed(readings, func(a, b time.Time) bool { return a.After(b) })
}

// SeedPostDose orders readings oldest-first. ok is false when there is
// nothing to load.
func SeedPostDose(readings []domain.GlucoseReading) ([]string, bool) {
	return seed(readings, func(a, b time.Time) bool { return a.Before(b) })
}

func seed(readings []domain.GlucoseReading, less func(a, b time.Time) bool) ([]string, bool) {
	usable := make([]domain.GlucoseReading, 0, len(readings))
	for _, r := range readings {
		if r.Value > 0 && r.Value <= 999 {
			usable = append(usable, r)
		}
	}
	if len(usable) == 0 {
		return nil, false
	}

	sort.SliceStable(usable, func(i, j int) bool {
		return less(usable[i].Timestamp, usable[j].Timestamp)
	})
	if len(usable) > SeedSlots {
		usable = usable[:SeedSlots]
	}

	slots := make([]string, 0, len(usable)+1)
	for _, r := range usable {
		slots = append(slots, strconv.Itoa(r.Value))
	}
	return append(slots, ""), true
}
