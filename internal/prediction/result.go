package prediction

import (
	"strconv"
	"strings"

	"github.com/TPP-insulA/insula-bot/internal/domain"
	apperrors "github.com/TPP-insulA/insula-bot/internal/errors"
)

// Timeline is the combined pre/post glucose series of a prediction
type Timeline struct {
	Values []int
	// DoseIndex marks the moment the dose was applied; -1 without
	// pre-dose readings
	DoseIndex int
}

// Chronological returns cgmPrev reversed to oldest-first
func Chronological(cgmPrev []int) []int {
	out := make([]int, len(cgmPrev))
	for i, v := range cgmPrev {
		out[len(cgmPrev)-1-i] = v
	}
	return out
}

// BuildTimeline concatenates the chronological pre-dose readings with the
// post-dose readings, which are already chronological
func BuildTimeline(r domain.InsulinPredictionResult) Timeline {
	prev := Chronological(r.CGMPrev)
	values := make([]int, 0, len(prev)+len(r.CGMPost))
	values = append(values, prev...)
	values = append(values, r.CGMPost...)
	return Timeline{Values: values, DoseIndex: len(prev) - 1}
}

// HasPostData reports whether any outcome was recorded
func HasPostData(r domain.InsulinPredictionResult) bool {
	return len(r.CGMPost) > 0 || (r.ApplyDose != nil && *r.ApplyDose != 0)
}

// FormatUnits renders an insulin amount the way the result view shows it
func FormatUnits(dose float64) string {
	return strconv.FormatFloat(dose, 'f', -1, 64) + " unidades"
}

// OutcomeForm edits the post-dose data of one prediction
type OutcomeForm struct {
	PredictionID string    `json:"predictionId"`
	Glucose      []string  `json:"glucose"`
	ApplyDose    string    `json:"applyDose"`
	Seed         SeedState `json:"seed,omitempty"`
}

// NewOutcomeForm pre-populates from existing outcome data, or starts with
// one blank slot
func NewOutcomeForm(r domain.InsulinPredictionResult) *OutcomeForm {
	f := &OutcomeForm{PredictionID: r.ID, Glucose: []string{""}}
	if !HasPostData(r) {
		return f
	}
	entries := make([]string, 0, len(r.CGMPost))
	for _, v := range r.CGMPost {
		entries = append(entries, strconv.Itoa(v))
	}
	f.Glucose = withTrailingSlot(entries, MaxGlucoseSlots)
	if r.ApplyDose != nil {
		f.ApplyDose = strconv.FormatFloat(*r.ApplyDose, 'f', -1, 64)
	}
	return f
}

// SetGlucose stores v in slot i under the same rules as the dose form
func (f *OutcomeForm) SetGlucose(i int, v string) bool {
	if i < 0 || i >= len(f.Glucose) || !AcceptGlucoseInput(v) {
		return false
	}
	f.Glucose[i] = v
	return true
}

// SetGlucoseEntries replaces all slots, oldest first
func (f *OutcomeForm) SetGlucoseEntries(entries []string) {
	f.Glucose = withTrailingSlot(entries, MaxGlucoseSlots)
}

// AddGlucoseSlot appends an empty slot unless the form is full
func (f *OutcomeForm) AddGlucoseSlot() bool {
	if len(f.Glucose) >= MaxGlucoseSlots {
		return false
	}
	f.Glucose = append(f.Glucose, "")
	return true
}

// SetApplyDose stores the administered dose and reports whether it parses.
// An empty value clears it.
func (f *OutcomeForm) SetApplyDose(v string) bool {
	v = strings.TrimSpace(v)
	f.ApplyDose = v
	if v == "" {
		return true
	}
	_, ok := ParseDecimal(v)
	return ok
}

// CanUpdatePost requires a reading or a parseable applied dose
func (f *OutcomeForm) CanUpdatePost() bool {
	if HasGlucose(f.Glucose) {
		return true
	}
	_, ok := ParseDecimal(f.ApplyDose)
	return ok
}

// Update builds the full replacement sent to the backend. Whatever was
// stored before is overwritten by the current inputs.
func (f *OutcomeForm) Update() (domain.OutcomeUpdate, error) {
	if !f.CanUpdatePost() {
		return domain.OutcomeUpdate{}, apperrors.NewValidationError("Ingresá al menos una glucemia o la dosis aplicada.")
	}
	update := domain.OutcomeUpdate{CGMPost: GlucoseValues(f.Glucose)}
	if dose, ok := ParseDecimal(f.ApplyDose); ok {
		update.ApplyDose = &dose
	}
	return update, nil
}

// CanLoadSeed reports whether loading readings from the CGM is enabled
func (f *OutcomeForm) CanLoadSeed() bool {
	return f.Seed != SeedNoData
}

// LoadSeed fills the slots from readings taken after the dose
func (f *OutcomeForm) LoadSeed(readings []domain.GlucoseReading) error {
	if !f.CanLoadSeed() {
		return apperrors.NewValidationError("La carga desde el sensor está deshabilitada hasta reiniciar el formulario.")
	}
	slots, ok := SeedPostDose(readings)
	if !ok {
		f.Seed = SeedNoData
		return nil
	}
	f.Glucose = slots
	f.Seed = SeedLoaded
	return nil
}

// ClearOutcome is the update that removes all post-dose data while keeping
// the prediction itself
func ClearOutcome() domain.OutcomeUpdate {
	return domain.OutcomeUpdate{ApplyDose: nil, CGMPost: []int{}}
}
