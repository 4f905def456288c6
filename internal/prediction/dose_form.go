package prediction

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/TPP-insulA/insula-bot/internal/domain"
	apperrors "github.com/TPP-insulA/insula-bot/internal/errors"
)

// Status is the state of a dose calculation form
type Status string

const (
	StatusEditing     Status = "editing"
	StatusSubmittable Status = "submittable"
	StatusSubmitting  Status = "submitting"
	StatusSuccess     Status = "success"
	StatusFailed      Status = "failed"
)

// Field names a scalar input of the dose form
type Field string

const (
	FieldGlucose          Field = "glucose"
	FieldCarbs            Field = "carbs"
	FieldInsulinOnBoard   Field = "insulinOnBoard"
	FieldGlucoseObjective Field = "glucoseObjective"
	FieldSleepLevel       Field = "sleepLevel"
	FieldWorkLevel        Field = "workLevel"
	FieldActivityLevel    Field = "activityLevel"
)

// DoseForm collects the inputs of a dose calculation. Values are kept as
// typed so that validation matches what the user entered.
type DoseForm struct {
	Glucose          []string  `json:"glucose"`
	Carbs            string    `json:"carbs"`
	InsulinOnBoard   string    `json:"insulinOnBoard"`
	GlucoseObjective string    `json:"glucoseObjective"`
	SleepLevel       string    `json:"sleepLevel"`
	WorkLevel        string    `json:"workLevel"`
	ActivityLevel    string    `json:"activityLevel"`
	Seed             SeedState `json:"seed,omitempty"`

	// Phase is set once a submission starts; empty while editing
	Phase Status `json:"phase,omitempty"`
	Error string `json:"error,omitempty"`
}

// NewDoseForm returns an empty form with one glucose slot
func NewDoseForm() *DoseForm {
	return &DoseForm{Glucose: []string{""}}
}

// Reset clears every input and re-enables CGM loading
func (f *DoseForm) Reset() {
	*f = *NewDoseForm()
}

func (f *DoseForm) touch() {
	if f.Phase == StatusFailed || f.Phase == StatusSuccess {
		f.Phase = ""
		f.Error = ""
	}
}

// SetGlucose stores v in slot i. Inputs that are not 0-3 digits, or are
// worth zero, are refused and leave the slot unchanged.
func (f *DoseForm) SetGlucose(i int, v string) bool {
	if i < 0 || i >= len(f.Glucose) || !AcceptGlucoseInput(v) {
		return false
	}
	f.touch()
	f.Glucose[i] = v
	return true
}

// SetGlucoseEntries replaces all slots with entries, most recent first.
// Entries must already have passed AcceptGlucoseInput.
func (f *DoseForm) SetGlucoseEntries(entries []string) {
	f.touch()
	f.Glucose = withTrailingSlot(entries, MaxGlucoseSlots)
}

// AddGlucoseSlot appends an empty slot unless the form is full
func (f *DoseForm) AddGlucoseSlot() bool {
	if len(f.Glucose) >= MaxGlucoseSlots {
		return false
	}
	f.Glucose = append(f.Glucose, "")
	return true
}

// Set stores a scalar field and reports whether the value is valid for it.
// Invalid values are stored anyway; they keep the form out of Submittable.
func (f *DoseForm) Set(field Field, v string) bool {
	v = strings.TrimSpace(v)
	f.touch()
	switch field {
	case FieldCarbs:
		f.Carbs = v
	case FieldInsulinOnBoard:
		f.InsulinOnBoard = v
	case FieldGlucoseObjective:
		f.GlucoseObjective = v
	case FieldSleepLevel:
		f.SleepLevel = v
	case FieldWorkLevel:
		f.WorkLevel = v
	case FieldActivityLevel:
		f.ActivityLevel = v
	default:
		return false
	}
	return fieldValid(field, v)
}

func fieldValid(field Field, v string) bool {
	switch field {
	case FieldCarbs, FieldInsulinOnBoard:
		return ValidDecimal(v)
	case FieldGlucoseObjective:
		return ValidObjective(v)
	case FieldSleepLevel, FieldWorkLevel, FieldActivityLevel:
		return ValidLevel(v)
	default:
		return false
	}
}

// Invalid lists the fields that currently block submission, in form order
func (f *DoseForm) Invalid() []Field {
	var fields []Field
	if !HasGlucose(f.Glucose) {
		fields = append(fields, FieldGlucose)
	}
	checks := []struct {
		field Field
		value string
	}{
		{FieldCarbs, f.Carbs},
		{FieldInsulinOnBoard, f.InsulinOnBoard},
		{FieldGlucoseObjective, f.GlucoseObjective},
		{FieldSleepLevel, f.SleepLevel},
		{FieldWorkLevel, f.WorkLevel},
		{FieldActivityLevel, f.ActivityLevel},
	}
	for _, c := range checks {
		if !fieldValid(c.field, c.value) {
			fields = append(fields, c.field)
		}
	}
	return fields
}

// Status derives the current form state
func (f *DoseForm) Status() Status {
	if f.Phase != "" {
		return f.Phase
	}
	if len(f.Invalid()) == 0 {
		return StatusSubmittable
	}
	return StatusEditing
}

// Request builds the payload sent to the backend. Glucose entries keep
// their entered order; empty and zero entries are dropped.
func (f *DoseForm) Request(now time.Time) (domain.InsulinPredictionRequest, error) {
	if invalid := f.Invalid(); len(invalid) > 0 {
		return domain.InsulinPredictionRequest{}, apperrors.NewValidationError(
			fmt.Sprintf("Revisá los campos: %s", FieldLabels(invalid)))
	}

	carbs, _ := ParseDecimal(f.Carbs)
	iob, _ := ParseDecimal(f.InsulinOnBoard)
	objective, _ := strconv.Atoi(f.GlucoseObjective)
	sleep, _ := strconv.Atoi(f.SleepLevel)
	work, _ := strconv.Atoi(f.WorkLevel)
	activity, _ := strconv.Atoi(f.ActivityLevel)

	return domain.InsulinPredictionRequest{
		Date:             now.UTC(),
		CGMPrev:          GlucoseValues(f.Glucose),
		GlucoseObjective: objective,
		Carbs:            carbs,
		InsulinOnBoard:   iob,
		SleepLevel:       sleep,
		WorkLevel:        work,
		ActivityLevel:    activity,
	}, nil
}

// BeginSubmit moves a submittable form to Submitting and returns the
// request to send
func (f *DoseForm) BeginSubmit(now time.Time) (domain.InsulinPredictionRequest, error) {
	switch f.Status() {
	case StatusSubmitting:
		return domain.InsulinPredictionRequest{}, apperrors.NewValidationError("El cálculo ya está en curso.")
	case StatusEditing:
		return f.Request(now)
	}
	req, err := f.Request(now)
	if err != nil {
		return req, err
	}
	f.Phase = StatusSubmitting
	f.Error = ""
	return req, nil
}

// Succeed records a successful submission
func (f *DoseForm) Succeed() {
	f.Phase = StatusSuccess
	f.Error = ""
}

// Fail records a failed submission with the message shown to the user.
// Inputs are kept so the user can retry.
func (f *DoseForm) Fail(message string) {
	f.Phase = StatusFailed
	f.Error = message
}

// Retry returns a failed form to editing so it can be submitted again
func (f *DoseForm) Retry() {
	if f.Phase == StatusFailed {
		f.Phase = ""
		f.Error = ""
	}
}

// CanLoadSeed reports whether loading readings from the CGM is enabled
func (f *DoseForm) CanLoadSeed() bool {
	return f.Seed != SeedNoData
}

// LoadSeed fills the glucose slots from recent readings. With no readings
// the form enters the no-data state and loading stays disabled until Reset.
func (f *DoseForm) LoadSeed(readings []domain.GlucoseReading) error {
	if !f.CanLoadSeed() {
		return apperrors.NewValidationError("La carga desde el sensor está deshabilitada hasta reiniciar el formulario.")
	}
	slots, ok := SeedPreDose(readings)
	if !ok {
		f.Seed = SeedNoData
		return nil
	}
	f.touch()
	f.Glucose = slots
	f.Seed = SeedLoaded
	return nil
}

// withTrailingSlot keeps room for one more manual entry while the list is
// below limit
func withTrailingSlot(entries []string, limit int) []string {
	if len(entries) >= limit {
		return append([]string(nil), entries[:limit]...)
	}
	slots := make([]string, 0, len(entries)+1)
	slots = append(slots, entries...)
	return append(slots, "")
}

var fieldLabels = map[Field]string{
	FieldGlucose:          "glucemias",
	FieldCarbs:            "carbohidratos",
	FieldInsulinOnBoard:   "insulina activa",
	FieldGlucoseObjective: "objetivo",
	FieldSleepLevel:       "sueño",
	FieldWorkLevel:        "trabajo",
	FieldActivityLevel:    "actividad",
}

// Label is the Spanish name of the field as shown to the user
func (f Field) Label() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

// FieldLabels joins the labels of fields with commas
func FieldLabels(fields []Field) string {
	labels := make([]string, len(fields))
	for i, f := range fields {
		labels[i] = f.Label()
	}
	return strings.Join(labels, ", ")
}
