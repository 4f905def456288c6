// Package prediction holds the client-side rules of the dose calculation
// flow: form validation, CGM seeding, result rendering data, outcome
// recording and the history filter/sort/paginate pipeline.
package prediction

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	MinGlucoseObjective = 80
	MaxGlucoseObjective = 180

	// MaxGlucoseSlots bounds both the pre-dose and post-dose input lists
	MaxGlucoseSlots = 24
)

var (
	glucosePattern   = regexp.MustCompile(`^\d{0,3}$`)
	decimalPattern   = regexp.MustCompile(`^\d+([.,]\d{0,2})?$`)
	objectivePattern = regexp.MustCompile(`^\d{1,3}$`)
	levelPattern     = regexp.MustCompile(`^([1-9]|10)$`)
)

// AcceptGlucoseInput reports whether s may be stored in a glucose slot.
// Only 0-3 digit strings are accepted, and any input worth exactly zero
// ("0", "00", "000") is refused.
func AcceptGlucoseInput(s string) bool {
	if !glucosePattern.MatchString(s) {
		return false
	}
	if s == "" {
		return true
	}
	v, _ := strconv.Atoi(s)
	return v != 0
}

// GlucoseValues drops empty and zero entries and converts the rest,
// keeping the entered order
func GlucoseValues(entries []string) []int {
	values := make([]int, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" || !glucosePattern.MatchString(e) {
			continue
		}
		v, err := strconv.Atoi(e)
		if err != nil || v == 0 {
			continue
		}
		values = append(values, v)
	}
	return values
}

// HasGlucose reports whether at least one entry counts as a reading
func HasGlucose(entries []string) bool {
	return len(GlucoseValues(entries)) > 0
}

// ValidDecimal matches digits optionally followed by '.' or ',' and up to
// two decimals
func ValidDecimal(s string) bool {
	return decimalPattern.MatchString(s)
}

// ParseDecimal normalizes a comma to a decimal point and parses s
func ParseDecimal(s string) (float64, bool) {
	if !ValidDecimal(s) {
		return 0, false
	}
	s = strings.TrimSuffix(strings.Replace(s, ",", ".", 1), ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ValidObjective accepts 1-3 digit integers within the target range,
// bounds inclusive
func ValidObjective(s string) bool {
	if !objectivePattern.MatchString(s) {
		return false
	}
	v, _ := strconv.Atoi(s)
	return v >= MinGlucoseObjective && v <= MaxGlucoseObjective
}

// ValidLevel accepts the integers 1 through 10
func ValidLevel(s string) bool {
	return levelPattern.MatchString(s)
}

// SplitEntries breaks free text into glucose entries on spaces, commas and
// semicolons, returning the accepted entries and the rejected ones
func SplitEntries(text string) (accepted, rejected []string) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == ',' || r == ';' || r == '\n' || r == '\t'
	})
	for _, f := range fields {
		if f != "" && AcceptGlucoseInput(f) {
			accepted = append(accepted, f)
		} else {
			rejected = append(rejected, f)
		}
	}
	return accepted, rejected
}
