package domain

import (
	"time"
)

// GlucoseReading is a single glucose measurement stored by the backend
type GlucoseReading struct {
	ID        string    `json:"id"`
	Value     int       `json:"value"` // mg/dL
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
}

// NewGlucoseReading is the payload for a manually entered reading
type NewGlucoseReading struct {
	Value     int       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes,omitempty"`
}

// InsulinPredictionRequest is the input of a dose calculation.
// CGMPrev is ordered most-recent-first, as entered.
type InsulinPredictionRequest struct {
	Date             time.Time `json:"date"`
	CGMPrev          []int     `json:"cgmPrev"`
	GlucoseObjective int       `json:"glucoseObjective"`
	Carbs            float64   `json:"carbs"`
	InsulinOnBoard   float64   `json:"insulinOnBoard"`
	SleepLevel       int       `json:"sleepLevel"`
	WorkLevel        int       `json:"workLevel"`
	ActivityLevel    int       `json:"activityLevel"`
}

// InsulinPredictionResult is a persisted dose recommendation.
// CGMPost is ordered oldest-first.
type InsulinPredictionResult struct {
	ID string `json:"id"`
	InsulinPredictionRequest
	RecommendedDose float64  `json:"recommendedDose"`
	ApplyDose       *float64 `json:"applyDose"`
	CGMPost         []int    `json:"cgmPost"`
}

// FirstCGM returns the most recent pre-dose reading
func (r InsulinPredictionResult) FirstCGM() (int, bool) {
	if len(r.CGMPrev) == 0 {
		return 0, false
	}
	return r.CGMPrev[0], true
}

// OutcomeUpdate replaces the post-dose data of a prediction
type OutcomeUpdate struct {
	ApplyDose *float64 `json:"applyDose"`
	CGMPost   []int    `json:"cgmPost"`
}

// Meal is a logged meal, used as chat assistant context
type Meal struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Carbs       float64   `json:"carbs"`
	Protein     float64   `json:"protein,omitempty"`
	Fat         float64   `json:"fat,omitempty"`
	Calories    float64   `json:"calories,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ChatTurn is one exchange with the assistant
type ChatTurn struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"text"`
}

const (
	ChatRoleUser  = "user"
	ChatRoleModel = "model"
)
