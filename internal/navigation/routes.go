// Package navigation is the typed routing table of the bot. Each route
// declares the payload it carries; pushing a route with a payload of the
// wrong type fails instead of reaching a screen with missing data.
package navigation

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/TPP-insulA/insula-bot/internal/domain"
	apperrors "github.com/TPP-insulA/insula-bot/internal/errors"
)

// Route names a screen
type Route string

const (
	Home             Route = "home"
	DoseForm         Route = "dose_form"
	PredictionResult Route = "prediction_result"
	History          Route = "history"
	GlucoseLog       Route = "glucose_log"
	Chat             Route = "chat"
)

// routes maps every screen to its payload type; nil means no payload
var routes = map[Route]reflect.Type{
	Home:             nil,
	DoseForm:         nil,
	PredictionResult: reflect.TypeOf(domain.InsulinPredictionResult{}),
	History:          nil,
	GlucoseLog:       nil,
	Chat:             nil,
}

// Known reports whether r is part of the routing table
func Known(r Route) bool {
	_, ok := routes[r]
	return ok
}

// Entry is one screen on a navigation stack. The payload is stored as JSON
// so the stack can live in any state backend.
type Entry struct {
	Route   Route           `json:"route"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEntry checks payload against the route declaration
func NewEntry(r Route, payload any) (Entry, error) {
	want, ok := routes[r]
	if !ok {
		return Entry{}, apperrors.NewValidationError(fmt.Sprintf("unknown route %q", r))
	}
	if want == nil {
		if payload != nil {
			return Entry{}, apperrors.NewValidationError(fmt.Sprintf("route %q takes no payload", r))
		}
		return Entry{Route: r}, nil
	}

	got := reflect.TypeOf(payload)
	if got != nil && got.Kind() == reflect.Pointer && !reflect.ValueOf(payload).IsNil() {
		got = got.Elem()
		payload = reflect.ValueOf(payload).Elem().Interface()
	}
	if got != want {
		return Entry{}, apperrors.NewValidationError(fmt.Sprintf("route %q needs a %s payload, got %v", r, want, got))
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, apperrors.NewInternalError(err)
	}
	return Entry{Route: r, Payload: raw}, nil
}

// Decode reads the payload of e into out, which must point to the type the
// route declares
func Decode[T any](e Entry) (T, error) {
	var out T
	want := routes[e.Route]
	if want == nil || reflect.TypeOf(out) != want {
		return out, apperrors.NewValidationError(fmt.Sprintf("route %q does not carry %T", e.Route, out))
	}
	if len(e.Payload) == 0 {
		return out, apperrors.NewValidationError(fmt.Sprintf("route %q has no payload", e.Route))
	}
	if err := json.Unmarshal(e.Payload, &out); err != nil {
		return out, apperrors.NewInternalError(err)
	}
	return out, nil
}

// Stack is a per-user navigation history; the last entry is on screen.
// An empty stack shows Home.
type Stack struct {
	Entries []Entry `json:"entries"`
}

// Current returns the top entry
func (s *Stack) Current() Entry {
	if len(s.Entries) == 0 {
		return Entry{Route: Home}
	}
	return s.Entries[len(s.Entries)-1]
}

// Push adds a screen on top
func (s *Stack) Push(r Route, payload any) error {
	e, err := NewEntry(r, payload)
	if err != nil {
		return err
	}
	s.Entries = append(s.Entries, e)
	return nil
}

// Replace swaps the top screen
func (s *Stack) Replace(r Route, payload any) error {
	e, err := NewEntry(r, payload)
	if err != nil {
		return err
	}
	if len(s.Entries) == 0 {
		s.Entries = []Entry{e}
		return nil
	}
	s.Entries[len(s.Entries)-1] = e
	return nil
}

// Pop removes the top screen and returns the one now showing
func (s *Stack) Pop() Entry {
	if len(s.Entries) > 0 {
		s.Entries = s.Entries[:len(s.Entries)-1]
	}
	return s.Current()
}

// Reset clears the stack back to Home
func (s *Stack) Reset() {
	s.Entries = nil
}
