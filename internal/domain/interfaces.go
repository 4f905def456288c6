package domain

import (
	"context"
	"time"
)

// ReadingsQuery narrows a glucose fetch; zero values are omitted
type ReadingsQuery struct {
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// MealsQuery narrows a meals fetch; zero values are omitted
type MealsQuery struct {
	StartDate time.Time
	EndDate   time.Time
}

// GlucoseAPI reads and records glucose measurements
type GlucoseAPI interface {
	FetchReadings(ctx context.Context, token string, q ReadingsQuery) ([]GlucoseReading, error)
	CreateReading(ctx context.Context, token string, r NewGlucoseReading) (*GlucoseReading, error)
}

// InsulinAPI manages dose predictions
type InsulinAPI interface {
	Calculate(ctx context.Context, token string, req InsulinPredictionRequest) (*InsulinPredictionResult, error)
	FetchHistory(ctx context.Context, token string) ([]InsulinPredictionResult, error)
	UpdateOutcome(ctx context.Context, token, id string, update OutcomeUpdate) (*InsulinPredictionResult, error)
	DeletePrediction(ctx context.Context, token, id string) (bool, error)
}

// MealAPI reads logged meals
type MealAPI interface {
	FetchMeals(ctx context.Context, token string, q MealsQuery) ([]Meal, error)
}
