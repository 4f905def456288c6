package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TPP-insulA/insula-bot/internal/domain"
	apperrors "github.com/TPP-insulA/insula-bot/internal/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Options{BaseURL: server.URL + "/", Timeout: 5 * time.Second})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_FetchReadings(t *testing.T) {
	start := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	end := start.Add(2*time.Hour + 15*time.Minute)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/glucose", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "2024-03-15T10:00:00.000Z", r.URL.Query().Get("startDate"))
		assert.Equal(t, "2024-03-15T12:15:00.000Z", r.URL.Query().Get("endDate"))
		assert.Equal(t, "23", r.URL.Query().Get("limit"))

		writeJSON(w, http.StatusOK, []domain.GlucoseReading{
			{ID: "g1", Value: 120, Timestamp: start.Add(5 * time.Minute)},
			{ID: "g2", Value: 135, Timestamp: start.Add(10 * time.Minute), Notes: "post meal"},
		})
	})

	readings, err := client.FetchReadings(context.Background(), "tok", domain.ReadingsQuery{
		StartDate: start,
		EndDate:   end,
		Limit:     23,
	})
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, 120, readings[0].Value)
	assert.Equal(t, "post meal", readings[1].Notes)
}

func TestClient_FetchReadings_OmitsEmptyQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		writeJSON(w, http.StatusOK, []domain.GlucoseReading{})
	})

	readings, err := client.FetchReadings(context.Background(), "tok", domain.ReadingsQuery{})
	require.NoError(t, err)
	assert.Empty(t, readings)
}

func TestClient_CreateReading_TruncatesNotes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body domain.NewGlucoseReading
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, []rune(body.Notes), MaxNotesLength)
		assert.Equal(t, 98, body.Value)
		writeJSON(w, http.StatusCreated, domain.GlucoseReading{ID: "new", Value: body.Value, Notes: body.Notes})
	})

	created, err := client.CreateReading(context.Background(), "tok", domain.NewGlucoseReading{
		Value:     98,
		Timestamp: time.Now(),
		Notes:     "antes de entrenar en el gimnasio del club",
	})
	require.NoError(t, err)
	assert.Equal(t, "new", created.ID)
}

func TestClient_Calculate(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/insulin/calculate", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []any{110.0, 115.0, 120.0}, body["cgmPrev"])
		assert.Equal(t, 120.0, body["glucoseObjective"])
		assert.Equal(t, 45.0, body["carbs"])
		assert.Equal(t, 0.5, body["insulinOnBoard"])
		assert.Equal(t, 7.0, body["sleepLevel"])
		assert.Equal(t, 3.0, body["workLevel"])
		assert.Equal(t, 2.0, body["activityLevel"])
		assert.Contains(t, body, "date")

		writeJSON(w, http.StatusOK, map[string]any{
			"id":               "abc",
			"date":             body["date"],
			"cgmPrev":          body["cgmPrev"],
			"glucoseObjective": 120,
			"carbs":            45,
			"insulinOnBoard":   0.5,
			"sleepLevel":       7,
			"workLevel":        3,
			"activityLevel":    2,
			"recommendedDose":  4.2,
		})
	})

	result, err := client.Calculate(context.Background(), "tok", domain.InsulinPredictionRequest{
		Date:             time.Now(),
		CGMPrev:          []int{110, 115, 120},
		GlucoseObjective: 120,
		Carbs:            45,
		InsulinOnBoard:   0.5,
		SleepLevel:       7,
		WorkLevel:        3,
		ActivityLevel:    2,
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", result.ID)
	assert.Equal(t, 4.2, result.RecommendedDose)
	assert.Nil(t, result.ApplyDose)
	assert.NotNil(t, result.CGMPost)
	assert.Empty(t, result.CGMPost)
	assert.Equal(t, []int{110, 115, 120}, result.CGMPrev)
}

func TestClient_Calculate_ValidationMessagePassedThrough(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Los carbohidratos son obligatorios"})
	})

	_, err := client.Calculate(context.Background(), "tok", domain.InsulinPredictionRequest{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Equal(t, "Los carbohidratos son obligatorios", apperrors.UserMessage(err))
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   apperrors.ErrorType
	}{
		{"unauthorized", http.StatusUnauthorized, apperrors.ErrorTypeAuth},
		{"not found", http.StatusNotFound, apperrors.ErrorTypeNotFound},
		{"unprocessable", http.StatusUnprocessableEntity, apperrors.ErrorTypeValidation},
		{"server", http.StatusInternalServerError, apperrors.ErrorTypeServer},
		{"bad gateway", http.StatusBadGateway, apperrors.ErrorTypeServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]string{"message": "nope"})
			})

			_, err := client.FetchHistory(context.Background(), "tok")
			require.Error(t, err)
			assert.Equal(t, tt.want, apperrors.TypeOf(err))

			var appErr *apperrors.AppError
			require.True(t, stderrors.As(err, &appErr))
			assert.Equal(t, tt.status, appErr.Status)
			assert.Equal(t, "nope", appErr.Message)
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(Options{BaseURL: url, Timeout: 2 * time.Second})
	_, err := client.FetchHistory(context.Background(), "tok")

	require.Error(t, err)
	assert.True(t, stderrors.Is(err, apperrors.ErrNetwork))
	assert.Equal(t, apperrors.MsgNetwork, apperrors.UserMessage(err))
}

func TestClient_UpdateOutcome_SendsFullReplace(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/insulin/abc", r.URL.Path)

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"applyDose":null,"cgmPost":[]}`, string(raw))

		writeJSON(w, http.StatusOK, map[string]any{"id": "abc", "recommendedDose": 4.2, "applyDose": nil, "cgmPost": nil})
	})

	result, err := client.UpdateOutcome(context.Background(), "tok", "abc", domain.OutcomeUpdate{})
	require.NoError(t, err)
	assert.Nil(t, result.ApplyDose)
	assert.NotNil(t, result.CGMPost)
}

func TestClient_UpdateOutcome_WithValues(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"applyDose":3.5,"cgmPost":[150,140,128]}`, string(raw))
		writeJSON(w, http.StatusOK, map[string]any{"id": "abc", "applyDose": 3.5, "cgmPost": []int{150, 140, 128}})
	})

	dose := 3.5
	result, err := client.UpdateOutcome(context.Background(), "tok", "abc", domain.OutcomeUpdate{
		ApplyDose: &dose,
		CGMPost:   []int{150, 140, 128},
	})
	require.NoError(t, err)
	require.NotNil(t, result.ApplyDose)
	assert.Equal(t, 3.5, *result.ApplyDose)
	assert.Equal(t, []int{150, 140, 128}, result.CGMPost)
}

func TestClient_UpdateOutcome_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Predicción no encontrada"})
	})

	_, err := client.UpdateOutcome(context.Background(), "tok", "gone", domain.OutcomeUpdate{})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, apperrors.ErrNotFound))
}

func TestClient_DeletePrediction(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/insulin/abc", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})

	ok, err := client.DeletePrediction(context.Background(), "tok", "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_FetchMeals(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/meals", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("startDate"))
		writeJSON(w, http.StatusOK, []domain.Meal{{ID: "m1", Name: "Empanadas", Carbs: 60}})
	})

	meals, err := client.FetchMeals(context.Background(), "tok", domain.MealsQuery{StartDate: time.Now().Add(-24 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, meals, 1)
	assert.Equal(t, "Empanadas", meals[0].Name)
}

func TestClient_RetriesServerErrorsWhenEnabled(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "busy"})
			return
		}
		writeJSON(w, http.StatusOK, []domain.InsulinPredictionResult{{ID: "abc"}})
	}))
	defer server.Close()

	client := NewClient(Options{
		BaseURL:      server.URL,
		Timeout:      5 * time.Second,
		RetryCount:   3,
		RetryWait:    time.Millisecond,
		RetryMaxWait: 5 * time.Millisecond,
	})

	results, err := client.FetchHistory(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_NoRetryByDefault(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "busy"})
	})

	_, err := client.FetchHistory(context.Background(), "tok")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
