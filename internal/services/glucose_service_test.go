package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/TPP-insulA/insula-bot/internal/errors"
)

func TestGlucoseService_LogReading(t *testing.T) {
	backend := newFakeBackend()
	s := NewGlucoseService(backend, &fakeSessions{token: "tok"})
	s.now = func() time.Time { return fixedNow }

	reading, err := s.LogReading(context.Background(), 1, 120, "antes de comer")
	require.NoError(t, err)
	assert.Equal(t, 120, reading.Value)
	require.Len(t, backend.created, 1)
	assert.Equal(t, fixedNow, backend.created[0].Timestamp)

	for _, v := range []int{19, 601} {
		_, err := s.LogReading(context.Background(), 1, v, "")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), v)
	}
	assert.Len(t, backend.created, 1)
}

func TestGlucoseService_Recent(t *testing.T) {
	backend := newFakeBackend()
	s := NewGlucoseService(backend, &fakeSessions{token: "tok"})
	s.now = func() time.Time { return fixedNow }

	_, err := s.Recent(context.Background(), 1, 6*time.Hour)
	require.NoError(t, err)
	require.Len(t, backend.queries, 1)
	assert.Equal(t, fixedNow.Add(-6*time.Hour), backend.queries[0].StartDate)
	assert.Zero(t, backend.queries[0].Limit)
}
