package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/TPP-insulA/insula-bot/internal/domain"
	"github.com/TPP-insulA/insula-bot/internal/utils"
)

// MaxNotesLength is the longest note the backend stores for a reading
const MaxNotesLength = 30

// FetchReadings retrieves glucose readings, optionally time-windowed
func (c *Client) FetchReadings(ctx context.Context, token string, q domain.ReadingsQuery) ([]domain.GlucoseReading, error) {
	params := map[string]string{}
	if !q.StartDate.IsZero() {
		params["startDate"] = utils.FormatISO(q.StartDate)
	}
	if !q.EndDate.IsZero() {
		params["endDate"] = utils.FormatISO(q.EndDate)
	}
	if q.Limit > 0 {
		params["limit"] = strconv.Itoa(q.Limit)
	}

	var readings []domain.GlucoseReading
	if err := c.call(ctx, http.MethodGet, "/glucose", token, params, nil, &readings); err != nil {
		return nil, err
	}
	return readings, nil
}

// CreateReading records a manually entered reading
func (c *Client) CreateReading(ctx context.Context, token string, r domain.NewGlucoseReading) (*domain.GlucoseReading, error) {
	r.Notes = utils.TruncateRunes(r.Notes, MaxNotesLength)
	r.Timestamp = r.Timestamp.UTC()

	var created domain.GlucoseReading
	if err := c.call(ctx, http.MethodPost, "/glucose", token, nil, r, &created); err != nil {
		return nil, err
	}
	return &created, nil
}
