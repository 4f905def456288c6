package api

import (
	"context"
	"net/http"

	"github.com/TPP-insulA/insula-bot/internal/domain"
	"github.com/TPP-insulA/insula-bot/internal/utils"
)

// FetchMeals retrieves logged meals, optionally time-windowed
func (c *Client) FetchMeals(ctx context.Context, token string, q domain.MealsQuery) ([]domain.Meal, error) {
	params := map[string]string{}
	if !q.StartDate.IsZero() {
		params["startDate"] = utils.FormatISO(q.StartDate)
	}
	if !q.EndDate.IsZero() {
		params["endDate"] = utils.FormatISO(q.EndDate)
	}

	var meals []domain.Meal
	if err := c.call(ctx, http.MethodGet, "/meals", token, params, nil, &meals); err != nil {
		return nil, err
	}
	return meals, nil
}
