package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/TPP-insulA/insula-bot/internal/domain"
)

// Calculate asks the backend for a dose recommendation. The backend
// persists exactly one prediction record per successful call.
func (c *Client) Calculate(ctx context.Context, token string, req domain.InsulinPredictionRequest) (*domain.InsulinPredictionResult, error) {
	req.Date = req.Date.UTC()
	if req.CGMPrev == nil {
		req.CGMPrev = []int{}
	}

	var result domain.InsulinPredictionResult
	if err := c.call(ctx, http.MethodPost, "/insulin/calculate", token, nil, req, &result); err != nil {
		return nil, err
	}
	if result.CGMPost == nil {
		result.CGMPost = []int{}
	}
	return &result, nil
}

// FetchHistory returns every prediction of the user in server order
func (c *Client) FetchHistory(ctx context.Context, token string) ([]domain.InsulinPredictionResult, error) {
	var results []domain.InsulinPredictionResult
	if err := c.call(ctx, http.MethodGet, "/insulin/predictions", token, nil, nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// UpdateOutcome replaces applyDose and cgmPost of a prediction. Callers
// send the complete desired state; a nil ApplyDose clears it.
func (c *Client) UpdateOutcome(ctx context.Context, token, id string, update domain.OutcomeUpdate) (*domain.InsulinPredictionResult, error) {
	if update.CGMPost == nil {
		update.CGMPost = []int{}
	}

	var result domain.InsulinPredictionResult
	if err := c.call(ctx, http.MethodPut, "/insulin/"+url.PathEscape(id), token, nil, update, &result); err != nil {
		return nil, err
	}
	if result.CGMPost == nil {
		result.CGMPost = []int{}
	}
	return &result, nil
}

// DeletePrediction removes a prediction irreversibly
func (c *Client) DeletePrediction(ctx context.Context, token, id string) (bool, error) {
	var body struct {
		Success bool `json:"success"`
	}
	if err := c.call(ctx, http.MethodDelete, "/insulin/"+url.PathEscape(id), token, nil, nil, &body); err != nil {
		return false, err
	}
	return body.Success, nil
}
