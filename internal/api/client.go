// Package api is the HTTP accessor for the insulA backend REST API.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/TPP-insulA/insula-bot/internal/domain"
	apperrors "github.com/TPP-insulA/insula-bot/internal/errors"
	"github.com/TPP-insulA/insula-bot/internal/logger"
)

// Options configures the backend client
type Options struct {
	BaseURL string
	Timeout time.Duration

	// RetryCount > 0 enables retry-with-backoff for transport errors and
	// 5xx responses across every call. Zero keeps calls single-shot.
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

// Client talks to the backend on behalf of one bearer token per call
type Client struct {
	http *resty.Client
	log  *slog.Logger
	errs *apperrors.Handler
}

var (
	_ domain.GlucoseAPI = (*Client)(nil)
	_ domain.InsulinAPI = (*Client)(nil)
	_ domain.MealAPI    = (*Client)(nil)
)

type messageBody struct {
	Message string `json:"message"`
}

// NewClient creates a backend client
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	log := logger.For("api")
	rc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetLogger(restyLogger{log: log})

	if opts.RetryCount > 0 {
		rc.SetRetryCount(opts.RetryCount).
			SetRetryWaitTime(opts.RetryWait).
			SetRetryMaxWaitTime(opts.RetryMaxWait).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				if err != nil {
					return true
				}
				return r != nil && r.StatusCode() >= http.StatusInternalServerError
			})
	}

	return &Client{http: rc, log: log, errs: apperrors.NewHandler(log)}
}

// call performs a request and decodes a JSON body into out when non-nil
func (c *Client) call(ctx context.Context, method, path, token string, query map[string]string, body, out any) error {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString())
	if token != "" {
		req.SetAuthToken(token)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return c.errs.LogAndReturn(ctx, apperrors.NewTimeoutError(method+" "+path))
		}
		return c.errs.LogAndReturn(ctx, apperrors.NewNetworkError(err).WithContext("path", path))
	}

	c.log.Debug("Backend request",
		"method", method,
		"path", path,
		"status", resp.StatusCode(),
		"duration", resp.Time(),
	)

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return c.errs.LogAndReturn(ctx, statusError(resp.StatusCode(), resp.Body()).WithContext("path", path))
	}

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrorTypeServer, "INVALID_RESPONSE",
			fmt.Sprintf("unexpected response from %s", path))
	}
	return nil
}

// statusError maps a non-2xx status to the error taxonomy, carrying the
// backend message verbatim
func statusError(status int, body []byte) *apperrors.AppError {
	var mb messageBody
	_ = json.Unmarshal(body, &mb)
	msg := mb.Message

	var err *apperrors.AppError
	switch {
	case status == http.StatusUnauthorized:
		err = apperrors.NewAuthError(msg)
	case status == http.StatusNotFound:
		err = apperrors.NewNotFoundError(msg)
	case status >= 400 && status < 500:
		err = apperrors.NewValidationError(msg)
	default:
		err = apperrors.NewServerError(msg)
	}
	return err.WithStatus(status)
}

type restyLogger struct {
	log *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
