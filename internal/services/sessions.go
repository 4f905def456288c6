package services

import "context"

// Sessions resolves the bearer token of a chat and expires it when the
// backend rejects it
type Sessions interface {
	Token(ctx context.Context, telegramID int64) (string, error)
	Guard(ctx context.Context, telegramID int64, err error) error
}
