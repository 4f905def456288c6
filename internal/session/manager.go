// Package session owns the signed-in state of every chat: linking a backend
// token to a Telegram user, expiring it on auth failures and notifying
// subscribers of each transition.
package session

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "github.com/TPP-insulA/insula-bot/internal/errors"
	"github.com/TPP-insulA/insula-bot/internal/logger"
)

// Session links a Telegram user to a backend bearer token
type Session struct {
	TelegramID int64
	Token      string
	// ExpiresAt is zero when the token carries no expiry
	ExpiresAt time.Time
	LinkedAt  time.Time
}

// Expired reports whether the token expiry has passed at now
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store persists sessions. LoadSession returns nil, nil when the user has
// no session.
type Store interface {
	SaveSession(ctx context.Context, s Session) error
	LoadSession(ctx context.Context, telegramID int64) (*Session, error)
	DeleteSession(ctx context.Context, telegramID int64) error
}

// EventType is a session transition
type EventType string

const (
	SignedIn  EventType = "signed_in"
	SignedOut EventType = "signed_out"
	Expired   EventType = "expired"
)

// Event is delivered to subscribers after the transition is persisted
type Event struct {
	Type       EventType
	TelegramID int64
}

// Manager is safe for concurrent use
type Manager struct {
	store Store
	log   *slog.Logger
	now   func() time.Time

	mu     sync.Mutex
	subs   map[int]func(Event)
	nextID int
}

// NewManager creates a session manager backed by store
func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		log:   logger.For("session"),
		now:   time.Now,
		subs:  make(map[int]func(Event)),
	}
}

// Subscribe registers fn for every future event and returns a function
// that removes it. Subscribers run synchronously in registration order.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Manager) emit(e Event) {
	m.mu.Lock()
	ids := make([]int, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.subs[id])
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}

// SignIn links token to the user. Tokens that are already expired are
// refused without touching the store.
func (m *Manager) SignIn(ctx context.Context, telegramID int64, token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{}, apperrors.NewValidationError("Enviá el token así: /login <token>")
	}

	now := m.now()
	s := Session{TelegramID: telegramID, Token: token, LinkedAt: now}
	if exp, ok := TokenExpiry(token); ok {
		s.ExpiresAt = exp
	}
	if s.Expired(now) {
		return Session{}, apperrors.NewAuthError("token expired")
	}

	if err := m.store.SaveSession(ctx, s); err != nil {
		return Session{}, apperrors.NewDatabaseError(err)
	}
	m.log.Info("Session linked", "telegram_id", telegramID, "expires_at", s.ExpiresAt)
	m.emit(Event{Type: SignedIn, TelegramID: telegramID})
	return s, nil
}

// Current returns the active session. A session whose token expired is
// removed and reported as an auth error.
func (m *Manager) Current(ctx context.Context, telegramID int64) (Session, error) {
	s, err := m.store.LoadSession(ctx, telegramID)
	if err != nil {
		return Session{}, apperrors.NewDatabaseError(err)
	}
	if s == nil {
		return Session{}, apperrors.NewNotSignedInError()
	}
	if s.Expired(m.now()) {
		m.Expire(ctx, telegramID)
		return Session{}, apperrors.NewAuthError("token expired")
	}
	return *s, nil
}

// Token is a shortcut for Current(...).Token
func (m *Manager) Token(ctx context.Context, telegramID int64) (string, error) {
	s, err := m.Current(ctx, telegramID)
	if err != nil {
		return "", err
	}
	return s.Token, nil
}

// SignOut removes the session
func (m *Manager) SignOut(ctx context.Context, telegramID int64) error {
	if err := m.store.DeleteSession(ctx, telegramID); err != nil {
		return apperrors.NewDatabaseError(err)
	}
	m.log.Info("Session removed", "telegram_id", telegramID)
	m.emit(Event{Type: SignedOut, TelegramID: telegramID})
	return nil
}

// Expire removes the session after the backend rejected its token.
// Subscribers are notified only when a session actually existed.
func (m *Manager) Expire(ctx context.Context, telegramID int64) {
	s, err := m.store.LoadSession(ctx, telegramID)
	if err != nil {
		m.log.Error("Failed to load session for expiry", "telegram_id", telegramID, "error", err)
		return
	}
	if s == nil {
		return
	}
	if err := m.store.DeleteSession(ctx, telegramID); err != nil {
		m.log.Error("Failed to delete expired session", "telegram_id", telegramID, "error", err)
		return
	}
	m.log.Warn("Session expired", "telegram_id", telegramID)
	m.emit(Event{Type: Expired, TelegramID: telegramID})
}

// Guard expires the session when err is an auth error and returns err
// unchanged, so callers can wrap every backend call with it
func (m *Manager) Guard(ctx context.Context, telegramID int64, err error) error {
	if err != nil && apperrors.IsType(err, apperrors.ErrorTypeAuth) {
		m.Expire(ctx, telegramID)
	}
	return err
}
