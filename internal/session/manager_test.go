package session

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/TPP-insulA/insula-bot/internal/errors"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return tok
}

func newTestManager(now time.Time) (*Manager, *MemoryStore, *[]Event) {
	store := NewMemoryStore()
	m := NewManager(store)
	m.now = func() time.Time { return now }
	var events []Event
	m.Subscribe(func(e Event) { events = append(events, e) })
	return m, store, &events
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	got, ok := TokenExpiry(signedToken(t, exp))
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = TokenExpiry("opaque-token")
	assert.False(t, ok)
}

func TestManager_SignInAndCurrent(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	m, _, events := newTestManager(now)
	ctx := context.Background()

	_, err := m.Current(ctx, 42)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, apperrors.ErrNotSignedIn))

	token := signedToken(t, now.Add(time.Hour))
	s, err := m.SignIn(ctx, 42, "  "+token+" ")
	require.NoError(t, err)
	assert.Equal(t, token, s.Token)
	assert.Equal(t, now.Add(time.Hour).Unix(), s.ExpiresAt.Unix())

	got, err := m.Token(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, token, got)
	assert.Equal(t, []Event{{Type: SignedIn, TelegramID: 42}}, *events)
}

func TestManager_SignInRejectsExpiredToken(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	m, store, events := newTestManager(now)

	_, err := m.SignIn(context.Background(), 42, signedToken(t, now.Add(-time.Minute)))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeAuth))

	s, _ := store.LoadSession(context.Background(), 42)
	assert.Nil(t, s)
	assert.Empty(t, *events)

	_, err = m.SignIn(context.Background(), 42, "   ")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestManager_CurrentExpiresStaleSession(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	m, store, events := newTestManager(now)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, Session{TelegramID: 7, Token: "t", ExpiresAt: now}))

	_, err := m.Current(ctx, 7)
	require.Error(t, err)
	assert.Equal(t, apperrors.MsgSessionExpired, apperrors.UserMessage(err))
	assert.Equal(t, []Event{{Type: Expired, TelegramID: 7}}, *events)

	_, err = m.Current(ctx, 7)
	assert.True(t, stderrors.Is(err, apperrors.ErrNotSignedIn))
}

func TestManager_GuardExpiresOnAuthError(t *testing.T) {
	m, _, events := newTestManager(time.Now())
	ctx := context.Background()
	_, err := m.SignIn(ctx, 1, "opaque")
	require.NoError(t, err)

	netErr := apperrors.NewNetworkError(stderrors.New("refused"))
	assert.Same(t, error(netErr), m.Guard(ctx, 1, netErr))
	_, err = m.Current(ctx, 1)
	require.NoError(t, err, "network errors keep the session")

	authErr := apperrors.NewAuthError("invalid token")
	assert.Same(t, error(authErr), m.Guard(ctx, 1, authErr))
	_, err = m.Current(ctx, 1)
	assert.Error(t, err)

	// a second auth failure has no session left to expire
	m.Guard(ctx, 1, authErr)
	assert.Equal(t, []Event{{Type: SignedIn, TelegramID: 1}, {Type: Expired, TelegramID: 1}}, *events)
}

func TestManager_SignOutAndUnsubscribe(t *testing.T) {
	m, _, events := newTestManager(time.Now())
	ctx := context.Background()

	var late []Event
	unsubscribe := m.Subscribe(func(e Event) { late = append(late, e) })

	_, err := m.SignIn(ctx, 5, "opaque")
	require.NoError(t, err)
	unsubscribe()
	require.NoError(t, m.SignOut(ctx, 5))

	assert.Equal(t, []Event{{Type: SignedIn, TelegramID: 5}, {Type: SignedOut, TelegramID: 5}}, *events)
	assert.Equal(t, []Event{{Type: SignedIn, TelegramID: 5}}, late)
	_, err = m.Current(ctx, 5)
	assert.Error(t, err)
}
