package state

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TPP-insulA/insula-bot/internal/domain"
	"github.com/TPP-insulA/insula-bot/internal/navigation"
	"github.com/TPP-insulA/insula-bot/internal/prediction"
)

func stores(t *testing.T) map[string]Store {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return map[string]Store{
		"memory": NewManager(),
		"redis":  NewRedisManagerWithClient(client),
	}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			c, err := store.Load(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, None, c.Step)
			assert.Equal(t, navigation.Home, c.Routes.Current().Route)

			c.Step = WaitingForCarbs
			c.Dose = prediction.NewDoseForm()
			c.Dose.SetGlucoseEntries([]string{"120", "140"})
			require.NoError(t, c.Routes.Push(navigation.DoseForm, nil))
			c.History = prediction.NewHistoryView([]domain.InsulinPredictionResult{{ID: "abc"}})
			c.PendingDelete = "abc"
			require.NoError(t, store.Save(ctx, 1, c))

			got, err := store.Load(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, WaitingForCarbs, got.Step)
			assert.Equal(t, []string{"120", "140", ""}, got.Dose.Glucose)
			assert.Equal(t, navigation.DoseForm, got.Routes.Current().Route)
			assert.Equal(t, "abc", got.PendingDelete)
			assert.Equal(t, prediction.SortDesc, got.History.SortDir)

			other, err := store.Load(ctx, 2)
			require.NoError(t, err)
			assert.Nil(t, other.Dose)

			require.NoError(t, store.Clear(ctx, 1))
			cleared, err := store.Load(ctx, 1)
			require.NoError(t, err)
			assert.Nil(t, cleared.Dose)
		})
	}
}

func TestManager_LoadReturnsCopy(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	c := NewConversation()
	c.Step = Chatting
	require.NoError(t, m.Save(ctx, 1, c))
	c.Step = None

	got, err := m.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, Chatting, got.Step)
}

func TestRedisManager_SetsTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	m := NewRedisManagerWithClient(client)
	require.NoError(t, m.Save(context.Background(), 9, NewConversation()))
	assert.Equal(t, ConversationTTL, mr.TTL("user:9:conversation"))

	mr.FastForward(ConversationTTL)
	c, err := m.Load(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, None, c.Step)
}

func TestConversation_AppendChatKeepsRecent(t *testing.T) {
	c := NewConversation()
	for i := 0; i < MaxChatTurns+5; i++ {
		c.AppendChat(domain.ChatTurn{Role: domain.ChatRoleUser, Text: string(rune('a' + i))})
	}
	require.Len(t, c.Chat, MaxChatTurns)
	assert.Equal(t, string(rune('a'+5)), c.Chat[0].Text)
}
