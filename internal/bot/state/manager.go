package state

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/TPP-insulA/insula-bot/internal/domain"
	"github.com/TPP-insulA/insula-bot/internal/navigation"
	"github.com/TPP-insulA/insula-bot/internal/prediction"
)

// Step is the text input the bot is waiting for
type Step string

const (
	None Step = "none"

	WaitingForGlucose        Step = "waiting_for_glucose"
	WaitingForCarbs          Step = "waiting_for_carbs"
	WaitingForInsulinOnBoard Step = "waiting_for_insulin_on_board"
	WaitingForObjective      Step = "waiting_for_objective"
	WaitingForSleepLevel     Step = "waiting_for_sleep_level"
	WaitingForWorkLevel      Step = "waiting_for_work_level"
	WaitingForActivityLevel  Step = "waiting_for_activity_level"

	WaitingForOutcomeGlucose Step = "waiting_for_outcome_glucose"
	WaitingForOutcomeDose    Step = "waiting_for_outcome_dose"

	WaitingForFilterDate Step = "waiting_for_filter_date"
	WaitingForFilterCGM  Step = "waiting_for_filter_cgm"
	WaitingForFilterDose Step = "waiting_for_filter_dose"

	WaitingForGlucoseLog Step = "waiting_for_glucose_log"
	Chatting             Step = "chatting"
)

// MaxChatTurns bounds the assistant history kept per user
const MaxChatTurns = 20

// Conversation is everything the bot remembers about one chat between
// updates
type Conversation struct {
	Step    Step                    `json:"step"`
	Routes  navigation.Stack        `json:"routes"`
	Dose    *prediction.DoseForm    `json:"dose,omitempty"`
	Outcome *prediction.OutcomeForm `json:"outcome,omitempty"`
	History *prediction.HistoryView `json:"history,omitempty"`
	Chat    []domain.ChatTurn       `json:"chat,omitempty"`

	// PendingDelete holds the prediction id awaiting delete confirmation
	PendingDelete string `json:"pendingDelete,omitempty"`

	// PendingClear holds the prediction id awaiting outcome clear confirmation
	PendingClear string `json:"pendingClear,omitempty"`
}

// NewConversation starts at Home with nothing pending
func NewConversation() *Conversation {
	return &Conversation{Step: None}
}

// AppendChat records a turn, keeping the most recent MaxChatTurns
func (c *Conversation) AppendChat(turn domain.ChatTurn) {
	c.Chat = append(c.Chat, turn)
	if len(c.Chat) > MaxChatTurns {
		c.Chat = append([]domain.ChatTurn(nil), c.Chat[len(c.Chat)-MaxChatTurns:]...)
	}
}

// Store persists conversations. Load returns a fresh conversation for
// users with nothing stored.
type Store interface {
	Load(ctx context.Context, userID int64) (*Conversation, error)
	Save(ctx context.Context, userID int64, c *Conversation) error
	Clear(ctx context.Context, userID int64) error
}

// Manager keeps conversations in process memory. Conversations are stored
// serialized so callers never share a live value with the store.
type Manager struct {
	conversations map[int64][]byte
	mu            sync.RWMutex
}

var _ Store = (*Manager)(nil)

// NewManager creates a new in-memory state manager
func NewManager() *Manager {
	return &Manager{conversations: make(map[int64][]byte)}
}

func (m *Manager) Load(_ context.Context, userID int64) (*Conversation, error) {
	m.mu.RLock()
	data, ok := m.conversations[userID]
	m.mu.RUnlock()
	if !ok {
		return NewConversation(), nil
	}
	return decode(data)
}

func (m *Manager) Save(_ context.Context, userID int64, c *Conversation) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conversations[userID] = data
	return nil
}

func (m *Manager) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conversations, userID)
	return nil
}

func decode(data []byte) (*Conversation, error) {
	c := NewConversation()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, err
	}
	if c.Step == "" {
		c.Step = None
	}
	return c, nil
}
