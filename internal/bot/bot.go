package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/TPP-insulA/insula-bot/internal/bot/handlers"
	"github.com/TPP-insulA/insula-bot/internal/bot/state"
	"github.com/TPP-insulA/insula-bot/internal/logger"
	"github.com/TPP-insulA/insula-bot/internal/session"
)

type Bot struct {
	api         *tgbotapi.BotAPI
	handler     *handlers.UpdateHandler
	unsubscribe func()
	log         *slog.Logger
}

// NewBot authorizes against Telegram and wires the update handler. Session
// expiry notifications are delivered for as long as the bot runs.
func NewBot(token string, deps handlers.Dependencies, sessions *session.Manager, stateStore state.Store) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	log := logger.For("bot")
	log.Info("Bot authorized", "account", api.Self.UserName)

	handler := handlers.NewUpdateHandler(api, deps, stateStore)
	return &Bot{
		api:         api,
		handler:     handler,
		unsubscribe: sessions.Subscribe(handler.HandleSessionEvent),
		log:         log,
	}, nil
}

// Start polls for updates until ctx is cancelled. Each update runs in its
// own goroutine; Start waits for the ones in flight before returning.
func (b *Bot) Start(ctx context.Context) error {
	defer b.unsubscribe()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("Bot is now listening for updates")

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.log.Info("Bot is shutting down")
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := b.handler.Handle(ctx, update); err != nil {
					b.log.Error("Error handling update", "update_id", update.UpdateID, "error", err)
				}
			}()
		}
	}
}
