package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/TPP-insulA/insula-bot/internal/bot/keyboards"
	"github.com/TPP-insulA/insula-bot/internal/bot/menus"
	"github.com/TPP-insulA/insula-bot/internal/bot/state"
	"github.com/TPP-insulA/insula-bot/internal/navigation"
	"github.com/TPP-insulA/insula-bot/internal/prediction"
	"github.com/TPP-insulA/insula-bot/internal/services"
)

const (
	recentPeriod   = 6 * time.Hour
	recentReadings = 8
)

func (a *actions) startGlucoseLog(ctx context.Context, chatID, userID int64, conv *state.Conversation) error {
	if ok, err := a.requireSession(ctx, chatID, userID); !ok {
		return err
	}
	*conv = *state.NewConversation()
	if err := conv.Routes.Push(navigation.GlucoseLog, nil); err != nil {
		return err
	}
	conv.Step = state.WaitingForGlucoseLog
	return menus.Send(a.api, chatID, fmt.Sprintf(
		"🩸 Escribí tu glucemia en mg/dL (entre %d y %d) y, si querés, una nota.\nEj: 120 antes de almorzar",
		services.MinLoggedGlucose, services.MaxLoggedGlucose), cancelMarkup())
}

func (a *actions) glucoseLogText(ctx context.Context, chatID, userID int64, conv *state.Conversation, text string) error {
	text = strings.TrimSpace(text)
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return menus.Send(a.api, chatID, "Escribí el valor en mg/dL, por ejemplo 120.", cancelMarkup())
	}
	value, err := strconv.Atoi(fields[0])
	if err != nil {
		return menus.Send(a.api, chatID, "Escribí el valor en mg/dL, por ejemplo 120.", cancelMarkup())
	}
	notes := strings.TrimSpace(strings.TrimPrefix(text, fields[0]))

	reading, err := a.deps.GlucoseSvc.LogReading(ctx, userID, value, notes)
	if err != nil {
		return a.replyError(chatID, err)
	}

	conv.Step = state.None
	conv.Routes.Reset()

	loc := prediction.DisplayLocation()
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Registré %d mg/dL a las %s.", reading.Value, reading.Timestamp.In(loc).Format("15:04"))

	recent, err := a.deps.GlucoseSvc.Recent(ctx, userID, recentPeriod)
	if err != nil {
		a.log.Warn("Could not load recent readings", append([]any{"user_id", userID}, logFields(err)...)...)
	} else if len(recent) > 0 {
		if len(recent) > recentReadings {
			recent = recent[:recentReadings]
		}
		b.WriteString("\n\nÚltimas lecturas:\n")
		for _, r := range recent {
			fmt.Fprintf(&b, "%s  %d mg/dL\n", r.Timestamp.In(loc).Format("15:04"), r.Value)
		}
	}

	markup := keyboards.Main(true)
	return menus.Send(a.api, chatID, strings.TrimRight(b.String(), "\n"), &markup)
}
