package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/attendancetracker/internal/attendance"
	"github.com/attendancetracker/internal/statistics"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	api               *tgbotapi.BotAPI
	sender            sender
	store             *Store
	statisticsService *statistics.Service
}

func NewBot(store *Store, statisticsService *statistics.Service, token string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:               api,
		sender:            api,
		store:             store,
		statisticsService: statisticsService,
	}, nil
}

func (b *Bot) Broadcast(ctx context.Context, message string) error {
	chats, err := b.store.ListChats(ctx)
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}
	var errs []error
	for _, chat := range chats {
		if err := b.send(chat.ID, message); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chat.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (b *Bot) BroadcastSlogRecord(ctx context.Context, r slog.Record) error {
	return b.Broadcast(ctx, formatSlogRecord(r))
}

// NotifyLowAttendance warns subscribers when an absence leaves the subject
// under the threshold. Meant to be registered with attendance.Cache.OnMarked.
func (b *Bot) NotifyLowAttendance(ctx context.Context, record attendance.Record) {
	if record.Status != attendance.StatusAbsent {
		return
	}
	stats := b.statisticsService.Subject(record.Subject, statistics.PeriodAll)
	if !stats.Low() {
		return
	}
	go func(ctx context.Context) {
		if err := b.Broadcast(ctx, formatLowAttendance(stats)); err != nil {
			slog.ErrorContext(ctx, "broadcast low attendance", "subject", record.Subject, "error", err)
		}
	}(context.WithoutCancel(ctx))
}

func (b *Bot) Listen(ctx context.Context) error {
	offset, err := b.store.GetUpdatesOffset(ctx)
	if err != nil {
		return fmt.Errorf("get updates offset: %w", err)
	}
	config := tgbotapi.NewUpdate(offset)
	config.Timeout = 60
	updates := b.api.GetUpdatesChan(config)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "stopping listening for telegram updates")
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message != nil && update.Message.IsCommand() {
				if err := b.handleCommand(ctx, update.Message); err != nil {
					slog.ErrorContext(ctx, "handle command", "command", update.Message.Command(), "error", err)
				}
			}

			if err := b.store.SetUpdatesOffset(ctx, update.UpdateID+1); err != nil {
				slog.ErrorContext(ctx, "set updates offset", "error", err)
			}
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) error {
	switch message.Command() {
	case "start":
		return b.handleStart(ctx, message)
	case "stop":
		return b.handleStop(ctx, message)
	case "stats":
		return b.handleStats(ctx, message)
	default:
		return nil
	}
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) error {
	chat := Chat{
		ID:        message.Chat.ID,
		FirstName: message.Chat.FirstName,
	}
	if err := b.store.InsertChat(ctx, &chat); err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}
	return b.send(chat.ID, "Subscribed to attendance warnings. Send /stats [week|month] for a summary.")
}

func (b *Bot) handleStop(ctx context.Context, message *tgbotapi.Message) error {
	if err := b.store.DeleteChat(ctx, message.Chat.ID); err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	return b.send(message.Chat.ID, "Unsubscribed.")
}

func (b *Bot) handleStats(_ context.Context, message *tgbotapi.Message) error {
	period, err := statistics.ParsePeriod(strings.TrimSpace(message.CommandArguments()))
	if err != nil {
		return b.send(message.Chat.ID, "Usage: /stats [all|week|month]")
	}
	text := formatStats(
		period,
		b.statisticsService.Global(period),
		b.statisticsService.LowSubjects(period),
	)
	return b.send(message.Chat.ID, text)
}

func (b *Bot) send(chatID int64, text string) error {
	if _, err := b.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
