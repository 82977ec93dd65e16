package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"iglivez/worker/features/user"
	"iglivez/worker/internal/adapter/telegram"
)

type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb telegram.Keyboard) (int64, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, kb telegram.Keyboard) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
}

type UserStore interface {
	Get(ctx context.Context, id int64) (*user.User, error)
	SetNotifications(ctx context.Context, id int64, enabled bool) error
	ListNotifiable(ctx context.Context) ([]user.User, error)
}

type Service struct {
	repo   Repository
	users  UserStore
	tg     Messenger
	logger *slog.Logger
}

func NewService(repo Repository, users UserStore, tg Messenger, logger *slog.Logger) *Service {
	return &Service{repo: repo, users: users, tg: tg, logger: logger}
}

// NotifyLive sends a live alert for one entity to every eligible recipient,
// keeping at most one outstanding alert per entity and chat. Old alerts are
// removed before the new one is sent: remote deletion is best effort, but
// the row is always gone before any send happens.
func (s *Service) NotifyLive(ctx context.Context, entityKey, link string) error {
	if entityKey == "" {
		return errors.New("notify live: empty entity key")
	}

	old, err := s.repo.ListByEntity(ctx, entityKey)
	if err != nil {
		return fmt.Errorf("notify live: list old alerts: %w", err)
	}
	for _, rec := range old {
		if err := s.tg.DeleteMessage(ctx, rec.ChatID, rec.MessageID); err != nil {
			if !errors.Is(err, telegram.ErrMessageGone) {
				s.logger.WarnContext(ctx, "failed to delete old alert",
					"entity", entityKey, "chat_id", rec.ChatID, "message_id", rec.MessageID, "error", err)
			}
		}
		if err := s.repo.Delete(ctx, rec.ID); err != nil {
			return fmt.Errorf("notify live: delete old record: %w", err)
		}
	}

	recipients, err := s.users.ListNotifiable(ctx)
	if err != nil {
		return fmt.Errorf("notify live: list recipients: %w", err)
	}
	if len(recipients) == 0 {
		s.logger.InfoContext(ctx, "no eligible recipients for live alert", "entity", entityKey)
		return nil
	}

	text := fmt.Sprintf("🔴 <b>LIVE NOW!</b>\n\n<b>%s</b> started streaming!\n\n<a href=\"%s\">Watch Now</a>", entityKey, link)
	kb := telegram.Keyboard{{
		{Text: "🔕 Turn OFF", CallbackData: "toggle_notifications"},
		{Text: "🗑️ Clear All", CallbackData: "clear_notifications"},
	}}

	var sent int
	for _, u := range recipients {
		messageID, err := s.tg.SendMessage(ctx, u.ID, text, kb)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to send live alert", "entity", entityKey, "user_id", u.ID, "error", err)
			continue
		}
		if err := s.repo.Add(ctx, entityKey, u.ID, messageID); err != nil {
			return err
		}
		sent++
	}

	s.logger.InfoContext(ctx, "live alerts sent", "entity", entityKey, "sent", sent, "recipients", len(recipients))
	return nil
}

// Toggle flips the user's live-alert setting and confirms in place.
func (s *Service) Toggle(ctx context.Context, userID, chatID, messageID int64) error {
	u, err := s.users.Get(ctx, userID)
	if errors.Is(err, user.ErrNotFound) {
		s.logger.WarnContext(ctx, "toggle from unregistered user", "user_id", userID)
		_, sendErr := s.tg.SendMessage(ctx, userID, "❌ Please use /start first to register.", nil)
		return sendErr
	}
	if err != nil {
		return fmt.Errorf("toggle notifications: %w", err)
	}

	enabled := !u.NotificationsEnabled
	if err := s.users.SetNotifications(ctx, userID, enabled); err != nil {
		return fmt.Errorf("toggle notifications: %w", err)
	}
	s.logger.InfoContext(ctx, "notifications toggled", "user_id", userID, "enabled", enabled)

	text := "🔕 Live notifications are now <b>OFF</b>."
	if enabled {
		text = "🔔 Live notifications are now <b>ON</b>."
	}
	kb := telegram.Keyboard{{{Text: "⬅️ Back", CallbackData: "back"}}}
	return s.tg.EditMessageText(ctx, chatID, messageID, text, kb)
}

// Clear removes every stored alert for the chat, remote message first.
// Only allowed in private chats, where chat and user ids coincide.
func (s *Service) Clear(ctx context.Context, userID, chatID, messageID int64) error {
	if chatID != userID {
		return s.tg.EditMessageText(ctx, chatID, messageID,
			"❌ You can only clear notifications in private chat.", nil)
	}

	records, err := s.repo.ListByChat(ctx, chatID)
	if err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}

	var cleared int
	for _, rec := range records {
		if err := s.tg.DeleteMessage(ctx, rec.ChatID, rec.MessageID); err != nil {
			if !errors.Is(err, telegram.ErrMessageGone) {
				s.logger.WarnContext(ctx, "failed to delete alert message",
					"chat_id", rec.ChatID, "message_id", rec.MessageID, "error", err)
			}
		}
		if err := s.repo.Delete(ctx, rec.ID); err != nil {
			return fmt.Errorf("clear notifications: %w", err)
		}
		cleared++
	}

	s.logger.InfoContext(ctx, "notifications cleared", "user_id", userID, "cleared", cleared)
	text := fmt.Sprintf("✅ Cleared %d notification(s).", cleared)
	kb := telegram.Keyboard{{{Text: "⬅️ Back", CallbackData: "back"}}}
	return s.tg.EditMessageText(ctx, chatID, messageID, text, kb)
}
