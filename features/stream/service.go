package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"iglivez/worker/features/user"
	"iglivez/worker/internal/adapter/telegram"
)

// The check_live flow runs behind two gates: ActionCheck caps the flow as
// a whole, ActionCheckLogic guards the listing itself. Both are separate
// from the generic button_click gate.
const (
	ActionCheck      = "check_live"
	ActionCheckLogic = "live_check_logic"
)

type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb telegram.Keyboard) (int64, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, kb telegram.Keyboard) error
}

type UserStore interface {
	Get(ctx context.Context, id int64) (*user.User, error)
	AddPoints(ctx context.Context, id int64, delta int) error
}

type RateLimiter interface {
	Allowed(subjectID int64, action string) bool
	ResetInSeconds(subjectID int64, action string) int
}

type Config struct {
	PerPage     int
	DailyPoints int
}

type Service struct {
	repo    Repository
	users   UserStore
	tg      Messenger
	limiter RateLimiter
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(repo Repository, users UserStore, tg Messenger, limiter RateLimiter, cfg Config, logger *slog.Logger) *Service {
	return &Service{repo: repo, users: users, tg: tg, limiter: limiter, cfg: cfg, logger: logger, now: time.Now}
}

// CheckLive renders the live-stream listing in place of the menu message.
// Free users pay one point for page 1; deeper pages of the same listing are
// free. The point is refunded when the listing itself fails.
func (s *Service) CheckLive(ctx context.Context, userID, chatID, messageID int64, page int) error {
	for _, action := range []string{ActionCheck, ActionCheckLogic} {
		if !s.limiter.Allowed(userID, action) {
			wait := s.limiter.ResetInSeconds(userID, action)
			s.logger.WarnContext(ctx, "live check rate limited",
				"user_id", userID, "action", action, "reset_in_s", wait)
			text := fmt.Sprintf("⏳ Too many checks. Try again in %d seconds.", wait)
			return s.tg.EditMessageText(ctx, chatID, messageID, text, backKeyboard())
		}
	}

	u, err := s.users.Get(ctx, userID)
	if errors.Is(err, user.ErrNotFound) {
		s.logger.WarnContext(ctx, "check_live from unregistered user", "user_id", userID)
		_, sendErr := s.tg.SendMessage(ctx, userID, "❌ Please use /start first to register.", nil)
		return sendErr
	}
	if err != nil {
		return fmt.Errorf("check live: %w", err)
	}

	now := s.now().UTC()
	premium := u.IsPremium(now)
	deducted := false

	if !premium && page <= 1 {
		if u.Points <= 0 {
			return s.sendNoPoints(ctx, userID)
		}
		if err := s.users.AddPoints(ctx, userID, -1); err != nil {
			return fmt.Errorf("deduct point: %w", err)
		}
		u.Points--
		deducted = true
	}

	streams, err := s.repo.ListLive(ctx)
	if err != nil {
		if deducted {
			if refundErr := s.users.AddPoints(ctx, userID, 1); refundErr != nil {
				s.logger.ErrorContext(ctx, "failed to refund point", "user_id", userID, "error", refundErr)
			}
		}
		return fmt.Errorf("list live: %w", err)
	}

	text, kb := s.renderListing(u, streams, page, premium, now)
	return s.tg.EditMessageText(ctx, chatID, messageID, text, kb)
}

func (s *Service) renderListing(u *user.User, streams []Stream, page int, premium bool, now time.Time) (string, telegram.Keyboard) {
	perPage := s.cfg.PerPage
	if perPage <= 0 {
		perPage = 5
	}
	total := len(streams)
	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	var b strings.Builder
	b.WriteString("🔴 <b>LIVE NOW</b>\n\n")
	if total == 0 {
		b.WriteString("😴 No one is live right now. Check back in a few minutes.\n")
	} else {
		if totalPages > 1 {
			fmt.Fprintf(&b, "Page %d/%d, %d streams total\n\n", page, totalPages, total)
		} else {
			fmt.Fprintf(&b, "Found %d live stream(s)!\n\n", total)
		}
		start := (page - 1) * perPage
		end := start + perPage
		if end > total {
			end = total
		}
		for i, st := range streams[start:end] {
			fmt.Fprintf(&b, "%d. 🔴 <a href=\"%s\">%s</a>\n", start+i+1, st.Link, st.Username)
			if st.TotalLives > 0 {
				fmt.Fprintf(&b, "   📊 Total lives: %d\n", st.TotalLives)
			}
		}
	}

	b.WriteString("\n")
	if premium {
		b.WriteString("💎 Status: Premium (Unlimited)\n")
	} else {
		fmt.Fprintf(&b, "💰 Points left: %d/%d\n", u.Points, s.cfg.DailyPoints)
		untilReset := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
			Add(24 * time.Hour).Sub(now)
		fmt.Fprintf(&b, "⏰ Reset in: %dh %dm\n", int(untilReset.Hours()), int(untilReset.Minutes())%60)
	}

	var kb telegram.Keyboard
	if totalPages > 1 {
		var nav []telegram.Button
		if page > 1 {
			nav = append(nav, telegram.Button{Text: "⬅️ Previous", CallbackData: fmt.Sprintf("check_live:%d", page-1)})
		}
		if page < totalPages {
			nav = append(nav, telegram.Button{Text: "Next ➡️", CallbackData: fmt.Sprintf("check_live:%d", page+1)})
		}
		kb = append(kb, nav)
	}
	if !premium {
		kb = append(kb, []telegram.Button{{Text: "🌟 Upgrade to Unlimited", CallbackData: "buy"}})
	}
	kb = append(kb, []telegram.Button{{Text: "🔄 Refresh", CallbackData: "check_live"}})
	kb = append(kb, []telegram.Button{{Text: "⬅️ Back to Menu", CallbackData: "back"}})
	return b.String(), kb
}

func (s *Service) sendNoPoints(ctx context.Context, userID int64) error {
	text := "😢 <b>No Points Left!</b>\n\n" +
		"🌟 Upgrade to premium for unlimited checks.\n" +
		"🔄 Or wait: points reset at midnight UTC.\n" +
		"🎁 Or refer friends for bonus points."
	kb := telegram.Keyboard{
		{{Text: "🌟 Upgrade Now", CallbackData: "buy"}},
		{{Text: "🎁 Get Referral Link", CallbackData: "referrals"}},
		{{Text: "⬅️ Back", CallbackData: "back"}},
	}
	_, err := s.tg.SendMessage(ctx, userID, text, kb)
	return err
}

func backKeyboard() telegram.Keyboard {
	return telegram.Keyboard{{{Text: "⬅️ Back", CallbackData: "back"}}}
}
