package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"iglivez/worker/internal/adapter/telegram"
)

// Messenger is the slice of the Telegram client this feature needs.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb telegram.Keyboard) (int64, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, kb telegram.Keyboard) error
}

type Config struct {
	DailyPoints   int
	ReferralBonus int
	BotUsername   string
}

type Service struct {
	repo   Repository
	tg     Messenger
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, tg Messenger, cfg Config, logger *slog.Logger) *Service {
	return &Service{repo: repo, tg: tg, cfg: cfg, logger: logger, now: time.Now}
}

// Start handles /start. New users are registered (crediting the referrer
// when the command carries one) and shown the language picker; returning
// users get their daily point reset and the main menu.
func (s *Service) Start(ctx context.Context, userID int64, username, firstName, text string) error {
	now := s.now().UTC()

	existing, err := s.repo.Get(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("start: %w", err)
	}

	if existing == nil {
		referrer := parseReferrer(text, userID)
		u := &User{
			ID:                   userID,
			Username:             username,
			FirstName:            firstName,
			Points:               s.cfg.DailyPoints,
			Language:             LangEnglish,
			LastSeen:             now,
			ReferredByID:         referrer,
			NotificationsEnabled: true,
		}
		if err := s.repo.Create(ctx, u); err != nil {
			return fmt.Errorf("start: %w", err)
		}
		s.logger.InfoContext(ctx, "new user registered", "user_id", userID, "referred_by", referrer)

		if referrer != nil {
			if err := s.repo.AddPoints(ctx, *referrer, s.cfg.ReferralBonus); err != nil {
				s.logger.ErrorContext(ctx, "failed to credit referrer", "referrer_id", *referrer, "error", err)
			} else {
				s.logger.InfoContext(ctx, "referral bonus credited", "referrer_id", *referrer, "bonus", s.cfg.ReferralBonus)
			}
		}

		_, err := s.tg.SendMessage(ctx, userID, tr(LangEnglish, "pick_language"), initialLanguageKeyboard())
		return err
	}

	prefix := tr(existing.Language, "welcome_back")
	if isNewDay(existing.LastSeen, now) && !existing.IsPremium(now) {
		if err := s.repo.SetPoints(ctx, userID, s.cfg.DailyPoints, now); err != nil {
			return fmt.Errorf("daily reset: %w", err)
		}
		prefix = tr(existing.Language, "daily_reset")
		s.logger.InfoContext(ctx, "daily points reset", "user_id", userID, "points", s.cfg.DailyPoints)
	} else if err := s.repo.Touch(ctx, userID, now); err != nil {
		return fmt.Errorf("touch: %w", err)
	}

	text = prefix + "\n\n" + s.mainMenuText(existing.Language)
	_, err = s.tg.SendMessage(ctx, userID, text, mainMenuKeyboard(existing.Language))
	return err
}

// Account renders the account card in place of the menu message.
func (s *Service) Account(ctx context.Context, userID, chatID, messageID int64) error {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return s.requireStart(ctx, userID, err)
	}
	referrals, err := s.repo.CountReferrals(ctx, userID)
	if err != nil {
		return fmt.Errorf("account: %w", err)
	}

	now := s.now().UTC()
	var b strings.Builder
	fmt.Fprintf(&b, "👤 <b>YOUR ACCOUNT</b>\n\n")
	fmt.Fprintf(&b, "Name: %s\n", u.FirstName)
	fmt.Fprintf(&b, "User ID: %d\n", u.ID)
	fmt.Fprintf(&b, "Referrals: %d\n\n", referrals)
	if u.IsPremium(now) {
		daysLeft := int(u.SubscriptionEnd.Sub(now).Hours() / 24)
		fmt.Fprintf(&b, "💎 <b>PREMIUM</b>\nUnlimited checks\nValid until: %s (%d days left)\n",
			u.SubscriptionEnd.Format("Jan 02, 2006"), daysLeft)
	} else {
		fmt.Fprintf(&b, "💰 <b>FREE ACCOUNT</b>\nPoints: %d/%d\nResets daily at midnight UTC\n",
			u.Points, s.cfg.DailyPoints)
	}

	kb := telegram.Keyboard{
		{{Text: tr(u.Language, "buy"), CallbackData: "buy"}},
		{{Text: tr(u.Language, "referrals"), CallbackData: "referrals"}},
		{{Text: tr(u.Language, "back"), CallbackData: "back"}},
	}
	return s.tg.EditMessageText(ctx, chatID, messageID, b.String(), kb)
}

// Referrals shows the user's referral link and running total.
func (s *Service) Referrals(ctx context.Context, userID, chatID, messageID int64) error {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return s.requireStart(ctx, userID, err)
	}
	count, err := s.repo.CountReferrals(ctx, userID)
	if err != nil {
		return fmt.Errorf("referrals: %w", err)
	}

	link := fmt.Sprintf("https://t.me/%s?start=%d", s.cfg.BotUsername, userID)
	text := fmt.Sprintf("🎁 <b>REFERRALS</b>\n\nInvite friends and earn %d points per signup.\n\nYour link:\n%s\n\nFriends invited: %d",
		s.cfg.ReferralBonus, link, count)

	kb := telegram.Keyboard{{{Text: tr(u.Language, "back"), CallbackData: "back"}}}
	return s.tg.EditMessageText(ctx, chatID, messageID, text, kb)
}

func (s *Service) Help(ctx context.Context, userID, chatID, messageID int64) error {
	lang := s.languageOf(ctx, userID)
	text := "❓ <b>HELP</b>\n\n" +
		"🔴 Check Live shows who is streaming right now (1 point per check).\n" +
		fmt.Sprintf("💎 Free accounts get %d points per day, premium is unlimited.\n", s.cfg.DailyPoints) +
		fmt.Sprintf("🎁 Each friend you invite earns you %d points.\n", s.cfg.ReferralBonus) +
		"🔔 Premium accounts can receive live alerts, see Settings."
	kb := telegram.Keyboard{{{Text: tr(lang, "back"), CallbackData: "back"}}}
	return s.tg.EditMessageText(ctx, chatID, messageID, text, kb)
}

// Settings renders the settings menu. The notification toggle rows are
// owned by the notify feature and routed there.
func (s *Service) Settings(ctx context.Context, userID, chatID, messageID int64) error {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return s.requireStart(ctx, userID, err)
	}

	notif := "🔕 Off"
	if u.NotificationsEnabled {
		notif = "🔔 On"
	}
	text := fmt.Sprintf("⚙️ <b>SETTINGS</b>\n\nLanguage: %s\nLive notifications: %s",
		LanguageNames[u.Language], notif)

	kb := telegram.Keyboard{
		{{Text: "🌍 Change Language", CallbackData: "lang:select"}},
		{{Text: "🔔 Toggle Notifications", CallbackData: "toggle_notifications"}},
		{{Text: "🧹 Clear Notifications", CallbackData: "clear_notifications"}},
		{{Text: tr(u.Language, "back"), CallbackData: "back"}},
	}
	return s.tg.EditMessageText(ctx, chatID, messageID, text, kb)
}

// Back returns to the main menu in place.
func (s *Service) Back(ctx context.Context, userID, chatID, messageID int64) error {
	lang := s.languageOf(ctx, userID)
	return s.tg.EditMessageText(ctx, chatID, messageID, s.mainMenuText(lang), mainMenuKeyboard(lang))
}

// LanguagePicker shows the picker from the settings menu.
func (s *Service) LanguagePicker(ctx context.Context, userID, chatID, messageID int64) error {
	lang := s.languageOf(ctx, userID)
	return s.tg.EditMessageText(ctx, chatID, messageID, tr(lang, "pick_language"), languageKeyboard("lang"))
}

// SetLanguage changes an existing user's language and returns to the menu.
func (s *Service) SetLanguage(ctx context.Context, userID, chatID, messageID int64, code string) error {
	if !ValidLanguage(code) {
		s.logger.WarnContext(ctx, "ignoring unknown language code", "user_id", userID, "code", code)
		return nil
	}
	if err := s.repo.SetLanguage(ctx, userID, code); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	return s.tg.EditMessageText(ctx, chatID, messageID, s.mainMenuText(code), mainMenuKeyboard(code))
}

// SetInitialLanguage confirms a new user's language choice and shows the
// main menu for the first time.
func (s *Service) SetInitialLanguage(ctx context.Context, userID, chatID, messageID int64, code string) error {
	if !ValidLanguage(code) {
		code = LangEnglish
	}
	if err := s.repo.SetLanguage(ctx, userID, code); err != nil {
		return fmt.Errorf("set initial language: %w", err)
	}
	s.logger.InfoContext(ctx, "initial language set", "user_id", userID, "language", code)
	return s.tg.EditMessageText(ctx, chatID, messageID, s.mainMenuText(code), mainMenuKeyboard(code))
}

func (s *Service) mainMenuText(lang string) string {
	return tr(lang, "bot_title") + "\n\n" + tr(lang, "choose_option")
}

func mainMenuKeyboard(lang string) telegram.Keyboard {
	return telegram.Keyboard{
		{{Text: tr(lang, "check_live"), CallbackData: "check_live"}},
		{
			{Text: tr(lang, "my_account"), CallbackData: "my_account"},
			{Text: tr(lang, "referrals"), CallbackData: "referrals"},
		},
		{
			{Text: tr(lang, "help"), CallbackData: "help"},
			{Text: tr(lang, "settings"), CallbackData: "settings"},
		},
	}
}

// languageKeyboard builds the picker with the given callback namespace,
// "setlang" for first-time selection and "lang" for later changes.
func languageKeyboard(namespace string) telegram.Keyboard {
	return telegram.Keyboard{
		{
			{Text: LanguageNames[LangEnglish], CallbackData: namespace + ":" + LangEnglish},
			{Text: LanguageNames[LangRussian], CallbackData: namespace + ":" + LangRussian},
		},
		{
			{Text: LanguageNames[LangSpanish], CallbackData: namespace + ":" + LangSpanish},
		},
	}
}

func initialLanguageKeyboard() telegram.Keyboard {
	return languageKeyboard("setlang")
}

// requireStart nudges unregistered users toward /start instead of failing
// the job.
func (s *Service) requireStart(ctx context.Context, userID int64, err error) error {
	if errors.Is(err, ErrNotFound) {
		s.logger.WarnContext(ctx, "callback from unregistered user", "user_id", userID)
		_, sendErr := s.tg.SendMessage(ctx, userID, "❌ Please use /start first to register.", nil)
		return sendErr
	}
	return err
}

func (s *Service) languageOf(ctx context.Context, userID int64) string {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return LangEnglish
	}
	return u.Language
}

// parseReferrer extracts the referrer id from "/start <id>". Self-referrals
// and junk are ignored.
func parseReferrer(text string, userID int64) *int64 {
	parts := strings.Fields(text)
	if len(parts) < 2 {
		return nil
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || id == userID {
		return nil
	}
	return &id
}

// isNewDay reports whether now falls on a later UTC calendar day than seen.
func isNewDay(seen, now time.Time) bool {
	sy, sm, sd := seen.UTC().Date()
	ny, nm, nd := now.UTC().Date()
	return ny > sy || (ny == sy && nm > sm) || (ny == sy && nm == sm && nd > sd)
}
