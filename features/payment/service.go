package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"iglivez/worker/features/user"
	"iglivez/worker/internal/adapter/telegram"
)

// Telegram closes the checkout if the pre-checkout query is not answered
// within 10 seconds.
const preCheckoutDeadline = 10 * time.Second

const StatusCompleted = "completed"

var ErrUnknownPackage = errors.New("unknown package")

type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb telegram.Keyboard) (int64, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, kb telegram.Keyboard) error
	SendInvoice(ctx context.Context, chatID int64, title, description, payload string, prices []telegram.LabeledPrice) error
	AnswerPreCheckoutQuery(ctx context.Context, queryID string, ok bool, errorMessage string) error
}

type UserStore interface {
	Get(ctx context.Context, id int64) (*user.User, error)
	AddPoints(ctx context.Context, id int64, delta int) error
	ExtendSubscription(ctx context.Context, id int64, d time.Duration) error
}

type Service struct {
	repo   Repository
	users  UserStore
	tg     Messenger
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, users UserStore, tg Messenger, logger *slog.Logger) *Service {
	return &Service{repo: repo, users: users, tg: tg, logger: logger, now: time.Now}
}

// Buy renders the package menu in place of the current message.
func (s *Service) Buy(ctx context.Context, userID, chatID, messageID int64) error {
	var b strings.Builder
	b.WriteString("⭐ <b>BUY POINTS / PREMIUM</b>\n\n")
	b.WriteString("Pay with Telegram Stars:\n\n")

	var kb telegram.Keyboard
	for _, id := range packageOrder {
		p := Packages[id]
		fmt.Fprintf(&b, "• <b>%s</b> — ⭐%d\n  %s\n", p.Title, p.Stars, p.Desc)
		kb = append(kb, []telegram.Button{{
			Text:         fmt.Sprintf("%s (⭐%d)", p.Title, p.Stars),
			CallbackData: "pay:" + p.ID,
		}})
	}
	kb = append(kb, []telegram.Button{{Text: "⬅️ Back", CallbackData: "back"}})

	return s.tg.EditMessageText(ctx, chatID, messageID, b.String(), kb)
}

// SendInvoice issues a Stars invoice for pay:<package>. The invoice payload
// binds the package to the buyer so pre-checkout can verify both.
func (s *Service) SendInvoice(ctx context.Context, userID int64, packageID string) error {
	p, ok := Packages[packageID]
	if !ok {
		s.logger.WarnContext(ctx, "pay callback with unknown package", "user_id", userID, "package", packageID)
		return ErrUnknownPackage
	}

	payload := fmt.Sprintf("%s:%d", p.ID, userID)
	err := s.tg.SendInvoice(ctx, userID, p.Title, p.Desc, payload,
		[]telegram.LabeledPrice{{Label: p.Title, Amount: p.Stars}})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to send invoice", "user_id", userID, "package", packageID, "error", err)
		_, sendErr := s.tg.SendMessage(ctx, userID,
			"⚠️ Couldn't process the payment request. Try again later.", nil)
		if sendErr != nil {
			return err
		}
		return err
	}
	s.logger.InfoContext(ctx, "invoice sent", "user_id", userID, "package", packageID, "stars", p.Stars)
	return nil
}

// PreCheckout validates and answers a pre-checkout query under a hard
// deadline. Validation failures are answered, not returned: a retry would
// arrive after Telegram gave up on the checkout.
func (s *Service) PreCheckout(ctx context.Context, queryID string, senderID int64, invoicePayload string) error {
	ctx, cancel := context.WithTimeout(ctx, preCheckoutDeadline)
	defer cancel()

	packageID, payloadUser, err := parsePayload(invoicePayload)
	if err != nil {
		s.logger.ErrorContext(ctx, "malformed invoice payload", "sender_id", senderID, "payload", invoicePayload)
		return s.tg.AnswerPreCheckoutQuery(ctx, queryID, false, "Payment validation failed")
	}
	if payloadUser != senderID {
		s.logger.ErrorContext(ctx, "invoice payload user mismatch", "sender_id", senderID, "payload_user", payloadUser)
		return s.tg.AnswerPreCheckoutQuery(ctx, queryID, false, "User verification failed")
	}
	if _, ok := Packages[packageID]; !ok {
		s.logger.ErrorContext(ctx, "invoice payload for unknown package", "sender_id", senderID, "package", packageID)
		return s.tg.AnswerPreCheckoutQuery(ctx, queryID, false, "Invalid package")
	}

	if err := s.tg.AnswerPreCheckoutQuery(ctx, queryID, true, ""); err != nil {
		return fmt.Errorf("approve pre-checkout %s: %w", queryID, err)
	}
	s.logger.InfoContext(ctx, "pre-checkout approved", "sender_id", senderID, "package", packageID)
	return nil
}

// ApplySuccessfulPayment records the ledger row and grants the purchase.
func (s *Service) ApplySuccessfulPayment(ctx context.Context, senderID int64, chargeID string, totalAmount int, invoicePayload string) error {
	packageID, payloadUser, err := parsePayload(invoicePayload)
	if err != nil {
		return fmt.Errorf("successful payment: %w", err)
	}
	if payloadUser != senderID {
		return fmt.Errorf("successful payment: payload user %d does not match sender %d", payloadUser, senderID)
	}
	p, ok := Packages[packageID]
	if !ok {
		return fmt.Errorf("successful payment: %w: %s", ErrUnknownPackage, packageID)
	}

	now := s.now().UTC()
	record := &Payment{
		UserID:      senderID,
		ChargeID:    chargeID,
		Amount:      totalAmount,
		PackageType: p.ID,
		Status:      StatusCompleted,
		CompletedAt: &now,
	}
	if err := s.repo.Record(ctx, record); err != nil {
		return err
	}

	var confirmation string
	switch {
	case p.Points > 0:
		if err := s.users.AddPoints(ctx, senderID, p.Points); err != nil {
			return fmt.Errorf("apply points: %w", err)
		}
		confirmation = fmt.Sprintf("✅ <b>Payment Successful!</b>\n\n💎 +%d points added", p.Points)
		if u, err := s.users.Get(ctx, senderID); err == nil {
			confirmation += fmt.Sprintf("\n💰 New balance: %d points", u.Points)
		}
	case p.Days > 0:
		d := time.Duration(p.Days) * 24 * time.Hour
		if err := s.users.ExtendSubscription(ctx, senderID, d); err != nil {
			return fmt.Errorf("extend subscription: %w", err)
		}
		confirmation = fmt.Sprintf("✅ <b>Payment Successful!</b>\n\n🌟 Premium activated for %d days!\n♾️ Unlimited checks enabled.", p.Days)
	}

	s.logger.InfoContext(ctx, "payment processed",
		"user_id", senderID, "package", p.ID, "stars", totalAmount, "charge_id", chargeID)

	if _, err := s.tg.SendMessage(ctx, senderID, confirmation, nil); err != nil {
		// Purchase already granted; a lost confirmation must not fail the job.
		s.logger.ErrorContext(ctx, "failed to send payment confirmation", "user_id", senderID, "error", err)
	}
	return nil
}

// parsePayload splits "<package>:<user>" invoice payloads.
func parsePayload(payload string) (packageID string, userID int64, err error) {
	idx := strings.LastIndex(payload, ":")
	if idx <= 0 {
		return "", 0, fmt.Errorf("invalid invoice payload %q", payload)
	}
	userID, err = strconv.ParseInt(payload[idx+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid invoice payload %q: %w", payload, err)
	}
	return payload[:idx], userID, nil
}
