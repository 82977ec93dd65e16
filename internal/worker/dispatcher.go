package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"iglivez/worker/features/job"
	"iglivez/worker/features/payment"
)

// Result is the outcome of dispatching one job.
type Result int

const (
	// ResultOk completes the job.
	ResultOk Result = iota
	// ResultRetryable requeues the job until the retry ceiling.
	ResultRetryable
	// ResultDropped means the job was deliberately discarded, e.g. rate
	// limited, and counts as handled.
	ResultDropped
)

func (r Result) String() string {
	switch r {
	case ResultOk:
		return "ok"
	case ResultRetryable:
		return "retryable"
	case ResultDropped:
		return "dropped"
	}
	return "unknown"
}

// ActionButtonClick is the rate-limit action gating every callback.
const ActionButtonClick = "button_click"

type UserFlows interface {
	Start(ctx context.Context, userID int64, username, firstName, text string) error
	Account(ctx context.Context, userID, chatID, messageID int64) error
	Referrals(ctx context.Context, userID, chatID, messageID int64) error
	Help(ctx context.Context, userID, chatID, messageID int64) error
	Settings(ctx context.Context, userID, chatID, messageID int64) error
	Back(ctx context.Context, userID, chatID, messageID int64) error
	LanguagePicker(ctx context.Context, userID, chatID, messageID int64) error
	SetLanguage(ctx context.Context, userID, chatID, messageID int64, code string) error
	SetInitialLanguage(ctx context.Context, userID, chatID, messageID int64, code string) error
}

type StreamFlows interface {
	CheckLive(ctx context.Context, userID, chatID, messageID int64, page int) error
}

type PaymentFlows interface {
	Buy(ctx context.Context, userID, chatID, messageID int64) error
	SendInvoice(ctx context.Context, userID int64, packageID string) error
	PreCheckout(ctx context.Context, queryID string, senderID int64, invoicePayload string) error
	ApplySuccessfulPayment(ctx context.Context, senderID int64, chargeID string, totalAmount int, invoicePayload string) error
}

type BroadcastFlows interface {
	Execute(ctx context.Context, raw json.RawMessage) error
	HandleCommand(ctx context.Context, adminID int64, text string) error
}

type NotifyFlows interface {
	NotifyLive(ctx context.Context, entityKey, link string) error
	Toggle(ctx context.Context, userID, chatID, messageID int64) error
	Clear(ctx context.Context, userID, chatID, messageID int64) error
}

type JoinApprover interface {
	ApproveChatJoinRequest(ctx context.Context, chatID, userID int64) error
}

type RateLimiter interface {
	Allowed(subjectID int64, action string) bool
}

// Dispatcher routes claimed jobs to feature services. It holds no business
// logic of its own.
type Dispatcher struct {
	users      UserFlows
	streams    StreamFlows
	payments   PaymentFlows
	broadcasts BroadcastFlows
	notifier   NotifyFlows
	joins      JoinApprover
	limiter    RateLimiter
	isAdmin    func(int64) bool
	logger     *slog.Logger
}

func NewDispatcher(users UserFlows, streams StreamFlows, payments PaymentFlows,
	broadcasts BroadcastFlows, notifier NotifyFlows, joins JoinApprover,
	limiter RateLimiter, isAdmin func(int64) bool, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		users:      users,
		streams:    streams,
		payments:   payments,
		broadcasts: broadcasts,
		notifier:   notifier,
		joins:      joins,
		limiter:    limiter,
		isAdmin:    isAdmin,
		logger:     logger,
	}
}

// Dispatch runs one job and reports the outcome. Panics in handlers are
// recovered and treated as retryable so one bad payload cannot take the
// worker down.
func (d *Dispatcher) Dispatch(ctx context.Context, j *job.Job) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "handler panicked", "job_id", j.ID, "job_type", j.Type, "panic", r)
			result = ResultRetryable
		}
	}()

	switch j.Type {
	case job.TypeProcessUpdate:
		return d.dispatchUpdate(ctx, j)
	case job.TypeBroadcastMessage:
		if err := d.broadcasts.Execute(ctx, j.Payload); err != nil {
			d.logger.ErrorContext(ctx, "broadcast job failed", "job_id", j.ID, "error", err)
			return ResultRetryable
		}
		return ResultOk
	case job.TypeNotifyLive:
		var p NotifyLivePayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			// Known limitation: a payload that never parses burns its
			// retries before parking as failed.
			d.logger.ErrorContext(ctx, "malformed notify_live payload", "job_id", j.ID, "error", err)
			return ResultRetryable
		}
		if err := d.notifier.NotifyLive(ctx, p.Username, p.Link); err != nil {
			d.logger.ErrorContext(ctx, "notify_live job failed", "job_id", j.ID, "error", err)
			return ResultRetryable
		}
		return ResultOk
	}

	d.logger.WarnContext(ctx, "job with unhandled type", "job_id", j.ID, "job_type", j.Type)
	return ResultOk
}

func (d *Dispatcher) dispatchUpdate(ctx context.Context, j *job.Job) Result {
	var u Update
	if err := json.Unmarshal(j.Payload, &u); err != nil {
		d.logger.ErrorContext(ctx, "malformed update payload", "job_id", j.ID, "error", err)
		return ResultRetryable
	}

	switch {
	case u.Message != nil:
		return d.dispatchMessage(ctx, u.Message)
	case u.CallbackQuery != nil:
		return d.dispatchCallback(ctx, u.CallbackQuery)
	case u.PreCheckoutQuery != nil:
		q := u.PreCheckoutQuery
		if q.From == nil {
			d.logger.WarnContext(ctx, "pre-checkout query without sender")
			return ResultOk
		}
		return d.resultOf(ctx, "pre_checkout",
			d.payments.PreCheckout(ctx, q.ID, q.From.ID, q.InvoicePayload))
	case u.ChatJoinRequest != nil:
		r := u.ChatJoinRequest
		if r.From == nil {
			return ResultOk
		}
		return d.resultOf(ctx, "chat_join_request",
			d.joins.ApproveChatJoinRequest(ctx, r.Chat.ID, r.From.ID))
	}

	d.logger.WarnContext(ctx, "update with no routable part")
	return ResultOk
}

func (d *Dispatcher) dispatchMessage(ctx context.Context, m *Message) Result {
	if m.From == nil {
		d.logger.WarnContext(ctx, "message without sender")
		return ResultOk
	}
	sender := m.From

	if m.SuccessfulPayment != nil {
		sp := m.SuccessfulPayment
		return d.resultOf(ctx, "successful_payment",
			d.payments.ApplySuccessfulPayment(ctx, sender.ID, sp.TelegramPaymentChargeID, sp.TotalAmount, sp.InvoicePayload))
	}

	switch {
	case strings.HasPrefix(m.Text, "/start"):
		return d.resultOf(ctx, "start",
			d.users.Start(ctx, sender.ID, sender.Username, sender.FirstName, m.Text))
	case strings.HasPrefix(m.Text, "/broadcast"):
		if !d.isAdmin(sender.ID) {
			d.logger.WarnContext(ctx, "broadcast command from non-admin", "user_id", sender.ID)
			return ResultOk
		}
		return d.resultOf(ctx, "broadcast_command",
			d.broadcasts.HandleCommand(ctx, sender.ID, m.Text))
	case strings.HasPrefix(m.Text, "/init"), strings.HasPrefix(m.Text, "/activate"):
		// Reserved commands, acknowledged via Start's messenger elsewhere.
		d.logger.InfoContext(ctx, "reserved command used", "user_id", sender.ID, "text", m.Text)
		return ResultOk
	}

	d.logger.DebugContext(ctx, "unroutable message ignored", "user_id", sender.ID)
	return ResultOk
}

func (d *Dispatcher) dispatchCallback(ctx context.Context, cb *CallbackQuery) Result {
	if cb.From == nil || cb.Message == nil {
		d.logger.WarnContext(ctx, "callback query missing sender or message")
		return ResultOk
	}
	sender := cb.From.ID
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	if !d.limiter.Allowed(sender, ActionButtonClick) {
		d.logger.InfoContext(ctx, "callback dropped by rate limit", "user_id", sender, "data", cb.Data)
		return ResultDropped
	}

	action := ParseAction(cb.Data)
	switch action.Kind {
	case ActionMyAccount:
		return d.resultOf(ctx, "my_account", d.users.Account(ctx, sender, chatID, messageID))
	case ActionCheckLive:
		return d.resultOf(ctx, "check_live", d.streams.CheckLive(ctx, sender, chatID, messageID, action.Page))
	case ActionBack:
		return d.resultOf(ctx, "back", d.users.Back(ctx, sender, chatID, messageID))
	case ActionHelp:
		return d.resultOf(ctx, "help", d.users.Help(ctx, sender, chatID, messageID))
	case ActionReferrals:
		return d.resultOf(ctx, "referrals", d.users.Referrals(ctx, sender, chatID, messageID))
	case ActionSettings:
		return d.resultOf(ctx, "settings", d.users.Settings(ctx, sender, chatID, messageID))
	case ActionBuy:
		return d.resultOf(ctx, "buy", d.payments.Buy(ctx, sender, chatID, messageID))
	case ActionToggleNotify:
		return d.resultOf(ctx, "toggle_notifications", d.notifier.Toggle(ctx, sender, chatID, messageID))
	case ActionClearNotify:
		return d.resultOf(ctx, "clear_notifications", d.notifier.Clear(ctx, sender, chatID, messageID))
	case ActionPay:
		err := d.payments.SendInvoice(ctx, sender, action.Arg)
		if errors.Is(err, payment.ErrUnknownPackage) {
			// Stale button; retrying cannot fix it.
			return ResultOk
		}
		return d.resultOf(ctx, "pay", err)
	case ActionSetInitLang:
		return d.resultOf(ctx, "setlang", d.users.SetInitialLanguage(ctx, sender, chatID, messageID, action.Arg))
	case ActionLangPicker:
		return d.resultOf(ctx, "lang_picker", d.users.LanguagePicker(ctx, sender, chatID, messageID))
	case ActionChangeLang:
		return d.resultOf(ctx, "lang", d.users.SetLanguage(ctx, sender, chatID, messageID, action.Arg))
	}

	d.logger.WarnContext(ctx, "unknown callback action", "user_id", sender, "data", cb.Data)
	return ResultOk
}

func (d *Dispatcher) resultOf(ctx context.Context, handler string, err error) Result {
	if err != nil {
		d.logger.ErrorContext(ctx, "handler failed", "handler", handler, "error", err)
		return ResultRetryable
	}
	return ResultOk
}
