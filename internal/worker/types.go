package worker

// Telegram update DTOs, trimmed to the fields the dispatcher routes on.

type Update struct {
	Message          *Message          `json:"message,omitempty"`
	CallbackQuery    *CallbackQuery    `json:"callback_query,omitempty"`
	PreCheckoutQuery *PreCheckoutQuery `json:"pre_checkout_query,omitempty"`
	ChatJoinRequest  *ChatJoinRequest  `json:"chat_join_request,omitempty"`
}

type Sender struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LanguageCode string `json:"language_code"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type Message struct {
	MessageID         int64              `json:"message_id"`
	From              *Sender            `json:"from"`
	Chat              Chat               `json:"chat"`
	Text              string             `json:"text"`
	SuccessfulPayment *SuccessfulPayment `json:"successful_payment,omitempty"`
}

type SuccessfulPayment struct {
	Currency                string `json:"currency"`
	TotalAmount             int    `json:"total_amount"`
	InvoicePayload          string `json:"invoice_payload"`
	TelegramPaymentChargeID string `json:"telegram_payment_charge_id"`
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    *Sender  `json:"from"`
	Message *Message `json:"message"`
	Data    string   `json:"data"`
}

type PreCheckoutQuery struct {
	ID             string  `json:"id"`
	From           *Sender `json:"from"`
	InvoicePayload string  `json:"invoice_payload"`
	TotalAmount    int     `json:"total_amount"`
}

type ChatJoinRequest struct {
	Chat Chat    `json:"chat"`
	From *Sender `json:"from"`
}

// LiveStatusEvent is the live.status NSQ message published by the external
// Instagram checker.
type LiveStatusEvent struct {
	Username string `json:"username"`
	Link     string `json:"link"`
	IsLive   bool   `json:"is_live"`
}

// NotifyLivePayload is the notify_live job payload.
type NotifyLivePayload struct {
	Username string `json:"username"`
	Link     string `json:"link"`
}
