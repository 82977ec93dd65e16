package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrMessageGone is returned when Telegram reports the target message no
// longer exists or cannot be touched. Callers that delete old alerts treat
// it as already done.
var ErrMessageGone = errors.New("telegram: message gone")

// Button is one inline keyboard button. Exactly one of CallbackData or URL
// should be set.
type Button struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

// Keyboard is an inline keyboard, rows of buttons. A nil Keyboard means no
// reply markup.
type Keyboard [][]Button

// LabeledPrice is one line of an invoice price breakdown. Amounts are in
// Telegram Stars.
type LabeledPrice struct {
	Label  string `json:"label"`
	Amount int    `json:"amount"`
}

// Client talks to the Telegram Bot API over HTTP. Feature packages consume
// it through their own narrow interfaces.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

type Option func(*Client)

// WithBaseURL overrides the API endpoint, for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: "https://api.telegram.org",
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

type messageResult struct {
	MessageID int64 `json:"message_id"`
}

func (c *Client) call(ctx context.Context, method string, payload interface{}, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal %s: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s: %w", method, err)
	}
	defer resp.Body.Close()

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return fmt.Errorf("telegram: decode %s response: %w", method, err)
	}
	if !api.OK {
		if api.ErrorCode == http.StatusBadRequest || api.ErrorCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrMessageGone, api.Description)
		}
		return fmt.Errorf("telegram: %s: %s (code %d)", method, api.Description, api.ErrorCode)
	}
	if result != nil {
		if err := json.Unmarshal(api.Result, result); err != nil {
			return fmt.Errorf("telegram: decode %s result: %w", method, err)
		}
	}
	return nil
}

func replyMarkup(kb Keyboard) map[string]interface{} {
	if kb == nil {
		return nil
	}
	return map[string]interface{}{"inline_keyboard": kb}
}

// SendMessage sends a text message and returns the new message id.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) (int64, error) {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if m := replyMarkup(kb); m != nil {
		payload["reply_markup"] = m
	}
	var res messageResult
	if err := c.call(ctx, "sendMessage", payload, &res); err != nil {
		return 0, err
	}
	return res.MessageID, nil
}

func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string, kb Keyboard) error {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
		"parse_mode": "HTML",
	}
	if m := replyMarkup(kb); m != nil {
		payload["reply_markup"] = m
	}
	return c.call(ctx, "editMessageText", payload, nil)
}

func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
	}
	return c.call(ctx, "deleteMessage", payload, nil)
}

func (c *Client) SendPhoto(ctx context.Context, chatID int64, fileID, caption string) (int64, error) {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"photo":      fileID,
		"caption":    caption,
		"parse_mode": "HTML",
	}
	var res messageResult
	if err := c.call(ctx, "sendPhoto", payload, &res); err != nil {
		return 0, err
	}
	return res.MessageID, nil
}

func (c *Client) SendVideo(ctx context.Context, chatID int64, fileID, caption string) (int64, error) {
	payload := map[string]interface{}{
		"chat_id":    chatID,
		"video":      fileID,
		"caption":    caption,
		"parse_mode": "HTML",
	}
	var res messageResult
	if err := c.call(ctx, "sendVideo", payload, &res); err != nil {
		return 0, err
	}
	return res.MessageID, nil
}

// SendInvoice sends a Telegram Stars invoice (currency XTR, empty provider
// token).
func (c *Client) SendInvoice(ctx context.Context, chatID int64, title, description, payload string, prices []LabeledPrice) error {
	body := map[string]interface{}{
		"chat_id":        chatID,
		"title":          title,
		"description":    description,
		"payload":        payload,
		"provider_token": "",
		"currency":       "XTR",
		"prices":         prices,
	}
	return c.call(ctx, "sendInvoice", body, nil)
}

func (c *Client) AnswerPreCheckoutQuery(ctx context.Context, queryID string, ok bool, errorMessage string) error {
	payload := map[string]interface{}{
		"pre_checkout_query_id": queryID,
		"ok":                    ok,
	}
	if !ok && errorMessage != "" {
		payload["error_message"] = errorMessage
	}
	return c.call(ctx, "answerPreCheckoutQuery", payload, nil)
}

func (c *Client) ApproveChatJoinRequest(ctx context.Context, chatID, userID int64) error {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"user_id": userID,
	}
	return c.call(ctx, "approveChatJoinRequest", payload, nil)
}
