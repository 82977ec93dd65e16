package notify

import "time"

// Record tracks one delivered live alert, so the next alert for the same
// entity can replace it instead of piling up.
type Record struct {
	ID        int64     `json:"id"`
	EntityKey string    `json:"entityKey"`
	ChatID    int64     `json:"chatId"`
	MessageID int64     `json:"messageId"`
	SentAt    time.Time `json:"sentAt"`
}
