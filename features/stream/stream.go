package stream

import "time"

// Stream is one tracked Instagram account and its current liveness.
type Stream struct {
	Username   string     `json:"username"`
	Link       string     `json:"link"`
	IsLive     bool       `json:"isLive"`
	LastLiveAt *time.Time `json:"lastLiveAt,omitempty"`
	TotalLives int        `json:"totalLives"`
}
