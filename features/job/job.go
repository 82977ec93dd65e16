package job

import (
	"encoding/json"
	"time"
)

// Type is the closed tag selecting the dispatch path for a job.
type Type string

const (
	TypeProcessUpdate    Type = "process_telegram_update"
	TypeBroadcastMessage Type = "broadcast_message"
	TypeNotifyLive       Type = "notify_live"

	// TypeSendToGroups is produced for the external group sender and is
	// never claimed by this worker.
	TypeSendToGroups Type = "send_to_groups"
)

// Status lifecycle: pending -> processing -> completed, or back to pending
// on failure until the retry ceiling, then failed. completed and failed
// are terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

type Job struct {
	ID        int64           `json:"job_id"`
	Type      Type            `json:"job_type"`
	Payload   json.RawMessage `json:"payload"`
	Status    Status          `json:"status"`
	Retries   int             `json:"retries"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
