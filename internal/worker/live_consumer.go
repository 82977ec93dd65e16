package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nsqio/go-nsq"
	"iglivez/worker/features/job"
	"iglivez/worker/internal/middleware"
)

// StreamStore updates liveness and reports live transitions.
type StreamStore interface {
	SetLiveStatus(ctx context.Context, username, link string, isLive bool) (becameLive bool, err error)
}

// JobEnqueuer inserts follow-up jobs.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, jobType job.Type, payload json.RawMessage) (int64, error)
}

// LiveConsumer ingests live.status events from the external Instagram
// checker, keeps insta_links current, and enqueues a notify_live job when
// an account flips to live.
type LiveConsumer struct {
	streams StreamStore
	jobs    JobEnqueuer
	logger  *slog.Logger
}

func NewLiveConsumer(streams StreamStore, jobs JobEnqueuer, logger *slog.Logger) *LiveConsumer {
	return &LiveConsumer{streams: streams, jobs: jobs, logger: logger}
}

func (c *LiveConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	ctx := middleware.WithCorrelationID(context.Background(), uuid.New().String())

	var ev LiveStatusEvent
	if err := json.Unmarshal(m.Body, &ev); err != nil {
		c.logger.ErrorContext(ctx, "invalid live.status message, dropping", "error", err)
		return nil // don't retry unparseable messages
	}
	if ev.Username == "" {
		c.logger.ErrorContext(ctx, "live.status message without username, dropping")
		return nil
	}
	if ev.Link == "" {
		ev.Link = fmt.Sprintf("https://instagram.com/%s", ev.Username)
	}

	becameLive, err := c.streams.SetLiveStatus(ctx, ev.Username, ev.Link, ev.IsLive)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to update live status", "username", ev.Username, "error", err)
		return err // requeue through NSQ
	}

	if !becameLive {
		return nil
	}

	payload, err := json.Marshal(NotifyLivePayload{Username: ev.Username, Link: ev.Link})
	if err != nil {
		return err
	}
	id, err := c.jobs.Enqueue(ctx, job.TypeNotifyLive, payload)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to enqueue notify_live", "username", ev.Username, "error", err)
		return err
	}

	c.logger.InfoContext(ctx, "live transition recorded", "username", ev.Username, "job_id", id)
	return nil
}
