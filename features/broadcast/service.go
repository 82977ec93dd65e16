package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"iglivez/worker/features/job"
	"iglivez/worker/internal/adapter/telegram"
)

type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb telegram.Keyboard) (int64, error)
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string) (int64, error)
	SendVideo(ctx context.Context, chatID int64, fileID, caption string) (int64, error)
}

// LiveCounter reports how many tracked accounts are currently live.
type LiveCounter interface {
	CountLive(ctx context.Context) (int, error)
}

// MarkerStore reads the cooldown marker. Writing goes through the
// repository so it commits atomically with the job insert.
type MarkerStore interface {
	GetTime(ctx context.Context, key string) (time.Time, error)
}

// JobStore enqueues plain broadcast jobs, without touching the
// auto-broadcast cooldown marker.
type JobStore interface {
	Enqueue(ctx context.Context, jobType job.Type, payload json.RawMessage) (int64, error)
}

type Config struct {
	Threshold int
	Cooldown  time.Duration
}

type Service struct {
	repo    Repository
	jobs    JobStore
	streams LiveCounter
	markers MarkerStore
	tg      Messenger
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(repo Repository, jobs JobStore, streams LiveCounter, markers MarkerStore, tg Messenger, cfg Config, logger *slog.Logger) *Service {
	return &Service{repo: repo, jobs: jobs, streams: streams, markers: markers, tg: tg, cfg: cfg, logger: logger, now: time.Now}
}

// Execute delivers one broadcast job. Individual delivery failures are
// counted and logged, never aborting the run.
func (s *Service) Execute(ctx context.Context, raw json.RawMessage) error {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("decode broadcast payload: %w", err)
	}
	if p.Target == "" {
		p.Target = TargetAll
	}
	if !ValidTarget(p.Target) {
		return fmt.Errorf("unknown broadcast target %q", p.Target)
	}

	ids, err := s.repo.ListTargetIDs(ctx, p.Target)
	if err != nil {
		return fmt.Errorf("list broadcast targets: %w", err)
	}

	s.logger.InfoContext(ctx, "starting broadcast", "target", p.Target, "recipients", len(ids), "content_type", p.Content.Type)

	var sent, failed int
	for _, id := range ids {
		var err error
		switch p.Content.Type {
		case ContentText:
			_, err = s.tg.SendMessage(ctx, id, p.Content.Text, nil)
		case ContentPhoto:
			_, err = s.tg.SendPhoto(ctx, id, p.Content.FileID, p.Content.Caption)
		case ContentVideo:
			_, err = s.tg.SendVideo(ctx, id, p.Content.FileID, p.Content.Caption)
		default:
			return fmt.Errorf("unknown broadcast content type %q", p.Content.Type)
		}
		if err != nil {
			failed++
			s.logger.WarnContext(ctx, "broadcast delivery failed", "user_id", id, "error", err)
			continue
		}
		sent++
	}

	s.logger.InfoContext(ctx, "broadcast finished", "target", p.Target, "sent", sent, "failed", failed)
	return nil
}

// CheckAutoTrigger fires a promotional broadcast when enough streams are
// live and the cooldown has lapsed. The job insert and the marker update
// commit together.
func (s *Service) CheckAutoTrigger(ctx context.Context) error {
	count, err := s.streams.CountLive(ctx)
	if err != nil {
		return fmt.Errorf("auto broadcast: count live: %w", err)
	}
	if count < s.cfg.Threshold {
		return nil
	}

	now := s.now().UTC()
	last, err := s.markers.GetTime(ctx, SettingLastAutoBroadcast)
	if err != nil {
		return fmt.Errorf("auto broadcast: read marker: %w", err)
	}
	if !last.IsZero() && now.Sub(last) < s.cfg.Cooldown {
		return nil
	}

	text := fmt.Sprintf("🔥 <b>%d streams are LIVE right now!</b>\n\nDon't miss out, check who's streaming.", count)
	payload, err := json.Marshal(Payload{
		Target:  TargetAll,
		Content: Content{Type: ContentText, Text: text},
	})
	if err != nil {
		return err
	}

	if err := s.repo.EnqueueAutoBroadcast(ctx, payload, now.Format(time.RFC3339)); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "auto broadcast triggered", "live_count", count, "threshold", s.cfg.Threshold)
	return nil
}

// HandleCommand enqueues an all-users text broadcast for
// "/broadcast <text>". The caller has already verified the sender is an
// admin.
func (s *Service) HandleCommand(ctx context.Context, adminID int64, text string) error {
	body := strings.TrimSpace(strings.TrimPrefix(text, "/broadcast"))
	if body == "" {
		_, err := s.tg.SendMessage(ctx, adminID, "Usage: /broadcast <message>", nil)
		return err
	}

	payload, err := json.Marshal(Payload{
		Target:  TargetAll,
		Content: Content{Type: ContentText, Text: body},
	})
	if err != nil {
		return err
	}
	if _, err := s.jobs.Enqueue(ctx, job.TypeBroadcastMessage, payload); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "admin broadcast enqueued", "admin_id", adminID)
	_, err = s.tg.SendMessage(ctx, adminID, "📣 Broadcast queued.", nil)
	return err
}
