package job

import (
	"context"
	"log/slog"
)

// Service backs the ops HTTP surface: inspecting and reviving failed jobs.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) ListFailed(ctx context.Context) ([]Job, error) {
	return s.repo.ListFailed(ctx)
}

// Retry puts a permanently failed job back in the queue with a fresh retry
// budget. It is the only way out of the failed state.
func (s *Service) Retry(ctx context.Context, id int64) error {
	if err := s.repo.Requeue(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "failed job requeued", "job_id", id)
	return nil
}

func (s *Service) Counts(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByStatus(ctx)
}
