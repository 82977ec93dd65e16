package job

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// stubRepo is an in-package stand-in for the Postgres repo.
type stubRepo struct {
	Repository
	requeued    []int64
	requeueErr  error
	failedJobs  []Job
	statusCount map[Status]int
}

func (s *stubRepo) Requeue(ctx context.Context, id int64) error {
	if s.requeueErr != nil {
		return s.requeueErr
	}
	s.requeued = append(s.requeued, id)
	return nil
}

func (s *stubRepo) ListFailed(ctx context.Context) ([]Job, error) {
	return s.failedJobs, nil
}

func (s *stubRepo) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return s.statusCount, nil
}

func TestService_Retry(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, slog.Default())

	err := svc.Retry(context.Background(), 42)

	assert.NoError(t, err)
	assert.Equal(t, []int64{42}, repo.requeued)
}

func TestService_Retry_PropagatesNotFound(t *testing.T) {
	repo := &stubRepo{requeueErr: ErrNotFound}
	svc := NewService(repo, slog.Default())

	err := svc.Retry(context.Background(), 42)

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Empty(t, repo.requeued)
}

func TestService_ListFailed(t *testing.T) {
	now := time.Now()
	repo := &stubRepo{failedJobs: []Job{
		{ID: 1, Type: TypeBroadcastMessage, Payload: json.RawMessage(`{}`), Status: StatusFailed, Retries: 4, CreatedAt: now, UpdatedAt: now},
	}}
	svc := NewService(repo, slog.Default())

	jobs, err := svc.ListFailed(context.Background())

	assert.NoError(t, err)
	assert.Len(t, jobs, 1)
	assert.Equal(t, StatusFailed, jobs[0].Status)
}

func TestService_Counts(t *testing.T) {
	repo := &stubRepo{statusCount: map[Status]int{StatusPending: 3, StatusFailed: 1}}
	svc := NewService(repo, slog.Default())

	counts, err := svc.Counts(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 3, counts[StatusPending])
	assert.Equal(t, 1, counts[StatusFailed])
}
