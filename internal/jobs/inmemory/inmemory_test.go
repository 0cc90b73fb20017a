package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/lifeledger/internal/jobs"
)

func waitForStatus(t *testing.T, s *Store, id string, want jobs.JobStatus) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := s.GetJob(context.Background(), id)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := s.GetJob(context.Background(), id)
	t.Fatalf("job %s never reached %s; last state %+v", id, want, job)
	return nil
}

func TestQueueRunsJobs(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store, WithWorkers(2))
	ctx := context.Background()

	err := q.Start(ctx, func(_ context.Context, job *jobs.Job) error {
		job.Result = "ok for " + job.UserID
		return nil
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer q.Close()

	job := &jobs.Job{Type: jobs.JobTypeBackupSnapshot, UserID: "ana"}
	if err := q.Publish(ctx, job); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if job.ID == "" || job.MaxRetries != DefaultMaxRetries {
		t.Errorf("defaults not applied: %+v", job)
	}

	done := waitForStatus(t, store, job.ID, jobs.JobStatusCompleted)
	if done.Result != "ok for ana" || done.StartedAt == nil || done.CompletedAt == nil {
		t.Errorf("completed job = %+v", done)
	}
}

func TestQueueRetries(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store, WithRetryBackoff(time.Millisecond))
	ctx := context.Background()

	var calls atomic.Int32
	err := q.Start(ctx, func(context.Context, *jobs.Job) error {
		if calls.Add(1) < 3 {
			return errors.New("flaky")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer q.Close()

	job := &jobs.Job{Type: jobs.JobTypeExportWarehouse, UserID: "ana"}
	if err := q.Publish(ctx, job); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	done := waitForStatus(t, store, job.ID, jobs.JobStatusCompleted)
	if done.RetryCount != 2 || done.Error != "" {
		t.Errorf("completed job = %+v", done)
	}
}

func TestQueueGivesUp(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		maxRetry  int
		wantCalls int32
	}{
		{"exhausts retries", errors.New("down"), 1, 2},
		{"permanent error", jobs.Permanent(errors.New("bad input")), 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore()
			q := NewQueue(10, store, WithRetryBackoff(time.Millisecond))
			var calls atomic.Int32
			if err := q.Start(context.Background(), func(context.Context, *jobs.Job) error {
				calls.Add(1)
				return tt.err
			}); err != nil {
				t.Fatalf("Start: %v", err)
			}
			defer q.Close()

			job := &jobs.Job{Type: jobs.JobTypeSyncNotion, UserID: "ana", MaxRetries: tt.maxRetry}
			if err := q.Publish(context.Background(), job); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			failed := waitForStatus(t, store, job.ID, jobs.JobStatusFailed)
			if failed.Error == "" {
				t.Error("failed job has no error")
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("handler calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestPublishRejects(t *testing.T) {
	q := NewQueue(1, nil)
	if err := q.Publish(context.Background(), &jobs.Job{Type: "mine_bitcoin"}); err == nil {
		t.Error("unknown type accepted")
	}
	_ = q.Close()
	if err := q.Publish(context.Background(), &jobs.Job{Type: jobs.JobTypeBackupSnapshot}); err == nil {
		t.Error("publish on closed queue accepted")
	}
	if err := q.Start(context.Background(), nil); err == nil {
		t.Error("start on closed queue accepted")
	}
}

func TestStoreListJobs(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	for i, j := range []jobs.Job{
		{ID: "a", UserID: "ana", Type: jobs.JobTypeBackupSnapshot, Status: jobs.JobStatusCompleted},
		{ID: "b", UserID: "ana", Type: jobs.JobTypeExportWarehouse, Status: jobs.JobStatusFailed},
		{ID: "c", UserID: "bob", Type: jobs.JobTypeBackupSnapshot, Status: jobs.JobStatusCompleted},
		{ID: "d", UserID: "ana", Type: jobs.JobTypeBackupSnapshot, Status: jobs.JobStatusPending},
	} {
		j.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.SaveJob(ctx, &j); err != nil {
			t.Fatalf("SaveJob: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter jobs.JobFilter
		want   []string
	}{
		{"all, newest first", jobs.JobFilter{}, []string{"d", "c", "b", "a"}},
		{"by user", jobs.JobFilter{UserID: "ana"}, []string{"d", "b", "a"}},
		{"by type", jobs.JobFilter{UserID: "ana", Type: jobs.JobTypeBackupSnapshot}, []string{"d", "a"}},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusCompleted}, []string{"c", "a"}},
		{"paged", jobs.JobFilter{Offset: 1, Limit: 2}, []string{"c", "b"}},
		{"past the end", jobs.JobFilter{Offset: 10}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListJobs: %v", err)
			}
			var ids []string
			for _, j := range got {
				ids = append(ids, j.ID)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("ListJobs() = %v, want %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Fatalf("ListJobs() = %v, want %v", ids, tt.want)
				}
			}
		})
	}

	if _, err := s.GetJob(ctx, "zzz"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("GetJob unknown error = %v", err)
	}
	if err := s.UpdateJobStatus(ctx, "a", jobs.JobStatusFailed, "boom"); err != nil {
		t.Fatalf("UpdateJobStatus: %v", err)
	}
	if j, _ := s.GetJob(ctx, "a"); j.Status != jobs.JobStatusFailed || j.Error != "boom" {
		t.Errorf("updated job = %+v", j)
	}
}

func TestStoreRetention(t *testing.T) {
	ctx := context.Background()
	s := NewStore(WithRetention(2))
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	save := func(id string, status jobs.JobStatus, age int) {
		t.Helper()
		job := &jobs.Job{ID: id, Type: jobs.JobTypeBackupSnapshot, Status: status, CreatedAt: base.Add(time.Duration(age) * time.Minute)}
		if err := s.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob(%s): %v", id, err)
		}
	}

	save("pending", jobs.JobStatusPending, 0)
	save("old", jobs.JobStatusCompleted, 1)
	save("mid", jobs.JobStatusFailed, 2)
	save("new", jobs.JobStatusCompleted, 3)

	if _, err := s.GetJob(ctx, "old"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("oldest finished job still stored, err = %v", err)
	}
	for _, id := range []string{"pending", "mid", "new"} {
		if _, err := s.GetJob(ctx, id); err != nil {
			t.Errorf("GetJob(%s): %v", id, err)
		}
	}

	if err := s.UpdateJobStatus(ctx, "pending", jobs.JobStatusCompleted, ""); err != nil {
		t.Fatalf("UpdateJobStatus: %v", err)
	}
	if _, err := s.GetJob(ctx, "pending"); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Errorf("job created first should be pruned once finished, err = %v", err)
	}
}

func TestUpdateJobStatusStampsTimes(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if err := s.SaveJob(ctx, &jobs.Job{ID: "j", Status: jobs.JobStatusPending}); err != nil {
		t.Fatalf("SaveJob: %v", err)
	}
	if err := s.UpdateJobStatus(ctx, "j", jobs.JobStatusRunning, ""); err != nil {
		t.Fatalf("UpdateJobStatus: %v", err)
	}
	if j, _ := s.GetJob(ctx, "j"); j.StartedAt == nil || !j.StartedAt.Equal(now) || j.CompletedAt != nil {
		t.Errorf("running job = %+v", j)
	}
	if err := s.UpdateJobStatus(ctx, "j", jobs.JobStatusCompleted, ""); err != nil {
		t.Fatalf("UpdateJobStatus: %v", err)
	}
	if j, _ := s.GetJob(ctx, "j"); j.CompletedAt == nil || !j.CompletedAt.Equal(now) {
		t.Errorf("completed job = %+v", j)
	}
}
