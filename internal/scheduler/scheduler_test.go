package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/adhocore/gronx"

	"github.com/zaytsevrv/jarvis-assistant/internal/config"
	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

type fakeHealthStore struct {
	heartbeats []string
}

func (f *fakeHealthStore) Heartbeat(ctx context.Context, module, status, errMsg string) error {
	f.heartbeats = append(f.heartbeats, module+":"+status)
	return nil
}

func (f *fakeHealthStore) All(ctx context.Context) ([]store.HealthCheck, error) { return nil, nil }

func newTestScheduler(health *fakeHealthStore) *Scheduler {
	cfg := config.Defaults()
	cfg.Owner.Timezone = "UTC"
	return &Scheduler{gron: gronx.New(), health: health, cfg: cfg}
}

func TestTick_RunsOnlyDueJobs(t *testing.T) {
	health := &fakeHealthStore{}
	s := newTestScheduler(health)

	var ran []string
	s.jobs = []job{
		{"every_minute", "* * * * *", func(ctx context.Context) error {
			ran = append(ran, "every_minute")
			return nil
		}},
		{"only_at_nine", "0 9 * * *", func(ctx context.Context) error {
			ran = append(ran, "only_at_nine")
			return nil
		}},
	}

	s.tick(context.Background(), time.Date(2026, 7, 31, 10, 30, 0, 0, time.UTC))

	if len(ran) != 1 || ran[0] != "every_minute" {
		t.Fatalf("ran = %v, want only every_minute", ran)
	}
}

func TestTick_JobFailureRecordsErrorHeartbeat(t *testing.T) {
	health := &fakeHealthStore{}
	s := newTestScheduler(health)
	s.jobs = []job{
		{"flaky", "* * * * *", func(ctx context.Context) error {
			return context.DeadlineExceeded
		}},
	}

	s.tick(context.Background(), time.Date(2026, 7, 31, 10, 30, 0, 0, time.UTC))

	if len(health.heartbeats) != 1 || health.heartbeats[0] != "scheduler:flaky:error" {
		t.Fatalf("heartbeats = %v, want [scheduler:flaky:error]", health.heartbeats)
	}
}

func TestTick_BadCronExpressionSkipsJobWithoutPanicking(t *testing.T) {
	health := &fakeHealthStore{}
	s := newTestScheduler(health)
	ran := false
	s.jobs = []job{
		{"broken", "not a cron expr", func(ctx context.Context) error {
			ran = true
			return nil
		}},
	}

	s.tick(context.Background(), time.Date(2026, 7, 31, 10, 30, 0, 0, time.UTC))

	if ran {
		t.Fatal("job with invalid cron expression should not run")
	}
}
