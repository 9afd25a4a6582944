// Package scheduler drives the daemon's fixed wall-clock jobs (spec.md
// §4.6): morning briefing, deadline review, confidence batch, evening
// digest, per-minute reminder scan, 4x/day tracked-task check, hourly turn
// compaction, weekly analysis, and its own heartbeat. Grounded on the
// teacher's per-user cron-job dispatch (cmd/gateway_cron.go), generalized
// from "one lane per user cron job" to a fixed table of named daemon jobs,
// each gated by a cron expression matched with adhocore/gronx instead of
// the teacher's per-row job store.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"

	"github.com/zaytsevrv/jarvis-assistant/internal/bus"
	"github.com/zaytsevrv/jarvis-assistant/internal/classifier"
	"github.com/zaytsevrv/jarvis-assistant/internal/config"
	"github.com/zaytsevrv/jarvis-assistant/internal/store"
	"github.com/zaytsevrv/jarvis-assistant/internal/taskengine"
)

// job is one named, cron-gated lane.
type job struct {
	name string
	expr string
	run  func(ctx context.Context) error
}

// Scheduler evaluates every job's cron expression once a minute and runs
// the ones that are due.
type Scheduler struct {
	jobs   []job
	gron   gronx.Gronx
	health store.HealthStore
	cfg    *config.Config
}

// Deps bundles everything the fixed job table needs to build its closures.
type Deps struct {
	Stores     *store.Stores
	Bus        *bus.Bus
	Cfg        *config.Config
	TaskEngine *taskengine.Engine
	Classifier *classifier.Classifier
}

func New(d Deps) *Scheduler {
	s := &Scheduler{gron: gronx.New(), health: d.Stores.Health, cfg: d.Cfg}

	sc := d.Cfg.Schedule
	s.jobs = []job{
		{"morning_briefing", cronAt(sc.BriefingHour, 0), func(ctx context.Context) error { return s.morningBriefing(ctx, d) }},
		{"deadline_review", cronAt(sc.DeadlineReviewHour, 0), func(ctx context.Context) error { return d.TaskEngine.ScanDeadlines(ctx) }},
		{"confidence_batch", cronAt(sc.ConfidenceBatchHour, 0), func(ctx context.Context) error { return s.confidenceBatch(ctx, d) }},
		{"evening_digest", cronAt(sc.DigestHour, 0), func(ctx context.Context) error { return s.eveningDigest(ctx, d) }},
		{"reminder_scan", "* * * * *", func(ctx context.Context) error { return d.TaskEngine.ScanReminders(ctx) }},
		{"tracked_check", tickerExpr(sc.TrackedCheckHours, 5), func(ctx context.Context) error { return d.TaskEngine.ScanTrackedTasks(ctx) }},
		{"turn_compaction", "15 * * * *", func(ctx context.Context) error { return s.compactTurns(ctx, d) }},
		{"weekly_analysis", cronWeekly(sc.WeeklyAnalysisDay, sc.WeeklyAnalysisHour), func(ctx context.Context) error { return s.weeklyAnalysis(ctx, d) }},
		{"urgent_quota_reset", "0 0 * * *", func(ctx context.Context) error { d.Classifier.ResetDailyQuota(); return nil }},
		{"heartbeat", "*/5 * * * *", func(ctx context.Context) error { return s.heartbeat(ctx) }},
	}
	return s
}

func cronAt(hour, minute int) string {
	return fmtCron(minute, hour, "*", "*", "*")
}

func cronWeekly(weekday, hour int) string {
	return fmtCron(0, hour, "*", "*", weekday)
}

// tickerExpr renders spec.md's "4x/day (09:05, 13:05, 17:05, 21:05)" table
// as a comma-joined hour list at the fixed :05 mark.
func tickerExpr(hours []int, minute int) string {
	if len(hours) == 0 {
		hours = []int{9, 13, 17, 21}
	}
	return fmtCronHours(minute, hours)
}

// Run blocks, checking the job table once a minute until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	local := now.In(s.cfg.Location())
	for _, j := range s.jobs {
		due, err := s.gron.IsDue(j.expr, local)
		if err != nil {
			slog.Warn("scheduler: bad cron expression", "job", j.name, "expr", j.expr, "error", err)
			continue
		}
		if !due {
			continue
		}
		if err := j.run(ctx); err != nil {
			slog.Warn("scheduler: job failed", "job", j.name, "error", err)
			_ = s.health.Heartbeat(ctx, "scheduler:"+j.name, "error", err.Error())
		}
	}
}

func (s *Scheduler) heartbeat(ctx context.Context) error {
	return s.health.Heartbeat(ctx, "scheduler", "ok", "")
}
