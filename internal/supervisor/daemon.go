// Package supervisor owns process bring-up/teardown, the resilient Ingest
// restart wrapper, and the watchdog. Grounded on the teacher's main.py
// startup sequence (config → store → migrate → wire → start long-lived
// tasks → signal-driven teardown) and watchdog.py's down-detection/alert
// escalation, re-architected per spec.md §9: state that was a module-level
// Python global lives on a struct instead — the watchdog alert counts on
// Daemon, the urgent-quota limiter on classifier.Classifier.
package supervisor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mymmrac/telego"

	"github.com/zaytsevrv/jarvis-assistant/internal/bus"
	"github.com/zaytsevrv/jarvis-assistant/internal/classifier"
	"github.com/zaytsevrv/jarvis-assistant/internal/config"
	"github.com/zaytsevrv/jarvis-assistant/internal/conversation"
	"github.com/zaytsevrv/jarvis-assistant/internal/ingest"
	"github.com/zaytsevrv/jarvis-assistant/internal/notifier"
	"github.com/zaytsevrv/jarvis-assistant/internal/scheduler"
	"github.com/zaytsevrv/jarvis-assistant/internal/store"
	"github.com/zaytsevrv/jarvis-assistant/internal/taskengine"
)

// Daemon is the long-lived owner of every subsystem and of the state that
// must not live as a package-level global: the watchdog's alert counters
// and known-down set.
type Daemon struct {
	cfg    *config.Config
	stores *store.Stores
	bus    *bus.Bus

	bot          *telego.Bot
	ingestSvc    *ingest.Ingest
	classifier   *classifier.Classifier
	taskEngine   *taskengine.Engine
	conversation *conversation.Conversation
	scheduler    *scheduler.Scheduler
	notifier     *notifier.Notifier

	watchdog watchdogState
	wg       sync.WaitGroup
}

// Deps bundles every already-constructed dependency New needs. Building
// the LLM backends, stores, and bot client is the caller's job (cmd/serve.go)
// since it requires config validation to have already happened.
type Deps struct {
	Cfg          *config.Config
	Stores       *store.Stores
	Bus          *bus.Bus
	Bot          *telego.Bot
	Ingest       *ingest.Ingest
	Classifier   *classifier.Classifier
	TaskEngine   *taskengine.Engine
	Conversation *conversation.Conversation
	Scheduler    *scheduler.Scheduler
	Notifier     *notifier.Notifier
}

func New(d Deps) *Daemon {
	return &Daemon{
		cfg:          d.Cfg,
		stores:       d.Stores,
		bus:          d.Bus,
		bot:          d.Bot,
		ingestSvc:    d.Ingest,
		classifier:   d.Classifier,
		taskEngine:   d.TaskEngine,
		conversation: d.Conversation,
		scheduler:    d.Scheduler,
		notifier:     d.Notifier,
		watchdog:     newWatchdogState(),
	}
}

// Run wires the classification pipeline onto bus.Ingested, then starts
// every long-lived task and blocks until ctx is cancelled (spec.md §4.6
// Supervisor steps 3-5). Teardown is not ordered: every task observes the
// same ctx.Done, and this function waits on the WaitGroup before returning.
func (d *Daemon) Run(ctx context.Context) error {
	d.wireClassification(ctx)

	d.spawn(ctx, "notifier", d.notifier.Run)
	d.spawn(ctx, "conversation", d.conversation.Run)
	d.spawn(ctx, "scheduler", d.scheduler.Run)
	d.spawn(ctx, "watchdog", d.runWatchdog)
	d.spawn(ctx, "taskengine-actions", d.taskEngine.RunActions)
	d.spawn(ctx, "classifier-feedback", d.classifier.RunFeedback)
	d.spawnResilientIngest(ctx)

	<-ctx.Done()
	d.wg.Wait()
	return nil
}

// wireClassification subscribes to bus.Ingested and routes every upstream
// message through the classifier and every tracked-task chat through the
// event-driven completion check — the glue main.py's set_*_callback wiring
// previously provided.
func (d *Daemon) wireClassification(ctx context.Context) {
	sub := d.bus.Ingested.Subscribe("supervisor:classify", 64)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				d.bus.Ingested.Unsubscribe("supervisor:classify")
				return
			case msg := <-sub:
				if err := d.classifier.Classify(ctx, msg.Message); err != nil {
					slog.Warn("supervisor: classify failed", "error", err)
				}
				// Owner-turn pseudo-messages (handled by internal/conversation,
				// not persisted by Ingest) carry no Message.ID; only a
				// persisted upstream message gets the processed handshake.
				if msg.Message.ID != 0 {
					if err := d.stores.Messages.MarkProcessed(ctx, msg.Message.ID); err != nil {
						slog.Warn("supervisor: mark processed failed", "message_id", msg.Message.ID, "error", err)
					}
				}
				d.taskEngine.OnInboundMessage(ctx, msg.Message.ChatID)
			}
		}
	}()
}

// spawn runs fn in its own goroutine, recording an "error" heartbeat and
// logging if it returns a non-nil, non-context-cancelled error.
func (d *Daemon) spawn(ctx context.Context, module string, fn func(context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			slog.Error("supervisor: component exited", "module", module, "error", err)
			_ = d.stores.Health.Heartbeat(context.Background(), module, "error", err.Error())
		}
	}()
}

// heartbeatEvery is a helper long-lived components can pair with their own
// Run loop by launching it alongside; used for the resilient Ingest
// wrapper, whose Run has no natural per-iteration heartbeat point.
func heartbeatEvery(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
