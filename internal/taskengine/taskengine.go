// Package taskengine orchestrates Task lifecycle operations that the
// store layer can't decide on its own: reminder delivery, outgoing-task
// completion monitoring (event-driven and scheduled), and the daily
// deadline scan. Grounded on db.py's reminder loop and task-monitoring
// functions, restructured around internal/bus events instead of direct
// Telegram calls.
package taskengine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/zaytsevrv/jarvis-assistant/internal/bus"
	"github.com/zaytsevrv/jarvis-assistant/internal/config"
	"github.com/zaytsevrv/jarvis-assistant/internal/llm"
	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

// postponeRequestDays is the fixed postpone granularity inline buttons
// offer (spec.md §4.3 "➡️ Postpone 1d").
const postponeRequestDays = 1

// Engine owns the monitoring side of Task: reminders, tracked-task
// completion checks, deadline review. Creation/dedup lives in
// internal/store/pg's TaskStore — the engine only orchestrates when and
// how those operations fire.
type Engine struct {
	stores *store.Stores
	bus    *bus.Bus
	cfg    *config.Config
	judge  llm.Backend

	mu       sync.Mutex
	lastSeen map[int64]time.Time // chat_id -> last debounced check, spec.md §4.3 60s debounce
}

func New(stores *store.Stores, b *bus.Bus, cfg *config.Config, judge llm.Backend) *Engine {
	return &Engine{stores: stores, bus: b, cfg: cfg, judge: judge, lastSeen: make(map[int64]time.Time)}
}

// Complete services a "complete_requested" TaskEvent (from an inline-
// keyboard press or the complete_task tool), handling respawn-on-recurrence.
func (e *Engine) Complete(ctx context.Context, taskID int64) error {
	respawned, err := e.stores.Tasks.Complete(ctx, taskID)
	if err != nil {
		return fmt.Errorf("taskengine: complete %d: %w", taskID, err)
	}
	e.bus.Tasks.Publish(bus.TaskEvent{Kind: "completed", Task: store.Task{ID: taskID}})
	if respawned != nil {
		e.bus.Tasks.Publish(bus.TaskEvent{Kind: "respawned", Task: *respawned})
	}
	return nil
}

func (e *Engine) Cancel(ctx context.Context, taskID int64) error {
	if err := e.stores.Tasks.Cancel(ctx, taskID); err != nil {
		return fmt.Errorf("taskengine: cancel %d: %w", taskID, err)
	}
	e.bus.Tasks.Publish(bus.TaskEvent{Kind: "cancelled", Task: store.Task{ID: taskID}})
	return nil
}

func (e *Engine) Postpone(ctx context.Context, taskID int64, days int) error {
	task, err := e.stores.Tasks.Postpone(ctx, taskID, days)
	if err != nil {
		return fmt.Errorf("taskengine: postpone %d: %w", taskID, err)
	}
	e.bus.Tasks.Publish(bus.TaskEvent{Kind: "postponed", Task: *task})
	return nil
}

// RunActions subscribes to bus.Tasks and dispatches the "*_requested" kinds
// published by internal/ingest's inline-button callback handler — the
// consumer side of the ✅/➡️ buttons on reminders, tracked-task checks, and
// the deadline review. Other TaskEvent kinds ("created", "completed", ...)
// are state-change notices this engine itself publishes and are ignored
// here.
func (e *Engine) RunActions(ctx context.Context) error {
	sub := e.bus.Tasks.Subscribe("taskengine:actions", 32)
	defer e.bus.Tasks.Unsubscribe("taskengine:actions")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-sub:
			e.dispatchAction(ctx, event)
		}
	}
}

func (e *Engine) dispatchAction(ctx context.Context, event bus.TaskEvent) {
	var err error
	switch event.Kind {
	case "complete_requested":
		err = e.Complete(ctx, event.Task.ID)
	case "cancel_requested":
		err = e.Cancel(ctx, event.Task.ID)
	case "postpone_requested":
		err = e.Postpone(ctx, event.Task.ID, postponeRequestDays)
	default:
		return
	}
	if err != nil {
		slog.Warn("taskengine: button action failed", "kind", event.Kind, "task_id", event.Task.ID, "error", err)
	}
}

// ScanReminders implements spec.md §4.3 "Time-based reminders": called once
// a minute by internal/scheduler.
func (e *Engine) ScanReminders(ctx context.Context) error {
	due, err := e.stores.Tasks.ListDueReminders(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("taskengine: list due reminders: %w", err)
	}
	for _, t := range due {
		e.bus.Notify.Publish(bus.OutboundNotification{
			Text: fmt.Sprintf("Reminder: %s", t.Description),
			Keyboard: [][]bus.CallbackButton{{
				{Label: "✅ Done", Data: fmt.Sprintf("task_done:%d", t.ID)},
			}},
		})
		if err := e.stores.Tasks.MarkReminderSent(ctx, t.ID); err != nil {
			slog.Warn("taskengine: mark reminder sent failed", "task_id", t.ID, "error", err)
		}
	}
	return nil
}

// ScanDeadlines implements spec.md §4.3 "Deadline scan": called daily at
// Schedule.DeadlineReviewHour. All tasks due today go out as a single
// review-block message with one ✅/➡️ button row per task (spec.md §8
// Scenario 6), not one message per task.
func (e *Engine) ScanDeadlines(ctx context.Context) error {
	due, err := e.stores.Tasks.ListDueToday(ctx, time.Now().In(e.cfg.Location()))
	if err != nil {
		return fmt.Errorf("taskengine: list due today: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	var lines []string
	var keyboard [][]bus.CallbackButton
	for _, t := range due {
		already, err := e.stores.Tasks.RecordDeadlineNotification(ctx, t.ID, time.Now())
		if err != nil || already {
			continue
		}
		lines = append(lines, fmt.Sprintf("• %s", t.Description))
		keyboard = append(keyboard, []bus.CallbackButton{
			{Label: fmt.Sprintf("✅ Done #%d", t.ID), Data: fmt.Sprintf("task_done:%d", t.ID)},
			{Label: "➡️ Postpone 1d", Data: fmt.Sprintf("task_postpone:%d", t.ID)},
		})
	}
	if len(lines) == 0 {
		return nil
	}

	e.bus.Notify.Publish(bus.OutboundNotification{
		Text:     "Due today:\n" + strings.Join(lines, "\n"),
		Keyboard: keyboard,
	})
	return nil
}

// OnInboundMessage is the event-driven trigger for tracked-task monitoring
// (spec.md §4.3): a new non-owner message in a chat with a tracked task
// re-checks that chat, subject to the 60s debounce shared with the
// scheduled 4x/day sweep.
func (e *Engine) OnInboundMessage(ctx context.Context, chatID int64) {
	if !e.shouldCheck(chatID) {
		return
	}
	if err := e.checkChatTrackedTasks(ctx, chatID); err != nil {
		slog.Warn("taskengine: event-driven tracked check failed", "chat_id", chatID, "error", err)
	}
}

func (e *Engine) shouldCheck(chatID int64) bool {
	debounce := time.Duration(e.cfg.Resources.TrackedCheckDebounceSec) * time.Second
	e.mu.Lock()
	defer e.mu.Unlock()
	if last, ok := e.lastSeen[chatID]; ok && time.Since(last) < debounce {
		return false
	}
	e.lastSeen[chatID] = time.Now()
	return true
}

// ScanTrackedTasks implements the scheduled 4x/day sweep; it reuses the
// same debounce as the event-driven path so a just-checked chat isn't
// immediately rechecked.
func (e *Engine) ScanTrackedTasks(ctx context.Context) error {
	debounce := time.Duration(e.cfg.Resources.TrackedCheckDebounceSec) * time.Second
	due, err := e.stores.Tasks.ListTrackedDue(ctx, debounce)
	if err != nil {
		return fmt.Errorf("taskengine: list tracked due: %w", err)
	}
	seen := map[int64]bool{}
	for _, t := range due {
		if t.ChatID == nil || seen[*t.ChatID] {
			continue
		}
		seen[*t.ChatID] = true
		if err := e.checkChatTrackedTasks(ctx, *t.ChatID); err != nil {
			slog.Warn("taskengine: scheduled tracked check failed", "chat_id", *t.ChatID, "error", err)
		}
	}
	return nil
}

func (e *Engine) checkChatTrackedTasks(ctx context.Context, chatID int64) error {
	tasks, err := e.stores.Tasks.ListActive(ctx, store.TaskFilter{})
	if err != nil {
		return err
	}
	recent, err := e.stores.Messages.RecentInChat(ctx, chatID, 30)
	if err != nil {
		return err
	}

	for _, t := range tasks {
		if !t.TrackCompletion || t.ChatID == nil || *t.ChatID != chatID {
			continue
		}
		verdict, evidence := e.judgeCompletion(ctx, t, recent)
		if err := e.stores.Tasks.MarkChecked(ctx, t.ID, time.Now()); err != nil {
			slog.Warn("taskengine: mark checked failed", "task_id", t.ID, "error", err)
		}
		if verdict == verdictUnclear {
			continue
		}
		e.bus.Notify.Publish(bus.OutboundNotification{
			Text: fmt.Sprintf("%s\n%s: %s", t.Description, verdictLabel(verdict), evidence),
			Keyboard: [][]bus.CallbackButton{{
				{Label: "✅ Close", Data: fmt.Sprintf("task_done:%d", t.ID)},
				{Label: "⏰ Still waiting", Data: fmt.Sprintf("task_wait:%d", t.ID)},
			}},
		})
	}
	return nil
}

type verdict string

const (
	verdictCompleted    verdict = "completed"
	verdictNotCompleted verdict = "not_completed"
	verdictUnclear      verdict = "unclear"
)

func verdictLabel(v verdict) string {
	switch v {
	case verdictCompleted:
		return "Looks completed"
	case verdictNotCompleted:
		return "Still pending"
	default:
		return "Unclear"
	}
}
