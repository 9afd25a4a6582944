package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zaytsevrv/jarvis-assistant/internal/bus"
	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

// morningBriefing composes the 09:00 owner briefing (spec.md §4.6): today's
// deadlines and the active-task count; no message volume. Grounded on the
// teacher's ai_brain.py briefing-composition shape, rendered here as a
// single bus.OutboundNotification instead of a direct send.
func (s *Scheduler) morningBriefing(ctx context.Context, d Deps) error {
	active, err := d.Stores.Tasks.ListActive(ctx, store.TaskFilter{})
	if err != nil {
		return fmt.Errorf("scheduler: list active tasks: %w", err)
	}
	dueToday, err := d.Stores.Tasks.ListDueToday(ctx, time.Now().In(s.cfg.Location()))
	if err != nil {
		return fmt.Errorf("scheduler: list due-today tasks: %w", err)
	}

	var b strings.Builder
	b.WriteString("☀️ Good morning.\n\n")
	if len(dueToday) > 0 {
		b.WriteString(fmt.Sprintf("Due today (%d):\n", len(dueToday)))
		for _, t := range dueToday {
			b.WriteString("• " + t.Description + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("Active tasks: %d\n", len(active)))

	d.Bus.Notify.Publish(bus.OutboundNotification{Text: b.String()})
	return nil
}

// eveningDigest composes the 21:00 owner digest: the count of still-open
// tasks and the total number of messages tracked. It does not list what got
// done today. Grounded on the same ai_brain.py briefing shape as
// morningBriefing.
func (s *Scheduler) eveningDigest(ctx context.Context, d Deps) error {
	active, err := d.Stores.Tasks.ListActive(ctx, store.TaskFilter{})
	if err != nil {
		return fmt.Errorf("scheduler: list active tasks: %w", err)
	}
	msgCount, _, err := d.Stores.Messages.Stats(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: message stats: %w", err)
	}

	text := fmt.Sprintf("🌙 Evening digest.\n\nStill open: %d task(s).\nMessages tracked: %d.", len(active), msgCount)
	d.Bus.Notify.Publish(bus.OutboundNotification{Text: text})
	return nil
}

// weeklyAnalysis composes the Sunday 10:00 weekly rollup, grounded on the
// same ai_brain.py shape again: open tasks, the all-time message total and
// storage size (no per-week message window).
func (s *Scheduler) weeklyAnalysis(ctx context.Context, d Deps) error {
	active, err := d.Stores.Tasks.ListActive(ctx, store.TaskFilter{})
	if err != nil {
		return fmt.Errorf("scheduler: list active tasks: %w", err)
	}
	msgCount, dbSize, err := d.Stores.Messages.Stats(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: message stats: %w", err)
	}

	text := fmt.Sprintf("📊 Weekly rollup.\n\nOpen tasks: %d\nMessages tracked total: %d\nStorage: %s", len(active), msgCount, dbSize)
	d.Bus.Notify.Publish(bus.OutboundNotification{Text: text})
	return nil
}

// confidenceBatch dispatches a single digest of every still-unresolved
// MEDIUM-confidence classification at 17:00, implementing spec.md §4.2's
// fallback for items that never got an owner reply to their original
// inline prompt.
func (s *Scheduler) confidenceBatch(ctx context.Context, d Deps) error {
	items, err := d.Stores.Confidence.Unresolved(ctx)
	if err != nil {
		return fmt.Errorf("scheduler: list unresolved confidence items: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("🤔 %d item(s) still waiting on a yes/no:\n\n", len(items)))
	var rows [][]bus.CallbackButton
	for _, item := range items {
		b.WriteString(fmt.Sprintf("• %s (%s, %d%%)\n", item.TextPreview, item.PredictedType, item.Confidence))
		rows = append(rows, []bus.CallbackButton{
			{Label: "✅ Yes", Data: fmt.Sprintf("conf_yes:%d", item.ID)},
			{Label: "✖ No", Data: fmt.Sprintf("conf_no:%d", item.ID)},
		})
	}
	d.Bus.Notify.Publish(bus.OutboundNotification{Text: b.String(), Keyboard: rows})
	return nil
}

// compactTurns trims conversation history older than 24h, hourly at :15.
func (s *Scheduler) compactTurns(ctx context.Context, d Deps) error {
	_, err := d.Stores.Turns.DeleteOlderThan(ctx, 24*time.Hour)
	return err
}
