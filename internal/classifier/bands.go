package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zaytsevrv/jarvis-assistant/internal/bus"
	"github.com/zaytsevrv/jarvis-assistant/internal/llm"
	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

// dispatchHigh implements spec.md §4.2's HIGH band: dedupe against active
// tasks and create one, with track_completion and remind_at set per the
// original_type rules.
func (c *Classifier) dispatchHigh(ctx context.Context, msg store.Message, j judgment, normalized store.TaskType, conf int) error {
	task := &store.Task{
		Type:            normalized,
		Description:     j.Summary,
		Who:             derefOr(j.Who, ""),
		Confidence:      conf,
		Source:          "auto",
		SourceMsgID:     &msg.ID,
		ChatID:          &msg.ChatID,
		SenderID:        &msg.SenderID,
		SenderName:      msg.SenderName,
		Account:         msg.AccountLabel,
		TrackCompletion: j.Type == KindTaskFromMe || j.Type == KindPromiseIncoming,
	}
	if deadline := parseDeadline(j.Deadline); deadline != nil {
		task.Deadline = deadline
		if j.Type == KindTaskForMe || j.Type == KindPromiseMine {
			remind := deadline.Add(-2 * time.Hour)
			task.RemindAt = &remind
		}
	} else if j.Type == KindTaskForMe || j.Type == KindPromiseMine {
		remind := time.Now().Add(24 * time.Hour)
		task.RemindAt = &remind
	}

	created, err := c.stores.Tasks.Create(ctx, task)
	if err != nil {
		return fmt.Errorf("classifier: create task: %w", err)
	}

	c.bus.Tasks.Publish(bus.TaskEvent{Kind: "created", Task: *created})
	c.bus.Notify.Publish(bus.OutboundNotification{
		Text: fmt.Sprintf("Auto-task created: %s", created.Description),
		Keyboard: [][]bus.CallbackButton{{
			{Label: "Correct", Data: fmt.Sprintf("clf_ok:%d", created.ID)},
			{Label: "Wrong", Data: fmt.Sprintf("conf_no:%d", created.ID)},
		}},
	})
	return nil
}

// dispatchMedium implements spec.md §4.2's MEDIUM band: urgent messages
// prompt immediately, everything else gets a 5-minute deferred recheck.
func (c *Classifier) dispatchMedium(ctx context.Context, msg store.Message, j judgment, normalized store.TaskType, conf int) error {
	item, err := c.stores.Confidence.Create(ctx, &store.ConfidenceItem{
		MessageID: msg.ID, ChatID: msg.ChatID, SenderName: msg.SenderName,
		TextPreview: previewOf(msg.Text), PredictedType: normalized, Confidence: conf, IsUrgent: j.IsUrgent,
	})
	if err != nil {
		return fmt.Errorf("classifier: create confidence item: %w", err)
	}

	if j.IsUrgent {
		if !c.urgentLimiter.Allow() {
			return nil // over quota, silently left in the confidence queue
		}
		c.promptConfidence(item)
		return nil
	}

	delay := time.Duration(c.cfg.Confidence.DeferredDelayMins) * time.Minute
	go c.deferredRecheck(item.ID, msg.ChatID, delay)
	return nil
}

// dispatchLow implements spec.md §4.2's LOW band: an informational
// notification with Correct / "Actually a task" buttons. It also records a
// ConfidenceItem for the message, which is what those buttons resolve.
func (c *Classifier) dispatchLow(ctx context.Context, msg store.Message, j judgment, normalized store.TaskType, conf int) error {
	item, err := c.stores.Confidence.Create(ctx, &store.ConfidenceItem{
		MessageID: msg.ID, ChatID: msg.ChatID, SenderName: msg.SenderName,
		TextPreview: previewOf(msg.Text), PredictedType: normalized, Confidence: conf, IsUrgent: j.IsUrgent,
	})
	if err != nil {
		return fmt.Errorf("classifier: create confidence item: %w", err)
	}
	c.bus.Notify.Publish(bus.OutboundNotification{
		Text: fmt.Sprintf("%s (%s, %d%%)", item.TextPreview, item.SenderName, conf),
		Keyboard: [][]bus.CallbackButton{{
			{Label: "Correct", Data: fmt.Sprintf("clf_ok:%d", item.ID)},
			{Label: "Actually a task", Data: fmt.Sprintf("conf_no:%d", item.ID)},
		}},
	})
	return nil
}

// deferredRecheck implements the MEDIUM band's self-resolution check: wait
// out the deferral window, ask a cheap binary question over the chat's
// latest messages, and suppress the prompt if the situation resolved
// itself (spec.md §4.2).
func (c *Classifier) deferredRecheck(itemID, chatID int64, delay time.Duration) {
	time.Sleep(delay)

	ctx := context.Background()
	item, err := c.stores.Confidence.Get(ctx, itemID)
	if err != nil || item.Resolved {
		return
	}

	recent, err := c.stores.Messages.RecentInChat(ctx, chatID, 5)
	if err == nil && c.selfResolved(ctx, recent) {
		slog.Info("classifier: deferred item self-resolved, suppressing prompt", "item_id", itemID)
		return
	}

	c.promptConfidence(item)
}

func (c *Classifier) selfResolved(ctx context.Context, recent []store.Message) bool {
	var b strings.Builder
	for _, m := range recent {
		b.WriteString(m.SenderName + ": " + m.Text + "\n")
	}
	resp, err := c.llm.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: "Answer only yes or no."},
			{Role: "user", Content: "Did this situation already resolve itself based on these recent messages?\n" + b.String()},
		},
	})
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(resp.Content), "yes")
}

func (c *Classifier) promptConfidence(item *store.ConfidenceItem) {
	c.bus.Notify.Publish(bus.OutboundNotification{
		Text: fmt.Sprintf("%s (%s, %d%%) — create task?", item.TextPreview, item.SenderName, item.Confidence),
		Keyboard: [][]bus.CallbackButton{{
			{Label: "Yes", Data: fmt.Sprintf("conf_yes:%d", item.ID)},
			{Label: "No", Data: fmt.Sprintf("conf_no:%d", item.ID)},
		}},
	})
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func parseDeadline(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil
	}
	return &t
}

func previewOf(text string) string {
	const n = 140
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "…"
}
