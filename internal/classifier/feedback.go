package classifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zaytsevrv/jarvis-assistant/internal/bus"
	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

// RecordFeedback appends an owner correction/confirmation and resolves the
// confidence item idempotently (spec.md §4.2 "Feedback loop", §8 resolve
// idempotence). userReason is the optional free-text "why?" reply; empty
// when the owner didn't answer within the 5-minute window or sent /skip.
func (c *Classifier) RecordFeedback(ctx context.Context, itemID int64, actualType store.TaskType, userReason string) error {
	item, err := c.stores.Confidence.Get(ctx, itemID)
	if err != nil {
		return err
	}

	alreadyResolved, err := c.stores.Confidence.Resolve(ctx, itemID)
	if err != nil {
		return err
	}
	if alreadyResolved {
		return nil
	}

	return c.stores.Feedback.Append(ctx, &store.ClassificationFeedback{
		MessageID:           item.MessageID,
		PredictedType:       string(item.PredictedType),
		ActualType:          string(actualType),
		PredictedConfidence: item.Confidence,
		UserReason:          userReason,
	})
}

// RunFeedback subscribes to bus.Classified and resolves every owner button
// press against the confidence queue until ctx is cancelled — the consumer
// side of the confirmation buttons internal/ingest's callback handler
// republishes onto the bus.
func (c *Classifier) RunFeedback(ctx context.Context) error {
	sub := c.bus.Classified.Subscribe("classifier:feedback", 32)
	defer c.bus.Classified.Unsubscribe("classifier:feedback")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-sub:
			if err := c.resolveConfirmation(ctx, event); err != nil {
				slog.Warn("classifier: resolve confirmation failed", "error", err)
			}
		}
	}
}

// resolveConfirmation implements spec.md §4.2's button resolutions. Whether
// a "reject" creates a task depends on which band produced the prompt: LOW's
// "Actually a task" button and MEDIUM's "No" button both encode as
// "conf_no", distinguished here by the confidence that was stored with the
// item (MEDIUM items cleared the LowThreshold gate at classification time,
// LOW items didn't).
func (c *Classifier) resolveConfirmation(ctx context.Context, event bus.Classification) error {
	if event.Resolution == "" || event.ConfidenceRef == nil {
		return nil
	}
	itemID := event.ConfidenceRef.ID

	item, err := c.stores.Confidence.Get(ctx, itemID)
	if err != nil {
		// HIGH-band "Correct"/"Wrong" buttons carry a Task ID in this same
		// field (dispatchHigh has no confidence item to resolve); nothing
		// further to do once the lookup misses.
		return nil
	}

	alreadyResolved, err := c.stores.Confidence.Resolve(ctx, itemID)
	if err != nil {
		return fmt.Errorf("classifier: resolve confidence item %d: %w", itemID, err)
	}
	if alreadyResolved {
		return nil
	}

	wasLowBand := item.Confidence < c.cfg.Confidence.LowThreshold
	shouldCreate := event.Resolution == "confirm" || (event.Resolution == "reject" && wasLowBand)

	if err := c.stores.Feedback.Append(ctx, &store.ClassificationFeedback{
		MessageID:           item.MessageID,
		PredictedType:       string(item.PredictedType),
		ActualType:          string(item.PredictedType),
		PredictedConfidence: item.Confidence,
	}); err != nil {
		slog.Warn("classifier: append feedback failed", "item_id", itemID, "error", err)
	}

	if !shouldCreate {
		return nil
	}
	return c.createFromConfidence(ctx, item)
}

// createFromConfidence implements the MEDIUM/LOW "owner-confirmed" path:
// create the task (deduplicated against active tasks, same as the
// create_task tool) and notify that it's been added.
func (c *Classifier) createFromConfidence(ctx context.Context, item *store.ConfidenceItem) error {
	if existing, err := c.stores.Tasks.FindSimilarActive(ctx, item.TextPreview); err == nil && existing != nil {
		return nil
	}

	taskType := item.PredictedType
	if !isTaskLike(taskType) {
		taskType = store.TaskGeneric // owner overrode a non-task prediction ("Actually a task")
	}

	created, err := c.stores.Tasks.Create(ctx, &store.Task{
		Type:        taskType,
		Description: item.TextPreview,
		Confidence:  item.Confidence,
		Source:      "confirmed",
		SourceMsgID: &item.MessageID,
		ChatID:      &item.ChatID,
		SenderName:  item.SenderName,
		Status:      store.TaskActive,
	})
	if err != nil {
		return fmt.Errorf("classifier: create confirmed task: %w", err)
	}

	c.bus.Tasks.Publish(bus.TaskEvent{Kind: "created", Task: *created})
	c.bus.Notify.Publish(bus.OutboundNotification{
		Text: fmt.Sprintf("Added: %s", created.Description),
	})
	return nil
}
