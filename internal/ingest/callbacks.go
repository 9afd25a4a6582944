package ingest

import (
	"context"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/zaytsevrv/jarvis-assistant/internal/bus"
	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

// handleCallback parses the "<action>:<payload>" callback-query encoding
// from spec.md §6 (e.g. "task_done:17", "clf_ok:4321") and republishes it
// on the bus as a discriminated TaskEvent/Classification resolution for
// internal/taskengine and internal/classifier to act on — Ingest itself
// never mutates Task/ConfidenceItem state, per the ownership rule in
// spec.md §3.
func (in *Ingest) handleCallback(ctx context.Context, cq *telego.CallbackQuery) error {
	defer func() {
		_ = in.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{CallbackQueryID: cq.ID})
	}()

	action, payload, ok := strings.Cut(cq.Data, ":")
	if !ok {
		return nil
	}
	id, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		return nil
	}

	switch action {
	case "task_done":
		in.bus.Tasks.Publish(bus.TaskEvent{Kind: "complete_requested", Task: store.Task{ID: id}})
	case "task_cancel":
		in.bus.Tasks.Publish(bus.TaskEvent{Kind: "cancel_requested", Task: store.Task{ID: id}})
	case "task_postpone":
		in.bus.Tasks.Publish(bus.TaskEvent{Kind: "postpone_requested", Task: store.Task{ID: id}})
	case "task_wait":
		// Owner confirms the tracked task is still open; nothing to mutate,
		// it just stays active until the next check.
	case "conf_yes":
		in.bus.Classified.Publish(bus.Classification{ConfidenceRef: &store.ConfidenceItem{ID: id}, Resolution: "confirm"})
	case "clf_ok":
		in.bus.Classified.Publish(bus.Classification{ConfidenceRef: &store.ConfidenceItem{ID: id}, Resolution: "correct"})
	case "conf_no":
		// Owner disagrees with the predicted classification; the resolution
		// is recorded but the item's predicted_type is left for feedback
		// capture rather than mutated here.
		in.bus.Classified.Publish(bus.Classification{ConfidenceRef: &store.ConfidenceItem{ID: id}, Resolution: "reject"})
	}
	return nil
}
