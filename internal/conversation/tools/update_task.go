package tools

import (
	"context"
	"time"

	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

func NewUpdateTask(stores *store.Stores) Definition {
	return Definition{
		Name:        "update_task",
		Description: "Update one or more fields of an existing task by ID.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id":          map[string]interface{}{"type": "integer"},
				"description": map[string]interface{}{"type": "string"},
				"who":         map[string]interface{}{"type": "string"},
				"deadline":    map[string]interface{}{"type": "string", "description": "YYYY-MM-DD, empty string clears it"},
				"remind_at":   map[string]interface{}{"type": "string", "description": "RFC3339, empty string clears it"},
				"recurrence":  map[string]interface{}{"type": "string", "enum": []string{"", "daily", "weekly", "monthly"}},
			},
			"required": []string{"id"},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) *Result {
			id, ok := intArg(args, "id")
			if !ok {
				return Errorf("id is required")
			}
			if _, err := stores.Tasks.Get(ctx, id); err != nil {
				return Errorf("task %d not found", id)
			}

			var upd store.TaskUpdate
			if _, present := args["description"]; present {
				d := stringArg(args, "description")
				upd.Description = &d
			}
			if _, present := args["who"]; present {
				w := stringArg(args, "who")
				upd.Who = &w
			}
			if _, present := args["deadline"]; present {
				var dt *time.Time
				if s := stringArg(args, "deadline"); s != "" {
					if parsed, err := time.Parse("2006-01-02", s); err == nil {
						dt = &parsed
					}
				}
				upd.Deadline = &dt
			}
			if _, present := args["remind_at"]; present {
				var rt *time.Time
				if s := stringArg(args, "remind_at"); s != "" {
					if parsed, err := time.Parse(time.RFC3339, s); err == nil {
						rt = &parsed
					}
				}
				upd.RemindAt = &rt
			}
			if _, present := args["recurrence"]; present {
				r := store.Recurrence(stringArg(args, "recurrence"))
				upd.Recurrence = &r
			}

			updated, err := stores.Tasks.Update(ctx, id, upd)
			if err != nil {
				return Errorf("update task %d: %v", id, err)
			}
			return Ok(map[string]interface{}{"updated": true, "task": updated})
		},
	}
}
