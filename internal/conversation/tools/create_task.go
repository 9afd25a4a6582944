package tools

import (
	"context"
	"time"

	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

func NewCreateTask(stores *store.Stores) Definition {
	return Definition{
		Name:        "create_task",
		Description: "Create a task or tracked promise. Deduplicates against active tasks with similar descriptions.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"description": map[string]interface{}{"type": "string"},
				"task_type":   map[string]interface{}{"type": "string", "enum": []string{"task", "promise_mine", "promise_incoming"}},
				"deadline":    map[string]interface{}{"type": "string", "description": "YYYY-MM-DD, optional"},
				"who":         map[string]interface{}{"type": "string"},
				"remind_at":   map[string]interface{}{"type": "string", "description": "RFC3339, optional"},
				"recurrence":  map[string]interface{}{"type": "string", "enum": []string{"", "daily", "weekly", "monthly"}},
			},
			"required": []string{"description", "task_type"},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) *Result {
			description, _ := args["description"].(string)
			if description == "" {
				return Errorf("description is required")
			}
			taskType, _ := args["task_type"].(string)
			t := store.TaskType(taskType)
			if t != store.TaskGeneric && t != store.TaskPromiseMine && t != store.TaskPromiseIncoming {
				return Errorf("invalid task_type %q", taskType)
			}

			task := &store.Task{
				Type:        t,
				Description: description,
				Who:         stringArg(args, "who"),
				Source:      "conversation",
				Status:      store.TaskActive,
			}
			if s := stringArg(args, "deadline"); s != "" {
				if d, err := time.Parse("2006-01-02", s); err == nil {
					task.Deadline = &d
				}
			}
			if s := stringArg(args, "remind_at"); s != "" {
				if r, err := time.Parse(time.RFC3339, s); err == nil {
					task.RemindAt = &r
				}
			}
			if s := stringArg(args, "recurrence"); s != "" {
				task.Recurrence = store.Recurrence(s)
			}

			if existing, err := stores.Tasks.FindSimilarActive(ctx, description); err == nil && existing != nil {
				return Ok(map[string]interface{}{"duplicate": true, "existing_task": existing})
			}

			created, err := stores.Tasks.Create(ctx, task)
			if err != nil {
				return Errorf("create task: %v", err)
			}
			return Ok(map[string]interface{}{"created": true, "task_id": created.ID})
		},
	}
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return v
}
