package tools

import (
	"context"

	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

func NewListTasks(stores *store.Stores) Definition {
	return Definition{
		Name:        "list_tasks",
		Description: "List active tasks, optionally filtered by type.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"task_type": map[string]interface{}{"type": "string", "enum": []string{"task", "promise_mine", "promise_incoming"}},
			},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) *Result {
			filter := store.TaskFilter{}
			if s := stringArg(args, "task_type"); s != "" {
				t := store.TaskType(s)
				filter.Type = &t
			}
			tasks, err := stores.Tasks.ListActive(ctx, filter)
			if err != nil {
				return Errorf("list tasks: %v", err)
			}
			return Ok(map[string]interface{}{"tasks": tasks})
		},
	}
}
