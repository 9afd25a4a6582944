package tools

import (
	"context"

	"github.com/zaytsevrv/jarvis-assistant/internal/taskengine"
)

func NewCancelTask(engine *taskengine.Engine) Definition {
	return Definition{
		Name:        "cancel_task",
		Description: "Cancel an active task by ID without completing it.",
		Schema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"id": map[string]interface{}{"type": "integer"}},
			"required":   []string{"id"},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) *Result {
			id, ok := intArg(args, "id")
			if !ok {
				return Errorf("id is required")
			}
			if err := engine.Cancel(ctx, id); err != nil {
				return Errorf("cancel task %d: %v", id, err)
			}
			return Ok(map[string]interface{}{"cancelled": true, "task_id": id})
		},
	}
}
