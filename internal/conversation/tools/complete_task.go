package tools

import (
	"context"

	"github.com/zaytsevrv/jarvis-assistant/internal/taskengine"
)

func NewCompleteTask(engine *taskengine.Engine) Definition {
	return Definition{
		Name:        "complete_task",
		Description: "Mark a task done by ID. Recurring tasks respawn automatically.",
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
			if err := engine.Complete(ctx, id); err != nil {
				return Errorf("complete task %d: %v", id, err)
			}
			return Ok(map[string]interface{}{"completed": true, "task_id": id})
		},
	}
}

func intArg(args map[string]interface{}, key string) (int64, bool) {
	switch v := args[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}
