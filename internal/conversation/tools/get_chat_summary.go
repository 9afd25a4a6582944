package tools

import (
	"context"
	"time"

	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

const defaultSummaryHours = 24

func NewGetChatSummary(stores *store.Stores) Definition {
	return Definition{
		Name:        "get_chat_summary",
		Description: "Return the messages in a chat over a recent time window.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"chat_id": map[string]interface{}{"type": "integer"},
				"hours":   map[string]interface{}{"type": "integer"},
			},
			"required": []string{"chat_id"},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) *Result {
			chatID, ok := intArg(args, "chat_id")
			if !ok {
				return Errorf("chat_id is required")
			}
			hours := defaultSummaryHours
			if n, ok := intArg(args, "hours"); ok && n > 0 {
				hours = int(n)
			}
			since := time.Now().Add(-time.Duration(hours) * time.Hour)
			msgs, err := stores.Messages.Since(ctx, chatID, since)
			if err != nil {
				return Errorf("chat summary: %v", err)
			}
			return Ok(map[string]interface{}{"messages": msgs})
		},
	}
}
