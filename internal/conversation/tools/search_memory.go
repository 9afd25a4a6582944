package tools

import (
	"context"

	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

const defaultSearchLimit = 20

func NewSearchMemory(stores *store.Stores) Definition {
	return Definition{
		Name:        "search_memory",
		Description: "Full-text search over ingested messages. Falls back to substring match if the text index can't be used.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{"type": "string"},
				"limit": map[string]interface{}{"type": "integer"},
			},
			"required": []string{"query"},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) *Result {
			query := stringArg(args, "query")
			if query == "" {
				return Errorf("query is required")
			}
			limit := defaultSearchLimit
			if n, ok := intArg(args, "limit"); ok && n > 0 {
				limit = int(n)
			}
			msgs, err := stores.Messages.Search(ctx, query, limit)
			if err != nil {
				return Errorf("search: %v", err)
			}
			return Ok(map[string]interface{}{"messages": msgs})
		},
	}
}
