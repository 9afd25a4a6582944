package tools

import (
	"context"

	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

const whitelistSettingKey = "whitelist"

// NewManageWhitelist builds the manage_whitelist tool. onChange is called
// after a mutating action so internal/ingest's TTL cache can be invalidated
// immediately instead of waiting out its TTL.
func NewManageWhitelist(stores *store.Stores, onChange func()) Definition {
	return Definition{
		Name:        "manage_whitelist",
		Description: "List, add, or remove a chat_id from the monitored-chats whitelist.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"action":  map[string]interface{}{"type": "string", "enum": []string{"list", "add", "remove"}},
				"chat_id": map[string]interface{}{"type": "integer"},
			},
			"required": []string{"action"},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) *Result {
			var ids []int64
			_, _ = stores.Settings.Get(ctx, whitelistSettingKey, &ids)

			action := stringArg(args, "action")
			switch action {
			case "list":
				return Ok(map[string]interface{}{"whitelist": ids})
			case "add":
				chatID, ok := intArg(args, "chat_id")
				if !ok {
					return Errorf("chat_id is required")
				}
				if !containsID(ids, chatID) {
					ids = append(ids, chatID)
				}
			case "remove":
				chatID, ok := intArg(args, "chat_id")
				if !ok {
					return Errorf("chat_id is required")
				}
				ids = removeID(ids, chatID)
			default:
				return Errorf("invalid action %q", action)
			}

			if err := stores.Settings.Set(ctx, whitelistSettingKey, ids); err != nil {
				return Errorf("update whitelist: %v", err)
			}
			if onChange != nil {
				onChange()
			}
			return Ok(map[string]interface{}{"whitelist": ids})
		},
	}
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
