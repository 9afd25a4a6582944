package tools

import (
	"context"

	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

const preferencesSettingKey = "user_preferences"

var preferenceValues = map[string]map[string]bool{
	"address": {"ты": true, "вы": true},
	"style":   {"formal": true, "casual": true, "business-casual": true},
	"emoji":   {"true": true, "false": true},
}

// NewUpdatePreferences fills the gap spec.md §4.5 names but the original
// implementation's TOOL_DEFINITIONS never had: a validated key/value setter
// for the owner's address/style/emoji preferences, following the same
// allow-listed-values shape the original uses for its other tools.
func NewUpdatePreferences(stores *store.Stores) Definition {
	return Definition{
		Name:        "update_preferences",
		Description: "Update one owner preference. Allowed keys: address (ты|вы), style (formal|casual|business-casual), emoji (true|false).",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"key":   map[string]interface{}{"type": "string", "enum": []string{"address", "style", "emoji"}},
				"value": map[string]interface{}{"type": "string"},
			},
			"required": []string{"key", "value"},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) *Result {
			key := stringArg(args, "key")
			value := stringArg(args, "value")
			allowed, known := preferenceValues[key]
			if !known {
				return Errorf("unknown preference key %q", key)
			}
			if !allowed[value] {
				return Errorf("invalid value %q for %q", value, key)
			}

			prefs := map[string]string{}
			_, _ = stores.Settings.Get(ctx, preferencesSettingKey, &prefs)
			prefs[key] = value
			if err := stores.Settings.Set(ctx, preferencesSettingKey, prefs); err != nil {
				return Errorf("update preferences: %v", err)
			}
			return Ok(map[string]interface{}{"updated": true, "preferences": prefs})
		},
	}
}
