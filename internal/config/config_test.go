package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestFlexibleStringSlice_AcceptsStringsAndNumbers(t *testing.T) {
	var f FlexibleStringSlice
	if err := json.Unmarshal([]byte(`["1","2"]`), &f); err != nil {
		t.Fatal(err)
	}
	if len(f) != 2 || f[0] != "1" || f[1] != "2" {
		t.Errorf("got %v", f)
	}

	var g FlexibleStringSlice
	if err := json.Unmarshal([]byte(`[1,2]`), &g); err != nil {
		t.Fatal(err)
	}
	if len(g) != 2 || g[0] != "1" || g[1] != "2" {
		t.Errorf("got %v", g)
	}
}

func TestValidate_RequiresMandatoryFields(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error on an empty config")
	}

	cfg.Telegram.BotToken = "tok"
	cfg.Owner.TelegramUserID = 1
	cfg.Database.DSN = "postgres://x"
	cfg.LLM.PrimaryKey = "key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error once mandatory fields are set: %v", err)
	}
}

func TestValidate_RejectsBadTimezone(t *testing.T) {
	cfg := Defaults()
	cfg.Telegram.BotToken = "tok"
	cfg.Owner.TelegramUserID = 1
	cfg.Database.DSN = "postgres://x"
	cfg.LLM.PrimaryKey = "key"
	cfg.Owner.Timezone = "Not/A/Zone"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an invalid timezone")
	}
}

func TestLocation_FallsBackToUTCOnBadTimezone(t *testing.T) {
	cfg := Defaults()
	cfg.Owner.Timezone = "Not/A/Zone"
	if loc := cfg.Location(); loc.String() != "UTC" {
		t.Errorf("got %v, want UTC fallback", loc)
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Schedule.BriefingHour != 9 {
		t.Errorf("briefing hour = %d, want default 9", cfg.Schedule.BriefingHour)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jarvis.json")
	if err := os.WriteFile(path, []byte(`{"schedule":{"briefing_hour":7}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Schedule.BriefingHour != 7 {
		t.Errorf("briefing hour = %d, want 7 from file", cfg.Schedule.BriefingHour)
	}
}

func TestLoad_EnvVarsApplyOnTop(t *testing.T) {
	t.Setenv("JARVIS_TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("JARVIS_OWNER_ID", "12345")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Telegram.BotToken != "env-token" {
		t.Errorf("bot token = %q, want env-token", cfg.Telegram.BotToken)
	}
	if cfg.Owner.TelegramUserID != 12345 {
		t.Errorf("owner id = %d, want 12345", cfg.Owner.TelegramUserID)
	}
}

func TestReplaceFrom_PreservesSecretsFromOriginal(t *testing.T) {
	c := Defaults()
	c.Telegram.BotToken = "secret-token"
	c.Database.DSN = "secret-dsn"
	c.LLM.PrimaryKey = "secret-key"

	src := Defaults()
	src.Schedule.BriefingHour = 11
	src.Telegram.BotToken = "should-not-apply"

	c.ReplaceFrom(src)

	if c.Schedule.BriefingHour != 11 {
		t.Errorf("briefing hour = %d, want replaced value 11", c.Schedule.BriefingHour)
	}
	if c.Telegram.BotToken != "secret-token" {
		t.Errorf("bot token = %q, want preserved secret", c.Telegram.BotToken)
	}
	if c.Database.DSN != "secret-dsn" {
		t.Errorf("dsn = %q, want preserved secret", c.Database.DSN)
	}
	if c.LLM.PrimaryKey != "secret-key" {
		t.Errorf("primary key = %q, want preserved secret", c.LLM.PrimaryKey)
	}
}
