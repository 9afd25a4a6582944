// Package config holds the daemon's configuration surface: a hot-reloadable
// JSON file for operational knobs and environment variables for every
// credential, per SPEC_FULL §6.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// FlexibleStringSlice accepts both ["1","2"] and [1,2] in JSON — chat ids
// are sometimes hand-edited as raw numbers in the config file.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			out = append(out, val)
		case float64:
			out = append(out, fmt.Sprintf("%.0f", val))
		default:
			out = append(out, fmt.Sprintf("%v", val))
		}
	}
	*f = out
	return nil
}

// Config is the root daemon configuration.
type Config struct {
	Owner     OwnerConfig     `json:"owner"`
	Schedule  ScheduleConfig  `json:"schedule"`
	Confidence ConfidenceConfig `json:"confidence"`
	Resources ResourcesConfig `json:"resources"`
	LLM       LLMConfig       `json:"llm"`
	Database  DatabaseConfig  `json:"database"`
	Telegram  TelegramConfig  `json:"telegram"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`

	mu sync.RWMutex
}

// OwnerConfig identifies the single owner and their locale.
type OwnerConfig struct {
	TelegramUserID int64  `json:"telegram_user_id"`
	Timezone       string `json:"timezone"` // IANA name, e.g. "Europe/Moscow"
	AccountLabel   string `json:"account_label,omitempty"`
}

// ScheduleConfig carries the fixed wall-clock hours from SPEC_FULL §4.6.
// All hours are in Owner.Timezone.
type ScheduleConfig struct {
	BriefingHour       int   `json:"briefing_hour"`        // default 9
	DeadlineReviewHour int   `json:"deadline_review_hour"` // default 14
	ConfidenceBatchHour int  `json:"confidence_batch_hour"` // default 17
	DigestHour         int   `json:"digest_hour"`          // default 21
	TrackedCheckHours  []int `json:"tracked_check_hours"`  // default [9,13,17,21] at :05
	WeeklyAnalysisDay  int   `json:"weekly_analysis_day"`  // 0=Sunday, default 0
	WeeklyAnalysisHour int   `json:"weekly_analysis_hour"` // default 10
}

// ConfidenceConfig carries the classification thresholds and quotas.
type ConfidenceConfig struct {
	HighThreshold     int `json:"high_threshold"`      // default 80
	LowThreshold      int `json:"low_threshold"`       // default 50
	DailyUrgentLimit  int `json:"daily_urgent_limit"`  // default 10
	DeferredDelayMins int `json:"deferred_delay_mins"` // default 5
}

// ResourcesConfig carries the resource bounds from SPEC_FULL §5.
type ResourcesConfig struct {
	MaxToolRounds          int `json:"max_tool_rounds"`           // default 5
	MaxToolCallsPerRound   int `json:"max_tool_calls_per_round"`  // default 5
	ConversationWindow     int `json:"conversation_window"`       // default 20
	ClassifierContextSize  int `json:"classifier_context_size"`   // default 10
	TrackedCheckDebounceSec int `json:"tracked_check_debounce_sec"` // default 60
	ChatNameCacheTTLSec    int `json:"chat_name_cache_ttl_sec"`    // default 300
	SettingCacheTTLSec     int `json:"setting_cache_ttl_sec"`      // default 60
	HeartbeatIntervalSec   int `json:"heartbeat_interval_sec"`     // default 300
}

// LLMConfig configures the two LLM backends. Keys are env-only.
type LLMConfig struct {
	PrimaryModel  string `json:"primary_model"`
	FallbackModel string `json:"fallback_model"`
	JudgeModel    string `json:"judge_model"`
	PrimaryKey    string `json:"-"` // env JARVIS_LLM_PRIMARY_KEY
	FallbackKey   string `json:"-"` // env JARVIS_LLM_FALLBACK_KEY
	RequestTimeoutSec int `json:"request_timeout_sec"` // default 120
}

// DatabaseConfig — DSN is env-only, never persisted to the config file.
type DatabaseConfig struct {
	DSN string `json:"-"` // env JARVIS_POSTGRES_DSN
}

// TelegramConfig — bot token is env-only.
type TelegramConfig struct {
	BotToken string `json:"-"` // env JARVIS_TELEGRAM_BOT_TOKEN
	Proxy    string `json:"proxy,omitempty"`
}

// TelemetryConfig configures optional OTLP export.
type TelemetryConfig struct {
	Enabled     bool   `json:"enabled,omitempty"`
	Endpoint    string `json:"endpoint,omitempty"`
	Protocol    string `json:"protocol,omitempty"` // "grpc" (default) or "http"
	Insecure    bool   `json:"insecure,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
}

// Defaults returns a Config populated with SPEC_FULL's documented defaults.
func Defaults() *Config {
	return &Config{
		Owner: OwnerConfig{Timezone: "Europe/Moscow"},
		Schedule: ScheduleConfig{
			BriefingHour:        9,
			DeadlineReviewHour:  14,
			ConfidenceBatchHour: 17,
			DigestHour:          21,
			TrackedCheckHours:   []int{9, 13, 17, 21},
			WeeklyAnalysisDay:   0,
			WeeklyAnalysisHour:  10,
		},
		Confidence: ConfidenceConfig{
			HighThreshold:     80,
			LowThreshold:      50,
			DailyUrgentLimit:  10,
			DeferredDelayMins: 5,
		},
		Resources: ResourcesConfig{
			MaxToolRounds:           5,
			MaxToolCallsPerRound:    5,
			ConversationWindow:      20,
			ClassifierContextSize:   10,
			TrackedCheckDebounceSec: 60,
			ChatNameCacheTTLSec:     300,
			SettingCacheTTLSec:      60,
			HeartbeatIntervalSec:    300,
		},
		LLM: LLMConfig{RequestTimeoutSec: 120},
	}
}

// Load reads the JSON config file (if present, else defaults) and layers
// environment-sourced secrets on top.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("JARVIS_TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("JARVIS_POSTGRES_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("JARVIS_LLM_PRIMARY_KEY"); v != "" {
		cfg.LLM.PrimaryKey = v
	}
	if v := os.Getenv("JARVIS_LLM_FALLBACK_KEY"); v != "" {
		cfg.LLM.FallbackKey = v
	}
	if v := os.Getenv("JARVIS_OWNER_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Owner.TelegramUserID = id
		}
	}
}

// Validate refuses startup on missing mandatory values (SPEC_FULL §6).
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("missing JARVIS_TELEGRAM_BOT_TOKEN")
	}
	if c.Owner.TelegramUserID == 0 {
		return fmt.Errorf("missing JARVIS_OWNER_ID")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("missing JARVIS_POSTGRES_DSN")
	}
	if c.LLM.PrimaryKey == "" {
		return fmt.Errorf("missing JARVIS_LLM_PRIMARY_KEY")
	}
	if _, err := time.LoadLocation(c.Owner.Timezone); err != nil {
		return fmt.Errorf("invalid owner timezone %q: %w", c.Owner.Timezone, err)
	}
	return nil
}

// ReplaceFrom copies all data fields from src into c, preserving c's mutex.
// Used by the fsnotify hot-reload watcher; secrets are never replaced this
// way since they are never read from the file.
func (c *Config) ReplaceFrom(src *Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	botToken, dsn, primaryKey, fallbackKey := c.Telegram.BotToken, c.Database.DSN, c.LLM.PrimaryKey, c.LLM.FallbackKey
	c.Owner = src.Owner
	c.Schedule = src.Schedule
	c.Confidence = src.Confidence
	c.Resources = src.Resources
	c.LLM = src.LLM
	c.Telegram = src.Telegram
	c.Telemetry = src.Telemetry
	c.Telegram.BotToken = botToken
	c.Database.DSN = dsn
	c.LLM.PrimaryKey = primaryKey
	c.LLM.FallbackKey = fallbackKey
}

// Location returns the owner's configured time zone.
func (c *Config) Location() *time.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	loc, err := time.LoadLocation(c.Owner.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
