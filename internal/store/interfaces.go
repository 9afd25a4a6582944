package store

import (
	"context"
	"time"
)

// MessageStore owns Message per SPEC_FULL §3 ownership rules.
type MessageStore interface {
	// Save inserts a Message. On a unique-constraint conflict on
	// (upstream_msg_id, chat_id) it returns (0, false, nil) — the
	// idempotence mechanism from spec.md §4.1.
	Save(ctx context.Context, m *Message) (id int64, inserted bool, err error)
	MarkProcessed(ctx context.Context, id int64) error
	RecentInChat(ctx context.Context, chatID int64, limit int) ([]Message, error)
	Since(ctx context.Context, chatID int64, since time.Time) ([]Message, error)
	Search(ctx context.Context, query string, limit int) ([]Message, error)
	SearchBySender(ctx context.Context, senderName string, limit int) ([]Message, error)
	IsKnownSender(ctx context.Context, chatID, senderID int64) (bool, error)
	Stats(ctx context.Context) (messageCount int64, dbSize string, err error)
}

// TaskFilter narrows ListActive.
type TaskFilter struct {
	Type *TaskType
}

// TaskUpdate carries partial-update fields for UpdateTask; nil means
// "leave unchanged", grounded on the teacher's execMapUpdate pattern.
type TaskUpdate struct {
	Description *string
	Who         *string
	Deadline    **time.Time
	RemindAt    **time.Time
	Recurrence  *Recurrence
}

// TaskStore owns Task and DeadlineNotification.
type TaskStore interface {
	Create(ctx context.Context, t *Task) (*Task, error)
	// FindSimilarActive implements the 50-char bidirectional containment
	// dedup rule from spec.md §4.3.
	FindSimilarActive(ctx context.Context, description string) (*Task, error)
	Get(ctx context.Context, id int64) (*Task, error)
	ListActive(ctx context.Context, filter TaskFilter) ([]Task, error)
	ListTrackedDue(ctx context.Context, debounce time.Duration) ([]Task, error)
	ListDueReminders(ctx context.Context, now time.Time) ([]Task, error)
	ListDueToday(ctx context.Context, today time.Time) ([]Task, error)
	Update(ctx context.Context, id int64, upd TaskUpdate) (*Task, error)
	Complete(ctx context.Context, id int64) (respawned *Task, err error)
	Cancel(ctx context.Context, id int64) error
	Postpone(ctx context.Context, id int64, days int) (*Task, error)
	MarkReminderSent(ctx context.Context, id int64) error
	MarkChecked(ctx context.Context, id int64, at time.Time) error

	RecordDeadlineNotification(ctx context.Context, taskID int64, date time.Time) (alreadySent bool, err error)
}

// ConfidenceStore owns ConfidenceItem.
type ConfidenceStore interface {
	Create(ctx context.Context, item *ConfidenceItem) (*ConfidenceItem, error)
	Get(ctx context.Context, id int64) (*ConfidenceItem, error)
	Unresolved(ctx context.Context) ([]ConfidenceItem, error)
	// Resolve is idempotent: a second call on an already-resolved item is a
	// no-op (spec.md §8 "at most one resolve call has effect").
	Resolve(ctx context.Context, id int64) (alreadyResolved bool, err error)
}

// FeedbackStore owns ClassificationFeedback.
type FeedbackStore interface {
	Append(ctx context.Context, f *ClassificationFeedback) error
}

// TurnStore owns ConversationTurn.
type TurnStore interface {
	Append(ctx context.Context, t *ConversationTurn) error
	Recent(ctx context.Context, limit int) ([]ConversationTurn, error)
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// SettingStore owns the Setting key/value table.
type SettingStore interface {
	Get(ctx context.Context, key string, out interface{}) (found bool, err error)
	Set(ctx context.Context, key string, value interface{}) error
}

// HealthStore owns HealthCheck, written by every component's heartbeat.
type HealthStore interface {
	Heartbeat(ctx context.Context, module string, status string, errMsg string) error
	All(ctx context.Context) ([]HealthCheck, error)
}

// MCPServerStore owns the owner's registered supplemental MCP tool servers.
type MCPServerStore interface {
	List(ctx context.Context) ([]MCPServer, error)
	Create(ctx context.Context, s *MCPServer) error
}

// Stores is the top-level container, grounded on the teacher's
// internal/store/stores.go container-of-interfaces shape.
type Stores struct {
	Messages   MessageStore
	Tasks      TaskStore
	Confidence ConfidenceStore
	Feedback   FeedbackStore
	Turns      TurnStore
	Settings   SettingStore
	Health     HealthStore
	MCPServers MCPServerStore
}
