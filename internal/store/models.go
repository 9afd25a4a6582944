// Package store defines the persistence contracts for the daemon's
// entities (SPEC_FULL §3). internal/store/pg provides the Postgres
// implementation.
package store

import "time"

// MediaKind enumerates Message.media_kind values.
type MediaKind string

const (
	MediaNone     MediaKind = "none"
	MediaPhoto    MediaKind = "photo"
	MediaVoice    MediaKind = "voice"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
	MediaAnimation MediaKind = "animation"
)

// Message is a persisted upstream chat event.
type Message struct {
	ID             int64
	UpstreamMsgID  int64
	ChatID         int64
	ChatTitle      string
	SenderID       int64
	SenderName     string
	Text           string
	MediaKind      MediaKind
	Timestamp      time.Time
	AccountLabel   string
	Processed      bool
}

// TaskType enumerates Task.type values.
type TaskType string

const (
	TaskGeneric          TaskType = "task"
	TaskPromiseMine      TaskType = "promise_mine"
	TaskPromiseIncoming  TaskType = "promise_incoming"
)

// TaskStatus enumerates Task.status values.
type TaskStatus string

const (
	TaskActive    TaskStatus = "active"
	TaskDone      TaskStatus = "done"
	TaskCancelled TaskStatus = "cancelled"
)

// Recurrence enumerates Task.recurrence values.
type Recurrence string

const (
	RecurrenceNone    Recurrence = ""
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// Task is the daemon's primary actionable entity.
type Task struct {
	ID               int64
	Type             TaskType
	Description      string
	Who              string
	Deadline         *time.Time
	RemindAt         *time.Time
	RemindAtSent     bool
	Recurrence       Recurrence
	Confidence       int
	Source           string
	SourceMsgID      *int64
	ChatID           *int64
	SenderID         *int64
	SenderName       string
	Account          string
	Status           TaskStatus
	CreatedAt        time.Time
	CompletedAt      *time.Time
	TrackCompletion  bool
	LastCheckedAt    *time.Time
	CheckIntervalDays int
}

// ConfidenceItem is a MEDIUM- or LOW-band classification awaiting owner review.
type ConfidenceItem struct {
	ID            int64
	MessageID     int64
	ChatID        int64
	SenderName    string
	TextPreview   string
	PredictedType TaskType
	Confidence    int
	IsUrgent      bool
	Resolved      bool
	CreatedAt     time.Time
}

// ClassificationFeedback is an append-only record of owner corrections.
type ClassificationFeedback struct {
	ID                 int64
	MessageID          int64
	PredictedType      string
	ActualType         string
	PredictedConfidence int
	UserReason         string
	CreatedAt          time.Time
}

// TurnRole enumerates ConversationTurn.role values.
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// ConversationTurn is one entry in the owner<->assistant dialogue history.
type ConversationTurn struct {
	ID        int64
	Role      TurnRole
	Content   string
	ToolCalls string // JSON-encoded, empty if none
	CreatedAt time.Time
}

// HealthCheck is the latest heartbeat for a module.
type HealthCheck struct {
	Module    string
	Status    string // "ok" or "error"
	Error     string
	Timestamp time.Time
}

// DeadlineNotification dedups daily deadline reminders per task.
type DeadlineNotification struct {
	TaskID int64
	Date   time.Time
	Count  int
}

// MCPServer is an owner-registered external MCP tool server, supplementing
// the fixed tool catalog (SPEC_FULL §4.5).
type MCPServer struct {
	ID        string
	Name      string
	URL       string
	Enabled   bool
	CreatedAt time.Time
}
