// Package bus decouples the daemon's components (ingest, classifier,
// taskengine, conversation, scheduler, notifier) from each other, replacing
// the original's ad-hoc callback wiring (main.py's set_*_callback calls)
// with typed publish/subscribe channels. Grounded on the teacher's
// internal/bus package (EventPublisher/MessageRouter interface shape),
// generalized from channel-transport events to the daemon's own event
// types.
package bus

import (
	"context"
	"sync"

	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

// IngestedMessage is published by internal/ingest for every newly-persisted
// upstream message, and consumed by internal/classifier.
type IngestedMessage struct {
	Message store.Message
}

// OwnerTurn is published by internal/ingest for every message the owner
// sends in the control chat, and consumed by internal/conversation. Image
// carries raw bytes straight off the wire; internal/conversation owns
// downsizing/encoding it for the vision call.
type OwnerTurn struct {
	Text      string
	ImageData []byte
	MimeType  string
}

// Classification is published by internal/classifier once a message has
// been judged, and republished by internal/ingest's callback handler once
// the owner resolves a confidence prompt — consumed by internal/classifier's
// feedback loop.
type Classification struct {
	Message       store.Message
	PredictedType store.TaskType
	Confidence    int
	IsUrgent      bool
	Task          *store.Task // nil when classified as "noise"/non-actionable
	ConfidenceRef *store.ConfidenceItem

	// Resolution is set when this event represents an owner button press
	// resolving a confidence prompt (spec.md §4.2 "Feedback loop"):
	// "confirm" (MEDIUM "Yes"), "correct" (HIGH/LOW "Correct"), or "reject"
	// (HIGH "Wrong" / LOW "Actually a task" / MEDIUM "No").
	Resolution string
}

// TaskEvent is published by internal/taskengine on task lifecycle
// transitions and consumed by internal/notifier.
type TaskEvent struct {
	Kind string // "created", "completed", "reminder_due", "deadline_today", "respawned"
	Task store.Task
}

// OutboundNotification is published by any component and consumed by
// internal/notifier to render and deliver a message to the owner.
type OutboundNotification struct {
	Text        string
	Keyboard    [][]CallbackButton
	ParseHTML   bool
}

// CallbackButton is one inline-keyboard button; Data is the discriminated
// callback payload parsed at the wire boundary (spec.md §6).
type CallbackButton struct {
	Label string
	Data  string
}

// HealthEvent is published by any component's heartbeat and consumed by
// internal/supervisor's watchdog.
type HealthEvent struct {
	Module string
	Status string
	Error  string
}

// Topic is a typed, in-process publish/subscribe channel. Zero value is
// unusable; construct with NewTopic. Grounded on the teacher's
// EventPublisher interface, narrowed to one payload type per topic instead
// of one broadcast Event envelope — every consumer here is a known,
// in-process Go component, so there is no wire envelope to share.
type Topic[T any] struct {
	mu   sync.RWMutex
	subs map[string]chan T
}

func NewTopic[T any]() *Topic[T] {
	return &Topic[T]{subs: make(map[string]chan T)}
}

// Subscribe registers a buffered channel under id. A duplicate id replaces
// the previous subscriber's channel.
func (t *Topic[T]) Subscribe(id string, buffer int) <-chan T {
	ch := make(chan T, buffer)
	t.mu.Lock()
	t.subs[id] = ch
	t.mu.Unlock()
	return ch
}

func (t *Topic[T]) Unsubscribe(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ch, ok := t.subs[id]; ok {
		close(ch)
		delete(t.subs, id)
	}
}

// Publish fans out to every subscriber without blocking on a full channel —
// a slow consumer drops events rather than stalling the publisher, matching
// the teacher's best-effort broadcast semantics.
func (t *Topic[T]) Publish(v T) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, ch := range t.subs {
		select {
		case ch <- v:
		default:
		}
	}
}

// Bus is the daemon-wide collection of topics, wired once at startup and
// passed by reference to every component.
type Bus struct {
	Ingested     *Topic[IngestedMessage]
	OwnerTurn    *Topic[OwnerTurn]
	Classified   *Topic[Classification]
	Tasks        *Topic[TaskEvent]
	Notify       *Topic[OutboundNotification]
	Health       *Topic[HealthEvent]
}

func New() *Bus {
	return &Bus{
		Ingested:   NewTopic[IngestedMessage](),
		OwnerTurn:  NewTopic[OwnerTurn](),
		Classified: NewTopic[Classification](),
		Tasks:      NewTopic[TaskEvent](),
		Notify:     NewTopic[OutboundNotification](),
		Health:     NewTopic[HealthEvent](),
	}
}

// Drain reads from ch until ctx is cancelled or ch is closed, invoking fn
// for each value. Intended to be run in its own goroutine per subscriber.
func Drain[T any](ctx context.Context, ch <-chan T, fn func(T)) {
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-ch:
			if !ok {
				return
			}
			fn(v)
		}
	}
}
