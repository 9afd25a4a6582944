package taskengine

import (
	"context"
	"testing"
	"time"

	"github.com/zaytsevrv/jarvis-assistant/internal/bus"
	"github.com/zaytsevrv/jarvis-assistant/internal/config"
	"github.com/zaytsevrv/jarvis-assistant/internal/llm"
	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

type fakeTaskStore struct {
	store.TaskStore
	completeRespawn *store.Task
	completedID     int64
	cancelledID     int64
	postponedID     int64
	postponedDays   int
	dueReminders    []store.Task
	dueToday        []store.Task
	active          []store.Task
	trackedDue      []store.Task
	remindersSent   []int64
	deadlineAlready map[int64]bool
	checkedIDs      []int64
}

func (f *fakeTaskStore) Complete(ctx context.Context, id int64) (*store.Task, error) {
	f.completedID = id
	return f.completeRespawn, nil
}
func (f *fakeTaskStore) Cancel(ctx context.Context, id int64) error {
	f.cancelledID = id
	return nil
}
func (f *fakeTaskStore) Postpone(ctx context.Context, id int64, days int) (*store.Task, error) {
	f.postponedID = id
	f.postponedDays = days
	return &store.Task{ID: id}, nil
}
func (f *fakeTaskStore) ListDueReminders(ctx context.Context, now time.Time) ([]store.Task, error) {
	return f.dueReminders, nil
}
func (f *fakeTaskStore) MarkReminderSent(ctx context.Context, id int64) error {
	f.remindersSent = append(f.remindersSent, id)
	return nil
}
func (f *fakeTaskStore) ListDueToday(ctx context.Context, today time.Time) ([]store.Task, error) {
	return f.dueToday, nil
}
func (f *fakeTaskStore) RecordDeadlineNotification(ctx context.Context, taskID int64, date time.Time) (bool, error) {
	return f.deadlineAlready[taskID], nil
}
func (f *fakeTaskStore) ListActive(ctx context.Context, filter store.TaskFilter) ([]store.Task, error) {
	return f.active, nil
}
func (f *fakeTaskStore) ListTrackedDue(ctx context.Context, debounce time.Duration) ([]store.Task, error) {
	return f.trackedDue, nil
}
func (f *fakeTaskStore) MarkChecked(ctx context.Context, id int64, at time.Time) error {
	f.checkedIDs = append(f.checkedIDs, id)
	return nil
}

type fakeMessageStore struct {
	store.MessageStore
	recent []store.Message
}

func (f *fakeMessageStore) RecentInChat(ctx context.Context, chatID int64, limit int) ([]store.Message, error) {
	return f.recent, nil
}

type fakeJudge struct {
	response string
	err      error
}

func (f *fakeJudge) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.response}, nil
}
func (f *fakeJudge) ToolUse(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return f.Complete(ctx, req)
}
func (f *fakeJudge) Name() string         { return "fake" }
func (f *fakeJudge) DefaultModel() string { return "fake-model" }

func newTestEngine(tasks *fakeTaskStore, messages *fakeMessageStore, judge llm.Backend) (*Engine, *bus.Bus) {
	b := bus.New()
	cfg := config.Defaults()
	e := New(&store.Stores{Tasks: tasks, Messages: messages}, b, cfg, judge)
	return e, b
}

func TestComplete_PublishesCompletedAndRespawned(t *testing.T) {
	tasks := &fakeTaskStore{completeRespawn: &store.Task{ID: 2}}
	e, b := newTestEngine(tasks, &fakeMessageStore{}, &fakeJudge{})
	sub := b.Tasks.Subscribe("test", 4)

	if err := e.Complete(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	if tasks.completedID != 1 {
		t.Errorf("completedID = %d, want 1", tasks.completedID)
	}

	first := <-sub
	if first.Kind != "completed" {
		t.Errorf("first event kind = %q, want completed", first.Kind)
	}
	second := <-sub
	if second.Kind != "respawned" || second.Task.ID != 2 {
		t.Errorf("second event = %+v, want respawned task 2", second)
	}
}

func TestComplete_NoRespawnPublishesOnlyOneEvent(t *testing.T) {
	tasks := &fakeTaskStore{}
	e, b := newTestEngine(tasks, &fakeMessageStore{}, &fakeJudge{})
	sub := b.Tasks.Subscribe("test", 4)

	if err := e.Complete(context.Background(), 5); err != nil {
		t.Fatal(err)
	}
	<-sub
	select {
	case ev := <-sub:
		t.Fatalf("unexpected second event: %+v", ev)
	default:
	}
}

func TestCancel_PublishesCancelled(t *testing.T) {
	tasks := &fakeTaskStore{}
	e, b := newTestEngine(tasks, &fakeMessageStore{}, &fakeJudge{})
	sub := b.Tasks.Subscribe("test", 4)

	if err := e.Cancel(context.Background(), 9); err != nil {
		t.Fatal(err)
	}
	if tasks.cancelledID != 9 {
		t.Errorf("cancelledID = %d, want 9", tasks.cancelledID)
	}
	ev := <-sub
	if ev.Kind != "cancelled" {
		t.Errorf("kind = %q, want cancelled", ev.Kind)
	}
}

func TestScanReminders_PublishesAndMarksSent(t *testing.T) {
	tasks := &fakeTaskStore{dueReminders: []store.Task{{ID: 1, Description: "call mom"}}}
	e, b := newTestEngine(tasks, &fakeMessageStore{}, &fakeJudge{})
	sub := b.Notify.Subscribe("test", 4)

	if err := e.ScanReminders(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(tasks.remindersSent) != 1 || tasks.remindersSent[0] != 1 {
		t.Errorf("remindersSent = %v, want [1]", tasks.remindersSent)
	}
	note := <-sub
	if note.Text == "" || len(note.Keyboard) == 0 {
		t.Error("expected a reminder notification with a keyboard")
	}
}

func TestScanDeadlines_SkipsAlreadyNotified(t *testing.T) {
	tasks := &fakeTaskStore{
		dueToday:        []store.Task{{ID: 1, Description: "report"}, {ID: 2, Description: "invoice"}},
		deadlineAlready: map[int64]bool{1: true},
	}
	e, b := newTestEngine(tasks, &fakeMessageStore{}, &fakeJudge{})
	sub := b.Notify.Subscribe("test", 4)

	if err := e.ScanDeadlines(context.Background()); err != nil {
		t.Fatal(err)
	}

	select {
	case note := <-sub:
		if note.Text == "" {
			t.Fatal("expected a notification for task 2")
		}
	default:
		t.Fatal("expected exactly one notification")
	}
	select {
	case note := <-sub:
		t.Fatalf("unexpected second notification: %+v", note)
	default:
	}
}

func TestScanDeadlines_NoTasksDueIsNoop(t *testing.T) {
	tasks := &fakeTaskStore{}
	e, b := newTestEngine(tasks, &fakeMessageStore{}, &fakeJudge{})
	sub := b.Notify.Subscribe("test", 4)

	if err := e.ScanDeadlines(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case note := <-sub:
		t.Fatalf("unexpected notification: %+v", note)
	default:
	}
}

func TestShouldCheck_DebouncesWithinWindow(t *testing.T) {
	tasks := &fakeTaskStore{}
	e, _ := newTestEngine(tasks, &fakeMessageStore{}, &fakeJudge{})
	e.cfg.Resources.TrackedCheckDebounceSec = 60

	if !e.shouldCheck(42) {
		t.Fatal("first call should always be allowed")
	}
	if e.shouldCheck(42) {
		t.Fatal("second call within the debounce window should be suppressed")
	}
	if !e.shouldCheck(99) {
		t.Fatal("a different chat id should not be debounced by another chat's check")
	}
}

func TestJudgeCompletion_ParsesVerdictJSON(t *testing.T) {
	tasks := &fakeTaskStore{}
	judge := &fakeJudge{response: `here you go: {"verdict":"completed","evidence":"said done"}`}
	e, _ := newTestEngine(tasks, &fakeMessageStore{}, judge)

	v, evidence := e.judgeCompletion(context.Background(), store.Task{Description: "x"}, nil)
	if v != verdictCompleted {
		t.Errorf("verdict = %q, want completed", v)
	}
	if evidence != "said done" {
		t.Errorf("evidence = %q, want %q", evidence, "said done")
	}
}

func TestJudgeCompletion_UnparsableFallsBackToUnclear(t *testing.T) {
	tasks := &fakeTaskStore{}
	judge := &fakeJudge{response: "not json at all"}
	e, _ := newTestEngine(tasks, &fakeMessageStore{}, judge)

	v, _ := e.judgeCompletion(context.Background(), store.Task{Description: "x"}, nil)
	if v != verdictUnclear {
		t.Errorf("verdict = %q, want unclear", v)
	}
}

func TestJudgeCompletion_LLMErrorFallsBackToUnclear(t *testing.T) {
	tasks := &fakeTaskStore{}
	judge := &fakeJudge{err: context.DeadlineExceeded}
	e, _ := newTestEngine(tasks, &fakeMessageStore{}, judge)

	v, evidence := e.judgeCompletion(context.Background(), store.Task{Description: "x"}, nil)
	if v != verdictUnclear || evidence != "" {
		t.Errorf("got (%q, %q), want (unclear, \"\")", v, evidence)
	}
}

func TestDispatchAction_CompleteRequestedCompletesTask(t *testing.T) {
	tasks := &fakeTaskStore{}
	e, _ := newTestEngine(tasks, &fakeMessageStore{}, &fakeJudge{})

	e.dispatchAction(context.Background(), bus.TaskEvent{Kind: "complete_requested", Task: store.Task{ID: 7}})
	if tasks.completedID != 7 {
		t.Errorf("completedID = %d, want 7", tasks.completedID)
	}
}

func TestDispatchAction_CancelRequestedCancelsTask(t *testing.T) {
	tasks := &fakeTaskStore{}
	e, _ := newTestEngine(tasks, &fakeMessageStore{}, &fakeJudge{})

	e.dispatchAction(context.Background(), bus.TaskEvent{Kind: "cancel_requested", Task: store.Task{ID: 3}})
	if tasks.cancelledID != 3 {
		t.Errorf("cancelledID = %d, want 3", tasks.cancelledID)
	}
}

func TestDispatchAction_PostponeRequestedPostponesByOneDay(t *testing.T) {
	tasks := &fakeTaskStore{}
	e, _ := newTestEngine(tasks, &fakeMessageStore{}, &fakeJudge{})

	e.dispatchAction(context.Background(), bus.TaskEvent{Kind: "postpone_requested", Task: store.Task{ID: 4}})
	if tasks.postponedID != 4 || tasks.postponedDays != 1 {
		t.Errorf("postponed (%d, %d days), want (4, 1)", tasks.postponedID, tasks.postponedDays)
	}
}

func TestDispatchAction_UnknownKindIsIgnored(t *testing.T) {
	tasks := &fakeTaskStore{}
	e, _ := newTestEngine(tasks, &fakeMessageStore{}, &fakeJudge{})

	e.dispatchAction(context.Background(), bus.TaskEvent{Kind: "created", Task: store.Task{ID: 9}})
	if tasks.completedID != 0 || tasks.cancelledID != 0 || tasks.postponedID != 0 {
		t.Error("a state-change event this engine itself publishes should never be re-dispatched as an action")
	}
}

func TestCheckChatTrackedTasks_SkipsUntrackedAndOtherChats(t *testing.T) {
	chatA := int64(1)
	chatB := int64(2)
	tasks := &fakeTaskStore{
		active: []store.Task{
			{ID: 1, TrackCompletion: true, ChatID: &chatA, Description: "tracked here"},
			{ID: 2, TrackCompletion: true, ChatID: &chatB, Description: "tracked elsewhere"},
			{ID: 3, TrackCompletion: false, ChatID: &chatA, Description: "not tracked"},
		},
	}
	judge := &fakeJudge{response: `{"verdict":"not_completed","evidence":"still waiting"}`}
	e, b := newTestEngine(tasks, &fakeMessageStore{}, judge)
	sub := b.Notify.Subscribe("test", 4)

	if err := e.checkChatTrackedTasks(context.Background(), chatA); err != nil {
		t.Fatal(err)
	}
	if len(tasks.checkedIDs) != 1 || tasks.checkedIDs[0] != 1 {
		t.Errorf("checkedIDs = %v, want [1]", tasks.checkedIDs)
	}
	select {
	case note := <-sub:
		if note.Text == "" {
			t.Fatal("expected a tracked-task notification")
		}
	default:
		t.Fatal("expected exactly one notification for the tracked task")
	}
}
