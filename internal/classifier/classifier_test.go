package classifier

import (
	"context"
	"testing"

	"github.com/zaytsevrv/jarvis-assistant/internal/bus"
	"github.com/zaytsevrv/jarvis-assistant/internal/config"
	"github.com/zaytsevrv/jarvis-assistant/internal/llm"
	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

func TestParseJudgment_ExtractsEmbeddedJSON(t *testing.T) {
	raw := `Sure, here's my answer: {"type":"task_for_me","summary":"buy milk","confidence":85,"is_urgent":false}`
	j, err := parseJudgment(raw)
	if err != nil {
		t.Fatal(err)
	}
	if j.Type != KindTaskForMe || j.Summary != "buy milk" || j.Confidence != 85 {
		t.Errorf("got %+v", j)
	}
}

func TestParseJudgment_UnknownKindFallsBackToInfo(t *testing.T) {
	j, err := parseJudgment(`{"type":"bogus","confidence":50}`)
	if err != nil {
		t.Fatal(err)
	}
	if j.Type != KindInfo {
		t.Errorf("type = %q, want info", j.Type)
	}
}

func TestParseJudgment_MalformedJSONFallsBackToSafeDefault(t *testing.T) {
	j, err := parseJudgment("not json at all")
	if err != nil {
		t.Fatal(err)
	}
	if j.Type != KindInfo || j.Confidence != 0 {
		t.Errorf("got %+v, want safe default", j)
	}
}

func TestParseJudgment_ConfidenceClampedToRange(t *testing.T) {
	j, _ := parseJudgment(`{"type":"info","confidence":150}`)
	if j.Confidence != 100 {
		t.Errorf("confidence = %d, want clamped to 100", j.Confidence)
	}
}

func TestParseJudgment_InvalidDeadlineDropped(t *testing.T) {
	j, _ := parseJudgment(`{"type":"info","deadline":"not-a-date"}`)
	if j.Deadline != nil {
		t.Errorf("deadline = %v, want nil after validation failure", *j.Deadline)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   PredictedKind
		want store.TaskType
	}{
		{KindTaskForMe, store.TaskGeneric},
		{KindTaskFromMe, store.TaskGeneric},
		{KindQuestion, store.TaskGeneric},
		{KindPromiseMine, store.TaskPromiseMine},
		{KindPromiseIncoming, store.TaskPromiseIncoming},
		{KindInfo, store.TaskType("info")},
		{KindSpam, store.TaskType("spam")},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			if got := normalize(tt.in); got != tt.want {
				t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsTaskLike(t *testing.T) {
	tests := []struct {
		in   store.TaskType
		want bool
	}{
		{store.TaskGeneric, true},
		{store.TaskPromiseMine, true},
		{store.TaskPromiseIncoming, true},
		{store.TaskType("info"), false},
		{store.TaskType("spam"), false},
	}
	for _, tt := range tests {
		if got := isTaskLike(tt.in); got != tt.want {
			t.Errorf("isTaskLike(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPreviewOf_TruncatesLongText(t *testing.T) {
	long := make([]rune, 200)
	for i := range long {
		long[i] = 'a'
	}
	got := previewOf(string(long))
	if []rune(got)[140] != '…' {
		t.Errorf("expected truncation ellipsis at rune 140, got %q", got)
	}
}

func TestPreviewOf_ShortTextUnchanged(t *testing.T) {
	if got := previewOf("short"); got != "short" {
		t.Errorf("got %q, want unchanged", got)
	}
}

func TestParseDeadline(t *testing.T) {
	valid := "2026-08-01"
	if d := parseDeadline(&valid); d == nil || d.Format("2006-01-02") != valid {
		t.Errorf("parseDeadline(%q) = %v", valid, d)
	}
	invalid := "tomorrow"
	if d := parseDeadline(&invalid); d != nil {
		t.Errorf("parseDeadline(%q) = %v, want nil", invalid, d)
	}
	if d := parseDeadline(nil); d != nil {
		t.Error("parseDeadline(nil) should be nil")
	}
}

type fakeClassifierLLM struct {
	content string
}

func (f *fakeClassifierLLM) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return &llm.Response{Content: f.content}, nil
}
func (f *fakeClassifierLLM) ToolUse(ctx context.Context, req llm.Request) (*llm.Response, error) {
	return f.Complete(ctx, req)
}
func (f *fakeClassifierLLM) Name() string         { return "fake" }
func (f *fakeClassifierLLM) DefaultModel() string { return "fake-model" }

type fakeMessages struct {
	store.MessageStore
}

func (f *fakeMessages) RecentInChat(ctx context.Context, chatID int64, limit int) ([]store.Message, error) {
	return nil, nil
}

type fakeTasks struct {
	store.TaskStore
	created *store.Task
}

func (f *fakeTasks) Create(ctx context.Context, t *store.Task) (*store.Task, error) {
	t.ID = 1
	f.created = t
	return t, nil
}

type fakeConfidence struct {
	store.ConfidenceStore
	created []*store.ConfidenceItem
}

func (f *fakeConfidence) Create(ctx context.Context, item *store.ConfidenceItem) (*store.ConfidenceItem, error) {
	item.ID = int64(len(f.created) + 1)
	f.created = append(f.created, item)
	return item, nil
}

// Get always reports the item resolved so a non-urgent MEDIUM dispatch's
// background deferredRecheck goroutine returns immediately instead of
// racing the test's own completion.
func (f *fakeConfidence) Get(ctx context.Context, id int64) (*store.ConfidenceItem, error) {
	return &store.ConfidenceItem{ID: id, Resolved: true}, nil
}

func newTestClassifier(llmContent string, tasks *fakeTasks, conf *fakeConfidence) (*Classifier, *bus.Bus) {
	b := bus.New()
	cfg := config.Defaults()
	c := New(&fakeClassifierLLM{content: llmContent}, &store.Stores{
		Messages:   &fakeMessages{},
		Tasks:      tasks,
		Confidence: conf,
	}, b, cfg)
	return c, b
}

func TestClassify_OwnerMessageIsSkipped(t *testing.T) {
	tasks := &fakeTasks{}
	conf := &fakeConfidence{}
	c, _ := newTestClassifier(`{"type":"task_for_me","confidence":90}`, tasks, conf)
	c.cfg.Owner.TelegramUserID = 7

	err := c.Classify(context.Background(), store.Message{SenderID: 7})
	if err != nil {
		t.Fatal(err)
	}
	if tasks.created != nil {
		t.Error("owner's own message should never be dispatched into a task")
	}
}

func TestClassify_HighBandCreatesTask(t *testing.T) {
	tasks := &fakeTasks{}
	conf := &fakeConfidence{}
	c, b := newTestClassifier(`{"type":"task_for_me","summary":"buy milk","confidence":95}`, tasks, conf)
	sub := b.Tasks.Subscribe("test", 4)

	err := c.Classify(context.Background(), store.Message{SenderID: 1, Text: "buy milk"})
	if err != nil {
		t.Fatal(err)
	}
	if tasks.created == nil || tasks.created.Description != "buy milk" {
		t.Fatalf("created = %+v, want a task with description 'buy milk'", tasks.created)
	}
	ev := <-sub
	if ev.Kind != "created" {
		t.Errorf("event kind = %q, want created", ev.Kind)
	}
}

func TestClassify_MediumBandCreatesConfidenceItem(t *testing.T) {
	tasks := &fakeTasks{}
	conf := &fakeConfidence{}
	c, _ := newTestClassifier(`{"type":"task_for_me","summary":"maybe task","confidence":50}`, tasks, conf)
	c.cfg.Confidence.LowThreshold = 30
	c.cfg.Confidence.HighThreshold = 80
	c.cfg.Confidence.DeferredDelayMins = 0

	err := c.Classify(context.Background(), store.Message{SenderID: 1, Text: "maybe task"})
	if err != nil {
		t.Fatal(err)
	}
	if len(conf.created) != 1 {
		t.Fatalf("got %d confidence items, want 1", len(conf.created))
	}
	if tasks.created != nil {
		t.Error("medium band should not create a task directly")
	}
}

func TestClassify_LowBandNotifiesWithoutTask(t *testing.T) {
	tasks := &fakeTasks{}
	conf := &fakeConfidence{}
	c, b := newTestClassifier(`{"type":"info","summary":"fyi","confidence":10}`, tasks, conf)
	sub := b.Notify.Subscribe("test", 4)

	err := c.Classify(context.Background(), store.Message{SenderID: 1, Text: "fyi"})
	if err != nil {
		t.Fatal(err)
	}
	if tasks.created != nil {
		t.Error("low band should never create a task")
	}
	select {
	case note := <-sub:
		if note.Text == "" {
			t.Fatal("expected an informational notification")
		}
	default:
		t.Fatal("expected exactly one notification")
	}
}

func TestClassify_JudgeFailureFallsBackToInfo(t *testing.T) {
	tasks := &fakeTasks{}
	conf := &fakeConfidence{}
	c, _ := newTestClassifier("garbage, not json", tasks, conf)

	err := c.Classify(context.Background(), store.Message{SenderID: 1, Text: "???"})
	if err != nil {
		t.Fatal(err)
	}
	if tasks.created != nil {
		t.Error("unparseable judge output should never create a task")
	}
}
