package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/zaytsevrv/jarvis-assistant/internal/bus"
	"github.com/zaytsevrv/jarvis-assistant/internal/config"
	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

var errConfidenceItemNotFound = errors.New("confidence item not found")

type fakeFeedbackConfidence struct {
	store.ConfidenceStore
	item     *store.ConfidenceItem
	resolved bool
}

func (f *fakeFeedbackConfidence) Get(ctx context.Context, id int64) (*store.ConfidenceItem, error) {
	if f.item == nil {
		return nil, errConfidenceItemNotFound
	}
	return f.item, nil
}

func (f *fakeFeedbackConfidence) Resolve(ctx context.Context, id int64) (bool, error) {
	was := f.resolved
	f.resolved = true
	return was, nil
}

type fakeFeedbackTasks struct {
	store.TaskStore
	similar *store.Task
	created *store.Task
}

func (f *fakeFeedbackTasks) FindSimilarActive(ctx context.Context, description string) (*store.Task, error) {
	return f.similar, nil
}

func (f *fakeFeedbackTasks) Create(ctx context.Context, t *store.Task) (*store.Task, error) {
	t.ID = 1
	f.created = t
	return t, nil
}

type fakeFeedbackStore struct {
	store.FeedbackStore
	appended []*store.ClassificationFeedback
}

func (f *fakeFeedbackStore) Append(ctx context.Context, rec *store.ClassificationFeedback) error {
	f.appended = append(f.appended, rec)
	return nil
}

func newFeedbackTestClassifier(item *store.ConfidenceItem, tasks *fakeFeedbackTasks, feedback *fakeFeedbackStore) (*Classifier, *bus.Bus) {
	b := bus.New()
	cfg := config.Defaults()
	cfg.Confidence.LowThreshold = 50
	cfg.Confidence.HighThreshold = 80
	c := New(&fakeClassifierLLM{}, &store.Stores{
		Confidence: &fakeFeedbackConfidence{item: item},
		Tasks:      tasks,
		Feedback:   feedback,
	}, b, cfg)
	return c, b
}

func TestResolveConfirmation_ConfirmCreatesTask(t *testing.T) {
	item := &store.ConfidenceItem{ID: 9, TextPreview: "maybe a task", PredictedType: store.TaskGeneric, Confidence: 60}
	tasks := &fakeFeedbackTasks{}
	feedback := &fakeFeedbackStore{}
	c, _ := newFeedbackTestClassifier(item, tasks, feedback)

	err := c.resolveConfirmation(context.Background(), bus.Classification{
		ConfidenceRef: &store.ConfidenceItem{ID: 9}, Resolution: "confirm",
	})
	if err != nil {
		t.Fatal(err)
	}
	if tasks.created == nil || tasks.created.Description != "maybe a task" {
		t.Fatalf("created = %+v, want a task", tasks.created)
	}
	if len(feedback.appended) != 1 {
		t.Fatalf("got %d feedback records, want 1", len(feedback.appended))
	}
}

func TestResolveConfirmation_RejectLowBandCreatesTask(t *testing.T) {
	item := &store.ConfidenceItem{ID: 9, TextPreview: "actually a task", PredictedType: store.TaskType("info"), Confidence: 20}
	tasks := &fakeFeedbackTasks{}
	c, _ := newFeedbackTestClassifier(item, tasks, &fakeFeedbackStore{})

	err := c.resolveConfirmation(context.Background(), bus.Classification{
		ConfidenceRef: &store.ConfidenceItem{ID: 9}, Resolution: "reject",
	})
	if err != nil {
		t.Fatal(err)
	}
	if tasks.created == nil {
		t.Fatal("expected LOW-band 'actually a task' rejection to create a task")
	}
	if tasks.created.Type != store.TaskGeneric {
		t.Errorf("task type = %q, want task (non-task prediction overridden)", tasks.created.Type)
	}
}

func TestResolveConfirmation_RejectMediumBandDoesNotCreateTask(t *testing.T) {
	item := &store.ConfidenceItem{ID: 9, TextPreview: "no, not a task", PredictedType: store.TaskGeneric, Confidence: 60}
	tasks := &fakeFeedbackTasks{}
	c, _ := newFeedbackTestClassifier(item, tasks, &fakeFeedbackStore{})

	err := c.resolveConfirmation(context.Background(), bus.Classification{
		ConfidenceRef: &store.ConfidenceItem{ID: 9}, Resolution: "reject",
	})
	if err != nil {
		t.Fatal(err)
	}
	if tasks.created != nil {
		t.Error("MEDIUM-band 'No' should not create a task")
	}
}

func TestResolveConfirmation_CorrectRecordsFeedbackWithoutCreating(t *testing.T) {
	item := &store.ConfidenceItem{ID: 9, TextPreview: "fyi", PredictedType: store.TaskType("info"), Confidence: 10}
	tasks := &fakeFeedbackTasks{}
	feedback := &fakeFeedbackStore{}
	c, _ := newFeedbackTestClassifier(item, tasks, feedback)

	err := c.resolveConfirmation(context.Background(), bus.Classification{
		ConfidenceRef: &store.ConfidenceItem{ID: 9}, Resolution: "correct",
	})
	if err != nil {
		t.Fatal(err)
	}
	if tasks.created != nil {
		t.Error("'Correct' should never create a task")
	}
	if len(feedback.appended) != 1 {
		t.Fatalf("got %d feedback records, want 1", len(feedback.appended))
	}
}

func TestResolveConfirmation_UnresolvableItemIsNoop(t *testing.T) {
	tasks := &fakeFeedbackTasks{}
	c, _ := newFeedbackTestClassifier(nil, tasks, &fakeFeedbackStore{})

	// Simulates a HIGH-band "Correct"/"Wrong" press, whose payload ID is a
	// Task ID rather than a ConfidenceItem ID.
	err := c.resolveConfirmation(context.Background(), bus.Classification{
		ConfidenceRef: &store.ConfidenceItem{ID: 42}, Resolution: "correct",
	})
	if err != nil {
		t.Fatal(err)
	}
	if tasks.created != nil {
		t.Error("a lookup miss should never create a task")
	}
}

func TestResolveConfirmation_NoResolutionIsNoop(t *testing.T) {
	c, _ := newFeedbackTestClassifier(nil, &fakeFeedbackTasks{}, &fakeFeedbackStore{})
	if err := c.resolveConfirmation(context.Background(), bus.Classification{}); err != nil {
		t.Fatal(err)
	}
}
