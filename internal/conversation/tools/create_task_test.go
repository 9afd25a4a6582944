package tools

import (
	"context"
	"testing"

	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

type fakeTaskStore struct {
	store.TaskStore
	similar *store.Task
	created *store.Task
	nextID  int64
}

func (f *fakeTaskStore) FindSimilarActive(ctx context.Context, description string) (*store.Task, error) {
	return f.similar, nil
}

func (f *fakeTaskStore) Create(ctx context.Context, t *store.Task) (*store.Task, error) {
	f.nextID++
	t.ID = f.nextID
	f.created = t
	return t, nil
}

func (f *fakeTaskStore) ListActive(ctx context.Context, filter store.TaskFilter) ([]store.Task, error) {
	return nil, nil
}

func TestCreateTask_MissingDescriptionErrors(t *testing.T) {
	def := NewCreateTask(&store.Stores{Tasks: &fakeTaskStore{}})
	res := def.Execute(context.Background(), map[string]interface{}{"task_type": "task"})
	if !res.IsError {
		t.Fatal("expected an error when description is missing")
	}
}

func TestCreateTask_InvalidTaskTypeErrors(t *testing.T) {
	def := NewCreateTask(&store.Stores{Tasks: &fakeTaskStore{}})
	res := def.Execute(context.Background(), map[string]interface{}{
		"description": "buy milk", "task_type": "not_a_real_type",
	})
	if !res.IsError {
		t.Fatal("expected an error for an invalid task_type")
	}
}

func TestCreateTask_DedupesAgainstSimilarActive(t *testing.T) {
	fake := &fakeTaskStore{similar: &store.Task{ID: 9, Description: "buy milk"}}
	def := NewCreateTask(&store.Stores{Tasks: fake})

	res := def.Execute(context.Background(), map[string]interface{}{
		"description": "buy milk", "task_type": "task",
	})
	if res.IsError {
		t.Fatalf("unexpected error: %+v", res)
	}
	if fake.created != nil {
		t.Error("should not create a new task when a similar one exists")
	}
}

func TestCreateTask_CreatesWithParsedDeadline(t *testing.T) {
	fake := &fakeTaskStore{}
	def := NewCreateTask(&store.Stores{Tasks: fake})

	res := def.Execute(context.Background(), map[string]interface{}{
		"description": "pay invoice", "task_type": "task", "deadline": "2026-08-15",
	})
	if res.IsError {
		t.Fatalf("unexpected error: %+v", res)
	}
	if fake.created == nil {
		t.Fatal("expected a task to be created")
	}
	if fake.created.Deadline == nil || fake.created.Deadline.Format("2006-01-02") != "2026-08-15" {
		t.Errorf("deadline = %v, want 2026-08-15", fake.created.Deadline)
	}
}

func TestCreateTask_InvalidDeadlineIsIgnored(t *testing.T) {
	fake := &fakeTaskStore{}
	def := NewCreateTask(&store.Stores{Tasks: fake})

	res := def.Execute(context.Background(), map[string]interface{}{
		"description": "pay invoice", "task_type": "task", "deadline": "not-a-date",
	})
	if res.IsError {
		t.Fatalf("unexpected error: %+v", res)
	}
	if fake.created.Deadline != nil {
		t.Error("an unparseable deadline should be silently dropped, not set")
	}
}
