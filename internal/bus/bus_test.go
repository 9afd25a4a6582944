package bus

import (
	"testing"
	"time"
)

func TestTopic_PublishFansOutToAllSubscribers(t *testing.T) {
	topic := NewTopic[int]()
	a := topic.Subscribe("a", 1)
	b := topic.Subscribe("b", 1)

	topic.Publish(42)

	select {
	case v := <-a:
		if v != 42 {
			t.Errorf("subscriber a got %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber a never received the publish")
	}
	select {
	case v := <-b:
		if v != 42 {
			t.Errorf("subscriber b got %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber b never received the publish")
	}
}

func TestTopic_PublishDropsOnFullBufferRatherThanBlocking(t *testing.T) {
	topic := NewTopic[int]()
	sub := topic.Subscribe("slow", 1)

	topic.Publish(1) // fills the buffer
	done := make(chan struct{})
	go func() {
		topic.Publish(2) // must not block even though nobody is draining
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber buffer")
	}

	if v := <-sub; v != 1 {
		t.Errorf("got %d, want 1 (the second publish should have been dropped)", v)
	}
}

func TestTopic_UnsubscribeClosesChannelAndStopsDelivery(t *testing.T) {
	topic := NewTopic[string]()
	sub := topic.Subscribe("id", 1)

	topic.Unsubscribe("id")

	if _, ok := <-sub; ok {
		t.Error("channel should be closed after Unsubscribe")
	}

	topic.Publish("should not panic or deliver anywhere")
}

func TestTopic_DuplicateSubscribeReplacesPreviousChannel(t *testing.T) {
	topic := NewTopic[int]()
	first := topic.Subscribe("id", 1)
	second := topic.Subscribe("id", 1)

	topic.Publish(7)

	select {
	case <-first:
		t.Error("old subscriber channel should not receive further publishes")
	default:
	}

	select {
	case v := <-second:
		if v != 7 {
			t.Errorf("got %d, want 7", v)
		}
	case <-time.After(time.Second):
		t.Fatal("new subscriber channel never received the publish")
	}
}

func TestNew_WiresEveryTopic(t *testing.T) {
	b := New()
	if b.Ingested == nil || b.OwnerTurn == nil || b.Classified == nil ||
		b.Tasks == nil || b.Notify == nil || b.Health == nil {
		t.Fatal("New() left one or more topics nil")
	}
}
