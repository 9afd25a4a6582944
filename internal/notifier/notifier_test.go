package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zaytsevrv/jarvis-assistant/internal/bus"
)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int // expected chunk count
	}{
		{"empty", "", 0},
		{"short", "hello", 1},
		{"exactly at limit", strings.Repeat("a", maxMessageLen), 1},
		{"one over limit", strings.Repeat("a", maxMessageLen+1), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitMessage(tt.text)
			if len(got) != tt.want {
				t.Fatalf("splitMessage(len=%d) produced %d chunks, want %d", len(tt.text), len(got), tt.want)
			}
			for _, c := range got {
				if len(c) > maxMessageLen {
					t.Fatalf("chunk length %d exceeds maxMessageLen", len(c))
				}
			}
		})
	}
}

func TestSplitMessage_PrefersNewlineBoundary(t *testing.T) {
	first := strings.Repeat("a", maxMessageLen-10) + "\n"
	text := first + strings.Repeat("b", 50)

	chunks := splitMessage(text)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0] != first {
		t.Fatalf("first chunk should break exactly at the newline, got len %d want len %d", len(chunks[0]), len(first))
	}
}

func TestSplitMessage_Reassembles(t *testing.T) {
	text := strings.Repeat("word ", 2000)
	chunks := splitMessage(text)
	if strings.Join(chunks, "") != text {
		t.Fatal("joining chunks back together should reproduce the original text")
	}
}

type fakeSender struct {
	calls     []sendCall
	failHTML  bool
}

type sendCall struct {
	text      string
	buttons   [][]bus.CallbackButton
	parseHTML bool
}

func (f *fakeSender) SendOwnerRich(ctx context.Context, text string, buttons [][]bus.CallbackButton, parseHTML bool) error {
	f.calls = append(f.calls, sendCall{text, buttons, parseHTML})
	if parseHTML && f.failHTML {
		return errors.New("telegram rejected html")
	}
	return nil
}

func TestDeliver_KeyboardOnlyOnLastChunk(t *testing.T) {
	sender := &fakeSender{}
	n := New(sender, bus.New())

	text := strings.Repeat("x", maxMessageLen+100)
	kb := [][]bus.CallbackButton{{{Label: "ok", Data: "task_done:1"}}}

	n.deliver(context.Background(), bus.OutboundNotification{Text: text, Keyboard: kb})

	if len(sender.calls) != 2 {
		t.Fatalf("got %d sends, want 2", len(sender.calls))
	}
	if sender.calls[0].buttons != nil {
		t.Error("first chunk should not carry the keyboard")
	}
	if sender.calls[1].buttons == nil {
		t.Error("last chunk should carry the keyboard")
	}
}

func TestDeliver_FallsBackToPlainTextOnHTMLSendFailure(t *testing.T) {
	sender := &fakeSender{failHTML: true}
	n := New(sender, bus.New())

	n.deliver(context.Background(), bus.OutboundNotification{Text: "hi", ParseHTML: true})

	if len(sender.calls) != 2 {
		t.Fatalf("got %d sends, want 2 (html attempt + plain fallback)", len(sender.calls))
	}
	if !sender.calls[0].parseHTML {
		t.Error("first attempt should be HTML")
	}
	if sender.calls[1].parseHTML {
		t.Error("fallback attempt should be plain text")
	}
}
