// Package notifier subscribes to bus.OutboundNotification and renders it
// onto Telegram: splitting long text at the 4096-char limit, attaching
// inline keyboards only to the final chunk, and falling back to plain text
// if an HTML-mode send is rejected. Grounded on the teacher's
// internal/channels/telegram send-path chunking (message.go) and its
// plain/HTML fallback on send error.
package notifier

import (
	"context"
	"log/slog"
	"strings"

	"github.com/zaytsevrv/jarvis-assistant/internal/bus"
)

// maxMessageLen is Telegram's hard per-message text limit.
const maxMessageLen = 4096

// Sender is the transport primitive notifier delivers onto — satisfied by
// *internal/ingest.Ingest.
type Sender interface {
	SendOwnerRich(ctx context.Context, text string, buttons [][]bus.CallbackButton, parseHTML bool) error
}

type Notifier struct {
	sender Sender
	bus    *bus.Bus
}

func New(sender Sender, b *bus.Bus) *Notifier {
	return &Notifier{sender: sender, bus: b}
}

// Run subscribes to bus.Notify and delivers every notification until ctx is
// cancelled.
func (n *Notifier) Run(ctx context.Context) error {
	sub := n.bus.Notify.Subscribe("notifier", 32)
	defer n.bus.Notify.Unsubscribe("notifier")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case note := <-sub:
			n.deliver(ctx, note)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, note bus.OutboundNotification) {
	chunks := splitMessage(note.Text)
	if len(chunks) == 0 {
		chunks = []string{""}
	}

	for i, chunk := range chunks {
		var buttons [][]bus.CallbackButton
		if i == len(chunks)-1 {
			buttons = note.Keyboard
		}

		if err := n.sender.SendOwnerRich(ctx, chunk, buttons, note.ParseHTML); err != nil {
			if note.ParseHTML {
				if plainErr := n.sender.SendOwnerRich(ctx, chunk, buttons, false); plainErr != nil {
					slog.Warn("notifier: send failed after plain-text fallback", "error", plainErr)
				}
				continue
			}
			slog.Warn("notifier: send failed", "error", err)
		}
	}
}

// splitMessage breaks text into chunks no longer than maxMessageLen,
// preferring to break at a newline or space boundary near the limit so a
// word isn't cut in half.
func splitMessage(text string) []string {
	if len(text) <= maxMessageLen {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	for len(text) > maxMessageLen {
		cut := maxMessageLen
		if idx := strings.LastIndexByte(text[:cut], '\n'); idx > maxMessageLen/2 {
			cut = idx + 1
		} else if idx := strings.LastIndexByte(text[:cut], ' '); idx > maxMessageLen/2 {
			cut = idx + 1
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
