// Package conversation implements the owner-facing tool-use loop from
// spec.md §4.4: free text or a photo in, up to R bounded rounds of tool
// calls against internal/conversation/tools, a persisted turn history, and
// a two-block system prompt (static+cacheable, dynamic+per-turn). Grounded
// on the teacher's internal/agent.Loop Think→Act→Observe shape, narrowed
// from its many-tenant/many-provider generality to one owner, one backend
// tier, and a fixed small catalog.
package conversation

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zaytsevrv/jarvis-assistant/internal/bus"
	"github.com/zaytsevrv/jarvis-assistant/internal/config"
	"github.com/zaytsevrv/jarvis-assistant/internal/conversation/tools"
	"github.com/zaytsevrv/jarvis-assistant/internal/llm"
	"github.com/zaytsevrv/jarvis-assistant/internal/store"
	"github.com/zaytsevrv/jarvis-assistant/internal/telemetry"
)

// Conversation owns the tool-use loop over the owner's private chat.
type Conversation struct {
	llm     llm.Backend
	stores  *store.Stores
	bus     *bus.Bus
	cfg     *config.Config
	tools   *tools.Registry
	maxRounds int
}

func New(backend llm.Backend, stores *store.Stores, b *bus.Bus, cfg *config.Config, registry *tools.Registry) *Conversation {
	rounds := cfg.Resources.MaxToolRounds
	if rounds <= 0 {
		rounds = 5
	}
	return &Conversation{llm: backend, stores: stores, bus: b, cfg: cfg, tools: registry, maxRounds: rounds}
}

// Turn processes one owner message through the loop and returns the final
// assistant text (spec.md §4.4 "Shape"/"Loop").
func (c *Conversation) Turn(ctx context.Context, userText string, image *llm.Image) (string, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "conversation.Turn")
	defer span.End()
	span.SetAttributes(attribute.Bool("jarvis.has_image", image != nil))

	if err := c.stores.Turns.Append(ctx, &store.ConversationTurn{Role: store.RoleUser, Content: userText}); err != nil {
		slog.Warn("conversation: persist user turn failed", "error", err)
	}

	window := c.cfg.Resources.ConversationWindow
	if window <= 0 {
		window = 20
	}
	history, err := c.stores.Turns.Recent(ctx, window)
	if err != nil {
		return "", fmt.Errorf("conversation: load history: %w", err)
	}

	messages := []llm.Message{{Role: "system", Content: staticSystemPrompt}}
	messages = append(messages, llm.Message{Role: "system", Content: buildSystemPreamble(ctx, c.stores, c.cfg)})
	for _, t := range history {
		messages = append(messages, llm.Message{Role: string(t.Role), Content: t.Content})
	}
	userMsg := llm.Message{Role: "user", Content: userText}
	if image != nil {
		userMsg.Images = []llm.Image{*image}
	}
	messages = append(messages, userMsg)

	finalText, usedListTasks, err := c.runRounds(ctx, messages)
	if err != nil {
		return "", err
	}

	if saveErr := c.stores.Turns.Append(ctx, &store.ConversationTurn{Role: store.RoleAssistant, Content: finalText}); saveErr != nil {
		slog.Warn("conversation: persist assistant turn failed", "error", saveErr)
	}

	if usedListTasks {
		c.attachTaskReviewKeyboard(ctx, finalText)
		return "", nil // delivery happens via the OutboundNotification published above
	}

	return finalText, nil
}

// runRounds drives the bounded tool-use loop (spec.md §4.4 "Loop").
func (c *Conversation) runRounds(ctx context.Context, messages []llm.Message) (string, bool, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "conversation.runRounds")
	defer span.End()

	detector := newLoopDetector()
	usedListTasks := false
	cacheStatic := 1 // only the static preamble is cacheable; the dynamic one changes every turn

	for round := 0; round < c.maxRounds; round++ {
		roundCtx, roundSpan := telemetry.Tracer().Start(ctx, "conversation.round")
		resp, err := c.llm.ToolUse(roundCtx, llm.Request{
			Messages:          messages,
			Tools:             c.tools.ProviderDefs(),
			CacheStaticPrefix: cacheStatic,
		})
		if err != nil {
			roundSpan.RecordError(err)
			roundSpan.End()
			return "", false, fmt.Errorf("conversation: tool-use call: %w", err)
		}

		if resp.StopReason != llm.StopToolUse || len(resp.ToolCalls) == 0 {
			roundSpan.End()
			return resp.Content, usedListTasks, nil
		}

		messages = append(messages, llm.Message{Role: "assistant", Content: resp.Content, ToolCalls: resp.ToolCalls})

		stuck := false
		for _, call := range resp.ToolCalls {
			if call.Name == "list_tasks" {
				usedListTasks = true
			}

			hash := detector.record(call.Name, call.Arguments)
			result := c.tools.Execute(roundCtx, call.Name, call.Arguments)
			detector.recordResult(hash, result.ForLLM)

			messages = append(messages, llm.Message{Role: "tool", Content: result.ForLLM, ToolCallID: call.ID})

			if detector.detect(hash) {
				stuck = true
				break
			}
		}
		roundSpan.SetAttributes(attribute.Int("jarvis.tool_calls", len(resp.ToolCalls)))
		roundSpan.End()
		if stuck {
			return "I got stuck repeating the same tool call without making progress — could you rephrase?", usedListTasks, nil
		}
	}

	return "That took more steps than I'm allowed — could you split the request up?", usedListTasks, nil
}

// Run subscribes to bus.OwnerTurn and drives Turn for every owner message
// until ctx is cancelled, publishing the reply unless Turn already
// delivered one itself (the list_tasks keyboard case).
func (c *Conversation) Run(ctx context.Context) error {
	sub := c.bus.OwnerTurn.Subscribe("conversation", 8)
	defer c.bus.OwnerTurn.Unsubscribe("conversation")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case turn := <-sub:
			c.handleTurn(ctx, turn)
		}
	}
}

func (c *Conversation) handleTurn(ctx context.Context, turn bus.OwnerTurn) {
	var image *llm.Image
	if len(turn.ImageData) > 0 {
		prepared, err := prepareVisionImage(turn.ImageData)
		if err != nil {
			slog.Warn("conversation: prepare vision image failed", "error", err)
		} else {
			image = &prepared
		}
	}

	reply, err := c.Turn(ctx, turn.Text, image)
	if err != nil {
		slog.Warn("conversation: turn failed", "error", err)
		c.bus.Notify.Publish(bus.OutboundNotification{Text: "Something went wrong processing that — try again?"})
		return
	}
	if reply != "" {
		c.bus.Notify.Publish(bus.OutboundNotification{Text: reply})
	}
}

// attachTaskReviewKeyboard publishes the final text alongside an ephemeral
// per-task review-grid keyboard, implementing spec.md §4.4's "If any tool
// call in this turn was list_tasks, the handler attaches an ephemeral
// review-grid keyboard for the current active tasks."
func (c *Conversation) attachTaskReviewKeyboard(ctx context.Context, text string) {
	tasks, err := c.stores.Tasks.ListActive(ctx, store.TaskFilter{})
	if err != nil {
		slog.Warn("conversation: list active tasks for keyboard failed", "error", err)
		c.bus.Notify.Publish(bus.OutboundNotification{Text: text})
		return
	}

	var rows [][]bus.CallbackButton
	for _, t := range tasks {
		rows = append(rows, []bus.CallbackButton{
			{Label: fmt.Sprintf("✅ %d", t.ID), Data: fmt.Sprintf("task_done:%d", t.ID)},
			{Label: "✖", Data: fmt.Sprintf("task_cancel:%d", t.ID)},
		})
	}
	c.bus.Notify.Publish(bus.OutboundNotification{Text: text, Keyboard: rows})
}
