package taskengine

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/zaytsevrv/jarvis-assistant/internal/llm"
	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

const trackingSystemPrompt = `You check whether an outgoing task or promise has been fulfilled, based on ` +
	`recent chat messages. Respond with a single JSON object: ` +
	`{"verdict":"completed|not_completed|unclear","evidence":"one sentence"}`

var verdictJSONRe = regexp.MustCompile(`(?s)\{.*\}`)

type verdictResponse struct {
	Verdict  string `json:"verdict"`
	Evidence string `json:"evidence"`
}

// judgeCompletion asks the judge whether t looks fulfilled given the chat's
// recent messages (spec.md §4.3 "Outgoing-task monitoring"). Any failure to
// call or parse the judge falls back to unclear, which just means the task
// stays open and gets rechecked next cycle.
func (e *Engine) judgeCompletion(ctx context.Context, t store.Task, recent []store.Message) (verdict, string) {
	var b strings.Builder
	b.WriteString("Task: " + t.Description + "\n\nRecent messages:\n")
	for _, m := range recent {
		b.WriteString(m.SenderName + ": " + m.Text + "\n")
	}

	resp, err := e.judge.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: "system", Content: trackingSystemPrompt},
			{Role: "user", Content: b.String()},
		},
	})
	if err != nil {
		return verdictUnclear, ""
	}

	match := verdictJSONRe.FindString(resp.Content)
	if match == "" {
		return verdictUnclear, ""
	}
	var v verdictResponse
	if err := json.Unmarshal([]byte(match), &v); err != nil {
		return verdictUnclear, ""
	}

	switch verdict(v.Verdict) {
	case verdictCompleted:
		return verdictCompleted, v.Evidence
	case verdictNotCompleted:
		return verdictNotCompleted, v.Evidence
	default:
		return verdictUnclear, v.Evidence
	}
}
