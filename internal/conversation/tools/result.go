// Package tools implements the Tool Catalog from spec.md §4.5: one file per
// tool, each a pure function over the store with a strict schema. Grounded
// on the teacher's internal/tools package shape (one exported Definition +
// Execute per file, returning a tools.Result), narrowed to the fixed
// nine-tool catalog (plus any tools bridged from owner-registered MCP
// servers) this daemon needs instead of the teacher's open-ended tool set.
package tools

import (
	"encoding/json"
	"fmt"
)

// Result is the unified return type from tool execution, fed back to the
// Assistant LLM as a follow-up tool-role turn (spec.md §4.4 "Loop").
type Result struct {
	ForLLM  string
	IsError bool
}

func Ok(v interface{}) *Result {
	b, err := json.Marshal(v)
	if err != nil {
		return Errorf("internal error: %v", err)
	}
	return &Result{ForLLM: string(b)}
}

func Errorf(format string, args ...interface{}) *Result {
	msg, _ := json.Marshal(map[string]string{"error": fmt.Sprintf(format, args...)})
	return &Result{ForLLM: string(msg), IsError: true}
}
