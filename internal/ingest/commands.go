package ingest

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

// handleCommand answers the fixed owner command set from spec.md §6
// (/start /help /tasks /summary /health /mode /admin /settings /whitelist
// /blacklist) directly from the stores, bypassing the conversation tool-use
// loop — these are cheap, deterministic lookups that don't need an LLM
// round trip. Returns false for anything it doesn't recognize, letting the
// caller fall through to the conversation loop.
func (in *Ingest) handleCommand(ctx context.Context, msg telego.Message) bool {
	if !strings.HasPrefix(msg.Text, "/") {
		return false
	}
	fields := strings.Fields(msg.Text)
	cmd, args := fields[0], fields[1:]
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}

	chat := tu.ID(msg.Chat.ID)
	reply := func(text string) { _, _ = in.bot.SendMessage(ctx, tu.Message(chat, text)) }

	switch cmd {
	case "/start", "/help":
		reply("Commands: /tasks /summary /health /mode /admin /settings /whitelist /blacklist")
	case "/tasks":
		reply(in.renderActiveTasks(ctx))
	case "/summary":
		reply(in.renderSummary(ctx))
	case "/health":
		reply(in.renderHealth(ctx))
	case "/mode":
		reply(in.handleMode(ctx, args))
	case "/admin":
		reply(in.handleAdmin(ctx, args))
	case "/settings":
		reply(in.renderSettings(ctx))
	case "/whitelist":
		reply(in.handleListMutation(ctx, "whitelist", args))
	case "/blacklist":
		reply(in.handleListMutation(ctx, "blacklist", args))
	default:
		return false
	}
	return true
}

func (in *Ingest) renderActiveTasks(ctx context.Context) string {
	tasks, err := in.stores.Tasks.ListActive(ctx, store.TaskFilter{})
	if err != nil {
		return fmt.Sprintf("error listing tasks: %v", err)
	}
	if len(tasks) == 0 {
		return "No active tasks."
	}
	var b strings.Builder
	for _, t := range tasks {
		fmt.Fprintf(&b, "#%d %s", t.ID, t.Description)
		if t.Deadline != nil {
			fmt.Fprintf(&b, " (due %s)", t.Deadline.In(in.cfg.Location()).Format("Jan 2 15:04"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (in *Ingest) renderSummary(ctx context.Context) string {
	count, size, err := in.stores.Messages.Stats(ctx)
	if err != nil {
		return fmt.Sprintf("error loading stats: %v", err)
	}
	tasks, _ := in.stores.Tasks.ListActive(ctx, store.TaskFilter{})
	return fmt.Sprintf("Messages: %d (db %s)\nActive tasks: %d", count, size, len(tasks))
}

func (in *Ingest) renderHealth(ctx context.Context) string {
	checks, err := in.stores.Health.All(ctx)
	if err != nil {
		return fmt.Sprintf("error loading health: %v", err)
	}
	if len(checks) == 0 {
		return "No health data yet."
	}
	var b strings.Builder
	for _, h := range checks {
		status := h.Status
		if h.Error != "" {
			status += ": " + h.Error
		}
		fmt.Fprintf(&b, "%s: %s (%s)\n", h.Module, status, h.Timestamp.Format("15:04:05"))
	}
	return b.String()
}

func (in *Ingest) renderSettings(ctx context.Context) string {
	var prefs map[string]string
	if _, err := in.stores.Settings.Get(ctx, "user_preferences", &prefs); err != nil {
		return fmt.Sprintf("error loading settings: %v", err)
	}
	if len(prefs) == 0 {
		return "No preferences set."
	}
	var b strings.Builder
	for k, v := range prefs {
		fmt.Fprintf(&b, "%s: %s\n", k, v)
	}
	return b.String()
}

func (in *Ingest) handleMode(ctx context.Context, args []string) string {
	if len(args) == 0 {
		var mode string
		_, _ = in.stores.Settings.Get(ctx, "ai_mode", &mode)
		if mode == "" {
			mode = "cli"
		}
		return "current mode: " + mode
	}
	mode := args[0]
	if mode != "cli" && mode != "api" {
		return "mode must be cli or api"
	}
	if err := in.stores.Settings.Set(ctx, "ai_mode", mode); err != nil {
		return fmt.Sprintf("error setting mode: %v", err)
	}
	return "mode set to " + mode
}

func (in *Ingest) handleListMutation(ctx context.Context, key string, args []string) string {
	var ids []int64
	if _, err := in.stores.Settings.Get(ctx, key, &ids); err != nil {
		return fmt.Sprintf("error loading %s: %v", key, err)
	}
	if len(args) == 0 {
		if len(ids) == 0 {
			return key + " is empty"
		}
		var b strings.Builder
		for _, id := range ids {
			fmt.Fprintf(&b, "%d\n", id)
		}
		return b.String()
	}

	action, rest := args[0], args[1:]
	if len(rest) == 0 {
		return "usage: /" + key + " <add|remove> <chat_id>"
	}
	id, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return "invalid chat id"
	}

	switch action {
	case "add":
		ids = appendUnique(ids, id)
	case "remove":
		ids = removeID(ids, id)
	default:
		return "usage: /" + key + " <add|remove> <chat_id>"
	}
	if err := in.stores.Settings.Set(ctx, key, ids); err != nil {
		return fmt.Sprintf("error saving %s: %v", key, err)
	}
	in.caches.InvalidateLists()
	return fmt.Sprintf("%s updated (%d entries)", key, len(ids))
}

func appendUnique(ids []int64, id int64) []int64 {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// adminOps is the fixed argv table (run by handleAdmin under one 30s
// timeout) replacing the original's raw
// subprocess.run(shell=True) calls (SPEC_FULL §9 supplemental features —
// tightened per the original_source flag that /admin needed it).
var adminOps = map[string][]string{
	"logs":    {"tail", "-n", "200", "jarvis.log"},
	"backup":  {"pg_dump", "-Fc", "-f", "backup.dump"},
	"restart": {"systemctl", "restart", "jarvis"},
}

func (in *Ingest) handleAdmin(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "usage: /admin <logs|backup|restart>"
	}
	argv, ok := adminOps[args[0]]
	if !ok {
		return "unknown admin action: " + args[0]
	}
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	out, err := exec.CommandContext(runCtx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Sprintf("admin %s failed: %v\n%s", args[0], err, truncate(string(out), 2000))
	}
	return fmt.Sprintf("admin %s ok\n%s", args[0], truncate(string(out), 2000))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
