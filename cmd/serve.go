package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mymmrac/telego"
	"github.com/spf13/cobra"

	"github.com/zaytsevrv/jarvis-assistant/internal/bus"
	"github.com/zaytsevrv/jarvis-assistant/internal/classifier"
	"github.com/zaytsevrv/jarvis-assistant/internal/config"
	"github.com/zaytsevrv/jarvis-assistant/internal/conversation"
	"github.com/zaytsevrv/jarvis-assistant/internal/conversation/tools"
	"github.com/zaytsevrv/jarvis-assistant/internal/ingest"
	"github.com/zaytsevrv/jarvis-assistant/internal/llm"
	"github.com/zaytsevrv/jarvis-assistant/internal/notifier"
	"github.com/zaytsevrv/jarvis-assistant/internal/scheduler"
	"github.com/zaytsevrv/jarvis-assistant/internal/store"
	"github.com/zaytsevrv/jarvis-assistant/internal/store/pg"
	"github.com/zaytsevrv/jarvis-assistant/internal/supervisor"
	"github.com/zaytsevrv/jarvis-assistant/internal/taskengine"
	"github.com/zaytsevrv/jarvis-assistant/internal/telemetry"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

// runServe implements spec.md §4.6's Supervisor bring-up: validate config,
// open the store and apply migrations, wire the bus, start every long-lived
// task, and block until SIGINT/SIGTERM.
func runServe() error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}()

	pool, err := pg.OpenPool(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(cfg.Database.DSN, migrationsDir); err != nil {
		return err
	}

	stores := pg.NewStores(pool)
	b := bus.New()

	bot, err := telego.NewBot(cfg.Telegram.BotToken)
	if err != nil {
		return err
	}

	primary := llm.NewAnthropicBackend(cfg.LLM.PrimaryKey, cfg.LLM.PrimaryModel)
	var fallback llm.Backend
	if cfg.LLM.FallbackKey != "" {
		fallback = llm.NewOpenAIBackend("openai-fallback", cfg.LLM.FallbackKey, "", cfg.LLM.FallbackModel)
	} else {
		fallback = primary
	}
	judge := llm.NewOpenAIBackend("judge", cfg.LLM.PrimaryKey, "", cfg.LLM.JudgeModel)
	if cfg.LLM.FallbackKey != "" {
		judge = llm.NewOpenAIBackend("judge", cfg.LLM.FallbackKey, "", cfg.LLM.JudgeModel)
	}

	ing := ingest.New(bot, cfg, stores, b)
	clf := classifier.New(primary, stores, b, cfg)
	_ = fallback // built but not passed to any component; each backend only retries itself via llm.RetryDo
	taskEng := taskengine.New(stores, b, cfg, judge)

	registry := buildToolRegistry(ctx, stores, taskEng, ing)
	conv := conversation.New(primary, stores, b, cfg, registry)

	sched := scheduler.New(scheduler.Deps{Stores: stores, Bus: b, Cfg: cfg, TaskEngine: taskEng, Classifier: clf})
	notif := notifier.New(ing, b)

	d := supervisor.New(supervisor.Deps{
		Cfg: cfg, Stores: stores, Bus: b, Bot: bot,
		Ingest: ing, Classifier: clf, TaskEngine: taskEng,
		Conversation: conv, Scheduler: sched, Notifier: notif,
	})

	if watcher, err := config.Watch(resolveConfigPath(), cfg); err != nil {
		slog.Warn("config hot-reload disabled", "error", err)
	} else {
		defer watcher.Close()
	}

	slog.Info("jarvis starting")
	return d.Run(ctx)
}

// buildToolRegistry wires the fixed tool catalog (SPEC_FULL §4.5) plus any
// owner-registered MCP bridge servers. MCP connect failures are logged and
// skipped rather than failing startup — a misbehaving supplemental server
// shouldn't take down the core catalog.
func buildToolRegistry(ctx context.Context, stores *store.Stores, taskEng *taskengine.Engine, ing *ingest.Ingest) *tools.Registry {
	r := tools.NewRegistry()
	r.Register(tools.NewCreateTask(stores))
	r.Register(tools.NewListTasks(stores))
	r.Register(tools.NewCompleteTask(taskEng))
	r.Register(tools.NewCancelTask(taskEng))
	r.Register(tools.NewUpdateTask(stores))
	r.Register(tools.NewSearchMemory(stores))
	r.Register(tools.NewGetChatSummary(stores))
	r.Register(tools.NewManageWhitelist(stores, ing.InvalidateListCache))
	r.Register(tools.NewUpdatePreferences(stores))

	servers, err := stores.MCPServers.List(ctx)
	if err != nil {
		slog.Warn("listing mcp servers", "error", err)
		return r
	}
	for _, srv := range servers {
		bridge, err := tools.ConnectMCPBridge(ctx, srv.Name, srv.URL)
		if err != nil {
			slog.Warn("connecting mcp server", "name", srv.Name, "error", err)
			continue
		}
		defs, err := bridge.Definitions(ctx)
		if err != nil {
			slog.Warn("listing mcp server tools", "name", srv.Name, "error", err)
			continue
		}
		for _, d := range defs {
			r.Register(d)
		}
	}
	return r
}
