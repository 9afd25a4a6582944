package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	"github.com/spf13/cobra"

	"github.com/zaytsevrv/jarvis-assistant/internal/config"
	"github.com/zaytsevrv/jarvis-assistant/internal/store/pg"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check config, database, and bot connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor()
		},
	}
}

// runDoctor is a standalone connectivity check, useful before the first
// `jarvis serve` and after any credential rotation.
func runDoctor() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	ok := true
	check := func(name string, err error) {
		if err != nil {
			fmt.Printf("✖ %-20s %v\n", name, err)
			ok = false
			return
		}
		fmt.Printf("✓ %-20s ok\n", name)
	}

	cfg, err := config.Load(resolveConfigPath())
	check("config load", err)
	if err != nil {
		return fmt.Errorf("cannot continue without config")
	}
	check("config validate", cfg.Validate())

	pool, err := pg.OpenPool(ctx, cfg.Database.DSN)
	check("postgres", err)
	if err == nil {
		defer pool.Close()
	}

	_, err = telego.NewBot(cfg.Telegram.BotToken)
	check("telegram bot token", err)

	if _, err := time.LoadLocation(cfg.Owner.Timezone); err != nil {
		check("owner timezone", err)
	} else {
		check("owner timezone", nil)
	}

	if !ok {
		return fmt.Errorf("one or more checks failed")
	}
	fmt.Println("\nall checks passed")
	return nil
}
