package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/zaytsevrv/jarvis-assistant/internal/config"
)

func setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive first-run configuration wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetup()
		},
	}
}

// runSetup writes the operational-knob config file and prints the
// env-var exports the owner must set for secrets (SPEC_FULL §6 — secrets
// are never persisted to the config file).
func runSetup() error {
	cfg := config.Defaults()

	var ownerIDStr string
	var botTokenPreview, primaryKeyPreview, dsnPreview string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Telegram bot token").
				Description("From @BotFather. Stored as JARVIS_TELEGRAM_BOT_TOKEN, not in the config file.").
				Value(&botTokenPreview).
				Password(true),
			huh.NewInput().
				Title("Your Telegram user id").
				Description("The only account allowed to issue commands.").
				Value(&ownerIDStr).
				Validate(func(s string) error {
					if _, err := strconv.ParseInt(s, 10, 64); err != nil {
						return fmt.Errorf("must be a numeric Telegram user id")
					}
					return nil
				}),
			huh.NewInput().
				Title("Timezone").
				Description("IANA name, e.g. Europe/Moscow").
				Value(&cfg.Owner.Timezone),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Postgres DSN").
				Description("Stored as JARVIS_POSTGRES_DSN, not in the config file.").
				Value(&dsnPreview),
			huh.NewInput().
				Title("Primary LLM API key (Anthropic)").
				Description("Stored as JARVIS_LLM_PRIMARY_KEY, not in the config file.").
				Value(&primaryKeyPreview).
				Password(true),
			huh.NewInput().
				Title("Primary model").
				Value(&cfg.LLM.PrimaryModel).
				Placeholder("claude-sonnet-4-5"),
			huh.NewInput().
				Title("Fallback/judge model").
				Value(&cfg.LLM.JudgeModel).
				Placeholder("gpt-4o-mini"),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Use the default schedule? (briefing 9am, review 2pm, digest 9pm, weekly Sunday 10am)").
				Value(new(bool)),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("setup wizard: %w", err)
	}

	ownerID, err := strconv.ParseInt(ownerIDStr, 10, 64)
	if err != nil {
		return err
	}
	cfg.Owner.TelegramUserID = ownerID
	cfg.LLM.FallbackModel = cfg.LLM.JudgeModel

	path := resolveConfigPath()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("\nWrote %s\n\n", path)
	fmt.Println("Set these before running `jarvis serve`:")
	fmt.Printf("  export JARVIS_TELEGRAM_BOT_TOKEN=%s\n", botTokenPreview)
	fmt.Printf("  export JARVIS_OWNER_ID=%d\n", ownerID)
	fmt.Printf("  export JARVIS_POSTGRES_DSN=%s\n", dsnPreview)
	fmt.Printf("  export JARVIS_LLM_PRIMARY_KEY=%s\n", primaryKeyPreview)
	fmt.Println("\nThen apply migrations with `jarvis migrate up`.")
	return nil
}
