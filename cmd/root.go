// Package cmd is the daemon's CLI surface: serve, migrate, setup, doctor.
// Grounded on the teacher's cobra root-command wiring (cmd/root.go),
// narrowed from a multi-command agent-gateway CLI to the four commands a
// single-owner daemon needs.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "jarvis",
	Short: "jarvis — personal executive-assistant daemon",
	Long:  "jarvis ingests chat messages, classifies them into tasks, tracks them to completion, and answers owner commands through a tool-use conversation loop.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: config.json or $JARVIS_CONFIG)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(setupCmd())
	rootCmd.AddCommand(doctorCmd())
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := os.Getenv("JARVIS_CONFIG"); v != "" {
		return v
	}
	return "config.json"
}

// Execute runs the root cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
