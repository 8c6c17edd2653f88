package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Octane Relay - multi-format LLM API gateway",
	Long: `Octane Relay is an LLM API gateway that speaks the OpenAI Chat
Completions, OpenAI Responses, and Anthropic Messages wire formats on a
single listener.

Incoming requests name a model group; the relay picks a healthy upstream
channel for the group, translates the request to the channel's native
format, and translates the response or event stream back. Along the way
it meters tokens, applies pricing and per-key quotas, and writes an
audit trail.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "relay.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
