// Package cmd provides the aiworld CLI.
//
// Commands:
//   - serve: HTTP gateway with provider registration, chat, and SSE streaming
//   - migrate: apply pending database migrations
//   - version: show version information
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "aiworld",
	Short: "aiworld - HTTP gateway for LLM model providers",
	Long: `aiworld is an HTTP gateway that fronts multiple LLM providers
(OpenAI, Anthropic, Perplexity) behind one API: register providers,
chat with them synchronously or over SSE, keep conversation history
in Postgres, and invoke registered tools.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newVersionCmd())
}
