package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "snapctl",
		Short: "CLI tool for the snaphunt scavenger-hunt server",
		Long: `snapctl is a CLI tool for interacting with the snaphunt game server.

It supports logging in, inspecting the current round and leaderboard,
submitting photos, and streaming live game events over the websocket
channel.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			client = NewClient(cfg.ServerURL)
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: SNAPHUNT_SERVER)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Username, "username", "u", cfg.Username, "Username (env: SNAPHUNT_USERNAME)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")

	// Add subcommands
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newCurrentItemCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
