package cli

import (
	"errors"
	"net/http"
	"syscall"

	"golang.org/x/term"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Verify the shared game password",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output)

			if cfg.Username == "" {
				return errors.New("username is required (--username)")
			}

			if password == "" {
				cmd.Print("Password: ")
				data, err := term.ReadPassword(int(syscall.Stdin))
				cmd.Println()
				if err != nil {
					return err
				}
				password = string(data)
			}

			var result LoginResult
			body := map[string]string{"username": cfg.Username, "password": password}
			if err := client.Do(http.MethodPost, "/api/login", body, &result); err != nil {
				out.PrintError(err)
				return err
			}

			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Shared game password (prompted if omitted)")

	return cmd
}

func newCurrentItemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current-item",
		Short: "Show the current round and target item",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output)

			var result CurrentItem
			if err := client.Do(http.MethodGet, "/api/current-item", nil, &result); err != nil {
				out.PrintError(err)
				return err
			}

			out.Print(result)
			return nil
		},
	}
}

func newLeaderboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output)

			var result []LeaderboardEntry
			if err := client.Do(http.MethodGet, "/api/leaderboard", nil, &result); err != nil {
				out.PrintError(err)
				return err
			}

			out.Print(result)
			return nil
		},
	}
}

func newUploadCmd() *cobra.Command {
	var targetLabel string

	cmd := &cobra.Command{
		Use:   "upload <image-file>",
		Short: "Submit a photo for the current round",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output)

			if cfg.Username == "" {
				return errors.New("username is required (--username)")
			}

			// Default the target to whatever the current round wants
			if targetLabel == "" {
				var current CurrentItem
				if err := client.Do(http.MethodGet, "/api/current-item", nil, &current); err != nil {
					out.PrintError(err)
					return err
				}
				if current.Item == nil {
					return errors.New("no round in progress")
				}
				targetLabel = current.Item.Label
			}

			var result UploadResult
			if err := client.Upload(args[0], cfg.Username, targetLabel, &result); err != nil {
				out.PrintError(err)
				return err
			}

			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&targetLabel, "target", "", "Target label (defaults to the current item)")

	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cfg.Output)

			var result HealthResult
			if err := client.Do(http.MethodGet, "/api/health", nil, &result); err != nil {
				out.PrintError(err)
				return err
			}

			out.Print(result)
			return nil
		},
	}
}
