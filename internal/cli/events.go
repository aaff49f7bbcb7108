package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream live game events",
		Long: `Connect to the server's websocket channel and stream events in real-time.

Events include:
  - roundStarted: A new round began
  - roundEnded: Someone won the round
  - roundSkipped: The room voted to skip the item
  - leaderboardUpdated: Scores changed
  - onlineUsers: Online player list changed
  - skipStatus: Skip-vote progress changed

When --username is set, the connection registers as that user and counts
toward presence. Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return streamEvents(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// wsEnvelope is a server-to-client event frame
type wsEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func streamEvents(jsonOutput bool) error {
	wsURL, err := websocketURL(cfg.ServerURL)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	if cfg.Username != "" {
		register := map[string]any{"event": "registerUser", "data": cfg.Username}
		if err := conn.WriteJSON(register); err != nil {
			return fmt.Errorf("failed to register: %w", err)
		}
	}

	fmt.Fprintf(os.Stderr, "Connected to %s. Press Ctrl+C to disconnect.\n", wsURL)

	// Close the connection on Ctrl+C so the read loop unblocks
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	for {
		var env wsEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("connection closed: %w", err)
		}

		if jsonOutput {
			line, _ := json.Marshal(map[string]any{
				"time":  time.Now().Format(time.RFC3339),
				"event": env.Event,
				"data":  env.Data,
			})
			fmt.Println(string(line))
		} else {
			fmt.Printf("[%s] %s %s\n", time.Now().Format("15:04:05"), env.Event, string(env.Data))
		}
	}
}

// websocketURL converts the configured HTTP server URL to the ws endpoint
func websocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}
