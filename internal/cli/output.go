package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case LoginResult:
		fmt.Printf("Logged in as %s\n", v.Username)
	case CurrentItem:
		o.printCurrentItem(v)
	case []LeaderboardEntry:
		o.printLeaderboard(v)
	case UploadResult:
		o.printUploadResult(v)
	case HealthResult:
		fmt.Printf("Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printCurrentItem(c CurrentItem) {
	if c.Item == nil {
		fmt.Println("No round in progress")
		return
	}
	state := "intermission"
	if c.Active {
		state = "active"
	}
	started := time.UnixMilli(c.StartedAt).Format(time.RFC3339)
	fmt.Printf("Round %d (%s)\n", c.RoundID, state)
	fmt.Printf("  Find: %s\n", c.Item.Label)
	fmt.Printf("  Hint: %s\n", c.Item.Hint)
	fmt.Printf("  Started: %s\n", started)
}

func (o *Output) printLeaderboard(entries []LeaderboardEntry) {
	if len(entries) == 0 {
		fmt.Println("Leaderboard is empty")
		return
	}
	for i, e := range entries {
		fmt.Printf("%2d. %-20s %d\n", i+1, e.Username, e.Score)
	}
}

func (o *Output) printUploadResult(r UploadResult) {
	switch {
	case r.Matched:
		fmt.Printf("Matched! %s wins in %dms (confidence %.2f)\n", r.Winner, r.DurationMs, r.Confidence)
	case r.Reason != "":
		fmt.Printf("Not counted: %s\n", r.Reason)
	default:
		fmt.Printf("No match (confidence %.2f)\n", r.Confidence)
		if r.Message != "" {
			fmt.Println(r.Message)
		}
	}
}

// Response types (matching the API wire format)

// LoginResult is the login response
type LoginResult struct {
	Username string `json:"username"`
}

// Item is a scavenger target
type Item struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Hint  string `json:"hint"`
}

// CurrentItem is the round snapshot
type CurrentItem struct {
	Item      *Item `json:"item"`
	RoundID   int64 `json:"roundId"`
	StartedAt int64 `json:"startedAt"`
	Active    bool  `json:"active"`
}

// LeaderboardEntry is one leaderboard row
type LeaderboardEntry struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// UploadResult is the photo submission outcome
type UploadResult struct {
	Success    bool    `json:"success"`
	Matched    bool    `json:"matched"`
	Reason     string  `json:"reason"`
	Message    string  `json:"message"`
	Confidence float64 `json:"confidence"`
	Winner     string  `json:"winner"`
	DurationMs int64   `json:"durationMs"`
}

// HealthResult is the health response
type HealthResult struct {
	Status string `json:"status"`
}
