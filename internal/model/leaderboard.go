package model

// Entry is one leaderboard row. Entries exist for every username that has
// ever won a round; scores only increase.
type Entry struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}
