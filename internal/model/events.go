package model

// Event names broadcast to connected clients.
const (
	EventOnlineUsers        = "onlineUsers"
	EventSkipStatus         = "skipStatus"
	EventRoundStarted       = "roundStarted"
	EventRoundEnded         = "roundEnded"
	EventRoundSkipped       = "roundSkipped"
	EventLeaderboardUpdated = "leaderboardUpdated"
)

// SkipStatus is the derived skip-vote progress: how many distinct online
// usernames have voted against how many are needed (all of them).
type SkipStatus struct {
	Votes  int `json:"votes"`
	Needed int `json:"needed"`
}

// RoundStartedEvent is broadcast when a new round begins.
// StartedAt is Unix milliseconds.
type RoundStartedEvent struct {
	Item      Item  `json:"item"`
	RoundID   int64 `json:"roundId"`
	StartedAt int64 `json:"startedAt"`
}

// RoundEndedEvent is broadcast when a round is won. At most one is ever
// emitted per round ID.
type RoundEndedEvent struct {
	Winner      string  `json:"winner"`
	Item        Item    `json:"item"`
	DurationMs  int64   `json:"durationMs"`
	Leaderboard []Entry `json:"leaderboard"`
	RoundID     int64   `json:"roundId"`
}

// RoundSkippedEvent is broadcast when a unanimous skip vote abandons the
// current item.
type RoundSkippedEvent struct {
	Item    Item  `json:"item"`
	RoundID int64 `json:"roundId"`
}
