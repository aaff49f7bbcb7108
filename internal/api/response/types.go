package response

import (
	"github.com/quentin-drucker/snaphunt/internal/model"
	"github.com/quentin-drucker/snaphunt/internal/services/round"
)

// LoginResponse echoes the accepted username
type LoginResponse struct {
	Username string `json:"username"`
}

// CurrentItemResponse is the round snapshot new clients sync from.
// Item is a pointer so a server that has not started a round yet (or has
// an empty catalog) serializes it as null, and startedAt is Unix millis.
type CurrentItemResponse struct {
	Item      *model.Item `json:"item"`
	RoundID   int64       `json:"roundId"`
	StartedAt int64       `json:"startedAt"`
	Active    bool        `json:"active"`
}

// CurrentItemFromRound converts a round snapshot
func CurrentItemFromRound(r model.Round) CurrentItemResponse {
	resp := CurrentItemResponse{
		RoundID: r.ID,
		Active:  r.Active,
	}
	if r.ID > 0 {
		item := r.Item
		resp.Item = &item
		resp.StartedAt = r.StartedAt.UnixMilli()
	}
	return resp
}

// UploadResponse is the outcome of a photo submission. Success reports
// whether the upload was processed; Matched reflects the coordinator's
// authoritative outcome, not the raw classifier result.
type UploadResponse struct {
	Success    bool    `json:"success"`
	Matched    bool    `json:"matched"`
	Reason     string  `json:"reason,omitempty"`
	Message    string  `json:"message,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Winner     string  `json:"winner,omitempty"`
	DurationMs int64   `json:"durationMs,omitempty"`
}

// UploadFromResult converts a coordinator submission outcome
func UploadFromResult(res round.SubmitResult) UploadResponse {
	return UploadResponse{
		Success:    true,
		Matched:    res.Matched,
		Reason:     res.Reason,
		Message:    res.Message,
		Confidence: res.Confidence,
		Winner:     res.Winner,
		DurationMs: res.DurationMs,
	}
}

// HealthResponse is the body for GET /api/health
type HealthResponse struct {
	Status string `json:"status"`
}
