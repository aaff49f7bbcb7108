package round

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/quentin-drucker/snaphunt/internal/catalog"
	"github.com/quentin-drucker/snaphunt/internal/model"
	"github.com/quentin-drucker/snaphunt/internal/services/leaderboard"
	"github.com/quentin-drucker/snaphunt/internal/services/presence"
	"github.com/quentin-drucker/snaphunt/internal/services/vision"
	"github.com/quentin-drucker/snaphunt/internal/services/votes"
)

// ReasonRoundNotActive marks a submission rejected because no round was
// accepting it at resolution time. Late submissions and losers of the
// winning race both get this, regardless of what the classifier said.
const ReasonRoundNotActive = "round_not_active"

// Broadcaster fans a named event out to every connected client. The
// coordinator stays transport-agnostic; the websocket hub implements this.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// Config holds the coordinator's game-design delays
type Config struct {
	// Intermission is the pause between a won round and the next one
	Intermission time.Duration
	// SkipGrace is the pause after a unanimous skip, giving clients time
	// to show the skip notice
	SkipGrace time.Duration
}

// DefaultConfig returns the standard game pacing
func DefaultConfig() Config {
	return Config{
		Intermission: 10 * time.Second,
		SkipGrace:    3 * time.Second,
	}
}

// SubmitResult is the structured outcome of a photo submission
type SubmitResult struct {
	Matched    bool
	Reason     string
	Message    string
	Confidence float64
	Winner     string
	DurationMs int64
}

// Coordinator is the single authority over round state. It owns the
// current round, the skip-vote set, and all transitions between rounds;
// every mutation of that state is routed through its methods.
type Coordinator struct {
	catalog     *catalog.Service
	leaderboard *leaderboard.Service
	presence    *presence.Registry
	votes       *votes.Tracker
	classifier  vision.Classifier
	broadcaster Broadcaster
	clock       clockwork.Clock
	logger      *slog.Logger
	cfg         Config

	mu              sync.Mutex
	round           model.Round
	lastOnlineCount int
	pending         clockwork.Timer
	pendingFor      int64
	stopped         bool
}

// NewCoordinator creates a coordinator. Call Start to begin the first round.
func NewCoordinator(
	cat *catalog.Service,
	board *leaderboard.Service,
	reg *presence.Registry,
	tracker *votes.Tracker,
	classifier vision.Classifier,
	broadcaster Broadcaster,
	clk clockwork.Clock,
	cfg Config,
	logger *slog.Logger,
) *Coordinator {
	if cfg.Intermission == 0 {
		cfg.Intermission = DefaultConfig().Intermission
	}
	if cfg.SkipGrace == 0 {
		cfg.SkipGrace = DefaultConfig().SkipGrace
	}
	return &Coordinator{
		catalog:     cat,
		leaderboard: board,
		presence:    reg,
		votes:       tracker,
		classifier:  classifier,
		broadcaster: broadcaster,
		clock:       clk,
		logger:      logger.With(slog.String("component", "round")),
		cfg:         cfg,
	}
}

// Start begins the first round. Subsequent rounds are started by the
// coordinator's own timers; clients can never start a round directly.
func (c *Coordinator) Start() {
	c.startRound()
}

// Stop cancels any pending round-start timer. The coordinator will not
// start further rounds afterwards.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}

// CurrentRound returns a snapshot of the current round state
func (c *Coordinator) CurrentRound() model.Round {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.round
}

// startRound picks a new target, advances the round ID, resets votes, and
// announces the round to all clients.
func (c *Coordinator) startRound() {
	item, err := c.catalog.RandomItem()
	if err != nil {
		c.logger.Error("cannot start round", slog.String("error", err.Error()))
		return
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	c.round = model.Round{
		ID:        c.round.ID + 1,
		Item:      item,
		StartedAt: c.clock.Now(),
		Active:    true,
	}
	started := model.RoundStartedEvent{
		Item:      c.round.Item,
		RoundID:   c.round.ID,
		StartedAt: c.round.StartedAt.UnixMilli(),
	}
	c.mu.Unlock()

	c.votes.Clear()

	c.logger.Info("round started",
		slog.Int64("round_id", started.RoundID),
		slog.String("item", item.Label),
	)

	c.broadcaster.Broadcast(model.EventSkipStatus, c.skipStatus())
	c.broadcaster.Broadcast(model.EventRoundStarted, started)
}

// SubmitPhoto resolves a photo submission. The round-active guard runs
// before classification so late submissions cost nothing; acceptance
// re-validates the active flag at flip time, after classification returns,
// so at most one matching submission per round performs the flip and wins.
func (c *Coordinator) SubmitPhoto(ctx context.Context, username, targetLabel string, image []byte) SubmitResult {
	c.mu.Lock()
	if !c.round.Active {
		c.mu.Unlock()
		return SubmitResult{Reason: ReasonRoundNotActive}
	}
	roundID := c.round.ID
	c.mu.Unlock()

	res := c.classifier.Classify(ctx, image, targetLabel)

	if !res.Matched {
		return SubmitResult{
			Confidence: res.Confidence,
			Message: fmt.Sprintf(
				"Not quite right - try a different photo, or angle of it. The classifier isn't confident that your uploaded item matches %s.",
				targetLabel),
		}
	}

	// Check-and-flip: only the first matching completion for this round
	// gets past here. A concurrent winner downgrades this submission to
	// the same outcome as a late one.
	c.mu.Lock()
	if !c.round.Active || c.round.ID != roundID {
		c.mu.Unlock()
		return SubmitResult{Reason: ReasonRoundNotActive}
	}
	c.round.Active = false
	durationMs := c.clock.Now().Sub(c.round.StartedAt).Milliseconds()
	item := c.round.Item
	c.mu.Unlock()

	board := c.leaderboard.Increment(ctx, username)

	c.logger.Info("round won",
		slog.Int64("round_id", roundID),
		slog.String("winner", username),
		slog.String("item", item.Label),
		slog.Int64("duration_ms", durationMs),
		slog.Float64("confidence", res.Confidence),
	)

	// leaderboardUpdated must precede roundEnded so a client seeing both
	// already has the board containing this win.
	c.broadcaster.Broadcast(model.EventLeaderboardUpdated, board)
	c.broadcaster.Broadcast(model.EventRoundEnded, model.RoundEndedEvent{
		Winner:      username,
		Item:        item,
		DurationMs:  durationMs,
		Leaderboard: board,
		RoundID:     roundID,
	})

	c.scheduleStart(roundID, c.cfg.Intermission)

	return SubmitResult{
		Matched:    true,
		Winner:     username,
		Confidence: res.Confidence,
		DurationMs: durationMs,
	}
}

// VoteSkip records a skip vote for the username. Votes from usernames not
// currently online are ignored; repeat votes are idempotent. A unanimous
// vote among the distinct online usernames abandons the round.
func (c *Coordinator) VoteSkip(username string) {
	if !c.presence.IsOnline(username) {
		return
	}

	c.votes.Add(username)

	status := c.skipStatus()
	c.broadcaster.Broadcast(model.EventSkipStatus, status)

	// needed > 0 guards the vacuous unanimity of an empty room
	if status.Needed == 0 || status.Votes < status.Needed {
		return
	}

	c.mu.Lock()
	if !c.round.Active {
		c.mu.Unlock()
		return
	}
	c.round.Active = false
	skipped := model.RoundSkippedEvent{
		Item:    c.round.Item,
		RoundID: c.round.ID,
	}
	c.mu.Unlock()

	c.logger.Info("round skipped by unanimous vote",
		slog.Int64("round_id", skipped.RoundID),
		slog.String("item", skipped.Item.Label),
		slog.Int("votes", status.Votes),
	)

	c.broadcaster.Broadcast(model.EventRoundSkipped, skipped)
	c.scheduleStart(skipped.RoundID, c.cfg.SkipGrace)
}

// OnPresenceChange re-broadcasts the online list and skip status after any
// presence mutation. When the room transitions from empty to occupied
// while a round is active, the round timer restarts so it measures time
// since someone was actually present to look for the item.
func (c *Coordinator) OnPresenceChange() {
	users := c.presence.DistinctUsernames()
	if users == nil {
		users = []string{}
	}

	// Departed players' votes no longer count toward unanimity
	c.votes.Prune(users)

	c.mu.Lock()
	n := len(users)
	if c.lastOnlineCount == 0 && n > 0 && c.round.Active {
		c.round.StartedAt = c.clock.Now()
		c.logger.Info("first player joined, resetting round timer",
			slog.Int64("round_id", c.round.ID))
	}
	c.lastOnlineCount = n
	c.mu.Unlock()

	c.broadcaster.Broadcast(model.EventOnlineUsers, users)
	c.broadcaster.Broadcast(model.EventSkipStatus, c.skipStatus())
}

// PlayerConnected registers a websocket connection's username and
// re-broadcasts presence.
func (c *Coordinator) PlayerConnected(connID, username string) {
	c.presence.Register(connID, username)
	c.logger.Info("player registered",
		slog.String("conn_id", connID),
		slog.String("username", username))
	c.OnPresenceChange()
}

// PlayerDisconnected removes a connection on disconnect and re-broadcasts
// presence.
func (c *Coordinator) PlayerDisconnected(connID string) {
	c.presence.Unregister(connID)
	c.OnPresenceChange()
}

// VoteSkipConn resolves a connection to its username and records a skip
// vote. Connections that never registered a username are ignored.
func (c *Coordinator) VoteSkipConn(connID string) {
	username := c.presence.Username(connID)
	if username == "" {
		return
	}
	c.VoteSkip(username)
}

// skipStatus derives the current vote progress. The denominator is the
// number of distinct online usernames at evaluation time.
func (c *Coordinator) skipStatus() model.SkipStatus {
	return model.SkipStatus{
		Votes:  c.votes.Size(),
		Needed: c.presence.OnlineCount(),
	}
}

// scheduleStart arms the next-round timer, keyed to the round that just
// ended. Any previously pending timer is cancelled first.
func (c *Coordinator) scheduleStart(endedRoundID int64, delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	if c.pending != nil {
		c.pending.Stop()
	}
	c.pendingFor = endedRoundID
	c.pending = c.clock.AfterFunc(delay, func() {
		c.startAfter(endedRoundID)
	})
}

// startAfter is the timer callback. A fire for a round that is no longer
// current, or for a round that somehow became active again, is stale and
// must no-op rather than double-start.
func (c *Coordinator) startAfter(endedRoundID int64) {
	c.mu.Lock()
	if c.stopped || c.round.ID != endedRoundID || c.round.Active {
		c.mu.Unlock()
		c.logger.Warn("stale round timer fired, ignoring",
			slog.Int64("timer_round_id", endedRoundID),
			slog.Int64("current_round_id", c.round.ID))
		return
	}
	c.mu.Unlock()

	c.startRound()
}
