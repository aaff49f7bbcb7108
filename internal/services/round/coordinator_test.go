package round

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/suite"

	"github.com/quentin-drucker/snaphunt/internal/catalog"
	"github.com/quentin-drucker/snaphunt/internal/dependencies/mocks"
	"github.com/quentin-drucker/snaphunt/internal/model"
	"github.com/quentin-drucker/snaphunt/internal/services/leaderboard"
	"github.com/quentin-drucker/snaphunt/internal/services/presence"
	"github.com/quentin-drucker/snaphunt/internal/services/vision"
	"github.com/quentin-drucker/snaphunt/internal/services/votes"
	"github.com/quentin-drucker/snaphunt/internal/storage/memory"
	"github.com/quentin-drucker/snaphunt/internal/testutil"
)

// recordingBroadcaster captures every broadcast event for assertions
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
}

type broadcastEvent struct {
	name    string
	payload any
}

func (b *recordingBroadcaster) Broadcast(event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, broadcastEvent{name: event, payload: payload})
}

func (b *recordingBroadcaster) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, len(b.events))
	for i, e := range b.events {
		names[i] = e.name
	}
	return names
}

func (b *recordingBroadcaster) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.name == name {
			n++
		}
	}
	return n
}

func (b *recordingBroadcaster) last(name string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.events) - 1; i >= 0; i-- {
		if b.events[i].name == name {
			return b.events[i].payload, true
		}
	}
	return nil, false
}

func (b *recordingBroadcaster) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}

// stubClassifier returns a fixed result, optionally blocking on a gate
// channel first so tests can race two in-flight submissions.
type stubClassifier struct {
	result vision.Result
	gate   chan struct{}
}

func (c *stubClassifier) Classify(ctx context.Context, image []byte, targetLabel string) vision.Result {
	if c.gate != nil {
		<-c.gate
	}
	return c.result
}

type CoordinatorSuite struct {
	suite.Suite
	clock       *clockwork.FakeClock
	random      *mocks.MockRandom
	catalog     *catalog.Service
	leaderboard *leaderboard.Service
	presence    *presence.Registry
	votes       *votes.Tracker
	classifier  *stubClassifier
	broadcaster *recordingBroadcaster
	coordinator *Coordinator
	ctx         context.Context
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.catalog = catalog.New(s.random)
	logger := testutil.NopLogger()

	var err error
	s.leaderboard, err = leaderboard.New(s.ctx, memory.New(), logger)
	s.Require().NoError(err)

	s.presence = presence.New()
	s.votes = votes.New()
	s.classifier = &stubClassifier{}
	s.broadcaster = &recordingBroadcaster{}

	s.coordinator = NewCoordinator(
		s.catalog, s.leaderboard, s.presence, s.votes,
		s.classifier, s.broadcaster, s.clock,
		DefaultConfig(), logger,
	)
}

func (s *CoordinatorSuite) TearDownTest() {
	s.coordinator.Stop()
}

func (s *CoordinatorSuite) waitForRound(id int64) {
	s.Require().Eventually(func() bool {
		return s.coordinator.CurrentRound().ID == id && s.coordinator.CurrentRound().Active
	}, time.Second, 5*time.Millisecond)
}

// Start tests

func (s *CoordinatorSuite) TestStartBeginsRoundOne() {
	s.coordinator.Start()

	round := s.coordinator.CurrentRound()
	s.Equal(int64(1), round.ID)
	s.True(round.Active)
	s.Equal("Pen", round.Item.Label)
	s.Equal(s.clock.Now(), round.StartedAt)
}

func (s *CoordinatorSuite) TestStartBroadcastsSkipStatusBeforeRoundStarted() {
	s.coordinator.Start()

	names := s.broadcaster.names()
	s.Equal([]string{model.EventSkipStatus, model.EventRoundStarted}, names)
}

func (s *CoordinatorSuite) TestStartPicksItemFromCatalog() {
	s.random.QueueIntn(2)
	s.coordinator.Start()

	s.Equal("Notebook", s.coordinator.CurrentRound().Item.Label)
}

func (s *CoordinatorSuite) TestRoundStartedEventCarriesUnixMillis() {
	s.coordinator.Start()

	payload, ok := s.broadcaster.last(model.EventRoundStarted)
	s.Require().True(ok)
	started := payload.(model.RoundStartedEvent)
	s.Equal(int64(1), started.RoundID)
	s.Equal(s.clock.Now().UnixMilli(), started.StartedAt)
}

// SubmitPhoto tests

func (s *CoordinatorSuite) TestSubmitBeforeAnyRoundIsRejected() {
	result := s.coordinator.SubmitPhoto(s.ctx, "alice", "Pen", []byte("img"))

	s.False(result.Matched)
	s.Equal(ReasonRoundNotActive, result.Reason)
}

func (s *CoordinatorSuite) TestSubmitNoMatchLeavesRoundActive() {
	s.classifier.result = vision.Result{Matched: false, Confidence: 0.3}
	s.coordinator.Start()

	result := s.coordinator.SubmitPhoto(s.ctx, "alice", "Pen", []byte("img"))

	s.False(result.Matched)
	s.Empty(result.Reason)
	s.NotEmpty(result.Message)
	s.Equal(0.3, result.Confidence)
	s.True(s.coordinator.CurrentRound().Active)
	s.Equal(0, s.broadcaster.count(model.EventRoundEnded))
}

func (s *CoordinatorSuite) TestSubmitMatchWinsRound() {
	s.classifier.result = vision.Result{Matched: true, Confidence: 0.92}
	s.coordinator.Start()
	s.clock.Advance(7 * time.Second)

	result := s.coordinator.SubmitPhoto(s.ctx, "alice", "Pen", []byte("img"))

	s.True(result.Matched)
	s.Equal("alice", result.Winner)
	s.Equal(int64(7000), result.DurationMs)
	s.Equal(0.92, result.Confidence)
	s.False(s.coordinator.CurrentRound().Active)
	s.Equal(1, s.leaderboard.Score("alice"))
}

func (s *CoordinatorSuite) TestWinBroadcastsLeaderboardBeforeRoundEnded() {
	s.classifier.result = vision.Result{Matched: true, Confidence: 0.9}
	s.coordinator.Start()
	s.broadcaster.reset()

	s.coordinator.SubmitPhoto(s.ctx, "alice", "Pen", []byte("img"))

	names := s.broadcaster.names()
	s.Equal([]string{model.EventLeaderboardUpdated, model.EventRoundEnded}, names)

	payload, ok := s.broadcaster.last(model.EventRoundEnded)
	s.Require().True(ok)
	ended := payload.(model.RoundEndedEvent)
	s.Equal("alice", ended.Winner)
	s.Equal(int64(1), ended.RoundID)
	s.Equal([]model.Entry{{Username: "alice", Score: 1}}, ended.Leaderboard)
}

func (s *CoordinatorSuite) TestSubmitAfterWinIsRejected() {
	s.classifier.result = vision.Result{Matched: true, Confidence: 0.9}
	s.coordinator.Start()
	s.coordinator.SubmitPhoto(s.ctx, "alice", "Pen", []byte("img"))

	result := s.coordinator.SubmitPhoto(s.ctx, "bob", "Pen", []byte("img"))

	s.Equal(ReasonRoundNotActive, result.Reason)
	s.Equal(0, s.leaderboard.Score("bob"))
}

func (s *CoordinatorSuite) TestWinStartsNextRoundAfterIntermission() {
	s.classifier.result = vision.Result{Matched: true, Confidence: 0.9}
	s.coordinator.Start()
	s.coordinator.SubmitPhoto(s.ctx, "alice", "Pen", []byte("img"))

	s.clock.Advance(DefaultConfig().Intermission)
	s.waitForRound(2)

	s.Equal(1, s.broadcaster.count(model.EventRoundEnded))
	s.Equal(2, s.broadcaster.count(model.EventRoundStarted))
}

func (s *CoordinatorSuite) TestNewRoundClearsSkipVotes() {
	s.classifier.result = vision.Result{Matched: true, Confidence: 0.9}
	s.presence.Register("conn-1", "alice")
	s.presence.Register("conn-2", "bob")
	s.coordinator.Start()
	s.coordinator.VoteSkip("alice")
	s.Require().Equal(1, s.votes.Size())

	s.coordinator.SubmitPhoto(s.ctx, "bob", "Pen", []byte("img"))
	s.clock.Advance(DefaultConfig().Intermission)
	s.waitForRound(2)

	s.Equal(0, s.votes.Size())
}

func (s *CoordinatorSuite) TestRacingMatchesProduceExactlyOneWinner() {
	gate := make(chan struct{})
	s.classifier.result = vision.Result{Matched: true, Confidence: 0.9}
	s.classifier.gate = gate
	s.coordinator.Start()

	results := make(chan SubmitResult, 2)
	go func() {
		results <- s.coordinator.SubmitPhoto(s.ctx, "alice", "Pen", []byte("img"))
	}()
	go func() {
		results <- s.coordinator.SubmitPhoto(s.ctx, "bob", "Pen", []byte("img"))
	}()
	close(gate)

	first := <-results
	second := <-results

	wins := 0
	rejections := 0
	for _, r := range []SubmitResult{first, second} {
		if r.Matched {
			wins++
		}
		if r.Reason == ReasonRoundNotActive {
			rejections++
		}
	}
	s.Equal(1, wins)
	s.Equal(1, rejections)
	s.Equal(1, s.broadcaster.count(model.EventRoundEnded))
	s.Equal(1, s.leaderboard.Score("alice")+s.leaderboard.Score("bob"))
}

// VoteSkip tests

func (s *CoordinatorSuite) TestVoteSkipFromOfflineUserIsIgnored() {
	s.coordinator.Start()
	s.broadcaster.reset()

	s.coordinator.VoteSkip("ghost")

	s.Equal(0, s.votes.Size())
	s.Empty(s.broadcaster.names())
	s.True(s.coordinator.CurrentRound().Active)
}

func (s *CoordinatorSuite) TestVoteSkipIsIdempotent() {
	s.presence.Register("conn-1", "alice")
	s.presence.Register("conn-2", "bob")
	s.coordinator.Start()

	s.coordinator.VoteSkip("alice")
	s.coordinator.VoteSkip("alice")

	s.Equal(1, s.votes.Size())
	s.True(s.coordinator.CurrentRound().Active)

	payload, ok := s.broadcaster.last(model.EventSkipStatus)
	s.Require().True(ok)
	s.Equal(model.SkipStatus{Votes: 1, Needed: 2}, payload.(model.SkipStatus))
}

func (s *CoordinatorSuite) TestUnanimousVoteSkipsRound() {
	s.presence.Register("conn-1", "alice")
	s.presence.Register("conn-2", "bob")
	s.coordinator.Start()

	s.coordinator.VoteSkip("alice")
	s.coordinator.VoteSkip("bob")

	s.False(s.coordinator.CurrentRound().Active)
	s.Equal(1, s.broadcaster.count(model.EventRoundSkipped))

	payload, ok := s.broadcaster.last(model.EventRoundSkipped)
	s.Require().True(ok)
	skipped := payload.(model.RoundSkippedEvent)
	s.Equal(int64(1), skipped.RoundID)
	s.Equal("Pen", skipped.Item.Label)
}

func (s *CoordinatorSuite) TestSkipStartsNextRoundAfterGrace() {
	s.presence.Register("conn-1", "alice")
	s.coordinator.Start()

	s.coordinator.VoteSkip("alice")
	s.Require().False(s.coordinator.CurrentRound().Active)

	s.clock.Advance(DefaultConfig().SkipGrace)
	s.waitForRound(2)
}

func (s *CoordinatorSuite) TestSkippedRoundAwardsNoPoints() {
	s.presence.Register("conn-1", "alice")
	s.coordinator.Start()

	s.coordinator.VoteSkip("alice")

	s.Empty(s.leaderboard.ReadSorted())
	s.Equal(0, s.broadcaster.count(model.EventRoundEnded))
}

func (s *CoordinatorSuite) TestDuplicateConnectionsCountOnceForUnanimity() {
	s.presence.Register("conn-1", "alice")
	s.presence.Register("conn-2", "alice")
	s.presence.Register("conn-3", "bob")
	s.coordinator.Start()

	s.coordinator.VoteSkip("alice")
	s.True(s.coordinator.CurrentRound().Active)

	s.coordinator.VoteSkip("bob")
	s.False(s.coordinator.CurrentRound().Active)
}

// Presence tests

func (s *CoordinatorSuite) TestPresenceChangeBroadcastsUsersAndSkipStatus() {
	s.coordinator.Start()
	s.broadcaster.reset()

	s.coordinator.PlayerConnected("conn-1", "alice")

	payload, ok := s.broadcaster.last(model.EventOnlineUsers)
	s.Require().True(ok)
	s.Equal([]string{"alice"}, payload.([]string))
	s.Equal(1, s.broadcaster.count(model.EventSkipStatus))
}

func (s *CoordinatorSuite) TestEmptyRoomBroadcastsEmptyUserList() {
	s.coordinator.Start()
	s.coordinator.PlayerConnected("conn-1", "alice")
	s.broadcaster.reset()

	s.coordinator.PlayerDisconnected("conn-1")

	payload, ok := s.broadcaster.last(model.EventOnlineUsers)
	s.Require().True(ok)
	s.Equal([]string{}, payload.([]string))
}

func (s *CoordinatorSuite) TestFirstJoinResetsRoundTimer() {
	s.coordinator.Start()
	startedAt := s.coordinator.CurrentRound().StartedAt

	s.clock.Advance(30 * time.Second)
	s.coordinator.PlayerConnected("conn-1", "alice")

	round := s.coordinator.CurrentRound()
	s.True(round.StartedAt.After(startedAt))
	s.Equal(s.clock.Now(), round.StartedAt)
}

func (s *CoordinatorSuite) TestSecondJoinDoesNotResetRoundTimer() {
	s.coordinator.Start()
	s.coordinator.PlayerConnected("conn-1", "alice")
	startedAt := s.coordinator.CurrentRound().StartedAt

	s.clock.Advance(30 * time.Second)
	s.coordinator.PlayerConnected("conn-2", "bob")

	s.Equal(startedAt, s.coordinator.CurrentRound().StartedAt)
}

func (s *CoordinatorSuite) TestDisconnectPrunesSkipVote() {
	s.presence.Register("conn-1", "alice")
	s.presence.Register("conn-2", "bob")
	s.coordinator.Start()
	s.coordinator.VoteSkip("alice")
	s.Require().Equal(1, s.votes.Size())

	s.coordinator.PlayerDisconnected("conn-1")

	s.Equal(0, s.votes.Size())
	s.True(s.coordinator.CurrentRound().Active)
}

func (s *CoordinatorSuite) TestVoteSkipConnResolvesUsername() {
	s.coordinator.PlayerConnected("conn-1", "alice")
	s.coordinator.Start()

	s.coordinator.VoteSkipConn("conn-1")

	s.True(s.votes.Has("alice"))
}

func (s *CoordinatorSuite) TestVoteSkipConnFromUnregisteredConnIsIgnored() {
	s.coordinator.Start()

	s.coordinator.VoteSkipConn("conn-unknown")

	s.Equal(0, s.votes.Size())
}

// Timer tests

func (s *CoordinatorSuite) TestStaleTimerFireIsIgnored() {
	s.classifier.result = vision.Result{Matched: true, Confidence: 0.9}
	s.coordinator.Start()
	s.coordinator.SubmitPhoto(s.ctx, "alice", "Pen", []byte("img"))
	s.clock.Advance(DefaultConfig().Intermission)
	s.waitForRound(2)

	// A fire keyed to round 1 is stale once round 2 is running
	s.coordinator.startAfter(1)

	s.Equal(int64(2), s.coordinator.CurrentRound().ID)
	s.Equal(2, s.broadcaster.count(model.EventRoundStarted))
}

func (s *CoordinatorSuite) TestTimerFireDuringActiveRoundIsIgnored() {
	s.coordinator.Start()

	s.coordinator.startAfter(1)

	s.Equal(int64(1), s.coordinator.CurrentRound().ID)
	s.Equal(1, s.broadcaster.count(model.EventRoundStarted))
}

func (s *CoordinatorSuite) TestStopPreventsFurtherRounds() {
	s.classifier.result = vision.Result{Matched: true, Confidence: 0.9}
	s.coordinator.Start()
	s.coordinator.SubmitPhoto(s.ctx, "alice", "Pen", []byte("img"))

	s.coordinator.Stop()
	s.clock.Advance(DefaultConfig().Intermission * 2)

	s.Equal(int64(1), s.coordinator.CurrentRound().ID)
	s.Equal(1, s.broadcaster.count(model.EventRoundStarted))
}

func (s *CoordinatorSuite) TestRoundIDsStrictlyIncrease() {
	s.presence.Register("conn-1", "alice")
	s.coordinator.Start()

	for want := int64(2); want <= 4; want++ {
		s.coordinator.VoteSkip("alice")
		s.clock.Advance(DefaultConfig().SkipGrace)
		s.waitForRound(want)
	}
}
