package leaderboard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/quentin-drucker/snaphunt/internal/model"
	"github.com/quentin-drucker/snaphunt/internal/storage/memory"
	"github.com/quentin-drucker/snaphunt/internal/testutil"
)

// failingStorage errors on every call, for degradation tests
type failingStorage struct {
	saveAttempts int
}

func (f *failingStorage) GetLeaderboard(ctx context.Context) ([]model.Entry, error) {
	return nil, errors.New("storage down")
}

func (f *failingStorage) SaveLeaderboard(ctx context.Context, entries []model.Entry) error {
	f.saveAttempts++
	return errors.New("storage down")
}

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.storage = memory.New()

	var err error
	s.service, err = New(s.ctx, s.storage, testutil.NopLogger())
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestNewLoadsPersistedScores() {
	_ = s.storage.SaveLeaderboard(s.ctx, []model.Entry{{Username: "alice", Score: 5}})

	service, err := New(s.ctx, s.storage, testutil.NopLogger())
	s.Require().NoError(err)

	s.Equal(5, service.Score("alice"))
}

func (s *ServiceSuite) TestIncrementCreatesEntryAtOne() {
	board := s.service.Increment(s.ctx, "alice")

	s.Equal([]model.Entry{{Username: "alice", Score: 1}}, board)
}

func (s *ServiceSuite) TestIncrementIsMonotonic() {
	s.service.Increment(s.ctx, "alice")
	s.service.Increment(s.ctx, "alice")
	board := s.service.Increment(s.ctx, "alice")

	s.Equal(3, s.service.Score("alice"))
	s.Equal([]model.Entry{{Username: "alice", Score: 3}}, board)
}

func (s *ServiceSuite) TestIncrementPersistsFullBoard() {
	s.service.Increment(s.ctx, "alice")
	s.service.Increment(s.ctx, "bob")

	persisted, err := s.storage.GetLeaderboard(s.ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]model.Entry{
		{Username: "alice", Score: 1},
		{Username: "bob", Score: 1},
	}, persisted)
}

func (s *ServiceSuite) TestReadSortedOrdersByScoreDescending() {
	s.service.Increment(s.ctx, "bob")
	s.service.Increment(s.ctx, "alice")
	s.service.Increment(s.ctx, "alice")

	s.Equal([]model.Entry{
		{Username: "alice", Score: 2},
		{Username: "bob", Score: 1},
	}, s.service.ReadSorted())
}

func (s *ServiceSuite) TestTiesKeepFirstAppearanceOrder() {
	s.service.Increment(s.ctx, "carol")
	s.service.Increment(s.ctx, "alice")
	s.service.Increment(s.ctx, "bob")

	s.Equal([]model.Entry{
		{Username: "carol", Score: 1},
		{Username: "alice", Score: 1},
		{Username: "bob", Score: 1},
	}, s.service.ReadSorted())
}

func (s *ServiceSuite) TestScoreUnknownUsernameIsZero() {
	s.Equal(0, s.service.Score("ghost"))
}

func (s *ServiceSuite) TestRoundTripThroughNewInstance() {
	s.service.Increment(s.ctx, "alice")
	s.service.Increment(s.ctx, "alice")
	s.service.Increment(s.ctx, "bob")

	reloaded, err := New(s.ctx, s.storage, testutil.NopLogger())
	s.Require().NoError(err)

	s.Equal(2, reloaded.Score("alice"))
	s.Equal(1, reloaded.Score("bob"))
}

func (s *ServiceSuite) TestLoadFailureStartsEmptyAndReportsError() {
	service, err := New(s.ctx, &failingStorage{}, testutil.NopLogger())

	s.Error(err)
	s.NotNil(service)
	s.Empty(service.ReadSorted())
}

func (s *ServiceSuite) TestWriteFailureKeepsInMemoryScoreAndRetriesOnce() {
	failing := &failingStorage{}
	service, _ := New(s.ctx, failing, testutil.NopLogger())
	failing.saveAttempts = 0

	board := service.Increment(s.ctx, "alice")

	s.Equal(2, failing.saveAttempts)
	s.Equal([]model.Entry{{Username: "alice", Score: 1}}, board)
	s.Equal(1, service.Score("alice"))
}
