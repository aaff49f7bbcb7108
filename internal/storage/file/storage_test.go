package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/quentin-drucker/snaphunt/internal/model"
)

type StorageSuite struct {
	suite.Suite
	path    string
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.path = filepath.Join(s.T().TempDir(), "leaderboard.json")
	s.storage = New(s.path)
	s.ctx = context.Background()
}

func (s *StorageSuite) TestMissingFileReadsEmpty() {
	entries, err := s.storage.GetLeaderboard(s.ctx)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *StorageSuite) TestSaveAndGetLeaderboard() {
	saved := []model.Entry{
		{Username: "alice", Score: 4},
		{Username: "bob", Score: 2},
	}

	err := s.storage.SaveLeaderboard(s.ctx, saved)
	s.Require().NoError(err)

	entries, err := s.storage.GetLeaderboard(s.ctx)
	s.Require().NoError(err)
	s.Equal(saved, entries)
}

func (s *StorageSuite) TestBoardSurvivesNewInstance() {
	saved := []model.Entry{{Username: "alice", Score: 1}}
	_ = s.storage.SaveLeaderboard(s.ctx, saved)

	reopened := New(s.path)
	entries, err := reopened.GetLeaderboard(s.ctx)
	s.Require().NoError(err)
	s.Equal(saved, entries)
}

func (s *StorageSuite) TestSaveNilWritesEmptyBoard() {
	err := s.storage.SaveLeaderboard(s.ctx, nil)
	s.Require().NoError(err)

	data, err := os.ReadFile(s.path)
	s.Require().NoError(err)
	s.JSONEq("[]", string(data))
}

func (s *StorageSuite) TestCorruptFileErrors() {
	s.Require().NoError(os.WriteFile(s.path, []byte("{broken"), 0o644))

	_, err := s.storage.GetLeaderboard(s.ctx)
	s.Error(err)
}

func (s *StorageSuite) TestSaveLeavesNoTempFilesBehind() {
	_ = s.storage.SaveLeaderboard(s.ctx, []model.Entry{{Username: "alice", Score: 1}})

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(s.path), ".leaderboard-*"))
	s.Require().NoError(err)
	s.Empty(matches)
}
