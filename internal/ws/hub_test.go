package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"github.com/quentin-drucker/snaphunt/internal/testutil"
)

// recordingSession captures dispatched connection events
type recordingSession struct {
	mu            sync.Mutex
	connected     []string // usernames
	disconnected  int
	skipVotes     []string // conn IDs
	lastConnected string   // conn ID of last PlayerConnected
}

func (s *recordingSession) PlayerConnected(connID, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = append(s.connected, username)
	s.lastConnected = connID
}

func (s *recordingSession) PlayerDisconnected(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnected++
}

func (s *recordingSession) VoteSkipConn(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipVotes = append(s.skipVotes, connID)
}

func (s *recordingSession) connectedUsernames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.connected...)
}

func (s *recordingSession) disconnects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnected
}

func (s *recordingSession) votes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.skipVotes...)
}

type HubSuite struct {
	suite.Suite
	hub     *Hub
	session *recordingSession
	server  *httptest.Server
}

func TestHubSuite(t *testing.T) {
	suite.Run(t, new(HubSuite))
}

func (s *HubSuite) SetupTest() {
	s.hub = NewHub(testutil.NopLogger())
	s.session = &recordingSession{}
	s.hub.AttachSession(s.session)
	go s.hub.Run()

	s.server = httptest.NewServer(http.HandlerFunc(s.hub.ServeWS))
}

func (s *HubSuite) TearDownTest() {
	s.server.Close()
	s.hub.Close()
}

func (s *HubSuite) dial() *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	s.T().Cleanup(func() { conn.Close() })

	s.Require().Eventually(func() bool {
		return s.hub.ClientCount() > 0
	}, time.Second, 5*time.Millisecond)
	return conn
}

func (s *HubSuite) TestClientConnectAndDisconnect() {
	conn := s.dial()
	s.Equal(1, s.hub.ClientCount())

	conn.Close()

	s.Require().Eventually(func() bool {
		return s.hub.ClientCount() == 0
	}, time.Second, 5*time.Millisecond)
	s.Require().Eventually(func() bool {
		return s.session.disconnects() == 1
	}, time.Second, 5*time.Millisecond)
}

func (s *HubSuite) TestRegisterUserDispatchesToSession() {
	conn := s.dial()

	err := conn.WriteJSON(map[string]any{"event": "registerUser", "data": "alice"})
	s.Require().NoError(err)

	s.Require().Eventually(func() bool {
		users := s.session.connectedUsernames()
		return len(users) == 1 && users[0] == "alice"
	}, time.Second, 5*time.Millisecond)
}

func (s *HubSuite) TestVoteSkipDispatchesConnID() {
	conn := s.dial()

	s.Require().NoError(conn.WriteJSON(map[string]any{"event": "registerUser", "data": "alice"}))
	s.Require().Eventually(func() bool {
		return len(s.session.connectedUsernames()) == 1
	}, time.Second, 5*time.Millisecond)

	s.Require().NoError(conn.WriteJSON(map[string]any{"event": "voteSkip"}))

	s.Require().Eventually(func() bool {
		votes := s.session.votes()
		return len(votes) == 1 && votes[0] == s.session.lastConnected
	}, time.Second, 5*time.Millisecond)
}

func (s *HubSuite) TestBroadcastReachesAllClients() {
	conn1 := s.dial()
	conn2 := s.dial()
	s.Require().Eventually(func() bool {
		return s.hub.ClientCount() == 2
	}, time.Second, 5*time.Millisecond)

	s.hub.Broadcast("skipStatus", map[string]int{"votes": 1, "needed": 2})

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		s.Require().NoError(conn.SetReadDeadline(time.Now().Add(time.Second)))
		var env Envelope
		s.Require().NoError(conn.ReadJSON(&env))
		s.Equal("skipStatus", env.Event)

		data, err := json.Marshal(env.Data)
		s.Require().NoError(err)
		s.JSONEq(`{"votes":1,"needed":2}`, string(data))
	}
}

func (s *HubSuite) TestMalformedMessageIsIgnored() {
	conn := s.dial()

	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	s.Require().NoError(conn.WriteJSON(map[string]any{"event": "registerUser", "data": "alice"}))

	s.Require().Eventually(func() bool {
		return len(s.session.connectedUsernames()) == 1
	}, time.Second, 5*time.Millisecond)
	s.Equal(1, s.hub.ClientCount())
}

func (s *HubSuite) TestUnknownEventIsIgnored() {
	conn := s.dial()

	s.Require().NoError(conn.WriteJSON(map[string]any{"event": "teleport"}))
	s.Require().NoError(conn.WriteJSON(map[string]any{"event": "registerUser", "data": "alice"}))

	s.Require().Eventually(func() bool {
		return len(s.session.connectedUsernames()) == 1
	}, time.Second, 5*time.Millisecond)
}

func (s *HubSuite) TestRegisterUserWithEmptyUsernameIsIgnored() {
	conn := s.dial()

	s.Require().NoError(conn.WriteJSON(map[string]any{"event": "registerUser", "data": ""}))
	s.Require().NoError(conn.WriteJSON(map[string]any{"event": "voteSkip"}))

	s.Require().Eventually(func() bool {
		return len(s.session.votes()) == 1
	}, time.Second, 5*time.Millisecond)
	s.Empty(s.session.connectedUsernames())
}

func (s *HubSuite) TestCloseDisconnectsClients() {
	s.dial()

	s.hub.Close()

	s.Require().Eventually(func() bool {
		return s.hub.ClientCount() == 0
	}, time.Second, 5*time.Millisecond)
}
