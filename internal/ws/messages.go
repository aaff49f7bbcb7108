package ws

import "encoding/json"

// Inbound message events clients may send
const (
	ClientEventRegisterUser = "registerUser"
	ClientEventVoteSkip     = "voteSkip"
)

// Envelope is the wire format for server-to-client events
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// clientMessage is the wire format for client-to-server messages
type clientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}
