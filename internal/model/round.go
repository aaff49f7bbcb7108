package model

import "time"

// Round is one play cycle centered on a single target item.
// Exactly one round is current at any time; it is owned and mutated
// exclusively by the round coordinator. IDs strictly increase and are
// never reused.
type Round struct {
	ID        int64
	Item      Item
	StartedAt time.Time
	Active    bool
}
