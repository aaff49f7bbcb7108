package model

// Item is a scavenger hunt target drawn from the catalog.
// The label is what players see and what classifier tags are matched against.
type Item struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
	Hint  string `json:"hint"`
}
