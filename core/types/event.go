package types

// Event is the broadcast form of a structured state change. Attributes carry
// string-rendered values so downstream consumers never need module types.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
