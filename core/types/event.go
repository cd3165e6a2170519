package types

// Event represents a typed event emitted during settlement.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
