package domain

type EventType string

const (
	EventCreated EventType = "created"
	EventReady   EventType = "ready"
	EventOpened  EventType = "opened"
)

// CapsuleEvent is published on the signal channel when a capsule changes
// state. Consumers only get identifiers; the payload stays behind the open
// guard.
type CapsuleEvent struct {
	Type             EventType     `json:"type"`
	CapsuleID        int64         `json:"capsuleId"`
	BlockchainID     string        `json:"blockchainId,omitempty"`
	RecipientAddress string        `json:"recipientAddress,omitempty"`
	Status           CapsuleStatus `json:"status,omitempty"`
}
