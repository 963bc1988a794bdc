package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names a ledger change. The export worker uses it to decide which
// snapshot to refresh.
type EventType string

const (
	EventBudgetSaved          EventType = "budget.saved"
	EventBudgetDeleted        EventType = "budget.deleted"
	EventPotSaved             EventType = "pot.saved"
	EventPotDeleted           EventType = "pot.deleted"
	EventTransactionsImported EventType = "transactions.imported"
	EventUserRegistered       EventType = "user.registered"
)

var knownEvents = map[EventType]bool{
	EventBudgetSaved:          true,
	EventBudgetDeleted:        true,
	EventPotSaved:             true,
	EventPotDeleted:           true,
	EventTransactionsImported: true,
	EventUserRegistered:       true,
}

// LedgerEvent is a lightweight change notification. It carries only the key of
// the changed record; consumers read the current state from the store.
type LedgerEvent struct {
	Type      EventType `json:"type"`
	Key       string    `json:"key"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEvent stamps an event with the current time. Version is the
// timestamp in nanoseconds so later events for the same key compare greater.
func NewLedgerEvent(t EventType, key string) *LedgerEvent {
	now := time.Now().UTC()
	return &LedgerEvent{
		Type:      t,
		Key:       key,
		Version:   now.UnixNano(),
		Timestamp: now,
	}
}

// ToJSON converts the message to JSON bytes
func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes an event and rejects unknown types.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var evt LedgerEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	if !knownEvents[evt.Type] {
		return nil, fmt.Errorf("unknown event type %q", evt.Type)
	}
	return &evt, nil
}
