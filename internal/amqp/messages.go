package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind names what changed in a profile's ledger
type EventKind string

const (
	TransactionCreated  EventKind = "transaction.created"
	TransactionUpdated  EventKind = "transaction.updated"
	TransactionDeleted  EventKind = "transaction.deleted"
	TransferCreated     EventKind = "transfer.created"
	PaymentRecorded     EventKind = "payment.recorded"
	AccountDeleted      EventKind = "account.deleted"
	FixedExpenseApplied EventKind = "fixed_expense.applied"
)

// LedgerEvent is a lightweight notification that a profile's transaction
// log changed. Consumers re-read the full log from storage.
type LedgerEvent struct {
	ProfileID      string    `json:"profile_id"`
	Kind           EventKind `json:"kind"`
	TransactionIDs []string  `json:"transaction_ids,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewLedgerEvent stamps a new event with the current time
func NewLedgerEvent(profileID string, kind EventKind, txIDs ...string) LedgerEvent {
	return LedgerEvent{
		ProfileID:      profileID,
		Kind:           kind,
		TransactionIDs: txIDs,
		Timestamp:      time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (e LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and sanity-checks an event body
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.ProfileID == "" {
		return nil, fmt.Errorf("ledger event without profile id")
	}
	return &e, nil
}
