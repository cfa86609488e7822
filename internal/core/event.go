package core

import "time"

// EventType names a confirmed change to a user's ledger.
type EventType string

const (
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionDeleted EventType = "transaction.deleted"
	EventBudgetSet          EventType = "budget.set"
	EventBudgetDeleted      EventType = "budget.deleted"
)

// Event is emitted after the store confirms a mutation.
type Event struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id"`
	Month     Month     `json:"month"`
	Timestamp time.Time `json:"timestamp"`
}
