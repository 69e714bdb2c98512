package models

import "github.com/shopspring/decimal"

// SettlementStatus is the lifecycle state of a settlement.
// The only transition is open → settled; settled is terminal.
type SettlementStatus string

const (
	SettlementOpen    SettlementStatus = "open"
	SettlementSettled SettlementStatus = "settled"
)

// Settlement represents an open debt from one participant to another,
// derived from the trip's expenses by the settlement reducer. Open
// settlements are regenerated on every expense mutation; only the settle
// operation touches them directly.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string `json:"id"`

	// TripID is the trip this settlement belongs to.
	TripID string `json:"tripId"`

	// DebtorID is the participant who owes. Never equal to CreditorID.
	DebtorID string `json:"debtorId"`

	// CreditorID is the participant who is owed.
	CreditorID string `json:"creditorId"`

	// Amount is the outstanding amount, strictly positive.
	Amount decimal.Decimal `json:"amount"`

	// Status is open or settled.
	Status SettlementStatus `json:"status"`

	// CreatedAt is the Unix timestamp when the settlement was generated.
	CreatedAt int64 `json:"createdAt"`
}

// SettlementRecord is an entry in the append-only settlement history. It is
// written exactly once, when a payment (full or partial) is confirmed, and
// never mutated afterwards.
type SettlementRecord struct {
	// ID is the unique identifier for the record (UUID format).
	ID string `json:"id"`

	// TripID is the trip this record belongs to.
	TripID string `json:"tripId"`

	// SettlementID is the open settlement this payment was applied to.
	// Kept so a second settle of the same settlement can be recognized and
	// rejected instead of double-counted.
	SettlementID string `json:"settlementId"`

	// DebtorID and CreditorID mirror the settlement the payment cleared.
	DebtorID   string `json:"debtorId"`
	CreditorID string `json:"creditorId"`

	// Amount is the amount actually paid.
	Amount decimal.Decimal `json:"amount"`

	// SettledBy is the user who confirmed the payment (the debtor, or the
	// trip admin on manual reconciliation).
	SettledBy string `json:"settledBy"`

	// SettledAt is the Unix timestamp when the payment was confirmed.
	SettledAt int64 `json:"settledAt"`
}
