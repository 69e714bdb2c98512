package models

import "github.com/shopspring/decimal"

// SplitMethod describes how an expense is divided among its split members.
type SplitMethod string

const (
	// SplitEven divides the amount equally among the split members.
	SplitEven SplitMethod = "even"

	// SplitExact assigns an explicit share to each split member; the shares
	// must sum to the expense amount.
	SplitExact SplitMethod = "exact"
)

// Expense represents a cost paid by one participant on behalf of several.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string `json:"id"`

	// TripID is the trip this expense belongs to.
	TripID string `json:"tripId"`

	// Name is a free-text description (e.g., "Groceries", "Ferry tickets").
	Name string `json:"name"`

	// Amount is the full cost, strictly positive, in the trip's currency.
	Amount decimal.Decimal `json:"amount"`

	// PayerID is the participant who paid the full amount.
	PayerID string `json:"payerId"`

	// SplitMethod is how the amount is divided among Splits.
	SplitMethod SplitMethod `json:"splitMethod"`

	// Splits is the non-empty set of participants sharing the cost. For
	// SplitEven the Share fields are ignored; for SplitExact they must sum
	// to Amount.
	Splits []ExpenseSplit `json:"splits"`

	// CreatedAt is the Unix timestamp when the expense was logged.
	CreatedAt int64 `json:"createdAt"`
}

// ExpenseSplit assigns part of an expense to one participant.
type ExpenseSplit struct {
	UserID string `json:"userId"`

	// Share is this participant's portion for SplitExact expenses.
	// Zero (and ignored) for SplitEven.
	Share decimal.Decimal `json:"share"`
}

// SplitUserIDs returns the user IDs of the split members, in declaration
// order.
func (e *Expense) SplitUserIDs() []string {
	ids := make([]string, len(e.Splits))
	for i, s := range e.Splits {
		ids[i] = s.UserID
	}
	return ids
}
