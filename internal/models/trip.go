package models

// Trip represents a shared event with a date range, a participant roster,
// and the expenses and settlements it owns. Deleting a trip cascades to its
// expenses and settlements; participants are referenced, not owned.
type Trip struct {
	// ID is the unique identifier for the trip (UUID format).
	ID string `json:"id"`

	// Name is the display name of the trip (e.g., "Lisbon 2026").
	Name string `json:"name"`

	// Description is optional free text.
	Description string `json:"description,omitempty"`

	// Currency is the ISO 4217 code all amounts in this trip are in.
	Currency string `json:"currency"`

	// StartDate and EndDate are Unix timestamps bounding the trip.
	StartDate int64 `json:"startDate"`
	EndDate   int64 `json:"endDate"`

	// CreatorID is the user who created the trip. The creator is the trip
	// administrator: only they may manage the roster or settle on behalf of
	// a debtor.
	CreatorID string `json:"creatorId"`

	// Version is the optimistic-concurrency token. Every mutation of the
	// trip or anything it owns bumps it; writers supply the version they
	// read and lose with a conflict if it moved.
	Version int64 `json:"version"`

	// CreatedAt is the Unix timestamp when the trip was created.
	CreatedAt int64 `json:"createdAt"`
}

// Participant is a trip membership entry.
type Participant struct {
	TripID      string `json:"tripId"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`

	// JoinedAt is the Unix timestamp when the user joined the trip.
	JoinedAt int64 `json:"joinedAt"`
}
