package models

import "fmt"

// Status is the settlement state of an expense from the owner's point of view.
type Status string

const (
	// StatusOwed means the owner is owed the amount.
	StatusOwed Status = "owed"
	// StatusOwe means the owner owes the amount.
	StatusOwe Status = "owe"
	// StatusSplit means the amount is shared.
	StatusSplit Status = "split"
)

// DefaultExpenseType is the category tag given to expenses added from the
// groups screen.
const DefaultExpenseType = "group"

// MaxAmount bounds the absolute value of an expense amount.
const MaxAmount = 1e12

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusOwed, StatusOwe, StatusSplit:
		return true
	}
	return false
}

// ParseStatus converts a raw status string. An empty string yields StatusOwed.
func ParseStatus(raw string) (Status, error) {
	if raw == "" {
		return StatusOwed, nil
	}
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("invalid status %q: must be one of owed, owe, split", raw)
	}
	return s, nil
}

// Expense represents one expense record.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// Name is the trimmed, user-provided label (e.g., "Coffee").
	Name string

	// Amount is the numeric value parsed from the submitted text.
	Amount float64

	// Type is a category tag, "group" unless the client says otherwise.
	Type string

	// Status is the settlement state.
	Status Status

	// UserID is the owner. Always taken from the session, never from the request.
	UserID string

	// CreatedAt is the Unix timestamp assigned by the store.
	CreatedAt int64
}
