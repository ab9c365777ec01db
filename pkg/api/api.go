// Package api defines the messages exchanged with owedup clients.
//
// Messages travel as JSON over Connect. Calls that take no arguments use
// google.protobuf.Empty so the wire shape matches a protobuf-defined service.
package api

// User is the public view of an account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   int64  `json:"createdAt"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type RegisterResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// LoginWithIDTokenRequest exchanges a federated identity token for a session.
type LoginWithIDTokenRequest struct {
	Provider string `json:"provider"`
	IDToken  string `json:"idToken"`
}

type LoginWithIDTokenResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

// Session states reported by WatchSession.
const (
	SessionSignedIn  = "signed_in"
	SessionSignedOut = "signed_out"
)

// SessionEvent is one message of the auth-state-change stream.
type SessionEvent struct {
	State string `json:"state"`
	User  *User  `json:"user,omitempty"`

	// Reason explains a signed_out event ("logout", "expired").
	Reason string `json:"reason,omitempty"`
}

// Expense is the wire form of an expense record.
type Expense struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Amount    float64 `json:"amount"`
	Type      string  `json:"type"`
	Status    string  `json:"status"`
	UserID    string  `json:"userId"`
	CreatedAt int64   `json:"createdAt"`
}

// AddExpenseRequest carries the form fields as the user typed them.
// Amount is text; the server parses it.
type AddExpenseRequest struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`

	// Type and Status are optional; they default to "group" and "owed".
	Type   string `json:"type,omitempty"`
	Status string `json:"status,omitempty"`
}

type AddExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

// Summary holds the totals shown above the expense list.
type Summary struct {
	TotalOwed  float64 `json:"totalOwed"`
	TotalOwe   float64 `json:"totalOwe"`
	TotalSplit float64 `json:"totalSplit"`
	Net        float64 `json:"net"`
	Count      int     `json:"count"`
}

// ExpenseSnapshot is the full result of the user's expense query.
// Each snapshot replaces the previous one.
type ExpenseSnapshot struct {
	Expenses []*Expense `json:"expenses"`
	Summary  *Summary   `json:"summary"`
}
