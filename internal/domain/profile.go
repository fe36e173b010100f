package domain

import "time"

// Profile mirrors the account's identity fields in the document store, keyed by account id.
type Profile struct {
	AccountID     AccountID `json:"account_id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	UsernameLower string    `json:"username_lower"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Reservation claims a lowercased username for one account.
type Reservation struct {
	UsernameLower string    `json:"-"`
	Owner         AccountID `json:"owner"`
	ReservedAt    time.Time `json:"reserved_at"`
}

// OwnedBy reports whether the reservation belongs to id.
func (r *Reservation) OwnedBy(id AccountID) bool {
	return r != nil && r.Owner == id
}
