package domain

import "time"

// ProvisioningState is how far a signup saga got.
type ProvisioningState string

const (
	ProvisioningPending            ProvisioningState = "pending"
	ProvisioningReserved           ProvisioningState = "reserved"
	ProvisioningProfiled           ProvisioningState = "profiled"
	ProvisioningVerified           ProvisioningState = "verified"
	ProvisioningCompensating       ProvisioningState = "compensating"
	ProvisioningCompensated        ProvisioningState = "compensated"
	ProvisioningCompensationFailed ProvisioningState = "compensation_failed"
)

// Terminal reports whether the saga will not move out of this state on its own.
func (s ProvisioningState) Terminal() bool {
	switch s {
	case ProvisioningVerified, ProvisioningCompensated, ProvisioningCompensationFailed:
		return true
	}
	return false
}

// ProvisioningRecord is the journal entry for one signup saga, keyed by account id.
type ProvisioningRecord struct {
	AccountID         AccountID         `json:"account_id"`
	Email             string            `json:"email"`
	UsernameLower     string            `json:"username_lower"`
	State             ProvisioningState `json:"state"`
	FailedStep        string            `json:"failed_step,omitempty"`
	Cause             string            `json:"cause,omitempty"`
	CompensationError string            `json:"compensation_error,omitempty"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
