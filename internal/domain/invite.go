package domain

import "time"

// InviteStatus enumerates lifecycle states for artist invites.
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "PENDING"
	InviteStatusRedeemed InviteStatus = "REDEEMED"
	InviteStatusRevoked  InviteStatus = "REVOKED"
	InviteStatusExpired  InviteStatus = "EXPIRED"
)

// InviteValidation classifies an invite read without writing anything.
type InviteValidation string

const (
	InviteReady           InviteValidation = "READY"
	InviteRevoked         InviteValidation = "REVOKED"
	InviteExpired         InviteValidation = "EXPIRED"
	InviteAlreadyRedeemed InviteValidation = "ALREADY_REDEEMED"
)

// Invite is a redeemable, email-bound grant for artist onboarding.
// The ID doubles as the opaque token handed to the invitee.
type Invite struct {
	ID             string
	Email          string
	Status         InviteStatus
	IssuedAt       time.Time
	ExpiresAt      *time.Time
	LastAccessedAt *time.Time
	RedeemedAt     *time.Time
	RedeemedBy     *string
}

// IsTerminal reports whether no further status transition is defined.
func (i *Invite) IsTerminal() bool {
	return i.Status != InviteStatusPending
}

// Validate classifies the invite at the given instant. Expiry is decided
// lazily here; a materialized EXPIRED status written by the issuance
// process is honored the same way.
func (i *Invite) Validate(now time.Time) InviteValidation {
	switch i.Status {
	case InviteStatusRedeemed:
		return InviteAlreadyRedeemed
	case InviteStatusRevoked:
		return InviteRevoked
	case InviteStatusExpired:
		return InviteExpired
	}
	if i.ExpiresAt != nil && !now.Before(*i.ExpiresAt) {
		return InviteExpired
	}
	return InviteReady
}
