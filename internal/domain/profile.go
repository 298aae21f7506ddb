package domain

import "time"

// Profile is the persisted artist profile for one identity.
type Profile struct {
	IdentityID  string
	DisplayName string
	Handle      string
	Bio         string
	Statement   string
	Location    string
	Links       []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProfileFields is the writable subset merged on finalize. Merging the
// same fields twice is a no-op by design.
type ProfileFields struct {
	DisplayName string
	Handle      string
	Bio         string
	Statement   string
	Location    string
	Links       []string
}
