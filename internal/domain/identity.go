package domain

// Identity is the signed-in caller as resolved by the identity layer.
// Credential and session handling live outside this service; an Identity
// is always fully resolved by the time it reaches a service method.
type Identity struct {
	ID          string
	Email       string
	DisplayName string
}
