package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActivationStatusTransitions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		from    ActivationStatus
		to      ActivationStatus
		allowed bool
	}{
		{"unconnected to created", ActivationStatusUnconnected, ActivationStatusCreated, true},
		{"created to incomplete", ActivationStatusCreated, ActivationStatusIncomplete, true},
		{"created to active", ActivationStatusCreated, ActivationStatusActive, true},
		{"incomplete to pending is lateral", ActivationStatusIncomplete, ActivationStatusPending, true},
		{"pending to incomplete is lateral", ActivationStatusPending, ActivationStatusIncomplete, true},
		{"pending to active", ActivationStatusPending, ActivationStatusActive, true},
		{"incomplete to created regresses", ActivationStatusIncomplete, ActivationStatusCreated, false},
		{"active is frozen", ActivationStatusActive, ActivationStatusIncomplete, false},
		{"failed is frozen", ActivationStatusFailed, ActivationStatusActive, false},
		{"self transition", ActivationStatusActive, ActivationStatusActive, true},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransition(tc.to), tc.name)
	}
}

func TestActivationStatusIsTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, ActivationStatusActive.IsTerminal())
	assert.True(t, ActivationStatusFailed.IsTerminal())
	assert.False(t, ActivationStatusUnconnected.IsTerminal())
	assert.False(t, ActivationStatusCreated.IsTerminal())
	assert.False(t, ActivationStatusIncomplete.IsTerminal())
	assert.False(t, ActivationStatusPending.IsTerminal())
}
