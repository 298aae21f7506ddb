package domain

import (
	"strings"
	"time"
)

// OnboardingStep names the ordered steps of the onboarding wizard.
type OnboardingStep string

const (
	StepIdentityBasics  OnboardingStep = "IDENTITY_BASICS"
	StepPracticeDetails OnboardingStep = "PRACTICE_DETAILS"
	StepReview          OnboardingStep = "REVIEW"
)

var stepOrder = []OnboardingStep{StepIdentityBasics, StepPracticeDetails, StepReview}

// SessionStatus enumerates session-level states.
type SessionStatus string

const (
	SessionStatusReady      SessionStatus = "READY"
	SessionStatusMismatched SessionStatus = "MISMATCHED"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
)

// OnboardingDraft holds the session-local profile edits. Nothing here is
// persisted to the profile store until finalize.
type OnboardingDraft struct {
	DisplayName string   `json:"display_name"`
	Handle      string   `json:"handle"`
	Bio         string   `json:"bio"`
	Statement   string   `json:"statement"`
	Location    string   `json:"location"`
	Links       []string `json:"links"`
}

// SeedFromProfile builds the initial draft from an existing profile, if any.
func SeedFromProfile(profile *Profile) OnboardingDraft {
	if profile == nil {
		return OnboardingDraft{}
	}
	return OnboardingDraft{
		DisplayName: profile.DisplayName,
		Handle:      profile.Handle,
		Bio:         profile.Bio,
		Statement:   profile.Statement,
		Location:    profile.Location,
		Links:       profile.Links,
	}
}

// Fields converts the draft into the writable profile subset.
func (d OnboardingDraft) Fields() ProfileFields {
	return ProfileFields{
		DisplayName: d.DisplayName,
		Handle:      d.Handle,
		Bio:         d.Bio,
		Statement:   d.Statement,
		Location:    d.Location,
		Links:       d.Links,
	}
}

// OnboardingSession tracks one identity working through one invite. The
// invite's bound email is carried along so a mismatch can tell the user
// which address to sign in with.
type OnboardingSession struct {
	ID          string          `json:"id"`
	InviteID    string          `json:"invite_id"`
	InviteEmail string          `json:"invite_email"`
	IdentityID  string          `json:"identity_id"`
	Status      SessionStatus   `json:"status"`
	Step        OnboardingStep  `json:"step"`
	Draft       OnboardingDraft `json:"draft"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// FirstStep returns the initial wizard step.
func FirstStep() OnboardingStep {
	return stepOrder[0]
}

// NextStep returns the step after current, or false when current is last.
func NextStep(current OnboardingStep) (OnboardingStep, bool) {
	for i, step := range stepOrder {
		if step == current && i+1 < len(stepOrder) {
			return stepOrder[i+1], true
		}
	}
	return current, false
}

// PrevStep returns the step before current, or false when current is first.
func PrevStep(current OnboardingStep) (OnboardingStep, bool) {
	for i, step := range stepOrder {
		if step == current && i > 0 {
			return stepOrder[i-1], true
		}
	}
	return current, false
}

// EmailsMatch compares the invite binding against the signed-in address.
func EmailsMatch(inviteEmail, identityEmail string) bool {
	return strings.EqualFold(strings.TrimSpace(inviteEmail), strings.TrimSpace(identityEmail))
}
