// Package session derives the client's signed-in state from the stored token
// and the API, and keeps it fresh across token changes and reconnects.
package session

// Per-process flags that must not survive a restart. The onboarding flow and
// sign-out both touch these, so the names live here.
const (
	SessKeySubscribeSent   = "onboarding_subscribe_sent"
	SessKeyOnboardingState = "onboarding_state"
	SessKeyFlowMarker      = "onboarding_flow"
)
