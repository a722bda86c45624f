package oidcflow

import "time"

// FlowState holds the server-side half of an upstream OAuth authorization
// flow: the state nonce handed to the provider, the PKCE challenge derived
// from the verifier cookie, and an expiry after which the callback must be
// refused.
type FlowState struct {
	State         string // Nonce sent to the provider and echoed back
	Provider      string // Which upstream provider the flow targets
	CodeChallenge string // S256 challenge derived from the verifier
	RedirectURI   string // Post-login destination captured at initiation
	CreatedAt     time.Time
	ExpiresAt     time.Time
}
