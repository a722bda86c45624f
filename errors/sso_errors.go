package errors

import "fmt"

// SSOError is the JSON error body returned by every portal endpoint.
type SSOError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *SSOError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Error codes for the SSO code-exchange protocol.
const (
	Unauthenticated     = "unauthenticated"
	InvalidClient       = "invalid_client"
	InvalidRedirect     = "invalid_redirect"
	InvalidCredentials  = "invalid_credentials"
	InvalidGrant        = "invalid_grant"
	ClientNotConfigured = "client_not_configured"
	InvalidRequest      = "invalid_request"
	TooManyAttempts     = "too_many_attempts"
	ServerError         = "server_error"
)

func NewUnauthenticated(description string) *SSOError {
	return &SSOError{Code: Unauthenticated, Description: description}
}

func NewInvalidClient(description string) *SSOError {
	return &SSOError{Code: InvalidClient, Description: description}
}

func NewInvalidRedirect() *SSOError {
	// Deliberately vague: the caller learns nothing about why the target
	// was rejected.
	return &SSOError{Code: InvalidRedirect, Description: "Invalid redirect_uri"}
}

func NewInvalidCredentials() *SSOError {
	return &SSOError{Code: InvalidCredentials, Description: "Invalid client credentials"}
}

// NewInvalidGrant covers unknown, consumed and expired codes alike.
func NewInvalidGrant() *SSOError {
	return &SSOError{Code: InvalidGrant, Description: "Invalid or expired authorization code"}
}

func NewClientNotConfigured() *SSOError {
	return &SSOError{Code: ClientNotConfigured, Description: "Client is not configured for code exchange"}
}

func NewTooManyAttempts() *SSOError {
	return &SSOError{Code: TooManyAttempts, Description: "Too many failed exchange attempts"}
}

func NewInvalidRequest(description string) *SSOError {
	return &SSOError{Code: InvalidRequest, Description: description}
}

func NewServerError(description string) *SSOError {
	return &SSOError{Code: ServerError, Description: description}
}
