package audit

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Event is a security audit record. Emission is fire-and-forget: a failing
// audit pipeline must never fail the request that produced the event.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	User      string    `json:"user,omitempty"`
	ClientID  string    `json:"client_id,omitempty"`
	Target    string    `json:"target,omitempty"` // Redirect URI or resource under action
	Details   string    `json:"details,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// Actions emitted by the SSO protocol.
const (
	ActionCodeGenerated  = "sso.code_generated"
	ActionCodeExchanged  = "sso.code_exchanged"
	ActionExchangeDenied = "sso.exchange_denied"
)

var auditLogger = log.Output(os.Stdout).With().Logger()

// Log records an audit event. Errors are swallowed after a local log line.
func Log(action, user, clientID, target, details string, success bool, err error) {
	event := Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		User:      user,
		ClientID:  clientID,
		Target:    target,
		Details:   details,
		Success:   success,
	}
	if err != nil {
		event.Error = err.Error()
	}

	entry, marshalErr := json.Marshal(event)
	if marshalErr != nil {
		// Fall back to unstructured logging if JSON marshaling fails.
		log.Error().Err(marshalErr).Msg("Failed to marshal audit event to JSON")
		auditLogger.Error().
			Str("action", action).
			Str("user", user).
			Str("client_id", clientID).
			Str("target", target).
			Bool("success", success).
			Err(err).
			Msg("Audit Log (fallback)")
		return
	}
	auditLogger.Log().RawJSON("audit_event", entry).Msg("")
}
