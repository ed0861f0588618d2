package domain

import "time"

// AuthEventType names an auditable authentication outcome.
type AuthEventType string

const (
	EventLoginSucceeded   AuthEventType = "login_succeeded"
	EventLoginFailed      AuthEventType = "login_failed"
	EventRefreshSucceeded AuthEventType = "refresh_succeeded"
	EventRefreshFailed    AuthEventType = "refresh_failed"
	EventLogout           AuthEventType = "logout"
	EventAccessDenied     AuthEventType = "access_denied"
)

// Internal failure reasons. They are recorded for audit only and never
// returned to the client.
const (
	ReasonUnknownEmail    = "unknown_email"
	ReasonInvalidPassword = "invalid_password"
	ReasonAccountInactive = "account_inactive"
	ReasonStoreError      = "store_error"
	ReasonInvalidToken    = "invalid_token"
	ReasonRevoked         = "revoked"
	ReasonForbidden       = "forbidden"
)

// AuthEvent is a single entry of the authentication audit trail.
type AuthEvent struct {
	Type       AuthEventType `json:"type"`
	Subject    string        `json:"subject,omitempty"`
	Email      string        `json:"email,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Permission Permission    `json:"permission,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// PartitionKey groups events by actor so that one actor's events stay ordered.
func (e AuthEvent) PartitionKey() string {
	if e.Subject != "" {
		return e.Subject
	}
	return e.Email
}
