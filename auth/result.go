package auth

import (
	"github.com/studykit/go-study-auth/auth/sessions"
)

// ResultStatus tags the outcome of an authentication operation.
type ResultStatus string

const (
	// StatusIssued: authenticated, session minted, full access.
	StatusIssued ResultStatus = "issued"
	// StatusBlocked: authenticated but gated on consent. The session is
	// still returned so the client can complete the consent workflow.
	StatusBlocked ResultStatus = "blocked"
	// StatusRejected: authentication failed.
	StatusRejected ResultStatus = "rejected"
)

// SessionResult is the tagged union returned by sign-in operations. Blocked
// is a first-class outcome, not an error: adapters must translate it into a
// distinct user-visible status.
type SessionResult struct {
	Status  ResultStatus
	Session *sessions.Session // set for Issued and Blocked
	Reason  RejectionReason   // set for Rejected
}

func Issued(session *sessions.Session) *SessionResult {
	return &SessionResult{Status: StatusIssued, Session: session}
}

func Blocked(session *sessions.Session) *SessionResult {
	return &SessionResult{Status: StatusBlocked, Session: session}
}

func Rejected(reason RejectionReason) *SessionResult {
	return &SessionResult{Status: StatusRejected, Reason: reason}
}

// UserMessage renders the caller-facing message for this result. All
// rejection reasons collapse into one generic message.
func (r *SessionResult) UserMessage() string {
	switch r.Status {
	case StatusIssued:
		return "Signed in."
	case StatusBlocked:
		return "Consent is required before this app can be used."
	default:
		return GenericSignInMessage
	}
}
