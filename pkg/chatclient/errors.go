package chatclient

import (
	"fmt"
	"strings"
)

// The four turn-level failure classes. All of them are terminal for the
// current turn and are rendered as an assistant message instead of
// propagating; none of them prevent the next Send.

// AuthorizationError means no live token was present. No network call was
// made.
type AuthorizationError struct{}

func (AuthorizationError) Error() string { return "not authorized" }

// TransportError covers network failures and responses that could not be
// read or decoded.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// BackendError is a non-2xx response. Body is kept for diagnostics only and
// is never parsed as a structured error.
type BackendError struct {
	Status int
	Body   string
}

func (e *BackendError) Error() string {
	if b := strings.TrimSpace(e.Body); b != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, b)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// MalformedStateError marks persisted conversation state that was not a
// well-formed message sequence. It is logged and discarded, never shown.
type MalformedStateError struct {
	Err error
}

func (e *MalformedStateError) Error() string {
	return fmt.Sprintf("malformed persisted state: %v", e.Err)
}
func (e *MalformedStateError) Unwrap() error { return e.Err }

const notAuthorizedText = "Not authorized: your session token is missing or expired."

// messageTextForError is the single place turn failures become user-visible
// text.
func messageTextForError(err error) string {
	if _, ok := err.(AuthorizationError); ok {
		return notAuthorizedText
	}
	return "Error: " + err.Error()
}
