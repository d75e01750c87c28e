package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned when the session data has not been loaded yet
	ErrNotReady = errors.New("session data not loaded")
	// ErrNotFound is returned by stores when no data exists for a player
	ErrNotFound = errors.New("session data not found")
)

// Cancellation reasons
const (
	ReasonNotReady         = "not_ready"
	ReasonRule             = "rule"
	ReasonRewriteEmpty     = "rewrite_empty"
	ReasonMuted            = "muted"
	ReasonDuplicateSign    = "duplicate_sign"
	ReasonSpamKick         = "spam_kick"
	ReasonDisallowedName   = "disallowed_username"
	ReasonMailDraftDropped = "mail_draft_discarded"
)

// CancelledError vetoes an action. Silent cancellations make the action look
// as if it never happened, visible ones tell the author through MessageKey.
type CancelledError struct {
	Silent     bool
	Reason     string
	Rule       string
	MessageKey string
}

func (e *CancelledError) Error() string {
	kind := "visible"
	if e.Silent {
		kind = "silent"
	}
	if e.Rule != "" {
		return fmt.Sprintf("action cancelled (%s) by rule %s: %s", kind, e.Rule, e.Reason)
	}
	return fmt.Sprintf("action cancelled (%s): %s", kind, e.Reason)
}

// AsCancelled extracts a CancelledError from err
func AsCancelled(err error) (*CancelledError, bool) {
	var cerr *CancelledError
	if errors.As(err, &cerr) {
		return cerr, true
	}
	return nil, false
}
