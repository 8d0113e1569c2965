package relay

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyContent         = errors.New("relay: nothing to send")
	ErrSendForbidden        = errors.New("relay: missing permission to send messages")
	ErrAttachForbidden      = errors.New("relay: missing permission to attach files")
	ErrMentionForbidden     = errors.New("relay: mentions not allowed")
	ErrSendFailed           = errors.New("relay: send failed")
	ErrReferenceResolution  = errors.New("relay: could not resolve reply reference")
	ErrDeleteForbidden      = errors.New("relay: missing permission to delete messages")
	ErrSessionAlreadyActive = errors.New("relay: session already running")
	ErrSessionTimeout       = errors.New("relay: session timed out")
	ErrSessionStopped       = errors.New("relay: session stopped")
	ErrRelayClosed          = errors.New("relay: shutting down")
)

// Gate names the actor whose permissions rejected a mention request.
type Gate string

const (
	GateBot  Gate = "bot"
	GateUser Gate = "user"
)

// MentionError reports a denied mention request. Either Roles is non-empty
// (non-mentionable roles were requested) or Mass is set (@everyone/@here).
type MentionError struct {
	Gate  Gate
	Roles []string
	Mass  bool
}

func (e *MentionError) Error() string {
	if len(e.Roles) > 0 {
		return fmt.Sprintf("%s cannot mention roles: %s", e.Gate, strings.Join(e.Roles, ", "))
	}
	return fmt.Sprintf("%s cannot mention everyone", e.Gate)
}

func (e *MentionError) Is(target error) bool {
	return target == ErrMentionForbidden
}
