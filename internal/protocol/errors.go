package protocol

import (
	"errors"
	"fmt"
)

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Session/actor layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrUnknownAgent  = "E_UNKNOWN_AGENT"
	ErrSessionEnded  = "E_SESSION_ENDED"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrRateLimit     = "E_RATE_LIMIT"
	ErrBusy          = "E_BUSY"

	// Planner layer.
	ErrNoObject         = "E_NO_OBJECT"
	ErrBadPlan          = "E_BAD_PLAN"
	ErrPlannerTransport = "E_PLANNER_TRANSPORT"
	ErrPlannerDisabled  = "E_PLANNER_DISABLED"
	ErrSkillNotAllowed  = "E_SKILL_NOT_ALLOWED"
	ErrInternal         = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrBadRequest:       {},
	ErrUnknownAgent:     {},
	ErrSessionEnded:     {},
	ErrInvalidTarget:    {},
	ErrRateLimit:        {},
	ErrBusy:             {},
	ErrNoObject:         {},
	ErrBadPlan:          {},
	ErrPlannerTransport: {},
	ErrPlannerDisabled:  {},
	ErrSkillNotAllowed:  {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// CodeError carries one of the codes above through error chains.
type CodeError struct {
	Code string
	Msg  string
	Err  error
}

func (e *CodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return e.Code + ": " + e.Msg
}

func (e *CodeError) Unwrap() error { return e.Err }

func NewError(code, msg string, err error) error {
	return &CodeError{Code: code, Msg: msg, Err: err}
}

// CodeOf returns the first code found in err's chain, or "".
func CodeOf(err error) string {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
