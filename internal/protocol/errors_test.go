package protocol

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrBadRequest,
		ErrUnknownAgent,
		ErrSessionEnded,
		ErrInvalidTarget,
		ErrRateLimit,
		ErrBusy,
		ErrNoObject,
		ErrBadPlan,
		ErrPlannerTransport,
		ErrPlannerDisabled,
		ErrSkillNotAllowed,
		ErrInternal,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestCodeOf(t *testing.T) {
	base := errors.New("dial tcp: refused")
	err := fmt.Errorf("plan agent Clerk: %w", NewError(ErrPlannerTransport, "post", base))
	if got := CodeOf(err); got != ErrPlannerTransport {
		t.Fatalf("CodeOf=%q", got)
	}
	if !errors.Is(err, base) {
		t.Fatalf("cause lost in chain")
	}
	if CodeOf(base) != "" || CodeOf(nil) != "" {
		t.Fatalf("plain errors should have no code")
	}
}
