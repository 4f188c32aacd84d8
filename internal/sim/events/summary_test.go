package events

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSummarize(t *testing.T) {
	cases := []struct {
		rec  Record
		want string
	}{
		{Record{Type: NpcUtterance, ActorID: "clerk", Note: "Next, please.", PlaceID: "Store"}, "clerk: Next, please."},
		{Record{Type: ViolationDetected, ActorID: "Witness", RuleID: "DL_G1_NO_DREAM_TALK", PlaceID: "Station", Note: "det=x"}, "Witness flagged DL_G1_NO_DREAM_TALK. [Station]"},
		{Record{Type: EnteredZone, ActorID: "PLAYER", ZoneID: "Queue"}, "PLAYER entered Queue. [Queue]"},
		{Record{Type: NoiseObserved, Note: "loud", PlaceID: "Cafe"}, "Noise complaint: loud [Cafe]"},
		{Record{Type: Type("Custom"), Note: "n"}, "Custom event (n)"},
	}
	for _, tc := range cases {
		if got := Summarize(tc.rec); got != tc.want {
			t.Fatalf("Summarize(%s)=%q want %q", tc.rec.Type, got, tc.want)
		}
	}
}

func TestSummarizeClamps(t *testing.T) {
	long := strings.Repeat("꿈", 200)
	got := Summarize(Record{Type: StatementGiven, Note: long})
	if n := utf8.RuneCountInString(got); n != SummaryMaxRunes {
		t.Fatalf("runes=%d want %d", n, SummaryMaxRunes)
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("missing ellipsis: %q", got)
	}
}
