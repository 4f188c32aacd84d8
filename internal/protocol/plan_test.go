package protocol

import (
	"strings"
	"testing"
)

func TestExtractObject(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		code string
	}{
		{"", "", ErrNoObject},
		{"   ", "", ErrNoObject},
		{"I would rather not.", "", ErrNoObject},
		{"} backwards {", "", ErrNoObject},
		{"```json\n{\"speak\":\"hi\"}\n```", `{"speak":"hi"}`, ""},
		{`noise {"a":{"b":1}} trailing`, `{"a":{"b":1}}`, ""},
	}
	for _, tc := range cases {
		got, err := ExtractObject(tc.raw)
		if CodeOf(err) != tc.code || got != tc.want {
			t.Fatalf("ExtractObject(%q)=%q,%v want %q,%s", tc.raw, got, err, tc.want, tc.code)
		}
	}
}

func TestParsePlan(t *testing.T) {
	p, err := ParsePlan(`Sure! {"intent":"watch","actions":[{"type":"Speak","text":"Next, please."}],"memoryWrite":"quiet day"}`)
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	if p.Intent != "watch" || len(p.Actions) != 1 || p.Actions[0].Text != "Next, please." || p.MemoryWrite != "quiet day" {
		t.Fatalf("unexpected plan: %+v", p)
	}

	garbage := []string{
		"no braces at all",
		"{not json}",
		`{"actions":"Speak"}`,
		`{"speak":42}`,
	}
	for _, raw := range garbage {
		if _, err := ParsePlan(raw); err == nil {
			t.Fatalf("accepted garbage %q", raw)
		}
	}
	if _, err := ParsePlan("{oops}"); CodeOf(err) != ErrBadPlan {
		t.Fatalf("code=%q want %s", CodeOf(err), ErrBadPlan)
	}
}

func TestParsePlan_NoSizeLimits(t *testing.T) {
	acts := strings.TrimSuffix(strings.Repeat(`{"type":"Fly"},`, 20), ",")
	long := strings.Repeat("y", 1000)
	p, err := ParsePlan(`{"speak":"` + long + `","memoryWrite":"` + long + `","actions":[` + acts + `]}`)
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	if len(p.Actions) != 20 || len(p.MemoryWrite) != 1000 {
		t.Fatalf("plan truncated at parse time: actions=%d memory=%d", len(p.Actions), len(p.MemoryWrite))
	}
}
