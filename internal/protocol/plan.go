package protocol

import (
	"encoding/json"
	"strings"
)

// PlanRequest is what the planning loop sends to a planner transport.
type PlanRequest struct {
	System      string  `json:"system"`
	User        string  `json:"user"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// Plan is the untrusted proposal returned by a planner.
type Plan struct {
	Intent      string   `json:"intent,omitempty"`
	Speak       string   `json:"speak,omitempty"`
	Actions     []Action `json:"actions,omitempty"`
	MemoryWrite string   `json:"memoryWrite,omitempty"`
}

type Action struct {
	Type       string `json:"type"`
	TargetID   string `json:"targetId,omitempty"`
	PlaceID    string `json:"placeId,omitempty"`
	ZoneID     string `json:"zoneId,omitempty"`
	RuleID     string `json:"ruleId,omitempty"`
	Text       string `json:"text,omitempty"`
	AnchorName string `json:"anchorName,omitempty"`
}

// ExtractObject returns the substring from the first '{' to the last '}'.
func ExtractObject(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", NewError(ErrNoObject, "empty response", nil)
	}
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return "", NewError(ErrNoObject, "no json object braces found", nil)
	}
	return strings.TrimSpace(raw[start : end+1]), nil
}

// ParsePlan extracts, schema-checks and decodes a plan.
func ParsePlan(raw string) (Plan, error) {
	obj, err := ExtractObject(raw)
	if err != nil {
		return Plan{}, err
	}
	var doc any
	if err := json.Unmarshal([]byte(obj), &doc); err != nil {
		return Plan{}, NewError(ErrBadPlan, "decode", err)
	}
	if err := Validate(SchemaPlan, doc); err != nil {
		return Plan{}, NewError(ErrBadPlan, "schema", err)
	}
	var p Plan
	if err := json.Unmarshal([]byte(obj), &p); err != nil {
		return Plan{}, NewError(ErrBadPlan, "decode", err)
	}
	return p, nil
}
