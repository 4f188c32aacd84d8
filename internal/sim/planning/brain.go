// Package planning runs the observe, plan, validate, execute cycle for
// planner-driven agents. Planner output is untrusted: it is parsed against a
// schema, filtered by the agent's skill allow-list and executed by local
// executors only.
package planning

import (
	"math"
	"strings"

	"dreamofone.ai/internal/sim/memory"
)

type State string

const (
	StateWaiting    State = "Waiting"
	StateObserving  State = "Observing"
	StatePlanning   State = "Planning"
	StateValidating State = "Validating"
	StateExecuting  State = "Executing"
	StateFallback   State = "Fallback"
)

// Skill ids understood by the executors.
const (
	SkillSpeak        = "Speak"
	SkillMoveToAnchor = "MoveToAnchor"
	SkillFileReport   = "FileReport"
)

var DefaultSkills = []string{SkillSpeak, SkillMoveToAnchor, SkillFileReport}

const (
	DefaultAnchor       = "ParkBench"
	UnknownRuleID       = "R_UNKNOWN"
	DefaultFallbackLine = "Hmm... I should watch a little longer."
	MaxUtteranceRunes   = 80
	MaxMemoryWriteRunes = 160
)

// AgentSpec describes one planner-driven agent.
type AgentSpec struct {
	ID            string
	Role          string
	PlaceID       string
	AllowedSkills []string
	FallbackLines []string
}

type brain struct {
	spec    AgentSpec
	allowed []string
	mem     *memory.Buffer

	state     State
	epoch     uint64
	inflight  bool
	nextAt    float64
	lastSpoke float64
	fallbacks int
	seen      map[string]struct{}
}

func newBrain(spec AgentSpec, memCapacity int) *brain {
	allowed := spec.AllowedSkills
	if len(allowed) == 0 {
		allowed = DefaultSkills
	}
	return &brain{
		spec:      spec,
		allowed:   append([]string(nil), allowed...),
		mem:       memory.NewBuffer(memCapacity),
		state:     StateWaiting,
		lastSpoke: math.Inf(-1),
		seen:      map[string]struct{}{},
	}
}

func (b *brain) allows(skill string) bool {
	if skill == "" {
		return false
	}
	for _, s := range b.allowed {
		if strings.EqualFold(s, skill) {
			return true
		}
	}
	return false
}

func (b *brain) canSpeak(now, cooldown float64) bool {
	return now-b.lastSpoke >= cooldown
}

func (b *brain) fallbackLine() string {
	lines := b.spec.FallbackLines
	if len(lines) == 0 {
		return DefaultFallbackLine
	}
	line := lines[b.fallbacks%len(lines)]
	b.fallbacks++
	return line
}
