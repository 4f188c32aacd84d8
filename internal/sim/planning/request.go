package planning

import (
	"fmt"
	"strings"

	"dreamofone.ai/internal/protocol"
	"dreamofone.ai/internal/sim/events"
)

const systemPrompt = `You are an untrusted planner for an NPC in a social simulation.
Return JSON only. No markdown. No extra commentary.
Propose 0-2 safe actions. The engine validates and executes them deterministically.
Use only the allowed skills listed by the user. Anything else is discarded.
Do NOT invent evidence. Do NOT change the world directly.
Schema:
{"intent":"...","speak":"optional","actions":[{"type":"SkillId","targetId":"","placeId":"","zoneId":"","ruleId":"","text":"","anchorName":""}],"memoryWrite":"optional"}`

// observe collects unseen summaries of recent records, skipping the agent's
// own utterances.
func (l *Loop) observe(b *brain) []string {
	n := l.cfg.ObserveEvents
	if n < 0 {
		n = 0
	}
	if n > 32 {
		n = 32
	}
	if n == 0 || l.log == nil {
		return nil
	}
	recent := l.log.RecentEvents(n)
	var out []string
	for _, r := range recent {
		if _, ok := b.seen[r.ID]; ok && r.ID != "" {
			continue
		}
		if r.Type == events.NpcUtterance && r.ActorID == b.spec.ID {
			continue
		}
		if r.ID != "" {
			b.seen[r.ID] = struct{}{}
		}
		out = append(out, events.Summarize(r))
	}
	if len(b.seen) > 8*n {
		keep := make(map[string]struct{}, len(recent))
		for _, r := range recent {
			if _, ok := b.seen[r.ID]; ok {
				keep[r.ID] = struct{}{}
			}
		}
		b.seen = keep
	}
	return out
}

// BuildRequest renders the planner prompt for one agent.
func BuildRequest(spec AgentSpec, allowed, observations []string, memorySummary string, maxTokens int, temperature float64) protocol.PlanRequest {
	var u strings.Builder
	fmt.Fprintf(&u, "NPC: %s\n", spec.ID)
	fmt.Fprintf(&u, "Role: %s\n", spec.Role)
	if spec.PlaceID != "" {
		fmt.Fprintf(&u, "Place: %s\n", spec.PlaceID)
	}
	fmt.Fprintf(&u, "Allowed skills: %s\n", strings.Join(allowed, ", "))
	u.WriteString("Recent observations:\n")
	if len(observations) == 0 {
		u.WriteString("- None\n")
	}
	for _, o := range observations {
		fmt.Fprintf(&u, "- %s\n", o)
	}
	u.WriteString("Your memory:\n")
	u.WriteString(memorySummary)
	u.WriteString("\n")
	return protocol.PlanRequest{
		System:      systemPrompt,
		User:        u.String(),
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}
