package planning

import (
	"strings"

	"dreamofone.ai/internal/protocol"
	"dreamofone.ai/internal/sim/events"
)

// execute applies a validated plan. The memory write always lands first;
// oversized text is clamped here rather than rejected.
func (l *Loop) execute(b *brain, plan protocol.Plan, now float64) {
	if mw := strings.TrimSpace(plan.MemoryWrite); mw != "" {
		b.mem.Add("MEM: " + events.ClampLine(mw, MaxMemoryWriteRunes))
	}

	if strings.TrimSpace(plan.Speak) != "" {
		if b.allows(SkillSpeak) {
			if l.speak(b, plan.Speak, now) {
				l.stats.Executed++
			}
		} else {
			l.stats.Rejected++
			l.warnf("planning: %s skill not allowed: %s", b.spec.ID, SkillSpeak)
		}
		return
	}

	n := len(plan.Actions)
	if n > l.cfg.MaxActions {
		n = l.cfg.MaxActions
	}
	for _, a := range plan.Actions[:n] {
		if strings.TrimSpace(a.Type) == "" {
			continue
		}
		if !b.allows(a.Type) {
			l.stats.Rejected++
			l.warnf("planning: %s skill not allowed: %s", b.spec.ID, a.Type)
			continue
		}
		if l.try(b, a, now) {
			l.stats.Executed++
			return
		}
	}
}

func (l *Loop) try(b *brain, a protocol.Action, now float64) bool {
	switch {
	case strings.EqualFold(a.Type, SkillSpeak):
		return l.speak(b, a.Text, now)
	case strings.EqualFold(a.Type, SkillMoveToAnchor):
		return l.moveToAnchor(b, a.AnchorName)
	case strings.EqualFold(a.Type, SkillFileReport):
		return l.fileReport(b, a.RuleID, a.TargetID, now)
	default:
		return false
	}
}

func (l *Loop) speak(b *brain, text string, now float64) bool {
	text = strings.TrimSpace(text)
	if text == "" || l.log == nil || !b.canSpeak(now, l.cfg.SpeakCooldown) {
		return false
	}
	b.lastSpoke = now
	l.log.Append(events.Record{
		Type:      events.NpcUtterance,
		ActorID:   b.spec.ID,
		ActorRole: b.spec.Role,
		Note:      events.ClampLine(text, MaxUtteranceRunes),
		PlaceID:   b.spec.PlaceID,
	})
	return true
}

func (l *Loop) moveToAnchor(b *brain, anchor string) bool {
	if l.nav == nil {
		return false
	}
	if strings.TrimSpace(anchor) == "" {
		anchor = DefaultAnchor
	}
	return l.nav.MoveToward(b.spec.ID, anchor)
}

func (l *Loop) fileReport(b *brain, ruleID, eventID string, now float64) bool {
	if l.reports == nil {
		return false
	}
	if strings.TrimSpace(ruleID) == "" {
		ruleID = UnknownRuleID
	}
	l.reports.File(b.spec.ID, ruleID, 0, eventID, now)
	return true
}

// fallback speaks a low-salience line when the cooldown and the configured
// chance allow it.
func (l *Loop) fallback(b *brain, now float64, why string) {
	b.state = StateFallback
	l.stats.Fallbacks++
	if l.cfg.FallbackChance > 0 && l.rng.Float64() < l.cfg.FallbackChance && b.canSpeak(now, l.cfg.SpeakCooldown) {
		l.speak(b, b.fallbackLine(), now)
	}
	if l.logger != nil && why != "planner disabled" {
		l.logger.Printf("planning: %s fallback (%s)", b.spec.ID, why)
	}
	b.state = StateWaiting
}
