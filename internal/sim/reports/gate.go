// Package reports queues citizen reports and decides when they justify an
// interrogation.
package reports

import (
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"

	"dreamofone.ai/internal/sim/events"
)

type Reason string

const (
	ReasonRepeatedRuleBreak Reason = "RepeatedRuleBreak"
	ReasonHighGlobalG       Reason = "HighGlobalG"
	ReasonScripted          Reason = "Scripted"
)

const ReporterRole = "Citizen"

// Envelope is the bundle handed to casework when the gate opens.
type Envelope struct {
	ID               string   `json:"id"`
	ReporterIDs      []string `json:"reporter_ids"`
	AttachedEventIDs []string `json:"attached_event_ids"`
	RuleIDs          []string `json:"rule_ids,omitempty"`
	Reason           Reason   `json:"reason"`
	ConsumedAt       float64  `json:"consumed_at"`
}

type Config struct {
	MinReporters       int
	WindowSeconds      float64
	CooldownSeconds    float64
	MaxAttachedEvents  int
	MinGlobalSuspicion float64
}

// GlobalSource supplies G. Without one the G requirement is skipped.
type GlobalSource interface {
	Global() float64
}

type entry struct {
	at       float64
	reporter string
	rule     string
	eventID  string
}

type Gate struct {
	cfg    Config
	log    *events.Log
	global GlobalSource
	logger *log.Logger

	entries  []entry
	lastOpen float64
	opened   int
}

func NewGate(cfg Config, eventLog *events.Log, global GlobalSource) *Gate {
	if cfg.MinReporters <= 0 {
		cfg.MinReporters = 1
	}
	return &Gate{cfg: cfg, log: eventLog, global: global, lastOpen: math.Inf(-1)}
}

func (g *Gate) SetLogger(l *log.Logger) { g.logger = l }

// File records a report and appends ReportFiled.
func (g *Gate) File(reporterID, ruleID string, snapshot float64, eventID string, now float64) {
	g.entries = append(g.entries, entry{at: now, reporter: reporterID, rule: ruleID, eventID: eventID})
	g.prune(now)
	if g.log == nil {
		return
	}
	g.log.Append(events.Record{
		Type:      events.ReportFiled,
		ActorID:   reporterID,
		ActorRole: ReporterRole,
		RuleID:    ruleID,
		TopicID:   eventID,
		Note:      fmt.Sprintf("s=%.0f", snapshot),
		Severity:  2,
	})
}

// Pending is the number of reports inside the window.
func (g *Gate) Pending() int { return len(g.entries) }

// Ready reports whether TryConsume would succeed at now.
func (g *Gate) Ready(now float64) bool {
	if now-g.lastOpen < g.cfg.CooldownSeconds {
		return false
	}
	g.prune(now)
	if g.distinctReporters() < g.cfg.MinReporters {
		return false
	}
	if g.global != nil && g.global.Global() < g.cfg.MinGlobalSuspicion {
		return false
	}
	return true
}

// TryConsume opens the gate when enough distinct reporters filed inside the
// window. The window is emptied on success.
func (g *Gate) TryConsume(now float64) (Envelope, bool) {
	if !g.Ready(now) {
		return Envelope{}, false
	}
	env := Envelope{ID: uuid.NewString(), Reason: ReasonRepeatedRuleBreak, ConsumedAt: now}
	if g.global != nil && g.global.Global() >= g.cfg.MinGlobalSuspicion {
		env.Reason = ReasonHighGlobalG
	}
	seenReporter := map[string]bool{}
	seenRule := map[string]bool{}
	for _, e := range g.entries {
		if e.reporter != "" && !seenReporter[e.reporter] {
			seenReporter[e.reporter] = true
			env.ReporterIDs = append(env.ReporterIDs, e.reporter)
		}
		if e.rule != "" && !seenRule[e.rule] {
			seenRule[e.rule] = true
			env.RuleIDs = append(env.RuleIDs, e.rule)
		}
		if e.eventID != "" && (g.cfg.MaxAttachedEvents <= 0 || len(env.AttachedEventIDs) < g.cfg.MaxAttachedEvents) {
			env.AttachedEventIDs = append(env.AttachedEventIDs, e.eventID)
		}
	}
	g.entries = g.entries[:0]
	g.lastOpen = now
	g.opened++
	if g.logger != nil {
		g.logger.Printf("reports: envelope %s reason=%s reporters=%v", env.ID, env.Reason, env.ReporterIDs)
	}
	return env, true
}

// Opened counts envelopes produced so far.
func (g *Gate) Opened() int { return g.opened }

func (g *Gate) Reset() {
	g.entries = nil
	g.lastOpen = math.Inf(-1)
}

func (g *Gate) prune(now float64) {
	kept := g.entries[:0]
	for _, e := range g.entries {
		if now-e.at <= g.cfg.WindowSeconds {
			kept = append(kept, e)
		}
	}
	g.entries = kept
}

func (g *Gate) distinctReporters() int {
	seen := map[string]bool{}
	for _, e := range g.entries {
		if e.reporter != "" {
			seen[e.reporter] = true
		}
	}
	return len(seen)
}
