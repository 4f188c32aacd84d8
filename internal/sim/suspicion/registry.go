// Package suspicion keeps per-agent suspicion, the global aggregate G and the
// exposure meter.
package suspicion

import (
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"dreamofone.ai/internal/sim/events"
)

// ReportFiler accepts a report from an agent whose suspicion crossed the threshold.
type ReportFiler interface {
	File(reporterID, ruleID string, snapshot float64, eventID string, now float64)
}

type Config struct {
	Max             float64
	DecayPerSecond  float64
	ReportThreshold float64
	ReportCooldown  float64
}

type agentState struct {
	id    string
	role  string
	place string

	value        float64
	lastEventID  string
	lastRuleID   string
	lastReportAt float64
	reported     bool
}

// AgentSuspicion is a read-only view of one agent.
type AgentSuspicion struct {
	AgentID    string  `json:"agent_id"`
	Role       string  `json:"role"`
	PlaceID    string  `json:"place_id,omitempty"`
	Value      float64 `json:"value"`
	Normalized float64 `json:"normalized"`
	Reported   bool    `json:"reported"`
}

// Registry owns suspicion state keyed by agent id. It is driven from the
// world loop goroutine only.
type Registry struct {
	cfg     Config
	log     *events.Log
	reports ReportFiler
	logger  *log.Logger

	agents map[string]*agentState
	order  []string
}

func NewRegistry(cfg Config, eventLog *events.Log) *Registry {
	if cfg.Max <= 0 {
		cfg.Max = 100
	}
	return &Registry{
		cfg:    cfg,
		log:    eventLog,
		agents: map[string]*agentState{},
	}
}

func (r *Registry) SetReportFiler(f ReportFiler) { r.reports = f }
func (r *Registry) SetLogger(l *log.Logger)      { r.logger = l }

// Register creates state for a new agent. Existing agents are left untouched.
func (r *Registry) Register(agentID, role, placeID string) bool {
	if agentID == "" {
		return false
	}
	if _, ok := r.agents[agentID]; ok {
		return false
	}
	r.agents[agentID] = &agentState{id: agentID, role: role, place: placeID, lastReportAt: math.Inf(-1)}
	r.order = append(r.order, agentID)
	return true
}

func (r *Registry) Remove(agentID string) bool {
	if _, ok := r.agents[agentID]; !ok {
		return false
	}
	delete(r.agents, agentID)
	for i, id := range r.order {
		if id == agentID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *Registry) Has(agentID string) bool {
	_, ok := r.agents[agentID]
	return ok
}

func (r *Registry) Move(agentID, placeID string) {
	if a, ok := r.agents[agentID]; ok {
		a.place = placeID
	}
}

// Witnesses lists agents in placeID (case-insensitive), in registration
// order. An empty place matches everyone.
func (r *Registry) Witnesses(placeID string) []string {
	var out []string
	for _, id := range r.order {
		a := r.agents[id]
		if placeID == "" || strings.EqualFold(a.place, placeID) {
			out = append(out, id)
		}
	}
	return out
}

// Add raises an agent's suspicion. A repeat of the last event id is ignored.
func (r *Registry) Add(agentID string, delta float64, ruleID, eventID string) bool {
	a, ok := r.agents[agentID]
	if !ok {
		return false
	}
	if eventID != "" && eventID == a.lastEventID {
		return false
	}
	a.lastEventID = eventID
	if ruleID != "" {
		a.lastRuleID = ruleID
	}
	a.value = clampF(a.value+delta, 0, r.cfg.Max)

	if r.log != nil {
		sev := 0
		if a.value >= r.cfg.ReportThreshold {
			sev = 2
		}
		r.log.Append(events.Record{
			Type:      events.SuspicionUpdated,
			ActorID:   a.id,
			ActorRole: a.role,
			RuleID:    ruleID,
			TopicID:   eventID,
			Note:      fmt.Sprintf("%.0f", a.value),
			Severity:  sev,
			Delta:     int(math.Round(delta)),
			PlaceID:   a.place,
		})
	}
	return true
}

// Tick decays every agent by dt seconds, then files reports for agents at or
// above the threshold whose cooldown has elapsed.
func (r *Registry) Tick(now, dt float64) {
	if dt > 0 && r.cfg.DecayPerSecond > 0 {
		for _, id := range r.order {
			a := r.agents[id]
			if a.value > 0 {
				a.value = math.Max(0, a.value-r.cfg.DecayPerSecond*dt)
			}
		}
	}
	if r.reports == nil {
		return
	}
	for _, id := range r.order {
		a := r.agents[id]
		if a.reported || a.value < r.cfg.ReportThreshold || now-a.lastReportAt < r.cfg.ReportCooldown {
			continue
		}
		a.reported = true
		a.lastReportAt = now
		if r.logger != nil {
			r.logger.Printf("suspicion: %s reports %s at %.1f", a.id, a.lastRuleID, a.value)
		}
		r.reports.File(a.id, a.lastRuleID, a.value, a.lastEventID, now)
	}
}

// Global is G: the mean normalised suspicion over registered agents.
func (r *Registry) Global() float64 {
	if len(r.order) == 0 {
		return 0
	}
	sum := 0.0
	for _, id := range r.order {
		sum += r.normalized(r.agents[id])
	}
	return clampF(sum/float64(len(r.order)), 0, 1)
}

func (r *Registry) Value(agentID string) (float64, bool) {
	a, ok := r.agents[agentID]
	if !ok {
		return 0, false
	}
	return a.value, true
}

// Reset clears agents after an interrogation so they may report again.
func (r *Registry) Reset(agentIDs ...string) {
	for _, id := range agentIDs {
		if a, ok := r.agents[id]; ok {
			a.value = 0
			a.reported = false
			a.lastReportAt = math.Inf(-1)
		}
	}
}

func (r *Registry) ResetAll() { r.Reset(r.order...) }

// Snapshot returns every agent sorted by id.
func (r *Registry) Snapshot() []AgentSuspicion {
	out := make([]AgentSuspicion, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, AgentSuspicion{
			AgentID:    a.id,
			Role:       a.role,
			PlaceID:    a.place,
			Value:      a.value,
			Normalized: r.normalized(a),
			Reported:   a.reported,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}

func (r *Registry) normalized(a *agentState) float64 {
	return clampF(a.value/math.Max(1, r.cfg.Max), 0, 1)
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
