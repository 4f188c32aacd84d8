package suspicion

import (
	"strings"

	"dreamofone.ai/internal/sim/events"
)

type ResponderConfig struct {
	DefaultDelta  float64
	RuleDeltas    map[string]float64
	SamePlaceOnly bool
}

// Responder raises witness suspicion for every ViolationDetected record.
type Responder struct {
	cfg ResponderConfig
	reg *Registry
}

func NewResponder(cfg ResponderConfig, reg *Registry) *Responder {
	return &Responder{cfg: cfg, reg: reg}
}

// Observe is an events.Observer.
func (r *Responder) Observe(rec events.Record) {
	if rec.Type != events.ViolationDetected || r.reg == nil {
		return
	}
	delta := r.delta(rec)
	if delta <= 0 {
		return
	}
	place := ""
	if r.cfg.SamePlaceOnly {
		place = rec.Place()
	}
	witnesses := r.reg.Witnesses(place)
	if rec.ActorID != "" && r.reg.Has(rec.ActorID) && !contains(witnesses, rec.ActorID) {
		witnesses = append([]string{rec.ActorID}, witnesses...)
	}
	for _, id := range witnesses {
		if id == rec.TargetID {
			continue
		}
		r.reg.Add(id, delta, rec.RuleID, rec.ID)
	}
}

func (r *Responder) delta(rec events.Record) float64 {
	if rec.Delta > 0 {
		return float64(rec.Delta)
	}
	for rule, d := range r.cfg.RuleDeltas {
		if strings.EqualFold(rule, rec.RuleID) {
			return d
		}
	}
	return r.cfg.DefaultDelta
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
