// Package violation turns evaluator hits into log records and exposure.
package violation

import (
	"fmt"
	"log"

	"github.com/google/uuid"

	"dreamofone.ai/internal/sim/catalogs"
	"dreamofone.ai/internal/sim/events"
	"dreamofone.ai/internal/sim/laws"
)

const (
	DefaultWitnessID   = "Witness"
	DefaultWitnessRole = "Citizen"
	DefaultTargetID    = "PLAYER"
)

// LawSource yields law definitions in declaration order.
type LawSource interface {
	All() []catalogs.LawDef
}

type ExposureSink interface {
	AddExposure(delta int, actorID, placeID, ruleID, detectorID string)
}

// Speech is one observed speech act and its context.
type Speech struct {
	Act         laws.SpeechAct
	Text        string
	PlaceID     string
	ZoneID      string
	WitnessID   string
	WitnessRole string
	TargetID    string
	Position    events.Vec3
}

type Applier struct {
	defs     LawSource
	log      *events.Log
	exposure ExposureSink
	logger   *log.Logger
}

// NewApplier wires the evaluator to the log. A nil source or log disables it.
func NewApplier(defs LawSource, eventLog *events.Log, exposure ExposureSink) *Applier {
	return &Applier{defs: defs, log: eventLog, exposure: exposure}
}

func (a *Applier) SetLogger(l *log.Logger) { a.logger = l }

// Enabled reports whether laws and a log are bound.
func (a *Applier) Enabled() bool { return a != nil && a.defs != nil && a.log != nil }

// Apply evaluates in against every law and records each hit.
func (a *Applier) Apply(in Speech) []laws.Hit {
	if !a.Enabled() {
		return nil
	}
	hits := laws.Evaluate(a.defs.All(), in.Act, in.Text, in.PlaceID)
	a.ApplyHits(in, hits)
	return hits
}

// ApplyHits records a statement then a violation for every hit, then feeds
// exposure. The violation note carries the statement id.
func (a *Applier) ApplyHits(in Speech, hits []laws.Hit) {
	if !a.Enabled() || len(hits) == 0 {
		return
	}
	witness := in.WitnessID
	if witness == "" {
		witness = DefaultWitnessID
	}
	role := in.WitnessRole
	if role == "" {
		role = DefaultWitnessRole
	}
	target := in.TargetID
	if target == "" {
		target = DefaultTargetID
	}

	for _, h := range hits {
		line := h.Law.CanonicalLine
		if line == "" {
			line = fmt.Sprintf("Witness statement for %s.", h.Law.ID)
		}
		stmt := a.log.Append(events.Record{
			ID:        uuid.NewString(),
			Type:      events.StatementGiven,
			ActorID:   witness,
			ActorRole: role,
			TargetID:  target,
			RuleID:    h.Law.ID,
			SourceID:  h.DetectorID,
			TopicID:   h.Law.ID,
			Note:      line,
			Severity:  clamp(h.Severity, 1, 3),
			Trust:     1,
			PlaceID:   in.PlaceID,
			ZoneID:    in.ZoneID,
			Position:  in.Position,
		})

		note := fmt.Sprintf("det=%s; stmt=%s", h.DetectorID, stmt.ID)
		if h.Multiplied {
			note += fmt.Sprintf("; x%.1f", laws.StationMultiplier)
		}
		a.log.Append(events.Record{
			Type:      events.ViolationDetected,
			ActorID:   witness,
			ActorRole: role,
			TargetID:  target,
			RuleID:    h.Law.ID,
			SourceID:  h.DetectorID,
			TopicID:   h.Law.ID,
			Note:      note,
			Severity:  clamp(h.Severity, 0, 3),
			Trust:     1,
			Delta:     h.SuspicionDelta,
			PlaceID:   in.PlaceID,
			ZoneID:    in.ZoneID,
			Position:  in.Position,
		})

		if a.exposure != nil && h.ExposureDelta != 0 {
			a.exposure.AddExposure(h.ExposureDelta, witness, in.PlaceID, h.Law.ID, h.DetectorID)
		}
		if a.logger != nil {
			a.logger.Printf("violation: %s det=%s witness=%s place=%s dS=%d dE=%d", h.Law.ID, h.DetectorID, witness, in.PlaceID, h.SuspicionDelta, h.ExposureDelta)
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
