// Package session decides when a play session ends.
package session

import (
	"fmt"
	"log"

	"dreamofone.ai/internal/sim/events"
)

type Cause string

const (
	CauseTimeLimit Cause = "time_limit"
	CauseSuspicion Cause = "suspicion"
	CauseExposure  Cause = "exposure"
	CauseVerdict   Cause = "verdict"
)

type Config struct {
	DurationSeconds     float64
	SuspicionEndsAt     float64
	ExposureEndsSession bool
	EndOnVerdict        bool
}

type GlobalSource interface {
	Global() float64
}

type ExposureSource interface {
	Exposed() bool
}

type Outcome struct {
	Cause   Cause   `json:"cause"`
	Reason  string  `json:"reason"`
	At      float64 `json:"at"`
	Elapsed float64 `json:"elapsed"`
	Summary Summary `json:"summary"`
}

// Director evaluates the end conditions once per tick in a fixed order: time
// limit, suspicion (G then exposure), verdict.
type Director struct {
	cfg      Config
	log      *events.Log
	global   GlobalSource
	exposure ExposureSource
	logger   *log.Logger

	startedAt float64
	verdict   *events.Record
	ended     bool
	outcome   Outcome
}

func NewDirector(cfg Config, eventLog *events.Log, global GlobalSource, exposure ExposureSource) *Director {
	return &Director{cfg: cfg, log: eventLog, global: global, exposure: exposure}
}

func (d *Director) SetLogger(l *log.Logger) { d.logger = l }

// Start (re)opens the session at now.
func (d *Director) Start(now float64) {
	d.startedAt = now
	d.verdict = nil
	d.ended = false
	d.outcome = Outcome{}
}

// Observe remembers the first verdict so Check can honour it.
func (d *Director) Observe(rec events.Record) {
	if rec.Type != events.VerdictGiven || d.ended || d.verdict != nil {
		return
	}
	v := rec
	d.verdict = &v
}

func (d *Director) Ended() bool { return d.ended }

func (d *Director) Outcome() (Outcome, bool) { return d.outcome, d.ended }

func (d *Director) Elapsed(now float64) float64 { return now - d.startedAt }

// Check returns the outcome on the tick the session ends. Later calls return
// false.
func (d *Director) Check(now float64) (Outcome, bool) {
	if d.ended {
		return Outcome{}, false
	}
	elapsed := now - d.startedAt
	switch {
	case d.cfg.DurationSeconds > 0 && elapsed >= d.cfg.DurationSeconds:
		return d.end(CauseTimeLimit, "Time limit reached. You slipped away.", now), true
	case d.global != nil && d.cfg.SuspicionEndsAt > 0 && d.global.Global() >= d.cfg.SuspicionEndsAt:
		return d.end(CauseSuspicion, "G reached critical. You were flagged.", now), true
	case d.cfg.ExposureEndsSession && d.exposure != nil && d.exposure.Exposed():
		return d.end(CauseExposure, "Exposure peaked. The dream noticed you.", now), true
	case d.cfg.EndOnVerdict && d.verdict != nil:
		note := d.verdict.Note
		if note == "" {
			note = "Verdict delivered."
		}
		return d.end(CauseVerdict, "Verdict: "+note, now), true
	}
	return Outcome{}, false
}

func (d *Director) end(cause Cause, reason string, now float64) Outcome {
	d.ended = true
	d.outcome = Outcome{
		Cause:   cause,
		Reason:  reason,
		At:      now,
		Elapsed: now - d.startedAt,
		Summary: d.Summary(),
	}
	if d.logger != nil {
		d.logger.Printf("session: ended (%s) %s %s", cause, reason, d.outcome.Summary)
	}
	return d.outcome
}

type Summary struct {
	Events     int `json:"events"`
	Violations int `json:"violations"`
	Reports    int `json:"reports"`
	Evidence   int `json:"evidence"`
	Rumors     int `json:"rumors"`
	Verdicts   int `json:"verdicts"`
}

func (s Summary) String() string {
	return fmt.Sprintf("Summary: events %d, violations %d, reports %d, evidence %d, rumors %d, verdicts %d.",
		s.Events, s.Violations, s.Reports, s.Evidence, s.Rumors, s.Verdicts)
}

// Summary counts retained records per family.
func (d *Director) Summary() Summary {
	if d.log == nil {
		return Summary{}
	}
	return Summarize(d.log.RecentEvents(d.log.Len()))
}

func Summarize(recs []events.Record) Summary {
	s := Summary{Events: len(recs)}
	for _, r := range recs {
		switch r.Type {
		case events.ViolationDetected:
			s.Violations++
		case events.ReportFiled:
			s.Reports++
		case events.EvidenceCaptured, events.TicketIssued, events.CctvCaptured:
			s.Evidence++
		case events.VerdictGiven:
			s.Verdicts++
		case events.RumorShared, events.RumorConfirmed, events.RumorDebunked:
			s.Rumors++
		}
	}
	return s
}
