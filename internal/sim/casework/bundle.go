// Package casework runs police interrogations for envelopes produced by the
// report gate.
package casework

import (
	"fmt"

	"dreamofone.ai/internal/sim/events"
	"dreamofone.ai/internal/sim/reports"
)

type Verdict string

const (
	VerdictExpelled            Verdict = "Expelled"
	VerdictHeightenedSuspicion Verdict = "HeightenedSuspicion"
	VerdictPending             Verdict = "Pending"
	VerdictCleared             Verdict = "Cleared"
)

// Severity maps a verdict onto the 0..3 record severity scale.
func (v Verdict) Severity() int {
	switch v {
	case VerdictExpelled:
		return 3
	case VerdictHeightenedSuspicion:
		return 2
	case VerdictPending:
		return 1
	default:
		return 0
	}
}

// Bundle groups the records an interrogation looks at.
type Bundle struct {
	CaseID     string          `json:"case_id"`
	Reports    []events.Record `json:"reports"`
	Violations []events.Record `json:"violations"`
	Evidence   []events.Record `json:"evidence"`
	Procedures []events.Record `json:"procedures"`
	Statements []events.Record `json:"statements"`
	Gossip     []events.Record `json:"gossip"`
	Attached   []events.Record `json:"attached"`
}

// Score is reports*2 + violations + evidence*3, plus one if any procedural
// record exists.
func (b Bundle) Score() int {
	s := len(b.Reports)*2 + len(b.Violations) + len(b.Evidence)*3
	if len(b.Procedures) > 0 {
		s++
	}
	return s
}

func (b Bundle) Reason() string {
	return fmt.Sprintf("reports %d/evidence %d/violations %d", len(b.Reports), len(b.Evidence), len(b.Violations))
}

// BuildBundle sorts recent records into families. Records named by the
// envelope are also kept in Attached.
func BuildBundle(env reports.Envelope, recent []events.Record) Bundle {
	b := Bundle{CaseID: env.ID}
	attached := map[string]bool{}
	for _, id := range env.AttachedEventIDs {
		attached[id] = true
	}
	for _, r := range recent {
		if attached[r.ID] {
			b.Attached = append(b.Attached, r)
		}
		switch r.Type {
		case events.ReportFiled:
			b.Reports = append(b.Reports, r)
		case events.ViolationDetected:
			b.Violations = append(b.Violations, r)
		case events.CctvCaptured, events.EvidenceCaptured, events.TicketIssued:
			b.Evidence = append(b.Evidence, r)
		case events.TaskStarted, events.TaskCompleted, events.ApprovalGranted, events.RcInserted:
			b.Procedures = append(b.Procedures, r)
		case events.StatementGiven, events.ExplanationGiven, events.RebuttalGiven:
			b.Statements = append(b.Statements, r)
		case events.RumorShared, events.RumorConfirmed, events.RumorDebunked:
			b.Gossip = append(b.Gossip, r)
		}
	}
	return b
}

func DetermineVerdict(b Bundle) Verdict {
	switch s := b.Score(); {
	case s >= 6:
		return VerdictExpelled
	case s >= 3:
		return VerdictHeightenedSuspicion
	case s >= 2:
		return VerdictPending
	default:
		return VerdictCleared
	}
}
