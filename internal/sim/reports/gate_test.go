package reports

import (
	"strings"
	"testing"

	"dreamofone.ai/internal/sim/events"
)

type fixedG float64

func (g fixedG) Global() float64 { return float64(g) }

func testConfig() Config {
	return Config{MinReporters: 2, WindowSeconds: 45, CooldownSeconds: 20, MaxAttachedEvents: 3, MinGlobalSuspicion: 0.3}
}

func TestGate_RequiresDistinctReporters(t *testing.T) {
	g := NewGate(testConfig(), nil, nil)
	g.File("A", "DL_G1", 60, "e1", 1)
	g.File("A", "DL_G1", 70, "e2", 2)
	if _, ok := g.TryConsume(3); ok {
		t.Fatalf("same reporter twice opened the gate")
	}
	g.File("B", "DL_G2", 55, "e3", 4)
	env, ok := g.TryConsume(5)
	if !ok {
		t.Fatalf("two distinct reporters did not open the gate")
	}
	if len(env.ReporterIDs) != 2 || env.ReporterIDs[0] != "A" || env.ReporterIDs[1] != "B" {
		t.Fatalf("reporters=%v", env.ReporterIDs)
	}
	if len(env.AttachedEventIDs) != 3 || env.Reason != ReasonRepeatedRuleBreak || env.ID == "" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if g.Pending() != 0 {
		t.Fatalf("window not cleared: %d", g.Pending())
	}
}

func TestGate_Cooldown(t *testing.T) {
	g := NewGate(testConfig(), nil, nil)
	g.File("A", "R", 60, "", 0)
	g.File("B", "R", 60, "", 0)
	if _, ok := g.TryConsume(1); !ok {
		t.Fatalf("first envelope refused")
	}
	g.File("C", "R", 60, "", 2)
	g.File("D", "R", 60, "", 2)
	if _, ok := g.TryConsume(10); ok {
		t.Fatalf("cooldown ignored")
	}
	if _, ok := g.TryConsume(21); !ok {
		t.Fatalf("gate stayed closed after cooldown")
	}
}

func TestGate_WindowExpiry(t *testing.T) {
	g := NewGate(testConfig(), nil, nil)
	g.File("A", "R", 60, "", 0)
	g.File("B", "R", 60, "", 50)
	if _, ok := g.TryConsume(50); ok {
		t.Fatalf("expired report counted")
	}
	if g.Pending() != 1 {
		t.Fatalf("pending=%d want 1", g.Pending())
	}
}

func TestGate_GlobalSuspicionGate(t *testing.T) {
	low := NewGate(testConfig(), nil, fixedG(0.1))
	low.File("A", "R", 60, "", 0)
	low.File("B", "R", 60, "", 0)
	if _, ok := low.TryConsume(0); ok {
		t.Fatalf("opened below min G")
	}

	high := NewGate(testConfig(), nil, fixedG(0.5))
	high.File("A", "R", 60, "", 0)
	high.File("B", "R", 60, "", 0)
	env, ok := high.TryConsume(0)
	if !ok || env.Reason != ReasonHighGlobalG {
		t.Fatalf("ok=%v reason=%s", ok, env.Reason)
	}
}

func TestGate_FileAppendsReportFiled(t *testing.T) {
	log := events.NewLog(8, &events.ManualClock{})
	g := NewGate(testConfig(), log, nil)
	g.File("A", "DL_G1", 61.4, "e1", 0)
	recs := log.RecentEvents(1)
	if len(recs) != 1 {
		t.Fatalf("records=%d", len(recs))
	}
	r := recs[0]
	if r.Type != events.ReportFiled || r.Note != "s=61" || r.Severity != 2 || r.ActorRole != ReporterRole || r.Category != events.CategoryReport {
		t.Fatalf("unexpected record: %+v", r)
	}
	if !strings.EqualFold(r.RuleID, "dl_g1") {
		t.Fatalf("rule=%s", r.RuleID)
	}
}
