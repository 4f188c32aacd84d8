package suspicion

import (
	"math"
	"testing"

	"dreamofone.ai/internal/sim/events"
)

type filed struct {
	reporter, rule, eventID string
	snapshot                float64
}

type fakeFiler struct{ calls []filed }

func (f *fakeFiler) File(reporterID, ruleID string, snapshot float64, eventID string, now float64) {
	f.calls = append(f.calls, filed{reporterID, ruleID, eventID, snapshot})
}

func testConfig() Config {
	return Config{Max: 100, DecayPerSecond: 0.5, ReportThreshold: 50, ReportCooldown: 20}
}

func TestRegistry_AddDedupesAndClamps(t *testing.T) {
	log := events.NewLog(32, &events.ManualClock{})
	r := NewRegistry(testConfig(), log)
	r.Register("Clerk", "Clerk", "Store")

	if !r.Add("Clerk", 30, "DL_G1", "ev1") {
		t.Fatalf("first add rejected")
	}
	if r.Add("Clerk", 30, "DL_G1", "ev1") {
		t.Fatalf("repeat of same event applied")
	}
	if v, _ := r.Value("Clerk"); v != 30 {
		t.Fatalf("value=%v want 30", v)
	}
	r.Add("Clerk", 500, "DL_G1", "ev2")
	if v, _ := r.Value("Clerk"); v != 100 {
		t.Fatalf("value=%v want clamp at 100", v)
	}
	r.Add("Clerk", -500, "", "ev3")
	if v, _ := r.Value("Clerk"); v != 0 {
		t.Fatalf("value=%v want clamp at 0", v)
	}
	if r.Add("Ghost", 10, "", "ev4") {
		t.Fatalf("unknown agent accepted")
	}

	recs := log.RecentEvents(10)
	if len(recs) != 3 {
		t.Fatalf("records=%d want 3", len(recs))
	}
	if recs[0].Type != events.SuspicionUpdated || recs[0].Note != "30" || recs[0].Severity != 0 {
		t.Fatalf("unexpected first update: %+v", recs[0])
	}
	if recs[1].Note != "100" || recs[1].Severity != 2 {
		t.Fatalf("unexpected second update: %+v", recs[1])
	}
}

func TestRegistry_DecayNeverNegative(t *testing.T) {
	r := NewRegistry(testConfig(), nil)
	r.Register("A", "Citizen", "")
	r.Add("A", 1, "", "e")
	r.Tick(0, 10)
	if v, _ := r.Value("A"); v != 0 {
		t.Fatalf("value=%v want 0", v)
	}
	r.Add("A", 10, "", "f")
	r.Tick(0, 2)
	if v, _ := r.Value("A"); v != 9 {
		t.Fatalf("value=%v want 9", v)
	}
}

func TestRegistry_ReportsOnceUntilReset(t *testing.T) {
	f := &fakeFiler{}
	r := NewRegistry(testConfig(), nil)
	r.SetReportFiler(f)
	r.Register("A", "Citizen", "Store")

	r.Add("A", 60, "DL_G1", "ev1")
	r.Tick(1, 0.2)
	if len(f.calls) != 1 {
		t.Fatalf("calls=%d want 1", len(f.calls))
	}
	got := f.calls[0]
	if got.reporter != "A" || got.rule != "DL_G1" || got.eventID != "ev1" || math.Abs(got.snapshot-59.9) > 1e-9 {
		t.Fatalf("unexpected report: %+v", got)
	}

	r.Add("A", 20, "DL_G2", "ev2")
	r.Tick(100, 0)
	if len(f.calls) != 1 {
		t.Fatalf("reported twice before reset")
	}

	r.Reset("A")
	if v, _ := r.Value("A"); v != 0 {
		t.Fatalf("reset left value=%v", v)
	}
	r.Add("A", 60, "DL_G2", "ev3")
	r.Tick(101, 0)
	if len(f.calls) != 2 || f.calls[1].rule != "DL_G2" {
		t.Fatalf("expected second report after reset: %+v", f.calls)
	}
}

func TestRegistry_ThresholdCheckedAfterDecay(t *testing.T) {
	f := &fakeFiler{}
	r := NewRegistry(testConfig(), nil)
	r.SetReportFiler(f)
	r.Register("A", "Citizen", "")
	r.Add("A", 50, "DL_G1", "ev1")
	r.Tick(1, 1)
	if len(f.calls) != 0 {
		t.Fatalf("decayed below threshold but still reported")
	}
}

func TestRegistry_GlobalIsMeanNormalized(t *testing.T) {
	r := NewRegistry(testConfig(), nil)
	if r.Global() != 0 {
		t.Fatalf("empty registry G=%v", r.Global())
	}
	r.Register("A", "Citizen", "")
	r.Register("B", "Citizen", "")
	r.Add("A", 100, "", "x")
	r.Add("B", 20, "", "y")
	if g := r.Global(); math.Abs(g-0.6) > 1e-9 {
		t.Fatalf("G=%v want 0.6", g)
	}
	r.Remove("A")
	if g := r.Global(); math.Abs(g-0.2) > 1e-9 {
		t.Fatalf("G=%v want 0.2", g)
	}
}

func TestRegistry_WitnessesByPlace(t *testing.T) {
	r := NewRegistry(testConfig(), nil)
	r.Register("Clerk", "Clerk", "Store")
	r.Register("A", "Citizen", "Station")
	r.Register("B", "Citizen", "store")
	if r.Register("A", "Citizen", "Park") {
		t.Fatalf("duplicate register accepted")
	}

	got := r.Witnesses("STORE")
	if len(got) != 2 || got[0] != "Clerk" || got[1] != "B" {
		t.Fatalf("witnesses=%v", got)
	}
	if all := r.Witnesses(""); len(all) != 3 {
		t.Fatalf("all=%v", all)
	}
	r.Move("A", "Store")
	if got := r.Witnesses("Store"); len(got) != 3 {
		t.Fatalf("after move=%v", got)
	}
}
