package world

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"dreamofone.ai/internal/protocol"
	"dreamofone.ai/internal/sim/catalogs"
	"dreamofone.ai/internal/sim/events"
	"dreamofone.ai/internal/sim/planning"
	"dreamofone.ai/internal/sim/session"
	"dreamofone.ai/internal/sim/tuning"
)

func testWorld(t *testing.T, tweak func(*tuning.Tuning)) *World {
	t.Helper()
	return testWorldWith(t, tweak, nil)
}

func testWorldWith(t *testing.T, tweak func(*tuning.Tuning), planner planning.Planner) *World {
	t.Helper()
	cfgDir := filepath.Join("..", "..", "..", "configs")
	cats, err := catalogs.Load(cfgDir)
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	roster, err := LoadRoster(filepath.Join(cfgDir, "world.yaml"))
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	tu := tuning.Defaults()
	tu.Planning.Enabled = false
	tu.Planning.FallbackChance = 0
	if tweak != nil {
		tweak(&tu)
	}
	w, err := New(Config{SessionID: "test", Tuning: tu, Catalogs: cats, Roster: roster}, planner)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w
}

func join(t *testing.T, w *World, name, place string) {
	t.Helper()
	resp := make(chan JoinResponse, 1)
	w.StepOnce(Inputs{Joins: []JoinRequest{{Name: name, PlaceID: place, Human: true, Resp: resp}}})
	if r := <-resp; r.Err != nil {
		t.Fatalf("join %s: %v", name, r.Err)
	}
}

func dreamTalk(n int, place string) []SayRequest {
	var out []SayRequest
	for i := 0; i < n; i++ {
		out = append(out, SayRequest{AgentID: PlayerID, Act: "Comply", Text: "I think this is a dream", PlaceID: place})
	}
	return out
}

func count(w *World, typ events.Type) int {
	n := 0
	for _, r := range w.Log().RecentEvents(w.Log().Capacity()) {
		if r.Type == typ {
			n++
		}
	}
	return n
}

func TestNew_RegistersRoster(t *testing.T) {
	w := testWorld(t, nil)
	st := w.Status()
	if len(st.Agents) != 6 || len(st.Suspicion) != 6 {
		t.Fatalf("agents=%d suspicion=%d", len(st.Agents), len(st.Suspicion))
	}
	if st.Ended || st.Tick != 0 {
		t.Fatalf("unexpected initial status: %+v", st)
	}
	if _, err := New(Config{}, nil); err == nil {
		t.Fatalf("expected error without catalogs")
	}
}

func TestJoin_DuplicateRejected(t *testing.T) {
	w := testWorld(t, nil)
	join(t, w, PlayerID, "Store")

	resp := make(chan JoinResponse, 1)
	w.StepOnce(Inputs{Joins: []JoinRequest{{Name: PlayerID, Resp: resp}}})
	r := <-resp
	if protocol.CodeOf(r.Err) != protocol.ErrBadRequest {
		t.Fatalf("duplicate join err=%v", r.Err)
	}
	if count(w, events.EnteredZone) != 1 {
		t.Fatalf("EnteredZone=%d want 1", count(w, events.EnteredZone))
	}
}

func TestSay_UnknownAgentAndBadAct(t *testing.T) {
	w := testWorld(t, nil)
	r1 := make(chan SayResult, 1)
	r2 := make(chan SayResult, 1)
	join(t, w, PlayerID, "Store")
	w.StepOnce(Inputs{Says: []SayRequest{
		{AgentID: "ghost", Act: "Comply", Text: "hi", Resp: r1},
		{AgentID: PlayerID, Act: "shout", Text: "hi", Resp: r2},
	}})
	if got := protocol.CodeOf((<-r1).Err); got != protocol.ErrUnknownAgent {
		t.Fatalf("ghost code=%q", got)
	}
	if got := protocol.CodeOf((<-r2).Err); got != protocol.ErrBadRequest {
		t.Fatalf("bad act code=%q", got)
	}
}

func TestSay_WitnessedByPlaceAgents(t *testing.T) {
	w := testWorld(t, nil)
	join(t, w, PlayerID, "Store")

	resp := make(chan SayResult, 1)
	req := dreamTalk(1, "Store")[0]
	req.Resp = resp
	w.StepOnce(Inputs{Says: []SayRequest{req}})
	res := <-resp
	if res.Err != nil || len(res.Hits) != 1 {
		t.Fatalf("hits=%d err=%v", len(res.Hits), res.Err)
	}

	var stmt events.Record
	for _, r := range w.Log().RecentEvents(32) {
		if r.Type == events.StatementGiven {
			stmt = r
		}
	}
	if stmt.ActorID != "Clerk" || stmt.TargetID != PlayerID {
		t.Fatalf("statement attribution: %+v", stmt)
	}
	st := w.Status()
	for _, s := range st.Suspicion {
		switch s.AgentID {
		case "Clerk", "Citizen_A":
			if s.Value <= 0 {
				t.Fatalf("%s did not react: %+v", s.AgentID, s)
			}
		default:
			if s.Value != 0 {
				t.Fatalf("%s outside the store reacted: %+v", s.AgentID, s)
			}
		}
	}
	if st.Exposure != 25 {
		t.Fatalf("exposure=%d want 25", st.Exposure)
	}
}

func TestSession_EndsOnExposure(t *testing.T) {
	w := testWorld(t, nil)
	join(t, w, PlayerID, "Park")
	st := w.StepOnce(Inputs{Says: dreamTalk(4, "Park")})
	if !st.Ended || st.Outcome == nil || st.Outcome.Cause != session.CauseExposure {
		t.Fatalf("expected exposure end, got %+v", st.Outcome)
	}

	resp := make(chan SayResult, 1)
	req := dreamTalk(1, "Park")[0]
	req.Resp = resp
	w.StepOnce(Inputs{Says: []SayRequest{req}})
	if got := protocol.CodeOf((<-resp).Err); got != protocol.ErrSessionEnded {
		t.Fatalf("speech after end code=%q", got)
	}
}

func TestSession_ReportsLeadToVerdict(t *testing.T) {
	w := testWorld(t, func(tu *tuning.Tuning) {
		tu.Exposure.EndsSession = false
		tu.Reports.MinGlobalSuspicion = 0
	})
	join(t, w, PlayerID, "Store")
	w.StepOnce(Inputs{Says: dreamTalk(6, "Store")})

	if count(w, events.ReportFiled) != 2 {
		t.Fatalf("ReportFiled=%d want 2", count(w, events.ReportFiled))
	}
	if count(w, events.InterrogationStarted) != 1 || !w.Status().CaseOpen {
		t.Fatalf("interrogation not opened")
	}

	steps := int(tuning.Defaults().Casework.InterrogationSeconds*float64(w.TickRateHz())) + 2
	var st Status
	for i := 0; i < steps; i++ {
		st = w.StepOnce(Inputs{})
	}
	if count(w, events.VerdictGiven) != 1 {
		t.Fatalf("VerdictGiven=%d", count(w, events.VerdictGiven))
	}
	if !st.Ended || st.Outcome.Cause != session.CauseVerdict {
		t.Fatalf("expected verdict end, got %+v", st.Outcome)
	}
	for _, s := range st.Suspicion {
		if s.AgentID == "Clerk" && (s.Value != 0 || s.Reported) {
			t.Fatalf("reporter not reset: %+v", s)
		}
	}
}

func TestMove_ChangesPlaceAndWitnesses(t *testing.T) {
	w := testWorld(t, nil)
	join(t, w, PlayerID, "Store")
	errc := make(chan error, 1)
	w.StepOnce(Inputs{Moves: []MoveRequest{{AgentID: PlayerID, PlaceID: "Station", Pos: events.Vec3{-20, 0, 10}, Resp: errc}}})
	if err := <-errc; err != nil {
		t.Fatalf("move: %v", err)
	}
	if count(w, events.ExitedZone) != 1 || count(w, events.EnteredZone) != 2 {
		t.Fatalf("zone events exited=%d entered=%d", count(w, events.ExitedZone), count(w, events.EnteredZone))
	}

	w.StepOnce(Inputs{Says: []SayRequest{{AgentID: PlayerID, Act: "Break"}}})
	var stmt events.Record
	for _, r := range w.Log().RecentEvents(32) {
		if r.Type == events.StatementGiven {
			stmt = r
		}
	}
	if stmt.ActorID != "Citizen_B" || stmt.PlaceID != "Station" {
		t.Fatalf("witness not from the station: %+v", stmt)
	}
}

func TestNavigator_WalksToAnchor(t *testing.T) {
	w := testWorld(t, nil)
	if w.nav.MoveToward("Clerk", "ParkBench") {
		t.Fatalf("non-navigating agent accepted a move")
	}
	if w.nav.MoveToward("Tourist", "Nowhere") {
		t.Fatalf("unknown anchor accepted")
	}
	if !w.nav.MoveToward("Tourist", "storecounter") {
		t.Fatalf("move rejected")
	}
	for i := 0; i < 40; i++ {
		w.StepOnce(Inputs{})
	}
	var tourist AgentView
	for _, a := range w.Status().Agents {
		if a.ID == "Tourist" {
			tourist = a
		}
	}
	if tourist.Place != "Store" || tourist.Zone != "StoreCounter" || tourist.Target != "" {
		t.Fatalf("tourist did not arrive: %+v", tourist)
	}
	if tourist.Pos != (events.Vec3{14, 0, 6}) {
		t.Fatalf("pos=%v", tourist.Pos)
	}
	found := false
	for _, r := range w.Log().RecentEvents(32) {
		if r.Type == events.EnteredZone && r.ActorID == "Tourist" && r.PlaceID == "Store" {
			found = true
		}
	}
	if !found {
		t.Fatalf("no EnteredZone for the tourist")
	}
}

func TestPost_RunsOnNextStep(t *testing.T) {
	w := testWorld(t, nil)
	ran := 0
	w.Post(func() { ran++ })
	if ran != 0 {
		t.Fatalf("ran before step")
	}
	w.StepOnce(Inputs{})
	if ran != 1 {
		t.Fatalf("ran=%d", ran)
	}
}

func TestRun_ServesRequestsUntilStopped(t *testing.T) {
	w := testWorld(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	id, err := w.Join(ctx, JoinRequest{Name: PlayerID, PlaceID: "Store", Human: true})
	if err != nil || id != PlayerID {
		t.Fatalf("join id=%q err=%v", id, err)
	}
	hits, err := w.Say(ctx, SayRequest{AgentID: PlayerID, Act: "Break"})
	if err != nil || len(hits) == 0 {
		t.Fatalf("say hits=%d err=%v", len(hits), err)
	}

	w.Stop()
	if err := <-errc; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := w.Say(ctx, SayRequest{AgentID: PlayerID, Act: "Comply"}); protocol.CodeOf(err) != protocol.ErrSessionEnded {
		t.Fatalf("say after stop err=%v", err)
	}
	w.Post(func() {})
}

// gatedPlanner holds every request until release is closed.
type gatedPlanner struct {
	release chan struct{}
	asked   atomic.Int32
}

func (p *gatedPlanner) Plan(ctx context.Context, _ protocol.PlanRequest) (string, error) {
	p.asked.Add(1)
	select {
	case <-p.release:
		return `{"speak":"still talking after the end","actions":[{"type":"FileReport","ruleId":"DL_G1_NO_DREAM_TALK"}]}`, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestSession_EndDropsInFlightPlans(t *testing.T) {
	p := &gatedPlanner{release: make(chan struct{})}
	w := testWorldWith(t, func(tu *tuning.Tuning) {
		tu.Planning.Enabled = true
		tu.Planning.IntervalSeconds = 1
		tu.Planning.JitterSeconds = 0
		tu.Session.DurationSeconds = 2
	}, p)

	var st Status
	for i := 0; i < 30 && !st.Ended; i++ {
		st = w.StepOnce(Inputs{})
	}
	if !st.Ended || st.Outcome == nil || st.Outcome.Cause != session.CauseTimeLimit {
		t.Fatalf("session did not end on time: %+v", st.Outcome)
	}
	inflight := int(st.Planning.Requests)
	if inflight == 0 {
		t.Fatalf("no planner requests were in flight")
	}

	close(p.release)
	deadline := time.Now().Add(2 * time.Second)
	for len(w.calls) < inflight {
		if time.Now().After(deadline) {
			t.Fatalf("completions posted=%d want %d", len(w.calls), inflight)
		}
		time.Sleep(5 * time.Millisecond)
	}
	reportsBefore := count(w, events.ReportFiled)
	st = w.StepOnce(Inputs{})

	for _, r := range w.Log().RecentEvents(w.Log().Capacity()) {
		if r.Type == events.NpcUtterance && r.Note == "still talking after the end" {
			t.Fatalf("plan executed after session end: %+v", r)
		}
	}
	if got := count(w, events.ReportFiled); got != reportsBefore {
		t.Fatalf("reports filed after end: %d -> %d", reportsBefore, got)
	}
	if int(st.Planning.Stale) != inflight || st.Planning.Executed != 0 {
		t.Fatalf("planning stats=%+v", st.Planning)
	}
	if int(p.asked.Load()) != inflight {
		t.Fatalf("planner asked=%d requests=%d", p.asked.Load(), inflight)
	}
}

func TestCaseClose_ResetsReporterPlanners(t *testing.T) {
	w := testWorld(t, nil)
	join(t, w, PlayerID, "Store")
	w.planning.Tick(100)
	if len(w.planning.Memory("Clerk")) == 0 || len(w.planning.Memory("Citizen_A")) == 0 {
		t.Fatalf("planner memory not populated")
	}
	if !w.suspicion.Add("Clerk", 30, "DL_G1_NO_DREAM_TALK", "ev-reset") {
		t.Fatalf("suspicion add rejected")
	}

	w.resetReporters("Clerk")

	if mem := w.planning.Memory("Clerk"); len(mem) != 0 {
		t.Fatalf("reporter memory kept: %v", mem)
	}
	if len(w.planning.Memory("Citizen_A")) == 0 {
		t.Fatalf("non-reporter memory cleared")
	}
	if v, _ := w.suspicion.Value("Clerk"); v != 0 {
		t.Fatalf("reporter suspicion=%v", v)
	}
}

func TestGossip_ViolationBecomesRumor(t *testing.T) {
	w := testWorld(t, nil)
	join(t, w, PlayerID, "Store")
	w.StepOnce(Inputs{Says: dreamTalk(1, "Store")})
	if count(w, events.ViolationDetected) == 0 {
		t.Fatalf("no violation recorded")
	}

	var st Status
	for i := 0; i < 50 && count(w, events.RumorShared) == 0; i++ {
		st = w.StepOnce(Inputs{})
	}
	var rumor events.Record
	for _, r := range w.Log().RecentEvents(w.Log().Capacity()) {
		if r.Type == events.RumorShared {
			rumor = r
		}
	}
	if rumor.ActorID != "Clerk" && rumor.ActorID != "Citizen_A" {
		t.Fatalf("rumor speaker: %+v", rumor)
	}
	if rumor.PlaceID != "Store" || rumor.TopicID == "" || rumor.SourceID == "" {
		t.Fatalf("rumor fields: %+v", rumor)
	}
	if st.Summary.Rumors < 1 {
		t.Fatalf("summary rumors=%d", st.Summary.Rumors)
	}
}

func TestSpeaker_NeedsListener(t *testing.T) {
	w := testWorld(t, nil)
	if id, _, ok := w.Speaker("Store"); !ok || id != "Clerk" {
		t.Fatalf("store speaker=%q ok=%v", id, ok)
	}
	if _, _, ok := w.Speaker("Park"); ok {
		t.Fatalf("lone tourist has nobody to tell")
	}
	if _, _, ok := w.Speaker("Station"); ok {
		t.Fatalf("police counted as gossip partner")
	}
}
