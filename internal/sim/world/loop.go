package world

import (
	"context"
	"fmt"
	"time"

	"dreamofone.ai/internal/protocol"
	"dreamofone.ai/internal/sim/events"
	"dreamofone.ai/internal/sim/planning"
	"dreamofone.ai/internal/sim/session"
	"dreamofone.ai/internal/sim/suspicion"
)

// Run drives the world at TickRateHz until ctx is done or Stop is called.
// All subsystem state is touched from this goroutine only.
func (w *World) Run(ctx context.Context) error {
	defer close(w.done)
	w.planning.SetContext(ctx)

	ticker := time.NewTicker(time.Second / time.Duration(w.cfg.Tuning.TickRateHz))
	defer ticker.Stop()

	var pending Inputs
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case fn := <-w.calls:
			fn()
		case req := <-w.join:
			pending.Joins = append(pending.Joins, req)
		case id := <-w.leave:
			pending.Leaves = append(pending.Leaves, id)
		case req := <-w.say:
			pending.Says = append(pending.Says, req)
		case req := <-w.move:
			pending.Moves = append(pending.Moves, req)
		case rec := <-w.inject:
			pending.Inject = append(pending.Inject, rec)
		case <-ticker.C:
			w.step(pending)
			pending = Inputs{}
		}
	}
}

func (w *World) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

// Done is closed when Run returns.
func (w *World) Done() <-chan struct{} { return w.done }

// StepOnce runs one step synchronously. It must not be mixed with Run.
func (w *World) StepOnce(in Inputs) Status {
	w.step(in)
	return w.Status()
}

func (w *World) step(in Inputs) {
	defer func() {
		if r := recover(); r != nil {
			w.logf("world: step %d panic: %v", w.tick.Load(), r)
			if w.onPanic != nil {
				w.onPanic(r)
			}
		}
	}()

drain:
	for {
		select {
		case fn := <-w.calls:
			fn()
		default:
			break drain
		}
	}
	for _, req := range in.Joins {
		w.handleJoin(req)
	}
	for _, id := range in.Leaves {
		w.removeAgent(id)
	}
	for _, req := range in.Moves {
		w.handleMove(req)
	}
	for _, req := range in.Says {
		w.handleSay(req)
	}
	for _, rec := range in.Inject {
		w.log.Append(rec)
	}

	now := w.clock.Advance(w.dt)
	w.suspicion.Tick(now, w.dt)
	if env, ok := w.gate.TryConsume(now); ok && !w.cases.Open(env, now) {
		w.logf("world: case already open, envelope %s dropped", env.ID)
	}
	w.cases.Tick(now)
	w.gossip.Tick(now)

	if out, ended := w.director.Check(now); ended {
		w.logf("world: session ended cause=%s reason=%s", out.Cause, out.Reason)
	}
	if w.director.Ended() {
		w.planning.Halt()
	} else {
		w.planning.Tick(now)
	}
	for _, id := range w.nav.step(w.dt, w.cfg.WalkSpeed) {
		w.arrive(id)
	}

	w.tick.Add(1)
	w.publishStatus()
}

func (w *World) arrive(id string) {
	a := w.agents[id]
	if a == nil {
		return
	}
	name, anchor, ok := w.nav.lookup(a.Target)
	a.Target = ""
	if !ok {
		return
	}
	a.Zone = name
	if anchor.Place != "" && anchor.Place != a.Place {
		w.changePlace(a, anchor.Place)
	}
}

type AgentView struct {
	ID      string         `json:"id"`
	Role    string         `json:"role"`
	Place   string         `json:"place,omitempty"`
	Zone    string         `json:"zone,omitempty"`
	Pos     events.Vec3    `json:"pos"`
	Target  string         `json:"target,omitempty"`
	Human   bool           `json:"human,omitempty"`
	Planner planning.State `json:"planner_state,omitempty"`
}

// Status is an immutable snapshot published after every step.
type Status struct {
	SessionID      string                     `json:"session_id"`
	Tick           uint64                     `json:"tick"`
	Now            float64                    `json:"now"`
	Global         float64                    `json:"g"`
	Exposure       int                        `json:"exposure"`
	Ended          bool                       `json:"ended"`
	Outcome        *session.Outcome           `json:"outcome,omitempty"`
	Summary        session.Summary            `json:"summary"`
	PendingReports int                        `json:"pending_reports"`
	CaseOpen       bool                       `json:"case_open"`
	Agents         []AgentView                `json:"agents"`
	Suspicion      []suspicion.AgentSuspicion `json:"suspicion"`
	Log            events.Stats               `json:"log"`
	Planning       planning.Stats             `json:"planning"`
}

func (w *World) Status() Status {
	s, _ := w.status.Load().(Status)
	return s
}

func (w *World) publishStatus() {
	now := w.clock.Now()
	s := Status{
		SessionID:      w.cfg.SessionID,
		Tick:           w.tick.Load(),
		Now:            now,
		Global:         w.suspicion.Global(),
		Exposure:       w.exposure.Value(),
		Ended:          w.director.Ended(),
		Summary:        w.director.Summary(),
		PendingReports: w.gate.Pending(),
		CaseOpen:       w.cases.Active(),
		Suspicion:      w.suspicion.Snapshot(),
		Log:            w.log.Stats(),
		Planning:       w.planning.Stats(),
	}
	if out, ok := w.director.Outcome(); ok {
		s.Outcome = &out
	}
	for _, id := range w.order {
		a := w.agents[id]
		v := AgentView{ID: a.ID, Role: a.Role, Place: a.Place, Zone: a.Zone, Pos: a.Pos, Target: a.Target, Human: a.Human}
		if st, ok := w.planning.State(id); ok {
			v.Planner = st
		}
		s.Agents = append(s.Agents, v)
	}
	w.status.Store(s)
}

// SetPanicHandler is called with the recovered value when a step panics.
func (w *World) SetPanicHandler(fn func(any)) { w.onPanic = fn }

func (w *World) logf(format string, args ...any) {
	if w.logger != nil {
		w.logger.Printf(format, args...)
	}
}

func (w *World) String() string {
	return fmt.Sprintf("world(%s tick=%d agents=%d)", w.cfg.SessionID, w.tick.Load(), len(w.agents))
}

// SessionMsg renders the status for clients and observers.
func (s Status) SessionMsg() protocol.SessionMsg {
	m := protocol.SessionMsg{
		Type:            protocol.TypeSession,
		ProtocolVersion: protocol.Version,
		Ended:           s.Ended,
		Elapsed:         s.Now,
		Global:          s.Global,
		Exposure:        s.Exposure,
	}
	if s.Outcome != nil {
		m.Cause = string(s.Outcome.Cause)
		m.Reason = s.Outcome.Reason
		m.Elapsed = s.Outcome.Elapsed
	}
	return m
}
