// Package world is the composition root of a session: it owns the event log
// and every subsystem and drives them from one goroutine.
package world

import (
	"errors"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dreamofone.ai/internal/sim/casework"
	"dreamofone.ai/internal/sim/catalogs"
	"dreamofone.ai/internal/sim/events"
	"dreamofone.ai/internal/sim/gossip"
	"dreamofone.ai/internal/sim/planning"
	"dreamofone.ai/internal/sim/reports"
	"dreamofone.ai/internal/sim/session"
	"dreamofone.ai/internal/sim/suspicion"
	"dreamofone.ai/internal/sim/tuning"
	"dreamofone.ai/internal/sim/violation"
)

type Agent struct {
	ID        string
	Role      string
	Place     string
	Zone      string
	Pos       events.Vec3
	Target    string
	Navigates bool
	Planner   bool
	Human     bool
}

type World struct {
	cfg   Config
	clock *events.ManualClock
	log   *events.Log
	dt    float64

	applier   *violation.Applier
	suspicion *suspicion.Registry
	exposure  *suspicion.Meter
	gate      *reports.Gate
	cases     *casework.Interrogator
	director  *session.Director
	gossip    *gossip.Mill
	planning  *planning.Loop
	nav       *Navigator

	agents map[string]*Agent
	order  []string

	join   chan JoinRequest
	leave  chan string
	say    chan SayRequest
	move   chan MoveRequest
	inject chan events.Record
	calls  chan func()

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	tick    atomic.Uint64
	status  atomic.Value
	logger  *log.Logger
	onPanic func(any)
}

// New wires a session. planner may be nil, in which case agents only use
// their fallback lines.
func New(cfg Config, planner planning.Planner) (*World, error) {
	if cfg.Catalogs == nil {
		return nil, errors.New("world: catalogs required")
	}
	t := cfg.Tuning
	if t.TickRateHz <= 0 {
		t.TickRateHz = 5
	}
	if cfg.WalkSpeed <= 0 {
		cfg.WalkSpeed = 4
	}
	cfg.Tuning = t

	w := &World{
		cfg:    cfg,
		clock:  &events.ManualClock{},
		dt:     1 / float64(t.TickRateHz),
		agents: map[string]*Agent{},
		join:   make(chan JoinRequest, 16),
		leave:  make(chan string, 16),
		say:    make(chan SayRequest, 64),
		move:   make(chan MoveRequest, 64),
		inject: make(chan events.Record, 64),
		calls:  make(chan func(), 64),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	w.log = events.NewLog(t.EventLogCapacity, w.clock)

	w.exposure = suspicion.NewMeter(suspicion.ExposureConfig{
		Max:        t.Exposure.Max,
		Attention:  t.Exposure.Attention,
		Exposed:    t.Exposure.Exposed,
		NoiseDelta: t.Exposure.NoiseDelta,
	}, w.log)
	w.applier = violation.NewApplier(cfg.Catalogs.Laws, w.log, w.exposure)
	w.suspicion = suspicion.NewRegistry(suspicion.Config{
		Max:             t.Suspicion.Max,
		DecayPerSecond:  t.Suspicion.DecayPerSecond,
		ReportThreshold: t.Suspicion.ReportThreshold,
		ReportCooldown:  t.Suspicion.ReportCooldownSeconds,
	}, w.log)
	w.gate = reports.NewGate(reports.Config{
		MinReporters:       t.Reports.MinReporters,
		WindowSeconds:      t.Reports.WindowSeconds,
		CooldownSeconds:    t.Reports.CooldownSeconds,
		MaxAttachedEvents:  t.Reports.MaxAttachedEvents,
		MinGlobalSuspicion: t.Reports.MinGlobalSuspicion,
	}, w.log, w.suspicion)
	w.suspicion.SetReportFiler(w.gate)
	w.cases = casework.NewInterrogator(casework.Config{
		DelaySeconds:   t.Casework.InterrogationSeconds,
		OfficerID:      t.Casework.OfficerID,
		SuspectID:      t.Casework.SuspectID,
		LookbackEvents: t.Casework.LookbackEvents,
	}, w.log, resetFunc(w.resetReporters))
	w.director = session.NewDirector(session.Config{
		DurationSeconds:     t.Session.DurationSeconds,
		SuspicionEndsAt:     t.Session.SuspicionEndsAt,
		ExposureEndsSession: t.Exposure.EndsSession,
		EndOnVerdict:        t.Session.EndOnVerdict,
	}, w.log, w.suspicion, w.exposure)
	w.gossip = gossip.NewMill(gossip.Config{
		DelaySeconds:         t.Gossip.DelaySeconds,
		CooldownSeconds:      t.Gossip.CooldownSeconds,
		ConfirmWindowSeconds: t.Gossip.ConfirmWindowSeconds,
		RoleTrust:            t.Gossip.RoleTrust,
	}, w.log, w)
	w.nav = newNavigator(w, cfg.Roster.Anchors)

	responder := suspicion.NewResponder(suspicion.ResponderConfig{
		DefaultDelta:  t.Suspicion.DefaultDelta,
		RuleDeltas:    t.Suspicion.RuleDeltas,
		SamePlaceOnly: t.Suspicion.SamePlaceOnly,
	}, w.suspicion)
	w.log.Subscribe(responder.Observe)
	w.log.Subscribe(w.exposure.Observe)
	w.log.Subscribe(w.director.Observe)
	w.log.Subscribe(w.gossip.Observe)

	w.planning = planning.NewLoop(planning.Config{
		Enabled:            t.Planning.Enabled,
		IntervalSeconds:    t.Planning.IntervalSeconds,
		JitterSeconds:      t.Planning.JitterSeconds,
		ObserveEvents:      t.Planning.ObserveEvents,
		MemoryCapacity:     t.Planning.MemoryCapacity,
		MemorySummaryLines: t.Planning.MemorySummaryLines,
		MaxActions:         t.Planning.MaxActions,
		SpeakCooldown:      t.Planning.SpeakCooldownSecs,
		FallbackChance:     t.Planning.FallbackChance,
		Seed:               t.Planning.Seed,
		Timeout:            time.Duration(t.Planner.TimeoutSeconds * float64(time.Second)),
		MaxTokens:          t.Planner.MaxTokens,
		Temperature:        t.Planner.Temperature,
	}, w.log, planner, w)
	w.planning.SetNavigator(w.nav)
	w.planning.SetReportFiler(w.gate)

	w.director.Start(0)
	for _, def := range cfg.Roster.Agents {
		w.addAgent(&Agent{
			ID:        def.ID,
			Role:      def.Role,
			Place:     def.Place,
			Pos:       w.nav.placePos(def.Place),
			Navigates: def.Navigates,
			Planner:   def.Planner,
		})
	}
	w.publishStatus()
	return w, nil
}

// SetLogger fans one logger out to every subsystem.
func (w *World) SetLogger(l *log.Logger) {
	w.logger = l
	w.log.SetLogger(l)
	w.applier.SetLogger(l)
	w.suspicion.SetLogger(l)
	w.gate.SetLogger(l)
	w.cases.SetLogger(l)
	w.director.SetLogger(l)
	w.gossip.SetLogger(l)
	w.planning.SetLogger(l)
}

// Log exposes the event log for read-only consumers (feeds, archive, index).
func (w *World) Log() *events.Log { return w.log }

func (w *World) TickRateHz() int { return w.cfg.Tuning.TickRateHz }

func (w *World) SessionID() string { return w.cfg.SessionID }

func (w *World) Catalogs() *catalogs.Catalogs { return w.cfg.Catalogs }

// Post implements planning.Scheduler: fn runs at the start of the next step.
// It never blocks once the loop has stopped.
func (w *World) Post(fn func()) {
	select {
	case w.calls <- fn:
	case <-w.done:
	case <-w.stop:
	}
}

func (w *World) addAgent(a *Agent) bool {
	if a.ID == "" {
		return false
	}
	if _, ok := w.agents[a.ID]; ok {
		return false
	}
	w.agents[a.ID] = a
	w.order = append(w.order, a.ID)
	if a.Human {
		return true
	}
	w.suspicion.Register(a.ID, a.Role, a.Place)
	if a.Planner {
		spec := planning.AgentSpec{ID: a.ID, Role: a.Role, PlaceID: a.Place}
		if role, ok := w.cfg.Catalogs.Roles.TryGet(a.Role); ok {
			spec.AllowedSkills = role.AllowedSkills
			spec.FallbackLines = role.IdleLines
		}
		w.planning.AddAgent(spec)
	}
	return true
}

func (w *World) removeAgent(id string) bool {
	if _, ok := w.agents[id]; !ok {
		return false
	}
	delete(w.agents, id)
	for i, v := range w.order {
		if v == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	w.suspicion.Remove(id)
	w.planning.RemoveAgent(id)
	return true
}

// witnessFor picks who states a violation: the first non-human agent in the
// place, if any.
func (w *World) witnessFor(placeID, speakerID string) (string, string) {
	for _, id := range w.suspicion.Witnesses(placeID) {
		if id == speakerID {
			continue
		}
		if a := w.agents[id]; a != nil && strings.EqualFold(a.Place, placeID) {
			return a.ID, a.Role
		}
	}
	return "", ""
}

// Speaker implements gossip.Speakers: the first townsperson in the place,
// provided another one is there to listen. Humans and police never gossip.
func (w *World) Speaker(placeID string) (string, string, bool) {
	var speaker *Agent
	for _, id := range w.order {
		a := w.agents[id]
		if a == nil || a.Human || a.Role == casework.OfficerRole || !strings.EqualFold(a.Place, placeID) {
			continue
		}
		if speaker != nil {
			return speaker.ID, speaker.Role, true
		}
		speaker = a
	}
	return "", "", false
}

func (w *World) Tuning() tuning.Tuning { return w.cfg.Tuning }

type resetFunc func(agentIDs ...string)

func (f resetFunc) Reset(agentIDs ...string) { f(agentIDs...) }

// resetReporters runs when a case closes: reporters start over with no
// suspicion, no planner memory and no plan in flight.
func (w *World) resetReporters(agentIDs ...string) {
	w.suspicion.Reset(agentIDs...)
	for _, id := range agentIDs {
		w.planning.ResetAgent(id)
	}
}
