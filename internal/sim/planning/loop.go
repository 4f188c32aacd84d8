package planning

import (
	"context"
	"log"
	"math/rand"
	"time"

	"dreamofone.ai/internal/protocol"
	"dreamofone.ai/internal/sim/events"
)

// Planner turns a request into raw model text. Implementations must honour
// ctx cancellation.
type Planner interface {
	Plan(ctx context.Context, req protocol.PlanRequest) (string, error)
}

// Scheduler runs fn on the goroutine that owns the simulation.
type Scheduler interface {
	Post(fn func())
}

type Navigator interface {
	MoveToward(agentID, anchor string) bool
}

type ReportFiler interface {
	File(reporterID, ruleID string, snapshot float64, eventID string, now float64)
}

type Config struct {
	Enabled            bool
	IntervalSeconds    float64
	JitterSeconds      float64
	ObserveEvents      int
	MemoryCapacity     int
	MemorySummaryLines int
	MaxActions         int
	SpeakCooldown      float64
	FallbackChance     float64
	Seed               int64
	Timeout            time.Duration
	MaxTokens          int
	Temperature        float64
}

type Stats struct {
	Requests  uint64 `json:"requests"`
	Completed uint64 `json:"completed"`
	Fallbacks uint64 `json:"fallbacks"`
	Stale     uint64 `json:"stale"`
	Rejected  uint64 `json:"rejected"`
	Executed  uint64 `json:"executed"`
}

// Loop owns every brain. All methods except the planner goroutines run on
// the simulation goroutine.
type Loop struct {
	cfg     Config
	log     *events.Log
	planner Planner
	sched   Scheduler
	nav     Navigator
	reports ReportFiler
	logger  *log.Logger
	ctx     context.Context
	rng     *rand.Rand

	brains map[string]*brain
	order  []string
	stats  Stats
	halted bool
}

func NewLoop(cfg Config, eventLog *events.Log, planner Planner, sched Scheduler) *Loop {
	if cfg.IntervalSeconds <= 0 {
		cfg.IntervalSeconds = 7
	}
	if cfg.MaxActions <= 0 || cfg.MaxActions > 2 {
		cfg.MaxActions = 2
	}
	if cfg.MemorySummaryLines <= 0 {
		cfg.MemorySummaryLines = 6
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 6 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 220
	}
	return &Loop{
		cfg:     cfg,
		log:     eventLog,
		planner: planner,
		sched:   sched,
		ctx:     context.Background(),
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		brains:  map[string]*brain{},
	}
}

func (l *Loop) SetNavigator(n Navigator)     { l.nav = n }
func (l *Loop) SetReportFiler(r ReportFiler) { l.reports = r }
func (l *Loop) SetLogger(lg *log.Logger)     { l.logger = lg }

// SetContext bounds every planner call issued after it.
func (l *Loop) SetContext(ctx context.Context) {
	if ctx != nil {
		l.ctx = ctx
	}
}

func (l *Loop) planningEnabled() bool {
	return l.cfg.Enabled && l.planner != nil && l.sched != nil
}

// AddAgent registers a brain; its first round is staggered over one interval.
func (l *Loop) AddAgent(spec AgentSpec) bool {
	if spec.ID == "" {
		return false
	}
	if _, ok := l.brains[spec.ID]; ok {
		return false
	}
	b := newBrain(spec, l.cfg.MemoryCapacity)
	b.nextAt = l.now() + l.rng.Float64()*l.cfg.IntervalSeconds
	l.brains[spec.ID] = b
	l.order = append(l.order, spec.ID)
	return true
}

// RemoveAgent drops a brain. A pending planner result for it is discarded.
func (l *Loop) RemoveAgent(id string) bool {
	if _, ok := l.brains[id]; !ok {
		return false
	}
	delete(l.brains, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return true
}

// ResetAgent invalidates in-flight work and clears memory.
func (l *Loop) ResetAgent(id string) {
	b, ok := l.brains[id]
	if !ok {
		return
	}
	b.epoch++
	b.inflight = false
	b.state = StateWaiting
	b.mem.Clear()
	b.seen = map[string]struct{}{}
}

// Halt stops all planning for good. Results still in flight are dropped as
// stale when they arrive.
func (l *Loop) Halt() {
	if l.halted {
		return
	}
	l.halted = true
	for _, b := range l.brains {
		b.epoch++
		b.inflight = false
		b.state = StateWaiting
	}
}

func (l *Loop) Halted() bool { return l.halted }

// SetPlace updates where the agent is, for prompts and utterances.
func (l *Loop) SetPlace(id, placeID string) {
	if b, ok := l.brains[id]; ok {
		b.spec.PlaceID = placeID
	}
}

func (l *Loop) State(id string) (State, bool) {
	b, ok := l.brains[id]
	if !ok {
		return "", false
	}
	return b.state, true
}

func (l *Loop) Memory(id string) []string {
	if b, ok := l.brains[id]; ok {
		return b.mem.Entries()
	}
	return nil
}

func (l *Loop) Agents() []string { return append([]string(nil), l.order...) }

func (l *Loop) Stats() Stats { return l.stats }

// Tick starts a round for every brain that is due and idle.
func (l *Loop) Tick(now float64) {
	if l.halted {
		return
	}
	for _, id := range l.order {
		b := l.brains[id]
		if b.inflight || now < b.nextAt {
			continue
		}
		b.nextAt = now + l.cfg.IntervalSeconds + l.jitter()
		l.round(b, now)
	}
}

func (l *Loop) jitter() float64 {
	if l.cfg.JitterSeconds <= 0 {
		return 0
	}
	return (l.rng.Float64() - 0.4) * l.cfg.JitterSeconds
}

func (l *Loop) round(b *brain, now float64) {
	b.state = StateObserving
	obs := l.observe(b)
	for _, o := range obs {
		b.mem.Add("OBS: " + o)
	}

	if !l.planningEnabled() {
		l.fallback(b, now, "planner disabled")
		return
	}

	req := BuildRequest(b.spec, b.allowed, obs, b.mem.Summary(l.cfg.MemorySummaryLines), l.cfg.MaxTokens, l.cfg.Temperature)
	b.state = StatePlanning
	b.inflight = true
	l.stats.Requests++
	l.dispatch(b.spec.ID, b.epoch, req)
}

func (l *Loop) dispatch(agentID string, epoch uint64, req protocol.PlanRequest) {
	planner, sched, parent, timeout := l.planner, l.sched, l.ctx, l.cfg.Timeout
	go func() {
		ctx, cancel := context.WithTimeout(parent, timeout)
		raw, err := planner.Plan(ctx, req)
		cancel()
		if err != nil && protocol.CodeOf(err) == "" {
			err = protocol.NewError(protocol.ErrPlannerTransport, "plan "+agentID, err)
		}
		sched.Post(func() { l.complete(agentID, epoch, raw, err) })
	}()
}

// complete applies a planner result on the simulation goroutine.
func (l *Loop) complete(agentID string, epoch uint64, raw string, err error) {
	b, ok := l.brains[agentID]
	if l.halted || !ok || b.epoch != epoch {
		l.stats.Stale++
		return
	}
	b.inflight = false
	l.stats.Completed++
	now := l.now()

	if err != nil {
		l.warnf("planning: %s planner failed: %v", agentID, err)
		l.fallback(b, now, "transport")
		return
	}

	b.state = StateValidating
	plan, err := protocol.ParsePlan(raw)
	if err != nil {
		l.warnf("planning: %s plan rejected: %v", agentID, err)
		l.fallback(b, now, "invalid plan")
		return
	}

	b.state = StateExecuting
	l.execute(b, plan, now)
	b.state = StateWaiting
}

func (l *Loop) now() float64 {
	if l.log == nil {
		return 0
	}
	return l.log.Now()
}

func (l *Loop) warnf(format string, args ...any) {
	if l.logger != nil {
		l.logger.Printf(format, args...)
	}
}

