package casework

import (
	"fmt"
	"log"
	"strings"

	"dreamofone.ai/internal/sim/events"
	"dreamofone.ai/internal/sim/reports"
)

const OfficerRole = "Police"

type Config struct {
	DelaySeconds   float64
	OfficerID      string
	SuspectID      string
	LookbackEvents int
}

// Resetter clears reporters once their case is closed.
type Resetter interface {
	Reset(agentIDs ...string)
}

type Result struct {
	Envelope reports.Envelope `json:"envelope"`
	Verdict  Verdict          `json:"verdict"`
	Score    int              `json:"score"`
	Reason   string           `json:"reason"`
}

type openCase struct {
	env     reports.Envelope
	started float64
}

// Interrogator handles one case at a time.
type Interrogator struct {
	cfg      Config
	log      *events.Log
	resetter Resetter
	logger   *log.Logger

	active  *openCase
	results []Result
}

func NewInterrogator(cfg Config, eventLog *events.Log, resetter Resetter) *Interrogator {
	if cfg.OfficerID == "" {
		cfg.OfficerID = OfficerRole
	}
	if cfg.LookbackEvents < 10 {
		cfg.LookbackEvents = 10
	}
	return &Interrogator{cfg: cfg, log: eventLog, resetter: resetter}
}

func (i *Interrogator) SetLogger(l *log.Logger) { i.logger = l }

func (i *Interrogator) Active() bool { return i.active != nil }

// Results lists closed cases, oldest first.
func (i *Interrogator) Results() []Result {
	return append([]Result(nil), i.results...)
}

// Open starts an interrogation. It refuses while another case is open.
func (i *Interrogator) Open(env reports.Envelope, now float64) bool {
	if i.active != nil {
		return false
	}
	i.active = &openCase{env: env, started: now}
	if i.log != nil {
		i.log.Append(events.Record{
			Type:      events.InterrogationStarted,
			ActorID:   i.cfg.OfficerID,
			ActorRole: OfficerRole,
			TargetID:  i.cfg.SuspectID,
			TopicID:   env.ID,
			Note:      fmt.Sprintf("%s by %s", env.Reason, strings.Join(env.ReporterIDs, ",")),
			Severity:  2,
		})
	}
	if i.logger != nil {
		i.logger.Printf("casework: interrogation %s opened (%s)", env.ID, env.Reason)
	}
	return true
}

// Tick closes the open case once the delay elapsed.
func (i *Interrogator) Tick(now float64) (Result, bool) {
	if i.active == nil || now-i.active.started < i.cfg.DelaySeconds {
		return Result{}, false
	}
	c := i.active
	i.active = nil

	var recent []events.Record
	if i.log != nil {
		recent = i.log.RecentEvents(i.cfg.LookbackEvents)
	}
	b := BuildBundle(c.env, recent)
	v := DetermineVerdict(b)
	res := Result{Envelope: c.env, Verdict: v, Score: b.Score(), Reason: b.Reason()}

	if i.log != nil {
		i.log.Append(events.Record{
			Type:      events.VerdictGiven,
			ActorID:   i.cfg.OfficerID,
			ActorRole: OfficerRole,
			TargetID:  i.cfg.SuspectID,
			TopicID:   c.env.ID,
			Note:      fmt.Sprintf("%s (%s)", v, res.Reason),
			Severity:  v.Severity(),
			Delta:     res.Score,
		})
	}
	if i.resetter != nil {
		i.resetter.Reset(c.env.ReporterIDs...)
	}
	i.results = append(i.results, res)
	if i.logger != nil {
		i.logger.Printf("casework: verdict %s score=%d case=%s", v, res.Score, c.env.ID)
	}
	return res, true
}

// Cancel drops the open case without a verdict.
func (i *Interrogator) Cancel() { i.active = nil }
