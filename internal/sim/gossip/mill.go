// Package gossip turns witnessed violations into rumors that later evidence or
// a verdict confirms or debunks.
package gossip

import (
	"log"
	"math"

	"dreamofone.ai/internal/sim/events"
)

const (
	RebuttalNote  = "Rumor rebutted."
	fallbackRumor = "Someone broke a rule."
)

var DefaultRoleTrust = map[string]float64{
	"Police":  1.1,
	"Clerk":   0.95,
	"Elder":   0.9,
	"Barista": 0.85,
	"Citizen": 0.75,
	"Tourist": 0.6,
	"Visitor": 0.6,
}

type Config struct {
	DelaySeconds         float64
	CooldownSeconds      float64
	ConfirmWindowSeconds float64
	// RoleTrust weights rumor trust per role. Unknown roles weigh 1.
	RoleTrust map[string]float64
}

// Speakers picks who passes a rumor on in a place. ok is false when nobody
// there has someone to tell.
type Speakers interface {
	Speaker(placeID string) (id, role string, ok bool)
}

type pending struct {
	fireAt float64
	source events.Record
}

// Mill is a log observer. Observe queues and resolves rumors; Tick releases at
// most one rumor per cooldown. Both run on the world goroutine.
type Mill struct {
	cfg      Config
	log      *events.Log
	speakers Speakers
	logger   *log.Logger

	queue      []pending
	lastShared float64
	open       map[string]float64
}

func NewMill(cfg Config, eventLog *events.Log, speakers Speakers) *Mill {
	if cfg.ConfirmWindowSeconds <= 0 {
		cfg.ConfirmWindowSeconds = 180
	}
	if cfg.RoleTrust == nil {
		cfg.RoleTrust = DefaultRoleTrust
	}
	return &Mill{
		cfg:        cfg,
		log:        eventLog,
		speakers:   speakers,
		lastShared: math.Inf(-1),
		open:       map[string]float64{},
	}
}

func (m *Mill) SetLogger(l *log.Logger) { m.logger = l }

func (m *Mill) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}

// Pending is the number of violations still waiting to become rumors.
func (m *Mill) Pending() int { return len(m.queue) }

// Open is the number of shared rumors not yet confirmed or debunked.
func (m *Mill) Open() int { return len(m.open) }

func (m *Mill) Observe(rec events.Record) {
	switch rec.Type {
	case events.ViolationDetected:
		m.queue = append(m.queue, pending{fireAt: rec.Stamp + m.cfg.DelaySeconds, source: rec})
	case events.EvidenceCaptured, events.CctvCaptured, events.TicketIssued:
		m.confirm(rec)
	case events.VerdictGiven:
		m.applyVerdict(rec)
	}
}

// Tick shares the oldest due rumor once the cooldown has passed. A rumor with
// no speaker in its place is dropped.
func (m *Mill) Tick(now float64) {
	if len(m.queue) == 0 || now-m.lastShared < m.cfg.CooldownSeconds {
		return
	}
	head := m.queue[0]
	if head.fireAt > now {
		return
	}
	m.queue = m.queue[1:]
	m.share(head.source, now)
}

func (m *Mill) share(src events.Record, now float64) {
	if m.log == nil || m.speakers == nil {
		return
	}
	id, role, ok := m.speakers.Speaker(src.Place())
	if !ok {
		m.logf("gossip: no listener for %s at %s", src.TopicID, src.Place())
		return
	}
	note := events.Summarize(src)
	if note == "" {
		note = fallbackRumor
	}
	m.log.Append(events.Record{
		Type:      events.RumorShared,
		ActorID:   id,
		ActorRole: role,
		SourceID:  src.ActorID,
		TopicID:   src.TopicID,
		Note:      note,
		Severity:  1,
		Trust:     clamp01(0.45 * m.trust(role)),
		PlaceID:   src.PlaceID,
		ZoneID:    src.ZoneID,
	})
	m.lastShared = now
	m.open[topicKey(src.Place(), src.TopicID)] = now
}

func (m *Mill) confirm(ev events.Record) {
	topic := ev.TopicID
	if topic == "" {
		topic = ev.RuleID
	}
	key := topicKey(ev.Place(), topic)
	at, ok := m.open[key]
	if !ok {
		return
	}
	delete(m.open, key)
	if ev.Stamp-at > m.cfg.ConfirmWindowSeconds {
		return
	}
	m.resolve(ev, events.RumorConfirmed, 2, 0.9, topic)
}

// applyVerdict settles every open rumor. Verdicts name a case rather than a
// place, so they cannot be matched to a single topic. Pending verdicts leave
// rumors open.
func (m *Mill) applyVerdict(v events.Record) {
	if len(m.open) == 0 || m.log == nil {
		return
	}
	var typ events.Type
	switch {
	case v.Severity >= 2:
		typ = events.RumorConfirmed
	case v.Severity == 0:
		typ = events.RumorDebunked
	default:
		return
	}
	m.open = map[string]float64{}
	if typ == events.RumorConfirmed {
		m.resolve(v, typ, 2, 0.95, v.TopicID)
		return
	}
	m.resolve(v, typ, 1, 0.1, v.TopicID)
	m.log.Append(events.Record{
		Type:      events.RebuttalGiven,
		Category:  events.CategoryVerdict,
		ActorID:   v.ActorID,
		ActorRole: v.ActorRole,
		SourceID:  v.ActorID,
		TopicID:   v.TopicID,
		Note:      RebuttalNote,
		Severity:  1,
		PlaceID:   v.PlaceID,
		ZoneID:    v.ZoneID,
	})
}

func (m *Mill) resolve(by events.Record, typ events.Type, severity int, weight float64, topic string) {
	if m.log == nil {
		return
	}
	m.log.Append(events.Record{
		Type:      typ,
		ActorID:   by.ActorID,
		ActorRole: by.ActorRole,
		SourceID:  by.ActorID,
		TopicID:   topic,
		Note:      by.Note,
		Severity:  severity,
		Trust:     clamp01(weight * m.trust(by.ActorRole)),
		PlaceID:   by.PlaceID,
		ZoneID:    by.ZoneID,
		Position:  by.Position,
	})
}

func (m *Mill) trust(role string) float64 {
	w, ok := m.cfg.RoleTrust[role]
	if !ok || role == "" {
		return 1
	}
	return math.Max(0.1, w)
}

func topicKey(place, topic string) string {
	if topic == "" {
		return place
	}
	return place + ":" + topic
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
