package suspicion

import (
	"fmt"

	"dreamofone.ai/internal/sim/events"
)

const NoiseSource = "NOISE"

type ExposureConfig struct {
	Max        int
	Attention  int
	Exposed    int
	NoiseDelta int
}

// Meter is the session-wide exposure scalar in [0, Max].
type Meter struct {
	cfg   ExposureConfig
	log   *events.Log
	value int
}

func NewMeter(cfg ExposureConfig, eventLog *events.Log) *Meter {
	if cfg.Max <= 0 {
		cfg.Max = 100
	}
	if cfg.Exposed <= 0 || cfg.Exposed > cfg.Max {
		cfg.Exposed = cfg.Max
	}
	return &Meter{cfg: cfg, log: eventLog}
}

// AddExposure implements violation.ExposureSink.
func (m *Meter) AddExposure(delta int, actorID, placeID, ruleID, detectorID string) {
	if delta == 0 {
		return
	}
	m.value += delta
	if m.value < 0 {
		m.value = 0
	}
	if m.value > m.cfg.Max {
		m.value = m.cfg.Max
	}
	if m.log == nil {
		return
	}
	sev := 1
	if m.value >= m.cfg.Attention {
		sev = 2
	}
	m.log.Append(events.Record{
		Type:     events.ExposureUpdated,
		ActorID:  actorID,
		RuleID:   ruleID,
		SourceID: detectorID,
		Note:     fmt.Sprintf("%d", m.value),
		Severity: sev,
		Delta:    delta,
		PlaceID:  placeID,
	})
}

// Observe turns ambient noise complaints into exposure.
func (m *Meter) Observe(rec events.Record) {
	if rec.Type != events.NoiseObserved || m.cfg.NoiseDelta == 0 {
		return
	}
	m.AddExposure(m.cfg.NoiseDelta, rec.ActorID, rec.Place(), rec.RuleID, NoiseSource)
}

func (m *Meter) Value() int { return m.value }

func (m *Meter) Normalized() float64 { return float64(m.value) / float64(m.cfg.Max) }

func (m *Meter) Attention() bool { return m.value >= m.cfg.Attention }

func (m *Meter) Exposed() bool { return m.value >= m.cfg.Exposed }

func (m *Meter) Reset() { m.value = 0 }
