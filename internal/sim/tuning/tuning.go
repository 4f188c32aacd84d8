package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz       int `yaml:"tick_rate_hz" json:"tick_rate_hz"`
	EventLogCapacity int `yaml:"event_log_capacity" json:"event_log_capacity"`

	Suspicion SuspicionTuning `yaml:"suspicion" json:"suspicion"`
	Exposure  ExposureTuning  `yaml:"exposure" json:"exposure"`
	Reports   ReportTuning    `yaml:"reports" json:"reports"`
	Session   SessionTuning   `yaml:"session" json:"session"`
	Casework  CaseworkTuning  `yaml:"casework" json:"casework"`
	Gossip    GossipTuning    `yaml:"gossip" json:"gossip"`
	Planning  PlanningTuning  `yaml:"planning" json:"planning"`
	Planner   PlannerTuning   `yaml:"planner" json:"planner"`
}

type SuspicionTuning struct {
	Max                   float64            `yaml:"max" json:"max"`
	DecayPerSecond        float64            `yaml:"decay_per_second" json:"decay_per_second"`
	ReportThreshold       float64            `yaml:"report_threshold" json:"report_threshold"`
	ReportCooldownSeconds float64            `yaml:"report_cooldown_seconds" json:"report_cooldown_seconds"`
	DefaultDelta          float64            `yaml:"default_delta" json:"default_delta"`
	RuleDeltas            map[string]float64 `yaml:"rule_deltas,omitempty" json:"rule_deltas,omitempty"`
	SamePlaceOnly         bool               `yaml:"same_place_only" json:"same_place_only"`
}

type ExposureTuning struct {
	Max         int  `yaml:"max" json:"max"`
	Attention   int  `yaml:"attention" json:"attention"`
	Exposed     int  `yaml:"exposed" json:"exposed"`
	NoiseDelta  int  `yaml:"noise_delta" json:"noise_delta"`
	EndsSession bool `yaml:"ends_session" json:"ends_session"`
}

type ReportTuning struct {
	MinReporters       int     `yaml:"min_reporters" json:"min_reporters"`
	WindowSeconds      float64 `yaml:"window_seconds" json:"window_seconds"`
	CooldownSeconds    float64 `yaml:"cooldown_seconds" json:"cooldown_seconds"`
	MaxAttachedEvents  int     `yaml:"max_attached_events" json:"max_attached_events"`
	MinGlobalSuspicion float64 `yaml:"min_global_suspicion" json:"min_global_suspicion"`
}

type SessionTuning struct {
	DurationSeconds float64 `yaml:"duration_seconds" json:"duration_seconds"`
	SuspicionEndsAt float64 `yaml:"suspicion_ends_at" json:"suspicion_ends_at"`
	EndOnVerdict    bool    `yaml:"end_on_verdict" json:"end_on_verdict"`
}

type CaseworkTuning struct {
	InterrogationSeconds float64 `yaml:"interrogation_seconds" json:"interrogation_seconds"`
	OfficerID            string  `yaml:"officer_id" json:"officer_id"`
	SuspectID            string  `yaml:"suspect_id" json:"suspect_id"`
	LookbackEvents       int     `yaml:"lookback_events" json:"lookback_events"`
}

type GossipTuning struct {
	DelaySeconds         float64            `yaml:"delay_seconds" json:"delay_seconds"`
	CooldownSeconds      float64            `yaml:"cooldown_seconds" json:"cooldown_seconds"`
	ConfirmWindowSeconds float64            `yaml:"confirm_window_seconds" json:"confirm_window_seconds"`
	RoleTrust            map[string]float64 `yaml:"role_trust,omitempty" json:"role_trust,omitempty"`
}

type PlanningTuning struct {
	Enabled            bool    `yaml:"enabled" json:"enabled"`
	IntervalSeconds    float64 `yaml:"interval_seconds" json:"interval_seconds"`
	JitterSeconds      float64 `yaml:"jitter_seconds" json:"jitter_seconds"`
	ObserveEvents      int     `yaml:"observe_events" json:"observe_events"`
	MemoryCapacity     int     `yaml:"memory_capacity" json:"memory_capacity"`
	MemorySummaryLines int     `yaml:"memory_summary_lines" json:"memory_summary_lines"`
	MaxActions         int     `yaml:"max_actions" json:"max_actions"`
	SpeakCooldownSecs  float64 `yaml:"speak_cooldown_seconds" json:"speak_cooldown_seconds"`
	FallbackChance     float64 `yaml:"fallback_chance" json:"fallback_chance"`
	Seed               int64   `yaml:"seed" json:"seed"`
}

type PlannerTuning struct {
	Endpoint       string  `yaml:"endpoint" json:"endpoint"`
	Model          string  `yaml:"model" json:"model"`
	TimeoutSeconds float64 `yaml:"timeout_seconds" json:"timeout_seconds"`
	MaxTokens      int     `yaml:"max_tokens" json:"max_tokens"`
	Temperature    float64 `yaml:"temperature" json:"temperature"`
	MaxPerMinute   int     `yaml:"max_per_minute" json:"max_per_minute"`
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:       5,
		EventLogCapacity: 512,
		Suspicion: SuspicionTuning{
			Max:                   100,
			DecayPerSecond:        0.5,
			ReportThreshold:       50,
			ReportCooldownSeconds: 20,
			DefaultDelta:          20,
			SamePlaceOnly:         true,
		},
		Exposure: ExposureTuning{
			Max:         100,
			Attention:   60,
			Exposed:     100,
			NoiseDelta:  2,
			EndsSession: true,
		},
		Reports: ReportTuning{
			MinReporters:       2,
			WindowSeconds:      45,
			CooldownSeconds:    20,
			MaxAttachedEvents:  3,
			MinGlobalSuspicion: 0.3,
		},
		Session: SessionTuning{
			DurationSeconds: 12 * 60,
			SuspicionEndsAt: 0.65,
			EndOnVerdict:    true,
		},
		Casework: CaseworkTuning{
			InterrogationSeconds: 8,
			OfficerID:            "Police",
			SuspectID:            "PLAYER",
			LookbackEvents:       64,
		},
		Gossip: GossipTuning{
			DelaySeconds:         2,
			CooldownSeconds:      8,
			ConfirmWindowSeconds: 180,
		},
		Planning: PlanningTuning{
			Enabled:            true,
			IntervalSeconds:    7,
			JitterSeconds:      2,
			ObserveEvents:      8,
			MemoryCapacity:     12,
			MemorySummaryLines: 6,
			MaxActions:         2,
			SpeakCooldownSecs:  6,
			FallbackChance:     0.35,
			Seed:               1,
		},
		Planner: PlannerTuning{
			Model:          "claude-haiku-4-5-20251001",
			TimeoutSeconds: 6,
			MaxTokens:      220,
			Temperature:    0.5,
			MaxPerMinute:   20,
		},
	}
}

// Load reads path over Defaults so a partial file only overrides what it names.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.TickRateHz <= 0 || t.TickRateHz > 60:
		return fmt.Errorf("tick_rate_hz must be in 1..60, got %d", t.TickRateHz)
	case t.Suspicion.Max <= 0:
		return fmt.Errorf("suspicion.max must be > 0")
	case t.Suspicion.ReportThreshold <= 0 || t.Suspicion.ReportThreshold > t.Suspicion.Max:
		return fmt.Errorf("suspicion.report_threshold must be in (0, max]")
	case t.Exposure.Max <= 0 || t.Exposure.Attention > t.Exposure.Max:
		return fmt.Errorf("exposure.attention must not exceed exposure.max")
	case t.Reports.MinReporters < 1:
		return fmt.Errorf("reports.min_reporters must be >= 1")
	case t.Gossip.DelaySeconds < 0 || t.Gossip.CooldownSeconds < 0:
		return fmt.Errorf("gossip delays must be >= 0")
	case t.Planning.MaxActions < 0 || t.Planning.MaxActions > 2:
		return fmt.Errorf("planning.max_actions must be in 0..2")
	}
	return nil
}
