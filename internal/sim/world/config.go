package world

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"dreamofone.ai/internal/sim/catalogs"
	"dreamofone.ai/internal/sim/events"
	"dreamofone.ai/internal/sim/tuning"
)

const PlayerID = "PLAYER"

type AnchorDef struct {
	Pos   events.Vec3 `yaml:"pos" json:"pos"`
	Place string      `yaml:"place" json:"place"`
}

type AgentDef struct {
	ID        string `yaml:"id" json:"id"`
	Role      string `yaml:"role" json:"role"`
	Place     string `yaml:"place" json:"place"`
	Planner   bool   `yaml:"planner" json:"planner"`
	Navigates bool   `yaml:"navigates" json:"navigates"`
}

// Roster is the starting cast and the named anchors agents can walk to.
type Roster struct {
	Anchors map[string]AnchorDef `yaml:"anchors" json:"anchors"`
	Agents  []AgentDef           `yaml:"agents" json:"agents"`
}

func LoadRoster(path string) (Roster, error) {
	var r Roster
	raw, err := os.ReadFile(path)
	if err != nil {
		return r, err
	}
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return r, fmt.Errorf("world.yaml: %w", err)
	}
	seen := map[string]bool{}
	for _, a := range r.Agents {
		if a.ID == "" {
			return r, fmt.Errorf("world.yaml: agent without id")
		}
		if seen[a.ID] {
			return r, fmt.Errorf("world.yaml: duplicate agent %q", a.ID)
		}
		seen[a.ID] = true
	}
	return r, nil
}

type Config struct {
	SessionID string
	Tuning    tuning.Tuning
	Catalogs  *catalogs.Catalogs
	Roster    Roster
	// WalkSpeed is in world units per second.
	WalkSpeed float64
}
