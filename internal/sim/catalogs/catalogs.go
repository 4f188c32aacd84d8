package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Catalogs struct {
	Laws         Table[LawDef]
	Roles        Table[RoleDef]
	Skills       Table[SkillDef]
	TextSurfaces Table[TextSurfaceDef]
}

type ScopeKind string

const (
	ScopeGlobal ScopeKind = "global"
	ScopePlace  ScopeKind = "place"
)

type LawScope struct {
	Kind    ScopeKind `yaml:"kind" json:"kind"`
	PlaceID string    `yaml:"place_id,omitempty" json:"place_id,omitempty"`
}

// LawDef is one dream law. Severity is in [0,1]; deltas are pre-multiplier.
type LawDef struct {
	ID             string   `yaml:"id" json:"id"`
	Category       string   `yaml:"category" json:"category"`
	Scope          LawScope `yaml:"scope" json:"scope"`
	Severity       float64  `yaml:"severity" json:"severity"`
	SuspicionDelta int      `yaml:"suspicion_delta" json:"suspicion_delta"`
	ExposureDelta  int      `yaml:"exposure_delta" json:"exposure_delta"`
	DetectorIDs    []string `yaml:"detectors" json:"detectors"`
	CanonicalLine  string   `yaml:"canonical_line" json:"canonical_line,omitempty"`
	EvidencePolicy string   `yaml:"evidence_policy,omitempty" json:"evidence_policy,omitempty"`
	DefuseHints    string   `yaml:"defuse_hints,omitempty" json:"defuse_hints,omitempty"`
}

// PlaceBound reports whether the law only applies inside one place.
func (l LawDef) PlaceBound() bool {
	return strings.EqualFold(string(l.Scope.Kind), string(ScopePlace))
}

type RoleDef struct {
	ID            string   `yaml:"id" json:"id"`
	Organization  string   `yaml:"organization,omitempty" json:"organization,omitempty"`
	Description   string   `yaml:"description,omitempty" json:"description,omitempty"`
	AllowedSkills []string `yaml:"skills" json:"skills"`
	IdleLines     []string `yaml:"idle_lines,omitempty" json:"idle_lines,omitempty"`
}

type SkillDef struct {
	ID              string   `yaml:"id" json:"id"`
	DisplayName     string   `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	Description     string   `yaml:"description,omitempty" json:"description,omitempty"`
	CooldownSeconds float64  `yaml:"cooldown_seconds,omitempty" json:"cooldown_seconds,omitempty"`
	Params          []string `yaml:"params,omitempty" json:"params,omitempty"`
}

type TextSurfaceDef struct {
	ID         string   `yaml:"id" json:"id"`
	Kind       string   `yaml:"kind,omitempty" json:"kind,omitempty"`
	AnchorName string   `yaml:"anchor,omitempty" json:"anchor,omitempty"`
	Prompt     string   `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Text       string   `yaml:"text" json:"text"`
	LawIDs     []string `yaml:"laws,omitempty" json:"laws,omitempty"`
	PlaceID    string   `yaml:"place_id,omitempty" json:"place_id,omitempty"`
}

// Load reads every catalog file from configDir. Missing files yield empty tables.
func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	var laws struct {
		Laws []LawDef `yaml:"laws"`
	}
	digest, err := loadYAML(filepath.Join(configDir, "laws.yaml"), &laws)
	if err != nil {
		return nil, err
	}
	c.Laws = newTable(laws.Laws, func(l LawDef) string { return l.ID })
	c.Laws.Digest = digest

	var roles struct {
		Roles []RoleDef `yaml:"roles"`
	}
	if digest, err = loadYAML(filepath.Join(configDir, "roles.yaml"), &roles); err != nil {
		return nil, err
	}
	c.Roles = newTable(roles.Roles, func(r RoleDef) string { return r.ID })
	c.Roles.Digest = digest

	var skills struct {
		Skills []SkillDef `yaml:"skills"`
	}
	if digest, err = loadYAML(filepath.Join(configDir, "skills.yaml"), &skills); err != nil {
		return nil, err
	}
	c.Skills = newTable(skills.Skills, func(s SkillDef) string { return s.ID })
	c.Skills.Digest = digest

	var surfaces struct {
		Surfaces []TextSurfaceDef `yaml:"text_surfaces"`
	}
	if digest, err = loadYAML(filepath.Join(configDir, "text_surfaces.yaml"), &surfaces); err != nil {
		return nil, err
	}
	c.TextSurfaces = newTable(surfaces.Surfaces, func(s TextSurfaceDef) string { return s.ID })
	c.TextSurfaces.Digest = digest

	return &c, nil
}

// New builds catalogs from in-memory definitions.
func New(laws []LawDef, roles []RoleDef, skills []SkillDef, surfaces []TextSurfaceDef) *Catalogs {
	return &Catalogs{
		Laws:         newTable(laws, func(l LawDef) string { return l.ID }),
		Roles:        newTable(roles, func(r RoleDef) string { return r.ID }),
		Skills:       newTable(skills, func(s SkillDef) string { return s.ID }),
		TextSurfaces: newTable(surfaces, func(s TextSurfaceDef) string { return s.ID }),
	}
}

// Digests maps catalog names to content digests.
func (c *Catalogs) Digests() map[string]string {
	return map[string]string{
		"laws":          c.Laws.Digest,
		"roles":         c.Roles.Digest,
		"skills":        c.Skills.Digest,
		"text_surfaces": c.TextSurfaces.Digest,
	}
}

func loadYAML(path string, out any) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sha256Hex(nil), nil
		}
		return "", err
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return sha256Hex(raw), nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
