package catalogs

import (
	"fmt"
	"strings"
)

// Validate reports definition problems. knownDetector may be nil to skip
// detector checks.
func (c *Catalogs) Validate(knownDetector func(id string) bool) []string {
	var issues []string
	add := func(format string, args ...any) { issues = append(issues, fmt.Sprintf(format, args...)) }

	for _, id := range c.Laws.Duplicates() {
		add("laws: duplicate id %q ignored", id)
	}
	for _, id := range c.Roles.Duplicates() {
		add("roles: duplicate id %q ignored", id)
	}
	for _, id := range c.Skills.Duplicates() {
		add("skills: duplicate id %q ignored", id)
	}
	for _, id := range c.TextSurfaces.Duplicates() {
		add("text_surfaces: duplicate id %q ignored", id)
	}

	for i, l := range c.Laws.All() {
		if strings.TrimSpace(l.ID) == "" {
			add("laws[%d]: empty id", i)
		}
		if l.Severity < 0 || l.Severity > 1 {
			add("law %s: severity %.2f outside [0,1]", l.ID, l.Severity)
		}
		switch ScopeKind(strings.ToLower(string(l.Scope.Kind))) {
		case ScopeGlobal, "":
		case ScopePlace:
			if strings.TrimSpace(l.Scope.PlaceID) == "" {
				add("law %s: place scope without place_id", l.ID)
			}
		default:
			add("law %s: unknown scope kind %q", l.ID, l.Scope.Kind)
		}
		if len(l.DetectorIDs) == 0 {
			add("law %s: no detectors", l.ID)
		}
		if knownDetector != nil {
			for _, d := range l.DetectorIDs {
				if !knownDetector(d) {
					add("law %s: unknown detector %q", l.ID, d)
				}
			}
		}
	}

	if c.Skills.Len() > 0 {
		for _, r := range c.Roles.All() {
			for _, s := range r.AllowedSkills {
				if _, ok := c.Skills.TryGet(s); !ok {
					add("role %s: unknown skill %q", r.ID, s)
				}
			}
		}
	}

	for _, ts := range c.TextSurfaces.All() {
		for _, lawID := range ts.LawIDs {
			if _, ok := c.Laws.TryGet(lawID); !ok {
				add("text surface %s: unknown law %q", ts.ID, lawID)
			}
		}
	}
	return issues
}
