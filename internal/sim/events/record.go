package events

// Vec3 is a world-space position.
type Vec3 [3]float64

// Record is one fact in the world event log. Records are values: once appended
// the log hands out copies and never changes the stored one.
type Record struct {
	ID        string   `json:"id"`
	Stamp     float64  `json:"stamp"`
	Type      Type     `json:"event_type"`
	Category  Category `json:"category"`
	ActorID   string   `json:"actor_id,omitempty"`
	ActorRole string   `json:"actor_role,omitempty"`
	TargetID  string   `json:"target_id,omitempty"`
	RuleID    string   `json:"rule_id,omitempty"`
	SourceID  string   `json:"source_id,omitempty"`
	TopicID   string   `json:"topic,omitempty"`
	Note      string   `json:"note,omitempty"`
	Severity  int      `json:"severity"`
	Trust     float64  `json:"trust"`
	Delta     int      `json:"delta"`
	PlaceID   string   `json:"place_id,omitempty"`
	ZoneID    string   `json:"zone_id,omitempty"`
	Position  Vec3     `json:"pos"`
}

// Place returns the place id, or the zone id when no place is set.
func (r Record) Place() string {
	if r.PlaceID != "" {
		return r.PlaceID
	}
	return r.ZoneID
}
