// Package laws maps speech acts onto dream-law violations. Everything here is
// pure: the same inputs always produce the same ordered hits.
package laws

import (
	"math"
	"strings"

	"dreamofone.ai/internal/sim/catalogs"
)

const (
	StationPlace      = "Station"
	StationMultiplier = 1.5
)

var stationWeighted = map[string]struct{}{
	"DL_G1_NO_DREAM_TALK":   {},
	"DL_G2_NO_REALITY_TEST": {},
}

// Hit is one law matched by the first detector that fired.
type Hit struct {
	Law            catalogs.LawDef
	DetectorID     string
	SuspicionDelta int
	ExposureDelta  int
	Severity       int
	Multiplied     bool
}

// Evaluate returns at most one hit per law, in law declaration order.
func Evaluate(defs []catalogs.LawDef, act SpeechAct, utterance, placeID string) []Hit {
	var hits []Hit
	for _, law := range defs {
		if !inScope(law, placeID) {
			continue
		}
		det := firstTriggered(law, act, utterance)
		if det == "" {
			continue
		}
		boost := isStation(placeID) && isStationWeighted(law.ID)
		mult := 1.0
		if boost {
			mult = StationMultiplier
		}
		hits = append(hits, Hit{
			Law:            law,
			DetectorID:     det,
			SuspicionDelta: scaled(law.SuspicionDelta, mult),
			ExposureDelta:  scaled(law.ExposureDelta, mult),
			Severity:       SeverityTier(law.Severity),
			Multiplied:     boost,
		})
	}
	return hits
}

// scaled rounds half to even, so 15 x1.5 gives 22.
func scaled(base int, mult float64) int {
	return int(math.RoundToEven(float64(base) * mult))
}

// SeverityTier buckets a continuous [0,1] severity into event severity 0..3.
func SeverityTier(severity float64) int {
	switch {
	case severity >= 0.85:
		return 3
	case severity >= 0.55:
		return 2
	case severity > 0:
		return 1
	default:
		return 0
	}
}

func inScope(law catalogs.LawDef, placeID string) bool {
	if !law.PlaceBound() {
		return true
	}
	return law.Scope.PlaceID != "" && placeID != "" && strings.EqualFold(law.Scope.PlaceID, placeID)
}

func firstTriggered(law catalogs.LawDef, act SpeechAct, utterance string) string {
	for _, id := range law.DetectorIDs {
		if IsTriggered(id, act, utterance) {
			return id
		}
	}
	return ""
}

func isStation(placeID string) bool { return strings.EqualFold(placeID, StationPlace) }

func isStationWeighted(lawID string) bool {
	_, ok := stationWeighted[strings.ToUpper(lawID)]
	return ok
}
