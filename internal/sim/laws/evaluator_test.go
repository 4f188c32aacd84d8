package laws

import (
	"math"
	"reflect"
	"testing"

	"dreamofone.ai/internal/sim/catalogs"
)

func law(id string, severity float64, susp, expo int, dets ...string) catalogs.LawDef {
	return catalogs.LawDef{
		ID:             id,
		Scope:          catalogs.LawScope{Kind: catalogs.ScopeGlobal},
		Severity:       severity,
		SuspicionDelta: susp,
		ExposureDelta:  expo,
		DetectorIDs:    dets,
	}
}

func placeLaw(id, place string, dets ...string) catalogs.LawDef {
	l := law(id, 0.5, 5, 5, dets...)
	l.Scope = catalogs.LawScope{Kind: catalogs.ScopePlace, PlaceID: place}
	return l
}

func TestEvaluate_BreakAlwaysFiresDreamTalk(t *testing.T) {
	defs := []catalogs.LawDef{law("DL_G1", 0.9, 10, 25, DetSpeechDreamTalk)}
	for _, text := range []string{"", "where is the queue?", "lovely day"} {
		hits := Evaluate(defs, ActBreak, text, "Park")
		if len(hits) != 1 {
			t.Fatalf("text=%q: hits=%d want 1", text, len(hits))
		}
		h := hits[0]
		if h.Severity != 3 || h.DetectorID != DetSpeechDreamTalk || h.Law.ID != "DL_G1" {
			t.Fatalf("unexpected hit: %+v", h)
		}
	}
	if hits := Evaluate(defs, ActComply, "lovely day", "Park"); len(hits) != 0 {
		t.Fatalf("Comply without keywords should not fire: %+v", hits)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	defs := []catalogs.LawDef{
		law("DL_G1_NO_DREAM_TALK", 0.9, 10, 25, DetSpeechDreamTalk),
		law("DL_G3", 0.6, 6, 10, DetSpeechMetaLogic),
		placeLaw("DL_S1", "Store", DetSpeechTimelineProbe),
	}
	first := Evaluate(defs, ActInquire, "Is this a dream or a glitch? It happened just now.", "store")
	for i := 0; i < 20; i++ {
		again := Evaluate(defs, ActInquire, "Is this a dream or a glitch? It happened just now.", "store")
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\n%+v\n%+v", i, first, again)
		}
	}
	if len(first) != 3 {
		t.Fatalf("hits=%d want 3", len(first))
	}
}

func TestEvaluate_LawOrderNotSeverityOrder(t *testing.T) {
	defs := []catalogs.LawDef{
		law("LOW", 0.1, 1, 1, DetSpeechMetaLogic),
		law("HIGH", 0.95, 9, 9, DetSpeechDreamTalk, DetSpeechMetaLogic),
	}
	hits := Evaluate(defs, ActInquire, "a glitch in the dream", "")
	if len(hits) != 2 || hits[0].Law.ID != "LOW" || hits[1].Law.ID != "HIGH" {
		t.Fatalf("unexpected order: %+v", hits)
	}
	if hits[1].DetectorID != DetSpeechDreamTalk {
		t.Fatalf("first declared detector should win, got %s", hits[1].DetectorID)
	}
}

func TestEvaluate_FirstDetectorInDeclaredOrder(t *testing.T) {
	defs := []catalogs.LawDef{law("L", 0.5, 1, 1, DetSpeechTimelineProbe, DetSpeechMetaLogic)}
	hits := Evaluate(defs, ActInquire, "that bug just now", "")
	if len(hits) != 1 || hits[0].DetectorID != DetSpeechTimelineProbe {
		t.Fatalf("unexpected: %+v", hits)
	}
}

func TestEvaluate_Scope(t *testing.T) {
	defs := []catalogs.LawDef{
		placeLaw("STORE_ONLY", "Store", DetSpeechMetaLogic),
		law("GLOBAL", 0.5, 1, 1, DetSpeechMetaLogic),
	}
	cases := []struct {
		place string
		want  []string
	}{
		{"Store", []string{"STORE_ONLY", "GLOBAL"}},
		{"sToRe", []string{"STORE_ONLY", "GLOBAL"}},
		{"Station", []string{"GLOBAL"}},
		{"", []string{"GLOBAL"}},
		{"Stores", []string{"GLOBAL"}},
	}
	for _, tc := range cases {
		var got []string
		for _, h := range Evaluate(defs, ActInquire, "glitch", tc.place) {
			got = append(got, h.Law.ID)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("place=%q got %v want %v", tc.place, got, tc.want)
		}
	}
}

func TestEvaluate_StationMultiplier(t *testing.T) {
	defs := []catalogs.LawDef{
		law("DL_G1_NO_DREAM_TALK", 0.9, 5, 25, DetSpeechDreamTalk),
		law("dl_g2_no_reality_test", 0.7, 7, 3, DetSpeechRealityTest),
		law("DL_G3_NO_META_LOGIC", 0.6, 6, 11, DetSpeechMetaLogic),
	}
	text := "dream mirror glitch"

	for _, place := range []string{"Station", "station"} {
		hits := Evaluate(defs, ActInquire, text, place)
		if len(hits) != 3 {
			t.Fatalf("hits=%d", len(hits))
		}
		for _, h := range hits[:2] {
			if !h.Multiplied {
				t.Fatalf("%s should be multiplied at %s", h.Law.ID, place)
			}
			wantS := int(math.RoundToEven(float64(h.Law.SuspicionDelta) * 1.5))
			wantE := int(math.RoundToEven(float64(h.Law.ExposureDelta) * 1.5))
			if h.SuspicionDelta != wantS || h.ExposureDelta != wantE {
				t.Fatalf("%s deltas=(%d,%d) want (%d,%d)", h.Law.ID, h.SuspicionDelta, h.ExposureDelta, wantS, wantE)
			}
		}
		if hits[2].Multiplied || hits[2].SuspicionDelta != 6 || hits[2].ExposureDelta != 11 {
			t.Fatalf("non-weighted law changed: %+v", hits[2])
		}
	}

	for _, h := range Evaluate(defs, ActInquire, text, "Park") {
		if h.Multiplied || h.SuspicionDelta != h.Law.SuspicionDelta || h.ExposureDelta != h.Law.ExposureDelta {
			t.Fatalf("multiplier applied outside station: %+v", h)
		}
	}
}

func TestEvaluate_StationRoundsHalfToEven(t *testing.T) {
	defs := []catalogs.LawDef{
		law("DL_G1_NO_DREAM_TALK", 0.9, 5, 25, DetSpeechDreamTalk),
		law("DL_G2_NO_REALITY_TEST", 0.7, 3, 15, DetSpeechRealityTest),
	}
	hits := Evaluate(defs, ActInquire, "dream mirror", StationPlace)
	if len(hits) != 2 {
		t.Fatalf("hits=%d want 2", len(hits))
	}
	// 7.5 -> 8, 37.5 -> 38, 4.5 -> 4, 22.5 -> 22
	got := [][2]int{{hits[0].SuspicionDelta, hits[0].ExposureDelta}, {hits[1].SuspicionDelta, hits[1].ExposureDelta}}
	want := [][2]int{{8, 38}, {4, 22}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("deltas=%v want %v", got, want)
	}
}

// One utterance may trip several laws at once and each hit carries full
// deltas. There is no per-tick cap.
func TestEvaluate_MultipleLawsStackIndependently(t *testing.T) {
	defs := []catalogs.LawDef{
		law("DL_G1_NO_DREAM_TALK", 0.9, 10, 25, DetSpeechDreamTalk),
		law("DL_G1_COPY", 0.9, 10, 25, DetSpeechDreamTalk),
		law("DL_G2_NO_REALITY_TEST", 0.7, 8, 15, DetSpeechRealityTest, DetSpeechDreamTalk),
	}
	hits := Evaluate(defs, ActBreak, "", StationPlace)
	if len(hits) != 3 {
		t.Fatalf("hits=%d want 3", len(hits))
	}
	total := 0
	for _, h := range hits {
		total += h.SuspicionDelta
	}
	if total != 15+10+12 {
		t.Fatalf("total suspicion=%d want 37", total)
	}
}

func TestSeverityTier(t *testing.T) {
	cases := map[float64]int{1: 3, 0.85: 3, 0.84: 2, 0.55: 2, 0.54: 1, 0.01: 1, 0: 0, -1: 0}
	for in, want := range cases {
		if got := SeverityTier(in); got != want {
			t.Fatalf("SeverityTier(%v)=%d want %d", in, got, want)
		}
	}
}

func TestEvaluate_NoLaws(t *testing.T) {
	if hits := Evaluate(nil, ActBreak, "dream", ""); len(hits) != 0 {
		t.Fatalf("expected no hits")
	}
}
