package laws

import "strings"

const (
	DetSpeechDreamTalk     = "DET_SPEECH_DREAM_TALK"
	DetSpeechRealityTest   = "DET_SPEECH_REALITY_TEST"
	DetSpeechMetaLogic     = "DET_SPEECH_META_LOGIC"
	DetSpeechTimelineProbe = "DET_SPEECH_TIMELINE_PROBE"

	// Procedural detectors are fed by task events, never by speech.
	DetProcQueueSkip         = "DET_PROC_QUEUE_SKIP"
	DetProcLabelTamper       = "DET_PROC_LABEL_TAMPER"
	DetProcRCBeforeApproval  = "DET_PROC_RC_BEFORE_APPROVAL"
	DetProcUnauthorizedPhoto = "DET_PROC_UNAUTHORIZED_PHOTO"
	DetRepeatLoop            = "DET_REPEAT_LOOP"
	DetAuthorityMismatch     = "DET_AUTHORITY_MISMATCH"
)

var keywordSets = map[string][]string{
	DetSpeechDreamTalk: {
		"꿈", "자각", "자각몽", "깨어", "깨면", "루시드", "시뮬레이션",
		"dream", "lucid", "wake up", "simulation",
	},
	DetSpeechRealityTest: {
		"현실체크", "현실 체크", "테스트", "확인해보자", "거울", "손가락", "호흡", "시간이",
		"reality check", "test this", "mirror", "finger",
	},
	DetSpeechMetaLogic: {
		"버그", "모순", "말이 안", "이상해",
		"bug", "glitch", "contradiction", "impossible",
	},
	DetSpeechTimelineProbe: {
		"방금", "아까",
		"just now", "a moment ago", "earlier",
	},
}

var knownDetectors = map[string]struct{}{
	DetSpeechDreamTalk:       {},
	DetSpeechRealityTest:     {},
	DetSpeechMetaLogic:       {},
	DetSpeechTimelineProbe:   {},
	DetProcQueueSkip:         {},
	DetProcLabelTamper:       {},
	DetProcRCBeforeApproval:  {},
	DetProcUnauthorizedPhoto: {},
	DetRepeatLoop:            {},
	DetAuthorityMismatch:     {},
}

// KnownDetector reports whether id names a detector, ignoring case.
func KnownDetector(id string) bool {
	_, ok := knownDetectors[strings.ToUpper(strings.TrimSpace(id))]
	return ok
}

// IsTriggered evaluates one detector. Break always trips the dream-talk
// detector; everything else is keyword containment.
func IsTriggered(detectorID string, act SpeechAct, utterance string) bool {
	id := strings.ToUpper(strings.TrimSpace(detectorID))
	if id == "" {
		return false
	}
	if id == DetSpeechDreamTalk && act == ActBreak {
		return true
	}
	kws, ok := keywordSets[id]
	if !ok {
		return false
	}
	return containsAny(utterance, kws)
}

func containsAny(text string, keywords []string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
