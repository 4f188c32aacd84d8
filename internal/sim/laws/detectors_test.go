package laws

import "testing"

func TestIsTriggered(t *testing.T) {
	cases := []struct {
		det  string
		act  SpeechAct
		text string
		want bool
	}{
		{DetSpeechDreamTalk, ActBreak, "", true},
		{DetSpeechDreamTalk, ActComply, "I had a DREAM", true},
		{DetSpeechDreamTalk, ActComply, "자각몽인가?", true},
		{DetSpeechDreamTalk, ActComply, "one coffee please", false},
		{DetSpeechRealityTest, ActBreak, "", false},
		{DetSpeechRealityTest, ActInquire, "let me look in the Mirror", true},
		{DetSpeechRealityTest, ActInquire, "현실 체크 해볼까", true},
		{DetSpeechMetaLogic, ActInquire, "that's impossible", true},
		{DetSpeechMetaLogic, ActInquire, "말이 안 돼", true},
		{DetSpeechTimelineProbe, ActInquire, "what was that earlier?", true},
		{DetSpeechTimelineProbe, ActInquire, "방금 뭐였지", true},
		{"det_speech_meta_logic", ActInquire, "glitch", true},
		{DetProcQueueSkip, ActBreak, "dream glitch", false},
		{"", ActBreak, "dream", false},
		{"DET_NOPE", ActBreak, "dream", false},
	}
	for _, tc := range cases {
		if got := IsTriggered(tc.det, tc.act, tc.text); got != tc.want {
			t.Fatalf("IsTriggered(%s,%s,%q)=%v want %v", tc.det, tc.act, tc.text, got, tc.want)
		}
	}
}

func TestKnownDetector(t *testing.T) {
	for _, id := range []string{DetSpeechDreamTalk, "det_proc_label_tamper", DetAuthorityMismatch} {
		if !KnownDetector(id) {
			t.Fatalf("expected known: %s", id)
		}
	}
	if KnownDetector("break-detector") {
		t.Fatalf("unexpected known detector")
	}
}

func TestParseSpeechAct(t *testing.T) {
	cases := map[string]SpeechAct{"Break": ActBreak, "SA_COMPLY": ActComply, " inquire ": ActInquire, "frame": ActFrame}
	for in, want := range cases {
		got, err := ParseSpeechAct(in)
		if err != nil || got != want {
			t.Fatalf("ParseSpeechAct(%q)=%q,%v want %q", in, got, err, want)
		}
	}
	if _, err := ParseSpeechAct("shout"); err == nil {
		t.Fatalf("expected error")
	}
}
