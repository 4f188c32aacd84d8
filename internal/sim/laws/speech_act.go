package laws

import (
	"fmt"
	"strings"
)

// SpeechAct is the declared intent class of an utterance.
type SpeechAct string

const (
	ActComply  SpeechAct = "Comply"
	ActInquire SpeechAct = "Inquire"
	ActFrame   SpeechAct = "Frame"
	ActBreak   SpeechAct = "Break"
)

// ParseSpeechAct accepts the act names case-insensitively, with or without the
// SA_ prefix used by clients ("SA_COMPLY").
func ParseSpeechAct(s string) (SpeechAct, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, "sa_")
	switch v {
	case "comply":
		return ActComply, nil
	case "inquire":
		return ActInquire, nil
	case "frame":
		return ActFrame, nil
	case "break":
		return ActBreak, nil
	}
	return "", fmt.Errorf("unknown speech act %q", s)
}
