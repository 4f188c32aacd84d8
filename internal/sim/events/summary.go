package events

import (
	"strings"
	"unicode/utf8"
)

const SummaryMaxRunes = 80

// Summarize renders a record as one short line of plain text.
func Summarize(r Record) string {
	var b strings.Builder
	withPlace := true
	withNote := true

	switch r.Type {
	case EnteredZone:
		b.WriteString(r.ActorID + " entered " + r.ZoneID + ".")
	case ExitedZone:
		b.WriteString(r.ActorID + " left " + r.ZoneID + ".")
	case ViolationDetected:
		b.WriteString(r.ActorID + " flagged " + r.RuleID + ".")
		withNote = false
	case SuspicionUpdated:
		b.WriteString(r.ActorID + " suspicion: " + r.Note)
		withNote = false
	case ReportFiled:
		b.WriteString(r.ActorID + " filed a report on " + r.RuleID + ".")
		withNote = false
	case InterrogationStarted:
		b.WriteString("Interrogation started.")
	case VerdictGiven:
		b.WriteString("Verdict: " + r.Note)
		withNote = false
	case StatementGiven:
		b.WriteString("Statement: " + r.Note)
		withNote = false
	case ExplanationGiven:
		b.WriteString("Explanation: " + r.Note)
		withNote = false
	case RebuttalGiven:
		b.WriteString("Rebuttal: " + r.Note)
		withNote = false
	case NpcUtterance:
		b.WriteString(r.ActorID + ": " + r.Note)
		withPlace = false
		withNote = false
	case RumorShared:
		b.WriteString("Rumor: " + r.Note)
		withNote = false
	case RumorConfirmed:
		b.WriteString("Rumor confirmed: " + r.Note)
		withNote = false
	case RumorDebunked:
		b.WriteString("Rumor debunked: " + r.Note)
		withNote = false
	case ExposureUpdated:
		b.WriteString("Exposure " + r.Note)
		withNote = false
	default:
		if label, ok := procedureLabels[r.Type]; ok {
			b.WriteString(label + ": " + r.Note)
			withNote = false
			break
		}
		b.WriteString(string(r.Type) + " event")
		withPlace = false
	}

	if withPlace {
		if p := r.Place(); p != "" {
			b.WriteString(" [" + p + "]")
		}
	}
	if withNote && r.Note != "" {
		b.WriteString(" (" + r.Note + ")")
	}
	return ClampLine(b.String(), SummaryMaxRunes)
}

var procedureLabels = map[Type]string{
	EvidenceCaptured: "Evidence",
	TicketIssued:     "Ticket issued",
	CctvCaptured:     "CCTV capture",
	TaskStarted:      "Task started",
	TaskCompleted:    "Task done",
	ApprovalGranted:  "Approved",
	RcInserted:       "RC inserted",
	LabelChanged:     "Label changed",
	PaymentProcessed: "Payment",
	QueueUpdated:     "Queue",
	SeatClaimed:      "Seat taken",
	NoiseObserved:    "Noise complaint",
}

// ClampLine trims s to at most max runes, marking the cut with "...".
func ClampLine(s string, max int) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[:max])
	}
	return string([]rune(s)[:max-3]) + "..."
}
