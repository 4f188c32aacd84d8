package events

// Type enumerates the kinds of facts recorded in the log.
type Type string

const (
	EnteredZone          Type = "EnteredZone"
	ExitedZone           Type = "ExitedZone"
	ViolationDetected    Type = "ViolationDetected"
	SuspicionUpdated     Type = "SuspicionUpdated"
	ReportFiled          Type = "ReportFiled"
	InterrogationStarted Type = "InterrogationStarted"
	VerdictGiven         Type = "VerdictGiven"
	StatementGiven       Type = "StatementGiven"
	ExplanationGiven     Type = "ExplanationGiven"
	RebuttalGiven        Type = "RebuttalGiven"
	NpcUtterance         Type = "NpcUtterance"
	RumorShared          Type = "RumorShared"
	RumorConfirmed       Type = "RumorConfirmed"
	RumorDebunked        Type = "RumorDebunked"
	EvidenceCaptured     Type = "EvidenceCaptured"
	TicketIssued         Type = "TicketIssued"
	TaskStarted          Type = "TaskStarted"
	TaskCompleted        Type = "TaskCompleted"
	ApprovalGranted      Type = "ApprovalGranted"
	RcInserted           Type = "RcInserted"
	LabelChanged         Type = "LabelChanged"
	PaymentProcessed     Type = "PaymentProcessed"
	QueueUpdated         Type = "QueueUpdated"
	SeatClaimed          Type = "SeatClaimed"
	NoiseObserved        Type = "NoiseObserved"
	CctvCaptured         Type = "CctvCaptured"
	ExposureUpdated      Type = "ExposureUpdated"
)

// Category groups event types for filtering and presentation.
type Category string

const (
	CategoryMovement     Category = "Movement"
	CategoryZone         Category = "Zone"
	CategoryRule         Category = "Rule"
	CategorySuspicion    Category = "Suspicion"
	CategoryReport       Category = "Report"
	CategoryVerdict      Category = "Verdict"
	CategoryDialogue     Category = "Dialogue"
	CategoryGossip       Category = "Gossip"
	CategoryEvidence     Category = "Evidence"
	CategoryProcedure    Category = "Procedure"
	CategoryOrganization Category = "Organization"
	CategoryExposure     Category = "Exposure"
)

var allTypes = []Type{
	EnteredZone, ExitedZone, ViolationDetected, SuspicionUpdated, ReportFiled,
	InterrogationStarted, VerdictGiven, StatementGiven, ExplanationGiven, RebuttalGiven,
	NpcUtterance, RumorShared, RumorConfirmed, RumorDebunked, EvidenceCaptured,
	TicketIssued, TaskStarted, TaskCompleted, ApprovalGranted, RcInserted,
	LabelChanged, PaymentProcessed, QueueUpdated, SeatClaimed, NoiseObserved,
	CctvCaptured, ExposureUpdated,
}

// AllTypes returns every known event type in declaration order.
func AllTypes() []Type {
	out := make([]Type, len(allTypes))
	copy(out, allTypes)
	return out
}

// KnownType reports whether t is a declared event type.
func KnownType(t Type) bool {
	for _, k := range allTypes {
		if k == t {
			return true
		}
	}
	return false
}

// InferCategory maps an event type to its category. Unknown types fall back to Rule.
func InferCategory(t Type) Category {
	switch t {
	case EnteredZone, ExitedZone:
		return CategoryZone
	case ViolationDetected:
		return CategoryRule
	case SuspicionUpdated:
		return CategorySuspicion
	case ReportFiled:
		return CategoryReport
	case InterrogationStarted, VerdictGiven:
		return CategoryVerdict
	case StatementGiven, ExplanationGiven, RebuttalGiven, NpcUtterance:
		return CategoryDialogue
	case RumorShared, RumorConfirmed, RumorDebunked:
		return CategoryGossip
	case EvidenceCaptured, CctvCaptured:
		return CategoryEvidence
	case TicketIssued, TaskStarted, TaskCompleted, ApprovalGranted, RcInserted,
		LabelChanged, PaymentProcessed, QueueUpdated, SeatClaimed:
		return CategoryProcedure
	case NoiseObserved, ExposureUpdated:
		return CategoryExposure
	default:
		return CategoryRule
	}
}
