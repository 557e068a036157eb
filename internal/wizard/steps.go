// Package wizard holds the intake wizard's state model, step transitions,
// submission formatting and the OTP verification sub-flow. It has no
// rendering or transport concerns.
package wizard

// StepID identifies a wizard page. Values are stable for the session.
type StepID int

const (
	StepWelcome StepID = iota
	StepIndustry
	StepContact
	StepBusiness
	StepTasks
	StepReview
	StepSchedule

	// StepCompleted is the terminal pseudo-step after scheduling.
	StepCompleted
)

// Steps lists the content steps in order.
var Steps = []StepID{
	StepWelcome,
	StepIndustry,
	StepContact,
	StepBusiness,
	StepTasks,
	StepReview,
	StepSchedule,
}

func (s StepID) String() string {
	switch s {
	case StepWelcome:
		return "welcome"
	case StepIndustry:
		return "industry"
	case StepContact:
		return "contact"
	case StepBusiness:
		return "business"
	case StepTasks:
		return "tasks"
	case StepReview:
		return "review"
	case StepSchedule:
		return "schedule"
	case StepCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Title returns the label shown in the step indicator.
func (s StepID) Title() string {
	switch s {
	case StepWelcome:
		return "Welcome"
	case StepIndustry:
		return "Industry"
	case StepContact:
		return "Contact"
	case StepBusiness:
		return "Business"
	case StepTasks:
		return "Tasks"
	case StepReview:
		return "Review"
	case StepSchedule:
		return "Schedule"
	case StepCompleted:
		return "Done"
	default:
		return ""
	}
}
