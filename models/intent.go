package models

// Intent is the closed vocabulary the conversational router acts on. The
// classifier degrades to IntentGeneral on any failure, so routing never sees
// an out-of-vocabulary value.
type Intent string

const (
	IntentConfirmYes       Intent = "CONFIRM_YES"
	IntentConfirmNo        Intent = "CONFIRM_NO"
	IntentCorrection       Intent = "CORRECTION"
	IntentDemoRequest      Intent = "DEMO_REQUEST"
	IntentMeetingSchedule  Intent = "MEETING_SCHEDULE"
	IntentProblemStatement Intent = "PROBLEM_STATEMENT"
	IntentRequirementNote  Intent = "REQUIREMENT_NOTE"
	IntentFollowUpNote     Intent = "FOLLOWUP_NOTE"
	IntentTaskAssign       Intent = "TASK_ASSIGN"
	IntentGeneral          Intent = "GENERAL"
)

func (i Intent) String() string {
	return string(i)
}

func (i Intent) Valid() bool {
	switch i {
	case IntentConfirmYes, IntentConfirmNo, IntentCorrection,
		IntentDemoRequest, IntentMeetingSchedule, IntentProblemStatement,
		IntentRequirementNote, IntentFollowUpNote, IntentTaskAssign,
		IntentGeneral:
		return true
	default:
		return false
	}
}

// AllIntents lists the vocabulary in routing precedence order.
func AllIntents() []Intent {
	return []Intent{
		IntentConfirmYes, IntentConfirmNo, IntentCorrection,
		IntentDemoRequest, IntentMeetingSchedule, IntentProblemStatement,
		IntentRequirementNote, IntentFollowUpNote, IntentTaskAssign,
		IntentGeneral,
	}
}
