package email

const (
	subjectSolicitorReminder  = "Reminder: pending verification reports"
	subjectEscalationAlert    = "Legal search request requires manual assignment"
	subjectEscalationAlertFmt = "Legal search request %s requires manual assignment"
)
