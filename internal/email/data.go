package email

// TaskLine is one task row in a reminder or digest email.
type TaskLine struct {
	Title       string
	ProjectName string
	DueDate     string
}

// DailyReminderData feeds the daily_reminder template.
type DailyReminderData struct {
	RecipientName string
	DueToday      []TaskLine
	Overdue       []TaskLine
	Upcoming      []TaskLine
	SiteName      string
}

// HasTasks reports whether any of the reminder buckets is non-empty.
func (d DailyReminderData) HasTasks() bool {
	return len(d.DueToday) > 0 || len(d.Overdue) > 0 || len(d.Upcoming) > 0
}

// WeeklyDigestData feeds the weekly_digest template. The task lists are
// capped for readability; the counts reflect the full totals.
type WeeklyDigestData struct {
	RecipientName  string
	WeekStart      string
	WeekEnd        string
	CompletedCount int
	CreatedCount   int
	AssignedCount  int
	DeadlineCount  int
	Completed      []TaskLine
	Created        []TaskLine
	Assigned       []TaskLine
	Deadlines      []TaskLine
	ActiveProjects []string
	SiteName       string
}
