package domain

import "time"

type RefreshDomain string

const (
	RefreshNews       RefreshDomain = "news"
	RefreshHomework   RefreshDomain = "homework"
	RefreshGrades     RefreshDomain = "grades"
	RefreshLessons    RefreshDomain = "lessons"
	RefreshAttendance RefreshDomain = "attendance"
	RefreshEvaluation RefreshDomain = "evaluation"
)

// RefreshDomains returns the domains in the order a background cycle runs them.
func RefreshDomains() []RefreshDomain {
	return []RefreshDomain{
		RefreshNews,
		RefreshHomework,
		RefreshGrades,
		RefreshLessons,
		RefreshAttendance,
		RefreshEvaluation,
	}
}

func (d RefreshDomain) Label() string {
	switch d {
	case RefreshNews:
		return "News"
	case RefreshHomework:
		return "Homeworks"
	case RefreshGrades:
		return "Grades"
	case RefreshLessons:
		return "Lessons"
	case RefreshAttendance:
		return "Attendance"
	case RefreshEvaluation:
		return "Evaluation"
	default:
		return string(d)
	}
}

// SnapshotItem is one cached record of refreshed data. ID must be stable
// across refreshes so new records can be told apart from known ones.
type SnapshotItem struct {
	ID      string
	Title   string
	Body    string
	At      time.Time
	Payload []byte
}
