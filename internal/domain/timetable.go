package domain

import "time"

type TimetableClassType string

const (
	ClassTypeLesson    TimetableClassType = "lesson"
	ClassTypeActivity  TimetableClassType = "activity"
	ClassTypeDetention TimetableClassType = "detention"
)

type TimetableClassStatus string

const ClassStatusCanceled TimetableClassStatus = "canceled"

type TimetableClass struct {
	ID              string
	Subject         string
	Type            TimetableClassType
	Title           string
	ItemType        string
	Start           time.Time
	End             time.Time
	AdditionalNotes string
	Room            string
	Teacher         string
	Status          TimetableClassStatus
	Source          string
}

type Homework struct {
	ID      string
	Subject string
	Content string
	Due     time.Time
	Done    bool
}

type Absence struct {
	ID        string
	From      time.Time
	To        time.Time
	Justified bool
	Reason    string
}

type Evaluation struct {
	ID          string
	Subject     string
	Name        string
	Date        time.Time
	Description string
}
