package domain

import "time"

// GradeValue carries a score that a service may not expose; Disabled marks
// values the service left out.
type GradeValue struct {
	Value    *float64
	Disabled bool
}

func DisabledGradeValue() GradeValue {
	return GradeValue{Disabled: true}
}

func GradeValueOf(v float64) GradeValue {
	return GradeValue{Value: &v}
}

type Grade struct {
	ID          string
	SubjectName string
	Description string
	Timestamp   time.Time
	Student     GradeValue
	Min         GradeValue
	Max         GradeValue
	Average     GradeValue
	OutOf       GradeValue
	Coefficient float64
	IsBonus     bool
	IsOptional  bool
}
