package models

import (
	"strings"
	"time"
)

// GoalType classifies the kind of study work a goal asks for
type GoalType string

const (
	GoalTypeTheory        GoalType = "theory"
	GoalTypeQuestions     GoalType = "questions"
	GoalTypeReview        GoalType = "review"
	GoalTypeReinforcement GoalType = "reinforcement"
)

// ParseGoalType normalizes s to a known goal type. Unknown values fall back to
// theory instead of failing.
func ParseGoalType(s string) GoalType {
	switch t := GoalType(strings.ToLower(strings.TrimSpace(s))); t {
	case GoalTypeTheory, GoalTypeQuestions, GoalTypeReview, GoalTypeReinforcement:
		return t
	}
	return GoalTypeTheory
}

// Relevance bounds for goals
const (
	MinRelevance     = 1
	MaxRelevance     = 5
	DefaultRelevance = 3
)

// NormalizeRelevance maps an unset relevance to the default and clamps the rest
func NormalizeRelevance(r int) int {
	switch {
	case r == 0:
		return DefaultRelevance
	case r < MinRelevance:
		return MinRelevance
	case r > MaxRelevance:
		return MaxRelevance
	}
	return r
}

// PlanTemplate is an administrator-authored plan definition ("plano mestre")
type PlanTemplate struct {
	ID             int64
	Name           string
	Role           string
	Description    string
	DurationMonths *int
	Version        string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SprintTemplate is an ordered step of a PlanTemplate
type SprintTemplate struct {
	ID             int64
	PlanTemplateID int64
	Name           string
	Position       int
	StartDate      *time.Time
	EndDate        *time.Time
	DurationDays   *int
	Description    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SpanDays returns how many days an instance of this sprint lasts: the span
// between explicit dates when both are set, else DurationDays when positive,
// else defaultDays.
func (s SprintTemplate) SpanDays(defaultDays int) int {
	if s.StartDate != nil && s.EndDate != nil {
		return DaysBetween(*s.StartDate, *s.EndDate)
	}
	if s.DurationDays != nil && *s.DurationDays > 0 {
		return *s.DurationDays
	}
	return defaultDays
}

// GoalTemplate is an ordered unit of work inside a SprintTemplate. The Expected*
// fields only exist so templates and instances share a shape.
type GoalTemplate struct {
	ID                       int64
	SprintTemplateID         int64
	Subject                  string
	Type                     GoalType
	Title                    string
	Instructions             string
	Link                     string
	Relevance                int
	Position                 int
	ExpectedMinutes          int
	ExpectedPerformance      int
	ExpectedQuestionsTotal   int
	ExpectedQuestionsCorrect int
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// SprintTemplateWithGoals combines a sprint template with its goals in position order
type SprintTemplateWithGoals struct {
	SprintTemplate
	Goals []GoalTemplate
}

// PlanTemplateTree is a full master hierarchy
type PlanTemplateTree struct {
	PlanTemplate
	Sprints []SprintTemplateWithGoals
}

// GoalCount returns the number of goals across all sprints
func (t PlanTemplateTree) GoalCount() int {
	n := 0
	for _, s := range t.Sprints {
		n += len(s.Goals)
	}
	return n
}
