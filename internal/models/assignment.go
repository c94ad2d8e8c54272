package models

import (
	"strings"
	"time"
)

// AssignmentStatus tracks a student's engagement with an assigned plan
type AssignmentStatus string

const (
	AssignmentNotStarted AssignmentStatus = "not-started"
	AssignmentInProgress AssignmentStatus = "in-progress"
	AssignmentCompleted  AssignmentStatus = "completed"
	AssignmentCancelled  AssignmentStatus = "cancelled"
)

// ParseAssignmentStatus maps s to a known status. An empty string yields
// not-started.
func ParseAssignmentStatus(s string) (AssignmentStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return AssignmentNotStarted, true
	case "not-started", "not_started":
		return AssignmentNotStarted, true
	case "in-progress", "in_progress":
		return AssignmentInProgress, true
	case "completed":
		return AssignmentCompleted, true
	case "cancelled", "canceled":
		return AssignmentCancelled, true
	}
	return "", false
}

// StudentPlanAssignment links a student to one of their plans. A student has
// at most one active assignment.
type StudentPlanAssignment struct {
	StudentID              int64
	PlanID                 int64
	StartDate              time.Time
	ExpectedCompletionDate *time.Time
	CompletionDate         *time.Time
	ProgressPercent        int
	Status                 AssignmentStatus
	Active                 bool
	Notes                  string
	CreatedAt              time.Time
}

// AssignmentWithPlan pairs an assignment row with its plan header
type AssignmentWithPlan struct {
	StudentPlanAssignment
	Plan Plan
}

// CurrentSprint points at the sprint a student is working on
type CurrentSprint struct {
	StudentID int64
	SprintID  int64
	UpdatedAt time.Time
}
