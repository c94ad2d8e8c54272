package models

import (
	"strings"
	"time"
)

// ProgressStatus is the lifecycle state of an instance sprint or goal
type ProgressStatus string

const (
	StatusPending    ProgressStatus = "pending"
	StatusInProgress ProgressStatus = "in_progress"
	StatusCompleted  ProgressStatus = "completed"
)

// ParseProgressStatus accepts the canonical names plus the hyphenated and
// camel-cased spellings clients send.
func ParseProgressStatus(s string) (ProgressStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, true
	case "in_progress", "in-progress", "inprogress":
		return StatusInProgress, true
	case "completed":
		return StatusCompleted, true
	}
	return "", false
}

func (s ProgressStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	}
	return -1
}

// CanAdvanceTo reports whether moving from s to next is allowed. Status only
// moves forward; staying in place is allowed.
func (s ProgressStatus) CanAdvanceTo(next ProgressStatus) bool {
	return next.rank() >= 0 && next.rank() >= s.rank()
}

// Plan is a student's copy of a PlanTemplate
type Plan struct {
	ID                   int64
	Name                 string
	Role                 string
	Description          string
	DurationMonths       *int
	SourcePlanTemplateID *int64
	CreatedAt            time.Time
}

// Sprint is a dated, ordered step of a Plan
type Sprint struct {
	ID                     int64
	PlanID                 int64
	Name                   string
	Position               int
	StartDate              time.Time
	EndDate                time.Time
	Status                 ProgressStatus
	SourceSprintTemplateID *int64
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Goal is a student's unit of work with progress metrics
type Goal struct {
	ID                   int64
	SprintID             int64
	Subject              string
	Type                 GoalType
	Title                string
	Instructions         string
	Link                 string
	Relevance            int
	Position             int
	Status               ProgressStatus
	StudiedMinutes       int
	Performance          int
	QuestionsTotal       int
	QuestionsCorrect     int
	CompletedAt          *time.Time
	SourceGoalTemplateID *int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// SprintWithGoals combines a sprint with its goals in position order
type SprintWithGoals struct {
	Sprint
	Goals []Goal
}

// PlanTree is a full instance hierarchy
type PlanTree struct {
	Plan
	Sprints []SprintWithGoals
}

// RollUpSprintStatus derives a sprint's status from its goals. All goals
// completed completes the sprint; the first completed goal moves a pending
// sprint to in progress; anything else keeps the current status. The result
// depends only on the current goal states.
func RollUpSprintStatus(current ProgressStatus, goals []ProgressStatus) ProgressStatus {
	if len(goals) == 0 {
		return current
	}
	completed := 0
	for _, g := range goals {
		if g == StatusCompleted {
			completed++
		}
	}
	switch {
	case completed == len(goals):
		return StatusCompleted
	case completed > 0 && current == StatusPending:
		return StatusInProgress
	}
	return current
}
