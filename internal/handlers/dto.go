package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"studyplans/internal/models"
	"studyplans/internal/position"
	"studyplans/internal/service"
)

const (
	dateLayout   = "2006-01-02"
	maxBodyBytes = 1 << 20
)

// Date accepts YYYY-MM-DD or RFC3339 on input
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
		}
	}
	d.Time = models.DateOf(t)
	return nil
}

func (d *Date) ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatDate(*t)
	return &s
}

// decodeJSON reads a single JSON object from the request body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	return nil
}

// Requests

type planTemplateRequest struct {
	Name           string `json:"name" validate:"notblank,max=200"`
	Role           string `json:"role" validate:"max=200"`
	Description    string `json:"description"`
	DurationMonths *int   `json:"durationMonths" validate:"omitempty,gte=0"`
	Version        string `json:"version" validate:"max=50"`
}

func (req planTemplateRequest) input() service.PlanTemplateInput {
	return service.PlanTemplateInput{
		Name:           req.Name,
		Role:           req.Role,
		Description:    req.Description,
		DurationMonths: req.DurationMonths,
		Version:        req.Version,
	}
}

type goalTemplateRequest struct {
	SprintTemplateID         int64  `json:"sprintTemplateId,omitempty"`
	Subject                  string `json:"subject" validate:"max=200"`
	Type                     string `json:"type"`
	Title                    string `json:"title" validate:"notblank,max=300"`
	Instructions             string `json:"instructions"`
	Link                     string `json:"link" validate:"max=2048"`
	Relevance                int    `json:"relevance" validate:"gte=0,lte=5"`
	ExpectedMinutes          int    `json:"expectedMinutes" validate:"gte=0"`
	ExpectedPerformance      int    `json:"expectedPerformance" validate:"gte=0,lte=100"`
	ExpectedQuestionsTotal   int    `json:"expectedQuestionsTotal" validate:"gte=0"`
	ExpectedQuestionsCorrect int    `json:"expectedQuestionsCorrect" validate:"gte=0"`
}

func (req goalTemplateRequest) input() service.GoalTemplateInput {
	return service.GoalTemplateInput{
		SprintTemplateID:         req.SprintTemplateID,
		Subject:                  req.Subject,
		Type:                     req.Type,
		Title:                    req.Title,
		Instructions:             req.Instructions,
		Link:                     req.Link,
		Relevance:                req.Relevance,
		ExpectedMinutes:          req.ExpectedMinutes,
		ExpectedPerformance:      req.ExpectedPerformance,
		ExpectedQuestionsTotal:   req.ExpectedQuestionsTotal,
		ExpectedQuestionsCorrect: req.ExpectedQuestionsCorrect,
	}
}

type sprintTemplateRequest struct {
	PlanTemplateID int64                 `json:"planTemplateId" validate:"required,gt=0"`
	Name           string                `json:"name" validate:"notblank,max=200"`
	StartDate      *Date                 `json:"startDate"`
	EndDate        *Date                 `json:"endDate"`
	DurationDays   *int                  `json:"durationDays" validate:"omitempty,gte=0"`
	Description    string                `json:"description"`
	Goals          []goalTemplateRequest `json:"goals" validate:"dive"`
}

func (req sprintTemplateRequest) input() service.SprintTemplateInput {
	in := service.SprintTemplateInput{
		PlanTemplateID: req.PlanTemplateID,
		Name:           req.Name,
		StartDate:      req.StartDate.ptr(),
		EndDate:        req.EndDate.ptr(),
		DurationDays:   req.DurationDays,
		Description:    req.Description,
	}
	for _, g := range req.Goals {
		in.Goals = append(in.Goals, g.input())
	}
	return in
}

type sprintTemplateUpdateRequest struct {
	Name         string `json:"name" validate:"notblank,max=200"`
	StartDate    *Date  `json:"startDate"`
	EndDate      *Date  `json:"endDate"`
	DurationDays *int   `json:"durationDays" validate:"omitempty,gte=0"`
	Description  string `json:"description"`
}

func (req sprintTemplateUpdateRequest) input() service.SprintTemplateInput {
	return service.SprintTemplateInput{
		Name:         req.Name,
		StartDate:    req.StartDate.ptr(),
		EndDate:      req.EndDate.ptr(),
		DurationDays: req.DurationDays,
		Description:  req.Description,
	}
}

type instantiateRequest struct {
	PlanTemplateID int64  `json:"planTemplateId" validate:"required,gt=0"`
	StudentID      int64  `json:"studentId" validate:"required,gt=0"`
	StartDate      *Date  `json:"startDate"`
	Status         string `json:"status"`
	Notes          string `json:"notes"`
}

type assignRequest struct {
	StartDate *Date  `json:"startDate"`
	Status    string `json:"status"`
	Notes     string `json:"notes"`
}

type sprintRequest struct {
	PlanID    int64  `json:"planId" validate:"required,gt=0"`
	Name      string `json:"name" validate:"notblank,max=200"`
	StartDate *Date  `json:"startDate"`
	EndDate   *Date  `json:"endDate"`
}

type goalRequest struct {
	SprintID     int64  `json:"sprintId" validate:"required,gt=0"`
	Subject      string `json:"subject" validate:"max=200"`
	Type         string `json:"type"`
	Title        string `json:"title" validate:"notblank,max=300"`
	Instructions string `json:"instructions"`
	Link         string `json:"link" validate:"max=2048"`
	Relevance    int    `json:"relevance" validate:"gte=0,lte=5"`
}

type sprintStatusRequest struct {
	Status string `json:"status" validate:"notblank"`
}

type goalProgressRequest struct {
	Status           *string `json:"status"`
	StudiedMinutes   *int    `json:"studiedMinutes" validate:"omitempty,gte=0"`
	Performance      *int    `json:"performance" validate:"omitempty,gte=0,lte=100"`
	QuestionsTotal   *int    `json:"questionsTotal" validate:"omitempty,gte=0"`
	QuestionsCorrect *int    `json:"questionsCorrect" validate:"omitempty,gte=0"`
}

type currentSprintRequest struct {
	SprintID int64 `json:"sprintId" validate:"required,gt=0"`
}

type reorderRequest struct {
	ScopeID         int64   `json:"scopeId" validate:"required,gt=0"`
	OrderedChildIDs []int64 `json:"orderedChildIds" validate:"required,min=1"`
}

// Template responses

type planTemplateResponse struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Role           string    `json:"role"`
	Description    string    `json:"description"`
	DurationMonths *int      `json:"durationMonths"`
	Version        string    `json:"version"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type sprintTemplateResponse struct {
	ID             int64     `json:"id"`
	PlanTemplateID int64     `json:"planTemplateId"`
	Name           string    `json:"name"`
	Position       int       `json:"position"`
	StartDate      *string   `json:"startDate"`
	EndDate        *string   `json:"endDate"`
	DurationDays   *int      `json:"durationDays"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type goalTemplateResponse struct {
	ID                       int64     `json:"id"`
	SprintTemplateID         int64     `json:"sprintTemplateId"`
	Subject                  string    `json:"subject"`
	Type                     string    `json:"type"`
	Title                    string    `json:"title"`
	Instructions             string    `json:"instructions"`
	Link                     string    `json:"link"`
	Relevance                int       `json:"relevance"`
	Position                 int       `json:"position"`
	ExpectedMinutes          int       `json:"expectedMinutes"`
	ExpectedPerformance      int       `json:"expectedPerformance"`
	ExpectedQuestionsTotal   int       `json:"expectedQuestionsTotal"`
	ExpectedQuestionsCorrect int       `json:"expectedQuestionsCorrect"`
	CreatedAt                time.Time `json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

type sprintTemplateTreeResponse struct {
	sprintTemplateResponse
	Goals []goalTemplateResponse `json:"goals"`
}

type planTemplateTreeResponse struct {
	planTemplateResponse
	Sprints []sprintTemplateTreeResponse `json:"sprints"`
}

func toPlanTemplateResponse(pt models.PlanTemplate) planTemplateResponse {
	return planTemplateResponse{
		ID:             pt.ID,
		Name:           pt.Name,
		Role:           pt.Role,
		Description:    pt.Description,
		DurationMonths: pt.DurationMonths,
		Version:        pt.Version,
		Active:         pt.Active,
		CreatedAt:      pt.CreatedAt,
		UpdatedAt:      pt.UpdatedAt,
	}
}

func toPlanTemplateListResponse(pts []models.PlanTemplate) []planTemplateResponse {
	out := make([]planTemplateResponse, 0, len(pts))
	for _, pt := range pts {
		out = append(out, toPlanTemplateResponse(pt))
	}
	return out
}

func toSprintTemplateResponse(st models.SprintTemplate) sprintTemplateResponse {
	return sprintTemplateResponse{
		ID:             st.ID,
		PlanTemplateID: st.PlanTemplateID,
		Name:           st.Name,
		Position:       st.Position,
		StartDate:      formatDatePtr(st.StartDate),
		EndDate:        formatDatePtr(st.EndDate),
		DurationDays:   st.DurationDays,
		Description:    st.Description,
		CreatedAt:      st.CreatedAt,
		UpdatedAt:      st.UpdatedAt,
	}
}

func toGoalTemplateResponse(gt models.GoalTemplate) goalTemplateResponse {
	return goalTemplateResponse{
		ID:                       gt.ID,
		SprintTemplateID:         gt.SprintTemplateID,
		Subject:                  gt.Subject,
		Type:                     string(gt.Type),
		Title:                    gt.Title,
		Instructions:             gt.Instructions,
		Link:                     gt.Link,
		Relevance:                gt.Relevance,
		Position:                 gt.Position,
		ExpectedMinutes:          gt.ExpectedMinutes,
		ExpectedPerformance:      gt.ExpectedPerformance,
		ExpectedQuestionsTotal:   gt.ExpectedQuestionsTotal,
		ExpectedQuestionsCorrect: gt.ExpectedQuestionsCorrect,
		CreatedAt:                gt.CreatedAt,
		UpdatedAt:                gt.UpdatedAt,
	}
}

func toSprintTemplateTreeResponse(st models.SprintTemplateWithGoals) sprintTemplateTreeResponse {
	out := sprintTemplateTreeResponse{
		sprintTemplateResponse: toSprintTemplateResponse(st.SprintTemplate),
		Goals:                  make([]goalTemplateResponse, 0, len(st.Goals)),
	}
	for _, g := range st.Goals {
		out.Goals = append(out.Goals, toGoalTemplateResponse(g))
	}
	return out
}

func toPlanTemplateTreeResponse(tree models.PlanTemplateTree) planTemplateTreeResponse {
	out := planTemplateTreeResponse{
		planTemplateResponse: toPlanTemplateResponse(tree.PlanTemplate),
		Sprints:              make([]sprintTemplateTreeResponse, 0, len(tree.Sprints)),
	}
	for _, st := range tree.Sprints {
		out.Sprints = append(out.Sprints, toSprintTemplateTreeResponse(st))
	}
	return out
}

// Instance responses

type instantiateResponse struct {
	ID                   int64  `json:"id"`
	Name                 string `json:"name"`
	Role                 string `json:"role"`
	SourcePlanTemplateID *int64 `json:"sourcePlanTemplateId"`
}

type planResponse struct {
	ID                   int64     `json:"id"`
	Name                 string    `json:"name"`
	Role                 string    `json:"role"`
	Description          string    `json:"description"`
	DurationMonths       *int      `json:"durationMonths"`
	SourcePlanTemplateID *int64    `json:"sourcePlanTemplateId"`
	CreatedAt            time.Time `json:"createdAt"`
}

type sprintResponse struct {
	ID                     int64     `json:"id"`
	PlanID                 int64     `json:"planId"`
	Name                   string    `json:"name"`
	Position               int       `json:"position"`
	StartDate              string    `json:"startDate"`
	EndDate                string    `json:"endDate"`
	Status                 string    `json:"status"`
	SourceSprintTemplateID *int64    `json:"sourceSprintTemplateId"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

type goalResponse struct {
	ID                   int64      `json:"id"`
	SprintID             int64      `json:"sprintId"`
	Subject              string     `json:"subject"`
	Type                 string     `json:"type"`
	Title                string     `json:"title"`
	Instructions         string     `json:"instructions"`
	Link                 string     `json:"link"`
	Relevance            int        `json:"relevance"`
	Position             int        `json:"position"`
	Status               string     `json:"status"`
	StudiedMinutes       int        `json:"studiedMinutes"`
	Performance          int        `json:"performance"`
	QuestionsTotal       int        `json:"questionsTotal"`
	QuestionsCorrect     int        `json:"questionsCorrect"`
	CompletedAt          *time.Time `json:"completedAt"`
	SourceGoalTemplateID *int64     `json:"sourceGoalTemplateId"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

type sprintTreeResponse struct {
	sprintResponse
	Goals []goalResponse `json:"goals"`
}

type planTreeResponse struct {
	planResponse
	Sprints []sprintTreeResponse `json:"sprints"`
}

type goalUpdateResponse struct {
	Goal   goalResponse   `json:"goal"`
	Sprint sprintResponse `json:"sprint"`
}

func toInstantiateResponse(p models.Plan) instantiateResponse {
	return instantiateResponse{
		ID:                   p.ID,
		Name:                 p.Name,
		Role:                 p.Role,
		SourcePlanTemplateID: p.SourcePlanTemplateID,
	}
}

func toPlanResponse(p models.Plan) planResponse {
	return planResponse{
		ID:                   p.ID,
		Name:                 p.Name,
		Role:                 p.Role,
		Description:          p.Description,
		DurationMonths:       p.DurationMonths,
		SourcePlanTemplateID: p.SourcePlanTemplateID,
		CreatedAt:            p.CreatedAt,
	}
}

func toSprintResponse(s models.Sprint) sprintResponse {
	return sprintResponse{
		ID:                     s.ID,
		PlanID:                 s.PlanID,
		Name:                   s.Name,
		Position:               s.Position,
		StartDate:              formatDate(s.StartDate),
		EndDate:                formatDate(s.EndDate),
		Status:                 string(s.Status),
		SourceSprintTemplateID: s.SourceSprintTemplateID,
		CreatedAt:              s.CreatedAt,
		UpdatedAt:              s.UpdatedAt,
	}
}

func toGoalResponse(g models.Goal) goalResponse {
	return goalResponse{
		ID:                   g.ID,
		SprintID:             g.SprintID,
		Subject:              g.Subject,
		Type:                 string(g.Type),
		Title:                g.Title,
		Instructions:         g.Instructions,
		Link:                 g.Link,
		Relevance:            g.Relevance,
		Position:             g.Position,
		Status:               string(g.Status),
		StudiedMinutes:       g.StudiedMinutes,
		Performance:          g.Performance,
		QuestionsTotal:       g.QuestionsTotal,
		QuestionsCorrect:     g.QuestionsCorrect,
		CompletedAt:          g.CompletedAt,
		SourceGoalTemplateID: g.SourceGoalTemplateID,
		CreatedAt:            g.CreatedAt,
		UpdatedAt:            g.UpdatedAt,
	}
}

func toPlanTreeResponse(tree models.PlanTree) planTreeResponse {
	out := planTreeResponse{
		planResponse: toPlanResponse(tree.Plan),
		Sprints:      make([]sprintTreeResponse, 0, len(tree.Sprints)),
	}
	for _, s := range tree.Sprints {
		st := sprintTreeResponse{
			sprintResponse: toSprintResponse(s.Sprint),
			Goals:          make([]goalResponse, 0, len(s.Goals)),
		}
		for _, g := range s.Goals {
			st.Goals = append(st.Goals, toGoalResponse(g))
		}
		out.Sprints = append(out.Sprints, st)
	}
	return out
}

// Assignment responses

type assignmentResponse struct {
	StudentID              int64     `json:"studentId"`
	PlanID                 int64     `json:"planId"`
	StartDate              string    `json:"startDate"`
	ExpectedCompletionDate *string   `json:"expectedCompletionDate"`
	CompletionDate         *string   `json:"completionDate"`
	ProgressPercent        int       `json:"progressPercent"`
	Status                 string    `json:"status"`
	Active                 bool      `json:"active"`
	Notes                  string    `json:"notes"`
	CreatedAt              time.Time `json:"createdAt"`
}

type assignmentHistoryResponse struct {
	assignmentResponse
	Plan planResponse `json:"plan"`
}

type activePlanResponse struct {
	Assignment assignmentResponse `json:"assignment"`
	Plan       planTreeResponse   `json:"plan"`
}

type currentSprintResponse struct {
	StudentID int64          `json:"studentId"`
	SprintID  int64          `json:"sprintId"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Sprint    sprintResponse `json:"sprint"`
}

func toAssignmentResponse(a models.StudentPlanAssignment) assignmentResponse {
	return assignmentResponse{
		StudentID:              a.StudentID,
		PlanID:                 a.PlanID,
		StartDate:              formatDate(a.StartDate),
		ExpectedCompletionDate: formatDatePtr(a.ExpectedCompletionDate),
		CompletionDate:         formatDatePtr(a.CompletionDate),
		ProgressPercent:        a.ProgressPercent,
		Status:                 string(a.Status),
		Active:                 a.Active,
		Notes:                  a.Notes,
		CreatedAt:              a.CreatedAt,
	}
}

func toAssignmentHistoryResponse(list []models.AssignmentWithPlan) []assignmentHistoryResponse {
	out := make([]assignmentHistoryResponse, 0, len(list))
	for _, a := range list {
		out = append(out, assignmentHistoryResponse{
			assignmentResponse: toAssignmentResponse(a.StudentPlanAssignment),
			Plan:               toPlanResponse(a.Plan),
		})
	}
	return out
}

func toCurrentSprintResponse(v service.CurrentSprintView) currentSprintResponse {
	return currentSprintResponse{
		StudentID: v.Pointer.StudentID,
		SprintID:  v.Pointer.SprintID,
		UpdatedAt: v.Pointer.UpdatedAt,
		Sprint:    toSprintResponse(v.Sprint),
	}
}

// Ordering responses

type positionResponse struct {
	ID       int64 `json:"id"`
	Position int   `json:"position"`
}

type reorderResponse struct {
	Scope    string             `json:"scope"`
	ScopeID  int64              `json:"scopeId"`
	Children []positionResponse `json:"children"`
}

func toReorderResponse(scope position.Scope, scopeID int64, assignments []position.Assignment) reorderResponse {
	out := reorderResponse{
		Scope:    string(scope),
		ScopeID:  scopeID,
		Children: make([]positionResponse, 0, len(assignments)),
	}
	for _, a := range assignments {
		out.Children = append(out.Children, positionResponse{ID: a.ID, Position: a.Position})
	}
	return out
}
