package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"studyplans/internal/models"
	"studyplans/internal/repository"
)

// ReportService renders printable reports of student plans
type ReportService struct {
	planRepo       *repository.PlanRepository
	assignmentRepo *repository.AssignmentRepository
}

// NewReportService creates a new report service
func NewReportService(planRepo *repository.PlanRepository, assignmentRepo *repository.AssignmentRepository) *ReportService {
	return &ReportService{planRepo: planRepo, assignmentRepo: assignmentRepo}
}

// RenderPlanReport writes a PDF of the student's active plan to w
func (s *ReportService) RenderPlanReport(ctx context.Context, studentID int64, w io.Writer) error {
	const op = "render plan report"

	a, err := s.assignmentRepo.GetActive(ctx, studentID)
	if err != nil {
		return err
	}
	if a == nil {
		return &Error{Kind: ErrNotFound, Op: op, Message: "student has no active plan"}
	}
	tree, err := s.planRepo.GetTree(ctx, a.PlanID)
	if err != nil {
		return err
	}
	if tree == nil {
		return notFoundError(op, "plan", a.PlanID)
	}

	pdf := buildPlanPDF(studentID, a, tree)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func buildPlanPDF(studentID int64, a *models.StudentPlanAssignment, tree *models.PlanTree) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tree.Name, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, tr(fmt.Sprintf("Study Plan: %s", tree.Name)))
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 11)
	if tree.Role != "" {
		pdf.Cell(0, 7, tr("Role: "+tree.Role))
		pdf.Ln(6)
	}
	pdf.Cell(0, 7, fmt.Sprintf("Student %d - %s - %d%% complete", studentID, a.Status, a.ProgressPercent))
	pdf.Ln(6)
	period := "Started " + a.StartDate.Format(time.DateOnly)
	if a.ExpectedCompletionDate != nil {
		period += ", expected completion " + a.ExpectedCompletionDate.Format(time.DateOnly)
	}
	pdf.Cell(0, 7, period)
	pdf.Ln(8)
	if tree.Description != "" {
		pdf.MultiCell(0, 6, tr(tree.Description), "", "", false)
		pdf.Ln(4)
	}

	totalCompleted, totalGoals := 0, 0
	for _, s := range tree.Sprints {
		pdf.SetFont("Arial", "B", 13)
		header := fmt.Sprintf("%d. %s (%s to %s) [%s]",
			s.Position, s.Name, s.StartDate.Format(time.DateOnly), s.EndDate.Format(time.DateOnly), s.Status)
		pdf.Cell(0, 9, tr(header))
		pdf.Ln(8)

		pdf.SetFont("Arial", "", 11)
		if len(s.Goals) == 0 {
			pdf.Cell(0, 7, "  - No goals assigned.")
			pdf.Ln(7)
		}
		for _, g := range s.Goals {
			mark := "[ ]"
			switch g.Status {
			case models.StatusCompleted:
				mark = "[x]"
				totalCompleted++
			case models.StatusInProgress:
				mark = "[~]"
			}
			totalGoals++
			line := fmt.Sprintf("    %s %s", mark, g.Title)
			if g.Subject != "" {
				line += " - " + g.Subject
			}
			line += fmt.Sprintf(" (%s)", g.Type)
			pdf.Cell(0, 7, tr(line))
			pdf.Ln(6)
		}
		pdf.Ln(3)
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Goals completed: %d of %d", totalCompleted, totalGoals))
	return pdf
}
