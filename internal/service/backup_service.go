package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"studyplans/internal/database"
	"studyplans/internal/logger"
	"studyplans/internal/models"
	"studyplans/internal/position"
	"studyplans/internal/repository"
)

const backupVersion = "1.0"

// BackupData is the YAML document written by Export
type BackupData struct {
	Version       string               `yaml:"version"`
	ExportedAt    time.Time            `yaml:"exported_at"`
	DatabaseType  string               `yaml:"database_type"`
	PlanTemplates []PlanTemplateBackup `yaml:"plan_templates"`
}

// PlanTemplateBackup is a plan template with its sprints
type PlanTemplateBackup struct {
	Name           string                 `yaml:"name"`
	Role           string                 `yaml:"role,omitempty"`
	Description    string                 `yaml:"description,omitempty"`
	DurationMonths *int                   `yaml:"duration_months,omitempty"`
	Version        string                 `yaml:"version,omitempty"`
	Active         bool                   `yaml:"active"`
	Sprints        []SprintTemplateBackup `yaml:"sprints,omitempty"`
}

// SprintTemplateBackup is a sprint template with its goals. Order in the file is
// the position order.
type SprintTemplateBackup struct {
	Name         string               `yaml:"name"`
	StartDate    string               `yaml:"start_date,omitempty"`
	EndDate      string               `yaml:"end_date,omitempty"`
	DurationDays *int                 `yaml:"duration_days,omitempty"`
	Description  string               `yaml:"description,omitempty"`
	Goals        []GoalTemplateBackup `yaml:"goals,omitempty"`
}

// GoalTemplateBackup is a goal template
type GoalTemplateBackup struct {
	Subject                  string `yaml:"subject,omitempty"`
	Type                     string `yaml:"type"`
	Title                    string `yaml:"title"`
	Instructions             string `yaml:"instructions,omitempty"`
	Link                     string `yaml:"link,omitempty"`
	Relevance                int    `yaml:"relevance"`
	ExpectedMinutes          int    `yaml:"expected_minutes,omitempty"`
	ExpectedPerformance      int    `yaml:"expected_performance,omitempty"`
	ExpectedQuestionsTotal   int    `yaml:"expected_questions_total,omitempty"`
	ExpectedQuestionsCorrect int    `yaml:"expected_questions_correct,omitempty"`
}

// BackupService exports and imports the master hierarchy
type BackupService struct {
	db           *database.DB
	templateRepo *repository.TemplateRepository
	log          *logger.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, templateRepo *repository.TemplateRepository, log *logger.Logger) *BackupService {
	return &BackupService{db: db, templateRepo: templateRepo, log: log}
}

// Export writes every plan template, active or not, to outputPath
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	n, err := s.ExportToWriter(ctx, file)
	if err != nil {
		return err
	}
	s.log.Info("templates exported", "path", outputPath, "plan_templates", n)
	return nil
}

// ExportToWriter encodes every plan template to w and returns how many were written
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) (int, error) {
	backup := &BackupData{
		Version:      backupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.DriverName(),
	}

	templates, err := s.templateRepo.ListPlanTemplates(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("failed to export plan templates: %w", err)
	}
	for _, pt := range templates {
		tree, err := s.templateRepo.GetTree(ctx, pt.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to export plan template %d: %w", pt.ID, err)
		}
		if tree != nil {
			backup.PlanTemplates = append(backup.PlanTemplates, planTemplateToBackup(tree))
		}
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(backup); err != nil {
		return 0, fmt.Errorf("failed to encode backup: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return 0, fmt.Errorf("failed to flush backup: %w", err)
	}
	return len(backup.PlanTemplates), nil
}

// Import loads plan templates from inputPath
func (s *BackupService) Import(ctx context.Context, inputPath string) (int, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()
	return s.ImportFromReader(ctx, file)
}

// ImportFromReader creates a new plan template for every entry in the
// document. Each template is written in its own transaction with positions
// taken from file order.
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader) (int, error) {
	var backup BackupData
	if err := yaml.NewDecoder(r).Decode(&backup); err != nil {
		return 0, fmt.Errorf("failed to decode backup: %w", err)
	}
	s.log.Info("importing templates", "version", backup.Version, "exported_at", backup.ExportedAt, "plan_templates", len(backup.PlanTemplates))

	for i, pt := range backup.PlanTemplates {
		if err := s.importPlanTemplate(ctx, pt); err != nil {
			return i, fmt.Errorf("failed to import plan template %q: %w", pt.Name, err)
		}
	}
	return len(backup.PlanTemplates), nil
}

func (s *BackupService) importPlanTemplate(ctx context.Context, b PlanTemplateBackup) error {
	const op = "import plan template"
	if b.Name == "" {
		return fieldError(op, "name", "is required")
	}

	sprints := make([]SprintTemplateInput, len(b.Sprints))
	for i, sb := range b.Sprints {
		in, err := sb.input()
		if err != nil {
			return validationError(op, "sprint %q: %v", sb.Name, err)
		}
		if err := in.validate(op); err != nil {
			return err
		}
		sprints[i] = in
	}

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		repo := s.templateRepo.WithTx(tx)
		pt := &models.PlanTemplate{
			Name:           b.Name,
			Role:           b.Role,
			Description:    b.Description,
			DurationMonths: b.DurationMonths,
			Version:        b.Version,
			Active:         b.Active,
		}
		if err := repo.CreatePlanTemplate(ctx, pt); err != nil {
			return err
		}
		for i, pos := range position.Sequence(len(sprints)) {
			sprints[i].PlanTemplateID = pt.ID
			if _, err := createSprintTemplateTree(ctx, repo, sprints[i], pos); err != nil {
				return err
			}
		}
		return nil
	})
	return transactionError(op, err)
}

func (b SprintTemplateBackup) input() (SprintTemplateInput, error) {
	in := SprintTemplateInput{
		Name:         b.Name,
		DurationDays: b.DurationDays,
		Description:  b.Description,
	}
	var err error
	if in.StartDate, err = parseBackupDate(b.StartDate); err != nil {
		return in, err
	}
	if in.EndDate, err = parseBackupDate(b.EndDate); err != nil {
		return in, err
	}
	for _, g := range b.Goals {
		in.Goals = append(in.Goals, GoalTemplateInput{
			Subject:                  g.Subject,
			Type:                     g.Type,
			Title:                    g.Title,
			Instructions:             g.Instructions,
			Link:                     g.Link,
			Relevance:                g.Relevance,
			ExpectedMinutes:          g.ExpectedMinutes,
			ExpectedPerformance:      g.ExpectedPerformance,
			ExpectedQuestionsTotal:   g.ExpectedQuestionsTotal,
			ExpectedQuestionsCorrect: g.ExpectedQuestionsCorrect,
		})
	}
	return in, nil
}

func planTemplateToBackup(tree *models.PlanTemplateTree) PlanTemplateBackup {
	b := PlanTemplateBackup{
		Name:           tree.Name,
		Role:           tree.Role,
		Description:    tree.Description,
		DurationMonths: tree.DurationMonths,
		Version:        tree.Version,
		Active:         tree.Active,
	}
	for _, st := range tree.Sprints {
		sb := SprintTemplateBackup{
			Name:         st.Name,
			StartDate:    formatBackupDate(st.StartDate),
			EndDate:      formatBackupDate(st.EndDate),
			DurationDays: st.DurationDays,
			Description:  st.Description,
		}
		for _, g := range st.Goals {
			sb.Goals = append(sb.Goals, GoalTemplateBackup{
				Subject:                  g.Subject,
				Type:                     string(g.Type),
				Title:                    g.Title,
				Instructions:             g.Instructions,
				Link:                     g.Link,
				Relevance:                g.Relevance,
				ExpectedMinutes:          g.ExpectedMinutes,
				ExpectedPerformance:      g.ExpectedPerformance,
				ExpectedQuestionsTotal:   g.ExpectedQuestionsTotal,
				ExpectedQuestionsCorrect: g.ExpectedQuestionsCorrect,
			})
		}
		b.Sprints = append(b.Sprints, sb)
	}
	return b
}

func formatBackupDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

func parseBackupDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return &t, nil
}
