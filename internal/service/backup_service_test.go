package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupRoundTrip(t *testing.T) {
	src := setupTestEnv(t)
	ctx := context.Background()
	pt := createFrontendTemplate(t, src)
	_, err := src.templates.CreateSprintTemplateWithGoals(ctx, SprintTemplateInput{
		PlanTemplateID: pt.ID,
		Name:           "Semana 2",
		StartDate:      ptr(day(2024, 1, 1)),
		EndDate:        ptr(day(2024, 1, 15)),
		Goals:          []GoalTemplateInput{{Title: "JS", Type: "questions", ExpectedQuestionsTotal: 20, ExpectedQuestionsCorrect: 15}},
	})
	require.NoError(t, err)
	retired, err := src.templates.CreatePlanTemplate(ctx, PlanTemplateInput{Name: "Retired"})
	require.NoError(t, err)
	_, err = src.templates.DeactivatePlanTemplate(ctx, retired.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := src.backups.ExportToWriter(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, buf.String(), "plan_templates:")
	assert.Contains(t, buf.String(), "2024-01-01")

	dst := setupTestEnv(t)
	imported, err := dst.backups.ImportFromReader(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, imported)

	all, err := dst.templates.ListPlanTemplates(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 2)

	var frontendID int64
	for _, p := range all {
		if p.Name == "Frontend" {
			frontendID = p.ID
			assert.True(t, p.Active)
		} else {
			assert.False(t, p.Active)
		}
	}
	tree, err := dst.templates.GetPlanTemplate(ctx, frontendID)
	require.NoError(t, err)
	require.Len(t, tree.Sprints, 2)
	assert.Equal(t, "Semana 1", tree.Sprints[0].Name)
	assert.Equal(t, 1, tree.Sprints[0].Position)
	assert.Equal(t, 2, tree.Sprints[1].Position)
	require.NotNil(t, tree.Sprints[1].StartDate)
	assert.True(t, tree.Sprints[1].StartDate.Equal(day(2024, 1, 1)))
	assert.Equal(t, []string{"HTML", "CSS"}, []string{tree.Sprints[0].Goals[0].Title, tree.Sprints[0].Goals[1].Title})
	assert.Equal(t, 15, tree.Sprints[1].Goals[0].ExpectedQuestionsCorrect)
}

func TestBackupImportRejectsBadTemplate(t *testing.T) {
	env := setupTestEnv(t)
	doc := `
version: "1.0"
plan_templates:
  - name: Good
    active: true
  - name: Broken
    active: true
    sprints:
      - name: Bad dates
        start_date: "2024-13-40"
`
	n, err := env.backups.ImportFromReader(context.Background(), strings.NewReader(doc))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 1, n)

	all, err := env.templates.ListPlanTemplates(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Good", all[0].Name)
}
