package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyplans/internal/models"
)

func createFrontendTemplate(t *testing.T, env *testEnv) *models.PlanTemplate {
	t.Helper()
	ctx := context.Background()
	pt, err := env.templates.CreatePlanTemplate(ctx, PlanTemplateInput{Name: "Frontend", Role: "Frontend Developer"})
	require.NoError(t, err)
	_, err = env.templates.CreateSprintTemplateWithGoals(ctx, SprintTemplateInput{
		PlanTemplateID: pt.ID,
		Name:           "Semana 1",
		Goals: []GoalTemplateInput{
			{Subject: "Web", Type: "theory", Title: "HTML", Relevance: 5},
			{Subject: "Web", Type: "questions", Title: "CSS"},
		},
	})
	require.NoError(t, err)
	return pt
}

func TestInstantiateFrontendScenario(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	pt := createFrontendTemplate(t, env)

	plan, err := env.instantiate.Instantiate(ctx, InstantiateParams{
		PlanTemplateID: pt.ID,
		StudentID:      7,
		StartDate:      ptr(day(2024, 1, 15)),
	})
	require.NoError(t, err)
	assert.Equal(t, "Frontend", plan.Name)
	assert.Equal(t, "Frontend Developer", plan.Role)
	require.NotNil(t, plan.SourcePlanTemplateID)
	assert.Equal(t, pt.ID, *plan.SourcePlanTemplateID)

	tree, err := env.instantiate.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, tree.Sprints, 1)

	sprint := tree.Sprints[0]
	assert.Equal(t, "Semana 1", sprint.Name)
	assert.Equal(t, 1, sprint.Position)
	assert.True(t, sprint.StartDate.Equal(day(2024, 1, 15)), "start %v", sprint.StartDate)
	assert.True(t, sprint.EndDate.Equal(day(2024, 1, 22)), "end %v", sprint.EndDate)
	assert.Equal(t, models.StatusPending, sprint.Status)

	require.Len(t, sprint.Goals, 2)
	assert.Equal(t, "HTML", sprint.Goals[0].Title)
	assert.Equal(t, 1, sprint.Goals[0].Position)
	assert.Equal(t, "CSS", sprint.Goals[1].Title)
	assert.Equal(t, 2, sprint.Goals[1].Position)
	for _, g := range sprint.Goals {
		assert.Equal(t, models.StatusPending, g.Status)
		assert.Zero(t, g.StudiedMinutes)
		assert.Nil(t, g.CompletedAt)
		assert.NotNil(t, g.SourceGoalTemplateID)
	}

	a, err := env.assignRepo.Get(ctx, 7, plan.ID)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.True(t, a.Active)
	assert.Equal(t, models.AssignmentNotStarted, a.Status)
	assert.True(t, a.StartDate.Equal(day(2024, 1, 15)))
	require.NotNil(t, a.ExpectedCompletionDate)
	assert.True(t, a.ExpectedCompletionDate.Equal(day(2024, 1, 22)))
}

func TestInstantiateStructuralFidelity(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	pt, err := env.templates.CreatePlanTemplate(ctx, PlanTemplateInput{Name: "Backend", DurationMonths: ptr(3)})
	require.NoError(t, err)

	goalCounts := []int{3, 0, 2}
	for i, n := range goalCounts {
		in := SprintTemplateInput{PlanTemplateID: pt.ID, Name: string(rune('A' + i))}
		for j := 0; j < n; j++ {
			in.Goals = append(in.Goals, GoalTemplateInput{Title: in.Name + string(rune('1'+j)), Type: "review"})
		}
		_, err := env.templates.CreateSprintTemplateWithGoals(ctx, in)
		require.NoError(t, err)
	}

	master, err := env.templates.GetPlanTemplate(ctx, pt.ID)
	require.NoError(t, err)

	plan, err := env.instantiate.Instantiate(ctx, InstantiateParams{PlanTemplateID: pt.ID, StudentID: 1})
	require.NoError(t, err)
	instance, err := env.instantiate.GetPlan(ctx, plan.ID)
	require.NoError(t, err)

	require.Len(t, instance.Sprints, len(master.Sprints))
	for i, ms := range master.Sprints {
		is := instance.Sprints[i]
		assert.Equal(t, ms.Name, is.Name)
		assert.Equal(t, ms.Position, is.Position)
		require.NotNil(t, is.SourceSprintTemplateID)
		assert.Equal(t, ms.ID, *is.SourceSprintTemplateID)

		require.Len(t, is.Goals, len(ms.Goals))
		for j, mg := range ms.Goals {
			ig := is.Goals[j]
			assert.Equal(t, mg.Title, ig.Title)
			assert.Equal(t, mg.Position, ig.Position)
			assert.Equal(t, mg.Type, ig.Type)
			assert.Equal(t, mg.Relevance, ig.Relevance)
			require.NotNil(t, ig.SourceGoalTemplateID)
			assert.Equal(t, mg.ID, *ig.SourceGoalTemplateID)
		}
	}
}

func TestInstantiateSprintDatesDoNotOverlap(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	pt, err := env.templates.CreatePlanTemplate(ctx, PlanTemplateInput{Name: "Dates"})
	require.NoError(t, err)
	inputs := []SprintTemplateInput{
		{Name: "explicit", StartDate: ptr(day(2023, 3, 1)), EndDate: ptr(day(2023, 3, 11))},
		{Name: "duration", DurationDays: ptr(14)},
		{Name: "default"},
	}
	for _, in := range inputs {
		in.PlanTemplateID = pt.ID
		_, err := env.templates.CreateSprintTemplateWithGoals(ctx, in)
		require.NoError(t, err)
	}

	plan, err := env.instantiate.Instantiate(ctx, InstantiateParams{PlanTemplateID: pt.ID, StudentID: 2, StartDate: ptr(day(2024, 1, 1))})
	require.NoError(t, err)
	sprints, err := env.planRepo.ListSprints(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, sprints, 3)

	want := [][2]time.Time{
		{day(2024, 1, 1), day(2024, 1, 11)},
		{day(2024, 1, 12), day(2024, 1, 26)},
		{day(2024, 1, 27), day(2024, 2, 3)},
	}
	for i, s := range sprints {
		assert.True(t, s.StartDate.Equal(want[i][0]), "sprint %d start %v", i, s.StartDate)
		assert.True(t, s.EndDate.Equal(want[i][1]), "sprint %d end %v", i, s.EndDate)
		if i > 0 {
			assert.True(t, s.StartDate.After(sprints[i-1].EndDate), "sprint %d overlaps previous", i)
		}
	}
}

func TestInstantiateIsAtomic(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	pt := createFrontendTemplate(t, env)

	_, err := env.db.ExecContext(ctx, `CREATE TRIGGER fail_goal_insert BEFORE INSERT ON goals
		BEGIN SELECT RAISE(ABORT, 'injected failure'); END;`)
	require.NoError(t, err)

	_, err = env.instantiate.Instantiate(ctx, InstantiateParams{PlanTemplateID: pt.ID, StudentID: 7})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransaction)
	assert.Contains(t, err.Error(), "injected failure")

	for _, table := range []string{"plans", "sprints", "goals", "student_plans"} {
		assert.Zero(t, env.countRows(t, table), "table %s should be empty", table)
	}
}

func TestInstantiateRejectsBadInput(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	pt := createFrontendTemplate(t, env)

	_, err := env.instantiate.Instantiate(ctx, InstantiateParams{StudentID: 7})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.instantiate.Instantiate(ctx, InstantiateParams{PlanTemplateID: pt.ID})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.instantiate.Instantiate(ctx, InstantiateParams{PlanTemplateID: 999, StudentID: 7})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.instantiate.Instantiate(ctx, InstantiateParams{PlanTemplateID: pt.ID, StudentID: 7, Status: "archived"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.templates.DeactivatePlanTemplate(ctx, pt.ID)
	require.NoError(t, err)
	_, err = env.instantiate.Instantiate(ctx, InstantiateParams{PlanTemplateID: pt.ID, StudentID: 7})
	assert.ErrorIs(t, err, ErrValidation)

	assert.Zero(t, env.countRows(t, "plans"))
}

func TestInstantiateCopiesPositionsVerbatim(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	pt, err := env.templates.CreatePlanTemplate(ctx, PlanTemplateInput{Name: "Gaps"})
	require.NoError(t, err)

	now := time.Now().UTC()
	for _, pos := range []int{5, 2} {
		_, err := env.db.ExecContext(ctx,
			"INSERT INTO sprint_templates (plan_template_id, name, position, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			pt.ID, "pos", pos, now, now)
		require.NoError(t, err)
	}
	sprints, err := env.templateRepo.ListSprintTemplates(ctx, pt.ID)
	require.NoError(t, err)
	_, err = env.db.ExecContext(ctx,
		"INSERT INTO goal_templates (sprint_template_id, type, title, position, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		sprints[0].ID, "bogus", "odd type", 4, now, now)
	require.NoError(t, err)

	plan, err := env.instantiate.Instantiate(ctx, InstantiateParams{PlanTemplateID: pt.ID, StudentID: 3})
	require.NoError(t, err)
	tree, err := env.instantiate.GetPlan(ctx, plan.ID)
	require.NoError(t, err)

	require.Len(t, tree.Sprints, 2)
	assert.Equal(t, 2, tree.Sprints[0].Position)
	assert.Equal(t, 5, tree.Sprints[1].Position)
	require.Len(t, tree.Sprints[0].Goals, 1)
	assert.Equal(t, 4, tree.Sprints[0].Goals[0].Position)
	assert.Equal(t, models.GoalTypeTheory, tree.Sprints[0].Goals[0].Type)
}

func TestInstantiateKeepsOneActiveAssignment(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	pt := createFrontendTemplate(t, env)

	first, err := env.instantiate.Instantiate(ctx, InstantiateParams{PlanTemplateID: pt.ID, StudentID: 7})
	require.NoError(t, err)
	second, err := env.instantiate.Instantiate(ctx, InstantiateParams{PlanTemplateID: pt.ID, StudentID: 7, Status: "in-progress", Notes: "retake"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	history, err := env.instantiate.ListAssignments(ctx, 7)
	require.NoError(t, err)
	require.Len(t, history, 2)
	active := 0
	for _, a := range history {
		if a.Active {
			active++
			assert.Equal(t, second.ID, a.PlanID)
			assert.Equal(t, models.AssignmentInProgress, a.Status)
			assert.Equal(t, "retake", a.Notes)
		}
	}
	assert.Equal(t, 1, active)

	a, tree, err := env.instantiate.ActivePlan(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, second.ID, a.PlanID)
	assert.Equal(t, second.ID, tree.ID)

	_, _, err = env.instantiate.ActivePlan(ctx, 8)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssignPlan(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	pt := createFrontendTemplate(t, env)

	plan, err := env.instantiate.Instantiate(ctx, InstantiateParams{PlanTemplateID: pt.ID, StudentID: 7, StartDate: ptr(day(2024, 1, 15))})
	require.NoError(t, err)

	a, err := env.instantiate.AssignPlan(ctx, 9, plan.ID, AssignParams{StartDate: ptr(day(2024, 2, 1))})
	require.NoError(t, err)
	assert.True(t, a.Active)
	assert.Equal(t, models.AssignmentNotStarted, a.Status)
	require.NotNil(t, a.ExpectedCompletionDate)
	assert.True(t, a.ExpectedCompletionDate.Equal(day(2024, 1, 22)))

	_, err = env.instantiate.AssignPlan(ctx, 9, plan.ID, AssignParams{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.instantiate.AssignPlan(ctx, 9, 404, AssignParams{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.instantiate.AssignPlan(ctx, 9, plan.ID, AssignParams{Status: "paused"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestInstantiateDefaultsStartToToday(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	pt := createFrontendTemplate(t, env)
	env.instantiate.now = func() time.Time { return time.Date(2024, 5, 10, 22, 15, 0, 0, time.UTC) }

	plan, err := env.instantiate.Instantiate(ctx, InstantiateParams{PlanTemplateID: pt.ID, StudentID: 4})
	require.NoError(t, err)
	sprints, err := env.planRepo.ListSprints(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, sprints, 1)
	assert.True(t, sprints[0].StartDate.Equal(day(2024, 5, 10)))
	assert.True(t, sprints[0].EndDate.Equal(day(2024, 5, 17)))
}
