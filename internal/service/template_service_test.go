package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyplans/internal/models"
)

func TestCreateSprintTemplateWithGoalsBatchPositions(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	pt, err := env.templates.CreatePlanTemplate(ctx, PlanTemplateInput{Name: "Batch"})
	require.NoError(t, err)

	first, err := env.templates.CreateSprintTemplateWithGoals(ctx, SprintTemplateInput{
		PlanTemplateID: pt.ID,
		Name:           "Warmup",
		Goals:          []GoalTemplateInput{{Title: "one"}, {Title: "two"}, {Title: "three"}},
	})
	require.NoError(t, err)
	require.Len(t, first.Goals, 3)

	titles := []string{"zeta", "alpha", "mu", "beta"}
	in := SprintTemplateInput{PlanTemplateID: pt.ID, Name: "Sprint"}
	for _, title := range titles {
		in.Goals = append(in.Goals, GoalTemplateInput{Title: title, Type: "unknown"})
	}
	st, err := env.templates.CreateSprintTemplateWithGoals(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Position)

	goals, err := env.templateRepo.ListGoalTemplates(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, goals, len(titles))
	for i, g := range goals {
		assert.Equal(t, titles[i], g.Title)
		assert.Equal(t, i+1, g.Position)
		assert.Equal(t, models.GoalTypeTheory, g.Type)
		assert.Equal(t, models.DefaultRelevance, g.Relevance)
	}

	third, err := env.templates.CreateSprintTemplateWithGoals(ctx, SprintTemplateInput{PlanTemplateID: pt.ID, Name: "Third"})
	require.NoError(t, err)
	assert.Equal(t, 3, third.Position)
}

func TestAddGoalTemplateAppends(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	pt := createFrontendTemplate(t, env)

	tree, err := env.templates.GetPlanTemplate(ctx, pt.ID)
	require.NoError(t, err)
	sprintID := tree.Sprints[0].ID

	gt, err := env.templates.AddGoalTemplate(ctx, GoalTemplateInput{SprintTemplateID: sprintID, Title: "JavaScript", Type: "reinforcement"})
	require.NoError(t, err)
	assert.Equal(t, 3, gt.Position)
	assert.Equal(t, models.GoalTypeReinforcement, gt.Type)

	_, err = env.templates.AddGoalTemplate(ctx, GoalTemplateInput{SprintTemplateID: 999, Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.templates.AddGoalTemplate(ctx, GoalTemplateInput{SprintTemplateID: sprintID})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAddGoalTemplateConcurrentAppendsStayUnique(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	pt := createFrontendTemplate(t, env)
	tree, err := env.templates.GetPlanTemplate(ctx, pt.ID)
	require.NoError(t, err)
	sprintID := tree.Sprints[0].ID

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.templates.AddGoalTemplate(ctx, GoalTemplateInput{SprintTemplateID: sprintID, Title: "parallel"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
	}

	goals, err := env.templateRepo.ListGoalTemplates(ctx, sprintID)
	require.NoError(t, err)
	assert.Len(t, goals, 2+created)
	seen := map[int]bool{}
	for _, g := range goals {
		assert.False(t, seen[g.Position], "duplicate position %d", g.Position)
		seen[g.Position] = true
	}
}

func TestPlanTemplateLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.templates.CreatePlanTemplate(ctx, PlanTemplateInput{Name: "  "})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, map[string]string{"name": "is required"}, FieldsOf(err))

	pt, err := env.templates.CreatePlanTemplate(ctx, PlanTemplateInput{Name: "Data", Version: "v1"})
	require.NoError(t, err)
	assert.True(t, pt.Active)

	updated, err := env.templates.UpdatePlanTemplate(ctx, pt.ID, PlanTemplateInput{Name: "Data Science", Version: "v2", DurationMonths: ptr(6)})
	require.NoError(t, err)
	assert.Equal(t, "Data Science", updated.Name)

	got, err := env.templates.GetPlanTemplate(ctx, pt.ID)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Version)
	require.NotNil(t, got.DurationMonths)
	assert.Equal(t, 6, *got.DurationMonths)

	_, err = env.templates.DeactivatePlanTemplate(ctx, pt.ID)
	require.NoError(t, err)

	active, err := env.templates.ListPlanTemplates(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := env.templates.ListPlanTemplates(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].Active)

	_, err = env.templates.UpdatePlanTemplate(ctx, 999, PlanTemplateInput{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.templates.GetPlanTemplate(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateTemplatesKeepPositionsAndInstances(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	pt := createFrontendTemplate(t, env)

	plan, err := env.instantiate.Instantiate(ctx, InstantiateParams{PlanTemplateID: pt.ID, StudentID: 7})
	require.NoError(t, err)

	tree, err := env.templates.GetPlanTemplate(ctx, pt.ID)
	require.NoError(t, err)
	st := tree.Sprints[0]

	_, err = env.templates.UpdateSprintTemplate(ctx, st.ID, SprintTemplateInput{Name: "Week One", DurationDays: ptr(10)})
	require.NoError(t, err)
	gt, err := env.templates.UpdateGoalTemplate(ctx, st.Goals[1].ID, GoalTemplateInput{Title: "CSS Grid", Type: "review"})
	require.NoError(t, err)
	assert.Equal(t, 2, gt.Position)

	_, err = env.templates.UpdateSprintTemplate(ctx, st.ID, SprintTemplateInput{
		Name: "Bad", StartDate: ptr(day(2024, 2, 1)), EndDate: ptr(day(2024, 1, 1)),
	})
	assert.ErrorIs(t, err, ErrValidation)

	instance, err := env.instantiate.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, "Semana 1", instance.Sprints[0].Name)
	assert.Equal(t, "CSS", instance.Sprints[0].Goals[1].Title)
}

func TestAddSprintAndGoalToPlan(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	pt := createFrontendTemplate(t, env)

	plan, err := env.instantiate.Instantiate(ctx, InstantiateParams{PlanTemplateID: pt.ID, StudentID: 7, StartDate: ptr(day(2024, 1, 15))})
	require.NoError(t, err)

	sprint, err := env.templates.AddSprint(ctx, SprintInput{PlanID: plan.ID, Name: "Extra"})
	require.NoError(t, err)
	assert.Equal(t, 2, sprint.Position)
	assert.True(t, sprint.StartDate.Equal(day(2024, 1, 23)), "start %v", sprint.StartDate)
	assert.True(t, sprint.EndDate.Equal(day(2024, 1, 30)), "end %v", sprint.EndDate)
	assert.Equal(t, models.StatusPending, sprint.Status)

	goal, err := env.templates.AddGoal(ctx, GoalInput{SprintID: sprint.ID, Title: "Accessibility"})
	require.NoError(t, err)
	assert.Equal(t, 1, goal.Position)
	goal2, err := env.templates.AddGoal(ctx, GoalInput{SprintID: sprint.ID, Title: "Performance", Type: "questions"})
	require.NoError(t, err)
	assert.Equal(t, 2, goal2.Position)

	_, err = env.templates.AddSprint(ctx, SprintInput{PlanID: 999, Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.templates.AddSprint(ctx, SprintInput{PlanID: plan.ID, Name: "bad", StartDate: ptr(day(2024, 3, 2)), EndDate: ptr(day(2024, 3, 1))})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.templates.AddGoal(ctx, GoalInput{SprintID: 999, Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddSprintStartMustFollowLastSprint(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	pt := createFrontendTemplate(t, env)

	plan, err := env.instantiate.Instantiate(ctx, InstantiateParams{PlanTemplateID: pt.ID, StudentID: 7, StartDate: ptr(day(2024, 1, 15))})
	require.NoError(t, err)

	for _, start := range []time.Time{day(2024, 1, 10), day(2024, 1, 22), day(2024, 1, 22).Add(18 * time.Hour)} {
		_, err = env.templates.AddSprint(ctx, SprintInput{PlanID: plan.ID, Name: "Overlap", StartDate: ptr(start)})
		assert.ErrorIs(t, err, ErrValidation, "start %v", start)
		assert.Contains(t, FieldsOf(err), "startDate")
	}

	sprint, err := env.templates.AddSprint(ctx, SprintInput{PlanID: plan.ID, Name: "Next", StartDate: ptr(day(2024, 1, 23))})
	require.NoError(t, err)
	assert.True(t, sprint.StartDate.Equal(day(2024, 1, 23)), "start %v", sprint.StartDate)
	assert.Equal(t, 2, env.countRows(t, "sprints"))
}

func TestSprintTemplateDatesCompareByDay(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	pt, err := env.templates.CreatePlanTemplate(ctx, PlanTemplateInput{Name: "Dates"})
	require.NoError(t, err)

	sameDay := SprintTemplateInput{
		PlanTemplateID: pt.ID,
		Name:           "Same day",
		StartDate:      ptr(day(2024, 2, 1).Add(15 * time.Hour)),
		EndDate:        ptr(day(2024, 2, 1).Add(9 * time.Hour)),
	}
	st, err := env.templates.CreateSprintTemplateWithGoals(ctx, sameDay)
	require.NoError(t, err)

	_, err = env.templates.UpdateSprintTemplate(ctx, st.ID, sameDay)
	require.NoError(t, err)

	sameDay.EndDate = ptr(day(2024, 1, 31).Add(23 * time.Hour))
	_, err = env.templates.UpdateSprintTemplate(ctx, st.ID, sameDay)
	assert.ErrorIs(t, err, ErrValidation)
}
