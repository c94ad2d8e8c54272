package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyplans/internal/position"
)

func TestReorderSprintTemplates(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	pt, err := env.templates.CreatePlanTemplate(ctx, PlanTemplateInput{Name: "Order"})
	require.NoError(t, err)
	ids := map[string]int64{}
	for _, name := range []string{"A", "B", "C"} {
		st, err := env.templates.CreateSprintTemplateWithGoals(ctx, SprintTemplateInput{PlanTemplateID: pt.ID, Name: name})
		require.NoError(t, err)
		ids[name] = st.ID
	}

	got, err := env.ordering.Reorder(ctx, position.ScopePlanTemplate, pt.ID, []int64{ids["C"], ids["A"], ids["B"]})
	require.NoError(t, err)
	assert.Equal(t, []position.Assignment{{ID: ids["C"], Position: 1}, {ID: ids["A"], Position: 2}, {ID: ids["B"], Position: 3}}, got)

	sprints, err := env.templateRepo.ListSprintTemplates(ctx, pt.ID)
	require.NoError(t, err)
	names := []string{}
	for i, s := range sprints {
		names = append(names, s.Name)
		assert.Equal(t, i+1, s.Position)
	}
	assert.Equal(t, []string{"C", "A", "B"}, names)
}

func TestReorderRejectsPartialList(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	pt, err := env.templates.CreatePlanTemplate(ctx, PlanTemplateInput{Name: "Partial"})
	require.NoError(t, err)
	var ids []int64
	for _, name := range []string{"A", "B", "C"} {
		st, err := env.templates.CreateSprintTemplateWithGoals(ctx, SprintTemplateInput{PlanTemplateID: pt.ID, Name: name})
		require.NoError(t, err)
		ids = append(ids, st.ID)
	}

	tests := []struct {
		name    string
		ordered []int64
	}{
		{"missing child", ids[:2]},
		{"duplicate", []int64{ids[0], ids[0], ids[1]}},
		{"foreign id", []int64{ids[0], ids[1], 9999}},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ordering.Reorder(ctx, position.ScopePlanTemplate, pt.ID, tt.ordered)
			require.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, FieldsOf(err), "orderedChildIds")

			sprints, err := env.templateRepo.ListSprintTemplates(ctx, pt.ID)
			require.NoError(t, err)
			for i, s := range sprints {
				assert.Equal(t, ids[i], s.ID)
				assert.Equal(t, i+1, s.Position)
			}
		})
	}
}

func TestReorderUnknownParent(t *testing.T) {
	env := setupTestEnv(t)
	_, err := env.ordering.Reorder(context.Background(), position.ScopeSprint, 42, []int64{1})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.ordering.Reorder(context.Background(), position.ScopeSprint, 0, []int64{1})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReorderInstanceGoals(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	pt := createFrontendTemplate(t, env)

	plan, err := env.instantiate.Instantiate(ctx, InstantiateParams{PlanTemplateID: pt.ID, StudentID: 7})
	require.NoError(t, err)
	tree, err := env.instantiate.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	sprint := tree.Sprints[0]
	html, css := sprint.Goals[0].ID, sprint.Goals[1].ID

	_, err = env.ordering.Reorder(ctx, position.ScopeSprint, sprint.ID, []int64{css, html})
	require.NoError(t, err)

	goals, err := env.planRepo.ListGoals(ctx, sprint.ID)
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.Equal(t, "CSS", goals[0].Title)
	assert.Equal(t, 1, goals[0].Position)
	assert.Equal(t, "HTML", goals[1].Title)
	assert.Equal(t, 2, goals[1].Position)

	master, err := env.templateRepo.ListGoalTemplates(ctx, *sprint.SourceSprintTemplateID)
	require.NoError(t, err)
	assert.Equal(t, "HTML", master[0].Title, "template order must not follow instance reorder")
}
