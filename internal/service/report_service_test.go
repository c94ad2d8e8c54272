package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPlanReport(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	tree := instantiateFrontend(t, env, 7)

	_, err := env.progress.UpdateGoal(ctx, tree.Sprints[0].Goals[0].ID, GoalProgressPatch{Status: ptr("completed")})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, env.reports.RenderPlanReport(ctx, 7, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")), "output is not a PDF")
	assert.Greater(t, buf.Len(), 500)
}

func TestRenderPlanReportWithoutActivePlan(t *testing.T) {
	env := setupTestEnv(t)
	var buf bytes.Buffer
	err := env.reports.RenderPlanReport(context.Background(), 42, &buf)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, buf.Len())
}
