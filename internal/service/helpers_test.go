package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"studyplans/internal/database"
	"studyplans/internal/logger"
	"studyplans/internal/repository"
)

type testEnv struct {
	db           *database.DB
	templateRepo *repository.TemplateRepository
	planRepo     *repository.PlanRepository
	assignRepo   *repository.AssignmentRepository
	templates    *TemplateService
	ordering     *OrderingService
	instantiate  *InstantiationService
	progress     *ProgressService
	reports      *ReportService
	backups      *BackupService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewNop()
	env := &testEnv{
		db:           db,
		templateRepo: repository.NewTemplateRepository(db),
		planRepo:     repository.NewPlanRepository(db),
		assignRepo:   repository.NewAssignmentRepository(db),
	}
	env.templates = NewTemplateService(db, env.templateRepo, env.planRepo, log, DefaultSprintDays)
	env.ordering = NewOrderingService(db, log)
	env.instantiate = NewInstantiationService(db, env.templateRepo, env.planRepo, env.assignRepo, log, DefaultSprintDays)
	env.progress = NewProgressService(db, env.planRepo, env.assignRepo, log)
	env.reports = NewReportService(env.planRepo, env.assignRepo)
	env.backups = NewBackupService(db, env.templateRepo, log)
	return env
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

func (e *testEnv) countRows(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, e.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
