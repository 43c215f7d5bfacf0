package route

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/device"
	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/infrastructure/database"
	_ "github.com/TohokuUniv-HasegawaLab/OpenCampus/migrations"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "routes.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func sampleExecution(route string, started time.Time) *Execution {
	return &Execution{
		ID:          GenerateID(),
		Route:       route,
		Kind:        KindTwoHop,
		Status:      StatusPartial,
		StartedAt:   started,
		CompletedAt: started.Add(6400 * time.Millisecond),
		DurationMS:  6400,
		HopsTotal:   2,
		HopsWritten: 1,
		HopsSkipped: 1,
		Hops: []HopResult{
			{Index: 0, Target: "MUMBAI", Outcome: OutcomeNotReady, Duration: 4000, Pixels: 3, Mode: device.WriteWithoutResponse, WaitMS: 6000},
			{Index: 1, Target: "LONDON", DeviceID: "AA:BB", Outcome: OutcomeWritten, Duration: 4000, Pixels: 3, Mode: device.WriteWithoutResponse},
		},
	}
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	started := time.Date(2026, 10, 16, 9, 30, 0, 123_000_000, time.UTC)

	in := sampleExecution("SENDAI→MUMBAI→LONDON", started)
	if err := repo.CreateExecution(ctx, in); err != nil {
		t.Fatalf("CreateExecution() error = %v", err)
	}

	got, err := repo.GetExecution(ctx, in.ID)
	if err != nil {
		t.Fatalf("GetExecution() error = %v", err)
	}

	if got.Route != in.Route || got.Kind != in.Kind || got.Status != in.Status {
		t.Errorf("got %+v", got)
	}
	if !got.StartedAt.Equal(started) || !got.CompletedAt.Equal(in.CompletedAt) {
		t.Errorf("times = %v/%v, want %v/%v", got.StartedAt, got.CompletedAt, started, in.CompletedAt)
	}
	if got.HopsWritten != 1 || got.HopsSkipped != 1 || got.DurationMS != 6400 {
		t.Errorf("counters = %+v", got)
	}
	if len(got.Hops) != 2 || got.Hops[1].DeviceID != "AA:BB" || got.Hops[0].WaitMS != 6000 {
		t.Errorf("hops = %+v", got.Hops)
	}
}

func TestSQLiteRepository_GetNotFound(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.GetExecution(context.Background(), "missing")
	if !errors.Is(err, ErrExecutionNotFound) {
		t.Errorf("GetExecution() error = %v, want ErrExecutionNotFound", err)
	}
}

func TestSQLiteRepository_ListNewestFirst(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	for i, name := range []string{"CHINA", "SENDAI→MUMBAI→LONDON", "CHINA"} {
		if err := repo.CreateExecution(ctx, sampleExecution(name, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("CreateExecution() error = %v", err)
		}
	}

	all, err := repo.ListExecutions(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListExecutions() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if !all[0].StartedAt.After(all[1].StartedAt) {
		t.Error("executions not ordered newest first")
	}

	china, err := repo.ListExecutions(ctx, "CHINA", 10)
	if err != nil {
		t.Fatalf("ListExecutions(CHINA) error = %v", err)
	}
	if len(china) != 2 {
		t.Errorf("len(CHINA) = %d, want 2", len(china))
	}

	one, err := repo.ListExecutions(ctx, "", 1)
	if err != nil {
		t.Fatalf("ListExecutions(limit 1) error = %v", err)
	}
	if len(one) != 1 {
		t.Errorf("len(limit 1) = %d, want 1", len(one))
	}
}

func TestSQLiteRepository_EmptyList(t *testing.T) {
	repo := setupRepo(t)

	got, err := repo.ListExecutions(context.Background(), "CHINA", 5)
	if err != nil {
		t.Fatalf("ListExecutions() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ListExecutions() = %v, want empty non-nil slice", got)
	}
}
