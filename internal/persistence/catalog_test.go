package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

type catalogFactory func(t *testing.T) Catalog

func inMemoryCatalog(t *testing.T) Catalog {
	t.Helper()
	return NewInMemoryCatalog()
}

func sqliteCatalog(t *testing.T) Catalog {
	t.Helper()

	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	c, err := NewSQLiteCatalog(db)
	if err != nil {
		t.Fatalf("NewSQLiteCatalog failed: %v", err)
	}
	return c
}

var catalogFactories = map[string]catalogFactory{
	"in-memory": inMemoryCatalog,
	"sqlite":    sqliteCatalog,
}

func samplePlan() Plan {
	shot := api.NewPNG([]byte{0x89, 'P', 'N', 'G'})
	return Plan{
		Name: "Login Flow",
		Steps: []api.Step{
			{StepNumber: 1, EventType: api.EventLeftClick, ElementDescription: "Submit", Screenshot: &shot},
			{StepNumber: 2, EventType: "Key: Enter", ElementDescription: "input"},
		},
	}
}

func TestCatalog_SaveGet(t *testing.T) {
	for name, factory := range catalogFactories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := factory(t)

			id, err := c.SavePlan(ctx, samplePlan())
			if err != nil {
				t.Fatalf("SavePlan failed: %v", err)
			}
			if id == "" {
				t.Fatalf("expected generated ID")
			}

			got, err := c.GetPlan(ctx, id)
			if err != nil {
				t.Fatalf("GetPlan failed: %v", err)
			}
			if got.Name != "Login Flow" || len(got.Steps) != 2 {
				t.Fatalf("unexpected plan: %+v", got)
			}
			if got.Steps[0].Screenshot == nil || !got.Steps[0].Screenshot.Equal(*samplePlan().Steps[0].Screenshot) {
				t.Fatalf("screenshot not preserved: %+v", got.Steps[0].Screenshot)
			}
			if got.Steps[1].Screenshot != nil {
				t.Fatalf("expected step 2 without screenshot")
			}
			if got.Steps[1].StepNumber != 2 || got.Steps[1].EventType != "Key: Enter" {
				t.Fatalf("unexpected step 2: %+v", got.Steps[1])
			}
			if got.CreatedAt.IsZero() {
				t.Fatalf("expected CreatedAt to be set")
			}
		})
	}
}

func TestCatalog_SaveWithSameIDReplaces(t *testing.T) {
	for name, factory := range catalogFactories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := factory(t)

			p := samplePlan()
			p.ID = "session-1"
			if _, err := c.SavePlan(ctx, p); err != nil {
				t.Fatalf("SavePlan failed: %v", err)
			}

			p.Steps = p.Steps[:1]
			p.Name = "Renamed"
			if _, err := c.SavePlan(ctx, p); err != nil {
				t.Fatalf("second SavePlan failed: %v", err)
			}

			got, err := c.GetPlan(ctx, "session-1")
			if err != nil {
				t.Fatalf("GetPlan failed: %v", err)
			}
			if got.Name != "Renamed" || len(got.Steps) != 1 {
				t.Fatalf("expected replaced plan, got %+v", got)
			}

			list, err := c.ListPlans(ctx)
			if err != nil {
				t.Fatalf("ListPlans failed: %v", err)
			}
			if len(list) != 1 {
				t.Fatalf("expected 1 plan, got %d", len(list))
			}
		})
	}
}

func TestCatalog_ListNewestFirst(t *testing.T) {
	for name, factory := range catalogFactories {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := factory(t)
			base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

			for i, n := range []string{"first", "second", "third"} {
				p := samplePlan()
				p.Name = n
				p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
				if _, err := c.SavePlan(ctx, p); err != nil {
					t.Fatalf("SavePlan failed: %v", err)
				}
			}

			list, err := c.ListPlans(ctx)
			if err != nil {
				t.Fatalf("ListPlans failed: %v", err)
			}
			if len(list) != 3 {
				t.Fatalf("expected 3 plans, got %d", len(list))
			}
			if list[0].Name != "third" || list[2].Name != "first" {
				t.Fatalf("unexpected order: %+v", list)
			}
			if list[0].StepCount != 2 {
				t.Fatalf("expected step count 2, got %d", list[0].StepCount)
			}
			if !list[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
				t.Fatalf("unexpected CreatedAt: %v", list[0].CreatedAt)
			}
		})
	}
}

func TestCatalog_GetMissing(t *testing.T) {
	for name, factory := range catalogFactories {
		t.Run(name, func(t *testing.T) {
			_, err := factory(t).GetPlan(context.Background(), "nope")
			if !errors.Is(err, ErrPlanNotFound) {
				t.Fatalf("expected ErrPlanNotFound, got %v", err)
			}
		})
	}
}
