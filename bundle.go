package testrecorder

import (
	"context"
	"database/sql"
	"strings"

	"github.com/JHodgkins/Test-Recorder-Extension/internal/export"
	"github.com/JHodgkins/Test-Recorder-Extension/internal/persistence"
)

// Archive wires a plan catalog to an export directory: stopped plans are
// saved once and can be exported again later.
type Archive struct {
	Catalog persistence.Catalog

	// Dir receives exported files.
	Dir string
}

// NewSQLiteArchive constructs an Archive whose catalog lives in db.
//
// Typical usage:
//
//	db, _ := persistence.OpenSQLite("plans.db")
//	archive, err := testrecorder.NewSQLiteArchive(db, "./exports")
//	id, _ := archive.Save(ctx, "", res.TestPlanName, res.Steps)
//	files, _ := archive.Export(ctx, id, true)
func NewSQLiteArchive(db *sql.DB, dir string) (*Archive, error) {
	cat, err := persistence.NewSQLiteCatalog(db)
	if err != nil {
		return nil, err
	}
	return &Archive{Catalog: cat, Dir: dir}, nil
}

// NewInMemoryArchive constructs an Archive that forgets plans on exit.
func NewInMemoryArchive(dir string) *Archive {
	return &Archive{Catalog: persistence.NewInMemoryCatalog(), Dir: dir}
}

// Save archives steps under id, or a new id when id is empty. A blank
// planName is stored as "TestPlan".
func (a *Archive) Save(ctx context.Context, id, planName string, steps []Step) (string, error) {
	return a.Catalog.SavePlan(ctx, Plan{
		ID:    id,
		Name:  export.PlanName(strings.TrimSpace(planName)),
		Steps: steps,
	})
}

// List returns the archived plans, newest first.
func (a *Archive) List(ctx context.Context) ([]PlanSummary, error) {
	return a.Catalog.ListPlans(ctx)
}

// Export writes the CSV and ZIP of plan id into Dir, plus the XLSX workbook
// when workbook is set. It returns the written paths.
func (a *Archive) Export(ctx context.Context, id string, workbook bool) ([]string, error) {
	p, err := a.Catalog.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	b, err := export.WriteBundle(a.Dir, p.Name, p.Steps)
	if err != nil {
		return nil, err
	}
	files := []string{b.CSVPath, b.ZIPPath}

	if workbook {
		path, err := export.WriteWorkbook(a.Dir, p.Name, p.Steps)
		if err != nil {
			return files, err
		}
		files = append(files, path)
	}
	return files, nil
}
