// Package persistence archives exported test plans.
//
// The recorder itself keeps no durable state; the catalog only holds copies
// of plans that a controller has stopped and exported.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

// ErrPlanNotFound is returned when a plan is not in the catalog.
var ErrPlanNotFound = errors.New("plan not found")

// Plan is an archived recording.
type Plan struct {
	// ID is the plan's identifier. SavePlan assigns one when empty; saving
	// again with the same ID replaces the stored plan.
	ID        string
	Name      string
	Steps     []api.Step
	CreatedAt time.Time
}

// PlanSummary describes a plan without its steps.
type PlanSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StepCount int       `json:"stepCount"`
	CreatedAt time.Time `json:"createdAt"`
}

// Catalog stores archived plans.
type Catalog interface {
	SavePlan(ctx context.Context, p Plan) (string, error)
	GetPlan(ctx context.Context, id string) (Plan, error)
	// ListPlans returns summaries, newest first.
	ListPlans(ctx context.Context) ([]PlanSummary, error)
}

func summarize(p Plan) PlanSummary {
	return PlanSummary{
		ID:        p.ID,
		Name:      p.Name,
		StepCount: len(p.Steps),
		CreatedAt: p.CreatedAt,
	}
}
