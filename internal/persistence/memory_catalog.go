package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

// InMemoryCatalog is a goroutine-safe Catalog backed by a map.
type InMemoryCatalog struct {
	mu    sync.RWMutex
	plans map[string]Plan
}

// NewInMemoryCatalog creates an empty InMemoryCatalog.
func NewInMemoryCatalog() *InMemoryCatalog {
	return &InMemoryCatalog{plans: make(map[string]Plan)}
}

var _ Catalog = (*InMemoryCatalog)(nil)

func (c *InMemoryCatalog) SavePlan(ctx context.Context, p Plan) (string, error) {
	if p.ID == "" {
		p.ID = ulid.Make().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.Steps = api.CloneSteps(p.Steps)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.plans[p.ID] = p
	return p.ID, nil
}

func (c *InMemoryCatalog) GetPlan(ctx context.Context, id string) (Plan, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.plans[id]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	p.Steps = api.CloneSteps(p.Steps)
	return p, nil
}

func (c *InMemoryCatalog) ListPlans(ctx context.Context) ([]PlanSummary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]PlanSummary, 0, len(c.plans))
	for _, p := range c.plans {
		out = append(out, summarize(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
