package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/dukex/shopflow/pkg/models"
)

// DefaultCatalogRefresh is the cron schedule of catalog reloads.
const DefaultCatalogRefresh = "@every 30s"

// WorkflowLister loads every stored workflow in insertion order.
type WorkflowLister interface {
	GetAll(ctx context.Context) ([]*models.Workflow, error)
}

// Catalog is a WorkflowSource serving active workflows from memory, reloaded on a cron schedule.
type Catalog struct {
	lister WorkflowLister
	logger *slog.Logger

	mu     sync.RWMutex
	byShop map[string][]*models.Workflow

	cron *cron.Cron
}

func NewCatalog(lister WorkflowLister, logger *slog.Logger) *Catalog {
	return &Catalog{
		lister: lister,
		logger: logger.With("module", "workflow_catalog"),
		byShop: make(map[string][]*models.Workflow),
	}
}

// Refresh reloads the catalog. On failure the previous content is kept.
func (c *Catalog) Refresh(ctx context.Context) error {
	workflows, err := c.lister.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load workflows: %w", err)
	}

	byShop := make(map[string][]*models.Workflow)
	active := 0

	for _, wf := range workflows {
		if wf == nil || !wf.Active {
			continue
		}

		shop := strings.ToLower(wf.ShopDomain)
		byShop[shop] = append(byShop[shop], wf)
		active++
	}

	c.mu.Lock()
	c.byShop = byShop
	c.mu.Unlock()

	c.logger.DebugContext(ctx, "Workflow catalog refreshed", "workflows", len(workflows), "active", active)

	return nil
}

func (c *Catalog) FindActiveByShop(_ context.Context, shopDomain string) ([]*models.Workflow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached := c.byShop[strings.ToLower(shopDomain)]
	workflows := make([]*models.Workflow, len(cached))
	copy(workflows, cached)

	return workflows, nil
}

// Start loads the catalog once and schedules reloads with schedule, a robfig/cron spec.
func (c *Catalog) Start(ctx context.Context, schedule string) error {
	err := c.Refresh(ctx)
	if err != nil {
		return err
	}

	if schedule == "" {
		schedule = DefaultCatalogRefresh
	}

	c.cron = cron.New()

	// reloads run until Stop, even after ctx is cancelled
	refreshCtx := context.WithoutCancel(ctx)

	_, err = c.cron.AddFunc(schedule, func() {
		if err := c.Refresh(refreshCtx); err != nil {
			c.logger.ErrorContext(refreshCtx, "Failed to refresh workflow catalog", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid catalog refresh schedule %q: %w", schedule, err)
	}

	c.cron.Start()
	c.logger.InfoContext(ctx, "Workflow catalog started", "schedule", schedule)

	return nil
}

// Stop halts scheduled reloads and waits for a running one to finish.
func (c *Catalog) Stop() {
	if c.cron == nil {
		return
	}

	<-c.cron.Stop().Done()
}
