package workflow

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/dukex/shopflow/pkg/models"
)

// DefaultMaxConcurrent bounds the executions one event runs at the same time.
const DefaultMaxConcurrent = 8

// Service runs every workflow an inbound event matches.
type Service struct {
	matcher       *TriggerMatcher
	executor      *Executor
	logger        *slog.Logger
	maxConcurrent int
}

func NewService(matcher *TriggerMatcher, executor *Executor, logger *slog.Logger) *Service {
	return &Service{
		matcher:       matcher,
		executor:      executor,
		logger:        logger.With("module", "workflow_service"),
		maxConcurrent: DefaultMaxConcurrent,
	}
}

// SetMaxConcurrent changes the bound of concurrent executions per event; n < 1 removes it.
func (s *Service) SetMaxConcurrent(n int) {
	s.maxConcurrent = n
}

// HandleEvent matches event and runs the matched executions concurrently.
// Executions are returned in match order; the ones that could not be recorded are omitted
// and their errors joined into the returned error.
func (s *Service) HandleEvent(ctx context.Context, event models.Event) ([]*models.Execution, error) {
	logger := s.logger.With("topic", event.Topic, "shop_domain", event.ShopDomain, "external_event_id", event.ExternalEventID)

	matches, err := s.matcher.Match(ctx, event.Topic, event.ShopDomain)
	if err != nil {
		return nil, err
	}

	if len(matches) == 0 {
		logger.InfoContext(ctx, "No workflow matched event")

		return []*models.Execution{}, nil
	}

	results := make([]*models.Execution, len(matches))
	failures := make([]error, len(matches))

	var group errgroup.Group
	if s.maxConcurrent > 0 {
		group.SetLimit(s.maxConcurrent)
	}

	for i, match := range matches {
		group.Go(func() error {
			execution, err := s.executor.Execute(ctx, match.Workflow, match.StartNode, event)
			results[i] = execution
			failures[i] = err

			return nil
		})
	}

	_ = group.Wait()

	executions := make([]*models.Execution, 0, len(matches))

	for _, execution := range results {
		if execution != nil {
			executions = append(executions, execution)
		}
	}

	logger.InfoContext(ctx, "Event handled", "matches", len(matches), "executions", len(executions))

	return executions, errors.Join(failures...)
}
