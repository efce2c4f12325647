package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/shopflow/pkg/models"
)

// WorkflowSource lists the active workflows of a shop in insertion order.
type WorkflowSource interface {
	FindActiveByShop(ctx context.Context, shopDomain string) ([]*models.Workflow, error)
}

// Match pairs a workflow with the trigger node an event entered it through.
type Match struct {
	Workflow  *models.Workflow
	StartNode *models.Node
}

// TriggerMatcher selects the workflows an inbound event starts.
type TriggerMatcher struct {
	source WorkflowSource
	logger *slog.Logger
}

func NewTriggerMatcher(source WorkflowSource, logger *slog.Logger) *TriggerMatcher {
	return &TriggerMatcher{
		source: source,
		logger: logger.With("module", "trigger_matcher"),
	}
}

// NormalizeTopic lower-cases topic and unifies the "/", "." and "_" separators.
func NormalizeTopic(topic string) string {
	return strings.NewReplacer(".", "/", "_", "/").Replace(strings.ToLower(strings.TrimSpace(topic)))
}

// Match returns one match per active workflow of shopDomain having a trigger on topic,
// using its first matching trigger node. No match is a normal outcome.
func (tm *TriggerMatcher) Match(ctx context.Context, topic, shopDomain string) ([]Match, error) {
	workflows, err := tm.source.FindActiveByShop(ctx, shopDomain)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflows of %s: %w", shopDomain, err)
	}

	wanted := NormalizeTopic(topic)
	matches := make([]Match, 0)

	for _, wf := range workflows {
		if wf == nil || !wf.Active || !strings.EqualFold(wf.ShopDomain, shopDomain) {
			continue
		}

		for _, node := range wf.TriggerNodes() {
			if wanted != "" && NormalizeTopic(node.Topic()) == wanted {
				matches = append(matches, Match{Workflow: wf, StartNode: node})

				break
			}
		}
	}

	tm.logger.DebugContext(ctx, "Completed trigger matching",
		"topic", topic,
		"shop_domain", shopDomain,
		"workflows_count", len(workflows),
		"matches_found", len(matches))

	return matches, nil
}
