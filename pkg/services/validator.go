package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"

	"github.com/dukex/shopflow/pkg/models"
	"github.com/dukex/shopflow/pkg/registry"
)

// Validator checks workflows before they are stored.
type Validator struct {
	validate *validator.Validate
	registry *registry.Registry
}

func NewValidator(reg *registry.Registry) *Validator {
	return &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		registry: reg,
	}
}

// Validate checks the struct tags of wf, its graph integrity and the settings of every
// action node against the JSON schema of its action.
func (v *Validator) Validate(wf *models.Workflow) error {
	if wf == nil {
		return ErrWorkflowNil
	}

	problems := &ValidationError{}

	err := v.validate.Struct(wf)
	if err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			return fmt.Errorf("failed to validate workflow: %w", err)
		}

		for _, fieldErr := range fieldErrors {
			problems.add(fieldErr.Namespace(), "failed on the %q rule", fieldErr.Tag())
		}
	}

	v.checkGraph(wf, problems)

	return problems.orNil()
}

func (v *Validator) checkGraph(wf *models.Workflow, problems *ValidationError) {
	if len(wf.Nodes) == 0 {
		problems.add("nodes", "workflow must have at least one node")

		return
	}

	ids := make(map[string]bool, len(wf.Nodes))
	triggers := 0

	for i, node := range wf.Nodes {
		if node == nil {
			problems.add(fmt.Sprintf("nodes[%d]", i), "node is null")

			continue
		}

		field := fmt.Sprintf("nodes[%s]", node.ID)

		if ids[node.ID] {
			problems.add(field, "duplicate node id")
		}

		ids[node.ID] = true

		switch node.Type {
		case models.NodeTypeTrigger:
			triggers++

			if strings.TrimSpace(node.Topic()) == "" {
				problems.add(field, "trigger node has no topic")
			}
		case models.NodeTypeAction:
			v.checkAction(field, node, problems)
		}
	}

	if triggers == 0 {
		problems.add("nodes", "workflow must have at least one trigger node")
	}

	for i, edge := range wf.Edges {
		if edge == nil {
			problems.add(fmt.Sprintf("edges[%d]", i), "edge is null")

			continue
		}

		field := fmt.Sprintf("edges[%s]", edge.ID)

		if !ids[edge.SourceNodeID] {
			problems.add(field, "source node %q does not exist", edge.SourceNodeID)
		}

		if !ids[edge.TargetNodeID] {
			problems.add(field, "target node %q does not exist", edge.TargetNodeID)
		}
	}
}

func (v *Validator) checkAction(field string, node *models.Node, problems *ValidationError) {
	if v.registry == nil || node.ActionKey == "" {
		return
	}

	action := v.registry.GetAction(node.ActionKey)
	if action == nil {
		problems.add(field, "unknown action %q", node.ActionKey)

		return
	}

	schema := action.Schema()
	if schema == nil {
		return
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(node.FlatSettings()))
	if err != nil {
		problems.add(field, "settings could not be validated: %v", err)

		return
	}

	for _, schemaErr := range result.Errors() {
		problems.add(field+".settings", "%s", schemaErr.String())
	}
}
