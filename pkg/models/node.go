package models

// NodeType represents the role of a node in the workflow graph.
type NodeType string

const (
	NodeTypeTrigger   NodeType = "trigger"   // Entry point matched against inbound topics
	NodeTypeAction    NodeType = "action"    // Performs one side effect through the action registry
	NodeTypeCondition NodeType = "condition" // Routes to "true" or "false" labelled edges
	NodeTypeStopper   NodeType = "stopper"   // Ends the branch
)

// Conventional edge labels.
const (
	EdgeLabelTrue  = "true"
	EdgeLabelFalse = "false"
	EdgeLabelThen  = "then"
)

// SettingsFormKey is the key under which editors nest node settings.
const SettingsFormKey = "form"

// TopicSettingKey holds the inbound topic configured on a trigger node.
const TopicSettingKey = "topic"

// Node represents a single step of a workflow.
type Node struct {
	ID        string         `json:"id"                   validate:"required"`
	Type      NodeType       `json:"type"                 validate:"required,oneof=trigger action condition stopper"`
	ActionKey string         `json:"action_key,omitempty" validate:"required_if=Type action"`
	Settings  map[string]any `json:"settings,omitempty"`
	Position  map[string]any `json:"position,omitempty"`
}

// FlatSettings returns the node settings with entries nested under "form" merged over
// the top-level entries. Missing settings yield an empty map.
func (n *Node) FlatSettings() map[string]any {
	flat := make(map[string]any, len(n.Settings))

	for key, value := range n.Settings {
		if key == SettingsFormKey {
			continue
		}

		flat[key] = value
	}

	if form, ok := n.Settings[SettingsFormKey].(map[string]any); ok {
		for key, value := range form {
			flat[key] = value
		}
	}

	return flat
}

// Topic returns the topic configured on a trigger node.
func (n *Node) Topic() string {
	topic, _ := n.FlatSettings()[TopicSettingKey].(string)

	return topic
}

// Edge connects two nodes of the same workflow.
type Edge struct {
	ID           string `json:"id"             validate:"required"`
	SourceNodeID string `json:"source_node_id" validate:"required"`
	TargetNodeID string `json:"target_node_id" validate:"required"`
	Label        string `json:"label,omitempty"`
}
