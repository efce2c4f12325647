// Package graph materializes a workflow into an execution ready adjacency structure.
package graph

import (
	"strings"

	"github.com/dukex/shopflow/pkg/models"
)

// Graph indexes the nodes of a workflow by id and its edges by source node.
// Cycles and dangling edge endpoints are kept as stored.
type Graph struct {
	Nodes    map[string]*models.Node
	Outgoing map[string][]*models.Edge

	triggers []*models.Node
}

// Load builds the graph of wf. Outgoing edges keep their declaration order.
func Load(wf *models.Workflow) *Graph {
	g := &Graph{
		Nodes:    make(map[string]*models.Node, len(wf.Nodes)),
		Outgoing: make(map[string][]*models.Edge, len(wf.Nodes)),
	}

	for _, node := range wf.Nodes {
		if node == nil {
			continue
		}

		g.Nodes[node.ID] = node

		if node.Type == models.NodeTypeTrigger {
			g.triggers = append(g.triggers, node)
		}
	}

	for _, edge := range wf.Edges {
		if edge == nil {
			continue
		}

		g.Outgoing[edge.SourceNodeID] = append(g.Outgoing[edge.SourceNodeID], edge)
	}

	return g
}

// Node returns the node with id, or nil.
func (g *Graph) Node(id string) *models.Node {
	return g.Nodes[id]
}

// Edges returns the outgoing edges of node id.
func (g *Graph) Edges(id string) []*models.Edge {
	return g.Outgoing[id]
}

// EdgesWithLabel returns the outgoing edges of node id carrying label, compared case-insensitively.
func (g *Graph) EdgesWithLabel(id, label string) []*models.Edge {
	var edges []*models.Edge

	for _, edge := range g.Outgoing[id] {
		if strings.EqualFold(edge.Label, label) {
			edges = append(edges, edge)
		}
	}

	return edges
}

// TriggerNodes returns the trigger nodes in declaration order.
func (g *Graph) TriggerNodes() []*models.Node {
	return g.triggers
}
