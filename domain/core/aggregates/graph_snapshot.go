package aggregates

import (
	"encoding/json"

	"studio-backend/domain/catalog"
	"studio-backend/domain/config"
	"studio-backend/domain/core/entities"
	"studio-backend/domain/events"
	"studio-backend/domain/valueobjects"
	pkgerrors "studio-backend/pkg/errors"
)

// GraphSnapshot is the persisted shape of a graph. Nodes carry their port
// ids; edges reference ports by id and are re-linked on import.
type GraphSnapshot struct {
	Nodes []NodeSnapshot `json:"nodes"`
	Edges []EdgeSnapshot `json:"edges"`
}

// NodeSnapshot is the persisted shape of a node
type NodeSnapshot struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	InputPort   string   `json:"inputPort,omitempty"`
	OutputPorts []string `json:"outputPorts"`
}

// EdgeSnapshot is the persisted shape of an edge
type EdgeSnapshot struct {
	ID         string `json:"id"`
	FromPortID string `json:"fromPortId"`
	ToPortID   string `json:"toPortId"`
}

// Export produces a snapshot of the graph. Node and edge order follow
// insertion order; output port order is preserved.
func (g *Graph) Export() GraphSnapshot {
	snap := GraphSnapshot{
		Nodes: []NodeSnapshot{},
		Edges: []EdgeSnapshot{},
	}
	for _, node := range g.Nodes() {
		ns := NodeSnapshot{
			ID:          node.ID().String(),
			Name:        node.Name(),
			Type:        node.Type(),
			OutputPorts: []string{},
		}
		if input := node.InputPort(); input != nil {
			ns.InputPort = input.ID().String()
		}
		for _, port := range node.OutputPorts() {
			ns.OutputPorts = append(ns.OutputPorts, port.ID().String())
		}
		snap.Nodes = append(snap.Nodes, ns)
	}
	for _, edge := range g.Edges() {
		snap.Edges = append(snap.Edges, EdgeSnapshot{
			ID:         edge.ID().String(),
			FromPortID: edge.FromPortID().String(),
			ToPortID:   edge.ToPortID().String(),
		})
	}
	return snap
}

// ExportJSON serializes the graph snapshot
func (g *Graph) ExportJSON() ([]byte, error) {
	data, err := json.Marshal(g.Export())
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to serialize graph", err)
	}
	return data, nil
}

// ImportGraph reconstructs a graph from a snapshot. Nodes are rebuilt first
// so their ports exist, then edges are re-linked by port id; an edge that
// references a port no node owns fails the whole import. Connection flags
// are recomputed from the surviving edges rather than trusted from the
// snapshot. No domain events are published during reconstruction.
func ImportGraph(snap GraphSnapshot, bus *events.Bus, cat *catalog.Catalog, cfg *config.DomainConfig) (*Graph, error) {
	if cat == nil {
		cat = catalog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	g := &Graph{
		nodes:   make(map[string]*entities.Node),
		edges:   make(map[string]*Edge),
		ports:   make(map[string]*entities.Port),
		catalog: cat,
		cfg:     cfg,
	}

	for _, ns := range snap.Nodes {
		nodeID, err := valueobjects.ParseNodeID(ns.ID)
		if err != nil {
			return nil, err
		}
		node, err := entities.ReconstructNode(nodeID, ns.Name, ns.Type)
		if err != nil {
			return nil, err
		}
		if ns.InputPort != "" {
			portID, err := valueobjects.ParsePortID(ns.InputPort)
			if err != nil {
				return nil, err
			}
			port := entities.ReconstructPort(portID, entities.RoleInput)
			if err := node.AttachInputPort(port); err != nil {
				return nil, err
			}
			g.ports[portID.String()] = port
		}
		for _, raw := range ns.OutputPorts {
			portID, err := valueobjects.ParsePortID(raw)
			if err != nil {
				return nil, err
			}
			port := entities.ReconstructPort(portID, entities.RoleOutput)
			if err := node.AttachOutputPort(port, cat.MaxOutputs(ns.Type, cfg.FallbackMaxOutputs)); err != nil {
				return nil, err
			}
			g.ports[portID.String()] = port
		}
		g.nodes[nodeID.String()] = node
		g.nodeOrder = append(g.nodeOrder, nodeID)
	}

	for _, es := range snap.Edges {
		edgeID, err := valueobjects.ParseEdgeID(es.ID)
		if err != nil {
			return nil, err
		}
		fromPortID, err := valueobjects.ParsePortID(es.FromPortID)
		if err != nil {
			return nil, err
		}
		toPortID, err := valueobjects.ParsePortID(es.ToPortID)
		if err != nil {
			return nil, err
		}
		fromPort, ok := g.ports[fromPortID.String()]
		if !ok {
			return nil, pkgerrors.NewValidationError(pkgerrors.CodeDanglingPortReference, "edge references a port that no node owns")
		}
		toPort, ok := g.ports[toPortID.String()]
		if !ok {
			return nil, pkgerrors.NewValidationError(pkgerrors.CodeDanglingPortReference, "edge references a port that no node owns")
		}
		if !fromPort.IsOutput() || !toPort.IsInput() {
			return nil, pkgerrors.NewValidationError(pkgerrors.CodeInvalidPortRole, "edges run from an output port to an input port")
		}
		edge := newEdge(edgeID, fromPortID, toPortID, fromPort.Parent().ID(), toPort.Parent().ID())
		g.edges[edgeID.String()] = edge
		g.edgeOrder = append(g.edgeOrder, edgeID)
		fromPort.SetConnected(true)
		toPort.SetConnected(true)
	}

	g.bus = bus
	return g, nil
}

// ImportGraphJSON deserializes a snapshot and reconstructs the graph
func ImportGraphJSON(data []byte, bus *events.Bus, cat *catalog.Catalog, cfg *config.DomainConfig) (*Graph, error) {
	var snap GraphSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, pkgerrors.NewValidationError("", "malformed graph snapshot")
	}
	return ImportGraph(snap, bus, cat, cfg)
}
