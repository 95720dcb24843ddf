package aggregates

import (
	"studio-backend/domain/catalog"
	"studio-backend/domain/config"
	"studio-backend/domain/core/entities"
	"studio-backend/domain/events"
	"studio-backend/domain/valueobjects"
	pkgerrors "studio-backend/pkg/errors"
)

// Graph owns the node and edge collections of a flow and is the only factory
// for nodes, ports and edges. Every structural mutation goes through the
// graph so connection state stays transactional and the matching domain
// event is published on the bus.
//
// Insertion order of nodes and edges is tracked separately from the id maps.
// Edge order is load-bearing: the first incoming edge of a node determines
// its effective parent, later ones are shortcuts.
type Graph struct {
	nodes     map[string]*entities.Node
	edges     map[string]*Edge
	ports     map[string]*entities.Port
	nodeOrder []valueobjects.NodeID
	edgeOrder []valueobjects.EdgeID

	bus     *events.Bus
	catalog *catalog.Catalog
	cfg     *config.DomainConfig
}

// NewGraph creates an empty graph
func NewGraph(bus *events.Bus, cat *catalog.Catalog, cfg *config.DomainConfig) *Graph {
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
		bus:     bus,
		catalog: cat,
		cfg:     cfg,
	}
	g.publish(events.NewGraphCreated(""))
	return g
}

func (g *Graph) publish(event events.DomainEvent) {
	if g.bus != nil {
		g.bus.Publish(event)
	}
}

// Catalog returns the node type catalog the graph validates against
func (g *Graph) Catalog() *catalog.Catalog {
	return g.catalog
}

// NodeCount returns the number of nodes in the graph
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Node returns the node with the given id, or an error if absent
func (g *Graph) Node(id valueobjects.NodeID) (*entities.Node, error) {
	node, ok := g.nodes[id.String()]
	if !ok {
		return nil, pkgerrors.NewValidationError(pkgerrors.CodeNotInGraph, "node is not in the graph")
	}
	return node, nil
}

// Nodes returns all nodes in insertion order
func (g *Graph) Nodes() []*entities.Node {
	nodes := make([]*entities.Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		if node, ok := g.nodes[id.String()]; ok {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// Edge returns the edge with the given id, or an error if absent
func (g *Graph) Edge(id valueobjects.EdgeID) (*Edge, error) {
	edge, ok := g.edges[id.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("edge")
	}
	return edge, nil
}

// Edges returns all edges in insertion order
func (g *Graph) Edges() []*Edge {
	edges := make([]*Edge, 0, len(g.edgeOrder))
	for _, id := range g.edgeOrder {
		if edge, ok := g.edges[id.String()]; ok {
			edges = append(edges, edge)
		}
	}
	return edges
}

// FindPort looks up a port by id across every node in the graph
func (g *Graph) FindPort(id valueobjects.PortID) (*entities.Port, error) {
	port, ok := g.ports[id.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("port")
	}
	return port, nil
}

// CreateNode allocates a node with no ports and registers it
func (g *Graph) CreateNode(name, nodeType string) (*entities.Node, error) {
	if len(g.nodes) >= g.cfg.MaxNodesPerGraph {
		return nil, pkgerrors.NewConflictError("graph has reached the maximum number of nodes")
	}
	node, err := entities.NewNode(name, nodeType)
	if err != nil {
		return nil, err
	}
	g.nodes[node.ID().String()] = node
	g.nodeOrder = append(g.nodeOrder, node.ID())
	g.publish(events.NewNodeCreated(node.ID(), node.Name(), node.Type()))
	return node, nil
}

// CreateInputPort allocates an unattached input port
func (g *Graph) CreateInputPort() *entities.Port {
	port := entities.NewPort(entities.RoleInput)
	g.ports[port.ID().String()] = port
	g.publish(events.NewPortCreated(port.ID()))
	return port
}

// CreateOutputPort allocates an unattached output port
func (g *Graph) CreateOutputPort() *entities.Port {
	port := entities.NewPort(entities.RoleOutput)
	g.ports[port.ID().String()] = port
	g.publish(events.NewPortCreated(port.ID()))
	return port
}

// AttachInputPort gives a node its single input port
func (g *Graph) AttachInputPort(nodeID valueobjects.NodeID, port *entities.Port) error {
	node, err := g.Node(nodeID)
	if err != nil {
		return err
	}
	if err := node.AttachInputPort(port); err != nil {
		return err
	}
	g.publish(events.NewInputPortAttached(nodeID, port.ID()))
	return nil
}

// AttachOutputPort appends an output port to a node, enforcing the catalog's
// maxOutputs bound for the node's type
func (g *Graph) AttachOutputPort(nodeID valueobjects.NodeID, port *entities.Port) error {
	node, err := g.Node(nodeID)
	if err != nil {
		return err
	}
	max := g.catalog.MaxOutputs(node.Type(), g.cfg.FallbackMaxOutputs)
	if err := node.AttachOutputPort(port, max); err != nil {
		return err
	}
	g.publish(events.NewOutputPortAttached(nodeID, port.ID()))
	return nil
}

// CreateOutputPortOn allocates an output port and attaches it to the node in
// one step. A non-empty label additionally publishes a label change so the
// flow's details store picks it up.
func (g *Graph) CreateOutputPortOn(nodeID valueobjects.NodeID, label string) (*entities.Port, error) {
	node, err := g.Node(nodeID)
	if err != nil {
		return nil, err
	}
	max := g.catalog.MaxOutputs(node.Type(), g.cfg.FallbackMaxOutputs)
	if node.OutputPortCount() >= max {
		return nil, pkgerrors.NewValidationError(pkgerrors.CodeMaxOutputsReached, "node has reached the maximum number of output ports")
	}
	port := g.CreateOutputPort()
	if err := node.AttachOutputPort(port, max); err != nil {
		delete(g.ports, port.ID().String())
		return nil, err
	}
	g.publish(events.NewOutputPortAttached(nodeID, port.ID()))
	if label != "" {
		g.publish(events.NewPortLabelChanged(port.ID(), label))
	}
	return port, nil
}

// CreateEdge connects an output port to an input port. The source port must
// be unconnected; the destination port may already carry incoming edges,
// which is how shortcut links exist.
func (g *Graph) CreateEdge(fromPortID, toPortID valueobjects.PortID) (*Edge, error) {
	if len(g.edges) >= g.cfg.MaxEdgesPerGraph {
		return nil, pkgerrors.NewConflictError("graph has reached the maximum number of edges")
	}

	fromPort, err := g.FindPort(fromPortID)
	if err != nil {
		return nil, err
	}
	toPort, err := g.FindPort(toPortID)
	if err != nil {
		return nil, err
	}
	if !fromPort.IsOutput() || !toPort.IsInput() {
		return nil, pkgerrors.NewValidationError(pkgerrors.CodeInvalidPortRole, "edges run from an output port to an input port")
	}
	if fromPort.IsConnected() {
		return nil, pkgerrors.NewValidationError(pkgerrors.CodePortAlreadyConnected, "source port already has an outgoing edge")
	}

	fromNode := fromPort.Parent()
	toNode := toPort.Parent()
	if fromNode == nil || toNode == nil {
		return nil, pkgerrors.NewValidationError(pkgerrors.CodeNotInGraph, "both ports must be attached to nodes in the graph")
	}
	if _, ok := g.nodes[fromNode.ID().String()]; !ok {
		return nil, pkgerrors.NewValidationError(pkgerrors.CodeNotInGraph, "source node is not in the graph")
	}
	if _, ok := g.nodes[toNode.ID().String()]; !ok {
		return nil, pkgerrors.NewValidationError(pkgerrors.CodeNotInGraph, "destination node is not in the graph")
	}
	if fromNode.ID().Equals(toNode.ID()) {
		return nil, pkgerrors.NewValidationError(pkgerrors.CodeSelfLoop, "edge cannot connect a node to itself")
	}

	edge := newEdge(valueobjects.NewEdgeID(), fromPortID, toPortID, fromNode.ID(), toNode.ID())
	g.edges[edge.ID().String()] = edge
	g.edgeOrder = append(g.edgeOrder, edge.ID())
	fromPort.SetConnected(true)
	toPort.SetConnected(true)
	g.publish(events.NewEdgeCreated(edge.ID(), fromPortID, toPortID, fromNode.ID(), toNode.ID()))
	return edge, nil
}

// DeleteEdge removes an edge and resets connection state. The destination
// port stays connected while other incoming edges remain. The published
// event carries the destination's parent as of before the deletion so
// listeners can detect a parent change.
func (g *Graph) DeleteEdge(edgeID valueobjects.EdgeID) error {
	edge, err := g.Edge(edgeID)
	if err != nil {
		return err
	}

	var previousParentID valueobjects.NodeID
	if parent, perr := g.ImmediateParent(edge.ToNodeID()); perr == nil && parent != nil {
		previousParentID = parent.ID()
	}

	delete(g.edges, edgeID.String())
	g.edgeOrder = removeEdgeID(g.edgeOrder, edgeID)

	if fromPort, ferr := g.FindPort(edge.FromPortID()); ferr == nil {
		fromPort.SetConnected(false)
	}
	if toPort, terr := g.FindPort(edge.ToPortID()); terr == nil {
		stillTargeted := false
		for _, other := range g.edges {
			if other.ToPortID().Equals(edge.ToPortID()) {
				stillTargeted = true
				break
			}
		}
		if !stillTargeted {
			toPort.SetConnected(false)
		}
	}

	g.publish(events.NewEdgeDeleted(edge.ID(), edge.FromPortID(), edge.ToPortID(), edge.FromNodeID(), edge.ToNodeID(), previousParentID))
	if !previousParentID.IsEmpty() && previousParentID.Equals(edge.FromNodeID()) {
		g.publish(events.NewNodeParentChanged(edge.ToNodeID()))
	}
	return nil
}

// DeletePort removes an output port from its node after cascading the edges
// touching it. Input ports are structural and cannot be deleted.
func (g *Graph) DeletePort(portID valueobjects.PortID) error {
	port, err := g.FindPort(portID)
	if err != nil {
		return err
	}
	if port.IsInput() {
		return pkgerrors.NewValidationError(pkgerrors.CodeCannotDeleteInputPort, "input ports cannot be deleted")
	}

	for _, edge := range g.Edges() {
		if edge.Touches(portID) {
			if err := g.DeleteEdge(edge.ID()); err != nil {
				return err
			}
		}
	}

	var nodeID valueobjects.NodeID
	if parent := port.Parent(); parent != nil {
		nodeID = parent.ID()
		if err := parent.RemoveOutputPort(portID); err != nil {
			return err
		}
	}
	delete(g.ports, portID.String())
	g.publish(events.NewPortDeleted(portID, nodeID))
	return nil
}

// DeleteNode removes a node after cascading every edge touching its ports
func (g *Graph) DeleteNode(nodeID valueobjects.NodeID) error {
	node, err := g.Node(nodeID)
	if err != nil {
		return err
	}

	for _, edge := range g.Edges() {
		if edge.FromNodeID().Equals(nodeID) || edge.ToNodeID().Equals(nodeID) {
			if err := g.DeleteEdge(edge.ID()); err != nil {
				return err
			}
		}
	}

	if input := node.InputPort(); input != nil {
		delete(g.ports, input.ID().String())
		g.publish(events.NewPortDeleted(input.ID(), nodeID))
	}
	for _, port := range node.OutputPorts() {
		delete(g.ports, port.ID().String())
		g.publish(events.NewPortDeleted(port.ID(), nodeID))
	}
	delete(g.nodes, nodeID.String())
	g.nodeOrder = removeNodeID(g.nodeOrder, nodeID)
	g.publish(events.NewNodeDeleted(nodeID))
	return nil
}

// RenameNode updates a node's display label
func (g *Graph) RenameNode(nodeID valueobjects.NodeID, name string) error {
	node, err := g.Node(nodeID)
	if err != nil {
		return err
	}
	node.Rename(name)
	g.publish(events.NewNodeUpdated(nodeID))
	return nil
}

// UpdateNode replaces a node in place by id
func (g *Graph) UpdateNode(node *entities.Node) error {
	if _, ok := g.nodes[node.ID().String()]; !ok {
		return pkgerrors.NewValidationError(pkgerrors.CodeNotInGraph, "node is not in the graph")
	}
	g.nodes[node.ID().String()] = node
	g.publish(events.NewNodeUpdated(node.ID()))
	return nil
}

// ReorderOutputPorts moves a node's output port from oldIndex to newIndex
func (g *Graph) ReorderOutputPorts(nodeID valueobjects.NodeID, oldIndex, newIndex int) error {
	node, err := g.Node(nodeID)
	if err != nil {
		return err
	}
	if err := node.ReorderOutputPort(oldIndex, newIndex); err != nil {
		return err
	}
	g.publish(events.NewOutputPortReordered(nodeID))
	return nil
}

// ConnectedEdges returns every edge touching any of the node's ports, in
// insertion order
func (g *Graph) ConnectedEdges(nodeID valueobjects.NodeID) ([]*Edge, error) {
	node, err := g.Node(nodeID)
	if err != nil {
		return nil, err
	}
	if !node.HasPorts() {
		return nil, pkgerrors.NewValidationError(pkgerrors.CodeNodeHasNoPorts, "node has no ports")
	}
	edges := []*Edge{}
	for _, edge := range g.Edges() {
		if edge.FromNodeID().Equals(nodeID) || edge.ToNodeID().Equals(nodeID) {
			edges = append(edges, edge)
		}
	}
	return edges, nil
}

// IncomingEdges returns the edges ending at the node, in insertion order
func (g *Graph) IncomingEdges(nodeID valueobjects.NodeID) []*Edge {
	edges := []*Edge{}
	for _, edge := range g.Edges() {
		if edge.ToNodeID().Equals(nodeID) {
			edges = append(edges, edge)
		}
	}
	return edges
}

// OutgoingEdges returns the edges starting at the node, in insertion order
func (g *Graph) OutgoingEdges(nodeID valueobjects.NodeID) []*Edge {
	edges := []*Edge{}
	for _, edge := range g.Edges() {
		if edge.FromNodeID().Equals(nodeID) {
			edges = append(edges, edge)
		}
	}
	return edges
}

// ImmediateParent returns the node on the source end of the node's first
// incoming edge, or nil when the node has no incoming edges
func (g *Graph) ImmediateParent(nodeID valueobjects.NodeID) (*entities.Node, error) {
	if _, err := g.Node(nodeID); err != nil {
		return nil, err
	}
	incoming := g.IncomingEdges(nodeID)
	if len(incoming) == 0 {
		return nil, nil
	}
	return g.Node(incoming[0].FromNodeID())
}

// Ancestors returns every node reachable following edges backwards from the
// given node, in discovery order, excluding the node itself. The visited set
// is local to the call.
func (g *Graph) Ancestors(nodeID valueobjects.NodeID) ([]*entities.Node, error) {
	if _, err := g.Node(nodeID); err != nil {
		return nil, err
	}
	visited := map[string]bool{nodeID.String(): true}
	var out []*entities.Node
	g.walk(nodeID, directionUp, visited, &out)
	return out, nil
}

// Descendants returns every node reachable following edges forwards from the
// given node, in discovery order, excluding the node itself
func (g *Graph) Descendants(nodeID valueobjects.NodeID) ([]*entities.Node, error) {
	if _, err := g.Node(nodeID); err != nil {
		return nil, err
	}
	visited := map[string]bool{nodeID.String(): true}
	var out []*entities.Node
	g.walk(nodeID, directionDown, visited, &out)
	return out, nil
}

type walkDirection int

const (
	directionUp walkDirection = iota
	directionDown
)

func (g *Graph) walk(nodeID valueobjects.NodeID, dir walkDirection, visited map[string]bool, out *[]*entities.Node) {
	var next []valueobjects.NodeID
	if dir == directionUp {
		for _, edge := range g.IncomingEdges(nodeID) {
			next = append(next, edge.FromNodeID())
		}
	} else {
		for _, edge := range g.OutgoingEdges(nodeID) {
			next = append(next, edge.ToNodeID())
		}
	}
	for _, id := range next {
		if visited[id.String()] {
			continue
		}
		visited[id.String()] = true
		if node, ok := g.nodes[id.String()]; ok {
			*out = append(*out, node)
		}
		g.walk(id, dir, visited, out)
	}
}

func removeNodeID(ids []valueobjects.NodeID, id valueobjects.NodeID) []valueobjects.NodeID {
	for i, candidate := range ids {
		if candidate.Equals(id) {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func removeEdgeID(ids []valueobjects.EdgeID, id valueobjects.EdgeID) []valueobjects.EdgeID {
	for i, candidate := range ids {
		if candidate.Equals(id) {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
