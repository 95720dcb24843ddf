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

// FlowSchemaVersion is written into every exported snapshot so persisted
// flows can be migrated later.
const FlowSchemaVersion = 1

// AutoSaver is the debounced persistence collaborator. Schedule is called on
// every mutation; implementations coalesce bursts into one write. A nil
// saver disables persistence, which tests rely on.
type AutoSaver interface {
	Schedule(flow *Flow)
}

// Flow wraps a graph with descriptive metadata and the details store. It
// subscribes to the graph's events so detail cleanup and auto-save happen
// through the bus rather than inline in every mutation.
type Flow struct {
	id          valueobjects.FlowID
	name        string
	description string
	stage       string
	state       string

	graph   *Graph
	details Details

	bus       *events.Bus
	autoSaver AutoSaver
	cfg       *config.DomainConfig
}

// NewFlow creates a flow with an empty graph
func NewFlow(name, description, stage, state string, bus *events.Bus, cat *catalog.Catalog, cfg *config.DomainConfig, saver AutoSaver) *Flow {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	f := &Flow{
		id:          valueobjects.NewFlowID(),
		name:        name,
		description: description,
		stage:       stage,
		state:       state,
		details:     newDetails(),
		bus:         bus,
		autoSaver:   saver,
		cfg:         cfg,
	}
	f.graph = NewGraph(bus, cat, cfg)
	f.listen()
	f.publish(events.NewFlowCreated(f.id))
	return f
}

func (f *Flow) publish(event events.DomainEvent) {
	if f.bus != nil {
		f.bus.Publish(event)
	}
}

// listen wires the detail-cleanup and auto-save reactions. Cleanup runs on
// deletion events so details become orphaned without inline cascades; the
// auto-save subscription covers every structural and detail mutation.
func (f *Flow) listen() {
	if f.bus == nil {
		return
	}
	f.bus.Subscribe(func(event events.DomainEvent) {
		switch e := event.(type) {
		case events.NodeDeleted:
			delete(f.details.Nodes, e.NodeID.String())
		case events.EdgeDeleted:
			delete(f.details.Edges, e.EdgeID.String())
		case events.PortDeleted:
			delete(f.details.Ports, e.PortID.String())
		case events.PortLabelChanged:
			f.details.Ports[e.PortID.String()] = &PortDetails{Label: e.Label}
		case events.EdgeCreated:
			f.markShortcut(e)
		}
	}, events.TypeNodeDeleted, events.TypeEdgeDeleted, events.TypePortDeleted, events.TypePortLabelChanged, events.TypeEdgeCreated)

	f.bus.Subscribe(func(event events.DomainEvent) {
		f.scheduleSave()
	},
		events.TypeNodeCreated, events.TypeNodeUpdated, events.TypeNodeDeleted,
		events.TypeNodeDetailsSet, events.TypeInputPortAttached,
		events.TypeOutputPortAttached, events.TypeOutputPortReordered,
		events.TypePortDeleted, events.TypePortLabelChanged,
		events.TypeEdgeCreated, events.TypeEdgeDeleted, events.TypeEdgeDetailsSet,
	)
}

// markShortcut flags an edge whose destination already had a primary
// incoming edge. The first incoming edge stays unmarked.
func (f *Flow) markShortcut(e events.EdgeCreated) {
	incoming := f.graph.IncomingEdges(e.ToNodeID)
	if len(incoming) < 2 || incoming[0].ID().Equals(e.EdgeID) {
		return
	}
	f.details.Edges[e.EdgeID.String()] = &EdgeDetails{
		Shortcut:           true,
		ShortcutFromPortID: e.FromPortID.String(),
		ShortcutToNodeID:   e.ToNodeID.String(),
	}
}

func (f *Flow) scheduleSave() {
	if f.autoSaver != nil {
		f.autoSaver.Schedule(f)
	}
}

// NotifySaved publishes the auto-saved event. The persistence layer calls
// it after a debounced write completes.
func (f *Flow) NotifySaved() {
	f.publish(events.NewFlowAutoSaved(f.id))
}

// ID returns the flow's unique identifier
func (f *Flow) ID() valueobjects.FlowID {
	return f.id
}

// Name returns the flow's display name
func (f *Flow) Name() string {
	return f.name
}

// Description returns the flow's description
func (f *Flow) Description() string {
	return f.description
}

// Stage returns the flow's authoring stage
func (f *Flow) Stage() string {
	return f.stage
}

// State returns the flow's status string
func (f *Flow) State() string {
	return f.state
}

// Graph returns the owned graph
func (f *Flow) Graph() *Graph {
	return f.graph
}

// Rename updates the flow's metadata and schedules a save
func (f *Flow) Rename(name, description string) {
	if name != "" {
		f.name = name
	}
	f.description = description
	f.scheduleSave()
}

// SetStage updates the flow's stage and state strings
func (f *Flow) SetStage(stage, state string) {
	f.stage = stage
	f.state = state
	f.scheduleSave()
}

// NodeDetails returns the details entry for a node, or nil
func (f *Flow) NodeDetails(nodeID valueobjects.NodeID) *NodeDetails {
	return f.details.Nodes[nodeID.String()]
}

// PortDetails returns the details entry for a port, or nil
func (f *Flow) PortDetails(portID valueobjects.PortID) *PortDetails {
	return f.details.Ports[portID.String()]
}

// EdgeDetails returns the details entry for an edge, or nil
func (f *Flow) EdgeDetails(edgeID valueobjects.EdgeID) *EdgeDetails {
	return f.details.Edges[edgeID.String()]
}

// SetNodeDetails merges a patch into the node's details entry. The details
// event fires only when the node has at least one connected edge; orphan
// nodes still being configured would otherwise re-trigger their own editing
// cycle. The save is scheduled either way.
func (f *Flow) SetNodeDetails(nodeID valueobjects.NodeID, patch NodeDetailsPatch) error {
	if _, err := f.graph.Node(nodeID); err != nil {
		return err
	}
	entry, ok := f.details.Nodes[nodeID.String()]
	if !ok {
		entry = &NodeDetails{}
		f.details.Nodes[nodeID.String()] = entry
	}
	if patch.Snippet != nil {
		truncated := truncateRunes(*patch.Snippet, f.cfg.SnippetMaxRunes)
		patch.Snippet = &truncated
	}
	entry.apply(patch)

	if f.nodeHasConnectedEdge(nodeID) {
		f.publish(events.NewNodeDetailsSet(nodeID))
	} else {
		f.scheduleSave()
	}
	return nil
}

func (f *Flow) nodeHasConnectedEdge(nodeID valueobjects.NodeID) bool {
	edges, err := f.graph.ConnectedEdges(nodeID)
	return err == nil && len(edges) > 0
}

// SetEdgeDetails merges a patch into the edge's details entry
func (f *Flow) SetEdgeDetails(edgeID valueobjects.EdgeID, patch EdgeDetailsPatch) error {
	if _, err := f.graph.Edge(edgeID); err != nil {
		return err
	}
	entry, ok := f.details.Edges[edgeID.String()]
	if !ok {
		entry = &EdgeDetails{}
		f.details.Edges[edgeID.String()] = entry
	}
	entry.apply(patch)
	f.publish(events.NewEdgeDetailsSet(edgeID))
	return nil
}

// SetPortLabel sets an output port's display label
func (f *Flow) SetPortLabel(portID valueobjects.PortID, label string) error {
	if _, err := f.graph.FindPort(portID); err != nil {
		return err
	}
	f.publish(events.NewPortLabelChanged(portID, label))
	return nil
}

// AvailableVariables returns the enabled defined variables of every ancestor
// of the node, in ancestor discovery order
func (f *Flow) AvailableVariables(nodeID valueobjects.NodeID) ([]DefinedVariable, error) {
	ancestors, err := f.graph.Ancestors(nodeID)
	if err != nil {
		return nil, err
	}
	vars := []DefinedVariable{}
	for _, ancestor := range ancestors {
		entry := f.details.Nodes[ancestor.ID().String()]
		if entry == nil || entry.DefinedVariable == nil {
			continue
		}
		v := *entry.DefinedVariable
		if v.Name == "" || !v.Enabled {
			continue
		}
		vars = append(vars, v)
	}
	return vars, nil
}

// CreateNode is the composite operation the editor uses to extend the flow
// by one step: a new node with one input port and numberOfChildren output
// ports, wired from an existing unconnected output port. Preconditions are
// checked before anything is allocated so a failure leaves the graph
// unchanged.
func (f *Flow) CreateNode(fromNodeID valueobjects.NodeID, fromPortID valueobjects.PortID, name, nodeType string, numberOfChildren int) (*entities.Node, error) {
	fromNode, err := f.graph.Node(fromNodeID)
	if err != nil {
		return nil, err
	}
	fromPort := fromNode.FindPort(fromPortID)
	if fromPort == nil {
		return nil, pkgerrors.NewNotFoundError("port")
	}
	if !fromPort.IsOutput() {
		return nil, pkgerrors.NewValidationError(pkgerrors.CodeInvalidPortRole, "edges run from an output port to an input port")
	}
	if fromPort.IsConnected() {
		return nil, pkgerrors.NewValidationError(pkgerrors.CodePortAlreadyConnected, "source port already has an outgoing edge")
	}
	if numberOfChildren < 0 {
		return nil, pkgerrors.NewValidationError(pkgerrors.CodeIndexOutOfRange, "number of children cannot be negative")
	}
	max := f.graph.Catalog().MaxOutputs(nodeType, f.cfg.FallbackMaxOutputs)
	if numberOfChildren > max {
		return nil, pkgerrors.NewValidationError(pkgerrors.CodeMaxOutputsReached, "node type does not allow that many output ports")
	}
	if f.graph.EdgeCount() >= f.cfg.MaxEdgesPerGraph {
		return nil, pkgerrors.NewConflictError("graph has reached the maximum number of edges")
	}

	node, err := f.graph.CreateNode(name, nodeType)
	if err != nil {
		return nil, err
	}
	input := f.graph.CreateInputPort()
	if err := f.graph.AttachInputPort(node.ID(), input); err != nil {
		return nil, err
	}
	for i := 0; i < numberOfChildren; i++ {
		if _, err := f.graph.CreateOutputPortOn(node.ID(), ""); err != nil {
			return nil, err
		}
	}
	if _, err := f.graph.CreateEdge(fromPortID, input.ID()); err != nil {
		return nil, err
	}
	return node, nil
}

// RenameNode updates a node's display label
func (f *Flow) RenameNode(nodeID valueobjects.NodeID, name string) error {
	return f.graph.RenameNode(nodeID, name)
}

// truncateRunes cuts s to max runes, marking the cut with a trailing ellipsis
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + " ..."
}

// FlowSnapshot is the persisted shape of a flow
type FlowSnapshot struct {
	SchemaVersion int           `json:"schemaVersion"`
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Stage         string        `json:"stage"`
	State         string        `json:"state"`
	Graph         GraphSnapshot `json:"graph"`
	Details       Details       `json:"details"`
}

// Export produces a snapshot of the flow, its graph and its details store
func (f *Flow) Export() FlowSnapshot {
	return FlowSnapshot{
		SchemaVersion: FlowSchemaVersion,
		ID:            f.id.String(),
		Name:          f.name,
		Description:   f.description,
		Stage:         f.stage,
		State:         f.state,
		Graph:         f.graph.Export(),
		Details:       f.details,
	}
}

// ExportJSON serializes the flow snapshot
func (f *Flow) ExportJSON() ([]byte, error) {
	data, err := json.Marshal(f.Export())
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to serialize flow", err)
	}
	return data, nil
}

// ImportFlow reconstructs a flow from a snapshot
func ImportFlow(snap FlowSnapshot, bus *events.Bus, cat *catalog.Catalog, cfg *config.DomainConfig, saver AutoSaver) (*Flow, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	id, err := valueobjects.ParseFlowID(snap.ID)
	if err != nil {
		return nil, err
	}
	graph, err := ImportGraph(snap.Graph, bus, cat, cfg)
	if err != nil {
		return nil, err
	}
	f := &Flow{
		id:          id,
		name:        snap.Name,
		description: snap.Description,
		stage:       snap.Stage,
		state:       snap.State,
		graph:       graph,
		details:     snap.Details,
		bus:         bus,
		autoSaver:   saver,
		cfg:         cfg,
	}
	if f.details.Nodes == nil {
		f.details.Nodes = make(map[string]*NodeDetails)
	}
	if f.details.Ports == nil {
		f.details.Ports = make(map[string]*PortDetails)
	}
	if f.details.Edges == nil {
		f.details.Edges = make(map[string]*EdgeDetails)
	}
	if f.details.DefinedVariables == nil {
		f.details.DefinedVariables = make(map[string]string)
	}
	f.listen()
	f.publish(events.NewFlowCreated(f.id))
	return f, nil
}

// ImportFlowJSON deserializes a snapshot and reconstructs the flow
func ImportFlowJSON(data []byte, bus *events.Bus, cat *catalog.Catalog, cfg *config.DomainConfig, saver AutoSaver) (*Flow, error) {
	var snap FlowSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, pkgerrors.NewValidationError("", "malformed flow snapshot")
	}
	return ImportFlow(snap, bus, cat, cfg, saver)
}
