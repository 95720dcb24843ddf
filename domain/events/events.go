// Package events defines the closed set of domain events emitted by the flow
// graph model and the synchronous bus that carries them. Every event is a
// concrete struct; consumers that need exhaustiveness switch on the concrete
// type rather than inspecting string payloads.
package events

import (
	"time"

	"studio-backend/domain/valueobjects"
)

// Event types. The string constants are the subscription keys on the Bus.
const (
	TypeGraphCreated        = "graph.created"
	TypeNodeCreated         = "node.created"
	TypeNodeUpdated         = "node.updated"
	TypeNodeDeleted         = "node.deleted"
	TypeNodeParentChanged   = "node.parent_changed"
	TypeNodeDetailsSet      = "node.details_set"
	TypeInputPortAttached   = "port.input_attached"
	TypeOutputPortAttached  = "port.output_attached"
	TypeOutputPortReordered = "port.output_reordered"
	TypePortCreated         = "port.created"
	TypePortDeleted         = "port.deleted"
	TypePortLabelChanged    = "port.label_changed"
	TypeEdgeCreated         = "edge.created"
	TypeEdgeDeleted         = "edge.deleted"
	TypeEdgeDetailsSet      = "edge.details_set"
	TypeFlowCreated         = "flow.created"
	TypeFlowAutoSaved       = "flow.auto_saved"
)

// DomainEvent represents an important occurrence in the flow graph model
type DomainEvent interface {
	// GetEventType returns the type of event
	GetEventType() string

	// GetAggregateID returns the ID of the element that generated this event
	GetAggregateID() string

	// GetTimestamp returns when the event occurred
	GetTimestamp() time.Time
}

// BaseEvent provides common functionality for all domain events
type BaseEvent struct {
	AggregateID string
	EventType   string
	Timestamp   time.Time
}

// GetEventType returns the event type
func (e BaseEvent) GetEventType() string { return e.EventType }

// GetAggregateID returns the aggregate ID
func (e BaseEvent) GetAggregateID() string { return e.AggregateID }

// GetTimestamp returns the event timestamp
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

func newBaseEvent(eventType, aggregateID string) BaseEvent {
	return BaseEvent{
		AggregateID: aggregateID,
		EventType:   eventType,
		Timestamp:   time.Now(),
	}
}

// GraphCreated is emitted when a graph is constructed
type GraphCreated struct {
	BaseEvent
}

// NewGraphCreated creates a GraphCreated event
func NewGraphCreated(graphID string) GraphCreated {
	return GraphCreated{BaseEvent: newBaseEvent(TypeGraphCreated, graphID)}
}

// NodeCreated is emitted when a node is registered in a graph
type NodeCreated struct {
	BaseEvent
	NodeID   valueobjects.NodeID
	Name     string
	NodeType string
}

// NewNodeCreated creates a NodeCreated event
func NewNodeCreated(nodeID valueobjects.NodeID, name, nodeType string) NodeCreated {
	return NodeCreated{
		BaseEvent: newBaseEvent(TypeNodeCreated, nodeID.String()),
		NodeID:    nodeID,
		Name:      name,
		NodeType:  nodeType,
	}
}

// NodeUpdated is emitted when a node is replaced in the graph's node map
type NodeUpdated struct {
	BaseEvent
	NodeID valueobjects.NodeID
}

// NewNodeUpdated creates a NodeUpdated event
func NewNodeUpdated(nodeID valueobjects.NodeID) NodeUpdated {
	return NodeUpdated{
		BaseEvent: newBaseEvent(TypeNodeUpdated, nodeID.String()),
		NodeID:    nodeID,
	}
}

// NodeDeleted is emitted after a node and its touching edges are removed
type NodeDeleted struct {
	BaseEvent
	NodeID valueobjects.NodeID
}

// NewNodeDeleted creates a NodeDeleted event
func NewNodeDeleted(nodeID valueobjects.NodeID) NodeDeleted {
	return NodeDeleted{
		BaseEvent: newBaseEvent(TypeNodeDeleted, nodeID.String()),
		NodeID:    nodeID,
	}
}

// NodeParentChanged is emitted for a node whose effective parent was removed
// by an edge deletion
type NodeParentChanged struct {
	BaseEvent
	NodeID valueobjects.NodeID
}

// NewNodeParentChanged creates a NodeParentChanged event
func NewNodeParentChanged(nodeID valueobjects.NodeID) NodeParentChanged {
	return NodeParentChanged{
		BaseEvent: newBaseEvent(TypeNodeParentChanged, nodeID.String()),
		NodeID:    nodeID,
	}
}

// NodeDetailsSet is emitted when a node's details entry is merged. Suppressed
// for nodes without any connected edge, which keeps half-configured orphans
// from re-triggering renders in a loop.
type NodeDetailsSet struct {
	BaseEvent
	NodeID valueobjects.NodeID
}

// NewNodeDetailsSet creates a NodeDetailsSet event
func NewNodeDetailsSet(nodeID valueobjects.NodeID) NodeDetailsSet {
	return NodeDetailsSet{
		BaseEvent: newBaseEvent(TypeNodeDetailsSet, nodeID.String()),
		NodeID:    nodeID,
	}
}

// InputPortAttached is emitted when a node receives its input port
type InputPortAttached struct {
	BaseEvent
	NodeID valueobjects.NodeID
	PortID valueobjects.PortID
}

// NewInputPortAttached creates an InputPortAttached event
func NewInputPortAttached(nodeID valueobjects.NodeID, portID valueobjects.PortID) InputPortAttached {
	return InputPortAttached{
		BaseEvent: newBaseEvent(TypeInputPortAttached, nodeID.String()),
		NodeID:    nodeID,
		PortID:    portID,
	}
}

// OutputPortAttached is emitted when a node receives a new output port
type OutputPortAttached struct {
	BaseEvent
	NodeID valueobjects.NodeID
	PortID valueobjects.PortID
}

// NewOutputPortAttached creates an OutputPortAttached event
func NewOutputPortAttached(nodeID valueobjects.NodeID, portID valueobjects.PortID) OutputPortAttached {
	return OutputPortAttached{
		BaseEvent: newBaseEvent(TypeOutputPortAttached, nodeID.String()),
		NodeID:    nodeID,
		PortID:    portID,
	}
}

// OutputPortReordered is emitted when a node's output port order changes
type OutputPortReordered struct {
	BaseEvent
	NodeID valueobjects.NodeID
}

// NewOutputPortReordered creates an OutputPortReordered event
func NewOutputPortReordered(nodeID valueobjects.NodeID) OutputPortReordered {
	return OutputPortReordered{
		BaseEvent: newBaseEvent(TypeOutputPortReordered, nodeID.String()),
		NodeID:    nodeID,
	}
}

// PortCreated is emitted when an unattached port is allocated
type PortCreated struct {
	BaseEvent
	PortID valueobjects.PortID
}

// NewPortCreated creates a PortCreated event
func NewPortCreated(portID valueobjects.PortID) PortCreated {
	return PortCreated{
		BaseEvent: newBaseEvent(TypePortCreated, portID.String()),
		PortID:    portID,
	}
}

// PortDeleted is emitted when an output port is removed from its node
type PortDeleted struct {
	BaseEvent
	PortID valueobjects.PortID
	NodeID valueobjects.NodeID
}

// NewPortDeleted creates a PortDeleted event
func NewPortDeleted(portID valueobjects.PortID, nodeID valueobjects.NodeID) PortDeleted {
	return PortDeleted{
		BaseEvent: newBaseEvent(TypePortDeleted, portID.String()),
		PortID:    portID,
		NodeID:    nodeID,
	}
}

// PortLabelChanged is emitted when an output port's display label changes
type PortLabelChanged struct {
	BaseEvent
	PortID valueobjects.PortID
	Label  string
}

// NewPortLabelChanged creates a PortLabelChanged event
func NewPortLabelChanged(portID valueobjects.PortID, label string) PortLabelChanged {
	return PortLabelChanged{
		BaseEvent: newBaseEvent(TypePortLabelChanged, portID.String()),
		PortID:    portID,
		Label:     label,
	}
}

// EdgeCreated is emitted when an edge is registered in the graph
type EdgeCreated struct {
	BaseEvent
	EdgeID     valueobjects.EdgeID
	FromPortID valueobjects.PortID
	ToPortID   valueobjects.PortID
	FromNodeID valueobjects.NodeID
	ToNodeID   valueobjects.NodeID
}

// NewEdgeCreated creates an EdgeCreated event
func NewEdgeCreated(edgeID valueobjects.EdgeID, fromPortID, toPortID valueobjects.PortID, fromNodeID, toNodeID valueobjects.NodeID) EdgeCreated {
	return EdgeCreated{
		BaseEvent:  newBaseEvent(TypeEdgeCreated, edgeID.String()),
		EdgeID:     edgeID,
		FromPortID: fromPortID,
		ToPortID:   toPortID,
		FromNodeID: fromNodeID,
		ToNodeID:   toNodeID,
	}
}

// EdgeDeleted is emitted when an edge is removed. PreviousParentID is the id
// of the destination node's parent before deletion; listeners compare it with
// FromNodeID to detect that the destination's effective parent changed.
type EdgeDeleted struct {
	BaseEvent
	EdgeID           valueobjects.EdgeID
	FromPortID       valueobjects.PortID
	ToPortID         valueobjects.PortID
	FromNodeID       valueobjects.NodeID
	ToNodeID         valueobjects.NodeID
	PreviousParentID valueobjects.NodeID
}

// NewEdgeDeleted creates an EdgeDeleted event
func NewEdgeDeleted(edgeID valueobjects.EdgeID, fromPortID, toPortID valueobjects.PortID, fromNodeID, toNodeID, previousParentID valueobjects.NodeID) EdgeDeleted {
	return EdgeDeleted{
		BaseEvent:        newBaseEvent(TypeEdgeDeleted, edgeID.String()),
		EdgeID:           edgeID,
		FromPortID:       fromPortID,
		ToPortID:         toPortID,
		FromNodeID:       fromNodeID,
		ToNodeID:         toNodeID,
		PreviousParentID: previousParentID,
	}
}

// EdgeDetailsSet is emitted when an edge's details entry is merged
type EdgeDetailsSet struct {
	BaseEvent
	EdgeID valueobjects.EdgeID
}

// NewEdgeDetailsSet creates an EdgeDetailsSet event
func NewEdgeDetailsSet(edgeID valueobjects.EdgeID) EdgeDetailsSet {
	return EdgeDetailsSet{
		BaseEvent: newBaseEvent(TypeEdgeDetailsSet, edgeID.String()),
		EdgeID:    edgeID,
	}
}

// FlowCreated is emitted when a flow is constructed or imported
type FlowCreated struct {
	BaseEvent
	FlowID valueobjects.FlowID
}

// NewFlowCreated creates a FlowCreated event
func NewFlowCreated(flowID valueobjects.FlowID) FlowCreated {
	return FlowCreated{
		BaseEvent: newBaseEvent(TypeFlowCreated, flowID.String()),
		FlowID:    flowID,
	}
}

// FlowAutoSaved is emitted after a debounced save completes
type FlowAutoSaved struct {
	BaseEvent
	FlowID valueobjects.FlowID
}

// NewFlowAutoSaved creates a FlowAutoSaved event
func NewFlowAutoSaved(flowID valueobjects.FlowID) FlowAutoSaved {
	return FlowAutoSaved{
		BaseEvent: newBaseEvent(TypeFlowAutoSaved, flowID.String()),
		FlowID:    flowID,
	}
}
