// Package valueobjects contains the identifier value objects shared by the
// flow graph model. Identifiers are UUIDs wrapped in distinct types so a port
// id can never be passed where a node id is expected.
package valueobjects

import (
	"github.com/google/uuid"

	pkgerrors "studio-backend/pkg/errors"
)

// FlowID identifies a flow
type FlowID struct {
	value string
}

// NewFlowID creates a new random FlowID
func NewFlowID() FlowID {
	return FlowID{value: uuid.New().String()}
}

// ParseFlowID creates a FlowID from a string, validating it's a proper UUID
func ParseFlowID(id string) (FlowID, error) {
	if _, err := uuid.Parse(id); err != nil {
		return FlowID{}, pkgerrors.NewValidationError("", "invalid flow id")
	}
	return FlowID{value: id}, nil
}

// String returns the string representation of the FlowID
func (id FlowID) String() string { return id.value }

// Equals checks if two FlowIDs are equal
func (id FlowID) Equals(other FlowID) bool { return id.value == other.value }

// IsEmpty checks if the FlowID is empty
func (id FlowID) IsEmpty() bool { return id.value == "" }

// NodeID identifies a node within a graph
type NodeID struct {
	value string
}

// NewNodeID creates a new random NodeID
func NewNodeID() NodeID {
	return NodeID{value: uuid.New().String()}
}

// ParseNodeID creates a NodeID from a string, validating it's a proper UUID
func ParseNodeID(id string) (NodeID, error) {
	if _, err := uuid.Parse(id); err != nil {
		return NodeID{}, pkgerrors.NewValidationError("", "invalid node id")
	}
	return NodeID{value: id}, nil
}

// String returns the string representation of the NodeID
func (id NodeID) String() string { return id.value }

// Equals checks if two NodeIDs are equal
func (id NodeID) Equals(other NodeID) bool { return id.value == other.value }

// IsEmpty checks if the NodeID is empty
func (id NodeID) IsEmpty() bool { return id.value == "" }

// PortID identifies a port on a node
type PortID struct {
	value string
}

// NewPortID creates a new random PortID
func NewPortID() PortID {
	return PortID{value: uuid.New().String()}
}

// ParsePortID creates a PortID from a string, validating it's a proper UUID
func ParsePortID(id string) (PortID, error) {
	if _, err := uuid.Parse(id); err != nil {
		return PortID{}, pkgerrors.NewValidationError("", "invalid port id")
	}
	return PortID{value: id}, nil
}

// String returns the string representation of the PortID
func (id PortID) String() string { return id.value }

// Equals checks if two PortIDs are equal
func (id PortID) Equals(other PortID) bool { return id.value == other.value }

// IsEmpty checks if the PortID is empty
func (id PortID) IsEmpty() bool { return id.value == "" }

// EdgeID identifies an edge within a graph
type EdgeID struct {
	value string
}

// NewEdgeID creates a new random EdgeID
func NewEdgeID() EdgeID {
	return EdgeID{value: uuid.New().String()}
}

// ParseEdgeID creates an EdgeID from a string, validating it's a proper UUID
func ParseEdgeID(id string) (EdgeID, error) {
	if _, err := uuid.Parse(id); err != nil {
		return EdgeID{}, pkgerrors.NewValidationError("", "invalid edge id")
	}
	return EdgeID{value: id}, nil
}

// String returns the string representation of the EdgeID
func (id EdgeID) String() string { return id.value }

// Equals checks if two EdgeIDs are equal
func (id EdgeID) Equals(other EdgeID) bool { return id.value == other.value }

// IsEmpty checks if the EdgeID is empty
func (id EdgeID) IsEmpty() bool { return id.value == "" }
