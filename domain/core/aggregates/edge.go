package aggregates

import (
	"studio-backend/domain/valueobjects"
)

// Edge is a directed connection from an output port to an input port. The
// node ids are denormalized copies of the ports' parents at creation time so
// traversals never need to resolve ports.
type Edge struct {
	id         valueobjects.EdgeID
	fromPortID valueobjects.PortID
	toPortID   valueobjects.PortID
	fromNodeID valueobjects.NodeID
	toNodeID   valueobjects.NodeID
}

func newEdge(id valueobjects.EdgeID, fromPortID, toPortID valueobjects.PortID, fromNodeID, toNodeID valueobjects.NodeID) *Edge {
	return &Edge{
		id:         id,
		fromPortID: fromPortID,
		toPortID:   toPortID,
		fromNodeID: fromNodeID,
		toNodeID:   toNodeID,
	}
}

// ID returns the edge's unique identifier
func (e *Edge) ID() valueobjects.EdgeID {
	return e.id
}

// FromPortID returns the source output port id
func (e *Edge) FromPortID() valueobjects.PortID {
	return e.fromPortID
}

// ToPortID returns the destination input port id
func (e *Edge) ToPortID() valueobjects.PortID {
	return e.toPortID
}

// FromNodeID returns the source node id
func (e *Edge) FromNodeID() valueobjects.NodeID {
	return e.fromNodeID
}

// ToNodeID returns the destination node id
func (e *Edge) ToNodeID() valueobjects.NodeID {
	return e.toNodeID
}

// Touches reports whether the edge starts or ends at the given port
func (e *Edge) Touches(portID valueobjects.PortID) bool {
	return e.fromPortID.Equals(portID) || e.toPortID.Equals(portID)
}
