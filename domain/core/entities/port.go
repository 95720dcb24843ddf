// Package entities contains the building blocks of a flow graph: ports and
// nodes. Entities hold their own local invariants; cross-entity rules
// (connectivity, cascades, traversal) belong to the graph aggregate.
package entities

import (
	"studio-backend/domain/valueobjects"
	pkgerrors "studio-backend/pkg/errors"
)

// PortRole is the tagged variant distinguishing input and output ports
type PortRole string

const (
	RoleInput  PortRole = "input"
	RoleOutput PortRole = "output"
)

// Port is a connection endpoint owned by a node. The connected flag is
// derived state, flipped transactionally by the graph when edges are created
// or deleted; nothing else may touch it.
type Port struct {
	id        valueobjects.PortID
	role      PortRole
	parent    *Node
	connected bool
}

// NewPort allocates an unattached port with a fresh id
func NewPort(role PortRole) *Port {
	return &Port{
		id:   valueobjects.NewPortID(),
		role: role,
	}
}

// ReconstructPort recreates a port with a known id during import
func ReconstructPort(id valueobjects.PortID, role PortRole) *Port {
	return &Port{
		id:   id,
		role: role,
	}
}

// ID returns the port's unique identifier
func (p *Port) ID() valueobjects.PortID {
	return p.id
}

// Role returns the port's variant tag
func (p *Port) Role() PortRole {
	return p.role
}

// IsInput reports whether this is an input port
func (p *Port) IsInput() bool {
	return p.role == RoleInput
}

// IsOutput reports whether this is an output port
func (p *Port) IsOutput() bool {
	return p.role == RoleOutput
}

// Parent returns the owning node, or nil for an unattached port
func (p *Port) Parent() *Node {
	return p.parent
}

// IsConnected reports whether an edge currently uses this port
func (p *Port) IsConnected() bool {
	return p.connected
}

// SetConnected updates the derived connected flag. Reserved for the graph
// aggregate's edge transactions.
func (p *Port) SetConnected(connected bool) {
	p.connected = connected
}

// attachTo assigns the owning node exactly once
func (p *Port) attachTo(node *Node) error {
	if p.parent != nil {
		return pkgerrors.NewConflictError("port is already attached to a node")
	}
	p.parent = node
	return nil
}
