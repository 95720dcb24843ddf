package entities

import (
	"studio-backend/domain/valueobjects"
	pkgerrors "studio-backend/pkg/errors"
)

// Node is a typed vertex in a flow graph. A node owns at most one input port
// and an ordered sequence of output ports; the order is significant for
// numbered-branch node types. The output-port bound comes from the node
// catalog and is enforced by the graph factory, which knows the catalog.
type Node struct {
	id          valueobjects.NodeID
	name        string
	nodeType    string
	inputPort   *Port
	outputPorts []*Port
}

// NewNode creates a node with a fresh id and no ports
func NewNode(name, nodeType string) (*Node, error) {
	if nodeType == "" {
		return nil, pkgerrors.NewValidationError("", "node type cannot be empty")
	}
	return &Node{
		id:          valueobjects.NewNodeID(),
		name:        name,
		nodeType:    nodeType,
		outputPorts: []*Port{},
	}, nil
}

// ReconstructNode recreates a node with a known id during import
func ReconstructNode(id valueobjects.NodeID, name, nodeType string) (*Node, error) {
	if nodeType == "" {
		return nil, pkgerrors.NewValidationError("", "node type cannot be empty")
	}
	return &Node{
		id:          id,
		name:        name,
		nodeType:    nodeType,
		outputPorts: []*Port{},
	}, nil
}

// ID returns the node's unique identifier
func (n *Node) ID() valueobjects.NodeID {
	return n.id
}

// Name returns the node's display label
func (n *Node) Name() string {
	return n.name
}

// Rename updates the node's display label
func (n *Node) Rename(name string) {
	if name != "" {
		n.name = name
	}
}

// Type returns the node's catalog type tag
func (n *Node) Type() string {
	return n.nodeType
}

// InputPort returns the node's input port, or nil
func (n *Node) InputPort() *Port {
	return n.inputPort
}

// OutputPorts returns the ordered output ports
func (n *Node) OutputPorts() []*Port {
	ports := make([]*Port, len(n.outputPorts))
	copy(ports, n.outputPorts)
	return ports
}

// OutputPortCount returns the number of output ports
func (n *Node) OutputPortCount() int {
	return len(n.outputPorts)
}

// HasPorts reports whether the node owns any port at all
func (n *Node) HasPorts() bool {
	return n.inputPort != nil || len(n.outputPorts) > 0
}

// FindPort returns the owned port with the given id, or nil
func (n *Node) FindPort(portID valueobjects.PortID) *Port {
	if n.inputPort != nil && n.inputPort.ID().Equals(portID) {
		return n.inputPort
	}
	for _, port := range n.outputPorts {
		if port.ID().Equals(portID) {
			return port
		}
	}
	return nil
}

// OutputPortIndex returns the ordinal position of an output port, or -1
func (n *Node) OutputPortIndex(portID valueobjects.PortID) int {
	for i, port := range n.outputPorts {
		if port.ID().Equals(portID) {
			return i
		}
	}
	return -1
}

// AttachInputPort gives the node its single input port. The port must be an
// input port and not yet attached anywhere.
func (n *Node) AttachInputPort(port *Port) error {
	if n.inputPort != nil {
		return pkgerrors.NewConflictError("node already has an input port")
	}
	if !port.IsInput() {
		return pkgerrors.NewValidationError(pkgerrors.CodeInvalidPortRole, "port is not an input port")
	}
	if err := port.attachTo(n); err != nil {
		return err
	}
	n.inputPort = port
	return nil
}

// AttachOutputPort appends an output port to the ordered sequence. The bound
// check against the catalog's maxOutputs happens in the graph factory before
// this call; maxOutputs is re-checked here so direct callers cannot bypass it.
func (n *Node) AttachOutputPort(port *Port, maxOutputs int) error {
	if !port.IsOutput() {
		return pkgerrors.NewValidationError(pkgerrors.CodeInvalidPortRole, "port is not an output port")
	}
	if len(n.outputPorts) >= maxOutputs {
		return pkgerrors.NewValidationError(pkgerrors.CodeMaxOutputsReached, "node has reached the maximum number of output ports")
	}
	if err := port.attachTo(n); err != nil {
		return err
	}
	n.outputPorts = append(n.outputPorts, port)
	return nil
}

// RemoveOutputPort detaches an output port from the sequence. The graph is
// responsible for cascading edge deletion before calling this.
func (n *Node) RemoveOutputPort(portID valueobjects.PortID) error {
	for i, port := range n.outputPorts {
		if port.ID().Equals(portID) {
			n.outputPorts = append(n.outputPorts[:i], n.outputPorts[i+1:]...)
			return nil
		}
	}
	return pkgerrors.NewNotFoundError("output port")
}

// ReorderOutputPort moves the port at oldIndex to newIndex, shifting the
// ports between them. The port multiset and each port's connected state are
// untouched; only order changes.
func (n *Node) ReorderOutputPort(oldIndex, newIndex int) error {
	if oldIndex < 0 || oldIndex >= len(n.outputPorts) {
		return pkgerrors.NewValidationError(pkgerrors.CodeIndexOutOfRange, "old index is out of bounds")
	}
	if newIndex < 0 || newIndex >= len(n.outputPorts) {
		return pkgerrors.NewValidationError(pkgerrors.CodeIndexOutOfRange, "new index is out of bounds")
	}
	if oldIndex == newIndex {
		return nil
	}

	port := n.outputPorts[oldIndex]
	n.outputPorts = append(n.outputPorts[:oldIndex], n.outputPorts[oldIndex+1:]...)

	rest := make([]*Port, 0, len(n.outputPorts)+1)
	rest = append(rest, n.outputPorts[:newIndex]...)
	rest = append(rest, port)
	rest = append(rest, n.outputPorts[newIndex:]...)
	n.outputPorts = rest

	return nil
}
