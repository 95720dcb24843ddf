package aggregates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio-backend/domain/core/entities"
	"studio-backend/domain/events"
	"studio-backend/domain/valueobjects"
	pkgerrors "studio-backend/pkg/errors"
)

type eventRecorder struct {
	events []events.DomainEvent
}

func (r *eventRecorder) attach(bus *events.Bus, eventTypes ...string) {
	bus.Subscribe(func(event events.DomainEvent) {
		r.events = append(r.events, event)
	}, eventTypes...)
}

func (r *eventRecorder) ofType(eventType string) []events.DomainEvent {
	var out []events.DomainEvent
	for _, event := range r.events {
		if event.GetEventType() == eventType {
			out = append(out, event)
		}
	}
	return out
}

func newTestGraph(t *testing.T) (*Graph, *events.Bus) {
	t.Helper()
	bus := events.NewBus()
	return NewGraph(bus, nil, nil), bus
}

// addNode creates a node with one input and the given number of output ports
func addNode(t *testing.T, g *Graph, name, nodeType string, outputs int) *entities.Node {
	t.Helper()
	node, err := g.CreateNode(name, nodeType)
	require.NoError(t, err)
	require.NoError(t, g.AttachInputPort(node.ID(), g.CreateInputPort()))
	for i := 0; i < outputs; i++ {
		_, err := g.CreateOutputPortOn(node.ID(), "")
		require.NoError(t, err)
	}
	return node
}

// addTrigger creates the entry node: no input port, one output port
func addTrigger(t *testing.T, g *Graph) *entities.Node {
	t.Helper()
	node, err := g.CreateNode("Trigger", "Trigger")
	require.NoError(t, err)
	_, err = g.CreateOutputPortOn(node.ID(), "")
	require.NoError(t, err)
	return node
}

func connect(t *testing.T, g *Graph, from *entities.Node, outputIndex int, to *entities.Node) *Edge {
	t.Helper()
	edge, err := g.CreateEdge(from.OutputPorts()[outputIndex].ID(), to.InputPort().ID())
	require.NoError(t, err)
	return edge
}

func TestGraph_CreateEdge(t *testing.T) {
	t.Run("connects the ports and flags them connected", func(t *testing.T) {
		g, _ := newTestGraph(t)
		a := addNode(t, g, "a", "SendWhatsAppMessage", 1)
		b := addNode(t, g, "b", "SendWhatsAppMessage", 1)

		edge := connect(t, g, a, 0, b)

		assert.True(t, a.OutputPorts()[0].IsConnected())
		assert.True(t, b.InputPort().IsConnected())
		assert.Equal(t, a.ID(), edge.FromNodeID())
		assert.Equal(t, b.ID(), edge.ToNodeID())
		assert.Equal(t, 1, g.EdgeCount())
	})

	t.Run("rejects wrong port roles", func(t *testing.T) {
		g, _ := newTestGraph(t)
		a := addNode(t, g, "a", "SendWhatsAppMessage", 1)
		b := addNode(t, g, "b", "SendWhatsAppMessage", 1)

		_, err := g.CreateEdge(b.InputPort().ID(), a.OutputPorts()[0].ID())
		assert.Equal(t, pkgerrors.CodeInvalidPortRole, pkgerrors.CodeOf(err))
		assert.Equal(t, 0, g.EdgeCount())
	})

	t.Run("rejects an already connected source port", func(t *testing.T) {
		g, _ := newTestGraph(t)
		a := addNode(t, g, "a", "SendWhatsAppMessage", 1)
		b := addNode(t, g, "b", "SendWhatsAppMessage", 1)
		c := addNode(t, g, "c", "SendWhatsAppMessage", 1)
		connect(t, g, a, 0, b)

		_, err := g.CreateEdge(a.OutputPorts()[0].ID(), c.InputPort().ID())
		assert.Equal(t, pkgerrors.CodePortAlreadyConnected, pkgerrors.CodeOf(err))
		assert.Equal(t, 1, g.EdgeCount())
	})

	t.Run("rejects a self loop and leaves the graph unchanged", func(t *testing.T) {
		g, _ := newTestGraph(t)
		a := addNode(t, g, "a", "SendWhatsAppMessage", 1)

		_, err := g.CreateEdge(a.OutputPorts()[0].ID(), a.InputPort().ID())
		assert.Equal(t, pkgerrors.CodeSelfLoop, pkgerrors.CodeOf(err))
		assert.Equal(t, 0, g.EdgeCount())
		assert.False(t, a.OutputPorts()[0].IsConnected())
		assert.False(t, a.InputPort().IsConnected())
	})

	t.Run("allows multiple incoming edges to one input port", func(t *testing.T) {
		g, _ := newTestGraph(t)
		a := addNode(t, g, "a", "SendWhatsAppMessage", 1)
		b := addNode(t, g, "b", "SendWhatsAppMessage", 1)
		target := addNode(t, g, "target", "SendWhatsAppMessage", 1)

		connect(t, g, a, 0, target)
		connect(t, g, b, 0, target)

		assert.Equal(t, 2, g.EdgeCount())
		assert.Len(t, g.IncomingEdges(target.ID()), 2)
	})
}

func TestGraph_SingleConnectionInvariant(t *testing.T) {
	g, _ := newTestGraph(t)
	a := addNode(t, g, "a", "SendWhatsAppMessageWithButtons", 3)
	b := addNode(t, g, "b", "SendWhatsAppMessage", 1)
	c := addNode(t, g, "c", "SendWhatsAppMessage", 1)

	edgeAB := connect(t, g, a, 0, b)
	connect(t, g, a, 1, c)
	require.NoError(t, g.DeleteEdge(edgeAB.ID()))
	connect(t, g, a, 0, c)

	for _, node := range g.Nodes() {
		for _, port := range node.OutputPorts() {
			outgoing := 0
			for _, edge := range g.Edges() {
				if edge.FromPortID().Equals(port.ID()) {
					outgoing++
				}
			}
			assert.Equal(t, outgoing == 1, port.IsConnected(),
				"port %s connected flag disagrees with its edge count", port.ID())
		}
	}
}

func TestGraph_DeleteEdge(t *testing.T) {
	t.Run("resets both connection flags", func(t *testing.T) {
		g, _ := newTestGraph(t)
		a := addNode(t, g, "a", "SendWhatsAppMessage", 1)
		b := addNode(t, g, "b", "SendWhatsAppMessage", 1)
		edge := connect(t, g, a, 0, b)

		require.NoError(t, g.DeleteEdge(edge.ID()))

		assert.False(t, a.OutputPorts()[0].IsConnected())
		assert.False(t, b.InputPort().IsConnected())
		assert.Equal(t, 0, g.EdgeCount())
	})

	t.Run("keeps the input port connected while other incoming edges remain", func(t *testing.T) {
		g, _ := newTestGraph(t)
		a := addNode(t, g, "a", "SendWhatsAppMessage", 1)
		b := addNode(t, g, "b", "SendWhatsAppMessage", 1)
		target := addNode(t, g, "target", "SendWhatsAppMessage", 1)
		edgeA := connect(t, g, a, 0, target)
		connect(t, g, b, 0, target)

		require.NoError(t, g.DeleteEdge(edgeA.ID()))

		assert.True(t, target.InputPort().IsConnected())
		assert.False(t, a.OutputPorts()[0].IsConnected())
	})

	t.Run("fails for an unknown edge", func(t *testing.T) {
		g, _ := newTestGraph(t)
		err := g.DeleteEdge(valueobjects.NewEdgeID())
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

func TestGraph_ParentChangeNotification(t *testing.T) {
	t.Run("fires when the primary incoming edge is removed", func(t *testing.T) {
		g, bus := newTestGraph(t)
		recorder := &eventRecorder{}
		recorder.attach(bus, events.TypeNodeParentChanged)

		b := addNode(t, g, "b", "SendWhatsAppMessage", 1)
		c := addNode(t, g, "c", "SendWhatsAppMessage", 1)
		a := addNode(t, g, "a", "SendWhatsAppMessage", 1)
		edgeB := connect(t, g, b, 0, a)
		connect(t, g, c, 0, a)

		require.NoError(t, g.DeleteEdge(edgeB.ID()))

		changed := recorder.ofType(events.TypeNodeParentChanged)
		require.Len(t, changed, 1)
		assert.Equal(t, a.ID().String(), changed[0].GetAggregateID())
	})

	t.Run("does not fire when a non primary edge is removed", func(t *testing.T) {
		g, bus := newTestGraph(t)
		recorder := &eventRecorder{}
		recorder.attach(bus, events.TypeNodeParentChanged)

		b := addNode(t, g, "b", "SendWhatsAppMessage", 1)
		c := addNode(t, g, "c", "SendWhatsAppMessage", 1)
		a := addNode(t, g, "a", "SendWhatsAppMessage", 1)
		connect(t, g, b, 0, a)
		edgeC := connect(t, g, c, 0, a)

		require.NoError(t, g.DeleteEdge(edgeC.ID()))

		assert.Empty(t, recorder.ofType(events.TypeNodeParentChanged))
	})

	t.Run("the deleted edge event carries the previous parent", func(t *testing.T) {
		g, bus := newTestGraph(t)
		recorder := &eventRecorder{}
		recorder.attach(bus, events.TypeEdgeDeleted)

		b := addNode(t, g, "b", "SendWhatsAppMessage", 1)
		a := addNode(t, g, "a", "SendWhatsAppMessage", 1)
		edge := connect(t, g, b, 0, a)

		require.NoError(t, g.DeleteEdge(edge.ID()))

		deleted := recorder.ofType(events.TypeEdgeDeleted)
		require.Len(t, deleted, 1)
		payload := deleted[0].(events.EdgeDeleted)
		assert.Equal(t, b.ID(), payload.PreviousParentID)
	})
}

func TestGraph_CascadeOnDelete(t *testing.T) {
	t.Run("deleting a node removes every touching edge", func(t *testing.T) {
		g, _ := newTestGraph(t)
		hub := addNode(t, g, "hub", "SendWhatsAppMessageWithButtons", 3)
		parent := addNode(t, g, "parent", "SendWhatsAppMessage", 1)
		left := addNode(t, g, "left", "SendWhatsAppMessage", 1)
		right := addNode(t, g, "right", "SendWhatsAppMessage", 1)
		connect(t, g, parent, 0, hub)
		connect(t, g, hub, 0, left)
		connect(t, g, hub, 1, right)

		require.NoError(t, g.DeleteNode(hub.ID()))

		assert.Equal(t, 0, g.EdgeCount())
		_, err := g.Node(hub.ID())
		assert.Error(t, err)
		assert.False(t, parent.OutputPorts()[0].IsConnected())
		assert.False(t, left.InputPort().IsConnected())
		assert.False(t, right.InputPort().IsConnected())
	})

	t.Run("deleting a port cascades only its own edges", func(t *testing.T) {
		g, _ := newTestGraph(t)
		hub := addNode(t, g, "hub", "SendWhatsAppMessageWithButtons", 3)
		left := addNode(t, g, "left", "SendWhatsAppMessage", 1)
		right := addNode(t, g, "right", "SendWhatsAppMessage", 1)
		doomedPort := hub.OutputPorts()[0]
		connect(t, g, hub, 0, left)
		keptEdge := connect(t, g, hub, 1, right)

		require.NoError(t, g.DeletePort(doomedPort.ID()))

		assert.Equal(t, 1, g.EdgeCount())
		_, err := g.Edge(keptEdge.ID())
		assert.NoError(t, err)
		assert.Equal(t, 2, hub.OutputPortCount())
		assert.False(t, left.InputPort().IsConnected())
	})

	t.Run("input ports cannot be deleted", func(t *testing.T) {
		g, _ := newTestGraph(t)
		a := addNode(t, g, "a", "SendWhatsAppMessage", 1)
		err := g.DeletePort(a.InputPort().ID())
		assert.Equal(t, pkgerrors.CodeCannotDeleteInputPort, pkgerrors.CodeOf(err))
	})

	t.Run("deleting a node announces each of its ports", func(t *testing.T) {
		g, bus := newTestGraph(t)
		doomed := addNode(t, g, "doomed", "SendWhatsAppMessageWithButtons", 2)
		recorder := &eventRecorder{}
		recorder.attach(bus, events.TypePortDeleted)

		require.NoError(t, g.DeleteNode(doomed.ID()))

		deleted := recorder.ofType(events.TypePortDeleted)
		require.Len(t, deleted, 3)
		seen := map[string]bool{}
		for _, event := range deleted {
			e, ok := event.(events.PortDeleted)
			require.True(t, ok)
			assert.Equal(t, doomed.ID(), e.NodeID)
			seen[e.PortID.String()] = true
		}
		assert.True(t, seen[doomed.InputPort().ID().String()])
		for _, port := range doomed.OutputPorts() {
			assert.True(t, seen[port.ID().String()])
		}
	})
}

func TestGraph_Traversal(t *testing.T) {
	// Trigger -> Buttons -> {Handoff, End}
	build := func(t *testing.T) (*Graph, *entities.Node, *entities.Node, *entities.Node, *entities.Node, *Edge) {
		g, _ := newTestGraph(t)
		trigger := addTrigger(t, g)
		buttons := addNode(t, g, "Buttons", "SendWhatsAppMessageWithButtons", 2)
		handoff := addNode(t, g, "Handoff", "HandoverToHuman", 0)
		end := addNode(t, g, "End", "CloseConversation", 0)
		connect(t, g, trigger, 0, buttons)
		toHandoff := connect(t, g, buttons, 0, handoff)
		connect(t, g, buttons, 1, end)
		return g, trigger, buttons, handoff, end, toHandoff
	}

	t.Run("descendants and ancestors are symmetric", func(t *testing.T) {
		g, trigger, buttons, handoff, end, _ := build(t)

		descendants, err := g.Descendants(trigger.ID())
		require.NoError(t, err)
		assert.ElementsMatch(t,
			[]string{buttons.ID().String(), handoff.ID().String(), end.ID().String()},
			nodeIDs(descendants))

		for _, node := range []*entities.Node{buttons, handoff, end} {
			ancestors, err := g.Ancestors(node.ID())
			require.NoError(t, err)
			assert.Contains(t, nodeIDs(ancestors), trigger.ID().String())
		}
	})

	t.Run("deleting an edge orphans the subtree", func(t *testing.T) {
		g, trigger, buttons, handoff, end, toHandoff := build(t)

		require.NoError(t, g.DeleteEdge(toHandoff.ID()))

		assert.False(t, handoff.InputPort().IsConnected())
		descendants, err := g.Descendants(trigger.ID())
		require.NoError(t, err)
		assert.ElementsMatch(t,
			[]string{buttons.ID().String(), end.ID().String()},
			nodeIDs(descendants))
	})

	t.Run("shortcut topology does not recurse forever", func(t *testing.T) {
		g, _ := newTestGraph(t)
		a := addNode(t, g, "a", "SendWhatsAppMessageWithButtons", 2)
		b := addNode(t, g, "b", "SendWhatsAppMessage", 1)
		c := addNode(t, g, "c", "SendWhatsAppMessage", 1)
		connect(t, g, a, 0, b)
		connect(t, g, b, 0, c)
		connect(t, g, a, 1, c)

		descendants, err := g.Descendants(a.ID())
		require.NoError(t, err)
		assert.Len(t, descendants, 2)

		ancestors, err := g.Ancestors(c.ID())
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{a.ID().String(), b.ID().String()}, nodeIDs(ancestors))
	})

	t.Run("traversals are independent between calls", func(t *testing.T) {
		g, trigger, buttons, _, _, _ := build(t)

		first, err := g.Descendants(trigger.ID())
		require.NoError(t, err)
		second, err := g.Descendants(trigger.ID())
		require.NoError(t, err)
		assert.Equal(t, nodeIDs(first), nodeIDs(second))

		fromButtons, err := g.Descendants(buttons.ID())
		require.NoError(t, err)
		assert.Len(t, fromButtons, 2)
	})
}

func TestGraph_ImmediateParent(t *testing.T) {
	g, _ := newTestGraph(t)
	a := addNode(t, g, "a", "SendWhatsAppMessage", 1)
	b := addNode(t, g, "b", "SendWhatsAppMessage", 1)

	parent, err := g.ImmediateParent(b.ID())
	require.NoError(t, err)
	assert.Nil(t, parent)

	connect(t, g, a, 0, b)
	parent, err = g.ImmediateParent(b.ID())
	require.NoError(t, err)
	require.NotNil(t, parent)
	assert.Equal(t, a.ID(), parent.ID())

	_, err = g.ImmediateParent(valueobjects.NewNodeID())
	assert.Equal(t, pkgerrors.CodeNotInGraph, pkgerrors.CodeOf(err))
}

func TestGraph_ConnectedEdges(t *testing.T) {
	g, _ := newTestGraph(t)

	t.Run("fails for a node without ports", func(t *testing.T) {
		bare, err := g.CreateNode("bare", "SendWhatsAppMessage")
		require.NoError(t, err)
		_, err = g.ConnectedEdges(bare.ID())
		assert.Equal(t, pkgerrors.CodeNodeHasNoPorts, pkgerrors.CodeOf(err))
	})

	t.Run("returns edges on both sides", func(t *testing.T) {
		a := addNode(t, g, "a", "SendWhatsAppMessage", 1)
		b := addNode(t, g, "b", "SendWhatsAppMessage", 1)
		c := addNode(t, g, "c", "SendWhatsAppMessage", 1)
		connect(t, g, a, 0, b)
		connect(t, g, b, 0, c)

		edges, err := g.ConnectedEdges(b.ID())
		require.NoError(t, err)
		assert.Len(t, edges, 2)
	})
}

func TestGraph_MaxOutputs(t *testing.T) {
	g, _ := newTestGraph(t)
	node, err := g.CreateNode("wait", "TimeDelay")
	require.NoError(t, err)

	_, err = g.CreateOutputPortOn(node.ID(), "")
	require.NoError(t, err)

	_, err = g.CreateOutputPortOn(node.ID(), "")
	assert.Equal(t, pkgerrors.CodeMaxOutputsReached, pkgerrors.CodeOf(err))
	assert.Equal(t, 1, node.OutputPortCount())
}

func TestGraph_PortLabelEvent(t *testing.T) {
	g, bus := newTestGraph(t)
	recorder := &eventRecorder{}
	recorder.attach(bus, events.TypePortLabelChanged)

	node, err := g.CreateNode("buttons", "SendWhatsAppMessageWithButtons")
	require.NoError(t, err)
	_, err = g.CreateOutputPortOn(node.ID(), "Yes")
	require.NoError(t, err)
	_, err = g.CreateOutputPortOn(node.ID(), "")
	require.NoError(t, err)

	labeled := recorder.ofType(events.TypePortLabelChanged)
	require.Len(t, labeled, 1)
	assert.Equal(t, "Yes", labeled[0].(events.PortLabelChanged).Label)
}

func nodeIDs(nodes []*entities.Node) []string {
	ids := make([]string, 0, len(nodes))
	for _, node := range nodes {
		ids = append(ids, node.ID().String())
	}
	return ids
}
