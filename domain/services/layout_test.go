package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio-backend/domain/config"
	"studio-backend/domain/core/aggregates"
	"studio-backend/domain/core/entities"
	"studio-backend/domain/events"
	pkgerrors "studio-backend/pkg/errors"
)

func newRenderFlow(t *testing.T) *aggregates.Flow {
	t.Helper()
	return aggregates.NewFlow("render", "", "draft", "editing", events.NewBus(), nil, nil, nil)
}

func seedTrigger(t *testing.T, flow *aggregates.Flow) (*entities.Node, *entities.Port) {
	t.Helper()
	trigger, err := flow.Graph().CreateNode("Trigger", "Trigger")
	require.NoError(t, err)
	port, err := flow.Graph().CreateOutputPortOn(trigger.ID(), "")
	require.NoError(t, err)
	return trigger, port
}

func attachNode(t *testing.T, flow *aggregates.Flow, from *entities.Node, outputIndex int, name, nodeType string, children int) *entities.Node {
	t.Helper()
	node, err := flow.CreateNode(from.ID(), from.OutputPorts()[outputIndex].ID(), name, nodeType, children)
	require.NoError(t, err)
	return node
}

// noThrottle forces every render to recompute
func noThrottle() *config.DomainConfig {
	cfg := config.DefaultDomainConfig()
	cfg.RenderThrottle = 0
	return cfg
}

func TestLayoutService_Preconditions(t *testing.T) {
	svc := NewLayoutService(noThrottle(), nil)

	t.Run("empty flow", func(t *testing.T) {
		flow := newRenderFlow(t)
		_, err := svc.Render(flow)
		assert.Equal(t, pkgerrors.CodeEmptyFlow, pkgerrors.CodeOf(err))
	})

	t.Run("no trigger node", func(t *testing.T) {
		flow := newRenderFlow(t)
		_, err := flow.Graph().CreateNode("lonely", "SendWhatsAppMessage")
		require.NoError(t, err)
		_, err = svc.Render(flow)
		assert.Equal(t, pkgerrors.CodeNoTriggerNode, pkgerrors.CodeOf(err))
	})
}

func TestLayoutService_PrimaryTree(t *testing.T) {
	svc := NewLayoutService(noThrottle(), nil)
	flow := newRenderFlow(t)
	trigger, _ := seedTrigger(t, flow)
	branch := attachNode(t, flow, trigger, 0, "branch", "SendWhatsAppMessageWithButtons", 2)
	left := attachNode(t, flow, branch, 0, "left", "SendWhatsAppMessage", 1)
	right := attachNode(t, flow, branch, 1, "right", "CloseConversation", 0)

	tree, err := svc.Render(flow)
	require.NoError(t, err)

	require.NotNil(t, tree.Root)
	assert.Equal(t, trigger.ID().String(), tree.Root.NodeID)
	assert.Empty(t, tree.Orphans)

	require.Len(t, tree.Root.Outputs, 1)
	branchNode := tree.Root.Outputs[0].Child
	require.NotNil(t, branchNode)
	assert.Equal(t, "branch", branchNode.Name)
	require.Len(t, branchNode.Outputs, 2)
	assert.Equal(t, left.ID().String(), branchNode.Outputs[0].Child.NodeID)
	assert.Equal(t, right.ID().String(), branchNode.Outputs[1].Child.NodeID)

	// depth grows downward, one level per generation
	leftNode := branchNode.Outputs[0].Child
	assert.Equal(t, 0.0, tree.Root.Y)
	assert.Greater(t, branchNode.Y, tree.Root.Y)
	assert.Greater(t, leftNode.Y, branchNode.Y)

	// siblings do not overlap and keep declaration order left to right
	rightNode := branchNode.Outputs[1].Child
	assert.GreaterOrEqual(t, rightNode.X, leftNode.X+leftNode.Width)

	// parent is centered over its children's span
	span := rightNode.X + rightNode.Width - leftNode.X
	assert.InDelta(t, leftNode.X+span/2, branchNode.X+branchNode.Width/2, 0.001)

	// four-point orthogonal route per visible edge
	require.Len(t, tree.EdgePaths, 3)
	for _, path := range tree.EdgePaths {
		assert.Len(t, path.Points, 4)
		assert.Equal(t, path.Points[0].X, path.Points[1].X)
		assert.Equal(t, path.Points[1].Y, path.Points[2].Y)
		assert.Equal(t, path.Points[2].X, path.Points[3].X)
	}
}

func TestLayoutService_CollapsedBranch(t *testing.T) {
	svc := NewLayoutService(noThrottle(), nil)
	flow := newRenderFlow(t)
	trigger, _ := seedTrigger(t, flow)
	branch := attachNode(t, flow, trigger, 0, "branch", "SendWhatsAppMessage", 1)
	attachNode(t, flow, branch, 0, "hidden", "CloseConversation", 0)

	collapsed := true
	require.NoError(t, flow.SetNodeDetails(branch.ID(), aggregates.NodeDetailsPatch{Collapsed: &collapsed}))

	tree, err := svc.Render(flow)
	require.NoError(t, err)

	branchNode := tree.Root.Outputs[0].Child
	require.NotNil(t, branchNode)
	assert.True(t, branchNode.Collapsed)
	require.Len(t, branchNode.Outputs, 1)
	assert.Nil(t, branchNode.Outputs[0].Child)

	// the edge hidden inside the collapsed branch is dropped, not fatal
	require.Len(t, tree.EdgePaths, 1)
	for _, path := range tree.EdgePaths {
		assert.NotEqual(t, branchNode.Outputs[0].EdgeID, path.EdgeID)
	}
}

func TestLayoutService_Orphans(t *testing.T) {
	svc := NewLayoutService(noThrottle(), nil)
	flow := newRenderFlow(t)
	trigger, _ := seedTrigger(t, flow)
	attachNode(t, flow, trigger, 0, "step", "SendWhatsAppMessage", 1)

	orphan, err := flow.Graph().CreateNode("stray", "SendWhatsAppMessage")
	require.NoError(t, err)
	require.NoError(t, flow.Graph().AttachInputPort(orphan.ID(), flow.Graph().CreateInputPort()))
	_, err = flow.Graph().CreateOutputPortOn(orphan.ID(), "")
	require.NoError(t, err)

	tree, err := svc.Render(flow)
	require.NoError(t, err)

	require.Len(t, tree.Orphans, 1)
	stray := tree.Orphans[0]
	assert.True(t, stray.Orphan)
	assert.True(t, stray.Collapsed, "orphans are force collapsed")
	assert.Greater(t, stray.X, tree.Root.X, "orphans sit right of the primary tree")
}

func TestLayoutService_Shortcuts(t *testing.T) {
	svc := NewLayoutService(noThrottle(), nil)
	flow := newRenderFlow(t)
	trigger, _ := seedTrigger(t, flow)
	branch := attachNode(t, flow, trigger, 0, "branch", "SendWhatsAppMessageWithButtons", 2)
	step := attachNode(t, flow, branch, 0, "step", "SendWhatsAppMessage", 1)

	shortcutEdge, err := flow.Graph().CreateEdge(branch.OutputPorts()[1].ID(), step.InputPort().ID())
	require.NoError(t, err)

	tree, err := svc.Render(flow)
	require.NoError(t, err)

	branchNode := tree.Root.Outputs[0].Child
	require.NotNil(t, branchNode)
	require.Len(t, branchNode.Outputs, 2)

	// first port renders the subtree, second renders a reference to it
	assert.NotNil(t, branchNode.Outputs[0].Child)
	ref := branchNode.Outputs[1].Shortcut
	require.NotNil(t, ref)
	assert.Equal(t, step.ID().String(), ref.ToNodeID)
	assert.Nil(t, branchNode.Outputs[1].Child)

	var shortcutPath *EdgePath
	for i := range tree.EdgePaths {
		if tree.EdgePaths[i].EdgeID == shortcutEdge.ID().String() {
			shortcutPath = &tree.EdgePaths[i]
		}
	}
	require.NotNil(t, shortcutPath)
	assert.True(t, shortcutPath.Shortcut)

	details := flow.EdgeDetails(shortcutEdge.ID())
	require.NotNil(t, details)
	assert.True(t, details.Shortcut)
}

func TestLayoutService_Indentation(t *testing.T) {
	svc := NewLayoutService(noThrottle(), nil)
	flow := newRenderFlow(t)
	trigger, _ := seedTrigger(t, flow)
	fan := attachNode(t, flow, trigger, 0, "fan", "SendWhatsAppMessageWithButtons", 3)
	children := []*entities.Node{
		attachNode(t, flow, fan, 0, "c0", "CloseConversation", 0),
		attachNode(t, flow, fan, 1, "c1", "CloseConversation", 0),
		attachNode(t, flow, fan, 2, "c2", "CloseConversation", 0),
	}

	tree, err := svc.Render(flow)
	require.NoError(t, err)

	// edge ports near the row ends route deeper than the middle one
	want := map[string]float64{
		children[0].ID().String(): 2.0 / 3.0,
		children[1].ID().String(): 1.0 / 3.0,
		children[2].ID().String(): 2.0 / 3.0,
	}
	fanNode := tree.Root.Outputs[0].Child
	require.NotNil(t, fanNode)
	byEdge := make(map[string]float64)
	for _, path := range tree.EdgePaths {
		byEdge[path.EdgeID] = path.Indentation
	}
	for _, slot := range fanNode.Outputs {
		require.NotNil(t, slot.Child)
		assert.InDelta(t, want[slot.Child.NodeID], byEdge[slot.EdgeID], 0.001)
	}
}

func TestLayoutService_ThrottleCache(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	cfg.RenderThrottle = time.Hour
	svc := NewLayoutService(cfg, nil)

	flow := newRenderFlow(t)
	trigger, _ := seedTrigger(t, flow)
	attachNode(t, flow, trigger, 0, "step", "SendWhatsAppMessage", 1)

	first, err := svc.Render(flow)
	require.NoError(t, err)
	second, err := svc.Render(flow)
	require.NoError(t, err)
	assert.Same(t, first, second, "renders inside the window reuse the cached tree")

	svc.Invalidate(flow.ID())
	third, err := svc.Render(flow)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}
