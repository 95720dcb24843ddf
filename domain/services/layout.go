// Package services holds stateless-ish domain services that compute derived
// state from the flow model. The layout service is the heaviest: it turns a
// flow into a render tree with node positions and orthogonal edge paths.
package services

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"studio-backend/domain/catalog"
	"studio-backend/domain/config"
	"studio-backend/domain/core/aggregates"
	"studio-backend/domain/core/entities"
	"studio-backend/domain/valueobjects"
	pkgerrors "studio-backend/pkg/errors"
)

// Box dimensions and spacing used by the deterministic layout. Values are
// abstract units; the client scales them to pixels.
const (
	nodeWidth    = 180.0
	nodeHeight   = 80.0
	siblingGap   = 40.0
	levelGap     = 60.0
	indentStep   = 12.0
	markerDrop   = 30.0
	orphanGutter = 120.0
)

// Point is a coordinate in layout units
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ShortcutRef is a lightweight reference rendered in place of a node that is
// already drawn elsewhere in the tree
type ShortcutRef struct {
	EdgeID   string `json:"edgeId"`
	ToNodeID string `json:"toNodeId"`
}

// RenderSlot is one output port of a rendered node, holding whichever of a
// child subtree or a shortcut reference the port leads to
type RenderSlot struct {
	PortID   string       `json:"portId"`
	Label    string       `json:"label,omitempty"`
	EdgeID   string       `json:"edgeId,omitempty"`
	Child    *RenderNode  `json:"child,omitempty"`
	Shortcut *ShortcutRef `json:"shortcut,omitempty"`
}

// RenderNode is a node placed in the render tree
type RenderNode struct {
	NodeID    string       `json:"nodeId"`
	Name      string       `json:"name"`
	Type      string       `json:"type"`
	Collapsed bool         `json:"collapsed"`
	Snippet   string       `json:"snippet,omitempty"`
	Orphan    bool         `json:"orphan,omitempty"`
	Outputs   []RenderSlot `json:"outputs"`

	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// EdgePath is the orthogonal route of one visible edge
type EdgePath struct {
	EdgeID      string  `json:"edgeId"`
	Shortcut    bool    `json:"shortcut,omitempty"`
	Indentation float64 `json:"indentation"`
	Points      []Point `json:"points"`
}

// RenderTree is the full derived view of a flow
type RenderTree struct {
	FlowID     string        `json:"flowId"`
	Root       *RenderNode   `json:"root"`
	Orphans    []*RenderNode `json:"orphans"`
	EdgePaths  []EdgePath    `json:"edgePaths"`
	RenderedAt time.Time     `json:"renderedAt"`
}

// LayoutService computes render trees. Renders are throttled per flow:
// a request inside the throttle window returns the cached tree for that
// flow instead of recomputing.
type LayoutService struct {
	cfg    *config.DomainConfig
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]*cachedRender
}

type cachedRender struct {
	tree *RenderTree
	at   time.Time
}

// NewLayoutService creates a layout service
func NewLayoutService(cfg *config.DomainConfig, logger *zap.Logger) *LayoutService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LayoutService{
		cfg:    cfg,
		logger: logger,
		cache:  make(map[string]*cachedRender),
	}
}

// Render computes the render tree for a flow. Structural preconditions
// abort the whole render; per-edge geometry failures only drop that edge.
func (s *LayoutService) Render(flow *aggregates.Flow) (*RenderTree, error) {
	s.mu.Lock()
	if cached, ok := s.cache[flow.ID().String()]; ok && time.Since(cached.at) < s.cfg.RenderThrottle {
		s.mu.Unlock()
		return cached.tree, nil
	}
	s.mu.Unlock()

	tree, err := s.render(flow)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[flow.ID().String()] = &cachedRender{tree: tree, at: tree.RenderedAt}
	s.mu.Unlock()
	return tree, nil
}

// Invalidate drops the cached tree for a flow so the next render recomputes
// regardless of the throttle window
func (s *LayoutService) Invalidate(flowID valueobjects.FlowID) {
	s.mu.Lock()
	delete(s.cache, flowID.String())
	s.mu.Unlock()
}

func (s *LayoutService) render(flow *aggregates.Flow) (*RenderTree, error) {
	graph := flow.Graph()
	nodes := graph.Nodes()
	if len(nodes) == 0 {
		return nil, pkgerrors.NewValidationError(pkgerrors.CodeEmptyFlow, "flow has no nodes")
	}

	var trigger *entities.Node
	for _, node := range nodes {
		if node.Type() == catalog.TriggerType {
			trigger = node
			break
		}
	}
	if trigger == nil {
		return nil, pkgerrors.NewValidationError(pkgerrors.CodeNoTriggerNode, "flow has no trigger node")
	}

	r := &renderPass{flow: flow, graph: graph, visited: make(map[string]bool), portPos: make(map[string]Point)}
	root := r.renderNode(trigger, false)

	var orphans []*RenderNode
	for _, node := range nodes {
		if node.ID().Equals(trigger.ID()) || r.visited[node.ID().String()] {
			continue
		}
		input := node.InputPort()
		if input == nil || !input.IsConnected() {
			orphans = append(orphans, r.renderNode(node, true))
		}
	}

	rootWidth := s.layout(root, 0, 0, r)
	x := rootWidth + orphanGutter
	for _, orphan := range orphans {
		x += s.layout(orphan, x, 0, r) + siblingGap
	}

	tree := &RenderTree{
		FlowID:     flow.ID().String(),
		Root:       root,
		Orphans:    orphans,
		EdgePaths:  s.routeEdges(flow, r),
		RenderedAt: time.Now(),
	}
	return tree, nil
}

type renderPass struct {
	flow    *aggregates.Flow
	graph   *aggregates.Graph
	visited map[string]bool
	portPos map[string]Point
	markers map[string]Point
}

// renderNode builds the subtree rooted at the node. Orphans are force
// collapsed so their subtrees never expand out of the unreachable bucket.
func (r *renderPass) renderNode(node *entities.Node, orphan bool) *RenderNode {
	r.visited[node.ID().String()] = true

	rn := &RenderNode{
		NodeID: node.ID().String(),
		Name:   node.Name(),
		Type:   node.Type(),
		Orphan: orphan,
		Width:  nodeWidth,
		Height: nodeHeight,
	}
	if details := r.flow.NodeDetails(node.ID()); details != nil {
		rn.Collapsed = details.Collapsed
		rn.Snippet = details.Snippet
	}
	if orphan {
		rn.Collapsed = true
	}

	for _, port := range node.OutputPorts() {
		slot := RenderSlot{PortID: port.ID().String()}
		if details := r.flow.PortDetails(port.ID()); details != nil {
			slot.Label = details.Label
		}
		if edge := r.firstEdgeFrom(port.ID()); edge != nil {
			slot.EdgeID = edge.ID().String()
			destID := edge.ToNodeID()
			if r.visited[destID.String()] {
				slot.Shortcut = &ShortcutRef{EdgeID: edge.ID().String(), ToNodeID: destID.String()}
				r.ensureShortcutMarked(edge)
			} else if !rn.Collapsed {
				if dest, err := r.graph.Node(destID); err == nil {
					r.ensurePrimaryUnmarked(edge)
					slot.Child = r.renderNode(dest, false)
				}
			}
		}
		rn.Outputs = append(rn.Outputs, slot)
	}
	return rn
}

func (r *renderPass) firstEdgeFrom(portID valueobjects.PortID) *aggregates.Edge {
	for _, edge := range r.graph.Edges() {
		if edge.FromPortID().Equals(portID) {
			return edge
		}
	}
	return nil
}

// ensureShortcutMarked persists the shortcut flag into edge details. The
// write is skipped when the flag is already set so renders stay idempotent.
func (r *renderPass) ensureShortcutMarked(edge *aggregates.Edge) {
	if details := r.flow.EdgeDetails(edge.ID()); details != nil && details.Shortcut {
		return
	}
	shortcut := true
	fromPort := edge.FromPortID().String()
	toNode := edge.ToNodeID().String()
	_ = r.flow.SetEdgeDetails(edge.ID(), aggregates.EdgeDetailsPatch{
		Shortcut:           &shortcut,
		ShortcutFromPortID: &fromPort,
		ShortcutToNodeID:   &toNode,
	})
}

func (r *renderPass) ensurePrimaryUnmarked(edge *aggregates.Edge) {
	details := r.flow.EdgeDetails(edge.ID())
	if details == nil || !details.Shortcut {
		return
	}
	shortcut := false
	_ = r.flow.SetEdgeDetails(edge.ID(), aggregates.EdgeDetailsPatch{Shortcut: &shortcut})
}

// layout positions the subtree with its top-left at (x, y) and returns the
// subtree's width. Children divide the horizontal span beneath the parent;
// a childless or collapsed node occupies its own box width.
func (s *LayoutService) layout(rn *RenderNode, x, y float64, r *renderPass) float64 {
	var children []*RenderNode
	for _, slot := range rn.Outputs {
		if slot.Child != nil {
			children = append(children, slot.Child)
		}
	}

	width := nodeWidth
	if len(children) > 0 {
		width = 0
		childX := x
		for i, child := range children {
			if i > 0 {
				childX += siblingGap
				width += siblingGap
			}
			w := s.layout(child, childX, y+nodeHeight+levelGap, r)
			childX += w
			width += w
		}
	}

	rn.X = x + (width-nodeWidth)/2
	rn.Y = y

	// Input port sits at the top center, output ports spread along the
	// bottom edge in order.
	r.portPos["in:"+rn.NodeID] = Point{X: rn.X + nodeWidth/2, Y: rn.Y}
	n := len(rn.Outputs)
	for i, slot := range rn.Outputs {
		px := rn.X + nodeWidth*(float64(i)+1)/(float64(n)+1)
		p := Point{X: px, Y: rn.Y + nodeHeight}
		r.portPos[slot.PortID] = p
		if slot.Shortcut != nil {
			if r.markers == nil {
				r.markers = make(map[string]Point)
			}
			r.markers[slot.EdgeID] = Point{X: px, Y: rn.Y + nodeHeight + markerDrop}
		}
	}
	return width
}

// routeEdges computes an orthogonal path per visible edge. An edge whose
// endpoints were not placed this pass (hidden in a collapsed branch) is
// skipped, never fatal.
func (s *LayoutService) routeEdges(flow *aggregates.Flow, r *renderPass) []EdgePath {
	paths := []EdgePath{}
	for _, edge := range r.graph.Edges() {
		path, err := s.routeEdge(flow, r, edge)
		if err != nil {
			s.logger.Debug("skipping edge geometry",
				zap.String("edge_id", edge.ID().String()),
				zap.Error(err))
			continue
		}
		paths = append(paths, path)
	}
	return paths
}

func (s *LayoutService) routeEdge(flow *aggregates.Flow, r *renderPass, edge *aggregates.Edge) (EdgePath, error) {
	from, ok := r.portPos[edge.FromPortID().String()]
	if !ok {
		return EdgePath{}, pkgerrors.NewNotFoundError("source port position")
	}

	shortcut := false
	if details := flow.EdgeDetails(edge.ID()); details != nil {
		shortcut = details.Shortcut
	}

	var to Point
	if shortcut {
		marker, ok := r.markers[edge.ID().String()]
		if !ok {
			return EdgePath{}, pkgerrors.NewNotFoundError("shortcut marker position")
		}
		to = marker
	} else {
		dest, ok := r.portPos["in:"+edge.ToNodeID().String()]
		if !ok {
			return EdgePath{}, pkgerrors.NewNotFoundError("destination port position")
		}
		to = dest
	}

	indentation, err := s.indentation(r, edge)
	if err != nil {
		return EdgePath{}, err
	}

	drop := levelGap/2 + indentation*indentStep
	points := []Point{
		from,
		{X: from.X, Y: from.Y + drop},
		{X: to.X, Y: from.Y + drop},
		to,
	}
	return EdgePath{
		EdgeID:      edge.ID().String(),
		Shortcut:    shortcut,
		Indentation: indentation,
		Points:      points,
	}, nil
}

// indentation derives the routing offset from the source port's ordinal
// position among its sibling output ports. Ports near either end of the row
// route with less curvature than ports in the middle.
func (s *LayoutService) indentation(r *renderPass, edge *aggregates.Edge) (float64, error) {
	node, err := r.graph.Node(edge.FromNodeID())
	if err != nil {
		return 0, err
	}
	index := node.OutputPortIndex(edge.FromPortID())
	if index < 0 {
		return 0, pkgerrors.NewNotFoundError("output port")
	}
	count := node.OutputPortCount()
	if count == 0 {
		return 0, pkgerrors.NewValidationError(pkgerrors.CodeNodeHasNoPorts, "node has no output ports")
	}
	left := float64(index)
	right := float64(count - 1 - index)
	max := left
	if right > max {
		max = right
	}
	return max / float64(count), nil
}
