package services

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"studio-backend/application/details"
	"studio-backend/application/ports"
	"studio-backend/domain/catalog"
	"studio-backend/domain/config"
	"studio-backend/domain/core/aggregates"
	"studio-backend/domain/events"
	domainservices "studio-backend/domain/services"
	"studio-backend/domain/valueobjects"
	pkgerrors "studio-backend/pkg/errors"
	"studio-backend/pkg/observability"
)

const tracerName = "studio-backend/application/services"

// CatalogSource yields the current node type catalog. The file watcher
// implements it; StaticCatalog wraps a fixed one for tests.
type CatalogSource interface {
	Current() *catalog.Catalog
}

// StaticCatalog is a CatalogSource that never changes
type StaticCatalog struct {
	Catalog *catalog.Catalog
}

// Current returns the wrapped catalog
func (s StaticCatalog) Current() *catalog.Catalog {
	return s.Catalog
}

// CreateNodeRequest is the composite node-creation input: a new node wired
// from an existing output port, with its ports pre-allocated.
type CreateNodeRequest struct {
	FromNodeID       string `json:"fromNodeId" validate:"required,uuid4"`
	FromPortID       string `json:"fromPortId" validate:"required,uuid4"`
	Name             string `json:"name" validate:"required,max=120"`
	Type             string `json:"type" validate:"required"`
	NumberOfChildren int    `json:"numberOfChildren" validate:"gte=0,lte=99"`
}

// FlowService opens flows, serializes access to each one, and applies every
// mutation the HTTP layer exposes. Each open flow carries its own event bus;
// the bus contract is single-dispatcher, so all operations on one flow run
// under that flow's lock.
type FlowService struct {
	repo     ports.FlowRepository
	catalogs CatalogSource
	registry *details.Registry
	layout   *domainservices.LayoutService
	saver    *Debouncer
	cfg      *config.DomainConfig
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu   sync.Mutex
	open map[string]*openFlow
}

type openFlow struct {
	mu   sync.Mutex
	flow *aggregates.Flow
}

// NewFlowService creates a flow service
func NewFlowService(repo ports.FlowRepository, catalogs CatalogSource, registry *details.Registry, layout *domainservices.LayoutService, saver *Debouncer, cfg *config.DomainConfig, logger *zap.Logger, metrics *observability.Metrics) *FlowService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &FlowService{
		repo:     repo,
		catalogs: catalogs,
		registry: registry,
		layout:   layout,
		saver:    saver,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		open:     make(map[string]*openFlow),
	}
	if saver != nil {
		saver.OnSaved = s.notifySaved
	}
	return s
}

// notifySaved publishes the auto-saved event on the flow's bus, under the
// flow's lock since the write callback runs on a timer goroutine
func (s *FlowService) notifySaved(flowID valueobjects.FlowID) {
	s.mu.Lock()
	entry, ok := s.open[flowID.String()]
	s.mu.Unlock()
	if !ok {
		return
	}
	entry.mu.Lock()
	entry.flow.NotifySaved()
	entry.mu.Unlock()
}

func (s *FlowService) countMutation(kind string) {
	if s.metrics != nil {
		s.metrics.MutationsTotal.WithLabelValues(kind).Inc()
	}
}

// CreateFlow creates a flow seeded with its trigger node and persists it
// immediately so it is listable before the first autosave.
func (s *FlowService) CreateFlow(ctx context.Context, name, description, stage, state string) (aggregates.FlowSnapshot, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "FlowService.CreateFlow")
	defer span.End()

	bus := events.NewBus()
	flow := aggregates.NewFlow(name, description, stage, state, bus, s.catalogs.Current(), s.cfg, s.saver)

	trigger, err := flow.Graph().CreateNode("Trigger", catalog.TriggerType)
	if err != nil {
		return aggregates.FlowSnapshot{}, err
	}
	if _, err := flow.Graph().CreateOutputPortOn(trigger.ID(), ""); err != nil {
		return aggregates.FlowSnapshot{}, err
	}

	snapshot := flow.Export()
	if err := s.repo.Save(ctx, snapshot); err != nil {
		return aggregates.FlowSnapshot{}, err
	}

	s.mu.Lock()
	s.open[flow.ID().String()] = &openFlow{flow: flow}
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.OpenFlows.Inc()
	}

	span.SetAttributes(attribute.String("flow.id", flow.ID().String()))
	s.logger.Info("flow created",
		zap.String("flow_id", flow.ID().String()),
		zap.String("name", name))
	return snapshot, nil
}

// ListFlows returns the stored flow summaries
func (s *FlowService) ListFlows(ctx context.Context) ([]ports.FlowSummary, error) {
	return s.repo.List(ctx)
}

// GetFlow returns the current snapshot of a flow, opening it if needed
func (s *FlowService) GetFlow(ctx context.Context, flowID valueobjects.FlowID) (aggregates.FlowSnapshot, error) {
	var snapshot aggregates.FlowSnapshot
	err := s.withFlow(ctx, flowID, func(flow *aggregates.Flow) error {
		snapshot = flow.Export()
		return nil
	})
	return snapshot, err
}

// DeleteFlow removes a flow from storage and memory. A pending autosave for
// it is dropped, not written.
func (s *FlowService) DeleteFlow(ctx context.Context, flowID valueobjects.FlowID) error {
	if s.saver != nil {
		s.saver.Cancel(flowID)
	}
	if err := s.repo.Delete(ctx, flowID); err != nil {
		return err
	}
	s.mu.Lock()
	if _, ok := s.open[flowID.String()]; ok {
		delete(s.open, flowID.String())
		if s.metrics != nil {
			s.metrics.OpenFlows.Dec()
		}
	}
	s.mu.Unlock()
	s.logger.Info("flow deleted", zap.String("flow_id", flowID.String()))
	return nil
}

// RenameFlow updates a flow's name and description
func (s *FlowService) RenameFlow(ctx context.Context, flowID valueobjects.FlowID, name, description string) error {
	s.countMutation("flow_renamed")
	return s.withFlow(ctx, flowID, func(flow *aggregates.Flow) error {
		flow.Rename(name, description)
		return nil
	})
}

// CreateNode applies the composite node-creation operation
func (s *FlowService) CreateNode(ctx context.Context, flowID valueobjects.FlowID, req CreateNodeRequest) (aggregates.NodeSnapshot, error) {
	fromNodeID, err := valueobjects.ParseNodeID(req.FromNodeID)
	if err != nil {
		return aggregates.NodeSnapshot{}, err
	}
	fromPortID, err := valueobjects.ParsePortID(req.FromPortID)
	if err != nil {
		return aggregates.NodeSnapshot{}, err
	}

	var created aggregates.NodeSnapshot
	err = s.withFlow(ctx, flowID, func(flow *aggregates.Flow) error {
		node, err := flow.CreateNode(fromNodeID, fromPortID, req.Name, req.Type, req.NumberOfChildren)
		if err != nil {
			return err
		}
		created = nodeSnapshotOf(flow, node.ID())
		return nil
	})
	if err != nil {
		return aggregates.NodeSnapshot{}, err
	}
	s.countMutation("node_created")
	return created, nil
}

// DeleteNode removes a node, cascading its edges
func (s *FlowService) DeleteNode(ctx context.Context, flowID valueobjects.FlowID, nodeID valueobjects.NodeID) error {
	err := s.withFlow(ctx, flowID, func(flow *aggregates.Flow) error {
		return flow.Graph().DeleteNode(nodeID)
	})
	if err == nil {
		s.countMutation("node_deleted")
	}
	return err
}

// RenameNode updates a node's display label
func (s *FlowService) RenameNode(ctx context.Context, flowID valueobjects.FlowID, nodeID valueobjects.NodeID, name string) error {
	err := s.withFlow(ctx, flowID, func(flow *aggregates.Flow) error {
		return flow.RenameNode(nodeID, name)
	})
	if err == nil {
		s.countMutation("node_renamed")
	}
	return err
}

// SetNodeDetails merges a raw details patch into a node's entry
func (s *FlowService) SetNodeDetails(ctx context.Context, flowID valueobjects.FlowID, nodeID valueobjects.NodeID, patch aggregates.NodeDetailsPatch) error {
	err := s.withFlow(ctx, flowID, func(flow *aggregates.Flow) error {
		return flow.SetNodeDetails(nodeID, patch)
	})
	if err == nil {
		s.countMutation("node_details_set")
	}
	return err
}

// ConfigureNode runs a node's type-specific manager over a raw config
// payload. Validation failures are returned as data, not as an error; on
// success the exported patch is merged and any output ports the
// configuration requires are backfilled.
func (s *FlowService) ConfigureNode(ctx context.Context, flowID valueobjects.FlowID, nodeID valueobjects.NodeID, rawConfig map[string]any) ([]details.ValidationError, error) {
	var validationErrs []details.ValidationError
	err := s.withFlow(ctx, flowID, func(flow *aggregates.Flow) error {
		node, err := flow.Graph().Node(nodeID)
		if err != nil {
			return err
		}
		vars, err := flow.AvailableVariables(nodeID)
		if err != nil {
			return err
		}
		portDetails := make(map[string]*aggregates.PortDetails)
		for _, port := range node.OutputPorts() {
			if d := flow.PortDetails(port.ID()); d != nil {
				portDetails[port.ID().String()] = d
			}
		}
		mctx := details.Context{
			Node:               node,
			Existing:           flow.NodeDetails(nodeID),
			PortDetails:        portDetails,
			AvailableVariables: vars,
			Config:             rawConfig,
		}

		manager := s.registry.Resolve(node.Type())
		if errs := manager.Validate(mctx); len(errs) > 0 {
			validationErrs = errs
			return nil
		}

		patch, err := manager.Export(mctx)
		if err != nil {
			return err
		}
		if requirer, ok := manager.(details.OutputRequirer); ok {
			required := requirer.RequiredOutputs(mctx)
			for node.OutputPortCount() < required {
				if _, err := flow.Graph().CreateOutputPortOn(nodeID, ""); err != nil {
					return err
				}
			}
		}
		return flow.SetNodeDetails(nodeID, patch)
	})
	if err == nil && len(validationErrs) == 0 {
		s.countMutation("node_configured")
	}
	return validationErrs, err
}

// AddOutputPort attaches a new output port to a node
func (s *FlowService) AddOutputPort(ctx context.Context, flowID valueobjects.FlowID, nodeID valueobjects.NodeID, label string) (valueobjects.PortID, error) {
	var portID valueobjects.PortID
	err := s.withFlow(ctx, flowID, func(flow *aggregates.Flow) error {
		port, err := flow.Graph().CreateOutputPortOn(nodeID, label)
		if err != nil {
			return err
		}
		portID = port.ID()
		return nil
	})
	if err == nil {
		s.countMutation("port_created")
	}
	return portID, err
}

// DeletePort removes an output port, cascading its edges
func (s *FlowService) DeletePort(ctx context.Context, flowID valueobjects.FlowID, portID valueobjects.PortID) error {
	err := s.withFlow(ctx, flowID, func(flow *aggregates.Flow) error {
		return flow.Graph().DeletePort(portID)
	})
	if err == nil {
		s.countMutation("port_deleted")
	}
	return err
}

// ReorderOutputPorts moves a node's output port between ordinal positions
func (s *FlowService) ReorderOutputPorts(ctx context.Context, flowID valueobjects.FlowID, nodeID valueobjects.NodeID, oldIndex, newIndex int) error {
	err := s.withFlow(ctx, flowID, func(flow *aggregates.Flow) error {
		return flow.Graph().ReorderOutputPorts(nodeID, oldIndex, newIndex)
	})
	if err == nil {
		s.countMutation("ports_reordered")
	}
	return err
}

// SetPortLabel updates an output port's display label
func (s *FlowService) SetPortLabel(ctx context.Context, flowID valueobjects.FlowID, portID valueobjects.PortID, label string) error {
	err := s.withFlow(ctx, flowID, func(flow *aggregates.Flow) error {
		return flow.SetPortLabel(portID, label)
	})
	if err == nil {
		s.countMutation("port_label_set")
	}
	return err
}

// CreateEdge connects an output port to an input port
func (s *FlowService) CreateEdge(ctx context.Context, flowID valueobjects.FlowID, fromPortID, toPortID valueobjects.PortID) (valueobjects.EdgeID, error) {
	var edgeID valueobjects.EdgeID
	err := s.withFlow(ctx, flowID, func(flow *aggregates.Flow) error {
		edge, err := flow.Graph().CreateEdge(fromPortID, toPortID)
		if err != nil {
			return err
		}
		edgeID = edge.ID()
		return nil
	})
	if err == nil {
		s.countMutation("edge_created")
	}
	return edgeID, err
}

// DeleteEdge removes an edge
func (s *FlowService) DeleteEdge(ctx context.Context, flowID valueobjects.FlowID, edgeID valueobjects.EdgeID) error {
	err := s.withFlow(ctx, flowID, func(flow *aggregates.Flow) error {
		return flow.Graph().DeleteEdge(edgeID)
	})
	if err == nil {
		s.countMutation("edge_deleted")
	}
	return err
}

// SetEdgeDetails merges a patch into an edge's details entry
func (s *FlowService) SetEdgeDetails(ctx context.Context, flowID valueobjects.FlowID, edgeID valueobjects.EdgeID, patch aggregates.EdgeDetailsPatch) error {
	err := s.withFlow(ctx, flowID, func(flow *aggregates.Flow) error {
		return flow.SetEdgeDetails(edgeID, patch)
	})
	if err == nil {
		s.countMutation("edge_details_set")
	}
	return err
}

// AvailableVariables returns a node's upstream-defined, enabled variables
func (s *FlowService) AvailableVariables(ctx context.Context, flowID valueobjects.FlowID, nodeID valueobjects.NodeID) ([]aggregates.DefinedVariable, error) {
	var vars []aggregates.DefinedVariable
	err := s.withFlow(ctx, flowID, func(flow *aggregates.Flow) error {
		v, err := flow.AvailableVariables(nodeID)
		if err != nil {
			return err
		}
		vars = v
		return nil
	})
	return vars, err
}

// Render computes the flow's render tree
func (s *FlowService) Render(ctx context.Context, flowID valueobjects.FlowID) (*domainservices.RenderTree, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "FlowService.Render")
	defer span.End()
	span.SetAttributes(attribute.String("flow.id", flowID.String()))

	var tree *domainservices.RenderTree
	err := s.withFlow(ctx, flowID, func(flow *aggregates.Flow) error {
		var timer *prometheus.Timer
		if s.metrics != nil {
			timer = prometheus.NewTimer(s.metrics.RenderDuration)
		}
		t, err := s.layout.Render(flow)
		if timer != nil {
			timer.ObserveDuration()
		}
		if err != nil {
			return err
		}
		tree = t
		return nil
	})
	return tree, err
}

// Shutdown flushes pending autosaves
func (s *FlowService) Shutdown() {
	if s.saver != nil {
		s.saver.Stop()
	}
}

func (s *FlowService) withFlow(ctx context.Context, flowID valueobjects.FlowID, fn func(flow *aggregates.Flow) error) error {
	entry, err := s.ensureOpen(ctx, flowID)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.flow)
}

func (s *FlowService) ensureOpen(ctx context.Context, flowID valueobjects.FlowID) (*openFlow, error) {
	s.mu.Lock()
	if entry, ok := s.open[flowID.String()]; ok {
		s.mu.Unlock()
		return entry, nil
	}
	s.mu.Unlock()

	snapshot, err := s.repo.Load(ctx, flowID)
	if err != nil {
		return nil, err
	}
	flow, err := aggregates.ImportFlow(snapshot, events.NewBus(), s.catalogs.Current(), s.cfg, s.saver)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to reconstruct persisted flow")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.open[flowID.String()]; ok {
		return entry, nil
	}
	entry := &openFlow{flow: flow}
	s.open[flowID.String()] = entry
	if s.metrics != nil {
		s.metrics.OpenFlows.Inc()
	}
	return entry, nil
}

func nodeSnapshotOf(flow *aggregates.Flow, nodeID valueobjects.NodeID) aggregates.NodeSnapshot {
	for _, ns := range flow.Graph().Export().Nodes {
		if ns.ID == nodeID.String() {
			return ns
		}
	}
	return aggregates.NodeSnapshot{}
}
