// Package memory provides the in-memory flow repository used in development
// and tests.
package memory

import (
	"context"
	"sync"

	"studio-backend/application/ports"
	"studio-backend/domain/core/aggregates"
	"studio-backend/domain/valueobjects"
	pkgerrors "studio-backend/pkg/errors"
)

// FlowRepository stores flow snapshots in a map
type FlowRepository struct {
	mu    sync.RWMutex
	flows map[string]aggregates.FlowSnapshot
}

// NewFlowRepository creates an empty repository
func NewFlowRepository() *FlowRepository {
	return &FlowRepository{
		flows: make(map[string]aggregates.FlowSnapshot),
	}
}

// Save stores a snapshot, overwriting any previous version
func (r *FlowRepository) Save(ctx context.Context, snapshot aggregates.FlowSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows[snapshot.ID] = snapshot
	return nil
}

// Load returns the stored snapshot for a flow id
func (r *FlowRepository) Load(ctx context.Context, id valueobjects.FlowID) (aggregates.FlowSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot, ok := r.flows[id.String()]
	if !ok {
		return aggregates.FlowSnapshot{}, pkgerrors.NewNotFoundError("flow")
	}
	return snapshot, nil
}

// List returns summaries of every stored flow
func (r *FlowRepository) List(ctx context.Context) ([]ports.FlowSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	summaries := make([]ports.FlowSummary, 0, len(r.flows))
	for _, snapshot := range r.flows {
		summaries = append(summaries, ports.FlowSummary{
			ID:          snapshot.ID,
			Name:        snapshot.Name,
			Description: snapshot.Description,
			Stage:       snapshot.Stage,
			State:       snapshot.State,
			NodeCount:   len(snapshot.Graph.Nodes),
		})
	}
	return summaries, nil
}

// Delete removes a stored flow
func (r *FlowRepository) Delete(ctx context.Context, id valueobjects.FlowID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.flows[id.String()]; !ok {
		return pkgerrors.NewNotFoundError("flow")
	}
	delete(r.flows, id.String())
	return nil
}
