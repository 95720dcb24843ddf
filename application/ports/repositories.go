// Package ports declares the interfaces the application layer depends on.
// Infrastructure supplies the implementations; the domain never sees them.
package ports

import (
	"context"

	"studio-backend/domain/core/aggregates"
	"studio-backend/domain/valueobjects"
)

// FlowSummary is the listing projection of a stored flow
type FlowSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Stage       string `json:"stage"`
	State       string `json:"state"`
	NodeCount   int    `json:"nodeCount"`
}

// FlowRepository persists full flow snapshots. Save overwrites; there is no
// partial write and no optimistic locking, the exported snapshot is always
// the complete current state.
type FlowRepository interface {
	Save(ctx context.Context, snapshot aggregates.FlowSnapshot) error
	Load(ctx context.Context, id valueobjects.FlowID) (aggregates.FlowSnapshot, error)
	List(ctx context.Context) ([]FlowSummary, error)
	Delete(ctx context.Context, id valueobjects.FlowID) error
}
