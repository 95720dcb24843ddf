// Package services orchestrates flows: opening and caching them, applying
// mutations under a per-flow lock, and debouncing persistence.
package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"studio-backend/application/ports"
	"studio-backend/domain/core/aggregates"
	"studio-backend/domain/valueobjects"
	"studio-backend/pkg/observability"
)

// Debouncer coalesces bursts of mutations into one repository write per
// flow. Schedule exports the snapshot immediately, under whatever lock the
// caller holds, and restarts the flow's quiet-period timer; when the timer
// fires the latest snapshot wins. Saves are fire-and-forget, there is no
// cancellation of an in-flight write.
type Debouncer struct {
	repo    ports.FlowRepository
	delay   time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics

	// OnSaved runs after a successful write, outside the debouncer lock
	OnSaved func(flowID valueobjects.FlowID)

	mu      sync.Mutex
	pending map[string]*pendingSave
	stopped bool
}

type pendingSave struct {
	timer    *time.Timer
	snapshot aggregates.FlowSnapshot
}

// NewDebouncer creates a debouncer writing to the given repository
func NewDebouncer(repo ports.FlowRepository, delay time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Debouncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Debouncer{
		repo:    repo,
		delay:   delay,
		logger:  logger,
		metrics: metrics,
		pending: make(map[string]*pendingSave),
	}
}

// Schedule registers the flow's current state for persistence after the
// quiet period. A call inside the window replaces the snapshot and restarts
// the timer.
func (d *Debouncer) Schedule(flow *aggregates.Flow) {
	snapshot := flow.Export()
	flowID := flow.ID()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if entry, ok := d.pending[flowID.String()]; ok {
		entry.snapshot = snapshot
		entry.timer.Reset(d.delay)
		return
	}
	entry := &pendingSave{snapshot: snapshot}
	entry.timer = time.AfterFunc(d.delay, func() {
		d.fire(flowID)
	})
	d.pending[flowID.String()] = entry
}

func (d *Debouncer) fire(flowID valueobjects.FlowID) {
	d.mu.Lock()
	entry, ok := d.pending[flowID.String()]
	if !ok {
		d.mu.Unlock()
		return
	}
	delete(d.pending, flowID.String())
	snapshot := entry.snapshot
	d.mu.Unlock()

	d.write(flowID, snapshot)
}

func (d *Debouncer) write(flowID valueobjects.FlowID, snapshot aggregates.FlowSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := d.repo.Save(ctx, snapshot); err != nil {
		if d.metrics != nil {
			d.metrics.AutoSaveFailures.Inc()
		}
		d.logger.Error("autosave failed",
			zap.String("flow_id", flowID.String()),
			zap.Error(err))
		return
	}
	if d.metrics != nil {
		d.metrics.AutoSavesTotal.Inc()
	}
	d.logger.Debug("flow autosaved", zap.String("flow_id", flowID.String()))
	if d.OnSaved != nil {
		d.OnSaved(flowID)
	}
}

// Flush writes every pending snapshot immediately. Used on shutdown and by
// operations that must observe a persisted state.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	entries := make(map[string]aggregates.FlowSnapshot, len(d.pending))
	for key, entry := range d.pending {
		entry.timer.Stop()
		entries[key] = entry.snapshot
	}
	d.pending = make(map[string]*pendingSave)
	d.mu.Unlock()

	for key, snapshot := range entries {
		if flowID, err := valueobjects.ParseFlowID(key); err == nil {
			d.write(flowID, snapshot)
		}
	}
}

// Cancel drops any pending save for the flow without writing it
func (d *Debouncer) Cancel(flowID valueobjects.FlowID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if entry, ok := d.pending[flowID.String()]; ok {
		entry.timer.Stop()
		delete(d.pending, flowID.String())
	}
}

// Stop flushes pending saves and rejects further scheduling
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
	d.Flush()
}
