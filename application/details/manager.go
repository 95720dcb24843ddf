// Package details implements the per-node-type configuration capability.
// Each node type may register a Manager that validates a raw configuration
// payload and exports the details patch the flow stores for the node.
// Dispatch is a registry keyed by node type, resolved at startup; unknown
// types fall back to a pass-through manager.
package details

import (
	"sort"
	"sync"

	"studio-backend/domain/core/aggregates"
	"studio-backend/domain/core/entities"
)

// Context carries everything a manager may inspect while validating or
// exporting a node's configuration.
type Context struct {
	Node               *entities.Node
	Existing           *aggregates.NodeDetails
	PortDetails        map[string]*aggregates.PortDetails
	AvailableVariables []aggregates.DefinedVariable
	Config             map[string]any
}

// ValidationError is one form-level failure. Errors are collected, never
// thrown, so every offending field can surface its own message at once.
type ValidationError struct {
	Message     string `json:"message"`
	TargetField string `json:"targetField"`
}

// Manager validates and exports a node type's configuration
type Manager interface {
	Validate(ctx Context) []ValidationError
	Export(ctx Context) (aggregates.NodeDetailsPatch, error)
}

// OutputRequirer is implemented by managers whose configuration dictates a
// minimum number of output ports; the application layer backfills missing
// ports after export.
type OutputRequirer interface {
	RequiredOutputs(ctx Context) int
}

// Registry maps node type tags to their managers
type Registry struct {
	mu       sync.RWMutex
	managers map[string]Manager
	fallback Manager
}

// NewRegistry creates a registry with a pass-through fallback
func NewRegistry() *Registry {
	return &Registry{
		managers: make(map[string]Manager),
		fallback: PassThroughManager{},
	}
}

// Register binds a manager to a node type, replacing any previous binding
func (r *Registry) Register(nodeType string, manager Manager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.managers[nodeType] = manager
}

// Resolve returns the manager for a node type, or the pass-through fallback
func (r *Registry) Resolve(nodeType string) Manager {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if manager, ok := r.managers[nodeType]; ok {
		return manager
	}
	return r.fallback
}

// Types returns the registered node types in sorted order
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.managers))
	for t := range r.managers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DefaultRegistry returns a registry with every built-in manager bound
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("TimeDelay", TimeDelayManager{})
	r.Register("SendWhatsAppMessage", SendMessageManager{})
	r.Register("SendWhatsAppMessageWithButtons", SendButtonsManager{MaxButtons: 3})
	r.Register("SendWhatsAppMessageWithList", SendListManager{MaxRows: 10})
	r.Register("CloseConversation", CloseConversationManager{})
	r.Register("SetVariable", SetVariableManager{})
	r.Register("IfCondition", IfConditionManager{})
	return r
}

// PassThroughManager stores the raw configuration unchanged. It is the
// fallback for node types without a dedicated manager.
type PassThroughManager struct{}

// Validate accepts any payload
func (PassThroughManager) Validate(ctx Context) []ValidationError {
	return nil
}

// Export copies the configuration into the details patch and derives a
// snippet from a message field when one is present
func (PassThroughManager) Export(ctx Context) (aggregates.NodeDetailsPatch, error) {
	patch := aggregates.NodeDetailsPatch{Config: ctx.Config}
	if message, ok := ctx.Config["message"].(string); ok && message != "" {
		patch.Snippet = &message
	}
	return patch, nil
}
