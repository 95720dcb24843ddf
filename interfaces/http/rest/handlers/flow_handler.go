// Package handlers contains the HTTP handlers of the studio API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"studio-backend/application/services"
	"studio-backend/domain/core/aggregates"
	"studio-backend/domain/valueobjects"
	pkgerrors "studio-backend/pkg/errors"
)

// FlowHandler serves the flow CRUD and graph mutation endpoints
type FlowHandler struct {
	service  *services.FlowService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewFlowHandler creates a flow handler
func NewFlowHandler(service *services.FlowService, logger *zap.Logger) *FlowHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlowHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

type createFlowRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=500"`
	Stage       string `json:"stage"`
	State       string `json:"state"`
}

type renameFlowRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=500"`
}

type renameNodeRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type addPortRequest struct {
	Label string `json:"label" validate:"max=120"`
}

type reorderPortsRequest struct {
	OldIndex int `json:"oldIndex" validate:"gte=0"`
	NewIndex int `json:"newIndex" validate:"gte=0"`
}

type setLabelRequest struct {
	Label string `json:"label" validate:"max=120"`
}

type createEdgeRequest struct {
	FromPortID string `json:"fromPortId" validate:"required,uuid4"`
	ToPortID   string `json:"toPortId" validate:"required,uuid4"`
}

type configureNodeRequest struct {
	Config map[string]any `json:"config" validate:"required"`
}

func (h *FlowHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, pkgerrors.NewValidationError("", "malformed request body"))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		respondError(w, pkgerrors.NewValidationError("", err.Error()))
		return false
	}
	return true
}

func flowID(w http.ResponseWriter, r *http.Request) (valueobjects.FlowID, bool) {
	id, err := valueobjects.ParseFlowID(chi.URLParam(r, "flowId"))
	if err != nil {
		respondError(w, err)
		return valueobjects.FlowID{}, false
	}
	return id, true
}

// CreateFlow handles POST /api/flows
func (h *FlowHandler) CreateFlow(w http.ResponseWriter, r *http.Request) {
	var req createFlowRequest
	if !h.decode(w, r, &req) {
		return
	}
	snapshot, err := h.service.CreateFlow(r.Context(), req.Name, req.Description, req.Stage, req.State)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, snapshot)
}

// ListFlows handles GET /api/flows
func (h *FlowHandler) ListFlows(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.ListFlows(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summaries)
}

// GetFlow handles GET /api/flows/{flowId}
func (h *FlowHandler) GetFlow(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	snapshot, err := h.service.GetFlow(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// RenameFlow handles PUT /api/flows/{flowId}
func (h *FlowHandler) RenameFlow(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	var req renameFlowRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.RenameFlow(r.Context(), id, req.Name, req.Description); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteFlow handles DELETE /api/flows/{flowId}
func (h *FlowHandler) DeleteFlow(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteFlow(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateNode handles POST /api/flows/{flowId}/nodes
func (h *FlowHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	var req services.CreateNodeRequest
	if !h.decode(w, r, &req) {
		return
	}
	node, err := h.service.CreateNode(r.Context(), id, req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, node)
}

// DeleteNode handles DELETE /api/flows/{flowId}/nodes/{nodeId}
func (h *FlowHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	nodeID, err := valueobjects.ParseNodeID(chi.URLParam(r, "nodeId"))
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.service.DeleteNode(r.Context(), id, nodeID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenameNode handles PUT /api/flows/{flowId}/nodes/{nodeId}
func (h *FlowHandler) RenameNode(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	nodeID, err := valueobjects.ParseNodeID(chi.URLParam(r, "nodeId"))
	if err != nil {
		respondError(w, err)
		return
	}
	var req renameNodeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.RenameNode(r.Context(), id, nodeID, req.Name); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetNodeDetails handles PUT /api/flows/{flowId}/nodes/{nodeId}/details
func (h *FlowHandler) SetNodeDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	nodeID, err := valueobjects.ParseNodeID(chi.URLParam(r, "nodeId"))
	if err != nil {
		respondError(w, err)
		return
	}
	var patch aggregates.NodeDetailsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, pkgerrors.NewValidationError("", "malformed request body"))
		return
	}
	if err := h.service.SetNodeDetails(r.Context(), id, nodeID, patch); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ConfigureNode handles POST /api/flows/{flowId}/nodes/{nodeId}/configure.
// Form validation failures come back 200 with the error list so every field
// can show its own message; only structural problems are error statuses.
func (h *FlowHandler) ConfigureNode(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	nodeID, err := valueobjects.ParseNodeID(chi.URLParam(r, "nodeId"))
	if err != nil {
		respondError(w, err)
		return
	}
	var req configureNodeRequest
	if !h.decode(w, r, &req) {
		return
	}
	validationErrs, err := h.service.ConfigureNode(r.Context(), id, nodeID, req.Config)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"valid":  len(validationErrs) == 0,
		"errors": validationErrs,
	})
}

// AvailableVariables handles GET /api/flows/{flowId}/nodes/{nodeId}/variables
func (h *FlowHandler) AvailableVariables(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	nodeID, err := valueobjects.ParseNodeID(chi.URLParam(r, "nodeId"))
	if err != nil {
		respondError(w, err)
		return
	}
	vars, err := h.service.AvailableVariables(r.Context(), id, nodeID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, vars)
}

// AddPort handles POST /api/flows/{flowId}/nodes/{nodeId}/ports
func (h *FlowHandler) AddPort(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	nodeID, err := valueobjects.ParseNodeID(chi.URLParam(r, "nodeId"))
	if err != nil {
		respondError(w, err)
		return
	}
	var req addPortRequest
	if !h.decode(w, r, &req) {
		return
	}
	portID, err := h.service.AddOutputPort(r.Context(), id, nodeID, req.Label)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"portId": portID.String()})
}

// ReorderPorts handles PUT /api/flows/{flowId}/nodes/{nodeId}/ports/reorder
func (h *FlowHandler) ReorderPorts(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	nodeID, err := valueobjects.ParseNodeID(chi.URLParam(r, "nodeId"))
	if err != nil {
		respondError(w, err)
		return
	}
	var req reorderPortsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.ReorderOutputPorts(r.Context(), id, nodeID, req.OldIndex, req.NewIndex); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeletePort handles DELETE /api/flows/{flowId}/ports/{portId}
func (h *FlowHandler) DeletePort(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	portID, err := valueobjects.ParsePortID(chi.URLParam(r, "portId"))
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.service.DeletePort(r.Context(), id, portID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetPortLabel handles PUT /api/flows/{flowId}/ports/{portId}/label
func (h *FlowHandler) SetPortLabel(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	portID, err := valueobjects.ParsePortID(chi.URLParam(r, "portId"))
	if err != nil {
		respondError(w, err)
		return
	}
	var req setLabelRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.SetPortLabel(r.Context(), id, portID, req.Label); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateEdge handles POST /api/flows/{flowId}/edges
func (h *FlowHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	var req createEdgeRequest
	if !h.decode(w, r, &req) {
		return
	}
	fromPortID, err := valueobjects.ParsePortID(req.FromPortID)
	if err != nil {
		respondError(w, err)
		return
	}
	toPortID, err := valueobjects.ParsePortID(req.ToPortID)
	if err != nil {
		respondError(w, err)
		return
	}
	edgeID, err := h.service.CreateEdge(r.Context(), id, fromPortID, toPortID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"edgeId": edgeID.String()})
}

// DeleteEdge handles DELETE /api/flows/{flowId}/edges/{edgeId}
func (h *FlowHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	edgeID, err := valueobjects.ParseEdgeID(chi.URLParam(r, "edgeId"))
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.service.DeleteEdge(r.Context(), id, edgeID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetEdgeDetails handles PUT /api/flows/{flowId}/edges/{edgeId}/details
func (h *FlowHandler) SetEdgeDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	edgeID, err := valueobjects.ParseEdgeID(chi.URLParam(r, "edgeId"))
	if err != nil {
		respondError(w, err)
		return
	}
	var patch aggregates.EdgeDetailsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, pkgerrors.NewValidationError("", "malformed request body"))
		return
	}
	if err := h.service.SetEdgeDetails(r.Context(), id, edgeID, patch); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Render handles GET /api/flows/{flowId}/render
func (h *FlowHandler) Render(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	tree, err := h.service.Render(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tree)
}
