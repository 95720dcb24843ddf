package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studio-backend/application/details"
	"studio-backend/domain/catalog"
	"studio-backend/domain/config"
	domainservices "studio-backend/domain/services"
	"studio-backend/domain/valueobjects"
	"studio-backend/infrastructure/persistence/memory"
	pkgerrors "studio-backend/pkg/errors"
)

func newTestService(t *testing.T) (*FlowService, *memory.FlowRepository) {
	t.Helper()
	repo := memory.NewFlowRepository()
	cfg := config.DefaultDomainConfig()
	cfg.RenderThrottle = 0
	saver := NewDebouncer(repo, 10*time.Millisecond, nil, nil)
	svc := NewFlowService(
		repo,
		StaticCatalog{Catalog: catalog.Default()},
		details.DefaultRegistry(),
		domainservices.NewLayoutService(cfg, nil),
		saver,
		cfg,
		nil,
		nil,
	)
	t.Cleanup(svc.Shutdown)
	return svc, repo
}

func createFlow(t *testing.T, svc *FlowService) (valueobjects.FlowID, string, string) {
	t.Helper()
	snapshot, err := svc.CreateFlow(context.Background(), "welcome", "", "draft", "editing")
	require.NoError(t, err)
	flowID, err := valueobjects.ParseFlowID(snapshot.ID)
	require.NoError(t, err)
	require.Len(t, snapshot.Graph.Nodes, 1)
	trigger := snapshot.Graph.Nodes[0]
	require.Len(t, trigger.OutputPorts, 1)
	return flowID, trigger.ID, trigger.OutputPorts[0]
}

func TestFlowService_CreateFlow(t *testing.T) {
	svc, repo := newTestService(t)

	snapshot, err := svc.CreateFlow(context.Background(), "welcome", "greets contacts", "draft", "editing")
	require.NoError(t, err)

	require.Len(t, snapshot.Graph.Nodes, 1)
	trigger := snapshot.Graph.Nodes[0]
	assert.Equal(t, "Trigger", trigger.Type)
	assert.Empty(t, trigger.InputPort)
	assert.Len(t, trigger.OutputPorts, 1)

	// the flow is persisted before any autosave runs
	summaries, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "welcome", summaries[0].Name)
	assert.Equal(t, 1, summaries[0].NodeCount)
}

func TestFlowService_CreateNode(t *testing.T) {
	svc, _ := newTestService(t)
	flowID, triggerID, triggerPort := createFlow(t, svc)

	node, err := svc.CreateNode(context.Background(), flowID, CreateNodeRequest{
		FromNodeID:       triggerID,
		FromPortID:       triggerPort,
		Name:             "Ask",
		Type:             "SendWhatsAppMessageWithButtons",
		NumberOfChildren: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ask", node.Name)
	assert.NotEmpty(t, node.InputPort)
	assert.Len(t, node.OutputPorts, 2)

	snapshot, err := svc.GetFlow(context.Background(), flowID)
	require.NoError(t, err)
	assert.Len(t, snapshot.Graph.Nodes, 2)
	assert.Len(t, snapshot.Graph.Edges, 1)
}

func TestFlowService_ConfigureNode(t *testing.T) {
	svc, _ := newTestService(t)
	flowID, triggerID, triggerPort := createFlow(t, svc)

	node, err := svc.CreateNode(context.Background(), flowID, CreateNodeRequest{
		FromNodeID:       triggerID,
		FromPortID:       triggerPort,
		Name:             "Ask",
		Type:             "SendWhatsAppMessageWithButtons",
		NumberOfChildren: 1,
	})
	require.NoError(t, err)
	nodeID, err := valueobjects.ParseNodeID(node.ID)
	require.NoError(t, err)

	t.Run("validation failures come back as data", func(t *testing.T) {
		errs, err := svc.ConfigureNode(context.Background(), flowID, nodeID, map[string]any{
			"message": "",
		})
		require.NoError(t, err)
		require.NotEmpty(t, errs)
		assert.Equal(t, "message", errs[0].TargetField)
	})

	t.Run("a valid config stores details and backfills ports", func(t *testing.T) {
		errs, err := svc.ConfigureNode(context.Background(), flowID, nodeID, map[string]any{
			"message": "Pick one",
			"buttons": []any{"Red", "Blue", "Green"},
		})
		require.NoError(t, err)
		assert.Empty(t, errs)

		snapshot, err := svc.GetFlow(context.Background(), flowID)
		require.NoError(t, err)
		for _, ns := range snapshot.Graph.Nodes {
			if ns.ID == node.ID {
				assert.Len(t, ns.OutputPorts, 3, "one port per button")
			}
		}
		stored := snapshot.Details.Nodes[node.ID]
		require.NotNil(t, stored)
		assert.Equal(t, "Pick one", stored.Config["message"])
	})
}

func TestFlowService_ReopensFromStorage(t *testing.T) {
	svc, repo := newTestService(t)
	flowID, triggerID, triggerPort := createFlow(t, svc)

	_, err := svc.CreateNode(context.Background(), flowID, CreateNodeRequest{
		FromNodeID:       triggerID,
		FromPortID:       triggerPort,
		Name:             "step",
		Type:             "SendWhatsAppMessage",
		NumberOfChildren: 1,
	})
	require.NoError(t, err)
	svc.Shutdown()

	// a fresh service has nothing open and must load from the repository
	cfg := config.DefaultDomainConfig()
	fresh := NewFlowService(
		repo,
		StaticCatalog{Catalog: catalog.Default()},
		details.DefaultRegistry(),
		domainservices.NewLayoutService(cfg, nil),
		nil,
		cfg,
		nil,
		nil,
	)
	snapshot, err := fresh.GetFlow(context.Background(), flowID)
	require.NoError(t, err)
	assert.Len(t, snapshot.Graph.Nodes, 2)
	assert.Len(t, snapshot.Graph.Edges, 1)
}

func TestFlowService_DeleteFlow(t *testing.T) {
	svc, repo := newTestService(t)
	flowID, _, _ := createFlow(t, svc)

	require.NoError(t, svc.DeleteFlow(context.Background(), flowID))

	_, err := repo.Load(context.Background(), flowID)
	assert.True(t, pkgerrors.IsNotFound(err))
	_, err = svc.GetFlow(context.Background(), flowID)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestFlowService_Render(t *testing.T) {
	svc, _ := newTestService(t)
	flowID, triggerID, triggerPort := createFlow(t, svc)

	_, err := svc.CreateNode(context.Background(), flowID, CreateNodeRequest{
		FromNodeID:       triggerID,
		FromPortID:       triggerPort,
		Name:             "step",
		Type:             "SendWhatsAppMessage",
		NumberOfChildren: 1,
	})
	require.NoError(t, err)

	tree, err := svc.Render(context.Background(), flowID)
	require.NoError(t, err)
	require.NotNil(t, tree.Root)
	assert.Equal(t, triggerID, tree.Root.NodeID)
	require.Len(t, tree.Root.Outputs, 1)
	assert.Equal(t, "step", tree.Root.Outputs[0].Child.Name)
}

func TestFlowService_UnknownFlow(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetFlow(context.Background(), valueobjects.NewFlowID())
	assert.True(t, pkgerrors.IsNotFound(err))

	err = svc.RenameFlow(context.Background(), valueobjects.NewFlowID(), "x", "")
	assert.True(t, pkgerrors.IsNotFound(err))
}
