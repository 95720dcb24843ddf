package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "studio-backend/pkg/errors"
)

func TestNewNode(t *testing.T) {
	tests := []struct {
		name     string
		nodeName string
		nodeType string
		wantErr  bool
	}{
		{name: "valid node", nodeName: "Welcome", nodeType: "SendWhatsAppMessage"},
		{name: "empty name is allowed", nodeName: "", nodeType: "Trigger"},
		{name: "empty type fails", nodeName: "Welcome", nodeType: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := NewNode(tt.nodeName, tt.nodeType)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, node)
				return
			}
			require.NoError(t, err)
			assert.False(t, node.ID().IsEmpty())
			assert.Equal(t, tt.nodeName, node.Name())
			assert.Equal(t, tt.nodeType, node.Type())
			assert.False(t, node.HasPorts())
		})
	}
}

func TestNode_AttachInputPort(t *testing.T) {
	node, err := NewNode("a", "SendWhatsAppMessage")
	require.NoError(t, err)

	require.NoError(t, node.AttachInputPort(NewPort(RoleInput)))
	assert.NotNil(t, node.InputPort())

	t.Run("second input port is rejected", func(t *testing.T) {
		err := node.AttachInputPort(NewPort(RoleInput))
		assert.True(t, pkgerrors.IsConflict(err))
	})

	t.Run("output port is rejected", func(t *testing.T) {
		other, err := NewNode("b", "SendWhatsAppMessage")
		require.NoError(t, err)
		err = other.AttachInputPort(NewPort(RoleOutput))
		assert.Equal(t, pkgerrors.CodeInvalidPortRole, pkgerrors.CodeOf(err))
	})
}

func TestNode_AttachOutputPort(t *testing.T) {
	node, err := NewNode("a", "SendWhatsAppMessageWithButtons")
	require.NoError(t, err)

	require.NoError(t, node.AttachOutputPort(NewPort(RoleOutput), 2))
	require.NoError(t, node.AttachOutputPort(NewPort(RoleOutput), 2))
	assert.Equal(t, 2, node.OutputPortCount())

	t.Run("bound is enforced", func(t *testing.T) {
		err := node.AttachOutputPort(NewPort(RoleOutput), 2)
		assert.Equal(t, pkgerrors.CodeMaxOutputsReached, pkgerrors.CodeOf(err))
		assert.Equal(t, 2, node.OutputPortCount())
	})

	t.Run("input port is rejected", func(t *testing.T) {
		err := node.AttachOutputPort(NewPort(RoleInput), 99)
		assert.Equal(t, pkgerrors.CodeInvalidPortRole, pkgerrors.CodeOf(err))
	})

	t.Run("port cannot be attached twice", func(t *testing.T) {
		port := NewPort(RoleOutput)
		first, err := NewNode("b", "SendWhatsAppMessage")
		require.NoError(t, err)
		second, err := NewNode("c", "SendWhatsAppMessage")
		require.NoError(t, err)
		require.NoError(t, first.AttachOutputPort(port, 1))
		assert.Error(t, second.AttachOutputPort(port, 1))
	})
}

func TestNode_ReorderOutputPort(t *testing.T) {
	makeNode := func(t *testing.T) (*Node, []*Port) {
		node, err := NewNode("a", "SendWhatsAppMessageWithList")
		require.NoError(t, err)
		ports := make([]*Port, 3)
		for i := range ports {
			ports[i] = NewPort(RoleOutput)
			require.NoError(t, node.AttachOutputPort(ports[i], 10))
		}
		return node, ports
	}

	t.Run("moves the port and shifts the rest", func(t *testing.T) {
		node, ports := makeNode(t)
		require.NoError(t, node.ReorderOutputPort(0, 2))
		got := node.OutputPorts()
		assert.Equal(t, ports[1].ID(), got[0].ID())
		assert.Equal(t, ports[2].ID(), got[1].ID())
		assert.Equal(t, ports[0].ID(), got[2].ID())
	})

	t.Run("preserves the port multiset and connection state", func(t *testing.T) {
		node, ports := makeNode(t)
		ports[1].SetConnected(true)

		require.NoError(t, node.ReorderOutputPort(2, 0))

		ids := map[string]bool{}
		for _, port := range node.OutputPorts() {
			ids[port.ID().String()] = true
		}
		assert.Len(t, ids, 3)
		for _, port := range ports {
			assert.True(t, ids[port.ID().String()])
		}
		assert.True(t, ports[1].IsConnected())
	})

	t.Run("rejects out of range indexes", func(t *testing.T) {
		node, _ := makeNode(t)
		for _, indexes := range [][2]int{{-1, 0}, {0, -1}, {3, 0}, {0, 3}} {
			err := node.ReorderOutputPort(indexes[0], indexes[1])
			assert.Equal(t, pkgerrors.CodeIndexOutOfRange, pkgerrors.CodeOf(err))
		}
	})

	t.Run("same index is a noop", func(t *testing.T) {
		node, ports := makeNode(t)
		require.NoError(t, node.ReorderOutputPort(1, 1))
		assert.Equal(t, ports[1].ID(), node.OutputPorts()[1].ID())
	})
}

func TestNode_FindPort(t *testing.T) {
	node, err := NewNode("a", "IfCondition")
	require.NoError(t, err)
	input := NewPort(RoleInput)
	output := NewPort(RoleOutput)
	require.NoError(t, node.AttachInputPort(input))
	require.NoError(t, node.AttachOutputPort(output, 2))

	assert.Equal(t, input, node.FindPort(input.ID()))
	assert.Equal(t, output, node.FindPort(output.ID()))
	assert.Nil(t, node.FindPort(NewPort(RoleOutput).ID()))
	assert.Equal(t, 0, node.OutputPortIndex(output.ID()))
	assert.Equal(t, -1, node.OutputPortIndex(input.ID()))
}

func TestNode_RemoveOutputPort(t *testing.T) {
	node, err := NewNode("a", "SendWhatsAppMessageWithButtons")
	require.NoError(t, err)
	port := NewPort(RoleOutput)
	require.NoError(t, node.AttachOutputPort(port, 3))

	require.NoError(t, node.RemoveOutputPort(port.ID()))
	assert.Equal(t, 0, node.OutputPortCount())

	err = node.RemoveOutputPort(port.ID())
	assert.True(t, pkgerrors.IsNotFound(err))
}
