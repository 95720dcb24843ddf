package aggregates

// DefinedVariable is a value a node captures for downstream steps. Disabled
// entries stay in the details store but are hidden from variable pickers.
type DefinedVariable struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// NodeDetails is the renderer and form metadata kept per node, independent
// of graph topology. Config is the node type's free-form configuration blob.
type NodeDetails struct {
	Collapsed       bool             `json:"collapsed"`
	Snippet         string           `json:"snippet,omitempty"`
	Config          map[string]any   `json:"config,omitempty"`
	DefinedVariable *DefinedVariable `json:"definedVariable,omitempty"`
}

// PortDetails is the metadata kept per output port
type PortDetails struct {
	Label string `json:"label,omitempty"`
}

// EdgeDetails is the metadata kept per edge. Shortcut marks a non-primary
// incoming edge; the renderer draws it as a reference instead of a subtree.
type EdgeDetails struct {
	Shortcut           bool   `json:"shortcut"`
	ShortcutFromPortID string `json:"shortcutFromPortId,omitempty"`
	ShortcutToNodeID   string `json:"shortcutToNodeId,omitempty"`
}

// Details is the flow's side-table of element metadata, keyed by element id.
// Entries are removed by event listeners when their element is deleted.
type Details struct {
	Nodes            map[string]*NodeDetails `json:"nodes"`
	Ports            map[string]*PortDetails `json:"ports"`
	Edges            map[string]*EdgeDetails `json:"edges"`
	DefinedVariables map[string]string       `json:"definedVariables"`
}

func newDetails() Details {
	return Details{
		Nodes:            make(map[string]*NodeDetails),
		Ports:            make(map[string]*PortDetails),
		Edges:            make(map[string]*EdgeDetails),
		DefinedVariables: make(map[string]string),
	}
}

// NodeDetailsPatch is a partial update for a node's details entry. Nil
// fields are left untouched; Config keys are merged one level deep.
type NodeDetailsPatch struct {
	Collapsed       *bool            `json:"collapsed,omitempty"`
	Snippet         *string          `json:"snippet,omitempty"`
	Config          map[string]any   `json:"config,omitempty"`
	DefinedVariable *DefinedVariable `json:"definedVariable,omitempty"`
}

func (d *NodeDetails) apply(patch NodeDetailsPatch) {
	if patch.Collapsed != nil {
		d.Collapsed = *patch.Collapsed
	}
	if patch.Snippet != nil {
		d.Snippet = *patch.Snippet
	}
	if patch.Config != nil {
		if d.Config == nil {
			d.Config = make(map[string]any)
		}
		for k, v := range patch.Config {
			d.Config[k] = v
		}
	}
	if patch.DefinedVariable != nil {
		v := *patch.DefinedVariable
		d.DefinedVariable = &v
	}
}

// EdgeDetailsPatch is a partial update for an edge's details entry
type EdgeDetailsPatch struct {
	Shortcut           *bool   `json:"shortcut,omitempty"`
	ShortcutFromPortID *string `json:"shortcutFromPortId,omitempty"`
	ShortcutToNodeID   *string `json:"shortcutToNodeId,omitempty"`
}

func (d *EdgeDetails) apply(patch EdgeDetailsPatch) {
	if patch.Shortcut != nil {
		d.Shortcut = *patch.Shortcut
	}
	if patch.ShortcutFromPortID != nil {
		d.ShortcutFromPortID = *patch.ShortcutFromPortID
	}
	if patch.ShortcutToNodeID != nil {
		d.ShortcutToNodeID = *patch.ShortcutToNodeID
	}
}
