// Package catalog defines the closed set of node kinds a flow may contain.
// The catalog is configuration data: a compiled-in default covers every node
// kind the studio ships with, and deployments may override it from a YAML
// file (see loader.go).
package catalog

// TriggerType is the distinguished entry-point node kind. Exactly one node
// of this type must exist for a flow to render.
const TriggerType = "Trigger"

// Node type categories
const (
	CategoryFlowControl    = "Flow Control"
	CategoryConversation   = "Conversation Management"
	CategoryDataManagement = "Data Management"
)

// NodeType describes one node kind: its behavior limit (MaxOutputs) plus
// presentation metadata consumed by the studio frontend.
type NodeType struct {
	Type        string `yaml:"type" json:"type"`
	DisplayName string `yaml:"displayName" json:"displayName"`
	Category    string `yaml:"category" json:"category"`
	Icon        string `yaml:"icon" json:"icon"`
	Color       string `yaml:"color" json:"color"`
	MaxOutputs  int    `yaml:"maxOutputs" json:"maxOutputs"`
}

// Catalog is an ordered collection of node type descriptors
type Catalog struct {
	types []NodeType
	index map[string]NodeType
}

// New builds a catalog from a descriptor list. Later duplicates win, which
// lets an override file replace individual entries of the default set.
func New(types []NodeType) *Catalog {
	c := &Catalog{
		types: make([]NodeType, 0, len(types)),
		index: make(map[string]NodeType, len(types)),
	}
	for _, t := range types {
		if _, exists := c.index[t.Type]; !exists {
			c.types = append(c.types, t)
		} else {
			for i := range c.types {
				if c.types[i].Type == t.Type {
					c.types[i] = t
					break
				}
			}
		}
		c.index[t.Type] = t
	}
	return c
}

// Lookup returns the descriptor for a node type
func (c *Catalog) Lookup(nodeType string) (NodeType, bool) {
	t, ok := c.index[nodeType]
	return t, ok
}

// MaxOutputs returns the declared output-port bound for a node type. Types
// missing from the catalog and types declared with no bound get the
// fallback; a declared zero means unbounded, not zero ports.
func (c *Catalog) MaxOutputs(nodeType string, fallback int) int {
	if t, ok := c.index[nodeType]; ok && t.MaxOutputs > 0 {
		return t.MaxOutputs
	}
	return fallback
}

// Types returns the descriptors in declaration order
func (c *Catalog) Types() []NodeType {
	out := make([]NodeType, len(c.types))
	copy(out, c.types)
	return out
}

// Default returns the catalog of node kinds the studio ships with
func Default() *Catalog {
	return New([]NodeType{
		{Type: TriggerType, DisplayName: "Trigger", Category: CategoryFlowControl, Icon: "iconoir-flash", Color: "var(--bs-dark)", MaxOutputs: 0},
		{Type: "TimeDelay", DisplayName: "Time delay", Category: CategoryFlowControl, Icon: "iconoir-timer", Color: "var(--bs-dark)", MaxOutputs: 1},
		{Type: "IfCondition", DisplayName: "If condition", Category: CategoryFlowControl, Icon: "iconoir-axes", Color: "var(--bs-dark)", MaxOutputs: 2},
		{Type: "BranchByVariable", DisplayName: "Branch by variable", Category: CategoryFlowControl, Icon: "iconoir-network-reverse", Color: "var(--bs-dark)", MaxOutputs: 99},
		{Type: "KeywordSearch", DisplayName: "Keyword search", Category: CategoryFlowControl, Icon: "iconoir-text-magnifying-glass", Color: "var(--bs-dark)", MaxOutputs: 99},
		{Type: "GotoNode", DisplayName: "Goto node", Category: CategoryFlowControl, Icon: "iconoir-dot-arrow-right", Color: "var(--bs-dark)", MaxOutputs: 0},
		{Type: "GotoAnotherFlow", DisplayName: "Goto another flow", Category: CategoryFlowControl, Icon: "iconoir-long-arrow-up-left", Color: "var(--bs-dark)", MaxOutputs: 0},
		{Type: "CloseConversation", DisplayName: "Close conversation", Category: CategoryFlowControl, Icon: "iconoir-chat-bubble-check", Color: "var(--bs-dark)", MaxOutputs: 0},
		{Type: "HandoverToHuman", DisplayName: "Handover to human", Category: CategoryFlowControl, Icon: "iconoir-user-badge-check", Color: "var(--bs-dark)", MaxOutputs: 0},

		{Type: "SendWhatsAppMessage", DisplayName: "Send WhatsApp message", Category: CategoryConversation, Icon: "iconoir-chat-bubble", Color: "var(--bs-teal)", MaxOutputs: 1},
		{Type: "SendWhatsAppMessageWithButtons", DisplayName: "Send WhatsApp Message with Buttons", Category: CategoryConversation, Icon: "iconoir-view-structure-up", Color: "var(--bs-teal)", MaxOutputs: 3},
		{Type: "SendWhatsAppMessageWithList", DisplayName: "Send WhatsApp Message with List", Category: CategoryConversation, Icon: "iconoir-list", Color: "var(--bs-teal)", MaxOutputs: 10},
		{Type: "SendWhatsAppMessageWithDynamicList", DisplayName: "Send WhatsApp Message with Dynamic List", Category: CategoryConversation, Icon: "iconoir-playlist-plus", Color: "var(--bs-teal)", MaxOutputs: 99},
		{Type: "SendTemplateMessage", DisplayName: "Send Template Message", Category: CategoryConversation, Icon: "iconoir-quote-message", Color: "var(--bs-teal)", MaxOutputs: 3},
		{Type: "AskForTextInput", DisplayName: "Ask User for Text Input", Category: CategoryConversation, Icon: "iconoir-input-field", Color: "var(--bs-teal)", MaxOutputs: 1},
		{Type: "AskForLocation", DisplayName: "Ask User for Location", Category: CategoryConversation, Icon: "iconoir-map-pin", Color: "var(--bs-teal)", MaxOutputs: 1},
		{Type: "AskForFile", DisplayName: "Ask User for File", Category: CategoryConversation, Icon: "iconoir-attachment", Color: "var(--bs-teal)", MaxOutputs: 1},
		{Type: "AskForPhoto", DisplayName: "Ask User for Photo", Category: CategoryConversation, Icon: "iconoir-media-image-plus", Color: "var(--bs-teal)", MaxOutputs: 1},

		{Type: "SetVariable", DisplayName: "Set variable", Category: CategoryDataManagement, Icon: "iconoir-code-brackets", Color: "var(--bs-primary)", MaxOutputs: 1},
		{Type: "DeleteVariable", DisplayName: "Delete variable", Category: CategoryDataManagement, Icon: "iconoir-code-brackets", Color: "var(--bs-primary)", MaxOutputs: 1},
		{Type: "SetContactAttribute", DisplayName: "Set contact attribute", Category: CategoryDataManagement, Icon: "iconoir-user-plus", Color: "var(--bs-primary)", MaxOutputs: 1},
		{Type: "DeleteContactAttribute", DisplayName: "Delete contact attribute", Category: CategoryDataManagement, Icon: "iconoir-user-xmark", Color: "var(--bs-primary)", MaxOutputs: 1},
		{Type: "AddTag", DisplayName: "Add tag", Category: CategoryDataManagement, Icon: "iconoir-label", Color: "var(--bs-primary)", MaxOutputs: 1},
		{Type: "RemoveTag", DisplayName: "Remove tag", Category: CategoryDataManagement, Icon: "iconoir-label", Color: "var(--bs-primary)", MaxOutputs: 1},
		{Type: "SendRating", DisplayName: "Send rating", Category: CategoryDataManagement, Icon: "iconoir-star", Color: "var(--bs-primary)", MaxOutputs: 1},
		{Type: "CallAPI", DisplayName: "Call API", Category: CategoryDataManagement, Icon: "iconoir-code", Color: "var(--bs-primary)", MaxOutputs: 2},
	})
}
