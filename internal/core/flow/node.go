package flow

// NodeType represents the kind of step a node performs.
type NodeType string

const (
	// Control flow
	NodeStart     NodeType = "start"
	NodeCondition NodeType = "condition"
	NodeForEach   NodeType = "for_each"
	NodeWhile     NodeType = "while"
	NodeDelay     NodeType = "delay"
	NodeTryCatch  NodeType = "try_catch"

	// Variables and data
	NodeSetVariable NodeType = "set_variable"
	NodeGetVariable NodeType = "get_variable"
	NodeTransform   NodeType = "transform"

	// UI actions
	NodeNavigate    NodeType = "navigate"
	NodeAlert       NodeType = "alert"
	NodeOpenModal   NodeType = "open_modal"
	NodeCloseModal  NodeType = "close_modal"
	NodeToggleClass NodeType = "toggle_class"
	NodeSetProperty NodeType = "set_property"

	// API / HTTP
	NodeFetchAPI    NodeType = "fetch_api"
	NodeHTTPRequest NodeType = "http_request"

	// Database
	NodeDBCreate NodeType = "db_create"
	NodeDBRead   NodeType = "db_read"
	NodeDBUpdate NodeType = "db_update"
	NodeDBDelete NodeType = "db_delete"

	// Response / terminal
	NodeReturn     NodeType = "return"
	NodeThrowError NodeType = "throw_error"

	// Integration
	NodeSendEmail  NodeType = "send_email"
	NodeCustomCode NodeType = "custom_code"
)

// NodeGroup classifies node types for documentation and reporting.
type NodeGroup string

const (
	GroupControl     NodeGroup = "control"
	GroupData        NodeGroup = "data"
	GroupUI          NodeGroup = "ui"
	GroupHTTP        NodeGroup = "http"
	GroupDatabase    NodeGroup = "database"
	GroupResponse    NodeGroup = "response"
	GroupIntegration NodeGroup = "integration"
	GroupUnknown     NodeGroup = "unknown"
)

var nodeGroups = map[NodeType]NodeGroup{
	NodeStart:       GroupControl,
	NodeCondition:   GroupControl,
	NodeForEach:     GroupControl,
	NodeWhile:       GroupControl,
	NodeDelay:       GroupControl,
	NodeTryCatch:    GroupControl,
	NodeSetVariable: GroupData,
	NodeGetVariable: GroupData,
	NodeTransform:   GroupData,
	NodeNavigate:    GroupUI,
	NodeAlert:       GroupUI,
	NodeOpenModal:   GroupUI,
	NodeCloseModal:  GroupUI,
	NodeToggleClass: GroupUI,
	NodeSetProperty: GroupUI,
	NodeFetchAPI:    GroupHTTP,
	NodeHTTPRequest: GroupHTTP,
	NodeDBCreate:    GroupDatabase,
	NodeDBRead:      GroupDatabase,
	NodeDBUpdate:    GroupDatabase,
	NodeDBDelete:    GroupDatabase,
	NodeReturn:      GroupResponse,
	NodeThrowError:  GroupResponse,
	NodeSendEmail:   GroupIntegration,
	NodeCustomCode:  GroupIntegration,
}

// Group returns the group the node type belongs to.
func (t NodeType) Group() NodeGroup {
	if g, ok := nodeGroups[t]; ok {
		return g
	}
	return GroupUnknown
}

// Known reports whether t is part of the closed node type set.
func (t NodeType) Known() bool {
	_, ok := nodeGroups[t]
	return ok
}

// NodeTypes returns every known node type.
func NodeTypes() []NodeType {
	out := make([]NodeType, 0, len(nodeGroups))
	for t := range nodeGroups {
		out = append(out, t)
	}
	return out
}

// Node is one step in a flow graph. Edges are id references so the graph is
// a flat arena without pointer cycles.
type Node struct {
	ID        string         `json:"id" yaml:"id" msgpack:"id" validate:"required"`
	Type      NodeType       `json:"node_type" yaml:"node_type" msgpack:"node_type" validate:"required,node_type"`
	Data      map[string]any `json:"data,omitempty" yaml:"data,omitempty" msgpack:"data,omitempty"`
	Label     string         `json:"label,omitempty" yaml:"label,omitempty" msgpack:"label,omitempty"`
	NextNodes []string       `json:"next_nodes,omitempty" yaml:"next_nodes,omitempty" msgpack:"next_nodes,omitempty"`
	ElseNodes []string       `json:"else_nodes,omitempty" yaml:"else_nodes,omitempty" msgpack:"else_nodes,omitempty"`
}

// Validate ensures node integrity.
func (n *Node) Validate() error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if n.Type == "" {
		return ErrInvalidNodeType
	}
	return nil
}

// Successors returns both edge lists, normal successors first.
func (n *Node) Successors() []string {
	out := make([]string, 0, len(n.NextNodes)+len(n.ElseNodes))
	out = append(out, n.NextNodes...)
	return append(out, n.ElseNodes...)
}
