package models

// Group operators for condition trees. Leaf nodes carry comparison operators
// (==, !=, >, <, >=, <=, contains, in) in the same Operator field.
const (
	GroupOperatorAnd = "AND"
	GroupOperatorOr  = "OR"
)

// ConditionNode is one node of a workflow's condition tree. A node is either a
// leaf comparison {Field, Operator, Value} or a group {Operator AND|OR,
// Conditions}. Value types only, embedded in a Workflow.
type ConditionNode struct {
	Field    string `json:"field,omitempty"`
	Operator string `json:"operator"`
	Value    any    `json:"value,omitempty"`

	Conditions []ConditionNode `json:"conditions,omitempty"`
}

// IsGroup reports whether the node is an AND/OR group rather than a leaf.
func (n *ConditionNode) IsGroup() bool {
	return n.Operator == GroupOperatorAnd || n.Operator == GroupOperatorOr
}
