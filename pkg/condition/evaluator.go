// Package condition evaluates boolean condition trees against trigger data.
package condition

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/mbarbosa/flowgate/pkg/models"
)

// Leaf comparison operators.
const (
	OperatorEqual          = "=="
	OperatorNotEqual       = "!="
	OperatorGreater        = ">"
	OperatorLess           = "<"
	OperatorGreaterOrEqual = ">="
	OperatorLessOrEqual    = "<="
	OperatorContains       = "contains"
	OperatorIn             = "in"
)

// Evaluator evaluates a workflow's condition tree. It is stateless and pure:
// the same (tree, triggerData, context) triple always yields the same result.
type Evaluator struct{}

// NewEvaluator creates a condition evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate walks the condition tree. A nil tree means no constraint and
// evaluates to true. Field values are resolved from triggerData first, falling
// back to context; a field absent from both makes the leaf false.
func (e *Evaluator) Evaluate(node *models.ConditionNode, triggerData, context map[string]any) (bool, error) {
	if node == nil {
		return true, nil
	}

	if node.IsGroup() {
		return e.evaluateGroup(node, triggerData, context)
	}

	return e.evaluateLeaf(node, triggerData, context)
}

func (e *Evaluator) evaluateGroup(node *models.ConditionNode, triggerData, context map[string]any) (bool, error) {
	// An empty group imposes no constraint.
	if len(node.Conditions) == 0 {
		return true, nil
	}

	for i := range node.Conditions {
		result, err := e.Evaluate(&node.Conditions[i], triggerData, context)
		if err != nil {
			return false, err
		}

		if node.Operator == models.GroupOperatorAnd && !result {
			return false, nil
		}

		if node.Operator == models.GroupOperatorOr && result {
			return true, nil
		}
	}

	return node.Operator == models.GroupOperatorAnd, nil
}

func (e *Evaluator) evaluateLeaf(node *models.ConditionNode, triggerData, context map[string]any) (bool, error) {
	left, found := triggerData[node.Field]
	if !found {
		left, found = context[node.Field]
	}

	switch node.Operator {
	case OperatorEqual:
		return found && looseEqual(left, node.Value), nil
	case OperatorNotEqual:
		return found && !looseEqual(left, node.Value), nil
	case OperatorGreater, OperatorLess, OperatorGreaterOrEqual, OperatorLessOrEqual:
		if !found {
			return false, nil
		}

		return e.compareNumeric(node, left)
	case OperatorContains:
		if !found {
			return false, nil
		}

		return e.evaluateContains(node, left)
	case OperatorIn:
		if !found {
			return false, nil
		}

		return e.evaluateIn(node, left)
	case "":
		return false, newError(node.Field, node.Operator, fmt.Errorf("missing operator: %w", ErrMalformedCondition))
	default:
		return false, newError(node.Field, node.Operator, fmt.Errorf("operator %q: %w", node.Operator, ErrUnknownOperator))
	}
}

func (e *Evaluator) compareNumeric(node *models.ConditionNode, left any) (bool, error) {
	leftNum, ok := toFloat(left)
	if !ok {
		return false, newError(node.Field, node.Operator,
			fmt.Errorf("field value %v (%T) is not numeric: %w", left, left, ErrMalformedCondition))
	}

	rightNum, ok := toFloat(node.Value)
	if !ok {
		return false, newError(node.Field, node.Operator,
			fmt.Errorf("comparison value %v (%T) is not numeric: %w", node.Value, node.Value, ErrMalformedCondition))
	}

	switch node.Operator {
	case OperatorGreater:
		return leftNum > rightNum, nil
	case OperatorLess:
		return leftNum < rightNum, nil
	case OperatorGreaterOrEqual:
		return leftNum >= rightNum, nil
	default:
		return leftNum <= rightNum, nil
	}
}

func (e *Evaluator) evaluateContains(node *models.ConditionNode, left any) (bool, error) {
	if s, ok := left.(string); ok {
		return strings.Contains(s, stringify(node.Value)), nil
	}

	seq, ok := toSlice(left)
	if !ok {
		return false, newError(node.Field, node.Operator,
			fmt.Errorf("field value %v (%T) is not a string or sequence: %w", left, left, ErrMalformedCondition))
	}

	for _, item := range seq {
		if looseEqual(item, node.Value) {
			return true, nil
		}
	}

	return false, nil
}

func (e *Evaluator) evaluateIn(node *models.ConditionNode, left any) (bool, error) {
	seq, ok := toSlice(node.Value)
	if !ok {
		return false, newError(node.Field, node.Operator,
			fmt.Errorf("comparison value %v (%T) is not a sequence: %w", node.Value, node.Value, ErrMalformedCondition))
	}

	for _, item := range seq {
		if looseEqual(left, item) {
			return true, nil
		}
	}

	return false, nil
}

// looseEqual compares two values, treating numerically equal operands of
// different widths (int 5 vs float64 5 from JSON decoding) as equal.
func looseEqual(left, right any) bool {
	leftNum, leftOk := toFloat(left)
	rightNum, rightOk := toFloat(right)

	if leftOk && rightOk {
		return leftNum == rightNum
	}

	if leftOk != rightOk {
		return false
	}

	return reflect.DeepEqual(left, right)
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}

		return parsed, true
	default:
		return 0, false
	}
}

func toSlice(value any) ([]any, bool) {
	if v, ok := value.([]any); ok {
		return v, true
	}

	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}

	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}

	return out, true
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", value)
}
