package models

// ExecutionContext is the data an action sees at execution time: the trigger
// payload snapshot plus auxiliary evaluation data supplied by the caller.
type ExecutionContext struct {
	WorkflowID  string         `json:"workflow_id"`
	ExecutionID string         `json:"execution_id"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
}

// Lookup resolves a field against the trigger data, falling back to the
// auxiliary context when the key is absent from the trigger payload.
func (ec *ExecutionContext) Lookup(field string) (any, bool) {
	if v, ok := ec.TriggerData[field]; ok {
		return v, true
	}

	v, ok := ec.Context[field]

	return v, ok
}
