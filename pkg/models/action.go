package models

// Action types dispatched by the registry. The set is closed: anything else is
// rejected with registry.ErrUnsupportedAction at execution time.
const (
	ActionTypeSendEmail  = "send_email"
	ActionTypeCreateTask = "create_task"
	ActionTypeWebhook    = "webhook"
	ActionTypeUpdateData = "update_data"
)

// ActionItem is one entry of a workflow's ordered action list: a type plus the
// raw configuration the matching action factory parses into its typed config.
type ActionItem struct {
	Type   string         `json:"type"   validate:"required"`
	Config map[string]any `json:"config"`
}
