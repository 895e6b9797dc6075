package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTriggerData_JSONObject(t *testing.T) {
	triggerData := decodeTriggerData(`{"event":"contact.created","status":"new"}`)

	assert.Equal(t, "contact.created", triggerData["event"])
	assert.Equal(t, "new", triggerData["status"])
	assert.NotEmpty(t, triggerData["timestamp"])
}

func TestDecodeTriggerData_KeepsExistingTimestamp(t *testing.T) {
	triggerData := decodeTriggerData(`{"timestamp":"2026-01-02T03:04:05Z"}`)

	assert.Equal(t, "2026-01-02T03:04:05Z", triggerData["timestamp"])
}

func TestDecodeTriggerData_PlainText(t *testing.T) {
	triggerData := decodeTriggerData("not json at all")

	assert.Equal(t, "not json at all", triggerData["message"])
	assert.NotEmpty(t, triggerData["timestamp"])
}

func TestDecodeTriggerData_NullBody(t *testing.T) {
	// json.Unmarshal accepts the literal null and leaves the map nil; the
	// decoder must still hand back a writable map.
	var triggerData map[string]any

	require.NotPanics(t, func() {
		triggerData = decodeTriggerData("null")
	})

	assert.Equal(t, "null", triggerData["message"])
	assert.NotEmpty(t, triggerData["timestamp"])
}
