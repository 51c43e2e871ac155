package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type decisionPayload struct {
	Action     string   `json:"action" description:"What to do next" enum:"buy,sell,hold,close"`
	Confidence float64  `json:"confidence" description:"Certainty between 0 and 1"`
	Reasoning  string   `json:"reasoning"`
	Tags       []string `json:"tags,omitempty"`
}

func TestGenerateSchemaBasicShape(t *testing.T) {
	schema, err := GenerateSchema(&decisionPayload{})
	require.NoError(t, err, "struct schema should generate")

	assert.Equal(t, "object", schema["type"], "top level should be an object")

	props, ok := schema["properties"].(map[string]interface{})
	require.True(t, ok, "properties should be a map")
	assert.Contains(t, props, "action", "tagged field should appear")
	assert.Contains(t, props, "confidence", "tagged field should appear")

	action, ok := props["action"].(map[string]interface{})
	require.True(t, ok, "action property should be a map")
	assert.Equal(t, "string", action["type"], "action should be a string")
	assert.Equal(t, "What to do next", action["description"], "description tag should carry over")
	assert.ElementsMatch(t, []interface{}{"buy", "sell", "hold", "close"}, action["enum"], "enum tag should carry over")

	required, ok := schema["required"].([]string)
	require.True(t, ok, "required list should exist")
	assert.Contains(t, required, "action", "non omitempty fields are required")
	assert.NotContains(t, required, "tags", "omitempty fields are optional")
}

func TestGenerateSchemaNestedTypes(t *testing.T) {
	type inner struct {
		Price float64 `json:"price"`
	}
	type outer struct {
		Items  []inner            `json:"items"`
		Counts map[string]int     `json:"counts"`
		Flags  map[string]bool    `json:"flags,omitempty"`
		Nested inner              `json:"nested"`
		Ignore string             `json:"-"`
		Ptr    *float64           `json:"ptr,omitempty"`
		Lookup map[string]float64 `json:"lookup,omitempty"`
	}

	schema, err := GenerateSchema(outer{})
	require.NoError(t, err, "nested schema should generate")

	props := schema["properties"].(map[string]interface{})
	assert.NotContains(t, props, "-", "dash tagged fields should be skipped")
	assert.NotContains(t, props, "Ignore", "dash tagged fields should be skipped")

	items := props["items"].(map[string]interface{})
	assert.Equal(t, "array", items["type"], "slices map to arrays")

	counts := props["counts"].(map[string]interface{})
	assert.Equal(t, "object", counts["type"], "maps become objects")

	nested := props["nested"].(map[string]interface{})
	nestedProps := nested["properties"].(map[string]interface{})
	assert.Contains(t, nestedProps, "price", "nested struct fields should expand")
}

func TestGenerateSchemaRejectsNonStruct(t *testing.T) {
	_, err := GenerateSchema(nil)
	assert.Error(t, err, "nil schema value should fail")

	_, err = GenerateSchema(42)
	assert.Error(t, err, "non struct schema value should fail")
}

func TestParseStructured(t *testing.T) {
	var decision decisionPayload
	err := ParseStructured(`{"action":"buy","confidence":0.8,"reasoning":"momentum"}`, &decision)
	require.NoError(t, err, "valid json should decode")
	assert.Equal(t, "buy", decision.Action, "action should decode")
	assert.InDelta(t, 0.8, decision.Confidence, 1e-9, "confidence should decode")

	err = ParseStructured(`not json`, &decision)
	assert.Error(t, err, "malformed json should fail")

	err = ParseStructured(`{}`, nil)
	assert.Error(t, err, "nil target should fail")

	err = ParseStructured(`{}`, decision)
	assert.Error(t, err, "non pointer target should fail")
}
