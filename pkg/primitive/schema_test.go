package primitive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaFor_ReflectsRequiredFields(t *testing.T) {
	schema := schemaFor(readFileArgs{})
	assert.Equal(t, "object", schema["type"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "path")
	assert.Contains(t, props, "offset")

	_, hasSchemaKey := schema["$schema"]
	assert.False(t, hasSchemaKey)
}

func TestSchemaFor_MarksRequired(t *testing.T) {
	schema := schemaFor(writeFileArgs{})
	required, ok := schema["required"].([]any)
	require.True(t, ok)

	names := make([]string, 0, len(required))
	for _, r := range required {
		names = append(names, r.(string))
	}
	assert.Contains(t, names, "path")
	assert.Contains(t, names, "content")
}
