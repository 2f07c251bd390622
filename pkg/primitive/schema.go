package primitive

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// schemaFor reflects a Go argument struct into the JSON Schema map handed
// to an LLM as a tool definition's parameters, instead of hand-written map
// literals, so the schema a primitive advertises always matches the struct
// its Execute method actually reads.
func schemaFor(args any) map[string]any {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}

	schema := reflector.Reflect(args)

	data, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object"}
	}
	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return map[string]any{"type": "object"}
	}
	delete(result, "$schema")
	delete(result, "$id")
	return result
}
