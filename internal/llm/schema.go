package llm

import "google.golang.org/genai"

// schemaRequired extracts the "required" list from a JSON schema, tolerating
// both []string (hand-built schemas) and []interface{} (unmarshalled JSON).
func schemaRequired(schema map[string]interface{}) []string {
	if required, ok := schema["required"].([]string); ok {
		return required
	}
	if required, ok := schema["required"].([]interface{}); ok {
		result := make([]string, 0, len(required))
		for _, r := range required {
			if s, ok := r.(string); ok {
				result = append(result, s)
			}
		}
		return result
	}
	return nil
}

// geminiSchema converts a JSON schema to the genai typed form. Keywords the
// Gemini API rejects (format, const, numeric bounds and friends) are dropped
// by construction since only known fields are mapped. Gemini also wants every
// declared property marked required.
func geminiSchema(schema map[string]interface{}) *genai.Schema {
	if schema == nil {
		return &genai.Schema{Type: genai.TypeString}
	}

	out := &genai.Schema{
		Type:        geminiSchemaType(schema),
		Description: schemaString(schema, "description"),
	}

	if props, ok := schema["properties"].(map[string]interface{}); ok && len(props) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(props))
		out.Required = make([]string, 0, len(props))
		for name, prop := range props {
			if propMap, ok := prop.(map[string]interface{}); ok {
				out.Properties[name] = geminiSchema(propMap)
			}
			out.Required = append(out.Required, name)
		}
	}

	if items, ok := schema["items"].(map[string]interface{}); ok {
		out.Items = geminiSchema(items)
	}

	if enum, ok := schema["enum"].([]interface{}); ok {
		for _, v := range enum {
			if s, ok := v.(string); ok {
				out.Enum = append(out.Enum, s)
			}
		}
	}

	return out
}

func geminiSchemaType(schema map[string]interface{}) genai.Type {
	t, _ := schema["type"].(string)
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	}
	return genai.TypeString
}

func schemaString(schema map[string]interface{}, key string) string {
	if v, ok := schema[key].(string); ok {
		return v
	}
	return ""
}
