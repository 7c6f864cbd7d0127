package llm

// Schema names double as the json_schema "name" sent to the backend.
const (
	ListingSchemaName    = "listing_suggestion"
	PartNumberSchemaName = "part_number_selection"
	VisionSchemaName     = "visible_text"
)

// Listing length and price bounds shared by the schema and the prompt.
const (
	TitleMinLen       = 10
	TitleMaxLen       = 110
	DescriptionMinLen = 50
	DescriptionMaxLen = 2000
	MaxPrices         = 3
)

// BuildListingJSONSchema returns the JSON-Schema for generated listing copy. We pass it to
// the backend as a structured output constraint and also validate responses against it locally.
func BuildListingJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"title", "description", "suggestedPrices"},
		"properties": map[string]any{
			"title":       map[string]any{"type": "string", "minLength": TitleMinLen, "maxLength": TitleMaxLen},
			"description": map[string]any{"type": "string", "minLength": DescriptionMinLen, "maxLength": DescriptionMaxLen},
			"suggestedPrices": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": MaxPrices,
				"items":    map[string]any{"type": "number"},
			},
		},
	}
}

// BuildPartNumberJSONSchema constrains the arbiter's answer; reasoning is optional.
func BuildPartNumberJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"partNumber", "confidence"},
		"properties": map[string]any{
			"partNumber": map[string]any{"type": "string"},
			"confidence": map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
			"reasoning":  map[string]any{"type": "string"},
		},
	}
}

// BuildVisionJSONSchema constrains a vision transcription.
func BuildVisionJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"text"},
		"properties": map[string]any{
			"text":       map[string]any{"type": "string"},
			"confidence": map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
		},
	}
}

// IsStrictSchema reports whether every declared property is required, which is what the
// backend's strict structured-output mode demands.
func IsStrictSchema(schema map[string]any) bool {
	props, _ := schema["properties"].(map[string]any)
	req, _ := schema["required"].([]string)
	if len(props) != len(req) {
		return false
	}
	for _, r := range req {
		if _, ok := props[r]; !ok {
			return false
		}
	}
	return true
}
