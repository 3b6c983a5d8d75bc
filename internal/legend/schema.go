package legend

// SchemaName identifies the structured-output schema to the endpoint.
const SchemaName = "circuit_legend_extraction"

// ResponseSchema is the JSON schema for batch extraction output.
// Strict structured-output endpoints require a plain object at the
// schema root (no root-level oneOf), so both variants share one shape:
// response_type discriminates, and the fields the other variant does
// not use are null. Decode enforces the variant/field pairing the
// schema cannot express.
var ResponseSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"response_type": map[string]any{
			"type":        "string",
			"enum":        []string{TypeLegendUpdate, TypeHaltSignal},
			"description": "legend_update for a processed batch, halt_signal when the pages cannot be processed",
		},
		"batch_summary": map[string]any{
			"type":        []string{"string", "null"},
			"description": "Several sentences summarizing the content of the current pages; null for halt_signal",
		},
		"legend": map[string]any{
			"type":        []string{"object", "null"},
			"description": "Legend updated with content from the current pages; null for halt_signal",
			"properties": map[string]any{
				"issuing_company": map[string]any{
					"type":        "string",
					"description": "Installer/planner/utility company",
				},
				"project_site": map[string]any{
					"type":        "string",
					"description": "Project/site: building name and full address",
				},
				"distribution_board": map[string]any{
					"type":        "string",
					"description": "Board/panel designation and location",
				},
				"circuits": map[string]any{
					"type":        "array",
					"description": "Ordered list of schedule lines",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"tag": map[string]any{
								"type":        "string",
								"description": "Identifier as printed (e.g., '10Q1', '20F5.1')",
							},
							"rating": map[string]any{
								"type":        "string",
								"description": "Rating as printed (e.g., '4x10A/30mA')",
							},
							"description": map[string]any{
								"type":        "string",
								"description": "Functional name of the circuit/equipment",
							},
						},
						"required":             []string{"tag", "rating", "description"},
						"additionalProperties": false,
					},
				},
			},
			"required": []string{
				"issuing_company",
				"project_site",
				"distribution_board",
				"circuits",
			},
			"additionalProperties": false,
		},
		"error_message": map[string]any{
			"type":        []string{"string", "null"},
			"description": "Detailed explanation of why the fallback was called; null for legend_update",
		},
	},
	"required":             []string{"response_type", "batch_summary", "legend", "error_message"},
	"additionalProperties": false,
}
