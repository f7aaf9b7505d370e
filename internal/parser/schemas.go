package parser

import "github.com/santhosh-tekuri/jsonschema/v5"

// Shapes the upstream payloads must have before they are decoded. Only the
// fields the service relies on are constrained; anything else passes through.

const listingsSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["id", "symbol", "name"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"symbol": {"type": "string"},
			"name": {"type": "string"},
			"image": {"type": ["string", "null"]},
			"current_price": {"type": ["number", "null"]},
			"market_cap": {"type": ["number", "null"]},
			"market_cap_rank": {"type": ["integer", "null"]},
			"total_volume": {"type": ["number", "null"]},
			"price_change_percentage_24h": {"type": ["number", "null"]},
			"sparkline_in_7d": {
				"type": ["object", "null"],
				"properties": {
					"price": {"type": "array", "items": {"type": ["number", "null"]}}
				}
			}
		}
	}
}`

const marketChartSchema = `{
	"type": "object",
	"required": ["prices"],
	"properties": {
		"prices": {
			"type": "array",
			"items": {
				"type": "array",
				"minItems": 2,
				"maxItems": 2,
				"items": {"type": ["number", "null"]}
			}
		}
	}
}`

const coinDetailSchema = `{
	"type": "object",
	"required": ["id", "symbol", "name"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"symbol": {"type": "string"},
		"name": {"type": "string"},
		"market_cap_rank": {"type": ["integer", "null"]},
		"image": {"type": ["object", "null"]},
		"market_data": {
			"type": ["object", "null"],
			"properties": {
				"current_price": {"type": ["object", "null"]},
				"price_change_percentage_24h": {"type": ["number", "null"]}
			}
		}
	}
}`

const searchSchema = `{
	"type": "object",
	"required": ["coins"],
	"properties": {
		"coins": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "name", "symbol"],
				"properties": {
					"id": {"type": "string"},
					"name": {"type": "string"},
					"symbol": {"type": "string"},
					"market_cap_rank": {"type": ["integer", "null"]},
					"thumb": {"type": ["string", "null"]}
				}
			}
		}
	}
}`

const recommendationsSchema = `{
	"type": "object",
	"required": ["recommendations"],
	"properties": {
		"profile": {"type": ["string", "null"]},
		"recommendations": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"symbol": {"type": ["string", "null"]},
					"network": {"type": ["string", "null"]},
					"Risk_Level": {"type": ["string", "null"]},
					"predicted_movement": {"type": ["integer", "null"]},
					"predicted_proba_up": {"type": ["number", "null"]},
					"eligible_for_profile": {"type": ["boolean", "null"]}
				}
			}
		}
	}
}`

// schemaSet holds the compiled schema of every payload shape
type schemaSet struct {
	listings        *jsonschema.Schema
	marketChart     *jsonschema.Schema
	coinDetail      *jsonschema.Schema
	search          *jsonschema.Schema
	recommendations *jsonschema.Schema
}

// compileSchemas compiles the embedded schema documents. They are constants,
// so a failure here is a programming error.
func compileSchemas() *schemaSet {
	return &schemaSet{
		listings:        jsonschema.MustCompileString("listings.json", listingsSchema),
		marketChart:     jsonschema.MustCompileString("market_chart.json", marketChartSchema),
		coinDetail:      jsonschema.MustCompileString("coin_detail.json", coinDetailSchema),
		search:          jsonschema.MustCompileString("search.json", searchSchema),
		recommendations: jsonschema.MustCompileString("recommendations.json", recommendationsSchema),
	}
}
