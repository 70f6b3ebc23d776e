// internal/appconfig/schema.go
package appconfig

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// configSchema enumerates the structural rules every resolved configuration
// must satisfy before a sweep is attempted.
var configSchema = map[string]any{
	"type":     "object",
	"required": []string{"endpoint", "concurrencyLevels", "repetitions"},
	"properties": map[string]any{
		"endpoint": map[string]any{
			"type":      "string",
			"minLength": 1,
		},
		"endpointType": map[string]any{
			"type": "string",
			"enum": []string{"", EndpointOpenAI, EndpointAzureML},
		},
		"authToken": map[string]any{"type": "string"},
		"model":     map[string]any{"type": "string"},
		"concurrencyLevels": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":    "integer",
				"minimum": 1,
			},
		},
		"requestsPerLevel":   map[string]any{"type": "integer", "minimum": 0},
		"repetitions":        map[string]any{"type": "integer", "minimum": 1},
		"warmupRequests":     map[string]any{"type": "integer", "minimum": 0},
		"maxTokens":          map[string]any{"type": "integer", "minimum": 1},
		"temperature":        map[string]any{"type": "number", "minimum": 0},
		"timeoutSeconds":     map[string]any{"type": "integer", "minimum": 0},
		"runDeadlineSeconds": map[string]any{"type": "integer", "minimum": 0},
		"breakSeconds":       map[string]any{"type": "integer", "minimum": 0},
		"ratePerSecond":      map[string]any{"type": "number", "minimum": 0},
		"failedTokenPolicy": map[string]any{
			"type": "string",
			"enum": []string{TokenPolicyExclude, TokenPolicyZero},
		},
		"prompts": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"mode": map[string]any{
					"type": "string",
					"enum": []string{PromptModeGenerate, PromptModeFile},
				},
				"file":         map[string]any{"type": "string"},
				"targetTokens": map[string]any{"type": "integer", "minimum": 1},
				"cycle":        map[string]any{"type": "boolean"},
			},
		},
		"outputDir":  map[string]any{"type": "string"},
		"htmlReport": map[string]any{"type": "boolean"},
		"logFile":    map[string]any{"type": "string"},
		"debug":      map[string]any{"type": "boolean"},
	},
}

// validateSchema checks the resolved configuration against configSchema.
func validateSchema(c Config) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config for validation: %w", err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(configSchema), gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var details []string
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(details, "; "))
}
