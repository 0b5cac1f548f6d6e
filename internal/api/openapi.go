package api

import (
	"github.com/JaimeStill/foreman/internal/config"
	"github.com/JaimeStill/foreman/internal/documents"
	"github.com/JaimeStill/foreman/pkg/openapi"
	"github.com/JaimeStill/foreman/pkg/routes"
)

var estimateSchemas = map[string]*openapi.Schema{
	"EstimateRequest": {
		Type:     "object",
		Required: []string{"template_id", "binding"},
		Properties: map[string]*openapi.Schema{
			"template_id":      {Type: "string", Example: "sprinkler_zone_turf"},
			"binding":          openapi.MapOf(&openapi.Schema{Description: "Parameter value"}),
			"kind":             {Type: "string", Enum: []any{"estimate", "invoice", "contract"}, Default: "estimate"},
			"jurisdiction":     {Type: "string", Example: "TX"},
			"header":           {Type: "object", Description: "Company, client, project, address and number"},
			"level":            {Type: "string", Enum: []any{"basic", "standard", "comprehensive", "production"}, Default: "standard"},
			"deliver":          {Type: "boolean"},
			"scenario":         {Type: "string"},
			"skip_validation":  {Type: "boolean"},
			"defer_validation": {Type: "boolean"},
			"override":         {Type: "boolean", Description: "Override enforced compliance rules"},
		},
	},
	"EstimateBatch": {
		Type:     "object",
		Required: []string{"requests"},
		Properties: map[string]*openapi.Schema{
			"requests": {Type: "array", Items: openapi.SchemaRef("EstimateRequest")},
		},
	},
	"EstimateResult": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"document":     {Type: "object", Description: "Stored document record"},
			"validation":   {Type: "object", Description: "Validation result"},
			"delivered":    {Type: "boolean"},
			"compliance":   openapi.ArrayOf(&openapi.Schema{Type: "object", Description: "Violation raised during the run"}),
			"error":        {Type: "string"},
			"completed_at": {Type: "string", Format: "date-time"},
		},
	},
}

// buildSpec describes the registered route groups relative to the API base path.
func buildSpec(cfg *config.Config, groups []routes.Group) ([]byte, error) {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)
	spec.Components.AddSchemas(estimateSchemas)
	spec.Components.AddSchemas(documents.Schemas)

	routes.Describe(spec, groups...)
	return openapi.MarshalJSON(spec)
}
