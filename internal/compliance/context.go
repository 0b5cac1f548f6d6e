package compliance

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
)

// Scenarios describing why an operation runs.
const (
	ScenarioSingleDocument     = "single_document"
	ScenarioProductionDocument = "production_document"
	ScenarioDebugging          = "debugging"
	ScenarioFinalIteration     = "final_iteration"
	ScenarioMultiStage         = "multi_stage"
)

// Flags set on a Context by callers and operations.
const (
	FlagHardcodedContent          = "hardcoded_content"
	FlagSkipValidation            = "skip_validation"
	FlagDeferValidation           = "defer_validation"
	FlagVisualValidationPerformed = "visual_validation_performed"
	FlagTemplateVerified          = "template_verified"
	FlagStandardValidationPassed  = "standard_validation_passed"
)

var immediateScenarios = []string{
	ScenarioSingleDocument,
	ScenarioProductionDocument,
	ScenarioDebugging,
	ScenarioFinalIteration,
}

// Context describes one monitored operation. Operations may set flags on the
// context they receive so post rules can observe what happened.
type Context struct {
	Operation  Operation         `json:"operation" yaml:"operation"`
	DocumentID string            `json:"document_id,omitempty" yaml:"document_id"`
	TemplateID string            `json:"template_id,omitempty" yaml:"template_id"`
	Scenario   string            `json:"scenario,omitempty" yaml:"scenario"`
	Flags      map[string]bool   `json:"flags,omitempty" yaml:"flags"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes"`
	Override   bool              `json:"override,omitempty" yaml:"override"`
	Err        error             `json:"-" yaml:"-"`
}

// Flag reports whether name is set.
func (c *Context) Flag(name string) bool {
	return c.Flags[name]
}

// SetFlag sets name to v.
func (c *Context) SetFlag(name string, v bool) {
	if c.Flags == nil {
		c.Flags = make(map[string]bool)
	}
	c.Flags[name] = v
}

// snapshot flattens the context for violation records.
func (c *Context) snapshot() map[string]string {
	out := make(map[string]string, len(c.Flags)+len(c.Attributes)+3)
	maps.Copy(out, c.Attributes)
	for _, name := range slices.Sorted(maps.Keys(c.Flags)) {
		out["flag."+name] = strconv.FormatBool(c.Flags[name])
	}
	if c.Scenario != "" {
		out["scenario"] = c.Scenario
	}
	if c.Override {
		out["override"] = "true"
	}
	if c.Err != nil {
		out["error"] = c.Err.Error()
	}
	return out
}

// predicate reports whether the context satisfies a check, with a message
// describing the failure when it does not.
type predicate func(c *Context) (bool, string)

var predicates = map[string]predicate{
	"template_declared": func(c *Context) (bool, string) {
		return c.TemplateID != "", "operation does not name a template"
	},
	"no_hardcoded_content": func(c *Context) (bool, string) {
		return !c.Flag(FlagHardcodedContent), "document content is not derived from its template"
	},
	"validation_not_skipped": func(c *Context) (bool, string) {
		return !c.Flag(FlagSkipValidation), "validation was skipped"
	},
	"operation_succeeded": func(c *Context) (bool, string) {
		if c.Err == nil {
			return true, ""
		}
		return false, fmt.Sprintf("operation failed: %v", c.Err)
	},
	"visual_validation_performed": func(c *Context) (bool, string) {
		ok := c.Flag(FlagVisualValidationPerformed) || c.Scenario == ScenarioMultiStage
		return ok, "visual validation not performed"
	},
	"template_verified": func(c *Context) (bool, string) {
		return c.Flag(FlagTemplateVerified), "template usage not verified"
	},
	"standard_validation_passed": func(c *Context) (bool, string) {
		return c.Flag(FlagStandardValidationPassed), "standard validation has not passed"
	},
	"immediate_validation": func(c *Context) (bool, string) {
		scenario := c.Scenario
		if scenario == "" {
			scenario = ScenarioSingleDocument
		}
		if !slices.Contains(immediateScenarios, scenario) {
			return true, ""
		}
		deferred := c.Flag(FlagDeferValidation) || c.Flag(FlagSkipValidation)
		return !deferred, fmt.Sprintf("validation must be immediate for %s", scenario)
	},
}

// Checks returns the names of the available rule checks.
func Checks() []string {
	return slices.Sorted(maps.Keys(predicates))
}
