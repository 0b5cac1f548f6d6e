package compliance

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidProtocol wraps every protocol file parse or validation failure.
	ErrInvalidProtocol  = errors.New("invalid protocol")
	ErrUnknownOperation = errors.New("unknown operation")
)

// Registry is the immutable set of rules in force, loaded once at startup.
type Registry struct {
	rules []Rule
}

type protocolFile struct {
	Rules []Rule `yaml:"rules"`
}

// NewRegistry validates rules and returns a registry holding them in order.
func NewRegistry(rules []Rule) (*Registry, error) {
	seen := make(map[string]bool, len(rules))
	out := make([]Rule, 0, len(rules))

	for _, r := range rules {
		if err := r.normalize(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProtocol, err)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("%w: duplicate rule %s", ErrInvalidProtocol, r.ID)
		}
		seen[r.ID] = true
		out = append(out, r)
	}

	return &Registry{rules: out}, nil
}

// ParseRegistry decodes a YAML protocol document.
func ParseRegistry(data []byte) (*Registry, error) {
	var pf protocolFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProtocol, err)
	}
	if len(pf.Rules) == 0 {
		return nil, fmt.Errorf("%w: no rules", ErrInvalidProtocol)
	}
	return NewRegistry(pf.Rules)
}

// LoadRegistry reads a protocol file. An empty path yields the default registry.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return DefaultRegistry(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read protocol: %w", err)
	}
	reg, err := ParseRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// DefaultRegistry returns the built-in rule set.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(DefaultRules())
	if err != nil {
		panic(err)
	}
	return reg
}

// Rules returns a copy of all rules in declaration order.
func (r *Registry) Rules() []Rule {
	return slices.Clone(r.rules)
}

// For returns the rules bound to op at phase.
func (r *Registry) For(op Operation, phase Phase) []Rule {
	var out []Rule
	for _, rule := range r.rules {
		if rule.Operation == op && rule.Phase == phase {
			out = append(out, rule)
		}
	}
	return out
}

// Find returns the rule with the given id.
func (r *Registry) Find(id string) (Rule, bool) {
	for _, rule := range r.rules {
		if rule.ID == id {
			return rule, true
		}
	}
	return Rule{}, false
}

// DefaultRules is the built-in protocol.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "generation.template_declared",
			Operation:   OpDocumentGeneration,
			Phase:       PhasePre,
			Severity:    SeverityStrict,
			Check:       "template_declared",
			Description: "Documents are generated from a declared template.",
		},
		{
			ID:          "generation.no_hardcoded_content",
			Operation:   OpDocumentGeneration,
			Phase:       PhasePost,
			Severity:    SeverityStrict,
			Check:       "no_hardcoded_content",
			Description: "Line items must differ from documents generated by other templates or bindings.",
		},
		{
			ID:          "generation.succeeded",
			Operation:   OpDocumentGeneration,
			Phase:       PhasePost,
			Severity:    SeverityAdvisory,
			Check:       "operation_succeeded",
			Description: "Generation failures are recorded.",
		},
		{
			ID:          "template.processed",
			Operation:   OpTemplateProcessing,
			Phase:       PhasePost,
			Severity:    SeverityEnforced,
			Check:       "operation_succeeded",
			Description: "Template files must load without errors.",
		},
		{
			ID:          "validation.not_skipped",
			Operation:   OpVisualValidation,
			Phase:       PhasePre,
			Severity:    SeverityEnforced,
			Check:       "validation_not_skipped",
			Description: "Validation may only be skipped with an override.",
		},
		{
			ID:          "validation.immediate",
			Operation:   OpVisualValidation,
			Phase:       PhasePre,
			Severity:    SeverityAdvisory,
			Check:       "immediate_validation",
			Description: "Single, production, debugging and final documents are validated immediately.",
		},
		{
			ID:          "validation.template_verified",
			Operation:   OpVisualValidation,
			Phase:       PhasePost,
			Severity:    SeverityEnforced,
			Check:       "template_verified",
			Description: "Validation must confirm the document was computed from its template.",
		},
		{
			ID:          "editor.succeeded",
			Operation:   OpEditorOperations,
			Phase:       PhasePost,
			Severity:    SeverityAdvisory,
			Check:       "operation_succeeded",
			Description: "Editor failures are recorded.",
		},
		{
			ID:          "files.succeeded",
			Operation:   OpFileOperations,
			Phase:       PhasePost,
			Severity:    SeverityAdvisory,
			Check:       "operation_succeeded",
			Description: "Storage failures are recorded.",
		},
		{
			ID:          "delivery.visual_validation",
			Operation:   OpDocumentDelivery,
			Phase:       PhasePre,
			Severity:    SeverityAdvisory,
			Check:       "visual_validation_performed",
			Description: "Delivered documents should have passed through visual validation.",
		},
		{
			ID:          "delivery.standard_validation",
			Operation:   OpDocumentDelivery,
			Phase:       PhasePre,
			Severity:    SeverityStrict,
			Check:       "standard_validation_passed",
			Description: "Standard validation must pass before a document is delivered.",
		},
	}
}
