package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/maja42/goval"

	"github.com/TiagoDeMatosDias/EDINET/internal/domain"
)

// RatioRule is one declarative ratio definition as it appears in the rules
// file: an arithmetic formula over standardized field names plus the
// metadata consumed by the ranking aggregator.
type RatioRule struct {
	Formula        string   `json:"formula"`
	HigherIsBetter *bool    `json:"direction_higher_is_better"`
	Weight         *float64 `json:"weight"`
	Category       string   `json:"category"`
}

// FormulaDefinition is a validated, fully defaulted ratio rule.
type FormulaDefinition struct {
	Name           string
	Formula        string
	Category       string
	HigherIsBetter bool
	Weight         float64
}

// FormulaRegistry holds the ratio rule set for one run. It is immutable
// after load; every accessor iterates in sorted name order so downstream
// output is deterministic.
type FormulaRegistry struct {
	defs        map[string]FormulaDefinition
	names       []string
	knownFields map[string]bool
}

// LoadRatioRules decodes a rules file (a JSON object mapping ratio name to
// RatioRule) and validates every formula against the known input fields.
func LoadRatioRules(r io.Reader, knownFields []string) (*FormulaRegistry, error) {
	rules, err := decodeRules(r)
	if err != nil {
		return nil, err
	}
	return NewFormulaRegistry(rules, knownFields)
}

// decodeRules walks the JSON token stream instead of unmarshalling into a
// map so duplicate ratio names are rejected rather than silently merged.
func decodeRules(r io.Reader) (map[string]RatioRule, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, domain.ConfigError{Reason: fmt.Sprintf("malformed ratio rules: %v", err)}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, domain.ConfigError{Reason: "ratio rules must be a JSON object keyed by ratio name"}
	}

	rules := map[string]RatioRule{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, domain.ConfigError{Reason: fmt.Sprintf("malformed ratio rules: %v", err)}
		}
		name := keyTok.(string)
		if _, ok := rules[name]; ok {
			return nil, domain.ConfigError{Reason: fmt.Sprintf("duplicate ratio name %q", name)}
		}

		var rule RatioRule
		if err := dec.Decode(&rule); err != nil {
			return nil, domain.ConfigError{Reason: fmt.Sprintf("malformed rule %q: %v", name, err)}
		}
		rules[name] = rule
	}

	return rules, nil
}

// NewFormulaRegistry applies defaults (weight 1.0, higher-is-better) and
// validates each formula by evaluating it with every known field bound to a
// probe value. A formula referencing anything outside knownFields fails
// with ConfigError before any computation happens.
func NewFormulaRegistry(rules map[string]RatioRule, knownFields []string) (*FormulaRegistry, error) {
	reg := &FormulaRegistry{
		defs:        make(map[string]FormulaDefinition, len(rules)),
		knownFields: make(map[string]bool, len(knownFields)),
	}
	for _, f := range knownFields {
		reg.knownFields[f] = true
	}

	for name, rule := range rules {
		if rule.Formula == "" {
			return nil, domain.ConfigError{Reason: fmt.Sprintf("ratio %q has an empty formula", name)}
		}
		def := FormulaDefinition{
			Name:           name,
			Formula:        rule.Formula,
			Category:       rule.Category,
			HigherIsBetter: true,
			Weight:         1.0,
		}
		if rule.HigherIsBetter != nil {
			def.HigherIsBetter = *rule.HigherIsBetter
		}
		if rule.Weight != nil {
			def.Weight = *rule.Weight
		}
		if def.Weight <= 0 {
			return nil, domain.ConfigError{Reason: fmt.Sprintf("ratio %q has non-positive weight %v", name, def.Weight)}
		}
		reg.defs[name] = def
		reg.names = append(reg.names, name)
	}
	sort.Strings(reg.names)

	if err := reg.validateFormulas(); err != nil {
		return nil, err
	}

	return reg, nil
}

func (reg *FormulaRegistry) validateFormulas() error {
	eval := goval.NewEvaluator()
	probe := make(map[string]interface{}, len(reg.knownFields))
	for field := range reg.knownFields {
		probe[field] = 1.0
	}

	for _, name := range reg.names {
		if _, err := eval.Evaluate(reg.defs[name].Formula, probe, nil); err != nil {
			return domain.ConfigError{Reason: fmt.Sprintf("ratio %q: %v", name, err)}
		}
	}
	return nil
}

// Names returns the ratio names in sorted order.
func (reg *FormulaRegistry) Names() []string {
	out := make([]string, len(reg.names))
	copy(out, reg.names)
	return out
}

// Definitions returns all definitions in sorted name order.
func (reg *FormulaRegistry) Definitions() []FormulaDefinition {
	out := make([]FormulaDefinition, 0, len(reg.names))
	for _, name := range reg.names {
		out = append(out, reg.defs[name])
	}
	return out
}

func (reg *FormulaRegistry) Get(name string) (FormulaDefinition, bool) {
	def, ok := reg.defs[name]
	return def, ok
}

// RankColumns projects the registry into the ranking aggregator's column
// specs, in sorted name order.
func (reg *FormulaRegistry) RankColumns() []RankColumn {
	out := make([]RankColumn, 0, len(reg.names))
	for _, name := range reg.names {
		def := reg.defs[name]
		out = append(out, RankColumn{
			Name:           def.Name,
			HigherIsBetter: def.HigherIsBetter,
			Weight:         def.Weight,
		})
	}
	return out
}
