// Package conditional evaluates the predicate of condition nodes against an event payload.
package conditional

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/dukex/shopflow/pkg/template"
)

// Match modes of a rule list.
const (
	MatchAll = "all"
	MatchAny = "any"
)

var (
	ErrNoCondition     = errors.New("condition has no expression or rules")
	ErrUnknownOperator = errors.New("unknown condition operator")
	ErrNotBoolean      = errors.New("condition expression did not return a boolean")
	ErrNotNumeric      = errors.New("value is not numeric")
)

// Rule compares the payload value at Field with Value.
type Rule struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value,omitempty"`
}

// Evaluator is safe for concurrent use. Compiled expressions are cached.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

func NewEvaluator() *Evaluator {
	return &Evaluator{cache: make(map[string]*vm.Program)}
}

// Evaluate decides which branch a condition node takes.
//
// settings holds either an "expression", a "conditions" rule list with "match" all|any,
// or a single rule given by "field", "operator" and "value".
func (e *Evaluator) Evaluate(settings, payload map[string]any) (bool, error) {
	if expression, ok := settings["expression"].(string); ok && strings.TrimSpace(expression) != "" {
		return e.evaluateExpression(expression, payload)
	}

	rules, err := parseRules(settings)
	if err != nil {
		return false, err
	}

	if len(rules) == 0 {
		return false, ErrNoCondition
	}

	matchAny := strings.EqualFold(fmt.Sprint(settings["match"]), MatchAny)
	doc := template.NewDocument(payload)

	for _, rule := range rules {
		result, err := evaluateRule(rule, doc)
		if err != nil {
			return false, err
		}

		if matchAny && result {
			return true, nil
		}

		if !matchAny && !result {
			return false, nil
		}
	}

	return !matchAny, nil
}

func (e *Evaluator) evaluateExpression(expression string, payload map[string]any) (bool, error) {
	program, err := e.program(expression)
	if err != nil {
		return false, err
	}

	env := make(map[string]any, len(payload)+1)
	for key, value := range payload {
		env[key] = value
	}

	env["payload"] = payload

	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", expression, err)
	}

	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q returned %T", ErrNotBoolean, expression, out)
	}

	return result, nil
}

func (e *Evaluator) program(expression string) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.cache[expression]
	e.mu.RUnlock()

	if ok {
		return program, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if program, ok := e.cache[expression]; ok {
		return program, nil
	}

	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expression, err)
	}

	e.cache[expression] = program

	return program, nil
}

func parseRules(settings map[string]any) ([]Rule, error) {
	raw, ok := settings["conditions"].([]any)
	if !ok {
		if field, ok := settings["field"].(string); ok && field != "" {
			return []Rule{ruleFromMap(settings)}, nil
		}

		return nil, nil
	}

	rules := make([]Rule, 0, len(raw))

	for i, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("condition %d is not an object", i)
		}

		rules = append(rules, ruleFromMap(entry))
	}

	return rules, nil
}

func ruleFromMap(entry map[string]any) Rule {
	field, _ := entry["field"].(string)
	operator, _ := entry["operator"].(string)

	return Rule{
		Field:    strings.TrimSpace(field),
		Operator: strings.ToLower(strings.TrimSpace(operator)),
		Value:    entry["value"],
	}
}

// resolve returns a copy of the rule with template tokens in Value substituted.
func (r Rule) resolve(doc *template.Document) Rule {
	if value, ok := r.Value.(string); ok {
		r.Value = doc.Resolve(value, template.LeaveTokenOnMiss)
	}

	return r
}
