package conditional

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dukex/shopflow/pkg/template"
)

// Operators.
const (
	OpEquals         = "equals"
	OpNotEquals      = "not_equals"
	OpContains       = "contains"
	OpNotContains    = "not_contains"
	OpStartsWith     = "starts_with"
	OpEndsWith       = "ends_with"
	OpGreaterThan    = "greater_than"
	OpLessThan       = "less_than"
	OpGreaterOrEqual = "greater_or_equal"
	OpLessOrEqual    = "less_or_equal"
	OpIsEmpty        = "is_empty"
	OpIsNotEmpty     = "is_not_empty"
	OpExists         = "exists"
)

// EvaluateRule applies one rule to payload.
func EvaluateRule(rule Rule, payload map[string]any) (bool, error) {
	return evaluateRule(rule, template.NewDocument(payload))
}

func evaluateRule(rule Rule, doc *template.Document) (bool, error) {
	rule = rule.resolve(doc)

	actual, found := doc.Lookup(rule.Field)
	expected := template.Stringify(rule.Value)

	switch rule.Operator {
	case OpExists:
		return found, nil
	case OpIsEmpty:
		return isEmpty(actual, found), nil
	case OpIsNotEmpty:
		return !isEmpty(actual, found), nil
	case OpEquals, "":
		return found && equals(actual, expected), nil
	case OpNotEquals:
		return !found || !equals(actual, expected), nil
	case OpContains:
		return found && contains(actual, expected), nil
	case OpNotContains:
		return !found || !contains(actual, expected), nil
	case OpStartsWith:
		return found && strings.HasPrefix(template.Stringify(actual), expected), nil
	case OpEndsWith:
		return found && strings.HasSuffix(template.Stringify(actual), expected), nil
	case OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual:
		if !found {
			return false, nil
		}

		return compareNumbers(rule.Operator, actual, expected)
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownOperator, rule.Operator)
	}
}

func isEmpty(value any, found bool) bool {
	if !found {
		return true
	}

	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

func equals(actual any, expected string) bool {
	text := template.Stringify(actual)
	if text == expected {
		return true
	}

	a, errA := strconv.ParseFloat(text, 64)
	b, errB := strconv.ParseFloat(strings.TrimSpace(expected), 64)

	return errA == nil && errB == nil && a == b
}

func contains(actual any, expected string) bool {
	if list, ok := actual.([]any); ok {
		for _, item := range list {
			if equals(item, expected) {
				return true
			}
		}

		return false
	}

	return strings.Contains(template.Stringify(actual), expected)
}

func compareNumbers(operator string, actual any, expected string) (bool, error) {
	a, err := strconv.ParseFloat(strings.TrimSpace(template.Stringify(actual)), 64)
	if err != nil {
		return false, fmt.Errorf("%w: field value %v", ErrNotNumeric, actual)
	}

	b, err := strconv.ParseFloat(strings.TrimSpace(expected), 64)
	if err != nil {
		return false, fmt.Errorf("%w: %q", ErrNotNumeric, expected)
	}

	switch operator {
	case OpGreaterThan:
		return a > b, nil
	case OpLessThan:
		return a < b, nil
	case OpGreaterOrEqual:
		return a >= b, nil
	default:
		return a <= b, nil
	}
}
