package sdk

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-bexpr"
	lru "github.com/hashicorp/golang-lru/v2"
)

// actionField is one selector available to filter expressions.
type actionField struct {
	name    string
	boolean bool
	value   func(Action) any
}

// actionFields lists the selectors in the order equality filters are emitted.
var actionFields = []actionField{
	{name: "id", value: func(a Action) any { return a.ID }},
	{name: "name", value: func(a Action) any { return a.DisplayName() }},
	{name: "description", value: func(a Action) any { return a.Description }},
	{name: "categoryId", value: func(a Action) any { return a.CategoryID }},
	{name: "category", value: func(a Action) any { return a.CategoryName }},
	{name: "icon", value: func(a Action) any { return a.Icon }},
	{name: "color", value: func(a Action) any { return a.Color }},
	{name: "status", value: func(a Action) any { return a.Status.String() }},
	{name: "active", boolean: true, value: func(a Action) any { return a.Status.IsActive() }},
	{name: "createdAt", value: func(a Action) any { return a.CreatedAt }},
	{name: "updatedAt", value: func(a Action) any { return a.UpdatedAt }},
	{name: "hasImageIcon", boolean: true, value: func(a Action) any { return a.HasImageIcon() }},
}

// FilterFields returns the selector names accepted by FilterActions.
func FilterFields() []string {
	names := make([]string, 0, len(actionFields))
	for _, f := range actionFields {
		names = append(names, f.name)
	}
	return names
}

func lookupField(name string) (int, bool) {
	for i, f := range actionFields {
		if f.name == name {
			return i, true
		}
	}
	return 0, false
}

// Fields exposes an action to bexpr selectors.
func (a Action) Fields() map[string]any {
	out := make(map[string]any, len(actionFields))
	for _, f := range actionFields {
		out[f.name] = f.value(a)
	}
	return out
}

// EqualityFilter turns key=value arguments into a bexpr "and" expression
// over the action selectors. Keys must be known selectors; boolean selectors
// take true or false and status accepts the Spanish labels. A repeated key
// produces a warning and the last value wins.
func EqualityFilter(args []string) (string, []string, error) {
	values := make([]string, len(actionFields))
	set := make([]bool, len(actionFields))
	var warnings []string

	for _, raw := range args {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		key, val, ok := strings.Cut(raw, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !ok {
			return "", nil, fmt.Errorf("invalid field format %q (expected key=value)", raw)
		}
		if key == "" {
			return "", nil, fmt.Errorf("field key cannot be empty (%q)", raw)
		}
		idx, known := lookupField(key)
		if !known {
			return "", nil, fmt.Errorf("unknown field %q (one of: %s)", key, strings.Join(FilterFields(), ", "))
		}

		literal, err := fieldLiteral(actionFields[idx], val)
		if err != nil {
			return "", nil, err
		}
		if set[idx] {
			warnings = append(warnings, fmt.Sprintf("duplicate field %q detected, last value wins", key))
		}
		values[idx], set[idx] = literal, true
	}

	var terms []string
	for i, f := range actionFields {
		if set[i] {
			terms = append(terms, f.name+" == "+values[i])
		}
	}
	return strings.Join(terms, " and "), warnings, nil
}

func fieldLiteral(f actionField, val string) (string, error) {
	switch {
	case f.boolean:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return "", fmt.Errorf("field %q takes true or false, got %q", f.name, val)
		}
		return strconv.FormatBool(b), nil
	case f.name == "status":
		return strconv.Quote(ParseStatus(val).String()), nil
	default:
		return strconv.Quote(val), nil
	}
}

// evaluatorCacheSize bounds the compiled expressions kept in memory; filters
// arrive from user input.
const evaluatorCacheSize = 256

var evaluatorCache = mustEvaluatorCache()

func mustEvaluatorCache() *lru.Cache[string, *bexpr.Evaluator] {
	cache, err := lru.New[string, *bexpr.Evaluator](evaluatorCacheSize)
	if err != nil {
		panic(err)
	}
	return cache
}

// FilterActions keeps the actions matching expr. An empty expression keeps everything.
func FilterActions(actions []Action, expr string) ([]Action, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return actions, nil
	}

	evaluator, err := compileFilter(expr)
	if err != nil {
		return nil, err
	}

	matched := make([]Action, 0, len(actions))
	for _, action := range actions {
		ok, err := evaluator.Evaluate(action.Fields())
		if err != nil {
			// Selectors that do not resolve on this record simply do not match.
			continue
		}
		if ok {
			matched = append(matched, action)
		}
	}
	return matched, nil
}

func compileFilter(expr string) (*bexpr.Evaluator, error) {
	if cached, ok := evaluatorCache.Get(expr); ok {
		return cached, nil
	}
	evaluator, err := bexpr.CreateEvaluator(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	evaluatorCache.Add(expr, evaluator)
	return evaluator, nil
}
