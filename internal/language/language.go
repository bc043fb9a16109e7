package language

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"
)

func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func ParseSchema(name, source string) (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ParseValue parses a literal input value. Variable references are accepted
// anywhere a value may appear.
func ParseValue(source string) (*Value, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: "{ value(v: " + source + "\n) }"})
	if err != nil {
		return nil, fmt.Errorf("parse value %q: %w", source, err)
	}
	if len(doc.Operations) != 1 || len(doc.Operations[0].SelectionSet) != 1 {
		return nil, fmt.Errorf("parse value %q: not a single value", source)
	}
	field, ok := doc.Operations[0].SelectionSet[0].(*ast.Field)
	if !ok || len(field.Arguments) != 1 || field.Arguments[0].Name != "v" {
		return nil, fmt.Errorf("parse value %q: not a single value", source)
	}
	return field.Arguments[0].Value, nil
}

// ParseSelectionSet parses a braced selection such as "{ id owner { id } }".
func ParseSelectionSet(source string) (SelectionSet, error) {
	trimmed := strings.TrimSpace(source)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, fmt.Errorf("parse selection set %q: must start with \"{\"", source)
	}
	doc, err := parser.ParseQuery(&ast.Source{Input: trimmed})
	if err != nil {
		return nil, fmt.Errorf("parse selection set %q: %w", source, err)
	}
	if len(doc.Operations) != 1 || len(doc.Fragments) != 0 {
		return nil, fmt.Errorf("parse selection set %q: must contain exactly one selection set", source)
	}
	return doc.Operations[0].SelectionSet, nil
}

// PrintQuery renders a document in the formatter's canonical layout.
func PrintQuery(doc *QueryDocument) string {
	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatQueryDocument(doc)
	return buf.String()
}

// PrintSelectionSet renders a selection set as "{ ... }".
func PrintSelectionSet(ss SelectionSet) string {
	if len(ss) == 0 {
		return "{}"
	}
	out := PrintQuery(&QueryDocument{Operations: OperationList{{Operation: Query, SelectionSet: ss}}})
	out = strings.TrimSpace(out)
	return strings.TrimSpace(strings.TrimPrefix(out, string(Query)))
}

// MergeSelectionSets unions selection sets. Selections whose printed form is
// identical collapse into one; everything else is kept in first-seen order.
func MergeSelectionSets(sets ...SelectionSet) SelectionSet {
	var out SelectionSet
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, sel := range set {
			key := PrintSelectionSet(SelectionSet{sel})
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, sel)
		}
	}
	return out
}

// ValueToGo converts a literal value to plain Go data without a type to guide
// coercion. Variables are looked up in vars and become nil when absent.
func ValueToGo(value *Value, vars map[string]any) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case Variable:
		if vars == nil {
			return nil
		}
		return vars[value.Raw]
	case IntValue:
		if iv, err := strconv.Atoi(value.Raw); err == nil {
			return iv
		}
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case StringValue, BlockValue, EnumValue:
		return value.Raw
	case BooleanValue:
		return value.Raw == "true"
	case ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = ValueToGo(c.Value, vars)
		}
		return out
	case ObjectValue:
		out := make(map[string]any, len(value.Children))
		for _, c := range value.Children {
			out[c.Name] = ValueToGo(c.Value, vars)
		}
		return out
	default:
		return nil
	}
}

// ErrorMessage extracts the bare message from parser errors.
func ErrorMessage(err error) string {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Message
	}
	return err.Error()
}
