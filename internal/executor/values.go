package executor

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/hanpama/graphstitch/internal/language"
	"github.com/hanpama/graphstitch/internal/schema"
)

// coerceVariables applies the variable definitions of op to the provided
// values. Variables neither provided nor defaulted stay absent.
func coerceVariables(s *schema.Schema, op *language.OperationDefinition, provided map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(op.VariableDefinitions))
	for _, def := range op.VariableDefinitions {
		typ := typeRefOf(def.Type)
		value, ok := provided[def.Variable]
		if !ok {
			switch {
			case def.DefaultValue != nil:
				value = language.ValueToGo(def.DefaultValue, nil)
			case def.Type.NonNull:
				return nil, fmt.Errorf("variable $%s of required type %s was not provided", def.Variable, def.Type)
			default:
				continue
			}
		}
		coerced, err := coerceInput(s, value, typ)
		if err != nil {
			return nil, fmt.Errorf("variable $%s of type %s: %w", def.Variable, def.Type, err)
		}
		out[def.Variable] = coerced
	}
	return out, nil
}

// arguments coerces the arguments of one field. Failures are recorded at
// path and leave the argument out.
func (ex *execution) arguments(def *schema.Field, args language.ArgumentList, path Path) map[string]any {
	out := make(map[string]any, len(def.Arguments))
	for _, argDef := range def.Arguments {
		arg := args.ForName(argDef.Name)
		if arg != nil && arg.Value.Kind == language.Variable {
			if _, ok := ex.variables[arg.Value.Raw]; !ok {
				arg = nil
			}
		}
		if arg == nil {
			if argDef.DefaultValue != nil {
				out[argDef.Name] = argDef.DefaultValue
			} else if argDef.Type.IsNonNull() {
				ex.fail(fmt.Sprintf("argument '%s' of required type %s was not provided", argDef.Name, argDef.Type), path)
			}
			continue
		}
		value, err := coerceInput(ex.schema, language.ValueToGo(arg.Value, ex.variables), argDef.Type)
		if err != nil {
			ex.fail(fmt.Sprintf("argument '%s' cannot be coerced: %v", argDef.Name, err), path)
			continue
		}
		out[argDef.Name] = value
	}
	return out
}

// coerceInput coerces a runtime input value to typ. Types unknown to s and
// custom scalars pass through unchanged.
func coerceInput(s *schema.Schema, value any, typ *schema.TypeRef) (any, error) {
	switch typ.Kind {
	case schema.TypeRefKindNonNull:
		if value == nil {
			return nil, fmt.Errorf("null for non-null type %s", typ)
		}
		return coerceInput(s, value, typ.OfType)
	case schema.TypeRefKindList:
		if value == nil {
			return nil, nil
		}
		items, ok := value.([]any)
		if !ok {
			// a single value stands for a list of one
			v, err := coerceInput(s, value, typ.OfType)
			if err != nil {
				return nil, err
			}
			return []any{v}, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := coerceInput(s, item, typ.OfType)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}
	if value == nil {
		return nil, nil
	}
	if scalar, ok := builtinScalars[typ.Named]; ok {
		return scalar(value)
	}
	t := s.Types[typ.Named]
	if t == nil {
		return value, nil
	}
	switch t.Kind {
	case schema.TypeKindEnum:
		name, ok := value.(string)
		if !ok || !hasEnumValue(t, name) {
			return nil, fmt.Errorf("%v is not a value of enum %s", value, t.Name)
		}
		return name, nil
	case schema.TypeKindInputObject:
		return coerceInputObject(s, t, value)
	}
	return value, nil
}

func coerceInputObject(s *schema.Schema, t *schema.Type, value any) (any, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object for %s, got %T", t.Name, value)
	}
	var unknown []string
	for name := range obj {
		if t.InputField(name) == nil {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown fields of %s: %s", t.Name, strings.Join(unknown, ", "))
	}
	out := make(map[string]any, len(t.InputFields))
	for _, f := range t.InputFields {
		v, ok := obj[f.Name]
		if !ok {
			if f.DefaultValue != nil {
				out[f.Name] = f.DefaultValue
			} else if f.Type.IsNonNull() {
				return nil, fmt.Errorf("field %s.%s of required type %s was not provided", t.Name, f.Name, f.Type)
			}
			continue
		}
		c, err := coerceInput(s, v, f.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.Name, f.Name, err)
		}
		out[f.Name] = c
	}
	return out, nil
}

func hasEnumValue(t *schema.Type, name string) bool {
	for _, v := range t.EnumValues {
		if v.Name == name {
			return true
		}
	}
	return false
}

func typeRefOf(t *language.Type) *schema.TypeRef {
	var ref *schema.TypeRef
	if t.Elem != nil {
		ref = schema.ListType(typeRefOf(t.Elem))
	} else {
		ref = schema.NamedType(t.NamedType)
	}
	if t.NonNull {
		return schema.NonNullType(ref)
	}
	return ref
}

var builtinScalars = map[string]func(any) (any, error){
	"Int":     inputInt,
	"Float":   inputFloat,
	"String":  inputString,
	"Boolean": inputBoolean,
	"ID":      inputID,
}

func inputInt(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n == math.Trunc(n) && math.Abs(n) <= math.MaxInt32 {
			return int(n), nil
		}
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i, nil
		}
	}
	return nil, fmt.Errorf("cannot use %v (%T) as Int", v, v)
}

func inputFloat(v any) (any, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("cannot use %v (%T) as Float", v, v)
}

func inputString(v any) (any, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}

func inputBoolean(v any) (any, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return nil, fmt.Errorf("cannot use %v (%T) as Boolean", v, v)
}

func inputID(v any) (any, error) {
	switch id := v.(type) {
	case string:
		return id, nil
	case int:
		return strconv.Itoa(id), nil
	case int64:
		return strconv.FormatInt(id, 10), nil
	case float64:
		if id == math.Trunc(id) {
			return strconv.FormatFloat(id, 'f', -1, 64), nil
		}
	}
	return nil, fmt.Errorf("cannot use %v (%T) as ID", v, v)
}
