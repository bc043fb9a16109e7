// Package delegate builds sub-requests against subschemas, sends them through
// their executors and maps the results and errors back into the caller's
// response.
package delegate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hanpama/graphstitch/internal/eventbus"
	"github.com/hanpama/graphstitch/internal/events"
	"github.com/hanpama/graphstitch/internal/executor"
	"github.com/hanpama/graphstitch/internal/language"
	"github.com/hanpama/graphstitch/internal/schema"
	"github.com/hanpama/graphstitch/internal/subschema"
)

// RootField is one root field of a sub-request.
type RootField struct {
	// Name is the field on the target's root type.
	Name string
	// ResponseKey aliases the field in the sub-request. Empty means Name.
	ResponseKey string
	Args        map[string]any
	// SelectionSet must already be prepared for the target schema.
	SelectionSet language.SelectionSet
}

func (f RootField) key() string {
	if f.ResponseKey != "" {
		return f.ResponseKey
	}
	return f.Name
}

// Request is one sub-request to a subschema.
type Request struct {
	Subschema *subschema.Config
	Operation language.Operation
	Fields    []RootField
	// VariableDefinitions and Variables come from the caller's operation.
	// Variables referenced inside the selections are forwarded.
	VariableDefinitions language.VariableDefinitionList
	Variables           map[string]any
}

// Result is what a subschema returned. Data is keyed by root field response
// key and is nil when the sub-request failed as a whole. Every error carries
// the subschema name in extensions.subschema.
type Result struct {
	Data   map[string]any
	Errors []executor.GraphQLError
}

var ErrNoExecutor = errors.New("subschema has no executor")

// Delegate sends req and returns the subschema's answer. Transport and
// executor failures are returned as errors.
func Delegate(ctx context.Context, req *Request) (*Result, error) {
	cfg := req.Subschema
	if cfg.Executor == nil {
		return nil, fmt.Errorf("subschema %s: %w", cfg.Name, ErrNoExecutor)
	}
	doc, vars, err := BuildDocument(req)
	if err != nil {
		return nil, err
	}

	fields := make([]string, len(req.Fields))
	for i, f := range req.Fields {
		fields[i] = f.Name
	}
	id := uuid.NewString()
	opType := string(req.Operation)
	eventbus.Publish(ctx, events.DelegationStart{ID: id, Subschema: cfg.Name, OperationType: opType, Fields: fields})
	start := time.Now()

	resp, err := cfg.Executor.Execute(ctx, &subschema.Request{Document: doc, Variables: vars})

	finish := events.DelegationFinish{ID: id, Subschema: cfg.Name, OperationType: opType, Fields: fields, Err: err, Duration: time.Since(start)}
	if resp != nil {
		finish.Errors = len(resp.Errors)
	}
	eventbus.Publish(ctx, finish)

	if err != nil {
		return nil, fmt.Errorf("subschema %s: %w", cfg.Name, err)
	}
	res := &Result{Data: resp.Data}
	for _, e := range resp.Errors {
		res.Errors = append(res.Errors, withSubschema(e, cfg.Name))
	}
	return res, nil
}

func withSubschema(e executor.GraphQLError, name string) executor.GraphQLError {
	ext := make(map[string]any, len(e.Extensions)+1)
	for k, v := range e.Extensions {
		ext[k] = v
	}
	ext["subschema"] = name
	e.Extensions = ext
	return e
}

// BuildDocument renders req as an operation document. Root field arguments
// become variables typed from the target's argument definitions.
func BuildDocument(req *Request) (*language.QueryDocument, map[string]any, error) {
	cfg := req.Subschema
	root := rootType(cfg.Schema, req.Operation)
	if root == nil {
		return nil, nil, fmt.Errorf("subschema %s has no %s root type", cfg.Name, req.Operation)
	}

	op := &language.OperationDefinition{Operation: req.Operation}
	vars := map[string]any{}
	forwarded := map[string]bool{}
	for i, f := range req.Fields {
		def := root.Field(f.Name)
		if def == nil {
			return nil, nil, fmt.Errorf("subschema %s has no root field %s.%s", cfg.Name, root.Name, f.Name)
		}

		names := make([]string, 0, len(f.Args))
		for name := range f.Args {
			names = append(names, name)
		}
		sort.Strings(names)

		var args language.ArgumentList
		for _, name := range names {
			argDef := def.Argument(name)
			if argDef == nil {
				return nil, nil, fmt.Errorf("subschema %s: field %s.%s has no argument %q", cfg.Name, root.Name, f.Name, name)
			}
			varName := fmt.Sprintf("_%d_%s", i, name)
			op.VariableDefinitions = append(op.VariableDefinitions, &language.VariableDefinition{
				Variable: varName,
				Type:     astType(argDef.Type),
			})
			args = append(args, &language.Argument{
				Name:  name,
				Value: &language.Value{Kind: language.Variable, Raw: varName},
			})
			vars[varName] = f.Args[name]
		}

		for _, name := range VariablesIn(f.SelectionSet) {
			if forwarded[name] {
				continue
			}
			def := req.VariableDefinitions.ForName(name)
			if def == nil {
				return nil, nil, fmt.Errorf("variable $%s is not defined by the operation", name)
			}
			forwarded[name] = true
			op.VariableDefinitions = append(op.VariableDefinitions, &language.VariableDefinition{
				Variable:     def.Variable,
				Type:         def.Type,
				DefaultValue: def.DefaultValue,
			})
			if v, ok := req.Variables[name]; ok {
				vars[name] = v
			}
		}

		field := &language.Field{Alias: f.key(), Name: f.Name, Arguments: args, SelectionSet: f.SelectionSet}
		op.SelectionSet = append(op.SelectionSet, field)
	}
	return &language.QueryDocument{Operations: language.OperationList{op}}, vars, nil
}

func rootType(s *schema.Schema, op language.Operation) *schema.Type {
	switch op {
	case language.Mutation:
		return s.GetMutationType()
	case language.Subscription:
		return s.GetSubscriptionType()
	default:
		return s.GetQueryType()
	}
}

func astType(t *schema.TypeRef) *language.Type {
	switch t.Kind {
	case schema.TypeRefKindNonNull:
		return language.NonNullType(astType(t.OfType))
	case schema.TypeRefKindList:
		return language.ListType(astType(t.OfType))
	default:
		return language.NamedType(t.Named)
	}
}

// Relocate returns the errors located under prefix, with prefix replaced by
// base. When includeUnlocated is set, errors without a path are located at
// base.
func Relocate(errs []executor.GraphQLError, prefix, base executor.Path, includeUnlocated bool) []executor.GraphQLError {
	var out []executor.GraphQLError
	for _, e := range errs {
		if len(e.Path) == 0 {
			if includeUnlocated {
				e.Path = append(executor.Path{}, base...)
				out = append(out, e)
			}
			continue
		}
		if !PathHasPrefix(e.Path, prefix) {
			continue
		}
		p := append(executor.Path{}, base...)
		e.Path = append(p, e.Path[len(prefix):]...)
		out = append(out, e)
	}
	return out
}

// PathHasPrefix reports whether p starts with prefix.
func PathHasPrefix(p, prefix executor.Path) bool {
	if len(p) < len(prefix) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}
