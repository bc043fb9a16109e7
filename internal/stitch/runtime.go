package stitch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hanpama/graphstitch/internal/delegate"
	"github.com/hanpama/graphstitch/internal/executor"
	"github.com/hanpama/graphstitch/internal/language"
	"github.com/hanpama/graphstitch/internal/schema"
	"github.com/hanpama/graphstitch/internal/subschema"
)

var _ executor.Runtime = (*Gateway)(nil)

// ResolveSync reads nested fields from the already stitched parent value.
func (g *Gateway) ResolveSync(ctx context.Context, info *executor.ResolveInfo, source any, args map[string]any) (any, error) {
	obj, ok := source.(map[string]any)
	if !ok {
		return nil, nil
	}
	return obj[info.ResponseKey], nil
}

// BatchResolveAsync delegates the root fields of one operation. Query
// fields are grouped by owning subschema and the groups run concurrently;
// mutation fields run one at a time in order.
func (g *Gateway) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}
	op := tasks[0].Info.Operation

	type group struct {
		owner   *subschema.Config
		indices []int
	}
	var groups []*group
	byOwner := map[*subschema.Config]*group{}
	for i, task := range tasks {
		owner := g.owners[op.Operation][task.Field]
		if owner == nil {
			results[i].Error = fmt.Errorf("no subschema serves %s.%s", task.ObjectType, task.Field)
			continue
		}
		if op.Operation == language.Subscription {
			results[i].Error = fmt.Errorf("subscriptions are not supported")
			continue
		}
		if op.Operation == language.Mutation {
			groups = append(groups, &group{owner: owner, indices: []int{i}})
			continue
		}
		grp := byOwner[owner]
		if grp == nil {
			grp = &group{owner: owner}
			byOwner[owner] = grp
			groups = append(groups, grp)
		}
		grp.indices = append(grp.indices, i)
	}

	run := func(grp *group) {
		sub := make([]executor.AsyncResolveTask, len(grp.indices))
		for j, idx := range grp.indices {
			sub[j] = tasks[idx]
		}
		for j, res := range g.resolveRoots(ctx, op, grp.owner, sub) {
			results[grp.indices[j]] = res
		}
	}

	if op.Operation == language.Mutation {
		for _, grp := range groups {
			run(grp)
		}
		return results
	}

	var eg errgroup.Group
	for _, grp := range groups {
		eg.Go(func() error {
			run(grp)
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

// resolveRoots sends the root fields owned by one subschema in a single
// sub-request and merges the missing parts of the returned objects from the
// other subschemas.
func (g *Gateway) resolveRoots(ctx context.Context, op *language.OperationDefinition, owner *subschema.Config, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	info := tasks[0].Info
	prep := g.preparer(owner, info, nil)

	req := &delegate.Request{
		Subschema:           owner,
		Operation:           op.Operation,
		VariableDefinitions: op.VariableDefinitions,
		Variables:           info.Variables,
	}
	types := make([]*schema.TypeRef, len(tasks))
	for i, task := range tasks {
		def := g.schema.Types[task.ObjectType].Field(task.Field)
		types[i] = def.Type
		req.Fields = append(req.Fields, delegate.RootField{
			Name:         task.Field,
			ResponseKey:  task.Info.ResponseKey,
			Args:         task.Args,
			SelectionSet: prep.SelectionSet(def.Type.GetNamedType(), subSelections(task.Info.Fields)),
		})
	}

	res, err := delegate.Delegate(ctx, req)
	if err != nil {
		for i := range results {
			results[i].Error = err
		}
		return results
	}

	roots := make([]*rootResult, len(tasks))
	for i, task := range tasks {
		key := task.Info.ResponseKey
		r := &rootResult{
			typ:    types[i],
			fields: task.Info.Fields,
			errors: delegate.Relocate(res.Errors, executor.Path{key}, executor.Path{}, i == 0 || res.Data == nil),
		}
		if res.Data != nil {
			r.value = res.Data[key]
		}
		roots[i] = r
	}

	p := newPlanner(g, info)
	p.run(ctx, roots)

	for i, r := range roots {
		results[i] = executor.AsyncResolveResult{Value: r.value, Errors: r.errors}
	}
	return results
}

// preparer rewrites selections for target. Fields another subschema is
// canonical for are left to the planner, except the fields of assigned
// already routed to target.
func (g *Gateway) preparer(target *subschema.Config, info *executor.ResolveInfo, assigned map[string]bool) *delegate.Preparer {
	return &delegate.Preparer{
		Target:    target.Schema,
		Fragments: info.Fragments,
		Variables: info.Variables,
		Required:  func(typeName string) language.SelectionSet { return g.required[typeName] },
		Skip: func(typeName, fieldName string) bool {
			if assigned[typeName+"."+fieldName] {
				return false
			}
			return g.canonicalElsewhere(target, typeName, fieldName)
		},
	}
}

func (g *Gateway) canonicalElsewhere(target *subschema.Config, typeName, fieldName string) bool {
	if target.IsCanonicalField(typeName, fieldName) {
		return false
	}
	for _, cfg := range g.configs {
		if cfg == target {
			continue
		}
		if m := cfg.MergedType(typeName); m != nil && m.Resolvable() && cfg.IsCanonicalField(typeName, fieldName) {
			return true
		}
	}
	return false
}

// ResolveType reads __typename, which every delegated selection carries.
func (g *Gateway) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	if obj, ok := value.(map[string]any); ok {
		if name, ok := obj["__typename"].(string); ok && g.schema.IsPossibleType(abstractType, name) {
			return name, nil
		}
	}
	return "", fmt.Errorf("cannot resolve concrete type of %s", abstractType)
}

// SerializeLeafValue passes leaves through; subschemas already serialized them.
func (g *Gateway) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	return value, nil
}

func subSelections(fields []*language.Field) language.SelectionSet {
	var out language.SelectionSet
	for _, f := range fields {
		out = append(out, f.SelectionSet...)
	}
	return out
}
