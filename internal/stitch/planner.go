package stitch

import (
	"context"
	"fmt"
	"reflect"

	"golang.org/x/sync/errgroup"

	"github.com/hanpama/graphstitch/internal/delegate"
	"github.com/hanpama/graphstitch/internal/executor"
	"github.com/hanpama/graphstitch/internal/language"
	"github.com/hanpama/graphstitch/internal/schema"
	"github.com/hanpama/graphstitch/internal/subschema"
)

// rootResult is the raw value of one delegated root field with the errors
// reported below it. Error paths are relative to the field.
type rootResult struct {
	value  any
	typ    *schema.TypeRef
	fields []*language.Field
	errors []executor.GraphQLError
}

// pendingObject is an object in a result tree that lacks requested fields.
type pendingObject struct {
	root     *rootResult
	obj      map[string]any
	typeName string
	path     executor.Path
	missing  []executor.FieldGroup
}

type batchItem struct {
	obj    *pendingObject
	groups []executor.FieldGroup
}

// batch is every object of one type fetched from one subschema in a round.
type batch struct {
	cfg      *subschema.Config
	typeName string
	merge    *subschema.MergedTypeConfig
	items    []*batchItem
}

type batchResult struct {
	values []map[string]any
	errors [][]executor.GraphQLError
}

// planner fills in objects of delegated results from the subschemas that
// can fetch their type by key, round after round, until nothing changes.
type planner struct {
	g     *Gateway
	info  *executor.ResolveInfo
	tried map[uintptr]map[string]bool
}

func newPlanner(g *Gateway, info *executor.ResolveInfo) *planner {
	return &planner{g: g, info: info, tried: map[uintptr]map[string]bool{}}
}

func (p *planner) run(ctx context.Context, roots []*rootResult) {
	for {
		var pending []*pendingObject
		for _, r := range roots {
			p.collect(r, r.value, r.typ, r.fields, executor.Path{}, &pending)
		}
		batches := p.plan(pending)
		if len(batches) == 0 {
			return
		}

		results := make([]batchResult, len(batches))
		var eg errgroup.Group
		for i, b := range batches {
			eg.Go(func() error {
				results[i] = p.fetch(ctx, b)
				return nil
			})
		}
		_ = eg.Wait()

		// merging happens after every fetch returned: batches of a round
		// may share objects
		for i, b := range batches {
			p.merge(b, results[i])
		}
	}
}

func (p *planner) collect(root *rootResult, value any, typ *schema.TypeRef, fields []*language.Field, path executor.Path, out *[]*pendingObject) {
	if value == nil || typ == nil {
		return
	}
	switch typ.Kind {
	case schema.TypeRefKindNonNull:
		p.collect(root, value, typ.OfType, fields, path, out)
		return
	case schema.TypeRefKindList:
		items, ok := value.([]any)
		if !ok {
			return
		}
		for i, item := range items {
			p.collect(root, item, typ.OfType, fields, appendPath(path, i), out)
		}
		return
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return
	}
	t := p.g.schema.Types[typ.Named]
	if t == nil || !t.IsComposite() {
		return
	}
	typeName := t.Name
	if name, ok := obj["__typename"].(string); ok && name != "" {
		typeName = name
	}
	ot := p.g.schema.Types[typeName]
	if ot == nil || ot.Kind != schema.TypeKindObject {
		return
	}

	var missing []executor.FieldGroup
	groups := executor.CollectFields(p.g.schema, ot, subSelections(fields), p.info.Fragments, p.info.Variables)
	for _, grp := range groups {
		name := grp.Fields[0].Name
		if name == "__typename" {
			continue
		}
		def := ot.Field(name)
		if def == nil {
			continue
		}
		v, present := obj[grp.ResponseName]
		if !present {
			missing = append(missing, grp)
			continue
		}
		p.collect(root, v, def.Type, grp.Fields, appendPath(path, grp.ResponseName), out)
	}
	if len(missing) > 0 {
		*out = append(*out, &pendingObject{root: root, obj: obj, typeName: typeName, path: path, missing: missing})
	}
}

// plan assigns the missing fields of each object to subschemas not yet
// tried for it. Subschemas canonical for a missing field go first.
func (p *planner) plan(pending []*pendingObject) []*batch {
	var batches []*batch
	index := map[*subschema.Config]map[string]*batch{}

	for _, po := range pending {
		id := reflect.ValueOf(po.obj).Pointer()
		if p.tried[id] == nil {
			p.tried[id] = map[string]bool{}
		}
		remaining := po.missing
		for pass := 0; pass < 2 && len(remaining) > 0; pass++ {
			for _, cfg := range p.g.configs {
				if p.tried[id][cfg.Name] {
					continue
				}
				m := cfg.MergedType(po.typeName)
				t := cfg.Schema.Types[po.typeName]
				if m == nil || !m.Resolvable() || t == nil {
					continue
				}
				canonical := false
				for _, grp := range remaining {
					if cfg.IsCanonicalField(po.typeName, grp.Fields[0].Name) {
						canonical = true
						break
					}
				}
				if pass == 0 && !canonical {
					continue
				}

				var take, rest []executor.FieldGroup
				for _, grp := range remaining {
					if t.Field(grp.Fields[0].Name) != nil {
						take = append(take, grp)
					} else {
						rest = append(rest, grp)
					}
				}
				if len(take) == 0 {
					continue
				}
				p.tried[id][cfg.Name] = true
				remaining = rest

				if index[cfg] == nil {
					index[cfg] = map[string]*batch{}
				}
				b := index[cfg][po.typeName]
				if b == nil {
					b = &batch{cfg: cfg, typeName: po.typeName, merge: m}
					index[cfg][po.typeName] = b
					batches = append(batches, b)
				}
				b.items = append(b.items, &batchItem{obj: po, groups: take})
				if len(remaining) == 0 {
					break
				}
			}
		}
	}
	return batches
}

func (p *planner) fetch(ctx context.Context, b *batch) batchResult {
	res := batchResult{
		values: make([]map[string]any, len(b.items)),
		errors: make([][]executor.GraphQLError, len(b.items)),
	}

	var union language.SelectionSet
	assigned := map[string]bool{}
	for _, it := range b.items {
		for _, grp := range it.groups {
			assigned[b.typeName+"."+grp.Fields[0].Name] = true
			for _, f := range grp.Fields {
				union = append(union, f)
			}
		}
	}
	ss := p.g.preparer(b.cfg, p.info, assigned).SelectionSet(b.typeName, union)

	if def := mergeField(b); def != nil && def.Type.GetNamedType() != b.typeName {
		ss = language.SelectionSet{
			&language.Field{Alias: "__typename", Name: "__typename"},
			&language.InlineFragment{TypeCondition: b.typeName, SelectionSet: ss},
		}
	}

	req := &delegate.Request{
		Subschema:           b.cfg,
		Operation:           language.Query,
		VariableDefinitions: p.info.Operation.VariableDefinitions,
		Variables:           p.info.Variables,
	}
	if b.merge.Batched() {
		keys := make([]any, len(b.items))
		for i, it := range b.items {
			keys[i] = b.merge.Key(it.obj.obj)
		}
		req.Fields = []delegate.RootField{{
			Name:         b.merge.FieldName,
			ResponseKey:  "_0",
			Args:         b.merge.ArgsFromKeys(keys),
			SelectionSet: ss,
		}}
	} else {
		for i, it := range b.items {
			req.Fields = append(req.Fields, delegate.RootField{
				Name:         b.merge.FieldName,
				ResponseKey:  fmt.Sprintf("_%d", i),
				Args:         b.merge.Args(it.obj.obj),
				SelectionSet: ss,
			})
		}
	}

	out, err := delegate.Delegate(ctx, req)
	if err != nil {
		for i, it := range b.items {
			res.errors[i] = fieldErrors(it, executor.GraphQLError{Message: err.Error(), Extensions: map[string]any{"subschema": b.cfg.Name}})
		}
		return res
	}

	if b.merge.Batched() {
		list, _ := out.Data["_0"].([]any)
		if out.Data["_0"] != nil && len(list) != len(b.items) {
			for i, it := range b.items {
				res.errors[i] = fieldErrors(it, executor.GraphQLError{
					Message:    fmt.Sprintf("%s returned %d results for %d keys", b.merge.FieldName, len(list), len(b.items)),
					Extensions: map[string]any{"subschema": b.cfg.Name},
				})
			}
			return res
		}
		for i, it := range b.items {
			if i < len(list) {
				res.values[i], _ = list[i].(map[string]any)
			}
			res.errors[i] = rehome(out.Errors, executor.Path{"_0", i}, it)
		}
		return res
	}

	for i, it := range b.items {
		key := fmt.Sprintf("_%d", i)
		res.values[i], _ = out.Data[key].(map[string]any)
		res.errors[i] = rehome(out.Errors, executor.Path{key}, it)
	}
	return res
}

func (p *planner) merge(b *batch, res batchResult) {
	for i, it := range b.items {
		it.obj.root.errors = append(it.obj.root.errors, res.errors[i]...)
		value := res.values[i]
		if value == nil {
			continue
		}
		names := make(map[string]string, len(it.groups))
		for _, grp := range it.groups {
			names[grp.ResponseName] = grp.Fields[0].Name
		}
		delegate.MergeInto(it.obj.obj, value, func(key string) bool {
			name, ok := names[key]
			return ok && b.cfg.IsCanonicalField(b.typeName, name)
		})
	}
}

// rehome maps sub-request errors onto the object's place in the root
// result. Errors below the item move with it; errors at or above it are
// reported on each field the item was asked for.
func rehome(errs []executor.GraphQLError, itemPrefix executor.Path, it *batchItem) []executor.GraphQLError {
	var out []executor.GraphQLError
	for _, e := range errs {
		switch {
		case len(e.Path) > len(itemPrefix) && delegate.PathHasPrefix(e.Path, itemPrefix):
			out = append(out, delegate.Relocate([]executor.GraphQLError{e}, itemPrefix, it.obj.path, false)...)
		case delegate.PathHasPrefix(itemPrefix, e.Path):
			out = append(out, fieldErrors(it, e)...)
		}
	}
	return out
}

func fieldErrors(it *batchItem, e executor.GraphQLError) []executor.GraphQLError {
	out := make([]executor.GraphQLError, len(it.groups))
	for i, grp := range it.groups {
		out[i] = e
		out[i].Path = appendPath(it.obj.path, grp.ResponseName)
	}
	return out
}

func appendPath(p executor.Path, elem executor.PathElement) executor.Path {
	out := make(executor.Path, len(p)+1)
	copy(out, p)
	out[len(p)] = elem
	return out
}

func mergeField(b *batch) *schema.Field {
	query := b.cfg.Schema.GetQueryType()
	if query == nil {
		return nil
	}
	return query.Field(b.merge.FieldName)
}
