package executor

import (
	"context"
	"fmt"
	"sync"
)

// Resolver resolves one field for one source value.
type Resolver func(ctx context.Context, source any, args map[string]any) (any, error)

// ValueResolver returns a Resolver that always yields v.
func ValueResolver(v any) Resolver {
	return func(context.Context, any, map[string]any) (any, error) { return v, nil }
}

// ErrorResolver returns a Resolver that always fails with err.
func ErrorResolver(err error) Resolver {
	return func(context.Context, any, map[string]any) (any, error) { return nil, err }
}

const (
	CallKindSync  = "sync"
	CallKindAsync = "async"
)

// Call records one resolver invocation. Async calls made in the same batch
// share a BatchID; sync calls have BatchID 0.
type Call struct {
	Kind       string
	ObjectType string
	Field      string
	Source     any
	Args       map[string]any
	BatchID    int
}

// ResolverRuntime is an in-process Runtime backed by resolver functions keyed
// by "Type.field". A field without a resolver reads its value from a map
// source by field name. Abstract types resolve through the "__typename" entry
// of map values.
type ResolverRuntime struct {
	mu        sync.Mutex
	resolvers map[string]Resolver
	calls     []Call
	batchSeq  int

	typeResolver func(value any) (string, error)
	serializer   func(typeName string, value any) (any, error)
}

func NewResolverRuntime(resolvers map[string]Resolver) *ResolverRuntime {
	r := &ResolverRuntime{resolvers: make(map[string]Resolver, len(resolvers))}
	for k, v := range resolvers {
		r.resolvers[k] = v
	}
	return r
}

func (r *ResolverRuntime) SetResolver(objectType, field string, resolver Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[objectType+"."+field] = resolver
}

func (r *ResolverRuntime) SetTypeResolver(f func(value any) (string, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.typeResolver = f
}

func (r *ResolverRuntime) SetSerializer(f func(typeName string, value any) (any, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.serializer = f
}

func (r *ResolverRuntime) resolve(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	r.mu.Lock()
	resolver := r.resolvers[objectType+"."+field]
	r.mu.Unlock()
	if resolver != nil {
		return resolver(ctx, source, args)
	}
	if m, ok := source.(map[string]any); ok {
		return m[field], nil
	}
	return nil, nil
}

func (r *ResolverRuntime) record(c Call) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
}

func (r *ResolverRuntime) ResolveSync(ctx context.Context, info *ResolveInfo, source any, args map[string]any) (any, error) {
	v, err := r.resolve(ctx, info.ObjectType, info.FieldName, source, args)
	r.record(Call{Kind: CallKindSync, ObjectType: info.ObjectType, Field: info.FieldName, Source: source, Args: args})
	return v, err
}

func (r *ResolverRuntime) BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult {
	if len(tasks) == 0 {
		return nil
	}
	r.mu.Lock()
	r.batchSeq++
	batchID := r.batchSeq
	r.mu.Unlock()

	results := make([]AsyncResolveResult, len(tasks))
	for i, t := range tasks {
		v, err := r.resolve(ctx, t.ObjectType, t.Field, t.Source, t.Args)
		results[i] = AsyncResolveResult{Value: v, Error: err}
		r.record(Call{Kind: CallKindAsync, ObjectType: t.ObjectType, Field: t.Field, Source: t.Source, Args: t.Args, BatchID: batchID})
	}
	return results
}

func (r *ResolverRuntime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	r.mu.Lock()
	f := r.typeResolver
	r.mu.Unlock()
	if f != nil {
		return f(value)
	}
	if m, ok := value.(map[string]any); ok {
		if name, ok := m["__typename"].(string); ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("cannot resolve concrete type of %s", abstractType)
}

func (r *ResolverRuntime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	r.mu.Lock()
	f := r.serializer
	r.mu.Unlock()
	if f == nil {
		return value, nil
	}
	return f(typeName, value)
}

// Calls returns the recorded calls in order.
func (r *ResolverRuntime) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Reset clears the call log. Resolvers are kept.
func (r *ResolverRuntime) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.batchSeq = 0
}
