// Package stitch composes subschemas into one gateway schema and executes
// operations against it, delegating root fields to their owners and merging
// types across subschemas by key.
package stitch

import (
	"context"
	"errors"
	"fmt"

	"github.com/hanpama/graphstitch/internal/directives"
	"github.com/hanpama/graphstitch/internal/executor"
	"github.com/hanpama/graphstitch/internal/introspection"
	"github.com/hanpama/graphstitch/internal/language"
	"github.com/hanpama/graphstitch/internal/schema"
	"github.com/hanpama/graphstitch/internal/subschema"
)

// Gateway is a stitched schema over a set of subschemas. It is immutable
// after New and safe for concurrent use.
type Gateway struct {
	configs  []*subschema.Config
	schema   *schema.Schema
	owners   map[language.Operation]map[string]*subschema.Config
	required map[string]language.SelectionSet
	executor *executor.Executor
}

type options struct {
	directives    directives.Options
	transform     bool
	introspection bool
}

type Option func(*options)

// WithDirectives sets the stitching directive names.
func WithDirectives(o directives.Options) Option {
	return func(opts *options) { opts.directives = o }
}

// WithoutTransform takes the configs as already transformed. Their merge
// configuration is used as given.
func WithoutTransform() Option {
	return func(opts *options) { opts.transform = false }
}

// WithoutIntrospection disables __schema and __type on the gateway.
func WithoutIntrospection() Option {
	return func(opts *options) { opts.introspection = false }
}

var ErrNoSubschemas = errors.New("no subschemas")

// New transforms every config's stitching directives and composes the
// gateway schema.
func New(configs []*subschema.Config, opts ...Option) (*Gateway, error) {
	o := options{directives: directives.DefaultOptions(), transform: true, introspection: true}
	for _, opt := range opts {
		opt(&o)
	}
	if len(configs) == 0 {
		return nil, ErrNoSubschemas
	}

	seen := map[string]bool{}
	transformed := make([]*subschema.Config, len(configs))
	for i, cfg := range configs {
		if cfg.Name == "" {
			return nil, fmt.Errorf("subschema %d has no name", i)
		}
		if seen[cfg.Name] {
			return nil, fmt.Errorf("duplicate subschema name %q", cfg.Name)
		}
		seen[cfg.Name] = true

		if !o.transform {
			transformed[i] = cfg
			continue
		}
		out, err := directives.Transform(cfg, o.directives)
		if err != nil {
			return nil, fmt.Errorf("subschema %s: %w", cfg.Name, err)
		}
		transformed[i] = out
	}

	s, owners, err := compose(transformed, o.directives.Names())
	if err != nil {
		return nil, err
	}
	required, err := requiredSelections(transformed)
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		configs:  transformed,
		schema:   s,
		owners:   owners,
		required: required,
	}
	var rt executor.Runtime = g
	if o.introspection {
		w := introspection.Wrap(g, s)
		rt, s = w.Runtime, w.Schema
	}
	g.executor = executor.NewExecutor(rt, s)
	return g, nil
}

// Schema returns the composed gateway schema.
func (g *Gateway) Schema() *schema.Schema { return g.schema }

// SDL renders the gateway schema.
func (g *Gateway) SDL() string { return schema.Render(g.schema) }

// Subschemas returns the transformed subschema configs in order.
func (g *Gateway) Subschemas() []*subschema.Config {
	return append([]*subschema.Config(nil), g.configs...)
}

// Owner returns the subschema serving a root field, or nil.
func (g *Gateway) Owner(op language.Operation, fieldName string) *subschema.Config {
	return g.owners[op][fieldName]
}

// Execute runs an operation of doc against the gateway.
func (g *Gateway) Execute(ctx context.Context, doc *language.QueryDocument, operationName string, variables map[string]any) *executor.ExecutionResult {
	return g.executor.ExecuteRequest(ctx, doc, operationName, variables, nil)
}

// requiredSelections unions, per type, the key and computed selection sets
// of every subschema.
func requiredSelections(configs []*subschema.Config) (map[string]language.SelectionSet, error) {
	out := map[string]language.SelectionSet{}
	add := func(cfg *subschema.Config, typeName, src string) error {
		if src == "" {
			return nil
		}
		ss, err := language.ParseSelectionSet(src)
		if err != nil {
			return fmt.Errorf("subschema %s: type %s: %w", cfg.Name, typeName, err)
		}
		out[typeName] = append(out[typeName], ss...)
		return nil
	}
	for _, cfg := range configs {
		for typeName, m := range cfg.Merge {
			if err := add(cfg, typeName, m.SelectionSet); err != nil {
				return nil, err
			}
			for _, f := range m.Fields {
				if err := add(cfg, typeName, f.SelectionSet); err != nil {
					return nil, err
				}
			}
		}
	}
	for typeName, ss := range out {
		out[typeName] = language.MergeSelectionSets(ss)
	}
	return out, nil
}
