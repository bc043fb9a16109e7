package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hanpama/graphstitch/internal/remote"
	"github.com/hanpama/graphstitch/internal/schema"
	"github.com/hanpama/graphstitch/internal/subschema"
)

// BuildOptions control how subschemas are turned into gateway configs.
type BuildOptions struct {
	// BaseDir resolves relative schema_file paths.
	BaseDir string
	// Tracing instruments the subschema HTTP clients.
	Tracing bool
}

// Build returns the subschema configs of every entry, in file order.
func (c *Config) Build(ctx context.Context, opts BuildOptions) ([]*subschema.Config, error) {
	out := make([]*subschema.Config, 0, len(c.Subschemas))
	for _, s := range c.Subschemas {
		cfg, err := s.Build(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("subschema %s: %w", s.Name, err)
		}
		out = append(out, cfg)
	}
	return out, nil
}

// Build loads the entry's SDL and wires a remote executor for its URL.
func (s Subschema) Build(ctx context.Context, opts BuildOptions) (*subschema.Config, error) {
	exec := remote.New(s.URL, s.executorOptions(opts)...)

	source, sdl := s.Name, s.SDL
	switch {
	case sdl != "":
	case s.SchemaFile != "":
		path := s.SchemaFile
		if !filepath.IsAbs(path) && opts.BaseDir != "" {
			path = filepath.Join(opts.BaseDir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read schema file: %w", err)
		}
		source, sdl = path, string(data)
	default:
		fetched, err := exec.FetchSDL(ctx)
		if err != nil {
			return nil, err
		}
		sdl = fetched
	}

	sch, err := schema.BuildFromSource(source, sdl)
	if err != nil {
		return nil, err
	}
	return &subschema.Config{
		Name:     s.Name,
		Schema:   sch,
		Executor: exec,
		Merge:    s.mergeConfigs(),
	}, nil
}

func (s Subschema) executorOptions(opts BuildOptions) []remote.Option {
	var out []remote.Option
	if d, _ := s.TimeoutDuration(); d > 0 {
		out = append(out, remote.WithTimeout(d))
	}
	for k, v := range s.Headers {
		out = append(out, remote.WithHeader(k, v))
	}
	if opts.Tracing {
		out = append(out, remote.WithTracing())
	}
	return out
}

func (s Subschema) mergeConfigs() map[string]*subschema.MergedTypeConfig {
	if len(s.Merge) == 0 {
		return nil
	}
	out := make(map[string]*subschema.MergedTypeConfig, len(s.Merge))
	for typeName, m := range s.Merge {
		mt := &subschema.MergedTypeConfig{
			SelectionSet:   m.SelectionSet,
			FieldName:      m.FieldName,
			ArgsExpr:       m.ArgsExpr,
			KeyArg:         m.KeyArg,
			KeyField:       m.KeyField,
			KeyExprs:       append([]string(nil), m.Key...),
			AdditionalArgs: m.AdditionalArgs,
			Canonical:      m.Canonical,
		}
		if len(m.Fields) > 0 {
			mt.Fields = make(map[string]*subschema.MergedFieldConfig, len(m.Fields))
			for name, f := range m.Fields {
				mt.Fields[name] = &subschema.MergedFieldConfig{
					SelectionSet: f.SelectionSet,
					Computed:     f.SelectionSet != "",
					Canonical:    f.Canonical,
				}
			}
		}
		out[typeName] = mt
	}
	return out
}
