// Package subschema describes one schema taking part in a stitched gateway and
// how instances of its types are fetched by key.
package subschema

import (
	"context"

	"github.com/hanpama/graphstitch/internal/executor"
	"github.com/hanpama/graphstitch/internal/language"
	"github.com/hanpama/graphstitch/internal/schema"
)

// Request is a GraphQL operation sent to a subschema.
type Request struct {
	Document      *language.QueryDocument
	OperationName string
	Variables     map[string]any
}

// Response is what a subschema returned. Data is nil when the operation
// failed as a whole.
type Response struct {
	Data   map[string]any
	Errors []executor.GraphQLError
}

// Executor runs requests against a subschema, in process or remotely.
type Executor interface {
	Execute(ctx context.Context, req *Request) (*Response, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, req *Request) (*Response, error)

func (f ExecutorFunc) Execute(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Config is a subschema with its merge configuration keyed by type name.
type Config struct {
	Name     string
	Schema   *schema.Schema
	Executor Executor
	Merge    map[string]*MergedTypeConfig
}

// MergedTypeConfig tells the gateway how to fetch the rest of an instance of
// a type from this subschema.
//
// FieldName names the root query field that resolves the type. Key and
// ArgsFromKeys are set when that field returns a list and keys are resolved
// in batches; Args is set otherwise.
type MergedTypeConfig struct {
	SelectionSet string
	FieldName    string
	Key          func(result map[string]any) any
	Args         func(result map[string]any) map[string]any
	ArgsFromKeys func(keys []any) map[string]any
	Canonical    bool
	Fields       map[string]*MergedFieldConfig

	// Declarative merge settings, compiled into Key/Args/ArgsFromKeys by
	// the directive transformer the same way @merge arguments are.
	ArgsExpr       string
	KeyArg         string
	KeyField       string
	KeyExprs       []string
	AdditionalArgs string
}

// MergedFieldConfig holds per-field requirements of a merged type.
type MergedFieldConfig struct {
	SelectionSet string
	Computed     bool
	Canonical    bool
}

// Batched reports whether the type is resolved by a list of keys.
func (m *MergedTypeConfig) Batched() bool {
	return m.Key != nil && m.ArgsFromKeys != nil
}

// Resolvable reports whether the subschema can fetch the type by key at all.
func (m *MergedTypeConfig) Resolvable() bool {
	return m.FieldName != "" && (m.Args != nil || m.Batched())
}

// Clone copies the config and its field map. Functions are shared.
func (m *MergedTypeConfig) Clone() *MergedTypeConfig {
	if m == nil {
		return nil
	}
	c := *m
	c.KeyExprs = append([]string(nil), m.KeyExprs...)
	if m.Fields != nil {
		c.Fields = make(map[string]*MergedFieldConfig, len(m.Fields))
		for name, f := range m.Fields {
			fc := *f
			c.Fields[name] = &fc
		}
	}
	return &c
}

// Clone copies the config and every merged type config. The schema and the
// executor are shared.
func (c *Config) Clone() *Config {
	out := *c
	if c.Merge != nil {
		out.Merge = make(map[string]*MergedTypeConfig, len(c.Merge))
		for name, m := range c.Merge {
			out.Merge[name] = m.Clone()
		}
	}
	return &out
}

// MergedType returns the merge config for typeName, or nil.
func (c *Config) MergedType(typeName string) *MergedTypeConfig {
	if c.Merge == nil {
		return nil
	}
	return c.Merge[typeName]
}

// IsCanonicalField reports whether the subschema owns the definition of
// typeName.fieldName. A canonical type owns every field it declares.
func (c *Config) IsCanonicalField(typeName, fieldName string) bool {
	m := c.MergedType(typeName)
	if m == nil {
		return false
	}
	if f := m.Fields[fieldName]; f != nil && f.Canonical {
		return true
	}
	if !m.Canonical || c.Schema == nil {
		return false
	}
	t := c.Schema.Types[typeName]
	return t != nil && (t.Field(fieldName) != nil || t.InputField(fieldName) != nil)
}
