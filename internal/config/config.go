// Package config loads the gateway configuration file.
//
// The file is YAML. It is checked against an embedded JSON Schema before it
// is decoded, so shape errors are reported with their location in the
// document instead of as decoding failures.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/hanpama/graphstitch/internal/directives"
)

//go:embed schema.json
var schemaJSON []byte

type Config struct {
	Server     Server      `yaml:"server"`
	Log        Log         `yaml:"log"`
	Tracing    Tracing     `yaml:"tracing"`
	Directives Directives  `yaml:"directives"`
	Subschemas []Subschema `yaml:"subschemas"`
}

type Server struct {
	Addr           string   `yaml:"addr"`
	Timeout        string   `yaml:"timeout"`
	Pretty         bool     `yaml:"pretty"`
	GraphiQL       *bool    `yaml:"graphiql"`
	MaxBodyBytes   int64    `yaml:"max_body_bytes"`
	ForwardHeaders []string `yaml:"forward_headers"`
	CORSOrigins    []string `yaml:"cors_origins"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Tracing enables OTLP export when Endpoint is set.
type Tracing struct {
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"`
}

// Directives renames the stitching directives.
type Directives struct {
	Key            string   `yaml:"key"`
	Computed       string   `yaml:"computed"`
	Merge          string   `yaml:"merge"`
	Canonical      string   `yaml:"canonical"`
	ExtensionsPath []string `yaml:"extensions_path"`
}

// Subschema is one upstream GraphQL service. Its SDL comes from SDL, from
// SchemaFile, or from the service itself when neither is set.
type Subschema struct {
	Name       string                `yaml:"name"`
	URL        string                `yaml:"url"`
	SchemaFile string                `yaml:"schema_file"`
	SDL        string                `yaml:"sdl"`
	Timeout    string                `yaml:"timeout"`
	Headers    map[string]string     `yaml:"headers"`
	Merge      map[string]MergedType `yaml:"merge"`
}

// MergedType mirrors the arguments of the merge directive for subschemas
// whose SDL cannot be annotated.
type MergedType struct {
	SelectionSet   string                 `yaml:"selection_set"`
	FieldName      string                 `yaml:"field_name"`
	ArgsExpr       string                 `yaml:"args_expr"`
	KeyArg         string                 `yaml:"key_arg"`
	KeyField       string                 `yaml:"key_field"`
	Key            []string               `yaml:"key"`
	AdditionalArgs string                 `yaml:"additional_args"`
	Canonical      bool                   `yaml:"canonical"`
	Fields         map[string]MergedField `yaml:"fields"`
}

type MergedField struct {
	SelectionSet string `yaml:"selection_set"`
	Canonical    bool   `yaml:"canonical"`
}

// Default returns the configuration used for keys the file leaves out.
func Default() Config {
	return Config{
		Server:  Server{Addr: ":8080", Timeout: "10s"},
		Log:     Log{Level: "info", Format: "text"},
		Tracing: Tracing{Service: "graphstitch"},
	}
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.Timeout == "" {
		c.Server.Timeout = d.Server.Timeout
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Tracing.Service == "" {
		c.Tracing.Service = d.Tracing.Service
	}
}

// Load reads and validates the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates data against the configuration schema and decodes it.
// Keys left out take their value from Default.
func Parse(data []byte) (*Config, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(data []byte) error {
	js, err := yaml.YAMLToJSON(data)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(js))
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	sch, err := compiled()
	if err != nil {
		return err
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func compiled() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("load config schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("config.json", doc); err != nil {
		return nil, fmt.Errorf("load config schema: %w", err)
	}
	sch, err := c.Compile("config.json")
	if err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}
	return sch, nil
}

func (c *Config) check() error {
	if _, err := c.Server.TimeoutDuration(); err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, s := range c.Subschemas {
		if seen[s.Name] {
			return fmt.Errorf("duplicate subschema name %q", s.Name)
		}
		seen[s.Name] = true
		if _, err := s.TimeoutDuration(); err != nil {
			return fmt.Errorf("subschema %s: %w", s.Name, err)
		}
	}
	return nil
}

// TimeoutDuration parses Timeout. An empty value means no timeout.
func (s Server) TimeoutDuration() (time.Duration, error) {
	return parseDuration(s.Timeout)
}

// GraphiQLEnabled defaults to true when the key is absent.
func (s Server) GraphiQLEnabled() bool {
	return s.GraphiQL == nil || *s.GraphiQL
}

// TimeoutDuration parses Timeout. An empty value means no timeout.
func (s Subschema) TimeoutDuration() (time.Duration, error) {
	return parseDuration(s.Timeout)
}

func parseDuration(v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", v, err)
	}
	return d, nil
}

// DirectiveOptions returns the directive names to read subschemas with.
func (c *Config) DirectiveOptions() directives.Options {
	return directives.Options{
		KeyDirectiveName:             c.Directives.Key,
		ComputedDirectiveName:        c.Directives.Computed,
		MergeDirectiveName:           c.Directives.Merge,
		CanonicalDirectiveName:       c.Directives.Canonical,
		PathToDirectivesInExtensions: c.Directives.ExtensionsPath,
	}
}
