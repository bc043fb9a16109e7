package directives

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hanpama/graphstitch/internal/language"
	"github.com/hanpama/graphstitch/internal/mergeargs"
	"github.com/hanpama/graphstitch/internal/properties"
	"github.com/hanpama/graphstitch/internal/schema"
	"github.com/hanpama/graphstitch/internal/subschema"
)

// NewTransformer returns Transform bound to opts.
func NewTransformer(opts Options) func(*subschema.Config) (*subschema.Config, error) {
	return func(cfg *subschema.Config) (*subschema.Config, error) {
		return Transform(cfg, opts)
	}
}

// Transform validates the stitching directives of cfg.Schema and compiles
// them, together with any declarative merge settings already present in
// cfg.Merge, into executable merge configuration. The input config is not
// modified.
func Transform(cfg *subschema.Config, opts Options) (*subschema.Config, error) {
	if cfg == nil || cfg.Schema == nil {
		return nil, errors.New("directives: subschema config has no schema")
	}
	o := opts.withDefaults()
	if err := Validate(cfg.Schema, o); err != nil {
		return nil, err
	}

	c := &collector{
		opts:            o,
		schema:          cfg.Schema,
		selectionSets:   map[string]language.SelectionSet{},
		computed:        map[string]map[string]language.SelectionSet{},
		canonicalTypes:  map[string]bool{},
		canonicalFields: map[string]map[string]bool{},
	}
	if err := schema.Walk(cfg.Schema, c); err != nil {
		return nil, err
	}

	out := cfg.Clone()
	if out.Merge == nil {
		out.Merge = map[string]*subschema.MergedTypeConfig{}
	}
	if err := c.addUserSelections(out.Merge); err != nil {
		return nil, err
	}

	all := c.allSelectionSets()
	for typeName, ss := range c.selectionSets {
		mergeConfig(out, typeName).SelectionSet = language.PrintSelectionSet(ss)
	}
	for typeName, fields := range c.computed {
		mt := mergeConfig(out, typeName)
		for fieldName, ss := range fields {
			fc := fieldConfig(mt, fieldName)
			fc.SelectionSet = language.PrintSelectionSet(ss)
			fc.Computed = true
		}
	}

	if err := c.compileDeclarative(out, all); err != nil {
		return nil, err
	}
	for _, m := range c.merges {
		var restrict []string
		if m.spec.hasTypes {
			restrict = m.spec.types
		}
		if err := c.compileMerge(out, all, m.field, m.spec, restrict); err != nil {
			return nil, err
		}
	}

	for typeName := range c.canonicalTypes {
		mergeConfig(out, typeName).Canonical = true
	}
	for typeName, fields := range c.canonicalFields {
		mt := mergeConfig(out, typeName)
		for fieldName := range fields {
			fieldConfig(mt, fieldName).Canonical = true
		}
	}
	return out, nil
}

type mergeField struct {
	field *schema.Field
	spec  *mergeSpec
}

// collector gathers directive metadata in one walk over the schema.
type collector struct {
	schema.BaseVisitor
	opts   Options
	schema *schema.Schema

	selectionSets   map[string]language.SelectionSet
	computed        map[string]map[string]language.SelectionSet
	canonicalTypes  map[string]bool
	canonicalFields map[string]map[string]bool
	merges          []mergeField
}

func (c *collector) addSelection(typeName string, ss language.SelectionSet) {
	c.selectionSets[typeName] = language.MergeSelectionSets(c.selectionSets[typeName], ss)
}

func (c *collector) addComputed(typeName, fieldName string, ss language.SelectionSet) {
	fields := c.computed[typeName]
	if fields == nil {
		fields = map[string]language.SelectionSet{}
		c.computed[typeName] = fields
	}
	fields[fieldName] = language.MergeSelectionSets(fields[fieldName], ss)
}

func (c *collector) markCanonicalType(t *schema.Type) {
	if c.opts.firstUse(c.opts.CanonicalDirectiveName, t.Directives, t.Extensions, t.Position) != nil {
		c.canonicalTypes[t.Name] = true
	}
}

func (c *collector) markCanonicalField(typeName, fieldName string, uses []*schema.AppliedDirective, extensions map[string]any, pos *schema.Position) {
	if c.opts.firstUse(c.opts.CanonicalDirectiveName, uses, extensions, pos) == nil {
		return
	}
	fields := c.canonicalFields[typeName]
	if fields == nil {
		fields = map[string]bool{}
		c.canonicalFields[typeName] = fields
	}
	fields[fieldName] = true
}

func (c *collector) VisitObject(t *schema.Type) error {
	c.markCanonicalType(t)
	u := c.opts.firstUse(c.opts.KeyDirectiveName, t.Directives, t.Extensions, t.Position)
	if u == nil {
		return nil
	}
	src, _, _ := u.stringArg("selectionSet")
	ss, err := language.ParseSelectionSet(src)
	if err != nil {
		return err
	}
	c.addSelection(t.Name, ss)
	return nil
}

func (c *collector) VisitInterface(t *schema.Type) error   { c.markCanonicalType(t); return nil }
func (c *collector) VisitUnion(t *schema.Type) error       { c.markCanonicalType(t); return nil }
func (c *collector) VisitEnum(t *schema.Type) error        { c.markCanonicalType(t); return nil }
func (c *collector) VisitScalar(t *schema.Type) error      { c.markCanonicalType(t); return nil }
func (c *collector) VisitInputObject(t *schema.Type) error { c.markCanonicalType(t); return nil }

func (c *collector) VisitInputField(parent *schema.Type, f *schema.InputValue) error {
	c.markCanonicalField(parent.Name, f.Name, f.Directives, f.Extensions, f.Position)
	return nil
}

func (c *collector) VisitField(parent *schema.Type, f *schema.Field) error {
	c.markCanonicalField(parent.Name, f.Name, f.Directives, f.Extensions, f.Position)
	if parent.Kind != schema.TypeKindObject {
		return nil
	}

	if u := c.opts.firstUse(c.opts.ComputedDirectiveName, f.Directives, f.Extensions, f.Position); u != nil {
		src, _, _ := u.stringArg("selectionSet")
		ss, err := language.ParseSelectionSet(src)
		if err != nil {
			return err
		}
		c.addComputed(parent.Name, f.Name, ss)
	}

	u := c.opts.firstUse(c.opts.MergeDirectiveName, f.Directives, f.Extensions, f.Position)
	if u == nil {
		return nil
	}
	spec, violations := readMergeUse(c.opts.MergeDirectiveName, u)
	if len(violations) > 0 {
		return ValidationError(violations)
	}
	c.merges = append(c.merges, mergeField{field: f, spec: spec})

	if spec.hasKeyField {
		ss, err := language.ParseSelectionSet(selectionForPath(spec.keyField))
		if err != nil {
			return err
		}
		var restrict []string
		if spec.hasTypes {
			restrict = spec.types
		}
		for _, typeName := range c.concreteTypes(f, restrict) {
			c.addSelection(typeName, ss)
		}
	}
	return nil
}

// addUserSelections folds selection sets already present in the merge
// config into the collected ones.
func (c *collector) addUserSelections(merge map[string]*subschema.MergedTypeConfig) error {
	for _, typeName := range sortedKeys(merge) {
		mt := merge[typeName]
		if mt.SelectionSet != "" {
			ss, err := language.ParseSelectionSet(mt.SelectionSet)
			if err != nil {
				return fmt.Errorf("merge config for %s: %w", typeName, err)
			}
			c.addSelection(typeName, ss)
		}
		if mt.KeyField != "" && dottedNameRe.MatchString(mt.KeyField) {
			ss, err := language.ParseSelectionSet(selectionForPath(mt.KeyField))
			if err != nil {
				return fmt.Errorf("merge config for %s: %w", typeName, err)
			}
			c.addSelection(typeName, ss)
		}
		for _, fieldName := range sortedKeys(mt.Fields) {
			fc := mt.Fields[fieldName]
			if fc.SelectionSet == "" {
				continue
			}
			ss, err := language.ParseSelectionSet(fc.SelectionSet)
			if err != nil {
				return fmt.Errorf("merge config for %s.%s: %w", typeName, fieldName, err)
			}
			c.addComputed(typeName, fieldName, ss)
		}
	}
	return nil
}

// allSelectionSets unions, per type, the key selection and every computed
// field selection.
func (c *collector) allSelectionSets() map[string]language.SelectionSet {
	out := make(map[string]language.SelectionSet, len(c.selectionSets))
	for typeName, ss := range c.selectionSets {
		out[typeName] = ss
	}
	for typeName, fields := range c.computed {
		sets := []language.SelectionSet{out[typeName]}
		for _, fieldName := range sortedKeys(fields) {
			sets = append(sets, fields[fieldName])
		}
		out[typeName] = language.MergeSelectionSets(sets...)
	}
	return out
}

// concreteTypes lists the object types the field may return, narrowed to
// restrict when it is non-nil.
func (c *collector) concreteTypes(f *schema.Field, restrict []string) []string {
	possible := c.schema.PossibleTypes(f.Type.GetNamedType())
	if restrict == nil {
		return possible
	}
	allowed := make(map[string]bool, len(restrict))
	for _, name := range restrict {
		allowed[name] = true
	}
	var out []string
	for _, name := range possible {
		if allowed[name] {
			out = append(out, name)
		}
	}
	return out
}

// compileDeclarative compiles merge configs that name a field but carry no
// functions yet, as loaded from configuration files.
func (c *collector) compileDeclarative(out *subschema.Config, all map[string]language.SelectionSet) error {
	query := c.schema.GetQueryType()
	var violations ValidationError
	type pending struct {
		typeName string
		field    *schema.Field
		spec     *mergeSpec
	}
	var todo []pending
	for _, typeName := range sortedKeys(out.Merge) {
		mt := out.Merge[typeName]
		if mt.FieldName == "" || mt.Args != nil || mt.Key != nil || mt.ArgsFromKeys != nil {
			continue
		}
		var field *schema.Field
		if query != nil {
			field = query.Field(mt.FieldName)
		}
		if field == nil {
			violations = append(violations, violationUnknownMergeField(typeName, mt.FieldName))
			continue
		}
		spec := mergeSpecFromConfig(mt)
		found := validateMerge(c.schema, query, field, spec)
		if len(found) == 0 && !c.schema.IsPossibleType(field.Type.GetNamedType(), typeName) {
			found = append(found, violationTypesNotImplementing(nil))
		}
		if len(found) > 0 {
			violations = append(violations, found...)
			continue
		}
		todo = append(todo, pending{typeName: typeName, field: field, spec: spec})
	}
	if len(violations) > 0 {
		return violations
	}
	for _, p := range todo {
		if err := c.compileMerge(out, all, p.field, p.spec, []string{p.typeName}); err != nil {
			return err
		}
	}
	return nil
}

// compileMerge builds the merge functions of every concrete type the merge
// field resolves.
func (c *collector) compileMerge(out *subschema.Config, all map[string]language.SelectionSet, field *schema.Field, spec *mergeSpec, restrict []string) error {
	expr := argsExprFor(field, spec)

	var additional map[string]any
	if spec.hasAdditionalArgs {
		v, err := language.ParseValue("{ " + spec.additionalArgs + " }")
		if err != nil {
			return ValidationError{violationInvalidAdditionalArgs(err, spec.pos)}
		}
		additional, _ = language.ValueToGo(v, nil).(map[string]any)
	}

	returnsList := schema.ReturnsList(field.Type)
	for _, typeName := range c.concreteTypes(field, restrict) {
		parsed, err := mergeargs.Parse(expr, all[typeName])
		if err != nil {
			return fmt.Errorf("merge field %s for %s: %w", field.Name, typeName, err)
		}
		if returnsList && !parsed.IsExpansion() {
			return ValidationError{violationListMergeWithoutExpansion(spec.pos)}
		}
		if additional != nil {
			if parsed.IsExpansion() {
				return ValidationError{violationAdditionalArgsWithExpansion(spec.pos)}
			}
			parsed.Args, _ = properties.MergeDeep(parsed.Args, additional).(map[string]any)
		}

		mt := mergeConfig(out, typeName)
		mt.FieldName = field.Name
		if returnsList {
			mt.Key = parsed.Key
			mt.ArgsFromKeys = parsed.ArgsFromKeys
			mt.Args = nil
		} else {
			mt.Args = parsed.ArgsFor
			mt.Key = nil
			mt.ArgsFromKeys = nil
		}
	}
	return nil
}

func mergeConfig(cfg *subschema.Config, typeName string) *subschema.MergedTypeConfig {
	mt := cfg.Merge[typeName]
	if mt == nil {
		mt = &subschema.MergedTypeConfig{}
		cfg.Merge[typeName] = mt
	}
	return mt
}

func fieldConfig(mt *subschema.MergedTypeConfig, fieldName string) *subschema.MergedFieldConfig {
	if mt.Fields == nil {
		mt.Fields = map[string]*subschema.MergedFieldConfig{}
	}
	fc := mt.Fields[fieldName]
	if fc == nil {
		fc = &subschema.MergedFieldConfig{}
		mt.Fields[fieldName] = fc
	}
	return fc
}

// selectionForPath turns "a.b.c" into "{ a { b { c } } }".
func selectionForPath(path string) string {
	parts := strings.Split(path, ".")
	out := parts[len(parts)-1]
	for i := len(parts) - 2; i >= 0; i-- {
		out = parts[i] + " { " + out + " }"
	}
	return "{ " + out + " }"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
