package directives

import (
	"regexp"
	"strings"

	"github.com/hanpama/graphstitch/internal/language"
	"github.com/hanpama/graphstitch/internal/mergeargs"
	"github.com/hanpama/graphstitch/internal/schema"
	"github.com/hanpama/graphstitch/internal/subschema"
)

var dottedNameRe = regexp.MustCompile(`^[_A-Za-z][_A-Za-z0-9]*(\.[_A-Za-z][_A-Za-z0-9]*)*$`)

// mergeSpec is one @merge use, or the equivalent declarative merge config.
type mergeSpec struct {
	argsExpr, keyArg, keyField, additionalArgs             string
	hasArgsExpr, hasKeyArg, hasKeyField, hasAdditionalArgs bool

	key    []string
	hasKey bool

	types    []string
	hasTypes bool

	pos *schema.Position
}

func readMergeUse(directive string, u *directiveUse) (*mergeSpec, []*Violation) {
	m := &mergeSpec{pos: u.pos}
	var out []*Violation
	str := func(name string, value *string, present *bool) {
		v, p, ok := u.stringArg(name)
		if !ok {
			out = append(out, violationInvalidArgument(directive, name, "a string", u.pos))
			return
		}
		*value, *present = v, p
	}
	str("argsExpr", &m.argsExpr, &m.hasArgsExpr)
	str("keyArg", &m.keyArg, &m.hasKeyArg)
	str("keyField", &m.keyField, &m.hasKeyField)
	str("additionalArgs", &m.additionalArgs, &m.hasAdditionalArgs)

	var ok bool
	if m.key, m.hasKey, ok = u.stringListArg("key"); !ok {
		out = append(out, violationInvalidArgument(directive, "key", "a list of strings", u.pos))
	}
	if m.types, m.hasTypes, ok = u.stringListArg("types"); !ok {
		out = append(out, violationInvalidArgument(directive, "types", "a list of strings", u.pos))
	}
	if len(out) > 0 {
		return nil, out
	}
	return m, nil
}

// mergeSpecFromConfig reads the declarative fields of a merged type config.
func mergeSpecFromConfig(c *subschema.MergedTypeConfig) *mergeSpec {
	return &mergeSpec{
		argsExpr: c.ArgsExpr, hasArgsExpr: c.ArgsExpr != "",
		keyArg: c.KeyArg, hasKeyArg: c.KeyArg != "",
		keyField: c.KeyField, hasKeyField: c.KeyField != "",
		additionalArgs: c.AdditionalArgs, hasAdditionalArgs: c.AdditionalArgs != "",
		key: c.KeyExprs, hasKey: len(c.KeyExprs) > 0,
	}
}

func nullable(t *schema.TypeRef) *schema.TypeRef {
	if t.IsNonNull() {
		return t.OfType
	}
	return t
}

// validateMerge checks one merge declaration on parent.field.
func validateMerge(s *schema.Schema, parent *schema.Type, field *schema.Field, m *mergeSpec) []*Violation {
	var out []*Violation
	if parent.Name != s.QueryType {
		out = append(out, violationMergeOutsideQuery(m.pos))
	}

	returnType := nullable(field.Type)
	if returnType.Kind == schema.TypeRefKindList {
		returnType = nullable(returnType.OfType)
	}
	if returnType.Kind != schema.TypeRefKindNamed {
		return append(out, violationMergeReturnsNonNamed(m.pos))
	}

	if m.hasArgsExpr {
		if _, err := mergeargs.Parse(m.argsExpr, nil); err != nil {
			out = append(out, violationInvalidArgsExpr(err, m.pos))
		}
	}

	if !m.hasKeyArg {
		if !m.hasArgsExpr && len(field.Arguments) != 1 {
			out = append(out, violationMissingKeyArg(m.pos))
		}
	} else if !dottedNameRe.MatchString(m.keyArg) {
		out = append(out, violationInvalidKeyArg(m.pos))
	}

	if m.hasKeyField && !dottedNameRe.MatchString(m.keyField) {
		out = append(out, violationInvalidKeyField(m.pos))
	}

	if m.hasKey {
		if m.hasKeyField {
			out = append(out, violationKeyFieldWithKey(m.pos))
		}
		for _, def := range m.key {
			alias, keyPath := splitKeyDef(def)
			if !dottedNameRe.MatchString(keyPath) {
				out = append(out, violationInvalidPartialKey(m.pos))
			}
			if !dottedNameRe.MatchString(alias) {
				out = append(out, violationInvalidKeyAlias(m.pos))
			}
		}
	}

	if m.hasAdditionalArgs {
		if _, err := language.ParseValue("{ " + m.additionalArgs + " }"); err != nil {
			out = append(out, violationInvalidAdditionalArgs(err, m.pos))
		}
	}

	if m.hasArgsExpr && (m.hasKeyArg || m.hasAdditionalArgs) {
		out = append(out, violationArgsExprWithOthers(m.pos))
	}

	named := s.Types[returnType.Named]
	if named == nil || !named.IsComposite() {
		return append(out, violationMergeReturnsNonComposite(m.pos))
	}

	if m.hasTypes {
		if !named.IsAbstract() {
			out = append(out, violationTypesOnConcrete(m.pos))
		} else {
			for _, name := range m.types {
				if !s.IsPossibleType(named.Name, name) {
					out = append(out, violationTypesNotImplementing(m.pos))
					break
				}
			}
		}
	}
	return out
}

// splitKeyDef splits "alias:path" or "path" into alias and key path.
func splitKeyDef(def string) (alias, keyPath string) {
	parts := strings.Split(def, ":")
	if len(parts) == 1 {
		return parts[0], parts[0]
	}
	return parts[0], parts[1]
}

// argsExprFor derives the merge argument expression for a declaration
// without argsExpr.
func argsExprFor(field *schema.Field, m *mergeSpec) string {
	if m.hasArgsExpr {
		return m.argsExpr
	}

	keyExpr := "$key"
	switch {
	case m.hasKey:
		keyExpr = buildKeyExpr(m.key)
	case m.hasKeyField:
		keyExpr = "$key." + m.keyField
	}

	var argNames []string
	if m.hasKeyArg {
		argNames = strings.Split(m.keyArg, ".")
	} else if len(field.Arguments) > 0 {
		argNames = []string{field.Arguments[0].Name}
	}
	if len(argNames) == 0 {
		return ""
	}
	last := argNames[len(argNames)-1]
	expr := last + ": " + keyExpr
	if schema.ReturnsList(field.Type) {
		expr = last + ": [[" + keyExpr + "]]"
	}
	for i := len(argNames) - 2; i >= 0; i-- {
		expr = argNames[i] + ": { " + expr + " }"
	}
	return expr
}

// keyNode is an insertion ordered object built from key definitions.
type keyNode struct {
	names    []string
	children map[string]*keyNode
	value    string
}

func (n *keyNode) child(name string) *keyNode {
	if n.children == nil {
		n.children = make(map[string]*keyNode)
	}
	c, ok := n.children[name]
	if !ok {
		c = &keyNode{}
		n.children[name] = c
		n.names = append(n.names, name)
	}
	return c
}

func (n *keyNode) String() string {
	if n.children == nil {
		return n.value
	}
	parts := make([]string, len(n.names))
	for i, name := range n.names {
		parts[i] = name + ":" + n.children[name].String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// buildKeyExpr turns key definitions such as ["id", "owner.id:ownerId"] into
// an object literal of key variables, {id:$key.id,owner:{id:$key.ownerId}}.
func buildKeyExpr(key []string) string {
	root := &keyNode{}
	for _, def := range key {
		alias, keyPath := splitKeyDef(def)
		node := root
		for _, part := range strings.Split(alias, ".") {
			node = node.child(part)
		}
		node.children = nil
		node.names = nil
		node.value = "$key." + keyPath
	}
	return root.String()
}
