package stitch

import (
	"fmt"
	"sort"

	"github.com/hanpama/graphstitch/internal/language"
	"github.com/hanpama/graphstitch/internal/schema"
	"github.com/hanpama/graphstitch/internal/subschema"
)

var gatewayRoots = map[language.Operation]string{
	language.Query:        "Query",
	language.Mutation:     "Mutation",
	language.Subscription: "Subscription",
}

// candidate is one subschema's definition of a gateway type.
type candidate struct {
	cfg  *subschema.Config
	typ  *schema.Type
	orig string
}

type composer struct {
	stripped map[string]bool
	renames  map[*subschema.Config]map[string]string
	out      *schema.Schema
	owners   map[language.Operation]map[string]*subschema.Config
}

// compose builds the gateway schema from the subschemas and assigns every
// root field to the subschema that serves it.
func compose(configs []*subschema.Config, stripped []string) (*schema.Schema, map[language.Operation]map[string]*subschema.Config, error) {
	c := &composer{
		stripped: map[string]bool{},
		renames:  map[*subschema.Config]map[string]string{},
		out:      schema.NewSchema(""),
		owners:   map[language.Operation]map[string]*subschema.Config{},
	}
	for _, name := range stripped {
		c.stripped[name] = true
	}

	var order []string
	candidates := map[string][]candidate{}
	for _, cfg := range configs {
		if cfg.Schema == nil {
			return nil, nil, fmt.Errorf("subschema %s has no schema", cfg.Name)
		}
		renames := rootRenames(cfg.Schema)
		c.renames[cfg] = renames

		names := make([]string, 0, len(cfg.Schema.Types))
		for name, t := range cfg.Schema.Types {
			if t.BuiltIn || schema.IsBuiltinScalar(name) {
				continue
			}
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			gwName := rename(renames, name)
			if _, ok := candidates[gwName]; !ok {
				order = append(order, gwName)
			}
			candidates[gwName] = append(candidates[gwName], candidate{cfg: cfg, typ: cfg.Schema.Types[name], orig: name})
		}
	}

	for _, name := range order {
		t, err := c.composeType(name, candidates[name])
		if err != nil {
			return nil, nil, err
		}
		c.out.AddType(t)
	}

	for _, cfg := range configs {
		for name, d := range cfg.Schema.Directives {
			if d.BuiltIn || c.stripped[name] {
				continue
			}
			if _, ok := c.out.Directives[name]; !ok {
				c.out.AddDirective(d)
			}
		}
	}
	c.out.AddBuiltins()

	for op, name := range gatewayRoots {
		t := c.out.Types[name]
		if t == nil {
			continue
		}
		switch op {
		case language.Query:
			c.out.SetQueryType(name)
		case language.Mutation:
			c.out.SetMutationType(name)
		case language.Subscription:
			c.out.SetSubscriptionType(name)
		}
		for _, f := range t.Fields {
			f.Async = true
		}
		c.assignOwners(op, name, candidates[name])
	}
	return c.out, c.owners, nil
}

func (c *composer) composeType(name string, cands []candidate) (*schema.Type, error) {
	base := cands[0]
	for _, cand := range cands {
		if cand.typ.Kind != base.typ.Kind {
			return nil, fmt.Errorf("type %s is %s in subschema %s but %s in subschema %s",
				name, base.typ.Kind, base.cfg.Name, cand.typ.Kind, cand.cfg.Name)
		}
	}
	for _, cand := range cands {
		if m := cand.cfg.MergedType(cand.orig); m != nil && m.Canonical {
			base = cand
			break
		}
	}

	t := base.typ.Clone()
	t.Name = name
	t.Fields = nil
	t.InputFields = nil
	t.EnumValues = nil
	t.Interfaces = nil
	t.PossibleTypes = nil
	t.Directives = c.strip(base.typ.Directives)
	t.Position = nil

	// canonical definition first, then the others in subschema order
	ordered := append([]candidate{base}, without(cands, base)...)
	for _, cand := range ordered {
		renames := c.renames[cand.cfg]
		for _, f := range cand.typ.Fields {
			existing := t.Field(f.Name)
			if existing == nil {
				t.AddField(c.copyField(f, renames))
				continue
			}
			if cand != base && cand.cfg.IsCanonicalField(cand.orig, f.Name) {
				*existing = *c.copyField(f, renames)
			}
		}
		for _, f := range cand.typ.InputFields {
			existing := t.InputField(f.Name)
			if existing == nil {
				t.AddInputField(c.copyInputValue(f))
				continue
			}
			if cand != base && cand.cfg.IsCanonicalField(cand.orig, f.Name) {
				*existing = *c.copyInputValue(f)
			}
		}
		for _, v := range cand.typ.EnumValues {
			if !hasEnumValue(t, v.Name) {
				ev := *v
				ev.Directives = c.strip(v.Directives)
				t.AddEnumValue(&ev)
			}
		}
		for _, iface := range cand.typ.Interfaces {
			t.AddInterface(rename(renames, iface))
		}
		for _, possible := range cand.typ.PossibleTypes {
			t.AddPossibleType(rename(renames, possible))
		}
	}
	return t, nil
}

func (c *composer) assignOwners(op language.Operation, rootName string, cands []candidate) {
	owners := map[string]*subschema.Config{}
	for _, cand := range cands {
		for _, f := range cand.typ.Fields {
			if owners[f.Name] == nil || cand.cfg.IsCanonicalField(cand.orig, f.Name) {
				owners[f.Name] = cand.cfg
			}
		}
	}
	c.owners[op] = owners
}

func (c *composer) copyField(f *schema.Field, renames map[string]string) *schema.Field {
	out := *f
	out.Type = renameRef(f.Type, renames)
	out.Async = false
	out.Directives = c.strip(f.Directives)
	out.Arguments = make([]*schema.InputValue, len(f.Arguments))
	for i, a := range f.Arguments {
		out.Arguments[i] = c.copyInputValue(a)
	}
	return &out
}

func (c *composer) copyInputValue(v *schema.InputValue) *schema.InputValue {
	out := *v
	out.Directives = c.strip(v.Directives)
	return &out
}

func (c *composer) strip(uses []*schema.AppliedDirective) []*schema.AppliedDirective {
	var out []*schema.AppliedDirective
	for _, u := range uses {
		if !c.stripped[u.Name] {
			out = append(out, u)
		}
	}
	return out
}

// rootRenames maps a subschema's root type names to the gateway's.
func rootRenames(s *schema.Schema) map[string]string {
	out := map[string]string{}
	for from, to := range map[string]string{
		s.QueryType:        gatewayRoots[language.Query],
		s.MutationType:     gatewayRoots[language.Mutation],
		s.SubscriptionType: gatewayRoots[language.Subscription],
	} {
		if from != "" && from != to {
			out[from] = to
		}
	}
	return out
}

func rename(renames map[string]string, name string) string {
	if to, ok := renames[name]; ok {
		return to
	}
	return name
}

func renameRef(t *schema.TypeRef, renames map[string]string) *schema.TypeRef {
	if t == nil || len(renames) == 0 {
		return t
	}
	switch t.Kind {
	case schema.TypeRefKindNamed:
		if to, ok := renames[t.Named]; ok {
			return schema.NamedType(to)
		}
		return t
	default:
		inner := renameRef(t.OfType, renames)
		if inner == t.OfType {
			return t
		}
		return &schema.TypeRef{Kind: t.Kind, OfType: inner}
	}
}

func hasEnumValue(t *schema.Type, name string) bool {
	for _, v := range t.EnumValues {
		if v.Name == name {
			return true
		}
	}
	return false
}

func without(cands []candidate, skip candidate) []candidate {
	out := make([]candidate, 0, len(cands))
	for _, c := range cands {
		if c != skip {
			out = append(out, c)
		}
	}
	return out
}
