package directives

import (
	"github.com/hanpama/graphstitch/internal/language"
	"github.com/hanpama/graphstitch/internal/schema"
)

// Validate checks every stitching directive of s. All violations are
// collected and returned together as a ValidationError.
func Validate(s *schema.Schema, opts Options) error {
	v := &validator{opts: opts.withDefaults(), schema: s}
	if err := schema.Walk(s, v); err != nil {
		return err
	}
	if len(v.violations) > 0 {
		return ValidationError(v.violations)
	}
	return nil
}

type validator struct {
	schema.BaseVisitor
	opts       Options
	schema     *schema.Schema
	violations []*Violation
}

func (v *validator) VisitObject(t *schema.Type) error {
	name := v.opts.KeyDirectiveName
	if u := v.opts.firstUse(name, t.Directives, t.Extensions, t.Position); u != nil {
		v.checkSelectionSet(name, "type "+t.Name, u)
	}
	return nil
}

func (v *validator) VisitField(parent *schema.Type, f *schema.Field) error {
	if parent.Kind != schema.TypeKindObject {
		return nil
	}
	computed := v.opts.ComputedDirectiveName
	if u := v.opts.firstUse(computed, f.Directives, f.Extensions, f.Position); u != nil {
		v.checkSelectionSet(computed, "field "+parent.Name+"."+f.Name, u)
	}

	merge := v.opts.MergeDirectiveName
	if u := v.opts.firstUse(merge, f.Directives, f.Extensions, f.Position); u != nil {
		spec, violations := readMergeUse(merge, u)
		v.violations = append(v.violations, violations...)
		if spec != nil {
			v.violations = append(v.violations, validateMerge(v.schema, parent, f, spec)...)
		}
	}
	return nil
}

func (v *validator) checkSelectionSet(directive, where string, u *directiveUse) {
	src, present, ok := u.stringArg("selectionSet")
	if !present || !ok {
		v.violations = append(v.violations, violationInvalidArgument(directive, "selectionSet", "a string", u.pos))
		return
	}
	if _, err := language.ParseSelectionSet(src); err != nil {
		v.violations = append(v.violations, violationInvalidSelectionSet(directive, where, err, u.pos))
	}
}
