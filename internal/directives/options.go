// Package directives reads the stitching directives @key, @computed, @merge
// and @canonical from a subschema, validates them and compiles them into
// merged type configuration.
package directives

import "strings"

// Options names the directives. Empty names fall back to the defaults.
//
// When PathToDirectivesInExtensions is set, directive uses are read from the
// extensions of each element at that path before falling back to SDL
// directives. The value found there maps directive names to an argument map,
// or to a list of argument maps for repeated uses.
type Options struct {
	KeyDirectiveName             string
	ComputedDirectiveName        string
	MergeDirectiveName           string
	CanonicalDirectiveName       string
	PathToDirectivesInExtensions []string
}

func DefaultOptions() Options {
	return Options{
		KeyDirectiveName:       "key",
		ComputedDirectiveName:  "computed",
		MergeDirectiveName:     "merge",
		CanonicalDirectiveName: "canonical",
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.KeyDirectiveName == "" {
		o.KeyDirectiveName = d.KeyDirectiveName
	}
	if o.ComputedDirectiveName == "" {
		o.ComputedDirectiveName = d.ComputedDirectiveName
	}
	if o.MergeDirectiveName == "" {
		o.MergeDirectiveName = d.MergeDirectiveName
	}
	if o.CanonicalDirectiveName == "" {
		o.CanonicalDirectiveName = d.CanonicalDirectiveName
	}
	return o
}

// TypeDefsList returns the SDL definitions of the four directives.
func (o Options) TypeDefsList() []string {
	o = o.withDefaults()
	return []string{
		"directive @" + o.KeyDirectiveName + "(selectionSet: String!) on OBJECT",
		"directive @" + o.ComputedDirectiveName + "(selectionSet: String!) on FIELD_DEFINITION",
		"directive @" + o.MergeDirectiveName + "(argsExpr: String, keyArg: String, keyField: String, key: [String!], additionalArgs: String) on FIELD_DEFINITION",
		"directive @" + o.CanonicalDirectiveName + " on OBJECT | INTERFACE | INPUT_OBJECT | UNION | ENUM | SCALAR | FIELD_DEFINITION | INPUT_FIELD_DEFINITION",
	}
}

// TypeDefs returns TypeDefsList joined by newlines.
func (o Options) TypeDefs() string {
	return strings.Join(o.TypeDefsList(), "\n")
}

// Names lists the configured directive names.
func (o Options) Names() []string {
	o = o.withDefaults()
	return []string{o.KeyDirectiveName, o.ComputedDirectiveName, o.MergeDirectiveName, o.CanonicalDirectiveName}
}
