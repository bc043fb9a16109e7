// Package mergeargs compiles merge argument expressions.
//
// A merge argument expression is the body of a GraphQL input object literal
// whose variables name paths inside a key object:
//
//	id: $key.id, scope: "public"
//
// Parse turns it into an argument template plus mapping instructions that copy
// key values into the template at request time. When the merge resolver
// returns a list, a "[[ ... ]]" block marks the template of one list element:
//
//	input: { keys: [[{ id: $key.id, kind: $key.__typename }]] }
//
// Blocks may not nest and may not be combined with bare key variables outside
// of a block.
package mergeargs
