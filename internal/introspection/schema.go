package introspection

import (
	"sync"

	"github.com/hanpama/graphstitch/internal/schema"
)

// metaSDL declares the introspection types. __Root holds the two fields
// added to the query type.
const metaSDL = `
type __Root {
  __schema: __Schema!
  __type(name: String!): __Type
}

type __Schema {
  description: String
  types: [__Type!]!
  queryType: __Type!
  mutationType: __Type
  subscriptionType: __Type
  directives: [__Directive!]!
}

type __Type {
  kind: __TypeKind!
  name: String
  description: String
  specifiedByURL: String
  fields(includeDeprecated: Boolean = false): [__Field!]
  interfaces: [__Type!]
  possibleTypes: [__Type!]
  enumValues(includeDeprecated: Boolean = false): [__EnumValue!]
  inputFields(includeDeprecated: Boolean = false): [__InputValue!]
  ofType: __Type
  isOneOf: Boolean
}

type __Field {
  name: String!
  description: String
  args(includeDeprecated: Boolean = false): [__InputValue!]!
  type: __Type!
  isDeprecated: Boolean!
  deprecationReason: String
}

type __InputValue {
  name: String!
  description: String
  type: __Type!
  defaultValue: String
  isDeprecated: Boolean!
  deprecationReason: String
}

type __EnumValue {
  name: String!
  description: String
  isDeprecated: Boolean!
  deprecationReason: String
}

type __Directive {
  name: String!
  description: String
  isRepeatable: Boolean!
  locations: [__DirectiveLocation!]!
  args(includeDeprecated: Boolean = false): [__InputValue!]!
}

enum __TypeKind { SCALAR OBJECT INTERFACE UNION ENUM INPUT_OBJECT LIST NON_NULL }

enum __DirectiveLocation {
  QUERY MUTATION SUBSCRIPTION FIELD FRAGMENT_DEFINITION FRAGMENT_SPREAD
  INLINE_FRAGMENT VARIABLE_DEFINITION SCHEMA SCALAR OBJECT FIELD_DEFINITION
  ARGUMENT_DEFINITION INTERFACE UNION ENUM ENUM_VALUE INPUT_OBJECT
  INPUT_FIELD_DEFINITION
}
`

var (
	metaOnce sync.Once
	meta     *schema.Schema
)

func metaSchema() *schema.Schema {
	metaOnce.Do(func() {
		s, err := schema.BuildFromSource("introspection.graphql", metaSDL)
		if err != nil {
			panic("introspection: " + err.Error())
		}
		meta = s
	})
	return meta
}

// extend returns a copy of s with the introspection types and the
// __schema and __type fields on its query type. s is not modified.
func extend(s *schema.Schema) *schema.Schema {
	m := metaSchema()
	out := *s
	out.Types = make(map[string]*schema.Type, len(s.Types)+len(m.Types))
	for name, t := range s.Types {
		out.Types[name] = t
	}
	for name, t := range m.Types {
		if name == "__Root" || t.BuiltIn {
			continue
		}
		c := t.Clone()
		c.BuiltIn = true
		out.Types[name] = c
	}
	if q := s.GetQueryType(); q != nil {
		q = q.Clone()
		q.Fields = append(q.Fields, m.Types["__Root"].Fields...)
		out.Types[q.Name] = q
	}
	return &out
}
