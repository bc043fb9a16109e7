package executor

import (
	"context"

	"github.com/hanpama/graphstitch/internal/language"
	"github.com/hanpama/graphstitch/internal/schema"
)

// Runtime is the resolution surface the Executor drives.
//
// Contract
//   - Execution is breadth-first. At each depth all synchronous fields are
//     resolved through ResolveSync, then BatchResolveAsync is called once
//     with every async task collected at that depth. The next depth starts
//     after those results are completed.
//   - ResolveSync is never called for async fields, and BatchResolveAsync is
//     only called with at least one task.
//   - Returned errors become located GraphQL errors. A Non-Null field that
//     fails nulls its top-level ancestor field.
//   - Implementations must be safe for concurrent operations and must not
//     mutate source or args.
//   - BatchResolveAsync returns one result per task, in task order. Results
//     are independent of each other.
//   - ResolveType returns a possible type of abstractType for value.
//   - SerializeLeafValue returns a JSON-safe value for a scalar or enum.
type Runtime interface {
	ResolveSync(ctx context.Context, info *ResolveInfo, source any, args map[string]any) (any, error)
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

// ResolveInfo describes the field being resolved.
type ResolveInfo struct {
	ObjectType  string
	FieldName   string
	ResponseKey string
	Path        Path
	// Fields are all AST nodes merged under ResponseKey.
	Fields     []*language.Field
	ReturnType *schema.TypeRef
	Operation  *language.OperationDefinition
	Fragments  language.FragmentDefinitionList
	// Variables are the coerced operation variables.
	Variables map[string]any
}

type AsyncResolveTask struct {
	ObjectType string
	Field      string
	Info       *ResolveInfo
	// Source is the parent object value, nil for root fields.
	Source any
	Args   map[string]any
}

type AsyncResolveResult struct {
	// Value is the raw value prior to completion.
	Value any
	// Error fails the whole field.
	Error error
	// Errors are reported below the field, their paths relative to it.
	Errors []GraphQLError
}
