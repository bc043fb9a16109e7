// Package executor is the host GraphQL executor of the gateway and of
// in-process subschemas. It runs breadth-first with depth-wise batching of
// asynchronous fields behind an injected Runtime.
//
// # Execution Model
//
// Fields are classified by schema.Field.Async. Root fields built from SDL are
// async; every other field is sync.
//
//	A. Sync expansion
//	   - Sync fields resolve through Runtime.ResolveSync and complete
//	     immediately. Object results keep expanding without adding depth.
//	   - Async fields are queued as AsyncResolveTask values carrying a
//	     ResolveInfo with the AST fields, response path, operation, fragments
//	     and coerced variables.
//
//	B. Batch execution
//	   - Runtime.BatchResolveAsync is called once per depth with every live
//	     task and returns one result per task, in order.
//	   - Errors a result reports below its field are re-located under the
//	     field's response path.
//
//	C. Non-Null propagation
//	   - A Non-Null violation nulls the top-level field above it and marks
//	     that response key as a tombstone; queued tasks under it are dropped.
//
// For a graph with asynchronous depth d, BatchResolveAsync is called exactly d
// times.
//
// # Value Completion
//
//   - Lists complete element-wise with index paths. A null element of a
//     Non-Null item type nulls the whole list.
//   - Scalars and enums go through Runtime.SerializeLeafValue.
//   - Interfaces and unions resolve through Runtime.ResolveType and must land
//     on an object type of the schema.
//   - Fragment type conditions naming an interface or union apply to every
//     possible type.
//
// Errors are GraphQLError values with response paths; execution continues
// past them and returns partial data.
package executor
