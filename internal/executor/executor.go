package executor

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/hanpama/graphstitch/internal/language"
	"github.com/hanpama/graphstitch/internal/schema"
)

// Path is a response path of response keys and list indices.
type Path []PathElement

// PathElement is a string response key or an int list index.
type PathElement any

type Executor struct {
	runtime Runtime
	schema  *schema.Schema
}

func NewExecutor(runtime Runtime, schema *schema.Schema) *Executor {
	return &Executor{runtime: runtime, schema: schema}
}

// ExecuteRequest runs the operation named operationName, or the only
// operation of document. initialValue is the source of the root fields.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	op := selectOperation(document, operationName)
	if op == nil {
		return failed("operation not found")
	}
	variables, err := coerceVariables(e.schema, op, variableValues)
	if err != nil {
		return failed(err.Error())
	}
	root := e.rootType(op.Operation)
	if root == nil {
		return failed(fmt.Sprintf("root type not found for %s operation", op.Operation))
	}

	ex := &execution{
		ctx:       ctx,
		runtime:   e.runtime,
		schema:    e.schema,
		doc:       document,
		operation: op,
		variables: variables,
		errors:    []GraphQLError{},
		nulled:    map[string]bool{},
	}
	ex.data = ex.selectionSet(root, op.SelectionSet, initialValue, Path{})
	for len(ex.queue) > 0 && !ex.dataNulled {
		ex.flush()
	}
	if ex.dataNulled {
		return &ExecutionResult{Data: nil, Errors: ex.errors}
	}
	return &ExecutionResult{Data: ex.data, Errors: ex.errors}
}

func (e *Executor) rootType(op language.Operation) *schema.Type {
	switch op {
	case language.Query:
		return e.schema.GetQueryType()
	case language.Mutation:
		return e.schema.GetMutationType()
	case language.Subscription:
		return e.schema.GetSubscriptionType()
	}
	return nil
}

func failed(message string) *ExecutionResult {
	return &ExecutionResult{Errors: []GraphQLError{{Message: message}}}
}

func selectOperation(doc *language.QueryDocument, name string) *language.OperationDefinition {
	if name == "" && len(doc.Operations) == 1 {
		return doc.Operations[0]
	}
	for _, op := range doc.Operations {
		if op.Name == name {
			return op
		}
	}
	return nil
}

// execution is the state of one ExecuteRequest call.
type execution struct {
	ctx       context.Context
	runtime   Runtime
	schema    *schema.Schema
	doc       *language.QueryDocument
	operation *language.OperationDefinition
	variables map[string]any

	data   map[string]any
	queue  []*queuedField
	errors []GraphQLError
	// top-level response keys nulled by a Non-Null violation
	nulled map[string]bool
	// set when a Non-Null root field is null; data itself becomes null
	dataNulled bool
}

// queuedField is an async field waiting for the next batch.
type queuedField struct {
	task   AsyncResolveTask
	path   Path
	typ    *schema.TypeRef
	fields []*language.Field
}

// placeholder holds the slot of a queued field in its parent object.
type placeholder struct{}

// selectionSet completes the fields of ss on source. It returns nil when a
// Non-Null field below a non-root object is null.
func (ex *execution) selectionSet(parent *schema.Type, ss language.SelectionSet, source any, path Path) map[string]any {
	out := make(map[string]any)
	for _, group := range CollectFields(ex.schema, parent, ss, ex.doc.Fragments, ex.variables) {
		first := group.Fields[0]
		fieldPath := appendPath(path, group.ResponseName)
		if first.Name == "__typename" {
			out[group.ResponseName] = parent.Name
			continue
		}
		def := parent.Field(first.Name)
		if def == nil {
			ex.fail(fmt.Sprintf("Cannot query field '%s' on type '%s'", first.Name, parent.Name), fieldPath)
			continue
		}
		value := ex.field(parent, def, group.Fields, source, fieldPath)
		if isNullish(value) {
			if def.Type.IsNonNull() {
				if len(path) == 0 {
					ex.dataNulled = true
				}
				return nil
			}
			value = nil
		}
		out[group.ResponseName] = value
	}
	return out
}

func (ex *execution) field(parent *schema.Type, def *schema.Field, fields []*language.Field, source any, path Path) any {
	args := ex.arguments(def, fields[0].Arguments, path)
	info := &ResolveInfo{
		ObjectType:  parent.Name,
		FieldName:   def.Name,
		ResponseKey: responseKey(fields[0]),
		Path:        path,
		Fields:      fields,
		ReturnType:  def.Type,
		Operation:   ex.operation,
		Fragments:   ex.doc.Fragments,
		Variables:   ex.variables,
	}
	if def.Async {
		ex.queue = append(ex.queue, &queuedField{
			task: AsyncResolveTask{
				ObjectType: parent.Name,
				Field:      def.Name,
				Info:       info,
				Source:     source,
				Args:       args,
			},
			path:   path,
			typ:    def.Type,
			fields: fields,
		})
		return placeholder{}
	}
	value, err := ex.runtime.ResolveSync(ex.ctx, info, source, args)
	if err != nil {
		ex.errors = append(ex.errors, locatedError(err, path))
		return nil
	}
	return ex.complete(def.Type, fields, value, path)
}

// flush resolves every live queued field in one batch and completes the
// results, which may queue the next depth.
func (ex *execution) flush() {
	var batch []*queuedField
	for _, q := range ex.queue {
		if !ex.nulled[rootKey(q.path)] {
			batch = append(batch, q)
		}
	}
	ex.queue = nil
	if len(batch) == 0 {
		return
	}
	tasks := make([]AsyncResolveTask, len(batch))
	for i, q := range batch {
		tasks[i] = q.task
	}
	results := ex.runtime.BatchResolveAsync(ex.ctx, tasks)
	for i, q := range batch {
		var res AsyncResolveResult
		if i < len(results) {
			res = results[i]
		}
		ex.settle(q, res)
	}
}

func (ex *execution) settle(q *queuedField, res AsyncResolveResult) {
	if ex.nulled[rootKey(q.path)] {
		return
	}
	for _, e := range res.Errors {
		e.Path = append(append(Path{}, q.path...), e.Path...)
		ex.errors = append(ex.errors, e)
	}
	var value any
	if res.Error != nil {
		ex.errors = append(ex.errors, locatedError(res.Error, q.path))
	} else {
		value = ex.complete(q.typ, q.fields, res.Value, q.path)
	}
	if isNullish(value) {
		if q.typ.IsNonNull() {
			if len(q.path) == 1 {
				ex.dataNulled = true
				return
			}
			key := rootKey(q.path)
			ex.data[key] = nil
			ex.nulled[key] = true
			return
		}
		value = nil
	}
	ex.write(q.path, value)
}

func (ex *execution) complete(typ *schema.TypeRef, fields []*language.Field, value any, path Path) any {
	if typ.IsNonNull() {
		if isNullish(value) {
			if !ex.hasErrorAt(path) {
				ex.fail("Cannot return null for non-nullable field "+pathString(path), path)
			}
			return nil
		}
		return ex.complete(typ.OfType, fields, value, path)
	}
	if isNullish(value) {
		return nil
	}
	if typ.Kind == schema.TypeRefKindList {
		return ex.completeList(typ.OfType, fields, value, path)
	}

	name := typ.GetNamedType()
	t := ex.schema.Types[name]
	if t == nil {
		ex.fail("Unknown type: "+name, path)
		return nil
	}
	switch t.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		out, err := ex.runtime.SerializeLeafValue(ex.ctx, name, value)
		if err != nil {
			ex.fail(err.Error(), path)
			return nil
		}
		return out
	case schema.TypeKindObject:
		return ex.selectionSet(t, subSelection(fields), value, path)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		typeName, err := ex.runtime.ResolveType(ex.ctx, name, value)
		if err != nil {
			ex.fail(err.Error(), path)
			return nil
		}
		obj := ex.schema.Types[typeName]
		if obj == nil || obj.Kind != schema.TypeKindObject {
			ex.fail(fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", name, typeName), path)
			return nil
		}
		return ex.selectionSet(obj, subSelection(fields), value, path)
	}
	ex.fail(fmt.Sprintf("Cannot complete value of unexpected type: %s", t.Kind), path)
	return nil
}

// completeList completes the elements of any slice value. A null element of
// a Non-Null item type nulls the list.
func (ex *execution) completeList(item *schema.TypeRef, fields []*language.Field, value any, path Path) any {
	elems, ok := value.([]any)
	if !ok {
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			ex.fail(fmt.Sprintf("Expected list value, got %T", value), path)
			return nil
		}
		elems = make([]any, rv.Len())
		for i := range elems {
			elems[i] = rv.Index(i).Interface()
		}
	}
	out := make([]any, len(elems))
	for i, elem := range elems {
		v := ex.complete(item, fields, elem, appendPath(path, i))
		if isNullish(v) {
			if item.IsNonNull() {
				return nil
			}
			v = nil
		}
		out[i] = v
	}
	return out
}

// write stores the completed value of a queued field in the response. A
// path crossing a nulled object is dropped.
func (ex *execution) write(path Path, value any) {
	var cur any = ex.data
	for i, el := range path {
		last := i == len(path)-1
		switch k := el.(type) {
		case string:
			obj, ok := cur.(map[string]any)
			if !ok {
				return
			}
			if last {
				obj[k] = value
				return
			}
			next, ok := obj[k]
			if !ok {
				next = map[string]any{}
				obj[k] = next
			}
			cur = next
		case int:
			list, ok := cur.([]any)
			if !ok || k >= len(list) {
				return
			}
			if last {
				list[k] = value
				return
			}
			cur = list[k]
		}
	}
}

func (ex *execution) fail(message string, path Path) {
	ex.errors = append(ex.errors, GraphQLError{Message: message, Path: path})
}

func (ex *execution) hasErrorAt(path Path) bool {
	for _, err := range ex.errors {
		if slices.Equal(err.Path, path) {
			return true
		}
	}
	return false
}

func responseKey(f *language.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

func rootKey(p Path) string {
	if len(p) == 0 {
		return ""
	}
	key, _ := p[0].(string)
	return key
}

func subSelection(fields []*language.Field) language.SelectionSet {
	var out language.SelectionSet
	for _, f := range fields {
		out = append(out, f.SelectionSet...)
	}
	return out
}

// pathString renders p as "a.b[1].c".
func pathString(p Path) string {
	var b strings.Builder
	for i, el := range p {
		switch v := el.(type) {
		case string:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(v)
		case int:
			b.WriteString("[" + strconv.Itoa(v) + "]")
		}
	}
	return b.String()
}

func appendPath(p Path, el PathElement) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, el)
}

// isNullish reports nil and typed nil values.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
