package graphql

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"
)

// Response is the result of executing one operation.
type Response struct {
	Data   map[string]any `json:"data"`
	Errors gqlerror.List  `json:"errors,omitempty"`
}

// ErrorResponse wraps per-operation errors in a Response with null data.
func ErrorResponse(errs ...*gqlerror.Error) *Response {
	return &Response{Errors: gqlerror.List(errs)}
}

type executionContext struct {
	schema *Schema
	doc    *ast.QueryDocument
	vars   map[string]any
	errors gqlerror.List
}

// Execute runs the selected operation against the schema. The document must
// have been validated first so that field definitions are bound. Field
// resolution errors are collected as located errors and never abort sibling
// fields.
func (s *Schema) Execute(ctx context.Context, doc *ast.QueryDocument, op *ast.OperationDefinition, variables map[string]any, rootValue any) *Response {
	coerced, err := validator.VariableValues(s.ast, op, variables)
	if err != nil {
		return ErrorResponse(asGraphQLError(err))
	}

	var rootDef *ast.Definition
	switch op.Operation {
	case ast.Query:
		rootDef = s.ast.Query
	case ast.Mutation:
		rootDef = s.ast.Mutation
	case ast.Subscription:
		rootDef = s.ast.Subscription
	}
	if rootDef == nil {
		return ErrorResponse(gqlerror.Errorf("schema is not configured for %s operations", op.Operation))
	}

	ec := &executionContext{schema: s, doc: doc, vars: coerced}
	data := ec.executeSelectionSet(ctx, rootDef, op.SelectionSet, rootValue, ast.Path{})
	return &Response{Data: data, Errors: ec.errors}
}

func (ec *executionContext) executeSelectionSet(ctx context.Context, objectDef *ast.Definition, selectionSet ast.SelectionSet, source any, path ast.Path) map[string]any {
	result := make(map[string]any)

	for _, group := range ec.collectFields(objectDef, selectionSet) {
		field := group.fields[0]
		fieldPath := appendPath(path, ast.PathName(group.responseName))

		if field.Name == "__typename" {
			result[group.responseName] = objectDef.Name
			continue
		}

		fieldDef := field.Definition
		if fieldDef == nil {
			fieldDef = objectDef.Fields.ForName(field.Name)
		}
		if fieldDef == nil {
			ec.addFieldError(fmt.Sprintf("Cannot query field %q on type %q.", field.Name, objectDef.Name), field.Position, fieldPath)
			continue
		}

		value, rerr := ec.resolveField(ctx, objectDef, field, source)
		if rerr != nil {
			ec.addFieldError(rerr.Error(), field.Position, fieldPath)
		}
		var completed any
		if rerr == nil {
			completed = ec.completeValue(ctx, fieldDef.Type, group.fields, value, fieldPath)
		}

		if fieldDef.Type.NonNull && isNil(completed) {
			// Null propagation: the enclosing object becomes null unless we
			// are already at the response root.
			if len(path) > 0 {
				return nil
			}
			result[group.responseName] = nil
			continue
		}
		if isNil(completed) {
			result[group.responseName] = nil
		} else {
			result[group.responseName] = completed
		}
	}

	return result
}

func (ec *executionContext) resolveField(ctx context.Context, objectDef *ast.Definition, field *ast.Field, source any) (any, error) {
	if resolver, ok := ec.schema.resolvers[objectDef.Name+"."+field.Name]; ok {
		var args map[string]any
		if field.Definition != nil {
			args = field.ArgumentMap(ec.vars)
		}
		return resolver(ctx, source, args)
	}
	return defaultResolve(source, field.Name), nil
}

func (ec *executionContext) completeValue(ctx context.Context, t *ast.Type, fields []*ast.Field, value any, path ast.Path) any {
	if isNil(value) {
		if t.NonNull && !ec.hasErrorAt(path) {
			ec.addError(&gqlerror.Error{
				Message: fmt.Sprintf("Cannot return null for non-nullable field %s.", pathString(path)),
				Path:    path,
			})
		}
		return nil
	}

	if t.NamedType == "" && t.Elem != nil {
		return ec.completeListValue(ctx, t, fields, value, path)
	}

	def := ec.schema.ast.Types[t.NamedType]
	if def == nil {
		ec.addError(&gqlerror.Error{Message: fmt.Sprintf("Unknown type %q.", t.NamedType), Path: path})
		return nil
	}

	switch def.Kind {
	case ast.Scalar, ast.Enum:
		return value
	case ast.Object:
		return ec.executeSelectionSet(ctx, def, mergeSelectionSets(fields), value, path)
	case ast.Interface, ast.Union:
		concrete := ec.resolveConcreteType(def, value, path)
		if concrete == nil {
			return nil
		}
		return ec.executeSelectionSet(ctx, concrete, mergeSelectionSets(fields), value, path)
	default:
		ec.addError(&gqlerror.Error{Message: fmt.Sprintf("Cannot complete value of kind %s.", def.Kind), Path: path})
		return nil
	}
}

func (ec *executionContext) completeListValue(ctx context.Context, t *ast.Type, fields []*ast.Field, value any, path ast.Path) any {
	items, ok := toSlice(value)
	if !ok {
		ec.addError(&gqlerror.Error{Message: fmt.Sprintf("Expected a list value, got %T.", value), Path: path})
		return nil
	}
	completed := make([]any, len(items))
	for i, item := range items {
		v := ec.completeValue(ctx, t.Elem, fields, item, appendPath(path, ast.PathIndex(i)))
		if t.Elem.NonNull && isNil(v) {
			// A null element in a [T!] list nullifies the whole list.
			return nil
		}
		completed[i] = v
	}
	return completed
}

// resolveConcreteType maps an abstract-typed value to its object definition
// via the value's __typename discriminator.
func (ec *executionContext) resolveConcreteType(abstract *ast.Definition, value any, path ast.Path) *ast.Definition {
	name := ""
	if m, ok := value.(map[string]any); ok {
		name, _ = m["__typename"].(string)
	}
	if name == "" {
		ec.addError(&gqlerror.Error{
			Message: fmt.Sprintf("Abstract type %q must resolve to an Object type at runtime.", abstract.Name),
			Path:    path,
		})
		return nil
	}
	def := ec.schema.ast.Types[name]
	if def == nil || def.Kind != ast.Object {
		ec.addError(&gqlerror.Error{
			Message: fmt.Sprintf("Abstract type %q resolved to unknown Object type %q.", abstract.Name, name),
			Path:    path,
		})
		return nil
	}
	return def
}

type collectedGroup struct {
	responseName string
	fields       []*ast.Field
}

// collectFields flattens a selection set into response-ordered field groups,
// expanding fragments and honoring @skip and @include.
func (ec *executionContext) collectFields(objectDef *ast.Definition, selectionSet ast.SelectionSet) []collectedGroup {
	var groups []collectedGroup
	index := map[string]int{}
	visited := map[string]bool{}

	add := func(responseName string, field *ast.Field) {
		if i, ok := index[responseName]; ok {
			groups[i].fields = append(groups[i].fields, field)
			return
		}
		index[responseName] = len(groups)
		groups = append(groups, collectedGroup{responseName: responseName, fields: []*ast.Field{field}})
	}

	var walk func(selectionSet ast.SelectionSet)
	walk = func(selectionSet ast.SelectionSet) {
		for _, selection := range selectionSet {
			switch sel := selection.(type) {
			case *ast.Field:
				if !ec.shouldInclude(sel.Directives) {
					continue
				}
				name := sel.Alias
				if name == "" {
					name = sel.Name
				}
				add(name, sel)
			case *ast.InlineFragment:
				if !ec.shouldInclude(sel.Directives) {
					continue
				}
				if !ec.fragmentApplies(sel.TypeCondition, objectDef) {
					continue
				}
				walk(sel.SelectionSet)
			case *ast.FragmentSpread:
				if !ec.shouldInclude(sel.Directives) || visited[sel.Name] {
					continue
				}
				visited[sel.Name] = true
				fragment := ec.doc.Fragments.ForName(sel.Name)
				if fragment == nil || !ec.fragmentApplies(fragment.TypeCondition, objectDef) {
					continue
				}
				walk(fragment.SelectionSet)
			}
		}
	}
	walk(selectionSet)

	return groups
}

func (ec *executionContext) fragmentApplies(typeCondition string, objectDef *ast.Definition) bool {
	if typeCondition == "" || typeCondition == objectDef.Name {
		return true
	}
	for _, iface := range objectDef.Interfaces {
		if iface == typeCondition {
			return true
		}
	}
	if union := ec.schema.ast.Types[typeCondition]; union != nil && union.Kind == ast.Union {
		for _, member := range union.Types {
			if member == objectDef.Name {
				return true
			}
		}
	}
	return false
}

func (ec *executionContext) shouldInclude(directives ast.DirectiveList) bool {
	if skip := directives.ForName("skip"); skip != nil {
		if cond, ok := skip.ArgumentMap(ec.vars)["if"].(bool); ok && cond {
			return false
		}
	}
	if include := directives.ForName("include"); include != nil {
		if cond, ok := include.ArgumentMap(ec.vars)["if"].(bool); ok && !cond {
			return false
		}
	}
	return true
}

func (ec *executionContext) addError(err *gqlerror.Error) {
	ec.errors = append(ec.errors, err)
}

func (ec *executionContext) addFieldError(message string, pos *ast.Position, path ast.Path) {
	err := &gqlerror.Error{Message: message, Path: path}
	if pos != nil {
		err.Locations = []gqlerror.Location{{Line: pos.Line, Column: pos.Column}}
	}
	ec.addError(err)
}

func (ec *executionContext) hasErrorAt(path ast.Path) bool {
	for _, err := range ec.errors {
		if reflect.DeepEqual(err.Path, path) {
			return true
		}
	}
	return false
}

func asGraphQLError(err error) *gqlerror.Error {
	if gqlErr, ok := err.(*gqlerror.Error); ok {
		return gqlErr
	}
	return gqlerror.Errorf("%s", err.Error())
}

func mergeSelectionSets(fields []*ast.Field) ast.SelectionSet {
	var merged ast.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

func appendPath(path ast.Path, elem ast.PathElement) ast.Path {
	next := make(ast.Path, len(path)+1)
	copy(next, path)
	next[len(path)] = elem
	return next
}

func pathString(path ast.Path) string {
	out := ""
	for i, elem := range path {
		switch v := elem.(type) {
		case ast.PathName:
			if i > 0 {
				out += "."
			}
			out += string(v)
		case ast.PathIndex:
			out += fmt.Sprintf("[%d]", int(v))
		}
	}
	return out
}

func toSlice(value any) ([]any, bool) {
	if direct, ok := value.([]any); ok {
		return direct, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
