// Package graphql is the execution boundary of the HTTP transport core.
// It wraps gqlparser for parsing, operation selection and validation, and
// runs selection sets against a resolver registry. The transport layer
// treats it as an opaque parse/validate/execute capability.
package graphql

import (
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
)

// Schema pairs a parsed GraphQL schema with the resolvers serving it.
type Schema struct {
	ast       *ast.Schema
	resolvers map[string]Resolver
}

// LoadSchema builds a Schema from SDL. Resolver keys are "Type.field";
// fields without a resolver fall back to source-map lookup by name.
func LoadSchema(sdl string, resolvers map[string]Resolver) (*Schema, error) {
	sch, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: sdl})
	if err != nil {
		return nil, err
	}
	if resolvers == nil {
		resolvers = map[string]Resolver{}
	}
	return &Schema{ast: sch, resolvers: resolvers}, nil
}

// ParseQuery parses a query document, returning the syntax error as a
// GraphQL error record with its source location.
func ParseQuery(query string) (*ast.QueryDocument, *gqlerror.Error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		if gqlErr, ok := err.(*gqlerror.Error); ok {
			return nil, gqlErr
		}
		return nil, gqlerror.Errorf("%s", err.Error())
	}
	return doc, nil
}

// SelectOperation picks the single operation to execute. A one-operation
// document is selected regardless of name. Fragments do not count as
// operations.
func SelectOperation(doc *ast.QueryDocument, operationName string) (*ast.OperationDefinition, *gqlerror.Error) {
	if len(doc.Operations) == 1 {
		return doc.Operations[0], nil
	}
	if operationName == "" {
		return nil, gqlerror.Errorf("Must provide operation name if query contains multiple operations.")
	}
	if op := doc.Operations.ForName(operationName); op != nil {
		return op, nil
	}
	return nil, gqlerror.Errorf("Unknown operation named %q.", operationName)
}

// Errorf formats a per-operation GraphQL error record.
func Errorf(format string, args ...any) *gqlerror.Error {
	return gqlerror.Errorf(format, args...)
}

// Validate runs the gqlparser validation rules against the document. It also
// annotates the document's fields with their schema definitions, which the
// executor relies on, so it must run before Execute.
func (s *Schema) Validate(doc *ast.QueryDocument) gqlerror.List {
	return validator.Validate(s.ast, doc)
}
