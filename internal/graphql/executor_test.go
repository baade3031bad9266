package graphql

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const executorSDL = `
type Query {
  hello(name: String = "World"): String
  person: Person
  people: [Person!]
  pet: Pet
  mustHave: String!
  boom: String
}

type Person {
  name: String!
  nickname: String
  friends: [Person!]
}

interface Named {
  name: String!
}

type Dog implements Named {
  name: String!
  barks: Boolean
}

type Cat implements Named {
  name: String!
  meows: Boolean
}

union Pet = Dog | Cat
`

func newExecutorSchema(t *testing.T, resolvers map[string]Resolver) *Schema {
	t.Helper()
	schema, err := LoadSchema(executorSDL, resolvers)
	require.NoError(t, err)
	return schema
}

func execQuery(t *testing.T, schema *Schema, query string, variables map[string]any, rootValue any) *Response {
	t.Helper()
	doc, perr := ParseQuery(query)
	require.Nil(t, perr)
	op, serr := SelectOperation(doc, "")
	require.Nil(t, serr)
	// Validation binds field definitions, so it must precede execution.
	require.Empty(t, schema.Validate(doc))
	return schema.Execute(context.Background(), doc, op, variables, rootValue)
}

func TestExecuteResolverWithArguments(t *testing.T) {
	schema := newExecutorSchema(t, map[string]Resolver{
		"Query.hello": func(ctx context.Context, source any, args map[string]any) (any, error) {
			name, _ := args["name"].(string)
			return "Hello " + name, nil
		},
	})
	resp := execQuery(t, schema, `{ hello(name: "Dolly") }`, nil, nil)
	require.Empty(t, resp.Errors)
	require.Equal(t, map[string]any{"hello": "Hello Dolly"}, resp.Data)
}

func TestExecuteAppliesArgumentDefaults(t *testing.T) {
	schema := newExecutorSchema(t, map[string]Resolver{
		"Query.hello": func(ctx context.Context, source any, args map[string]any) (any, error) {
			name, _ := args["name"].(string)
			return "Hello " + name, nil
		},
	})
	resp := execQuery(t, schema, `{ hello }`, nil, nil)
	require.Empty(t, resp.Errors)
	require.Equal(t, map[string]any{"hello": "Hello World"}, resp.Data)
}

func TestExecuteVariableCoercion(t *testing.T) {
	schema := newExecutorSchema(t, map[string]Resolver{
		"Query.hello": func(ctx context.Context, source any, args map[string]any) (any, error) {
			name, _ := args["name"].(string)
			return "Hello " + name, nil
		},
	})
	resp := execQuery(t, schema, `query greet($name: String){ hello(name: $name) }`,
		map[string]any{"name": "Dolly"}, nil)
	require.Empty(t, resp.Errors)
	require.Equal(t, map[string]any{"hello": "Hello Dolly"}, resp.Data)
}

func TestExecuteBadVariableIsOperationError(t *testing.T) {
	schema := newExecutorSchema(t, nil)
	doc, perr := ParseQuery(`query greet($name: String!){ hello(name: $name) }`)
	require.Nil(t, perr)
	op, serr := SelectOperation(doc, "")
	require.Nil(t, serr)
	require.Empty(t, schema.Validate(doc))

	resp := schema.Execute(context.Background(), doc, op, map[string]any{}, nil)
	require.Nil(t, resp.Data)
	require.NotEmpty(t, resp.Errors)
}

func TestExecuteAliases(t *testing.T) {
	schema := newExecutorSchema(t, map[string]Resolver{
		"Query.hello": func(ctx context.Context, source any, args map[string]any) (any, error) {
			name, _ := args["name"].(string)
			return "Hello " + name, nil
		},
	})
	resp := execQuery(t, schema, `{ a: hello(name: "A") b: hello(name: "B") }`, nil, nil)
	require.Empty(t, resp.Errors)
	require.Equal(t, map[string]any{"a": "Hello A", "b": "Hello B"}, resp.Data)
}

func TestExecuteDefaultMapResolver(t *testing.T) {
	schema := newExecutorSchema(t, nil)
	root := map[string]any{
		"person": map[string]any{"name": "Ada", "nickname": nil},
	}
	resp := execQuery(t, schema, `{ person { name nickname } }`, nil, root)
	require.Empty(t, resp.Errors)
	want := map[string]any{"person": map[string]any{"name": "Ada", "nickname": nil}}
	if diff := cmp.Diff(want, resp.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteNestedLists(t *testing.T) {
	schema := newExecutorSchema(t, nil)
	root := map[string]any{
		"people": []any{
			map[string]any{"name": "Ada", "friends": []any{map[string]any{"name": "Grace"}}},
			map[string]any{"name": "Lin"},
		},
	}
	resp := execQuery(t, schema, `{ people { name friends { name } } }`, nil, root)
	require.Empty(t, resp.Errors)
	want := map[string]any{
		"people": []any{
			map[string]any{"name": "Ada", "friends": []any{map[string]any{"name": "Grace"}}},
			map[string]any{"name": "Lin", "friends": nil},
		},
	}
	if diff := cmp.Diff(want, resp.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteTypename(t *testing.T) {
	schema := newExecutorSchema(t, nil)
	root := map[string]any{"person": map[string]any{"name": "Ada"}}
	resp := execQuery(t, schema, `{ __typename person { __typename name } }`, nil, root)
	require.Empty(t, resp.Errors)
	require.Equal(t, map[string]any{
		"__typename": "Query",
		"person":     map[string]any{"__typename": "Person", "name": "Ada"},
	}, resp.Data)
}

func TestExecuteFragmentsAndDirectives(t *testing.T) {
	schema := newExecutorSchema(t, nil)
	root := map[string]any{"person": map[string]any{"name": "Ada", "nickname": "Countess"}}
	query := `
	query q($withNick: Boolean!) {
	  person {
	    ...personFields
	    nickname @include(if: $withNick)
	  }
	}
	fragment personFields on Person { name }
	`
	resp := execQuery(t, schema, query, map[string]any{"withNick": false}, root)
	require.Empty(t, resp.Errors)
	require.Equal(t, map[string]any{"person": map[string]any{"name": "Ada"}}, resp.Data)

	resp = execQuery(t, schema, query, map[string]any{"withNick": true}, root)
	require.Equal(t, map[string]any{"person": map[string]any{"name": "Ada", "nickname": "Countess"}}, resp.Data)
}

func TestExecuteSkipDirective(t *testing.T) {
	schema := newExecutorSchema(t, nil)
	root := map[string]any{"person": map[string]any{"name": "Ada", "nickname": "Countess"}}
	resp := execQuery(t, schema, `{ person { name nickname @skip(if: true) } }`, nil, root)
	require.Empty(t, resp.Errors)
	require.Equal(t, map[string]any{"person": map[string]any{"name": "Ada"}}, resp.Data)
}

func TestExecuteUnionByTypename(t *testing.T) {
	schema := newExecutorSchema(t, nil)
	root := map[string]any{"pet": map[string]any{"__typename": "Dog", "name": "Rex", "barks": true}}
	query := `{ pet { ... on Dog { name barks } ... on Cat { name meows } } }`
	resp := execQuery(t, schema, query, nil, root)
	require.Empty(t, resp.Errors)
	require.Equal(t, map[string]any{"pet": map[string]any{"name": "Rex", "barks": true}}, resp.Data)
}

func TestExecuteUnionWithoutDiscriminatorErrors(t *testing.T) {
	schema := newExecutorSchema(t, nil)
	root := map[string]any{"pet": map[string]any{"name": "Rex"}}
	resp := execQuery(t, schema, `{ pet { ... on Dog { name } } }`, nil, root)
	require.Len(t, resp.Errors, 1)
	require.Contains(t, resp.Errors[0].Message, "must resolve to an Object type")
	require.Equal(t, map[string]any{"pet": nil}, resp.Data)
}

func TestExecuteResolverErrorIsLocated(t *testing.T) {
	schema := newExecutorSchema(t, map[string]Resolver{
		"Query.boom": ErrorResolver(errors.New("kaboom")),
	})
	resp := execQuery(t, schema, "{ boom }", nil, nil)
	require.Len(t, resp.Errors, 1)
	require.Equal(t, "kaboom", resp.Errors[0].Message)
	require.Equal(t, "boom", resp.Errors[0].Path.String())
	require.NotEmpty(t, resp.Errors[0].Locations)
}

func TestExecuteResolverErrorDoesNotAbortSiblings(t *testing.T) {
	schema := newExecutorSchema(t, map[string]Resolver{
		"Query.boom":  ErrorResolver(errors.New("kaboom")),
		"Query.hello": ValueResolver("Hello World"),
	})
	resp := execQuery(t, schema, "{ boom hello }", nil, nil)
	require.Len(t, resp.Errors, 1)
	require.Equal(t, map[string]any{"boom": nil, "hello": "Hello World"}, resp.Data)
}

func TestExecuteNonNullFieldReturningNull(t *testing.T) {
	schema := newExecutorSchema(t, map[string]Resolver{
		"Query.mustHave": ValueResolver(nil),
	})
	resp := execQuery(t, schema, "{ mustHave }", nil, nil)
	require.Len(t, resp.Errors, 1)
	require.Equal(t, "Cannot return null for non-nullable field mustHave.", resp.Errors[0].Message)
}

func TestExecuteNonNullPropagationNullsParent(t *testing.T) {
	schema := newExecutorSchema(t, nil)
	root := map[string]any{"person": map[string]any{"nickname": "NoName"}}
	resp := execQuery(t, schema, `{ person { name nickname } }`, nil, root)
	require.NotEmpty(t, resp.Errors)
	require.Equal(t, map[string]any{"person": nil}, resp.Data)
}

func TestSelectSingleOperationIgnoresName(t *testing.T) {
	doc, perr := ParseQuery(`query onlyOne { hello }`)
	require.Nil(t, perr)
	op, serr := SelectOperation(doc, "somethingElse")
	require.Nil(t, serr)
	require.Equal(t, "onlyOne", op.Name)
}

func TestSelectFragmentsDoNotCountAsOperations(t *testing.T) {
	doc, perr := ParseQuery(`
	query q { person { ...f } }
	fragment f on Person { name }
	`)
	require.Nil(t, perr)
	op, serr := SelectOperation(doc, "")
	require.Nil(t, serr)
	require.Equal(t, "q", op.Name)
}

func TestSelectUnknownOperationName(t *testing.T) {
	doc, perr := ParseQuery(`query a { hello } query b { hello }`)
	require.Nil(t, perr)
	_, serr := SelectOperation(doc, "c")
	require.NotNil(t, serr)
	require.Equal(t, `Unknown operation named "c".`, serr.Message)
}

func TestLoadSchemaRejectsInvalidSDL(t *testing.T) {
	_, err := LoadSchema("type Query { broken: Missing }", nil)
	require.Error(t, err)
}
