// Package httpquery turns one inbound HTTP request into normalized GraphQL
// operation invocations and reassembles the results. It owns the
// single-vs-batch decision, request-field precedence, the HTTP-method rules
// and the protocol error taxonomy; parsing, validation and execution are
// delegated to the graphql package.
package httpquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Cito/graphql-server-core/internal/eventbus"
	"github.com/Cito/graphql-server-core/internal/events"
	"github.com/Cito/graphql-server-core/internal/graphql"
)

// Outcome pairs one operation's execution result with the params that
// produced it. Outcomes are immutable once produced.
type Outcome struct {
	Params   Params
	Response *graphql.Response
}

// RunOptions are the explicit per-request toggles of the dispatcher.
type RunOptions struct {
	// BatchEnabled permits array-shaped request bodies.
	BatchEnabled bool
	// RootValue is passed as the source value of root fields.
	RootValue any
}

// Run dispatches every operation carried by one HTTP request and returns
// their outcomes in request order. A protocol failure (*Error) aborts the
// whole request with no partial results; per-operation GraphQL errors are
// reported inside the corresponding Outcome and never affect siblings.
//
// The sources consulted per operation are the envelope item followed by
// queryData, in that precedence order. In batch mode queryData is not
// consulted, matching single-request merge semantics only.
func Run(ctx context.Context, schema *graphql.Schema, method string, envelope Envelope, queryData Source, opts RunOptions) ([]Outcome, *Error) {
	method = strings.ToUpper(method)
	if method != "GET" && method != "POST" {
		return nil, methodNotAllowed("GraphQL only supports GET and POST requests.", "GET, POST")
	}

	// A zero-value envelope counts as a single request with an empty body.
	if !envelope.IsBatch() && len(envelope.Items()) == 0 {
		envelope = Single(Source{})
	}

	if envelope.IsBatch() {
		if !opts.BatchEnabled {
			return nil, badRequest("Batch GraphQL requests are not enabled.")
		}
		if len(envelope.Items()) == 0 {
			return nil, badRequest("Received an empty list in the batch request.")
		}
	} else if !hasKey(envelope.Items()[0], "query") && !hasKey(queryData, "query") {
		// A single-mode request with no query in either source is a protocol
		// failure; a missing query inside a batch element is a local error.
		return nil, badRequest("Must provide query string.")
	}

	items := envelope.Items()
	all := make([]Params, len(items))
	for i, item := range items {
		sources := []Source{item}
		if !envelope.IsBatch() {
			sources = append(sources, queryData)
		}
		params, err := ExtractParams(sources...)
		if err != nil {
			return nil, err
		}
		all[i] = params
	}

	outcomes := make([]Outcome, len(all))
	group, gctx := errgroup.WithContext(ctx)
	for i, params := range all {
		i, params := i, params
		group.Go(func() error {
			response, err := execute(gctx, schema, method, params, opts.RootValue)
			if err != nil {
				return err
			}
			outcomes[i] = Outcome{Params: params, Response: response}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		if herr, ok := err.(*Error); ok {
			return nil, herr
		}
		return nil, badRequest(err.Error())
	}
	return outcomes, nil
}

// execute runs one operation: parse, select, method guard, validate,
// execute. It returns a *Error only for the method guard, which is a global
// protocol failure even inside a batch.
func execute(ctx context.Context, schema *graphql.Schema, method string, params Params, rootValue any) (*graphql.Response, *Error) {
	query, ok := params.Query.Text()
	if !ok {
		if !params.Query.Present() {
			return graphql.ErrorResponse(graphql.Errorf("Must provide query string.")), nil
		}
		return graphql.ErrorResponse(graphql.Errorf("Must provide Source. Received: %v.", params.Query.Value())), nil
	}

	doc, perr := graphql.ParseQuery(query)
	if perr != nil {
		return graphql.ErrorResponse(perr), nil
	}

	op, serr := graphql.SelectOperation(doc, params.OperationName)
	if serr != nil {
		return graphql.ErrorResponse(serr), nil
	}

	if method == "GET" && op.Operation != "query" {
		return nil, methodNotAllowed(
			fmt.Sprintf("Can only perform a %s operation from a POST request.", op.Operation),
			"POST",
		)
	}

	if verrs := schema.Validate(doc); len(verrs) > 0 {
		return &graphql.Response{Errors: verrs}, nil
	}

	opID := uuid.NewString()
	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{
		OperationID:   opID,
		Query:         query,
		OperationName: params.OperationName,
		OperationType: string(op.Operation),
	})
	response := schema.Execute(ctx, doc, op, params.Variables, rootValue)
	errs := make([]error, len(response.Errors))
	for i := range response.Errors {
		errs[i] = response.Errors[i]
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		OperationID:   opID,
		Query:         query,
		OperationName: params.OperationName,
		OperationType: string(op.Operation),
		Errors:        errs,
		Duration:      time.Since(start),
	})
	return response, nil
}

func hasKey(src Source, key string) bool {
	_, ok := src[key]
	return ok
}
