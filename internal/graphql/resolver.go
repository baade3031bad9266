package graphql

import "context"

// Resolver computes the value of a single field. Source is the parent
// object value (nil for root fields unless a root value was supplied) and
// args holds the coerced argument values.
type Resolver func(ctx context.Context, source any, args map[string]any) (any, error)

// ValueResolver returns a Resolver that always yields the given value.
func ValueResolver(v any) Resolver {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		return v, nil
	}
}

// ErrorResolver returns a Resolver that always fails with the given error.
func ErrorResolver(err error) Resolver {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		return nil, err
	}
}

// defaultResolve reads the field straight off a map source. Anything else
// resolves to null.
func defaultResolve(source any, field string) any {
	if m, ok := source.(map[string]any); ok {
		return m[field]
	}
	return nil
}
