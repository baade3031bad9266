package httpquery

import "encoding/json"

// Source is one untyped key→value input a request field can be resolved
// from, e.g. the decoded request body or the decoded query string. Sources
// are transient; they never own the resolved Params.
type Source map[string]any

// Optional distinguishes a field that is absent from a source from one that
// is present with a null value.
type Optional struct {
	value   any
	present bool
}

// Some wraps a present value, including a present null.
func Some(v any) Optional { return Optional{value: v, present: true} }

// Absent is the missing value.
func Absent() Optional { return Optional{} }

// Present reports whether the field was found in any source.
func (o Optional) Present() bool { return o.present }

// Value returns the raw value; nil when absent.
func (o Optional) Value() any { return o.value }

// Text returns the value as a string when it is one.
func (o Optional) Text() (string, bool) {
	s, ok := o.value.(string)
	return s, ok && o.present
}

// Params is one resolved unit of work. Query stays raw here: a missing or
// mistyped query is reported by the execution step as a per-operation error,
// not by extraction.
type Params struct {
	Query         Optional
	Variables     map[string]any
	OperationName string
}

// ExtractParams resolves the query, variables and operationName request
// fields against the given sources. Precedence is the argument order: for
// each field the first source that contains the key wins, even when the
// stored value is null. Variables supplied as text are parsed as JSON;
// parse failure is a protocol error.
func ExtractParams(sources ...Source) (Params, *Error) {
	var p Params

	p.Query = lookup("query", sources)

	rawVars := lookup("variables", sources)
	if rawVars.Present() && rawVars.Value() != nil {
		switch v := rawVars.Value().(type) {
		case map[string]any:
			p.Variables = v
		case string:
			var parsed map[string]any
			if err := json.Unmarshal([]byte(v), &parsed); err != nil {
				return Params{}, badRequest("Variables are invalid JSON.")
			}
			p.Variables = parsed
		default:
			return Params{}, badRequest("Variables are invalid JSON.")
		}
	}

	if name, ok := lookup("operationName", sources).Text(); ok {
		p.OperationName = name
	}

	return p, nil
}

func lookup(key string, sources []Source) Optional {
	for _, src := range sources {
		if v, ok := src[key]; ok {
			return Some(v)
		}
	}
	return Absent()
}
