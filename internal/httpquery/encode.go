package httpquery

import (
	"bytes"
	"encoding/json"
)

// Payload is the externally visible JSON value of one outcome. An outcome
// that carries errors serializes as {"errors": [...]}; otherwise it is
// {"data": ...}.
func (o Outcome) Payload() any {
	if o.Response == nil {
		return nil
	}
	if len(o.Response.Errors) > 0 {
		return map[string]any{"errors": o.Response.Errors}
	}
	return map[string]any{"data": o.Response.Data}
}

// Encode serializes v as JSON: compact with no insignificant whitespace, or
// indented by two spaces when pretty is set. Encoding the same value twice
// with the same flag yields byte-identical output.
func Encode(v any, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// EncodeOutcomes serializes the outcomes in the shape matching the request:
// a bare payload for a single request, an ordered array for a batch.
func EncodeOutcomes(outcomes []Outcome, batch bool, pretty bool) ([]byte, error) {
	if !batch {
		return Encode(outcomes[0].Payload(), pretty)
	}
	payloads := make([]any, len(outcomes))
	for i, o := range outcomes {
		payloads[i] = o.Payload()
	}
	return Encode(payloads, pretty)
}
