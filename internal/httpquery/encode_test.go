package httpquery

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/Cito/graphql-server-core/internal/graphql"
)

func TestEncodeCompactByDefault(t *testing.T) {
	body, err := Encode(map[string]any{"data": map[string]any{"test": "Hello World"}}, false)
	require.NoError(t, err)
	require.Equal(t, `{"data":{"test":"Hello World"}}`, string(body))
}

func TestEncodePretty(t *testing.T) {
	body, err := Encode(map[string]any{"data": map[string]any{"test": "Hello World"}}, true)
	require.NoError(t, err)
	want := "{\n  \"data\": {\n    \"test\": \"Hello World\"\n  }\n}"
	require.Equal(t, want, string(body))
}

func TestEncodeDoesNotEscapeHTML(t *testing.T) {
	body, err := Encode(map[string]any{"data": "<b>&</b>"}, false)
	require.NoError(t, err)
	require.Equal(t, `{"data":"<b>&</b>"}`, string(body))
}

func TestEncodeDeterministic(t *testing.T) {
	v := map[string]any{"b": 2, "a": 1, "data": map[string]any{"x": nil}}
	first, err := Encode(v, true)
	require.NoError(t, err)
	second, err := Encode(v, true)
	require.NoError(t, err)
	require.Equal(t, string(first), string(second))
}

func TestEncodeRoundTrip(t *testing.T) {
	v := map[string]any{"data": map[string]any{"list": []any{float64(1), "two", nil}}}
	body, err := Encode(v, true)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, v, decoded)
}

func TestPayloadSuccessHasOnlyData(t *testing.T) {
	o := Outcome{Response: &graphql.Response{Data: map[string]any{"test": "Hello World"}}}
	body, err := Encode(o.Payload(), false)
	require.NoError(t, err)
	require.Equal(t, `{"data":{"test":"Hello World"}}`, string(body))
}

func TestPayloadErrorsHideData(t *testing.T) {
	o := Outcome{Response: &graphql.Response{
		Data:   map[string]any{"partial": true},
		Errors: gqlerror.List{{Message: "Throws!"}},
	}}
	body, err := Encode(o.Payload(), false)
	require.NoError(t, err)
	require.Equal(t, `{"errors":[{"message":"Throws!"}]}`, string(body))
}

func TestEncodeOutcomesSingleVsBatch(t *testing.T) {
	outcomes := []Outcome{
		{Response: &graphql.Response{Data: map[string]any{"a": float64(1)}}},
	}
	single, err := EncodeOutcomes(outcomes, false, false)
	require.NoError(t, err)
	require.Equal(t, `{"data":{"a":1}}`, string(single))

	batch, err := EncodeOutcomes(outcomes, true, false)
	require.NoError(t, err)
	require.Equal(t, `[{"data":{"a":1}}]`, string(batch))
}
