package httpquery

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"strings"
)

// Envelope is the decoded shape of one request body: a single params object
// or an ordered batch of them. The object-vs-array discriminant of the body
// is what decides single vs batch mode for the whole request.
type Envelope struct {
	items []Source
	batch bool
}

// Single wraps one params object.
func Single(s Source) Envelope { return Envelope{items: []Source{s}, batch: false} }

// Batch wraps an ordered sequence of params objects.
func Batch(items []Source) Envelope { return Envelope{items: items, batch: true} }

// IsBatch reports whether the request body carried an array.
func (e Envelope) IsBatch() bool { return e.batch }

// Items returns the params objects in request order.
func (e Envelope) Items() []Source { return e.items }

// DecodeBody turns a raw request body and its declared content type into an
// Envelope. JSON bodies may be a single object or an array of objects; form
// bodies and raw application/graphql bodies always produce a single object.
// An unrecognized or absent content type decodes to an empty object so the
// missing query is reported downstream.
func DecodeBody(body []byte, contentType string) (Envelope, *Error) {
	mediaType := contentType
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = mt
	}

	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return decodeJSONBody(body)
	case mediaType == "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return Single(Source{}), nil
		}
		src := Source{}
		for key := range values {
			src[key] = values.Get(key)
		}
		return Single(src), nil
	case mediaType == "application/graphql":
		return Single(Source{"query": string(body)}), nil
	default:
		return Single(Source{}), nil
	}
}

func decodeJSONBody(body []byte) (Envelope, *Error) {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Envelope{}, badRequest("POST body sent invalid JSON.")
	}
	switch v := decoded.(type) {
	case map[string]any:
		return Single(Source(v)), nil
	case []any:
		items := make([]Source, len(v))
		for i, entry := range v {
			obj, ok := entry.(map[string]any)
			if !ok {
				return Envelope{}, badRequest(fmt.Sprintf("GraphQL params should be a dict. Received %v.", entry))
			}
			items[i] = Source(obj)
		}
		return Batch(items), nil
	default:
		return Envelope{}, badRequest(fmt.Sprintf("GraphQL params should be a dict. Received %v.", v))
	}
}
