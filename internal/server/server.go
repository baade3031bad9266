// Package server adapts HTTP requests to the transport core. It owns
// everything protocol-adjacent that the core does not: reading the body,
// decoding the query string, translating protocol failures into HTTP
// responses, CORS, and the GraphiQL page.
package server

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/cors"

	"github.com/Cito/graphql-server-core/internal/eventbus"
	"github.com/Cito/graphql-server-core/internal/events"
	"github.com/Cito/graphql-server-core/internal/graphql"
	"github.com/Cito/graphql-server-core/internal/httpquery"
	"github.com/Cito/graphql-server-core/internal/reqid"
)

// Handler is an http.Handler serving a GraphQL endpoint over the given
// schema.
type Handler struct {
	schema *graphql.Schema
	opt    Options
	cors   *cors.Cors
}

type Options struct {
	// Timeout sets a default timeout if the incoming request context has none.
	// 0 means no default timeout.
	Timeout time.Duration

	// Pretty enables indented JSON responses (useful for dev).
	Pretty bool

	// Batch permits array-shaped request bodies.
	Batch bool

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// AllowedOrigins enables CORS handling when non-empty.
	AllowedOrigins []string

	// GraphiQL enables the in-browser IDE when true.
	GraphiQL bool

	// RootValue is the source value of root fields.
	RootValue any
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithBatch() Option                  { return func(o *Options) { o.Batch = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.AllowedOrigins = origins }
}
func WithGraphiQL(enable bool) Option { return func(o *Options) { o.GraphiQL = enable } }
func WithRootValue(v any) Option      { return func(o *Options) { o.RootValue = v } }

// New creates a GraphQL HTTP handler for the given schema.
func New(schema *graphql.Schema, opts ...Option) *Handler {
	op := Options{Timeout: 10 * time.Second, GraphiQL: true}
	for _, f := range opts {
		f(&op)
	}
	h := &Handler{schema: schema, opt: op}
	if len(op.AllowedOrigins) > 0 {
		h.cors = cors.New(cors.Options{
			AllowedOrigins: op.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"*"},
		})
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, _ = reqid.NewContext(ctx)
	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: time.Since(start)})
	}()

	if h.cors != nil {
		h.cors.HandlerFunc(w, r)
		// Preflight ends here; without CORS configured, OPTIONS falls
		// through to the method guard's 405.
		if r.Method == http.MethodOptions {
			status = http.StatusNoContent
			w.WriteHeader(status)
			return
		}
	}

	// Serve GraphiQL when enabled and the client expects HTML.
	if r.Method == http.MethodGet && h.opt.GraphiQL && acceptsHTML(r.Header.Get("Accept")) && r.URL.Query().Get("query") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(graphiqlPage)
		return
	}

	envelope, herr := h.decodeRequest(r)
	if herr != nil {
		status = herr.Status
		h.writeError(w, herr)
		return
	}

	queryData := httpquery.Source{}
	for key := range r.URL.Query() {
		queryData[key] = r.URL.Query().Get(key)
	}

	outcomes, herr := httpquery.Run(ctx, h.schema, r.Method, envelope, queryData, httpquery.RunOptions{
		BatchEnabled: h.opt.Batch,
		RootValue:    h.opt.RootValue,
	})
	if herr != nil {
		status = herr.Status
		h.writeError(w, herr)
		return
	}

	body, err := httpquery.EncodeOutcomes(outcomes, envelope.IsBatch(), h.opt.Pretty)
	if err != nil {
		status = http.StatusInternalServerError
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, status, body)
}

// decodeRequest turns the request body into an envelope. GET requests carry
// no body; their params come from the query string alone.
func (h *Handler) decodeRequest(r *http.Request) (httpquery.Envelope, *httpquery.Error) {
	if r.Method != http.MethodPost || r.Body == nil {
		return httpquery.Single(httpquery.Source{}), nil
	}

	reader := io.Reader(r.Body)
	if h.opt.MaxBodyBytes > 0 {
		reader = io.LimitReader(r.Body, h.opt.MaxBodyBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return httpquery.Envelope{}, &httpquery.Error{Status: http.StatusBadRequest, Message: "Failed to read request body."}
	}
	defer r.Body.Close()
	if h.opt.MaxBodyBytes > 0 && int64(len(body)) > h.opt.MaxBodyBytes {
		return httpquery.Envelope{}, &httpquery.Error{Status: http.StatusRequestEntityTooLarge, Message: "Request body is too large."}
	}
	if len(body) == 0 {
		return httpquery.Single(httpquery.Source{}), nil
	}

	return httpquery.DecodeBody(body, r.Header.Get("Content-Type"))
}

func (h *Handler) writeError(w http.ResponseWriter, herr *httpquery.Error) {
	for key, value := range herr.Headers {
		w.Header().Set(key, value)
	}
	payload := map[string]any{"errors": []map[string]any{{"message": herr.Message}}}
	body, err := httpquery.Encode(payload, h.opt.Pretty)
	if err != nil {
		http.Error(w, herr.Message, herr.Status)
		return
	}
	writeJSON(w, herr.Status, body)
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func acceptsHTML(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "text/html") || part == "*/*" {
			return true
		}
	}
	return false
}
