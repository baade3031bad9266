package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Cito/graphql-server-core/internal/eventbus"
	"github.com/Cito/graphql-server-core/internal/graphql"
	"github.com/Cito/graphql-server-core/internal/logging"
	"github.com/Cito/graphql-server-core/internal/otel"
	"github.com/Cito/graphql-server-core/internal/server"
)

const rootUsage = `graphql-server — GraphQL HTTP endpoint over a static data document

USAGE:
  graphql-server <command> [flags]

COMMANDS:
  serve            Serve a GraphQL endpoint for an SDL schema and JSON data file
  check            Validate an SDL schema file
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -schema <file>              GraphQL SDL schema file (required)
  -data <file>                JSON document backing root fields
  -server.addr <addr>         HTTP listen address (default: :8080)
  -server.pretty              Pretty-print JSON responses
  -server.batch               Enable batched (array) requests
  -server.timeout <duration>  Per-request timeout, e.g. 10s (default: 10s)
  -server.max-body <bytes>    Max request body size, 0 for unlimited
  -server.cors <origin>       Allowed CORS origin. Repeatable
  -server.graphiql <bool>     Serve the GraphiQL IDE on GET (default: true)
  -otel.endpoint <addr>       OTLP collector endpoint
  -otel.service <name>        OpenTelemetry service name (default: graphql-server)
  -log.level <level>          Log level: trace..panic (default: info)
`

const checkUsage = `check FLAGS:
  -schema <file>  GraphQL SDL schema file (required)
  (Exits non-zero when the schema does not validate)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("graphql-server", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs)
	case "check":
		return cmdCheck(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Print(serveUsage)
	case "check":
		fmt.Print(checkUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func cmdServe(args []string) error {
	schemaFile := ""
	dataFile := ""
	addr := ":8080"
	pretty := false
	batch := false
	timeout := 10 * time.Second
	maxBody := int64(0)
	graphiql := true
	otelEndpoint := ""
	otelService := "graphql-server"
	logLevel := "info"
	var corsOrigins stringListFlag

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaFile, "schema", schemaFile, "GraphQL SDL schema file")
	fs.StringVar(&dataFile, "data", dataFile, "JSON document backing root fields")
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.BoolVar(&pretty, "server.pretty", pretty, "Pretty-print JSON responses")
	fs.BoolVar(&batch, "server.batch", batch, "Enable batched requests")
	fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request timeout")
	fs.Int64Var(&maxBody, "server.max-body", maxBody, "Max request body size")
	fs.Var(&corsOrigins, "server.cors", "Allowed CORS origin")
	fs.BoolVar(&graphiql, "server.graphiql", graphiql, "Serve the GraphiQL IDE")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	fs.StringVar(&logLevel, "log.level", logLevel, "Log level")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}
	if schemaFile == "" {
		fmt.Fprint(os.Stderr, serveUsage)
		return fmt.Errorf("-schema is required")
	}

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q", logLevel)
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	sdl, err := os.ReadFile(schemaFile)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	schema, err := graphql.LoadSchema(string(sdl), nil)
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}

	var rootValue any
	if dataFile != "" {
		raw, err := os.ReadFile(dataFile)
		if err != nil {
			return fmt.Errorf("read data: %w", err)
		}
		if err := json.Unmarshal(raw, &rootValue); err != nil {
			return fmt.Errorf("parse data: %w", err)
		}
	}

	eventbus.Use(eventbus.New())
	logging.Attach(logger)
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	sopts := []server.Option{
		server.WithGraphiQL(graphiql),
		server.WithRootValue(rootValue),
	}
	if pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if batch {
		sopts = append(sopts, server.WithBatch())
	}
	if timeout > 0 {
		sopts = append(sopts, server.WithTimeout(timeout))
	}
	if maxBody > 0 {
		sopts = append(sopts, server.WithMaxBodyBytes(maxBody))
	}
	if len(corsOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(corsOrigins...))
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", server.New(schema, sopts...))

	logger.Info().Str("addr", addr).Msg("GraphQL server listening")
	return http.ListenAndServe(addr, mux)
}

func cmdCheck(args []string) error {
	schemaFile := ""
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaFile, "schema", schemaFile, "GraphQL SDL schema file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, checkUsage)
		return err
	}
	if schemaFile == "" {
		fmt.Fprint(os.Stderr, checkUsage)
		return fmt.Errorf("-schema is required")
	}
	sdl, err := os.ReadFile(schemaFile)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := graphql.LoadSchema(string(sdl), nil); err != nil {
		return fmt.Errorf("schema does not validate: %w", err)
	}
	fmt.Println("schema ok")
	return nil
}
