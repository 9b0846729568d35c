package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"

	"github.com/hanpama/matchbox/internal/echo"
	"github.com/hanpama/matchbox/internal/engine"
	"github.com/hanpama/matchbox/internal/eventbus"
	"github.com/hanpama/matchbox/internal/otel"
	"github.com/hanpama/matchbox/internal/registry"
	"github.com/hanpama/matchbox/internal/schema"
	"github.com/hanpama/matchbox/internal/server"
	"github.com/hanpama/matchbox/internal/validation"
)

const rootUsage = `matchbox: schema-directed GraphQL validation, coercion and execution

USAGE:
  matchbox <command> [flags]

COMMANDS:
  serve            Run the echo demo GraphQL server over HTTP
  check            Validate and coerce a query against a schema
  print-schema     Print a schema as normalized SDL
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -config <file>                  YAML config file; flags override its values
  -server.addr <addr>             HTTP listen address (default: :8080)
  -server.pretty                  Pretty-print JSON responses
  -server.timeout <duration>      Per-request timeout, e.g. 10s (default: 10s)
  -server.max-body <bytes>        Maximum request body size (default: 1048576)
  -server.cors <origin>           Allowed CORS origin. Repeatable; * allows all
  -server.metadata-header <name>  Forward HTTP header to resolvers as gRPC metadata. Repeatable
  -server.graphiql                Serve the GraphiQL IDE to browsers
  -echo.seed <message>            Message archived at startup. Repeatable
  -otel.endpoint <addr>           OTLP collector endpoint
  -otel.service <name>            OpenTelemetry service name (default: matchbox)
  -log.v <level>                  Log verbosity (default: 0)
`

const checkUsage = `check FLAGS:
  -schema <file>      GraphQL SDL file (default: the echo demo schema)
  -query <file>       Query document; - reads stdin (required)
  -variables <file>   JSON object with variable values
  -operation <name>   Operation to check when the document has several
  (Prints the coerced operation as JSON; exits non-zero on errors)
`

const printSchemaUsage = `print-schema FLAGS:
  -schema <file>  GraphQL SDL file (default: the echo demo schema)
  -out <file>     Write SDL to file (default: stdout)
`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("matchbox", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs, stderr)
	case "check":
		return cmdCheck(cmdArgs, stdin, stdout, stderr)
	case "print-schema":
		return cmdPrintSchema(cmdArgs, stdout, stderr)
	case "help":
		return cmdHelp(cmdArgs, stdout)
	default:
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Fprint(stdout, serveUsage)
	case "check":
		fmt.Fprint(stdout, checkUsage)
	case "print-schema":
		fmt.Fprint(stdout, printSchemaUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

func newLogger(stderr io.Writer, v int) logr.Logger {
	stdr.SetVerbosity(v)
	return stdr.New(log.New(stderr, "", log.LstdFlags))
}

func cmdServe(args []string, stderr io.Writer) error {
	cfg, err := parseServeArgs(args)
	if err != nil {
		fmt.Fprint(stderr, serveUsage)
		return err
	}
	logger := newLogger(stderr, cfg.Log.V)

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(cfg.Otel.Endpoint, cfg.Otel.Service, logger.WithName("otel"))
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	reg, err := echo.Registry()
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}
	eng := engine.New(reg, engine.Options{Logger: logger.WithName("engine")})
	resolver := echo.NewResolver(echo.NewArchive(cfg.Echo.Seed...), logger.WithName("echo"))

	sopts := []server.Option{
		server.WithLogger(logger.WithName("server")),
		server.WithGraphiQL(cfg.Server.GraphiQL),
		server.WithMaxBodyBytes(cfg.Server.MaxBody),
	}
	if cfg.Server.Pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if cfg.Server.Timeout > 0 {
		sopts = append(sopts, server.WithTimeout(cfg.Server.Timeout))
	}
	if len(cfg.Server.CORS) > 0 {
		sopts = append(sopts, server.WithCORS(cfg.Server.CORS...))
	}
	if len(cfg.Server.MetadataHeaders) > 0 {
		sopts = append(sopts, server.WithMetadataHeaders(cfg.Server.MetadataHeaders...))
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", server.New(eng, resolver, sopts...))
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("GraphQL server listening", "addr", cfg.Server.Addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func loadRegistry(path string) (*registry.Registry, *schema.Schema, error) {
	if path == "" {
		reg, err := echo.Registry()
		if err != nil {
			return nil, nil, err
		}
		return reg, reg.Schema(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	s, err := schema.BuildFromSDL(path, string(b))
	if err != nil {
		return nil, nil, fmt.Errorf("build schema: %w", err)
	}
	reg := registry.New(s)
	if err := validation.CheckSchemaDefaults(reg); err != nil {
		return nil, nil, fmt.Errorf("build schema: %w", err)
	}
	return reg, s, nil
}

func cmdCheck(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	schemaFile := ""
	queryFile := ""
	varsFile := ""
	opName := ""
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaFile, "schema", schemaFile, "GraphQL SDL file")
	fs.StringVar(&queryFile, "query", queryFile, "Query document")
	fs.StringVar(&varsFile, "variables", varsFile, "JSON variables file")
	fs.StringVar(&opName, "operation", opName, "Operation name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, checkUsage)
		return err
	}
	if queryFile == "" {
		fmt.Fprint(stderr, checkUsage)
		return fmt.Errorf("-query is required")
	}

	reg, _, err := loadRegistry(schemaFile)
	if err != nil {
		return err
	}
	var query []byte
	if queryFile == "-" {
		query, err = io.ReadAll(stdin)
	} else {
		query, err = os.ReadFile(queryFile)
	}
	if err != nil {
		return fmt.Errorf("read query: %w", err)
	}
	var vars map[string]any
	if varsFile != "" {
		b, err := os.ReadFile(varsFile)
		if err != nil {
			return fmt.Errorf("read variables: %w", err)
		}
		if vars, err = engine.DecodeVariables(b); err != nil {
			return err
		}
	}

	op, err := engine.Prepare(reg, engine.Request{Query: string(query), OperationName: opName, Variables: vars})
	if err != nil {
		return describe(err)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(op)
}

// describe prefixes validation failures with their kind and first location.
func describe(err error) error {
	var ve *validation.Error
	if !errors.As(err, &ve) {
		return err
	}
	if len(ve.Locations) > 0 {
		return fmt.Errorf("%s at %d:%d: %s", ve.Kind, ve.Locations[0].Line, ve.Locations[0].Column, ve.Message)
	}
	return fmt.Errorf("%s: %s", ve.Kind, ve.Message)
}

func cmdPrintSchema(args []string, stdout, stderr io.Writer) error {
	schemaFile := ""
	outFile := ""
	fs := flag.NewFlagSet("print-schema", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaFile, "schema", schemaFile, "GraphQL SDL file")
	fs.StringVar(&outFile, "out", outFile, "Write SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, printSchemaUsage)
		return err
	}

	_, s, err := loadRegistry(schemaFile)
	if err != nil {
		return err
	}
	sdl := schema.Render(s)
	if outFile == "" {
		_, err := fmt.Fprint(stdout, sdl)
		return err
	}
	return os.WriteFile(outFile, []byte(sdl), 0644)
}
