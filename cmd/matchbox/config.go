package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// serveConfig holds the settings of the serve command. Values read from a
// -config file are defaults that explicitly set flags override.
type serveConfig struct {
	Server struct {
		Addr            string        `yaml:"addr"`
		Pretty          bool          `yaml:"pretty"`
		Timeout         time.Duration `yaml:"timeout"`
		MaxBody         int64         `yaml:"maxBody"`
		CORS            []string      `yaml:"cors"`
		MetadataHeaders []string      `yaml:"metadataHeaders"`
		GraphiQL        bool          `yaml:"graphiql"`
	} `yaml:"server"`
	Otel struct {
		Endpoint string `yaml:"endpoint"`
		Service  string `yaml:"service"`
	} `yaml:"otel"`
	Log struct {
		V int `yaml:"v"`
	} `yaml:"log"`
	Echo struct {
		Seed []string `yaml:"seed"`
	} `yaml:"echo"`
}

func defaultServeConfig() serveConfig {
	var c serveConfig
	c.Server.Addr = ":8080"
	c.Server.Timeout = 10 * time.Second
	c.Server.MaxBody = 1 << 20
	c.Otel.Service = "matchbox"
	return c
}

func loadServeConfig(path string, c *serveConfig) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func serveFlags(c *serveConfig, configPath *string) *flag.FlagSet {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(configPath, "config", *configPath, "YAML config file")
	fs.StringVar(&c.Server.Addr, "server.addr", c.Server.Addr, "HTTP listen address")
	fs.BoolVar(&c.Server.Pretty, "server.pretty", c.Server.Pretty, "Pretty-print JSON responses")
	fs.DurationVar(&c.Server.Timeout, "server.timeout", c.Server.Timeout, "Per-request timeout")
	fs.Int64Var(&c.Server.MaxBody, "server.max-body", c.Server.MaxBody, "Maximum request body size in bytes")
	fs.Var((*stringListFlag)(&c.Server.CORS), "server.cors", "Allowed CORS origin")
	fs.Var((*stringListFlag)(&c.Server.MetadataHeaders), "server.metadata-header", "Forward HTTP header to resolvers as gRPC metadata")
	fs.BoolVar(&c.Server.GraphiQL, "server.graphiql", c.Server.GraphiQL, "Serve the GraphiQL IDE")
	fs.StringVar(&c.Otel.Endpoint, "otel.endpoint", c.Otel.Endpoint, "OTLP collector endpoint")
	fs.StringVar(&c.Otel.Service, "otel.service", c.Otel.Service, "OpenTelemetry service name")
	fs.IntVar(&c.Log.V, "log.v", c.Log.V, "Log verbosity")
	fs.Var((*stringListFlag)(&c.Echo.Seed), "echo.seed", "Message archived at startup")
	return fs
}

// parseServeArgs resolves the serve configuration: defaults, then the
// -config file, then flags. A repeatable flag given on the command line
// replaces the list from the file.
func parseServeArgs(args []string) (serveConfig, error) {
	var configPath string
	probe := defaultServeConfig()
	if err := serveFlags(&probe, &configPath).Parse(args); err != nil {
		return serveConfig{}, err
	}

	c := defaultServeConfig()
	if configPath != "" {
		if err := loadServeConfig(configPath, &c); err != nil {
			return serveConfig{}, err
		}
	}
	fs := serveFlags(&c, &configPath)
	set := map[string]bool{}
	for _, a := range args {
		if name, ok := flagName(a); ok {
			set[name] = true
		}
	}
	// Lists from the file are dropped when the flag is repeated on the command line.
	if set["server.cors"] {
		c.Server.CORS = nil
	}
	if set["server.metadata-header"] {
		c.Server.MetadataHeaders = nil
	}
	if set["echo.seed"] {
		c.Echo.Seed = nil
	}
	if err := fs.Parse(args); err != nil {
		return serveConfig{}, err
	}
	if fs.NArg() > 0 {
		return serveConfig{}, fmt.Errorf("unexpected arguments %q", fs.Args())
	}
	return c, nil
}

func flagName(arg string) (string, bool) {
	if !strings.HasPrefix(arg, "-") || arg == "-" || arg == "--" {
		return "", false
	}
	name := strings.TrimLeft(arg, "-")
	if i := strings.IndexByte(name, '='); i >= 0 {
		name = name[:i]
	}
	return name, true
}

type stringListFlag []string

func (s *stringListFlag) String() string {
	if s == nil {
		return ""
	}
	return strings.Join(*s, ",")
}

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}
