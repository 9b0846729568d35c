package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestHelp(t *testing.T) {
	out, _, err := runCmd(t, "", "help")
	require.NoError(t, err)
	require.Contains(t, out, "COMMANDS:")

	out, _, err = runCmd(t, "", "help", "check")
	require.NoError(t, err)
	require.Contains(t, out, "-query")

	_, _, err = runCmd(t, "", "help", "nope")
	require.Error(t, err)
}

func TestUnknownCommand(t *testing.T) {
	_, stderr, err := runCmd(t, "", "frobnicate")
	require.ErrorContains(t, err, "unknown command")
	require.Contains(t, stderr, "USAGE:")

	_, _, err = runCmd(t, "")
	require.ErrorContains(t, err, "missing command")
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	sdl := writeFile(t, dir, "schema.graphql", `type Query { starship(id: ID!): Starship } type Starship { name: String }`)
	query := writeFile(t, dir, "query.graphql", `query Q($id: ID) { starship(id: $id) { name } }`)
	vars := writeFile(t, dir, "vars.json", `{"id": "Millenium Falcon!!!"}`)

	out, _, err := runCmd(t, "", "check", "-schema", sdl, "-query", query, "-variables", vars)
	require.NoError(t, err)

	var op struct {
		Name      string `json:"name"`
		Selection []struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		} `json:"selection"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &op))
	require.Equal(t, "Q", op.Name)
	require.Equal(t, "starship", op.Selection[0].Name)
	require.Equal(t, map[string]any{"id": "Millenium Falcon!!!"}, op.Selection[0].Arguments)
}

func TestCheck_InvalidSchemaDefault(t *testing.T) {
	sdl := writeFile(t, t.TempDir(), "schema.graphql", `type Query { bad(times: Int = "x"): Int }`)
	_, _, err := runCmd(t, "{ bad }", "check", "-schema", sdl, "-query", "-")
	require.ErrorContains(t, err, `default of argument Query.bad(times:)`)
}

func TestCheck_Stdin(t *testing.T) {
	out, _, err := runCmd(t, `{ echoes(indices: [1, 2]) { message } }`, "check", "-query", "-")
	require.NoError(t, err)
	require.Contains(t, out, `"echoes"`)
}

func TestCheck_ValidationError(t *testing.T) {
	_, _, err := runCmd(t, "{\n  meow\n}", "check", "-query", "-")
	require.EqualError(t, err, `INVALID_SELECTION_SET at 2:3: field "meow" is not defined on type EchoQuery`)

	_, _, err = runCmd(t, "", "check")
	require.ErrorContains(t, err, "-query is required")
}

func TestPrintSchema(t *testing.T) {
	out, _, err := runCmd(t, "", "print-schema")
	require.NoError(t, err)
	require.Contains(t, out, "type EchoQuery {")
	require.Contains(t, out, "shout(times: Int = 1): String!")

	dir := t.TempDir()
	target := filepath.Join(dir, "out.graphql")
	_, _, err = runCmd(t, "", "print-schema", "-out", target)
	require.NoError(t, err)
	b, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, out, string(b))
}

func TestParseServeArgs(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c, err := parseServeArgs(nil)
		require.NoError(t, err)
		require.Equal(t, ":8080", c.Server.Addr)
		require.Equal(t, 10*time.Second, c.Server.Timeout)
		require.Equal(t, "matchbox", c.Otel.Service)
	})

	t.Run("config file with flag overrides", func(t *testing.T) {
		cfg := writeFile(t, t.TempDir(), "matchbox.yaml", `
server:
  addr: ":9090"
  timeout: 3s
  pretty: true
  cors: ["http://a.example"]
otel:
  service: echo
log:
  v: 2
echo:
  seed: [hello, world]
`)
		c, err := parseServeArgs([]string{"-config", cfg, "-server.addr", ":7070", "-server.cors", "*"})
		require.NoError(t, err)
		require.Equal(t, ":7070", c.Server.Addr)
		require.Equal(t, 3*time.Second, c.Server.Timeout)
		require.True(t, c.Server.Pretty)
		require.Equal(t, []string{"*"}, c.Server.CORS)
		require.Equal(t, "echo", c.Otel.Service)
		require.Equal(t, 2, c.Log.V)
		require.Equal(t, []string{"hello", "world"}, c.Echo.Seed)
	})

	t.Run("unknown config key", func(t *testing.T) {
		cfg := writeFile(t, t.TempDir(), "bad.yaml", "server:\n  port: 1\n")
		_, err := parseServeArgs([]string{"-config", cfg})
		require.Error(t, err)
	})

	t.Run("bad flag", func(t *testing.T) {
		_, err := parseServeArgs([]string{"-server.timeout", "soon"})
		require.Error(t, err)
	})
}
