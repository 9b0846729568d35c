// Package echo is a small demo service: it archives messages sent with the
// echo mutation and serves them back through queries.
package echo

import (
	registry "github.com/hanpama/matchbox/internal/registry"
	schema "github.com/hanpama/matchbox/internal/schema"
	validation "github.com/hanpama/matchbox/internal/validation"
)

// SDL is the schema served by the echo resolver.
const SDL = `
schema {
  query: EchoQuery
  mutation: EchoMutation
}

type EchoQuery {
  "Every archived message, oldest first."
  pastEchoes: [String!]!
  echo(index: Int!): Echo
  echoes(indices: [Int!]!): [Echo]!
  count: Int!
}

type EchoMutation {
  "Archives message. A missing message is archived as the empty string."
  echo(message: String): Echo!
}

type Echo {
  index: Int!
  message: String!
  shout(times: Int = 1): String!
}
`

// Registry builds the registry of SDL.
func Registry() (*registry.Registry, error) {
	s, err := schema.BuildFromSDL("echo.graphql", SDL)
	if err != nil {
		return nil, err
	}
	reg := registry.New(s)
	if err := validation.CheckSchemaDefaults(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
