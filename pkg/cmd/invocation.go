// Package cmd is the transport-agnostic command core. A command has a name,
// a description and a Run; adapters decide how it is reached (prefix message,
// slash command, component) and what it receives.
package cmd

import "context"

// Invocation is what a runner hands to a command: the name it was reached
// under (possibly an alias) and the adapter's context in Data.
type Invocation struct {
	Name string
	Data interface{}
}

type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

// Aliased is implemented by commands reachable under extra names.
type Aliased interface {
	Aliases() []string
}
