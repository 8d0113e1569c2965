package cmd

import "context"

// Middleware decorates a command's Run. It must return a command built with
// Wrap so Root can still reach the original.
type Middleware func(Command) Command

// Apply wraps c so that mws[0] is the outermost layer and runs first.
func Apply(c Command, mws ...Middleware) Command {
	for i := len(mws) - 1; i >= 0; i-- {
		c = mws[i](c)
	}
	return c
}

type layer struct {
	inner Command
	run   func(ctx context.Context, inv *Invocation) error
}

func (l *layer) Name() string        { return l.inner.Name() }
func (l *layer) Description() string { return l.inner.Description() }
func (l *layer) unwrap() Command     { return l.inner }

func (l *layer) Run(ctx context.Context, inv *Invocation) error {
	return l.run(ctx, inv)
}

// Wrap returns c with its Run replaced by run. Calling next from run is up to
// the caller:
//
//	return cmd.Wrap(next, func(ctx context.Context, inv *cmd.Invocation) error {
//		// before
//		return next.Run(ctx, inv)
//	})
func Wrap(c Command, run func(ctx context.Context, inv *Invocation) error) Command {
	if run == nil {
		run = c.Run
	}
	return &layer{inner: c, run: run}
}

// Root peels every middleware layer off c, so adapters can type-assert the
// command they registered against their provider interfaces.
func Root(c Command) Command {
	for {
		l, ok := c.(*layer)
		if !ok {
			return c
		}
		c = l.unwrap()
	}
}
