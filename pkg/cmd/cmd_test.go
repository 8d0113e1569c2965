package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echo struct {
	name    string
	aliases []string
	ran     []string
}

func (e *echo) Name() string        { return e.name }
func (e *echo) Description() string { return "echo " + e.name }
func (e *echo) Aliases() []string   { return e.aliases }
func (e *echo) Run(ctx context.Context, inv *Invocation) error {
	e.ran = append(e.ran, inv.Name)
	return nil
}

func TestRegistryAliases(t *testing.T) {
	r := NewRegistry()
	sd := &echo{name: "sayd", aliases: []string{"sd", "say-delete"}}
	require.NoError(t, r.Register(sd))
	require.NoError(t, r.Register(&echo{name: "say"}))

	assert.Same(t, sd, r.Get("sd"))
	assert.Same(t, sd, r.Get("say-delete"))
	assert.Nil(t, r.Get("nope"))

	all := r.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, "say", all[0].Name())
}

func TestRegistryRejectsClashes(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&echo{name: "saym", aliases: []string{"sm"}}))

	assert.Error(t, r.Register(&echo{name: "sm"}))
	assert.Error(t, r.Register(&echo{name: "other", aliases: []string{"saym"}}))
	assert.Error(t, r.Register(&echo{name: "saym"}))
	assert.Nil(t, r.Get("other"))
}

func TestApplyOrder(t *testing.T) {
	var order []string
	mw := func(tag string) Middleware {
		return func(c Command) Command {
			return Wrap(c, func(ctx context.Context, inv *Invocation) error {
				order = append(order, tag)
				return c.Run(ctx, inv)
			})
		}
	}

	inner := &echo{name: "say"}
	c := Apply(inner, mw("outer"), mw("inner"))
	require.NoError(t, c.Run(context.Background(), &Invocation{Name: "say"}))

	assert.Equal(t, []string{"outer", "inner"}, order)
	assert.Equal(t, []string{"say"}, inner.ran)
	assert.Same(t, inner, Root(c))
	assert.Equal(t, "say", c.Name())
}

func TestRegisterWrappedAliases(t *testing.T) {
	r := NewRegistry()
	inner := &echo{name: "interact", aliases: []string{"intr"}}
	wrapped := Wrap(inner, inner.Run)
	require.NoError(t, r.Register(wrapped))
	assert.Same(t, wrapped, r.Get("intr"))
}
