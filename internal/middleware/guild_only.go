package middleware

import (
	"context"

	"github.com/keshon/say-relay/internal/command"
	"github.com/keshon/say-relay/internal/config"
	"github.com/keshon/say-relay/pkg/cmd"
)

// reply is swapped in tests to keep denials off the network.
var reply = command.Reply

// WithGuildOnly wraps a command to enforce guild-only access. The developer
// and commands marked DirectMessageCapable may still run from DMs.
func WithGuildOnly(t command.Translator) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			o, ok := command.OriginOf(inv.Data)
			if !ok || o.GuildID != "" {
				return c.Run(ctx, inv)
			}
			if o.User != nil && config.IsDeveloper(o.Config, o.User.ID) {
				return c.Run(ctx, inv)
			}
			if dm, ok := cmd.Root(c).(command.DirectMessageCapable); ok && dm.AllowDirectMessage() {
				return c.Run(ctx, inv)
			}
			_ = reply(inv.Data, t("errors.guild_only"))
			return nil
		})
	}
}
