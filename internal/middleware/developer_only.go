package middleware

import (
	"context"

	"github.com/keshon/say-relay/internal/command"
	"github.com/keshon/say-relay/internal/config"
	"github.com/keshon/say-relay/pkg/cmd"
)

// WithDeveloperOnly restricts commands that report DeveloperOnly to the
// configured developer. Everyone else is answered with a short refusal.
func WithDeveloperOnly(t command.Translator) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			d, ok := cmd.Root(c).(command.DeveloperOnly)
			if !ok || !d.DeveloperOnly() {
				return c.Run(ctx, inv)
			}
			o, ok := command.OriginOf(inv.Data)
			if ok && o.User != nil && config.IsDeveloper(o.Config, o.User.ID) {
				return c.Run(ctx, inv)
			}
			_ = reply(inv.Data, t("errors.developer_only"))
			return nil
		})
	}
}
