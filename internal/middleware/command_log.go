package middleware

import (
	"context"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/say-relay/internal/command"
	"github.com/keshon/say-relay/internal/metrics"
	"github.com/keshon/say-relay/internal/storage"
	"github.com/keshon/say-relay/pkg/cmd"
)

const maxParamLength = 100

// WithCommandLogger records every command that ran without error into the
// audit log and counts it in metrics. Storage failures are only logged.
func WithCommandLogger(store *storage.Storage, m *metrics.Metrics, log zerolog.Logger) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			err := c.Run(ctx, inv)
			m.CommandRun(c.Name())
			if err != nil || store == nil {
				return err
			}

			o, ok := command.OriginOf(inv.Data)
			if !ok || o.User == nil {
				return err
			}
			rec := storage.CommandHistoryRecord{
				GuildID:   o.GuildID,
				ChannelID: o.ChannelID,
				UserID:    o.User.ID,
				Username:  o.User.Username,
				Command:   c.Name(),
				Param:     truncate(paramOf(inv.Data), maxParamLength),
			}
			if o.Session != nil {
				rec.ChannelName, rec.GuildName = resolveNames(o.Session, o.GuildID, o.ChannelID, log)
			}
			if e := store.SetCommand(o.GuildID, rec); e != nil {
				log.Warn().Err(e).Str("command", c.Name()).Msg("failed to log command")
			}
			return err
		})
	}
}

func paramOf(data interface{}) string {
	switch v := data.(type) {
	case *command.MessageContext:
		return v.Raw
	case *command.SlashInteractionContext:
		if v.Event.Type != discordgo.InteractionApplicationCommand {
			return ""
		}
		for _, opt := range v.Event.ApplicationCommandData().Options {
			if opt.Name == "message" && opt.Type == discordgo.ApplicationCommandOptionString {
				return opt.StringValue()
			}
		}
	case *command.ComponentInteractionContext:
		if v.Event.Type == discordgo.InteractionMessageComponent {
			return v.Event.MessageComponentData().CustomID
		}
	}
	return ""
}

// resolveNames looks channel and guild up in state first, then over REST.
func resolveNames(s *discordgo.Session, guildID, channelID string, log zerolog.Logger) (channelName, guildName string) {
	channel, err := s.State.Channel(channelID)
	if err != nil {
		channel, err = s.Channel(channelID)
		if err != nil {
			log.Warn().Err(err).Str("channel_id", channelID).Msg("failed to fetch channel")
		}
	}
	if channel != nil {
		channelName = channel.Name
	}
	if guildID == "" {
		return channelName, ""
	}

	guild, err := s.State.Guild(guildID)
	if err != nil {
		guild, err = s.Guild(guildID)
		if err != nil {
			log.Warn().Err(err).Str("guild_id", guildID).Msg("failed to fetch guild")
		}
	}
	if guild != nil {
		guildName = guild.Name
	}
	return channelName, guildName
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
