package say

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/say-relay/internal/command"
	"github.com/keshon/say-relay/internal/relay"
)

func (c *SayCommand) SlashDefinition() *discordgo.ApplicationCommand {
	adminOnly := int64(discordgo.PermissionAdministrator)
	noDM := false
	minDelay := 1.0
	return &discordgo.ApplicationCommand{
		Name:                     c.Name(),
		Description:              "Make the bot send a message",
		Type:                     discordgo.ChatApplicationCommand,
		DefaultMemberPermissions: &adminOnly,
		DMPermission:             &noDM,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "message",
				Description: "The content of the message you want to send",
			},
			{
				Type:         discordgo.ApplicationCommandOptionChannel,
				Name:         "channel",
				Description:  "The channel where you want to send the message (default to current)",
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews},
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "delete_after",
				Description: "Delete the message sent after X seconds",
				MinValue:    &minDelay,
			},
			{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        "mentions",
				Description: "Allow @everyone, @here and role mentions in your message",
			},
			{
				Type:        discordgo.ApplicationCommandOptionAttachment,
				Name:        "file",
				Description: "A file you want to attach to the message sent (message content becomes optional)",
			},
		},
	}
}

type slashOptions struct {
	message      string
	channelID    string
	deleteAfter  time.Duration
	mentions     bool
	attachmentID string
}

func parseSlashOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) slashOptions {
	var o slashOptions
	for _, opt := range opts {
		switch opt.Name {
		case "message":
			o.message = opt.StringValue()
		case "channel":
			o.channelID, _ = opt.Value.(string)
		case "delete_after":
			if n := opt.IntValue(); n > 0 {
				o.deleteAfter = time.Duration(n) * time.Second
			}
		case "mentions":
			o.mentions = opt.BoolValue()
		case "file":
			o.attachmentID, _ = opt.Value.(string)
		}
	}
	return o
}

// runSlash handles /say. The interaction is deferred while attachments
// download; on success the placeholder is deleted so only the relayed
// message remains.
func (c *SayCommand) runSlash(ctx context.Context, v *command.SlashInteractionContext) error {
	s, e := v.Session, v.Event
	data := e.ApplicationCommandData()
	opts := parseSlashOptions(data.Options)

	if opts.message == "" && opts.attachmentID == "" {
		return command.RespondEphemeral(s, e, c.svc.T("say.empty"))
	}
	if err := command.RespondDeferredEphemeral(s, e); err != nil {
		return err
	}

	channelID := opts.channelID
	if channelID == "" {
		channelID = e.ChannelID
	}
	target, err := c.svc.transport().Channel(channelID)
	if err != nil {
		return command.EditResponse(s, e, c.svc.T("say.bad_channel"))
	}

	var files []*discordgo.File
	if opts.attachmentID != "" && data.Resolved != nil {
		if att, ok := data.Resolved.Attachments[opts.attachmentID]; ok {
			files = c.svc.Downloader.Files(ctx, []*discordgo.MessageAttachment{att})
		}
	}

	mentions := relay.DefaultMentions()
	if opts.mentions {
		mentions, err = c.svc.mentionsFor(target, command.Invoker(e).ID, opts.message)
		if err != nil {
			var me *relay.MentionError
			if errors.As(err, &me) {
				c.svc.Relay.Metrics().MentionDenied(string(me.Gate))
			}
			return command.EditResponse(s, e, c.svc.failureText(err, target))
		}
	}

	_, err = c.svc.Relay.Send(relay.Envelope{
		Channel:         target,
		Content:         opts.message,
		Files:           files,
		AllowedMentions: mentions,
		DeleteAfter:     opts.deleteAfter,
	})
	if err != nil {
		c.svc.Log.Error().Err(err).
			Str("channel_id", target.ID).
			Str("user_id", command.Invoker(e).ID).
			Msg("cannot send slash message")
		return command.EditResponse(s, e, c.svc.failureText(err, target))
	}

	if err := command.DeleteResponse(s, e); err != nil {
		return command.EditResponse(s, e, c.svc.T("say.slash_done"))
	}
	return nil
}
