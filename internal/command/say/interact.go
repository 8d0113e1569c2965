package say

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/say-relay/internal/command"
	"github.com/keshon/say-relay/internal/config"
	"github.com/keshon/say-relay/internal/middleware"
	"github.com/keshon/say-relay/internal/relay"
)

// InteractCommand opens an interactive session: the invoker's DMs are
// relayed into a channel and the channel is mirrored back to them.
type InteractCommand struct {
	svc *Service
}

func (c *InteractCommand) Name() string      { return "interact" }
func (c *InteractCommand) Aliases() []string { return []string{"intr"} }
func (c *InteractCommand) Description() string {
	return "Start receiving and sending messages as the bot through DM"
}
func (c *InteractCommand) Category() string         { return category }
func (c *InteractCommand) UserPermissions() []int64 { return []int64{discordgo.PermissionAdministrator} }

// AllowDirectMessage lets interact run from DMs; the invoker's permissions
// are then checked in the target channel.
func (c *InteractCommand) AllowDirectMessage() bool { return true }

func (c *InteractCommand) Run(ctx context.Context, data interface{}) error {
	switch v := data.(type) {
	case *command.MessageContext:
		return c.start(v)
	case *command.ComponentInteractionContext:
		return c.Component(v)
	}
	return nil
}

func (c *InteractCommand) start(v *command.MessageContext) error {
	svc := c.svc
	req := requestOf(v)
	token, _ := command.ShiftArg(req.raw)

	var target *discordgo.Channel
	if token == "" {
		if req.guildID == "" {
			svc.notify(req, svc.T("session.channel_required"), 0)
			return nil
		}
		ch, err := svc.transport().Channel(req.channelID)
		if err != nil {
			return err
		}
		target = ch
	} else {
		ch, matched, err := svc.resolveChannel(req, token)
		if err != nil || !matched {
			svc.notify(req, svc.T("say.bad_channel"), 0)
			return nil
		}
		target = ch
	}
	if target.GuildID == "" {
		svc.notify(req, svc.T("say.bad_channel"), 0)
		return nil
	}

	if req.guildID == "" && !config.IsDeveloper(v.Config, req.author.ID) {
		perms, err := svc.transport().UserChannelPermissions(req.author.ID, target.ID)
		if err != nil || !middleware.HasAny(perms, c.UserPermissions()) {
			svc.notify(req, svc.T("errors.permission", middleware.PermissionList(c.UserPermissions())), 0)
			return nil
		}
	}

	_, err := svc.Sessions.Start(req.author, target)
	switch {
	case err == nil:
		if req.guildID != "" {
			svc.notify(req, svc.T("session.started_ack"), 0)
		}
		return nil
	case errors.Is(err, relay.ErrSessionAlreadyActive):
		svc.notify(req, svc.T("session.already_running"), 0)
		return nil
	case errors.Is(err, relay.ErrSendFailed):
		svc.Log.Warn().Err(err).Str("user_id", req.author.ID).Msg("could not open session DM")
		svc.notify(req, svc.T("session.dm_failed"), 0)
		return nil
	}
	return err
}

// Component handles the End Session button.
func (c *InteractCommand) Component(v *command.ComponentInteractionContext) error {
	e := v.Event
	if e.MessageComponentData().CustomID != relay.StopButtonID {
		return nil
	}
	user := command.Invoker(e)
	stopped := c.svc.Sessions.Stop(user.ID)

	row := relay.StopButtonRow(c.svc.T("session.stop_button"), true)
	if err := command.RespondUpdateComponents(v.Session, e, []discordgo.MessageComponent{row}); err != nil {
		return err
	}
	if !stopped {
		return command.FollowupEphemeral(v.Session, e, c.svc.T("session.not_running"))
	}
	return nil
}
