package say

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/say-relay/internal/command"
	"github.com/keshon/say-relay/internal/relay"
)

// base carries what every relay command shares.
type base struct {
	svc *Service
}

func (b *base) Category() string         { return category }
func (b *base) UserPermissions() []int64 { return []int64{discordgo.PermissionAdministrator} }

// target parses the optional leading channel, answering the invoker when it
// is unusable. ok is false when the command should stop.
func (b *base) target(req request) (*discordgo.Channel, string, bool) {
	ch, rest, err := b.svc.splitChannel(req)
	if errors.Is(err, errBadChannel) {
		b.svc.notify(req, b.svc.T("say.bad_channel"), 0)
		return nil, "", false
	}
	if err != nil {
		b.svc.Log.Warn().Err(err).Msg("channel lookup failed")
		b.svc.notify(req, b.svc.T("say.bad_channel"), 0)
		return nil, "", false
	}
	return ch, rest, true
}

// SayCommand relays text and attachments as the bot. It also serves /say.
type SayCommand struct {
	base
}

func (c *SayCommand) Name() string { return "say" }
func (c *SayCommand) Description() string {
	return "Make the bot say what you want in the desired channel"
}

func (c *SayCommand) Run(ctx context.Context, data interface{}) error {
	switch v := data.(type) {
	case *command.MessageContext:
		req := requestOf(v)
		target, text, ok := c.target(req)
		if !ok {
			return nil
		}
		files := c.svc.Downloader.Files(ctx, req.attachments)
		return c.svc.deliver(req, target, text, files, relay.DefaultMentions(), 0)
	case *command.SlashInteractionContext:
		return c.runSlash(ctx, v)
	}
	return nil
}

// SayAutoDeleteCommand relays like say and deletes the message after a delay.
type SayAutoDeleteCommand struct {
	base
}

func (c *SayAutoDeleteCommand) Name() string      { return "sayad" }
func (c *SayAutoDeleteCommand) Aliases() []string { return []string{"say-autodelete"} }
func (c *SayAutoDeleteCommand) Description() string {
	return "Same as say, but the message is deleted after the given number of seconds"
}

func (c *SayAutoDeleteCommand) Run(ctx context.Context, data interface{}) error {
	v, ok := data.(*command.MessageContext)
	if !ok {
		return nil
	}
	req := requestOf(v)
	target, rest, ok := c.target(req)
	if !ok {
		return nil
	}
	token, text := command.ShiftArg(rest)
	delay, err := parseDelay(token)
	if err != nil {
		c.svc.notify(req, c.svc.T("say.bad_delay"), 0)
		return nil
	}
	files := c.svc.Downloader.Files(ctx, req.attachments)
	return c.svc.deliver(req, target, text, files, relay.DefaultMentions(), delay)
}

// SayDeleteCommand relays like say and removes the invoking message first.
type SayDeleteCommand struct {
	base
}

func (c *SayDeleteCommand) Name() string      { return "sayd" }
func (c *SayDeleteCommand) Aliases() []string { return []string{"sd", "say-delete"} }
func (c *SayDeleteCommand) Description() string {
	return "Same as say, but your message is deleted"
}

func (c *SayDeleteCommand) Run(ctx context.Context, data interface{}) error {
	v, ok := data.(*command.MessageContext)
	if !ok {
		return nil
	}
	req := requestOf(v)

	// attachments die with the message, fetch them first
	files := c.svc.Downloader.Files(ctx, req.attachments)

	if err := c.svc.transport().ChannelMessageDelete(req.channelID, req.messageID); err != nil {
		c.svc.Log.Warn().Err(errors.Join(relay.ErrDeleteForbidden, err)).
			Str("channel_id", req.channelID).
			Msg("could not delete invoking message")
		c.svc.notify(req, c.svc.T("say.delete_forbidden"), noticeLifetime)
	}

	target, text, ok := c.target(req)
	if !ok {
		return nil
	}
	return c.svc.deliver(req, target, text, files, relay.DefaultMentions(), 0)
}

// SayMentionsCommand relays like say with role and mass mentions enabled,
// when both the bot and the invoker may use them in the target channel.
type SayMentionsCommand struct {
	base
}

func (c *SayMentionsCommand) Name() string      { return "saym" }
func (c *SayMentionsCommand) Aliases() []string { return []string{"sm", "say-mentions"} }
func (c *SayMentionsCommand) Description() string {
	return "Same as say, but role and mass mentions are enabled"
}

func (c *SayMentionsCommand) Run(ctx context.Context, data interface{}) error {
	v, ok := data.(*command.MessageContext)
	if !ok {
		return nil
	}
	req := requestOf(v)
	target, text, ok := c.target(req)
	if !ok {
		return nil
	}
	if target == nil {
		ch, err := c.svc.transport().Channel(req.channelID)
		if err != nil {
			return err
		}
		target = ch
	}

	mentions, err := c.svc.mentionsFor(target, req.author.ID, text)
	if err != nil {
		var mentionErr *relay.MentionError
		if errors.As(err, &mentionErr) {
			c.svc.Relay.Metrics().MentionDenied(string(mentionErr.Gate))
			c.svc.notify(req, c.svc.mentionText(mentionErr), 0)
			return nil
		}
		return err
	}

	files := c.svc.Downloader.Files(ctx, req.attachments)
	return c.svc.deliver(req, target, text, files, mentions, 0)
}

// mentionsFor runs the mention policy for text sent by userID into target.
func (s *Service) mentionsFor(target *discordgo.Channel, userID, text string) (*discordgo.MessageAllowedMentions, error) {
	if target.GuildID == "" {
		return relay.DefaultMentions(), nil
	}
	if len(relay.ExtractRoleIDs(text)) == 0 && !relay.HasMassMention(text) {
		return relay.DefaultMentions(), nil
	}

	t := s.transport()
	roles, err := t.GuildRoles(target.GuildID)
	if err != nil {
		return nil, err
	}
	botPerms, err := t.UserChannelPermissions(t.BotUserID(), target.ID)
	if err != nil {
		return nil, err
	}
	userPerms, err := t.UserChannelPermissions(userID, target.ID)
	if err != nil {
		return nil, err
	}

	decision, err := relay.ResolveMentions(text, roles, botPerms, userPerms)
	if err != nil {
		return nil, err
	}
	if !decision.Everyone && len(decision.Roles) == 0 {
		return relay.DefaultMentions(), nil
	}
	return decision.AllowedMentions(), nil
}

func (s *Service) mentionText(err *relay.MentionError) string {
	roles := strings.Join(err.Roles, ", ")
	switch {
	case err.Gate == relay.GateBot && len(err.Roles) > 0:
		return s.T("mentions.bot_roles", roles)
	case err.Gate == relay.GateBot:
		return s.T("mentions.bot_everyone")
	case len(err.Roles) > 0:
		return s.T("mentions.user_roles", roles)
	}
	return s.T("mentions.user_everyone")
}
