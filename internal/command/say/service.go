// Package say implements the commands that make the bot speak on behalf of
// privileged users: say, sayad, sayd, saym, interact, the /say slash command
// and sayinfo.
package say

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/say-relay/internal/command"
	"github.com/keshon/say-relay/internal/middleware"
	"github.com/keshon/say-relay/internal/relay"
	"github.com/keshon/say-relay/pkg/cmd"
)

const (
	category = "📢 Say"

	// noticeLifetime is how long short notices stay in the invoking channel.
	noticeLifetime = 2 * time.Second
)

// Service bundles what the say commands share.
type Service struct {
	Relay      *relay.Relay
	Sessions   *relay.Manager
	Downloader *relay.Downloader
	T          command.Translator
	EmbedColor int
	Log        zerolog.Logger
}

func (s *Service) transport() relay.Transport { return s.Relay.Transport() }

// Register adds every say command to reg. mws wrap each of them; sayinfo is
// additionally restricted to the developer.
func Register(reg *cmd.Registry, svc *Service, mws ...cmd.Middleware) error {
	commands := []command.DiscordCommand{
		&SayCommand{base{svc: svc}},
		&SayAutoDeleteCommand{base{svc: svc}},
		&SayDeleteCommand{base{svc: svc}},
		&SayMentionsCommand{base{svc: svc}},
		&InteractCommand{svc: svc},
	}
	for _, c := range commands {
		if err := command.RegisterCommand(reg, c, mws...); err != nil {
			return err
		}
	}
	info := append([]cmd.Middleware{middleware.WithDeveloperOnly(svc.T)}, mws...)
	return command.RegisterCommand(reg, &SayInfoCommand{svc: svc, registry: reg}, info...)
}

// request is a prefix invocation reduced to what the commands read.
type request struct {
	guildID     string
	channelID   string
	messageID   string
	author      *discordgo.User
	raw         string
	attachments []*discordgo.MessageAttachment
}

func requestOf(v *command.MessageContext) request {
	m := v.Event.Message
	return request{
		guildID:     m.GuildID,
		channelID:   m.ChannelID,
		messageID:   m.ID,
		author:      m.Author,
		raw:         v.Raw,
		attachments: m.Attachments,
	}
}

// notify answers the invoker in the invoking channel, falling back to DMs.
func (s *Service) notify(req request, content string, lifetime time.Duration) {
	s.Relay.Notify(relay.Notice{
		ChannelID:   req.channelID,
		UserID:      req.author.ID,
		Content:     content,
		DeleteAfter: lifetime,
	})
}

// deliver sends text and files to target, or to the invoking channel when
// target is nil, and reports failures to the invoker.
func (s *Service) deliver(req request, target *discordgo.Channel, text string, files []*discordgo.File, mentions *discordgo.MessageAllowedMentions, deleteAfter time.Duration) error {
	if target == nil {
		ch, err := s.transport().Channel(req.channelID)
		if err != nil {
			return fmt.Errorf("resolve invoking channel: %w", err)
		}
		target = ch
	}

	_, err := s.Relay.Send(relay.Envelope{
		Channel:         target,
		Content:         text,
		Files:           files,
		AllowedMentions: mentions,
		DeleteAfter:     deleteAfter,
	})
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, relay.ErrSendForbidden):
		n := relay.Notice{
			UserID:      req.author.ID,
			Content:     s.T("say.not_allowed", "<#"+target.ID+">"),
			DeleteAfter: noticeLifetime,
		}
		if target.ID != req.channelID {
			n.ChannelID = req.channelID
		}
		s.Relay.Notify(n)
	case errors.Is(err, relay.ErrAttachForbidden):
		s.notify(req, s.T("say.no_attach", "<#"+target.ID+">"), noticeLifetime)
	case errors.Is(err, relay.ErrEmptyContent):
		s.notify(req, s.T("say.empty"), 0)
	default:
		s.Log.Error().Err(err).
			Str("channel_id", target.ID).
			Str("user_id", req.author.ID).
			Msg("failed to send message")
		s.notify(req, s.T("say.failed"), 0)
	}
	return nil
}

// failureText maps a relay error to what the invoker is told.
func (s *Service) failureText(err error, target *discordgo.Channel) string {
	var mentionErr *relay.MentionError
	switch {
	case errors.As(err, &mentionErr):
		return s.mentionText(mentionErr)
	case errors.Is(err, relay.ErrSendForbidden):
		return s.T("say.not_allowed", "<#"+target.ID+">")
	case errors.Is(err, relay.ErrAttachForbidden):
		return s.T("say.no_attach", "<#"+target.ID+">")
	case errors.Is(err, relay.ErrEmptyContent):
		return s.T("say.empty")
	}
	return s.T("say.failed")
}
