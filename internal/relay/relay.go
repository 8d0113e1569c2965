package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/say-relay/internal/metrics"
	"github.com/keshon/say-relay/pkg/jobmgr"
)

// Envelope is one message to forward.
type Envelope struct {
	Channel         *discordgo.Channel
	Content         string
	Files           []*discordgo.File
	AllowedMentions *discordgo.MessageAllowedMentions
	Reference       *discordgo.MessageReference
	DeleteAfter     time.Duration
}

// dmNoticeLifetime replaces a short-lived notice's DeleteAfter once it lands
// in the invoker's DMs.
const dmNoticeLifetime = 15 * time.Second

// Notice is a status message for the person who invoked a command. It goes to
// ChannelID when set, and to the user's DMs when that is empty or fails.
type Notice struct {
	ChannelID   string
	UserID      string
	Content     string
	Embed       *discordgo.MessageEmbed
	DeleteAfter time.Duration
}

// Relay sends messages on behalf of the bot.
type Relay struct {
	transport Transport
	jobs      *jobmgr.Manager
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

type Option func(*Relay)

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Relay) { r.metrics = m }
}

func WithLogger(log zerolog.Logger) Option {
	return func(r *Relay) { r.log = log }
}

func New(t Transport, opts ...Option) *Relay {
	r := &Relay{
		transport: t,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With().Str("component", "relay").Logger()
	r.jobs = jobmgr.NewManager(func(s string) {
		r.log.Debug().Str("job", s).Msg("deferred job")
	})
	return r
}

// Transport returns the client the relay sends through.
func (r *Relay) Transport() Transport { return r.transport }

// Metrics returns the instruments the relay records to; may be nil.
func (r *Relay) Metrics() *metrics.Metrics { return r.metrics }

// Send forwards env to its channel. Exactly one message is created on
// success and none on any error. Errors wrap one of ErrEmptyContent,
// ErrSendForbidden, ErrAttachForbidden or ErrSendFailed.
func (r *Relay) Send(env Envelope) (*discordgo.Message, error) {
	if env.Channel == nil {
		r.metrics.RelayResult("failed")
		return nil, fmt.Errorf("%w: no target channel", ErrSendFailed)
	}
	if env.Content == "" && len(env.Files) == 0 {
		r.metrics.RelayResult("empty")
		return nil, ErrEmptyContent
	}

	if env.Channel.GuildID != "" {
		perms, err := r.transport.UserChannelPermissions(r.transport.BotUserID(), env.Channel.ID)
		if err != nil {
			r.metrics.RelayResult("failed")
			return nil, fmt.Errorf("%w: resolve permissions: %w", ErrSendFailed, err)
		}
		if !CanSend(perms) {
			r.metrics.RelayResult("forbidden")
			return nil, ErrSendForbidden
		}
		if len(env.Files) > 0 && !CanAttachFiles(perms) {
			r.metrics.RelayResult("attach_forbidden")
			return nil, ErrAttachForbidden
		}
	}

	mentions := env.AllowedMentions
	if mentions == nil {
		mentions = DefaultMentions()
	}
	msg, err := r.transport.ChannelMessageSendComplex(env.Channel.ID, &discordgo.MessageSend{
		Content:         env.Content,
		Files:           env.Files,
		AllowedMentions: mentions,
		Reference:       env.Reference,
	})
	if err != nil {
		r.metrics.RelayResult("failed")
		r.log.Error().Err(err).Str("channel_id", env.Channel.ID).Msg("failed to send message")
		return nil, fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	r.metrics.RelayResult("ok")

	if env.DeleteAfter > 0 {
		r.DeleteLater(msg.ChannelID, msg.ID, env.DeleteAfter)
	}
	return msg, nil
}

// DeleteLater removes a message after d. Failures are logged and dropped.
func (r *Relay) DeleteLater(channelID, messageID string, d time.Duration) {
	name := "delete:" + channelID + ":" + messageID
	err := r.jobs.After(name, d, func(ctx context.Context) error {
		return r.transport.ChannelMessageDelete(channelID, messageID)
	})
	if err != nil {
		r.log.Debug().Err(err).Str("job", name).Msg("deletion not scheduled")
	}
}

// PendingDeletions lists scheduled deletions that have not fired yet.
func (r *Relay) PendingDeletions() []string {
	return r.jobs.List()
}

// Notify delivers n, falling back to a DM. If both fail the error is logged
// and swallowed: there is nowhere left to report it.
func (r *Relay) Notify(n Notice) {
	send := &discordgo.MessageSend{
		Content:         n.Content,
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	}
	if n.Embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{n.Embed}
	}

	var errs []error
	if n.ChannelID != "" {
		msg, err := r.transport.ChannelMessageSendComplex(n.ChannelID, send)
		if err == nil {
			if n.DeleteAfter > 0 {
				r.DeleteLater(msg.ChannelID, msg.ID, n.DeleteAfter)
			}
			return
		}
		errs = append(errs, err)
	}

	if n.UserID != "" {
		dm, err := r.transport.UserChannelCreate(n.UserID)
		var msg *discordgo.Message
		if err == nil {
			msg, err = r.transport.ChannelMessageSendComplex(dm.ID, send)
		}
		if err == nil {
			if n.DeleteAfter > 0 {
				r.DeleteLater(msg.ChannelID, msg.ID, dmNoticeLifetime)
			}
			return
		}
		errs = append(errs, err)
	}

	r.log.Warn().Err(errors.Join(errs...)).
		Str("channel_id", n.ChannelID).
		Str("user_id", n.UserID).
		Msg("could not deliver notice")
}

// Close cancels pending deletions.
func (r *Relay) Close() {
	r.jobs.StopAll()
}
