package discord

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/say-relay/internal/command"
	"github.com/keshon/say-relay/internal/config"
	"github.com/keshon/say-relay/internal/relay"
	"github.com/keshon/say-relay/internal/storage"
	"github.com/keshon/say-relay/pkg/cmd"
	"github.com/keshon/say-relay/pkg/retrylimit"
)

// Options are the collaborators a Bot dispatches to.
type Options struct {
	Config   *config.Config
	Storage  *storage.Storage
	Registry *cmd.Registry
	Hub      *relay.EventHub
	T        command.Translator
	Log      zerolog.Logger
}

// Bot is a Discord bot
type Bot struct {
	dg       *discordgo.Session
	cfg      *config.Config
	storage  *storage.Storage
	registry *cmd.Registry
	hub      *relay.EventHub
	t        command.Translator
	log      zerolog.Logger

	limiter  *retrylimit.AdaptiveLimiter
	cacheDir string
	ctx      context.Context
}

func NewBot(dg *discordgo.Session, opts Options) *Bot {
	return &Bot{
		dg:       dg,
		cfg:      opts.Config,
		storage:  opts.Storage,
		registry: opts.Registry,
		hub:      opts.Hub,
		t:        opts.T,
		log:      opts.Log.With().Str("component", "discord").Logger(),
		limiter:  retrylimit.NewAdaptiveLimiter(5, 1, 40, 1, 0.5),
		cacheDir: filepath.Join(filepath.Dir(opts.Config.StoragePath), "commands"),
		ctx:      context.Background(),
	}
}

// Prefixes are the configured prefixes plus mentions of the bot.
func (b *Bot) Prefixes() []string {
	botID := ""
	if b.dg.State != nil && b.dg.State.User != nil {
		botID = b.dg.State.User.ID
	}
	return command.Prefixes(b.cfg.Prefixes, botID)
}

// Run opens the gateway connection and blocks until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	b.dg.Identify.Intents = discordgo.IntentsAll

	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onGuildCreate)
	b.dg.AddHandler(b.onMessageCreate)
	b.dg.AddHandler(b.onInteractionCreate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	b.log.Info().Msg("shutdown signal received, closing gateway")
	return nil
}

// onReady is called when the bot is ready
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	for _, g := range r.Guilds {
		if b.cfg.IsGuildBlacklisted(g.ID) {
			b.leaveGuild(s, g.ID)
			continue
		}
		if !b.cfg.InitSlash {
			continue
		}
		if err := b.registerCommands(g.ID); err != nil {
			b.log.Error().Err(err).Str("guild_id", g.ID).Msg("error registering slash commands")
		}
	}
	if !b.cfg.InitSlash {
		b.log.Info().Msg("registering slash commands skipped")
	}
	b.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("discord bot is running")
}

// onGuildCreate is called when the bot joins a guild or a guild becomes available.
func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil || g.Unavailable {
		return
	}
	if b.cfg.IsGuildBlacklisted(g.ID) {
		b.leaveGuild(s, g.ID)
		return
	}
	b.log.Debug().Str("guild_id", g.ID).Str("guild", g.Name).Msg("guild available")
	if !b.cfg.InitSlash {
		return
	}
	if err := b.registerCommands(g.ID); err != nil {
		b.log.Error().Err(err).Str("guild_id", g.ID).Msg("failed to register commands for guild")
	}
}

func (b *Bot) leaveGuild(s *discordgo.Session, guildID string) {
	b.log.Info().Str("guild_id", guildID).Msg("leaving blacklisted guild")
	if err := s.GuildLeave(guildID); err != nil {
		b.log.Error().Err(err).Str("guild_id", guildID).Msg("failed to leave guild")
	}
}

// onMessageCreate feeds every message to the session hub, then runs prefix
// commands.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil || m.Author == nil {
		return
	}
	b.hub.Publish(m.Message)

	if m.Author.Bot || m.Author.ID == s.State.User.ID {
		return
	}
	if m.GuildID != "" && b.cfg.IsGuildBlacklisted(m.GuildID) {
		return
	}

	prefix, name, raw, ok := command.ParseMessage(m.Content, b.Prefixes())
	if !ok {
		return
	}
	c := b.registry.Get(name)
	if c == nil {
		return
	}

	data := &command.MessageContext{
		Session: s,
		Event:   m,
		Storage: b.storage,
		Config:  b.cfg,
		Prefix:  prefix,
		Raw:     raw,
		Args:    strings.Fields(raw),
	}
	if err := b.runCommand(c, name, data); err != nil {
		b.log.Error().Err(err).Str("command", c.Name()).Str("channel_id", m.ChannelID).Msg("error running command")
		_ = command.MessageEmbed(s, m.ChannelID, b.errorEmbed())
	}
}

// onInteractionCreate dispatches slash commands by name and components by
// the command name that prefixes their custom ID.
func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name := i.ApplicationCommandData().Name
		c := b.registry.Get(name)
		if c == nil {
			b.log.Warn().Str("command", name).Msg("unknown command")
			return
		}
		data := &command.SlashInteractionContext{Session: s, Event: i, Storage: b.storage, Config: b.cfg}
		if err := b.runCommand(c, name, data); err != nil {
			b.log.Error().Err(err).Str("command", name).Msg("error running slash command")
			b.respondError(s, i)
		}

	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		c := b.componentOwner(customID)
		if c == nil {
			b.log.Warn().Str("custom_id", customID).Msg("no command for component")
			return
		}
		if _, ok := cmd.Root(c).(command.ComponentInteractionHandler); !ok {
			b.log.Warn().Str("command", c.Name()).Msg("command does not handle components")
			return
		}
		data := &command.ComponentInteractionContext{Session: s, Event: i, Storage: b.storage, Config: b.cfg}
		if err := b.runCommand(c, c.Name(), data); err != nil {
			b.log.Error().Err(err).Str("custom_id", customID).Msg("error running component")
			b.respondError(s, i)
		}

	default:
		b.log.Debug().Int("type", int(i.Type)).Msg("unhandled interaction type")
	}
}

func (b *Bot) componentOwner(customID string) cmd.Command {
	for _, c := range b.registry.GetAll() {
		if customID == c.Name() || strings.HasPrefix(customID, c.Name()+":") {
			return c
		}
	}
	return nil
}

func (b *Bot) runCommand(c cmd.Command, name string, data interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", c.Name(), r)
		}
	}()
	ctx, cancel := context.WithTimeout(b.ctx, 5*time.Minute)
	defer cancel()
	return c.Run(ctx, &cmd.Invocation{Name: name, Data: data})
}

func (b *Bot) errorEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: b.t("errors.generic"),
		Color:       b.cfg.EmbedColor,
	}
}

// respondError answers an interaction, or follows up when it was already
// acknowledged.
func (b *Bot) respondError(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := command.RespondEmbedEphemeral(s, i, b.errorEmbed()); err == nil {
		return
	}
	if err := command.FollowupEphemeral(s, i, b.t("errors.generic")); err != nil {
		b.log.Debug().Err(err).Msg("could not report error to interaction")
	}
}
