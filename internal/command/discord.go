package command

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/say-relay/internal/config"
	"github.com/keshon/say-relay/internal/storage"
	"github.com/keshon/say-relay/pkg/cmd"
)

// Discord-specific contexts (what the runtime passes when executing).

type SlashInteractionContext struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
	Storage *storage.Storage
	Config  *config.Config
}

type ComponentInteractionContext struct {
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
	Storage *storage.Storage
	Config  *config.Config
}

// MessageContext is a prefix command typed in a channel or DM.
type MessageContext struct {
	Session *discordgo.Session
	Event   *discordgo.MessageCreate
	Storage *storage.Storage
	Config  *config.Config

	Prefix string
	// Raw is everything after the command name, with its line breaks kept.
	Raw  string
	Args []string
}

// Providers: how a command is exposed on Discord besides prefix messages.

type SlashProvider interface {
	SlashDefinition() *discordgo.ApplicationCommand
}

type ComponentInteractionHandler interface {
	Component(*ComponentInteractionContext) error
}

// DeveloperOnly marks commands reserved for the configured developer.
type DeveloperOnly interface {
	DeveloperOnly() bool
}

// DirectMessageCapable marks permission-gated commands that may run from a DM.
// They check the invoker's permissions against their target channel themselves.
type DirectMessageCapable interface {
	AllowDirectMessage() bool
}

// DiscordMeta is exposed by the Discord adapter so middleware can read
// Category/Permissions without depending on the concrete command type.
type DiscordMeta interface {
	Category() string
	UserPermissions() []int64
}

// DiscordCommand is what individual Discord commands implement. data is one
// of the contexts above.
type DiscordCommand interface {
	Name() string
	Description() string
	Category() string
	UserPermissions() []int64
	Run(ctx context.Context, data interface{}) error
}

// DiscordAdapter adapts a DiscordCommand to cmd.Command so it can live in the
// registry. Optional interfaces are delegated to the inner command.
type DiscordAdapter struct {
	Cmd DiscordCommand
}

func (a *DiscordAdapter) Name() string             { return a.Cmd.Name() }
func (a *DiscordAdapter) Description() string      { return a.Cmd.Description() }
func (a *DiscordAdapter) Category() string         { return a.Cmd.Category() }
func (a *DiscordAdapter) UserPermissions() []int64 { return a.Cmd.UserPermissions() }

func (a *DiscordAdapter) Run(ctx context.Context, inv *cmd.Invocation) error {
	return a.Cmd.Run(ctx, inv.Data)
}

func (a *DiscordAdapter) Aliases() []string {
	if al, ok := a.Cmd.(cmd.Aliased); ok {
		return al.Aliases()
	}
	return nil
}

func (a *DiscordAdapter) SlashDefinition() *discordgo.ApplicationCommand {
	if sp, ok := a.Cmd.(SlashProvider); ok {
		return sp.SlashDefinition()
	}
	return nil
}

func (a *DiscordAdapter) Component(ctx *ComponentInteractionContext) error {
	if ch, ok := a.Cmd.(ComponentInteractionHandler); ok {
		return ch.Component(ctx)
	}
	return nil
}

func (a *DiscordAdapter) DeveloperOnly() bool {
	if d, ok := a.Cmd.(DeveloperOnly); ok {
		return d.DeveloperOnly()
	}
	return false
}

func (a *DiscordAdapter) AllowDirectMessage() bool {
	if d, ok := a.Cmd.(DirectMessageCapable); ok {
		return d.AllowDirectMessage()
	}
	return false
}

// RegisterCommand adds a Discord command to reg with middlewares applied, the
// first middleware being the outermost.
func RegisterCommand(reg *cmd.Registry, discordCmd DiscordCommand, mws ...cmd.Middleware) error {
	c := cmd.Apply(&DiscordAdapter{Cmd: discordCmd}, mws...)
	if err := reg.Register(c); err != nil {
		return fmt.Errorf("register %s: %w", discordCmd.Name(), err)
	}
	return nil
}

// Invoker returns the user behind an interaction, in guilds or DMs.
func Invoker(e *discordgo.InteractionCreate) *discordgo.User {
	if e.Member != nil && e.Member.User != nil {
		return e.Member.User
	}
	if e.User != nil {
		return e.User
	}
	return &discordgo.User{ID: "unknown", Username: "Unknown"}
}

// Translator resolves a localized message key.
type Translator func(key string, args ...any) string

// Origin is where and by whom a command was invoked.
type Origin struct {
	Session   *discordgo.Session
	Config    *config.Config
	GuildID   string
	ChannelID string
	User      *discordgo.User
}

// OriginOf extracts the Origin of any of the contexts above.
func OriginOf(data interface{}) (Origin, bool) {
	switch v := data.(type) {
	case *SlashInteractionContext:
		return Origin{v.Session, v.Config, v.Event.GuildID, v.Event.ChannelID, Invoker(v.Event)}, true
	case *ComponentInteractionContext:
		return Origin{v.Session, v.Config, v.Event.GuildID, v.Event.ChannelID, Invoker(v.Event)}, true
	case *MessageContext:
		return Origin{v.Session, v.Config, v.Event.GuildID, v.Event.ChannelID, v.Event.Author}, true
	}
	return Origin{}, false
}
