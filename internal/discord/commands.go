package discord

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/say-relay/internal/command"
	"github.com/keshon/say-relay/pkg/cmd"
	"github.com/keshon/say-relay/pkg/retrylimit"
)

// registerCommands syncs slash commands for a guild with Discord:
// deletes obsolete ones, creates/updates commands whose definition has changed.
func (b *Bot) registerCommands(guildID string) error {
	appID, err := b.appID()
	if err != nil {
		return err
	}

	remote, err := b.dg.ApplicationCommands(appID, guildID)
	if err != nil {
		return fmt.Errorf("list commands: %w", err)
	}
	remoteByName := make(map[string]*discordgo.ApplicationCommand, len(remote))
	for _, c := range remote {
		remoteByName[c.Name] = c
	}

	local := buildCommandDefinitions(b.registry)
	hashes := b.loadCommandHashes(guildID)

	b.deleteObsoleteCommands(appID, guildID, remoteByName, local, hashes)
	b.upsertChangedCommands(appID, guildID, local, remoteByName, hashes)
	return b.saveCommandHashes(guildID, hashes)
}

// buildCommandDefinitions returns ApplicationCommand definitions for all registered commands.
func buildCommandDefinitions(reg *cmd.Registry) []*discordgo.ApplicationCommand {
	var defs []*discordgo.ApplicationCommand
	for _, c := range reg.GetAll() {
		if def := commandDefinition(c); def != nil {
			defs = append(defs, def)
		}
	}
	return defs
}

// commandDefinition extracts the ApplicationCommand definition from a registered command,
// walking through middleware wrappers via cmd.Root.
func commandDefinition(c cmd.Command) *discordgo.ApplicationCommand {
	slash, ok := cmd.Root(c).(command.SlashProvider)
	if !ok {
		return nil
	}
	def := slash.SlashDefinition()
	if def == nil {
		return nil
	}
	if def.Type == 0 {
		def.Type = discordgo.ChatApplicationCommand
	}
	return def
}

// deleteObsoleteCommands removes commands from Discord that are no longer in the local registry.
func (b *Bot) deleteObsoleteCommands(appID, guildID string, remote map[string]*discordgo.ApplicationCommand, local []*discordgo.ApplicationCommand, hashes map[string]string) {
	localNames := make(map[string]struct{}, len(local))
	for _, d := range local {
		localNames[d.Name] = struct{}{}
	}

	for name, rc := range remote {
		if _, exists := localNames[name]; exists {
			continue
		}
		id := rc.ID
		err := b.withRetry(func() error {
			return b.dg.ApplicationCommandDelete(appID, guildID, id)
		})
		if err != nil {
			b.log.Error().Err(err).Str("guild_id", guildID).Str("command", name).Msg("failed to delete obsolete command")
			continue
		}
		delete(hashes, name)
		b.log.Info().Str("guild_id", guildID).Str("command", name).Msg("deleted obsolete command")
	}
}

// upsertChangedCommands creates or updates commands whose hash differs from
// the cached value or that Discord does not know about.
func (b *Bot) upsertChangedCommands(appID, guildID string, defs []*discordgo.ApplicationCommand, remote map[string]*discordgo.ApplicationCommand, hashes map[string]string) {
	for _, d := range defs {
		h := hashCommand(d)
		if _, registered := remote[d.Name]; registered && hashes[d.Name] == h {
			continue
		}
		def := d
		err := b.withRetry(func() error {
			_, err := b.dg.ApplicationCommandCreate(appID, guildID, def)
			return err
		})
		if err != nil {
			b.log.Error().Err(err).Str("guild_id", guildID).Str("command", d.Name).Msg("failed to register command")
			continue
		}
		hashes[d.Name] = h
		b.log.Info().Str("guild_id", guildID).Str("command", d.Name).Msg("registered command")
	}
}

func (b *Bot) withRetry(fn func() error) error {
	cfg := retrylimit.DefaultRetryConfig()
	cfg.StatusOf = restStatus
	cfg.Log = b.log
	return retrylimit.WithRetryConfig(b.ctx, fn, b.limiter, cfg)
}

// restStatus extracts the HTTP status of a failed REST call.
func restStatus(err error) (int, bool) {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		return rest.Response.StatusCode, true
	}
	return retrylimit.HTTPStatus(err)
}

// appID returns the bot's application ID, fetching from Discord if not cached in State.
func (b *Bot) appID() (string, error) {
	if b.dg.State != nil && b.dg.State.User != nil && b.dg.State.User.ID != "" {
		return b.dg.State.User.ID, nil
	}
	u, err := b.dg.User("@me")
	if err != nil {
		return "", fmt.Errorf("failed to fetch bot user: %w", err)
	}
	return u.ID, nil
}

// --- Command hash cache ---

func (b *Bot) commandHashPath(guildID string) string {
	return filepath.Join(b.cacheDir, guildID+".json")
}

func (b *Bot) loadCommandHashes(guildID string) map[string]string {
	out := make(map[string]string)
	if data, err := os.ReadFile(b.commandHashPath(guildID)); err == nil {
		_ = json.Unmarshal(data, &out)
	}
	return out
}

func (b *Bot) saveCommandHashes(guildID string, hashes map[string]string) error {
	path := b.commandHashPath(guildID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("command cache: %w", err)
	}
	data, err := json.MarshalIndent(hashes, "", "  ")
	if err != nil {
		return fmt.Errorf("command cache: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
