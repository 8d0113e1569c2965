package say

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/say-relay/internal/command"
	"github.com/keshon/say-relay/internal/relay"
	"github.com/keshon/say-relay/internal/version"
	"github.com/keshon/say-relay/pkg/cmd"
)

// SayInfoCommand tells the developer about the running module.
type SayInfoCommand struct {
	svc      *Service
	registry *cmd.Registry
}

func (c *SayInfoCommand) Name() string             { return "sayinfo" }
func (c *SayInfoCommand) Description() string      { return "Get information about the module" }
func (c *SayInfoCommand) Category() string         { return category }
func (c *SayInfoCommand) UserPermissions() []int64 { return nil }
func (c *SayInfoCommand) DeveloperOnly() bool      { return true }

func (c *SayInfoCommand) Run(ctx context.Context, data interface{}) error {
	v, ok := data.(*command.MessageContext)
	if !ok {
		return nil
	}
	req := requestOf(v)
	c.svc.Relay.Notify(relay.Notice{
		ChannelID: req.channelID,
		UserID:    req.author.ID,
		Embed: &discordgo.MessageEmbed{
			Title:       version.AppName,
			Description: c.svc.T("info.body", version.AppName, version.Version, version.Description, version.Repository),
			Color:       c.svc.EmbedColor,
			Fields:      c.commandFields(),
		},
	})
	return nil
}

// commandFields lists registered commands grouped by category.
func (c *SayInfoCommand) commandFields() []*discordgo.MessageEmbedField {
	byCategory := make(map[string][]string)
	for _, rc := range c.registry.GetAll() {
		cat := "Other"
		if meta, ok := cmd.Root(rc).(command.DiscordMeta); ok && meta.Category() != "" {
			cat = meta.Category()
		}
		line := fmt.Sprintf("`%s`: %s", rc.Name(), rc.Description())
		if a, ok := cmd.Root(rc).(cmd.Aliased); ok && len(a.Aliases()) > 0 {
			line += fmt.Sprintf(" (%s)", strings.Join(a.Aliases(), ", "))
		}
		byCategory[cat] = append(byCategory[cat], line)
	}

	cats := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	fields := make([]*discordgo.MessageEmbedField, 0, len(cats))
	for _, cat := range cats {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  cat,
			Value: strings.Join(byCategory[cat], "\n"),
		})
	}
	return fields
}
