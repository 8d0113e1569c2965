package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/say-relay/internal/config"
	"github.com/keshon/say-relay/pkg/cmd"
)

func sayDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        "say",
		Description: "Make the bot say something",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "message", Description: "Text"},
			{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Where"},
		},
	}
}

func TestHashCommandStable(t *testing.T) {
	a := sayDefinition()
	b := sayDefinition()
	b.ID = "123"
	b.Version = "9"
	b.Options[0], b.Options[1] = b.Options[1], b.Options[0]

	assert.Equal(t, hashCommand(a), hashCommand(b))
}

func TestHashCommandChanges(t *testing.T) {
	base := hashCommand(sayDefinition())

	changed := sayDefinition()
	changed.Options[0].Required = true
	assert.NotEqual(t, base, hashCommand(changed))

	perms := int64(discordgo.PermissionAdministrator)
	restricted := sayDefinition()
	restricted.DefaultMemberPermissions = &perms
	assert.NotEqual(t, base, hashCommand(restricted))
}

func TestCommandHashCache(t *testing.T) {
	b := NewBot(nil, Options{Config: &config.Config{StorageConfig: config.StorageConfig{StoragePath: t.TempDir() + "/store"}}, Registry: cmd.NewRegistry()})

	assert.Empty(t, b.loadCommandHashes("g1"))
	require.NoError(t, b.saveCommandHashes("g1", map[string]string{"say": "abc"}))
	assert.Equal(t, map[string]string{"say": "abc"}, b.loadCommandHashes("g1"))
	assert.Empty(t, b.loadCommandHashes("g2"))
}

func TestRestStatus(t *testing.T) {
	_, ok := restStatus(assert.AnError)
	assert.False(t, ok)
}
