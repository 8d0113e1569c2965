package relay

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestGuard(t *testing.T) {
	tests := []struct {
		name    string
		perms   int64
		send    bool
		attach  bool
		massive bool
	}{
		{"none", 0, false, false, false},
		{"send only", discordgo.PermissionSendMessages, true, false, false},
		{"send and attach", discordgo.PermissionSendMessages | discordgo.PermissionAttachFiles, true, true, false},
		{"mention everyone", discordgo.PermissionMentionEveryone, false, false, true},
		{"administrator", discordgo.PermissionAdministrator, true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.send, CanSend(tt.perms))
			assert.Equal(t, tt.attach, CanAttachFiles(tt.perms))
			assert.Equal(t, tt.massive, CanMentionEveryone(tt.perms))
		})
	}
}

func TestCanMentionRole(t *testing.T) {
	open := &discordgo.Role{ID: "1", Mentionable: true}
	locked := &discordgo.Role{ID: "2"}

	assert.True(t, CanMentionRole(open, 0))
	assert.False(t, CanMentionRole(locked, 0))
	assert.True(t, CanMentionRole(locked, discordgo.PermissionMentionEveryone))
	assert.False(t, CanMentionRole(nil, discordgo.PermissionAdministrator))
}
