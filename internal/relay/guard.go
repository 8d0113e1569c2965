package relay

import "github.com/bwmarrin/discordgo"

// has reports whether perms grants flag. Administrator implies everything.
func has(perms, flag int64) bool {
	if perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return perms&flag == flag
}

// CanSend reports whether perms allows sending messages in a channel.
func CanSend(perms int64) bool {
	return has(perms, discordgo.PermissionSendMessages)
}

// CanAttachFiles reports whether perms allows uploading files.
func CanAttachFiles(perms int64) bool {
	return has(perms, discordgo.PermissionAttachFiles)
}

// CanMentionEveryone reports whether perms allows @everyone, @here and
// mentions of non-mentionable roles.
func CanMentionEveryone(perms int64) bool {
	return has(perms, discordgo.PermissionMentionEveryone)
}

// CanMentionRole reports whether role can be pinged by an actor holding perms.
func CanMentionRole(role *discordgo.Role, perms int64) bool {
	if role == nil {
		return false
	}
	return role.Mentionable || CanMentionEveryone(perms)
}
