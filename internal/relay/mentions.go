package relay

import (
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
)

var roleMentionRegex = regexp.MustCompile(`<@&([0-9]{17,19})>`)

// MentionDecision is the outcome of ResolveMentions. The zero value
// suppresses every mention.
type MentionDecision struct {
	Everyone bool
	Roles    []*discordgo.Role
}

// AllowedMentions renders the decision for a message send.
func (d MentionDecision) AllowedMentions() *discordgo.MessageAllowedMentions {
	am := &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}}
	if !d.Everyone && len(d.Roles) == 0 {
		return am
	}
	am.Parse = append(am.Parse, discordgo.AllowedMentionTypeUsers)
	if d.Everyone {
		am.Parse = append(am.Parse, discordgo.AllowedMentionTypeEveryone)
	}
	for _, r := range d.Roles {
		am.Roles = append(am.Roles, r.ID)
	}
	return am
}

// DefaultMentions lets user pings through and blocks roles and mass mentions.
func DefaultMentions() *discordgo.MessageAllowedMentions {
	return &discordgo.MessageAllowedMentions{
		Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
	}
}

// ExtractRoleIDs returns the distinct role IDs referenced by <@&id> tokens.
func ExtractRoleIDs(raw string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, m := range roleMentionRegex.FindAllStringSubmatch(raw, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		ids = append(ids, m[1])
	}
	return ids
}

// HasMassMention reports whether raw contains @everyone or @here. Plain
// substring match: code blocks and escapes are not taken into account.
func HasMassMention(raw string) bool {
	return strings.Contains(raw, "@everyone") || strings.Contains(raw, "@here")
}

// ResolveMentions decides which role and mass mentions in raw may be honored.
// The bot gate is evaluated first, then the invoking user's; the first denial
// wins. Role IDs that do not resolve against guildRoles are dropped.
func ResolveMentions(raw string, guildRoles []*discordgo.Role, botPerms, userPerms int64) (MentionDecision, error) {
	byID := make(map[string]*discordgo.Role, len(guildRoles))
	for _, r := range guildRoles {
		if r != nil {
			byID[r.ID] = r
		}
	}

	var requested []*discordgo.Role
	for _, id := range ExtractRoleIDs(raw) {
		if r, ok := byID[id]; ok {
			requested = append(requested, r)
		}
	}
	mass := HasMassMention(raw)

	if len(requested) == 0 && !mass {
		return MentionDecision{}, nil
	}

	var locked []string
	for _, r := range requested {
		if !r.Mentionable {
			locked = append(locked, r.Name)
		}
	}

	gates := []struct {
		gate  Gate
		perms int64
	}{
		{GateBot, botPerms},
		{GateUser, userPerms},
	}
	for _, g := range gates {
		if CanMentionEveryone(g.perms) {
			continue
		}
		if len(locked) > 0 {
			return MentionDecision{}, &MentionError{Gate: g.gate, Roles: locked}
		}
		if mass {
			return MentionDecision{}, &MentionError{Gate: g.gate, Mass: true}
		}
	}

	return MentionDecision{Everyone: mass, Roles: requested}, nil
}
