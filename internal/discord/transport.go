package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/keshon/say-relay/internal/relay"
)

// Transport adapts a gateway session to relay.Transport. Lookups hit the
// state cache before REST.
type Transport struct {
	*discordgo.Session
}

var _ relay.Transport = (*Transport)(nil)

func NewTransport(s *discordgo.Session) *Transport {
	return &Transport{Session: s}
}

func (t *Transport) BotUserID() string {
	if t.State != nil && t.State.User != nil {
		return t.State.User.ID
	}
	return ""
}

// MemberColor is the colour of the member's highest coloured role, 0 when
// unknown.
func (t *Transport) MemberColor(userID, channelID string) int {
	if t.State == nil {
		return 0
	}
	return t.State.UserColor(userID, channelID)
}

func (t *Transport) Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if t.State != nil {
		if ch, err := t.State.Channel(channelID); err == nil {
			return ch, nil
		}
	}
	return t.Session.Channel(channelID, options...)
}

func (t *Transport) Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error) {
	if t.State != nil {
		if g, err := t.State.Guild(guildID); err == nil {
			return g, nil
		}
	}
	return t.Session.Guild(guildID, options...)
}

func (t *Transport) GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	if t.State != nil {
		if g, err := t.State.Guild(guildID); err == nil && len(g.Roles) > 0 {
			return g.Roles, nil
		}
	}
	return t.Session.GuildRoles(guildID, options...)
}
