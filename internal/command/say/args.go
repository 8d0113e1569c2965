package say

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/say-relay/internal/command"
)

var (
	channelMentionRegex = regexp.MustCompile(`^<#([0-9]{17,20})>$`)
	snowflakeRegex      = regexp.MustCompile(`^[0-9]{17,20}$`)

	errBadChannel = errors.New("channel not usable here")
	errBadDelay   = errors.New("delay must be a positive number of seconds")
)

// channelRef classifies token as a channel reference. A mention or bare ID
// yields id; "#name" yields name; anything else is plain text.
func channelRef(token string) (id, name string, mention bool) {
	if m := channelMentionRegex.FindStringSubmatch(token); m != nil {
		return m[1], "", true
	}
	if snowflakeRegex.MatchString(token) {
		return token, "", false
	}
	if len(token) > 1 && strings.HasPrefix(token, "#") {
		return "", strings.ToLower(token[1:]), false
	}
	return "", "", false
}

// textChannel reports whether messages can be posted in ch.
func textChannel(ch *discordgo.Channel) bool {
	switch ch.Type {
	case discordgo.ChannelTypeGuildCategory, discordgo.ChannelTypeGuildForum:
		return false
	}
	return true
}

// resolveChannel looks token up as a channel. matched is false when token is
// not a channel reference and should be read as text. Channels of another
// guild, or that cannot hold messages, are errBadChannel.
func (s *Service) resolveChannel(req request, token string) (ch *discordgo.Channel, matched bool, err error) {
	id, name, mention := channelRef(token)
	t := s.transport()

	switch {
	case id != "":
		ch, err = t.Channel(id)
		if err != nil {
			if mention {
				return nil, true, fmt.Errorf("%w: %w", errBadChannel, err)
			}
			return nil, false, nil
		}
	case name != "" && req.guildID != "":
		g, err := t.Guild(req.guildID)
		if err != nil {
			return nil, false, nil
		}
		for _, c := range g.Channels {
			if strings.ToLower(c.Name) == name && textChannel(c) {
				ch = c
				break
			}
		}
		if ch == nil {
			return nil, false, nil
		}
	default:
		return nil, false, nil
	}

	if !textChannel(ch) {
		return nil, true, errBadChannel
	}
	if req.guildID != "" && ch.GuildID != req.guildID {
		return nil, true, errBadChannel
	}
	return ch, true, nil
}

// splitChannel reads an optional leading channel off the request text.
func (s *Service) splitChannel(req request) (*discordgo.Channel, string, error) {
	token, rest := command.ShiftArg(req.raw)
	if token == "" {
		return nil, "", nil
	}
	ch, matched, err := s.resolveChannel(req, token)
	if err != nil {
		return nil, "", err
	}
	if !matched {
		return nil, strings.TrimSpace(req.raw), nil
	}
	return ch, rest, nil
}

// parseDelay reads a whole number of seconds greater than zero.
func parseDelay(token string) (time.Duration, error) {
	n, err := strconv.Atoi(token)
	if err != nil || n <= 0 {
		return 0, errBadDelay
	}
	return time.Duration(n) * time.Second, nil
}
