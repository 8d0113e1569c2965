package relay

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
)

func (m *Manager) sendStartNotice(owner *discordgo.User, channel *discordgo.Channel) (*discordgo.Message, error) {
	t := m.relay.transport

	dm, err := t.UserChannelCreate(owner.ID)
	if err != nil {
		return nil, err
	}

	guildName := channel.GuildID
	if g, err := t.Guild(channel.GuildID); err == nil && g != nil && g.Name != "" {
		guildName = g.Name
	}

	now := m.now()
	idle := strings.TrimSpace(humanize.RelTime(now, now.Add(m.cfg.IdleTimeout), "", ""))

	embed := &discordgo.MessageEmbed{
		Title:       m.cfg.T("session.started.title"),
		Description: m.cfg.T("session.started.description", "<#"+channel.ID+">"),
		Color:       m.cfg.EmbedColor,
		Timestamp:   now.Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: m.cfg.T("session.started.how.name"), Value: m.cfg.T("session.started.how.value")},
			{Name: m.cfg.T("session.started.stop.name"), Value: m.cfg.T("session.started.stop.value", idle)},
			{Name: m.cfg.T("session.started.guild_name"), Value: guildName, Inline: true},
			{Name: m.cfg.T("session.started.guild_id"), Value: channel.GuildID, Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: m.cfg.T("session.started.footer", owner.Username)},
	}

	return t.ChannelMessageSendComplex(dm.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{StopButtonRow(m.cfg.T("session.stop_button"), false)},
	})
}

// StopButtonRow is the action row holding the End Session button.
func StopButtonRow(label string, disabled bool) discordgo.ActionsRow {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{
			Label:    label,
			Style:    discordgo.DangerButton,
			CustomID: StopButtonID,
			Disabled: disabled,
		},
	}}
}

func (m *Manager) stoppedEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       m.cfg.T("session.stopped.title"),
		Description: m.cfg.T("session.stopped.description"),
		Color:       m.cfg.EmbedColor,
		Timestamp:   m.now().Format(time.RFC3339),
	}
}

// channelMessageEmbed renders a target-channel message for the owner. The
// footer carries the message ID so replies can be mapped back.
func (m *Manager) channelMessageEmbed(s *Session, msg *discordgo.Message) *discordgo.MessageEmbed {
	color := m.relay.transport.MemberColor(msg.Author.ID, msg.ChannelID)
	if color == 0 {
		color = m.cfg.EmbedColor
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = m.now()
	}

	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name:    fmt.Sprintf("%s - %s", msg.Author.Username, msg.Author.ID),
			IconURL: msg.Author.AvatarURL(""),
		},
		Description: msg.Content,
		Color:       color,
		Footer:      &discordgo.MessageEmbedFooter{Text: msg.ID},
		Timestamp:   ts.Format(time.RFC3339),
	}
	if len(msg.Attachments) > 0 && msg.Attachments[0] != nil {
		embed.Image = &discordgo.MessageEmbedImage{URL: msg.Attachments[0].URL}
	}
	return embed
}

func (m *Manager) jumpButtons(s *Session, msg *discordgo.Message) []discordgo.MessageComponent {
	buttons := []discordgo.MessageComponent{
		discordgo.Button{
			Label: m.cfg.T("session.jump_message"),
			Style: discordgo.LinkButton,
			URL:   JumpURL(s.Channel.GuildID, msg.ChannelID, msg.ID),
		},
	}
	if top := s.JumpToTopURL(); top != "" {
		buttons = append(buttons, discordgo.Button{
			Label: m.cfg.T("session.jump_top"),
			Style: discordgo.LinkButton,
			URL:   top,
		})
	}
	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}}
}
