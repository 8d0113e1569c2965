package say

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/say-relay/internal/command"
	"github.com/keshon/say-relay/internal/config"
	"github.com/keshon/say-relay/internal/relay"
	"github.com/keshon/say-relay/pkg/cmd"
)

const (
	botID     = "100000000000000001"
	guildID   = "200000000000000001"
	otherGID  = "200000000000000002"
	invokeID  = "300000000000000001"
	targetID  = "300000000000000002"
	foreignID = "300000000000000003"
	adminID   = "400000000000000001"
	memberID  = "400000000000000002"
)

var errUnknown = errors.New("HTTP 404 Not Found")

type sent struct {
	ChannelID string
	Data      *discordgo.MessageSend
}

type fakeTransport struct {
	mu sync.Mutex

	channels map[string]*discordgo.Channel
	guild    *discordgo.Guild
	perms    map[string]int64 // userID/channelID
	roles    []*discordgo.Role

	sent      []sent
	deleted   []string
	deleteErr error
	nextID    int
}

func newFakeTransport() *fakeTransport {
	invoke := &discordgo.Channel{ID: invokeID, GuildID: guildID, Name: "bot-commands", Type: discordgo.ChannelTypeGuildText}
	target := &discordgo.Channel{ID: targetID, GuildID: guildID, Name: "general", Type: discordgo.ChannelTypeGuildText}
	foreign := &discordgo.Channel{ID: foreignID, GuildID: otherGID, Name: "elsewhere", Type: discordgo.ChannelTypeGuildText}
	f := &fakeTransport{
		channels: map[string]*discordgo.Channel{invokeID: invoke, targetID: target, foreignID: foreign},
		guild: &discordgo.Guild{ID: guildID, Name: "Test Guild", Channels: []*discordgo.Channel{
			invoke, target,
			{ID: "300000000000000009", GuildID: guildID, Name: "archive", Type: discordgo.ChannelTypeGuildCategory},
		}},
		perms:  make(map[string]int64),
		nextID: 900000000000000000,
	}
	send := int64(discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionAttachFiles)
	for _, ch := range []string{invokeID, targetID, foreignID} {
		f.perms[botID+"/"+ch] = send
	}
	return f
}

func (f *fakeTransport) BotUserID() string               { return botID }
func (f *fakeTransport) MemberColor(string, string) int { return 0 }

func (f *fakeTransport) Channel(id string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.channels[id]; ok {
		return ch, nil
	}
	return nil, errUnknown
}

func (f *fakeTransport) Guild(id string, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	if id == guildID {
		return f.guild, nil
	}
	return nil, errUnknown
}

func (f *fakeTransport) GuildRoles(string, ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	return f.roles, nil
}

func (f *fakeTransport) UserChannelPermissions(userID, channelID string, _ ...discordgo.RequestOption) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.perms[userID+"/"+channelID], nil
}

func (f *fakeTransport) UserChannelCreate(id string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: "dm-" + id, Type: discordgo.ChannelTypeDM}, nil
}

func (f *fakeTransport) ChannelMessage(string, string, ...discordgo.RequestOption) (*discordgo.Message, error) {
	return nil, errUnknown
}

func (f *fakeTransport) ChannelMessageSend(channelID, content string, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
	return f.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{Content: content}, opts...)
}

func (f *fakeTransport) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, sent{ChannelID: channelID, Data: data})
	return &discordgo.Message{ID: fmt.Sprint(f.nextID), ChannelID: channelID, Content: data.Content}, nil
}

func (f *fakeTransport) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, channelID+"/"+messageID)
	return nil
}

func (f *fakeTransport) MessageReactionAdd(string, string, string, ...discordgo.RequestOption) error {
	return nil
}

func (f *fakeTransport) ChannelTyping(string, ...discordgo.RequestOption) error { return nil }

func (f *fakeTransport) sentTo(channelID string) []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sent
	for _, s := range f.sent {
		if s.ChannelID == channelID {
			out = append(out, s)
		}
	}
	return out
}

func testT(key string, args ...any) string {
	if len(args) == 0 {
		return key
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return key + ":" + strings.Join(parts, "|")
}

type harness struct {
	ft  *fakeTransport
	svc *Service
	reg *cmd.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ft := newFakeTransport()
	r := relay.New(ft)
	hub := relay.NewEventHub(zerolog.Nop())
	sessions := relay.NewManager(r, hub, relay.ManagerConfig{T: testT}, zerolog.Nop())
	t.Cleanup(func() {
		sessions.Shutdown()
		r.Close()
	})
	svc := &Service{
		Relay:      r,
		Sessions:   sessions,
		Downloader: relay.NewDownloader(0, zerolog.Nop()),
		T:          testT,
		Log:        zerolog.Nop(),
	}
	return &harness{ft: ft, svc: svc, reg: cmd.NewRegistry()}
}

// message builds a prefix invocation by authorID in channelID; guild is
// empty for DMs.
func message(guild, channelID, authorID, raw string) *command.MessageContext {
	return &command.MessageContext{
		Config: &config.Config{DeveloperID: "dev"},
		Event: &discordgo.MessageCreate{Message: &discordgo.Message{
			ID:        "500000000000000001",
			GuildID:   guild,
			ChannelID: channelID,
			Author:    &discordgo.User{ID: authorID, Username: "user-" + authorID},
		}},
		Prefix: "!",
		Raw:    raw,
	}
}
