package relay

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
)

const (
	testBotID   = "100000000000000001"
	testGuildID = "200000000000000001"
)

var errNotFound = errors.New("HTTP 404 Not Found")

type sentMessage struct {
	ChannelID string
	Data      *discordgo.MessageSend
	Message   *discordgo.Message
}

type reaction struct {
	ChannelID, MessageID, Emoji string
}

// fakeTransport records every call and keeps messages in memory.
type fakeTransport struct {
	mu sync.Mutex

	perms     map[string]int64 // channelID -> bot permissions
	userPerms map[string]int64 // userID -> permissions in any channel
	roles     []*discordgo.Role
	colors    map[string]int

	messages map[string]*discordgo.Message // channelID/messageID
	sent     []sentMessage
	deleted  []string
	reacts   []reaction
	typing   []string

	failSend map[string]error // channelID -> error
	panicFor string           // MemberColor panics for this user
	failDM   error
	nextID   int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		perms:     make(map[string]int64),
		userPerms: make(map[string]int64),
		colors:    make(map[string]int),
		messages:  make(map[string]*discordgo.Message),
		failSend:  make(map[string]error),
		nextID:    900000000000000000,
	}
}

func key(channelID, messageID string) string { return channelID + "/" + messageID }

func (f *fakeTransport) BotUserID() string { return testBotID }

func (f *fakeTransport) MemberColor(userID, channelID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if userID == f.panicFor {
		panic("member color lookup blew up")
	}
	return f.colors[userID]
}

func (f *fakeTransport) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: channelID, GuildID: testGuildID}, nil
}

func (f *fakeTransport) Guild(guildID string, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	return &discordgo.Guild{ID: guildID, Name: "Test Guild"}, nil
}

func (f *fakeTransport) GuildRoles(string, ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.roles, nil
}

func (f *fakeTransport) UserChannelPermissions(userID, channelID string, _ ...discordgo.RequestOption) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if userID == testBotID {
		return f.perms[channelID], nil
	}
	return f.userPerms[userID], nil
}

func (f *fakeTransport) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDM != nil {
		return nil, f.failDM
	}
	return &discordgo.Channel{ID: "dm-" + recipientID, Type: discordgo.ChannelTypeDM}, nil
}

func (f *fakeTransport) ChannelMessage(channelID, messageID string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[key(channelID, messageID)]
	if !ok {
		return nil, errNotFound
	}
	return m, nil
}

func (f *fakeTransport) ChannelMessageSend(channelID, content string, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
	return f.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{Content: content}, opts...)
}

func (f *fakeTransport) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	if err := f.failSend[channelID]; err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if f.failDM != nil && len(channelID) > 3 && channelID[:3] == "dm-" {
		f.mu.Unlock()
		return nil, f.failDM
	}
	f.nextID++
	msg := &discordgo.Message{
		ID:        fmt.Sprint(f.nextID),
		ChannelID: channelID,
		Content:   data.Content,
		Embeds:    data.Embeds,
		Author:    &discordgo.User{ID: testBotID, Bot: true},
	}
	f.messages[key(channelID, msg.ID)] = msg
	s := sentMessage{ChannelID: channelID, Data: data, Message: msg}
	f.sent = append(f.sent, s)
	f.mu.Unlock()
	return msg, nil
}

func (f *fakeTransport) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.messages, key(channelID, messageID))
	f.deleted = append(f.deleted, key(channelID, messageID))
	return nil
}

func (f *fakeTransport) MessageReactionAdd(channelID, messageID, emoji string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reacts = append(f.reacts, reaction{channelID, messageID, emoji})
	return nil
}

func (f *fakeTransport) ChannelTyping(channelID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing = append(f.typing, channelID)
	return nil
}

// store puts a message into the fake so ChannelMessage can find it.
func (f *fakeTransport) store(m *discordgo.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[key(m.ChannelID, m.ID)] = m
}

func (f *fakeTransport) setPerms(channelID string, perms int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.perms[channelID] = perms
}

func (f *fakeTransport) sentTo(channelID string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, s := range f.sent {
		if s.ChannelID == channelID {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeTransport) reactions() []reaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]reaction(nil), f.reacts...)
}

func (f *fakeTransport) deletions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}
