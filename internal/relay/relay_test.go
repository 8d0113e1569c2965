package relay

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/say-relay/internal/metrics"
)

const canSend = discordgo.PermissionSendMessages | discordgo.PermissionViewChannel

func guildChannel(id string) *discordgo.Channel {
	return &discordgo.Channel{ID: id, GuildID: testGuildID, Type: discordgo.ChannelTypeGuildText}
}

func TestSendHello(t *testing.T) {
	ft := newFakeTransport()
	ft.setPerms("C", canSend)
	m := metrics.New("test")
	r := New(ft, WithMetrics(m))
	defer r.Close()

	msg, err := r.Send(Envelope{Channel: guildChannel("C"), Content: "hello"})
	require.NoError(t, err)
	require.NotNil(t, msg)

	sent := ft.sentTo("C")
	require.Len(t, sent, 1)
	assert.Equal(t, "hello", sent[0].Data.Content)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelayMessages.WithLabelValues("ok")))
}

func TestSendEmptyContent(t *testing.T) {
	ft := newFakeTransport()
	ft.setPerms("C", canSend)
	r := New(ft)
	defer r.Close()

	_, err := r.Send(Envelope{Channel: guildChannel("C")})
	assert.ErrorIs(t, err, ErrEmptyContent)
	assert.Empty(t, ft.sentTo("C"))
}

func TestSendForbidden(t *testing.T) {
	ft := newFakeTransport()
	ft.setPerms("C", discordgo.PermissionViewChannel)
	r := New(ft)
	defer r.Close()

	_, err := r.Send(Envelope{Channel: guildChannel("C"), Content: "hello"})
	assert.ErrorIs(t, err, ErrSendForbidden)
	assert.Empty(t, ft.sentTo("C"))
}

func TestSendAttachForbidden(t *testing.T) {
	ft := newFakeTransport()
	ft.setPerms("C", canSend)
	r := New(ft)
	defer r.Close()

	_, err := r.Send(Envelope{
		Channel: guildChannel("C"),
		Files:   []*discordgo.File{{Name: "a.png", Reader: strings.NewReader("x")}},
	})
	assert.ErrorIs(t, err, ErrAttachForbidden)
	assert.Empty(t, ft.sentTo("C"))
}

func TestSendFilesOnly(t *testing.T) {
	ft := newFakeTransport()
	ft.setPerms("C", canSend|discordgo.PermissionAttachFiles)
	r := New(ft)
	defer r.Close()

	_, err := r.Send(Envelope{
		Channel: guildChannel("C"),
		Files:   []*discordgo.File{{Name: "a.png", Reader: strings.NewReader("x")}},
	})
	require.NoError(t, err)
	assert.Len(t, ft.sentTo("C"), 1)
}

func TestSendTransportFailure(t *testing.T) {
	ft := newFakeTransport()
	ft.setPerms("C", canSend)
	ft.failSend["C"] = errors.New("HTTP 413 Payload Too Large")
	r := New(ft)
	defer r.Close()

	_, err := r.Send(Envelope{Channel: guildChannel("C"), Content: "hello"})
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.Contains(t, err.Error(), "413")
}

func TestSendDirectMessageSkipsGuildPermissions(t *testing.T) {
	ft := newFakeTransport()
	r := New(ft)
	defer r.Close()

	_, err := r.Send(Envelope{Channel: &discordgo.Channel{ID: "D", Type: discordgo.ChannelTypeDM}, Content: "hi"})
	require.NoError(t, err)
	assert.Len(t, ft.sentTo("D"), 1)
}

func TestSendDeleteAfter(t *testing.T) {
	ft := newFakeTransport()
	ft.setPerms("C", canSend)
	r := New(ft)
	defer r.Close()

	msg, err := r.Send(Envelope{Channel: guildChannel("C"), Content: "bye", DeleteAfter: 20 * time.Millisecond})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		d := ft.deletions()
		return len(d) == 1 && d[0] == "C/"+msg.ID
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return len(r.PendingDeletions()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestCloseCancelsPendingDeletions(t *testing.T) {
	ft := newFakeTransport()
	ft.setPerms("C", canSend)
	r := New(ft)

	_, err := r.Send(Envelope{Channel: guildChannel("C"), Content: "bye", DeleteAfter: time.Hour})
	require.NoError(t, err)
	assert.Len(t, r.PendingDeletions(), 1)

	r.Close()
	assert.Empty(t, r.PendingDeletions())
	assert.Empty(t, ft.deletions())
}

func TestNotifyFallsBackToDM(t *testing.T) {
	ft := newFakeTransport()
	ft.failSend["C"] = errors.New("HTTP 403 Forbidden")
	r := New(ft)
	defer r.Close()

	r.Notify(Notice{ChannelID: "C", UserID: "42", Content: "I am not allowed to send messages in <#C>"})

	dm := ft.sentTo("dm-42")
	require.Len(t, dm, 1)
	assert.Contains(t, dm[0].Data.Content, "not allowed")
	assert.Empty(t, dm[0].Data.AllowedMentions.Parse)
}

func TestNotifySwallowsDoubleFailure(t *testing.T) {
	ft := newFakeTransport()
	ft.failSend["C"] = errors.New("HTTP 403 Forbidden")
	ft.failDM = errors.New("HTTP 403 Cannot send messages to this user")
	r := New(ft)
	defer r.Close()

	assert.NotPanics(t, func() {
		r.Notify(Notice{ChannelID: "C", UserID: "42", Content: "nope"})
	})
	assert.Empty(t, ft.sentTo("C"))
}

func TestSendWithoutMentionsUsesDefaults(t *testing.T) {
	ft := newFakeTransport()
	ft.setPerms("C", canSend)
	r := New(ft)
	defer r.Close()

	_, err := r.Send(Envelope{Channel: guildChannel("C"), Content: "@everyone hi"})
	require.NoError(t, err)

	sent := ft.sentTo("C")
	require.Len(t, sent, 1)
	assert.Equal(t, DefaultMentions(), sent[0].Data.AllowedMentions)
}

func TestNotifyDMKeepsLifetime(t *testing.T) {
	ft := newFakeTransport()
	ft.failSend["C"] = errors.New("HTTP 403 Forbidden")
	r := New(ft)
	defer r.Close()

	r.Notify(Notice{ChannelID: "C", UserID: "42", Content: "no files here", DeleteAfter: 2 * time.Second})

	dm := ft.sentTo("dm-42")
	require.Len(t, dm, 1)
	assert.Equal(t, []string{"delete:dm-42:" + dm[0].Message.ID}, r.PendingDeletions())
}

func TestNotifyDMWithoutLifetimeStays(t *testing.T) {
	ft := newFakeTransport()
	r := New(ft)
	defer r.Close()

	r.Notify(Notice{UserID: "42", Content: "session over"})

	require.Len(t, ft.sentTo("dm-42"), 1)
	assert.Empty(t, r.PendingDeletions())
}
