package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const (
	DefaultIdleTimeout = 300 * time.Second
	DefaultTypingDelay = 2 * time.Second

	// StopButtonID is the custom ID of the End Session button. Component
	// interactions are routed by the "interact" command name prefix.
	StopButtonID = "interact:stop"

	reactionSent   = "✅"
	reactionFailed = "⚠️"

	subscriberBuffer = 64
)

// ManagerConfig tunes interactive sessions.
type ManagerConfig struct {
	IdleTimeout time.Duration
	TypingDelay time.Duration
	EmbedColor  int
	// Prefixes returns the command prefixes; owner DMs starting with one of
	// them are not relayed.
	Prefixes func() []string
	// T looks up user-facing strings.
	T          func(key string, args ...any) string
	Downloader *Downloader
}

// Manager is the session registry. It holds at most one session per owner
// and drives each session's goroutine.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
	wg       sync.WaitGroup

	relay *Relay
	hub   *EventHub
	cfg   ManagerConfig
	log   zerolog.Logger
	now   func() time.Time
}

func NewManager(r *Relay, hub *EventHub, cfg ManagerConfig, log zerolog.Logger) *Manager {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.TypingDelay < 0 {
		cfg.TypingDelay = 0
	}
	if cfg.Prefixes == nil {
		cfg.Prefixes = func() []string { return nil }
	}
	if cfg.T == nil {
		cfg.T = func(key string, args ...any) string {
			if len(args) == 0 {
				return key
			}
			return key + ": " + fmt.Sprint(args...)
		}
	}
	if cfg.Downloader == nil {
		cfg.Downloader = NewDownloader(0, log)
	}
	return &Manager{
		sessions: make(map[string]*Session),
		relay:    r,
		hub:      hub,
		cfg:      cfg,
		log:      log.With().Str("component", "sessions").Logger(),
		now:      time.Now,
	}
}

// Start opens a session for owner targeting channel, DMs the owner the
// session-start notice and begins listening.
func (m *Manager) Start(owner *discordgo.User, channel *discordgo.Channel) (*Session, error) {
	if owner == nil || channel == nil {
		return nil, fmt.Errorf("%w: owner and channel are required", ErrSendFailed)
	}

	ctx, cancel := context.WithCancelCause(context.Background())

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel(ErrRelayClosed)
		return nil, ErrRelayClosed
	}
	if _, ok := m.sessions[owner.ID]; ok {
		m.mu.Unlock()
		cancel(ErrSessionAlreadyActive)
		return nil, ErrSessionAlreadyActive
	}
	s := newSession(owner.ID, channel, cancel, m.now())
	m.sessions[owner.ID] = s
	m.wg.Add(1)
	m.mu.Unlock()

	sub, unsubscribe := m.hub.Subscribe(subscriberBuffer)

	anchor, err := m.sendStartNotice(owner, channel)
	if err != nil {
		unsubscribe()
		m.remove(s)
		cancel(err)
		s.setState(StateTerminated)
		close(s.done)
		m.wg.Done()
		return nil, fmt.Errorf("%w: session notice: %w", ErrSendFailed, err)
	}
	s.activate(anchor)
	m.relay.metrics.SessionStarted()

	m.log.Info().
		Str("session_id", s.ID).
		Str("owner_id", owner.ID).
		Str("channel_id", channel.ID).
		Msg("session started")

	go m.run(ctx, s, sub, unsubscribe)
	return s, nil
}

// Stop ends the owner's session. It reports whether one was running.
func (m *Manager) Stop(ownerID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[ownerID]
	m.mu.Unlock()
	if !ok {
		return false
	}
	m.remove(s)
	s.cancel(ErrSessionStopped)
	return true
}

// Get returns the owner's live session.
func (m *Manager) Get(ownerID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[ownerID]
	return s, ok
}

// Len returns the number of registered sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown terminates every session, notifies each owner and waits for the
// session goroutines to return. Later calls are no-ops, and Start fails with
// ErrRelayClosed afterwards.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	active := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		active = append(active, s)
	}
	m.mu.Unlock()

	for _, s := range active {
		s.cancel(ErrRelayClosed)
	}
	m.wg.Wait()
	m.log.Info().Int("sessions", len(active)).Msg("all sessions closed")
}

// remove drops s from the registry if it is still the owner's session.
func (m *Manager) remove(s *Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.sessions[s.OwnerID]; ok && cur == s {
		delete(m.sessions, s.OwnerID)
		return true
	}
	return false
}

func (m *Manager) run(ctx context.Context, s *Session, sub <-chan *discordgo.Message, unsubscribe func()) {
	defer m.wg.Done()
	defer close(s.done)
	defer unsubscribe()

	idle := time.NewTimer(m.cfg.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			m.terminate(s, context.Cause(ctx))
			return
		case <-idle.C:
			s.cancel(ErrSessionTimeout)
			m.terminate(s, context.Cause(ctx))
			return
		case msg := <-sub:
			if !m.relevant(s, msg) {
				continue
			}
			s.touch(m.now())
			idle.Reset(m.cfg.IdleTimeout)
			m.handle(ctx, s, msg)
		}
	}
}

func (m *Manager) terminate(s *Session, cause error) {
	s.setState(StateClosing)
	m.remove(s)

	reason := "stopped"
	switch {
	case errors.Is(cause, ErrSessionTimeout):
		reason = "timeout"
		m.notifyOwner(s, m.cfg.T("session.timeout"), nil)
	case errors.Is(cause, ErrRelayClosed):
		reason = "shutdown"
		m.notifyOwner(s, "", m.stoppedEmbed())
	default:
		m.notifyOwner(s, "", m.stoppedEmbed())
	}

	m.relay.metrics.SessionEnded(reason)
	s.setState(StateTerminated)
	m.log.Info().
		Str("session_id", s.ID).
		Str("owner_id", s.OwnerID).
		Str("reason", reason).
		Dur("age", m.now().Sub(s.CreatedAt)).
		Msg("session ended")
}

// relevant filters the event stream down to the owner's DMs and other
// people's messages in the target channel.
func (m *Manager) relevant(s *Session, msg *discordgo.Message) bool {
	if msg == nil || msg.Author == nil {
		return false
	}
	if msg.Author.ID == s.OwnerID && msg.GuildID == "" && msg.ChannelID == s.dmChannelID() {
		return true
	}
	if msg.ChannelID != s.Channel.ID {
		return false
	}
	if msg.Author.ID == m.relay.transport.BotUserID() || msg.Author.ID == s.OwnerID {
		return false
	}
	return true
}

// handle processes one event. Errors and panics are logged; the session
// keeps running.
func (m *Manager) handle(ctx context.Context, s *Session, msg *discordgo.Message) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().
				Str("session_id", s.ID).
				Interface("panic", r).
				Msg("recovered from panic while handling session event")
		}
	}()

	var err error
	if msg.Author.ID == s.OwnerID && msg.GuildID == "" {
		err = m.relayFromOwner(ctx, s, msg)
	} else {
		err = m.forwardToOwner(s, msg)
	}
	if err != nil {
		m.log.Warn().Err(err).
			Str("session_id", s.ID).
			Str("message_id", msg.ID).
			Msg("session event failed")
	}
}

func (m *Manager) relayFromOwner(ctx context.Context, s *Session, msg *discordgo.Message) error {
	for _, p := range m.cfg.Prefixes() {
		if p != "" && strings.HasPrefix(msg.Content, p) {
			return nil
		}
	}

	var ref *discordgo.MessageReference
	if msg.MessageReference != nil {
		var err error
		ref, err = m.resolveReply(s, msg)
		if err != nil {
			return err
		}
	}

	files := m.cfg.Downloader.Files(ctx, msg.Attachments)

	t := m.relay.transport
	if err := t.ChannelTyping(s.Channel.ID); err != nil {
		m.log.Debug().Err(err).Str("channel_id", s.Channel.ID).Msg("typing indicator failed")
	}
	if m.cfg.TypingDelay > 0 {
		time.Sleep(m.cfg.TypingDelay)
	}

	_, err := m.relay.Send(Envelope{
		Channel:         s.Channel,
		Content:         msg.Content,
		Files:           files,
		AllowedMentions: DefaultMentions(),
		Reference:       ref,
	})
	if err != nil {
		_ = t.MessageReactionAdd(msg.ChannelID, msg.ID, reactionFailed)
		return err
	}
	return t.MessageReactionAdd(msg.ChannelID, msg.ID, reactionSent)
}

// resolveReply maps a reply to one of our notices onto the original
// channel message, whose ID is stored in the notice footer.
func (m *Manager) resolveReply(s *Session, msg *discordgo.Message) (*discordgo.MessageReference, error) {
	t := m.relay.transport

	notice, err := t.ChannelMessage(msg.ChannelID, msg.MessageReference.MessageID)
	if err != nil {
		m.notifyOwner(s, m.cfg.T("session.reference_failed"), nil)
		return nil, fmt.Errorf("%w: %w", ErrReferenceResolution, err)
	}

	targetID := ""
	if len(notice.Embeds) > 0 && notice.Embeds[0].Footer != nil {
		targetID = strings.TrimSpace(notice.Embeds[0].Footer.Text)
	}
	if targetID == "" {
		m.notifyOwner(s, m.cfg.T("session.reply_failed"), nil)
		return nil, fmt.Errorf("%w: notice %s carries no message id", ErrReferenceResolution, notice.ID)
	}

	target, err := t.ChannelMessage(s.Channel.ID, targetID)
	if err != nil {
		m.notifyOwner(s, m.cfg.T("session.reply_failed"), nil)
		return nil, fmt.Errorf("%w: %w", ErrReferenceResolution, err)
	}

	return &discordgo.MessageReference{
		MessageID: target.ID,
		ChannelID: s.Channel.ID,
		GuildID:   s.Channel.GuildID,
	}, nil
}

func (m *Manager) forwardToOwner(s *Session, msg *discordgo.Message) error {
	dm := s.dmChannelID()
	if dm == "" {
		return fmt.Errorf("session %s has no DM channel", s.ID)
	}

	send := &discordgo.MessageSend{
		Embeds:          []*discordgo.MessageEmbed{m.channelMessageEmbed(s, msg)},
		Components:      m.jumpButtons(s, msg),
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	}
	if m.pingsOwner(s, msg) {
		send.Content = "<@" + s.OwnerID + ">"
		send.AllowedMentions.Users = []string{s.OwnerID}
	}

	_, err := m.relay.transport.ChannelMessageSendComplex(dm, send)
	if err != nil {
		return fmt.Errorf("%w: forward to owner: %w", ErrSendFailed, err)
	}
	return nil
}

// pingsOwner reports whether msg mentions the owner or the bot they speak as.
func (m *Manager) pingsOwner(s *Session, msg *discordgo.Message) bool {
	botID := m.relay.transport.BotUserID()
	for _, u := range msg.Mentions {
		if u != nil && (u.ID == s.OwnerID || u.ID == botID) {
			return true
		}
	}
	return false
}

func (m *Manager) notifyOwner(s *Session, content string, embed *discordgo.MessageEmbed) {
	m.relay.Notify(Notice{
		ChannelID: s.dmChannelID(),
		UserID:    s.OwnerID,
		Content:   content,
		Embed:     embed,
	})
}
