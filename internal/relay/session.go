package relay

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

// State is the lifecycle stage of an interactive session.
type State int32

const (
	StateIdle State = iota
	StateActive
	StateClosing
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Session binds one owner to one target channel. Messages the owner DMs to
// the bot are sent into the channel, and the channel's traffic is mirrored
// back to the owner.
type Session struct {
	ID        string
	OwnerID   string
	Channel   *discordgo.Channel
	CreatedAt time.Time

	mu           sync.Mutex
	state        State
	lastActivity time.Time
	anchor       *discordgo.Message

	cancel context.CancelCauseFunc
	done   chan struct{}
}

func newSession(ownerID string, channel *discordgo.Channel, cancel context.CancelCauseFunc, now time.Time) *Session {
	return &Session{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Channel:      channel,
		CreatedAt:    now,
		state:        StateIdle,
		lastActivity: now,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// LastActivity is when the last relevant message was seen.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActivity = now
	s.mu.Unlock()
}

// Anchor is the session-start notice in the owner's DMs.
func (s *Session) Anchor() *discordgo.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anchor
}

func (s *Session) activate(anchor *discordgo.Message) {
	s.mu.Lock()
	s.anchor = anchor
	s.state = StateActive
	s.mu.Unlock()
}

// dmChannelID is the owner's DM channel, known once the anchor is sent.
func (s *Session) dmChannelID() string {
	if a := s.Anchor(); a != nil {
		return a.ChannelID
	}
	return ""
}

// JumpToTopURL links to the session-start notice.
func (s *Session) JumpToTopURL() string {
	a := s.Anchor()
	if a == nil {
		return ""
	}
	return JumpURL("", a.ChannelID, a.ID)
}

// Done is closed once the session goroutine has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
