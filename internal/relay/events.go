package relay

import (
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// EventHub fans inbound messages out to session subscribers. The gateway
// handler publishes, each session goroutine reads its own channel.
type EventHub struct {
	mu   sync.RWMutex
	subs map[uint64]chan *discordgo.Message
	next uint64
	log  zerolog.Logger
}

func NewEventHub(log zerolog.Logger) *EventHub {
	return &EventHub{
		subs: make(map[uint64]chan *discordgo.Message),
		log:  log.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers a buffered receiver. The returned func unsubscribes
// and may be called more than once.
func (h *EventHub) Subscribe(buffer int) (<-chan *discordgo.Message, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan *discordgo.Message, buffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers m to every subscriber without blocking. A subscriber whose
// buffer is full misses the message.
func (h *EventHub) Publish(m *discordgo.Message) {
	if m == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- m:
		default:
			h.log.Warn().Uint64("subscriber", id).Str("message_id", m.ID).Msg("subscriber buffer full, dropping message")
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
