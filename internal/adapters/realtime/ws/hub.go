// Package ws is the realtime transport: it fans events out to websocket
// clients, accepts votes over the socket and relays chat frames.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

// ChatRelay carries chat frames to other instances. The relay is expected to
// loop them back into BroadcastRaw on every instance, this one included.
type ChatRelay interface {
	PublishChat(ctx context.Context, payload []byte) error
}

type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	votes ports.VoteService
	chat  ChatRelay
}

var _ ports.EventPublisher = (*Hub)(nil)

func NewHub(votes ports.VoteService) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		votes:   votes,
	}
}

// SetVoteService wires the service used for votes cast over the socket. The
// hub is usually built before the service because the service publishes to it.
func (h *Hub) SetVoteService(votes ports.VoteService) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.votes = votes
}

// SetChatRelay routes chat through relay instead of broadcasting locally.
func (h *Hub) SetChatRelay(relay ChatRelay) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.chat = relay
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	slog.Debug("websocket client registered", "session", c.session, "clients", n)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		slog.Debug("websocket client unregistered", "session", c.session)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish sends event to every connected client. A respondent.left event
// also tells that respondent's own connections they were removed.
func (h *Hub) Publish(_ context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	h.BroadcastRaw(payload)

	if event.Type == domain.EventRespondentLeft && event.RespondentID != "" {
		h.sendTo(event.RespondentID, mustMarshal(kicked{Type: frameKicked, OccurredAt: event.OccurredAt}))
	}
	return nil
}

// BroadcastRaw sends payload, unchanged, to every connected client.
func (h *Hub) BroadcastRaw(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		h.deliver(c, payload)
	}
}

func (h *Hub) sendTo(session string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.session == session {
			h.deliver(c, payload)
		}
	}
}

// deliver must be called with h.mu held. Slow clients are dropped rather
// than allowed to stall the broadcast.
func (h *Hub) deliver(c *Client, payload []byte) {
	select {
	case c.send <- payload:
	default:
		slog.Warn("websocket client too slow, dropping", "session", c.session)
		go h.unregister(c)
	}
}

func (h *Hub) relayChat(ctx context.Context, payload []byte) {
	h.mu.RLock()
	relay := h.chat
	h.mu.RUnlock()

	if relay == nil {
		h.BroadcastRaw(payload)
		return
	}
	if err := relay.PublishChat(ctx, payload); err != nil {
		slog.Warn("failed to relay chat message, delivering locally", "error", err)
		h.BroadcastRaw(payload)
	}
}

func (h *Hub) castVote(ctx context.Context, c *Client, frame inbound) {
	h.mu.RLock()
	votes := h.votes
	h.mu.RUnlock()
	if votes == nil {
		slog.Warn("vote received before the vote service was wired", "session", c.session)
		return
	}

	reply := voteReply{Type: frameVoteAccepted, PollID: frame.PollID}
	_, err := votes.CastVote(ctx, ports.VoteInput{
		PollID:       frame.PollID,
		OptionID:     frame.OptionID,
		RespondentID: c.session,
	})
	if err != nil {
		reply.Type = frameVoteError
		reply.Error = domain.ErrorCode(err)
		reply.Message = err.Error()
		if reply.Error == "internal_error" {
			slog.Error("failed to cast vote", "poll_id", frame.PollID, "session", c.session, "error", err)
			reply.Message = "could not record vote"
		}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; ok {
		h.deliver(c, mustMarshal(reply))
	}
}
