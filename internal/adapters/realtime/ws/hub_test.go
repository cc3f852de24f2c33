package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type fakeVotes struct {
	mu     sync.Mutex
	inputs []ports.VoteInput
	err    error
}

func (f *fakeVotes) CastVote(_ context.Context, input ports.VoteInput) (*domain.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Poll{ID: input.PollID}, nil
}

type recordingRelay struct {
	hub      *Hub
	payloads chan []byte
}

func (r *recordingRelay) PublishChat(_ context.Context, payload []byte) error {
	r.payloads <- payload
	r.hub.BroadcastRaw(payload)
	return nil
}

func setupHub(t *testing.T, votes ports.VoteService) (*Hub, string) {
	t.Helper()
	hub := NewHub(votes)
	server := httptest.NewServer(NewHandler(hub, []string{"*"}))
	t.Cleanup(server.Close)
	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, hub *Hub, url, session string) *websocket.Conn {
	t.Helper()
	before := hub.ClientCount()
	conn, _, err := websocket.DefaultDialer.Dial(url+"?session="+session, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return hub.ClientCount() == before+1 }, time.Second, 10*time.Millisecond)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestHub_PublishBroadcastsEvents(t *testing.T) {
	hub, url := setupHub(t, &fakeVotes{})
	a := dial(t, hub, url, "a")
	b := dial(t, hub, url, "b")

	poll := &domain.Poll{ID: uuid.New(), Question: "Ready?", Status: domain.PollStatusActive}
	require.NoError(t, hub.Publish(context.Background(), domain.Event{Type: domain.EventPollStarted, Poll: poll}))

	for _, conn := range []*websocket.Conn{a, b} {
		frame := readFrame(t, conn)
		assert.Equal(t, "poll.started", frame["type"])
		assert.Equal(t, poll.ID.String(), frame["poll"].(map[string]any)["id"])
	}
}

func TestHub_VoteOverSocket(t *testing.T) {
	votes := &fakeVotes{}
	hub, url := setupHub(t, votes)
	conn := dial(t, hub, url, "student-1")

	pollID := uuid.New()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "vote", "poll_id": pollID, "option_id": "2"}))

	frame := readFrame(t, conn)
	assert.Equal(t, "vote.accepted", frame["type"])

	votes.mu.Lock()
	defer votes.mu.Unlock()
	require.Len(t, votes.inputs, 1)
	assert.Equal(t, ports.VoteInput{PollID: pollID, OptionID: "2", RespondentID: "student-1"}, votes.inputs[0])
}

func TestHub_VoteErrorGoesToSenderOnly(t *testing.T) {
	hub, url := setupHub(t, &fakeVotes{err: domain.ErrAlreadyVoted})
	sender := dial(t, hub, url, "a")
	other := dial(t, hub, url, "b")

	require.NoError(t, sender.WriteJSON(map[string]any{"type": "vote", "poll_id": uuid.New(), "option_id": "1"}))

	frame := readFrame(t, sender)
	assert.Equal(t, "vote.error", frame["type"])
	assert.Equal(t, "already_voted", frame["error"])

	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "other clients must not see vote errors")
}

func TestHub_ChatIsRelayedVerbatim(t *testing.T) {
	hub, url := setupHub(t, &fakeVotes{})
	relay := &recordingRelay{hub: hub, payloads: make(chan []byte, 1)}
	hub.SetChatRelay(relay)

	a := dial(t, hub, url, "a")
	b := dial(t, hub, url, "b")

	msg := `{"type":"chat.message","text":"hello","name":"Ada"}`
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(msg)))

	select {
	case payload := <-relay.payloads:
		assert.JSONEq(t, msg, string(payload))
	case <-time.After(2 * time.Second):
		t.Fatal("chat message was not relayed")
	}

	require.NoError(t, b.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := b.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, msg, string(payload))
}

func TestHub_RespondentLeftKicksOwnConnections(t *testing.T) {
	hub, url := setupHub(t, &fakeVotes{})
	gone := dial(t, hub, url, "gone")
	stays := dial(t, hub, url, "stays")

	event := domain.Event{Type: domain.EventRespondentLeft, RespondentID: "gone", OccurredAt: time.Now().UTC()}
	require.NoError(t, hub.Publish(context.Background(), event))

	assert.Equal(t, "respondent.left", readFrame(t, gone)["type"])
	assert.Equal(t, "respondent.kicked", readFrame(t, gone)["type"])

	assert.Equal(t, "respondent.left", readFrame(t, stays)["type"])
	require.NoError(t, stays.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := stays.ReadMessage()
	assert.Error(t, err)
}

func TestHandler_RequiresSession(t *testing.T) {
	_, url := setupHub(t, &fakeVotes{})
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://app.test"})

	r := httptest.NewRequest("GET", "/ws", nil)
	assert.True(t, check(r))

	r.Header.Set("Origin", "http://app.test")
	assert.True(t, check(r))

	r.Header.Set("Origin", "http://evil.test")
	assert.False(t, check(r))
}

func TestEventWireFormat(t *testing.T) {
	occurred := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	b, err := json.Marshal(domain.Event{Type: domain.EventRespondentLeft, RespondentID: "s1", OccurredAt: occurred})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"respondent.left","respondent_id":"s1","occurred_at":"2026-05-04T10:00:00Z"}`, string(b))
}
