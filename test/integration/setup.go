package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	handler "github.com/vncsmyrnk/livepoll/internal/adapters/handler/http"
	"github.com/vncsmyrnk/livepoll/internal/adapters/realtime/ws"
	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/sqlstore"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/core/services"
)

const presenterKey = "integration-key"

type TestApp struct {
	Store       *sqlstore.Store
	Server      *httptest.Server
	Client      *http.Client
	Hub         *ws.Hub
	TallySvc    ports.TallyService
	DBContainer testcontainers.Container
	token       string
}

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	pgContainer, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

func setupTestApp(t *testing.T) *TestApp {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	dbContainer, dbURL, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	store, err := postgres.Open(ctx, dbURL, true)
	require.NoError(t, err)

	hub := ws.NewHub(nil)
	notifier := services.NewNotifier(nil, hub)

	pollSvc := services.NewPollService(store, notifier, nil)
	quorum := services.NewQuorumService(store, pollSvc)
	voteSvc := services.NewVoteService(store, notifier, quorum, nil)
	rosterSvc := services.NewRosterService(store, notifier, nil)
	authSvc := services.NewAuthService(presenterKey, "test-secret", time.Hour, nil)
	hub.SetVoteService(voteSvc)

	pollHandler := handler.NewPollHandler(pollSvc, nil)
	router := handler.NewHandler(handler.Handlers{
		Polls:       pollHandler,
		Votes:       handler.NewVoteHandler(voteSvc, pollHandler),
		Respondents: handler.NewRespondentHandler(rosterSvc),
		Auth:        handler.NewAuthHandler(authSvc, time.Hour, false),
		Presenter:   handler.RequirePresenter(authSvc),
		Realtime:    ws.NewHandler(hub, []string{"*"}),
		Health:      store,
	}, []string{"*"})

	server := httptest.NewServer(router)

	app := &TestApp{
		Store:       store,
		Server:      server,
		Client:      server.Client(),
		Hub:         hub,
		TallySvc:    services.NewTallyService(store, 4),
		DBContainer: dbContainer,
	}
	t.Cleanup(func() { app.Teardown(t) })

	resp := app.post(t, "/auth/presenter", map[string]string{"key": presenterKey}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login struct {
		AccessToken string `json:"access_token"`
	}
	app.decode(t, resp, &login)
	app.token = login.AccessToken

	return app
}

func (app *TestApp) Teardown(t *testing.T) {
	app.Server.Close()
	app.Store.Close()
	if err := app.DBContainer.Terminate(context.Background()); err != nil {
		t.Logf("failed to terminate container: %v", err)
	}
}

func (app *TestApp) request(t *testing.T, method, path string, body any, session string, presenter bool) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, app.Server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set("X-Session-Token", session)
	}
	if presenter {
		req.Header.Set("Authorization", "Bearer "+app.token)
	}

	resp, err := app.Client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (app *TestApp) post(t *testing.T, path string, body any, session string) *http.Response {
	return app.request(t, http.MethodPost, path, body, session, false)
}

func (app *TestApp) get(t *testing.T, path string) *http.Response {
	return app.request(t, http.MethodGet, path, nil, "", false)
}

func (app *TestApp) decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

type pollView struct {
	ID      uuid.UUID `json:"id"`
	Status  string    `json:"status"`
	Options []struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		VoteCount int64  `json:"vote_count"`
	} `json:"options"`
	TotalVotes       int64 `json:"total_votes"`
	RemainingSeconds int   `json:"remaining_seconds"`
}

func (app *TestApp) createPoll(t *testing.T, question string, duration int, options ...string) pollView {
	t.Helper()

	opts := make([]map[string]any, 0, len(options))
	for _, o := range options {
		opts = append(opts, map[string]any{"text": o})
	}
	payload := map[string]any{"question": question, "options": opts, "duration": duration}

	resp := app.request(t, http.MethodPost, "/api/polls", payload, "", true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var poll pollView
	app.decode(t, resp, &poll)
	return poll
}

func (app *TestApp) vote(t *testing.T, pollID uuid.UUID, optionID, session string) *http.Response {
	return app.post(t, fmt.Sprintf("/api/polls/%s/votes", pollID), map[string]string{"option_id": optionID}, session)
}

func (app *TestApp) dial(t *testing.T, session string) *websocket.Conn {
	t.Helper()

	before := app.Hub.ClientCount()
	url := "ws" + strings.TrimPrefix(app.Server.URL, "http") + "/ws?session=" + session
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return app.Hub.ClientCount() > before }, 2*time.Second, 10*time.Millisecond)
	return conn
}
