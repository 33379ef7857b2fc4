package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/cardduel/internal/auth"
	"github.com/jason-s-yu/cardduel/internal/catalog"
	"github.com/jason-s-yu/cardduel/internal/duel"
	"github.com/jason-s-yu/cardduel/internal/models"
	"github.com/jason-s-yu/cardduel/internal/reward"
	"github.com/jason-s-yu/cardduel/internal/store"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminKey = "let-me-in"

type testServer struct {
	*DuelServer
	handler http.Handler
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	logger, _ := test.NewNullLogger()

	cat, err := catalog.New([]models.CardDefinition{
		{ID: "000", Name: "Back", Rarity: models.RarityCommon},
		{ID: "010", Name: "Rock", Rarity: models.RarityCommon},
		{ID: "011", Name: "Airstrike", Rarity: models.RarityRare,
			Effects: []models.Effect{models.NewEffect(models.EffectDamage, 100)}},
	})
	require.NoError(t, err)

	issuer, err := auth.NewIssuer(time.Hour)
	require.NoError(t, err)
	hash, err := auth.HashAdminKey(adminKey, auth.HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)

	writer := reward.NewWriter(store.NewMemory(), logger)
	m := duel.NewManager(cat, writer, logger, duel.ManagerConfig{})
	s := NewDuelServer(m, issuer, hash, logger)
	return &testServer{DuelServer: s, handler: s.Routes()}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) bearer(t *testing.T, playerID string) http.Header {
	t.Helper()
	token, err := ts.Issuer.CreateJWT(playerID)
	require.NoError(t, err)
	return http.Header{"Authorization": {"Bearer " + token}}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (ts *testServer) startLive(t *testing.T, deck1, deck2 []string, wager int) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/duel/live", map[string]interface{}{
		"player1Id": "A", "player2Id": "B",
		"player1Name": "Alice", "player2Name": "Bob",
		"deck1": deck1, "deck2": deck2, "wager": wager,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[map[string]string](t, rec)["sessionId"]
}

type drawReply struct {
	Result  duel.DrawResult `json:"result"`
	Outcome duel.Outcome    `json:"outcome"`
}

type playReply struct {
	Result  duel.PlayResult `json:"result"`
	Outcome duel.Outcome    `json:"outcome"`
	Ended   *endResponse    `json:"ended"`
}

func TestPracticeFlow(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodPost, "/duel/practice", map[string]string{"playerName": "Guest"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[map[string]string](t, rec)["sessionId"]
	require.NotEmpty(t, id)

	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/draw", map[string]interface{}{"seat": "player1", "count": 2}, nil)
	require.Equal(t, http.StatusOK, rec.Code, "anonymous practice seats need no token")
	assert.Len(t, decode[drawReply](t, rec).Result.Drawn, 2)

	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/bot", nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "the bot waits until the turn is advanced")

	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/advance", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/bot", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/duel/"+id+"/state", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[duel.View](t, rec)
	assert.Equal(t, models.ModePractice, v.Mode)
	assert.Equal(t, models.SeatPlayer1, v.CurrentPlayer)
	for _, c := range v.Players[models.SeatPlayer1].Hand {
		assert.Equal(t, models.PlaceholderCardID, c.CardID, "state is redacted by default")
	}

	rec = ts.do(t, http.MethodGet, "/duel/"+id+"/state?redact=false", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v = decode[duel.View](t, rec)
	for _, c := range v.Players[models.SeatPlayer1].Hand {
		assert.NotEqual(t, models.PlaceholderCardID, c.CardID)
	}

	rec = ts.do(t, http.MethodGet, "/duel/"+id+"/state?redact=maybe", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLiveDuelRequiresSeatOwner(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.startLive(t, []string{"010"}, []string{"010"}, 0)
	body := map[string]interface{}{"seat": "player1", "count": 1}

	rec := ts.do(t, http.MethodPost, "/duel/"+id+"/draw", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/draw", body, http.Header{"Authorization": {"Bearer garbage"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/draw", body, ts.bearer(t, "B"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/draw", body, ts.bearer(t, "A"))
	assert.Equal(t, http.StatusOK, rec.Code)

	token, err := ts.Issuer.CreateJWT("A")
	require.NoError(t, err)
	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/draw", body, http.Header{"Cookie": {"theme=dark; auth_token=" + token}})
	assert.Equal(t, http.StatusOK, rec.Code, "cookie token is accepted")
}

func TestLiveDuelPlaysToSettlement(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.startLive(t, []string{"011", "011"}, []string{"010"}, 5)
	a := ts.bearer(t, "A")

	rec := ts.do(t, http.MethodPost, "/duel/"+id+"/draw", map[string]interface{}{"seat": "player1", "count": 2}, a)
	require.Equal(t, http.StatusOK, rec.Code)
	drawn := decode[drawReply](t, rec).Result.Drawn
	require.Len(t, drawn, 2)

	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/play", map[string]interface{}{"seat": "player1", "cardInstanceId": drawn[0].InstanceID}, a)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[playReply](t, rec).Ended)

	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/play", map[string]interface{}{"seat": "player1", "cardInstanceId": drawn[1].InstanceID}, a)
	require.Equal(t, http.StatusOK, rec.Code)
	reply := decode[playReply](t, rec)
	assert.True(t, reply.Outcome.Over)
	require.NotNil(t, reply.Ended)
	assert.Equal(t, models.SeatPlayer1, reply.Ended.Winner)
	require.NotEmpty(t, reply.Ended.DuelID)

	rec = ts.do(t, http.MethodGet, "/duel/"+id+"/state", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "ended duels leave the registry")

	assert.Eventually(t, func() bool {
		return ts.do(t, http.MethodGet, "/summary/"+reply.Ended.DuelID, nil, nil).Code == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	rec = ts.do(t, http.MethodGet, "/summary/"+reply.Ended.DuelID, nil, nil)
	summary := decode[models.Summary](t, rec)
	assert.Equal(t, "A", summary.WinnerID)
	assert.Equal(t, 5, summary.Wager)

	var player duel.PlayerRecord
	assert.Eventually(t, func() bool {
		rec := ts.do(t, http.MethodGet, "/players/A", nil, nil)
		if rec.Code != http.StatusOK {
			return false
		}
		return json.Unmarshal(rec.Body.Bytes(), &player) == nil && player.Rating.Duels == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 10, player.Balance)
	assert.Equal(t, models.PlayerStats{Wins: 1}, player.Stats)
}

func TestErrorStatusMapping(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.startLive(t, nil, nil, 0)
	a := ts.bearer(t, "A")

	rec := ts.do(t, http.MethodPost, "/duel/nope/advance", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/draw", map[string]interface{}{"seat": "dealer"}, a)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/play", map[string]interface{}{"seat": "player1", "cardInstanceId": "6f1c1f8e-6a57-4a8e-9b0e-8a7c7d0a1b2c"}, a)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/bot", nil, a)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "live duels have no bot seat")

	rec = ts.do(t, http.MethodPost, "/duel/live", map[string]interface{}{"player1Id": "A", "player2Id": "B", "deck1": []string{"999"}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/duel/live", map[string]interface{}{"player1Id": "A", "player2Id": "B", "wager": -1}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/summary/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParticipantOnlyRoutes(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.startLive(t, []string{"010"}, []string{"010"}, 0)
	a, b, stranger := ts.bearer(t, "A"), ts.bearer(t, "B"), ts.bearer(t, "C")

	rec := ts.do(t, http.MethodPost, "/duel/"+id+"/advance", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/advance", nil, stranger)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/advance", nil, b)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode[map[string]interface{}](t, rec)["turnCount"])

	rec = ts.do(t, http.MethodGet, "/duel/"+id+"/state", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "redacted state is public")
	rec = ts.do(t, http.MethodGet, "/duel/"+id+"/state?redact=false", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = ts.do(t, http.MethodGet, "/duel/"+id+"/state?redact=false", nil, stranger)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(t, http.MethodGet, "/duel/"+id+"/state?redact=false", nil, a)
	assert.Equal(t, http.StatusOK, rec.Code)

	rematch := map[string]interface{}{"deck1": []string{"011"}, "deck2": []string{"011"}, "wager": 3}
	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/rematch", rematch, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = ts.do(t, http.MethodGet, "/duel/"+id+"/state", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[duel.View](t, rec).TurnCount, "a rejected rematch leaves the duel untouched")

	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/rematch", rematch, a)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[duel.View](t, rec)
	assert.Equal(t, 1, v.TurnCount)
	assert.Equal(t, 3, v.Wager)
}

func TestIssuedTokensPlayLiveDuel(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.startLive(t, []string{"011", "011"}, []string{"010"}, 0)

	rec := ts.do(t, http.MethodPost, "/auth/token", map[string]string{"playerId": "A"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(t, http.MethodPost, "/auth/token", map[string]string{}, http.Header{"X-Admin-Key": {adminKey}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/auth/token", map[string]string{"playerId": "A"}, http.Header{"X-Admin-Key": {adminKey}})
	require.Equal(t, http.StatusOK, rec.Code)
	issued := decode[map[string]string](t, rec)
	assert.Equal(t, "A", issued["playerId"])
	playerID, err := ts.Issuer.AuthenticateJWT(issued["token"])
	require.NoError(t, err)
	assert.Equal(t, "A", playerID)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "auth_token" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, issued["token"], cookie.Value)
	a := http.Header{"Cookie": {cookie.Name + "=" + cookie.Value}}

	rec = ts.do(t, http.MethodPost, "/auth/token", map[string]string{"playerId": "B"}, http.Header{"X-Admin-Key": {adminKey}})
	require.Equal(t, http.StatusOK, rec.Code)
	b := http.Header{"Authorization": {"Bearer " + decode[map[string]string](t, rec)["token"]}}

	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/draw", map[string]interface{}{"seat": "player1", "count": 2}, b)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/draw", map[string]interface{}{"seat": "player1", "count": 2}, a)
	require.Equal(t, http.StatusOK, rec.Code)
	drawn := decode[drawReply](t, rec).Result.Drawn
	require.Len(t, drawn, 2)

	var reply playReply
	for _, c := range drawn {
		rec = ts.do(t, http.MethodPost, "/duel/"+id+"/play", map[string]interface{}{"seat": "player1", "cardInstanceId": c.InstanceID}, a)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		reply = decode[playReply](t, rec)
	}
	require.NotNil(t, reply.Ended)
	assert.Equal(t, models.SeatPlayer1, reply.Ended.Winner)
}

func TestSettleIfOverToleratesEndedDuel(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.startLive(t, nil, nil, 0)
	_, err := ts.Manager.End(id, "B")
	require.NoError(t, err)

	resp, err := ts.settleIfOver(id, duel.Outcome{Over: true, Winner: models.SeatPlayer1})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, models.SeatPlayer1, resp.Winner)
	assert.Nil(t, resp.Summary, "no second settlement is started")

	resp, err = ts.settleIfOver(id, duel.Outcome{})
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestDeclareWinnerNeedsAdminKey(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.startLive(t, nil, nil, 0)
	body := map[string]string{"seat": "player2"}

	rec := ts.do(t, http.MethodPost, "/duel/"+id+"/winner", body, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/winner", body, http.Header{"X-Admin-Key": {"wrong"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/winner", body, http.Header{"X-Admin-Key": {adminKey}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.SeatPlayer2, decode[endResponse](t, rec).Winner)

	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/winner", body, http.Header{"X-Admin-Key": {adminKey}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForfeitAndSpectators(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.startLive(t, nil, nil, 0)

	rec := ts.do(t, http.MethodPost, "/duel/"+id+"/spectators", map[string]string{"spectatorId": "watcher"}, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/spectators", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/duel/active", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	metas := decode[[]duel.SessionMeta](t, rec)
	require.Len(t, metas, 1)
	assert.Equal(t, 1, metas[0].Spectators)

	rec = ts.do(t, http.MethodDelete, "/duel/"+id+"/spectators/watcher", nil, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodPost, "/duel/"+id+"/forfeit", map[string]string{"seat": "player2"}, ts.bearer(t, "B"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.SeatPlayer1, decode[endResponse](t, rec).Winner)

	rec = ts.do(t, http.MethodGet, "/duel/active", nil, nil)
	assert.Empty(t, decode[[]duel.SessionMeta](t, rec))
}

func TestDuelWebSocket(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.startLive(t, []string{"010"}, nil, 0)
	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	token, err := ts.Issuer.CreateJWT("A")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/duel/" + id + "/ws?spectatorId=ws-viewer"
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: []string{"duel"},
		HTTPHeader:   http.Header{"Authorization": {"Bearer " + token}},
	})
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	roundTrip := func(msg interface{}) map[string]interface{} {
		data, err := json.Marshal(msg)
		require.NoError(t, err)
		require.NoError(t, c.Write(ctx, websocket.MessageText, data))
		_, reply, err := c.Read(ctx)
		require.NoError(t, err)
		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(reply, &out))
		return out
	}

	assert.Equal(t, "pong", roundTrip(map[string]string{"type": "ping"})["type"])

	state := roundTrip(map[string]string{"type": "get_state"})
	assert.Equal(t, "state", state["type"])
	result := state["result"].(map[string]interface{})
	assert.EqualValues(t, 1, result["spectatorCount"])

	drew := roundTrip(map[string]interface{}{"type": "draw", "seat": "player1"})
	assert.Equal(t, "draw", drew["type"])

	denied := roundTrip(map[string]interface{}{"type": "draw", "seat": "player2"})
	assert.Equal(t, "error", denied["type"])

	unknown := roundTrip(map[string]string{"type": "teleport"})
	assert.Equal(t, "error", unknown["type"])
}

func TestDuelWebSocketClosesOnMissingToken(t *testing.T) {
	ts := setupTestServer(t)
	id := ts.startLive(t, []string{"010"}, nil, 0)
	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/duel/" + id + "/ws"
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: []string{"duel"}})
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	send := func(msg interface{}) {
		data, err := json.Marshal(msg)
		require.NoError(t, err)
		require.NoError(t, c.Write(ctx, websocket.MessageText, data))
	}
	read := func() map[string]interface{} {
		_, reply, err := c.Read(ctx)
		require.NoError(t, err)
		var out map[string]interface{}
		require.NoError(t, json.Unmarshal(reply, &out))
		return out
	}

	send(map[string]string{"type": "get_state"})
	assert.Equal(t, "state", read()["type"], "redacted state needs no token")

	send(map[string]interface{}{"type": "draw", "seat": "player1"})
	assert.Equal(t, "error", read()["type"])

	_, _, err = c.Read(ctx)
	assert.Equal(t, websocket.StatusCode(InvalidAuthTokenError), websocket.CloseStatus(err))
}

func TestDuelWebSocketUnknownSession(t *testing.T) {
	ts := setupTestServer(t)
	rec := ts.do(t, http.MethodGet, "/duel/nope/ws", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExtractCookieToken(t *testing.T) {
	assert.Equal(t, "abc", extractCookieToken("auth_token=abc", "auth_token"))
	assert.Equal(t, "abc", extractCookieToken("a=1; auth_token=abc; b=2", "auth_token"))
	assert.Empty(t, extractCookieToken("a=1", "auth_token"))
}
