package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"golang.org/x/crypto/bcrypt"

	"github.com/samdwyer/xueba/internal/battle"
	"github.com/samdwyer/xueba/internal/encounter"
	"github.com/samdwyer/xueba/internal/gamedata"
	"github.com/samdwyer/xueba/internal/profile"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t     *testing.T
	srv   *Server
	sched *battle.ManualScheduler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	sched := battle.NewManualScheduler()
	srv := New(profile.NewMemoryRepository(), gamedata.MustLoadStarterDeck(),
		WithLogger(log.New(io.Discard, "", 0)),
		WithHashCost(bcrypt.MinCost),
		WithEngineOptions(func() []battle.Option {
			return []battle.Option{
				battle.WithRand(rand.New(rand.NewSource(1))),
				battle.WithScheduler(sched),
				battle.WithGenerator(encounter.NewStaticGenerator(rand.New(rand.NewSource(2)))),
			}
		}),
	)
	return &testServer{t: t, srv: srv, sched: sched}
}

func (ts *testServer) do(method, path, token string, body any) (int, gjson.Result) {
	ts.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec.Code, gjson.ParseBytes(rec.Body.Bytes())
}

func (ts *testServer) register(uid string) string {
	ts.t.Helper()
	code, res := ts.do(http.MethodPost, "/api/register", "", credentials{UID: uid, Password: "pw", Nickname: "小明"})
	require.Equal(ts.t, http.StatusCreated, code, res.Raw)
	token := res.Get("token").String()
	require.NotEmpty(ts.t, token)
	return token
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	code, res := ts.do(http.MethodPost, "/api/register", "", credentials{UID: "u1", Password: "pw", Nickname: "小明"})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, profile.MsgRegistered, res.Get("message").String())
	assert.Equal(t, int64(1), res.Get("profile.currentLevel").Int())
	assert.Equal(t, int64(5), res.Get("profile.cards.#").Int())

	code, res = ts.do(http.MethodPost, "/api/register", "", credentials{UID: "u1", Password: "x", Nickname: "乙"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, profile.MsgUIDTaken, res.Get("error").String())

	code, res = ts.do(http.MethodPost, "/api/register", "", credentials{UID: "u2", Password: "pw"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "请输入昵称", res.Get("error").String())

	code, res = ts.do(http.MethodPost, "/api/login", "", credentials{UID: "u1", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, profile.MsgBadCredentials, res.Get("error").String())

	code, res = ts.do(http.MethodPost, "/api/login", "", credentials{UID: "u1", Password: "pw"})
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, res.Get("token").String())
	assert.Equal(t, 2, ts.srv.sessions.count())
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	code, _ := ts.do(http.MethodGet, "/api/battle", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = ts.do(http.MethodGet, "/api/battle", "not-a-uuid", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = ts.do(http.MethodGet, "/api/battle", "0190c6e2-6c1f-7c4e-9a57-2f5c0e6b8a11", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestFixedBattleFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("u1")

	code, res := ts.do(http.MethodGet, "/api/battle", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "dashboard", res.Get("view").String())

	code, _ = ts.do(http.MethodPost, "/api/battle/fixed/2", token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = ts.do(http.MethodPost, "/api/battle/fixed/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = ts.do(http.MethodPost, "/api/battle/play/0", token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, res = ts.do(http.MethodPost, "/api/battle/fixed/1", token, nil)
	require.Equal(t, http.StatusOK, code, res.Raw)
	assert.Equal(t, "battle", res.Get("view").String())
	assert.Equal(t, int64(67), res.Get("enemy.hp").Int())
	assert.Equal(t, int64(275), res.Get("playerHp").Int())
	assert.Equal(t, int64(4), res.Get("hand.#").Int())

	code, res = ts.do(http.MethodPost, "/api/battle/play/0", token, nil)
	require.Equal(t, http.StatusAccepted, code, res.Raw)
	assert.Equal(t, "player_cast", res.Get("animation").String())

	code, _ = ts.do(http.MethodPost, "/api/battle/play/0", token, nil)
	assert.Equal(t, http.StatusConflict, code)

	ts.sched.RunAll()
	_, res = ts.do(http.MethodGet, "/api/battle", token, nil)
	assert.Equal(t, "idle", res.Get("animation").String())

	code, res = ts.do(http.MethodPost, "/api/battle/flee", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "dashboard", res.Get("view").String())
	assert.Zero(t, ts.sched.Pending())
}

func TestRandomBattle(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("u1")

	code, res := ts.do(http.MethodPost, "/api/battle/random", token, randomRequest{Difficulty: 2})
	require.Equal(t, http.StatusOK, code, res.Raw)
	assert.True(t, res.Get("enemy.isRandom").Bool())
	assert.Equal(t, int64(999), res.Get("selectedLevel").Int())
	lo, hi := encounter.HPRange(2)
	hp := int(res.Get("enemy.maxHp").Int())
	assert.GreaterOrEqual(t, hp, lo)
	assert.LessOrEqual(t, hp, hi)

	code, res = ts.do(http.MethodPost, "/api/battle/reset", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "dashboard", res.Get("view").String())
	assert.Equal(t, gjson.Null, res.Get("enemy").Type)
}

func TestLogoutEndsSession(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("u1")

	code, res := ts.do(http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "u1", res.Get("uid").String())

	code, _ = ts.do(http.MethodPost, "/api/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = ts.do(http.MethodGet, "/api/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Zero(t, ts.srv.sessions.count())
}

func TestProgressSharedAcrossSessions(t *testing.T) {
	ts := newTestServer(t)
	first := ts.register("u1")

	code, _ := ts.do(http.MethodPost, "/api/battle/fixed/1", first, nil)
	require.Equal(t, http.StatusOK, code)
	for i := 0; i < 300; i++ {
		_, res := ts.do(http.MethodGet, "/api/battle", first, nil)
		if res.Get("result").String() != "none" {
			require.Equal(t, "win", res.Get("result").String())
			break
		}
		code, res = ts.do(http.MethodPost, "/api/battle/play/0", first, nil)
		require.Equal(t, http.StatusAccepted, code, res.Raw)
		ts.sched.RunAll()
	}

	code, res := ts.do(http.MethodPost, "/api/login", "", credentials{UID: "u1", Password: "pw"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(2), res.Get("profile.currentLevel").Int())
}

func TestIdleSessionsExpire(t *testing.T) {
	ts := newTestServer(t)
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	ts.srv.sessions.now = func() time.Time { return now }

	stale := ts.register("u1")
	code, _ := ts.do(http.MethodPost, "/api/battle/fixed/1", stale, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = ts.do(http.MethodPost, "/api/battle/play/0", stale, nil)
	require.Equal(t, http.StatusAccepted, code)
	require.NotZero(t, ts.sched.Pending())

	now = now.Add(DefaultSessionTTL / 2)
	fresh := ts.register("u2")

	// Use keeps a session alive.
	now = now.Add(DefaultSessionTTL / 2)
	code, _ = ts.do(http.MethodGet, "/api/profile", fresh, nil)
	require.Equal(t, http.StatusOK, code)

	now = now.Add(time.Second)
	code, _ = ts.do(http.MethodGet, "/api/battle", stale, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Zero(t, ts.sched.Pending(), "eviction cancels the battle's pending phases")

	code, _ = ts.do(http.MethodGet, "/api/profile", fresh, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, ts.srv.sessions.count())
}

func TestSessionTTLZeroKeepsSessions(t *testing.T) {
	srv := New(profile.NewMemoryRepository(), gamedata.MustLoadStarterDeck(),
		WithLogger(log.New(io.Discard, "", 0)),
		WithHashCost(bcrypt.MinCost),
		WithSessionTTL(0),
	)
	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	srv.sessions.now = func() time.Time { return now }
	ts := &testServer{t: t, srv: srv}

	token := ts.register("u1")
	now = now.Add(1000 * time.Hour)
	code, _ := ts.do(http.MethodGet, "/api/profile", token, nil)
	assert.Equal(t, http.StatusOK, code)
}
