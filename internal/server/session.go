package server

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/samdwyer/xueba/internal/battle"
	"github.com/samdwyer/xueba/internal/profile"
)

var errNoSession = errors.New("missing or unknown session token")

// session is one logged-in player: a profile session and its battle engine.
type session struct {
	token   string
	profile *profile.Service
	engine  *battle.Engine

	lastUsed time.Time // guarded by sessions.mu
}

// end cancels the engine's pending phases and logs the profile out.
func (s *session) end() {
	s.engine.ResetToDashboard()
	s.profile.Logout()
}

// sessions maps bearer tokens to live sessions. Sessions idle for longer
// than ttl are evicted on the next add or lookup.
type sessions struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.RWMutex
	byID map[string]*session
}

func newSessions(ttl time.Duration) *sessions {
	return &sessions{ttl: ttl, now: time.Now, byID: make(map[string]*session)}
}

func (s *sessions) add(svc *profile.Service, engine *battle.Engine) *session {
	sess := &session{token: uuid.NewString(), profile: svc, engine: engine}
	s.mu.Lock()
	now := s.now()
	expired := s.sweepLocked(now)
	sess.lastUsed = now
	s.byID[sess.token] = sess
	s.mu.Unlock()
	endAll(expired)
	return sess
}

// get returns the live session for token and marks it used.
func (s *sessions) get(token string) (*session, bool) {
	s.mu.Lock()
	now := s.now()
	expired := s.sweepLocked(now)
	sess, ok := s.byID[token]
	if ok {
		sess.lastUsed = now
	}
	s.mu.Unlock()
	endAll(expired)
	return sess, ok
}

// sweepLocked removes sessions idle past the ttl and returns them.
func (s *sessions) sweepLocked(now time.Time) []*session {
	if s.ttl <= 0 {
		return nil
	}
	var expired []*session
	for token, sess := range s.byID {
		if now.Sub(sess.lastUsed) > s.ttl {
			delete(s.byID, token)
			expired = append(expired, sess)
		}
	}
	return expired
}

func endAll(expired []*session) {
	for _, sess := range expired {
		sess.end()
	}
}

func (s *sessions) remove(token string) {
	s.mu.Lock()
	delete(s.byID, token)
	s.mu.Unlock()
}

func (s *sessions) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

const sessionKey = "session"

// bearerToken extracts a well-formed uuid token from the Authorization header.
func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", errNoSession
	}
	id, err := uuid.Parse(strings.TrimSpace(token))
	if err != nil {
		return "", errNoSession
	}
	return id.String(), nil
}

// requireSession rejects requests without a live session and stores it in the context.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err == nil {
			if sess, ok := s.sessions.get(token); ok {
				c.Set(sessionKey, sess)
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "请先登录"})
	}
}

func currentSession(c *gin.Context) *session {
	return c.MustGet(sessionKey).(*session)
}
