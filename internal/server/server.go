// Package server exposes the battle engine over HTTP with gin. Each login
// gets a bearer token bound to its own profile session and battle engine.
package server

import (
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/samdwyer/xueba/internal/battle"
	"github.com/samdwyer/xueba/internal/gamedata"
	"github.com/samdwyer/xueba/internal/profile"
	"github.com/samdwyer/xueba/internal/telemetry"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger for requests and failures.
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// WithTracer sets the tracer handed to each profile session.
func WithTracer(t trace.Tracer) Option { return func(s *Server) { s.tracer = t } }

// WithEngineOptions sets a factory for the options of each new battle engine.
func WithEngineOptions(fn func() []battle.Option) Option {
	return func(s *Server) { s.engineOpts = fn }
}

// WithHashCost sets the bcrypt cost for new passwords.
func WithHashCost(cost int) Option { return func(s *Server) { s.hashCost = cost } }

// WithAllowedOrigins sets the CORS origins. No origins disables CORS.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// DefaultSessionTTL is how long a session may sit idle before it is evicted.
const DefaultSessionTTL = 30 * time.Minute

// WithSessionTTL sets the idle timeout for sessions. Zero keeps sessions until logout.
func WithSessionTTL(ttl time.Duration) Option { return func(s *Server) { s.sessionTTL = ttl } }

// Server is the HTTP adapter.
type Server struct {
	repo       profile.Repository
	deck       []gamedata.CardDef
	logger     *log.Logger
	tracer     trace.Tracer
	engineOpts func() []battle.Option
	hashCost   int
	origins    []string
	sessionTTL time.Duration

	sessions *sessions
	router   *gin.Engine
}

// New creates a server over a shared account repository.
func New(repo profile.Repository, deck []gamedata.CardDef, opts ...Option) *Server {
	s := &Server{
		repo:       repo,
		deck:       deck,
		hashCost:   bcrypt.DefaultCost,
		sessionTTL: DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sessions = newSessions(s.sessionTTL)
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	s.tracer = telemetry.OrNoop(s.tracer)
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.LoggerWithWriter(s.logger.Writer()), gin.Recovery())
	if len(s.origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.origins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	api := r.Group("/api")
	{
		api.POST("/register", s.register)
		api.POST("/login", s.login)

		authed := api.Group("", s.requireSession())
		authed.POST("/logout", s.logout)
		authed.GET("/profile", s.getProfile)

		b := authed.Group("/battle")
		{
			b.GET("", s.getBattle)
			b.POST("/fixed/:level", s.startFixed)
			b.POST("/random", s.startRandom)
			b.POST("/play/:index", s.playCard)
			b.POST("/flee", s.flee)
			b.POST("/reset", s.reset)
		}
	}
	return r
}

// newProfileService creates a logged-out profile session.
func (s *Server) newProfileService() *profile.Service {
	svc := profile.NewService(s.repo, s.deck, s.logger, s.tracer)
	svc.SetHashCost(s.hashCost)
	return svc
}

func (s *Server) startSession(svc *profile.Service) *session {
	opts := []battle.Option{battle.WithLogger(s.logger), battle.WithTracer(s.tracer)}
	if s.engineOpts != nil {
		opts = append(opts, s.engineOpts()...)
	}
	return s.sessions.add(svc, battle.New(svc, opts...))
}
