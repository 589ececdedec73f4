package game

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samdwyer/xueba/internal/battle"
	"github.com/samdwyer/xueba/internal/encounter"
	"github.com/samdwyer/xueba/internal/entity"
	"github.com/samdwyer/xueba/internal/telemetry"
	"github.com/samdwyer/xueba/internal/ui"
)

const maxLevel = entity.MaxFixedLevel

// Game is the terminal client: it renders engine snapshots and turns key
// presses into engine and session calls.
type Game struct {
	screen   *ui.Screen
	renderer *ui.Renderer
	cfg      Config
	logger   *log.Logger

	form        ui.LoginForm
	levelCursor int
	difficulty  int
	status      string
	statusAt    time.Time
	running     bool

	// async runs slow work, such as enemy generation, off the event loop.
	async func(func())
}

// New creates a new game instance on the terminal.
func New(cfg Config) (*Game, error) {
	screen, err := ui.NewScreen()
	if err != nil {
		return nil, err
	}
	g := newGame(cfg)
	g.screen = screen
	g.renderer = ui.NewRenderer(screen, cfg.Palette)
	return g, nil
}

func newGame(cfg Config) *Game {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	g := &Game{
		cfg:         cfg,
		logger:      logger,
		levelCursor: 1,
		difficulty:  encounter.MinDifficulty,
		running:     true,
		async:       func(fn func()) { go fn() },
	}
	if p := cfg.Session.Current(); p != nil {
		g.levelCursor = min(p.CurrentLevel, maxLevel)
	}
	return g
}

// Run executes the main game loop.
func (g *Game) Run(ctx context.Context) error {
	ctx, span := telemetry.Tracer("game").Start(ctx, "game.init")
	if p := g.cfg.Session.Current(); p != nil {
		span.SetAttributes(
			attribute.String("profile.uid", p.UID),
			attribute.Int("profile.level", p.CurrentLevel),
		)
	}
	span.End()

	unsubscribe := g.cfg.Engine.Subscribe(func(battle.State) {
		// Wake the loop; it renders a fresh snapshot.
		_ = g.screen.PostEvent(tcell.NewEventInterrupt(nil))
	})
	defer unsubscribe()

	for g.running {
		g.renderer.Render(g.view())
		g.handleInput(ctx)
	}

	g.cfg.Engine.ResetToDashboard()
	g.screen.Close()
	return nil
}

func (g *Game) view() ui.View {
	v := ui.View{
		State:       g.cfg.Engine.Snapshot(),
		Profile:     g.cfg.Session.Current(),
		Login:       g.form,
		LevelCursor: g.levelCursor,
		Difficulty:  g.difficulty,
	}
	if g.status != "" && time.Since(g.statusAt) < statusTimeout {
		v.Status = g.status
	}
	return v
}

func (g *Game) setStatus(msg string) {
	g.status = msg
	g.statusAt = time.Now()
}

// handleInput processes a single input event.
func (g *Game) handleInput(ctx context.Context) {
	ev := g.screen.PollEvent()

	switch ev := ev.(type) {
	case *tcell.EventKey:
		g.handleKeyEvent(ctx, ev)
	case *statusEvent:
		g.setStatus(ev.msg)
	case *tcell.EventResize:
		g.screen.Sync()
	}
}

// handleKeyEvent routes keyboard input to the current view.
func (g *Game) handleKeyEvent(ctx context.Context, ev *tcell.EventKey) {
	if ev.Key() == tcell.KeyCtrlC {
		g.running = false
		return
	}

	switch g.cfg.Engine.Snapshot().View {
	case battle.ViewLogin:
		g.handleLoginKey(ctx, ev)
	case battle.ViewDashboard:
		g.handleDashboardKey(ctx, ev)
	case battle.ViewBattle:
		g.handleBattleKey(ctx, ev)
	case battle.ViewResult:
		g.handleResultKey(ev)
	}
}

// post delivers a status line from a background task.
func (g *Game) post(msg string) {
	if g.screen == nil {
		g.setStatus(msg)
		return
	}
	_ = g.screen.PostEvent(newStatusEvent(msg))
}

// Close cleans up game resources.
func (g *Game) Close() {
	if g.screen != nil {
		g.screen.Close()
	}
}
