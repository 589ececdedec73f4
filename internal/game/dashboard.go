package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/samdwyer/xueba/internal/battle"
	"github.com/samdwyer/xueba/internal/encounter"
)

const dashboardRow = 10

func (g *Game) handleDashboardKey(ctx context.Context, ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		g.running = false
	case tcell.KeyLeft:
		g.moveCursor(-1)
	case tcell.KeyRight:
		g.moveCursor(1)
	case tcell.KeyUp:
		g.moveCursor(-dashboardRow)
	case tcell.KeyDown:
		g.moveCursor(dashboardRow)
	case tcell.KeyEnter:
		g.startLevel(ctx)
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'r', 'R':
			g.startRandom(ctx)
		case '+', '=':
			g.difficulty = encounter.ClampDifficulty(g.difficulty + 1)
		case '-', '_':
			g.difficulty = encounter.ClampDifficulty(g.difficulty - 1)
		case 'l', 'L':
			g.cfg.Session.Logout()
			g.cfg.Engine.RefreshSession()
		case 'q', 'Q':
			g.running = false
		}
	}
}

func (g *Game) moveCursor(delta int) {
	g.levelCursor = max(1, min(maxLevel, g.levelCursor+delta))
}

func (g *Game) startLevel(ctx context.Context) {
	err := g.cfg.Engine.StartFixedLevel(ctx, g.levelCursor)
	switch {
	case errors.Is(err, battle.ErrLevelLocked):
		g.setStatus(fmt.Sprintf("第 %d 关尚未解锁", g.levelCursor))
	case err != nil:
		g.setStatus("无法开始挑战")
		g.logger.Printf("game: start level %d: %v", g.levelCursor, err)
	}
}

func (g *Game) startRandom(ctx context.Context) {
	difficulty := g.difficulty
	g.setStatus(fmt.Sprintf("正在生成%s难度的对手……", encounter.DifficultyLabel(difficulty)))
	g.async(func() {
		if _, err := g.cfg.Engine.StartGenerated(ctx, difficulty); err != nil {
			g.logger.Printf("game: start random battle: %v", err)
			g.post("无法开始随机挑战")
		}
	})
}
