package game

import (
	"context"
	"errors"

	"github.com/gdamore/tcell/v2"

	"github.com/samdwyer/xueba/internal/battle"
)

// cardIndexForRune maps the keys 1-8 to hand positions.
func cardIndexForRune(r rune) (int, bool) {
	if r < '1' || r >= '1'+battle.MaxHandSize {
		return 0, false
	}
	return int(r - '1'), true
}

func (g *Game) handleBattleKey(ctx context.Context, ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		g.cfg.Engine.Flee()
		g.setStatus("你逃离了战斗。")
	case tcell.KeyRune:
		idx, ok := cardIndexForRune(ev.Rune())
		if !ok {
			return
		}
		err := g.cfg.Engine.PlayCard(ctx, idx)
		switch {
		case err == nil, errors.Is(err, battle.ErrBusy), errors.Is(err, battle.ErrInvalidCard):
			// Keys pressed mid-animation or past the end of the hand are ignored.
		default:
			g.logger.Printf("game: play card %d: %v", idx, err)
		}
	}
}

func (g *Game) handleResultKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEnter, tcell.KeyEscape:
		g.cfg.Engine.ResetToDashboard()
		if p := g.cfg.Session.Current(); p != nil {
			g.levelCursor = min(p.CurrentLevel, maxLevel)
		}
	case tcell.KeyRune:
		if ev.Rune() == ' ' {
			g.cfg.Engine.ResetToDashboard()
		}
	}
}
