// Package game provides the terminal client's main loop and input handling.
package game

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/samdwyer/xueba/internal/profile"
	"github.com/samdwyer/xueba/internal/ui"
)

// statusEvent carries a status line from a background task into the event loop.
type statusEvent struct {
	tcell.EventTime
	msg string
}

func newStatusEvent(msg string) *statusEvent {
	ev := &statusEvent{msg: msg}
	ev.SetEventNow()
	return ev
}

// handleLoginKey edits the login form and submits it.
func (g *Game) handleLoginKey(ctx context.Context, ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape:
		g.running = false
	case tcell.KeyTab, tcell.KeyDown:
		g.form.Focus = (g.form.Focus + 1) % ui.FieldCount
	case tcell.KeyBacktab, tcell.KeyUp:
		g.form.Focus = (g.form.Focus + ui.FieldCount - 1) % ui.FieldCount
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		field := g.focusedField()
		if r := []rune(*field); len(r) > 0 {
			*field = string(r[:len(r)-1])
		}
	case tcell.KeyEnter:
		g.submitLogin(ctx, false)
	case tcell.KeyF2:
		g.submitLogin(ctx, true)
	case tcell.KeyRune:
		field := g.focusedField()
		*field += string(ev.Rune())
	}
}

func (g *Game) focusedField() *string {
	switch g.form.Focus {
	case ui.FieldPassword:
		return &g.form.Password
	case ui.FieldNickname:
		return &g.form.Nickname
	default:
		return &g.form.UID
	}
}

func (g *Game) submitLogin(ctx context.Context, register bool) {
	var (
		ok  bool
		err error
	)
	if register {
		ok, err = g.cfg.Session.RegisterAndLogin(ctx, g.form.UID, g.form.Password, g.form.Nickname)
	} else {
		ok, err = g.cfg.Session.Login(ctx, g.form.UID, g.form.Password)
	}
	switch {
	case err != nil:
		g.form.Message = profile.UserMessage(err)
		g.logger.Printf("game: login failed: %v", err)
		return
	case !ok && register:
		g.form.Message = profile.MsgUIDTaken
		return
	case !ok:
		g.form.Message = profile.MsgBadCredentials
		return
	}

	g.form = ui.LoginForm{}
	if p := g.cfg.Session.Current(); p != nil {
		g.levelCursor = min(p.CurrentLevel, maxLevel)
		if register {
			g.setStatus(profile.MsgRegistered)
		}
	}
	g.cfg.Engine.RefreshSession()
}

// statusTimeout is how long a status line stays on screen.
const statusTimeout = 3 * time.Second
