package game

import (
	"context"
	"log"

	"github.com/samdwyer/xueba/internal/battle"
	"github.com/samdwyer/xueba/internal/entity"
	"github.com/samdwyer/xueba/internal/gamedata"
)

// Session is the login surface the client drives. profile.Service implements it.
type Session interface {
	Login(ctx context.Context, uid, password string) (bool, error)
	RegisterAndLogin(ctx context.Context, uid, password, nickname string) (bool, error)
	Logout()
	Current() *entity.Profile
}

// Config holds what the client needs to run.
type Config struct {
	Session Session
	Engine  *battle.Engine
	Palette gamedata.Palette
	Logger  *log.Logger
}
