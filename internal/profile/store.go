// Package profile manages player accounts, the logged-in session and
// progress commits at the end of a battle.
package profile

import (
	"context"
	"errors"
	"time"

	"github.com/samdwyer/xueba/internal/entity"
)

var (
	ErrNotFound           = errors.New("profile not found")
	ErrAlreadyExists      = errors.New("profile already exists")
	ErrMissingCredentials = errors.New("uid and password are required")
	ErrMissingNickname    = errors.New("nickname is required")
	ErrNotLoggedIn        = errors.New("no profile is logged in")
)

// Store is what the battle engine needs from profile persistence.
type Store interface {
	Register(ctx context.Context, uid, password, nickname string) (bool, error)
	Login(ctx context.Context, uid, password string) (bool, error)
	Logout()
	Current() *entity.Profile
	SaveProgress(ctx context.Context, level int, newCards []entity.Card) error
	AddExpToCards(ctx context.Context, cardIDs []string, amount int) ([]string, error)
}

// Account is a stored profile plus its credentials.
type Account struct {
	Profile      *entity.Profile
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Repository persists accounts.
type Repository interface {
	Create(ctx context.Context, acct Account) error
	Get(ctx context.Context, uid string) (Account, error)
	Update(ctx context.Context, p *entity.Profile) error
}

// UserMessage maps a login or registration outcome to the text shown on the login screen.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredentials):
		return "请填写完整信息"
	case errors.Is(err, ErrMissingNickname):
		return "请输入昵称"
	case errors.Is(err, ErrAlreadyExists):
		return "该UID已被注册"
	case errors.Is(err, ErrNotFound):
		return "账号或密码错误，或账号不存在"
	default:
		return "系统繁忙，请稍后再试"
	}
}

// Messages for false results from Register and Login.
const (
	MsgUIDTaken       = "该UID已被注册"
	MsgBadCredentials = "账号或密码错误，或账号不存在"
	MsgRegistered     = "注册成功！"
)
