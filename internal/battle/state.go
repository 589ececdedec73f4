// Package battle provides the turn-based battle engine: session state, the
// turn state machine, the phase scheduler and end-of-battle rewards.
package battle

import (
	"github.com/samdwyer/xueba/internal/combat"
	"github.com/samdwyer/xueba/internal/entity"
)

// ViewState is the screen the presentation layer should show.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewDashboard
	ViewBattle
	ViewResult
)

// String returns a human-readable view name.
func (v ViewState) String() string {
	switch v {
	case ViewLogin:
		return "login"
	case ViewDashboard:
		return "dashboard"
	case ViewBattle:
		return "battle"
	case ViewResult:
		return "result"
	default:
		return "unknown"
	}
}

// MarshalText encodes the view by name.
func (v ViewState) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// AnimationState is the current phase of the turn state machine.
type AnimationState int

const (
	AnimIdle AnimationState = iota
	AnimPlayerCast
	AnimPlayerImpact
	AnimEnemyCast
	AnimEnemyImpact
)

// String returns a human-readable phase name.
func (a AnimationState) String() string {
	switch a {
	case AnimIdle:
		return "idle"
	case AnimPlayerCast:
		return "player_cast"
	case AnimPlayerImpact:
		return "player_impact"
	case AnimEnemyCast:
		return "enemy_cast"
	case AnimEnemyImpact:
		return "enemy_impact"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase by name.
func (a AnimationState) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// Result is the outcome of a battle.
type Result int

const (
	ResultNone Result = iota
	ResultWin
	ResultLose
)

// String returns a human-readable result.
func (r Result) String() string {
	switch r {
	case ResultWin:
		return "win"
	case ResultLose:
		return "lose"
	default:
		return "none"
	}
}

// MarshalText encodes the result by name.
func (r Result) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// State is a read-only snapshot of the engine.
type State struct {
	Version       uint64                `json:"version"`
	View          ViewState             `json:"view"`
	SelectedLevel int                   `json:"selectedLevel"`
	Result        Result                `json:"result"`
	Enemy         *entity.Enemy         `json:"enemy"`
	PlayerHP      int                   `json:"playerHp"`
	PlayerMaxHP   int                   `json:"playerMaxHp"`
	PlayerShield  int                   `json:"playerShield"`
	PlayerEffects []combat.StatusEffect `json:"playerEffects"`
	EnemyEffects  []combat.StatusEffect `json:"enemyEffects"`
	Hand          []entity.Card         `json:"hand"`
	Deck          []entity.Card         `json:"deck"`
	TurnLog       []string              `json:"turnLog"`
	Animation     AnimationState        `json:"animation"`
	ActiveCard    *entity.Card          `json:"activeCard"`
	Impact        *combat.Impact        `json:"impact"`
	LevelUpLog    []string              `json:"levelUpLog"`
	RewardCards   []entity.Card         `json:"rewardCards"`
	TurnCount     int                   `json:"turnCount"`
	Busy          bool                  `json:"busy"` // A player turn is in flight
}

// CanPlay reports whether PlayCard would currently be accepted.
func (s State) CanPlay() bool {
	return s.View == ViewBattle && s.Result == ResultNone && s.Enemy != nil &&
		s.Animation == AnimIdle && !s.Busy && s.PlayerHP > 0
}
