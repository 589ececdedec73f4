package entity

import (
	"github.com/samdwyer/xueba/internal/combat"
	"github.com/samdwyer/xueba/internal/gamedata"
)

// Enemy is the exam a student fights in one battle.
type Enemy struct {
	Name        string           `json:"name"`
	Subject     gamedata.Subject `json:"subject"`
	HP          int              `json:"hp"`
	MaxHP       int              `json:"maxHp"`
	ATK         int              `json:"atk"`
	Description string           `json:"description"`
	IsRandom    bool             `json:"isRandom"` // Generated encounter; never saves stage progress

	effects combat.Effects
}

// NewEnemy creates an enemy at full hp.
func NewEnemy(name string, subject gamedata.Subject, hp, atk int, description string, random bool) *Enemy {
	if hp < 0 {
		hp = 0
	}
	if atk < 0 {
		atk = 0
	}
	return &Enemy{
		Name:        name,
		Subject:     subject,
		HP:          hp,
		MaxHP:       hp,
		ATK:         atk,
		Description: description,
		IsRandom:    random,
		effects:     combat.Effects{},
	}
}

// Clone returns an independent copy, effects included.
func (e *Enemy) Clone() *Enemy {
	if e == nil {
		return nil
	}
	out := *e
	out.effects = e.effects.Clone()
	return &out
}

// GetName returns the enemy's name.
func (e *Enemy) GetName() string { return e.Name }

// GetSubject returns the exam subject.
func (e *Enemy) GetSubject() gamedata.Subject { return e.Subject }

// IsAlive returns true if the enemy has HP remaining.
func (e *Enemy) IsAlive() bool { return e.HP > 0 }

// GetHP returns current HP.
func (e *Enemy) GetHP() int { return e.HP }

// GetMaxHP returns maximum HP.
func (e *Enemy) GetMaxHP() int { return e.MaxHP }

// GetAttack returns the base attack.
func (e *Enemy) GetAttack() int { return e.ATK }

// TakeDamage reduces HP, never below zero, and returns actual damage taken.
func (e *Enemy) TakeDamage(amount int) int {
	if amount <= 0 {
		return 0
	}
	actual := amount
	if actual > e.HP {
		actual = e.HP
	}
	e.HP -= actual
	return actual
}

// Heal restores HP and returns actual amount healed.
func (e *Enemy) Heal(amount int) int {
	if amount <= 0 {
		return 0
	}
	actual := amount
	if e.HP+actual > e.MaxHP {
		actual = e.MaxHP - e.HP
	}
	e.HP += actual
	return actual
}

// GetStatusEffects returns active status effects.
func (e *Enemy) GetStatusEffects() []combat.StatusEffect { return e.effects }

// AddStatusEffect adds or refreshes a status effect.
func (e *Enemy) AddStatusEffect(effect combat.StatusEffect) { e.effects.Apply(effect) }

// RemoveStatusEffect removes a status effect by id.
func (e *Enemy) RemoveStatusEffect(id combat.EffectID) { e.effects.Remove(id) }

// TickStatusEffects decrements durations. Burn only ever targets the student.
func (e *Enemy) TickStatusEffects() []combat.StatusTick {
	burn := combat.BurnDamage(e.effects, e.MaxHP)
	taken := e.TakeDamage(burn)
	ticks := e.effects.Tick()
	attachBurn(ticks, taken)
	return ticks
}

func attachBurn(ticks []combat.StatusTick, amount int) {
	for i := range ticks {
		if ticks[i].EffectID == combat.EffectBurn {
			ticks[i].Amount = amount
			return
		}
	}
}

// Ensure Enemy implements combat.Combatant
var _ combat.Combatant = (*Enemy)(nil)
