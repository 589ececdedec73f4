package entity

import (
	"github.com/samdwyer/xueba/internal/combat"
	"github.com/samdwyer/xueba/internal/gamedata"
)

// Base and per-card hp of the student's battle avatar.
const (
	BaseStudentHP    = 200
	StudentHPPerCard = 15
)

// Student is the player's side of a battle.
type Student struct {
	Name   string
	HP     int
	MaxHP  int
	Shield int

	effects combat.Effects
}

// NewStudent creates a full-hp student whose max hp grows with the collection size.
func NewStudent(name string, ownedCards int) *Student {
	maxHP := BaseStudentHP + StudentHPPerCard*ownedCards
	return &Student{
		Name:    name,
		HP:      maxHP,
		MaxHP:   maxHP,
		effects: combat.Effects{},
	}
}

func (s *Student) GetName() string              { return s.Name }
func (s *Student) GetSubject() gamedata.Subject { return "" }
func (s *Student) IsAlive() bool                { return s.HP > 0 }
func (s *Student) GetHP() int                   { return s.HP }
func (s *Student) GetMaxHP() int                { return s.MaxHP }
func (s *Student) GetAttack() int               { return 0 }
func (s *Student) GetShield() int               { return s.Shield }

// SetShield sets the shield, clamped at zero.
func (s *Student) SetShield(amount int) {
	if amount < 0 {
		amount = 0
	}
	s.Shield = amount
}

// TakeDamage reduces HP, never below zero, and returns actual damage taken.
func (s *Student) TakeDamage(amount int) int {
	if amount <= 0 {
		return 0
	}
	actual := amount
	if actual > s.HP {
		actual = s.HP
	}
	s.HP -= actual
	return actual
}

// Heal restores HP up to MaxHP and returns actual amount healed.
func (s *Student) Heal(amount int) int {
	if amount <= 0 {
		return 0
	}
	actual := amount
	if s.HP+actual > s.MaxHP {
		actual = s.MaxHP - s.HP
	}
	s.HP += actual
	return actual
}

func (s *Student) GetStatusEffects() []combat.StatusEffect   { return s.effects }
func (s *Student) AddStatusEffect(effect combat.StatusEffect) { s.effects.Apply(effect) }
func (s *Student) RemoveStatusEffect(id combat.EffectID)      { s.effects.Remove(id) }

// TickStatusEffects applies burn damage, then decrements every duration.
func (s *Student) TickStatusEffects() []combat.StatusTick {
	burn := combat.BurnDamage(s.effects, s.MaxHP)
	taken := s.TakeDamage(burn)
	ticks := s.effects.Tick()
	attachBurn(ticks, taken)
	return ticks
}

// Ensure Student implements combat.Defender
var _ combat.Defender = (*Student)(nil)
