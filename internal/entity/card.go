// Package entity provides the runtime game entities: cards, profiles and the
// two sides of a battle.
package entity

import (
	"fmt"
	"math"

	"github.com/samdwyer/xueba/internal/combat"
	"github.com/samdwyer/xueba/internal/gamedata"
)

// Experience curve constants.
const (
	StartingMaxExp    = 100
	MaxExpGrowth      = 1.2
	AttributeGrowth   = 0.1
	defaultSkillPower = 1.0
)

// Card is a collectible student card owned by a profile.
type Card struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Subject        gamedata.Subject    `json:"subject"`
	Rarity         gamedata.Rarity     `json:"rarity"`
	Level          int                 `json:"level"`
	Exp            int                 `json:"exp"`
	MaxExp         int                 `json:"maxExp"`
	BaseAttributes gamedata.Attributes `json:"baseAttributes"`
	Attributes     gamedata.Attributes `json:"attributes"`
	Skill          gamedata.Skill      `json:"skill"`
	Description    string              `json:"description"`
}

// NewCardFromDef creates a level 1 card from a data definition.
func NewCardFromDef(def gamedata.CardDef) Card {
	c := Card{
		ID:             def.ID,
		Name:           def.Name,
		Subject:        def.Subject,
		Rarity:         def.Rarity,
		Level:          1,
		MaxExp:         StartingMaxExp,
		BaseAttributes: def.Attributes,
		Skill:          def.Skill,
		Description:    def.Description,
	}
	c.RecomputeAttributes()
	return c
}

// Normalize fills in levelling data for cards stored before levelling existed.
// It reports whether anything changed.
func (c *Card) Normalize() bool {
	changed := false
	if c.Level < 1 {
		c.Level = 1
		c.Exp = 0
		changed = true
	}
	if c.MaxExp <= 0 {
		c.MaxExp = StartingMaxExp
		changed = true
	}
	if c.BaseAttributes == (gamedata.Attributes{}) && c.Attributes != (gamedata.Attributes{}) {
		c.BaseAttributes = c.Attributes
		changed = true
	}
	if c.Skill.Type == "" {
		c.Skill = gamedata.Skill{Name: "普通答题", Type: gamedata.SkillDamage, Power: defaultSkillPower}
		changed = true
	}
	if changed {
		c.RecomputeAttributes()
	}
	return changed
}

// RecomputeAttributes derives Attributes from BaseAttributes and Level.
func (c *Card) RecomputeAttributes() {
	c.Attributes = c.BaseAttributes.Scale(1 + float64(c.Level-1)*AttributeGrowth)
}

// AddExp grants experience and returns one log line per level gained.
func (c *Card) AddExp(amount int) []string {
	if amount <= 0 {
		return nil
	}
	c.Normalize()

	var lines []string
	c.Exp += amount
	for c.Exp >= c.MaxExp {
		c.Exp -= c.MaxExp
		c.Level++
		c.MaxExp = int(math.Floor(float64(c.MaxExp) * MaxExpGrowth))
		c.RecomputeAttributes()
		lines = append(lines, fmt.Sprintf("%s 升级了！当前等级 Lv.%d", c.Name, c.Level))
	}
	return lines
}

// Play returns the battle view of the card.
func (c Card) Play() combat.CardPlay {
	return combat.CardPlay{
		Name:       c.Name,
		Subject:    c.Subject,
		Attributes: c.Attributes,
		Skill:      c.Skill,
	}
}
