package gamedata

import (
	"errors"
	"math"
)

// Rarity is a card's rarity tier.
type Rarity string

const (
	RarityN   Rarity = "N"
	RarityR   Rarity = "R"
	RaritySR  Rarity = "SR"
	RaritySSR Rarity = "SSR"
)

// SkillType selects how a card's skill resolves in battle.
type SkillType string

const (
	SkillDamage SkillType = "damage"
	SkillHeal   SkillType = "heal"
	SkillShield SkillType = "shield"
	SkillDraw   SkillType = "draw"
	SkillRisky  SkillType = "risky"
	SkillBuff   SkillType = "buff"
	SkillDebuff SkillType = "debuff"
)

// SkillTypes lists every skill type.
func SkillTypes() []SkillType {
	return []SkillType{SkillDamage, SkillHeal, SkillShield, SkillDraw, SkillRisky, SkillBuff, SkillDebuff}
}

// Skill is the action a card performs when played.
// Power is a multiplier for damage/heal/shield/risky and a card count for draw.
type Skill struct {
	Name        string    `json:"name"`
	Type        SkillType `json:"type"`
	Power       float64   `json:"power"`
	Description string    `json:"description"`
}

// Attributes is the {thinking, insight, imagination} triple.
type Attributes struct {
	Thinking    int `json:"thinking"`
	Insight     int `json:"insight"`
	Imagination int `json:"imagination"`
}

// Get returns the component named by kind.
func (a Attributes) Get(kind AttributeKind) int {
	switch kind {
	case AttrThinking:
		return a.Thinking
	case AttrInsight:
		return a.Insight
	default:
		return a.Imagination
	}
}

// Scale multiplies each component by factor, flooring the result.
func (a Attributes) Scale(factor float64) Attributes {
	return Attributes{
		Thinking:    int(math.Floor(float64(a.Thinking) * factor)),
		Insight:     int(math.Floor(float64(a.Insight) * factor)),
		Imagination: int(math.Floor(float64(a.Imagination) * factor)),
	}
}

// CardDef defines a card template loaded from JSON.
type CardDef struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Subject     Subject    `json:"subject"`
	Rarity      Rarity     `json:"rarity"`
	Attributes  Attributes `json:"attributes"`
	Skill       Skill      `json:"skill"`
	Description string     `json:"description"`
}

// CardsFile represents the structure of starter_deck.json.
type CardsFile struct {
	Cards []CardDef `json:"cards"`
}

// LoadStarterDeck loads the five-card deck every new profile starts with.
func LoadStarterDeck() ([]CardDef, error) {
	file, err := Load[CardsFile]("starter_deck.json")
	if err != nil {
		return nil, err
	}
	if len(file.Cards) == 0 {
		return nil, errors.New("no cards loaded from starter_deck.json")
	}
	return file.Cards, nil
}

// MustLoadStarterDeck loads the starter deck, panicking on error.
func MustLoadStarterDeck() []CardDef {
	cards, err := LoadStarterDeck()
	if err != nil {
		panic(err)
	}
	return cards
}
