package combat

import "math"

// EffectID identifies the behaviour of a status effect.
type EffectID string

const (
	EffectBurn    EffectID = "burn"    // Damage over time: 5% of max hp per tick
	EffectPower   EffectID = "power"   // Outgoing damage x1.5
	EffectWeak    EffectID = "weak"    // Outgoing damage x0.5
	EffectFragile EffectID = "fragile" // Incoming damage x1.5
)

// EffectKind separates helpful from harmful effects for display.
type EffectKind string

const (
	KindBuff   EffectKind = "buff"
	KindDebuff EffectKind = "debuff"
)

// Multipliers and ratios applied by the effects.
const (
	PowerMultiplier   = 1.5
	WeakMultiplier    = 0.5
	FragileMultiplier = 1.5
	BurnRatio         = 0.05

	// DefaultDuration is how many enemy-turn cycles a fresh effect lasts.
	DefaultDuration = 3
)

// StatusEffect represents an active status effect on a combatant.
type StatusEffect struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Kind     EffectKind `json:"type"`
	Icon     string     `json:"icon"`
	Duration int        `json:"duration"` // Turns remaining
	EffectID EffectID   `json:"effectId"`
	Value    float64    `json:"value"`
}

// StatusTick represents what happened when a status effect was processed.
type StatusTick struct {
	EffectID EffectID
	Name     string
	Amount   int  // Damage taken
	Ended    bool // True if the effect expired
}

// NewBurn returns a fresh burn debuff.
func NewBurn() StatusEffect {
	return StatusEffect{ID: string(EffectBurn), Name: "焦虑", Kind: KindDebuff, Icon: "🔥", Duration: DefaultDuration, EffectID: EffectBurn, Value: BurnRatio}
}

// NewPower returns a fresh power buff.
func NewPower() StatusEffect {
	return StatusEffect{ID: string(EffectPower), Name: "状态火热", Kind: KindBuff, Icon: "💪", Duration: DefaultDuration, EffectID: EffectPower, Value: PowerMultiplier}
}

// NewWeak returns a fresh weak debuff.
func NewWeak() StatusEffect {
	return StatusEffect{ID: string(EffectWeak), Name: "虚弱", Kind: KindDebuff, Icon: "💧", Duration: DefaultDuration, EffectID: EffectWeak, Value: WeakMultiplier}
}

// NewFragile returns a fresh fragile debuff.
func NewFragile() StatusEffect {
	return StatusEffect{ID: string(EffectFragile), Name: "易伤", Kind: KindDebuff, Icon: "💔", Duration: DefaultDuration, EffectID: EffectFragile, Value: FragileMultiplier}
}

// Effects is one side's list of active status effects.
// At most one entry exists per EffectID.
type Effects []StatusEffect

// Apply adds an effect, replacing any existing effect with the same EffectID.
func (e *Effects) Apply(effect StatusEffect) {
	for i, existing := range *e {
		if existing.EffectID == effect.EffectID {
			(*e)[i] = effect
			return
		}
	}
	*e = append(*e, effect)
}

// Remove drops the effect with the given id, if present.
func (e *Effects) Remove(id EffectID) {
	for i, existing := range *e {
		if existing.EffectID == id {
			*e = append((*e)[:i], (*e)[i+1:]...)
			return
		}
	}
}

// Has reports whether an effect with the given id is active.
func (e Effects) Has(id EffectID) bool {
	return e.Count(id) > 0
}

// Count returns the number of active entries with the given id.
func (e Effects) Count(id EffectID) int {
	n := 0
	for _, effect := range e {
		if effect.EffectID == id {
			n++
		}
	}
	return n
}

// Tick decrements every duration by one and drops effects that reach zero.
func (e *Effects) Tick() []StatusTick {
	var ticks []StatusTick
	remaining := Effects{}
	for _, effect := range *e {
		effect.Duration--
		tick := StatusTick{EffectID: effect.EffectID, Name: effect.Name}
		if effect.Duration <= 0 {
			tick.Ended = true
		} else {
			remaining = append(remaining, effect)
		}
		ticks = append(ticks, tick)
	}
	*e = remaining
	return ticks
}

// Clone returns an independent copy.
func (e Effects) Clone() Effects {
	if e == nil {
		return Effects{}
	}
	out := make(Effects, len(e))
	copy(out, e)
	return out
}

// BurnDamage is the damage all active burn instances deal to a combatant with maxHP.
func BurnDamage(effects []StatusEffect, maxHP int) int {
	per := int(math.Floor(float64(maxHP) * BurnRatio))
	return per * Effects(effects).Count(EffectBurn)
}

// DamageDealtMultiplier applies weak then power from the attacker's effects.
func DamageDealtMultiplier(effects []StatusEffect) float64 {
	mult := 1.0
	list := Effects(effects)
	if list.Has(EffectWeak) {
		mult *= WeakMultiplier
	}
	if list.Has(EffectPower) {
		mult *= PowerMultiplier
	}
	return mult
}

// DamageTakenMultiplier applies fragile from the defender's effects.
func DamageTakenMultiplier(effects []StatusEffect) float64 {
	if Effects(effects).Has(EffectFragile) {
		return FragileMultiplier
	}
	return 1.0
}
