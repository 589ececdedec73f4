// Package combat provides the card-battle rules: status effects, card effect
// resolution and the enemy counter-attack.
package combat

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/samdwyer/xueba/internal/gamedata"
)

// Combatant is the interface for any entity that can participate in combat.
// Both the student and the exam enemy implement this interface.
type Combatant interface {
	// Identity
	GetName() string
	GetSubject() gamedata.Subject
	IsAlive() bool

	// Stats
	GetHP() int
	GetMaxHP() int
	GetAttack() int

	// Mutations
	TakeDamage(amount int) int // Returns actual damage taken
	Heal(amount int) int       // Returns actual amount healed

	// Status effects
	GetStatusEffects() []StatusEffect
	AddStatusEffect(effect StatusEffect)
	RemoveStatusEffect(id EffectID)
	TickStatusEffects() []StatusTick // Process turn-based effects, returns what happened
}

// Defender is a combatant that can hold a shield.
type Defender interface {
	Combatant
	GetShield() int
	SetShield(amount int)
}

// CardPlay is the battle-relevant view of a card being played.
type CardPlay struct {
	Name       string
	Subject    gamedata.Subject
	Attributes gamedata.Attributes
	Skill      gamedata.Skill
}

// ImpactType tells the presentation layer how to animate an impact.
type ImpactType string

const (
	ImpactPhysical ImpactType = "physical"
	ImpactMagical  ImpactType = "magical"
	ImpactHeal     ImpactType = "heal"
	ImpactShield   ImpactType = "shield"
)

// String returns the impact type name.
func (t ImpactType) String() string { return string(t) }

// Impact is the dominant number shown for a resolved action.
type Impact struct {
	Type  ImpactType `json:"type"`
	Value int        `json:"value"`
}

// EffectResult contains the outcome of resolving a card.
type EffectResult struct {
	Damage       int      // Damage dealt to the enemy
	Healing      int      // Hp restored to the student
	Shield       int      // Shield gained
	Draw         int      // Cards the engine should draw
	SelfDamage   int      // Hp lost by a risky play
	StatusAdded  EffectID // Effect applied by buff/debuff skills
	SubjectMatch bool
	Impact       Impact
	Message      string // Human-readable description
}

// TurnResult contains the outcome of one enemy turn.
type TurnResult struct {
	BurnDamage     int
	Expired        []StatusTick
	Attacked       bool
	RawDamage      int // Damage before the shield
	Absorbed       int
	Damage         int // Damage that reached hp
	FullyBlocked   bool
	DebuffAdded    EffectID
	PlayerDefeated bool
	Impact         Impact
	Messages       []string
}

// Resolver calculates and applies card effects and enemy attacks.
type Resolver struct {
	rng *rand.Rand
}

// NewResolver creates a resolver. A nil rng is replaced with a time-seeded one.
func NewResolver(rng *rand.Rand) *Resolver {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Resolver{rng: rng}
}

// EffectivePower computes attribute x subject bonus x roll x the student's damage multiplier.
func EffectivePower(play CardPlay, targetSubject gamedata.Subject, roll float64, userEffects []StatusEffect) (float64, bool) {
	base := float64(play.Attributes.Get(gamedata.AttributeFor(targetSubject)))
	match := play.Subject == targetSubject
	subjectMult := 1.0
	if match {
		subjectMult = 1.5
	}
	return base * subjectMult * roll * DamageDealtMultiplier(userEffects), match
}

// Resolve plays a card from the student against the enemy and returns the result.
func (r *Resolver) Resolve(play CardPlay, user Defender, target Combatant) EffectResult {
	roll := 0.9 + r.rng.Float64()*0.2
	effective, match := EffectivePower(play, target.GetSubject(), roll, user.GetStatusEffects())
	defMult := DamageTakenMultiplier(target.GetStatusEffects())
	power := play.Skill.Power

	result := EffectResult{SubjectMatch: match}
	tag := ""
	if match {
		tag = " (完美对口!)"
	}
	strike := func(ratio float64) int {
		dmg := floorNonNeg(effective * ratio * defMult)
		target.TakeDamage(dmg)
		result.Damage = dmg
		return dmg
	}

	switch play.Skill.Type {
	case gamedata.SkillHeal:
		result.Healing = user.Heal(floorNonNeg(effective * power))
		dmg := strike(0.5)
		result.Impact = Impact{Type: ImpactHeal, Value: result.Healing}
		result.Message = fmt.Sprintf("你使用了 [%s]，恢复了 %d 点精神值，并造成 %d 点%s伤害。", play.Name, result.Healing, dmg, tag)

	case gamedata.SkillShield:
		result.Shield = floorNonNeg(effective * power)
		user.SetShield(user.GetShield() + result.Shield)
		dmg := strike(0.8)
		result.Impact = Impact{Type: ImpactShield, Value: result.Shield}
		result.Message = fmt.Sprintf("你使用了 [%s]，获得 %d 点护盾，并造成 %d 点%s伤害。", play.Name, result.Shield, dmg, tag)

	case gamedata.SkillDraw:
		result.Draw = int(power)
		if result.Draw < 0 {
			result.Draw = 0
		}
		dmg := strike(0.8)
		result.Impact = r.damageImpact(dmg, match)
		result.Message = fmt.Sprintf("你使用了 [%s]，抽取 %d 张牌，并造成 %d 点%s伤害。", play.Name, result.Draw, dmg, tag)

	case gamedata.SkillRisky:
		dmg := strike(power)
		self := int(math.Floor(float64(user.GetHP()) * 0.1))
		if user.GetHP()-self < 1 {
			self = user.GetHP() - 1
		}
		result.SelfDamage = user.TakeDamage(self)
		result.Impact = r.damageImpact(dmg, match)
		result.Message = fmt.Sprintf("你使用了 [%s]，孤注一掷造成 %d 点%s伤害，自身精神值减少 %d！", play.Name, dmg, tag, result.SelfDamage)

	case gamedata.SkillBuff:
		effect := NewPower()
		user.AddStatusEffect(effect)
		result.StatusAdded = effect.EffectID
		dmg := strike(0.5)
		result.Impact = r.damageImpact(dmg, match)
		result.Message = fmt.Sprintf("你使用了 [%s]，进入「%s」%d 回合，并造成 %d 点%s伤害。", play.Name, effect.Name, effect.Duration, dmg, tag)

	case gamedata.SkillDebuff:
		effect := NewWeak()
		target.AddStatusEffect(effect)
		result.StatusAdded = effect.EffectID
		dmg := strike(0.5)
		result.Impact = r.damageImpact(dmg, match)
		result.Message = fmt.Sprintf("你使用了 [%s]，令 %s 陷入「%s」%d 回合，并造成 %d 点%s伤害。", play.Name, target.GetName(), effect.Name, effect.Duration, dmg, tag)

	default:
		if power <= 0 {
			power = 1
		}
		dmg := strike(power)
		result.Impact = r.damageImpact(dmg, match)
		result.Message = fmt.Sprintf("你使用了 [%s]，造成了 %d 点%s伤害！", play.Name, dmg, tag)
	}

	return result
}

func (r *Resolver) damageImpact(dmg int, match bool) Impact {
	if match {
		return Impact{Type: ImpactMagical, Value: dmg}
	}
	return Impact{Type: ImpactPhysical, Value: dmg}
}

// TickEffects processes both sides' status effects at the start of an enemy turn.
func (r *Resolver) TickEffects(enemy Combatant, student Defender) TurnResult {
	var result TurnResult
	for _, tick := range student.TickStatusEffects() {
		result.BurnDamage += tick.Amount
		if tick.Ended {
			result.Expired = append(result.Expired, tick)
		}
	}
	for _, tick := range enemy.TickStatusEffects() {
		if tick.Ended {
			result.Expired = append(result.Expired, tick)
		}
	}
	if result.BurnDamage > 0 {
		result.Messages = append(result.Messages, fmt.Sprintf("焦虑在蔓延，你的精神力减少了 %d！", result.BurnDamage))
	}
	for _, tick := range result.Expired {
		result.Messages = append(result.Messages, fmt.Sprintf("「%s」效果结束了。", tick.Name))
	}
	result.PlayerDefeated = !student.IsAlive()
	return result
}

// EnemyAttack rolls the enemy's attack, a possible debuff, and applies it through the shield.
func (r *Resolver) EnemyAttack(enemy Combatant, student Defender) TurnResult {
	var result TurnResult
	if !enemy.IsAlive() || !student.IsAlive() {
		result.PlayerDefeated = !student.IsAlive()
		return result
	}
	result.Attacked = true

	raw := float64(enemy.GetAttack()) * (0.8 + r.rng.Float64()*0.4)
	raw *= DamageDealtMultiplier(enemy.GetStatusEffects())
	raw *= DamageTakenMultiplier(student.GetStatusEffects())
	result.RawDamage = floorNonNeg(raw)

	if r.rng.Float64() < 0.2 {
		effect := NewBurn()
		if r.rng.Intn(2) == 1 {
			effect = NewFragile()
		}
		student.AddStatusEffect(effect)
		result.DebuffAdded = effect.EffectID
		result.Messages = append(result.Messages, fmt.Sprintf("%s 让你陷入了「%s」%d 回合！", enemy.GetName(), effect.Name, effect.Duration))
	}

	shield, remaining := AbsorbWithShield(student.GetShield(), result.RawDamage)
	result.Absorbed = student.GetShield() - shield
	student.SetShield(shield)
	result.Damage = student.TakeDamage(remaining)
	result.FullyBlocked = remaining == 0 && result.RawDamage > 0

	switch {
	case result.FullyBlocked:
		result.Impact = Impact{Type: ImpactShield, Value: 0}
		result.Messages = append(result.Messages, fmt.Sprintf("你的护盾完全抵挡了 %s 的攻击！(护盾 -%d)", enemy.GetName(), result.Absorbed))
	case result.Absorbed > 0:
		result.Impact = Impact{Type: ImpactPhysical, Value: result.Damage}
		result.Messages = append(result.Messages, fmt.Sprintf("护盾破碎，抵挡了 %d 点伤害，你的精神力减少了 %d！", result.Absorbed, result.Damage))
	default:
		result.Impact = Impact{Type: ImpactPhysical, Value: result.Damage}
		result.Messages = append(result.Messages, fmt.Sprintf("%s 发动了难题攻击，你的精神力减少了 %d！", enemy.GetName(), result.Damage))
	}

	result.PlayerDefeated = !student.IsAlive()
	return result
}

// AbsorbWithShield splits incoming damage between a shield and hp.
// A shield at least as large as the damage blocks it fully and keeps the rest;
// a smaller shield is destroyed and the remainder passes through.
func AbsorbWithShield(shield, damage int) (newShield, remaining int) {
	if shield < 0 {
		shield = 0
	}
	if damage <= 0 {
		return shield, 0
	}
	if shield >= damage {
		return shield - damage, 0
	}
	return 0, damage - shield
}

func floorNonNeg(v float64) int {
	n := int(math.Floor(v))
	if n < 0 {
		return 0
	}
	return n
}
