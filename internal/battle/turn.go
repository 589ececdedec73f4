package battle

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samdwyer/xueba/internal/entity"
)

// PlayCard plays the card at index in the hand and schedules the rest of the turn:
//
//	player_cast -> player_impact -> idle -> enemy_cast -> enemy_impact -> idle
//
// with a branch to the result view after either impact.
func (e *Engine) PlayCard(ctx context.Context, index int) error {
	e.mu.Lock()
	if err := e.checkPlayableLocked(index); err != nil {
		e.mu.Unlock()
		return err
	}

	_, span := e.tracer.Start(ctx, "battle.play_card")
	card := e.hand[index]
	span.SetAttributes(
		attribute.String("card.id", card.ID),
		attribute.String("card.skill", string(card.Skill.Type)),
		attribute.Int("battle.turn", e.turnCount+1),
	)
	span.End()

	e.hand = append(e.hand[:index:index], e.hand[index+1:]...)
	e.activeCard = &card
	e.anim = AnimPlayerCast
	e.inFlight = true
	e.turnCount++
	e.scheduleLocked(e.timing.Cast, func() { e.resolvePlayerLocked(card) })

	e.version++
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
	return nil
}

func (e *Engine) checkPlayableLocked(index int) error {
	switch {
	case e.enemy == nil:
		return ErrNoBattle
	case e.result != ResultNone:
		return ErrBattleOver
	case e.anim != AnimIdle || e.inFlight:
		return ErrBusy
	case e.student == nil || e.student.HP <= 0:
		return ErrPlayerDown
	case index < 0 || index >= len(e.hand):
		return fmt.Errorf("%w: %d (hand has %d)", ErrInvalidCard, index, len(e.hand))
	}
	return nil
}

func (e *Engine) resolvePlayerLocked(card entity.Card) {
	res := e.resolver.Resolve(card.Play(), e.student, e.enemy)
	if res.Draw > 0 {
		e.drawLocked(res.Draw)
	}
	e.logLocked(res.Message)
	impact := res.Impact
	e.impact = &impact
	e.anim = AnimPlayerImpact
	e.scheduleLocked(e.timing.Impact, e.finishPlayerLocked)
}

func (e *Engine) finishPlayerLocked() {
	e.activeCard = nil
	e.impact = nil
	e.anim = AnimIdle
	if !e.enemy.IsAlive() {
		e.scheduleLocked(e.timing.TurnGap, func() { e.endBattleLocked(ResultWin) })
		return
	}
	e.scheduleLocked(e.timing.TurnGap, e.startEnemyTurnLocked)
}

func (e *Engine) startEnemyTurnLocked() {
	e.anim = AnimEnemyCast
	e.scheduleLocked(e.timing.Cast, e.resolveEnemyLocked)
}

func (e *Engine) resolveEnemyLocked() {
	_, span := e.tracer.Start(e.battleCtx, "battle.enemy_turn")
	defer span.End()

	tick := e.resolver.TickEffects(e.enemy, e.student)
	e.logLocked(tick.Messages...)
	span.SetAttributes(attribute.Int("enemy.burn_damage", tick.BurnDamage))
	if tick.PlayerDefeated {
		e.anim = AnimEnemyImpact
		e.impact = nil
		e.scheduleLocked(e.timing.Impact, func() { e.endBattleLocked(ResultLose) })
		return
	}
	if !e.enemy.IsAlive() {
		e.anim = AnimIdle
		e.scheduleLocked(e.timing.TurnGap, func() { e.endBattleLocked(ResultWin) })
		return
	}

	attack := e.resolver.EnemyAttack(e.enemy, e.student)
	e.logLocked(attack.Messages...)
	span.SetAttributes(
		attribute.Int("enemy.raw_damage", attack.RawDamage),
		attribute.Int("enemy.absorbed", attack.Absorbed),
		attribute.Int("enemy.damage", attack.Damage),
		attribute.String("enemy.debuff", string(attack.DebuffAdded)),
	)
	impact := attack.Impact
	e.impact = &impact
	e.anim = AnimEnemyImpact
	e.scheduleLocked(e.timing.Impact, e.finishEnemyLocked)
}

func (e *Engine) finishEnemyLocked() {
	e.impact = nil
	e.anim = AnimIdle
	if !e.student.IsAlive() {
		e.endBattleLocked(ResultLose)
		return
	}
	e.drawLocked(1)
	e.inFlight = false
}

// ExpGain is the experience every deck card earns for a win.
func ExpGain(level int, random bool) int {
	if random {
		level = 5
	}
	return int(math.Floor(20 * (1 + float64(level)*0.2)))
}

// endBattleLocked records the result and, on a win, commits progress and experience.
func (e *Engine) endBattleLocked(result Result) {
	ctx, span := e.tracer.Start(e.battleCtx, "battle.end")
	defer span.End()

	e.result = result
	e.view = ViewResult
	e.anim = AnimIdle
	e.activeCard = nil
	e.impact = nil
	e.inFlight = false
	span.SetAttributes(
		attribute.String("battle.outcome", result.String()),
		attribute.Int("battle.turns", e.turnCount),
		attribute.Int("battle.player_hp", e.student.HP),
	)

	if result != ResultWin {
		e.logLocked("你被难题击倒了……再接再厉！")
		return
	}
	e.logLocked("恭喜！你战胜了「" + e.enemy.Name + "」！")

	if !e.enemy.IsRandom {
		var rewards []entity.Card
		if e.rng.Float64() < RewardChance {
			rewards = append(rewards, e.rewards.Generate(e.rng))
		}
		if err := e.store.SaveProgress(ctx, e.selectedLevel+1, rewards); err != nil {
			e.logger.Printf("battle: save progress failed: %v", err)
			span.RecordError(err)
		} else {
			e.rewardCards = rewards
		}
	}

	exp := ExpGain(e.selectedLevel, e.enemy.IsRandom)
	lines, err := e.store.AddExpToCards(ctx, deckIDs(e.deck), exp)
	if err != nil {
		e.logger.Printf("battle: grant exp failed: %v", err)
		span.RecordError(err)
	}
	e.levelUpLog = lines
	span.SetAttributes(
		attribute.Int("battle.exp", exp),
		attribute.Int("battle.level_ups", len(lines)),
		attribute.Int("battle.rewards", len(e.rewardCards)),
	)
}

func deckIDs(deck []entity.Card) []string {
	seen := make(map[string]bool, len(deck))
	ids := make([]string, 0, len(deck))
	for _, c := range deck {
		if !seen[c.ID] {
			seen[c.ID] = true
			ids = append(ids, c.ID)
		}
	}
	return ids
}
