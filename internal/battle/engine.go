package battle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samdwyer/xueba/internal/combat"
	"github.com/samdwyer/xueba/internal/encounter"
	"github.com/samdwyer/xueba/internal/entity"
	"github.com/samdwyer/xueba/internal/gamedata"
	"github.com/samdwyer/xueba/internal/profile"
	"github.com/samdwyer/xueba/internal/telemetry"
)

var (
	ErrBusy         = errors.New("a turn is already in progress")
	ErrNoBattle     = errors.New("no battle in progress")
	ErrBattleOver   = errors.New("battle is over")
	ErrPlayerDown   = errors.New("player has no hp left")
	ErrInvalidCard  = errors.New("invalid card index")
	ErrNoProfile    = errors.New("no profile is logged in")
	ErrInvalidLevel = errors.New("level out of range")
	ErrLevelLocked  = errors.New("level is locked")
)

// Hand and log limits.
const (
	MaxHandSize     = 8
	OpeningHandSize = 4
	MaxLogLines     = 6
)

const openingLine = "战斗开始！请选择卡牌进行答题（攻击）。"

// Timing holds the delays between turn phases.
type Timing struct {
	Cast    time.Duration // Focus animation before a card or attack resolves
	Impact  time.Duration // Impact display before returning to idle
	TurnGap time.Duration // Pause before the enemy turn or the result screen
}

// DefaultTiming is used when no Timing option is given.
var DefaultTiming = Timing{
	Cast:    800 * time.Millisecond,
	Impact:  600 * time.Millisecond,
	TurnGap: 500 * time.Millisecond,
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the random source used for rolls, draws and rewards.
func WithRand(rng *rand.Rand) Option { return func(e *Engine) { e.rng = rng } }

// WithScheduler sets the phase scheduler.
func WithScheduler(s Scheduler) Option { return func(e *Engine) { e.sched = s } }

// WithTiming sets the phase delays.
func WithTiming(t Timing) Option { return func(e *Engine) { e.timing = t } }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithTracer sets the tracer.
func WithTracer(t trace.Tracer) Option { return func(e *Engine) { e.tracer = t } }

// WithGenerator sets the encounter generator used by StartGenerated.
func WithGenerator(g encounter.Generator) Option { return func(e *Engine) { e.generator = g } }

// WithSkills sets the skill registry reward cards draw from.
func WithSkills(r *gamedata.SkillRegistry) Option { return func(e *Engine) { e.skills = r } }

// Engine owns one player's battle session.
// All state changes happen under mu, including scheduled phase callbacks.
type Engine struct {
	store     profile.Store
	generator encounter.Generator
	skills    *gamedata.SkillRegistry
	rng       *rand.Rand
	resolver  *combat.Resolver
	rewards   *RewardGenerator
	sched     Scheduler
	timing    Timing
	logger    *log.Logger
	tracer    trace.Tracer

	mu        sync.Mutex
	version   uint64
	battleGen uint64
	battleCtx context.Context
	pending   map[uint64]func()
	nextTask  uint64
	inFlight  bool

	view          ViewState
	selectedLevel int
	result        Result
	enemy         *entity.Enemy
	student       *entity.Student
	hand          []entity.Card
	deck          []entity.Card
	turnLog       []string
	anim          AnimationState
	activeCard    *entity.Card
	impact        *combat.Impact
	levelUpLog    []string
	rewardCards   []entity.Card
	turnCount     int

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

// New creates an engine over a profile store.
func New(store profile.Store, opts ...Option) *Engine {
	e := &Engine{
		store:     store,
		timing:    DefaultTiming,
		pending:   make(map[uint64]func()),
		subs:      make(map[int]func(State)),
		battleCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if e.sched == nil {
		e.sched = TimerScheduler{}
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	e.tracer = telemetry.OrNoop(e.tracer)
	if e.skills == nil {
		e.skills = gamedata.MustLoadSkillRegistry()
	}
	e.resolver = combat.NewResolver(e.rng)
	e.rewards = NewRewardGenerator(e.skills)
	if store != nil && store.Current() != nil {
		e.view = ViewDashboard
	}
	return e
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every change.
// The returned func unregisters it.
func (e *Engine) Subscribe(fn func(State)) (unsubscribe func()) {
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.subMu.Unlock()
	return func() {
		e.subMu.Lock()
		delete(e.subs, id)
		e.subMu.Unlock()
	}
}

// RefreshSession moves between the login and dashboard views after a login or logout.
func (e *Engine) RefreshSession() {
	e.mutate(func() {
		loggedIn := e.store.Current() != nil
		switch {
		case !loggedIn:
			e.cancelPendingLocked()
			e.clearBattleLocked()
			e.view = ViewLogin
		case e.view == ViewLogin:
			e.view = ViewDashboard
		}
	})
}

// StartFixedLevel starts a fixed stage. Enemy stats scale with the level and
// the subject cycles through the nine subjects.
func (e *Engine) StartFixedLevel(ctx context.Context, level int) error {
	if level < 1 || level > entity.MaxFixedLevel {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	p := e.store.Current()
	if p == nil {
		return ErrNoProfile
	}
	if level > p.CurrentLevel {
		return fmt.Errorf("%w: %d (unlocked up to %d)", ErrLevelLocked, level, p.CurrentLevel)
	}
	enemy := FixedLevelEnemy(level)
	e.mutate(func() { e.initBattleLocked(ctx, p, enemy, level) })
	return nil
}

// FixedLevelEnemy builds the enemy of a fixed stage.
func FixedLevelEnemy(level int) *entity.Enemy {
	mult := 1 + float64(level)*0.12
	subject := gamedata.SubjectForLevel(level)
	return entity.NewEnemy(
		fmt.Sprintf("第 %d 关 - %s测试", level, subject),
		subject,
		int(math.Floor(60*mult)),
		int(math.Floor(8*mult)),
		fmt.Sprintf("这是通往学霸之路的第 %d 道难关。", level),
		false,
	)
}

// StartRandomLevel starts a battle against an externally generated enemy.
// Random battles never save stage progress.
func (e *Engine) StartRandomLevel(ctx context.Context, data encounter.EnemyData) error {
	p := e.store.Current()
	if p == nil {
		return ErrNoProfile
	}
	enemy := entity.NewEnemy(data.Name, data.Subject, data.HP, data.ATK, data.Description, true)
	e.mutate(func() { e.initBattleLocked(ctx, p, enemy, entity.RandomLevelID) })
	return nil
}

// StartGenerated generates an enemy for difficulty, falling back on failure, and starts it.
func (e *Engine) StartGenerated(ctx context.Context, difficulty int) (encounter.EnemyData, error) {
	if e.store.Current() == nil {
		return encounter.EnemyData{}, ErrNoProfile
	}
	data := encounter.GenerateOrFallback(ctx, e.generator, difficulty, e.logger)
	return data, e.StartRandomLevel(ctx, data)
}

func (e *Engine) initBattleLocked(ctx context.Context, p *entity.Profile, enemy *entity.Enemy, level int) {
	ctx, span := e.tracer.Start(ctx, "battle.start")
	defer span.End()
	span.SetAttributes(
		attribute.Int("battle.level", level),
		attribute.String("battle.enemy", enemy.Name),
		attribute.String("battle.subject", string(enemy.Subject)),
		attribute.Bool("battle.random", enemy.IsRandom),
		attribute.Int("battle.cards", len(p.Cards)),
	)

	e.cancelPendingLocked()
	e.battleCtx = context.WithoutCancel(ctx)
	e.selectedLevel = level
	e.enemy = enemy
	e.student = entity.NewStudent(p.Nickname, len(p.Cards))
	e.deck = entity.CloneCards(p.Cards)
	e.hand = nil
	e.turnLog = []string{openingLine}
	e.anim = AnimIdle
	e.result = ResultNone
	e.activeCard = nil
	e.impact = nil
	e.levelUpLog = nil
	e.rewardCards = nil
	e.turnCount = 0
	e.inFlight = false
	e.drawLocked(OpeningHandSize)
	e.view = ViewBattle
}

// DrawCards draws count cards into the hand, stopping at the hand limit.
func (e *Engine) DrawCards(count int) {
	e.mutate(func() { e.drawLocked(count) })
}

// drawLocked samples with replacement: drawn cards stay in the deck. An empty
// deck falls back to the owned collection.
func (e *Engine) drawLocked(count int) {
	for i := 0; i < count; i++ {
		if len(e.hand) >= MaxHandSize {
			return
		}
		if len(e.deck) == 0 {
			if p := e.store.Current(); p != nil {
				e.deck = entity.CloneCards(p.Cards)
			}
			if len(e.deck) == 0 {
				return
			}
		}
		e.hand = append(e.hand, e.deck[e.rng.Intn(len(e.deck))])
	}
}

// ResetToDashboard abandons any battle, cancelling its pending phases. Nothing is committed.
func (e *Engine) ResetToDashboard() {
	e.mutate(func() {
		e.cancelPendingLocked()
		e.clearBattleLocked()
		if e.store.Current() != nil {
			e.view = ViewDashboard
		} else {
			e.view = ViewLogin
		}
	})
}

// Flee abandons the current battle as a loss without committing progress.
// It is accepted in any phase.
func (e *Engine) Flee() {
	e.mu.Lock()
	if e.enemy != nil && e.result == ResultNone {
		e.logger.Printf("battle: fled from %s on turn %d", e.enemy.Name, e.turnCount)
	}
	e.mu.Unlock()
	e.ResetToDashboard()
}

func (e *Engine) clearBattleLocked() {
	e.result = ResultNone
	e.enemy = nil
	e.student = nil
	e.hand = nil
	e.deck = nil
	e.anim = AnimIdle
	e.activeCard = nil
	e.impact = nil
	e.inFlight = false
}

// cancelPendingLocked cancels scheduled phases and bumps the battle
// generation so callbacks already running are dropped.
func (e *Engine) cancelPendingLocked() {
	e.battleGen++
	for id, cancel := range e.pending {
		cancel()
		delete(e.pending, id)
	}
}

// scheduleLocked queues step for the current battle after d.
func (e *Engine) scheduleLocked(d time.Duration, step func()) {
	gen := e.battleGen
	id := e.nextTask
	e.nextTask++
	e.pending[id] = e.sched.After(d, func() {
		e.mutate(func() {
			delete(e.pending, id)
			if gen != e.battleGen {
				return
			}
			step()
		})
	})
}

// mutate runs fn under the lock and then notifies subscribers.
func (e *Engine) mutate(fn func()) {
	e.mu.Lock()
	fn()
	e.version++
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
}

func (e *Engine) publish(snap State) {
	e.subMu.Lock()
	subs := make([]func(State), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.subMu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

func (e *Engine) logLocked(lines ...string) {
	for _, line := range lines {
		e.turnLog = append(e.turnLog, line)
	}
	if over := len(e.turnLog) - MaxLogLines; over > 0 {
		e.turnLog = append([]string(nil), e.turnLog[over:]...)
	}
}

func (e *Engine) snapshotLocked() State {
	s := State{
		Version:       e.version,
		View:          e.view,
		SelectedLevel: e.selectedLevel,
		Result:        e.result,
		Enemy:         e.enemy.Clone(),
		Hand:          entity.CloneCards(e.hand),
		Deck:          entity.CloneCards(e.deck),
		TurnLog:       append([]string(nil), e.turnLog...),
		Animation:     e.anim,
		LevelUpLog:    append([]string(nil), e.levelUpLog...),
		RewardCards:   entity.CloneCards(e.rewardCards),
		TurnCount:     e.turnCount,
		Busy:          e.inFlight,
	}
	if e.student != nil {
		s.PlayerHP = e.student.HP
		s.PlayerMaxHP = e.student.MaxHP
		s.PlayerShield = e.student.Shield
		s.PlayerEffects = combat.Effects(e.student.GetStatusEffects()).Clone()
	}
	if e.enemy != nil {
		s.EnemyEffects = combat.Effects(e.enemy.GetStatusEffects()).Clone()
	}
	if e.activeCard != nil {
		c := *e.activeCard
		s.ActiveCard = &c
	}
	if e.impact != nil {
		i := *e.impact
		s.Impact = &i
	}
	return s
}
