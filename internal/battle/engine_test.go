package battle

import (
	"context"
	"errors"
	"io"
	"log"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/samdwyer/xueba/internal/combat"
	"github.com/samdwyer/xueba/internal/encounter"
	"github.com/samdwyer/xueba/internal/entity"
	"github.com/samdwyer/xueba/internal/gamedata"
	"github.com/samdwyer/xueba/internal/profile"
)

func newTestService(t *testing.T) *profile.Service {
	t.Helper()
	svc := profile.NewService(profile.NewMemoryRepository(), gamedata.MustLoadStarterDeck(), log.New(io.Discard, "", 0), nil)
	svc.SetHashCost(bcrypt.MinCost)
	ok, err := svc.RegisterAndLogin(context.Background(), "u1", "pw", "小明")
	require.NoError(t, err)
	require.True(t, ok)
	return svc
}

func newTestEngine(t *testing.T, seed int64) (*Engine, *ManualScheduler, *profile.Service) {
	t.Helper()
	svc := newTestService(t)
	sched := NewManualScheduler()
	e := New(svc,
		WithRand(rand.New(rand.NewSource(seed))),
		WithScheduler(sched),
		WithLogger(log.New(io.Discard, "", 0)),
	)
	return e, sched, svc
}

// startMarathon starts a random battle the player can neither win nor lose quickly.
func startMarathon(t *testing.T, e *Engine) {
	t.Helper()
	require.NoError(t, e.StartRandomLevel(context.Background(), encounter.EnemyData{
		Name: "马拉松", Subject: gamedata.SubjectMath, HP: 5000, ATK: 1, Description: "很长。",
	}))
}

// playUntilOver plays the first card and runs each turn to completion.
func playUntilOver(t *testing.T, e *Engine, sched *ManualScheduler) State {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 300; i++ {
		s := e.Snapshot()
		if s.Result != ResultNone {
			return s
		}
		require.NoError(t, e.PlayCard(ctx, 0), "turn %d", i)
		sched.RunAll()
	}
	t.Fatal("battle did not finish")
	return State{}
}

func TestNew_InitialView(t *testing.T) {
	svc := profile.NewService(profile.NewMemoryRepository(), gamedata.MustLoadStarterDeck(), log.New(io.Discard, "", 0), nil)
	e := New(svc, WithScheduler(NewManualScheduler()))
	assert.Equal(t, ViewLogin, e.Snapshot().View)

	svc.SetHashCost(bcrypt.MinCost)
	ok, err := svc.RegisterAndLogin(context.Background(), "u9", "pw", "阿九")
	require.NoError(t, err)
	require.True(t, ok)
	e.RefreshSession()
	assert.Equal(t, ViewDashboard, e.Snapshot().View)

	svc.Logout()
	e.RefreshSession()
	assert.Equal(t, ViewLogin, e.Snapshot().View)
}

func TestStartFixedLevel_InitialisesBattle(t *testing.T) {
	e, _, _ := newTestEngine(t, 1)
	require.NoError(t, e.StartFixedLevel(context.Background(), 1))

	s := e.Snapshot()
	assert.Equal(t, ViewBattle, s.View)
	assert.Equal(t, 1, s.SelectedLevel)
	require.NotNil(t, s.Enemy)
	assert.Equal(t, "第 1 关 - 语文测试", s.Enemy.Name)
	assert.Equal(t, 67, s.Enemy.HP)
	assert.Equal(t, 67, s.Enemy.MaxHP)
	assert.Equal(t, 8, s.Enemy.ATK)
	assert.False(t, s.Enemy.IsRandom)
	assert.Equal(t, 275, s.PlayerHP)
	assert.Equal(t, 275, s.PlayerMaxHP)
	assert.Zero(t, s.PlayerShield)
	assert.Len(t, s.Hand, OpeningHandSize)
	assert.Len(t, s.Deck, 5)
	assert.Equal(t, []string{openingLine}, s.TurnLog)
	assert.Equal(t, AnimIdle, s.Animation)
	assert.True(t, s.CanPlay())
}

func TestFixedLevelEnemy_Scaling(t *testing.T) {
	tests := []struct {
		level   int
		hp, atk int
	}{
		{1, 67, 8},
		{2, 74, 9},
		{9, 124, 16},
		{13, 153, 20},
	}
	for _, tt := range tests {
		enemy := FixedLevelEnemy(tt.level)
		assert.Equal(t, tt.hp, enemy.MaxHP, "level %d hp", tt.level)
		assert.Equal(t, tt.atk, enemy.ATK, "level %d atk", tt.level)
		assert.Equal(t, gamedata.SubjectForLevel(tt.level), enemy.Subject)
	}
}

func TestStartFixedLevel_Guards(t *testing.T) {
	e, _, _ := newTestEngine(t, 1)
	ctx := context.Background()

	assert.ErrorIs(t, e.StartFixedLevel(ctx, 0), ErrInvalidLevel)
	assert.ErrorIs(t, e.StartFixedLevel(ctx, entity.MaxFixedLevel+1), ErrInvalidLevel)
	assert.ErrorIs(t, e.StartFixedLevel(ctx, 2), ErrLevelLocked)

	svc := profile.NewService(profile.NewMemoryRepository(), nil, log.New(io.Discard, "", 0), nil)
	loggedOut := New(svc, WithScheduler(NewManualScheduler()))
	assert.ErrorIs(t, loggedOut.StartFixedLevel(ctx, 1), ErrNoProfile)
}

func TestPlayCard_PhaseSequence(t *testing.T) {
	e, sched, _ := newTestEngine(t, 7)
	ctx := context.Background()
	startMarathon(t, e)

	require.NoError(t, e.PlayCard(ctx, 0))
	s := e.Snapshot()
	assert.Equal(t, AnimPlayerCast, s.Animation)
	require.NotNil(t, s.ActiveCard)
	assert.Equal(t, 1, s.TurnCount)
	assert.True(t, s.Busy)

	var phases []AnimationState
	for sched.Step() {
		phases = append(phases, e.Snapshot().Animation)
	}
	assert.Equal(t, []AnimationState{AnimPlayerImpact, AnimIdle, AnimEnemyCast, AnimEnemyImpact, AnimIdle}, phases)
	assert.Equal(t, 800*time.Millisecond*2+600*time.Millisecond*2+500*time.Millisecond, sched.Now())

	s = e.Snapshot()
	assert.False(t, s.Busy)
	assert.Nil(t, s.ActiveCard)
	assert.Nil(t, s.Impact)
	assert.Greater(t, len(s.TurnLog), 2)
}

func TestPlayCard_Guards(t *testing.T) {
	e, sched, _ := newTestEngine(t, 3)
	ctx := context.Background()

	assert.ErrorIs(t, e.PlayCard(ctx, 0), ErrNoBattle)

	startMarathon(t, e)
	assert.ErrorIs(t, e.PlayCard(ctx, -1), ErrInvalidCard)
	assert.ErrorIs(t, e.PlayCard(ctx, 4), ErrInvalidCard)

	require.NoError(t, e.PlayCard(ctx, 0))
	assert.ErrorIs(t, e.PlayCard(ctx, 0), ErrBusy, "during player cast")
	sched.Step()
	assert.ErrorIs(t, e.PlayCard(ctx, 0), ErrBusy, "during player impact")
	sched.Step()
	assert.Equal(t, AnimIdle, e.Snapshot().Animation)
	assert.ErrorIs(t, e.PlayCard(ctx, 0), ErrBusy, "idle gap before the enemy turn")
	sched.RunAll()
	assert.NoError(t, e.PlayCard(ctx, 0))
}

func TestPlayCard_RemovesCardFromHand(t *testing.T) {
	e, _, _ := newTestEngine(t, 11)
	ctx := context.Background()
	require.NoError(t, e.StartFixedLevel(ctx, 1))

	before := e.Snapshot().Hand
	require.NoError(t, e.PlayCard(ctx, 1))
	after := e.Snapshot()

	require.Len(t, after.Hand, len(before)-1)
	assert.Equal(t, before[1].ID, after.ActiveCard.ID)
	assert.Equal(t, before[0].ID, after.Hand[0].ID)
	assert.Equal(t, before[2].ID, after.Hand[1].ID)
}

func TestDrawCards_CapsHand(t *testing.T) {
	e, _, _ := newTestEngine(t, 5)
	require.NoError(t, e.StartFixedLevel(context.Background(), 1))

	e.DrawCards(20)
	assert.Len(t, e.Snapshot().Hand, MaxHandSize)
	e.DrawCards(1)
	assert.Len(t, e.Snapshot().Hand, MaxHandSize)

	// Drawing samples with replacement.
	assert.Len(t, e.Snapshot().Deck, 5)
}

func TestDrawCards_EmptyDeckFallsBackToCollection(t *testing.T) {
	e, _, svc := newTestEngine(t, 6)
	require.NoError(t, e.StartFixedLevel(context.Background(), 1))

	e.mu.Lock()
	e.deck = nil
	e.hand = nil
	e.mu.Unlock()

	e.DrawCards(3)
	s := e.Snapshot()
	require.Len(t, s.Hand, 3)
	assert.Len(t, s.Deck, len(svc.Current().Cards))

	owned := make(map[string]bool)
	for _, c := range svc.Current().Cards {
		owned[c.ID] = true
	}
	for _, c := range s.Hand {
		assert.True(t, owned[c.ID], "card %s drawn from outside the collection", c.ID)
	}
}

func TestBattle_WinCommitsProgress(t *testing.T) {
	e, sched, svc := newTestEngine(t, 42)
	require.NoError(t, e.StartFixedLevel(context.Background(), 1))

	s := playUntilOver(t, e, sched)
	require.Equal(t, ResultWin, s.Result)
	assert.Equal(t, ViewResult, s.View)
	assert.Equal(t, AnimIdle, s.Animation)
	assert.Zero(t, sched.Pending())

	p := svc.Current()
	assert.Equal(t, 2, p.CurrentLevel)
	assert.Len(t, p.Cards, 5+len(s.RewardCards))
	for _, c := range p.Cards[:5] {
		assert.Equal(t, 24, c.Exp, "card %s", c.ID)
	}

	assert.ErrorIs(t, e.PlayCard(context.Background(), 0), ErrBattleOver)
}

func TestBattle_LossCommitsNothing(t *testing.T) {
	e, sched, svc := newTestEngine(t, 42)
	ctx := context.Background()
	require.NoError(t, e.StartRandomLevel(ctx, encounter.EnemyData{
		Name: "期末魔王", Subject: gamedata.SubjectMath, HP: 5000, ATK: 400, Description: "无法战胜。",
	}))

	s := playUntilOver(t, e, sched)
	assert.Equal(t, ResultLose, s.Result)
	assert.Equal(t, 0, s.PlayerHP)
	assert.Empty(t, s.RewardCards)
	assert.Empty(t, s.LevelUpLog)

	p := svc.Current()
	assert.Equal(t, 1, p.CurrentLevel)
	for _, c := range p.Cards {
		assert.Zero(t, c.Exp)
	}
}

func TestBattle_BurnDefeatEndsInLoss(t *testing.T) {
	e, sched, svc := newTestEngine(t, 17)
	startMarathon(t, e)

	e.mu.Lock()
	var strike entity.Card
	for _, c := range e.deck {
		if c.Skill.Type == gamedata.SkillDamage {
			strike = c
			break
		}
	}
	require.NotEmpty(t, strike.ID)
	e.hand = []entity.Card{strike}
	e.student.HP = 1
	e.student.AddStatusEffect(combat.NewBurn())
	e.mu.Unlock()

	s := playUntilOver(t, e, sched)
	assert.Equal(t, ResultLose, s.Result)
	assert.Equal(t, ViewResult, s.View)
	assert.Zero(t, s.PlayerHP)
	assert.Equal(t, 1, s.TurnCount)
	assert.True(t, s.Enemy.IsAlive())
	assert.Empty(t, s.RewardCards)
	assert.Empty(t, s.LevelUpLog)
	assert.Zero(t, sched.Pending())

	p := svc.Current()
	assert.Equal(t, 1, p.CurrentLevel)
	for _, c := range p.Cards {
		assert.Zero(t, c.Exp)
	}
}

func TestBattle_RandomWinGrantsExpOnly(t *testing.T) {
	e, sched, svc := newTestEngine(t, 9)
	ctx := context.Background()
	require.NoError(t, e.StartRandomLevel(ctx, encounter.EnemyData{
		Name: "小测验", Subject: gamedata.SubjectMath, HP: 1, ATK: 1, Description: "一碰就倒。",
	}))
	assert.Equal(t, entity.RandomLevelID, e.Snapshot().SelectedLevel)

	s := playUntilOver(t, e, sched)
	require.Equal(t, ResultWin, s.Result)
	assert.Empty(t, s.RewardCards)

	p := svc.Current()
	assert.Equal(t, 1, p.CurrentLevel)
	assert.Len(t, p.Cards, 5)
	for _, c := range p.Cards {
		assert.Equal(t, ExpGain(entity.RandomLevelID, true), c.Exp)
	}
}

func TestExpGain(t *testing.T) {
	assert.Equal(t, 24, ExpGain(1, false))
	assert.Equal(t, 40, ExpGain(5, false))
	assert.Equal(t, 40, ExpGain(entity.RandomLevelID, true))
}

func TestTurnLog_KeepsLastLines(t *testing.T) {
	e, sched, _ := newTestEngine(t, 13)
	ctx := context.Background()
	startMarathon(t, e)
	for i := 0; i < 5; i++ {
		require.NoError(t, e.PlayCard(ctx, 0))
		sched.RunAll()
		assert.LessOrEqual(t, len(e.Snapshot().TurnLog), MaxLogLines)
	}
	assert.NotContains(t, e.Snapshot().TurnLog, openingLine)
}

func TestResetToDashboard_CancelsPendingPhases(t *testing.T) {
	e, sched, _ := newTestEngine(t, 21)
	ctx := context.Background()
	require.NoError(t, e.StartFixedLevel(ctx, 1))
	require.NoError(t, e.PlayCard(ctx, 0))
	require.Equal(t, 1, sched.Pending())

	e.ResetToDashboard()
	assert.Zero(t, sched.Pending())
	assert.False(t, sched.Step())

	s := e.Snapshot()
	assert.Equal(t, ViewDashboard, s.View)
	assert.Nil(t, s.Enemy)
	assert.Empty(t, s.Hand)
	assert.Equal(t, AnimIdle, s.Animation)
	assert.False(t, s.Busy)
}

func TestFlee_AcceptedMidTurn(t *testing.T) {
	e, sched, svc := newTestEngine(t, 21)
	ctx := context.Background()
	require.NoError(t, e.StartFixedLevel(ctx, 1))
	require.NoError(t, e.PlayCard(ctx, 0))
	sched.Step()

	e.Flee()
	assert.Zero(t, sched.Pending())
	assert.Equal(t, ViewDashboard, e.Snapshot().View)
	assert.Equal(t, 1, svc.Current().CurrentLevel)
}

// leakyScheduler ignores cancellation so stale callbacks still fire.
type leakyScheduler struct {
	mu  sync.Mutex
	fns []func()
}

func (l *leakyScheduler) After(_ time.Duration, fn func()) func() {
	l.mu.Lock()
	l.fns = append(l.fns, fn)
	l.mu.Unlock()
	return func() {}
}

func TestStaleCallbacksAreDropped(t *testing.T) {
	leaky := &leakyScheduler{}
	e := New(newTestService(t),
		WithRand(rand.New(rand.NewSource(1))),
		WithScheduler(leaky),
		WithLogger(log.New(io.Discard, "", 0)),
	)
	ctx := context.Background()
	require.NoError(t, e.StartFixedLevel(ctx, 1))
	require.NoError(t, e.PlayCard(ctx, 0))
	require.Len(t, leaky.fns, 1)

	e.ResetToDashboard()
	require.NoError(t, e.StartFixedLevel(ctx, 1))
	before := e.Snapshot()

	leaky.fns[0]()
	after := e.Snapshot()
	assert.Equal(t, AnimIdle, after.Animation)
	assert.Equal(t, before.Enemy.HP, after.Enemy.HP)
	assert.Equal(t, before.TurnLog, after.TurnLog)
	assert.Len(t, leaky.fns, 1, "a dropped callback schedules nothing")
}

func TestSubscribe_ReceivesSnapshots(t *testing.T) {
	e, sched, _ := newTestEngine(t, 8)
	ctx := context.Background()

	var got []State
	unsubscribe := e.Subscribe(func(s State) { got = append(got, s) })

	startMarathon(t, e)
	require.NoError(t, e.PlayCard(ctx, 0))
	sched.RunAll()

	require.Len(t, got, 7)
	assert.Equal(t, ViewBattle, got[0].View)
	assert.Equal(t, AnimPlayerCast, got[1].Animation)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i].Version, got[i-1].Version)
	}

	unsubscribe()
	e.DrawCards(1)
	assert.Len(t, got, 7)
}

func TestSnapshot_IsIndependent(t *testing.T) {
	e, _, _ := newTestEngine(t, 4)
	require.NoError(t, e.StartFixedLevel(context.Background(), 1))

	s := e.Snapshot()
	s.Enemy.HP = 0
	s.Hand[0].Name = "changed"
	s.TurnLog[0] = "changed"

	fresh := e.Snapshot()
	assert.Equal(t, 67, fresh.Enemy.HP)
	assert.NotEqual(t, "changed", fresh.Hand[0].Name)
	assert.Equal(t, openingLine, fresh.TurnLog[0])
}

type failingStore struct {
	*profile.Service
}

func (failingStore) SaveProgress(context.Context, int, []entity.Card) error {
	return errors.New("disk full")
}

func TestBattle_SaveFailureStillShowsResult(t *testing.T) {
	store := failingStore{newTestService(t)}
	sched := NewManualScheduler()
	e := New(store,
		WithRand(rand.New(rand.NewSource(42))),
		WithScheduler(sched),
		WithLogger(log.New(io.Discard, "", 0)),
	)
	require.NoError(t, e.StartFixedLevel(context.Background(), 1))

	s := playUntilOver(t, e, sched)
	require.Equal(t, ResultWin, s.Result)
	assert.Empty(t, s.RewardCards)
	assert.Equal(t, 1, store.Current().CurrentLevel)
}
