package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/samdwyer/xueba/internal/battle"
	"github.com/samdwyer/xueba/internal/combat"
	"github.com/samdwyer/xueba/internal/encounter"
	"github.com/samdwyer/xueba/internal/entity"
	"github.com/samdwyer/xueba/internal/gamedata"
)

// Login form fields, in tab order.
const (
	FieldUID = iota
	FieldPassword
	FieldNickname
	FieldCount
)

// LoginForm is the login screen's input.
type LoginForm struct {
	UID      string
	Password string
	Nickname string
	Focus    int
	Message  string
}

// View is everything the renderer draws in one frame.
type View struct {
	State       battle.State
	Profile     *entity.Profile
	Login       LoginForm
	LevelCursor int
	Difficulty  int
	Status      string
}

const dashboardColumns = 10

var (
	styleText    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleDim     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleTitle   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleFocus   = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorYellow)
	styleHP      = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleEnemyHP = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleShield  = tcell.StyleDefault.Foreground(tcell.ColorAqua)
	styleBuff    = tcell.StyleDefault.Foreground(tcell.ColorLime)
	styleDebuff  = tcell.StyleDefault.Foreground(tcell.ColorFuchsia)
)

// Renderer handles drawing the game to the screen.
type Renderer struct {
	screen  *Screen
	palette gamedata.Palette
}

// NewRenderer creates a new renderer for the given screen.
func NewRenderer(screen *Screen, palette gamedata.Palette) *Renderer {
	return &Renderer{screen: screen, palette: palette}
}

// Render draws the frame for the current view.
func (r *Renderer) Render(v View) {
	r.screen.Clear()
	switch v.State.View {
	case battle.ViewLogin:
		r.renderLogin(v.Login)
	case battle.ViewDashboard:
		r.renderDashboard(v)
	case battle.ViewBattle:
		r.renderBattle(v.State)
	case battle.ViewResult:
		r.renderResult(v.State)
	}
	if v.Status != "" {
		_, h := r.screen.Size()
		r.RenderMessage(v.Status, h-1)
	}
	r.screen.Show()
}

func (r *Renderer) renderLogin(form LoginForm) {
	r.screen.DrawText(2, 1, "学霸联盟", styleTitle)
	r.screen.DrawText(2, 2, "Tab 切换输入框 · Enter 登录 · F2 注册并登录 · Esc 退出", styleDim)

	fields := []struct {
		label string
		value string
	}{
		{"UID", form.UID},
		{"密码", strings.Repeat("*", len([]rune(form.Password)))},
		{"昵称(注册)", form.Nickname},
	}
	for i, f := range fields {
		y := 4 + i*2
		label := styleText
		if form.Focus == i {
			label = styleFocus
		}
		x := r.screen.DrawText(2, y, fmt.Sprintf("%-12s", f.label), label)
		r.screen.DrawText(x+1, y, f.value+"_", styleText)
	}
	if form.Message != "" {
		r.screen.DrawText(2, 11, form.Message, styleEnemyHP)
	}
}

func (r *Renderer) renderDashboard(v View) {
	p := v.Profile
	if p == nil {
		return
	}
	r.screen.DrawText(2, 1, fmt.Sprintf("欢迎，%s (UID %s)", p.Nickname, p.UID), styleTitle)
	r.screen.DrawText(2, 2, fmt.Sprintf("已解锁关卡 %d · 卡牌 %d 张", min(p.CurrentLevel, entity.MaxFixedLevel), len(p.Cards)), styleText)
	r.screen.DrawText(2, 3, "方向键选择关卡 · Enter 挑战 · R 随机挑战 · +/- 难度 · L 登出 · Esc 退出", styleDim)

	for level := 1; level <= entity.MaxFixedLevel; level++ {
		col := (level - 1) % dashboardColumns
		row := (level - 1) / dashboardColumns
		x, y := 2+col*6, 5+row
		style := tcell.StyleDefault.Foreground(r.palette.Color(gamedata.SubjectForLevel(level)))
		if level > p.CurrentLevel {
			style = styleDim
		}
		if level == v.LevelCursor {
			style = styleFocus
		}
		r.screen.DrawText(x, y, fmt.Sprintf("%3d", level), style)
	}

	y := 6 + entity.MaxFixedLevel/dashboardColumns
	r.screen.DrawText(2, y, fmt.Sprintf("随机挑战难度: %d (%s)", v.Difficulty, encounter.DifficultyLabel(v.Difficulty)), styleText)

	y += 2
	r.screen.DrawText(2, y, "我的卡牌", styleTitle)
	for i, c := range p.Cards {
		r.screen.DrawText(2, y+1+i, CardLine(c), tcell.StyleDefault.Foreground(r.palette.Color(c.Subject)))
	}
}

func (r *Renderer) renderBattle(s battle.State) {
	if s.Enemy == nil {
		return
	}
	w, _ := r.screen.Size()
	enemyStyle := tcell.StyleDefault.Foreground(r.palette.Color(s.Enemy.Subject)).Bold(true)
	if s.Animation == battle.AnimEnemyCast {
		enemyStyle = enemyStyle.Reverse(true)
	}
	r.screen.DrawText(2, 1, s.Enemy.Name, enemyStyle)
	r.screen.DrawText(2, 2, Truncate(s.Enemy.Description, w-4), styleDim)
	r.screen.DrawText(2, 3, fmt.Sprintf("HP %s %d/%d  ATK %d", Bar(s.Enemy.HP, s.Enemy.MaxHP, 20), s.Enemy.HP, s.Enemy.MaxHP, s.Enemy.ATK), styleEnemyHP)
	r.drawEffects(2, 4, s.EnemyEffects)

	if s.Impact != nil {
		r.screen.DrawText(40, 1, ImpactText(*s.Impact), styleTitle)
	}
	if s.ActiveCard != nil {
		r.screen.DrawText(40, 2, "▶ "+s.ActiveCard.Name+" · "+s.ActiveCard.Skill.Name, styleFocus)
	}

	r.screen.DrawText(2, 6, "战斗记录", styleTitle)
	for i, line := range s.TurnLog {
		r.screen.DrawText(2, 7+i, Truncate(line, w-4), styleText)
	}

	y := 8 + battle.MaxLogLines
	r.screen.DrawText(2, y, fmt.Sprintf("精神力 %s %d/%d", Bar(s.PlayerHP, s.PlayerMaxHP, 20), s.PlayerHP, s.PlayerMaxHP), styleHP)
	if s.PlayerShield > 0 {
		r.screen.DrawText(2, y+1, fmt.Sprintf("护盾 %d", s.PlayerShield), styleShield)
	}
	r.drawEffects(20, y+1, s.PlayerEffects)

	hint := "按 1-8 出牌 · Esc 逃跑"
	if !s.CanPlay() {
		hint = "对手行动中……"
	}
	r.screen.DrawText(2, y+3, hint, styleDim)
	for i, c := range s.Hand {
		style := tcell.StyleDefault.Foreground(r.palette.Color(c.Subject))
		if !s.CanPlay() {
			style = styleDim
		}
		r.screen.DrawText(2, y+4+i, fmt.Sprintf("%d. %s", i+1, CardLine(c)), style)
	}
}

func (r *Renderer) renderResult(s battle.State) {
	title := "挑战失败"
	style := styleEnemyHP
	if s.Result == battle.ResultWin {
		title = "挑战成功！"
		style = styleTitle
	}
	r.screen.DrawText(2, 1, title, style)
	if s.Enemy != nil {
		r.screen.DrawText(2, 2, s.Enemy.Name, styleDim)
	}

	y := 4
	for _, c := range s.RewardCards {
		r.screen.DrawText(2, y, "获得新卡牌："+CardLine(c), tcell.StyleDefault.Foreground(r.palette.Color(c.Subject)))
		y++
	}
	for _, line := range s.LevelUpLog {
		r.screen.DrawText(2, y, line, styleBuff)
		y++
	}
	r.screen.DrawText(2, y+1, "Enter 返回主页", styleDim)
}

func (r *Renderer) drawEffects(x, y int, effects []combat.StatusEffect) {
	for _, e := range effects {
		style := styleDebuff
		if e.Kind == combat.KindBuff {
			style = styleBuff
		}
		x = r.screen.DrawText(x, y, fmt.Sprintf("%s%s(%d)", e.Icon, e.Name, e.Duration), style) + 1
	}
}

// RenderMessage displays a message at the given row.
func (r *Renderer) RenderMessage(msg string, y int) {
	r.screen.DrawText(0, y, msg, styleText)
}

// CardLine is the one-line summary of a card shown in lists.
func CardLine(c entity.Card) string {
	return fmt.Sprintf("[%s] %s Lv.%d %s · %s 思%d/悟%d/想%d",
		c.Rarity, c.Name, c.Level, c.Subject, c.Skill.Name,
		c.Attributes.Thinking, c.Attributes.Insight, c.Attributes.Imagination)
}

// ImpactText is the floating number for an impact.
func ImpactText(i combat.Impact) string {
	switch i.Type {
	case combat.ImpactHeal:
		return fmt.Sprintf("+%d", i.Value)
	case combat.ImpactShield:
		if i.Value == 0 {
			return "格挡！"
		}
		return fmt.Sprintf("护盾 +%d", i.Value)
	case combat.ImpactMagical:
		return fmt.Sprintf("-%d 克制！", i.Value)
	default:
		return fmt.Sprintf("-%d", i.Value)
	}
}

// Bar draws a fixed-width gauge for value out of maxValue.
func Bar(value, maxValue, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if maxValue > 0 && value > 0 {
		filled = value * width / maxValue
		if filled == 0 {
			filled = 1
		}
		if filled > width {
			filled = width
		}
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// Truncate cuts text to at most width columns.
func Truncate(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if TextWidth(text) <= width {
		return text
	}
	var b strings.Builder
	w := 0
	for _, r := range text {
		rw := RuneWidth(r)
		if w+rw > width-1 {
			break
		}
		b.WriteRune(r)
		w += rw
	}
	b.WriteRune('…')
	return b.String()
}
