package encounter

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/samdwyer/xueba/internal/gamedata"
)

// staticNames are exam titles per subject for offline generation.
var staticNames = map[gamedata.Subject][]string{
	gamedata.SubjectChinese:   {"古文背诵", "阅读理解大题", "八百字作文"},
	gamedata.SubjectMath:      {"压轴导数题", "立体几何", "概率统计"},
	gamedata.SubjectEnglish:   {"完形填空", "长难句翻译", "听力原文"},
	gamedata.SubjectPhysics:   {"电磁感应综合题", "牛顿定律", "动量守恒"},
	gamedata.SubjectChemistry: {"有机推断", "化学平衡", "实验设计"},
	gamedata.SubjectBiology:   {"遗传图谱", "细胞呼吸", "生态系统"},
	gamedata.SubjectPolitics:  {"材料分析题", "哲学原理", "经济生活"},
	gamedata.SubjectHistory:   {"年代大事表", "史料辨析", "近代史问答"},
	gamedata.SubjectGeography: {"等高线判读", "气候类型", "区域地理"},
}

// StaticGenerator builds in-range enemies from local tables without a network call.
type StaticGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewStaticGenerator creates a generator drawing from rng.
func NewStaticGenerator(rng *rand.Rand) *StaticGenerator {
	return &StaticGenerator{rng: rng}
}

// Generate implements Generator.
func (g *StaticGenerator) Generate(ctx context.Context, difficulty int) (EnemyData, error) {
	if err := ctx.Err(); err != nil {
		return EnemyData{}, err
	}
	d := ClampDifficulty(difficulty)

	g.mu.Lock()
	defer g.mu.Unlock()

	subjects := gamedata.Subjects()
	subject := subjects[g.rng.Intn(len(subjects))]
	names := staticNames[subject]
	name := names[g.rng.Intn(len(names))]
	hpLo, hpHi := HPRange(d)
	atkLo, atkHi := ATKRange(d)

	return EnemyData{
		Name:        name,
		Subject:     subject,
		HP:          hpLo + g.rng.Intn(hpHi-hpLo+1),
		ATK:         atkLo + g.rng.Intn(atkHi-atkLo+1),
		Description: fmt.Sprintf("一道难度为「%s」的%s考题，正虎视眈眈地盯着你。", DifficultyLabel(d), subject),
	}, nil
}

var _ Generator = (*StaticGenerator)(nil)
