package battle

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/samdwyer/xueba/internal/entity"
	"github.com/samdwyer/xueba/internal/gamedata"
)

// Reward card tuning.
const (
	RewardChance       = 0.4
	rewardSRChance     = 0.1
	rewardAttributeMin = 40
	rewardAttributeMax = 90
)

// RewardGenerator mints reward cards for fixed-stage wins.
type RewardGenerator struct {
	skills *gamedata.SkillRegistry
	newID  func() string
}

// NewRewardGenerator creates a generator drawing skills from the registry.
func NewRewardGenerator(skills *gamedata.SkillRegistry) *RewardGenerator {
	return &RewardGenerator{skills: skills, newID: newCardID}
}

func newCardID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Generate creates a level 1 card with a random subject, skill and base attributes in 40..90.
func (g *RewardGenerator) Generate(rng *rand.Rand) entity.Card {
	subjects := gamedata.Subjects()
	subject := subjects[rng.Intn(len(subjects))]
	span := rewardAttributeMax - rewardAttributeMin + 1
	base := gamedata.Attributes{
		Thinking:    rewardAttributeMin + rng.Intn(span),
		Insight:     rewardAttributeMin + rng.Intn(span),
		Imagination: rewardAttributeMin + rng.Intn(span),
	}
	rarity := gamedata.RarityR
	if rng.Float64() < rewardSRChance {
		rarity = gamedata.RaritySR
	}

	return entity.NewCardFromDef(gamedata.CardDef{
		ID:          g.newID(),
		Name:        fmt.Sprintf("转校生·%s大神", subject),
		Subject:     subject,
		Rarity:      rarity,
		Attributes:  base,
		Skill:       g.skills.Roll(rng),
		Description: "一位新来的强力帮手。",
	})
}
