package gamedata

import (
	"errors"
	"math/rand"
)

// RewardSkillDef is a skill template that reward cards can roll.
type RewardSkillDef struct {
	Skill
	Weight int `json:"weight"` // Relative roll frequency (higher = more common)
}

// RewardSkillsFile represents the structure of reward_skills.json.
type RewardSkillsFile struct {
	Skills []RewardSkillDef `json:"skills"`
}

// LoadRewardSkills loads reward skill templates from the embedded reward_skills.json.
func LoadRewardSkills() ([]RewardSkillDef, error) {
	file, err := Load[RewardSkillsFile]("reward_skills.json")
	if err != nil {
		return nil, err
	}
	return file.Skills, nil
}

// SkillRegistry holds reward skill templates and rolls them by weight.
type SkillRegistry struct {
	skills      []RewardSkillDef
	totalWeight int
}

// NewSkillRegistry creates a registry from loaded skill templates.
func NewSkillRegistry(skills []RewardSkillDef) *SkillRegistry {
	totalWeight := 0
	for _, s := range skills {
		totalWeight += s.Weight
	}
	return &SkillRegistry{
		skills:      skills,
		totalWeight: totalWeight,
	}
}

// LoadSkillRegistry loads and creates a registry from the embedded reward_skills.json.
func LoadSkillRegistry() (*SkillRegistry, error) {
	skills, err := LoadRewardSkills()
	if err != nil {
		return nil, err
	}
	if len(skills) == 0 {
		return nil, errors.New("no skills loaded from reward_skills.json")
	}
	return NewSkillRegistry(skills), nil
}

// MustLoadSkillRegistry loads a registry, panicking on error.
func MustLoadSkillRegistry() *SkillRegistry {
	registry, err := LoadSkillRegistry()
	if err != nil {
		panic(err)
	}
	return registry
}

// Roll selects a skill template using weighted probability.
func (r *SkillRegistry) Roll(rng *rand.Rand) Skill {
	if r.totalWeight <= 0 || len(r.skills) == 0 {
		return Skill{Name: "奋笔疾书", Type: SkillDamage, Power: 1}
	}

	roll := rng.Intn(r.totalWeight)
	cumulative := 0
	for i := range r.skills {
		cumulative += r.skills[i].Weight
		if roll < cumulative {
			return r.skills[i].Skill
		}
	}
	return r.skills[0].Skill
}

// Types returns the distinct skill types the registry can roll.
func (r *SkillRegistry) Types() []SkillType {
	seen := make(map[SkillType]bool)
	var out []SkillType
	for _, s := range r.skills {
		if !seen[s.Type] {
			seen[s.Type] = true
			out = append(out, s.Type)
		}
	}
	return out
}

// Count returns the number of skill templates in the registry.
func (r *SkillRegistry) Count() int {
	return len(r.skills)
}
