// Package encounter produces difficulty-scaled exam enemies for random battles.
package encounter

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samdwyer/xueba/internal/gamedata"
	"github.com/samdwyer/xueba/internal/telemetry"
)

// Difficulty bounds for generated encounters.
const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

var ErrInvalidEnemy = errors.New("invalid enemy data")

// EnemyData is the description of a generated enemy.
type EnemyData struct {
	Name        string           `json:"name"`
	Subject     gamedata.Subject `json:"subject"`
	HP          int              `json:"hp"`
	ATK         int              `json:"atk"`
	Description string           `json:"description"`
}

// Validate rejects unknown subjects, empty names and non-positive stats.
func (d EnemyData) Validate() error {
	switch {
	case d.Name == "":
		return fmt.Errorf("%w: missing name", ErrInvalidEnemy)
	case !d.Subject.Valid():
		return fmt.Errorf("%w: unknown subject %q", ErrInvalidEnemy, d.Subject)
	case d.HP <= 0:
		return fmt.Errorf("%w: hp %d", ErrInvalidEnemy, d.HP)
	case d.ATK <= 0:
		return fmt.Errorf("%w: atk %d", ErrInvalidEnemy, d.ATK)
	}
	return nil
}

// Generator produces an enemy for a difficulty in 1..5.
type Generator interface {
	Generate(ctx context.Context, difficulty int) (EnemyData, error)
}

// ClampDifficulty limits d to 1..5.
func ClampDifficulty(d int) int {
	if d < MinDifficulty {
		return MinDifficulty
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return d
}

// HPRange returns the suggested hp range for a difficulty.
func HPRange(d int) (lo, hi int) { return d * 100, d * 150 }

// ATKRange returns the suggested attack range for a difficulty.
func ATKRange(d int) (lo, hi int) { return d * 10, d * 15 }

// Fallback is the enemy used when generation fails.
func Fallback(difficulty int) EnemyData {
	d := ClampDifficulty(difficulty)
	return EnemyData{
		Name:        "未知的试卷",
		Subject:     gamedata.SubjectMath,
		HP:          d * 100,
		ATK:         d * 10,
		Description: "一张模糊不清的试卷，散发着诡异的气息。",
	}
}

// GenerateOrFallback asks gen for an enemy and substitutes the fallback on any failure.
func GenerateOrFallback(ctx context.Context, gen Generator, difficulty int, logger *log.Logger) EnemyData {
	d := ClampDifficulty(difficulty)
	ctx, span := telemetry.Tracer("encounter").Start(ctx, "encounter.generate")
	defer span.End()
	span.SetAttributes(attribute.Int("encounter.difficulty", d))

	if logger == nil {
		logger = log.Default()
	}
	if gen == nil {
		span.SetAttributes(attribute.Bool("encounter.fallback", true))
		return Fallback(d)
	}

	enemy, err := gen.Generate(ctx, d)
	if err == nil {
		err = enemy.Validate()
	}
	if err != nil {
		logger.Printf("encounter: generation failed, using fallback: %v", err)
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("encounter.fallback", true))
		return Fallback(d)
	}
	span.SetAttributes(
		attribute.Bool("encounter.fallback", false),
		attribute.String("encounter.subject", string(enemy.Subject)),
	)
	return enemy
}

var difficultyLabels = [...]string{"简单", "普通", "困难", "专家", "噩梦"}

// DifficultyLabel returns the dashboard label for a difficulty.
func DifficultyLabel(d int) string {
	return difficultyLabels[ClampDifficulty(d)-1]
}
