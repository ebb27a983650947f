package achievement

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidRequirement = errors.New("invalid achievement requirement")

type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
	TierDiamond  Tier = "diamond"
)

// Rank orders tiers for display; unknown tiers sort last.
func (t Tier) Rank() int {
	switch t {
	case TierBronze:
		return 0
	case TierSilver:
		return 1
	case TierGold:
		return 2
	case TierPlatinum:
		return 3
	case TierDiamond:
		return 4
	}
	return 5
}

type RequirementType string

const (
	RequirementStreakDays       RequirementType = "streak_days"
	RequirementTotalCompletions RequirementType = "total_completions"
	RequirementPerfectWeek      RequirementType = "perfect_week"
	RequirementPerfectMonth     RequirementType = "perfect_month"
	RequirementEarlyBird        RequirementType = "early_bird"
	RequirementNightOwl         RequirementType = "night_owl"
	RequirementWeekendWarrior   RequirementType = "weekend_warrior"
)

var RequirementTypes = []RequirementType{
	RequirementStreakDays,
	RequirementTotalCompletions,
	RequirementPerfectWeek,
	RequirementPerfectMonth,
	RequirementEarlyBird,
	RequirementNightOwl,
	RequirementWeekendWarrior,
}

// Thresholded reports whether RequirementValue is the unlock threshold.
// perfect_week and perfect_month use fixed windows instead.
func (r RequirementType) Thresholded() bool {
	return r != RequirementPerfectWeek && r != RequirementPerfectMonth
}

type Achievement struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	Code             string          `json:"code" db:"code"`
	Name             string          `json:"name" db:"name"`
	Description      string          `json:"description" db:"description"`
	Emoji            string          `json:"emoji" db:"emoji"`
	Tier             Tier            `json:"tier" db:"tier"`
	RequirementType  RequirementType `json:"requirement_type" db:"requirement_type"`
	RequirementValue int             `json:"requirement_value" db:"requirement_value"`
	Points           int             `json:"points" db:"points"`
	IsActive         bool            `json:"is_active" db:"is_active"`
}

func (a *Achievement) Validate() error {
	if a.Code == "" {
		return fmt.Errorf("%w: empty code", ErrInvalidRequirement)
	}
	if a.RequirementType.Thresholded() && a.RequirementValue <= 0 {
		return fmt.Errorf("%w: %s needs a positive value, got %d", ErrInvalidRequirement, a.Code, a.RequirementValue)
	}
	if a.Points < 0 {
		return fmt.Errorf("%w: %s has negative points", ErrInvalidRequirement, a.Code)
	}
	return nil
}

// Unlock is written once per child and achievement and never updated.
type Unlock struct {
	ChildID       uuid.UUID `json:"child_id" db:"child_id"`
	AchievementID uuid.UUID `json:"achievement_id" db:"achievement_id"`
	Progress      int       `json:"progress" db:"progress"`
	UnlockedAt    time.Time `json:"unlocked_at" db:"unlocked_at"`
}

type WithProgress struct {
	Achievement
	Progress   int        `json:"progress"`
	IsUnlocked bool       `json:"is_unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}
