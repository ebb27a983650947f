package points

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidAmount = errors.New("points must be positive")

const (
	StartingLevel     = 1
	StartingThreshold = 100
)

// Ledger is a child's running points balance. TotalPoints is the balance
// within CurrentLevel; LifetimePoints never decreases.
type Ledger struct {
	ChildID           uuid.UUID `json:"child_id" db:"child_id"`
	TotalPoints       int       `json:"total_points" db:"total_points"`
	CurrentLevel      int       `json:"current_level" db:"current_level"`
	PointsToNextLevel int       `json:"points_to_next_level" db:"points_to_next_level"`
	LifetimePoints    int       `json:"lifetime_points" db:"lifetime_points"`
	UpdatedAt         time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// DefaultLedger is reported for children that have never been awarded points.
func DefaultLedger(childID uuid.UUID) *Ledger {
	return &Ledger{
		ChildID:           childID,
		CurrentLevel:      StartingLevel,
		PointsToNextLevel: StartingThreshold,
	}
}

type AwardResult struct {
	NewTotal  int  `json:"new_total"`
	NewLevel  int  `json:"new_level"`
	LeveledUp bool `json:"leveled_up"`
}
