package models

import (
	"errors"
	"fmt"
	"time"
)

// StreakRecordID is the primary key of the one shared record.
const StreakRecordID = "group"

var ErrInvalidStreak = errors.New("invalid streak record")

// StreakRecord is the group's shared streak. Exactly one row exists; only the
// streak engine writes it.
type StreakRecord struct {
	ID       string `gorm:"primaryKey;type:varchar(16)" json:"-"`
	Current  int    `gorm:"not null;default:0" json:"current"`
	Longest  int    `gorm:"not null;default:0" json:"longest"`
	Previous *int   `json:"previous,omitempty"` // set only while a recovery window is open

	// EvaluatedDay is the last designated day consumed by the daily evaluation.
	EvaluatedDay string `gorm:"type:varchar(10)" json:"evaluated_day,omitempty"`
	Version      int64  `gorm:"not null;default:0" json:"version"`

	UpdatedAt time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

// RecoveryPending reports whether a broken streak can still be restored.
func (r *StreakRecord) RecoveryPending() bool {
	return r.Previous != nil
}

// Validate rejects values no transition could have produced.
func (r *StreakRecord) Validate() error {
	if r.Current < 0 {
		return fmt.Errorf("%w: current=%d", ErrInvalidStreak, r.Current)
	}
	if r.Longest < 0 {
		return fmt.Errorf("%w: longest=%d", ErrInvalidStreak, r.Longest)
	}
	if r.Longest < r.Current {
		return fmt.Errorf("%w: longest=%d below current=%d", ErrInvalidStreak, r.Longest, r.Current)
	}
	// a recovery window only exists while the streak is broken
	if r.Previous != nil && r.Current != 0 {
		return fmt.Errorf("%w: previous=%d with current=%d", ErrInvalidStreak, *r.Previous, r.Current)
	}
	return nil
}

// Clone returns a deep copy so callers can keep a before/after pair.
func (r *StreakRecord) Clone() StreakRecord {
	out := *r
	if r.Previous != nil {
		p := *r.Previous
		out.Previous = &p
	}
	return out
}
