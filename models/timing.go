package models

import (
	"math"
	"time"

	"github.com/uptrace/bun"
)

// TimingResult is the recorded elapsed time of one registration and its derived positions.
// A position of 0 means it has not been assigned by a ranking run yet.
type TimingResult struct {
	bun.BaseModel `bun:"table:timing_results,alias:tr"`

	RegistrationID   int64     `bun:"registration_id,pk" json:"registrationID"`
	ElapsedSeconds   float64   `bun:"elapsed_seconds,notnull" json:"elapsedSeconds"`
	OverallPosition  int       `bun:"overall_position,notnull,default:0" json:"overallPosition"`
	CategoryPosition int       `bun:"category_position,notnull,default:0" json:"categoryPosition"`
	DistancePosition int       `bun:"distance_position,notnull,default:0" json:"distancePosition"`
	RecordedAt       time.Time `bun:"recorded_at,notnull" json:"recordedAt"`
}

// NewTimingResult returns an unranked result for elapsed seconds.
func NewTimingResult(elapsed float64) (*TimingResult, error) {
	if math.IsNaN(elapsed) || math.IsInf(elapsed, 0) {
		return nil, invalid("elapsedSeconds", "must be a finite number")
	}
	if elapsed < 0 {
		return nil, invalid("elapsedSeconds", "must be >= 0")
	}
	return &TimingResult{ElapsedSeconds: elapsed, RecordedAt: time.Now().UTC()}, nil
}

// Ranked reports whether an overall position has been assigned.
func (t *TimingResult) Ranked() bool { return t.OverallPosition > 0 }
