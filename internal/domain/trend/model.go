package trend

import (
	"context"
	"time"
)

// Point is one day of the vulnerability trend series
type Point struct {
	ID       string    `json:"id"`
	Date     time.Time `json:"date"`
	Critical int       `json:"critical"`
	High     int       `json:"high"`
	Medium   int       `json:"medium"`
	Low      int       `json:"low"`
}

// Total returns the sum of all severities
func (p Point) Total() int {
	return p.Critical + p.High + p.Medium + p.Low
}

// Repository defines the interface for trend data access
type Repository interface {
	// List returns the series ordered by date, oldest first
	List(ctx context.Context) ([]Point, error)
}
