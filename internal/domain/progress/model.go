package progress

import (
	"context"
	"math"
	"slices"
	"time"
)

// KeyPrefix namespaces progress documents by alert id
const KeyPrefix = "solution-progress-"

// Key returns the storage key of an alert's progress document
func Key(alertID string) string {
	return KeyPrefix + alertID
}

// SolutionProgress records how far a user got through an alert's
// remediation steps. It is always stored as a whole document.
type SolutionProgress struct {
	AlertID          string    `json:"alertId"`
	CompletedSteps   []int     `json:"completedSteps"`
	SelectedTemplate string    `json:"selectedTemplate,omitempty"`
	LastUpdated      time.Time `json:"lastUpdated"`
}

// New returns an empty progress document for alertID
func New(alertID string) *SolutionProgress {
	return &SolutionProgress{AlertID: alertID, CompletedSteps: []int{}}
}

// Toggle marks step complete, or incomplete when it already was. It
// reports whether the step is complete afterwards.
func (p *SolutionProgress) Toggle(step int) bool {
	if i := slices.Index(p.CompletedSteps, step); i >= 0 {
		p.CompletedSteps = slices.Delete(p.CompletedSteps, i, i+1)
		return false
	}
	p.CompletedSteps = append(p.CompletedSteps, step)
	return true
}

// IsCompleted reports whether step is complete
func (p *SolutionProgress) IsCompleted(step int) bool {
	return slices.Contains(p.CompletedSteps, step)
}

// Percentage returns the share of totalSteps completed, 0..100. It is 0
// when totalSteps is 0.
func (p *SolutionProgress) Percentage(totalSteps int) float64 {
	if totalSteps <= 0 {
		return 0
	}
	return math.Min(100, float64(len(p.CompletedSteps))/float64(totalSteps)*100)
}

// Repository is a keyed document store; Put replaces the whole document
type Repository interface {
	Get(ctx context.Context, alertID string) (*SolutionProgress, error)
	Put(ctx context.Context, p *SolutionProgress) error
	Delete(ctx context.Context, alertID string) error
}
