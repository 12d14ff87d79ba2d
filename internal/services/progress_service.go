package services

import (
	"context"
	"time"

	"github.com/hawksec/hawk/internal/domain/progress"
	"github.com/hawksec/hawk/internal/domain/solution"
	apperrors "github.com/hawksec/hawk/internal/pkg/errors"
	"github.com/hawksec/hawk/internal/pkg/logger"
)

// ProgressService tracks how far a user got through the remediation steps
// of an alert. Every change rewrites the whole document.
type ProgressService struct {
	repo   progress.Repository
	logger *logger.Logger
	now    func() time.Time
}

// NewProgressService creates a progress service
func NewProgressService(repo progress.Repository, log *logger.Logger) *ProgressService {
	return &ProgressService{repo: repo, logger: log, now: time.Now}
}

// Get returns the progress of alertID, empty when none is stored
func (s *ProgressService) Get(ctx context.Context, alertID string) (*progress.SolutionProgress, error) {
	if alertID == "" {
		return nil, apperrors.BadRequest("Alert ID is required")
	}
	p, err := s.repo.Get(ctx, alertID)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{"alert_id": alertID}).ErrorWithErr(err, "Failed to load solution progress")
		return nil, err
	}
	if p == nil {
		return progress.New(alertID), nil
	}
	return p, nil
}

// ToggleStep flips the completion of one step
func (s *ProgressService) ToggleStep(ctx context.Context, alertID string, step int) (*progress.SolutionProgress, error) {
	if step <= 0 {
		return nil, apperrors.BadRequest("Step must be a positive number")
	}
	return s.change(ctx, alertID, func(p *progress.SolutionProgress) {
		p.Toggle(step)
	})
}

// SelectTemplate records which remediation template the user follows
func (s *ProgressService) SelectTemplate(ctx context.Context, alertID, templateID string) (*progress.SolutionProgress, error) {
	if _, ok := solution.Get(templateID); !ok {
		return nil, apperrors.NotFound("Solution template")
	}
	return s.change(ctx, alertID, func(p *progress.SolutionProgress) {
		p.SelectedTemplate = templateID
	})
}

// Reset forgets the progress of alertID
func (s *ProgressService) Reset(ctx context.Context, alertID string) error {
	if alertID == "" {
		return apperrors.BadRequest("Alert ID is required")
	}
	if err := s.repo.Delete(ctx, alertID); err != nil {
		s.logger.WithFields(map[string]interface{}{"alert_id": alertID}).ErrorWithErr(err, "Failed to reset solution progress")
		return err
	}
	return nil
}

// Percentage returns the completed share of totalSteps. When totalSteps is
// zero the selected template's step count is used.
func (s *ProgressService) Percentage(ctx context.Context, alertID string, totalSteps int) (float64, error) {
	p, err := s.Get(ctx, alertID)
	if err != nil {
		return 0, err
	}
	return ProgressPercentage(p, totalSteps), nil
}

// ProgressPercentage is p's completed share of totalSteps, or of its
// selected template's steps when totalSteps is zero
func ProgressPercentage(p *progress.SolutionProgress, totalSteps int) float64 {
	if totalSteps <= 0 {
		if t, ok := solution.Get(p.SelectedTemplate); ok {
			totalSteps = len(t.Steps)
		}
	}
	return p.Percentage(totalSteps)
}

func (s *ProgressService) change(ctx context.Context, alertID string, fn func(*progress.SolutionProgress)) (*progress.SolutionProgress, error) {
	p, err := s.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}
	fn(p)
	p.LastUpdated = s.now().UTC()

	if err := s.repo.Put(ctx, p); err != nil {
		s.logger.WithFields(map[string]interface{}{"alert_id": alertID}).ErrorWithErr(err, "Failed to save solution progress")
		return nil, err
	}
	return p, nil
}
