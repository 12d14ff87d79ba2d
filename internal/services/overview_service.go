package services

import (
	"context"
	"sort"

	"github.com/hawksec/hawk/internal/domain/alert"
	"github.com/hawksec/hawk/internal/domain/system"
	"github.com/hawksec/hawk/internal/domain/trend"
	"github.com/hawksec/hawk/internal/pkg/logger"
)

// SystemsOverview is the systems list with its status tally
type SystemsOverview struct {
	Systems []system.Overview   `json:"systems"`
	Counts  system.StatusCounts `json:"counts"`
}

// SecuritySummary is the headline of the dashboard
type SecuritySummary struct {
	Stats   SeverityStats `json:"stats"`
	Total   int           `json:"total"`
	Summary string        `json:"summary"`
}

// OverviewService builds the read-only dashboard panels
type OverviewService struct {
	systems system.Repository
	trends  trend.Repository
	logger  *logger.Logger
}

// NewOverviewService creates an overview service
func NewOverviewService(systems system.Repository, trends trend.Repository, log *logger.Logger) *OverviewService {
	return &OverviewService{systems: systems, trends: trends, logger: log}
}

// Systems returns every monitored system with its alert counts
func (s *OverviewService) Systems(ctx context.Context) (*SystemsOverview, error) {
	systems, err := s.systems.List(ctx)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to load systems")
		return nil, err
	}
	refs, err := s.systems.AlertRefs(ctx)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to load alert counts")
		return nil, err
	}
	return &SystemsOverview{
		Systems: system.BuildOverview(systems, refs),
		Counts:  system.CountStatuses(systems),
	}, nil
}

// Stats counts the active alerts per severity
func (s *OverviewService) Stats(alerts []*alert.Alert) SeverityStats {
	return VulnerabilityStats(alerts)
}

// Trends returns the trend series, oldest first
func (s *OverviewService) Trends(ctx context.Context) ([]trend.Point, error) {
	points, err := s.trends.List(ctx)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to load vulnerability trends")
		return nil, err
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points, nil
}

// Summary describes the security posture of alerts
func (s *OverviewService) Summary(alerts []*alert.Alert) SecuritySummary {
	stats := VulnerabilityStats(alerts)
	return SecuritySummary{
		Stats:   stats,
		Total:   stats.Total(),
		Summary: GenerateSecuritySummary(stats),
	}
}
