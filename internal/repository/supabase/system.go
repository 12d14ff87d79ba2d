package supabase

import (
	"context"
	"fmt"

	"github.com/hawksec/hawk/internal/domain/system"
	"github.com/hawksec/hawk/internal/domain/trend"
	"github.com/hawksec/hawk/internal/domain/user"
	"github.com/hawksec/hawk/internal/gateway"
	"github.com/hawksec/hawk/internal/normalize"
)

const (
	tableSystems  = "systems"
	tableTrends   = "vulnerability_trends"
	tableProfiles = "profiles"
)

type SystemRepository struct {
	client *gateway.Client
}

func NewSystemRepository(client *gateway.Client) system.Repository {
	return &SystemRepository{client: client}
}

func (r *SystemRepository) List(ctx context.Context) ([]*system.System, error) {
	var rows []gateway.Row
	if err := r.client.Fetch(ctx, tableSystems, gateway.NewQuery().Order("name", false), &rows); err != nil {
		return nil, fmt.Errorf("failed to list systems: %w", err)
	}
	out := make([]*system.System, 0, len(rows))
	for _, row := range rows {
		out = append(out, normalize.System(row))
	}
	return out, nil
}

func (r *SystemRepository) AlertRefs(ctx context.Context) ([]system.AlertRef, error) {
	var rows []gateway.Row
	q := gateway.NewQuery().Select("system,severity,status")
	if err := r.client.Fetch(ctx, tableAlerts, q, &rows); err != nil {
		return nil, fmt.Errorf("failed to list alert counts: %w", err)
	}
	out := make([]system.AlertRef, 0, len(rows))
	for _, row := range rows {
		out = append(out, normalize.AlertRef(row))
	}
	return out, nil
}

type TrendRepository struct {
	client *gateway.Client
}

func NewTrendRepository(client *gateway.Client) trend.Repository {
	return &TrendRepository{client: client}
}

func (r *TrendRepository) List(ctx context.Context) ([]trend.Point, error) {
	var rows []gateway.Row
	if err := r.client.Fetch(ctx, tableTrends, gateway.NewQuery().Order("date", false), &rows); err != nil {
		return nil, fmt.Errorf("failed to list vulnerability trends: %w", err)
	}
	out := make([]trend.Point, 0, len(rows))
	for _, row := range rows {
		out = append(out, normalize.Trend(row))
	}
	return out, nil
}

type ProfileRepository struct {
	client *gateway.Client
}

func NewProfileRepository(client *gateway.Client) user.Repository {
	return &ProfileRepository{client: client}
}

func (r *ProfileRepository) GetProfile(ctx context.Context, id string) (*user.Profile, error) {
	var row gateway.Row
	err := r.client.FetchOne(ctx, tableProfiles, gateway.NewQuery().Eq("id", id), &row)
	if gateway.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return normalize.Profile(row), nil
}
