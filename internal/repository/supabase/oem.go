package supabase

import (
	"context"
	"fmt"

	"github.com/hawksec/hawk/internal/domain/oem"
	"github.com/hawksec/hawk/internal/gateway"
	"github.com/hawksec/hawk/internal/normalize"
	"github.com/hawksec/hawk/internal/pkg/errors"
)

const tableOEMSources = "oem_sources"

type OEMRepository struct {
	client *gateway.Client
}

func NewOEMRepository(client *gateway.Client) oem.Repository {
	return &OEMRepository{client: client}
}

func (r *OEMRepository) List(ctx context.Context, userID string) ([]*oem.Source, error) {
	var rows []gateway.Row
	q := gateway.NewQuery().Eq("user_id", userID).Order("created_at", true)
	if err := r.client.Fetch(ctx, tableOEMSources, q, &rows); err != nil {
		return nil, fmt.Errorf("failed to list OEM sources: %w", err)
	}
	out := make([]*oem.Source, 0, len(rows))
	for _, row := range rows {
		out = append(out, normalize.OEMSource(row))
	}
	return out, nil
}

func (r *OEMRepository) Create(ctx context.Context, userID string, in oem.CreateInput) (*oem.Source, error) {
	payload := normalize.OEMSourceRow(&oem.Source{
		Name:       in.Name,
		URL:        oem.NormalizeURL(in.URL),
		SystemType: in.SystemType,
		IsActive:   true,
	})
	payload["user_id"] = userID

	var rows []gateway.Row
	if err := r.client.Insert(ctx, tableOEMSources, []gateway.Row{payload}, &rows); err != nil {
		return nil, fmt.Errorf("failed to add OEM source: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.BackendError("Backend returned no row for the new OEM source", nil)
	}
	return normalize.OEMSource(rows[0]), nil
}

func (r *OEMRepository) Update(ctx context.Context, userID, id string, in oem.UpdateInput) (*oem.Source, error) {
	var rows []gateway.Row
	q := gateway.NewQuery().Eq("id", id).Eq("user_id", userID)
	if err := r.client.Update(ctx, tableOEMSources, q, normalize.OEMUpdateRow(in), &rows); err != nil {
		return nil, fmt.Errorf("failed to update OEM source: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.NotFound("OEM source")
	}
	return normalize.OEMSource(rows[0]), nil
}

func (r *OEMRepository) Delete(ctx context.Context, userID, id string) error {
	q := gateway.NewQuery().Eq("id", id).Eq("user_id", userID)
	if err := r.client.Delete(ctx, tableOEMSources, q); err != nil {
		return fmt.Errorf("failed to delete OEM source: %w", err)
	}
	return nil
}
