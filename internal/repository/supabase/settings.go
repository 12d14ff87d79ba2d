package supabase

import (
	"context"
	"fmt"

	"github.com/hawksec/hawk/internal/domain/settings"
	"github.com/hawksec/hawk/internal/gateway"
	"github.com/hawksec/hawk/internal/normalize"
	"github.com/hawksec/hawk/internal/pkg/errors"
)

const tableUserSystems = "user_systems"

type SettingsRepository struct {
	client *gateway.Client
}

func NewSettingsRepository(client *gateway.Client) settings.Repository {
	return &SettingsRepository{client: client}
}

func (r *SettingsRepository) Get(ctx context.Context, userID string) (*settings.UserSystem, error) {
	var rows []gateway.Row
	q := gateway.NewQuery().Eq("user_id", userID).Order("created_at", false).Limit(1)
	if err := r.client.Fetch(ctx, tableUserSystems, q, &rows); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	us, err := normalize.UserSystem(rows[0])
	if err != nil {
		return nil, errors.BackendError("Stored settings are malformed", err)
	}
	return us, nil
}

func (r *SettingsRepository) Save(ctx context.Context, us *settings.UserSystem) (*settings.UserSystem, error) {
	payload, err := normalize.UserSystemRow(us)
	if err != nil {
		return nil, err
	}

	var rows []gateway.Row
	if us.ID != "" {
		q := gateway.NewQuery().Eq("id", us.ID)
		err = r.client.Update(ctx, tableUserSystems, q, payload, &rows)
	} else {
		err = r.client.Insert(ctx, tableUserSystems, []gateway.Row{payload}, &rows)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.NotFound("Settings")
	}

	saved, err := normalize.UserSystem(rows[0])
	if err != nil {
		return nil, errors.BackendError("Saved settings are malformed", err)
	}
	return saved, nil
}
