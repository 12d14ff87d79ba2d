// Package supabase implements the domain repositories on top of the
// hosted backend's REST, realtime and function endpoints.
package supabase

import (
	"context"
	"fmt"

	"github.com/hawksec/hawk/internal/domain/alert"
	"github.com/hawksec/hawk/internal/gateway"
	"github.com/hawksec/hawk/internal/normalize"
)

const tableAlerts = "alerts"

type AlertRepository struct {
	client *gateway.Client
}

func NewAlertRepository(client *gateway.Client) alert.Repository {
	return &AlertRepository{client: client}
}

func (r *AlertRepository) List(ctx context.Context) ([]*alert.Alert, error) {
	var rows []gateway.Row
	q := gateway.NewQuery().Order("date", true)
	if err := r.client.Fetch(ctx, tableAlerts, q, &rows); err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return normalize.Alerts(rows), nil
}

func (r *AlertRepository) UpdateStatus(ctx context.Context, id string, status alert.Status) error {
	patch := normalize.AlertMutation(&alert.Alert{Status: status})
	q := gateway.NewQuery().Eq("id", id)
	if err := r.client.Update(ctx, tableAlerts, q, patch, nil); err != nil {
		return fmt.Errorf("failed to update alert status: %w", err)
	}
	return nil
}

func (r *AlertRepository) Watch(ctx context.Context) (alert.Stream, error) {
	sub, err := r.client.Subscribe(ctx, gateway.Filter{Table: tableAlerts, Event: gateway.ChangeAll})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to alerts: %w", err)
	}
	return newRelay(sub, alertChange), nil
}

func alertChange(ev gateway.ChangeEvent) (alert.Change, bool) {
	c := alert.Change{Type: alert.ChangeType(ev.Type)}
	switch {
	case len(ev.Record) > 0:
		c.Alert = normalize.Alert(ev.Record)
		c.ID = c.Alert.ID
	case ev.OldRecord != nil:
		c.ID = normalize.Alert(ev.OldRecord).ID
	}
	return c, true
}
