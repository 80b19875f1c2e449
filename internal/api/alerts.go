package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nhle/policywatch/internal/model"
)

// Poll fetches the signed-in user's currently-undelivered notifications.
// The server creates a delivery row the first time an alert/item pair is
// returned and keeps returning it until it is acknowledged.
func (c *Client) Poll(ctx context.Context) ([]model.Notification, error) {
	var resp PollResponse
	if err := c.Get(ctx, "/me/alerts/poll", &resp); err != nil {
		return nil, fmt.Errorf("polling alerts: %w", err)
	}
	return resp.Notifications, nil
}

// AckDelivery permanently marks a delivery as seen. The server sets the
// delivery's acknowledged_at and stops returning it from Poll.
func (c *Client) AckDelivery(ctx context.Context, deliveryID string) error {
	path := "/me/alerts/deliveries/" + url.PathEscape(deliveryID) + "/ack"
	var resp AckResponse
	if err := c.Post(ctx, path, nil, &resp); err != nil {
		return fmt.Errorf("acknowledging delivery %s: %w", deliveryID, err)
	}
	return nil
}

// ListAlerts retrieves the user's alert definitions.
func (c *Client) ListAlerts(ctx context.Context) ([]model.Alert, error) {
	var resp AlertsResponse
	if err := c.Get(ctx, "/me/alerts", &resp); err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	return resp.Alerts, nil
}

// CreateAlert creates a new alert definition and returns the server row.
func (c *Client) CreateAlert(ctx context.Context, in AlertIn) (*model.Alert, error) {
	var resp AlertResponse
	if err := c.Post(ctx, "/me/alerts", in, &resp); err != nil {
		return nil, fmt.Errorf("creating alert: %w", err)
	}
	return &resp.Alert, nil
}

// UpdateAlert replaces an alert definition with the given full object and
// returns the updated server row.
func (c *Client) UpdateAlert(ctx context.Context, alertID string, in AlertIn) (*model.Alert, error) {
	path := "/me/alerts/" + url.PathEscape(alertID)
	var resp AlertResponse
	if err := c.Put(ctx, path, in, &resp); err != nil {
		return nil, fmt.Errorf("updating alert %s: %w", alertID, err)
	}
	return &resp.Alert, nil
}

// DeleteAlert removes an alert definition.
func (c *Client) DeleteAlert(ctx context.Context, alertID string) error {
	path := "/me/alerts/" + url.PathEscape(alertID)
	if err := c.Delete(ctx, path); err != nil {
		return fmt.Errorf("deleting alert %s: %w", alertID, err)
	}
	return nil
}

// AlertInFrom builds a full-object update payload from an existing alert
// row. Callers toggle the field they care about and PUT the rest back
// unchanged.
func AlertInFrom(a model.Alert) AlertIn {
	return AlertIn{
		SourceKey:  a.SourceKey,
		Statuses:   a.Statuses,
		Categories: a.Categories,
		Enabled:    a.Enabled,
		Muted:      a.Muted,
	}
}
