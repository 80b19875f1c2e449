package store

import (
	"context"

	"github.com/nhle/policywatch/internal/model"
)

// Store defines the persistence interface for the client's local state:
// a key-value table holding suppression timers, and a cache of the user's
// alert definitions so the manager view renders without a network round
// trip.
type Store interface {
	// === Key-value ===

	// GetValue returns the value for key and whether it exists.
	GetValue(ctx context.Context, key string) (string, bool, error)

	// SetValue writes value under key, replacing any previous value.
	SetValue(ctx context.Context, key, value string) error

	// DeleteValue removes key. Deleting an absent key is not an error.
	DeleteValue(ctx context.Context, key string) error

	// === Alert cache ===

	// ReplaceAlerts replaces the entire cached alert list.
	ReplaceAlerts(ctx context.Context, alerts []model.Alert) error

	// GetAlerts returns all cached alerts ordered by creation time
	// descending.
	GetAlerts(ctx context.Context) ([]model.Alert, error)

	// GetAlertByID returns a single cached alert, or nil when absent.
	GetAlertByID(ctx context.Context, id string) (*model.Alert, error)

	// UpsertAlert inserts or replaces one cached alert row.
	UpsertAlert(ctx context.Context, alert model.Alert) error

	// DeleteAlert removes one cached alert row.
	DeleteAlert(ctx context.Context, id string) error
}
