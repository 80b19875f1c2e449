package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/policywatch/internal/model"
	"github.com/nhle/policywatch/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// SeedAlerts fills the local alert cache with the given rows.
func SeedAlerts(t *testing.T, s *store.SQLiteStore, alerts ...model.Alert) {
	t.Helper()

	if err := s.ReplaceAlerts(context.Background(), alerts); err != nil {
		t.Fatalf("seeding alert cache: %v", err)
	}
}

// Alert builds a minimal enabled alert row for tests.
func Alert(id, sourceKey string) model.Alert {
	return model.Alert{
		ID:        id,
		SourceKey: sourceKey,
		Enabled:   true,
		CreatedAt: time.Now().UTC(),
	}
}

// NotificationFor builds a notification for the given alert and delivery
// identifiers.
func NotificationFor(alert model.Alert, deliveryID string) model.Notification {
	return model.Notification{
		Alert: alert,
		Delivery: model.Delivery{
			ID:          deliveryID,
			DeliveredAt: time.Now().UTC(),
		},
		Item: model.Item{
			ID:         "item-" + deliveryID,
			Title:      "Test item " + deliveryID,
			SourceName: alert.SourceKey,
		},
	}
}
