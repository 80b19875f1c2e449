package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/policywatch/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestKVRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetValue(ctx, "mute_until_a1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetValue(ctx, "mute_until_a1", "1750000000000"))

	value, ok, err := s.GetValue(ctx, "mute_until_a1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1750000000000", value)
}

func TestKVSetOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetValue(ctx, "k", "first"))
	require.NoError(t, s.SetValue(ctx, "k", "second"))

	value, ok, err := s.GetValue(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", value)
}

func TestKVDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetValue(ctx, "k", "v"))
	require.NoError(t, s.DeleteValue(ctx, "k"))
	require.NoError(t, s.DeleteValue(ctx, "k"))

	_, ok, err := s.GetValue(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func sampleAlert(id string, createdAt time.Time) model.Alert {
	return model.Alert{
		ID:         id,
		SourceKey:  "federal_register",
		Statuses:   []string{"introduced", "passed"},
		Categories: []string{"energy"},
		Enabled:    true,
		CreatedAt:  createdAt,
	}
}

func TestReplaceAlertsRoundtrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	older := sampleAlert("a1", base)
	newer := sampleAlert("a2", base.Add(time.Hour))
	newer.Muted = true

	require.NoError(t, s.ReplaceAlerts(ctx, []model.Alert{older, newer}))

	alerts, err := s.GetAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	// Newest first.
	assert.Equal(t, "a2", alerts[0].ID)
	assert.True(t, alerts[0].Muted)
	assert.Equal(t, "a1", alerts[1].ID)
	assert.Equal(t, []string{"introduced", "passed"}, alerts[1].Statuses)
	assert.Equal(t, []string{"energy"}, alerts[1].Categories)
	assert.True(t, alerts[1].Enabled)
}

func TestReplaceAlertsDropsStaleRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.ReplaceAlerts(ctx, []model.Alert{sampleAlert("a1", now)}))
	require.NoError(t, s.ReplaceAlerts(ctx, []model.Alert{sampleAlert("a2", now)}))

	alerts, err := s.GetAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "a2", alerts[0].ID)
}

func TestGetAlertByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertAlert(ctx, sampleAlert("a1", time.Now().UTC())))

	found, err := s.GetAlertByID(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "federal_register", found.SourceKey)

	missing, err := s.GetAlertByID(ctx, "a9")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpsertAlertReplacesRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := sampleAlert("a1", time.Now().UTC())
	require.NoError(t, s.UpsertAlert(ctx, a))

	a.Muted = true
	a.Statuses = []string{"vetoed"}
	require.NoError(t, s.UpsertAlert(ctx, a))

	found, err := s.GetAlertByID(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.Muted)
	assert.Equal(t, []string{"vetoed"}, found.Statuses)
}

func TestDeleteAlert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertAlert(ctx, sampleAlert("a1", time.Now().UTC())))
	require.NoError(t, s.DeleteAlert(ctx, "a1"))

	found, err := s.GetAlertByID(ctx, "a1")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.runMigrations())
}
