package suppress

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nhle/policywatch/internal/api"
	"github.com/nhle/policywatch/internal/model"
	"github.com/nhle/policywatch/internal/store"
)

// Key prefixes for suppression records in the local key-value store.
// Values are decimal epoch-millisecond expiry instants.
const (
	muteKeyPrefix    = "mute_until_"
	dismissKeyPrefix = "dismiss_until_"
)

// DismissWindow is how long a closed alert stays hidden before its
// unacknowledged deliveries may resurface on a poll.
const DismissWindow = 5 * time.Minute

// MuteOption is one selectable timed-mute duration.
type MuteOption struct {
	Label    string
	Duration time.Duration
}

// MuteOptions are the supported timed-mute durations, shortest first.
// Permanent mute is separate: it lives on the server-side alert row.
var MuteOptions = []MuteOption{
	{Label: "1 hour", Duration: time.Hour},
	{Label: "8 hours", Duration: 8 * time.Hour},
	{Label: "1 day", Duration: 24 * time.Hour},
	{Label: "1 week", Duration: 7 * 24 * time.Hour},
	{Label: "1 month", Duration: 30 * 24 * time.Hour},
}

// Directory is the subset of the backend API used to sync the permanent
// mute flag on an alert row.
type Directory interface {
	ListAlerts(ctx context.Context) ([]model.Alert, error)
	UpdateAlert(ctx context.Context, alertID string, in api.AlertIn) (*model.Alert, error)
}

// Store is the single source of truth for alert suppression. Timed mutes
// and dismiss windows are client-local records in the key-value store;
// permanent mutes are the server-side muted flag, toggled through the
// alert directory.
type Store struct {
	kv  store.Store
	dir Directory
	now func() time.Time
}

// New creates a suppression store over the given key-value store and
// alert directory.
func New(kv store.Store, dir Directory) *Store {
	return &Store{
		kv:  kv,
		dir: dir,
		now: time.Now,
	}
}

// IsSuppressed reports whether notifications for alertID should be
// withheld: either the server-side muted flag is set, or a non-expired
// mute or dismiss record exists locally. Expired records are deleted as
// a side effect; a key-value store failure reads as "not suppressed" so
// a local storage problem can never silence notifications.
func (s *Store) IsSuppressed(ctx context.Context, alertID string, serverMuted bool) bool {
	if serverMuted {
		return true
	}
	if s.activeRecord(ctx, muteKeyPrefix+alertID) {
		return true
	}
	return s.activeRecord(ctx, dismissKeyPrefix+alertID)
}

// MuteFor writes a timed mute record expiring duration from now.
func (s *Store) MuteFor(ctx context.Context, alertID string, duration time.Duration) error {
	return s.writeExpiry(ctx, muteKeyPrefix+alertID, duration)
}

// DismissFor writes a dismiss record covering the fixed dismiss window.
// Used only by the close action; independent of mute state.
func (s *Store) DismissFor(ctx context.Context, alertID string) error {
	return s.writeExpiry(ctx, dismissKeyPrefix+alertID, DismissWindow)
}

// MuteAlways sets the server-side muted flag on the alert via a
// full-object update. The alert row is resolved from the local cache
// first and from the directory when the cache misses. Returns the
// updated alert row.
func (s *Store) MuteAlways(ctx context.Context, alertID string) (*model.Alert, error) {
	alert, err := s.resolveAlert(ctx, alertID)
	if err != nil {
		return nil, err
	}

	in := api.AlertInFrom(*alert)
	in.Muted = true

	updated, err := s.dir.UpdateAlert(ctx, alertID, in)
	if err != nil {
		return nil, fmt.Errorf("setting permanent mute for alert %s: %w", alertID, err)
	}

	if upErr := s.upsertCache(ctx, *updated); upErr != nil {
		return updated, upErr
	}
	return updated, nil
}

// Unmute clears any local timed mute and, when the server-side muted flag
// is set, requests it be cleared too. Dismiss records are untouched. The
// local record is removed even when the server call fails, so the error
// reports an unsynced server flag, not a stale local mute.
func (s *Store) Unmute(ctx context.Context, alertID string) error {
	if err := s.kv.DeleteValue(ctx, muteKeyPrefix+alertID); err != nil {
		return fmt.Errorf("clearing timed mute for alert %s: %w", alertID, err)
	}

	alert, err := s.resolveAlert(ctx, alertID)
	if err != nil || alert == nil || !alert.Muted {
		// No server flag to clear (or we cannot tell); the local
		// clear already took effect.
		return nil
	}

	in := api.AlertInFrom(*alert)
	in.Muted = false

	updated, err := s.dir.UpdateAlert(ctx, alertID, in)
	if err != nil {
		return fmt.Errorf("clearing permanent mute for alert %s: %w", alertID, err)
	}
	return s.upsertCache(ctx, *updated)
}

// activeRecord reports whether key holds a non-expired expiry instant.
// Expired or malformed values are deleted lazily.
func (s *Store) activeRecord(ctx context.Context, key string) bool {
	value, ok, err := s.kv.GetValue(ctx, key)
	if err != nil || !ok {
		return false
	}

	expiryMillis, parseErr := strconv.ParseInt(value, 10, 64)
	if parseErr != nil || expiryMillis <= 0 {
		_ = s.kv.DeleteValue(ctx, key)
		return false
	}

	if expiryMillis <= s.now().UnixMilli() {
		_ = s.kv.DeleteValue(ctx, key)
		return false
	}

	return true
}

// writeExpiry stores now+duration under key as a decimal epoch-millisecond
// string.
func (s *Store) writeExpiry(ctx context.Context, key string, duration time.Duration) error {
	expiry := s.now().Add(duration).UnixMilli()
	if err := s.kv.SetValue(ctx, key, strconv.FormatInt(expiry, 10)); err != nil {
		return fmt.Errorf("writing suppression record %q: %w", key, err)
	}
	return nil
}

// resolveAlert returns the alert row for alertID, preferring the local
// cache and falling back to a directory list.
func (s *Store) resolveAlert(ctx context.Context, alertID string) (*model.Alert, error) {
	if alert, err := s.kv.GetAlertByID(ctx, alertID); err == nil && alert != nil {
		return alert, nil
	}

	alerts, err := s.dir.ListAlerts(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving alert %s: %w", alertID, err)
	}
	for i := range alerts {
		if alerts[i].ID == alertID {
			return &alerts[i], nil
		}
	}
	return nil, fmt.Errorf("resolving alert %s: not found", alertID)
}

// upsertCache refreshes the cached alert row after a directory write.
func (s *Store) upsertCache(ctx context.Context, alert model.Alert) error {
	if err := s.kv.UpsertAlert(ctx, alert); err != nil {
		return fmt.Errorf("refreshing alert cache for %s: %w", alert.ID, err)
	}
	return nil
}
