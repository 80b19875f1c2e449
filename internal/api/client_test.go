package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "test-token")
}

func TestPollParsesNotifications(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/me/alerts/poll", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"notifications": [
				{
					"alert": {"id": "a1", "source_key": "federal_register", "enabled": true, "muted": false},
					"delivery": {"id": "d1", "delivered_at": "2026-08-30T12:00:00Z"},
					"item": {"id": "i1", "title": "New executive order", "ai_impact_score": 0.62}
				}
			]
		}`))
	})

	notifications, err := client.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, notifications, 1)

	n := notifications[0]
	assert.Equal(t, "a1", n.Alert.ID)
	assert.Equal(t, "federal_register", n.Alert.SourceKey)
	assert.Equal(t, "d1", n.Delivery.ID)
	assert.Nil(t, n.Delivery.AcknowledgedAt)
	assert.Equal(t, "New executive order", n.Item.Title)
	assert.InDelta(t, 0.62, n.Item.ImpactScore, 1e-9)
}

// The backend stringifies delivered_at itself (Python str(datetime))
// instead of letting the JSON encoder do it, and ai_impact is an object
// or null. Decoding must cope with the payload exactly as served.
func TestPollParsesBackendTimestampAndImpactShapes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"notifications": [
				{
					"alert": {
						"id": "a1",
						"source_key": "federal_register",
						"statuses": [],
						"categories": [],
						"muted": false,
						"enabled": true,
						"created_at": "2026-08-01 09:30:00+00:00"
					},
					"delivery": {
						"id": "d1",
						"delivered_at": "2026-08-30 12:00:00.123456+00:00",
						"acknowledged_at": null
					},
					"item": {
						"id": "ext-1",
						"title": "Tariff adjustment order",
						"summary": "Adjusts duties on imports.",
						"url": "https://example.gov/doc/1",
						"source_name": "Federal Register",
						"jurisdiction": "US",
						"status": "published",
						"categories": ["trade"],
						"ai_impact_score": -0.41,
						"ai_impact": {
							"score": -0.41,
							"industries": [
								{"name": "manufacturing", "direction": "negative", "magnitude": 0.6, "confidence": 0.7, "why": "input costs rise"}
							],
							"tags": ["tariffs"],
							"overall_why": "import duties raise input costs"
						},
						"ai_impact_status": "ok",
						"published_at": "2026-08-29T08:00:00+00:00"
					}
				},
				{
					"alert": {"id": "a2", "source_key": "whitehouse", "muted": false, "enabled": true, "created_at": "2026-08-02T10:00:00Z"},
					"delivery": {"id": "d2", "delivered_at": "2026-08-30 12:00:05+00:00", "acknowledged_at": null},
					"item": {"id": "ext-2", "title": "Briefing note", "ai_impact_score": 0, "ai_impact": null}
				}
			]
		}`))
	})

	notifications, err := client.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, notifications, 2)

	first := notifications[0]
	assert.Equal(t, "d1", first.Delivery.ID)
	assert.Equal(t,
		time.Date(2026, 8, 30, 12, 0, 0, 123456000, time.UTC),
		first.Delivery.DeliveredAt,
	)
	assert.Nil(t, first.Delivery.AcknowledgedAt)
	assert.Equal(t, time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC), first.Alert.CreatedAt)
	assert.InDelta(t, -0.41, first.Item.ImpactScore, 1e-9)

	detail := first.Item.ImpactDetail()
	require.NotNil(t, detail)
	assert.Equal(t, "import duties raise input costs", detail.OverallWhy)
	require.Len(t, detail.Industries, 1)
	assert.Equal(t, "manufacturing", detail.Industries[0].Name)

	second := notifications[1]
	assert.Equal(t,
		time.Date(2026, 8, 30, 12, 0, 5, 0, time.UTC),
		second.Delivery.DeliveredAt,
	)
	assert.Nil(t, second.Item.ImpactDetail())
}

func TestPollEmptyResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"notifications": []}`))
	})

	notifications, err := client.Poll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, notifications)
}

func TestAckDeliveryPostsToAckPath(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"ok": true}`))
	})

	require.NoError(t, client.AckDelivery(context.Background(), "d1"))
	assert.Equal(t, "/me/alerts/deliveries/d1/ack", gotPath)
}

func TestAckDeliveryNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail": "delivery not found"}`))
	})

	err := client.AckDelivery(context.Background(), "d9")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestUnauthorizedReturnsAuthError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Poll(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
}

func TestUpdateAlertSendsFullObject(t *testing.T) {
	var gotBody AlertIn
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/me/alerts/a1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Write([]byte(`{"ok": true, "alert": {"id": "a1", "source_key": "congress", "muted": true, "enabled": true}}`))
	})

	in := AlertIn{
		SourceKey:  "congress",
		Statuses:   []string{"introduced", "passed"},
		Categories: []string{"energy"},
		Enabled:    true,
		Muted:      true,
	}
	updated, err := client.UpdateAlert(context.Background(), "a1", in)
	require.NoError(t, err)

	assert.Equal(t, in, gotBody)
	assert.True(t, updated.Muted)
}

func TestErrorDetailIsSurfaced(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail": "unknown source_key"}`))
	})

	_, err := client.CreateAlert(context.Background(), AlertIn{SourceKey: "bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source_key")
}

func TestRateLimitedRequestIsRetried(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"notifications": []}`))
	})

	_, err := client.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestEveryAttemptCarriesAFreshRequestID(t *testing.T) {
	var ids []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, r.Header.Get("X-Request-ID"))
		if len(ids) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"notifications": []}`))
	})

	_, err := client.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, ids, 2)

	for _, id := range ids {
		_, parseErr := uuid.Parse(id)
		assert.NoError(t, parseErr, "request ID %q is not a UUID", id)
	}
	assert.NotEqual(t, ids[0], ids[1])
}

func TestDeleteAlert(t *testing.T) {
	var gotMethod, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.DeleteAlert(context.Background(), "a1"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/me/alerts/a1", gotPath)
}
