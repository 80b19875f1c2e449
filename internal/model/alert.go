package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Alert is a server-owned subscription: a source plus optional status and
// category filters. The server matches new items against it and records a
// Delivery for each hit.
type Alert struct {
	// ID is the server-assigned alert identifier.
	ID string `json:"id"`

	// SourceKey selects which ingest source this alert watches.
	SourceKey string `json:"source_key"`

	// Statuses optionally narrows matches to items in these statuses.
	Statuses []string `json:"statuses"`

	// Categories optionally narrows matches to items in these categories.
	Categories []string `json:"categories"`

	// Enabled controls whether the server evaluates this alert at all.
	Enabled bool `json:"enabled"`

	// Muted is the server-persisted permanent mute flag. A muted alert
	// still matches and records deliveries; the client just never shows
	// them.
	Muted bool `json:"muted"`

	// CreatedAt is when the alert was created on the server.
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalJSON decodes an alert row, accepting created_at in either of
// the backend's two timestamp renderings (see parseWireTime).
func (a *Alert) UnmarshalJSON(data []byte) error {
	type alias Alert
	aux := struct {
		*alias
		CreatedAt string `json:"created_at"`
	}{alias: (*alias)(a)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.CreatedAt != "" {
		t, err := parseWireTime(aux.CreatedAt)
		if err != nil {
			return fmt.Errorf("parsing alert created_at: %w", err)
		}
		a.CreatedAt = t
	}
	return nil
}

// Delivery is one firing of an Alert against a matched item. Immutable
// except for AcknowledgedAt, which transitions once from nil to set.
type Delivery struct {
	// ID is the server-assigned delivery identifier.
	ID string `json:"id"`

	// DeliveredAt is when the server first returned this delivery.
	DeliveredAt time.Time `json:"delivered_at"`

	// AcknowledgedAt is set once the user acknowledges the delivery.
	AcknowledgedAt *time.Time `json:"acknowledged_at"`
}

// UnmarshalJSON decodes a delivery. The backend renders delivered_at
// with str(datetime) rather than an ISO encoder, so both layouts must
// be accepted or the whole poll payload fails to decode.
func (d *Delivery) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID             string `json:"id"`
		DeliveredAt    string `json:"delivered_at"`
		AcknowledgedAt string `json:"acknowledged_at"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	d.ID = aux.ID
	d.AcknowledgedAt = nil

	if aux.DeliveredAt != "" {
		t, err := parseWireTime(aux.DeliveredAt)
		if err != nil {
			return fmt.Errorf("parsing delivered_at: %w", err)
		}
		d.DeliveredAt = t
	}
	if aux.AcknowledgedAt != "" {
		t, err := parseWireTime(aux.AcknowledgedAt)
		if err != nil {
			return fmt.Errorf("parsing acknowledged_at: %w", err)
		}
		d.AcknowledgedAt = &t
	}
	return nil
}

// wireTimeLayouts are the timestamp renderings the backend emits:
// RFC 3339 from the JSON encoder, and Python's str(datetime)
// ("2026-08-30 12:00:00.123456+00:00") where a handler stringifies the
// value itself. Offset-less values are taken as UTC.
var wireTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseWireTime(s string) (time.Time, error) {
	for _, layout := range wireTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Item is the matched document an alert fired on, as projected by the
// poll endpoint.
type Item struct {
	// ID is the item's external identifier at its source.
	ID string `json:"id"`

	// Title is the item headline.
	Title string `json:"title"`

	// Summary is the item summary, AI-generated when available.
	Summary string `json:"summary"`

	// URL links to the item at its source.
	URL string `json:"url"`

	// SourceName is the human-readable name of the ingest source.
	SourceName string `json:"source_name"`

	// Jurisdiction identifies the issuing jurisdiction, if any.
	Jurisdiction string `json:"jurisdiction"`

	// Status is the item's lifecycle status at the source.
	Status string `json:"status"`

	// Categories are the item's topic categories.
	Categories []string `json:"categories"`

	// ImpactScore is the AI-assessed impact score in [-1, 1]; negative
	// means likely negative economic impact. 0 when unscored.
	ImpactScore float64 `json:"ai_impact_score"`

	// Impact is the AI impact assessment. The backend normalizes it to
	// a JSON object or null; it is kept raw here because older rows may
	// carry other shapes, and one odd item must not abort the poll.
	Impact json.RawMessage `json:"ai_impact"`

	// PublishedAt is when the item was published at its source.
	PublishedAt time.Time `json:"published_at"`
}

// Impact is the structured AI impact assessment attached to an item.
type Impact struct {
	Score      float64          `json:"score"`
	Industries []ImpactIndustry `json:"industries"`
	Tags       []string         `json:"tags"`
	OverallWhy string           `json:"overall_why"`
}

// ImpactIndustry is one industry the assessment expects to be affected.
type ImpactIndustry struct {
	Name       string  `json:"name"`
	Direction  string  `json:"direction"`
	Magnitude  float64 `json:"magnitude"`
	Confidence float64 `json:"confidence"`
	Why        string  `json:"why"`
}

// ImpactDetail projects the raw assessment into its object shape.
// Returns nil when the item is unscored or the payload is not an
// object.
func (i Item) ImpactDetail() *Impact {
	if len(i.Impact) == 0 || string(i.Impact) == "null" {
		return nil
	}
	var detail Impact
	if err := json.Unmarshal(i.Impact, &detail); err != nil {
		return nil
	}
	return &detail
}

// Notification bundles an Alert firing with its Delivery and the matched
// Item. It exists only in memory between being fetched by the poller and
// being resolved by the user.
type Notification struct {
	Alert    Alert    `json:"alert"`
	Delivery Delivery `json:"delivery"`
	Item     Item     `json:"item"`
}
