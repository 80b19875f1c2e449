package api

import "github.com/nhle/policywatch/internal/model"

// ErrorResponse is the backend's error payload shape.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// PollResponse is the payload of GET /me/alerts/poll: the signed-in
// user's currently-undelivered notifications.
type PollResponse struct {
	Notifications []model.Notification `json:"notifications"`
}

// AlertsResponse is the payload of GET /me/alerts.
type AlertsResponse struct {
	Alerts []model.Alert `json:"alerts"`
}

// AlertResponse wraps a single alert row as returned by create and
// update calls.
type AlertResponse struct {
	OK    bool        `json:"ok"`
	Alert model.Alert `json:"alert"`
}

// AlertIn is the request body for creating or updating an alert. Updates
// are full-object PUTs: every field is sent even when only one changed.
type AlertIn struct {
	SourceKey  string   `json:"source_key"`
	Statuses   []string `json:"statuses"`
	Categories []string `json:"categories"`
	Enabled    bool     `json:"enabled"`
	Muted      bool     `json:"muted"`
}

// AckResponse is the payload of the delivery acknowledgement call.
type AckResponse struct {
	OK bool `json:"ok"`
}
