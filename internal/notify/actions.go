package notify

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/policywatch/internal/model"
)

// AckState is the lifecycle of one queued notification.
type AckState int

const (
	// AckPending: in the queue, unresolved.
	AckPending AckState = iota
	// AckInFlight: an acknowledgement request is running.
	AckInFlight
	// AckResolved: removed from the queue. Terminal.
	AckResolved
)

// State returns the acknowledgement state for a delivery ID.
func (s *Session) State(deliveryID string) AckState {
	if _, ok := s.acking[deliveryID]; ok {
		return AckInFlight
	}
	if s.queue.Contains(deliveryID) {
		return AckPending
	}
	return AckResolved
}

// Acknowledge starts the server acknowledgement for a queued
// notification and returns the command running it. Returns nil when the
// delivery is not queued or an ack is already in flight. The entry is
// removed when the result arrives, whether or not the call succeeded:
// a stuck notification is judged worse than a duplicate future delivery.
func (s *Session) Acknowledge(deliveryID string) tea.Cmd {
	if !s.queue.Contains(deliveryID) {
		return nil
	}
	if _, ok := s.acking[deliveryID]; ok {
		return nil
	}
	s.acking[deliveryID] = struct{}{}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		err := s.sink.AckDelivery(ctx, deliveryID)
		return AckResultMsg{DeliveryID: deliveryID, Err: err}
	}
}

// ApplyAckResult resolves a completed acknowledgement: the queue entry
// is removed no matter how the call went. Runs on the update loop.
func (s *Session) ApplyAckResult(msg AckResultMsg) {
	delete(s.acking, msg.DeliveryID)
	if msg.Err != nil {
		// Best effort: log and move on. The delivery may come back
		// unacknowledged on a future poll.
		s.log.Warn("acknowledgement failed",
			zap.String("delivery_id", msg.DeliveryID),
			zap.Error(msg.Err),
		)
	}
	s.queue.RemoveDelivery(msg.DeliveryID)
}

// Close temporarily dismisses an alert: a dismiss record covering the
// fixed window is written and every queued notification for the alert is
// removed. No network call; the underlying deliveries stay
// unacknowledged and resurface on a poll after the window elapses.
func (s *Session) Close(alertID string) error {
	err := s.suppress.DismissFor(context.Background(), alertID)
	s.queue.RemoveAlert(alertID)
	return err
}

// Mute writes a timed mute for the alert and removes its queued
// notifications immediately.
func (s *Session) Mute(alertID string, duration time.Duration) error {
	err := s.suppress.MuteFor(context.Background(), alertID, duration)
	s.queue.RemoveAlert(alertID)
	return err
}

// MuteAlways sets the server-side muted flag and removes the alert's
// queued notifications immediately. Returns the updated alert row when
// the directory write succeeded.
func (s *Session) MuteAlways(alertID string) (*model.Alert, error) {
	alert, err := s.suppress.MuteAlways(context.Background(), alertID)
	// Strip the queue even when the server write failed: the user asked
	// for silence and the local state honors it as far as it can.
	s.queue.RemoveAlert(alertID)
	return alert, err
}

// Unmute clears local and server mute state for the alert. The queue is
// untouched; suppression simply stops applying on future polls.
func (s *Session) Unmute(alertID string) error {
	return s.suppress.Unmute(context.Background(), alertID)
}
