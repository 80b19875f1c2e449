package notify

import (
	"context"

	"go.uber.org/zap"
)

// ApplyPoll filters one poll result into the queue and returns how many
// notifications were admitted. It must run on the update loop: the whole
// filter-and-append pass is synchronous, so nothing interleaves between
// the checks and the queue mutation.
//
// A result whose generation does not match the current activation is
// discarded without touching the queue. This is the liveness check: a
// poll started before sign-out must not append after sign-out.
func (s *Session) ApplyPoll(msg PollResultMsg) int {
	s.mu.Lock()
	live := s.active && msg.Generation == s.generation
	s.mu.Unlock()

	if !live {
		s.log.Debug("discarding stale poll result",
			zap.Int("generation", msg.Generation),
		)
		return 0
	}
	if msg.Err != nil {
		// Already logged at fetch time; nothing to apply.
		return 0
	}

	ctx := context.Background()
	admitted := 0
	for _, n := range msg.Notifications {
		// Malformed: a notification without identities can neither be
		// deduplicated nor acted on.
		if n.Delivery.ID == "" || n.Alert.ID == "" {
			s.log.Warn("dropping malformed notification",
				zap.String("delivery_id", n.Delivery.ID),
				zap.String("alert_id", n.Alert.ID),
			)
			continue
		}

		if s.suppress.IsSuppressed(ctx, n.Alert.ID, n.Alert.Muted) {
			continue
		}

		// Append dedups by delivery ID across polls.
		if s.queue.Append(n) {
			admitted++
		}
	}

	// One cue per admitting poll, not one per notification.
	if admitted > 0 && s.gate != nil {
		s.gate.Chime()
	}

	return admitted
}
