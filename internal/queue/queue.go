package queue

import "github.com/nhle/policywatch/internal/model"

// Queue is a FIFO sequence of notifications, presented one at a time.
// It holds at most one entry per delivery ID. All mutation happens on
// the Bubble Tea update loop, so no locking is needed.
type Queue struct {
	entries []model.Notification
	seen    map[string]struct{}
}

// New creates an empty notification queue.
func New() *Queue {
	return &Queue{
		seen: make(map[string]struct{}),
	}
}

// Len returns the number of queued notifications.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Head returns the notification currently eligible for display, or nil
// when the queue is empty. Only ever one notification is visible at a
// time regardless of queue length.
func (q *Queue) Head() *model.Notification {
	if len(q.entries) == 0 {
		return nil
	}
	return &q.entries[0]
}

// Contains reports whether a notification with the given delivery ID is
// already queued.
func (q *Queue) Contains(deliveryID string) bool {
	_, ok := q.seen[deliveryID]
	return ok
}

// Append adds a notification to the tail. Returns false without
// modifying the queue when its delivery ID is already present.
func (q *Queue) Append(n model.Notification) bool {
	if _, ok := q.seen[n.Delivery.ID]; ok {
		return false
	}
	q.entries = append(q.entries, n)
	q.seen[n.Delivery.ID] = struct{}{}
	return true
}

// RemoveDelivery removes the notification with the given delivery ID.
// Returns whether an entry was removed.
func (q *Queue) RemoveDelivery(deliveryID string) bool {
	if _, ok := q.seen[deliveryID]; !ok {
		return false
	}
	delete(q.seen, deliveryID)
	for i := range q.entries {
		if q.entries[i].Delivery.ID == deliveryID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			break
		}
	}
	return true
}

// RemoveAlert removes every queued notification for the given alert ID,
// not just the head. Returns the number of entries removed.
func (q *Queue) RemoveAlert(alertID string) int {
	removed := 0
	kept := q.entries[:0]
	for _, n := range q.entries {
		if n.Alert.ID == alertID {
			delete(q.seen, n.Delivery.ID)
			removed++
			continue
		}
		kept = append(kept, n)
	}
	q.entries = kept
	return removed
}

// Clear drops all queued notifications.
func (q *Queue) Clear() {
	q.entries = nil
	q.seen = make(map[string]struct{})
}

// Snapshot returns a copy of the queued notifications in order.
func (q *Queue) Snapshot() []model.Notification {
	out := make([]model.Notification, len(q.entries))
	copy(out, q.entries)
	return out
}
