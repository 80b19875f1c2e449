package notify

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/policywatch/internal/model"
	"github.com/nhle/policywatch/internal/queue"
	"github.com/nhle/policywatch/internal/sound"
	"github.com/nhle/policywatch/internal/suppress"
)

// DefaultPollInterval is the cadence of delivery polls. One extra poll
// fires immediately on activation.
const DefaultPollInterval = 5 * time.Minute

// fetchTimeout is the maximum time allowed for a single poll fetch.
const fetchTimeout = 30 * time.Second

// DeliverySource returns the signed-in user's currently-undelivered
// notifications.
type DeliverySource interface {
	Poll(ctx context.Context) ([]model.Notification, error)
}

// AckSink permanently marks a delivery as seen.
type AckSink interface {
	AckDelivery(ctx context.Context, deliveryID string) error
}

// PollResultMsg is a tea.Msg sent when a background poll completes.
// Generation identifies the session activation the poll belongs to;
// results from a previous activation are discarded unapplied.
type PollResultMsg struct {
	Generation    int
	Notifications []model.Notification
	Err           error
}

// AckResultMsg is a tea.Msg sent when an acknowledgement call completes.
// The queue entry is removed regardless of Err: a failed ack is not
// retried, so a notification the user already dismissed never resurfaces
// in the same session.
type AckResultMsg struct {
	DeliveryID string
	Err        error
}

// Session owns the notification core for one signed-in user: the pending
// queue, the poll loop, and the action handlers. It is created on sign-in
// and torn down on sign-out; the poller and queue live and die with it.
type Session struct {
	source   DeliverySource
	sink     AckSink
	suppress *suppress.Store
	queue    *queue.Queue
	gate     *sound.Gate
	log      *zap.Logger
	interval time.Duration

	resultCh chan PollResultMsg

	mu         gosync.Mutex
	active     bool
	generation int
	stopCh     chan struct{}

	// activationID tags log lines from the current activation.
	activationID string

	// acking tracks deliveries with an acknowledgement in flight.
	acking map[string]struct{}
}

// NewSession creates an inactive session. Interval <= 0 selects the
// default poll cadence.
func NewSession(
	source DeliverySource,
	sink AckSink,
	sup *suppress.Store,
	gate *sound.Gate,
	log *zap.Logger,
	interval time.Duration,
) *Session {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		source:   source,
		sink:     sink,
		suppress: sup,
		queue:    queue.New(),
		gate:     gate,
		log:      log,
		interval: interval,
		resultCh: make(chan PollResultMsg, 16),
		acking:   make(map[string]struct{}),
	}
}

// Activate starts the poll loop. The first poll fires immediately; the
// returned command subscribes to poll results. Calling Activate on an
// active session is a no-op.
func (s *Session) Activate() tea.Cmd {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = true
	s.generation++
	s.stopCh = make(chan struct{})
	s.activationID = uuid.NewString()
	gen := s.generation
	stop := s.stopCh
	s.mu.Unlock()

	s.log.Info("session activated",
		zap.String("activation_id", s.activationID),
		zap.Int("generation", gen),
	)

	go s.pollLoop(gen, stop)

	return s.waitForResult()
}

// Deactivate stops the poll loop and clears the queue. Poll results
// already in flight carry a stale generation and are discarded when they
// arrive. Idempotent.
func (s *Session) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return
	}
	s.active = false
	s.generation++
	close(s.stopCh)
	s.queue.Clear()
	s.acking = make(map[string]struct{})

	s.log.Info("session deactivated",
		zap.String("activation_id", s.activationID),
	)
}

// Active reports whether the session is currently polling.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Head returns the notification currently eligible for display, or nil.
func (s *Session) Head() *model.Notification {
	return s.queue.Head()
}

// Pending returns the number of queued notifications.
func (s *Session) Pending() int {
	return s.queue.Len()
}

// pollLoop fetches on a fixed cadence until stopped. The first fetch
// fires immediately.
func (s *Session) pollLoop(gen int, stop chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.fetch(gen)

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.fetch(gen)
		}
	}
}

// fetch performs one poll and publishes the result. Fetch failures are
// reported on the channel but never surface to the user; the next tick
// retries naturally.
func (s *Session) fetch(gen int) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	notifications, err := s.source.Poll(ctx)
	if err != nil {
		s.log.Debug("background poll failed", zap.Error(err))
		s.sendResult(PollResultMsg{Generation: gen, Err: err})
		return
	}

	s.sendResult(PollResultMsg{Generation: gen, Notifications: notifications})
}

// sendResult publishes a poll result without blocking the poll loop.
func (s *Session) sendResult(msg PollResultMsg) {
	select {
	case s.resultCh <- msg:
	default:
		// Channel full; drop rather than block the poller.
	}
}

// waitForResult returns a tea.Cmd that waits for the next poll result.
func (s *Session) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-s.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next poll
// result. Call after processing a PollResultMsg to keep listening.
func (s *Session) WaitForNextResult() tea.Cmd {
	return s.waitForResult()
}
