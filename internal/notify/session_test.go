package notify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/policywatch/internal/api"
	"github.com/nhle/policywatch/internal/model"
	"github.com/nhle/policywatch/internal/sound"
	"github.com/nhle/policywatch/internal/suppress"
	"github.com/nhle/policywatch/tests/testutil"
)

// fakeSource returns a scripted poll result.
type fakeSource struct {
	notifications []model.Notification
	err           error
}

func (f *fakeSource) Poll(ctx context.Context) ([]model.Notification, error) {
	return f.notifications, f.err
}

// fakeSink records acknowledged deliveries.
type fakeSink struct {
	acked []string
	err   error
}

func (f *fakeSink) AckDelivery(ctx context.Context, deliveryID string) error {
	f.acked = append(f.acked, deliveryID)
	return f.err
}

// fakeDirectory satisfies the suppression store's directory dependency.
type fakeDirectory struct {
	alerts []model.Alert
}

func (d *fakeDirectory) ListAlerts(ctx context.Context) ([]model.Alert, error) {
	return d.alerts, nil
}

func (d *fakeDirectory) UpdateAlert(ctx context.Context, alertID string, in api.AlertIn) (*model.Alert, error) {
	updated := model.Alert{
		ID:        alertID,
		SourceKey: in.SourceKey,
		Enabled:   in.Enabled,
		Muted:     in.Muted,
	}
	return &updated, nil
}

// countingPlayer counts chime playbacks.
type countingPlayer struct {
	plays int
}

func (p *countingPlayer) Play() error {
	p.plays++
	return nil
}

type sessionFixture struct {
	session *Session
	source  *fakeSource
	sink    *fakeSink
	player  *countingPlayer
	dir     *fakeDirectory
}

func newFixture(t *testing.T) *sessionFixture {
	t.Helper()

	kv := testutil.NewTestStore(t)
	dir := &fakeDirectory{}
	sup := suppress.New(kv, dir)

	source := &fakeSource{}
	sink := &fakeSink{}
	player := &countingPlayer{}
	gate := sound.NewGate(player, true)
	gate.Unlock()

	s := NewSession(source, sink, sup, gate, nil, time.Hour)
	cmd := s.Activate()
	require.NotNil(t, cmd)
	t.Cleanup(s.Deactivate)

	return &sessionFixture{session: s, source: source, sink: sink, player: player, dir: dir}
}

// poll applies a poll result carrying the current generation.
func (f *sessionFixture) poll(notifications ...model.Notification) int {
	return f.session.ApplyPoll(PollResultMsg{
		Generation:    f.session.generation,
		Notifications: notifications,
	})
}

func TestApplyPollAdmitsAndChimesOnce(t *testing.T) {
	f := newFixture(t)

	alertA := testutil.Alert("a", "federal_register")
	alertB := testutil.Alert("b", "whitehouse")

	admitted := f.poll(
		testutil.NotificationFor(alertA, "d1"),
		testutil.NotificationFor(alertB, "d2"),
	)

	assert.Equal(t, 2, admitted)
	assert.Equal(t, 2, f.session.Pending())
	assert.Equal(t, "d1", f.session.Head().Delivery.ID)
	assert.Equal(t, 1, f.player.plays, "one chime per admitting poll")
}

func TestApplyPollDedupsAcrossPolls(t *testing.T) {
	f := newFixture(t)

	alertA := testutil.Alert("a", "federal_register")
	n1 := testutil.NotificationFor(alertA, "d1")
	n2 := testutil.NotificationFor(alertA, "d2")

	assert.Equal(t, 2, f.poll(n1, n2))
	assert.Equal(t, 0, f.poll(n1, n2), "idempotent re-poll admits nothing")
	assert.Equal(t, 2, f.session.Pending())
	assert.Equal(t, 1, f.player.plays, "no chime when nothing was admitted")
}

func TestApplyPollDropsMalformed(t *testing.T) {
	f := newFixture(t)

	missingDelivery := model.Notification{Alert: model.Alert{ID: "a"}}
	missingAlert := model.Notification{Delivery: model.Delivery{ID: "d1"}}

	assert.Equal(t, 0, f.poll(missingDelivery, missingAlert))
	assert.Equal(t, 0, f.session.Pending())
	assert.Equal(t, 0, f.player.plays)
}

func TestApplyPollFiltersServerMuted(t *testing.T) {
	f := newFixture(t)

	muted := testutil.Alert("a", "federal_register")
	muted.Muted = true

	assert.Equal(t, 0, f.poll(testutil.NotificationFor(muted, "d1")))
	assert.Equal(t, 0, f.session.Pending())
}

func TestStaleGenerationIsDiscarded(t *testing.T) {
	f := newFixture(t)

	alertA := testutil.Alert("a", "federal_register")
	stale := PollResultMsg{
		Generation:    f.session.generation - 1,
		Notifications: []model.Notification{testutil.NotificationFor(alertA, "d1")},
	}

	assert.Equal(t, 0, f.session.ApplyPoll(stale))
	assert.Equal(t, 0, f.session.Pending())
}

func TestDeactivateClearsQueueAndBlocksLateResults(t *testing.T) {
	f := newFixture(t)

	alertA := testutil.Alert("a", "federal_register")
	require.Equal(t, 1, f.poll(testutil.NotificationFor(alertA, "d1")))

	gen := f.session.generation
	f.session.Deactivate()

	assert.Equal(t, 0, f.session.Pending())
	assert.False(t, f.session.Active())

	// A result from the now-dead activation must not be applied.
	late := PollResultMsg{
		Generation:    gen,
		Notifications: []model.Notification{testutil.NotificationFor(alertA, "d2")},
	}
	assert.Equal(t, 0, f.session.ApplyPoll(late))
	assert.Equal(t, 0, f.session.Pending())
}

func TestAcknowledgeRemovesEntryEvenOnFailure(t *testing.T) {
	f := newFixture(t)

	alertA := testutil.Alert("a", "federal_register")
	require.Equal(t, 1, f.poll(testutil.NotificationFor(alertA, "d1")))

	f.sink.err = fmt.Errorf("backend unavailable")
	cmd := f.session.Acknowledge("d1")
	require.NotNil(t, cmd)

	assert.Equal(t, AckInFlight, f.session.State("d1"))

	msg, ok := cmd().(AckResultMsg)
	require.True(t, ok)
	assert.Equal(t, "d1", msg.DeliveryID)
	assert.Error(t, msg.Err)

	f.session.ApplyAckResult(msg)
	assert.Equal(t, 0, f.session.Pending())
	assert.Equal(t, AckResolved, f.session.State("d1"))
	assert.Equal(t, []string{"d1"}, f.sink.acked)
}

func TestAcknowledgeIsSingleFlight(t *testing.T) {
	f := newFixture(t)

	alertA := testutil.Alert("a", "federal_register")
	require.Equal(t, 1, f.poll(testutil.NotificationFor(alertA, "d1")))

	require.NotNil(t, f.session.Acknowledge("d1"))
	assert.Nil(t, f.session.Acknowledge("d1"), "ack already in flight")
	assert.Nil(t, f.session.Acknowledge("d9"), "unknown delivery")
}

func TestCloseDismissesWholeAlert(t *testing.T) {
	f := newFixture(t)

	alertA := testutil.Alert("a", "federal_register")
	alertB := testutil.Alert("b", "whitehouse")
	require.Equal(t, 3, f.poll(
		testutil.NotificationFor(alertA, "d1"),
		testutil.NotificationFor(alertB, "d2"),
		testutil.NotificationFor(alertA, "d3"),
	))

	require.NoError(t, f.session.Close("a"))

	assert.Equal(t, 1, f.session.Pending())
	assert.Equal(t, "d2", f.session.Head().Delivery.ID)

	// While dismissed, re-polls for the alert are filtered.
	assert.Equal(t, 0, f.poll(testutil.NotificationFor(alertA, "d1")))
}

func TestMuteStripsQueueAndFiltersFuturePolls(t *testing.T) {
	f := newFixture(t)

	alertA := testutil.Alert("a", "federal_register")
	require.Equal(t, 2, f.poll(
		testutil.NotificationFor(alertA, "d1"),
		testutil.NotificationFor(alertA, "d2"),
	))

	require.NoError(t, f.session.Mute("a", time.Hour))

	assert.Equal(t, 0, f.session.Pending())
	assert.Equal(t, 0, f.poll(testutil.NotificationFor(alertA, "d3")))
}

func TestMuteAlwaysClearsQueue(t *testing.T) {
	f := newFixture(t)

	alertA := testutil.Alert("a", "federal_register")
	f.dir.alerts = []model.Alert{alertA}
	require.Equal(t, 2, f.poll(
		testutil.NotificationFor(alertA, "d1"),
		testutil.NotificationFor(alertA, "d2"),
	))

	updated, err := f.session.MuteAlways("a")
	require.NoError(t, err)
	assert.True(t, updated.Muted)
	assert.Equal(t, 0, f.session.Pending())

	// Future polls carry the server flag and are filtered regardless of
	// elapsed time.
	muted := alertA
	muted.Muted = true
	assert.Equal(t, 0, f.poll(testutil.NotificationFor(muted, "d3")))
}

func TestExampleRun(t *testing.T) {
	f := newFixture(t)

	alertA := testutil.Alert("A", "federal_register")
	alertB := testutil.Alert("B", "whitehouse")

	// Poll returns d1(A), d2(B); neither suppressed.
	require.Equal(t, 2, f.poll(
		testutil.NotificationFor(alertA, "d1"),
		testutil.NotificationFor(alertB, "d2"),
	))
	assert.Equal(t, "d1", f.session.Head().Delivery.ID)
	assert.Equal(t, 1, f.player.plays)

	// User mutes A for an hour.
	require.NoError(t, f.session.Mute("A", time.Hour))
	require.Equal(t, 1, f.session.Pending())
	assert.Equal(t, "d2", f.session.Head().Delivery.ID)

	// User acknowledges d2.
	cmd := f.session.Acknowledge("d2")
	require.NotNil(t, cmd)
	f.session.ApplyAckResult(cmd().(AckResultMsg))
	assert.Equal(t, 0, f.session.Pending())
	assert.Nil(t, f.session.Head())
}

func TestPollErrorAppliesNothing(t *testing.T) {
	f := newFixture(t)

	msg := PollResultMsg{
		Generation: f.session.generation,
		Err:        fmt.Errorf("network down"),
	}
	assert.Equal(t, 0, f.session.ApplyPoll(msg))
	assert.Equal(t, 0, f.session.Pending())
}
