package ambulance

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/events"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/model"
	"github.com/marcoioli/proyecto-programacion3-grupo12/internal/eventbus"
)

// manual returns a machine without trip timers: every leg ends on SignalReturn.
func manual(t *testing.T, bus eventbus.EventBus) *Machine {
	t.Helper()
	m := New(Config{ID: "amb-test"}, bus, nil)
	t.Cleanup(m.Close)
	return m
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, time.Millisecond)
}

func TestNewStartsAvailable(t *testing.T) {
	m := manual(t, nil)
	assert.Equal(t, model.StateAvailable, m.State())
	assert.Equal(t, "Available", m.StateName())
	assert.Equal(t, "amb-test", m.ID())

	d := New(Config{}, nil, nil)
	defer d.Close()
	assert.Equal(t, "ambulance-1", d.ID())
}

func TestRequestsFromAvailable(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		call func(*Machine) error
		want model.VehicleState
	}{
		{"home visit", func(m *Machine) error { return m.RequestHomeVisit(ctx, "c1") }, model.StateOnHomeVisit},
		{"transport", func(m *Machine) error { return m.RequestTransport(ctx, "c1") }, model.StateTransporting},
		{"maintenance", func(m *Machine) error { return m.RequestMaintenance(ctx, "mech") }, model.StateInMaintenance},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := manual(t, nil)
			require.NoError(t, c.call(m))
			assert.Equal(t, c.want, m.State())
		})
	}
}

func TestRequestRejectsReturnEvent(t *testing.T) {
	m := manual(t, nil)
	err := m.Request(context.Background(), model.EventReturn, "c1")
	require.Error(t, err)
	assert.Equal(t, model.StateAvailable, m.State())
}

func TestTwoReturnsCompleteTrip(t *testing.T) {
	ctx := context.Background()

	m := manual(t, nil)
	require.NoError(t, m.RequestHomeVisit(ctx, "c1"))
	assert.True(t, m.SignalReturn())
	assert.Equal(t, model.StateReturningEmpty, m.State())
	assert.True(t, m.SignalReturn())
	assert.Equal(t, model.StateAvailable, m.State())

	w := manual(t, nil)
	require.NoError(t, w.RequestMaintenance(ctx, "mech"))
	assert.True(t, w.SignalReturn())
	assert.Equal(t, model.StateReturningFromMaintenance, w.State())
	assert.True(t, w.SignalReturn())
	assert.Equal(t, model.StateAvailable, w.State())
}

func TestReturnWhileAvailableIsNoop(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	sub := bus.Subscribe()

	m := manual(t, bus)
	assert.False(t, m.SignalReturn())
	assert.Equal(t, model.StateAvailable, m.State())
	assert.Zero(t, m.Snapshot().Transitions)

	select {
	case ev := <-sub:
		t.Fatalf("unexpected event %#v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestReturningEmptyAcceptsRedirection(t *testing.T) {
	ctx := context.Background()
	m := manual(t, nil)
	require.NoError(t, m.RequestTransport(ctx, "c1"))
	require.True(t, m.SignalReturn())
	require.Equal(t, model.StateReturningEmpty, m.State())

	require.NoError(t, m.RequestHomeVisit(ctx, "c2"))
	assert.Equal(t, model.StateOnHomeVisit, m.State())
}

func TestReturningEmptyRefusesMaintenance(t *testing.T) {
	m := manual(t, nil)
	require.NoError(t, m.RequestHomeVisit(context.Background(), "c1"))
	require.True(t, m.SignalReturn())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := m.RequestMaintenance(ctx, "mech")
	require.ErrorIs(t, err, ErrRequestCancelled)
	assert.Equal(t, model.StateReturningEmpty, m.State())
}

func TestReturningFromMaintenanceRefusesPatients(t *testing.T) {
	m := manual(t, nil)
	require.NoError(t, m.RequestMaintenance(context.Background(), "mech"))
	require.True(t, m.SignalReturn())
	require.Equal(t, model.StateReturningFromMaintenance, m.State())

	done := make(chan error, 1)
	go func() { done <- m.RequestHomeVisit(context.Background(), "c1") }()

	waitUntil(t, func() bool { return m.Waiting() == 1 })
	assert.Equal(t, model.StateReturningFromMaintenance, m.State())

	require.True(t, m.SignalReturn())
	require.NoError(t, <-done)
	assert.Equal(t, model.StateOnHomeVisit, m.State())
}

func TestBlockedRequestGrantedAfterReturn(t *testing.T) {
	m := manual(t, nil)
	require.NoError(t, m.RequestTransport(context.Background(), "c1"))

	done := make(chan error, 1)
	go func() { done <- m.RequestMaintenance(context.Background(), "mech") }()
	waitUntil(t, func() bool { return m.Waiting() == 1 })

	// ReturningEmpty does not satisfy maintenance, so the waiter keeps blocking.
	require.True(t, m.SignalReturn())
	select {
	case err := <-done:
		t.Fatalf("maintenance granted in %s: %v", m.State(), err)
	case <-time.After(20 * time.Millisecond):
	}

	require.True(t, m.SignalReturn())
	require.NoError(t, <-done)
	assert.Equal(t, model.StateInMaintenance, m.State())
	assert.Zero(t, m.Waiting())
}

func TestOneWaiterPerAvailability(t *testing.T) {
	m := manual(t, nil)
	require.NoError(t, m.RequestHomeVisit(context.Background(), "first"))

	const waiters = 2
	var granted atomic.Int32
	results := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			err := m.RequestMaintenance(context.Background(), "mech")
			if err == nil {
				granted.Add(1)
			}
			results <- err
		}()
	}
	waitUntil(t, func() bool { return m.Waiting() == waiters })

	m.SignalReturn()
	m.SignalReturn()
	require.NoError(t, <-results)
	assert.Equal(t, int32(1), granted.Load())
	assert.Equal(t, model.StateInMaintenance, m.State())
	assert.Equal(t, 1, m.Waiting())

	m.SignalReturn()
	m.SignalReturn()
	require.NoError(t, <-results)
	assert.Equal(t, int32(2), granted.Load())
}

func TestCancelledRequestLeavesStateUnchanged(t *testing.T) {
	m := manual(t, nil)
	require.NoError(t, m.RequestHomeVisit(context.Background(), "c1"))
	before := m.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.RequestTransport(ctx, "c2") }()
	waitUntil(t, func() bool { return m.Waiting() == 1 })
	cancel()

	err := <-done
	require.ErrorIs(t, err, ErrRequestCancelled)
	require.ErrorIs(t, err, context.Canceled)
	after := m.Snapshot()
	assert.Equal(t, before.State, after.State)
	assert.Equal(t, before.Transitions, after.Transitions)
	assert.Zero(t, after.Waiting)
}

func TestRequestWithDoneContextFailsFast(t *testing.T) {
	m := manual(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.RequestHomeVisit(ctx, "c1")
	require.ErrorIs(t, err, ErrRequestCancelled)
	assert.Equal(t, model.StateAvailable, m.State())
}

func TestDeadlineErrorIsWrapped(t *testing.T) {
	m := manual(t, nil)
	require.NoError(t, m.RequestMaintenance(context.Background(), "mech"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := m.RequestHomeVisit(ctx, "c1")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.True(t, errors.Is(err, ErrRequestCancelled))
}

func TestCloseReleasesWaiters(t *testing.T) {
	m := New(Config{ID: "amb"}, nil, nil)
	require.NoError(t, m.RequestTransport(context.Background(), "c1"))

	done := make(chan error, 1)
	go func() { done <- m.RequestHomeVisit(context.Background(), "c2") }()
	waitUntil(t, func() bool { return m.Waiting() == 1 })

	m.Close()
	m.Close()
	require.ErrorIs(t, <-done, ErrClosed)
	require.ErrorIs(t, m.RequestHomeVisit(context.Background(), "c3"), ErrClosed)
	assert.False(t, m.SignalReturn())
	assert.Equal(t, model.StateTransporting, m.State())
}

func TestTripTimersCompleteLegs(t *testing.T) {
	quick := DwellRange{MinMS: 1, MaxMS: 3}
	m := New(Config{ID: "amb", HomeVisit: quick, ReturnTrip: quick, Seed: 7}, nil, nil)
	defer m.Close()

	require.NoError(t, m.RequestHomeVisit(context.Background(), "c1"))
	waitUntil(t, func() bool { return m.State() == model.StateAvailable })
	assert.Equal(t, uint64(3), m.Snapshot().Transitions)
}

func TestStaleTimerIsDiscarded(t *testing.T) {
	ResetMetrics(prometheus.NewRegistry())

	slow := DwellRange{MinMS: 40, MaxMS: 40}
	m := New(Config{ID: "amb", Transport: slow, Seed: 1}, nil, nil)
	defer m.Close()

	require.NoError(t, m.RequestTransport(context.Background(), "c1"))
	// The manual signal moves past the generation the timer was armed for.
	require.True(t, m.SignalReturn())
	require.True(t, m.SignalReturn())
	require.Equal(t, model.StateAvailable, m.State())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, model.StateAvailable, m.State())
	assert.Equal(t, uint64(3), m.Snapshot().Transitions)
}

func TestTransitionsPublishedInOrder(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	sub := bus.Subscribe()

	m := manual(t, bus)
	require.NoError(t, m.RequestHomeVisit(context.Background(), "c1"))
	m.SignalReturn()
	m.SignalReturn()

	var changes []events.StateChangeEvent
	timeout := time.After(time.Second)
	for len(changes) < 3 {
		select {
		case ev := <-sub:
			if sc, ok := ev.(events.StateChangeEvent); ok {
				changes = append(changes, sc)
			}
		case <-timeout:
			t.Fatalf("got %d state changes", len(changes))
		}
	}
	want := []model.VehicleState{model.StateOnHomeVisit, model.StateReturningEmpty, model.StateAvailable}
	for i, sc := range changes {
		assert.Equal(t, want[i], sc.To)
		assert.Equal(t, uint64(i+1), sc.Seq)
		assert.Equal(t, "amb-test", sc.VehicleID)
	}
	assert.Equal(t, "c1", changes[0].Requester)
	assert.Equal(t, RequesterSignal, changes[1].Requester)
	assert.Equal(t, model.EventReturn, changes[2].Cause)
}

func TestConcurrentClientsNeverShareTheAmbulance(t *testing.T) {
	m := manual(t, nil)
	const clients = 8
	const rounds = 5

	var inUse atomic.Int32
	var overlap atomic.Bool
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				if !assert.NoError(t, m.RequestTransport(context.Background(), "client")) {
					return
				}
				if inUse.Add(1) > 1 {
					overlap.Store(true)
				}
				time.Sleep(time.Millisecond)
				inUse.Add(-1)
				// ReturningEmpty lets the next client redirect the ambulance.
				m.SignalReturn()
			}
		}()
	}
	wg.Wait()

	assert.False(t, overlap.Load())
	assert.Equal(t, uint64(2*clients*rounds), m.Snapshot().Transitions)
	assert.Equal(t, model.StateReturningEmpty, m.State())
}

func TestMetricsTrackRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	ResetMetrics(reg)

	m := manual(t, nil)
	require.NoError(t, m.RequestHomeVisit(context.Background(), "c1"))
	m.SignalReturn()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_ = m.RequestMaintenance(ctx, "mech")

	assert.Equal(t, 1.0, testutil.ToFloat64(transitionsTotal.WithLabelValues("Available", "OnHomeVisit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(transitionsTotal.WithLabelValues("OnHomeVisit", "ReturningEmpty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(cancelledRequests.WithLabelValues("maintenance")))
	assert.Equal(t, 0.0, testutil.ToFloat64(waitingRequests.WithLabelValues("maintenance")))
	assert.Equal(t, 1, testutil.CollectAndCount(requestWait))
}

func TestFillTimingsAndManual(t *testing.T) {
	c := Config{Transport: DwellRange{MinMS: 1, MaxMS: 2}}
	c.FillTimings()
	assert.Equal(t, DwellRange{MinMS: 1, MaxMS: 2}, c.Transport)
	assert.Equal(t, DefaultTimings().HomeVisit, c.HomeVisit)
	assert.True(t, c.ReturnTrip.Enabled())

	c.Manual = true
	for _, s := range model.States {
		assert.False(t, c.dwellFor(s).Enabled(), s.String())
	}
	m := Config{Manual: true}
	m.FillTimings()
	assert.False(t, m.HomeVisit.Enabled())
}

func TestRaceTransportAndHomeVisit(t *testing.T) {
	m := manual(t, nil)

	type outcome struct {
		kind model.Event
		err  error
	}
	results := make(chan outcome, 2)
	start := make(chan struct{})
	for _, k := range []model.Event{model.EventTransport, model.EventHomeVisit} {
		go func(k model.Event) {
			<-start
			results <- outcome{k, m.Request(context.Background(), k, k.String())}
		}(k)
	}
	close(start)

	first := <-results
	require.NoError(t, first.err)
	waitUntil(t, func() bool { return m.Waiting() == 1 })
	select {
	case second := <-results:
		t.Fatalf("%s proceeded while %s", second.kind, m.State())
	default:
	}

	// The first return already lands in ReturningEmpty, which accepts both.
	require.True(t, m.SignalReturn())
	second := <-results
	require.NoError(t, second.err)
	assert.NotEqual(t, first.kind, second.kind)
	assert.Zero(t, m.Waiting())
}

func TestConcurrentObserversSeeValidStates(t *testing.T) {
	m := manual(t, nil)
	valid := make(map[string]bool)
	for _, s := range model.States {
		valid[s.String()] = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var bad atomic.Int32
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				if !valid[m.StateName()] {
					bad.Add(1)
				}
			}
		}()
	}
	for i := 0; i < 200; i++ {
		require.NoError(t, m.RequestHomeVisit(context.Background(), "c"))
		m.SignalReturn()
		m.SignalReturn()
	}
	cancel()
	wg.Wait()
	assert.Zero(t, bad.Load())
	assert.Equal(t, model.StateAvailable, m.State())
}
