package simulation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcoioli/proyecto-programacion3-grupo12/core/ambulance"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/events"
	"github.com/marcoioli/proyecto-programacion3-grupo12/core/model"
	"github.com/marcoioli/proyecto-programacion3-grupo12/internal/eventbus"
)

var quick = ambulance.DwellRange{MinMS: 1, MaxMS: 2}

func fastMachine(t *testing.T, bus eventbus.EventBus) *ambulance.Machine {
	t.Helper()
	m := ambulance.New(ambulance.Config{
		ID:          "amb-sim",
		HomeVisit:   quick,
		Transport:   quick,
		Maintenance: quick,
		ReturnTrip:  quick,
		Seed:        3,
	}, bus, nil)
	t.Cleanup(m.Close)
	return m
}

func fastConfig() Config {
	return Config{
		ClientDelay:       ambulance.DwellRange{MinMS: 0, MaxMS: 2},
		MaintenanceDelay:  ambulance.DwellRange{MinMS: 60000, MaxMS: 60000},
		GracefulTimeoutMS: 2000,
		ForcedTimeoutMS:   2000,
		Seed:              11,
	}
}

// countingDispatcher counts granted requests per kind.
type countingDispatcher struct {
	Dispatcher
	homeVisits  atomic.Int64
	transports  atomic.Int64
	maintenance atomic.Int64
}

func (c *countingDispatcher) RequestHomeVisit(ctx context.Context, who string) error {
	err := c.Dispatcher.RequestHomeVisit(ctx, who)
	if err == nil {
		c.homeVisits.Add(1)
	}
	return err
}

func (c *countingDispatcher) RequestTransport(ctx context.Context, who string) error {
	err := c.Dispatcher.RequestTransport(ctx, who)
	if err == nil {
		c.transports.Add(1)
	}
	return err
}

func (c *countingDispatcher) RequestMaintenance(ctx context.Context, who string) error {
	err := c.Dispatcher.RequestMaintenance(ctx, who)
	if err == nil {
		c.maintenance.Add(1)
	}
	return err
}

func TestRunProducesOneBusyTransitionPerRequest(t *testing.T) {
	bus := eventbus.NewTyped[eventbus.Event](4096)
	defer bus.Close()
	sub := bus.Subscribe()

	const clients, perClient = 4, 6
	d := &countingDispatcher{Dispatcher: fastMachine(t, bus)}
	o, err := NewOrchestrator(fastConfig(), d, bus, nil)
	require.NoError(t, err)

	require.NoError(t, o.Start(perClient, clients))
	assert.True(t, o.IsActive())
	assert.Equal(t, PhaseRunning, o.Phase())

	select {
	case <-o.ClientsDone():
	case <-time.After(10 * time.Second):
		t.Fatal("clients did not finish")
	}
	rep, err := o.Stop()
	require.NoError(t, err)
	assert.True(t, rep.Clean)
	assert.False(t, rep.Forced)
	assert.Equal(t, clients*perClient, rep.ClientRequests)
	assert.Equal(t, rep.ClientRequests+rep.MaintenanceVisits, rep.Requests)
	assert.Equal(t, rep.Requests, rep.Wait.Count)
	assert.Equal(t, int64(clients*perClient), d.homeVisits.Load()+d.transports.Load())
	assert.Equal(t, rep.ByKind[model.EventHomeVisit]+rep.ByKind[model.EventTransport], rep.ClientRequests)

	busy := 0
	deadline := time.After(time.Second)
	for busy < clients*perClient {
		select {
		case ev := <-sub:
			if sc, ok := ev.(events.StateChangeEvent); ok && sc.To.Busy() && sc.Cause != model.EventMaintenance {
				busy++
			}
		case <-deadline:
			t.Fatalf("observed %d busy transitions, want %d", busy, clients*perClient)
		}
	}
	assert.Zero(t, bus.Dropped())
}

func TestStartWhileRunningIsRejected(t *testing.T) {
	o, err := NewOrchestrator(fastConfig(), fastMachine(t, nil), nil, nil)
	require.NoError(t, err)

	require.NoError(t, o.Start(1, 1))
	first := o.Status().RunID

	err = o.Start(3, 3)
	require.ErrorIs(t, err, ErrNotIdle)
	st := o.Status()
	assert.Equal(t, first, st.RunID)
	assert.Len(t, st.Clients, 1)

	_, err = o.Stop()
	require.NoError(t, err)
}

func TestStopWhileIdleIsNoop(t *testing.T) {
	o, err := NewOrchestrator(fastConfig(), fastMachine(t, nil), nil, nil)
	require.NoError(t, err)

	rep, err := o.Stop()
	require.ErrorIs(t, err, ErrNotRunning)
	assert.Empty(t, rep.RunID)
	assert.Equal(t, PhaseIdle, o.Phase())
	assert.Nil(t, o.Status().Last)
}

func TestStartValidatesArguments(t *testing.T) {
	o, err := NewOrchestrator(fastConfig(), fastMachine(t, nil), nil, nil)
	require.NoError(t, err)

	require.ErrorIs(t, o.Start(1, 0), ErrInvalidConfig)
	require.ErrorIs(t, o.StartWith(nil, 2), ErrInvalidConfig)
	require.ErrorIs(t, o.StartWith([]string{"a"}, 0), ErrInvalidConfig)
	assert.Equal(t, PhaseIdle, o.Phase())
}

func TestNewOrchestratorRequiresDispatcher(t *testing.T) {
	_, err := NewOrchestrator(fastConfig(), nil, nil, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestStopInterruptsSleepingWorkers(t *testing.T) {
	cfg := fastConfig()
	cfg.ClientDelay = ambulance.DwellRange{MinMS: 60000, MaxMS: 60000}
	o, err := NewOrchestrator(cfg, fastMachine(t, nil), nil, nil)
	require.NoError(t, err)

	require.NoError(t, o.Start(5, 3))
	start := time.Now()
	rep, err := o.Stop()
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, rep.Clean)
	assert.Zero(t, rep.Requests)
	assert.False(t, o.IsActive())
	assert.Equal(t, PhaseIdle, o.Phase())
	require.NotNil(t, o.Status().Last)
	assert.Equal(t, rep.RunID, o.Status().Last.RunID)
}

// blockingDispatcher never grants; requests wait on the context only.
type blockingDispatcher struct{}

func (blockingDispatcher) wait(ctx context.Context) error {
	<-ctx.Done()
	return ambulance.ErrRequestCancelled
}
func (b blockingDispatcher) RequestHomeVisit(ctx context.Context, _ string) error {
	return b.wait(ctx)
}
func (b blockingDispatcher) RequestTransport(ctx context.Context, _ string) error {
	return b.wait(ctx)
}
func (b blockingDispatcher) RequestMaintenance(ctx context.Context, _ string) error {
	return b.wait(ctx)
}

func TestStopForcesBlockedRequests(t *testing.T) {
	cfg := fastConfig()
	cfg.ClientDelay = ambulance.DwellRange{MinMS: 0, MaxMS: 1}
	cfg.GracefulTimeoutMS = 20
	cfg.ForcedTimeoutMS = 1000
	o, err := NewOrchestrator(cfg, blockingDispatcher{}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, o.Start(1, 2))
	time.Sleep(20 * time.Millisecond)

	rep, err := o.Stop()
	require.NoError(t, err)
	assert.False(t, rep.Clean)
	assert.True(t, rep.Forced)
	assert.Equal(t, 2, rep.Cancelled)
	assert.Equal(t, PhaseIdle, o.Phase())
}

// stuckDispatcher ignores cancellation until released.
type stuckDispatcher struct {
	release chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (s *stuckDispatcher) wait() error {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return errors.New("released")
}
func (s *stuckDispatcher) RequestHomeVisit(context.Context, string) error   { return s.wait() }
func (s *stuckDispatcher) RequestTransport(context.Context, string) error   { return s.wait() }
func (s *stuckDispatcher) RequestMaintenance(context.Context, string) error { return s.wait() }

func TestStopReportsShutdownTimeout(t *testing.T) {
	cfg := fastConfig()
	cfg.GracefulTimeoutMS = 10
	cfg.ForcedTimeoutMS = 10
	d := &stuckDispatcher{release: make(chan struct{}), entered: make(chan struct{})}
	defer close(d.release)

	o, err := NewOrchestrator(cfg, d, nil, nil)
	require.NoError(t, err)

	require.NoError(t, o.Start(1, 1))
	<-d.entered

	start := time.Now()
	rep, err := o.Stop()
	require.ErrorIs(t, err, ErrShutdownTimeout)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, rep.Forced)
	assert.False(t, rep.Clean)

	// The orchestrator is reusable even though the stuck worker lingers.
	assert.Equal(t, PhaseIdle, o.Phase())
	require.NoError(t, o.StartWith([]string{"again"}, 1))
}

func TestMaintenanceWorkerFollowsActiveFlag(t *testing.T) {
	var active atomic.Bool
	active.Store(true)
	flag := flagFunc(active.Load)

	d := &countingDispatcher{Dispatcher: fastMachine(t, nil)}
	w := NewMaintenanceWorker("mech", ambulance.DwellRange{MinMS: 1, MaxMS: 1}, d, flag, 1, nil)

	done := make(chan WorkerStats, 1)
	go func() { done <- w.Run(context.Background(), context.Background()) }()

	require.Eventually(t, func() bool { return d.maintenance.Load() >= 2 }, 5*time.Second, time.Millisecond)
	active.Store(false)

	select {
	case st := <-done:
		assert.GreaterOrEqual(t, st.Granted, 2)
		assert.Equal(t, st.Granted, st.ByKind[model.EventMaintenance])
	case <-time.After(5 * time.Second):
		t.Fatal("maintenance worker ignored the active flag")
	}
}

type flagFunc func() bool

func (f flagFunc) IsActive() bool { return f() }

func TestClientWorkerStopsOnSoftCancel(t *testing.T) {
	soft, cancel := context.WithCancel(context.Background())
	cancel()
	w := NewClientWorker("c1", 3, quick, blockingDispatcher{}, 1, nil)
	st := w.Run(soft, context.Background())
	assert.Zero(t, st.Granted)
	assert.Zero(t, st.Cancelled)
	assert.Equal(t, "c1", w.Name())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "running", PhaseRunning.String())
	assert.Equal(t, "shutting_down", PhaseShuttingDown.String())
}

// grantingDispatcher grants every request at once.
type grantingDispatcher struct {
	clients     atomic.Int64
	maintenance atomic.Int64
}

func (g *grantingDispatcher) RequestHomeVisit(context.Context, string) error {
	g.clients.Add(1)
	return nil
}
func (g *grantingDispatcher) RequestTransport(context.Context, string) error {
	g.clients.Add(1)
	return nil
}
func (g *grantingDispatcher) RequestMaintenance(context.Context, string) error {
	g.maintenance.Add(1)
	return nil
}

func TestEveryRunHasAMaintenanceRequester(t *testing.T) {
	cfg := fastConfig()
	cfg.MaintenanceDelay = ambulance.DwellRange{MinMS: 1, MaxMS: 1}
	d := &grantingDispatcher{}
	o, err := NewOrchestrator(cfg, d, nil, nil)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		before := d.maintenance.Load()
		require.NoError(t, o.Start(1, 1))
		require.Eventually(t, func() bool { return d.maintenance.Load() > before },
			2*time.Second, time.Millisecond, "run %d issued no maintenance request", i)
		rep, err := o.Stop()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, rep.MaintenanceVisits, 1)
		assert.Equal(t, 1, rep.ClientRequests)
		assert.Equal(t, rep.ClientRequests+rep.MaintenanceVisits, rep.Requests)
	}
}
