package lifecycle

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"syscall"
	"testing"
	"time"

	"notifyapp/internal/config"
	contextutils "notifyapp/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventLog records startup and teardown steps across stubs so tests can
// assert ordering
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	copy(out, l.events)
	return out
}

type stubComponent struct {
	name        string
	log         *eventLog
	startupErr  error
	shutdownErr error

	mu        sync.Mutex
	startups  int
	shutdowns int
	ready     bool
}

func (s *stubComponent) Startup(ctx context.Context) error {
	s.mu.Lock()
	s.startups++
	s.mu.Unlock()
	if s.log != nil {
		s.log.add(s.name + ":startup")
	}
	if s.startupErr != nil {
		return s.startupErr
	}
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
	return nil
}

func (s *stubComponent) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shutdowns++
	s.ready = false
	s.mu.Unlock()
	if s.log != nil {
		s.log.add(s.name + ":shutdown")
	}
	return s.shutdownErr
}

func (s *stubComponent) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *stubComponent) counts() (startups, shutdowns int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startups, s.shutdowns
}

type stubListener struct {
	log      *eventLog
	bindErr  error
	closeErr error
	errs     chan error

	mu     sync.Mutex
	binds  int
	serves int
	closes int
}

func newStubListener(log *eventLog) *stubListener {
	return &stubListener{log: log, errs: make(chan error, 1)}
}

func (s *stubListener) Bind(ctx context.Context) error {
	s.mu.Lock()
	s.binds++
	s.mu.Unlock()
	if s.log != nil {
		s.log.add("listener:bind")
	}
	return s.bindErr
}

func (s *stubListener) Serve(ctx context.Context) {
	s.mu.Lock()
	s.serves++
	s.mu.Unlock()
}

func (s *stubListener) Errors() <-chan error {
	return s.errs
}

func (s *stubListener) Addr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 3000}
}

func (s *stubListener) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	if s.log != nil {
		s.log.add("listener:close")
	}
	return s.closeErr
}

func (s *stubListener) counts() (binds, serves, closes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.binds, s.serves, s.closes
}

// exitRecorder captures exit codes instead of terminating the test binary
type exitRecorder struct {
	mu    sync.Mutex
	codes []int
}

func (e *exitRecorder) exit(code int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.codes = append(e.codes, code)
}

func (e *exitRecorder) recorded() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]int, len(e.codes))
	copy(out, e.codes)
	return out
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "3000"
	return cfg
}

type fixture struct {
	orch        *Orchestrator
	persistence *stubComponent
	transport   *stubComponent
	listener    *stubListener
	exits       *exitRecorder
	log         *eventLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := &eventLog{}
	f := &fixture{
		persistence: &stubComponent{name: "persistence", log: log},
		transport:   &stubComponent{name: "transport", log: log},
		listener:    newStubListener(log),
		exits:       &exitRecorder{},
		log:         log,
	}

	f.orch = New(testConfig())
	f.orch.persistence = f.persistence
	f.orch.transport = f.transport
	f.orch.listener = f.listener
	f.orch.exit = f.exits.exit
	return f
}

func TestStart_BringsEverythingUpInOrder(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.orch.Start(context.Background()))

	assert.Equal(t, StateRunning, f.orch.State())
	assert.True(t, f.orch.Ready())
	assert.Equal(t, []string{"persistence:startup", "transport:startup", "listener:bind"}, f.log.list())

	_, serves, _ := f.listener.counts()
	assert.Equal(t, 1, serves)
	assert.Empty(t, f.exits.recorded())
}

func TestStart_SecondCallRejectedWithoutSideEffects(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Start(context.Background()))

	err := f.orch.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeDuplicateStart, contextutils.GetErrorCode(err))
	assert.True(t, errors.Is(err, contextutils.ErrDuplicateStart))

	// still running, nothing re-initialized, no second listener
	assert.Equal(t, StateRunning, f.orch.State())
	startups, _ := f.persistence.counts()
	assert.Equal(t, 1, startups)
	binds, _, _ := f.listener.counts()
	assert.Equal(t, 1, binds)
	assert.Empty(t, f.exits.recorded())
}

func TestStart_PersistenceFailureStopsSequence(t *testing.T) {
	f := newFixture(t)
	f.persistence.startupErr = contextutils.ErrDatabaseConnection

	err := f.orch.Start(context.Background())
	require.Error(t, err)

	assert.Equal(t, StateFailed, f.orch.State())
	assert.Equal(t, []int{1}, f.exits.recorded())

	// nothing past the failed step ran
	startups, _ := f.transport.counts()
	assert.Equal(t, 0, startups)
	binds, _, _ := f.listener.counts()
	assert.Equal(t, 0, binds)
}

func TestStart_TransportFailureClosesDatabaseFirst(t *testing.T) {
	f := newFixture(t)
	f.transport.startupErr = contextutils.ErrTransportUnavailable

	err := f.orch.Start(context.Background())
	require.Error(t, err)

	assert.Equal(t, StateFailed, f.orch.State())
	assert.Equal(t, []int{1}, f.exits.recorded())

	// the open database handle must have been released before exit
	_, shutdowns := f.persistence.counts()
	assert.Equal(t, 1, shutdowns)
	binds, _, _ := f.listener.counts()
	assert.Equal(t, 0, binds)
}

func TestStart_BindFailureReleasesTransportAndDatabase(t *testing.T) {
	f := newFixture(t)
	f.listener.bindErr = contextutils.NewAppError(
		contextutils.ErrorCodeBindFailure,
		contextutils.SeverityFatal,
		"failed to bind listening socket",
		"127.0.0.1:3000",
	)

	err := f.orch.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeBindFailure, contextutils.GetErrorCode(err))

	assert.Equal(t, StateFailed, f.orch.State())
	assert.False(t, f.orch.Ready())
	assert.Equal(t, []int{1}, f.exits.recorded())

	// rollback runs in reverse order: transport before database
	assert.Equal(t, []string{
		"persistence:startup",
		"transport:startup",
		"listener:bind",
		"transport:shutdown",
		"persistence:shutdown",
	}, f.log.list())

	_, serves, _ := f.listener.counts()
	assert.Equal(t, 0, serves)
}

func TestShutdown_BeforeStartIsNoOp(t *testing.T) {
	f := newFixture(t)

	f.orch.Shutdown(RequestedCause())

	assert.Equal(t, StateNotStarted, f.orch.State())
	assert.Empty(t, f.exits.recorded())
	_, shutdowns := f.persistence.counts()
	assert.Equal(t, 0, shutdowns)
}

func TestShutdown_ReverseOrderAndExitZero(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Start(context.Background()))

	f.orch.Shutdown(RequestedCause())

	assert.Equal(t, StateStopped, f.orch.State())
	assert.Equal(t, []int{0}, f.exits.recorded())
	assert.Equal(t, []string{
		"persistence:startup",
		"transport:startup",
		"listener:bind",
		"listener:close",
		"transport:shutdown",
		"persistence:shutdown",
	}, f.log.list())
}

func TestShutdown_AfterCompletionIsNoOp(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Start(context.Background()))

	f.orch.Shutdown(RequestedCause())
	f.orch.Shutdown(RequestedCause())

	assert.Equal(t, []int{0}, f.exits.recorded())
	_, _, closes := f.listener.counts()
	assert.Equal(t, 1, closes)
}

func TestShutdown_ConcurrentTriggersCollapse(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Start(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.orch.Shutdown(RequestedCause())
		}()
	}
	wg.Wait()

	assert.Equal(t, []int{0}, f.exits.recorded())
	_, _, closes := f.listener.counts()
	assert.Equal(t, 1, closes)
	_, shutdowns := f.persistence.counts()
	assert.Equal(t, 1, shutdowns)
}

func TestShutdown_ListenerFailureStillClosesDatabase(t *testing.T) {
	f := newFixture(t)
	f.listener.closeErr = errors.New("drain timed out")
	require.NoError(t, f.orch.Start(context.Background()))

	f.orch.Shutdown(RequestedCause())

	assert.Equal(t, StateFailed, f.orch.State())
	assert.Equal(t, []int{1}, f.exits.recorded())

	// teardown continues past the failed step
	_, transportShutdowns := f.transport.counts()
	assert.Equal(t, 1, transportShutdowns)
	_, dbShutdowns := f.persistence.counts()
	assert.Equal(t, 1, dbShutdowns)
}

func TestWait_SignalTriggersOrderedTeardown(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Start(context.Background()))

	go func() {
		f.orch.signals <- syscall.SIGTERM
	}()

	waitDone := make(chan struct{})
	go func() {
		f.orch.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after the termination signal")
	}

	assert.Equal(t, StateStopped, f.orch.State())
	assert.Equal(t, []int{0}, f.exits.recorded())
	assert.Equal(t, "signal", f.orch.cause.Trigger)
}

func TestWait_FaultTriggersTeardown(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Start(context.Background()))

	waitDone := make(chan struct{})
	go func() {
		f.orch.Wait()
		close(waitDone)
	}()

	f.orch.ReportFault(errors.New("worker exploded"))

	select {
	case <-waitDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after the fault")
	}

	assert.Equal(t, StateStopped, f.orch.State())
	assert.Equal(t, []int{0}, f.exits.recorded())
	assert.Equal(t, "fault", f.orch.cause.Trigger)
	assert.EqualError(t, f.orch.cause.Err, "worker exploded")
}

func TestWait_ListenerErrorTriggersTeardown(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Start(context.Background()))

	waitDone := make(chan struct{})
	go func() {
		f.orch.Wait()
		close(waitDone)
	}()

	f.listener.errs <- errors.New("accept loop failed")

	select {
	case <-waitDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after the listener failure")
	}

	assert.Equal(t, StateStopped, f.orch.State())
	assert.Equal(t, "listener_failure", f.orch.cause.Trigger)
	assert.Equal(t, []int{0}, f.exits.recorded())
}

func TestReportFault_FirstFaultWins(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.orch.Start(context.Background()))

	f.orch.ReportFault(errors.New("first"))
	f.orch.ReportFault(errors.New("second"))

	f.orch.Wait()

	assert.EqualError(t, f.orch.cause.Err, "first")
	assert.Equal(t, []int{0}, f.exits.recorded())
}

func TestReportFault_NilIsIgnored(t *testing.T) {
	f := newFixture(t)

	f.orch.ReportFault(nil)

	select {
	case err := <-f.orch.faults:
		t.Fatalf("unexpected fault recorded: %v", err)
	default:
	}
}

func TestRecover_ConvertsPanicToFault(t *testing.T) {
	f := newFixture(t)

	func() {
		defer f.orch.Recover()
		panic("boom")
	}()

	select {
	case err := <-f.orch.faults:
		assert.Contains(t, err.Error(), "boom")
	case <-time.After(time.Second):
		t.Fatal("expected the panic to be reported as a fault")
	}
}

func TestStart_RealListenerServesProbes(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = "0" // let the kernel pick a free port

	exits := &exitRecorder{}
	orch := New(cfg)
	orch.persistence = &stubComponent{name: "persistence"}
	orch.transport = &stubComponent{name: "transport"}
	orch.exit = exits.exit

	require.NoError(t, orch.Start(context.Background()))

	addr := orch.listener.Addr().String()
	resp, err := http.Get("http://" + addr + "/ready")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	orch.Shutdown(RequestedCause())
	assert.Equal(t, []int{0}, exits.recorded())

	// the port must be released
	_, err = http.Get("http://" + addr + "/ready")
	assert.Error(t, err)
}

func TestShutdownCauseString(t *testing.T) {
	assert.Equal(t, "signal (terminated)", SignalCause(syscall.SIGTERM).String())
	assert.Equal(t, "fault (boom)", FaultCause(errors.New("boom")).String())
	assert.Equal(t, "requested", RequestedCause().String())
}
