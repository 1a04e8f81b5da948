// Package lifecycle sequences the startup and teardown of the notification
// relay service. Startup runs in a fixed order (structured logging, then
// persistence, then the messaging transport, then the listening socket) and
// teardown runs in strict reverse order. Termination signals, intercepted
// faults, and listener failures all funnel into a single shutdown execution.
package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"

	"notifyapp/internal/config"
	"notifyapp/internal/database"
	"notifyapp/internal/handlers"
	"notifyapp/internal/listener"
	"notifyapp/internal/mailer"
	"notifyapp/internal/observability"
	contextutils "notifyapp/internal/utils"
)

// Orchestrator owns the lifecycle of every long-lived resource in the
// process. Construct it with New, call Start once, then Wait. Exit codes:
// 0 when teardown released everything cleanly, 1 otherwise.
type Orchestrator struct {
	cfg    *config.Config
	logger *observability.Logger

	persistence Component
	transport   Component
	listener    ListenerHandle

	mu    sync.Mutex
	state State
	cause ShutdownCause

	signals chan os.Signal
	faults  chan error
	done    chan struct{}
	exit    func(int)

	shutdownFuncs []func(context.Context) error
}

// New creates an orchestrator for the given configuration. Until Start
// upgrades it, logging goes through the fallback console logger.
func New(cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		logger:  observability.Fallback(),
		state:   StateNotStarted,
		signals: make(chan os.Signal, 1),
		faults:  make(chan error, 1),
		done:    make(chan struct{}),
		exit:    os.Exit,
	}
}

// State returns the current lifecycle state
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Ready reports whether the service is accepting traffic
func (o *Orchestrator) Ready() bool {
	return o.State() == StateRunning
}

// Done is closed once teardown has finished
func (o *Orchestrator) Done() <-chan struct{} {
	return o.done
}

// transition moves from one state to another if the current state matches.
// This is the only place state changes, which keeps transitions monotonic.
func (o *Orchestrator) transition(from, to State) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != from {
		return false
	}
	o.state = to
	return true
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Start brings the service up in order. A second call fails with a
// duplicate-start error and performs no side effects. Any initializer
// failure releases the resources acquired so far, in reverse order, and
// exits with code 1.
func (o *Orchestrator) Start(ctx context.Context) error {
	if !o.transition(StateNotStarted, StateStarting) {
		err := contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeDuplicateStart,
			contextutils.SeverityError,
			"startup may only be performed once",
			o.State().String(),
			contextutils.ErrDuplicateStart,
		)
		o.logger.Error(ctx, "Rejected duplicate startup request", err, map[string]interface{}{
			"state": o.State().String(),
		})
		return err
	}

	// Structured logging comes up first so every later step reports
	// through the full sink rather than the fallback console logger.
	tp, mp, logger, err := observability.SetupObservability(&o.cfg.OpenTelemetry, "")
	if err != nil {
		o.logger.Error(ctx, "Failed to initialize observability", err)
		o.setState(StateFailed)
		o.exit(1)
		return contextutils.WrapError(err, "observability initialization failed")
	}
	if o.cfg.OpenTelemetry.EnableLogging && logger != nil {
		o.logger = logger
		o.shutdownFuncs = append(o.shutdownFuncs, func(context.Context) error {
			// Sync can fail on stderr, which is fine
			_ = logger.Sync()
			return nil
		})
	}
	if sd, ok := tp.(interface {
		Shutdown(context.Context) error
	}); ok {
		o.shutdownFuncs = append(o.shutdownFuncs, sd.Shutdown)
	}
	if mp != nil {
		o.shutdownFuncs = append(o.shutdownFuncs, mp.Shutdown)
	}

	if o.persistence == nil {
		o.persistence = newPersistenceComponent(database.NewManager(o.logger), o.cfg.Database)
	}
	if o.transport == nil {
		o.transport = mailer.New(o.cfg, o.logger)
	}
	if o.listener == nil {
		router := handlers.NewRouter(o.cfg, o.logger, o)
		o.listener = listener.New(o.cfg, o.logger, router)
	}

	o.logger.Info(ctx, "Starting up", map[string]interface{}{"port": o.cfg.Server.Port})

	if err := o.persistence.Startup(ctx); err != nil {
		o.logger.Error(ctx, "Persistence initialization failed", err)
		o.setState(StateFailed)
		o.exit(1)
		return contextutils.WrapError(err, "persistence initialization failed")
	}
	o.logger.Info(ctx, "Persistence initialized")

	if err := o.transport.Startup(ctx); err != nil {
		o.logger.Error(ctx, "Messaging transport initialization failed", err)
		o.releasePartial(ctx, false)
		o.setState(StateFailed)
		o.exit(1)
		return contextutils.WrapError(err, "messaging transport initialization failed")
	}
	o.logger.Info(ctx, "Messaging transport initialized")

	if err := o.listener.Bind(ctx); err != nil {
		o.logger.Error(ctx, "Failed to bind listening socket", err)
		o.releasePartial(ctx, true)
		o.setState(StateFailed)
		o.exit(1)
		return err
	}

	o.setState(StateRunning)
	o.listener.Serve(ctx)
	signal.Notify(o.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	o.logger.Info(ctx, "Service is running", map[string]interface{}{
		"addr":  o.listener.Addr().String(),
		"state": o.State().String(),
	})
	return nil
}

// releasePartial closes the resources a failed startup step left open, in
// reverse order. The database was opened first, so it is always closed last.
func (o *Orchestrator) releasePartial(ctx context.Context, transportUp bool) {
	if transportUp {
		if err := o.transport.Shutdown(ctx); err != nil {
			o.logger.Error(ctx, "Failed to close messaging transport during startup rollback", err)
		}
	}
	if err := o.persistence.Shutdown(ctx); err != nil {
		o.logger.Error(ctx, "Failed to close database during startup rollback", err)
	}
}

// Wait blocks until a termination signal, an intercepted fault, or a
// listener failure triggers teardown, then runs it. It returns only in
// tests, where the exit function is injected.
func (o *Orchestrator) Wait() {
	select {
	case sig := <-o.signals:
		o.logger.Info(context.Background(), "Received termination signal", map[string]interface{}{"signal": sig.String()})
		o.Shutdown(SignalCause(sig))
	case err := <-o.faults:
		o.Shutdown(FaultCause(err))
	case err := <-o.listener.Errors():
		o.logger.Error(context.Background(), "Listener failed while running", err)
		o.Shutdown(ListenerFailureCause(err))
	case <-o.done:
	}
}

// ReportFault funnels an intercepted fault into the shutdown path. The
// first fault wins; later reports are logged and dropped.
func (o *Orchestrator) ReportFault(err error) {
	if err == nil {
		return
	}
	o.logger.Error(context.Background(), "Fault intercepted", err, map[string]interface{}{
		"stack": string(debug.Stack()),
	})

	select {
	case o.faults <- err:
	default:
	}
}

// Recover is a deferred helper converting a panic into a fault report. If
// teardown has not run yet it also triggers it, so a panic escaping the
// main goroutine still releases resources in order.
func (o *Orchestrator) Recover() {
	if r := recover(); r != nil {
		err := contextutils.ErrorWithContextf("panic: %v", r)
		o.ReportFault(err)
		o.Shutdown(FaultCause(err))
	}
}

// Shutdown tears everything down in strict reverse startup order. Only the
// first caller executes it; concurrent and repeated triggers collapse into
// that one execution. Calling it before Start or after completion is a
// no-op.
func (o *Orchestrator) Shutdown(cause ShutdownCause) {
	o.mu.Lock()
	if o.state != StateRunning && o.state != StateStarting {
		o.mu.Unlock()
		return
	}
	o.state = StateShuttingDown
	o.cause = cause
	o.mu.Unlock()

	ctx := context.Background()
	o.logger.Info(ctx, "Shutting down", map[string]interface{}{"cause": cause.String()})

	failed := false

	if o.listener != nil {
		if err := o.listener.Close(ctx); err != nil {
			o.logger.Error(ctx, "Failed to close listener", contextutils.WrapError(err, "teardown"))
			failed = true
		} else {
			o.logger.Info(ctx, "Listener stopped")
		}
	}

	if o.transport != nil {
		if err := o.transport.Shutdown(ctx); err != nil {
			o.logger.Error(ctx, "Failed to close messaging transport", err)
			failed = true
		} else {
			o.logger.Info(ctx, "Messaging transport closed")
		}
	}

	if o.persistence != nil {
		if err := o.persistence.Shutdown(ctx); err != nil {
			o.logger.Error(ctx, "Failed to close database", err)
			failed = true
		} else {
			o.logger.Info(ctx, "Database closed")
		}
	}

	sdCtx, cancel := context.WithTimeout(ctx, config.ObservabilityShutdownTimeout)
	defer cancel()
	for i := len(o.shutdownFuncs) - 1; i >= 0; i-- {
		if err := o.shutdownFuncs[i](sdCtx); err != nil {
			o.logger.Error(ctx, "Observability shutdown failed", err)
			failed = true
		}
	}

	if failed {
		o.setState(StateFailed)
		o.logger.Error(ctx, "Shutdown finished with errors", contextutils.ErrTeardownFailure, map[string]interface{}{
			"cause": cause.String(),
		})
		close(o.done)
		o.exit(1)
		return
	}

	o.setState(StateStopped)
	o.logger.Info(ctx, "Shutdown complete", map[string]interface{}{"cause": cause.String()})
	close(o.done)
	o.exit(0)
}
