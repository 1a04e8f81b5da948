// Package listener owns the HTTP listening socket for the notification
// relay service. Binding the port and serving traffic on it are split into
// separate steps so that bind failures (the port is taken, the address is
// invalid) report synchronously during startup, while failures of an
// already-running listener surface asynchronously on Errors.
package listener

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	"notifyapp/internal/config"
	"notifyapp/internal/observability"
	contextutils "notifyapp/internal/utils"
)

// Listener serves an http.Handler on a TCP port with graceful drain
type Listener struct {
	cfg    *config.Config
	logger *observability.Logger
	server *http.Server

	mu       sync.Mutex
	ln       net.Listener
	serveErr chan error
	closed   bool
}

// New creates a listener for the given handler. The socket is not opened
// until Bind is called.
func New(cfg *config.Config, logger *observability.Logger, handler http.Handler) *Listener {
	return &Listener{
		cfg:    cfg,
		logger: logger,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       config.DefaultHTTPTimeout,
			WriteTimeout:      config.DefaultHTTPTimeout,
			IdleTimeout:       2 * config.DefaultHTTPTimeout,
		},
		serveErr: make(chan error, 1),
	}
}

// Bind opens the TCP socket. It settles exactly once: either the socket is
// listening or an error is returned. A port already held by another process
// is reported as a bind failure.
func (l *Listener) Bind(ctx context.Context) (err error) {
	_, span := observability.TraceLifecycleFunction(ctx, "Bind")
	defer observability.FinishSpan(span, &err)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ln != nil {
		return contextutils.NewAppError(
			contextutils.ErrorCodeBindFailure,
			contextutils.SeverityError,
			"listener is already bound",
			l.ln.Addr().String(),
		)
	}

	addr := net.JoinHostPort(l.cfg.Server.Host, l.cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			l.logger.Error(ctx, "Port is already in use", err, map[string]interface{}{"addr": addr})
		}
		return contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeBindFailure,
			contextutils.SeverityFatal,
			"failed to bind listening socket",
			addr,
			err,
		)
	}

	l.ln = ln
	l.logger.Info(ctx, "Listening socket bound", map[string]interface{}{"addr": ln.Addr().String()})
	return nil
}

// Serve starts accepting connections on the bound socket. It returns
// immediately; serve failures are delivered on Errors. Calling Serve before
// Bind is a programming error and is reported on Errors.
func (l *Listener) Serve(ctx context.Context) {
	l.mu.Lock()
	ln := l.ln
	l.mu.Unlock()

	if ln == nil {
		l.serveErr <- contextutils.NewAppError(
			contextutils.ErrorCodeBindFailure,
			contextutils.SeverityFatal,
			"serve called before bind",
			"",
		)
		return
	}

	go func() {
		err := l.server.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.serveErr <- contextutils.WrapError(err, "listener failed")
		}
	}()

	l.logger.Info(ctx, "Listener accepting connections", map[string]interface{}{"addr": ln.Addr().String()})
}

// Errors delivers failures of an already-running listener. A graceful Close
// never produces an error here.
func (l *Listener) Errors() <-chan error {
	return l.serveErr
}

// Addr returns the bound address, or nil before Bind
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Close drains in-flight requests and closes the socket. Safe to call more
// than once and before Bind.
func (l *Listener) Close(ctx context.Context) (err error) {
	_, span := observability.TraceLifecycleFunction(ctx, "Close")
	defer observability.FinishSpan(span, &err)

	l.mu.Lock()
	if l.closed || l.ln == nil {
		l.closed = true
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	drainCtx, cancel := context.WithTimeout(ctx, config.ListenerDrainTimeout)
	defer cancel()

	if err := l.server.Shutdown(drainCtx); err != nil {
		return contextutils.WrapError(err, "failed to drain listener")
	}

	l.logger.Info(ctx, "Listener closed")
	return nil
}
