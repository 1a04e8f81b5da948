// Package mailer implements the outbound messaging transport for the
// notification relay service on top of SMTP.
package mailer

import (
	"context"
	"sync"

	"notifyapp/internal/config"
	"notifyapp/internal/observability"
	contextutils "notifyapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/mail.v2"
)

// Service wraps an SMTP dialer behind the lifecycle contract. Startup settles
// exactly once: it either verifies the transport is reachable or fails. When
// the transport is disabled by configuration every operation is a no-op.
type Service struct {
	cfg    *config.Config
	logger *observability.Logger
	dialer *mail.Dialer

	mu     sync.Mutex
	sender mail.SendCloser
	ready  bool
}

// New creates a new mailer service from configuration
func New(cfg *config.Config, logger *observability.Logger) *Service {
	var dialer *mail.Dialer
	if cfg.Email.Enabled && cfg.Email.SMTP.Host != "" {
		dialer = mail.NewDialer(
			cfg.Email.SMTP.Host,
			cfg.Email.SMTP.Port,
			cfg.Email.SMTP.Username,
			cfg.Email.SMTP.Password,
		)
	}

	return &Service{
		cfg:    cfg,
		logger: logger,
		dialer: dialer,
	}
}

// IsEnabled returns whether the transport is enabled by configuration
func (s *Service) IsEnabled() bool {
	return s.dialer != nil
}

// IsReady returns whether the transport finished Startup successfully
func (s *Service) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Startup verifies the SMTP server is reachable and keeps the connection for
// sending. A disabled transport starts successfully as a no-op.
func (s *Service) Startup(ctx context.Context) (err error) {
	_, span := observability.TraceTransportFunction(ctx, "Startup",
		attribute.Bool("transport.enabled", s.IsEnabled()),
	)
	defer observability.FinishSpan(span, &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dialer == nil {
		s.logger.Info(ctx, "Messaging transport disabled, skipping SMTP dial")
		s.ready = true
		return nil
	}

	sender, err := s.dialer.Dial()
	if err != nil {
		return contextutils.NewAppErrorWithCause(
			contextutils.ErrorCodeTransportUnavailable,
			contextutils.SeverityError,
			"failed to dial SMTP server",
			s.cfg.Email.SMTP.Host,
			err,
		)
	}

	s.sender = sender
	s.ready = true
	s.logger.Info(ctx, "Messaging transport connected", map[string]interface{}{
		"smtp_host": s.cfg.Email.SMTP.Host,
		"smtp_port": s.cfg.Email.SMTP.Port,
	})
	return nil
}

// Shutdown closes the SMTP connection. Safe to call more than once.
func (s *Service) Shutdown(ctx context.Context) (err error) {
	_, span := observability.TraceTransportFunction(ctx, "Shutdown")
	defer observability.FinishSpan(span, &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ready = false
	if s.sender == nil {
		return nil
	}

	sender := s.sender
	s.sender = nil
	if err := sender.Close(); err != nil {
		return contextutils.WrapError(err, "failed to close SMTP connection")
	}

	s.logger.Info(ctx, "Messaging transport closed")
	return nil
}

// Send relays a single message through the transport
func (s *Service) Send(ctx context.Context, to, subject, body string) (err error) {
	_, span := observability.TraceTransportFunction(ctx, "Send",
		attribute.String("mail.to", to),
	)
	defer observability.FinishSpan(span, &err)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dialer == nil {
		s.logger.Debug(ctx, "Messaging transport disabled, dropping message", map[string]interface{}{"to": to})
		return nil
	}
	if s.sender == nil {
		return contextutils.ErrTransportUnavailable
	}

	m := mail.NewMessage()
	m.SetAddressHeader("From", s.cfg.Email.SMTP.FromAddress, s.cfg.Email.SMTP.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := mail.Send(s.sender, m); err != nil {
		return contextutils.WrapError(err, "failed to send message")
	}
	return nil
}
