package mailer

import (
	"context"
	"testing"

	"notifyapp/internal/config"
	"notifyapp/internal/observability"
	contextutils "notifyapp/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(enabled bool) *config.Config {
	cfg := &config.Config{}
	cfg.Email.Enabled = enabled
	if enabled {
		cfg.Email.SMTP.Host = "smtp.example.com"
		cfg.Email.SMTP.Port = 587
		cfg.Email.SMTP.FromAddress = "noreply@example.com"
		cfg.Email.SMTP.FromName = "Notify"
	}
	return cfg
}

func TestNew_DisabledHasNoDialer(t *testing.T) {
	svc := New(testConfig(false), observability.Fallback())
	assert.False(t, svc.IsEnabled())
	assert.False(t, svc.IsReady())
}

func TestNew_EnabledWithoutHostHasNoDialer(t *testing.T) {
	cfg := &config.Config{}
	cfg.Email.Enabled = true

	svc := New(cfg, observability.Fallback())
	assert.False(t, svc.IsEnabled())
}

func TestStartup_DisabledIsNoOp(t *testing.T) {
	svc := New(testConfig(false), observability.Fallback())

	err := svc.Startup(context.Background())
	require.NoError(t, err)
	assert.True(t, svc.IsReady())
}

func TestStartup_UnreachableServerFails(t *testing.T) {
	cfg := testConfig(true)
	cfg.Email.SMTP.Host = "127.0.0.1"
	cfg.Email.SMTP.Port = 1 // nothing listens here

	svc := New(cfg, observability.Fallback())
	err := svc.Startup(context.Background())
	require.Error(t, err)
	assert.Equal(t, contextutils.ErrorCodeTransportUnavailable, contextutils.GetErrorCode(err))
	assert.False(t, svc.IsReady())
}

func TestSend_DisabledDropsMessage(t *testing.T) {
	svc := New(testConfig(false), observability.Fallback())
	require.NoError(t, svc.Startup(context.Background()))

	err := svc.Send(context.Background(), "user@example.com", "hi", "body")
	assert.NoError(t, err)
}

func TestSend_BeforeStartupFails(t *testing.T) {
	svc := New(testConfig(true), observability.Fallback())

	err := svc.Send(context.Background(), "user@example.com", "hi", "body")
	require.Error(t, err)
	assert.True(t, contextutils.IsError(err, contextutils.ErrTransportUnavailable))
}

func TestShutdown_Idempotent(t *testing.T) {
	svc := New(testConfig(false), observability.Fallback())
	require.NoError(t, svc.Startup(context.Background()))

	require.NoError(t, svc.Shutdown(context.Background()))
	require.NoError(t, svc.Shutdown(context.Background()))
	assert.False(t, svc.IsReady())
}
