package cmd

import (
	"blok-sync/config"
	"blok-sync/pkg/logger"
	"context"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// Stop runs after the signal context is canceled; the shutdown grace period
// must not inherit that cancellation, or in-flight requests get cut off.
func TestHTTPServerStopAfterSignalContextCanceled(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	appDep := &AppDependency{
		cfg:  &config.Config{},
		log:  &logger.Logger{Logger: zap.New(core)},
		echo: echo.New(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	server := NewHTTPServer(ctx, appDep, nil)
	require.NoError(t, server.Stop())

	var messages []string
	for _, entry := range logs.All() {
		messages = append(messages, entry.Message)
	}
	assert.Contains(t, messages, "HTTP server stopped successfully")
	assert.NotContains(t, messages, "Timeout while stopping HTTP server, forcing shutdown")
}
