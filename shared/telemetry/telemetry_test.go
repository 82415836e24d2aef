package telemetry

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(&Config{Enabled: false}, discardLogger())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_ExportsOnShutdown(t *testing.T) {
	t.Cleanup(func() { otel.SetMeterProvider(noop.NewMeterProvider()) })

	output := &bytes.Buffer{}
	shutdown, err := Setup(&Config{
		Enabled:     true,
		ServiceName: "booking-worker",
		Writer:      output,
	}, discardLogger())
	require.NoError(t, err)

	counter, err := otel.Meter("telemetry-test").Int64Counter("booking.test.events")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, output.String(), "booking.test.events")
	assert.Contains(t, output.String(), "booking-worker")
}
