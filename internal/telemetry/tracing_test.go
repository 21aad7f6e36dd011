package telemetry

import (
	"context"
	"testing"

	"github.com/Domenick1991/showbooking/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_NoEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TelemetryConfig{ServiceName: "showbooking"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
