package telemetry_test

import (
	"sync"
	"testing"

	"github.com/crosslist/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewProfiler_Disabled(t *testing.T) {
	cfg := telemetry.ProfilerConfig{
		Enabled:         false,
		ServerAddress:   "http://localhost:4040",
		ApplicationName: "crosslist-test",
	}

	profiler, err := telemetry.NewProfiler(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, profiler)

	assert.False(t, profiler.IsEnabled())
	assert.Equal(t, "crosslist-test", profiler.GetConfig().ApplicationName)
	assert.NoError(t, profiler.Stop())
}

func TestNewProfiler_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		cfg     telemetry.ProfilerConfig
		wantErr string
	}{
		{
			name: "no server address",
			cfg: telemetry.ProfilerConfig{
				Enabled:         true,
				ApplicationName: "crosslist-test",
			},
			wantErr: "server address is required",
		},
		{
			name: "no application name",
			cfg: telemetry.ProfilerConfig{
				Enabled:       true,
				ServerAddress: "http://localhost:4040",
			},
			wantErr: "application name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiler, err := telemetry.NewProfiler(tt.cfg, zaptest.NewLogger(t))
			require.Error(t, err)
			assert.Nil(t, profiler)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewProfiler_Integration(t *testing.T) {
	// needs a reachable Pyroscope server
	if testing.Short() {
		t.Skip("requires a running Pyroscope server")
	}

	cfg := telemetry.ProfilerConfig{
		Enabled:           true,
		ServerAddress:     "http://localhost:4040",
		ApplicationName:   "crosslist-test",
		ProfileCPU:        true,
		ProfileAllocSpace: true,
		ProfileInuseSpace: true,
		ProfileGoroutines: true,
	}

	profiler, err := telemetry.NewProfiler(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, profiler.IsEnabled())
	assert.NoError(t, profiler.Stop())
}

func TestProfiler_StopIdempotent(t *testing.T) {
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{Enabled: false}, zaptest.NewLogger(t))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.NoError(t, profiler.Stop())
	}
}

func TestProfiler_StopConcurrent(t *testing.T) {
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{Enabled: false}, zaptest.NewLogger(t))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = profiler.Stop()
		}()
	}
	wg.Wait()
}

func TestProfiler_RuntimeProfileSettings(t *testing.T) {
	// mutex and block settings only touch the runtime when enabled,
	// here we verify the config round-trips intact
	cfg := telemetry.ProfilerConfig{
		Enabled:              false,
		ServerAddress:        "http://localhost:4040",
		ApplicationName:      "crosslist-test",
		ProfileMutexCount:    true,
		ProfileMutexDuration: true,
		MutexProfileFraction: 10,
		ProfileBlockCount:    true,
		ProfileBlockDuration: true,
		BlockProfileRate:     10,
		DisableGCRuns:        true,
		BasicAuthUser:        "grafana",
		BasicAuthPassword:    "secret",
	}

	profiler, err := telemetry.NewProfiler(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	got := profiler.GetConfig()
	assert.Equal(t, 10, got.MutexProfileFraction)
	assert.Equal(t, 10, got.BlockProfileRate)
	assert.True(t, got.DisableGCRuns)
	assert.Equal(t, "grafana", got.BasicAuthUser)

	assert.NoError(t, profiler.Stop())
}
