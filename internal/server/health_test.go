package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

type switchPinger struct {
	mu  sync.Mutex
	err error
}

func (p *switchPinger) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *switchPinger) set(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func analyzerStatus(t *testing.T, hs *health.Server) grpc_health_v1.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := hs.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: AnalyzerHealthService})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthReporter_Check(t *testing.T) {
	hs := health.NewServer()
	pinger := &switchPinger{}
	h := NewHealthReporter(hs, pinger, time.Minute, nil)

	assert.True(t, h.Check(context.Background()))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, analyzerStatus(t, hs))

	pinger.set(errors.New("connection refused"))
	assert.False(t, h.Check(context.Background()))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, analyzerStatus(t, hs))

	pinger.set(nil)
	assert.True(t, h.Check(context.Background()))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, analyzerStatus(t, hs))
}

func TestHealthReporter_Run_StopsWithContext(t *testing.T) {
	hs := health.NewServer()
	h := NewHealthReporter(hs, &switchPinger{}, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		resp, err := hs.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: AnalyzerHealthService})
		return err == nil && resp.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	// Shutdown flips every service to NOT_SERVING.
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, analyzerStatus(t, hs))
}
