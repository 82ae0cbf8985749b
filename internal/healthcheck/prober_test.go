package healthcheck

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sentinelmux/sentinelmux/pkg/provider"
	"github.com/sentinelmux/sentinelmux/pkg/types"
)

type probeStub struct {
	name   string
	alive  atomic.Bool
	probes atomic.Int64
}

func (s *probeStub) Name() string                  { return s.name }
func (s *probeStub) Describe() provider.Descriptor { return provider.Descriptor{Name: s.name} }

func (s *probeStub) Complete(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	return &types.ChatResponse{Content: "ok"}, nil
}

func (s *probeStub) Probe(ctx context.Context) bool {
	s.probes.Add(1)
	return s.alive.Load()
}

func TestProberReportsVerdicts(t *testing.T) {
	up := &probeStub{name: "up"}
	up.alive.Store(true)
	down := &probeStub{name: "down"}

	p := New([]provider.Provider{up, down}, Config{Interval: 10 * time.Millisecond}, nil)
	p.Start()
	defer p.Stop()

	assert.Eventually(t, func() bool {
		return p.Available("up") && !p.Available("down")
	}, time.Second, 5*time.Millisecond)
}

func TestProberUnknownProviderCountsAsAvailable(t *testing.T) {
	p := New(nil, Config{}, nil)
	assert.True(t, p.Available("never-probed"))
}

func TestProberTracksRecovery(t *testing.T) {
	s := &probeStub{name: "flappy"}

	p := New([]provider.Provider{s}, Config{Interval: 10 * time.Millisecond}, nil)
	p.Start()
	defer p.Stop()

	assert.Eventually(t, func() bool { return !p.Available("flappy") }, time.Second, 5*time.Millisecond)

	s.alive.Store(true)
	assert.Eventually(t, func() bool { return p.Available("flappy") }, time.Second, 5*time.Millisecond)
}

func TestProberStopTerminatesLoop(t *testing.T) {
	s := &probeStub{name: "s"}
	s.alive.Store(true)

	p := New([]provider.Provider{s}, Config{Interval: 5 * time.Millisecond}, nil)
	p.Start()

	assert.Eventually(t, func() bool { return s.probes.Load() > 0 }, time.Second, time.Millisecond)
	p.Stop()

	count := s.probes.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, count, s.probes.Load(), "no probes after Stop")
}
