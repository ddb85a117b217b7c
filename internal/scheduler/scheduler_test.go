package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func collectTicks(ch <-chan struct{}, window time.Duration) int {
	deadline := time.After(window)
	count := 0
	for {
		select {
		case <-ch:
			count++
		case <-deadline:
			return count
		}
	}
}

func TestPeriodicTicks(t *testing.T) {
	t.Parallel()

	s := New(20*time.Millisecond, true, zap.NewNop())
	defer s.Stop()

	sub := s.Subscribe()
	got := collectTicks(sub, 110*time.Millisecond)
	require.GreaterOrEqual(t, got, 3)
}

func TestDisableFiresExactlyOneTick(t *testing.T) {
	t.Parallel()

	s := New(time.Hour, true, zap.NewNop())
	defer s.Stop()

	sub := s.Subscribe()
	s.SetEnabled(false)

	select {
	case <-sub:
	case <-time.After(time.Second):
		t.Fatal("expected the single disable tick")
	}

	// Parked: no further ticks arrive.
	select {
	case <-sub:
		t.Fatal("unexpected tick while disabled")
	case <-time.After(80 * time.Millisecond):
	}
}

func TestReEnableResumesTicking(t *testing.T) {
	t.Parallel()

	s := New(20*time.Millisecond, false, zap.NewNop())
	defer s.Stop()

	sub := s.Subscribe()
	s.SetEnabled(true)

	select {
	case <-sub:
	case <-time.After(time.Second):
		t.Fatal("expected ticking to resume")
	}
}

func TestForceRefreshOutOfBand(t *testing.T) {
	t.Parallel()

	s := New(time.Hour, true, zap.NewNop())
	defer s.Stop()

	sub := s.Subscribe()
	s.ForceRefresh()

	select {
	case <-sub:
	case <-time.After(time.Second):
		t.Fatal("expected forced tick")
	}
}

func TestSetRefreshIntervalTakesEffect(t *testing.T) {
	t.Parallel()

	s := New(time.Hour, true, zap.NewNop())
	defer s.Stop()

	sub := s.Subscribe()
	s.SetRefreshInterval(15 * time.Millisecond)

	select {
	case <-sub:
	case <-time.After(time.Second):
		t.Fatal("expected tick after interval reconfiguration")
	}
}

func TestMulticastReachesEverySubscriber(t *testing.T) {
	t.Parallel()

	s := New(time.Hour, true, zap.NewNop())
	defer s.Stop()

	first := s.Subscribe()
	second := s.Subscribe()
	s.ForceRefresh()

	for _, sub := range []<-chan struct{}{first, second} {
		select {
		case <-sub:
		case <-time.After(time.Second):
			t.Fatal("subscriber missed the tick")
		}
	}
}

func TestSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	s := New(time.Hour, true, zap.NewNop())
	defer s.Stop()

	slow := s.Subscribe() // never drained past its buffer
	fast := s.Subscribe()

	s.ForceRefresh()
	s.ForceRefresh()
	s.ForceRefresh()

	require.Equal(t, 1, collectTicks(slow, 50*time.Millisecond))

	select {
	case <-fast:
	case <-time.After(time.Second):
		t.Fatal("fast subscriber starved by slow one")
	}
}

func TestStopEndsTicking(t *testing.T) {
	t.Parallel()

	s := New(10*time.Millisecond, true, zap.NewNop())
	sub := s.Subscribe()
	s.Stop()
	// Stop is idempotent.
	s.Stop()

	time.Sleep(30 * time.Millisecond)
	drained := collectTicks(sub, 40*time.Millisecond)
	require.LessOrEqual(t, drained, 1)
}
