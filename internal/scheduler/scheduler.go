package scheduler

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler is the process-wide refresh trigger: a single logical clock whose
// ticks are multicast to every subscriber. Consumers decide what a tick means;
// the scheduler only decides when. Slow consumers never block delivery to the
// others: each subscriber channel holds one pending tick and further ticks
// are dropped until it drains.
type Scheduler struct {
	mu       sync.Mutex
	subs     []chan struct{}
	interval time.Duration
	enabled  bool

	ctrl   chan command
	done   chan struct{}
	logger *zap.Logger

	stopOnce sync.Once
}

type commandKind int

const (
	cmdSetInterval commandKind = iota
	cmdSetEnabled
	cmdForce
)

type command struct {
	kind     commandKind
	interval time.Duration
	enabled  bool
}

// New creates a running scheduler. The first tick fires after one full
// interval; callers wanting an immediate refresh use ForceRefresh.
func New(interval time.Duration, enabled bool, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	s := &Scheduler{
		interval: interval,
		enabled:  enabled,
		ctrl:     make(chan command, 8),
		done:     make(chan struct{}),
		logger:   logger,
	}
	go s.run()
	return s
}

// Subscribe registers a consumer and returns its tick channel. Ticks are
// delivered to subscribers in registration order.
func (s *Scheduler) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// SetRefreshInterval reconfigures the tick period. The running wait restarts
// with the new period.
func (s *Scheduler) SetRefreshInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.send(command{kind: cmdSetInterval, interval: interval})
}

// SetEnabled toggles periodic ticking. Disabling fires exactly one immediate
// tick and then parks the clock, so no consumer is left waiting forever on a
// trigger that will never come.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.send(command{kind: cmdSetEnabled, enabled: enabled})
}

// ForceRefresh fires one out-of-band tick without disturbing the schedule.
func (s *Scheduler) ForceRefresh() {
	s.send(command{kind: cmdForce})
}

// Stop shuts the clock down. Subscriber channels stay open but receive no
// further ticks.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

func (s *Scheduler) send(cmd command) {
	select {
	case s.ctrl <- cmd:
	case <-s.done:
	}
}

func (s *Scheduler) run() {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	rearm := func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		if s.enabled {
			timer.Reset(s.interval)
		}
	}

	for {
		select {
		case <-timer.C:
			s.broadcast()
			if s.enabled {
				timer.Reset(s.interval)
			}
		case cmd := <-s.ctrl:
			switch cmd.kind {
			case cmdSetInterval:
				s.interval = cmd.interval
				rearm()
			case cmdSetEnabled:
				wasEnabled := s.enabled
				s.enabled = cmd.enabled
				if !cmd.enabled {
					// Degrade to a single immediate tick.
					s.broadcast()
					rearm()
				} else if !wasEnabled {
					rearm()
				}
			case cmdForce:
				s.broadcast()
			}
		case <-s.done:
			return
		}
	}
}

func (s *Scheduler) broadcast() {
	s.mu.Lock()
	subs := make([]chan struct{}, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
			if s.logger != nil {
				s.logger.Debug("refresh tick dropped, subscriber busy")
			}
		}
	}
}
