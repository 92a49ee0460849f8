package sensor

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/hrvmon/internal/ring"
)

// Sampler plays the role of the timer interrupt: every period it reads one
// sample and pushes it into the acquisition queue. A failed read skips the
// sample; a full queue overwrites its oldest entry.
type Sampler struct {
	sensor   Sensor
	queue    *ring.Ring[uint16]
	period   time.Duration
	observer Observer

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

func NewSampler(s Sensor, queue *ring.Ring[uint16], period time.Duration, observer Observer) *Sampler {
	if observer == nil {
		observer = noopObserver{}
	}

	return &Sampler{
		sensor:   s,
		queue:    queue,
		period:   period,
		observer: observer,
	}
}

// Tick performs one sampling callback.
func (s *Sampler) Tick() {
	v, err := s.sensor.ReadRawSample()
	if err != nil {
		s.observer.AcquisitionFault()
		return
	}

	if !s.queue.Push(v) {
		s.observer.QueueOverflow()
	}
	s.observer.SampleAcquired()
}

// Start begins periodic sampling. It is a no-op when already running.
func (s *Sampler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stopped = make(chan struct{})

	go s.run(ctx, s.stopped)
}

func (s *Sampler) run(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Stop halts sampling and waits for the sampling goroutine to exit.
func (s *Sampler) Stop() {
	s.mu.Lock()
	cancel, stopped := s.cancel, s.stopped
	s.cancel, s.stopped = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-stopped
}

func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cancel != nil
}
