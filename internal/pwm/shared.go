package pwm

import "sync"

// Shared serializes access to a Channel so that several goroutines in one
// process (a control loop and HTTP handlers, say) act as a single writer.
type Shared struct {
	mu sync.Mutex
	ch *Channel
}

func NewShared(ch *Channel) *Shared {
	return &Shared{ch: ch}
}

func (s *Shared) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.State()
}

func (s *Shared) SetFrequency(hz float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.SetFrequency(hz)
}

func (s *Shared) SetDutyCycle(percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.SetDutyCycle(percent)
}

func (s *Shared) SetEnabled(v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.SetEnabled(v)
}

func (s *Shared) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch.Cleanup()
}
