// Package fancontrol drives a fan from the SoC temperature through a PID loop.
package fancontrol

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Output is what the loop drives: a PWM channel, or an on/off GPIO line.
type Output interface {
	SetDutyCycle(percent int) error
	SetEnabled(v bool) error
}

var readTempFn = ReadTempC

var startupFullDutyDuration = 5 * time.Second
var startupMinDutyDuration = 10 * time.Second

type Config struct {
	// TempTargetC is the temperature the loop regulates to, in degrees C.
	TempTargetC float64
	// DutyMin is the lowest non-zero duty (0-100) that keeps the fan spinning.
	DutyMin        int
	UpdateInterval time.Duration
	ThermalPath    string
}

type Snapshot struct {
	TempValid bool    `json:"temp_valid"`
	TempC     float64 `json:"temp_c"`
	Duty      int     `json:"duty"`

	LastUpdateAt time.Time `json:"last_update_utc,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}

type Service struct {
	cfg Config
	out Output
	log logrus.FieldLogger

	mu   sync.RWMutex
	snap Snapshot

	wg sync.WaitGroup

	stopOnce  sync.Once
	closeOnce sync.Once
	stopCh    chan struct{}
}

func New(cfg Config, out Output, log logrus.FieldLogger) *Service {
	if cfg.TempTargetC == 0 {
		cfg.TempTargetC = 50.0
	}
	if cfg.UpdateInterval <= 0 {
		cfg.UpdateInterval = 5 * time.Second
	}
	if cfg.ThermalPath == "" {
		cfg.ThermalPath = DefaultThermalPath
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		cfg:    cfg,
		out:    out,
		log:    log.WithField("component", "fancontrol"),
		stopCh: make(chan struct{}),
	}
}

func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Start enables the output and runs the startup test and control loop in the
// background. It returns without waiting for either.
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.out == nil {
		return fmt.Errorf("fancontrol: no output")
	}
	if err := s.out.SetEnabled(true); err != nil {
		s.setErr(err)
		return fmt.Errorf("fancontrol: enable output: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.startupAndRun(ctx)
	}()

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.stopCh:
		}
	}()
	return nil
}

// Close stops the loop and turns the fan off. Safe to call more than once.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()

	s.closeOnce.Do(func() {
		if err := s.out.SetDutyCycle(0); err != nil {
			s.log.WithError(err).Warn("fan off failed")
			return
		}
		s.setState(func(sn *Snapshot) { sn.Duty = 0 })
	})
}

func (s *Service) startupAndRun(ctx context.Context) {
	// Full duty, then minimum duty, so a dead fan shows up at boot.
	if !s.setDuty(100) || !s.wait(ctx, startupFullDutyDuration) {
		return
	}
	if !s.setDuty(s.cfg.DutyMin) || !s.wait(ctx, startupMinDutyDuration) {
		return
	}
	s.runLoop(ctx)
}

func (s *Service) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	case <-s.stopCh:
		return false
	}
}

func (s *Service) runLoop(ctx context.Context) {
	p := newPID(0.2, 0.2, 0.1)
	p.limits(-100, 0)
	p.setTarget(s.cfg.TempTargetC)

	t := time.NewTicker(s.cfg.UpdateInterval)
	defer t.Stop()

	var lastOut float64
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-t.C:
			tempC, err := readTempFn(s.cfg.ThermalPath)
			if err != nil {
				s.setState(func(sn *Snapshot) {
					sn.TempValid = false
					sn.LastError = err.Error()
				})
				s.log.WithError(err).Warn("temperature unavailable, fan to full")
				s.setDuty(100)
				continue
			}

			out := -p.step(tempC, s.cfg.UpdateInterval)
			// Small deadband: stay at idle until the controller asks for >5%.
			if out > 5.0 || lastOut != 0 {
				lastOut = out
			} else {
				lastOut = 0
				out = 1
			}
			duty := mapDuty(out, s.cfg.DutyMin)
			if s.setDuty(duty) {
				s.setState(func(sn *Snapshot) {
					sn.TempValid = true
					sn.TempC = tempC
					sn.LastError = ""
				})
			}
		}
	}
}

// mapDuty scales a controller output in [0,100] into [dutyMin,100]; zero stays zero.
func mapDuty(out float64, dutyMin int) int {
	lo := clamp(float64(dutyMin), 0, 100)
	out = clamp(out, 0, 100)
	if out > 0 {
		out = lo + out*(100.0-lo)/100.0
	}
	return int(math.Round(clamp(out, 0, 100)))
}

func (s *Service) setDuty(d int) bool {
	if err := s.out.SetDutyCycle(d); err != nil {
		s.setErr(fmt.Errorf("fancontrol: set duty %d%%: %w", d, err))
		s.log.WithError(err).WithField("duty", d).Warn("set duty failed")
		return false
	}
	s.setState(func(sn *Snapshot) { sn.Duty = d })
	return true
}

func (s *Service) setErr(err error) {
	s.setState(func(sn *Snapshot) { sn.LastError = err.Error() })
}

func (s *Service) setState(update func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update(&s.snap)
	s.snap.LastUpdateAt = time.Now().UTC()
}
