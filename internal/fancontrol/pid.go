package fancontrol

import "time"

// pid is a positional PID controller with output clamping.
// Not safe for concurrent use.
type pid struct {
	kp, ki, kd float64

	target float64
	lo, hi float64

	integral float64
	lastErr  float64
	primed   bool
}

func newPID(kp, ki, kd float64) *pid {
	return &pid{kp: kp, ki: ki, kd: kd, lo: -100, hi: 0}
}

func (p *pid) limits(lo, hi float64) {
	p.lo, p.hi = lo, hi
}

// setTarget changes the setpoint and forgets accumulated history.
func (p *pid) setTarget(v float64) {
	p.target = v
	p.integral = 0
	p.lastErr = 0
	p.primed = false
}

// step feeds one measurement taken dt after the previous one. A zero dt
// yields 0 and leaves the state untouched.
func (p *pid) step(measured float64, dt time.Duration) float64 {
	if dt <= 0 {
		return 0
	}
	sec := dt.Seconds()
	e := p.target - measured
	p.integral += e * sec

	var d float64
	if p.primed {
		d = (e - p.lastErr) / sec
	}
	p.lastErr = e
	p.primed = true

	return clamp(p.kp*e+p.ki*p.integral+p.kd*d, p.lo, p.hi)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
