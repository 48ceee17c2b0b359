// Package pwm controls one hardware PWM channel through the kernel's text
// attribute interface (export, unexport, npwm, period, duty_cycle, enable).
//
// Every timing change goes through a fixed write order so that duty_cycle
// never exceeds period on the hardware side, whichever parameter changed.
package pwm

import (
	"fmt"
	"math"
	"strconv"
)

const (
	DefaultFrequencyHz      = 2.0
	DefaultDutyCyclePercent = 50

	nanosPerSecond = 1e9
)

// Channel owns one exported (chip, channel) pair. It is not safe for
// concurrent use and assumes it is the only writer of the channel's
// attributes; see Shared for a serialized wrapper.
type Channel struct {
	store Store

	chip    int
	channel int

	frequencyHz      float64
	dutyCyclePercent int
	periodNS         uint64
	dutyCycleNS      uint64

	enabled  bool
	exported bool
}

// State is a point-in-time copy of a channel's parameters.
type State struct {
	Chip             int     `json:"chip"`
	Channel          int     `json:"channel"`
	FrequencyHz      float64 `json:"frequency_hz"`
	DutyCyclePercent int     `json:"duty_cycle_percent"`
	PeriodNS         uint64  `json:"period_ns"`
	DutyCycleNS      uint64  `json:"duty_cycle_ns"`
	Enabled          bool    `json:"enabled"`
}

// Open validates chip and channel against resolver, then unexports and
// re-exports the channel through store so no state from a previous owner
// survives. The channel starts disabled with DefaultFrequencyHz and
// DefaultDutyCyclePercent; timing reaches the hardware on the first setter call.
func Open(store Store, resolver Resolver, chip, channel int) (*Channel, error) {
	if chip < 0 {
		return nil, &InvalidArgumentError{Name: "chip", Value: chip, Range: ">= 0"}
	}
	if channel < 0 {
		return nil, &InvalidArgumentError{Name: "channel", Value: channel, Range: ">= 0"}
	}

	ok, err := resolver.ChipExists(chip)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &UnknownChipError{Chip: chip}
	}
	n, err := resolver.ChannelCount(chip)
	if err != nil {
		return nil, err
	}
	if channel >= n {
		return nil, &UnknownChannelError{Chip: chip, Channel: channel, Count: n}
	}

	c := &Channel{
		store:            store,
		chip:             chip,
		channel:          channel,
		frequencyHz:      DefaultFrequencyHz,
		dutyCyclePercent: DefaultDutyCyclePercent,
	}
	c.recalculate()

	if err := c.unexport(); err != nil {
		return nil, err
	}
	if err := c.export(); err != nil {
		return nil, err
	}
	return c, nil
}

// OpenSysfs opens a channel under a sysfs tree rooted at base
// (DefaultSysfsBase when empty).
func OpenSysfs(base string, chip, channel int) (*Channel, error) {
	s := NewSysfs(base)
	return Open(s, s, chip, channel)
}

func (c *Channel) Chip() int { return c.chip }

func (c *Channel) Channel() int { return c.channel }

// Frequency returns the signal frequency in Hz.
func (c *Channel) Frequency() float64 { return c.frequencyHz }

// DutyCycle returns the duty cycle in percent.
func (c *Channel) DutyCycle() int { return c.dutyCyclePercent }

func (c *Channel) Enabled() bool { return c.enabled }

func (c *Channel) State() State {
	return State{
		Chip:             c.chip,
		Channel:          c.channel,
		FrequencyHz:      c.frequencyHz,
		DutyCyclePercent: c.dutyCyclePercent,
		PeriodNS:         c.periodNS,
		DutyCycleNS:      c.dutyCycleNS,
		Enabled:          c.enabled,
	}
}

// SetFrequency changes the signal frequency, keeping the duty cycle percentage.
func (c *Channel) SetFrequency(hz float64) error {
	if !c.exported {
		return c.notExported("set frequency")
	}
	if _, err := periodFor(hz); err != nil {
		return err
	}
	c.frequencyHz = hz
	c.recalculate()
	return c.writeTiming()
}

// SetDutyCycle changes the active fraction of the period, in percent.
func (c *Channel) SetDutyCycle(percent int) error {
	if !c.exported {
		return c.notExported("set duty cycle")
	}
	if percent < 0 || percent > 100 {
		return &InvalidArgumentError{Name: "duty cycle percent", Value: percent, Range: "[0, 100]"}
	}
	c.dutyCyclePercent = percent
	c.recalculate()
	return c.writeTiming()
}

// SetEnabled starts or stops the output with a single write to enable.
func (c *Channel) SetEnabled(v bool) error {
	if !c.exported {
		return c.notExported("set enabled")
	}
	c.enabled = v
	return c.store.Write(c.attr("enable"), formatBool(v))
}

// Cleanup disables and unexports the channel. It is a no-op once the channel
// is unexported, and the channel cannot be exported again afterwards.
func (c *Channel) Cleanup() error {
	if !c.exported {
		return nil
	}
	if c.enabled {
		// Unexport stops the output anyway; errors here must not block it.
		_ = c.store.Write(c.attr("enable"), formatBool(false))
	}
	c.enabled = false
	return c.unexport()
}

// writeTiming pushes periodNS and dutyCycleNS. duty_cycle is zeroed before
// period changes so neither the old nor the new period is ever below the
// duty cycle at an observable instant. An enabled output is stopped around
// the sequence and restarted afterwards; a disabled one stays disabled.
func (c *Channel) writeTiming() error {
	wasEnabled := c.enabled
	if wasEnabled {
		if err := c.store.Write(c.attr("enable"), formatBool(false)); err != nil {
			return err
		}
		c.enabled = false
	}
	if err := c.store.Write(c.attr("duty_cycle"), "0"); err != nil {
		return err
	}
	if err := c.store.Write(c.attr("period"), formatUint(c.periodNS)); err != nil {
		return err
	}
	if err := c.store.Write(c.attr("duty_cycle"), formatUint(c.dutyCycleNS)); err != nil {
		return err
	}
	if wasEnabled {
		if err := c.store.Write(c.attr("enable"), formatBool(true)); err != nil {
			return err
		}
		c.enabled = true
	}
	return nil
}

func (c *Channel) export() error {
	if err := c.store.Write(chipAttr(c.chip, "export"), strconv.Itoa(c.channel)); err != nil {
		return err
	}
	c.exported = true
	return nil
}

func (c *Channel) unexport() error {
	err := c.store.Write(chipAttr(c.chip, "unexport"), strconv.Itoa(c.channel))
	c.exported = false
	if err != nil && !isDeviceAbsent(err) {
		return err
	}
	return nil
}

func (c *Channel) recalculate() {
	c.periodNS, _ = periodFor(c.frequencyHz)
	c.dutyCycleNS = dutyCycleFor(c.periodNS, c.dutyCyclePercent)
}

func (c *Channel) attr(name string) string {
	return channelAttr(c.chip, c.channel, name)
}

func (c *Channel) notExported(op string) error {
	return &NotExportedError{Chip: c.chip, Channel: c.channel, Op: op}
}

// periodFor returns round(1e9 / hz) and rejects frequencies whose period is
// zero or does not fit the attribute.
func periodFor(hz float64) (uint64, error) {
	if math.IsNaN(hz) || math.IsInf(hz, 0) || hz <= 0 {
		return 0, &InvalidArgumentError{Name: "frequency", Value: hz, Range: "> 0 Hz"}
	}
	ns := math.Round(nanosPerSecond / hz)
	if ns < 1 {
		return 0, &InvalidArgumentError{Name: "frequency", Value: hz, Range: fmt.Sprintf("<= %g Hz", 2*nanosPerSecond)}
	}
	if ns > math.MaxInt64 {
		return 0, &InvalidArgumentError{Name: "frequency", Value: hz, Range: "period must fit in int64 nanoseconds"}
	}
	return uint64(ns), nil
}

// dutyCycleFor returns round(period * percent / 100), which never exceeds period
// for percent in [0, 100].
func dutyCycleFor(periodNS uint64, percent int) uint64 {
	d := uint64(math.Round(float64(periodNS) * float64(percent) / 100))
	if d > periodNS {
		d = periodNS
	}
	return d
}
