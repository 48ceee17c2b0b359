//go:build linux

package fancontrol

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOOutput drives a 2-wire fan behind a transistor from a single GPIO line.
// Any duty above zero switches the line on.
type GPIOOutput struct {
	chip    *gpiocdev.Chip
	line    *gpiocdev.Line
	enabled bool
	on      bool
}

// OpenGPIO requests the named line (e.g. "GPIO18") on chip (e.g. "gpiochip0")
// as an output, initially low.
func OpenGPIO(chip, lineName string) (*GPIOOutput, error) {
	c, err := gpiocdev.NewChip(chip, gpiocdev.WithConsumer("pwmctl-fan"))
	if err != nil {
		return nil, fmt.Errorf("fancontrol: open %s: %w", chip, err)
	}

	offset, err := c.FindLine(lineName)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("fancontrol: gpio line %q not found on %s: %w", lineName, chip, err)
	}
	line, err := c.RequestLine(offset, gpiocdev.AsOutput(0))
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("fancontrol: request gpio line %q: %w", lineName, err)
	}
	return &GPIOOutput{chip: c, line: line}, nil
}

func (g *GPIOOutput) SetDutyCycle(percent int) error {
	g.on = percent > 0
	return g.apply()
}

func (g *GPIOOutput) SetEnabled(v bool) error {
	g.enabled = v
	return g.apply()
}

func (g *GPIOOutput) apply() error {
	if g.line == nil {
		return fmt.Errorf("fancontrol: gpio line closed")
	}
	v := 0
	if g.enabled && g.on {
		v = 1
	}
	return g.line.SetValue(v)
}

// Close drives the line low and releases it.
func (g *GPIOOutput) Close() error {
	if g.line == nil {
		return nil
	}
	_ = g.line.SetValue(0)
	err := g.line.Close()
	g.line = nil
	if g.chip != nil {
		_ = g.chip.Close()
		g.chip = nil
	}
	return err
}
