//go:build !linux

package fancontrol

import "fmt"

type GPIOOutput struct{}

func OpenGPIO(chip, lineName string) (*GPIOOutput, error) {
	return nil, fmt.Errorf("fancontrol: gpio unsupported on this platform")
}

func (g *GPIOOutput) SetDutyCycle(percent int) error { return fmt.Errorf("fancontrol: gpio unsupported") }
func (g *GPIOOutput) SetEnabled(v bool) error        { return fmt.Errorf("fancontrol: gpio unsupported") }
func (g *GPIOOutput) Close() error                   { return nil }
