package pwm

import (
	"fmt"
	"path"
	"strconv"
)

// Store reads and writes plain-text control attributes. Names are relative to
// the control-file base, e.g. "pwmchip0/export" or "pwmchip0/pwm2/period".
type Store interface {
	Read(name string) (string, error)
	Write(name, value string) error
}

// Resolver answers existence and enumeration questions about chips.
type Resolver interface {
	ChipExists(chip int) (bool, error)
	// ChannelCount returns npwm; valid channel ids are 0..npwm-1.
	ChannelCount(chip int) (int, error)
}

func chipDir(chip int) string {
	return "pwmchip" + strconv.Itoa(chip)
}

func chipAttr(chip int, name string) string {
	return path.Join(chipDir(chip), name)
}

func channelAttr(chip, channel int, name string) string {
	return path.Join(chipDir(chip), fmt.Sprintf("pwm%d", channel), name)
}

func formatBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}
