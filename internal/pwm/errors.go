package pwm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPWM is the base category of every controller error. Use errors.Is(err, ErrPWM)
// to tell controller errors apart from I/O failures of the attribute store.
var ErrPWM = errors.New("pwm error")

// UnknownChipError reports a chip without a control directory.
type UnknownChipError struct {
	Chip int
}

func (e *UnknownChipError) Error() string {
	return fmt.Sprintf("pwm: unknown chip %d", e.Chip)
}

func (e *UnknownChipError) Is(target error) bool { return target == ErrPWM }

// UnknownChannelError reports a channel id outside [0, Count-1] for Chip.
type UnknownChannelError struct {
	Chip    int
	Channel int
	Count   int
}

func (e *UnknownChannelError) Error() string {
	return fmt.Sprintf("pwm: unknown channel %d on chip %d (valid: %s)", e.Channel, e.Chip, e.valid())
}

func (e *UnknownChannelError) valid() string {
	if e.Count <= 0 {
		return "none"
	}
	ids := make([]string, e.Count)
	for i := range ids {
		ids[i] = fmt.Sprint(i)
	}
	return "[" + strings.Join(ids, ", ") + "]"
}

func (e *UnknownChannelError) Is(target error) bool { return target == ErrPWM }

// NotExportedError is returned by every mutating operation once the channel
// has no live control directory.
type NotExportedError struct {
	Chip    int
	Channel int
	Op      string
}

func (e *NotExportedError) Error() string {
	return fmt.Sprintf("pwm: %s: chip %d channel %d is not exported", e.Op, e.Chip, e.Channel)
}

func (e *NotExportedError) Is(target error) bool { return target == ErrPWM }

// InvalidArgumentError reports a parameter outside its valid range.
type InvalidArgumentError struct {
	Name  string
	Value any
	Range string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("pwm: invalid %s %v (valid: %s)", e.Name, e.Value, e.Range)
}

func (e *InvalidArgumentError) Is(target error) bool { return target == ErrPWM }
