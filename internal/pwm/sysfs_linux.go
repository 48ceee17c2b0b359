//go:build linux

package pwm

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isRetryable(err error) bool {
	return errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) || errors.Is(err, unix.ENOENT)
}

// isDeviceAbsent reports the kernel's answer to unexporting a channel that is
// not exported.
func isDeviceAbsent(err error) bool {
	return errors.Is(err, unix.ENODEV)
}
