//go:build !linux

package pwm

import (
	"errors"
	"io/fs"
	"syscall"
)

func isRetryable(err error) bool {
	return errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrNotExist)
}

func isDeviceAbsent(err error) bool {
	return errors.Is(err, syscall.ENODEV)
}
