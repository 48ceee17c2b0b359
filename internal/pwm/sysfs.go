package pwm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultSysfsBase is where Linux exposes PWM chips.
const DefaultSysfsBase = "/sys/class/pwm"

// Immediately after exporting a channel the kernel creates new attribute files
// and udev may adjust permissions asynchronously. Writes retry within this window.
var (
	sysfsRetryWindow = 2 * time.Second
	sysfsRetryDelay  = 25 * time.Millisecond
)

// Sysfs is a Store and Resolver backed by a /sys/class/pwm style directory tree.
type Sysfs struct {
	Base string
}

// NewSysfs returns a Sysfs rooted at base, or DefaultSysfsBase when base is empty.
func NewSysfs(base string) *Sysfs {
	if base == "" {
		base = DefaultSysfsBase
	}
	return &Sysfs{Base: base}
}

func (s *Sysfs) path(name string) string {
	return filepath.Join(s.Base, filepath.FromSlash(name))
}

func (s *Sysfs) Read(name string) (string, error) {
	b, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func (s *Sysfs) Write(name, value string) error {
	p := s.path(name)
	// O_WRONLY without O_TRUNC/O_CREATE: some sysfs attributes reject truncation
	// flags even when mode bits allow writes.
	deadline := time.Now().Add(sysfsRetryWindow)
	for {
		err := writeOnce(p, value)
		if err == nil {
			return nil
		}
		if time.Now().Before(deadline) && isRetryable(err) {
			time.Sleep(sysfsRetryDelay)
			continue
		}
		return err
	}
}

func writeOnce(p, value string) error {
	f, err := os.OpenFile(p, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	_, werr := f.WriteString(value)
	cerr := f.Close()
	if werr != nil && cerr != nil {
		return errors.Join(werr, cerr)
	}
	if werr != nil {
		return werr
	}
	return cerr
}

func (s *Sysfs) ChipExists(chip int) (bool, error) {
	// pwmchipN entries are commonly symlinks; Stat follows them.
	fi, err := os.Stat(s.path(chipDir(chip)))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return fi.IsDir(), nil
}

func (s *Sysfs) ChannelCount(chip int) (int, error) {
	v, err := s.Read(chipAttr(chip, "npwm"))
	if err != nil {
		return 0, err
	}
	if v == "" {
		return 0, fmt.Errorf("pwm: %s is empty", chipAttr(chip, "npwm"))
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("pwm: parse %s: %w", chipAttr(chip, "npwm"), err)
	}
	return n, nil
}
