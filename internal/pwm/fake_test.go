package pwm

import (
	"fmt"
	"io/fs"
	"syscall"
)

type write struct {
	name  string
	value string
}

func (w write) String() string { return w.name + "=" + w.value }

// recordingStore records every write in order and can fail chosen attributes.
type recordingStore struct {
	writes []write
	fail   map[string]error

	chips map[int]int // chip -> npwm
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		fail:  map[string]error{},
		chips: map[int]int{0: 4},
	}
}

func (s *recordingStore) Read(name string) (string, error) {
	return "", &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
}

func (s *recordingStore) Write(name, value string) error {
	if err, ok := s.fail[name]; ok {
		return err
	}
	s.writes = append(s.writes, write{name, value})
	return nil
}

func (s *recordingStore) ChipExists(chip int) (bool, error) {
	_, ok := s.chips[chip]
	return ok, nil
}

func (s *recordingStore) ChannelCount(chip int) (int, error) {
	n, ok := s.chips[chip]
	if !ok {
		return 0, fmt.Errorf("no chip %d", chip)
	}
	return n, nil
}

func (s *recordingStore) reset() { s.writes = nil }

func (s *recordingStore) names() []string {
	out := make([]string, 0, len(s.writes))
	for _, w := range s.writes {
		out = append(out, w.String())
	}
	return out
}

func noDevice(name string) error {
	return &fs.PathError{Op: "write", Path: name, Err: syscall.ENODEV}
}
