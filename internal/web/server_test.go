package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"pwmctl/internal/fancontrol"
	"pwmctl/internal/pwm"
)

type fakeChannel struct {
	state pwm.State
	err   error
}

func (c *fakeChannel) State() pwm.State { return c.state }

func (c *fakeChannel) SetFrequency(hz float64) error {
	if c.err != nil {
		return c.err
	}
	c.state.FrequencyHz = hz
	return nil
}

func (c *fakeChannel) SetDutyCycle(p int) error {
	if c.err != nil {
		return c.err
	}
	c.state.DutyCyclePercent = p
	return nil
}

func (c *fakeChannel) SetEnabled(v bool) error {
	if c.err != nil {
		return c.err
	}
	c.state.Enabled = v
	return nil
}

type fakeFan struct{ snap fancontrol.Snapshot }

func (f fakeFan) Snapshot() fancontrol.Snapshot { return f.snap }

func newTestServer(ch Channel, fan FanStatus) http.Handler {
	l, _ := test.NewNullLogger()
	return (&Server{Channel: ch, Fan: fan, Logger: l}).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetState(t *testing.T) {
	ch := &fakeChannel{state: pwm.State{Chip: 0, Channel: 2, FrequencyHz: 2, DutyCyclePercent: 50, PeriodNS: 500000000}}
	rec := do(t, newTestServer(ch, nil), http.MethodGet, "/pwm", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d want 200", rec.Code)
	}
	var got pwm.State
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != ch.state {
		t.Fatalf("state=%+v want %+v", got, ch.state)
	}
}

func TestPutSetters(t *testing.T) {
	ch := &fakeChannel{}
	h := newTestServer(ch, nil)

	if rec := do(t, h, http.MethodPut, "/pwm/frequency", `{"hz":100}`); rec.Code != http.StatusNoContent {
		t.Fatalf("frequency code=%d body=%s", rec.Code, rec.Body)
	}
	if rec := do(t, h, http.MethodPut, "/pwm/duty_cycle", `{"percent":75}`); rec.Code != http.StatusNoContent {
		t.Fatalf("duty code=%d body=%s", rec.Code, rec.Body)
	}
	if rec := do(t, h, http.MethodPut, "/pwm/enable", `{"enabled":true}`); rec.Code != http.StatusNoContent {
		t.Fatalf("enable code=%d body=%s", rec.Code, rec.Body)
	}
	if ch.state.FrequencyHz != 100 || ch.state.DutyCyclePercent != 75 || !ch.state.Enabled {
		t.Fatalf("state=%+v", ch.state)
	}
}

func TestPut_MalformedBody(t *testing.T) {
	h := newTestServer(&fakeChannel{}, nil)
	cases := []struct{ path, body string }{
		{"/pwm/frequency", `{}`},
		{"/pwm/frequency", `nope`},
		{"/pwm/duty_cycle", `{"percent":"high"}`},
		{"/pwm/enable", `{"enabled":1}`},
	}
	for _, tc := range cases {
		if rec := do(t, h, http.MethodPut, tc.path, tc.body); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s %s: code=%d want 400", tc.path, tc.body, rec.Code)
		}
	}
}

func TestPut_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&pwm.InvalidArgumentError{Name: "duty cycle percent", Value: 101, Range: "[0, 100]"}, http.StatusUnprocessableEntity},
		{&pwm.NotExportedError{Op: "set duty cycle"}, http.StatusConflict},
		{errors.New("write failed"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h := newTestServer(&fakeChannel{err: tc.err}, nil)
		rec := do(t, h, http.MethodPut, "/pwm/duty_cycle", `{"percent":101}`)
		if rec.Code != tc.want {
			t.Fatalf("%v: code=%d want %d", tc.err, rec.Code, tc.want)
		}
		var body errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if body.Error != tc.err.Error() {
			t.Fatalf("error=%q want %q", body.Error, tc.err.Error())
		}
	}
}

func TestGetFan(t *testing.T) {
	if rec := do(t, newTestServer(&fakeChannel{}, nil), http.MethodGet, "/fan", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("code=%d want 404", rec.Code)
	}
	fan := fakeFan{snap: fancontrol.Snapshot{TempValid: true, TempC: 48.5, Duty: 40}}
	rec := do(t, newTestServer(&fakeChannel{}, fan), http.MethodGet, "/fan", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d want 200", rec.Code)
	}
	var got fancontrol.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Duty != 40 || got.TempC != 48.5 {
		t.Fatalf("snapshot=%+v", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rec := do(t, newTestServer(&fakeChannel{}, nil), http.MethodPost, "/pwm", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("code=%d want 405", rec.Code)
	}
}

func TestSharedChannelOverSysfs(t *testing.T) {
	base := t.TempDir()
	chip := filepath.Join(base, "pwmchip0")
	if err := os.MkdirAll(filepath.Join(chip, "pwm0"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	for name, v := range map[string]string{"npwm": "1", "export": "", "unexport": "", "pwm0/period": "", "pwm0/duty_cycle": "", "pwm0/enable": ""} {
		if err := os.WriteFile(filepath.Join(chip, filepath.FromSlash(name)), []byte(v), 0o644); err != nil {
			t.Fatalf("WriteFile %s: %v", name, err)
		}
	}
	c, err := pwm.OpenSysfs(base, 0, 0)
	if err != nil {
		t.Fatalf("OpenSysfs: %v", err)
	}
	sh := pwm.NewShared(c)
	h := newTestServer(sh, nil)

	if rec := do(t, h, http.MethodPut, "/pwm/frequency", `{"hz":100}`); rec.Code != http.StatusNoContent {
		t.Fatalf("code=%d body=%s", rec.Code, rec.Body)
	}
	if rec := do(t, h, http.MethodPut, "/pwm/duty_cycle", `{"percent":150}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code=%d want 422", rec.Code)
	}
	if got := sh.State(); got.PeriodNS != 10000000 || got.DutyCycleNS != 5000000 {
		t.Fatalf("state=%+v", got)
	}

	if err := sh.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if rec := do(t, h, http.MethodPut, "/pwm/enable", `{"enabled":true}`); rec.Code != http.StatusConflict {
		t.Fatalf("code=%d want 409", rec.Code)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	l, _ := test.NewNullLogger()
	s := &Server{Addr: "127.0.0.1:0", Channel: &fakeChannel{}, Logger: l}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
