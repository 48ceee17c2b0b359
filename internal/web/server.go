// Package web serves a small JSON control surface for one PWM channel.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"pwmctl/internal/fancontrol"
	"pwmctl/internal/pwm"
)

// Channel is the part of the controller the handlers need. Implementations
// must be safe for concurrent use; pwm.Shared is.
type Channel interface {
	State() pwm.State
	SetFrequency(hz float64) error
	SetDutyCycle(percent int) error
	SetEnabled(v bool) error
}

// FanStatus reports the fan loop, when one runs.
type FanStatus interface {
	Snapshot() fancontrol.Snapshot
}

type Server struct {
	Addr    string
	Channel Channel
	Fan     FanStatus
	Logger  logrus.FieldLogger
}

func (s *Server) Handler() http.Handler {
	mux := httprouter.New()

	mux.HandlerFunc(http.MethodGet, "/pwm", s.getState)
	mux.HandlerFunc(http.MethodPut, "/pwm/frequency", s.putFrequency)
	mux.HandlerFunc(http.MethodPut, "/pwm/duty_cycle", s.putDutyCycle)
	mux.HandlerFunc(http.MethodPut, "/pwm/enable", s.putEnable)
	mux.HandlerFunc(http.MethodGet, "/fan", s.getFan)

	return mux
}

// Run serves until ctx is done or the listener fails.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    4096,
	}

	listenErrs := make(chan error, 1)
	go func() {
		s.logger().WithField("addr", s.Addr).Info("serving http")
		listenErrs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-listenErrs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) logger() logrus.FieldLogger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}

func (s *Server) getState(res http.ResponseWriter, req *http.Request) {
	respond(res, s.Channel.State(), http.StatusOK)
}

func (s *Server) putFrequency(res http.ResponseWriter, req *http.Request) {
	var body struct {
		Hz *float64 `json:"hz"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Hz == nil {
		respond(res, errors.New("body must be {\"hz\": <number>}"), http.StatusBadRequest)
		return
	}
	s.apply(res, "frequency", *body.Hz, func() error { return s.Channel.SetFrequency(*body.Hz) })
}

func (s *Server) putDutyCycle(res http.ResponseWriter, req *http.Request) {
	var body struct {
		Percent *int `json:"percent"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Percent == nil {
		respond(res, errors.New("body must be {\"percent\": <integer>}"), http.StatusBadRequest)
		return
	}
	s.apply(res, "duty_cycle", *body.Percent, func() error { return s.Channel.SetDutyCycle(*body.Percent) })
}

func (s *Server) putEnable(res http.ResponseWriter, req *http.Request) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Enabled == nil {
		respond(res, errors.New("body must be {\"enabled\": <bool>}"), http.StatusBadRequest)
		return
	}
	s.apply(res, "enabled", *body.Enabled, func() error { return s.Channel.SetEnabled(*body.Enabled) })
}

func (s *Server) apply(res http.ResponseWriter, field string, value any, set func() error) {
	if err := set(); err != nil {
		code := statusFor(err)
		entry := s.logger().WithError(err).WithField(field, value)
		if code == http.StatusInternalServerError {
			entry.Error("pwm update failed")
		} else {
			entry.Warn("pwm update rejected")
		}
		respond(res, err, code)
		return
	}
	s.logger().WithField(field, value).Info("pwm updated")
	respond(res, nil, http.StatusNoContent)
}

func (s *Server) getFan(res http.ResponseWriter, req *http.Request) {
	if s.Fan == nil {
		respond(res, errors.New("fan control disabled"), http.StatusNotFound)
		return
	}
	respond(res, s.Fan.Snapshot(), http.StatusOK)
}
