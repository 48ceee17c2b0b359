package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"pwmctl/internal/config"
	"pwmctl/internal/fancontrol"
	"pwmctl/internal/pwm"
	"pwmctl/internal/web"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./pwmctl.yaml", "Path to YAML config")
	flag.Parse()

	log := logrus.New()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Error("pwmctl failed")
		os.Exit(1)
	}
}

// run opens the configured channel, applies its settings and serves the
// optional fan loop and HTTP surface until ctx is done. The channel is always
// cleaned up before run returns.
func run(ctx context.Context, cfg config.Config, log *logrus.Logger) (err error) {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	entry := log.WithFields(logrus.Fields{"chip": cfg.PWM.Chip, "channel": cfg.PWM.Channel})

	ch, err := pwm.OpenSysfs(cfg.PWM.SysfsBase, cfg.PWM.Chip, cfg.PWM.Channel)
	if err != nil {
		return fmt.Errorf("open pwm: %w", err)
	}
	shared := pwm.NewShared(ch)
	defer func() {
		if cerr := shared.Cleanup(); cerr != nil {
			entry.WithError(cerr).Warn("pwm cleanup failed")
			if err == nil {
				err = cerr
			}
			return
		}
		entry.Info("pwm channel unexported")
	}()
	entry.WithField("sysfs", cfg.PWM.SysfsBase).Info("pwm channel exported")

	if err := apply(shared, cfg.PWM); err != nil {
		return err
	}
	st := shared.State()
	entry.WithFields(logrus.Fields{
		"frequency_hz": st.FrequencyHz,
		"duty_percent": st.DutyCyclePercent,
		"period_ns":    st.PeriodNS,
		"duty_ns":      st.DutyCycleNS,
		"enabled":      st.Enabled,
	}).Info("pwm configured")

	var fanStatus web.FanStatus
	if cfg.Fan.Enable {
		svc, closeOut, err := startFan(ctx, cfg.Fan, shared, log)
		if err != nil {
			return err
		}
		defer closeOut()
		defer svc.Close()
		fanStatus = svc
	}

	if cfg.Web.Listen != "" {
		srv := &web.Server{Addr: cfg.Web.Listen, Channel: shared, Fan: fanStatus, Logger: log}
		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	}

	<-ctx.Done()
	log.Info("pwmctl stopping")
	return nil
}

// apply pushes the configured timing, then the enable state.
func apply(ch *pwm.Shared, cfg config.PWMConfig) error {
	if err := ch.SetFrequency(float64(cfg.Frequency)); err != nil {
		return err
	}
	if err := ch.SetDutyCycle(*cfg.DutyCyclePercent); err != nil {
		return err
	}
	if cfg.Enable {
		return ch.SetEnabled(true)
	}
	return nil
}

func startFan(ctx context.Context, cfg config.FanConfig, ch *pwm.Shared, log *logrus.Logger) (*fancontrol.Service, func(), error) {
	var out fancontrol.Output = ch
	closeOut := func() {}
	if cfg.Backend == "gpio" {
		g, err := fancontrol.OpenGPIO(cfg.GPIOChip, cfg.GPIOLine)
		if err != nil {
			return nil, nil, err
		}
		out = g
		closeOut = func() { _ = g.Close() }
	}

	svc := fancontrol.New(fancontrol.Config{
		TempTargetC:    cfg.TempTargetC,
		DutyMin:        cfg.DutyMin,
		UpdateInterval: cfg.UpdateInterval,
		ThermalPath:    cfg.ThermalPath,
	}, out, log)
	if err := svc.Start(ctx); err != nil {
		closeOut()
		return nil, nil, err
	}
	log.WithFields(logrus.Fields{"backend": cfg.Backend, "target_c": cfg.TempTargetC}).Info("fan control started")
	return svc, closeOut, nil
}
