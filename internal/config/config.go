package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"
)

type Config struct {
	Log LogConfig `yaml:"log"`
	PWM PWMConfig `yaml:"pwm"`
	Fan FanConfig `yaml:"fan"`
	Web WebConfig `yaml:"web"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type PWMConfig struct {
	SysfsBase string    `yaml:"sysfs_base"`
	Chip      int       `yaml:"chip"`
	Channel   int       `yaml:"channel"`
	Frequency Frequency `yaml:"frequency"`
	// DutyCyclePercent is a pointer so an explicit 0 survives defaulting.
	DutyCyclePercent *int `yaml:"duty_cycle_percent"`
	Enable           bool `yaml:"enable"`
}

type FanConfig struct {
	Enable bool `yaml:"enable"`
	// Backend is "pwm" (drive the configured channel) or "gpio" (on/off line).
	Backend        string        `yaml:"backend"`
	TempTargetC    float64       `yaml:"temp_target_c"`
	DutyMin        int           `yaml:"duty_min"`
	UpdateInterval time.Duration `yaml:"update_interval"`
	ThermalPath    string        `yaml:"thermal_path"`
	GPIOChip       string        `yaml:"gpio_chip"`
	GPIOLine       string        `yaml:"gpio_line"`
}

type WebConfig struct {
	// Listen is the HTTP control address; empty disables the control surface.
	Listen string `yaml:"listen"`
}

// Frequency is a frequency in Hz. In YAML it is either a plain number of Hz
// or a string with a unit, e.g. "25kHz".
type Frequency float64

func (f *Frequency) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: frequency must be a scalar", value.Line)
	}
	if v, err := strconv.ParseFloat(value.Value, 64); err == nil {
		*f = Frequency(v)
		return nil
	}
	var pf physic.Frequency
	if err := pf.Set(value.Value); err != nil {
		return fmt.Errorf("line %d: frequency %q: %w", value.Line, value.Value, err)
	}
	*f = Frequency(float64(pf) / float64(physic.Hertz))
	return nil
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return Config{}, fmt.Errorf("log.level: %w", err)
	}

	if cfg.PWM.SysfsBase == "" {
		cfg.PWM.SysfsBase = "/sys/class/pwm"
	}
	if cfg.PWM.Chip < 0 {
		return Config{}, fmt.Errorf("pwm.chip must be >= 0")
	}
	if cfg.PWM.Channel < 0 {
		return Config{}, fmt.Errorf("pwm.channel must be >= 0")
	}
	if cfg.PWM.Frequency == 0 {
		cfg.PWM.Frequency = 2
	}
	if cfg.PWM.Frequency < 0 {
		return Config{}, fmt.Errorf("pwm.frequency must be > 0")
	}
	if cfg.PWM.DutyCyclePercent == nil {
		d := 50
		cfg.PWM.DutyCyclePercent = &d
	}
	if d := *cfg.PWM.DutyCyclePercent; d < 0 || d > 100 {
		return Config{}, fmt.Errorf("pwm.duty_cycle_percent must be within 0..100")
	}

	if cfg.Fan.Backend == "" {
		cfg.Fan.Backend = "pwm"
	}
	if cfg.Fan.Backend != "pwm" && cfg.Fan.Backend != "gpio" {
		return Config{}, fmt.Errorf("fan.backend must be 'pwm' or 'gpio'")
	}
	if cfg.Fan.TempTargetC == 0 {
		cfg.Fan.TempTargetC = 50.0
	}
	if cfg.Fan.DutyMin < 0 || cfg.Fan.DutyMin > 100 {
		return Config{}, fmt.Errorf("fan.duty_min must be within 0..100")
	}
	if cfg.Fan.UpdateInterval <= 0 {
		cfg.Fan.UpdateInterval = 5 * time.Second
	}
	if cfg.Fan.ThermalPath == "" {
		cfg.Fan.ThermalPath = "/sys/class/thermal/thermal_zone0/temp"
	}
	if cfg.Fan.GPIOChip == "" {
		cfg.Fan.GPIOChip = "gpiochip0"
	}
	if cfg.Fan.GPIOLine == "" {
		cfg.Fan.GPIOLine = "GPIO18"
	}

	return cfg, nil
}
