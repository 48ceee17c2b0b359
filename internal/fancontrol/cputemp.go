package fancontrol

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultThermalPath is the first thermal zone, the SoC sensor on most boards.
const DefaultThermalPath = "/sys/class/thermal/thermal_zone0/temp"

// parseTempC accepts milli-degrees (52345) as well as whole degrees (52).
func parseTempC(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("fancontrol: temperature empty")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("fancontrol: parse temperature %q: %w", s, err)
	}
	if n > 1000 {
		return float64(n) / 1000.0, nil
	}
	return float64(n), nil
}

// ReadTempC reads a thermal zone temperature in degrees Celsius.
func ReadTempC(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("fancontrol: read temperature: %w", err)
	}
	return parseTempC(string(b))
}
