// CPU temperature collector: the hottest matching thermal sensor.
package collector

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
	"go.uber.org/zap"
)

// cpuSensorKeys are substrings identifying CPU sensors across platforms
// (coretemp/k10temp/zenpower on Linux, TC0P/TC0D on macOS, "CPU Package" on Windows).
var cpuSensorKeys = []string{
	"cpu", "core", "package", "tctl", "tdie",
	"k10temp", "coretemp", "zenpower", "acpitz",
	"tc0p", "tc0d", "tcxc",
}

// Plausible sensor range in °C; anything outside is a bad reading.
const (
	minValidTemp = 0.0
	maxValidTemp = 150.0
)

// TemperatureResult holds the CPU temperature, nil when no sensor matched.
type TemperatureResult struct {
	CPUTemp *float64 `json:"cpu_temp"`
}

// TemperatureCollector reads host thermal sensors.
type TemperatureCollector struct {
	logger *zap.Logger
}

// NewTemperatureCollector creates a new temperature collector.
func NewTemperatureCollector(logger *zap.Logger) *TemperatureCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemperatureCollector{logger: logger}
}

// Name returns the collector identifier.
func (c *TemperatureCollector) Name() string { return NameTemperature }

// Collect returns the maximum valid CPU sensor reading. Sensor errors are
// common (partial warnings on Linux, unsupported on Windows) and only
// logged; whatever readings were returned are still used.
func (c *TemperatureCollector) Collect(ctx context.Context) (interface{}, error) {
	temps, err := host.SensorsTemperaturesWithContext(ctx)
	if err != nil {
		c.logger.Debug("Temperature sensors reported an error", zap.Error(err))
	}

	var hottest float64
	found := false
	for _, t := range temps {
		if t.Temperature <= minValidTemp || t.Temperature > maxValidTemp {
			continue
		}
		if !isCPUSensor(t.SensorKey) {
			continue
		}
		if !found || t.Temperature > hottest {
			hottest = t.Temperature
			found = true
		}
	}

	if !found {
		return TemperatureResult{}, nil
	}
	return TemperatureResult{CPUTemp: &hottest}, nil
}

func isCPUSensor(key string) bool {
	key = strings.ToLower(key)
	for _, k := range cpuSensorKeys {
		if strings.Contains(key, k) {
			return true
		}
	}
	return false
}

// IsAvailable returns true: always registered; CPUTemp is nil without sensors.
func (c *TemperatureCollector) IsAvailable() bool { return true }
