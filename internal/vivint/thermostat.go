package vivint

import "context"

// Thermostat is a connected thermostat.
type Thermostat struct {
	baseDevice
}

// NewThermostat wraps a thermostat payload.
func NewThermostat(data map[string]any, panel *AlarmPanel) *Thermostat {
	return &Thermostat{baseDevice: newBaseDevice(data, panel)}
}

// CurrentTemperature returns the measured temperature.
func (t *Thermostat) CurrentTemperature() (float64, bool) {
	return attrFloat(t.data, AttrCurrentTemperature)
}

// CoolSetPoint returns the cooling setpoint.
func (t *Thermostat) CoolSetPoint() (float64, bool) {
	return attrFloat(t.data, AttrCoolSetPoint)
}

// HeatSetPoint returns the heating setpoint.
func (t *Thermostat) HeatSetPoint() (float64, bool) {
	return attrFloat(t.data, AttrHeatSetPoint)
}

// Humidity returns the measured relative humidity.
func (t *Thermostat) Humidity() (int, bool) {
	h, ok := attrInt64(t.data, AttrHumidity)
	return int(h), ok
}

// OperatingMode returns the configured mode.
func (t *Thermostat) OperatingMode() OperatingMode {
	m, ok := attrInt64(t.data, AttrOperatingMode)
	if !ok {
		return OperatingModeUnknown
	}
	return OperatingMode(m)
}

// OperatingState returns what the unit is currently doing.
func (t *Thermostat) OperatingState() OperatingState {
	s, ok := attrInt64(t.data, AttrOperatingState)
	if !ok {
		return OperatingStateUnknown
	}
	return OperatingState(s)
}

// FanMode returns the fan setting.
func (t *Thermostat) FanMode() FanMode {
	m, ok := attrInt64(t.data, AttrFanMode)
	if !ok {
		return FanModeUnknown
	}
	return FanMode(m)
}

// FanOn reports whether the fan is currently running.
func (t *Thermostat) FanOn() bool {
	fs, _ := attrBool(t.data, AttrFanState)
	return fs
}

// HoldMode returns how long a setpoint override persists.
func (t *Thermostat) HoldMode() HoldMode {
	m, ok := attrInt64(t.data, AttrHoldMode)
	if !ok {
		return HoldModeUnknown
	}
	return HoldMode(m)
}

// TemperatureRange returns the configurable setpoint bounds.
func (t *Thermostat) TemperatureRange() (min, max float64) {
	min, _ = attrFloat(t.data, AttrMinimumTemperature)
	max, _ = attrFloat(t.data, AttrMaximumTemperature)
	return min, max
}

// SetState applies raw thermostat attributes (setpoints, modes, fan, hold).
func (t *Thermostat) SetState(ctx context.Context, attrs map[string]any) error {
	return t.client().SetThermostatState(ctx, t.panel.ID(), t.panel.PartitionID(), t.ID(), attrs)
}
