package vivint

import "context"

// WirelessSensor is an alarm zone sensor: contact, motion, glass break,
// flood, smoke and friends. Wired sensors share the same payload shape.
type WirelessSensor struct {
	baseDevice
}

// NewWirelessSensor wraps a sensor payload.
func NewWirelessSensor(data map[string]any, panel *AlarmPanel) *WirelessSensor {
	return &WirelessSensor{baseDevice: newBaseDevice(data, panel)}
}

// IsOn reports whether the sensor is triggered (open, motion, wet).
func (s *WirelessSensor) IsOn() bool {
	on, _ := attrBool(s.data, AttrState)
	return on
}

// IsBypassed reports whether the zone is bypassed in any form.
func (s *WirelessSensor) IsBypassed() bool {
	b, ok := attrInt64(s.data, AttrBypassed)
	return ok && ZoneBypass(b) != ZoneUnbypassed
}

// SensorType returns the alarm zone classification.
func (s *WirelessSensor) SensorType() SensorType {
	t, ok := attrInt64(s.data, AttrSensorType)
	if !ok {
		return SensorTypeUnknown
	}
	return SensorType(t)
}

// EquipmentType returns the broad hardware class.
func (s *WirelessSensor) EquipmentType() EquipmentType {
	t, ok := attrInt64(s.data, AttrEquipmentType)
	if !ok {
		return EquipmentTypeUnknown
	}
	return EquipmentType(t)
}

// EquipmentCode returns the exact hardware model code.
func (s *WirelessSensor) EquipmentCode() EquipmentCode {
	c, ok := attrInt64(s.data, AttrEquipmentCode)
	if !ok {
		return EquipmentCodeUnknown
	}
	return EquipmentCode(c)
}

// Hidden reports whether the panel hides the sensor from normal listings.
func (s *WirelessSensor) Hidden() bool {
	h, _ := attrBool(s.data, AttrHidden)
	return h
}

// IsValid reports whether the sensor is a real provisioned zone: it must
// carry a serial number, a concrete equipment code and a used sensor type.
func (s *WirelessSensor) IsValid() bool {
	return s.SerialNumber() != "" &&
		s.EquipmentCode() != EquipmentCodeOther &&
		s.SensorType() != SensorTypeUnused
}

// Bypass excludes the zone from arming checks.
func (s *WirelessSensor) Bypass(ctx context.Context) error {
	return s.client().SetSensorState(ctx, s.panel.ID(), s.panel.PartitionID(), s.ID(), true)
}

// Unbypass returns the zone to normal supervision.
func (s *WirelessSensor) Unbypass(ctx context.Context) error {
	return s.client().SetSensorState(ctx, s.panel.ID(), s.panel.PartitionID(), s.ID(), false)
}
