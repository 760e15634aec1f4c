package vivint

// genericDevice backs device types that need no variant behaviour, like the
// physical panel device record.
type genericDevice struct {
	baseDevice
}

func newGenericDevice(data map[string]any, panel *AlarmPanel) Device {
	return &genericDevice{baseDevice: newBaseDevice(data, panel)}
}

// deviceFactories maps wire type tags to variant constructors. Tags without
// an entry fall back to UnknownDevice.
var deviceFactories = map[DeviceType]func(map[string]any, *AlarmPanel) Device{
	DeviceTypeBinarySwitch: func(d map[string]any, p *AlarmPanel) Device { return NewBinarySwitch(d, p) },
	DeviceTypeCamera:       func(d map[string]any, p *AlarmPanel) Device { return NewCamera(d, p) },
	DeviceTypeDoorLock:     func(d map[string]any, p *AlarmPanel) Device { return NewDoorLock(d, p) },
	DeviceTypeGarageDoor:   func(d map[string]any, p *AlarmPanel) Device { return NewGarageDoor(d, p) },
	DeviceTypeMultilevelSwitch: func(d map[string]any, p *AlarmPanel) Device {
		return NewMultilevelSwitch(d, p)
	},
	DeviceTypeThermostat:     func(d map[string]any, p *AlarmPanel) Device { return NewThermostat(d, p) },
	DeviceTypePanel:          newGenericDevice,
	DeviceTypeWirelessSensor: func(d map[string]any, p *AlarmPanel) Device { return NewWirelessSensor(d, p) },
}

// NewDevice builds the variant matching the payload's type tag.
func NewDevice(data map[string]any, panel *AlarmPanel) Device {
	t, _ := attrString(data, KeyType)
	if factory, ok := deviceFactories[DeviceType(t)]; ok {
		return factory(data, panel)
	}
	return NewUnknownDevice(data, panel)
}
