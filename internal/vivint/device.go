package vivint

import "strings"

// Device is any endpoint attached to a panel: switches, cameras, locks,
// sensors, thermostats, and anything the cloud invents later (which lands
// as an UnknownDevice).
type Device interface {
	ID() int64
	Name() string
	DeviceType() DeviceType
	Panel() *AlarmPanel
	Data() map[string]any
	// IsValid reports whether the device is fully provisioned. Freshly
	// created devices may take a few seconds to settle.
	IsValid() bool
	Manufacturer() string
	SerialNumber() string
	SoftwareVersion() string
	Online() bool
	LowBattery() bool
	BatteryLevel() (int, bool)
	Tampered() bool
	UpdateData(data map[string]any, override bool)
	HandlePushUpdate(data map[string]any)
	On(event string, fn Listener) func()
	Emit(event string, payload map[string]any)
}

// baseDevice carries the state and accessors shared by every variant.
type baseDevice struct {
	Entity
	panel *AlarmPanel
}

func newBaseDevice(data map[string]any, panel *AlarmPanel) baseDevice {
	return baseDevice{
		Entity: newEntity(data, panel.logger),
		panel:  panel,
	}
}

func (d *baseDevice) client() *Client { return d.panel.client }

// Panel returns the alarm panel the device is attached to.
func (d *baseDevice) Panel() *AlarmPanel { return d.panel }

// Name returns the device's display name, or "" when unnamed.
func (d *baseDevice) Name() string {
	name, _ := attrString(d.data, KeyName)
	return name
}

// DeviceType returns the device's wire type tag.
func (d *baseDevice) DeviceType() DeviceType {
	t, _ := attrString(d.data, KeyType)
	return DeviceType(t)
}

// Manufacturer returns "Vivint" unless the payload names another maker.
func (d *baseDevice) Manufacturer() string {
	if act, ok := attrString(d.data, AttrActualType); ok {
		if parts := strings.SplitN(act, "_", 2); len(parts) > 0 && parts[0] != "" {
			return strings.ToUpper(parts[0][:1]) + parts[0][1:]
		}
	}
	return "Vivint"
}

// SerialNumber returns the 32-bit serial when present, else the legacy one.
func (d *baseDevice) SerialNumber() string {
	if s, ok := attrString(d.data, AttrSerialNumber32Bit); ok && s != "" {
		return s
	}
	s, _ := attrString(d.data, AttrSerialNumber)
	return s
}

// SoftwareVersion returns the device's current software version, preferring
// the firmware version list when the plain field is absent.
func (d *baseDevice) SoftwareVersion() string {
	if v, ok := attrString(d.data, AttrSoftwareVersion); ok && v != "" {
		return v
	}
	// Firmware versions arrive as a list of dotted segments.
	if list, ok := d.data[AttrFirmwareVersion].([]any); ok {
		parts := make([]string, 0, len(list))
		for _, seg := range list {
			switch t := seg.(type) {
			case string:
				parts = append(parts, t)
			case []any:
				inner := make([]string, 0, len(t))
				for _, s := range t {
					if str, ok := s.(string); ok {
						inner = append(inner, str)
					}
				}
				parts = append(parts, strings.Join(inner, "."))
			}
		}
		return strings.Join(parts, ".")
	}
	return ""
}

// Online reports device connectivity. Devices without the attribute are
// considered online.
func (d *baseDevice) Online() bool {
	if ol, ok := attrBool(d.data, AttrOnline); ok {
		return ol
	}
	return true
}

// LowBattery reports the low-battery flag.
func (d *baseDevice) LowBattery() bool {
	lb, _ := attrBool(d.data, AttrLowBattery)
	return lb
}

// BatteryLevel returns the battery percentage. An explicit level wins; a
// bare low-battery flag maps to 0 or 100; devices reporting neither have no
// battery and return ok=false.
func (d *baseDevice) BatteryLevel() (int, bool) {
	if lvl, ok := attrInt64(d.data, AttrBatteryLevel); ok {
		return int(lvl), true
	}
	if lb, ok := attrBool(d.data, AttrLowBattery); ok {
		if lb {
			return 0, true
		}
		return 100, true
	}
	return 0, false
}

// Tampered reports the tamper flag.
func (d *baseDevice) Tampered() bool {
	ta, _ := attrBool(d.data, AttrTamper)
	return ta
}

// IsValid reports true for every variant without provisioning rules.
func (d *baseDevice) IsValid() bool { return true }

// UnknownDevice represents a device type the gateway has no variant for.
// It still exposes the shared accessors and receives push updates.
type UnknownDevice struct {
	baseDevice
}

// NewUnknownDevice wraps an unrecognised device payload.
func NewUnknownDevice(data map[string]any, panel *AlarmPanel) *UnknownDevice {
	return &UnknownDevice{baseDevice: newBaseDevice(data, panel)}
}
