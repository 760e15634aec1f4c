package vivint

import (
	"testing"
)

func switchData(id int64) map[string]any {
	return map[string]any{
		KeyID:   float64(id),
		KeyType: string(DeviceTypeBinarySwitch),
		KeyName: "Lamp",
	}
}

func sensorData(id int64) map[string]any {
	return map[string]any{
		KeyID:                 float64(id),
		KeyType:               string(DeviceTypeWirelessSensor),
		KeyName:               "Front Door",
		AttrSerialNumber32Bit: "abc123",
		AttrEquipmentCode:     float64(1251),
		AttrEquipmentType:     float64(1),
		AttrSensorType:        float64(1),
		AttrState:             false,
		AttrLowBattery:        false,
	}
}

func TestNewDevice_VariantsAndFallback(t *testing.T) {
	site := testSite(t, nil, nil)
	panel := site.Panels()[0]

	tests := []struct {
		name       string
		deviceType string
		check      func(Device) bool
	}{
		{
			name:       "binary switch",
			deviceType: string(DeviceTypeBinarySwitch),
			check:      func(d Device) bool { _, ok := d.(*BinarySwitch); return ok },
		},
		{
			name:       "camera",
			deviceType: string(DeviceTypeCamera),
			check:      func(d Device) bool { _, ok := d.(*Camera); return ok },
		},
		{
			name:       "door lock",
			deviceType: string(DeviceTypeDoorLock),
			check:      func(d Device) bool { _, ok := d.(*DoorLock); return ok },
		},
		{
			name:       "garage door",
			deviceType: string(DeviceTypeGarageDoor),
			check:      func(d Device) bool { _, ok := d.(*GarageDoor); return ok },
		},
		{
			name:       "thermostat",
			deviceType: string(DeviceTypeThermostat),
			check:      func(d Device) bool { _, ok := d.(*Thermostat); return ok },
		},
		{
			name:       "wireless sensor",
			deviceType: string(DeviceTypeWirelessSensor),
			check:      func(d Device) bool { _, ok := d.(*WirelessSensor); return ok },
		},
		{
			name:       "unrecognised type",
			deviceType: "hologram_projector_device",
			check:      func(d Device) bool { _, ok := d.(*UnknownDevice); return ok },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := NewDevice(map[string]any{KeyID: float64(1), KeyType: tt.deviceType}, panel)
			if !tt.check(device) {
				t.Errorf("NewDevice() built %T for %q", device, tt.deviceType)
			}
		})
	}
}

func TestBatteryLevel(t *testing.T) {
	site := testSite(t, nil, nil)
	panel := site.Panels()[0]

	tests := []struct {
		name     string
		data     map[string]any
		expected int
		hasValue bool
	}{
		{
			name:     "explicit level wins",
			data:     map[string]any{AttrBatteryLevel: float64(61), AttrLowBattery: true},
			expected: 61,
			hasValue: true,
		},
		{
			name:     "low battery flag maps to zero",
			data:     map[string]any{AttrLowBattery: true},
			expected: 0,
			hasValue: true,
		},
		{
			name:     "healthy flag maps to full",
			data:     map[string]any{AttrLowBattery: false},
			expected: 100,
			hasValue: true,
		},
		{
			name:     "no battery details",
			data:     map[string]any{},
			hasValue: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newBaseDevice(tt.data, panel)
			level, ok := d.BatteryLevel()
			if ok != tt.hasValue {
				t.Fatalf("BatteryLevel() ok = %v, want %v", ok, tt.hasValue)
			}
			if ok && level != tt.expected {
				t.Errorf("BatteryLevel() = %d, want %d", level, tt.expected)
			}
		})
	}
}

func TestWirelessSensorIsValid(t *testing.T) {
	site := testSite(t, nil, nil)
	panel := site.Panels()[0]

	tests := []struct {
		name     string
		mutate   func(map[string]any)
		expected bool
	}{
		{
			name:     "fully provisioned",
			mutate:   func(map[string]any) {},
			expected: true,
		},
		{
			name:     "missing serial",
			mutate:   func(d map[string]any) { delete(d, AttrSerialNumber32Bit) },
			expected: false,
		},
		{
			name:     "equipment code other",
			mutate:   func(d map[string]any) { d[AttrEquipmentCode] = float64(0) },
			expected: false,
		},
		{
			name:     "unused sensor type",
			mutate:   func(d map[string]any) { d[AttrSensorType] = float64(0) },
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := sensorData(30)
			tt.mutate(data)
			s := NewWirelessSensor(data, panel)
			if got := s.IsValid(); got != tt.expected {
				t.Errorf("IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserHandlePushUpdate_AddLockSentinel(t *testing.T) {
	site := testSite(t, nil, nil)
	user := site.Users()[0]

	user.HandlePushUpdate(map[string]any{AttrUserAddLock: float64(9)})

	ids := user.LockIDs()
	if len(ids) != 2 || ids[0] != 5 || ids[1] != 9 {
		t.Errorf("LockIDs() = %v, want [5 9]", ids)
	}
	if _, ok := user.Data()[AttrUserAddLock]; ok {
		t.Error("add-lock sentinel left in user data")
	}
}
