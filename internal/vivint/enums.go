package vivint

import (
	"strconv"
	"strings"
)

// ArmedState is the alarm posture of a panel partition.
type ArmedState int

// Armed states reported by the cloud. Unknown absorbs future values.
const (
	ArmedStateUnknown             ArmedState = -1
	ArmedStateDisarmed            ArmedState = 0
	ArmedStateArmingAwayExitDelay ArmedState = 1
	ArmedStateArmingStayExitDelay ArmedState = 2
	ArmedStateArmedStay           ArmedState = 3
	ArmedStateArmedAway           ArmedState = 4
	ArmedStateArmedStayEntryDelay ArmedState = 5
	ArmedStateArmedAwayEntryDelay ArmedState = 6
	ArmedStateAlarm               ArmedState = 7
	ArmedStateAlarmFire           ArmedState = 8
	ArmedStateDisabled            ArmedState = 11
	ArmedStateWalkTest            ArmedState = 12
)

var armedStateNames = map[ArmedState]string{
	ArmedStateDisarmed:            "DISARMED",
	ArmedStateArmingAwayExitDelay: "ARMING_AWAY_IN_EXIT_DELAY",
	ArmedStateArmingStayExitDelay: "ARMING_STAY_IN_EXIT_DELAY",
	ArmedStateArmedStay:           "ARMED_STAY",
	ArmedStateArmedAway:           "ARMED_AWAY",
	ArmedStateArmedStayEntryDelay: "ARMED_STAY_IN_ENTRY_DELAY",
	ArmedStateArmedAwayEntryDelay: "ARMED_AWAY_IN_ENTRY_DELAY",
	ArmedStateAlarm:               "ALARM",
	ArmedStateAlarmFire:           "ALARM_FIRE",
	ArmedStateDisabled:            "DISABLED",
	ArmedStateWalkTest:            "WALK_TEST",
}

var armedStateByName = func() map[string]ArmedState {
	m := make(map[string]ArmedState, len(armedStateNames))
	for s, n := range armedStateNames {
		m[n] = s
	}
	return m
}()

// String returns the cloud's textual label, or "UNKNOWN".
func (s ArmedState) String() string {
	if n, ok := armedStateNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// ParseArmedState decodes a wire value that may arrive as an int, a numeric
// string, or an uppercase textual label. Unrecognised input yields
// ArmedStateUnknown; it never fails.
func ParseArmedState(v any) ArmedState {
	switch t := v.(type) {
	case int:
		return armedStateFromInt(t)
	case int64:
		return armedStateFromInt(int(t))
	case float64:
		return armedStateFromInt(int(t))
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return armedStateFromInt(n)
		}
		if s, ok := armedStateByName[strings.ToUpper(t)]; ok {
			return s
		}
	}
	return ArmedStateUnknown
}

func armedStateFromInt(n int) ArmedState {
	if _, ok := armedStateNames[ArmedState(n)]; ok {
		return ArmedState(n)
	}
	return ArmedStateUnknown
}

// DeviceType is the wire type tag carried by every device payload.
type DeviceType string

// Device type tags. The registry maps tags to variants; anything else
// becomes an UnknownDevice.
const (
	DeviceTypeBinarySwitch     DeviceType = "binary_switch_device"
	DeviceTypeCamera           DeviceType = "camera_device"
	DeviceTypeDoorLock         DeviceType = "door_lock_device"
	DeviceTypeGarageDoor       DeviceType = "garage_door_device"
	DeviceTypeMultilevelSwitch DeviceType = "multilevel_switch_device"
	DeviceTypeThermostat       DeviceType = "thermostat_device"
	DeviceTypePanel            DeviceType = "primary_touch_link_device"
	DeviceTypeWirelessSensor   DeviceType = "wireless_sensor"
	DeviceTypeWiredSensor      DeviceType = "wired_sensor"
	DeviceTypeKeypad           DeviceType = "keypad_device"
	DeviceTypeKeyFob           DeviceType = "keyfob_device"
	DeviceTypeUnknown          DeviceType = ""
)

// GarageDoorState is the position/motion state of a garage door.
type GarageDoorState int

const (
	GarageDoorStateUnknown GarageDoorState = 0
	GarageDoorStateClosed  GarageDoorState = 1
	GarageDoorStateClosing GarageDoorState = 2
	GarageDoorStateStopped GarageDoorState = 3
	GarageDoorStateOpening GarageDoorState = 4
	GarageDoorStateOpened  GarageDoorState = 5
)

// IsOpen reports whether the door is open, opening or stopped mid-travel.
func (s GarageDoorState) IsOpen() bool {
	return s == GarageDoorStateOpened || s == GarageDoorStateOpening || s == GarageDoorStateStopped
}

// SensorType classifies the alarm zone a wireless sensor belongs to.
type SensorType int

const (
	SensorTypeUnknown              SensorType = -1
	SensorTypeUnused               SensorType = 0
	SensorTypeExitEntry1           SensorType = 1
	SensorTypeExitEntry2           SensorType = 2
	SensorTypePerimeter            SensorType = 3
	SensorTypeInteriorFollower     SensorType = 4
	SensorTypeDayZone              SensorType = 5
	SensorTypeSilentAlarm          SensorType = 6
	SensorTypeAudibleAlarm         SensorType = 7
	SensorTypeAuxiliaryAlarm       SensorType = 8
	SensorTypeFire                 SensorType = 9
	SensorTypeInteriorWithDelay    SensorType = 10
	SensorTypeCarbonMonoxide       SensorType = 14
	SensorTypeFireWithVerification SensorType = 16
	SensorTypeNoResponse           SensorType = 23
	SensorTypeSilentBurglary       SensorType = 24
	SensorTypeRepeater             SensorType = 25
)

// EquipmentType is the broad hardware class of a sensor.
type EquipmentType int

const (
	EquipmentTypeUnknown     EquipmentType = -1
	EquipmentTypeContact     EquipmentType = 1
	EquipmentTypeMotion      EquipmentType = 2
	EquipmentTypeFreeze      EquipmentType = 6
	EquipmentTypeWater       EquipmentType = 8
	EquipmentTypeTemperature EquipmentType = 10
	EquipmentTypeEmergency   EquipmentType = 11
)

// EquipmentCode identifies the exact sensor hardware model. Only the codes
// the gateway branches on are named; everything else passes through as-is.
type EquipmentCode int

const (
	EquipmentCodeUnknown EquipmentCode = -1
	EquipmentCodeOther   EquipmentCode = 0
)

// OperatingMode is a thermostat's configured mode.
type OperatingMode int

const (
	OperatingModeUnknown        OperatingMode = -1
	OperatingModeOff            OperatingMode = 0
	OperatingModeHeat           OperatingMode = 1
	OperatingModeCool           OperatingMode = 2
	OperatingModeAuto           OperatingMode = 3
	OperatingModeEmergencyHeat  OperatingMode = 4
	OperatingModeResume         OperatingMode = 5
	OperatingModeFanOnly        OperatingMode = 6
	OperatingModeFurnace        OperatingMode = 7
	OperatingModeDryAir         OperatingMode = 8
	OperatingModeMoistAir       OperatingMode = 9
	OperatingModeAutoChangeover OperatingMode = 10
	OperatingModeAway           OperatingMode = 13
	OperatingModeEco            OperatingMode = 100
)

// OperatingState is what a thermostat is currently doing.
type OperatingState int

const (
	OperatingStateUnknown OperatingState = -1
	OperatingStateIdle    OperatingState = 0
	OperatingStateHeating OperatingState = 1
	OperatingStateCooling OperatingState = 2
)

// FanMode is a thermostat fan setting.
type FanMode int

const (
	FanModeUnknown  FanMode = -1
	FanModeAutoLow  FanMode = 0
	FanModeOnLow    FanMode = 1
	FanModeAutoHigh FanMode = 2
	FanModeOnHigh   FanMode = 3
	FanModeTimer15  FanMode = 99
	FanModeTimer30  FanMode = 100
	FanModeTimer60  FanMode = 101
	FanModeTimer45  FanMode = 102
	FanModeTimer120 FanMode = 103
	FanModeTimer240 FanMode = 104
	FanModeTimer480 FanMode = 105
	FanModeTimer960 FanMode = 106
	FanModeTimer720 FanMode = 107
)

// HoldMode is how long a thermostat setpoint override persists.
type HoldMode int

const (
	HoldModeUnknown    HoldMode = -1
	HoldModeBySchedule HoldMode = 0
	HoldModeUntilNext  HoldMode = 1
	HoldModeTwoHours   HoldMode = 2
	HoldModePermanent  HoldMode = 3
)

// EmergencyType selects which emergency alarm a panel triggers.
type EmergencyType int

const (
	EmergencyTypeFire    EmergencyType = 0
	EmergencyTypeMedical EmergencyType = 1
	EmergencyTypePolice  EmergencyType = 2
)

// ZoneBypass is a sensor's bypass status.
type ZoneBypass int

const (
	ZoneBypassUnknown    ZoneBypass = -1
	ZoneUnbypassed       ZoneBypass = 0
	ZoneForceBypassed    ZoneBypass = 1
	ZoneManuallyBypassed ZoneBypass = 2
)
