package api

import (
	"github.com/nerrad567/skybridge/internal/vivint"
)

// systemView summarises a site for list responses.
func systemView(site *vivint.Site) map[string]any {
	panels := make([]map[string]any, 0, len(site.Panels()))
	for _, panel := range site.Panels() {
		panels = append(panels, panelView(panel))
	}
	return map[string]any{
		"id":     site.ID(),
		"name":   site.Name(),
		"admin":  site.IsAdmin(),
		"panels": panels,
	}
}

func panelView(panel *vivint.AlarmPanel) map[string]any {
	return map[string]any{
		"partition_id":     panel.PartitionID(),
		"state":            panel.State().String(),
		"mac_address":      panel.MACAddress(),
		"model":            panel.Model(),
		"software_version": panel.SoftwareVersion(),
		"device_count":     len(panel.Devices()),
	}
}

// deviceView renders the shared device surface plus the variant's own
// attributes.
func deviceView(device vivint.Device) map[string]any {
	battery, hasBattery := device.BatteryLevel()

	view := map[string]any{
		"id":          device.ID(),
		"name":        device.Name(),
		"type":        string(device.DeviceType()),
		"online":      device.Online(),
		"low_battery": device.LowBattery(),
		"tampered":    device.Tampered(),
		"valid":       device.IsValid(),
	}
	if m := device.Manufacturer(); m != "" {
		view["manufacturer"] = m
	}
	if sn := device.SerialNumber(); sn != "" {
		view["serial_number"] = sn
	}
	if sv := device.SoftwareVersion(); sv != "" {
		view["software_version"] = sv
	}
	if hasBattery {
		view["battery_level"] = battery
	}

	switch d := device.(type) {
	case *vivint.BinarySwitch:
		view["on"] = d.IsOn()
	case *vivint.MultilevelSwitch:
		view["on"] = d.IsOn()
		view["level"] = d.Level()
	case *vivint.DoorLock:
		view["locked"] = d.IsLocked()
	case *vivint.GarageDoor:
		view["open"] = d.IsOpen()
		view["garage_state"] = int(d.State())
	case *vivint.WirelessSensor:
		view["triggered"] = d.IsOn()
		view["bypassed"] = d.IsBypassed()
		view["sensor_type"] = int(d.SensorType())
		view["equipment_type"] = int(d.EquipmentType())
		view["hidden"] = d.Hidden()
	case *vivint.Thermostat:
		thermostatView(view, d)
	case *vivint.Camera:
		cameraView(view, d)
	}
	return view
}

func thermostatView(view map[string]any, t *vivint.Thermostat) {
	if v, ok := t.CurrentTemperature(); ok {
		view["current_temperature"] = v
	}
	if v, ok := t.CoolSetPoint(); ok {
		view["cool_set_point"] = v
	}
	if v, ok := t.HeatSetPoint(); ok {
		view["heat_set_point"] = v
	}
	if v, ok := t.Humidity(); ok {
		view["humidity"] = v
	}
	view["operating_mode"] = int(t.OperatingMode())
	view["operating_state"] = int(t.OperatingState())
	view["fan_on"] = t.FanOn()
}

func cameraView(view map[string]any, c *vivint.Camera) {
	view["model"] = c.Model()
	view["doorbell"] = c.IsDoorbell()
	view["privacy_mode"] = c.PrivacyMode()
	view["deter_mode"] = c.DeterMode()
	view["chime_extender"] = c.ExtendChime()
	if ip := c.IPAddress(); ip != "" {
		view["ip_address"] = ip
	}
	if rtsp := c.DirectRTSPURL(true); rtsp != "" {
		view["direct_rtsp"] = true
	}
}
