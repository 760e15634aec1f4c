package vivint

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/skybridge/internal/infrastructure/logging"
)

// newDevicePollInterval paces the settle loop for freshly paired devices.
var newDevicePollInterval = time.Second

// UnregisteredDevice is the remembered identity of a device that was
// deleted from the panel.
type UnregisteredDevice struct {
	Name       string
	DeviceType DeviceType
}

// AlarmPanel is one partition of a site's panel: the armed state, the
// device tree and the device lifecycle driven by push messages.
type AlarmPanel struct {
	Entity
	site   *Site
	client *Client
	logger *logging.Logger

	// mu serialises push handling against the settle goroutines, which
	// are the only writers off the stream's delivery goroutine.
	mu sync.Mutex

	devices      []Device
	unregistered map[int64]UnregisteredDevice
	credentials  *PanelCredentials
	physical     Device
}

// NewAlarmPanel builds a panel and its device tree from a partition payload.
func NewAlarmPanel(data map[string]any, site *Site) *AlarmPanel {
	p := &AlarmPanel{
		Entity:       newEntity(data, site.logger),
		site:         site,
		client:       site.client,
		logger:       site.logger,
		unregistered: map[int64]UnregisteredDevice{},
	}
	p.parseData(data, true)
	for _, d := range p.devices {
		if d.DeviceType() == DeviceTypePanel {
			p.physical = d
			break
		}
	}
	return p
}

// Site returns the site the panel belongs to.
func (p *AlarmPanel) Site() *Site { return p.site }

// ID returns the panel id, read from either the alias or the descriptive
// key of the partition payload.
func (p *AlarmPanel) ID() int64 {
	if id, ok := attrInt64(p.data, KeyPanelID); ok {
		return id
	}
	id, _ := attrInt64(p.data, KeyPanelIDLong)
	return id
}

// PartitionID returns the partition id.
func (p *AlarmPanel) PartitionID() int64 {
	if id, ok := attrInt64(p.data, KeyPartitionID); ok {
		return id
	}
	id, _ := attrInt64(p.data, KeyPartitionIDLong)
	return id
}

// Name returns the site's name; partitions carry none of their own.
func (p *AlarmPanel) Name() string { return p.site.Name() }

// MACAddress returns the panel's MAC address.
func (p *AlarmPanel) MACAddress() string {
	mac, _ := attrString(p.data, AttrMACAddress)
	return mac
}

// Model distinguishes the two panel generations by the physical device's
// panel type attribute.
func (p *AlarmPanel) Model() string {
	if p.physical != nil {
		if pant, _ := attrInt64(p.physical.Data(), "pant"); pant == 1 {
			return "Sky Control"
		}
	}
	return "Smart Hub"
}

// SoftwareVersion returns the physical panel's software version.
func (p *AlarmPanel) SoftwareVersion() string {
	if bd, ok := p.physical.(*genericDevice); ok {
		return bd.SoftwareVersion()
	}
	return ""
}

// State returns the partition's armed state.
func (p *AlarmPanel) State() ArmedState {
	return ParseArmedState(p.data[AttrState])
}

// IsDisarmed reports whether the partition is disarmed.
func (p *AlarmPanel) IsDisarmed() bool { return p.State() == ArmedStateDisarmed }

// IsArmedStay reports whether the partition is armed stay.
func (p *AlarmPanel) IsArmedStay() bool { return p.State() == ArmedStateArmedStay }

// IsArmedAway reports whether the partition is armed away.
func (p *AlarmPanel) IsArmedAway() bool { return p.State() == ArmedStateArmedAway }

// SetArmedState drives the partition to the given armed state.
func (p *AlarmPanel) SetArmedState(ctx context.Context, state ArmedState) error {
	p.logger.Debug("setting armed state", "panel", p.ID(), "state", state.String())
	return p.client.SetAlarmState(ctx, p.ID(), p.PartitionID(), state)
}

// Disarm disarms the partition.
func (p *AlarmPanel) Disarm(ctx context.Context) error {
	return p.SetArmedState(ctx, ArmedStateDisarmed)
}

// ArmStay arms the partition in stay mode.
func (p *AlarmPanel) ArmStay(ctx context.Context) error {
	return p.SetArmedState(ctx, ArmedStateArmedStay)
}

// ArmAway arms the partition in away mode.
func (p *AlarmPanel) ArmAway(ctx context.Context) error {
	return p.SetArmedState(ctx, ArmedStateArmedAway)
}

// TriggerAlarm raises the partition's alarm.
func (p *AlarmPanel) TriggerAlarm(ctx context.Context) error {
	return p.client.TriggerAlarm(ctx, p.ID(), p.PartitionID())
}

// TriggerEmergency raises the partition's alarm for the given emergency.
// The cloud exposes a single alarm trigger; the emergency flavour matters
// to monitoring, not to the wire call.
func (p *AlarmPanel) TriggerEmergency(ctx context.Context, emergency EmergencyType) error {
	p.logger.Info("triggering emergency alarm", "panel", p.ID(), "type", int(emergency))
	return p.client.TriggerAlarm(ctx, p.ID(), p.PartitionID())
}

// Reboot restarts the panel. Admin only.
func (p *AlarmPanel) Reboot(ctx context.Context) error {
	if !p.site.IsAdmin() {
		return &APIError{Message: "rebooting the panel requires an admin user"}
	}
	return p.client.RebootPanel(ctx, p.ID())
}

// Credentials returns the local panel credentials, fetching and caching
// them on first use.
func (p *AlarmPanel) Credentials(ctx context.Context) (*PanelCredentials, error) {
	return p.credentialsRefresh(ctx, false)
}

// RefreshCredentials forces a fresh credential fetch.
func (p *AlarmPanel) RefreshCredentials(ctx context.Context) (*PanelCredentials, error) {
	return p.credentialsRefresh(ctx, true)
}

func (p *AlarmPanel) credentialsRefresh(ctx context.Context, force bool) (*PanelCredentials, error) {
	if p.credentials != nil && !force {
		return p.credentials, nil
	}
	creds, err := p.client.GetPanelCredentials(ctx, p.ID())
	if err != nil {
		return nil, err
	}
	p.credentials = creds
	return creds, nil
}

// SoftwareUpdateDetails returns panel update availability. Non-admin users
// get an empty record; the cloud rejects the call for them anyway.
func (p *AlarmPanel) SoftwareUpdateDetails(ctx context.Context) (*PanelUpdate, error) {
	if !p.site.IsAdmin() {
		p.logger.Warn("software update details need an admin user", "panel", p.ID())
		return &PanelUpdate{}, nil
	}
	return p.client.GetSystemUpdate(ctx, p.ID())
}

// UpdateSoftware asks the panel to install the available update. Admin only.
func (p *AlarmPanel) UpdateSoftware(ctx context.Context) error {
	if !p.site.IsAdmin() {
		return &APIError{Message: "updating panel software requires an admin user"}
	}
	return p.client.UpdatePanelSoftware(ctx, p.ID())
}

// Devices returns the panel's device tree.
func (p *AlarmPanel) Devices() []Device { return p.devices }

// Device returns the device with the given id, or nil.
func (p *AlarmPanel) Device(id int64) Device {
	for _, d := range p.devices {
		if d.ID() == id {
			return d
		}
	}
	return nil
}

// UnregisteredDevices returns the remembered identities of deleted devices.
func (p *AlarmPanel) UnregisteredDevices() map[int64]UnregisteredDevice {
	return p.unregistered
}

// Refresh applies a full partition payload. With newDevice set, the payload
// only appends freshly discovered devices instead of replacing the panel's
// own attributes.
func (p *AlarmPanel) Refresh(data map[string]any, newDevice bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshLocked(data, newDevice)
}

func (p *AlarmPanel) refreshLocked(data map[string]any, newDevice bool) {
	if !newDevice {
		p.UpdateData(data, true)
	} else {
		existing := attrMapList(p.data, KeyDevices)
		incoming := attrMapList(data, KeyDevices)
		merged := make([]any, 0, len(existing)+len(incoming))
		for _, d := range existing {
			merged = append(merged, d)
		}
		for _, d := range incoming {
			merged = append(merged, d)
		}
		p.data[KeyDevices] = merged
	}
	p.parseData(data, false)
}

// HandlePush routes a partition push message: panel-level attribute changes
// merge into the panel, device payloads dispatch to the matching device,
// deletes unregister, and creates start a settle task.
func (p *AlarmPanel) HandlePush(ctx context.Context, message map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	operation, _ := attrString(message, KeyOperation)
	rawData, ok := message[KeyData]
	if !ok || rawData == nil {
		p.logger.Debug("partition message without data ignored",
			"panel", p.ID(), "partition", p.PartitionID())
		return
	}
	data, ok := rawData.(map[string]any)
	if !ok {
		return
	}

	devices := attrMapList(data, KeyDevices)
	if len(devices) == 0 {
		// Panel-level change; an empty map is a legal no-op heartbeat.
		p.UpdateData(data, false)
		return
	}

	if operation == OperationCreate {
		// One message may announce several freshly paired devices; merge
		// the batch into the raw device list once, then settle each
		// device on its own.
		p.refreshLocked(data, true)
		for _, deviceData := range devices {
			deviceID, ok := attrInt64(deviceData, KeyID)
			if !ok || deviceID == 0 {
				p.logger.Debug("device payload without id ignored", "panel", p.ID())
				continue
			}
			go p.settleNewDevice(ctx, deviceID)
		}
		return
	}

	for _, deviceData := range devices {
		deviceID, ok := attrInt64(deviceData, KeyID)
		if !ok || deviceID == 0 {
			p.logger.Debug("device payload without id ignored", "panel", p.ID())
			continue
		}

		device := p.Device(deviceID)
		if device == nil {
			p.logger.Debug("message for unknown device ignored",
				"panel", p.ID(), "device", deviceID)
			continue
		}

		if operation == OperationDelete {
			p.removeDevice(device)
			continue
		}

		device.HandlePushUpdate(deviceData)
		// Keep the panel's raw device list in sync with the device.
		for _, raw := range attrMapList(p.data, KeyDevices) {
			if id, _ := attrInt64(raw, KeyID); id == deviceID {
				for k, v := range deviceData {
					raw[k] = v
				}
				break
			}
		}
	}
}

func (p *AlarmPanel) removeDevice(device Device) {
	for i, d := range p.devices {
		if d == device {
			p.devices = append(p.devices[:i], p.devices[i+1:]...)
			break
		}
	}
	raws := attrMapList(p.data, KeyDevices)
	kept := make([]any, 0, len(raws))
	for _, raw := range raws {
		if id, _ := attrInt64(raw, KeyID); id != device.ID() {
			kept = append(kept, raw)
		}
	}
	p.data[KeyDevices] = kept

	p.unregistered[device.ID()] = UnregisteredDevice{
		Name:       device.Name(),
		DeviceType: device.DeviceType(),
	}
	p.Emit(EventDeviceDeleted, map[string]any{EventKeyDevice: device})
}

// settleNewDevice waits for a freshly paired device to finish provisioning,
// then fetches its full payload and announces the discovery. Deleting the
// device mid-settle abandons the task. Runs off the delivery goroutine, so
// every look at panel or device state takes the panel lock.
func (p *AlarmPanel) settleNewDevice(ctx context.Context, deviceID int64) {
	p.mu.Lock()
	panelID := p.ID()
	device := p.Device(deviceID)
	p.mu.Unlock()
	if device == nil {
		return
	}

	for {
		p.mu.Lock()
		valid := device.IsValid()
		_, gone := p.unregistered[deviceID]
		p.mu.Unlock()
		if gone {
			return
		}
		if valid {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(newDevicePollInterval):
		}
	}

	resp, err := p.client.GetDevice(ctx, panelID, deviceID)
	if err != nil {
		p.logger.Error("fetching new device data failed",
			"panel", panelID, "device", deviceID, "error", err)
		return
	}
	system, _ := resp[KeySystem].(map[string]any)
	partitions := attrMapList(system, KeyPartitions)
	if len(partitions) == 0 {
		p.logger.Error("new device payload missing partition data",
			"panel", panelID, "device", deviceID)
		return
	}
	p.mu.Lock()
	p.refreshLocked(partitions[0], true)
	p.Emit(EventDeviceDiscovered, map[string]any{EventKeyDevice: device})
	p.mu.Unlock()
}

// parseData absorbs a partition payload's device and unregistered lists.
// During init every device is new; afterwards known devices are replaced
// in place and unknown ones appended.
func (p *AlarmPanel) parseData(data map[string]any, init bool) {
	for _, deviceData := range attrMapList(data, KeyDevices) {
		var device Device
		if !init {
			if id, ok := attrInt64(deviceData, KeyID); ok {
				device = p.Device(id)
			}
		}
		if device != nil {
			device.UpdateData(deviceData, true)
		} else {
			p.devices = append(p.devices, NewDevice(deviceData, p))
		}
	}

	if ureg := attrMapList(data, KeyUnregistered); len(ureg) > 0 {
		p.unregistered = make(map[int64]UnregisteredDevice, len(ureg))
		for _, entry := range ureg {
			id, ok := attrInt64(entry, KeyID)
			if !ok {
				continue
			}
			name, _ := attrString(entry, KeyName)
			t, _ := attrString(entry, KeyType)
			p.unregistered[id] = UnregisteredDevice{Name: name, DeviceType: DeviceType(t)}
		}
	}
}
