package vivint

import "context"

// GarageDoor is a garage door opener.
type GarageDoor struct {
	baseDevice
}

// NewGarageDoor wraps a garage door payload.
func NewGarageDoor(data map[string]any, panel *AlarmPanel) *GarageDoor {
	return &GarageDoor{baseDevice: newBaseDevice(data, panel)}
}

// State returns the door's position/motion state.
func (d *GarageDoor) State() GarageDoorState {
	s, ok := attrInt64(d.data, AttrState)
	if !ok {
		return GarageDoorStateUnknown
	}
	return GarageDoorState(s)
}

// IsOpen reports whether the door is open, opening or stopped mid-travel.
func (d *GarageDoor) IsOpen() bool { return d.State().IsOpen() }

// Open raises the door.
func (d *GarageDoor) Open(ctx context.Context) error {
	return d.client().SetGarageDoorState(ctx, d.panel.ID(), d.panel.PartitionID(), d.ID(), GarageDoorStateOpening)
}

// Close lowers the door.
func (d *GarageDoor) Close(ctx context.Context) error {
	return d.client().SetGarageDoorState(ctx, d.panel.ID(), d.panel.PartitionID(), d.ID(), GarageDoorStateClosing)
}
