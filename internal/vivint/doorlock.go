package vivint

import "context"

// DoorLock is a z-wave door lock.
type DoorLock struct {
	baseDevice
}

// NewDoorLock wraps a door lock payload.
func NewDoorLock(data map[string]any, panel *AlarmPanel) *DoorLock {
	return &DoorLock{baseDevice: newBaseDevice(data, panel)}
}

// IsLocked reports whether the lock is engaged.
func (d *DoorLock) IsLocked() bool {
	locked, _ := attrBool(d.data, AttrState)
	return locked
}

// UserCodeIDs returns the ids of the user codes programmed on the lock.
func (d *DoorLock) UserCodeIDs() []int64 {
	return attrInt64List(d.data, AttrUserCodeList)
}

// Lock engages the lock.
func (d *DoorLock) Lock(ctx context.Context) error {
	return d.client().SetLockState(ctx, d.panel.ID(), d.panel.PartitionID(), d.ID(), true)
}

// Unlock disengages the lock.
func (d *DoorLock) Unlock(ctx context.Context) error {
	return d.client().SetLockState(ctx, d.panel.ID(), d.panel.PartitionID(), d.ID(), false)
}
