package vivint

import "context"

// BinarySwitch is an on/off switch or relay module.
type BinarySwitch struct {
	baseDevice
}

// NewBinarySwitch wraps a binary switch payload.
func NewBinarySwitch(data map[string]any, panel *AlarmPanel) *BinarySwitch {
	return &BinarySwitch{baseDevice: newBaseDevice(data, panel)}
}

// IsOn reports whether the switch is on.
func (s *BinarySwitch) IsOn() bool {
	on, _ := attrBool(s.data, AttrState)
	return on
}

// TurnOn switches on.
func (s *BinarySwitch) TurnOn(ctx context.Context) error {
	return s.set(ctx, true)
}

// TurnOff switches off.
func (s *BinarySwitch) TurnOff(ctx context.Context) error {
	return s.set(ctx, false)
}

func (s *BinarySwitch) set(ctx context.Context, on bool) error {
	return s.client().SetSwitchState(ctx, s.panel.ID(), s.panel.PartitionID(), s.ID(), &on, nil)
}

// MultilevelSwitch is a dimmer carrying a 0-100 level.
type MultilevelSwitch struct {
	baseDevice
}

// NewMultilevelSwitch wraps a multilevel switch payload.
func NewMultilevelSwitch(data map[string]any, panel *AlarmPanel) *MultilevelSwitch {
	return &MultilevelSwitch{baseDevice: newBaseDevice(data, panel)}
}

// Level returns the current dimmer level.
func (s *MultilevelSwitch) Level() int {
	lvl, _ := attrInt64(s.data, AttrValue)
	return int(lvl)
}

// IsOn reports whether the dimmer is above zero.
func (s *MultilevelSwitch) IsOn() bool { return s.Level() > 0 }

// SetLevel drives the dimmer to a 0-100 level.
func (s *MultilevelSwitch) SetLevel(ctx context.Context, level int) error {
	return s.client().SetSwitchState(ctx, s.panel.ID(), s.panel.PartitionID(), s.ID(), nil, &level)
}

// TurnOn raises the dimmer to full.
func (s *MultilevelSwitch) TurnOn(ctx context.Context) error {
	return s.SetLevel(ctx, 100)
}

// TurnOff drops the dimmer to zero.
func (s *MultilevelSwitch) TurnOff(ctx context.Context) error {
	return s.SetLevel(ctx, 0)
}
