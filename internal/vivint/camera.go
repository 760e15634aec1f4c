package vivint

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Ping cameras report direct access as available but keep a VPN tunnel to
// the panel that blocks it in practice, so direct URLs are withheld for them.
var skipDirectAccess = map[string]bool{
	"alpha_cs6022_camera_device": true,
}

// cameraInfo maps an actual-type tag to manufacturer and model.
var cameraInfo = map[string][2]string{
	"alpha_cs6022_camera_device":     {"Vivint", "Indoor Camera (CS6022)"},
	"camera_device":                  {"", "Generic Camera Device"},
	"hd100_camera_device":            {"LG", "HD 100 Camera"},
	"lgit_hd110_camera_device":       {"LG", "HD 110 Camera"},
	"panel_camera_device":            {"", "Panel Camera"},
	"touch_link_camera_device":       {"", "Panel Camera"},
	"vivint_dbc300_camera_device":    {"Vivint", "Doorbell Camera Pro Gen 1 (DBC300)"},
	"vivint_dbc301_camera_device":    {"Vivint", "Doorbell Camera Pro Gen 1 (DBC301)"},
	"vivint_dbc350_camera_device":    {"Vivint", "Doorbell Camera Pro Gen 2 (DBC350)"},
	"vivint_idc350_camera_device":    {"Vivint", "Indoor Camera Pro (IDC350)"},
	"vivint_odc300_camera_device":    {"Vivint", "Outdoor Camera Pro Gen 1 (ODC300)"},
	"vivint_odc350_camera_device":    {"Vivint", "Outdoor Camera Pro Gen 2 (ODC350)"},
	"vivotek_520ir_camera_device":    {"Vivotek", "Fixed Camera (V520IR)"},
	"vivotek_620pt_camera_device":    {"Vivotek", "Pan and Tilt Camera (V620PT)"},
	"vivotek_720_camera_device":      {"Vivotek", "Outdoor Camera (V720)"},
	"vivotek_720w_camera_device":     {"Vivotek", "Wireless Outdoor Camera (V720W)"},
	"vivotek_721w_camera_device":     {"Vivotek", "Wireless Outdoor Camera (V721W)"},
	"vivotek_cc8130_camera_device":   {"Vivotek", "Dome Camera (CC8130)"},
	"vivotek_db8331w_camera_device":  {"Vivotek", "Doorbell Camera (DB8331W)"},
	"vivotek_db8332_camera_device":   {"Vivotek", "Doorbell Camera v2 (DB8332)"},
	"vivotek_db8332s1_camera_device": {"Vivotek", "Doorbell Camera 2S1 (DB8332S1)"},
	"vivotek_db8332sw_camera_device": {"Vivotek", "Doorbell Camera v2s (DB8332SW)"},
	"vivotek_fd8134v_camera_device":  {"Vivotek", "Dome Camera (FD8134V)"},
	"vivotek_fd8151v_camera_device":  {"Vivotek", "Dome Camera (FD8151V)"},
	"vivotek_hd400w_camera_device":   {"Vivotek", "Outdoor Camera v2 (HD400W)"},
	"vivotek_hdp450_camera_device":   {"Vivotek", "Outdoor Camera (HDP450)"},
}

// RTSPAccess selects which network path an RTSP URL traverses.
type RTSPAccess int

const (
	// RTSPAccessLocal streams straight from the camera on the LAN.
	RTSPAccessLocal RTSPAccess = iota
	// RTSPAccessPanel streams through the panel on the LAN.
	RTSPAccessPanel
	// RTSPAccessExternal streams through the Vivint cloud relay.
	RTSPAccessExternal
)

// Camera is a Vivint camera or video doorbell.
type Camera struct {
	baseDevice
}

// NewCamera wraps a camera payload.
func NewCamera(data map[string]any, panel *AlarmPanel) *Camera {
	return &Camera{baseDevice: newBaseDevice(data, panel)}
}

// Manufacturer returns the camera maker derived from its actual type.
func (c *Camera) Manufacturer() string {
	if info, ok := cameraInfo[c.actualType()]; ok {
		return info[0]
	}
	return c.baseDevice.Manufacturer()
}

// Model returns the camera model derived from its actual type.
func (c *Camera) Model() string {
	if info, ok := cameraInfo[c.actualType()]; ok {
		return info[1]
	}
	return string(c.DeviceType())
}

func (c *Camera) actualType() string {
	act, _ := attrString(c.data, AttrActualType)
	return act
}

// SerialNumber returns the camera's MAC address; cameras have no serial.
func (c *Camera) SerialNumber() string { return c.MACAddress() }

// MACAddress returns the camera's MAC address.
func (c *Camera) MACAddress() string {
	mac, _ := attrString(c.data, AttrCameraMAC)
	return mac
}

// IPAddress returns the camera's LAN address.
func (c *Camera) IPAddress() string {
	ip, _ := attrString(c.data, AttrCameraIPAddress)
	return ip
}

// PrivacyMode reports whether the camera lens is disabled.
func (c *Camera) PrivacyMode() bool {
	p, _ := attrBool(c.data, AttrCameraPrivacy)
	return p
}

// DeterMode reports whether active deterrence is on duty.
func (c *Camera) DeterMode() bool {
	d, _ := attrBool(c.data, AttrDeterOnDuty)
	return d
}

// CaptureClipOnMotion reports whether motion events record clips.
func (c *Camera) CaptureClipOnMotion() bool {
	v, _ := attrBool(c.data, AttrCaptureClipOnMotion)
	return v
}

// ExtendChime reports whether the camera doubles as a doorbell chime.
func (c *Camera) ExtendChime() bool {
	v, _ := attrBool(c.data, AttrCameraExtendChime)
	return v
}

// WirelessSignalStrength returns the camera's reported signal strength.
func (c *Camera) WirelessSignalStrength() int {
	v, _ := attrInt64(c.data, AttrWirelessSignalStrength)
	return int(v)
}

// IsDoorbell reports whether the camera rings.
func (c *Camera) IsDoorbell() bool {
	_, ok := c.data[AttrDingDong]
	return ok
}

// RequestThumbnail asks the camera for a fresh snapshot. The result is
// announced over the push channel as a thumbnail-ready event.
func (c *Camera) RequestThumbnail(ctx context.Context) error {
	return c.client().RequestCameraThumbnail(ctx, c.panel.ID(), c.panel.PartitionID(), c.ID())
}

// ThumbnailURL resolves the signed URL of the most recent snapshot.
func (c *Camera) ThumbnailURL(ctx context.Context) (string, error) {
	raw, ok := attrString(c.data, AttrCameraThumbnailDate)
	if !ok || raw == "" {
		return "", fmt.Errorf("%w: no thumbnail recorded", ErrNotSupported)
	}
	// The timestamp arrives with or without a trailing Z.
	ts, err := time.Parse("2006-01-02T15:04:05.999999", strings.TrimSuffix(raw, "Z"))
	if err != nil {
		return "", fmt.Errorf("parsing thumbnail date %q: %w", raw, err)
	}
	return c.client().GetCameraThumbnailURL(ctx, c.panel.ID(), c.panel.PartitionID(), c.ID(), ts.UnixMilli())
}

// DirectRTSPURL returns the LAN stream URL, or "" when the camera does not
// support direct access.
func (c *Camera) DirectRTSPURL(hd bool) string {
	if avail, _ := attrBool(c.data, AttrCameraDirectAvailable); !avail || skipDirectAccess[c.actualType()] {
		return ""
	}
	pathAttr := AttrCameraDirectStreamPath
	if !hd {
		pathAttr = AttrCameraDirectStreamPathSD
	}
	path, _ := attrString(c.data, pathAttr)
	user, _ := attrString(c.data, AttrUsername)
	pass, _ := attrString(c.data, AttrPassword)
	port, _ := attrInt64(c.data, AttrCameraIPPort)
	return fmt.Sprintf("rtsp://%s:%s@%s:%d/%s", user, pass, c.IPAddress(), port, path)
}

// RTSPURL returns a stream URL through the panel or the cloud relay. Both
// require panel credentials, fetched through the panel when not yet cached.
func (c *Camera) RTSPURL(ctx context.Context, access RTSPAccess, hd bool) (string, error) {
	if access == RTSPAccessLocal {
		return c.DirectRTSPURL(hd), nil
	}
	creds, err := c.panel.Credentials(ctx)
	if err != nil {
		return "", err
	}

	var attr string
	switch {
	case access == RTSPAccessPanel && hd:
		attr = AttrCameraInternalURL
	case access == RTSPAccessPanel:
		attr = AttrCameraInternalURLSD
	case hd:
		attr = AttrCameraExternalURL
	default:
		attr = AttrCameraExternalURLSD
	}

	urls := attrStringList(c.data, attr)
	if len(urls) == 0 {
		return "", fmt.Errorf("%w: no %s stream url", ErrNotSupported, accessName(access))
	}
	u := urls[0]
	if len(u) < 7 {
		return "", fmt.Errorf("malformed stream url %q", u)
	}
	// Splice credentials in after the rtsp:// scheme.
	return u[:7] + creds.Name + ":" + creds.Password + "@" + u[7:], nil
}

// Reboot power-cycles the camera through the streaming control service.
func (c *Camera) Reboot(ctx context.Context) error {
	return c.client().RebootCamera(ctx, c.panel.ID(), c.ID(), string(c.DeviceType()))
}

// SetPrivacyMode toggles the privacy shutter. Admin only.
func (c *Camera) SetPrivacyMode(ctx context.Context, on bool) error {
	if !c.panel.site.IsAdmin() {
		return fmt.Errorf("%w: privacy mode requires an admin user", ErrNotSupported)
	}
	return c.client().SetCameraPrivacyMode(ctx, c.panel.ID(), c.ID(), on)
}

// SetDeterMode toggles active deterrence. Admin only.
func (c *Camera) SetDeterMode(ctx context.Context, on bool) error {
	if !c.panel.site.IsAdmin() {
		return fmt.Errorf("%w: deter mode requires an admin user", ErrNotSupported)
	}
	return c.client().SetCameraDeterMode(ctx, c.panel.ID(), c.ID(), on)
}

// SetExtendChime toggles use as a doorbell chime extender.
func (c *Camera) SetExtendChime(ctx context.Context, on bool) error {
	return c.client().SetCameraChimeExtender(ctx, c.panel.ID(), c.ID(), on)
}

// HandlePushUpdate classifies camera push messages into the disjoint camera
// events after applying the attribute merge.
func (c *Camera) HandlePushUpdate(data map[string]any) {
	c.baseDevice.HandlePushUpdate(data)

	event := ""
	switch {
	case truthy(data[AttrCameraThumbnailDate]):
		event = EventThumbnailReady
	case truthy(data[AttrDingDong]):
		event = EventDoorbellDing
	case keysExactly(data, KeyID, KeyType):
		event = EventVideoReady
	case truthy(data[AttrVisitorDetected]),
		keysExactly(data, KeyID, AttrActualType, AttrState),
		keysExactly(data, KeyID, AttrDeterOnDuty, KeyType):
		event = EventMotionDetected
	}
	if event != "" {
		c.Emit(event, map[string]any{EventKeyDevice: c, "message": data})
	}
}

// truthy mirrors loose wire semantics: nil, false, 0 and "" are falsy.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case string:
		return t != ""
	}
	return true
}

// keysExactly reports whether the map's key set is exactly the given keys.
func keysExactly(data map[string]any, keys ...string) bool {
	if len(data) != len(keys) {
		return false
	}
	for _, k := range keys {
		if _, ok := data[k]; !ok {
			return false
		}
	}
	return true
}

// attrStringList reads an attribute that is a list of strings, coercing a
// bare string into a single-element list.
func attrStringList(data map[string]any, key string) []string {
	switch t := data[key].(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return t
	}
	return nil
}

func accessName(access RTSPAccess) string {
	if access == RTSPAccessPanel {
		return "panel"
	}
	return "external"
}
