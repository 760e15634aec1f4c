package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/skybridge/internal/vivint"
)

// resolveDevice opens the caller's account and finds the device
// addressed by the {systemID}/{deviceID} route parameters, searching
// every partition of the site.
func (s *Server) resolveDevice(w http.ResponseWriter, r *http.Request) (*vivint.Account, vivint.Device, bool) {
	deviceID, err := strconv.ParseInt(chi.URLParam(r, "deviceID"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid device id")
		return nil, nil, false
	}

	account, site, ok := s.resolveSite(w, r)
	if !ok {
		return nil, nil, false
	}
	for _, panel := range site.Panels() {
		if device := panel.Device(deviceID); device != nil {
			return account, device, true
		}
	}
	account.Disconnect()
	writeNotFound(w, "device not found")
	return nil, nil, false
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	account, site, ok := s.resolveSite(w, r)
	if !ok {
		return
	}
	defer account.Disconnect()

	devices := make([]map[string]any, 0)
	for _, panel := range site.Panels() {
		for _, device := range panel.Devices() {
			devices = append(devices, deviceView(device))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices})
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	account, device, ok := s.resolveDevice(w, r)
	if !ok {
		return
	}
	defer account.Disconnect()

	writeJSON(w, http.StatusOK, deviceView(device))
}

// deviceAction resolves a device, checks it supports the action's
// variant and runs it. An action on the wrong device variant is a
// client mistake, not an upstream failure.
func (s *Server) deviceAction(w http.ResponseWriter, r *http.Request, action func(context.Context, vivint.Device) error) {
	account, device, ok := s.resolveDevice(w, r)
	if !ok {
		return
	}
	defer account.Disconnect()

	if err := action(r.Context(), device); err != nil {
		writeUpstreamError(w, err)
		return
	}
	if s.history != nil {
		s.history.RecordDeviceState(device.Panel().ID(), device.ID(), string(device.DeviceType()), stateFields(device))
	}
	writeJSON(w, http.StatusOK, deviceView(device))
}

// stateFields picks the attributes worth recording after an action.
func stateFields(device vivint.Device) map[string]any {
	switch d := device.(type) {
	case *vivint.BinarySwitch:
		return map[string]any{"on": d.IsOn()}
	case *vivint.MultilevelSwitch:
		return map[string]any{"level": d.Level()}
	case *vivint.DoorLock:
		return map[string]any{"locked": d.IsLocked()}
	case *vivint.GarageDoor:
		return map[string]any{"open": d.IsOpen()}
	case *vivint.WirelessSensor:
		return map[string]any{"bypassed": d.IsBypassed()}
	case *vivint.Camera:
		return map[string]any{"privacy": d.PrivacyMode(), "deter": d.DeterMode()}
	}
	return nil
}

func (s *Server) handleLock(w http.ResponseWriter, r *http.Request) {
	s.deviceAction(w, r, func(ctx context.Context, d vivint.Device) error {
		lock, ok := d.(*vivint.DoorLock)
		if !ok {
			return vivint.ErrNotSupported
		}
		return lock.Lock(ctx)
	})
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	s.deviceAction(w, r, func(ctx context.Context, d vivint.Device) error {
		lock, ok := d.(*vivint.DoorLock)
		if !ok {
			return vivint.ErrNotSupported
		}
		return lock.Unlock(ctx)
	})
}

func (s *Server) handleSwitchOn(w http.ResponseWriter, r *http.Request) {
	s.deviceAction(w, r, func(ctx context.Context, d vivint.Device) error {
		switch sw := d.(type) {
		case *vivint.BinarySwitch:
			return sw.TurnOn(ctx)
		case *vivint.MultilevelSwitch:
			return sw.TurnOn(ctx)
		}
		return vivint.ErrNotSupported
	})
}

func (s *Server) handleSwitchOff(w http.ResponseWriter, r *http.Request) {
	s.deviceAction(w, r, func(ctx context.Context, d vivint.Device) error {
		switch sw := d.(type) {
		case *vivint.BinarySwitch:
			return sw.TurnOff(ctx)
		case *vivint.MultilevelSwitch:
			return sw.TurnOff(ctx)
		}
		return vivint.ErrNotSupported
	})
}

func (s *Server) handleSetLevel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Level int `json:"level"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	s.deviceAction(w, r, func(ctx context.Context, d vivint.Device) error {
		sw, ok := d.(*vivint.MultilevelSwitch)
		if !ok {
			return vivint.ErrNotSupported
		}
		return sw.SetLevel(ctx, req.Level)
	})
}

func (s *Server) handleGarageOpen(w http.ResponseWriter, r *http.Request) {
	s.deviceAction(w, r, func(ctx context.Context, d vivint.Device) error {
		door, ok := d.(*vivint.GarageDoor)
		if !ok {
			return vivint.ErrNotSupported
		}
		return door.Open(ctx)
	})
}

func (s *Server) handleGarageClose(w http.ResponseWriter, r *http.Request) {
	s.deviceAction(w, r, func(ctx context.Context, d vivint.Device) error {
		door, ok := d.(*vivint.GarageDoor)
		if !ok {
			return vivint.ErrNotSupported
		}
		return door.Close(ctx)
	})
}

func (s *Server) handleBypass(w http.ResponseWriter, r *http.Request) {
	s.deviceAction(w, r, func(ctx context.Context, d vivint.Device) error {
		sensor, ok := d.(*vivint.WirelessSensor)
		if !ok {
			return vivint.ErrNotSupported
		}
		return sensor.Bypass(ctx)
	})
}

func (s *Server) handleUnbypass(w http.ResponseWriter, r *http.Request) {
	s.deviceAction(w, r, func(ctx context.Context, d vivint.Device) error {
		sensor, ok := d.(*vivint.WirelessSensor)
		if !ok {
			return vivint.ErrNotSupported
		}
		return sensor.Unbypass(ctx)
	})
}

func (s *Server) handleSetThermostat(w http.ResponseWriter, r *http.Request) {
	var attrs map[string]any
	if !decodeBody(w, r, &attrs) {
		return
	}
	if len(attrs) == 0 {
		writeBadRequest(w, "no thermostat attributes given")
		return
	}
	s.deviceAction(w, r, func(ctx context.Context, d vivint.Device) error {
		thermostat, ok := d.(*vivint.Thermostat)
		if !ok {
			return vivint.ErrNotSupported
		}
		return thermostat.SetState(ctx, attrs)
	})
}

// onOffBody decodes the {"on": bool} body shared by the camera toggles.
func onOffBody(w http.ResponseWriter, r *http.Request) (bool, bool) {
	var req struct {
		On bool `json:"on"`
	}
	if !decodeBody(w, r, &req) {
		return false, false
	}
	return req.On, true
}

func (s *Server) handleRebootCamera(w http.ResponseWriter, r *http.Request) {
	s.deviceAction(w, r, func(ctx context.Context, d vivint.Device) error {
		camera, ok := d.(*vivint.Camera)
		if !ok {
			return vivint.ErrNotSupported
		}
		return camera.Reboot(ctx)
	})
}

func (s *Server) handleSetPrivacy(w http.ResponseWriter, r *http.Request) {
	on, ok := onOffBody(w, r)
	if !ok {
		return
	}
	s.deviceAction(w, r, func(ctx context.Context, d vivint.Device) error {
		camera, isCam := d.(*vivint.Camera)
		if !isCam {
			return vivint.ErrNotSupported
		}
		return camera.SetPrivacyMode(ctx, on)
	})
}

func (s *Server) handleSetDeter(w http.ResponseWriter, r *http.Request) {
	on, ok := onOffBody(w, r)
	if !ok {
		return
	}
	s.deviceAction(w, r, func(ctx context.Context, d vivint.Device) error {
		camera, isCam := d.(*vivint.Camera)
		if !isCam {
			return vivint.ErrNotSupported
		}
		return camera.SetDeterMode(ctx, on)
	})
}

func (s *Server) handleSetChimeExtender(w http.ResponseWriter, r *http.Request) {
	on, ok := onOffBody(w, r)
	if !ok {
		return
	}
	s.deviceAction(w, r, func(ctx context.Context, d vivint.Device) error {
		camera, isCam := d.(*vivint.Camera)
		if !isCam {
			return vivint.ErrNotSupported
		}
		return camera.SetExtendChime(ctx, on)
	})
}

// Snapshot polling: the cloud generates a fresh thumbnail out of band,
// so the handler asks for one and polls the thumbnail URL endpoint until
// it answers or the poll window closes.
var (
	snapshotPollInterval = 500 * time.Millisecond
	snapshotPollBudget   = 6 * time.Second
)

// handleSnapshot requests a fresh camera thumbnail and redirects to its
// download URL once the cloud has produced it.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	account, device, ok := s.resolveDevice(w, r)
	if !ok {
		return
	}
	defer account.Disconnect()

	camera, isCam := device.(*vivint.Camera)
	if !isCam {
		writeBadRequest(w, vivint.ErrNotSupported.Error())
		return
	}
	ctx := r.Context()

	// refresh=false serves whatever thumbnail the cloud already holds.
	if r.URL.Query().Get("refresh") != "false" {
		if err := camera.RequestThumbnail(ctx); err != nil {
			writeUpstreamError(w, err)
			return
		}
	}

	deadline := time.Now().Add(snapshotPollBudget)
	for {
		url, err := camera.ThumbnailURL(ctx)
		if err == nil && url != "" {
			if s.saver != nil {
				if path, err := s.saver.SaveThumbnail(ctx, device.Panel().ID(), camera.ID(), url); err == nil {
					s.logger.Debug("snapshot captured", "path", path)
				}
			}
			http.Redirect(w, r, url, http.StatusFound)
			return
		}
		if time.Now().After(deadline) {
			writeError(w, http.StatusGatewayTimeout, ErrCodeUpstream, "snapshot not ready")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(snapshotPollInterval):
		}
	}
}

// handleRTSPURL returns the stream URL for a camera. The access query
// parameter picks the route (direct, panel, external); hd switches
// between the HD and SD stream.
func (s *Server) handleRTSPURL(w http.ResponseWriter, r *http.Request) {
	account, device, ok := s.resolveDevice(w, r)
	if !ok {
		return
	}
	defer account.Disconnect()

	camera, isCam := device.(*vivint.Camera)
	if !isCam {
		writeBadRequest(w, vivint.ErrNotSupported.Error())
		return
	}

	hd := r.URL.Query().Get("hd") != "false"
	var access vivint.RTSPAccess
	switch r.URL.Query().Get("access") {
	case "", "direct":
		access = vivint.RTSPAccessLocal
	case "panel":
		access = vivint.RTSPAccessPanel
	case "external":
		access = vivint.RTSPAccessExternal
	default:
		writeBadRequest(w, "access must be direct, panel or external")
		return
	}

	url, err := camera.RTSPURL(r.Context(), access, hd)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	if url == "" {
		writeNotFound(w, "camera does not expose this stream")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": url})
}
