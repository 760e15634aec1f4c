package vivint

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// jsonContentType is what the cloud expects on state-mutation PUTs.
const jsonContentType = "application/json;charset=utf-8"

// GetAuthUser fetches the authenticated user's profile and the systems it
// can reach.
func (c *Client) GetAuthUser(ctx context.Context) (*AuthUserData, error) {
	resp, err := c.request(ctx, http.MethodGet, "authuser", nil, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	data, err := decodeAuthUserData(resp)
	if err != nil {
		return nil, err
	}
	if len(data.Users) == 0 {
		return nil, &AuthError{Message: "auth user data missing users"}
	}
	return data, nil
}

// GetSystem fetches the full payload for one system.
func (c *Client) GetSystem(ctx context.Context, panelID int64) (map[string]any, error) {
	return c.request(ctx, http.MethodGet, fmt.Sprintf("systems/%d", panelID),
		map[string]string{"Accept-Encoding": "application/json"},
		url.Values{"includerules": {"false"}}, nil, nil)
}

// GetDevice fetches one device's individual payload.
func (c *Client) GetDevice(ctx context.Context, panelID, deviceID int64) (map[string]any, error) {
	return c.request(ctx, http.MethodGet, fmt.Sprintf("system/%d/device/%d", panelID, deviceID),
		map[string]string{"Accept-Encoding": "application/json"}, nil, nil, nil)
}

// GetPanelCredentials fetches the local panel login credentials.
func (c *Client) GetPanelCredentials(ctx context.Context, panelID int64) (*PanelCredentials, error) {
	resp, err := c.request(ctx, http.MethodGet, fmt.Sprintf("panel-login/%d", panelID), nil, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	creds := &PanelCredentials{}
	if err := remarshal(resp, creds); err != nil {
		return nil, err
	}
	return creds, nil
}

// GetSystemUpdate fetches panel software update information.
func (c *Client) GetSystemUpdate(ctx context.Context, panelID int64) (*PanelUpdate, error) {
	resp, err := c.request(ctx, http.MethodGet, fmt.Sprintf("systems/%d/system-update", panelID),
		map[string]string{"Accept-Encoding": "application/json"}, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	update := &PanelUpdate{}
	if err := remarshal(resp, update); err != nil {
		return nil, err
	}
	return update, nil
}

// UpdatePanelSoftware asks the panel to install the available update.
func (c *Client) UpdatePanelSoftware(ctx context.Context, panelID int64) error {
	_, err := c.request(ctx, http.MethodPost, fmt.Sprintf("systems/%d/system-update", panelID), nil, nil, nil, nil)
	return err
}

// RebootPanel reboots the panel.
func (c *Client) RebootPanel(ctx context.Context, panelID int64) error {
	_, err := c.request(ctx, http.MethodPost, fmt.Sprintf("systems/%d/reboot-panel", panelID), nil, nil, nil, nil)
	return err
}

// SetAlarmState arms or disarms a partition.
func (c *Client) SetAlarmState(ctx context.Context, panelID, partitionID int64, state ArmedState) error {
	_, err := c.request(ctx, http.MethodPut,
		fmt.Sprintf("%d/%d/armedstates", panelID, partitionID),
		map[string]string{"Content-Type": "application/json;charset=UTF-8"}, nil,
		map[string]any{
			"system":      panelID,
			"partitionId": partitionID,
			"armState":    int(state),
			"forceArm":    false,
		}, nil)
	return err
}

// TriggerAlarm triggers the partition's alarm.
func (c *Client) TriggerAlarm(ctx context.Context, panelID, partitionID int64) error {
	_, err := c.request(ctx, http.MethodPost,
		fmt.Sprintf("%d/%d/alarm", panelID, partitionID), nil, nil, nil, nil)
	return err
}

// SetLockState locks or unlocks a door lock.
func (c *Client) SetLockState(ctx context.Context, panelID, partitionID, deviceID int64, locked bool) error {
	_, err := c.request(ctx, http.MethodPut,
		fmt.Sprintf("%d/%d/locks/%d", panelID, partitionID, deviceID),
		map[string]string{"Content-Type": jsonContentType}, nil,
		map[string]any{AttrState: locked, KeyID: deviceID}, nil)
	return err
}

// SetGarageDoorState drives a garage door towards the given state.
func (c *Client) SetGarageDoorState(ctx context.Context, panelID, partitionID, deviceID int64, state GarageDoorState) error {
	_, err := c.request(ctx, http.MethodPut,
		fmt.Sprintf("%d/%d/door/%d", panelID, partitionID, deviceID),
		map[string]string{"Content-Type": jsonContentType}, nil,
		map[string]any{AttrState: int(state), KeyID: deviceID}, nil)
	return err
}

// SetSensorState bypasses or unbypasses a sensor.
func (c *Client) SetSensorState(ctx context.Context, panelID, partitionID, deviceID int64, bypass bool) error {
	bypassed := ZoneUnbypassed
	if bypass {
		bypassed = ZoneManuallyBypassed
	}
	_, err := c.request(ctx, http.MethodPut,
		fmt.Sprintf("%d/%d/sensors/%d", panelID, partitionID, deviceID),
		map[string]string{"Content-Type": jsonContentType}, nil,
		map[string]any{AttrBypassed: int(bypassed), KeyID: deviceID}, nil)
	return err
}

// SetSwitchState turns a switch on/off or sets a dimmer level. Exactly one
// of on/level must be provided.
func (c *Client) SetSwitchState(ctx context.Context, panelID, partitionID, deviceID int64, on *bool, level *int) error {
	if on == nil && level == nil {
		return fmt.Errorf("%w: either on or level must be provided", ErrNotSupported)
	}
	if level != nil && (*level < 0 || *level > 100) {
		return &APIError{Message: "level must be between 0 and 100"}
	}

	body := map[string]any{KeyID: deviceID}
	if level != nil {
		body[AttrValue] = *level
	} else {
		body[AttrState] = *on
	}

	_, err := c.request(ctx, http.MethodPut,
		fmt.Sprintf("%d/%d/switches/%d", panelID, partitionID, deviceID),
		map[string]string{"Content-Type": jsonContentType}, nil, body, nil)
	return err
}

// SetThermostatState applies raw thermostat attributes (setpoints, modes).
func (c *Client) SetThermostatState(ctx context.Context, panelID, partitionID, deviceID int64, attrs map[string]any) error {
	_, err := c.request(ctx, http.MethodPut,
		fmt.Sprintf("%d/%d/thermostats/%d", panelID, partitionID, deviceID),
		map[string]string{"Content-Type": jsonContentType}, nil, attrs, nil)
	return err
}

// RequestCameraThumbnail asks a camera to capture a fresh thumbnail. The new
// image is announced asynchronously over the push channel.
func (c *Client) RequestCameraThumbnail(ctx context.Context, panelID, partitionID, deviceID int64) error {
	_, err := c.request(ctx, http.MethodGet,
		fmt.Sprintf("%d/%d/%d/request-camera-thumbnail", panelID, partitionID, deviceID),
		nil, nil, nil, nil)
	return err
}

// GetCameraThumbnailURL resolves the signed URL of the thumbnail captured at
// the given timestamp (milliseconds). Empty when no image is ready yet.
func (c *Client) GetCameraThumbnailURL(ctx context.Context, panelID, partitionID, deviceID int64, thumbnailTimestamp int64) (string, error) {
	resp, err := c.request(ctx, http.MethodGet,
		fmt.Sprintf("%d/%d/%d/camera-thumbnail", panelID, partitionID, deviceID),
		nil, url.Values{"time": {strconv.FormatInt(thumbnailTimestamp, 10)}}, nil, nil)
	if err != nil {
		return "", err
	}
	loc, _ := resp["location"].(string)
	return loc, nil
}
