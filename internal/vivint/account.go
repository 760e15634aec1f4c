package vivint

import (
	"context"

	"github.com/nerrad567/skybridge/internal/infrastructure/logging"
)

// Account is one authenticated view of the cloud: the upstream session,
// the loaded sites and the optional realtime stream.
type Account struct {
	client *Client
	stream *PushStream
	logger *logging.Logger

	sites       []*Site
	connected   bool
	loadDevices bool
}

// NewAccount wraps an upstream client. The stream may be nil when realtime
// updates are not wanted.
func NewAccount(client *Client, stream *PushStream, logger *logging.Logger) *Account {
	return &Account{
		client: client,
		stream: stream,
		logger: logger.With("component", "account"),
	}
}

// Client returns the upstream session client.
func (a *Account) Client() *Client { return a.client }

// Connected reports whether Connect has succeeded.
func (a *Account) Connected() bool { return a.connected }

// RefreshToken returns the upstream refresh token of the current session.
func (a *Account) RefreshToken() string {
	if t := a.client.Tokens(); t != nil {
		return t.RefreshToken
	}
	return ""
}

// Sites returns the loaded sites.
func (a *Account) Sites() []*Site { return a.sites }

// Site returns the site with the given panel id, or nil.
func (a *Account) Site(id int64) *Site {
	for _, s := range a.sites {
		if s.ID() == id {
			return s
		}
	}
	return nil
}

// Connect authenticates and fetches the account profile. With loadDevices
// set, every reachable site is loaded; with subscribe set, the realtime
// stream starts and routes push messages into the site tree.
func (a *Account) Connect(ctx context.Context, loadDevices, subscribe bool) (*AuthUserData, error) {
	a.logger.Debug("connecting upstream")
	a.loadDevices = loadDevices

	if err := a.client.Connect(ctx); err != nil {
		return nil, err
	}
	authData, err := a.client.GetAuthUser(ctx)
	if err != nil {
		return nil, err
	}
	a.connected = true

	if subscribe && a.stream != nil {
		if err := a.stream.Subscribe(ctx, authData.PrimaryUser(), a.HandlePushMessage); err != nil {
			return nil, err
		}
	}
	if loadDevices {
		if err := a.Refresh(ctx, authData); err != nil {
			return nil, err
		}
	}
	return authData, nil
}

// VerifyMfa completes a login parked behind a multi-factor challenge.
func (a *Account) VerifyMfa(ctx context.Context, code string) error {
	if err := a.client.VerifyMfa(ctx, code); err != nil {
		return err
	}
	a.connected = true
	if a.loadDevices {
		return a.Refresh(ctx, nil)
	}
	return nil
}

// Refresh reloads every site the account can reach, creating sites on
// first sight and refreshing known ones in place.
func (a *Account) Refresh(ctx context.Context, authData *AuthUserData) error {
	if authData == nil {
		var err error
		authData, err = a.client.GetAuthUser(ctx)
		if err != nil {
			return err
		}
	}
	user := authData.PrimaryUser()
	if user == nil {
		return nil
	}

	for _, summary := range user.Systems {
		site := a.Site(int64(summary.PanelID))
		if site != nil {
			if err := site.Refresh(ctx); err != nil {
				return err
			}
			continue
		}
		data, err := a.client.GetSystem(ctx, int64(summary.PanelID))
		if err != nil {
			return err
		}
		a.sites = append(a.sites, NewSite(data, a.client, a.logger, summary.Name, bool(summary.Admin)))
	}
	a.logger.Debug("sites refreshed", "count", len(user.Systems))
	return nil
}

// HandlePushMessage routes a push message to the site it addresses.
// Messages without a recognisable panel id are dropped.
func (a *Account) HandlePushMessage(ctx context.Context, message map[string]any) {
	panelID, ok := attrInt64(message, KeyPanelID)
	if !ok || panelID == 0 {
		a.logger.Debug("push message without panel id ignored")
		return
	}
	site := a.Site(panelID)
	if site == nil {
		a.logger.Debug("push message for unknown site ignored", "panel", panelID)
		return
	}
	site.HandlePush(ctx, message)
}

// Disconnect stops the stream and drops the upstream session. Idempotent.
func (a *Account) Disconnect() {
	a.logger.Debug("disconnecting upstream")
	if a.stream != nil {
		a.stream.Disconnect()
	}
	a.client.Disconnect()
	a.connected = false
}
