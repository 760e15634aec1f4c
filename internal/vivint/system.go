package vivint

import (
	"context"

	"github.com/nerrad567/skybridge/internal/infrastructure/logging"
)

// Site is one monitored location: the system payload, its alarm panels
// (one per partition) and its provisioned users.
type Site struct {
	Entity
	client *Client
	logger *logging.Logger

	name    string
	isAdmin bool

	panels []*AlarmPanel
	users  []*User
}

// NewSite builds a site from a full system payload.
func NewSite(data map[string]any, client *Client, logger *logging.Logger, name string, isAdmin bool) *Site {
	s := &Site{
		Entity:  newEntity(data, logger),
		client:  client,
		logger:  logger.With("component", "site"),
		name:    name,
		isAdmin: isAdmin,
	}
	body, _ := data[KeySystem].(map[string]any)
	for _, panelData := range attrMapList(body, KeyPartitions) {
		s.panels = append(s.panels, NewAlarmPanel(panelData, s))
	}
	for _, userData := range attrMapList(body, KeyUsers) {
		s.users = append(s.users, NewUser(userData, s))
	}
	return s
}

// ID returns the site's panel id.
func (s *Site) ID() int64 {
	body, _ := s.data[KeySystem].(map[string]any)
	id, _ := attrInt64(body, KeyPanelID)
	return id
}

// Name returns the site's display name.
func (s *Site) Name() string { return s.name }

// IsAdmin reports whether the session user administers the site.
func (s *Site) IsAdmin() bool { return s.isAdmin }

// Panels returns the site's alarm panels.
func (s *Site) Panels() []*AlarmPanel { return s.panels }

// Panel returns the panel with the given partition id, or nil.
func (s *Site) Panel(partitionID int64) *AlarmPanel {
	for _, p := range s.panels {
		if p.PartitionID() == partitionID {
			return p
		}
	}
	return nil
}

// Users returns the site's provisioned users.
func (s *Site) Users() []*User { return s.users }

// User returns the user with the given id, or nil.
func (s *Site) User(id int64) *User {
	for _, u := range s.users {
		if u.ID() == id {
			return u
		}
	}
	return nil
}

// Refresh reloads the site from the cloud and folds the new payload into
// the existing panel tree.
func (s *Site) Refresh(ctx context.Context) error {
	data, err := s.client.GetSystem(ctx, s.ID())
	if err != nil {
		return err
	}
	s.UpdateData(data, true)

	body, _ := data[KeySystem].(map[string]any)
	for _, panelData := range attrMapList(body, KeyPartitions) {
		panid, _ := attrInt64(panelData, KeyPanelID)
		parid, _ := attrInt64(panelData, KeyPartitionID)
		var panel *AlarmPanel
		for _, p := range s.panels {
			if p.ID() == panid && p.PartitionID() == parid {
				panel = p
				break
			}
		}
		if panel != nil {
			panel.Refresh(panelData, false)
		} else {
			s.panels = append(s.panels, NewAlarmPanel(panelData, s))
		}
	}
	return nil
}

// HandlePush routes a push message addressed to this site. System messages
// update users and the site's own attributes; partition messages dispatch
// to the matching alarm panel.
func (s *Site) HandlePush(ctx context.Context, message map[string]any) {
	messageType, _ := attrString(message, KeyType)
	switch messageType {
	case MessageTypeAccountSystem:
		operation, _ := attrString(message, KeyOperation)
		data, _ := message[KeyData].(map[string]any)
		if data == nil || operation != OperationUpdate {
			return
		}
		if rawUsers, ok := data[KeyUsers]; ok && rawUsers != nil {
			s.updateUsers(attrMapList(data, KeyUsers))
			delete(data, KeyUsers)
		}
		s.UpdateData(data, false)

	case MessageTypeAccountPartition:
		partitionID, ok := attrInt64(message, KeyPartitionID)
		if !ok || partitionID == 0 {
			s.logger.Debug("partition message without partition id ignored", "site", s.ID())
			return
		}
		if _, ok := message[KeyData]; !ok {
			// Heartbeats carry no data key at all; an empty map still counts.
			s.logger.Debug("partition message without data ignored",
				"site", s.ID(), "partition", partitionID)
			return
		}
		panel := s.Panel(partitionID)
		if panel == nil {
			s.logger.Debug("no panel for partition",
				"site", s.ID(), "partition", partitionID)
			return
		}
		panel.HandlePush(ctx, message)

	default:
		s.logger.Warn("unknown push message type", "site", s.ID(), "type", messageType)
	}
}

func (s *Site) updateUsers(entries []map[string]any) {
	for _, entry := range entries {
		id, ok := attrInt64(entry, KeyID)
		if !ok {
			continue
		}
		user := s.User(id)
		if user == nil {
			s.logger.Debug("push for unknown user ignored", "site", s.ID(), "user", id)
			continue
		}
		user.HandlePushUpdate(entry)
	}
}
