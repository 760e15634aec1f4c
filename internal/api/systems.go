package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/skybridge/internal/vivint"
)

// openAccount builds and connects the caller's upstream session, with
// all sites and devices loaded. The caller owns the returned account and
// must Disconnect it.
func (s *Server) openAccount(w http.ResponseWriter, r *http.Request) (*vivint.Account, bool) {
	account := s.upstream.ResumeClaims(claimsFrom(r.Context()))
	if _, err := account.Connect(r.Context(), true, false); err != nil {
		writeUpstreamError(w, err)
		return nil, false
	}
	return account, true
}

// resolveSite opens the caller's account and finds the site addressed by
// the {systemID} route parameter.
func (s *Server) resolveSite(w http.ResponseWriter, r *http.Request) (*vivint.Account, *vivint.Site, bool) {
	systemID, err := strconv.ParseInt(chi.URLParam(r, "systemID"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid system id")
		return nil, nil, false
	}

	account, ok := s.openAccount(w, r)
	if !ok {
		return nil, nil, false
	}
	site := account.Site(systemID)
	if site == nil {
		account.Disconnect()
		writeNotFound(w, "system not found")
		return nil, nil, false
	}
	return account, site, true
}

// resolvePanel is resolveSite narrowed to the site's primary partition.
func (s *Server) resolvePanel(w http.ResponseWriter, r *http.Request) (*vivint.Account, *vivint.AlarmPanel, bool) {
	account, site, ok := s.resolveSite(w, r)
	if !ok {
		return nil, nil, false
	}
	panels := site.Panels()
	if len(panels) == 0 {
		account.Disconnect()
		writeNotFound(w, "system has no alarm panel")
		return nil, nil, false
	}
	return account, panels[0], true
}

func (s *Server) handleListSystems(w http.ResponseWriter, r *http.Request) {
	account, ok := s.openAccount(w, r)
	if !ok {
		return
	}
	defer account.Disconnect()

	systems := make([]map[string]any, 0, len(account.Sites()))
	for _, site := range account.Sites() {
		systems = append(systems, systemView(site))
	}
	writeJSON(w, http.StatusOK, map[string]any{"systems": systems})
}

func (s *Server) handleGetSystem(w http.ResponseWriter, r *http.Request) {
	account, site, ok := s.resolveSite(w, r)
	if !ok {
		return
	}
	defer account.Disconnect()

	view := systemView(site)

	users := make([]map[string]any, 0, len(site.Users()))
	for _, user := range site.Users() {
		users = append(users, map[string]any{
			"id":            user.ID(),
			"name":          user.Name(),
			"admin":         user.IsAdmin(),
			"registered":    user.IsRegistered(),
			"remote_access": user.HasRemoteAccess(),
			"lock_ids":      user.LockIDs(),
		})
	}
	view["users"] = users

	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetPanel(w http.ResponseWriter, r *http.Request) {
	account, panel, ok := s.resolvePanel(w, r)
	if !ok {
		return
	}
	defer account.Disconnect()

	writeJSON(w, http.StatusOK, panelView(panel))
}

// panelAction runs one alarm panel operation and answers with the
// panel's resulting view.
func (s *Server) panelAction(w http.ResponseWriter, r *http.Request, action func(context.Context, *vivint.AlarmPanel) error) {
	account, panel, ok := s.resolvePanel(w, r)
	if !ok {
		return
	}
	defer account.Disconnect()

	if err := action(r.Context(), panel); err != nil {
		writeUpstreamError(w, err)
		return
	}
	if s.history != nil {
		s.history.RecordArmedState(panel.ID(), panel.PartitionID(), panel.State().String())
	}
	writeJSON(w, http.StatusOK, panelView(panel))
}

func (s *Server) handleArmStay(w http.ResponseWriter, r *http.Request) {
	s.panelAction(w, r, func(ctx context.Context, p *vivint.AlarmPanel) error { return p.ArmStay(ctx) })
}

func (s *Server) handleArmAway(w http.ResponseWriter, r *http.Request) {
	s.panelAction(w, r, func(ctx context.Context, p *vivint.AlarmPanel) error { return p.ArmAway(ctx) })
}

func (s *Server) handleDisarm(w http.ResponseWriter, r *http.Request) {
	s.panelAction(w, r, func(ctx context.Context, p *vivint.AlarmPanel) error { return p.Disarm(ctx) })
}

func (s *Server) handleTriggerAlarm(w http.ResponseWriter, r *http.Request) {
	s.panelAction(w, r, func(ctx context.Context, p *vivint.AlarmPanel) error { return p.TriggerAlarm(ctx) })
}

var emergencyTypes = map[string]vivint.EmergencyType{
	"fire":    vivint.EmergencyTypeFire,
	"medical": vivint.EmergencyTypeMedical,
	"police":  vivint.EmergencyTypePolice,
}

func (s *Server) handleTriggerEmergency(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	emergency, ok := emergencyTypes[req.Type]
	if !ok {
		writeBadRequest(w, "type must be fire, medical or police")
		return
	}

	account, panel, ok := s.resolvePanel(w, r)
	if !ok {
		return
	}
	defer account.Disconnect()

	if err := panel.TriggerEmergency(r.Context(), emergency); err != nil {
		writeUpstreamError(w, err)
		return
	}
	if s.history != nil {
		s.history.RecordEvent(panel.ID(), 0, "emergency_"+req.Type)
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleRebootPanel(w http.ResponseWriter, r *http.Request) {
	account, panel, ok := s.resolvePanel(w, r)
	if !ok {
		return
	}
	defer account.Disconnect()

	if err := panel.Reboot(r.Context()); err != nil {
		writeUpstreamError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleGetSoftwareUpdate(w http.ResponseWriter, r *http.Request) {
	account, panel, ok := s.resolvePanel(w, r)
	if !ok {
		return
	}
	defer account.Disconnect()

	update, err := panel.SoftwareUpdateDetails(r.Context())
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, update)
}

func (s *Server) handleStartSoftwareUpdate(w http.ResponseWriter, r *http.Request) {
	account, panel, ok := s.resolvePanel(w, r)
	if !ok {
		return
	}
	defer account.Disconnect()

	if err := panel.UpdateSoftware(r.Context()); err != nil {
		writeUpstreamError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
