package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/danmuck/audacd/internal/config"
	"github.com/danmuck/audacd/internal/coordinator"
	"github.com/danmuck/audacd/internal/device"
	"github.com/danmuck/audacd/internal/registry"
)

// statusFor maps the error taxonomy onto HTTP statuses: caller mistakes are
// 400, unknown resources 404, and anything the device or network did 502.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, device.ErrInvalidArgument),
		errors.Is(err, coordinator.ErrNoTriggerSupport),
		errors.Is(err, registry.ErrUnknownModel):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func (s *Server) session(c *gin.Context) (*registry.Session, bool) {
	sess, err := s.registry.Get(c.Param("device"))
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return sess, true
}

func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "parameter " + name + " must be an integer"})
		return 0, false
	}
	return v, true
}

func bindJSON(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func (s *Server) handleReady(c *gin.Context) {
	ready := true
	devices := gin.H{}
	for _, sess := range s.registry.List() {
		snap := sess.Coordinator.Snapshot()
		ok := snap.State != nil
		if !ok {
			ready = false
		}
		devices[sess.ID] = ok
	}
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": ready, "devices": devices})
}

func (s *Server) handleListDevices(c *gin.Context) {
	type entry struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		Model       string    `json:"model"`
		LastSuccess time.Time `json:"last_success"`
		LastError   string    `json:"last_error,omitempty"`
	}
	out := make([]entry, 0)
	for _, sess := range s.registry.List() {
		snap := sess.Coordinator.Snapshot()
		e := entry{
			ID:          sess.ID,
			Name:        sess.Name,
			Model:       string(sess.Model),
			LastSuccess: snap.LastSuccess,
		}
		if snap.LastError != nil {
			e.LastError = snap.LastError.Error()
		}
		out = append(out, e)
	}
	c.JSON(http.StatusOK, gin.H{"devices": out})
}

func (s *Server) handleState(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	snap := sess.Coordinator.Snapshot()
	body := gin.H{
		"id":           sess.ID,
		"name":         sess.Name,
		"model":        sess.Model,
		"state":        snap.State,
		"last_success": snap.LastSuccess,
	}
	if snap.LastError != nil {
		body["last_error"] = snap.LastError.Error()
	}
	if len(sess.ZoneNames) > 0 {
		body["zone_names"] = sess.ZoneNames
	}
	if len(sess.InputLabels) > 0 {
		body["input_labels"] = sess.InputLabels
	}
	c.JSON(http.StatusOK, body)
}

// handleRefresh runs one poll cycle synchronously so the caller reads fresh
// state on the next request.
func (s *Server) handleRefresh(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	if err := sess.Coordinator.Refresh(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "refreshed"})
}

// matrix returns the session's matrix driver or rejects the request when the
// device is not a matrix mixer.
func (s *Server) matrix(c *gin.Context) (*registry.Session, *device.Matrix, bool) {
	sess, ok := s.session(c)
	if !ok {
		return nil, nil, false
	}
	if sess.Matrix == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device has no zones"})
		return nil, nil, false
	}
	return sess, sess.Matrix, true
}

func (s *Server) player(c *gin.Context) (*registry.Session, *device.Player, bool) {
	sess, ok := s.session(c)
	if !ok {
		return nil, nil, false
	}
	if sess.Player == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device has no slots"})
		return nil, nil, false
	}
	return sess, sess.Player, true
}

func (s *Server) handleZoneVolume(c *gin.Context) {
	sess, matrix, ok := s.matrix(c)
	if !ok {
		return
	}
	zone, ok := intParam(c, "zone")
	if !ok {
		return
	}
	var req struct {
		VolumeDB int `json:"volume_db"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := matrix.SetZoneVolume(c.Request.Context(), zone, req.VolumeDB); err != nil {
		fail(c, err)
		return
	}
	sess.Coordinator.RequestRefresh()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleZoneSource(c *gin.Context) {
	sess, matrix, ok := s.matrix(c)
	if !ok {
		return
	}
	zone, ok := intParam(c, "zone")
	if !ok {
		return
	}
	var req struct {
		Source string `json:"source"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := matrix.SetZoneSource(c.Request.Context(), zone, req.Source); err != nil {
		fail(c, err)
		return
	}
	sess.Coordinator.RequestRefresh()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleZoneMute(c *gin.Context) {
	sess, matrix, ok := s.matrix(c)
	if !ok {
		return
	}
	zone, ok := intParam(c, "zone")
	if !ok {
		return
	}
	var req struct {
		Mute bool `json:"mute"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := matrix.SetZoneMute(c.Request.Context(), zone, req.Mute); err != nil {
		fail(c, err)
		return
	}
	sess.Coordinator.RequestRefresh()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSlotGain(c *gin.Context) {
	sess, player, ok := s.player(c)
	if !ok {
		return
	}
	slot, ok := intParam(c, "slot")
	if !ok {
		return
	}
	var req struct {
		Gain int `json:"gain"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := player.SetSlotGain(c.Request.Context(), slot, req.Gain); err != nil {
		fail(c, err)
		return
	}
	sess.Coordinator.RequestRefresh()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSlotPairing(c *gin.Context) {
	sess, player, ok := s.player(c)
	if !ok {
		return
	}
	slot, ok := intParam(c, "slot")
	if !ok {
		return
	}
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if err := player.SetPairing(c.Request.Context(), slot, req.Enabled); err != nil {
		fail(c, err)
		return
	}
	sess.Coordinator.RequestRefresh()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleGetTrigger(c *gin.Context) {
	sess, _, ok := s.player(c)
	if !ok {
		return
	}
	slot, ok := intParam(c, "slot")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Coordinator.Triggers().Get(slot))
}

func (s *Server) handleSetTrigger(c *gin.Context) {
	sess, _, ok := s.player(c)
	if !ok {
		return
	}
	slot, ok := intParam(c, "slot")
	if !ok {
		return
	}
	var req struct {
		Action  *string `json:"action"`
		Contact *int    `json:"contact"`
	}
	if !bindJSON(c, &req) {
		return
	}
	store := sess.Coordinator.Triggers()
	if req.Action != nil {
		if err := store.SetAction(slot, coordinator.TriggerAction(*req.Action)); err != nil {
			fail(c, err)
			return
		}
	}
	if req.Contact != nil {
		store.SetContact(slot, *req.Contact)
	}
	c.JSON(http.StatusOK, store.Get(slot))
}

func (s *Server) handleExecuteTrigger(c *gin.Context) {
	sess, _, ok := s.player(c)
	if !ok {
		return
	}
	slot, ok := intParam(c, "slot")
	if !ok {
		return
	}
	description, err := sess.Coordinator.ExecuteTrigger(c.Request.Context(), slot)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"description": description})
}

// handleRaw is the diagnostics escape hatch: one command straight through
// the dispatcher, then a refresh so polled state catches up with whatever
// the command changed.
func (s *Server) handleRaw(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var req struct {
		Command  string `json:"command"`
		Argument string `json:"argument"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.Command == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "command is required"})
		return
	}
	reply, err := sess.Driver.Raw(c.Request.Context(), req.Command, req.Argument)
	if err != nil {
		fail(c, err)
		return
	}
	sess.Coordinator.RequestRefresh()
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

// handleProbe checks reachability of an ad-hoc endpoint without opening a
// session, for setup-time validation.
func (s *Server) handleProbe(c *gin.Context) {
	var req struct {
		Host     string `json:"host"`
		Port     int    `json:"port"`
		Model    string `json:"model"`
		Address  string `json:"address"`
		SourceID string `json:"source_id"`
		Timeout  int    `json:"timeout"`
	}
	if !bindJSON(c, &req) {
		return
	}
	entry := config.Device{
		ID:         "probe",
		Host:       req.Host,
		Port:       req.Port,
		Model:      req.Model,
		Address:    req.Address,
		SourceID:   req.SourceID,
		TimeoutSec: req.Timeout,
	}
	entry.Normalize()
	if err := validateProbe(entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := registry.Probe(c.Request.Context(), entry, s.logger); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reachable"})
}

func validateProbe(d config.Device) error {
	if d.Host == "" {
		return errors.New("host is required")
	}
	if !device.Model(d.Model).Known() {
		return errors.New("unknown model " + strconv.Quote(d.Model))
	}
	return nil
}
