// Package registry owns the live device sessions: one dispatcher, driver,
// and polling coordinator per configured device.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/danmuck/audacd/internal/config"
	"github.com/danmuck/audacd/internal/coordinator"
	"github.com/danmuck/audacd/internal/device"
	"github.com/danmuck/audacd/internal/transport"
)

var (
	ErrSessionExists   = errors.New("registry: session already exists")
	ErrSessionNotFound = errors.New("registry: session not found")
	ErrUnknownModel    = errors.New("registry: unknown device model")
)

// Session bundles everything the daemon holds for one device.
type Session struct {
	ID    string
	Name  string
	Model device.Model

	Dispatcher  *transport.Dispatcher
	Driver      device.Driver
	Matrix      *device.Matrix
	Player      *device.Player
	Coordinator *coordinator.Coordinator

	ZoneNames   []string
	InputLabels map[string]string

	cancel context.CancelFunc
	done   chan struct{}
}

// Registry is the session map. All methods are safe for concurrent use.
type Registry struct {
	logger zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func New(logger zerolog.Logger) *Registry {
	return &Registry{logger: logger, sessions: make(map[string]*Session)}
}

// build assembles the dispatcher and driver pair for one device entry. The
// model decides which concrete driver backs the session; Player stays nil
// for the matrix-mixer family.
func build(d config.Device, logger zerolog.Logger) (*Session, error) {
	model := device.Model(d.Model)
	if !model.Known() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, d.Model)
	}

	id := d.ID
	if id == "" {
		id = uuid.NewString()
	}

	dispatcher := transport.NewDispatcher(
		transport.Endpoint{Host: d.Host, Port: d.Port}, d.Address, d.SourceID, logger)
	dispatcher.Timeout = d.Timeout()

	s := &Session{
		ID:          id,
		Name:        d.Name,
		Model:       model,
		Dispatcher:  dispatcher,
		ZoneNames:   d.ZoneNames,
		InputLabels: d.InputLabels,
	}
	if model == device.ModelXMP44 {
		s.Player = device.NewPlayer(dispatcher, d.Modules())
		s.Driver = s.Player
	} else {
		s.Matrix = device.NewMatrix(dispatcher, model, d.ZoneCount)
		s.Driver = s.Matrix
	}
	s.Coordinator = coordinator.New(id, s.Driver, s.Player, d.ScanInterval(), logger)
	return s, nil
}

// Open probes the device once and, on success, registers the session and
// starts its polling loop. An unreachable device refuses the session.
func (r *Registry) Open(ctx context.Context, d config.Device) (*Session, error) {
	s, err := build(d, r.logger)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if _, exists := r.sessions[s.ID]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrSessionExists, s.ID)
	}
	r.mu.Unlock()

	if err := s.Driver.Probe(ctx); err != nil {
		return nil, fmt.Errorf("probe %s: %w", s.ID, err)
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.Coordinator.Run(pollCtx)
	}()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.ID]; exists {
		cancel()
		<-s.done
		return nil, fmt.Errorf("%w: %q", ErrSessionExists, s.ID)
	}
	r.sessions[s.ID] = s
	r.logger.Info().Str("device", s.ID).Str("model", string(s.Model)).Msg("session opened")
	return s, nil
}

// Get returns a session by id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	return s, nil
}

// List returns all sessions ordered by id.
func (r *Registry) List() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close stops a session's polling loop and removes it.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	s.cancel()
	<-s.done
	r.logger.Info().Str("device", id).Msg("session closed")
	return nil
}

// CloseAll tears down every session.
func (r *Registry) CloseAll() {
	for _, s := range r.List() {
		_ = r.Close(s.ID)
	}
}

// Probe checks reachability of a device entry without opening a session,
// for setup-time validation.
func Probe(ctx context.Context, d config.Device, logger zerolog.Logger) error {
	s, err := build(d, logger)
	if err != nil {
		return err
	}
	return s.Driver.Probe(ctx)
}
