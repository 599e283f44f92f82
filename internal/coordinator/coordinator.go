// Package coordinator runs the per-device polling loop. It owns the
// aggregate state a device last reported, replaces it wholesale on each
// cycle, and keeps serving the previous snapshot when a cycle fails.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/audacd/internal/device"
	"github.com/danmuck/audacd/internal/observability"
)

// DefaultScanInterval is used when a device does not configure its own.
const DefaultScanInterval = 10 * time.Second

// ErrNoTriggerSupport is returned for trigger operations on a device family
// without contact triggers.
var ErrNoTriggerSupport = errors.New("coordinator: device has no trigger support")

// Snapshot is the read-side view of a coordinator. State may be nil before
// the first successful cycle.
type Snapshot struct {
	State       *device.State
	LastSuccess time.Time
	LastError   error
}

// Coordinator polls one device on a fixed interval and on demand.
type Coordinator struct {
	name     string
	driver   device.Driver
	player   *device.Player
	interval time.Duration
	logger   zerolog.Logger

	mu          sync.RWMutex
	state       *device.State
	lastSuccess time.Time
	lastErr     error

	refresh  chan struct{}
	triggers *TriggerStore
}

// New builds a coordinator for one device. player is non-nil only for the
// modular-player family and unlocks the trigger operations; for every other
// family it stays nil and trigger calls fail with ErrNoTriggerSupport.
func New(name string, driver device.Driver, player *device.Player, interval time.Duration, logger zerolog.Logger) *Coordinator {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	return &Coordinator{
		name:     name,
		driver:   driver,
		player:   player,
		interval: interval,
		logger:   logger.With().Str("device", name).Logger(),
		refresh:  make(chan struct{}, 1),
		triggers: NewTriggerStore(),
	}
}

// Run drives the polling loop until ctx is cancelled. A failed cycle is
// logged and the loop keeps going; the next tick is always attempted.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("initial poll failed")
	}
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("polling stopped")
			return
		case <-ticker.C:
		case <-c.refresh:
		}
		if err := c.Refresh(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("poll failed")
		}
	}
}

// RequestRefresh schedules an extra poll cycle without blocking. Callers use
// it after a mutation so state reflects the change before the next scheduled
// tick.
func (c *Coordinator) RequestRefresh() {
	select {
	case c.refresh <- struct{}{}:
	default:
	}
}

// Refresh runs one poll cycle now, passing the previous snapshot so the
// driver can substitute history for a failed sub-read.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.mu.RLock()
	prev := c.state
	c.mu.RUnlock()

	started := time.Now()
	state, err := c.driver.State(ctx, prev)
	elapsed := time.Since(started)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.lastErr = err
		observability.RecordPoll(c.name, "failure", elapsed)
		return err
	}
	c.state = state
	c.lastSuccess = time.Now()
	c.lastErr = nil
	observability.RecordPoll(c.name, "success", elapsed)
	return nil
}

// Snapshot returns the last completed cycle's view. It never blocks on an
// in-flight poll.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{State: c.state, LastSuccess: c.lastSuccess, LastError: c.lastErr}
}

// Triggers exposes the local trigger store.
func (c *Coordinator) Triggers() *TriggerStore { return c.triggers }

// ExecuteTrigger fires a slot's configured contact trigger and stores the
// resulting description. When the device answers with a bare acknowledgement
// a description is synthesized from the local configuration.
func (c *Coordinator) ExecuteTrigger(ctx context.Context, slot int) (string, error) {
	if c.player == nil {
		return "", ErrNoTriggerSupport
	}
	t := c.triggers.Get(slot)
	reply, err := c.player.Trigger(ctx, slot, t.Contact, t.Action == ActionStart)
	if err != nil {
		return "", err
	}
	description := reply
	if description == "" || description == device.Ack {
		description = fmt.Sprintf("Trigger %d %s", t.Contact, t.Action)
	}
	c.triggers.SetResult(slot, description)
	return description, nil
}
