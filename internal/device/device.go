// Package device translates domain operations on AUDAC hardware into
// command/argument/reply-tag triples and decodes replies into typed state.
// Drivers are stateless transformers over a dispatcher; they never hold
// connections or history.
package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Ack is the literal argument devices return for a successful mutation.
const Ack = "+"

// Model selects the device family and geometry.
type Model string

const (
	ModelMTX48 Model = "mtx48"
	ModelMTX88 Model = "mtx88"
	ModelXMP44 Model = "xmp44"
)

// ZoneCounts by model for the matrix-mixer family.
var modelZones = map[Model]int{
	ModelMTX48: 4,
	ModelMTX88: 8,
}

// SlotCount is fixed for the XMP44 chassis.
const SlotCount = 4

// Zones returns the zone count for a matrix-mixer model, zero otherwise.
func (m Model) Zones() int {
	return modelZones[m]
}

// Known reports whether m names a supported device model.
func (m Model) Known() bool {
	return m == ModelXMP44 || modelZones[m] > 0
}

// Domain-level errors. These indicate malformed device data or a bad caller
// argument, not transience; the dispatcher never retries them.
var (
	ErrInvalidArgument = errors.New("device: argument out of range")
	ErrEmptyList       = errors.New("device: empty list reply")
	ErrTooFewValues    = errors.New("device: too few values in list reply")
	ErrInvalidVolume   = errors.New("device: invalid volume value")
)

// ZoneState is one matrix-mixer output channel. VolumeDB is attenuation:
// 0 is loudest, 70 is quietest.
type ZoneState struct {
	VolumeDB int    `json:"volume_db"`
	Source   string `json:"source"`
	Mute     bool   `json:"mute"`
}

// SlotState is one modular-player bay. Pointer fields are nil when the
// corresponding best-effort read failed this cycle.
type SlotState struct {
	Module       Module  `json:"module"`
	Gain         *int    `json:"gain"`
	PlayerStatus *string `json:"player_status"`
	Song         *string `json:"song"`
	Station      *string `json:"station"`
	Program      *string `json:"program"`
	Info         *string `json:"info"`
	Pairing      *string `json:"pairing"`
}

// State is the aggregate produced by one poll cycle. Zones is populated for
// the matrix-mixer family and Slots for the modular-player family, never
// both. Maps are rebuilt each cycle and never mutated after publication.
type State struct {
	Firmware string            `json:"firmware,omitempty"`
	Zones    map[int]ZoneState `json:"zones,omitempty"`
	Slots    map[int]SlotState `json:"slots,omitempty"`
}

// Driver is the capability contract shared by both device families.
type Driver interface {
	Model() Model
	// State fetches the full aggregate. prev supplies the last completed
	// cycle for drivers that fall back to history on partial failure; it
	// may be nil.
	State(ctx context.Context, prev *State) (*State, error)
	// Probe performs a setup-time reachability check by reading full state.
	Probe(ctx context.Context) error
	// Raw issues one command without reply-tag validation beyond
	// echo-command matching.
	Raw(ctx context.Context, command, argument string) (string, error)
}

// splitList splits a ^-delimited bulk reply, discarding blank tokens.
func splitList(raw, label string) ([]string, error) {
	fields := strings.Split(raw, "^")
	values := make([]string, 0, len(fields))
	for _, field := range fields {
		if v := strings.TrimSpace(field); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyList, label)
	}
	return values, nil
}
