package device

import (
	"context"
	"fmt"
	"strconv"

	"github.com/danmuck/audacd/internal/transport"
)

// Volume bounds, in dB of attenuation.
const (
	VolumeMin = 0
	VolumeMax = 70
)

// Matrix-mixer command surface.
const (
	cmdAllVolumes   = "GVALL"
	replyAllVolumes = "VALL"
	cmdAllRouting   = "GRALL"
	replyAllRouting = "RALL"
	cmdAllMutes     = "GMALL"
	replyAllMutes   = "MALL"
	cmdFirmware     = "GSV"
	replyFirmware   = "SV"
)

// Matrix drives the MTX48/MTX88 matrix-mixer family.
type Matrix struct {
	d     *transport.Dispatcher
	model Model
	zones int
}

// NewMatrix builds a matrix-mixer driver. An explicit zoneCount overrides
// the model default when positive.
func NewMatrix(d *transport.Dispatcher, model Model, zoneCount int) *Matrix {
	if zoneCount <= 0 {
		zoneCount = model.Zones()
	}
	return &Matrix{d: d, model: model, zones: zoneCount}
}

func (m *Matrix) Model() Model { return m.model }

func (m *Matrix) ZoneCount() int { return m.zones }

// State fetches volumes, routing, and mutes with the three bulk commands,
// plus firmware as a best-effort extra. When a bulk read fails and prev
// carries the last completed cycle, that one column is synthesized from
// history so the cycle's other fields stay live; with no history the error
// propagates.
func (m *Matrix) State(ctx context.Context, prev *State) (*State, error) {
	var prevZones map[int]ZoneState
	if prev != nil {
		prevZones = prev.Zones
	}

	volumes, err := m.bulk(ctx, cmdAllVolumes, replyAllVolumes, "volume", prevZones)
	if err != nil {
		return nil, err
	}
	sources, err := m.bulk(ctx, cmdAllRouting, replyAllRouting, "routing", prevZones)
	if err != nil {
		return nil, err
	}
	mutes, err := m.bulk(ctx, cmdAllMutes, replyAllMutes, "mute", prevZones)
	if err != nil {
		return nil, err
	}

	firmware, err := m.d.SendExpect(ctx, cmdFirmware, "0", replyFirmware)
	if err != nil {
		firmware = ""
	}

	zones := make(map[int]ZoneState, m.zones)
	for zone := 1; zone <= m.zones; zone++ {
		hist, hasHist := prevZones[zone]
		var zs ZoneState

		switch {
		case volumes != nil:
			if len(volumes) < zone {
				return nil, fmt.Errorf("%w: zone %d of %d (volume)", ErrTooFewValues, zone, m.zones)
			}
			v, convErr := strconv.Atoi(volumes[zone-1])
			if convErr != nil {
				return nil, fmt.Errorf("%w: %q for zone %d", ErrInvalidVolume, volumes[zone-1], zone)
			}
			zs.VolumeDB = v
		case hasHist:
			zs.VolumeDB = hist.VolumeDB
		}

		switch {
		case sources != nil:
			if len(sources) < zone {
				return nil, fmt.Errorf("%w: zone %d of %d (routing)", ErrTooFewValues, zone, m.zones)
			}
			zs.Source = sources[zone-1]
		case hasHist:
			zs.Source = hist.Source
		default:
			zs.Source = "0"
		}

		switch {
		case mutes != nil:
			if len(mutes) < zone {
				return nil, fmt.Errorf("%w: zone %d of %d (mute)", ErrTooFewValues, zone, m.zones)
			}
			zs.Mute = mutes[zone-1] == "1"
		case hasHist:
			zs.Mute = hist.Mute
		}

		zones[zone] = zs
	}

	return &State{Firmware: firmware, Zones: zones}, nil
}

// bulk runs one list command. On a failed read with history available it
// returns nil values, signalling the caller to substitute previous per-zone
// data. List-shape errors after a successful exchange always propagate.
func (m *Matrix) bulk(ctx context.Context, command, reply, label string, prevZones map[int]ZoneState) ([]string, error) {
	raw, err := m.d.SendExpect(ctx, command, "0", reply)
	if err != nil {
		if prevZones != nil {
			return nil, nil
		}
		return nil, err
	}
	return splitList(raw, label)
}

// SetZoneVolume sets attenuation for one zone. Out-of-range values are
// rejected before any I/O.
func (m *Matrix) SetZoneVolume(ctx context.Context, zone, volumeDB int) error {
	if volumeDB < VolumeMin || volumeDB > VolumeMax {
		return fmt.Errorf("%w: volume %d not in %d..%d", ErrInvalidArgument, volumeDB, VolumeMin, VolumeMax)
	}
	command := fmt.Sprintf("SV%d", zone)
	_, err := m.d.SendExpect(ctx, command, strconv.Itoa(volumeDB), command)
	return err
}

// SetZoneSource routes one input (0..8 as string) to a zone.
func (m *Matrix) SetZoneSource(ctx context.Context, zone int, source string) error {
	command := fmt.Sprintf("SR%d", zone)
	_, err := m.d.SendExpect(ctx, command, source, command)
	return err
}

// SetZoneMute sets mute for one zone. The mute command carries the zone
// index zero-padded to two digits.
func (m *Matrix) SetZoneMute(ctx context.Context, zone int, muted bool) error {
	command := fmt.Sprintf("SM%02d", zone)
	argument := "0"
	if muted {
		argument = "1"
	}
	_, err := m.d.SendExpect(ctx, command, argument, command)
	return err
}

func (m *Matrix) Probe(ctx context.Context) error {
	_, err := m.State(ctx, nil)
	return err
}

func (m *Matrix) Raw(ctx context.Context, command, argument string) (string, error) {
	return m.d.SendRaw(ctx, command, argument)
}
