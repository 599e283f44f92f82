package device

import (
	"context"
	"fmt"
	"strconv"

	"github.com/danmuck/audacd/internal/transport"
)

// Trigger contact bounds for the FMP40 voice file player.
const (
	TriggerContactMin = 1
	TriggerContactMax = 15
)

// Modular-player command surface. Per-slot query tags are suffixed with the
// slot index; the reply tag is the query tag without its G prefix.
const (
	cmdModuleTypes   = "GTPS"
	replyModuleTypes = "TPS"

	slotGain    = "GN"
	slotStatus  = "PST"
	slotSong    = "SNG"
	slotStation = "STA"
	slotProgram = "PRG"
	slotInfo    = "INF"
	slotPairing = "PAIR"
)

// Player drives the XMP44 modular source-player chassis.
type Player struct {
	d          *transport.Dispatcher
	configured map[int]Module
}

// NewPlayer builds a modular-player driver. configured carries per-slot
// module overrides; values are normalized so legacy aliases resolve to
// their canonical successor. Missing slots behave as ModuleAuto.
func NewPlayer(d *transport.Dispatcher, configured map[int]Module) *Player {
	normalized := make(map[int]Module, len(configured))
	for slot, module := range configured {
		normalized[slot] = NormalizeModule(string(module))
	}
	return &Player{d: d, configured: normalized}
}

func (p *Player) Model() Model { return ModelXMP44 }

// State reads the detected module types in one bulk command, reconciles
// them with configured overrides, then queries each populated slot's
// fields. Per-slot queries are best-effort: a failed read leaves that one
// field nil instead of aborting the slot.
func (p *Player) State(ctx context.Context, prev *State) (*State, error) {
	raw, err := p.d.SendExpect(ctx, cmdModuleTypes, "0", replyModuleTypes)
	if err != nil {
		return nil, err
	}
	codes, err := splitList(raw, "module types")
	if err != nil {
		return nil, err
	}

	slots := make(map[int]SlotState, SlotCount)
	for slot := 1; slot <= SlotCount; slot++ {
		detected := ModuleNone
		if len(codes) >= slot {
			detected = moduleFromTypeCode(codes[slot-1])
		}

		ss := SlotState{Module: p.effectiveModule(slot, detected)}
		if ss.Module == ModuleNone {
			slots[slot] = ss
			continue
		}

		ss.Gain = p.intQuery(ctx, slotGain, slot)
		ss.PlayerStatus = p.strQuery(ctx, slotStatus, slot)
		ss.Song = p.strQuery(ctx, slotSong, slot)
		ss.Station = p.strQuery(ctx, slotStation, slot)
		ss.Program = p.strQuery(ctx, slotProgram, slot)
		ss.Info = p.strQuery(ctx, slotInfo, slot)
		ss.Pairing = p.strQuery(ctx, slotPairing, slot)
		slots[slot] = ss
	}

	return &State{Slots: slots}, nil
}

// effectiveModule resolves a slot's module: the configured override wins
// unless it is auto, then the detected value, then none.
func (p *Player) effectiveModule(slot int, detected Module) Module {
	if configured, ok := p.configured[slot]; ok && configured != ModuleAuto {
		return configured
	}
	return detected
}

func (p *Player) strQuery(ctx context.Context, tag string, slot int) *string {
	command := fmt.Sprintf("G%s%d", tag, slot)
	reply := fmt.Sprintf("%s%d", tag, slot)
	argument, err := p.d.SendExpect(ctx, command, "0", reply)
	if err != nil {
		return nil
	}
	return &argument
}

func (p *Player) intQuery(ctx context.Context, tag string, slot int) *int {
	raw := p.strQuery(ctx, tag, slot)
	if raw == nil {
		return nil
	}
	value, err := strconv.Atoi(*raw)
	if err != nil {
		return nil
	}
	return &value
}

// SetSlotGain sets one slot's gain.
func (p *Player) SetSlotGain(ctx context.Context, slot, gain int) error {
	command := fmt.Sprintf("S%s%d", slotGain, slot)
	_, err := p.d.SendExpect(ctx, command, strconv.Itoa(gain), command)
	return err
}

// SetPairing enables or disables bluetooth pairing on a BMP42 slot.
func (p *Player) SetPairing(ctx context.Context, slot int, enabled bool) error {
	command := fmt.Sprintf("S%s%d", slotPairing, slot)
	argument := "0"
	if enabled {
		argument = "1"
	}
	_, err := p.d.SendExpect(ctx, command, argument, command)
	return err
}

// Trigger fires one FMP40 contact. The raw reply text is returned for the
// caller to interpret; a bare ack token means the device gave no
// description. Out-of-range contacts are rejected before any I/O.
func (p *Player) Trigger(ctx context.Context, slot, contact int, start bool) (string, error) {
	if contact < TriggerContactMin || contact > TriggerContactMax {
		return "", fmt.Errorf("%w: trigger contact %d not in %d..%d",
			ErrInvalidArgument, contact, TriggerContactMin, TriggerContactMax)
	}
	command := fmt.Sprintf("SSTR%d", slot)
	action := "0"
	if start {
		action = "1"
	}
	return p.d.SendExpect(ctx, command, fmt.Sprintf("%d^%s", contact, action), command)
}

func (p *Player) Probe(ctx context.Context) error {
	_, err := p.State(ctx, nil)
	return err
}

func (p *Player) Raw(ctx context.Context, command, argument string) (string, error) {
	return p.d.SendRaw(ctx, command, argument)
}
