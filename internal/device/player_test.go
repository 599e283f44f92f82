package device

import (
	"context"
	"errors"
	"testing"
)

func xmpScript() script {
	return script{
		cmdModuleTypes: {replyModuleTypes, "3^5^0^9"},
		"GGN1":         {"GN1", "5"},
		"GPST1":        {"PST1", "playing"},
		"GSNG1":        {"SNG1", "morning-announcement.mp3"},
		"GINF1":        {"INF1", "FMP40 ready"},
		"GGN2":         {"GN2", "7"},
		"GPAIR2":       {"PAIR2", "1"},
	}
}

func TestPlayerStateDetectsModules(t *testing.T) {
	_, d, _ := startDevice(t, xmpScript())
	p := NewPlayer(d, nil)

	state, err := p.State(context.Background(), nil)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if got := state.Slots[1].Module; got != ModuleFMP40 {
		t.Fatalf("slot 1 module=%q want fmp40", got)
	}
	if got := state.Slots[2].Module; got != ModuleBMP42 {
		t.Fatalf("slot 2 module=%q want bmp42", got)
	}
	if got := state.Slots[3].Module; got != ModuleNone {
		t.Fatalf("slot 3 module=%q want none", got)
	}
	// Unknown detected type code falls back to the network streaming card.
	if got := state.Slots[4].Module; got != ModuleNMP40 {
		t.Fatalf("slot 4 module=%q want nmp40", got)
	}
}

func TestPlayerStateBestEffortFields(t *testing.T) {
	_, d, _ := startDevice(t, xmpScript())
	p := NewPlayer(d, nil)

	state, err := p.State(context.Background(), nil)
	if err != nil {
		t.Fatalf("state: %v", err)
	}

	slot1 := state.Slots[1]
	if slot1.Gain == nil || *slot1.Gain != 5 {
		t.Fatalf("slot 1 gain=%v want 5", slot1.Gain)
	}
	if slot1.Song == nil || *slot1.Song != "morning-announcement.mp3" {
		t.Fatalf("slot 1 song=%v", slot1.Song)
	}
	// Station query has no canned reply: best-effort leaves it nil.
	if slot1.Station != nil {
		t.Fatalf("slot 1 station=%v want nil", *slot1.Station)
	}

	slot2 := state.Slots[2]
	if slot2.Pairing == nil || *slot2.Pairing != "1" {
		t.Fatalf("slot 2 pairing=%v", slot2.Pairing)
	}

	// An empty slot gets no per-slot queries.
	slot3 := state.Slots[3]
	if slot3.Gain != nil || slot3.PlayerStatus != nil {
		t.Fatalf("empty slot carries data: %+v", slot3)
	}
}

func TestPlayerStateNonNumericGainIsNil(t *testing.T) {
	s := xmpScript()
	s["GGN1"] = reply{"GN1", "max"}
	_, d, _ := startDevice(t, s)
	p := NewPlayer(d, nil)

	state, err := p.State(context.Background(), nil)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.Slots[1].Gain != nil {
		t.Fatalf("expected nil gain for non-numeric value, got %v", *state.Slots[1].Gain)
	}
}

func TestPlayerConfiguredOverrideWins(t *testing.T) {
	s := script{cmdModuleTypes: {replyModuleTypes, "5^5^5^5"}}
	_, d, _ := startDevice(t, s)
	p := NewPlayer(d, map[int]Module{1: ModuleAuto, 2: ModuleNone, 3: ModuleDMP42})

	state, err := p.State(context.Background(), nil)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if got := state.Slots[1].Module; got != ModuleBMP42 {
		t.Fatalf("auto slot module=%q want detected bmp42", got)
	}
	if got := state.Slots[2].Module; got != ModuleNone {
		t.Fatalf("override slot module=%q want none", got)
	}
	if got := state.Slots[3].Module; got != ModuleDMP42 {
		t.Fatalf("override slot module=%q want dmp42", got)
	}
}

func TestPlayerLegacyAliasNormalized(t *testing.T) {
	s := script{cmdModuleTypes: {replyModuleTypes, "0^0^0^0"}}
	_, d, _ := startDevice(t, s)
	p := NewPlayer(d, map[int]Module{1: ModuleRMP40})

	state, err := p.State(context.Background(), nil)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if got := state.Slots[1].Module; got != ModuleFMP40 {
		t.Fatalf("legacy alias not normalized: %q", got)
	}
}

func TestPlayerStateModuleTypeFailurePropagates(t *testing.T) {
	_, d, _ := startDevice(t, script{})
	p := NewPlayer(d, nil)

	if _, err := p.State(context.Background(), nil); err == nil {
		t.Fatal("expected error when module type read fails")
	}
}

func TestTriggerRejectsOutOfRangeContactBeforeIO(t *testing.T) {
	srv, d, _ := startDevice(t, xmpScript())
	p := NewPlayer(d, nil)

	for _, bad := range []int{0, 16, -3} {
		if _, err := p.Trigger(context.Background(), 1, bad, true); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("contact %d: expected ErrInvalidArgument, got %v", bad, err)
		}
	}
	if got := srv.Requests(); got != 0 {
		t.Fatalf("expected no I/O for rejected contact, saw %d requests", got)
	}
}

func TestTriggerArgumentFormat(t *testing.T) {
	s := script{"SSTR2": {"SSTR2", Ack}}
	_, d, rec := startDevice(t, s)
	p := NewPlayer(d, nil)

	got, err := p.Trigger(context.Background(), 2, 5, true)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if got != Ack {
		t.Fatalf("reply mismatch: %q", got)
	}
	frames := rec.all()
	if frames[0].Command != "SSTR2" || frames[0].Argument != "5^1" {
		t.Fatalf("frame mismatch: %+v", frames[0])
	}
}

func TestTriggerStopAction(t *testing.T) {
	s := script{"SSTR1": {"SSTR1", "Trigger stopped"}}
	_, d, rec := startDevice(t, s)
	p := NewPlayer(d, nil)

	got, err := p.Trigger(context.Background(), 1, 3, false)
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if got != "Trigger stopped" {
		t.Fatalf("reply mismatch: %q", got)
	}
	frames := rec.all()
	if frames[0].Argument != "3^0" {
		t.Fatalf("frame mismatch: %+v", frames[0])
	}
}

func TestSetPairingFrame(t *testing.T) {
	s := script{"SPAIR1": {"SPAIR1", Ack}}
	_, d, rec := startDevice(t, s)
	p := NewPlayer(d, nil)

	if err := p.SetPairing(context.Background(), 1, true); err != nil {
		t.Fatalf("set pairing: %v", err)
	}
	frames := rec.all()
	if frames[0].Command != "SPAIR1" || frames[0].Argument != "1" {
		t.Fatalf("frame mismatch: %+v", frames[0])
	}
}

func TestSetSlotGainFrame(t *testing.T) {
	s := script{"SGN3": {"SGN3", Ack}}
	_, d, rec := startDevice(t, s)
	p := NewPlayer(d, nil)

	if err := p.SetSlotGain(context.Background(), 3, 12); err != nil {
		t.Fatalf("set gain: %v", err)
	}
	frames := rec.all()
	if frames[0].Command != "SGN3" || frames[0].Argument != "12" {
		t.Fatalf("frame mismatch: %+v", frames[0])
	}
}
