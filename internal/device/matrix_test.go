package device

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/danmuck/audacd/internal/protocol"
)

func TestMatrixStateReadsAllZones(t *testing.T) {
	_, d, _ := startDevice(t, mtxScript())
	m := NewMatrix(d, ModelMTX48, 0)

	state, err := m.State(context.Background(), nil)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.Firmware != "1.2.7" {
		t.Fatalf("firmware mismatch: %q", state.Firmware)
	}
	want := map[int]ZoneState{
		1: {VolumeDB: 10, Source: "1", Mute: true},
		2: {VolumeDB: 20, Source: "2", Mute: false},
		3: {VolumeDB: 30, Source: "3", Mute: false},
		4: {VolumeDB: 40, Source: "0", Mute: true},
	}
	if !reflect.DeepEqual(state.Zones, want) {
		t.Fatalf("zones mismatch:\n got=%+v\nwant=%+v", state.Zones, want)
	}
}

func TestMatrixStateIdempotent(t *testing.T) {
	_, d, _ := startDevice(t, mtxScript())
	m := NewMatrix(d, ModelMTX48, 0)

	first, err := m.State(context.Background(), nil)
	if err != nil {
		t.Fatalf("first state: %v", err)
	}
	second, err := m.State(context.Background(), first)
	if err != nil {
		t.Fatalf("second state: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("snapshots differ:\n first=%+v\nsecond=%+v", first, second)
	}
}

func TestMatrixStateFirmwareFailureIsSilent(t *testing.T) {
	s := mtxScript()
	delete(s, cmdFirmware)
	_, d, _ := startDevice(t, s)
	m := NewMatrix(d, ModelMTX48, 0)

	state, err := m.State(context.Background(), nil)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.Firmware != "" {
		t.Fatalf("expected unknown firmware, got %q", state.Firmware)
	}
}

func TestMatrixStateFallbackUsesHistory(t *testing.T) {
	s := mtxScript()
	delete(s, cmdAllRouting)
	_, d, _ := startDevice(t, s)
	m := NewMatrix(d, ModelMTX48, 0)

	prev := &State{Zones: map[int]ZoneState{
		1: {VolumeDB: 5, Source: "7", Mute: false},
		2: {VolumeDB: 6, Source: "8", Mute: true},
		3: {VolumeDB: 7, Source: "2", Mute: false},
	}}

	state, err := m.State(context.Background(), prev)
	if err != nil {
		t.Fatalf("state with history: %v", err)
	}
	// Routing comes from history (zone 4 absent: default source).
	wantSources := map[int]string{1: "7", 2: "8", 3: "2", 4: "0"}
	for zone, want := range wantSources {
		if got := state.Zones[zone].Source; got != want {
			t.Fatalf("zone %d source=%q want %q", zone, got, want)
		}
	}
	// Volumes and mutes are freshly read.
	if state.Zones[1].VolumeDB != 10 || !state.Zones[1].Mute {
		t.Fatalf("fresh fields lost: %+v", state.Zones[1])
	}
}

func TestMatrixStateFailsWithoutHistory(t *testing.T) {
	s := mtxScript()
	delete(s, cmdAllVolumes)
	_, d, _ := startDevice(t, s)
	m := NewMatrix(d, ModelMTX48, 0)

	_, err := m.State(context.Background(), nil)
	if !errors.Is(err, protocol.ErrEmptyReply) {
		t.Fatalf("expected propagated transport failure, got %v", err)
	}
}

func TestMatrixStateTooFewValues(t *testing.T) {
	s := mtxScript()
	s[cmdAllVolumes] = reply{replyAllVolumes, "10^20"}
	_, d, _ := startDevice(t, s)
	m := NewMatrix(d, ModelMTX48, 0)

	_, err := m.State(context.Background(), nil)
	if !errors.Is(err, ErrTooFewValues) {
		t.Fatalf("expected ErrTooFewValues, got %v", err)
	}
}

func TestMatrixStateInvalidVolume(t *testing.T) {
	s := mtxScript()
	s[cmdAllVolumes] = reply{replyAllVolumes, "10^loud^30^40"}
	_, d, _ := startDevice(t, s)
	m := NewMatrix(d, ModelMTX48, 0)

	_, err := m.State(context.Background(), nil)
	if !errors.Is(err, ErrInvalidVolume) {
		t.Fatalf("expected ErrInvalidVolume, got %v", err)
	}
}

func TestMatrixStateEmptyListPropagatesDespiteHistory(t *testing.T) {
	s := mtxScript()
	s[cmdAllVolumes] = reply{replyAllVolumes, "^^"}
	_, d, _ := startDevice(t, s)
	m := NewMatrix(d, ModelMTX48, 0)

	prev := &State{Zones: map[int]ZoneState{1: {VolumeDB: 5}}}
	_, err := m.State(context.Background(), prev)
	if !errors.Is(err, ErrEmptyList) {
		t.Fatalf("expected ErrEmptyList, got %v", err)
	}
}

func TestSetZoneVolumeRejectsOutOfRangeBeforeIO(t *testing.T) {
	srv, d, _ := startDevice(t, mtxScript())
	m := NewMatrix(d, ModelMTX48, 0)

	for _, bad := range []int{-1, 71, 200} {
		if err := m.SetZoneVolume(context.Background(), 1, bad); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("volume %d: expected ErrInvalidArgument, got %v", bad, err)
		}
	}
	if got := srv.Requests(); got != 0 {
		t.Fatalf("expected no I/O for rejected volume, saw %d requests", got)
	}
}

func TestSetZoneVolumeIssuesSingleFrame(t *testing.T) {
	s := script{"SV2": {"SV2", Ack}}
	srv, d, rec := startDevice(t, s)
	m := NewMatrix(d, ModelMTX48, 0)

	if err := m.SetZoneVolume(context.Background(), 2, 20); err != nil {
		t.Fatalf("set volume: %v", err)
	}
	if got := srv.Requests(); got != 1 {
		t.Fatalf("expected exactly one frame, saw %d", got)
	}
	frames := rec.all()
	if frames[0].Command != "SV2" || frames[0].Argument != "20" {
		t.Fatalf("frame mismatch: %+v", frames[0])
	}
}

func TestSetZoneMuteZeroPadsZoneIndex(t *testing.T) {
	s := script{"SM03": {"SM03", Ack}}
	_, d, rec := startDevice(t, s)
	m := NewMatrix(d, ModelMTX48, 0)

	if err := m.SetZoneMute(context.Background(), 3, true); err != nil {
		t.Fatalf("set mute: %v", err)
	}
	frames := rec.all()
	if frames[0].Command != "SM03" || frames[0].Argument != "1" {
		t.Fatalf("frame mismatch: %+v", frames[0])
	}
}

func TestSetZoneSource(t *testing.T) {
	s := script{"SR1": {"SR1", Ack}}
	_, d, rec := startDevice(t, s)
	m := NewMatrix(d, ModelMTX48, 0)

	if err := m.SetZoneSource(context.Background(), 1, "4"); err != nil {
		t.Fatalf("set source: %v", err)
	}
	frames := rec.all()
	if frames[0].Command != "SR1" || frames[0].Argument != "4" {
		t.Fatalf("frame mismatch: %+v", frames[0])
	}
}
