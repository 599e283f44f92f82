package protocol

import (
	"errors"
	"testing"
)

func TestEncodeFrameLayout(t *testing.T) {
	got := Encode("X001", "ha", "GVALL", "0")
	want := "#|X001|ha|GVALL|0|U|\r\n"
	if string(got) != want {
		t.Fatalf("encoded frame mismatch: got=%q want=%q", string(got), want)
	}
}

func TestEncodeDropsNonASCII(t *testing.T) {
	got := Encode("X001", "ha", "SR1", "café")
	want := "#|X001|ha|SR1|caf|U|\r\n"
	if string(got) != want {
		t.Fatalf("non-ascii bytes not dropped: got=%q want=%q", string(got), want)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	raw := Encode("X001", "ha", "GVALL", "0")
	frame, err := Decode(string(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frame.Command != "GVALL" || frame.Argument != "0" {
		t.Fatalf("round trip mismatch: %+v", frame)
	}
	if frame.Destination != "X001" || frame.Source != "ha" {
		t.Fatalf("addressing mismatch: %+v", frame)
	}
}

func TestDecodeBulkReply(t *testing.T) {
	frame, err := Decode("#|X001|ha|VALL|10^20^30^40|U|\r\n")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frame.Command != "VALL" {
		t.Fatalf("command mismatch: %q", frame.Command)
	}
	if frame.Argument != "10^20^30^40" {
		t.Fatalf("argument mismatch: %q", frame.Argument)
	}
}

func TestDecodeTrimsCommandAndArgument(t *testing.T) {
	frame, err := Decode("#|X001|ha| SV1 | 20 |U|\r\n")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frame.Command != "SV1" || frame.Argument != "20" {
		t.Fatalf("fields not trimmed: %+v", frame)
	}
}

func TestDecodeRejectsShortFrame(t *testing.T) {
	_, err := Decode("#|X001|ha|VALL\r\n")
	if !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestDecodeRejectsBadStartMarker(t *testing.T) {
	_, err := Decode("$|X001|ha|VALL|10|U|\r\n")
	if !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("expected ErrMalformedFrame, got %v", err)
	}
}

func TestSanitizeSourceID(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "ha", "ha"},
		{"strips delimiters", "h#a|", "ha"},
		{"truncates", "operator", "oper"},
		{"empty uses default", "", DefaultSourceID},
		{"delimiters only uses default", "#|#|", DefaultSourceID},
		{"trims whitespace", "  ha  ", "ha"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSourceID(tc.in); got != tc.want {
				t.Fatalf("SanitizeSourceID(%q)=%q want %q", tc.in, got, tc.want)
			}
		})
	}
}
