package protocol

import (
	"fmt"
	"strings"
)

const (
	// StartMarker opens every request and reply frame.
	StartMarker = "#"
	// Delimiter separates the fields of a frame.
	Delimiter = "|"
	// FillerChecksum occupies the checksum position. Device firmware
	// transmits it verbatim and never computes or verifies it.
	FillerChecksum = "U"
	// DefaultSourceID is used when a configured source id sanitizes to empty.
	DefaultSourceID = "ctl"

	maxSourceIDLen = 4
)

// Frame is one parsed wire frame. Requests and replies share the layout:
//
//	#|<destination>|<source-id>|<command>|<argument>|<checksum>|\r\n
type Frame struct {
	Destination string
	Source      string
	Command     string
	Argument    string
	Checksum    string
}

// SanitizeSourceID strips the frame delimiter characters, truncates to four
// characters, and falls back to DefaultSourceID when nothing is left.
func SanitizeSourceID(raw string) string {
	cleaned := strings.NewReplacer(StartMarker, "", Delimiter, "").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		cleaned = DefaultSourceID
	}
	if len(cleaned) > maxSourceIDLen {
		cleaned = cleaned[:maxSourceIDLen]
	}
	return cleaned
}

// Encode builds the wire bytes for one command frame. Non-ASCII bytes are
// dropped rather than escaped; device firmware reads raw ASCII only.
func Encode(destination, sourceID, command, argument string) []byte {
	line := fmt.Sprintf("#|%s|%s|%s|%s|%s|\r\n",
		destination, sourceID, command, argument, FillerChecksum)
	out := make([]byte, 0, len(line))
	for i := 0; i < len(line); i++ {
		if line[i] < 0x80 {
			out = append(out, line[i])
		}
	}
	return out
}

// Decode parses one received line into a Frame. A well-formed frame has at
// least six pipe-delimited fields and opens with the start marker; the
// trailing terminator field only has to be present. Command and argument
// are returned trimmed.
func Decode(line string) (Frame, error) {
	parts := strings.Split(strings.TrimRight(line, "\r\n"), Delimiter)
	if len(parts) < 6 {
		return Frame{}, fmt.Errorf("%w: %q", ErrMalformedFrame, strings.TrimSpace(line))
	}
	if parts[0] != StartMarker {
		return Frame{}, fmt.Errorf("%w: bad start marker in %q", ErrMalformedFrame, strings.TrimSpace(line))
	}
	return Frame{
		Destination: parts[1],
		Source:      parts[2],
		Command:     strings.TrimSpace(parts[3]),
		Argument:    strings.TrimSpace(parts[4]),
		Checksum:    parts[5],
	}, nil
}
