package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/danmuck/audacd/internal/protocol"
)

// DefaultTimeout is the wall-clock budget for one full exchange.
const DefaultTimeout = 5 * time.Second

// Endpoint identifies one device's TCP control port.
type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Exchange opens a fresh connection, writes payload, and reads lines until
// an accepted reply arrives or the deadline elapses. The deadline is shared
// across all reads in the exchange; it is not reset per line. Devices
// interleave unsolicited status pushes with the true reply, so lines that
// fail to decode are skipped, as are well-formed frames whose command is not
// in accept. A nil accept set accepts the first well-formed frame. The
// connection is closed on every exit path.
func Exchange(ctx context.Context, ep Endpoint, command string, payload []byte, timeout time.Duration, accept map[string]struct{}) (protocol.Frame, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := time.Now().Add(timeout)

	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", ep.Addr())
	if err != nil {
		return protocol.Frame{}, &Error{Host: ep.Host, Port: ep.Port, Command: command, Op: "dial", Err: err}
	}
	defer conn.Close()

	_ = conn.SetDeadline(deadline)
	if _, err := conn.Write(payload); err != nil {
		return protocol.Frame{}, &Error{Host: ep.Host, Port: ep.Port, Command: command, Op: "write", Err: err}
	}

	reader := bufio.NewReader(conn)
	sawData := false
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			sawData = true
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if !sawData {
					return protocol.Frame{}, fmt.Errorf("%w: %s command %s", protocol.ErrEmptyReply, ep.Addr(), command)
				}
				return protocol.Frame{}, fmt.Errorf("%w: %s command %s", protocol.ErrNoAcceptedReply, ep.Addr(), command)
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() && sawData {
				return protocol.Frame{}, fmt.Errorf("%w: %s command %s", protocol.ErrNoAcceptedReply, ep.Addr(), command)
			}
			return protocol.Frame{}, &Error{Host: ep.Host, Port: ep.Port, Command: command, Op: "read", Err: err}
		}

		frame, decodeErr := protocol.Decode(line)
		if decodeErr != nil {
			continue
		}
		if accept != nil {
			if _, ok := accept[frame.Command]; !ok {
				continue
			}
		}
		return frame, nil
	}
}
