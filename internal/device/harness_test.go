package device

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/audacd/internal/protocol"
	"github.com/danmuck/audacd/internal/testutil/mockdev"
	"github.com/danmuck/audacd/internal/transport"
)

// reply pairs the reply command tag with its argument.
type reply struct {
	command  string
	argument string
}

// script maps request commands to canned replies. Commands without an entry
// get no reply at all, which the transport surfaces as an empty reply.
type script map[string]reply

// recorder captures every request frame the mock device accepted.
type recorder struct {
	mu     sync.Mutex
	frames []protocol.Frame
}

func (r *recorder) add(f protocol.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
}

func (r *recorder) all() []protocol.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]protocol.Frame, len(r.frames))
	copy(out, r.frames)
	return out
}

func startDevice(t *testing.T, s script) (*mockdev.Server, *transport.Dispatcher, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := mockdev.Start(t, func(req protocol.Frame) []string {
		rec.add(req)
		rep, ok := s[req.Command]
		if !ok {
			return nil
		}
		return []string{mockdev.Reply("X001", "dev", rep.command, rep.argument)}
	})
	d := transport.NewDispatcher(transport.Endpoint{Host: srv.Host(), Port: srv.Port()}, "X001", "ha", zerolog.Nop())
	d.Timeout = time.Second
	d.RetryStep = time.Millisecond
	return srv, d, rec
}

func mtxScript() script {
	return script{
		cmdAllVolumes: {replyAllVolumes, "10^20^30^40"},
		cmdAllRouting: {replyAllRouting, "1^2^3^0"},
		cmdAllMutes:   {replyAllMutes, "1^0^0^1"},
		cmdFirmware:   {replyFirmware, "1.2.7"},
	}
}
