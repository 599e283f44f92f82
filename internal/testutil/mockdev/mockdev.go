// Package mockdev runs a scripted AUDAC device endpoint for package tests.
// Each accepted connection serves exactly one request frame, mirroring the
// one-exchange-per-connection behavior of real devices.
package mockdev

import (
	"bufio"
	"net"
	"sync/atomic"
	"testing"

	"github.com/danmuck/audacd/internal/protocol"
)

// Handler maps one decoded request frame to the raw lines written back.
// Returning no lines closes the connection without replying.
type Handler func(req protocol.Frame) []string

type Server struct {
	ln       net.Listener
	requests atomic.Int64
}

func Start(t testing.TB, handler Handler) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("mockdev listen: %v", err)
	}
	s := &Server{ln: ln}
	go s.acceptLoop(handler)
	t.Cleanup(func() {
		_ = ln.Close()
	})
	return s
}

func (s *Server) acceptLoop(handler Handler) {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.serveConn(conn, handler)
	}
}

func (s *Server) serveConn(conn net.Conn, handler Handler) {
	defer conn.Close()
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return
	}
	s.requests.Add(1)
	frame, err := protocol.Decode(line)
	if err != nil {
		return
	}
	for _, out := range handler(frame) {
		if _, err := conn.Write([]byte(out)); err != nil {
			return
		}
	}
}

func (s *Server) Host() string {
	return s.ln.Addr().(*net.TCPAddr).IP.String()
}

func (s *Server) Port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

// Requests reports how many request frames the server has received.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// Reply builds one well-formed reply line.
func Reply(dest, src, command, argument string) string {
	return string(protocol.Encode(dest, src, command, argument))
}
