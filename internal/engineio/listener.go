// Package engineio implements the concrete transport binding the
// WireProtocol to a listener (spec.md §4.8): newline-delimited JSON over a
// Unix domain socket by default, TCP when --listen host:port is given.
// Grounded directly on the teacher's pool daemon accept/dispatch loop
// (internal/vm/pool_linux.go's acceptLoop/handleConnection): net.Listen +
// bufio.Reader.ReadBytes('\n') framing, and sendResponse's
// marshal-then-write-with-trailing-newline pattern — generalized from
// one-shot request/response connections to a long-lived duplex stream,
// since the engine pushes SessionSnapshot/FileLoaded responses
// asynchronously rather than one response per request.
package engineio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/novywave/engine/internal/pipeline"
	"github.com/novywave/engine/internal/wire"
)

// Server accepts UI connections and relays requests/responses through a
// single shared Pipeline. Only one connection is served at a time — a new
// connection supersedes whatever was being served before it, matching
// spec.md §5's "the UI is external and contracted to be single-reader per
// connection".
type Server struct {
	log      *logrus.Entry
	listener net.Listener
	pipe     *pipeline.Pipeline

	mu      sync.Mutex
	current net.Conn
}

// Listen resolves addr into a net.Listener. A bare filesystem path (or one
// prefixed "unix:") binds a Unix domain socket, removing any stale socket
// file left by a previous run first; "host:port" (or one prefixed "tcp:")
// binds TCP (spec.md §6.4 "--listen <unix-path|host:port>").
func Listen(addr string) (net.Listener, error) {
	network, address := "unix", addr
	switch {
	case strings.HasPrefix(addr, "unix:"):
		address = strings.TrimPrefix(addr, "unix:")
	case strings.HasPrefix(addr, "tcp:"):
		network, address = "tcp", strings.TrimPrefix(addr, "tcp:")
	case !strings.HasPrefix(addr, "/") && strings.Contains(addr, ":"):
		network = "tcp"
	}
	if network == "unix" {
		os.Remove(address)
	}
	return net.Listen(network, address)
}

// NewServer wraps an already-bound listener and the Pipeline it serves.
func NewServer(log *logrus.Entry, listener net.Listener, pipe *pipeline.Pipeline) *Server {
	return &Server{log: log, listener: listener, pipe: pipe}
}

// Serve accepts connections until ctx is cancelled or the listener errors.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		s.adopt(conn)
	}
}

// adopt makes conn the active connection, closing whatever connection
// preceded it (a reconnecting UI replaces its own stale connection this
// way without an explicit handshake).
func (s *Server) adopt(conn net.Conn) {
	s.mu.Lock()
	prev := s.current
	s.current = conn
	s.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	go s.readLoop(conn)
	go s.writeLoop(conn)
}

// readLoop decodes newline-delimited JSON requests and dispatches each to
// the Pipeline, mirroring handleConnection's ReadBytes('\n') framing.
func (s *Server) readLoop(conn net.Conn) {
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var req wire.Request
		if err := json.Unmarshal(line, &req); err != nil {
			if s.log != nil {
				s.log.WithError(err).Warn("engineio: malformed request")
			}
			continue
		}
		s.pipe.Dispatch(context.Background(), req)
	}
}

// writeLoop drains the Pipeline's outgoing responses and writes each as one
// JSON line, mirroring sendResponse's marshal-then-write-with-trailing-
// newline shape. It runs for the lifetime of the Pipeline, not just this
// connection: once conn is superseded, the first failed Write ends it,
// leaving exactly one writeLoop draining Out() at a time.
func (s *Server) writeLoop(conn net.Conn) {
	for resp := range s.pipe.Out() {
		data, err := json.Marshal(resp)
		if err != nil {
			continue
		}
		data = append(data, '\n')
		if _, err := conn.Write(data); err != nil {
			return
		}
	}
}
