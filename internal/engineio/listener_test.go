package engineio

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/novywave/engine/internal/nwconfig"
	"github.com/novywave/engine/internal/pipeline"
	"github.com/novywave/engine/internal/session"
	"github.com/novywave/engine/internal/waveform"
	"github.com/novywave/engine/internal/waveform/vcdtext"
	"github.com/novywave/engine/internal/wire"
)

func TestListenResolvesUnixAndTCP(t *testing.T) {
	dir := t.TempDir()
	ln, err := Listen(filepath.Join(dir, "engine.sock"))
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	if ln.Addr().Network() != "unix" {
		t.Errorf("expected unix network, got %s", ln.Addr().Network())
	}

	tcpLn, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer tcpLn.Close()
	if tcpLn.Addr().Network() != "tcp" {
		t.Errorf("expected tcp network, got %s", tcpLn.Addr().Network())
	}
}

func TestServeRoundTripsRequestAndResponse(t *testing.T) {
	dir := t.TempDir()
	ln, err := Listen(filepath.Join(dir, "engine.sock"))
	if err != nil {
		t.Fatal(err)
	}

	log := logrus.NewEntry(logrus.New())
	store := waveform.NewStore(log, 2, vcdtext.New())
	cfg, err := nwconfig.NewStore(log, dir)
	if err != nil {
		t.Fatal(err)
	}
	sess := session.New(cfg, nwconfig.NewHistory(log), store)
	pipe := pipeline.New(log, sess, store, nil, nil)
	server := NewServer(log, ln, pipe)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Serve(ctx)

	conn, err := net.Dial("unix", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	req := wire.Request{Type: wire.ReqLoadFile, Path: filepath.Join(dir, "nope.vcd")}
	data, _ := json.Marshal(req)
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		t.Fatalf("expected a response line, scan error: %v", scanner.Err())
	}
	var resp wire.Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Type != wire.RespFileLoading {
		t.Errorf("expected FileLoading, got %+v", resp)
	}
}
