package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/novywave/engine/internal/engineio"
	"github.com/novywave/engine/internal/logging"
	"github.com/novywave/engine/internal/nwconfig"
	"github.com/novywave/engine/internal/pipeline"
	"github.com/novywave/engine/internal/session"
	"github.com/novywave/engine/internal/statustui"
	"github.com/novywave/engine/internal/waveform"
	"github.com/novywave/engine/internal/waveform/vcdtext"
	"github.com/novywave/engine/internal/watchset"
	"github.com/novywave/engine/internal/wire"

	"github.com/novywave/engine/internal/plugin"
)

// defaultServeAddr matches spec.md §6.4's default: a Unix domain socket
// rather than a TCP port, since the UI is expected to run on the same host.
const defaultServeAddr = "/tmp/novywave.sock"

// defaultParseConcurrency bounds simultaneous WaveformStore parses, mirroring
// rangeConcurrency's soft-bound idiom in internal/pipeline.
const defaultParseConcurrency = 4

var (
	serveListenAddr string
	serveStatusTUI  bool
)

func addServeCommand(rootCmd *cobra.Command) {
	serveCmd := &cobra.Command{
		Use:   "serve [workspace]",
		Short: "Run the engine, serving the wire protocol over a socket",
		Long:  "Start the waveform engine for the workspace directory (default: the current directory), listening for a single UI connection at a time.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workDir := "."
			if len(args) == 1 {
				workDir = args[0]
			}
			return runServe(cmd, workDir)
		},
	}

	pflags := serveCmd.Flags()
	pflags.StringVar(&serveListenAddr, "listen", defaultServeAddr, "Listen address: a filesystem path for a Unix socket, or host:port for TCP")
	pflags.BoolVar(&serveStatusTUI, "status-tui", false, "Run an operator dashboard in this terminal alongside the engine")

	rootCmd.AddCommand(serveCmd)
}

// relayDispatcher implements plugin.Dispatcher. It exists to break the
// construction cycle between plugin.New (which needs a Dispatcher up front)
// and pipeline.New (which needs a *plugin.PluginHost up front as its
// PluginUpdater): the host is built first against a relayDispatcher with
// pipe still nil, the real *pipeline.Pipeline is assigned once it exists,
// and any plugin activity in between is dropped — the same tolerance
// plugin.New's own doc comment already allows for a nil dispatcher.
type relayDispatcher struct {
	pipe *pipeline.Pipeline
}

func (d *relayDispatcher) Dispatch(ctx context.Context, req wire.Request) {
	if d.pipe == nil {
		return
	}
	d.pipe.Dispatch(ctx, req)
}

func runServe(cmd *cobra.Command, workDir string) error {
	level := "info"
	if verboseFlag {
		level = "debug"
	}
	if quietFlag {
		level = "warn"
	}
	logger := logging.New(logging.Options{Level: level})
	log := logging.ForComponent(logger, "engine")

	store, err := nwconfig.NewStore(log, workDir)
	if err != nil {
		return fmt.Errorf("resolving config: %w", err)
	}
	defer store.Close()
	if ce := store.TakeCorruptError(); ce != nil {
		log.WithError(ce).Warn("config document failed to parse, starting from defaults")
	}

	history := nwconfig.NewHistory(log)
	defer history.Close()
	history.Touch(workDir)

	wfStore := waveform.NewStore(log, defaultParseConcurrency, vcdtext.New())

	sess := session.New(store, history, wfStore)
	defer sess.Close()

	watcher, err := watchset.New()
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	defer watcher.Close()

	dispatcher := &relayDispatcher{}
	host := plugin.New(log, watcher, dispatcher)
	defer host.Close()

	for _, entry := range plugin.EntriesFromConfig(store.Snapshot().Plugins) {
		if err := host.UpdatePlugin(entry); err != nil {
			log.WithError(err).WithField("plugin_id", entry.ID).Warn("failed to start declared plugin")
		}
	}

	pipe := pipeline.New(log, sess, wfStore, history, host)
	dispatcher.pipe = pipe

	listener, err := engineio.Listen(serveListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", serveListenAddr, err)
	}
	server := engineio.NewServer(log, listener, pipe)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(ctx) }()

	// Double Ctrl+C: the first SIGINT/SIGTERM cancels ctx for a graceful
	// shutdown, a second forces immediate exit — the same escalation the
	// teacher's serve.go applies to its supervised subprocess, adapted here
	// to an in-process engine (context cancellation in place of
	// syscall.Kill, since there is no child process to signal).
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	var sigCount int32
	go func() {
		for range sigCh {
			if atomic.AddInt32(&sigCount, 1) == 1 {
				log.Info("shutting down (press again to force)")
				cancel()
			} else {
				log.Warn("forcing immediate exit")
				os.Exit(130)
			}
		}
	}()

	if serveStatusTUI {
		if err := statustui.Run(pipe); err != nil {
			log.WithError(err).Warn("status dashboard exited with an error")
		}
		cancel()
	}

	return <-serveErr
}
