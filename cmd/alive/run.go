package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Usoramara/alive-intelligence-v3/internal/bridge"
	"github.com/Usoramara/alive-intelligence-v3/internal/bus"
	"github.com/Usoramara/alive-intelligence-v3/internal/config"
	"github.com/Usoramara/alive-intelligence-v3/internal/engines"
	"github.com/Usoramara/alive-intelligence-v3/internal/logging"
	"github.com/Usoramara/alive-intelligence-v3/internal/loop"
	"github.com/Usoramara/alive-intelligence-v3/internal/persist"
	"github.com/Usoramara/alive-intelligence-v3/internal/selfstate"
	"github.com/Usoramara/alive-intelligence-v3/internal/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the cognitive loop",
	Long: `Wires the full system and runs it until interrupted: persisted
self-state is restored, every engine is registered, the thought bridge is
connected when an API key is configured, and the body bridge when a body URL
is enabled. Lines read from stdin enter the system as text-input signals;
text-output signals are printed back.`,
	RunE: runLoop,
}

func runLoop(cmd *cobra.Command, args []string) error {
	logging.Boot("%s waking up", cfg.Name)

	// Persistence first: the restored state seeds everything downstream.
	store, err := persist.Open(cfg.Persist.DatabasePath, persist.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to open persistence: %w", err)
	}
	defer store.Close()

	state := selfstate.New(selfstate.DefaultConfig())
	if snap, ok, err := store.LoadState(); err != nil {
		logging.Get(logging.CategoryBoot).Warnf("state restore failed, starting fresh: %v", err)
	} else if ok {
		state.Restore(snap)
		logging.Boot("restored self-state: valence=%.2f energy=%.2f", snap.Valence, snap.Energy)
	}

	b := bus.New(bus.Config{
		HistorySize: cfg.Bus.HistorySize,
		DefaultTTL:  cfg.GetBusTTL(),
	})

	l := loop.New(loop.Config{
		NotifyEveryFrames: cfg.Loop.NotifyEveryFrames,
		PersistEvery:      cfg.GetPersistEvery(),
	}, b, state, loop.NewTickerDriver(cfg.GetFrameInterval()))
	l.SetPersist(func(snap *selfstate.Snapshot) error {
		return store.SaveState(*snap)
	})
	for _, e := range engines.Standard(store) {
		if err := l.Register(e); err != nil {
			return err
		}
	}

	// Thought bridge: real inference when a key is configured, otherwise the
	// system still runs and every thought is an in-character fallback.
	var inference bridge.InferenceClient
	if cfg.Thought.APIKey != "" {
		client, err := bridge.NewGenAIClient(cmd.Context(), bridge.GenAIConfig{
			APIKey:  cfg.Thought.APIKey,
			Model:   cfg.Thought.Model,
			Persona: cfg.Thought.Persona,
		})
		if err != nil {
			return fmt.Errorf("failed to create inference client: %w", err)
		}
		inference = client
	} else {
		logging.Boot("no API key configured; thoughts will fall back locally")
		inference = offlineInference{}
	}
	tb := bridge.NewThoughtBridge(b, inference, bridge.ThoughtConfig{
		Timeout:      cfg.GetThoughtTimeout(),
		DedupWindow:  cfg.GetDedupWindow(),
		FallbackText: cfg.Thought.FallbackText,
	})
	defer tb.Destroy()

	// Body bridge, when enabled. A failed connect is a degraded start, not a
	// fatal one.
	var bodyClient bridge.BodyClient = disconnectedBody{}
	if cfg.Body.Enabled {
		ws := bridge.NewWSBodyClient(bridge.DefaultWSBodyConfig(cfg.Body.URL))
		if err := ws.Connect(cmd.Context()); err != nil {
			logging.Get(logging.CategoryBoot).Warnf("body host unreachable, running bodiless: %v", err)
		} else {
			defer ws.Close()
			bodyClient = ws
		}
	}
	bb := bridge.NewBodyBridge(b, bodyClient, bridge.BodyConfig{Timeout: cfg.GetBodyTimeout()})
	defer bb.Destroy()
	bb.PublishCapabilities()

	// Echo utterances to the terminal.
	b.Subscribe("terminal", []types.SignalType{types.SignalTextOutput}, func(s *types.Signal) {
		if out, ok := types.PayloadAs[types.TextOutput](s); ok {
			fmt.Println(out.Text)
		}
	})

	// Live log-level changes from the config file.
	if watcher, err := config.NewWatcher(configPath, nil); err == nil {
		if err := watcher.Start(); err == nil {
			defer watcher.Stop()
		}
	}

	l.Start()
	defer l.Destroy()
	logging.Boot("loop running at %s frames; talk to me on stdin", cfg.GetFrameInterval())

	// Stdin feeds the system; a signal shuts it down. The scanner goroutine
	// selects against done so a line read mid-shutdown never strands it on
	// the send.
	inputCh := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case inputCh <- scanner.Text():
			case <-done:
				return
			}
		}
		close(inputCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case sig := <-sigCh:
			logging.Boot("received %s, going to sleep", sig)
			return nil
		case line, ok := <-inputCh:
			if !ok {
				return nil
			}
			if line == "" {
				continue
			}
			b.Emit(types.Signal{
				Type:    types.SignalTextInput,
				Source:  "terminal",
				Payload: types.TextInput{Text: line, Speaker: "user"},
			})
		}
	}
}

// offlineInference makes every request fail fast, so the bridge serves its
// fallback text instead of blocking on a client that cannot exist.
type offlineInference struct{}

func (offlineInference) Infer(context.Context, types.ThoughtRequest) (string, error) {
	return "", fmt.Errorf("no inference backend configured")
}

// disconnectedBody reports no body, which routes every intent through the
// bridge's degraded path.
type disconnectedBody struct{}

func (disconnectedBody) Manifest() (types.CapabilityManifest, bool) {
	return types.CapabilityManifest{}, false
}

func (disconnectedBody) Dispatch(_ context.Context, _ types.BodyIntent, _ func(types.BodyFeedback)) (types.BodyFeedback, error) {
	return types.BodyFeedback{}, fmt.Errorf("no body connected")
}
