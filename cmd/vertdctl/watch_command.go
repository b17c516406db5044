package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"vertdctl/internal/stream"
	"vertdctl/internal/watcher"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow job state live via polling and the event stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			lockPath, err := watchLockPath()
			if err != nil {
				return err
			}
			lock := flock.New(lockPath)
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire watch lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another vertdctl watch is already running (lock %s)", lockPath)
			}
			defer lock.Unlock()

			logger := ctx.logger()
			w := watcher.New(
				stream.New(stream.WithLogger(logger)),
				watcher.WithPollInterval(time.Duration(cfg.Poll.IntervalSeconds)*time.Second),
				watcher.WithLogger(logger),
			)
			states, unsubscribe := w.Subscribe()
			defer unsubscribe()

			if err := w.Start(cfg.Server.URL, cfg.Server.APIKey); err != nil {
				return err
			}
			defer w.Stop()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			render := newStateRenderer(cmd, jsonOutput)
			for {
				select {
				case <-runCtx.Done():
					return nil
				case state := <-states:
					if err := render(state); err != nil {
						return err
					}
				}
			}
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit one JSON line per state change")
	return cmd
}

func newStateRenderer(cmd *cobra.Command, jsonOutput bool) func(watcher.State) error {
	out := cmd.OutOrStdout()

	if jsonOutput || !isatty.IsTerminal(os.Stdout.Fd()) {
		encoder := json.NewEncoder(out)
		return func(state watcher.State) error {
			return encoder.Encode(state)
		}
	}

	return func(state watcher.State) error {
		fmt.Fprint(out, "\033[H\033[2J")
		fmt.Fprintln(out, renderJobsTable(state.Jobs))
		fmt.Fprintf(out, "stream: %s", connectionLabel(state.Connected))
		if state.Loading {
			fmt.Fprint(out, "  refreshing...")
		}
		if state.Err != "" {
			fmt.Fprintf(out, "  error: %s", state.Err)
		}
		fmt.Fprintln(out)
		return nil
	}
}

func connectionLabel(connected bool) string {
	if connected {
		return "connected"
	}
	return "disconnected"
}

func watchLockPath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache directory: %w", err)
	}
	dir := filepath.Join(cacheDir, "vertdctl")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create cache directory: %w", err)
	}
	return filepath.Join(dir, "watch.lock"), nil
}
