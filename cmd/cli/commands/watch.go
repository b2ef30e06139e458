package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/meltingprovince/virtualset/internal/events"
	"github.com/meltingprovince/virtualset/internal/session"
)

// settleCheckInterval bounds how long a watch can miss a terminal event
const settleCheckInterval = 250 * time.Millisecond

// settled reports whether the session reached a terminal state
func settled(snap session.Snapshot) bool {
	return snap.State == session.StateComplete || snap.State == session.StateFailed
}

// watchSession runs start against a new session and blocks until the job
// completes, fails or the process is interrupted. Progress goes to stderr.
func watchSession(cmd *cobra.Command, start func(context.Context, *session.Session) error) error {
	c, err := currentConfig()
	if err != nil {
		return err
	}
	cl, err := getAPIClient()
	if err != nil {
		return err
	}
	tokens, err := getTokenProvider()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{}, 1)
	bus := events.NewBus(events.EventChannelSize)
	bus.Subscribe(events.EventStatusUpdated, func(_ context.Context, ev events.Event) error {
		_, err := fmt.Fprintf(cmd.ErrOrStderr(), "%s %3.0f%% %s\n", ev.JobID, ev.Progress, ev.Stage)
		return err
	})
	terminal := func(_ context.Context, _ events.Event) error {
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	}
	bus.Subscribe(events.EventCompleted, terminal)
	bus.Subscribe(events.EventFailed, terminal)
	bus.Start(ctx)

	opts := sessionOptions(c)
	opts.Bus = bus
	s := session.New(cl, tokens, opts)
	defer s.Close()

	if err := start(ctx, s); err != nil {
		return err
	}

	ticker := time.NewTicker(settleCheckInterval)
	defer ticker.Stop()
wait:
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("watch interrupted: %w", ctx.Err())
		case <-done:
			break wait
		case <-ticker.C:
			if settled(s.Snapshot()) {
				break wait
			}
		}
	}

	snap := s.Snapshot()
	if err := printJob(cmd, snapshotOutput(snap)); err != nil {
		return err
	}
	if snap.Err != nil {
		return fmt.Errorf("job %s: %w", snap.JobID, snap.Err)
	}
	return nil
}
