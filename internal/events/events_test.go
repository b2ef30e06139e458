package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meltingprovince/virtualset/internal/types"
)

// waitGroupTimeout fails the test if wg is not done within d
func waitGroupTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("Test timed out waiting for event handler")
	}
}

func TestBus(t *testing.T) {
	t.Run("Subscribe and Publish", func(t *testing.T) {
		bus := NewBus(EventChannelSize)

		var wg sync.WaitGroup
		wg.Add(1)

		var receivedEvent Event
		bus.Subscribe(EventStatusUpdated, func(ctx context.Context, event Event) error {
			receivedEvent = event
			wg.Done()
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		bus.Start(ctx)

		testEvent := Event{
			Type:     EventStatusUpdated,
			JobID:    "job_1",
			Status:   types.JobStatusProcessing,
			Progress: 40,
			Stage:    "Generating",
		}
		assert.True(t, bus.Publish(testEvent))

		waitGroupTimeout(t, &wg, 2*time.Second)
		assert.Equal(t, testEvent, receivedEvent)
	})

	t.Run("Multiple Handlers", func(t *testing.T) {
		bus := NewBus(EventChannelSize)

		var wg sync.WaitGroup
		wg.Add(3)

		var mu sync.Mutex
		handlerCalls := make(map[string]bool)
		record := func(name string) Handler {
			return func(ctx context.Context, event Event) error {
				mu.Lock()
				handlerCalls[name] = true
				mu.Unlock()
				wg.Done()
				return nil
			}
		}

		bus.Subscribe(EventCompleted, record("handler1"))
		bus.Subscribe(EventCompleted, record("handler2"))
		bus.SubscribeAll(record("all"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		bus.Start(ctx)

		bus.Publish(Event{Type: EventCompleted, JobID: "job_1"})
		waitGroupTimeout(t, &wg, 2*time.Second)

		mu.Lock()
		defer mu.Unlock()
		assert.True(t, handlerCalls["handler1"], "Handler 1 should have been called")
		assert.True(t, handlerCalls["handler2"], "Handler 2 should have been called")
		assert.True(t, handlerCalls["all"], "Catch-all handler should have been called")
	})

	t.Run("Preserves Order", func(t *testing.T) {
		bus := NewBus(EventChannelSize)

		var wg sync.WaitGroup
		wg.Add(3)

		var mu sync.Mutex
		var got []EventType
		bus.SubscribeAll(func(ctx context.Context, event Event) error {
			mu.Lock()
			got = append(got, event.Type)
			mu.Unlock()
			wg.Done()
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		bus.Start(ctx)

		bus.Publish(Event{Type: EventSubmitted, JobID: "job_1"})
		bus.Publish(Event{Type: EventStatusUpdated, JobID: "job_1"})
		bus.Publish(Event{Type: EventCompleted, JobID: "job_1"})
		waitGroupTimeout(t, &wg, 2*time.Second)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []EventType{EventSubmitted, EventStatusUpdated, EventCompleted}, got)
	})

	t.Run("Handler Errors Do Not Stop Dispatch", func(t *testing.T) {
		bus := NewBus(EventChannelSize)

		var wg sync.WaitGroup
		wg.Add(2)

		bus.Subscribe(EventFailed, func(ctx context.Context, event Event) error {
			wg.Done()
			return errors.New("handler failed")
		})
		bus.Subscribe(EventFailed, func(ctx context.Context, event Event) error {
			wg.Done()
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		bus.Start(ctx)

		bus.Publish(Event{Type: EventFailed, JobID: "job_1", Err: errors.New("boom")})
		waitGroupTimeout(t, &wg, 2*time.Second)
	})

	t.Run("Full Buffer Drops Events", func(t *testing.T) {
		bus := NewBus(1)

		// Not started, so the buffer never drains
		require.True(t, bus.Publish(Event{Type: EventReset}))
		assert.False(t, bus.Publish(Event{Type: EventReset}))
	})

	t.Run("Full Buffer Keeps Terminal Events", func(t *testing.T) {
		tests := []struct {
			name     string
			terminal EventType
		}{
			{name: "completed", terminal: EventCompleted},
			{name: "failed", terminal: EventFailed},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				bus := NewBus(2)

				// Fill the buffer before anything drains it
				require.True(t, bus.Publish(Event{Type: EventStatusUpdated, JobID: "job_1", Progress: 10}))
				require.True(t, bus.Publish(Event{Type: EventStatusUpdated, JobID: "job_1", Progress: 20}))
				assert.False(t, bus.Publish(Event{Type: EventStatusUpdated, JobID: "job_1", Progress: 30}))
				assert.True(t, bus.Publish(Event{Type: tt.terminal, JobID: "job_1"}))

				var wg sync.WaitGroup
				wg.Add(2)
				var mu sync.Mutex
				var got []Event
				bus.SubscribeAll(func(ctx context.Context, event Event) error {
					mu.Lock()
					got = append(got, event)
					mu.Unlock()
					wg.Done()
					return nil
				})

				ctx, cancel := context.WithCancel(context.Background())
				defer cancel()
				bus.Start(ctx)
				waitGroupTimeout(t, &wg, 2*time.Second)

				mu.Lock()
				defer mu.Unlock()
				require.Len(t, got, 2)
				assert.Equal(t, EventStatusUpdated, got[0].Type)
				assert.Equal(t, 20.0, got[0].Progress)
				assert.Equal(t, tt.terminal, got[1].Type)
			})
		}
	})

	t.Run("Terminal Types", func(t *testing.T) {
		tests := []struct {
			eventType EventType
			want      bool
		}{
			{EventSubmitted, false},
			{EventRevisionSubmitted, false},
			{EventStatusUpdated, false},
			{EventCompleted, true},
			{EventFailed, true},
			{EventReset, false},
		}
		for _, tt := range tests {
			assert.Equal(t, tt.want, tt.eventType.Terminal(), string(tt.eventType))
		}
	})

	t.Run("Context Cancellation", func(t *testing.T) {
		bus := NewBus(EventChannelSize)

		ctx, cancel := context.WithCancel(context.Background())
		bus.Subscribe(EventReset, func(ctx context.Context, event Event) error {
			t.Error("Handler should not be called after context cancellation")
			return nil
		})
		bus.Start(ctx)
		cancel()

		// Give some time for the goroutine to process the cancellation
		time.Sleep(100 * time.Millisecond)

		// This should not block or panic
		bus.Publish(Event{Type: EventReset})
		time.Sleep(100 * time.Millisecond)
	})

	t.Run("Default Size", func(t *testing.T) {
		bus := NewBus(0)
		assert.Equal(t, EventChannelSize, cap(bus.eventChan))
	})
}
