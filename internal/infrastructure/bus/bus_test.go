package bus_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mercato-dev/marketcore/internal/domain/event"
	"github.com/mercato-dev/marketcore/internal/infrastructure/bus"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestBusFanout(t *testing.T) {
	b := bus.New(zap.NewNop())
	ctx := context.Background()

	var first, second int64
	b.Subscribe("order.placed", func(ctx context.Context, e event.Event) error {
		atomic.AddInt64(&first, 1)
		return nil
	})
	b.Subscribe("order.placed", func(ctx context.Context, e event.Event) error {
		atomic.AddInt64(&second, 1)
		return nil
	})
	b.Start(ctx)
	defer b.Stop(ctx)

	require.NoError(t, b.Publish(ctx, testEvent{name: "order.placed"}))

	waitFor(t, func() bool {
		return atomic.LoadInt64(&first) == 1 && atomic.LoadInt64(&second) == 1
	})
}

func TestBusSurvivesPanickingHandler(t *testing.T) {
	b := bus.New(zap.NewNop())
	ctx := context.Background()

	var delivered int64
	b.Subscribe("order.cancelled", func(ctx context.Context, e event.Event) error {
		panic("handler bug")
	})
	b.Subscribe("order.cancelled", func(ctx context.Context, e event.Event) error {
		atomic.AddInt64(&delivered, 1)
		return nil
	})
	b.Start(ctx)
	defer b.Stop(ctx)

	require.NoError(t, b.Publish(ctx, testEvent{name: "order.cancelled"}))
	require.NoError(t, b.Publish(ctx, testEvent{name: "order.cancelled"}))

	waitFor(t, func() bool { return atomic.LoadInt64(&delivered) == 2 })
}

func TestBusDropsUnsubscribedEvents(t *testing.T) {
	b := bus.New(zap.NewNop())
	ctx := context.Background()
	b.Start(ctx)
	defer b.Stop(ctx)

	assert.NoError(t, b.Publish(ctx, testEvent{name: "nobody.cares"}))
}

func TestBusPublishHonoursContext(t *testing.T) {
	b := bus.New(zap.NewNop())
	// Not started: the queue drains nowhere, so fill it up.
	for i := 0; i < 1024; i++ {
		require.NoError(t, b.Publish(context.Background(), testEvent{name: "x"}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := b.Publish(ctx, testEvent{name: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
