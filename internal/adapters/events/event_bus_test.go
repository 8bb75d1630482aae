package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaclennanMah/MediQ/internal/domain/entities"
	"github.com/MaclennanMah/MediQ/internal/domain/providers"
	redisclient "github.com/MaclennanMah/MediQ/internal/infrastructure/clients/redis"
)

func newRedisBus(t *testing.T) *RedisEventBus {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bus := NewRedisEventBus(redisclient.NewClientFromRedis(rdb))
	t.Cleanup(func() {
		bus.Close()
		rdb.Close()
	})
	return bus
}

func receive(t *testing.T, ch <-chan *entities.FacilityEvent) *entities.FacilityEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func waitClosed(t *testing.T, ch <-chan *entities.FacilityEvent) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel was not closed")
		}
	}
}

func busImplementations(t *testing.T) map[string]providers.EventBus {
	return map[string]providers.EventBus{
		"redis":  newRedisBus(t),
		"memory": NewMemoryEventBus(),
	}
}

func TestEventBus_PublishSubscribe(t *testing.T) {
	for name, bus := range busImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			channel := providers.GetFacilityChannel("f-1")
			first, err := bus.Subscribe(ctx, channel)
			require.NoError(t, err)
			second, err := bus.Subscribe(ctx, channel)
			require.NoError(t, err)

			estimate := 20
			event := entities.NewWaitTimeUpdateEvent(&entities.Facility{ID: "f-1"}, &estimate)
			require.NoError(t, bus.Publish(ctx, channel, event))

			for _, ch := range []<-chan *entities.FacilityEvent{first, second} {
				got := receive(t, ch)
				assert.Equal(t, event.ID, got.ID)
				assert.Equal(t, entities.FacilityEventTypeWaitTimeUpdate, got.EventType)
				assert.EqualValues(t, 20, got.ChangedFields["estimated_wait_minutes"])
			}
		})
	}
}

func TestEventBus_ContextCancelClosesSubscriber(t *testing.T) {
	for name, bus := range busImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			ch, err := bus.Subscribe(ctx, providers.EventChannelFacilityUpdates)
			require.NoError(t, err)

			cancel()
			waitClosed(t, ch)
		})
	}
}

func TestEventBus_CloseClosesSubscribers(t *testing.T) {
	for name, bus := range busImplementations(t) {
		t.Run(name, func(t *testing.T) {
			ch, err := bus.Subscribe(context.Background(), providers.EventChannelFacilityUpdates)
			require.NoError(t, err)

			require.NoError(t, bus.Close())
			waitClosed(t, ch)
		})
	}
}

func TestMemoryEventBus_OtherChannelNotDelivered(t *testing.T) {
	bus := NewMemoryEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, providers.GetFacilityChannel("a"))
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, providers.GetFacilityChannel("b"),
		entities.NewWaitTimeUpdateEvent(&entities.Facility{ID: "b"}, nil)))

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}
