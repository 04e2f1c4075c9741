package eventbus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/contentflow/internal/domain"
)

var t0 = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func TestEnvelope_DecodesEveryEventType(t *testing.T) {
	email, _ := domain.NewEmail("a@b.io")
	u, _ := domain.NewUser("u1", email, "A", nil, t0)
	c, _ := domain.NewContent("c1", "T", domain.ContentBlogArticle, "B", "u1", t0)

	events := []domain.Event{
		domain.NewUserCreatedEvent(u, t0),
		domain.NewContentCreatedEvent(c, t0),
		domain.NewContentPublishedEvent("c1", "u1", t0),
		domain.NewWorkflowExecutedEvent("w1", "u1", map[string]any{"content_id": "c1"}, t0),
	}
	for _, ev := range events {
		t.Run(ev.EventType(), func(t *testing.T) {
			data, err := Marshal(ev)
			require.NoError(t, err)
			got, err := Unmarshal(data)
			require.NoError(t, err)
			assert.Equal(t, ev.EventID(), got.EventID())
			assert.Equal(t, ev.EventType(), got.EventType())
			assert.Equal(t, ev.AggregateID(), got.AggregateID())
			assert.True(t, ev.OccurredAt().Equal(got.OccurredAt()))
		})
	}
}

func TestEnvelope_UnknownType(t *testing.T) {
	_, err := Unmarshal([]byte(`{"event_type":"content.deleted","payload":{}}`))
	assert.ErrorIs(t, err, ErrUnknownEventType)

	_, err = Unmarshal([]byte(`not json`))
	assert.Error(t, err)
}

func TestDispatcher_RoutesAndJoinsErrors(t *testing.T) {
	d := NewDispatcher()
	var calls []string
	d.Subscribe(domain.EventContentPublished, "notify", func(context.Context, domain.Event) error {
		calls = append(calls, "notify")
		return errors.New("ses throttled")
	})
	d.Subscribe(domain.EventWorkflowExecuted, "relay", func(context.Context, domain.Event) error {
		calls = append(calls, "relay")
		return nil
	})
	d.SubscribeAll("archive", func(context.Context, domain.Event) error {
		calls = append(calls, "archive")
		return nil
	})

	err := d.Dispatch(context.Background(), domain.NewContentPublishedEvent("c1", "u1", t0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notify: ses throttled")
	assert.Equal(t, []string{"notify", "archive"}, calls, "a failing handler does not stop the rest")
}

func TestMemoryBus(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, domain.NewContentPublishedEvent("c1", "u1", t0)))

	bus.FailWith(errors.New("down"))
	assert.Error(t, bus.Publish(ctx, domain.NewContentPublishedEvent("c2", "u1", t0)))
	bus.FailWith(nil)

	assert.Len(t, bus.Events(), 1)
	assert.Len(t, bus.EventsOfType(domain.EventContentPublished), 1)
	assert.Empty(t, bus.EventsOfType(domain.EventUserCreated))
}

func TestAsyncBus_PublishDoesNotWaitForSubscribers(t *testing.T) {
	release := make(chan struct{})
	var handled int32
	d := NewDispatcher()
	d.SubscribeAll("slow", func(ctx context.Context, _ domain.Event) error {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
		atomic.AddInt32(&handled, 1)
		return nil
	})
	bus := NewAsyncBus(d, AsyncConfig{Buffer: 8})
	bus.Start()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(context.Background(), domain.NewContentPublishedEvent("c1", "u1", t0)))
	}
	assert.Less(t, time.Since(start), time.Second, "publish returns while the subscriber is still blocked")
	assert.Equal(t, int32(0), atomic.LoadInt32(&handled))

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, bus.Close(ctx))
	assert.Equal(t, int32(3), atomic.LoadInt32(&handled), "close drains the queue")
	assert.Equal(t, int64(3), bus.Stats()["handled"])
}

func TestAsyncBus_RejectsWhenFull(t *testing.T) {
	bus := NewAsyncBus(NewDispatcher(), AsyncConfig{Buffer: 1})
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, domain.NewContentPublishedEvent("c1", "u1", t0)))
	err := bus.Publish(ctx, domain.NewContentPublishedEvent("c2", "u1", t0))
	assert.ErrorIs(t, err, ErrBusFull)
	assert.Equal(t, int64(1), bus.Stats()["rejected"])
	assert.Equal(t, int64(1), bus.Stats()["queued"], "the queue is bounded")

	require.NoError(t, bus.Close(ctx))
	assert.ErrorIs(t, bus.Publish(ctx, domain.NewContentPublishedEvent("c3", "u1", t0)), ErrBusClosed)
	require.NoError(t, bus.Close(ctx))
}

func TestAsyncBus_SubscriberErrorsAreCounted(t *testing.T) {
	d := NewDispatcher()
	d.SubscribeAll("broken", func(context.Context, domain.Event) error { return errors.New("boom") })
	bus := NewAsyncBus(d, AsyncConfig{})
	bus.Start()

	require.NoError(t, bus.Publish(context.Background(), domain.NewContentPublishedEvent("c1", "u1", t0)))
	require.NoError(t, bus.Close(context.Background()))
	assert.Equal(t, int64(1), bus.Stats()["failed"])
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisBus_PublishAndConsume(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()

	var mu sync.Mutex
	var got []domain.Event
	d := NewDispatcher()
	d.SubscribeAll("collect", func(_ context.Context, ev domain.Event) error {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
		return nil
	})

	cons := NewConsumer(client, d, ConsumerConfig{
		Stream: "contentflow:events", Group: "automation", Name: "w1", Block: 10 * time.Millisecond,
	})
	require.NoError(t, cons.EnsureGroup(ctx))
	require.NoError(t, cons.EnsureGroup(ctx), "existing group is fine")

	bus := NewRedisBus(client, "contentflow:events", 1000)
	published := domain.NewContentPublishedEvent("c1", "u1", t0)
	executed := domain.NewWorkflowExecutedEvent("w1", "u1", map[string]any{"k": "v"}, t0)
	require.NoError(t, bus.Publish(ctx, published))
	require.NoError(t, bus.Publish(ctx, executed))

	n, err := cons.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, got, 2)
	assert.Equal(t, published.EventID(), got[0].EventID())
	wf, ok := got[1].(domain.WorkflowExecutedEvent)
	require.True(t, ok)
	assert.Equal(t, "v", wf.ExecutionData["k"])

	pending, err := client.XPending(ctx, "contentflow:events", "automation").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
	assert.Equal(t, int64(2), cons.Stats()["handled"])
}

func TestConsumer_FailedEntriesStayPending(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()

	fail := true
	d := NewDispatcher()
	d.SubscribeAll("flaky", func(context.Context, domain.Event) error {
		if fail {
			return errors.New("webhook down")
		}
		return nil
	})
	cons := NewConsumer(client, d, ConsumerConfig{
		Stream: "s", Group: "g", Name: "w1", Block: 10 * time.Millisecond, MinIdle: time.Millisecond,
	})
	require.NoError(t, cons.EnsureGroup(ctx))
	require.NoError(t, NewRedisBus(client, "s", 0).Publish(ctx, domain.NewContentPublishedEvent("c1", "u1", t0)))

	_, err := cons.Poll(ctx)
	require.NoError(t, err)
	pending, err := client.XPending(ctx, "s", "g").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count)

	fail = false
	time.Sleep(5 * time.Millisecond)
	n, err := cons.Reclaim(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err = client.XPending(ctx, "s", "g").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestConsumer_DropsUndecodableEntries(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()

	cons := NewConsumer(client, NewDispatcher(), ConsumerConfig{Stream: "s", Group: "g", Name: "w1", Block: 10 * time.Millisecond})
	require.NoError(t, cons.EnsureGroup(ctx))
	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{Stream: "s", Values: map[string]interface{}{"envelope": "garbage"}}).Err())

	n, err := cons.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := client.XPending(ctx, "s", "g").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

func TestConsumer_StartStop(t *testing.T) {
	_, client := newTestRedis(t)
	done := make(chan struct{}, 1)
	d := NewDispatcher()
	d.SubscribeAll("signal", func(context.Context, domain.Event) error {
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	})
	cons := NewConsumer(client, d, ConsumerConfig{Stream: "s", Group: "g", Name: "w1", Block: 10 * time.Millisecond})
	require.NoError(t, cons.Start(context.Background()))
	assert.Error(t, cons.Start(context.Background()))

	require.NoError(t, NewRedisBus(client, "s", 0).Publish(context.Background(), domain.NewContentPublishedEvent("c1", "u1", t0)))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not consumed")
	}
	cons.Stop()
	cons.Stop()
}
