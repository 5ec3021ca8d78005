package eventbus

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBusDeliversFilteredInOrder(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(16)

	var (
		mu  sync.Mutex
		got []string
	)
	_, err := bus.Subscribe(ctx, Filter{Types: []string{TypeTransactionCommitted}}, func(_ context.Context, ev *Envelope) {
		var p TransactionCommitted
		assert.NoError(t, ev.Decode(&p))
		mu.Lock()
		got = append(got, p.Label)
		mu.Unlock()
	})
	require.NoError(t, err)

	for _, label := range []string{"set", "walls", "smooth"} {
		ev, err := NewEnvelope(TypeTransactionCommitted, "node-1", TransactionCommitted{Operator: "alice", Label: label})
		require.NoError(t, err)
		require.NoError(t, bus.Publish(ctx, ev))
	}
	ev, err := NewEnvelope(TypeClipboardCleared, "node-1", ClipboardChanged{Operator: "alice"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, ev))

	require.NoError(t, bus.Close())
	assert.Equal(t, []string{"set", "walls", "smooth"}, got, "события приходят в порядке публикации")

	stats := bus.Metrics()
	assert.Equal(t, uint64(4), stats.Published)
	assert.Equal(t, uint64(3), stats.Consumed)

	assert.ErrorIs(t, bus.Publish(ctx, ev), ErrClosed, "после закрытия публикация запрещена")
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(4)
	calls := 0
	sub, err := bus.Subscribe(ctx, Filter{}, func(context.Context, *Envelope) { calls++ })
	require.NoError(t, err)
	sub.Unsubscribe()

	ev, err := NewEnvelope(TypeSelectionChanged, "node-1", SelectionChanged{Operator: "bob"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, ev))
	require.NoError(t, bus.Close())
	assert.Zero(t, calls, "отписанный обработчик не вызывается")
}

func TestEnvelopePriority(t *testing.T) {
	ev, err := NewEnvelope(TypeHistoryUndo, "n", HistoryReplayed{})
	require.NoError(t, err)
	assert.Equal(t, 7, ev.Priority)
	assert.NotEmpty(t, ev.ID)

	ev, err = NewEnvelope(TypeSelectionChanged, "n", SelectionChanged{})
	require.NoError(t, err)
	assert.Less(t, ev.Priority, 5, "выделение можно отбросить при перегрузке")
}

func TestMetricsExporterAddsDeltas(t *testing.T) {
	ctx := context.Background()
	bus := NewMemoryBus(8)
	reg := prometheus.NewRegistry()
	me := NewMetricsExporter(bus, reg)

	ev, err := NewEnvelope(TypeOperationFinished, "n", OperationFinished{})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, ev))
	require.NoError(t, bus.Publish(ctx, ev))
	me.Collect()
	me.Collect()
	assert.Equal(t, 2.0, testutil.ToFloat64(me.published), "повторный сбор не удваивает счётчик")
	require.NoError(t, bus.Close())
}

func TestJetStreamBus(t *testing.T) {
	url := os.Getenv("BLOCKEDIT_NATS_URL")
	if url == "" {
		url = "nats://127.0.0.1:4222"
	}
	bus, err := NewJetStreamBus(url, "BLOCKEDIT_TEST", time.Minute)
	if err != nil {
		t.Skipf("NATS недоступен: %v", err)
	}
	defer bus.Close()

	ctx := context.Background()
	received := make(chan *Envelope, 1)
	sub, err := bus.Subscribe(ctx, Filter{Types: []string{TypeHistoryRedo}}, func(_ context.Context, ev *Envelope) {
		received <- ev
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	ev, err := NewEnvelope(TypeHistoryRedo, "test", HistoryReplayed{Operator: "alice"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, ev))

	select {
	case got := <-received:
		assert.Equal(t, ev.ID, got.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("событие не доставлено")
	}
}
