package remote

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mmeshcher/foodie-express/internal/model"
)

func setupTestSink(t *testing.T) (*miniredis.Miniredis, *RedisSink) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, newRedisSink(client, "test")
}

func TestNewRedisSink(t *testing.T) {
	mr := miniredis.RunT(t)

	sink, err := NewRedisSink(context.Background(), mr.Addr())
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	mr.Close()
	_, err = NewRedisSink(context.Background(), mr.Addr())
	assert.Error(t, err)
}

func TestRedisSink_CartRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, sink := setupTestSink(t)

	_, found, err := sink.ReadCart(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, found)

	state := model.CartState{
		Items: []model.CartLine{{
			MenuItem: model.MenuItem{ID: "1", Name: "Margherita Pizza", Price: decimal.NewFromInt(299)},
			Quantity: 2,
		}},
		Total: decimal.NewFromInt(598),
	}
	require.NoError(t, sink.WriteCart(ctx, "u1", state))
	assert.True(t, mr.Exists("test:cart:u1"))

	got, found, err := sink.ReadCart(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(598)))
}

func TestRedisSink_ReadCorruptCart(t *testing.T) {
	mr, sink := setupTestSink(t)
	require.NoError(t, mr.Set("test:cart:u1", "{broken"))

	_, _, err := sink.ReadCart(context.Background(), "u1")
	assert.Error(t, err)
}

func TestRedisSink_WriteOrder(t *testing.T) {
	ctx := context.Background()
	mr, sink := setupTestSink(t)

	for _, id := range []string{"o1", "o2"} {
		require.NoError(t, sink.WriteOrder(ctx, "u1", model.Order{
			ID:     id,
			UserID: "u1",
			Total:  decimal.NewFromInt(548),
			Status: model.OrderStatusPending,
		}))
	}

	ids, err := mr.List("test:orders:u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"o2", "o1"}, ids)

	raw, err := mr.Get("test:order:u1:o1")
	require.NoError(t, err)
	assert.Contains(t, raw, `"status":"pending"`)
}

func TestRedisSink_ErrorsWhenUnavailable(t *testing.T) {
	mr, sink := setupTestSink(t)
	mr.Close()

	ctx := context.Background()
	_, _, err := sink.ReadCart(ctx, "u1")
	assert.Error(t, err)
	assert.Error(t, sink.WriteCart(ctx, "u1", model.CartState{}))
	assert.Error(t, sink.WriteOrder(ctx, "u1", model.Order{ID: "o1"}))
}

func TestMirror_RunsTasksInOrder(t *testing.T) {
	m := NewMirror(zaptest.NewLogger(t), 8)

	var (
		mu  sync.Mutex
		got []string
	)
	record := func(name string, err error) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			got = append(got, name)
			mu.Unlock()
			return err
		}
	}

	m.Enqueue("a", record("a", nil))
	m.Enqueue("b", record("b", errors.New("remote down")))
	m.Enqueue("c", record("c", nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, got)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMirror_DropsWhenFull(t *testing.T) {
	m := NewMirror(zaptest.NewLogger(t), 1)

	assert.True(t, m.Enqueue("first", func(context.Context) error { return nil }))
	assert.False(t, m.Enqueue("second", func(context.Context) error { return nil }))

	assert.Len(t, m.tasks, 1)
}
