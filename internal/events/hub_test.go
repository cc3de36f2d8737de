package events

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))

	_, unsub1 := hub.Subscribe()
	_, unsub2 := hub.Subscribe()

	if got := hub.SubscriberCount(); got != 2 {
		t.Fatalf("expected 2 subscribers, got %d", got)
	}

	unsub1()
	if got := hub.SubscriberCount(); got != 1 {
		t.Fatalf("expected 1 subscriber after unsubscribe, got %d", got)
	}

	unsub2()
	// Повторная отписка не паникует.
	unsub2()

	if got := hub.SubscriberCount(); got != 0 {
		t.Fatalf("expected 0 subscribers, got %d", got)
	}
}

func TestBroadcast(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))

	c1, unsub1 := hub.Subscribe()
	defer unsub1()
	c2, unsub2 := hub.Subscribe()
	defer unsub2()

	hub.Broadcast(NewMessage(EntityMenuItem, ActionDeleted, "3", nil))

	for _, c := range []<-chan Message{c1, c2} {
		select {
		case got := <-c:
			assert.Equal(t, "menu_item_deleted", got.Type)
			assert.Equal(t, "3", got.ID)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for broadcast")
		}
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))

	c, unsub := hub.Subscribe()
	defer unsub()

	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Broadcast(StorageChanged("cart/u1"))
	}

	assert.Len(t, c, subscriberBuffer)
}

func TestHandleWebSocketForwardsMessages(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))

	srv := httptest.NewServer(HandleWebSocket(hub))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.Eventually(t, func() bool { return hub.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(StorageChanged("customMenuItems"))

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var got Message
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "storage_changed", got.Type)
	assert.Equal(t, "customMenuItems", got.Key)

	conn.Close(ws.StatusNormalClosure, "")
	require.Eventually(t, func() bool { return hub.SubscriberCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
