package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func TestHub_PublishFansOut(t *testing.T) {
	hub := startHub(t)

	a := NewClient(hub, nil, "a")
	b := NewClient(hub, nil, "b")
	hub.Register(a)
	hub.Register(b)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Publish(map[string]interface{}{"type": "rating_updated", "item": "Pasta"}))

	for _, client := range []*Client{a, b} {
		select {
		case msg := <-client.Send:
			var event map[string]interface{}
			require.NoError(t, json.Unmarshal(msg, &event))
			assert.Equal(t, "Pasta", event["item"])
		case <-time.After(time.Second):
			t.Fatalf("client %s received nothing", client.SessionID)
		}
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := startHub(t)

	client := NewClient(hub, nil, "a")
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Unregister(client)
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-client.Send
	assert.False(t, open)
}

func TestHub_PublishRejectsUnencodable(t *testing.T) {
	hub := NewHub()
	assert.Error(t, hub.Publish(make(chan int)))
}
