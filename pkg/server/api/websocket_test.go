package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tc.com/price-oracle/pkg/logging"
	"tc.com/price-oracle/pkg/server/aggregator"
)

func newTestClient() *WebSocketClient {
	return &WebSocketClient{
		server:         NewWebSocketServer(":0", logging.NewNoopLogger()),
		send:           make(chan []byte, 16),
		subscribedAll:  true,
		subscribedKeys: make(map[string]bool),
	}
}

func TestWebSocketClient_Subscriptions(t *testing.T) {
	client := newTestClient()

	// New clients receive everything.
	assert.True(t, client.shouldReceive("LUNC/USD"))
	assert.True(t, client.shouldReceive("USTC/USD"))

	client.subscribe([]string{"LUNC/USD"})
	assert.True(t, client.shouldReceive("LUNC/USD"))
	assert.False(t, client.shouldReceive("USTC/USD"))

	client.subscribe([]string{"USTC/USD"})
	assert.True(t, client.shouldReceive("LUNC/USD"), "subscriptions accumulate")
	assert.True(t, client.shouldReceive("USTC/USD"))

	client.unsubscribe([]string{"LUNC/USD"})
	assert.False(t, client.shouldReceive("LUNC/USD"))

	client.subscribe([]string{"*"})
	assert.True(t, client.shouldReceive("anything"))

	client.unsubscribe(nil)
	assert.False(t, client.shouldReceive("anything"))
}

func TestWebSocketClient_HandleMessage(t *testing.T) {
	client := newTestClient()

	client.handleMessage([]byte(`{"type":"subscribe","instruments":["LUNC/USD"]}`))
	assert.True(t, client.shouldReceive("LUNC/USD"))
	assert.False(t, client.shouldReceive("USTC/USD"))

	client.handleMessage([]byte(`{"type":"ping"}`))
	select {
	case data := <-client.send:
		var msg map[string]string
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "pong", msg["type"])
	default:
		t.Fatal("expected pong response")
	}

	// Garbage and unknown types are ignored.
	client.handleMessage([]byte("{not json"))
	client.handleMessage([]byte(`{"type":"dance"}`))
}

func TestWebSocketServer_Broadcast(t *testing.T) {
	server := NewWebSocketServer(":0", logging.NewNoopLogger())

	subscribed := newTestClient()
	subscribed.subscribe([]string{"LUNC/USD"})
	other := newTestClient()
	other.subscribe([]string{"USTC/USD"})

	server.registerClient(subscribed)
	server.registerClient(other)

	ts := time.Now()
	server.broadcast(aggregateUpdate{
		instrument: "LUNC/USD",
		agg: aggregator.AggregatedPrice{
			Price:       decimal.RequireFromString("0.5"),
			Timestamp:   ts,
			SourcesUsed: 2,
			Confidence:  90,
			Valid:       true,
		},
	})

	select {
	case data := <-subscribed.send:
		var msg AggregateUpdateMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "aggregate_update", msg.Type)
		assert.Equal(t, "LUNC/USD", msg.Instrument)
		assert.Equal(t, "0.5", msg.Price)
		assert.Equal(t, 2, msg.SourcesUsed)
	default:
		t.Fatal("expected update for subscribed client")
	}

	select {
	case <-other.send:
		t.Fatal("unsubscribed client received update")
	default:
	}
}
