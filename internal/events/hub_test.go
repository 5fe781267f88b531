package events

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastJSONToTCPClient(t *testing.T) {
	hub := NewHub()

	client, server := net.Pipe()
	defer client.Close()
	hub.Add(server)

	lines := make(chan string, 1)
	go func() {
		line, err := bufio.NewReader(client).ReadString('\n')
		if err == nil {
			lines <- line
		}
	}()

	hub.BroadcastJSON(CatalogEvent{Type: TypeImport, Added: 3, At: time.Now().UTC()})

	select {
	case line := <-lines:
		var ev CatalogEvent
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		assert.Equal(t, TypeImport, ev.Type)
		assert.Equal(t, 3, ev.Added)
	case <-time.After(3 * time.Second):
		t.Fatal("no event received")
	}
}

func TestBroadcastDropsDeadClient(t *testing.T) {
	hub := NewHub()

	client, server := net.Pipe()
	hub.Add(server)
	require.Equal(t, 1, hub.Stats().TCPClients)

	// Nobody reads and the pipe is closed, so the write fails and the
	// client is evicted.
	_ = client.Close()
	hub.BroadcastJSON(CatalogEvent{Type: TypeBookDelete})

	assert.Zero(t, hub.Stats().TCPClients)
}

func TestRemoveClosesConnection(t *testing.T) {
	hub := NewHub()

	client, server := net.Pipe()
	defer client.Close()
	hub.Add(server)
	hub.Remove(server)

	assert.Zero(t, hub.Stats().TCPClients)
}
