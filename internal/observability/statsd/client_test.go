package statsd

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCaptureServer(t *testing.T) (*net.UDPConn, string, chan string) {
	t.Helper()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	lines := make(chan string, 16)
	go func() {
		buf := make([]byte, 1024)
		for {
			n, _, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			lines <- string(buf[:n])
		}
	}()

	return conn, conn.LocalAddr().String(), lines
}

func receiveLine(t *testing.T, lines chan string) string {
	t.Helper()
	select {
	case line := <-lines:
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for metric")
		return ""
	}
}

func TestNew_Disabled(t *testing.T) {
	sink, err := New(context.Background(), Config{Enabled: false})
	require.NoError(t, err)
	assert.IsType(t, NopSink{}, sink)
	assert.NoError(t, sink.Close())
}

func TestNew_EnabledRequiresAddress(t *testing.T) {
	_, err := New(context.Background(), Config{Enabled: true})
	assert.Error(t, err)
}

func TestClient_Count(t *testing.T) {
	_, addr, lines := newCaptureServer(t)

	sink, err := New(context.Background(), Config{Enabled: true, Address: addr, Prefix: "webhook_ingest"})
	require.NoError(t, err)
	defer sink.Close()

	sink.Count("events.processed", 3, map[string]string{"event_type": "buddy.match.created"})

	line := receiveLine(t, lines)
	assert.Equal(t, "webhook_ingest.events.processed:3|c|#event_type:buddy.match.created", line)
}

func TestClient_Gauge(t *testing.T) {
	_, addr, lines := newCaptureServer(t)

	sink, err := New(context.Background(), Config{Enabled: true, Address: addr, Prefix: "webhook_ingest."})
	require.NoError(t, err)
	defer sink.Close()

	sink.Gauge("dlq.depth", 12, nil)

	line := receiveLine(t, lines)
	assert.Equal(t, "webhook_ingest.dlq.depth:12|g", line)
}

func TestClient_Timing(t *testing.T) {
	_, addr, lines := newCaptureServer(t)

	sink, err := New(context.Background(), Config{Enabled: true, Address: addr})
	require.NoError(t, err)
	defer sink.Close()

	sink.Timing("ingest.duration", 250*time.Millisecond, map[string]string{
		"outcome":    "processed",
		"event_type": "volunteer.hours.logged",
	})

	line := receiveLine(t, lines)
	assert.Equal(t, "ingest.duration:250|ms|#event_type:volunteer.hours.logged,outcome:processed", line)
}

func TestClient_NormalizesReservedCharacters(t *testing.T) {
	_, addr, lines := newCaptureServer(t)

	sink, err := New(context.Background(), Config{Enabled: true, Address: addr})
	require.NoError(t, err)
	defer sink.Close()

	sink.Count("weird:name|here", 1, nil)

	line := receiveLine(t, lines)
	assert.Equal(t, "weird_name_here:1|c", line)
}
