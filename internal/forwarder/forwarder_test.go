package forwarder_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/hecrelay/common/logging"
	"github.com/telhawk-systems/hecrelay/internal/forwarder"
	"github.com/telhawk-systems/hecrelay/internal/forwarder/forwardertest"
	"github.com/telhawk-systems/hecrelay/internal/metrics"
)

func TestForwardSendsPacket(t *testing.T) {
	rec := &forwardertest.Recorder{}
	f := forwarder.New(rec, logging.Discard(), forwarder.Options{TTL: 32, SourcePort: 40001})

	sent := testutil.ToFloat64(metrics.PacketsSent.WithLabelValues("ipv4"))
	err := f.Forward(context.Background(), "10.0.0.5", "192.168.1.10", 514, []byte("hello"))
	require.NoError(t, err)

	pkts := rec.Packets()
	require.Len(t, pkts, 1)
	assert.Equal(t, "10.0.0.5", pkts[0].Src.String())
	assert.Equal(t, "192.168.1.10", pkts[0].Dst.String())
	assert.Equal(t, uint16(514), pkts[0].DstPort)
	assert.Equal(t, uint16(40001), pkts[0].SrcPort)
	assert.Equal(t, uint8(32), pkts[0].TTL)
	assert.Equal(t, []byte("hello"), pkts[0].Payload)
	assert.Equal(t, sent+1, testutil.ToFloat64(metrics.PacketsSent.WithLabelValues("ipv4")))
}

func TestForwardVerboseLogsSummary(t *testing.T) {
	opts := forwarder.Options{SourcePort: 40001}
	plain := &forwardertest.Recorder{}
	require.NoError(t, forwarder.New(plain, logging.Discard(), opts).
		Forward(context.Background(), "10.0.0.5", "192.168.1.10", 514, []byte("hello")))

	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, slog.LevelInfo, "json")
	opts.Verbose = true
	verbose := &forwardertest.Recorder{}
	require.NoError(t, forwarder.New(verbose, logger, opts).
		Forward(context.Background(), "10.0.0.5", "192.168.1.10", 514, []byte("hello")))

	var records []map[string]any
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.Len(t, records, 1)
	assert.Equal(t, "sending packet", records[0]["msg"])
	assert.Equal(t, "ipv4", records[0]["family"])
	summary, _ := records[0]["packet"].(string)
	assert.Contains(t, summary, "IPv4 10.0.0.5 > 192.168.1.10 ttl=64")
	assert.Contains(t, summary, "UDP 40001 > 514")
	assert.Contains(t, summary, "Payload 5 bytes")

	assert.Equal(t, plain.Packets(), verbose.Packets())
}

func TestForwardQuietByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, slog.LevelInfo, "json")
	rec := &forwardertest.Recorder{}

	require.NoError(t, forwarder.New(rec, logger, forwarder.Options{}).
		Forward(context.Background(), "10.0.0.5", "192.168.1.10", 514, []byte("hello")))

	assert.Empty(t, buf.String())
	assert.Equal(t, 1, rec.Len())
}

func TestForwardEphemeralSourcePort(t *testing.T) {
	rec := &forwardertest.Recorder{}
	f := forwarder.New(rec, logging.Discard(), forwarder.Options{})

	for i := 0; i < 50; i++ {
		require.NoError(t, f.Forward(context.Background(), "10.0.0.5", "10.0.0.6", 162, []byte("x")))
	}
	for _, p := range rec.Packets() {
		assert.GreaterOrEqual(t, p.SrcPort, uint16(49152))
		assert.Equal(t, uint8(64), p.TTL)
	}
}

func TestForwardInvalidPacket(t *testing.T) {
	rec := &forwardertest.Recorder{}
	f := forwarder.New(rec, logging.Discard(), forwarder.Options{})

	err := f.Forward(context.Background(), "not-an-ip", "10.0.0.6", 514, []byte("x"))
	assert.ErrorIs(t, err, forwarder.ErrInvalidPacket)
	assert.Zero(t, rec.Len())
}

func TestForwardSendFailure(t *testing.T) {
	boom := errors.New("network unreachable")
	rec := &forwardertest.Recorder{Fail: func(forwarder.Packet) error { return boom }}
	f := forwarder.New(rec, logging.Discard(), forwarder.Options{})

	failed := testutil.ToFloat64(metrics.SendErrors.WithLabelValues("ipv6"))
	err := f.Forward(context.Background(), "2001:db8::1", "2001:db8::2", 514, []byte("x"))
	assert.ErrorIs(t, err, forwarder.ErrSend)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, failed+1, testutil.ToFloat64(metrics.SendErrors.WithLabelValues("ipv6")))
}

func TestForwardCancelled(t *testing.T) {
	rec := &forwardertest.Recorder{}
	f := forwarder.New(rec, logging.Discard(), forwarder.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.Forward(ctx, "10.0.0.5", "10.0.0.6", 514, []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, rec.Len())
}

func TestRawSenderRequiresPrivilege(t *testing.T) {
	if forwarder.IsElevated() {
		t.Skip("running elevated; raw socket open would succeed")
	}
	s := forwarder.NewRawSender()
	defer s.Close()

	p, err := forwarder.NewPacket("10.0.0.5", "127.0.0.1", 514, []byte("x"))
	require.NoError(t, err)
	assert.ErrorIs(t, s.Send(p), forwarder.ErrSend)
}
