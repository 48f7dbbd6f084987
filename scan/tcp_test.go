package scan

import (
	"context"
	"errors"
	"net"
	"portsniffer/types"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loopback = net.ParseIP("127.0.0.1")

func listenLoopback(t *testing.T) (net.Listener, uint16) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EACCES) {
			t.Skipf("skipping, cannot listen on loopback: %v", err)
		}
		t.Fatalf("failed to start TCP listener: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	return ln, uint16(ln.Addr().(*net.TCPAddr).Port)
}

func TestTCPProber_Open(t *testing.T) {
	_, port := listenLoopback(t)

	prober := &TCPProber{Timeout: 500 * time.Millisecond}
	assert.Equal(t, types.OPEN, prober.Probe(context.Background(), loopback, port))
}

func TestTCPProber_Closed(t *testing.T) {
	ln, port := listenLoopback(t)
	require.NoError(t, ln.Close())

	prober := &TCPProber{Timeout: 500 * time.Millisecond}
	assert.NotEqual(t, types.OPEN, prober.Probe(context.Background(), loopback, port))
}

func TestTCPProber_CancelledContext(t *testing.T) {
	_, port := listenLoopback(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prober := &TCPProber{}
	assert.NotEqual(t, types.OPEN, prober.Probe(ctx, loopback, port))
}

func TestIsFiltered(t *testing.T) {
	noRoute := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connect: no route to host")}
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connect: connection refused")}

	assert.True(t, isFiltered(noRoute))
	assert.False(t, isFiltered(refused))
}

func TestRun_Loopback(t *testing.T) {
	if testing.Short() {
		t.Skip("full loopback sweep skipped in short mode")
	}
	_, port := listenLoopback(t)

	got := Run(context.Background(), loopback, 256, &TCPProber{Timeout: time.Second}, nil)
	assert.Contains(t, got, port)
	assert.IsIncreasing(t, got)
}
