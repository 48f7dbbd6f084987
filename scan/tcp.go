package scan

import (
	"context"
	"errors"
	"net"
	"portsniffer/types"
	"strconv"
	"strings"
	"time"
)

// TCPProber performs a full connect() per port. A zero Timeout leaves the
// connect bounded only by the operating system, so a filtered port can hold
// a worker for a long time.
type TCPProber struct {
	Timeout time.Duration
}

func (p *TCPProber) Probe(ctx context.Context, host net.IP, port uint16) types.ScanState {
	dialer := net.Dialer{Timeout: p.Timeout}
	targetStr := net.JoinHostPort(host.String(), strconv.FormatUint(uint64(port), 10))

	conn, err := dialer.DialContext(ctx, "tcp", targetStr)
	if err == nil {
		_ = conn.Close()
		return types.OPEN
	}

	var nErr net.Error
	if errors.As(err, &nErr) && (nErr.Timeout() || isFiltered(nErr)) {
		return types.FILTERED
	}
	return types.CLOSED
}

func isFiltered(err net.Error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Err != nil {
		return strings.Contains(opErr.Err.Error(), "no route to host")
	}
	return false
}
