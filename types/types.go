package types

import (
	"net"
	"time"
)

// MaxPort is the highest TCP port, every port in 1..MaxPort is probed.
const MaxPort = 65535

type ScanMode uint8

const (
	TCP ScanMode = iota
	SYN
)

func (m ScanMode) String() string {
	switch m {
	case TCP:
		return "tcp"
	case SYN:
		return "syn"
	default:
		return "unknown"
	}
}

type ScanState uint8

const (
	UNKNOWN ScanState = iota
	OPEN
	FILTERED
	CLOSED
)

func (s ScanState) String() string {
	switch s {
	case OPEN:
		return "open"
	case FILTERED:
		return "filtered"
	case CLOSED:
		return "closed"
	default:
		return "unknown"
	}
}

// ScanConfig is produced once by the argument resolver and never modified
// by the scan engine.
type ScanConfig struct {
	Host    net.IP
	Workers int
	Mode    ScanMode
	// zero means the operating system's connect timeout
	Timeout time.Duration
	Iface   string
}
