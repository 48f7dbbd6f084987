package scan

import (
	"context"
	"errors"
	"net"
	"portsniffer/types"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Prober decides the state of a single port. Implementations must be safe
// for concurrent use by all workers.
type Prober interface {
	Probe(ctx context.Context, host net.IP, port uint16) types.ScanState
}

// ScanInit picks the prober for target.Mode and scans every port of
// target.Host. It only fails while the prober is being set up, never once
// probing has started.
func ScanInit(ctx context.Context, target types.ScanConfig, onOpen func(uint16)) ([]uint16, error) {
	if target.Workers < 1 {
		return nil, errors.New("worker count must be positive")
	}

	var prober Prober
	switch target.Mode {
	case types.TCP:
		prober = &TCPProber{Timeout: target.Timeout}
	case types.SYN:
		syn, err := NewSynProber(ctx, target.Host, target.Iface, target.Timeout)
		if err != nil {
			return nil, err
		}
		defer syn.Close()
		prober = syn
	default:
		return nil, errors.New("unknown scan mode")
	}

	return Run(ctx, target.Host, target.Workers, prober, onOpen), nil
}

// Run spawns exactly workers goroutines, each probing its own Stride, and
// returns the open ports in ascending order. onOpen, if set, is called once
// per distinct open port in discovery order. A cancelled ctx stops the
// workers between probes; whatever was found so far is still returned.
func Run(ctx context.Context, host net.IP, workers int, prober Prober, onOpen func(uint16)) []uint16 {
	start := time.Now()
	log.Info().
		Str("host", host.String()).
		Int("workers", workers).
		Msg("initiating scan")

	resChan := make(chan uint16, workers)
	var g errgroup.Group

	for i := 0; i < workers; i++ {
		offset := i
		g.Go(func() error {
			probeStride(ctx, host, offset, workers, prober, resChan)
			return nil
		})
	}
	go func() {
		// every worker holds the send side until its stride is done
		_ = g.Wait()
		close(resChan)
	}()

	open := parseResChan(resChan, onOpen)

	log.Info().
		Str("host", host.String()).
		Int("open", len(open)).
		Dur("elapsed", time.Since(start)).
		Bool("cancelled", ctx.Err() != nil).
		Msg("scan finished")

	return open
}

func probeStride(
	ctx context.Context,
	host net.IP,
	offset int,
	workers int,
	prober Prober,
	resChan chan<- uint16,
) {
	log.Debug().Int("worker", offset).Msg("worker started")
	probed := 0
	for port := range Stride(offset, workers) {
		if ctx.Err() != nil {
			break
		}
		probed++
		if prober.Probe(ctx, host, port) == types.OPEN {
			resChan <- port
		}
	}
	log.Debug().Int("worker", offset).Int("probed", probed).Msg("worker finished")
}

// parseResChan drains resChan until it is closed and returns the distinct
// ports sorted ascending.
func parseResChan(resChan <-chan uint16, onOpen func(uint16)) []uint16 {
	seen := make(map[uint16]struct{})
	for port := range resChan {
		if _, ok := seen[port]; ok {
			continue
		}
		seen[port] = struct{}{}
		if onOpen != nil {
			onOpen(port)
		}
	}

	open := make([]uint16, 0, len(seen))
	for port := range seen {
		open = append(open, port)
	}
	slices.Sort(open)
	return open
}
