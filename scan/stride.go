package scan

import (
	"iter"
	"portsniffer/types"
)

// Stride yields the ports owned by the worker at offset when the port space
// is dealt round-robin over workers: offset+1, offset+1+workers, ... up to
// and including 65535.
func Stride(offset, workers int) iter.Seq[uint16] {
	return func(yield func(uint16) bool) {
		if workers < 1 || offset < 0 {
			return
		}
		for port := offset + 1; port <= types.MaxPort; port += workers {
			if !yield(uint16(port)) {
				return
			}
		}
	}
}
