package scan

import (
	"fmt"
	"io"
)

func PrintResults(w io.Writer, ports []uint16) error {
	for _, port := range ports {
		if _, err := fmt.Fprintf(w, "%d is open\n", port); err != nil {
			return err
		}
	}
	return nil
}
