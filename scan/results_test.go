package scan

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintResults(&buf, []uint16{22, 80, 443}))
	assert.Equal(t, "22 is open\n80 is open\n443 is open\n", buf.String())

	buf.Reset()
	require.NoError(t, PrintResults(&buf, nil))
	assert.Empty(t, buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestPrintResults_WriteError(t *testing.T) {
	assert.Error(t, PrintResults(failingWriter{}, []uint16{22}))
}
