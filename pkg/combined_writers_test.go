package pkg

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestCombinedWriter_Write(t *testing.T) {
	stdout := &strings.Builder{}
	stdout.WriteString("already-here ")
	logFile := &strings.Builder{}

	cw := NewCombinedWriter(stdout, logFile)

	for _, line := range []string{"level=info msg=started\n", "level=debug msg=blog created\n"} {
		n, err := cw.Write([]byte(line))
		require.NoError(t, err)
		assert.Equal(t, len(line), n)
	}

	assert.Equal(t, "already-here level=info msg=started\nlevel=debug msg=blog created\n", stdout.String())
	assert.Equal(t, "level=info msg=started\nlevel=debug msg=blog created\n", logFile.String())
}

func TestCombinedWriter_Write_WithError(t *testing.T) {
	logFile := &strings.Builder{}
	cw := NewCombinedWriter(&faultyWriter{}, logFile, &faultyWriter{})

	msg := "a message"
	n, err := cw.Write([]byte(msg))
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Equal(t, len(msg), n)
	assert.Equal(t, msg, logFile.String())

	n, err = NewCombinedWriter(&faultyWriter{}).Write([]byte(msg))
	require.Error(t, err)
	assert.Zero(t, n)
}

type faultyWriter struct{}

func (fw *faultyWriter) Write(_ []byte) (int, error) {
	return 0, errors.New("disk full")
}
