package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktpeek/internal/core"
)

func TestSinkConfigName(t *testing.T) {
	assert.Equal(t, SinkStdout, SinkConfig{}.Name())
	assert.Equal(t, SinkStdout, SinkConfig{Type: SinkStdout, Path: "x.log"}.Name())
	assert.Equal(t, DefaultSinkPath, SinkConfig{Type: SinkFile}.Name())
	assert.Equal(t, "p.log", SinkConfig{Type: SinkFile, Path: "p.log"}.Name())
}

func TestOpenSinkStdout(t *testing.T) {
	w, err := OpenSink(SinkConfig{Type: SinkStdout})
	require.NoError(t, err)
	assert.NoError(t, w.Close())

	_, err = os.Stdout.Stat()
	assert.NoError(t, err, "closing the stdout sink must leave stdout open")
}

func TestOpenSinkFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packets.log")
	require.NoError(t, os.WriteFile(path, []byte("previous\n"), 0o644))

	w, err := OpenSink(SinkConfig{Type: SinkFile, Path: path})
	require.NoError(t, err)

	s, err := Open(w, Config{SinkName: path})
	require.NoError(t, err)
	require.NoError(t, s.LogSend([]byte{0x01, 'h', 'i', '!', 0}))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, len(out) > len("previous\n"))
	assert.Equal(t, "previous\n", out[:len("previous\n")])
	assert.Contains(t, out, "  Log file: "+path+"\n")
	assert.Contains(t, out, `[001] char[4]: "hi!"`)
	assert.Contains(t, out, "SESSION END - SEND: 1 packets | RECV: 0 packets")
}

func TestOpenSinkUnknownType(t *testing.T) {
	_, err := OpenSink(SinkConfig{Type: "kafka"})
	assert.True(t, errors.Is(err, core.ErrConfigInvalid))
}
