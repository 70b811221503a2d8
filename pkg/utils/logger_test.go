package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerLevels(t *testing.T) {
	var info, verbose bytes.Buffer
	log := NewLogger(
		LogSink{W: &info, MaxLevel: LevelInfo},
		LogSink{W: &verbose, MaxLevel: LevelVerbose},
	)

	log.Step("step %d", 1)
	log.Info("info")
	log.Verbose("detail %s", "x")
	log.Error("broken")

	assert.Equal(t, "step 1\ninfo\nbroken\n", info.String())
	assert.Equal(t, "step 1\ninfo\ndetail x\nbroken\n", verbose.String())

	assert.True(t, log.Enabled(LevelVerbose))
	assert.True(t, log.Enabled(LevelError))
}

func TestLoggerQuietSinkOnlyTakesErrors(t *testing.T) {
	var out bytes.Buffer
	log := NewLogger(LogSink{W: &out, MaxLevel: LevelError})

	log.Step("step")
	log.Info("info")
	log.Error("failed: %s", "layout")

	assert.Equal(t, "failed: layout\n", out.String())
	assert.False(t, log.Enabled(LevelInfo))
}

func TestLoggerColor(t *testing.T) {
	var out bytes.Buffer
	log := NewLogger(LogSink{W: &out, MaxLevel: LevelVerbose, Color: true})

	log.Error("bad")
	log.Info("plain")

	assert.Equal(t, colorRed+"bad"+colorReset+"\nplain\n", out.String())
}

func TestLoggerNil(t *testing.T) {
	var log *Logger
	assert.False(t, log.Enabled(LevelError))
	assert.NotPanics(t, func() {
		log.Info("ignored")
		log.Verbose("ignored")
	})
}

func TestFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mkimage.log")
	sink, closer, err := NewFileSink(path)
	require.NoError(t, err)

	log := NewLogger()
	log.AddSink(sink)
	log.Verbose("symbol main")
	require.NoError(t, closer.Close())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "symbol main\n", string(contents))

	_, _, err = NewFileSink(filepath.Join(t.TempDir(), "missing", "x.log"))
	assert.Error(t, err)
}

func TestStdoutSink(t *testing.T) {
	assert.Equal(t, LevelInfo, NewStdoutSink(false, false).MaxLevel)
	assert.Equal(t, LevelVerbose, NewStdoutSink(true, false).MaxLevel)

	quiet := NewStdoutSink(true, true)
	assert.Equal(t, LevelError, quiet.MaxLevel)
	assert.Equal(t, os.Stderr, quiet.W)
}
