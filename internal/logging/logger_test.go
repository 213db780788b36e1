package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestEffectiveLevel(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    zapcore.Level
		wantErr bool
	}{
		{"default", Config{}, zapcore.InfoLevel, false},
		{"warn", Config{Level: "warn"}, zapcore.WarnLevel, false},
		{"debug flag wins", Config{Level: "error", Debug: true}, zapcore.DebugLevel, false},
		{"invalid", Config{Level: "loud"}, zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := effectiveLevel(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNew_WritesNamedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := New(Config{Level: "info", Development: true, OutputPaths: []string{path}})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("poll finished")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "[tracecheck]")
	assert.Contains(t, out, "poll finished")
	assert.NotContains(t, out, "hidden")

	stamp := strings.SplitN(out, " ", 4)
	require.Len(t, stamp, 4)
	_, err = time.Parse(TimeLayout, strings.Join(stamp[:3], " "))
	assert.NoError(t, err, "line starts with a %q timestamp: %s", TimeLayout, out)
}

func TestNew_DebugMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := New(Config{Level: "error", Debug: true, OutputPaths: []string{path}})
	require.NoError(t, err)

	logger.Debug("poll")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"poll"`)
	assert.Contains(t, string(data), `"logger":"tracecheck"`)
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	require.NotNil(t, logger)
	logger.Info("discarded")
}

func TestReportStartupFailure(t *testing.T) {
	var buf bytes.Buffer
	ReportStartupFailure(&buf, errors.New("invalid log level"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "tracecheck failed to start", lines[0])
	assert.Equal(t, "invalid log level", lines[1])
}
