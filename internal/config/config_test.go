package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestDefault(t *testing.T) {
	s := Default()
	assert.Equal(t, "scenes", s.Scenes.Dir)
	assert.True(t, s.Scenes.Validate)
	assert.Nil(t, s.Scenes.Minio)
	assert.False(t, s.Visibility.Strict)
	assert.False(t, s.Visibility.ApplyOverscan)
	assert.True(t, s.Visibility.ApplySqueeze)
	assert.Equal(t, ":8080", s.Server.Addr)
	assert.Equal(t, 10*time.Second, s.Server.ReadTimeout)
	assert.Equal(t, "info", s.Log.Level)
	require.NoError(t, s.Validate())
}

func TestParse(t *testing.T) {
	s, err := Parse([]byte(`
scenes:
  dir: /srv/scenes
  minio:
    endpoint: localhost:9000
    bucket: shots
    prefix: seq010/
visibility:
  strict: true
  apply_squeeze: false
server:
  read_timeout: 2s
log:
  level: debug
`))
	require.NoError(t, err)
	assert.Equal(t, "/srv/scenes", s.Scenes.Dir)
	require.NotNil(t, s.Scenes.Minio)
	assert.Equal(t, "shots", s.Scenes.Minio.Bucket)
	assert.True(t, s.Visibility.Strict)
	assert.False(t, s.Visibility.ApplySqueeze, "explicit false must survive defaults")
	assert.Equal(t, 2*time.Second, s.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, s.Server.WriteTimeout)
	assert.Equal(t, "debug", s.Log.Level)
}

func TestParseEmpty(t *testing.T) {
	s, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown key", yaml: "visibility:\n  bogus: 1\n"},
		{name: "bad level", yaml: "log:\n  level: loud\n"},
		{name: "bad encoding", yaml: "log:\n  encoding: xml\n"},
		{name: "minio without bucket", yaml: "scenes:\n  minio:\n    endpoint: localhost:9000\n"},
		{name: "minio bad endpoint", yaml: "scenes:\n  minio:\n    endpoint: 'not a host'\n    bucket: b\n"},
		{name: "zero timeout", yaml: "server:\n  read_timeout: 0s\n"},
		{name: "not yaml", yaml: "scenes: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "camview.yaml")
	require.NoError(t, os.WriteFile(p, []byte("server:\n  addr: 127.0.0.1:9999\n"), 0o644))

	s, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", s.Server.Addr)

	s, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), s)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(Log{Level: "warn", Encoding: "json"})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))

	l, err = NewLogger(Log{Level: "debug", Development: true})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = NewLogger(Log{Level: "chatty"})
	assert.Error(t, err)
}
