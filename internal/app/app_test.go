package app

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netmon/internal/config"
)

func TestMemoryLimitGB(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"1GB", 1},
		{"16gb", 16},
		{" 4 ", 4},
		{"", 0},
		{"512MB", 0},
		{"-2GB", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, memoryLimitGB(tt.in), tt.in)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.WithField("component", "test").Debug("hello")
	assert.True(t, strings.HasPrefix(buf.String(), "{"), buf.String())
	assert.Contains(t, buf.String(), `"component":"test"`)

	log = NewLogger(config.LogConfig{Level: "nonsense", Format: "text"}, &buf)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestBuildMemory(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default().WithDriver(config.DriverMemory)
	a, err := Build(context.Background(), cfg, NewLogger(cfg.Log, &buf))
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Service)
	assert.Nil(t, a.Graph)
	assert.Nil(t, a.RAG)
	require.NoError(t, a.Service.Ping(context.Background()))

	_, err = a.Service.Ask(context.Background(), "which offices are down?")
	assert.Error(t, err)
}

func TestBuildUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = "sqlite"
	_, err := Build(context.Background(), cfg, NewLogger(cfg.Log, &bytes.Buffer{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown storage driver "sqlite"`)
}
