package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadHostDefaults(t *testing.T) {
	cfg, err := LoadHost()
	require.NoError(t, err)
	assert.Equal(t, Host{
		HTTPAddr:        ":8888",
		Advertise:       true,
		ServiceName:     "LiveBoard",
		MaxFrameBytes:   1 << 20,
		FrameCeiling:    8 << 20,
		PeerQueue:       256,
		ShutdownTimeout: 5 * time.Second,
	}, cfg)
}

func TestLoadHostFromEnv(t *testing.T) {
	t.Setenv("LIVEBOARD_HTTP_ADDR", "127.0.0.1:9999")
	t.Setenv("LIVEBOARD_ADVERTISE", "false")
	t.Setenv("LIVEBOARD_PEER_QUEUE", "8")

	cfg, err := LoadHost()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.HTTPAddr)
	assert.False(t, cfg.Advertise)
	assert.Equal(t, 8, cfg.PeerQueue)
}

func TestLoadHostRejectsBadValues(t *testing.T) {
	t.Setenv("LIVEBOARD_PEER_QUEUE", "0")
	_, err := LoadHost()
	assert.ErrorIs(t, err, ErrInvalid)

	t.Setenv("LIVEBOARD_PEER_QUEUE", "8")
	t.Setenv("LIVEBOARD_FRAME_CEILING", "2048")
	_, err = LoadHost()
	assert.ErrorIs(t, err, ErrInvalid)

	t.Setenv("LIVEBOARD_PEER_QUEUE", "many")
	_, err = LoadHost()
	assert.Error(t, err)
}

func TestLoadJoin(t *testing.T) {
	cfg, err := LoadJoin()
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.CursorFPS)
	assert.Equal(t, 3*time.Second, cfg.DiscoverTimeout)

	t.Setenv("LIVEBOARD_CURSOR_FPS", "0")
	_, err = LoadJoin()
	assert.ErrorIs(t, err, ErrInvalid)
}
