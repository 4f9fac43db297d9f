// Package config reads LiveBoard settings from the environment. Command line
// flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

var ErrInvalid = errors.New("invalid configuration")

// Host configures the board host: the relay, its HTTP surface and discovery.
type Host struct {
	HTTPAddr        string        `env:"LIVEBOARD_HTTP_ADDR"        envDefault:":8888"`
	Advertise       bool          `env:"LIVEBOARD_ADVERTISE"        envDefault:"true"`
	ServiceName     string        `env:"LIVEBOARD_SERVICE_NAME"     envDefault:"LiveBoard"`
	MaxFrameBytes   int64         `env:"LIVEBOARD_MAX_FRAME_BYTES"  envDefault:"1048576"`
	FrameCeiling    int64         `env:"LIVEBOARD_FRAME_CEILING"    envDefault:"8388608"`
	PeerQueue       int           `env:"LIVEBOARD_PEER_QUEUE"       envDefault:"256"`
	ShutdownTimeout time.Duration `env:"LIVEBOARD_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Join configures a drawing client.
type Join struct {
	CursorFPS       int           `env:"LIVEBOARD_CURSOR_FPS"        envDefault:"30"`
	DiscoverTimeout time.Duration `env:"LIVEBOARD_DISCOVER_TIMEOUT"  envDefault:"3s"`
}

func LoadHost() (Host, error) {
	var cfg Host
	if err := env.Parse(&cfg); err != nil {
		return Host{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

func LoadJoin() (Join, error) {
	var cfg Join
	if err := env.Parse(&cfg); err != nil {
		return Join{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate reports the first setting that cannot work.
func (h Host) Validate() error {
	switch {
	case h.HTTPAddr == "":
		return fmt.Errorf("%w: http address is empty", ErrInvalid)
	case h.MaxFrameBytes < 1024:
		return fmt.Errorf("%w: max frame bytes %d is below 1024", ErrInvalid, h.MaxFrameBytes)
	case h.FrameCeiling < h.MaxFrameBytes:
		return fmt.Errorf("%w: frame ceiling %d is below max frame bytes %d", ErrInvalid, h.FrameCeiling, h.MaxFrameBytes)
	case h.PeerQueue < 1:
		return fmt.Errorf("%w: peer queue must be positive", ErrInvalid)
	case h.ShutdownTimeout <= 0:
		return fmt.Errorf("%w: shutdown timeout must be positive", ErrInvalid)
	case h.Advertise && h.ServiceName == "":
		return fmt.Errorf("%w: service name is required when advertising", ErrInvalid)
	}
	return nil
}

func (j Join) Validate() error {
	if j.CursorFPS < 1 || j.CursorFPS > 240 {
		return fmt.Errorf("%w: cursor fps %d outside 1..240", ErrInvalid, j.CursorFPS)
	}
	if j.DiscoverTimeout <= 0 {
		return fmt.Errorf("%w: discover timeout must be positive", ErrInvalid)
	}
	return nil
}
