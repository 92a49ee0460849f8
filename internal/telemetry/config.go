package telemetry

import (
	"net"

	"codeberg.org/mutker/hrvmon/internal/errors"
)

const defaultListen = "127.0.0.1:9464"

type Config struct {
	Enabled bool
	Listen  string
}

func DefaultConfig() Config {
	return Config{
		Listen: defaultListen,
	}
}

func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	errFactory := errors.New()
	if c.Listen == "" {
		return errFactory.New(ErrInvalidListen)
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return errFactory.Wrap(ErrInvalidListen, err)
	}
	return nil
}
