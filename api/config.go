package api

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

type CORSConfig struct {
	TrustedOrigins []string `yaml:"trusted_origins"`
}

type Config struct {
	Addr     string     `yaml:"addr"`
	CertFile string     `yaml:"cert_file"`
	KeyFile  string     `yaml:"key_file"`
	CORS     CORSConfig `yaml:"cors"`
	// MaxBodyBytes caps request bodies. Defaults to 1MB.
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("api server address is required")
	}

	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.New("cert_file and key_file must be set together")
	}

	if c.MaxBodyBytes < 0 {
		return errors.New("max_body_bytes cannot be negative")
	}

	for _, origin := range c.CORS.TrustedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid trusted origin %q", origin)
		}
	}

	return nil
}

func (c Config) maxBodyBytes() int64 {
	if c.MaxBodyBytes == 0 {
		return 1_048_576
	}
	return c.MaxBodyBytes
}

func (c Config) shutdownTimeout() time.Duration {
	if c.ShutdownTimeout == 0 {
		return 10 * time.Second
	}
	return c.ShutdownTimeout
}
