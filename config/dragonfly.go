package config

import (
	"fmt"
	"net"
	"strconv"

	"github.com/caarlos0/env/v8"
)

// Dragonfly is the Redis-compatible store backing the image size cache. It
// is read only when CACHE_ENABLED is set.
type Dragonfly struct {
	Host     string `env:"DRAGONFLY_HOST,notEmpty"`
	Port     int    `env:"DRAGONFLY_PORT,required"`
	DB       int    `env:"DRAGONFLY_DB" envDefault:"0"`
	Password string `env:"DRAGONFLY_PASSWORD"`
}

func NewDragonflyConfig() (*Dragonfly, error) {
	conf := &Dragonfly{}

	if err := env.Parse(conf); err != nil {
		return nil, fmt.Errorf("parse dragonfly config: %w", err)
	}

	return conf, nil
}

func (d *Dragonfly) Addr() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}
