package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		port:           8080,
		countdownTicks: 3,
		roundLength:    180 * time.Second,
		gracePeriod:    30 * time.Second,
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, validConfig().validate())

	cfg := validConfig()
	cfg.tlsCert = "/tmp/cert.pem"
	assert.Error(t, cfg.validate(), "cert without key")

	cfg = validConfig()
	cfg.port = 70000
	assert.Error(t, cfg.validate())

	cfg = validConfig()
	cfg.countdownTicks = 0
	assert.Error(t, cfg.validate())

	cfg = validConfig()
	cfg.roundLength = 500 * time.Millisecond
	assert.Error(t, cfg.validate())

	cfg = validConfig()
	cfg.gracePeriod = 0
	assert.Error(t, cfg.validate())
}

func TestConfigScheme(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "http", cfg.scheme())

	cfg.tlsCert = "/tmp/cert.pem"
	cfg.tlsKey = "/tmp/key.pem"
	assert.Equal(t, "https", cfg.scheme())
}

func TestCommandDefaults(t *testing.T) {
	cfg := &Config{}
	cmd := newCmd(cfg)

	assert.NoError(t, cmd.ParseFlags(nil))
	assert.Equal(t, 8080, cfg.port)
	assert.Equal(t, 3, cfg.countdownTicks)
	assert.Equal(t, 180*time.Second, cfg.roundLength)
	assert.Equal(t, 30*time.Second, cfg.gracePeriod)
	assert.NoError(t, cfg.validate())
}
