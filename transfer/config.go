package transfer

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/flux-p2p/flux/compress"
)

// DefaultPort is the well-known TCP port receivers listen on.
const DefaultPort = 5555

// Config carries every tunable of the transfer engine. Zero values are not
// usable; start from DefaultConfig or ConfigFromEnv.
type Config struct {
	// Host is the address senders dial to reach the receiver's listener.
	Host string `envconfig:"HOST" default:"127.0.0.1"`
	// Port is the TCP port the receiver binds and the sender dials.
	Port int `envconfig:"PORT" default:"5555"`

	// ChunkSize is the plaintext chunk size in bytes; each chunk is
	// sealed independently.
	ChunkSize int `envconfig:"CHUNK_SIZE" default:"4096"`
	// CompressionThreshold is the source size in bytes above which the
	// payload is compressed before encryption.
	CompressionThreshold int64 `envconfig:"COMPRESSION_THRESHOLD" default:"10485760"`

	// WaitTimeout bounds how long a sender waits for its receiver.
	WaitTimeout time.Duration `envconfig:"WAIT_TIMEOUT" default:"300s"`
	// PollInterval is the sender's rendezvous polling cadence, also the
	// worst-case cancellation latency while waiting.
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"500ms"`

	// DialAttempts, DialBackoff and DialTimeout shape the sender's
	// connect retry loop.
	DialAttempts int           `envconfig:"DIAL_ATTEMPTS" default:"3"`
	DialBackoff  time.Duration `envconfig:"DIAL_BACKOFF" default:"2s"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"30s"`

	// BindAttempts and BindBackoff shape the receiver's bind retry loop.
	BindAttempts int           `envconfig:"BIND_ATTEMPTS" default:"3"`
	BindBackoff  time.Duration `envconfig:"BIND_BACKOFF" default:"2s"`

	// AcceptTimeout bounds how long the receiver waits for the sender's
	// inbound connection.
	AcceptTimeout time.Duration `envconfig:"ACCEPT_TIMEOUT" default:"60s"`
	// MetadataTimeout bounds the read of the metadata line.
	MetadataTimeout time.Duration `envconfig:"METADATA_TIMEOUT" default:"30s"`
	// ReadTimeout bounds each frame read during RECEIVING.
	ReadTimeout time.Duration `envconfig:"READ_TIMEOUT" default:"60s"`
	// WriteTimeout bounds each frame write during SENDING.
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
}

// DefaultConfig returns the engine defaults: well-known port on loopback,
// 4 KiB chunks, 10 MiB compression gate, and the protocol's standard
// timeouts.
func DefaultConfig() Config {
	return Config{
		Host:                 "127.0.0.1",
		Port:                 DefaultPort,
		ChunkSize:            4096,
		CompressionThreshold: compress.Threshold,
		WaitTimeout:          300 * time.Second,
		PollInterval:         500 * time.Millisecond,
		DialAttempts:         3,
		DialBackoff:          2 * time.Second,
		DialTimeout:          30 * time.Second,
		BindAttempts:         3,
		BindBackoff:          2 * time.Second,
		AcceptTimeout:        60 * time.Second,
		MetadataTimeout:      30 * time.Second,
		ReadTimeout:          60 * time.Second,
		WriteTimeout:         30 * time.Second,
	}
}

// ConfigFromEnv returns DefaultConfig overridden by FLUX_* environment
// variables (FLUX_PORT, FLUX_HOST, FLUX_WAIT_TIMEOUT, ...).
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("flux", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
