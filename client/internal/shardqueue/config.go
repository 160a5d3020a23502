package shardqueue

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config groups all tunables. Values are taken from environment variables
// with the prefix "MEETUPZ_SQ_", e.g. MEETUPZ_SQ_SHARDS=8.
type Config struct {
	Shards         int           `envconfig:"SHARDS"          default:"4"`
	QueueSize      int           `envconfig:"QUEUE_SIZE"      default:"128"`
	EnqueueTimeout time.Duration `envconfig:"ENQUEUE_TIMEOUT" default:"100ms"`

	// ErrorHandler is called on the worker goroutine once a job has failed
	// (including a recovered panic). Nil ignores failures.
	ErrorHandler func(key string, err error) `envconfig:"-"`
}

// LoadConfig populates Config from environment variables (prefix MEETUPZ_SQ_).
func LoadConfig() (Config, error) {
	var c Config
	return c, envconfig.Process("MEETUPZ_SQ", &c)
}

func (c Config) withDefaults() Config {
	if c.Shards <= 0 {
		c.Shards = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 128
	}
	if c.EnqueueTimeout <= 0 {
		c.EnqueueTimeout = 100 * time.Millisecond
	}
	return c
}
