package iofilters

import "go.uber.org/zap"

type config struct {
	log        *zap.Logger
	bufferSize int
	chunkSize  int
}

// Option configures a filter at construction time.
type Option func(*config)

// Option that sets the logger used for filter lifecycle events.
func WithLogger(log *zap.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

// Option that sets the Tee chunk buffer size in bytes.
func WithBufferSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.bufferSize = size
		}
	}
}

// Option that sets the Lambda copy buffer size in bytes.
func WithChunkSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

func newConfig(opts []Option) config {
	s := loadSettings()
	cfg := config{
		log:        zap.NewNop(),
		bufferSize: s.BufferSize,
		chunkSize:  s.ChunkSize,
	}

	for _, apply := range opts {
		apply(&cfg)
	}

	if cfg.bufferSize < 1 {
		cfg.bufferSize = defaultBufferSize
	}

	if cfg.chunkSize < 1 {
		cfg.chunkSize = defaultChunkSize
	}

	return cfg
}
