package iofilters

import "github.com/kelseyhightower/envconfig"

const (
	defaultBufferSize = 64 * 1024
	defaultChunkSize  = 32 * 1024
)

// settings are the buffer size defaults, overridable through IOFILTERS_*
// environment variables.
type settings struct {
	BufferSize int `split_words:"true" default:"65536"`
	ChunkSize  int `split_words:"true" default:"32768"`
}

func loadSettings() settings {
	var s settings
	if err := envconfig.Process("iofilters", &s); err != nil {
		return settings{BufferSize: defaultBufferSize, ChunkSize: defaultChunkSize}
	}

	return s
}
