package transfer

import "fmt"

// ChannelName tags the chunked download channel, distinguishing it from other
// message traffic between the two contexts.
const ChannelName = "file-download-stream"

// DefaultMaxChunkSize keeps every chunk message well under the channel's
// enforced per-message ceiling.
const DefaultMaxChunkSize = 64 * 1024

// Config describes one chunked transfer channel
type Config struct {
	// Name tags the channel; defaults to ChannelName
	Name string

	// MaxChunkSize is the largest payload slice a single chunk message may carry
	MaxChunkSize int

	// Buffer is the number of frames an in-memory pipe holds per direction
	Buffer int
}

// DefaultConfig returns the default channel configuration
func DefaultConfig() Config {
	return Config{
		Name:         ChannelName,
		MaxChunkSize: DefaultMaxChunkSize,
		Buffer:       16,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.MaxChunkSize <= 0 {
		c.MaxChunkSize = d.MaxChunkSize
	}
	if c.Buffer <= 0 {
		c.Buffer = d.Buffer
	}
	return c
}

// checkSize rejects chunk messages that exceed the configured ceiling
func (c Config) checkSize(msg Message) error {
	if ch, ok := msg.(Chunk); ok && len(ch.Data) > c.MaxChunkSize {
		return fmt.Errorf("%w: chunk of %d bytes exceeds %d", ErrMessageTooLarge, len(ch.Data), c.MaxChunkSize)
	}
	return nil
}
