package sizes

import (
	"fmt"

	"github.com/klauspost/compress/gzip"
)

// GzipLevelCodec measures gzip output at a fixed compression level.
type GzipLevelCodec struct {
	level int
}

// NewGzipCodec creates a codec at gzip.BestCompression, the level
// gzip-size tooling reports.
func NewGzipCodec() *GzipLevelCodec {
	return &GzipLevelCodec{level: gzip.BestCompression}
}

// GzipSize implements GzipCodec.
func (c *GzipLevelCodec) GzipSize(data []byte) (int, error) {
	var counter byteCounter
	zw, err := gzip.NewWriterLevel(&counter, c.level)
	if err != nil {
		return 0, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	if _, err := zw.Write(data); err != nil {
		return 0, fmt.Errorf("failed to compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("failed to flush gzip writer: %w", err)
	}
	return counter.n, nil
}

type byteCounter struct {
	n int
}

func (c *byteCounter) Write(p []byte) (int, error) {
	c.n += len(p)
	return len(p), nil
}
