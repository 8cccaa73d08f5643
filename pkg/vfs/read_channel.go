package vfs

import (
	"context"
	"io"
	"sync"

	"github.com/synfs/synfs/internal/logger"
	"github.com/synfs/synfs/pkg/entity"
	"github.com/synfs/synfs/pkg/rest"
)

// ReadChannel bridges one streaming HTTP download to the Channel
// contract, restricted to forward-only sequential reads.
//
// The connection is established lazily on the first read or position
// query, not at construction. The channel tracks its own position;
// seeking anywhere but the current position is rejected.
type ReadChannel struct {
	store rest.Store
	ctx   context.Context
	url   string
	size  int64

	mu     sync.Mutex
	body   io.ReadCloser
	pos    int64
	closed bool
}

// NewReadChannel creates a read channel over a presigned download URL.
// size comes from entity metadata and may be -1 when unknown.
func NewReadChannel(ctx context.Context, store rest.Store, url string, size int64) *ReadChannel {
	return &ReadChannel{store: store, ctx: ctx, url: url, size: size}
}

// ensureOpen establishes the underlying connection. Callers must hold mu.
func (c *ReadChannel) ensureOpen() error {
	if c.closed {
		return entity.NewError(entity.ErrInvalidArgument, "channel is closed")
	}
	if c.body != nil {
		return nil
	}

	body, err := c.store.OpenDownload(c.ctx, c.url)
	if err != nil {
		return err
	}
	c.body = body
	return nil
}

// Read fills p with the next bytes of the stream and advances the
// position. It returns io.EOF once the source is exhausted.
func (c *ReadChannel) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureOpen(); err != nil {
		return 0, err
	}

	n, err := c.body.Read(p)
	c.pos += int64(n)
	return n, err
}

// Write always fails: the channel is read-only.
func (c *ReadChannel) Write(p []byte) (int, error) {
	return 0, entity.NewError(entity.ErrNotSupported, "channel is read-only")
}

// Position returns the number of bytes consumed so far.
func (c *ReadChannel) Position() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureOpen(); err != nil {
		return 0, err
	}
	return c.pos, nil
}

// SetPosition succeeds only as a no-op when offset equals the current
// position; the stream does not support random access.
func (c *ReadChannel) SetPosition(offset int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureOpen(); err != nil {
		return err
	}
	if offset != c.pos {
		return entity.NewError(entity.ErrNotSupported, "seeking is not supported on a download stream")
	}
	return nil
}

// Size returns the size reported by entity metadata at open time, which
// may be -1 when unknown. Callers must treat -1 as unknown, not zero.
func (c *ReadChannel) Size() (int64, error) {
	return c.size, nil
}

// Truncate always fails: the channel is read-only.
func (c *ReadChannel) Truncate(size int64) error {
	return entity.NewError(entity.ErrNotSupported, "channel is read-only")
}

// Close releases the underlying connection exactly once. Close-time I/O
// errors are logged and swallowed; a second close is a no-op.
func (c *ReadChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.body != nil {
		if err := c.body.Close(); err != nil {
			logger.Warn("failed to close download stream for %s: %v", c.url, err)
		}
		c.body = nil
	}
	return nil
}
