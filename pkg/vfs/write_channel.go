package vfs

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/synfs/synfs/internal/logger"
	"github.com/synfs/synfs/pkg/entity"
	"github.com/synfs/synfs/pkg/upload"
)

// WriteChannel accumulates written bytes into a private scratch file and
// uploads the whole buffer on close.
//
// No network activity happens before Close: while open, the channel is
// an ordinary local file with full random-access semantics. Close
// finalizes the scratch file, runs the multipart upload synchronously
// and removes the scratch file whether or not the upload succeeded.
type WriteChannel struct {
	engine   *upload.Engine
	ctx      context.Context
	parentID string
	fileName string

	mu       sync.Mutex
	scratch  *os.File
	closed   bool
	entityID string
}

// NewWriteChannel creates a write channel targeting fileName (possibly
// nested) under the folder entity parentID.
func NewWriteChannel(ctx context.Context, engine *upload.Engine, parentID, fileName string) (*WriteChannel, error) {
	scratch, err := os.CreateTemp("", "synfs-upload-*")
	if err != nil {
		return nil, err
	}
	return &WriteChannel{
		engine:   engine,
		ctx:      ctx,
		parentID: parentID,
		fileName: fileName,
		scratch:  scratch,
	}, nil
}

// Read always fails: the channel is write-only.
func (c *WriteChannel) Read(p []byte) (int, error) {
	return 0, entity.NewError(entity.ErrNotSupported, "channel is write-only")
}

// Write appends to the scratch buffer at the current position.
func (c *WriteChannel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, entity.NewError(entity.ErrInvalidArgument, "channel is closed")
	}
	return c.scratch.Write(p)
}

// Position returns the current offset in the scratch buffer.
func (c *WriteChannel) Position() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, entity.NewError(entity.ErrInvalidArgument, "channel is closed")
	}
	return c.scratch.Seek(0, io.SeekCurrent)
}

// SetPosition moves the offset in the scratch buffer. Random access is
// available while the channel is open.
func (c *WriteChannel) SetPosition(offset int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return entity.NewError(entity.ErrInvalidArgument, "channel is closed")
	}
	_, err := c.scratch.Seek(offset, io.SeekStart)
	return err
}

// Size returns the current scratch buffer size.
func (c *WriteChannel) Size() (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, entity.NewError(entity.ErrInvalidArgument, "channel is closed")
	}
	info, err := c.scratch.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Truncate cuts the scratch buffer to the given size.
func (c *WriteChannel) Truncate(size int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return entity.NewError(entity.ErrInvalidArgument, "channel is closed")
	}
	return c.scratch.Truncate(size)
}

// Close finalizes the scratch file and uploads it synchronously. The
// scratch file is removed regardless of the upload outcome; an upload
// failure is returned from Close. A second close is a no-op.
func (c *WriteChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	path := c.scratch.Name()
	defer func() {
		if err := os.Remove(path); err != nil {
			logger.Warn("failed to remove upload scratch file %s: %v", path, err)
		}
	}()

	if err := c.scratch.Close(); err != nil {
		return err
	}

	entityID, err := c.engine.Upload(c.ctx, path, c.parentID, c.fileName)
	if err != nil {
		return err
	}
	c.entityID = entityID
	return nil
}

// EntityID returns the id of the created file entity. It is empty until
// Close succeeds.
func (c *WriteChannel) EntityID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entityID
}
