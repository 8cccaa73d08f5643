package vfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/synfs/synfs/internal/logger"
	"github.com/synfs/synfs/pkg/entity"
	"github.com/synfs/synfs/pkg/rest"
	"github.com/synfs/synfs/pkg/upload"
)

// copyBufferSize is the increment used when draining a virtual file to a
// local sink.
const copyBufferSize = 32 * 1024

// FileSystem is the facade composing the path resolver, the stream
// adapters and the upload engine into filesystem-shaped operations.
//
// At most one FileSystem is active per process: New returns the existing
// open instance when there is one. The store handle is stateless and
// safely shared across goroutines. Close only flips a flag; operations
// are not blocked post-close (accepted simplification).
type FileSystem struct {
	store  rest.Store
	engine *upload.Engine

	mu     sync.Mutex
	closed bool
}

var (
	activeMu sync.Mutex
	active   *FileSystem
)

// New returns the process-wide filesystem over the given store, creating
// it on first use. While an instance is open, New returns that instance
// and ignores its arguments.
func New(store rest.Store, engineCfg upload.Config) *FileSystem {
	activeMu.Lock()
	defer activeMu.Unlock()

	if active != nil {
		return active
	}
	active = &FileSystem{
		store:  store,
		engine: upload.NewEngineWithConfig(store, engineCfg),
	}
	return active
}

// Close marks the filesystem closed and releases the process-wide slot,
// so a later New builds a fresh instance.
func (fs *FileSystem) Close() error {
	fs.mu.Lock()
	fs.closed = true
	fs.mu.Unlock()

	activeMu.Lock()
	if active == fs {
		active = nil
	}
	activeMu.Unlock()
	return nil
}

// OpenChannel opens a byte channel on the given path.
//
// Write-intent flags require a write-target path and produce a
// WriteChannel buffering into a scratch file. Otherwise the path is read
// as an entity: it must be a file with a file handle, and the returned
// ReadChannel streams its content forward-only.
func (fs *FileSystem) OpenChannel(ctx context.Context, path *entity.Path, flags OpenFlag) (Channel, error) {
	if flags.writeIntent() {
		if !path.IsWriteTarget() {
			return nil, entity.NewPathError(entity.ErrInvalidArgument,
				"write target must name a file inside a folder", path.String())
		}
		return NewWriteChannel(ctx, fs.engine, path.ID(), path.RelativeName())
	}

	meta, err := fs.getEntity(ctx, path)
	if err != nil {
		return nil, err
	}
	if !meta.IsFile() {
		return nil, entity.NewPathError(entity.ErrNotAFile, "entity is not a file", path.String())
	}
	if meta.DataFileHandleID == "" {
		return nil, entity.NewPathError(entity.ErrNoFileHandle, "entity has no file handle", path.String())
	}

	url, err := fs.store.GetDownloadURL(ctx, meta.ID, meta.DataFileHandleID)
	if err != nil {
		return nil, err
	}

	// FileSize may be -1 when the backend does not know the content
	// size; callers must treat that as unknown, not zero.
	return NewReadChannel(ctx, fs.store, url, meta.FileSize), nil
}

// CreateDirectory succeeds as a no-op when the target already exists as
// a folder entity and fails with ErrNotAFolder otherwise. Folders are
// never actually created by this call; they pre-exist or are
// materialized implicitly by the upload engine.
func (fs *FileSystem) CreateDirectory(ctx context.Context, path *entity.Path) error {
	if path.IsWriteTarget() {
		return entity.NewPathError(entity.ErrNotAFolder, "directory does not exist", path.String())
	}

	isFolder, err := fs.store.IsFolder(ctx, path.ID())
	if err != nil || !isFolder {
		return entity.NewPathError(entity.ErrNotAFolder, "directory does not exist", path.String())
	}
	return nil
}

// Delete always succeeds and performs no action. Deletion is
// unsupported, but callers attempting cleanup must not break.
func (fs *FileSystem) Delete(ctx context.Context, path *entity.Path) error {
	logger.Debug("ignoring delete of %s (deletion is unsupported)", path.String())
	return nil
}

// Move is always rejected.
func (fs *FileSystem) Move(ctx context.Context, source, target *entity.Path) error {
	return entity.NewError(entity.ErrNotSupported, "move is not supported")
}

// Copy copies between a local file and a virtual path. Exactly one side
// must be a virtual URI (syn:// scheme); the other is a local filesystem
// path. Virtual-to-virtual copies are rejected.
func (fs *FileSystem) Copy(ctx context.Context, source, target string) error {
	sourceVirtual := isVirtualURI(source)
	targetVirtual := isVirtualURI(target)

	switch {
	case sourceVirtual && targetVirtual:
		return entity.NewError(entity.ErrNotSupported, "virtual-to-virtual copy is not supported")
	case !sourceVirtual && !targetVirtual:
		return entity.NewError(entity.ErrInvalidArgument, "exactly one side of a copy must be a virtual path")
	case targetVirtual:
		return fs.copyFromLocal(ctx, source, target)
	default:
		return fs.copyToLocal(ctx, source, target)
	}
}

func (fs *FileSystem) copyFromLocal(ctx context.Context, localPath, targetURI string) error {
	target, err := entity.Parse(targetURI)
	if err != nil {
		return err
	}
	if !target.IsWriteTarget() {
		return entity.NewPathError(entity.ErrInvalidArgument,
			"copy target must name a file inside a folder", targetURI)
	}

	entityID, err := fs.engine.Upload(ctx, localPath, target.ID(), target.RelativeName())
	if err != nil {
		return err
	}
	logger.Info("uploaded %s to %s (%s)", localPath, targetURI, entityID)
	return nil
}

func (fs *FileSystem) copyToLocal(ctx context.Context, sourceURI, localPath string) error {
	source, err := entity.Parse(sourceURI)
	if err != nil {
		return err
	}

	channel, err := fs.OpenChannel(ctx, source, FlagRead)
	if err != nil {
		return err
	}
	defer func() { _ = channel.Close() }()

	sink, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create copy destination: %w", err)
	}

	buf := make([]byte, copyBufferSize)
	_, err = io.CopyBuffer(sink, onlyReader{channel}, buf)
	if closeErr := sink.Close(); err == nil {
		err = closeErr
	}
	return err
}

// onlyReader hides the channel's WriteTo/ReadFrom-free surface from
// io.CopyBuffer so the fixed-size buffer is actually used.
type onlyReader struct {
	r io.Reader
}

func (o onlyReader) Read(p []byte) (int, error) {
	return o.r.Read(p)
}

// CheckAccess verifies the requested access modes against the entity.
//
// Write-target paths denote not-yet-existing upload destinations and
// always fail with ErrNotFound. Write access requires the target to be
// a folder; read access requires a successful metadata fetch.
func (fs *FileSystem) CheckAccess(ctx context.Context, path *entity.Path, mode AccessMode) error {
	if path.IsWriteTarget() {
		return entity.NewPathError(entity.ErrNotFound, "write target does not exist yet", path.String())
	}

	if mode&AccessWrite != 0 {
		isFolder, err := fs.store.IsFolder(ctx, path.ID())
		if err != nil {
			return err
		}
		if !isFolder {
			return entity.NewPathError(entity.ErrAccessDenied,
				"write access requires a folder entity", path.String())
		}
	}

	if mode&AccessWrite == 0 || mode&AccessRead != 0 {
		if _, err := fs.getEntity(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

// ReadDir always returns an empty listing. The backend exposes no
// listing-by-path operation here, so enumeration is unsupported but must
// not error.
func (fs *FileSystem) ReadDir(ctx context.Context, path *entity.Path) ([]entity.Child, error) {
	return []entity.Child{}, nil
}

// Stat fetches the entity metadata of a path.
func (fs *FileSystem) Stat(ctx context.Context, path *entity.Path) (*entity.Metadata, error) {
	if path.IsWriteTarget() {
		return nil, entity.NewPathError(entity.ErrNotFound, "write target does not exist yet", path.String())
	}
	return fs.getEntity(ctx, path)
}

// DisplayName resolves the human-readable name of a path through the
// store, memoized on the path instance.
func (fs *FileSystem) DisplayName(ctx context.Context, path *entity.Path) string {
	return path.DisplayName(ctx, entity.NameResolverFunc(func(ctx context.Context, id string) (string, error) {
		meta, err := fs.store.GetEntity(ctx, id, rest.LatestVersion)
		if err != nil {
			return "", err
		}
		return meta.Name, nil
	}))
}

func (fs *FileSystem) getEntity(ctx context.Context, path *entity.Path) (*entity.Metadata, error) {
	version := rest.LatestVersion
	if v, ok := path.Version(); ok {
		version = v
	}
	return fs.store.GetEntity(ctx, path.ID(), version)
}

func isVirtualURI(s string) bool {
	return strings.Contains(s, "://")
}
