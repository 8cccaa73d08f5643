// Package upload implements the chunked multipart upload engine pushing
// local files into the entity store through presigned URLs.
//
// The engine streams both the checksum computation and the part reads,
// so memory usage is bounded by the chunk size rather than the file
// size. Parts are uploaded strictly sequentially.
package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/synfs/synfs/internal/logger"
	"github.com/synfs/synfs/pkg/entity"
	"github.com/synfs/synfs/pkg/rest"
)

const fallbackContentType = "application/octet-stream"

// Config tunes the upload engine.
type Config struct {
	// MinPartSize overrides the starting part size. Zero uses the
	// backend minimum. Mainly useful for tests that need multi-part
	// uploads without multi-megabyte fixtures.
	MinPartSize int64
}

// Engine orchestrates one multipart upload per call: checksum, part
// sizing, folder materialization, sequential part upload and completion.
//
// An Engine is stateless between calls and safe for concurrent use;
// concurrent uploads into the same destination folder may still race on
// folder creation (see EnsureFolderPath).
type Engine struct {
	store       rest.Store
	minPartSize int64
}

// NewEngine creates an Engine with default tuning.
func NewEngine(store rest.Store) *Engine {
	return NewEngineWithConfig(store, Config{})
}

// NewEngineWithConfig creates an Engine with the given tuning.
func NewEngineWithConfig(store rest.Store, cfg Config) *Engine {
	minPart := cfg.MinPartSize
	if minPart <= 0 {
		minPart = MinPartSize
	}
	return &Engine{store: store, minPartSize: minPart}
}

// Upload pushes localFile into the entity store as a file named fileName
// under parentFolderID and returns the new entity id.
//
// fileName may contain slashes; the folder sub-path is materialized
// under the parent before the upload (created folder by folder when
// missing). When the backend recognizes identical content from a
// previous upload it short-circuits the session to COMPLETED and the
// part-upload phase is skipped entirely.
func (e *Engine) Upload(ctx context.Context, localFile, parentFolderID, fileName string) (string, error) {
	folderPath, baseName := splitTargetName(fileName)
	if baseName == "" {
		return "", entity.NewError(entity.ErrInvalidArgument, "empty target file name")
	}

	// Files may only be created under folder entities.
	isFolder, err := e.store.IsFolder(ctx, parentFolderID)
	if err != nil {
		return "", err
	}
	if !isFolder {
		return "", entity.NewPathError(entity.ErrInvalidArgument,
			"upload target parent is not a folder", parentFolderID)
	}

	if folderPath != "" {
		parentFolderID, err = e.EnsureFolderPath(ctx, parentFolderID, folderPath)
		if err != nil {
			return "", err
		}
	}

	info, err := os.Stat(localFile)
	if err != nil {
		return "", fmt.Errorf("failed to stat upload source: %w", err)
	}
	fileSize := info.Size()

	contentMD5, err := MD5File(localFile)
	if err != nil {
		return "", err
	}

	partSize, err := calculatePartSizeFrom(fileSize, e.minPartSize)
	if err != nil {
		return "", err
	}

	session, err := e.store.StartMultipartUpload(ctx, entity.StartUploadRequest{
		FileName:    baseName,
		FileSize:    fileSize,
		ContentMD5:  contentMD5,
		ContentType: detectContentType(localFile),
		PartSize:    partSize,
	})
	if err != nil {
		return "", err
	}

	fileHandleID := session.ResultFileHandleID
	if session.Completed() {
		// Content-addressed dedup: the backend already holds these
		// bytes, no parts to upload.
		logger.Debug("upload of %s deduplicated by the backend (session %s)", baseName, session.UploadID)
	} else {
		if err := e.uploadParts(ctx, localFile, fileSize, partSize, session.UploadID); err != nil {
			return "", err
		}

		fileHandleID, err = e.store.CompleteUpload(ctx, session.UploadID)
		if err != nil {
			return "", err
		}
	}

	return e.store.CreateFileEntity(ctx, parentFolderID, baseName, fileHandleID)
}

// uploadParts runs the sequential part loop of one upload session.
// Each part is sliced out of the source file with a section reader, so
// the whole file is never resident in memory.
func (e *Engine) uploadParts(ctx context.Context, localFile string, fileSize, partSize int64, uploadID string) error {
	f, err := os.Open(localFile)
	if err != nil {
		return fmt.Errorf("failed to open upload source: %w", err)
	}
	defer func() { _ = f.Close() }()

	count := PartCount(fileSize, partSize)
	for number := int64(1); number <= count; number++ {
		descriptors, err := e.store.GetPresignedUploadURLs(ctx, uploadID, []int{int(number)})
		if err != nil {
			return err
		}
		if len(descriptors) == 0 {
			return fmt.Errorf("backend returned no presigned URL for part %d", number)
		}
		part := descriptors[0]

		part.ByteOffset = (number - 1) * partSize
		part.ByteLength = min(partSize, fileSize-part.ByteOffset)

		section := io.NewSectionReader(f, part.ByteOffset, part.ByteLength)
		part.MD5, err = MD5Reader(section)
		if err != nil {
			return err
		}
		if _, err := section.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("failed to rewind part %d: %w", number, err)
		}

		status, err := e.store.PutPart(ctx, part, section, part.ByteLength)
		if err != nil {
			return err
		}
		if status < 200 || status > 299 {
			return entity.NewError(entity.ErrPartUploadFailed,
				fmt.Sprintf("part %d upload returned status %d", number, status))
		}

		if err := e.store.ConfirmPart(ctx, uploadID, int(number), part.MD5); err != nil {
			return err
		}

		logger.Debug("uploaded part %d/%d of session %s (%d bytes)", number, count, uploadID, part.ByteLength)
	}

	return nil
}

// EnsureFolderPath walks the slash-separated folderPath under parentID,
// descending into existing folders and creating the missing ones, and
// returns the id of the innermost folder.
//
// This is not transactional: concurrent callers materializing the same
// path may race and create duplicate folders. The behavior under
// concurrent publishers is unspecified upstream, so no locking is done.
func (e *Engine) EnsureFolderPath(ctx context.Context, parentID, folderPath string) (string, error) {
	for _, segment := range strings.Split(folderPath, "/") {
		if segment == "" {
			return "", entity.NewPathError(entity.ErrInvalidArgument, "empty folder segment", folderPath)
		}

		children, err := e.store.ListChildren(ctx, parentID)
		if err != nil {
			return "", err
		}

		next := ""
		for _, child := range children {
			if child.Name == segment && child.Type == entity.TypeFolder {
				next = child.ID
				break
			}
		}

		if next == "" {
			next, err = e.store.CreateFolder(ctx, parentID, segment)
			if err != nil {
				return "", err
			}
			logger.Debug("created folder %q (%s) under %s", segment, next, parentID)
		}
		parentID = next
	}

	return parentID, nil
}

// splitTargetName splits a possibly nested target name into its folder
// sub-path and final segment.
func splitTargetName(fileName string) (folderPath, baseName string) {
	if i := strings.LastIndex(fileName, "/"); i >= 0 {
		return fileName[:i], fileName[i+1:]
	}
	return "", fileName
}

// detectContentType sniffs the file's content type, degrading to
// application/octet-stream when detection fails.
func detectContentType(path string) string {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return fallbackContentType
	}
	return mtype.String()
}
