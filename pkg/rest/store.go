// Package rest defines the narrow backend interface consumed by the
// filesystem facade and the multipart upload engine, plus an HTTP client
// implementing it against the entity store's REST API.
package rest

import (
	"context"
	"io"

	"github.com/synfs/synfs/pkg/entity"
)

// LatestVersion selects the latest entity version in GetEntity.
const LatestVersion int64 = -1

// Store is the backend collaborator contract.
//
// There is one method per REST call, so the upload engine and the channel
// adapters can be exercised against a fake without a network. All methods
// block the calling goroutine until the request completes; there is no
// retry at this layer.
type Store interface {
	// GetEntity fetches entity metadata. Pass LatestVersion for the
	// latest version.
	GetEntity(ctx context.Context, id string, version int64) (*entity.Metadata, error)

	// IsFolder reports whether id denotes a folder-type entity.
	IsFolder(ctx context.Context, id string) (bool, error)

	// CreateFolder creates a folder entity under parentID and returns
	// the new entity id.
	CreateFolder(ctx context.Context, parentID, name string) (string, error)

	// ListChildren lists the direct children of a folder entity.
	ListChildren(ctx context.Context, parentID string) ([]entity.Child, error)

	// GetDownloadURL resolves a presigned download URL for a file's content.
	GetDownloadURL(ctx context.Context, id, fileHandleID string) (string, error)

	// OpenDownload opens a streaming GET against a presigned URL.
	// The caller owns the returned body.
	OpenDownload(ctx context.Context, url string) (io.ReadCloser, error)

	// StartMultipartUpload creates an upload session. The returned
	// session may already be COMPLETED when the backend recognizes
	// previously uploaded identical content.
	StartMultipartUpload(ctx context.Context, req entity.StartUploadRequest) (*entity.UploadSession, error)

	// GetPresignedUploadURLs requests presigned upload URLs for the
	// given part numbers of an upload session.
	GetPresignedUploadURLs(ctx context.Context, uploadID string, partNumbers []int) ([]entity.PartDescriptor, error)

	// PutPart uploads raw part bytes to the part's presigned URL,
	// attaching any backend-supplied signed headers. Returns the HTTP
	// status code of the storage backend's response.
	PutPart(ctx context.Context, part entity.PartDescriptor, body io.Reader, size int64) (int, error)

	// ConfirmPart acknowledges an uploaded part with its checksum.
	ConfirmPart(ctx context.Context, uploadID string, partNumber int, md5 string) error

	// CompleteUpload finalizes the session and returns the result file
	// handle id.
	CompleteUpload(ctx context.Context, uploadID string) (string, error)

	// CreateFileEntity creates a file entity pointing at an uploaded
	// file handle and returns the new entity id.
	CreateFileEntity(ctx context.Context, parentID, name, fileHandleID string) (string, error)
}
