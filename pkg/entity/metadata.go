package entity

import "time"

// Concrete entity types reported by the backend.
const (
	TypeFile   = "file"
	TypeFolder = "folder"
)

// Upload session states.
const (
	UploadStateUploading = "UPLOADING"
	UploadStateCompleted = "COMPLETED"
)

// Metadata describes a remote entity as reported by the backend.
//
// Metadata is fetched on demand and never cached beyond a single channel
// or attribute operation; only the display name is memoized (see Path).
type Metadata struct {
	// ID is the stable entity identifier (syn<digits>)
	ID string `json:"id"`

	// Name is the display name of the entity
	Name string `json:"name"`

	// ConcreteType discriminates files from folders and other entity kinds
	ConcreteType string `json:"concreteType"`

	// DataFileHandleID references the uploaded binary content.
	// Present only for file entities.
	DataFileHandleID string `json:"dataFileHandleId,omitempty"`

	// FileSize is the content size in bytes, or -1 when unknown
	FileSize int64 `json:"fileSize"`

	// CreatedOn and ModifiedOn are backend timestamps
	CreatedOn  time.Time `json:"createdOn"`
	ModifiedOn time.Time `json:"modifiedOn"`

	// MD5 is the hex checksum of the content, if known
	MD5 string `json:"md5,omitempty"`
}

// IsFile reports whether the entity holds downloadable content.
func (m *Metadata) IsFile() bool {
	return m.ConcreteType == TypeFile
}

// IsFolder reports whether the entity can contain children.
func (m *Metadata) IsFolder() bool {
	return m.ConcreteType == TypeFolder
}

// Child is one entry of a folder listing.
type Child struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// UploadSession tracks one multipart upload attempt on the backend.
//
// The backend may create the session already in the COMPLETED state when
// identical content was uploaded before (content-addressed dedup). The
// upload engine must detect this and skip the part-upload phase entirely.
type UploadSession struct {
	// UploadID keys all subsequent calls of this upload attempt
	UploadID string `json:"uploadId"`

	// State is UPLOADING or COMPLETED
	State string `json:"state"`

	// ResultFileHandleID is present once State is COMPLETED
	ResultFileHandleID string `json:"resultFileHandleId,omitempty"`
}

// Completed reports whether the session already has a usable result.
func (s *UploadSession) Completed() bool {
	return s.State == UploadStateCompleted && s.ResultFileHandleID != ""
}

// StartUploadRequest carries the parameters of a new multipart upload session.
type StartUploadRequest struct {
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSizeBytes"`
	ContentMD5  string `json:"contentMD5Hex"`
	ContentType string `json:"contentType"`
	PartSize    int64  `json:"partSizeBytes"`
}

// PartDescriptor describes one part of a multipart upload.
//
// The backend fills PartNumber, UploadPresignedURL and SignedHeaders; the
// upload engine fills ByteOffset, ByteLength and MD5 while slicing the
// source file. Descriptors are ephemeral and never reused across files.
type PartDescriptor struct {
	// PartNumber is 1-indexed
	PartNumber int `json:"partNumber"`

	// ByteOffset and ByteLength locate the part within the source file
	ByteOffset int64 `json:"-"`
	ByteLength int64 `json:"-"`

	// MD5 is the hex checksum of this part's bytes
	MD5 string `json:"-"`

	// UploadPresignedURL is the time-limited destination for the raw bytes
	UploadPresignedURL string `json:"uploadPresignedUrl"`

	// SignedHeaders must be attached verbatim to the part upload request.
	// Opaque to the engine.
	SignedHeaders map[string]string `json:"signedHeaders,omitempty"`
}
