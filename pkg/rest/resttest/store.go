// Package resttest provides an in-memory, scriptable implementation of
// rest.Store for exercising the upload engine and the filesystem facade
// without a network.
package resttest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/synfs/synfs/pkg/entity"
)

// Store is a fake backend. The zero value is not usable; call New.
//
// Every Store method records a call count under the method name, honors
// an injected failure from FailWith, and otherwise operates on the
// in-memory entity tree. All state is guarded by one mutex, so a Store
// can be shared across goroutines in concurrency tests.
type Store struct {
	mu sync.Mutex

	// Entities maps entity id to its metadata.
	Entities map[string]*entity.Metadata

	// Children maps a folder id to its direct children.
	Children map[string][]entity.Child

	// Downloads maps a presigned download URL to its payload.
	Downloads map[string][]byte

	// Session, when set, is returned by StartMultipartUpload instead of
	// a fresh UPLOADING session. Use it to script the dedup short-circuit.
	Session *entity.UploadSession

	// PartStatus is the status code PutPart reports. Zero means 200.
	PartStatus int

	// FailWith injects an error for the named method.
	FailWith map[string]error

	// UploadedParts collects the raw bytes PutPart received, by part number.
	UploadedParts map[int][]byte

	// ConfirmedParts collects the md5 ConfirmPart received, by part number.
	ConfirmedParts map[int]string

	// StartRequests collects every StartMultipartUpload request.
	StartRequests []entity.StartUploadRequest

	calls  map[string]int
	nextID int
}

// New returns an empty fake backend.
func New() *Store {
	return &Store{
		Entities:       make(map[string]*entity.Metadata),
		Children:       make(map[string][]entity.Child),
		Downloads:      make(map[string][]byte),
		FailWith:       make(map[string]error),
		UploadedParts:  make(map[int][]byte),
		ConfirmedParts: make(map[int]string),
		calls:          make(map[string]int),
		nextID:         100,
	}
}

// Calls returns how many times the named Store method was invoked.
func (s *Store) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// AddFolder registers a folder entity and links it under parentID
// (pass "" for a root folder). Returns the folder id.
func (s *Store) AddFolder(parentID, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addEntity(parentID, name, entity.TypeFolder, "")
}

// AddFile registers a file entity with the given content. The content is
// served through GetDownloadURL/OpenDownload. Returns the file id.
func (s *Store) AddFile(parentID, name string, content []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.addEntity(parentID, name, entity.TypeFile, "fh-"+name)
	meta := s.Entities[id]
	meta.FileSize = int64(len(content))
	s.Downloads[downloadURL(id)] = content
	return id
}

func (s *Store) addEntity(parentID, name, concreteType, fileHandleID string) string {
	s.nextID++
	id := fmt.Sprintf("syn%d", s.nextID)
	s.Entities[id] = &entity.Metadata{
		ID:               id,
		Name:             name,
		ConcreteType:     concreteType,
		DataFileHandleID: fileHandleID,
		FileSize:         -1,
	}
	if parentID != "" {
		s.Children[parentID] = append(s.Children[parentID], entity.Child{
			ID:   id,
			Name: name,
			Type: concreteType,
		})
	}
	return id
}

func (s *Store) begin(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[method]++
	return s.FailWith[method]
}

func downloadURL(id string) string {
	return "https://storage.test/download/" + id
}

// GetEntity implements rest.Store.
func (s *Store) GetEntity(ctx context.Context, id string, version int64) (*entity.Metadata, error) {
	if err := s.begin("GetEntity"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.Entities[id]
	if !ok {
		return nil, entity.NewPathError(entity.ErrNotFound, "entity not found", id)
	}
	copied := *meta
	return &copied, nil
}

// EntityName implements entity.NameResolver.
func (s *Store) EntityName(ctx context.Context, id string) (string, error) {
	meta, err := s.GetEntity(ctx, id, -1)
	if err != nil {
		return "", err
	}
	return meta.Name, nil
}

// IsFolder implements rest.Store.
func (s *Store) IsFolder(ctx context.Context, id string) (bool, error) {
	if err := s.begin("IsFolder"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.Entities[id]
	if !ok {
		return false, entity.NewPathError(entity.ErrNotFound, "entity not found", id)
	}
	return meta.IsFolder(), nil
}

// CreateFolder implements rest.Store.
func (s *Store) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	if err := s.begin("CreateFolder"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addEntity(parentID, name, entity.TypeFolder, ""), nil
}

// ListChildren implements rest.Store.
func (s *Store) ListChildren(ctx context.Context, parentID string) ([]entity.Child, error) {
	if err := s.begin("ListChildren"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.Child(nil), s.Children[parentID]...), nil
}

// GetDownloadURL implements rest.Store.
func (s *Store) GetDownloadURL(ctx context.Context, id, fileHandleID string) (string, error) {
	if err := s.begin("GetDownloadURL"); err != nil {
		return "", err
	}
	return downloadURL(id), nil
}

// OpenDownload implements rest.Store.
func (s *Store) OpenDownload(ctx context.Context, url string) (io.ReadCloser, error) {
	if err := s.begin("OpenDownload"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, ok := s.Downloads[url]
	if !ok {
		return nil, fmt.Errorf("no payload registered for %s", url)
	}
	return io.NopCloser(bytes.NewReader(payload)), nil
}

// StartMultipartUpload implements rest.Store.
func (s *Store) StartMultipartUpload(ctx context.Context, req entity.StartUploadRequest) (*entity.UploadSession, error) {
	if err := s.begin("StartMultipartUpload"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.StartRequests = append(s.StartRequests, req)
	if s.Session != nil {
		copied := *s.Session
		return &copied, nil
	}
	return &entity.UploadSession{
		UploadID: "upload-1",
		State:    entity.UploadStateUploading,
	}, nil
}

// GetPresignedUploadURLs implements rest.Store.
func (s *Store) GetPresignedUploadURLs(ctx context.Context, uploadID string, partNumbers []int) ([]entity.PartDescriptor, error) {
	if err := s.begin("GetPresignedUploadURLs"); err != nil {
		return nil, err
	}

	parts := make([]entity.PartDescriptor, 0, len(partNumbers))
	for _, n := range partNumbers {
		parts = append(parts, entity.PartDescriptor{
			PartNumber:         n,
			UploadPresignedURL: fmt.Sprintf("https://storage.test/upload/%s/%d", uploadID, n),
			SignedHeaders:      map[string]string{"x-storage-class": "standard"},
		})
	}
	return parts, nil
}

// PutPart implements rest.Store.
func (s *Store) PutPart(ctx context.Context, part entity.PartDescriptor, body io.Reader, size int64) (int, error) {
	if err := s.begin("PutPart"); err != nil {
		return 0, err
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.UploadedParts[part.PartNumber] = data
	if s.PartStatus != 0 {
		return s.PartStatus, nil
	}
	return 200, nil
}

// ConfirmPart implements rest.Store.
func (s *Store) ConfirmPart(ctx context.Context, uploadID string, partNumber int, md5 string) error {
	if err := s.begin("ConfirmPart"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ConfirmedParts[partNumber] = md5
	return nil
}

// CompleteUpload implements rest.Store.
func (s *Store) CompleteUpload(ctx context.Context, uploadID string) (string, error) {
	if err := s.begin("CompleteUpload"); err != nil {
		return "", err
	}
	return "fh-" + uploadID, nil
}

// CreateFileEntity implements rest.Store.
func (s *Store) CreateFileEntity(ctx context.Context, parentID, name, fileHandleID string) (string, error) {
	if err := s.begin("CreateFileEntity"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addEntity(parentID, name, entity.TypeFile, fileHandleID), nil
}
