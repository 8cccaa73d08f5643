package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/synfs/synfs/pkg/entity"
)

// newTestClient spins up a fake entity store answering with handler and
// returns a client pointed at it.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(ClientConfig{
		Endpoint: server.URL,
		Token:    "test-token",
	})
}

func TestGetEntity(t *testing.T) {
	tests := []struct {
		name     string
		version  int64
		wantPath string
	}{
		{
			name:     "latest version omits the version segment",
			version:  LatestVersion,
			wantPath: "/entity/syn123",
		},
		{
			name:     "pinned version targets the version endpoint",
			version:  3,
			wantPath: "/entity/syn123/version/3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotAuth string
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotAuth = r.Header.Get("Authorization")
				_ = json.NewEncoder(w).Encode(entity.Metadata{
					ID:           "syn123",
					Name:         "data.txt",
					ConcreteType: entity.TypeFile,
				})
			})

			meta, err := client.GetEntity(context.Background(), "syn123", tt.version)
			if err != nil {
				t.Fatalf("GetEntity error = %v", err)
			}
			if gotPath != tt.wantPath {
				t.Errorf("request path = %q, want %q", gotPath, tt.wantPath)
			}
			if gotAuth != "Bearer test-token" {
				t.Errorf("Authorization = %q, want bearer token", gotAuth)
			}
			if meta.Name != "data.txt" {
				t.Errorf("entity name = %q, want %q", meta.Name, "data.txt")
			}
		})
	}
}

func TestStatusTranslation(t *testing.T) {
	tests := []struct {
		status   int
		wantCode entity.ErrorCode
	}{
		{http.StatusUnauthorized, entity.ErrAuthFailed},
		{http.StatusForbidden, entity.ErrAccessDenied},
		{http.StatusNotFound, entity.ErrNotFound},
	}

	for _, tt := range tests {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})

		_, err := client.GetEntity(context.Background(), "syn123", LatestVersion)
		if err == nil {
			t.Fatalf("status %d: GetEntity succeeded, want error", tt.status)
		}
		code, ok := entity.CodeOf(err)
		if !ok || code != tt.wantCode {
			t.Errorf("status %d: error code = %v, want %v", tt.status, code, tt.wantCode)
		}
	}
}

func TestStatusTranslation_UnmappedStatusKeepsBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	})

	_, err := client.GetEntity(context.Background(), "syn123", LatestVersion)
	if err == nil {
		t.Fatal("GetEntity succeeded, want error")
	}
	if _, ok := entity.CodeOf(err); ok {
		t.Errorf("unmapped status should not carry a domain code: %v", err)
	}
	if !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "upstream unavailable") {
		t.Errorf("error %q should mention the status and body snippet", err)
	}
}

func TestCreateFolder(t *testing.T) {
	var gotBody map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/entity" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "syn456"})
	})

	id, err := client.CreateFolder(context.Background(), "syn123", "reports")
	if err != nil {
		t.Fatalf("CreateFolder error = %v", err)
	}
	if id != "syn456" {
		t.Errorf("folder id = %q, want %q", id, "syn456")
	}
	if gotBody["parentId"] != "syn123" || gotBody["name"] != "reports" || gotBody["concreteType"] != entity.TypeFolder {
		t.Errorf("request body = %v", gotBody)
	}
}

func TestGetDownloadURL(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		wantPath := "/entity/syn123/filehandles/fh-1/url"
		if r.URL.Path != wantPath {
			t.Errorf("request path = %q, want %q", r.URL.Path, wantPath)
		}
		if r.URL.Query().Get("redirect") != "false" {
			t.Errorf("redirect query = %q, want %q", r.URL.Query().Get("redirect"), "false")
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://storage.example/presigned"})
	})

	url, err := client.GetDownloadURL(context.Background(), "syn123", "fh-1")
	if err != nil {
		t.Fatalf("GetDownloadURL error = %v", err)
	}
	if url != "https://storage.example/presigned" {
		t.Errorf("url = %q", url)
	}
}

func TestOpenDownload_NoAuthHeader(t *testing.T) {
	var gotAuth string
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("streamed content"))
	}))
	t.Cleanup(storage.Close)

	client := NewClient(ClientConfig{Endpoint: "http://unused.test", Token: "secret"})
	body, err := client.OpenDownload(context.Background(), storage.URL)
	if err != nil {
		t.Fatalf("OpenDownload error = %v", err)
	}
	defer func() { _ = body.Close() }()

	got, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("reading download body: %v", err)
	}
	if string(got) != "streamed content" {
		t.Errorf("body = %q", got)
	}
	if gotAuth != "" {
		t.Error("presigned download must not carry the bearer token")
	}
}

func TestOpenDownload_NonSuccessStatus(t *testing.T) {
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(storage.Close)

	client := NewClient(ClientConfig{})
	if _, err := client.OpenDownload(context.Background(), storage.URL); err == nil {
		t.Fatal("OpenDownload succeeded on 403, want error")
	}
}

func TestStartMultipartUpload(t *testing.T) {
	var got entity.StartUploadRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/file/multipart" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(entity.UploadSession{
			UploadID: "upload-9",
			State:    entity.UploadStateUploading,
		})
	})

	req := entity.StartUploadRequest{
		FileName:    "data.bin",
		ContentMD5:  "65a8e27d8879283831b664bd8b7f0ad4",
		ContentType: "application/octet-stream",
		FileSize:    13,
		PartSize:    5 * 1024 * 1024,
	}
	session, err := client.StartMultipartUpload(context.Background(), req)
	if err != nil {
		t.Fatalf("StartMultipartUpload error = %v", err)
	}
	if session.UploadID != "upload-9" {
		t.Errorf("upload id = %q", session.UploadID)
	}
	if session.Completed() {
		t.Error("UPLOADING session must not report completed")
	}
	if got != req {
		t.Errorf("request round trip mismatch: got %+v, want %+v", got, req)
	}
}

func TestGetPresignedUploadURLs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		wantPath := "/file/multipart/upload-9/presigned/url/batch"
		if r.Method != http.MethodPost || r.URL.Path != wantPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req struct {
			PartNumbers []int `json:"partNumbers"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.PartNumbers) != 1 || req.PartNumbers[0] != 2 {
			t.Errorf("partNumbers = %v, want [2]", req.PartNumbers)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"partPresignedUrls": []entity.PartDescriptor{
				{PartNumber: 2, UploadPresignedURL: "https://storage.example/part/2"},
			},
		})
	})

	parts, err := client.GetPresignedUploadURLs(context.Background(), "upload-9", []int{2})
	if err != nil {
		t.Fatalf("GetPresignedUploadURLs error = %v", err)
	}
	if len(parts) != 1 || parts[0].UploadPresignedURL != "https://storage.example/part/2" {
		t.Errorf("parts = %+v", parts)
	}
}

func TestPutPart(t *testing.T) {
	var gotBody []byte
	var gotHeader, gotAuth string
	var gotLength int64
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeader = r.Header.Get("x-storage-class")
		gotAuth = r.Header.Get("Authorization")
		gotLength = r.ContentLength
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(storage.Close)

	client := NewClient(ClientConfig{Token: "secret"})
	part := entity.PartDescriptor{
		PartNumber:         1,
		UploadPresignedURL: storage.URL,
		SignedHeaders:      map[string]string{"x-storage-class": "standard"},
	}

	status, err := client.PutPart(context.Background(), part, strings.NewReader("part bytes"), 10)
	if err != nil {
		t.Fatalf("PutPart error = %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d", status)
	}
	if string(gotBody) != "part bytes" {
		t.Errorf("body = %q", gotBody)
	}
	if gotHeader != "standard" {
		t.Errorf("signed header = %q, want %q", gotHeader, "standard")
	}
	if gotAuth != "" {
		t.Error("presigned part upload must not carry the bearer token")
	}
	if gotLength != 10 {
		t.Errorf("Content-Length = %d, want 10", gotLength)
	}
}

func TestPutPart_ReturnsRawStatus(t *testing.T) {
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(storage.Close)

	client := NewClient(ClientConfig{})
	part := entity.PartDescriptor{PartNumber: 1, UploadPresignedURL: storage.URL}

	// Non-2xx is not an error here; the caller decides what to do with
	// the status.
	status, err := client.PutPart(context.Background(), part, strings.NewReader("x"), 1)
	if err != nil {
		t.Fatalf("PutPart error = %v", err)
	}
	if status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", status)
	}
}

func TestConfirmPart(t *testing.T) {
	var gotPath, gotMD5 string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s, want PUT", r.Method)
		}
		gotPath = r.URL.Path
		gotMD5 = r.URL.Query().Get("partMD5Hex")
		w.WriteHeader(http.StatusOK)
	})

	err := client.ConfirmPart(context.Background(), "upload-9", 3, "65a8e27d8879283831b664bd8b7f0ad4")
	if err != nil {
		t.Fatalf("ConfirmPart error = %v", err)
	}
	if gotPath != "/file/multipart/upload-9/add/3" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotMD5 != "65a8e27d8879283831b664bd8b7f0ad4" {
		t.Errorf("partMD5Hex = %q", gotMD5)
	}
}

func TestCompleteUpload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		wantPath := "/file/multipart/upload-9/complete"
		if r.Method != http.MethodPut || r.URL.Path != wantPath {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(entity.UploadSession{
			UploadID:           "upload-9",
			State:              entity.UploadStateCompleted,
			ResultFileHandleID: "fh-final",
		})
	})

	handle, err := client.CompleteUpload(context.Background(), "upload-9")
	if err != nil {
		t.Fatalf("CompleteUpload error = %v", err)
	}
	if handle != "fh-final" {
		t.Errorf("file handle = %q, want %q", handle, "fh-final")
	}
}

func TestCreateFileEntity(t *testing.T) {
	var gotBody map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "syn789"})
	})

	id, err := client.CreateFileEntity(context.Background(), "syn123", "data.bin", "fh-final")
	if err != nil {
		t.Fatalf("CreateFileEntity error = %v", err)
	}
	if id != "syn789" {
		t.Errorf("entity id = %q, want %q", id, "syn789")
	}
	if gotBody["concreteType"] != entity.TypeFile || gotBody["dataFileHandleId"] != "fh-final" {
		t.Errorf("request body = %v", gotBody)
	}
}
