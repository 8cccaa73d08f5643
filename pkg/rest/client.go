package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/synfs/synfs/pkg/entity"
)

// ClientConfig carries the transport settings of the REST client.
type ClientConfig struct {
	// Endpoint is the base URL of the entity store API, without a
	// trailing slash.
	Endpoint string

	// Token is the bearer credential attached to every API call.
	// Presigned transfers never carry it.
	Token string

	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration

	// RequestTimeout bounds one JSON API round trip.
	RequestTimeout time.Duration

	// PartUploadTimeout bounds a single part upload to the storage
	// backend. Parts can be large, so this is much longer than
	// RequestTimeout.
	PartUploadTimeout time.Duration
}

// Client implements Store over HTTP.
//
// The client is stateless apart from its transport and is safe for
// concurrent use. Timeout expiry surfaces as a transport error, not a
// distinguished domain error.
type Client struct {
	base     string
	token    string
	api      *http.Client
	part     *http.Client
	download *http.Client
}

// NewClient builds a Client from the given configuration. Zero timeouts
// fall back to defaults (10s connect, 30s request, 10m part upload).
func NewClient(cfg ClientConfig) *Client {
	connect := cfg.ConnectTimeout
	if connect == 0 {
		connect = 10 * time.Second
	}
	request := cfg.RequestTimeout
	if request == 0 {
		request = 30 * time.Second
	}
	partUpload := cfg.PartUploadTimeout
	if partUpload == 0 {
		partUpload = 10 * time.Minute
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: connect,
		}).DialContext,
		TLSHandshakeTimeout: connect,
	}

	return &Client{
		base:  strings.TrimRight(cfg.Endpoint, "/"),
		token: cfg.Token,
		api:   &http.Client{Transport: transport, Timeout: request},
		part:  &http.Client{Transport: transport, Timeout: partUpload},
		// Downloads stream arbitrarily large bodies, so no overall
		// timeout; the dial and TLS timeouts still apply.
		download: &http.Client{Transport: transport},
	}
}

// GetEntity implements Store.
func (c *Client) GetEntity(ctx context.Context, id string, version int64) (*entity.Metadata, error) {
	path := "/entity/" + id
	if version >= 0 {
		path = fmt.Sprintf("/entity/%s/version/%d", id, version)
	}

	var meta entity.Metadata
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// EntityName implements entity.NameResolver on top of GetEntity.
func (c *Client) EntityName(ctx context.Context, id string) (string, error) {
	meta, err := c.GetEntity(ctx, id, LatestVersion)
	if err != nil {
		return "", err
	}
	return meta.Name, nil
}

// IsFolder implements Store.
func (c *Client) IsFolder(ctx context.Context, id string) (bool, error) {
	meta, err := c.GetEntity(ctx, id, LatestVersion)
	if err != nil {
		return false, err
	}
	return meta.IsFolder(), nil
}

// CreateFolder implements Store.
func (c *Client) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	req := map[string]string{
		"parentId":     parentID,
		"name":         name,
		"concreteType": entity.TypeFolder,
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/entity", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// ListChildren implements Store.
func (c *Client) ListChildren(ctx context.Context, parentID string) ([]entity.Child, error) {
	var resp struct {
		Children []entity.Child `json:"children"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/entity/"+parentID+"/children", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Children, nil
}

// GetDownloadURL implements Store. The redirect=false query asks the
// backend to return the presigned URL as JSON instead of a 307.
func (c *Client) GetDownloadURL(ctx context.Context, id, fileHandleID string) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	path := fmt.Sprintf("/entity/%s/filehandles/%s/url?redirect=false", id, fileHandleID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// OpenDownload implements Store. Presigned URLs are pre-authorized, so
// no bearer token is attached.
func (c *Client) OpenDownload(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.download.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("download returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// StartMultipartUpload implements Store.
func (c *Client) StartMultipartUpload(ctx context.Context, req entity.StartUploadRequest) (*entity.UploadSession, error) {
	var session entity.UploadSession
	if err := c.doJSON(ctx, http.MethodPost, "/file/multipart", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetPresignedUploadURLs implements Store.
func (c *Client) GetPresignedUploadURLs(ctx context.Context, uploadID string, partNumbers []int) ([]entity.PartDescriptor, error) {
	req := map[string]any{"partNumbers": partNumbers}
	var resp struct {
		PartPresignedURLs []entity.PartDescriptor `json:"partPresignedUrls"`
	}
	path := "/file/multipart/" + uploadID + "/presigned/url/batch"
	if err := c.doJSON(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return resp.PartPresignedURLs, nil
}

// PutPart implements Store. The raw bytes go straight to the storage
// backend; the response body is discarded and only the status matters.
func (c *Client) PutPart(ctx context.Context, part entity.PartDescriptor, body io.Reader, size int64) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, part.UploadPresignedURL, body)
	if err != nil {
		return 0, err
	}
	req.ContentLength = size
	for name, value := range part.SignedHeaders {
		req.Header.Set(name, value)
	}

	resp, err := c.part.Do(req)
	if err != nil {
		return 0, fmt.Errorf("part %d upload failed: %w", part.PartNumber, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	return resp.StatusCode, nil
}

// ConfirmPart implements Store.
func (c *Client) ConfirmPart(ctx context.Context, uploadID string, partNumber int, md5 string) error {
	path := fmt.Sprintf("/file/multipart/%s/add/%d?partMD5Hex=%s", uploadID, partNumber, md5)
	return c.doJSON(ctx, http.MethodPut, path, nil, nil)
}

// CompleteUpload implements Store.
func (c *Client) CompleteUpload(ctx context.Context, uploadID string) (string, error) {
	var session entity.UploadSession
	path := "/file/multipart/" + uploadID + "/complete"
	if err := c.doJSON(ctx, http.MethodPut, path, nil, &session); err != nil {
		return "", err
	}
	return session.ResultFileHandleID, nil
}

// CreateFileEntity implements Store.
func (c *Client) CreateFileEntity(ctx context.Context, parentID, name, fileHandleID string) (string, error) {
	req := map[string]string{
		"parentId":         parentID,
		"name":             name,
		"concreteType":     entity.TypeFile,
		"dataFileHandleId": fileHandleID,
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/entity", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// doJSON issues one authenticated JSON API call and decodes the response
// into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.api.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := translateStatus(resp); err != nil {
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response of %s %s: %w", method, path, err)
		}
	} else {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	}
	return nil
}

// translateStatus maps backend status codes into the domain error
// taxonomy. Raw transport codes never leak to callers.
func translateStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return entity.NewError(entity.ErrAuthFailed,
			"authentication failed: the access token was rejected, refresh your credentials")
	case http.StatusForbidden:
		return entity.NewError(entity.ErrAccessDenied, "access denied by the entity store")
	case http.StatusNotFound:
		return entity.NewError(entity.ErrNotFound, "entity not found")
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("entity store returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}
