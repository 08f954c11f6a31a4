// Package openai provides a document index adapter backed by an OpenAI
// vector store.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/kbsync/internal/core/domain"
	"github.com/custodia-labs/kbsync/internal/core/ports/driven"
	"github.com/custodia-labs/kbsync/internal/poll"
)

// Ensure VectorStore implements the interface.
var _ driven.DocumentIndex = (*VectorStore)(nil)

// Default configuration values.
const (
	DefaultBaseURL       = "https://api.openai.com/v1"
	DefaultStoreName     = "kbsync-knowledge"
	DefaultUploadTimeout = 2 * time.Minute
	DefaultPollInterval  = 2 * time.Second

	// betaHeader opts requests into the assistants API surface that
	// vector stores live under.
	betaHeader = "assistants=v2"

	// filePurpose marks uploaded files for retrieval use.
	filePurpose = "assistants"
)

// Config holds configuration for the vector store index.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	// Can be changed for compatible APIs.
	BaseURL string

	// VectorStoreID is the store to upload into. When empty, a store
	// named StoreName is created on first use.
	VectorStoreID string

	// StoreName names the auto-created store (default: kbsync-knowledge).
	StoreName string

	// UploadTimeout bounds the wait for the store to finish processing
	// one uploaded file (default: 2m).
	UploadTimeout time.Duration

	// PollInterval is the processing-status poll cadence (default: 2s).
	PollInterval time.Duration
}

// VectorStore uploads documents into an OpenAI vector store and removes
// stale copies.
type VectorStore struct {
	client        *http.Client
	baseURL       string
	storeName     string
	uploadTimeout time.Duration
	pollInterval  time.Duration

	mu      sync.Mutex
	storeID string
}

// apiObject is the subset of OpenAI object fields the adapter reads.
type apiObject struct {
	ID        string `json:"id"`
	Status    string `json:"status,omitempty"`
	LastError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_error,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewVectorStore creates a vector store index adapter.
func NewVectorStore(cfg Config) (*VectorStore, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai API key", domain.ErrMissingCredentials)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.StoreName == "" {
		cfg.StoreName = DefaultStoreName
	}
	if cfg.UploadTimeout == 0 {
		cfg.UploadTimeout = DefaultUploadTimeout
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	// The token source injects the Authorization header on every call.
	client := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: cfg.APIKey, TokenType: "Bearer"},
	))
	client.Timeout = 120 * time.Second

	return &VectorStore{
		client:        client,
		baseURL:       cfg.BaseURL,
		storeName:     cfg.StoreName,
		uploadTimeout: cfg.UploadTimeout,
		pollInterval:  cfg.PollInterval,
		storeID:       cfg.VectorStoreID,
	}, nil
}

// Ensure returns the vector store id, creating the store when none is
// configured.
func (v *VectorStore) Ensure(ctx context.Context) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.storeID != "" {
		return v.storeID, nil
	}

	body, err := json.Marshal(map[string]string{"name": v.storeName})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var store apiObject
	if err := v.call(ctx, http.MethodPost, "/vector_stores", "application/json", bytes.NewReader(body), &store); err != nil {
		return "", fmt.Errorf("create vector store: %w", err)
	}

	v.storeID = store.ID
	return v.storeID, nil
}

// Upload sends a named document to the file API, attaches it to the
// vector store, and waits (bounded) until the store finishes processing
// it. Returns the file id as the index reference.
func (v *VectorStore) Upload(ctx context.Context, filename string, content []byte) (string, error) {
	storeID, err := v.Ensure(ctx)
	if err != nil {
		return "", err
	}

	fileID, err := v.uploadFile(ctx, filename, content)
	if err != nil {
		return "", err
	}

	if err := v.attachFile(ctx, storeID, fileID); err != nil {
		// Don't leave an orphan in the file API.
		v.deleteObject(ctx, "/files/"+fileID)
		return "", err
	}

	if err := v.awaitProcessed(ctx, storeID, fileID); err != nil {
		return "", err
	}

	return fileID, nil
}

// Delete removes an indexed document: the store association first, then
// the underlying file. A reference the API no longer knows is not an
// error.
func (v *VectorStore) Delete(ctx context.Context, indexRef string) error {
	storeID, err := v.Ensure(ctx)
	if err != nil {
		return err
	}

	if err := v.deleteObject(ctx, "/vector_stores/"+storeID+"/files/"+indexRef); err != nil {
		return fmt.Errorf("detach %s: %w", indexRef, err)
	}
	if err := v.deleteObject(ctx, "/files/"+indexRef); err != nil {
		return fmt.Errorf("delete file %s: %w", indexRef, err)
	}
	return nil
}

// Close releases resources.
func (v *VectorStore) Close() error {
	return nil
}

// uploadFile sends content through the multipart file endpoint.
func (v *VectorStore) uploadFile(ctx context.Context, filename string, content []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("purpose", filePurpose); err != nil {
		return "", fmt.Errorf("write purpose: %w", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("write file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	var file apiObject
	if err := v.call(ctx, http.MethodPost, "/files", writer.FormDataContentType(), &body, &file); err != nil {
		return "", fmt.Errorf("upload %s: %w", filename, err)
	}
	return file.ID, nil
}

// attachFile associates an uploaded file with the vector store.
func (v *VectorStore) attachFile(ctx context.Context, storeID, fileID string) error {
	body, err := json.Marshal(map[string]string{"file_id": fileID})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var attached apiObject
	if err := v.call(ctx, http.MethodPost, "/vector_stores/"+storeID+"/files", "application/json", bytes.NewReader(body), &attached); err != nil {
		return fmt.Errorf("attach %s: %w", fileID, err)
	}
	return nil
}

// awaitProcessed polls the store-file status until it completes, fails,
// or the bounded wait expires.
func (v *VectorStore) awaitProcessed(ctx context.Context, storeID, fileID string) error {
	err := poll.Until(ctx, v.pollInterval, v.uploadTimeout, func(ctx context.Context) (bool, error) {
		var status apiObject
		if err := v.call(ctx, http.MethodGet, "/vector_stores/"+storeID+"/files/"+fileID, "", nil, &status); err != nil {
			return false, err
		}

		switch status.Status {
		case "completed":
			return true, nil
		case "failed", "cancelled":
			msg := status.Status
			if status.LastError != nil {
				msg = status.LastError.Message
			}
			return false, fmt.Errorf("processing %s: %s", fileID, msg)
		default: // in_progress
			return false, nil
		}
	})
	if errors.Is(err, poll.ErrTimeout) {
		return fmt.Errorf("%w: file %s after %s", domain.ErrUploadTimeout, fileID, v.uploadTimeout)
	}
	return err
}

// deleteObject issues a DELETE, treating 404 as success.
func (v *VectorStore) deleteObject(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, v.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("OpenAI-Beta", betaHeader)

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil // Already gone
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// call issues a request and decodes the JSON response into out.
func (v *VectorStore) call(ctx context.Context, method, path, contentType string, body io.Reader, out *apiObject) error {
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, method, v.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("OpenAI-Beta", betaHeader)

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if out.Error != nil {
		return fmt.Errorf("openai error: %s", out.Error.Message)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("openai error (status %d): %s", resp.StatusCode, string(raw))
	}
	return nil
}
