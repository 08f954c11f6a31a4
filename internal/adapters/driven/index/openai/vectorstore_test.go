package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbsync/internal/core/domain"
)

// fakeAPI is a minimal OpenAI vector store API double.
type fakeAPI struct {
	mu           sync.Mutex
	statusPolls  int
	fileStatus   string // Status returned on store-file GET
	uploadedName string
	purpose      string
	deleted      []string
	authHeader   string
	betaHeader   string
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()

	reply := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(v))
	}

	mux.HandleFunc("POST /vector_stores", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.authHeader = r.Header.Get("Authorization")
		f.betaHeader = r.Header.Get("OpenAI-Beta")
		f.mu.Unlock()
		reply(w, map[string]string{"id": "vs_1"})
	})

	mux.HandleFunc("POST /files", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		_, err = io.ReadAll(file)
		require.NoError(t, err)

		f.mu.Lock()
		f.uploadedName = header.Filename
		f.purpose = r.FormValue("purpose")
		f.mu.Unlock()
		reply(w, map[string]string{"id": "file_1"})
	})

	mux.HandleFunc("POST /vector_stores/vs_1/files", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "file_1", body["file_id"])
		reply(w, map[string]string{"id": "file_1", "status": "in_progress"})
	})

	mux.HandleFunc("GET /vector_stores/vs_1/files/file_1", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		f.statusPolls++
		status := f.fileStatus
		f.mu.Unlock()
		if status == "failed" {
			reply(w, map[string]any{
				"id": "file_1", "status": "failed",
				"last_error": map[string]string{"code": "invalid_file", "message": "unsupported encoding"},
			})
			return
		}
		reply(w, map[string]string{"id": "file_1", "status": status})
	})

	mux.HandleFunc("DELETE /", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.deleted = append(f.deleted, r.URL.Path)
		f.mu.Unlock()
		if strings.Contains(r.URL.Path, "gone") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		reply(w, map[string]any{"id": "x", "deleted": true})
	})

	return mux
}

func newTestStore(t *testing.T, api *fakeAPI, cfg Config) *VectorStore {
	t.Helper()
	server := httptest.NewServer(api.handler(t))
	t.Cleanup(server.Close)

	cfg.APIKey = "sk-test"
	cfg.BaseURL = server.URL
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Millisecond
	}
	if cfg.UploadTimeout == 0 {
		cfg.UploadTimeout = time.Second
	}

	store, err := NewVectorStore(cfg)
	require.NoError(t, err)
	return store
}

func TestNewVectorStore_RequiresAPIKey(t *testing.T) {
	_, err := NewVectorStore(Config{})
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
}

func TestVectorStore_Ensure(t *testing.T) {
	t.Run("creates store when unconfigured", func(t *testing.T) {
		api := &fakeAPI{fileStatus: "completed"}
		store := newTestStore(t, api, Config{})

		id, err := store.Ensure(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "vs_1", id)

		// The id is cached; a second call does not hit the API again.
		id2, err := store.Ensure(context.Background())
		require.NoError(t, err)
		assert.Equal(t, id, id2)

		assert.Equal(t, "Bearer sk-test", api.authHeader)
		assert.Equal(t, betaHeader, api.betaHeader)
	})

	t.Run("keeps configured store id", func(t *testing.T) {
		api := &fakeAPI{fileStatus: "completed"}
		store := newTestStore(t, api, Config{VectorStoreID: "vs_configured"})

		id, err := store.Ensure(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "vs_configured", id)
	})
}

func TestVectorStore_Upload(t *testing.T) {
	t.Run("uploads attaches and waits for processing", func(t *testing.T) {
		api := &fakeAPI{fileStatus: "completed"}
		store := newTestStore(t, api, Config{})

		ref, err := store.Upload(context.Background(), "care-guide.md", []byte("# Care Guide"))
		require.NoError(t, err)

		assert.Equal(t, "file_1", ref)
		assert.Equal(t, "care-guide.md", api.uploadedName)
		assert.Equal(t, filePurpose, api.purpose)
		assert.GreaterOrEqual(t, api.statusPolls, 1)
	})

	t.Run("processing failure", func(t *testing.T) {
		api := &fakeAPI{fileStatus: "failed"}
		store := newTestStore(t, api, Config{})

		_, err := store.Upload(context.Background(), "doc.md", []byte("x"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported encoding")
	})

	t.Run("bounded wait times out", func(t *testing.T) {
		api := &fakeAPI{fileStatus: "in_progress"}
		store := newTestStore(t, api, Config{
			PollInterval:  5 * time.Millisecond,
			UploadTimeout: 40 * time.Millisecond,
		})

		_, err := store.Upload(context.Background(), "doc.md", []byte("x"))
		assert.ErrorIs(t, err, domain.ErrUploadTimeout)
	})
}

func TestVectorStore_Delete(t *testing.T) {
	t.Run("detaches then deletes", func(t *testing.T) {
		api := &fakeAPI{fileStatus: "completed"}
		store := newTestStore(t, api, Config{VectorStoreID: "vs_1"})

		require.NoError(t, store.Delete(context.Background(), "file_1"))
		assert.Equal(t, []string{
			"/vector_stores/vs_1/files/file_1",
			"/files/file_1",
		}, api.deleted)
	})

	t.Run("missing reference is not an error", func(t *testing.T) {
		api := &fakeAPI{fileStatus: "completed"}
		store := newTestStore(t, api, Config{VectorStoreID: "vs_1"})

		assert.NoError(t, store.Delete(context.Background(), "file_gone"))
	})
}
