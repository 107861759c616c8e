package contentstore

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kapu/parish-directory-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeContentsAPI mimics the subset of the GitHub contents API the client uses.
type fakeContentsAPI struct {
	mu         sync.Mutex
	files      map[string][]byte
	requests   int
	authHeader []string
	status     int // forced status for every request when non-zero
	rawOnly    bool // answer GETs like GitHub does for files over 1 MB
	delay      time.Duration
}

func newFakeContentsAPI() *fakeContentsAPI {
	return &fakeContentsAPI{files: make(map[string][]byte)}
}

func sha(data []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(data))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func (f *fakeContentsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests++
	f.authHeader = append(f.authHeader, r.Header.Get("Authorization"))

	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"message":"forced failure"}`))
		return
	}

	const prefix = "/repos/parish/data/contents/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, prefix)

	switch r.Method {
	case http.MethodGet:
		data, ok := f.files[path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		if r.Header.Get("Accept") == "application/vnd.github.raw" {
			_, _ = w.Write(data)
			return
		}
		if f.rawOnly {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"type":     "file",
				"encoding": "none",
				"content":  "",
				"sha":      sha(data),
				"size":     len(data),
			})
			return
		}
		encoded := base64.StdEncoding.EncodeToString(data)
		// GitHub wraps base64 at 60 columns
		var wrapped strings.Builder
		for i := 0; i < len(encoded); i += 60 {
			end := i + 60
			if end > len(encoded) {
				end = len(encoded)
			}
			wrapped.WriteString(encoded[i:end])
			wrapped.WriteString("\n")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":     "file",
			"encoding": "base64",
			"content":  wrapped.String(),
			"sha":      sha(data),
		})
	case http.MethodPut:
		var req writeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		existing, exists := f.files[path]
		if req.SHA == "" && exists {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"Invalid request.\n\n\"sha\" wasn't supplied."}`))
			return
		}
		if req.SHA != "" && (!exists || sha(existing) != req.SHA) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"data.json does not match"}`))
			return
		}
		data, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		f.files[path] = data
		status := http.StatusOK
		if !exists {
			status = http.StatusCreated
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": map[string]any{"sha": sha(data)},
		})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T, api *fakeContentsAPI, token string) *GitHubClient {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	return NewGitHubClient(GitHubConfig{
		Repo:       "parish/data",
		Branch:     "main",
		Token:      token,
		APIBaseURL: srv.URL,
		RawBaseURL: "https://raw.example.com",
		Timeout:    2 * time.Second,
	}, zap.NewNop())
}

func TestGitHubFetchDecodesWrappedBase64(t *testing.T) {
	api := newFakeContentsAPI()
	payload := []byte(strings.Repeat(`{"members":[],"messages":[],"last_update":""}`, 5))
	api.files["data.json"] = payload

	client := newTestClient(t, api, "")
	content, err := client.Fetch(context.Background(), "data.json")
	require.NoError(t, err)
	assert.Equal(t, payload, content.Data)
	assert.Equal(t, Token(sha(payload)), content.Token)
}

func TestGitHubFetchLargeFileFallsBackToRaw(t *testing.T) {
	api := newFakeContentsAPI()
	api.rawOnly = true
	payload := []byte(`{"members":[{"name":"a","phone":"1","address":"x"}],"messages":[],"last_update":""}`)
	api.files["data.json"] = payload

	client := newTestClient(t, api, "")
	content, err := client.Fetch(context.Background(), "data.json")
	require.NoError(t, err)
	assert.Equal(t, payload, content.Data)
	assert.Equal(t, Token(sha(payload)), content.Token)
	assert.Equal(t, 2, api.requests)
}

func TestGitHubFetchMissingIsNotFound(t *testing.T) {
	client := newTestClient(t, newFakeContentsAPI(), "")

	_, err := client.Fetch(context.Background(), "data.json")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err), "got %v", err)
	assert.False(t, errors.IsTransport(err))
}

func TestGitHubWriteWithoutCredentialFailsFast(t *testing.T) {
	api := newFakeContentsAPI()
	client := newTestClient(t, api, "")

	_, err := client.Write(context.Background(), "data.json", []byte("{}"), "", "Update data")
	require.Error(t, err)
	assert.True(t, errors.IsNotConfigured(err))
	assert.False(t, errors.IsAuthorization(err))
	assert.Zero(t, api.requests, "no request may reach the store")
}

func TestGitHubWriteAttachesCredential(t *testing.T) {
	api := newFakeContentsAPI()
	client := newTestClient(t, api, "secret-token")

	token, err := client.Write(context.Background(), "photos/john_doe_0901.jpg", []byte{0xff, 0xd8, 0x00}, "", "Upload photo")
	require.NoError(t, err)
	assert.Equal(t, Token(sha([]byte{0xff, 0xd8, 0x00})), token)
	assert.Equal(t, []byte{0xff, 0xd8, 0x00}, api.files["photos/john_doe_0901.jpg"])
	require.Len(t, api.authHeader, 1)
	assert.Equal(t, "Bearer secret-token", api.authHeader[0])
}

func TestGitHubWriteStaleTokenConflicts(t *testing.T) {
	api := newFakeContentsAPI()
	api.files["data.json"] = []byte("v1")
	client := newTestClient(t, api, "secret-token")

	content, err := client.Fetch(context.Background(), "data.json")
	require.NoError(t, err)

	first, err := client.Write(context.Background(), "data.json", []byte("v2"), content.Token, "Update data")
	require.NoError(t, err)
	assert.NotEqual(t, content.Token, first)

	_, err = client.Write(context.Background(), "data.json", []byte("v3"), content.Token, "Update data")
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err), "got %v", err)
	assert.Equal(t, []byte("v2"), api.files["data.json"], "stale write must not apply")
}

func TestGitHubCreateOnExistingConflicts(t *testing.T) {
	api := newFakeContentsAPI()
	api.files["logo.png"] = []byte("old")
	client := newTestClient(t, api, "secret-token")

	_, err := client.Write(context.Background(), "logo.png", []byte("new"), "", "Update church logo")
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
	assert.Equal(t, []byte("old"), api.files["logo.png"])
}

func TestGitHubServerErrorsOpenCircuit(t *testing.T) {
	api := newFakeContentsAPI()
	api.status = http.StatusBadGateway
	client := newTestClient(t, api, "")

	for i := 0; i < 3; i++ {
		_, err := client.Fetch(context.Background(), "data.json")
		require.Error(t, err)
		assert.True(t, errors.IsTransport(err))
	}
	require.Equal(t, 3, api.requests)

	_, err := client.Fetch(context.Background(), "data.json")
	require.Error(t, err)
	assert.True(t, errors.IsTransport(err))
	assert.Equal(t, 3, api.requests, "open circuit must not reach the store")
}

func TestGitHubTimeoutIsTransportError(t *testing.T) {
	api := newFakeContentsAPI()
	api.delay = 300 * time.Millisecond
	client := newTestClient(t, api, "")
	client.httpClient.Timeout = 50 * time.Millisecond

	_, err := client.Fetch(context.Background(), "data.json")
	require.Error(t, err)
	assert.True(t, errors.IsTransport(err))
	assert.Equal(t, 502, errors.StatusCode(err))
}

func TestGitHubRawURL(t *testing.T) {
	client := newTestClient(t, newFakeContentsAPI(), "")
	assert.Equal(t, "https://raw.example.com/parish/data/main/photos/john%20doe.jpg", client.RawURL("photos/john doe.jpg"))
}
