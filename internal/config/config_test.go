package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GITHUB_BRANCH", "GITHUB_API_URL", "DATA_PATH", "PHOTOS_PATH", "STORE_TIMEOUT_SECONDS",
		"SESSION_TTL_MINUTES", "HTTP_ADDR", "REDIS_HOST", "CACHE_TTL_SECONDS", "COOKIE_SECURE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("GITHUB_REPO", "stmary/directory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "main", cfg.Store.Branch)
	assert.Equal(t, "https://api.github.com", cfg.Store.APIBaseURL)
	assert.Equal(t, "data.json", cfg.Store.DataPath)
	assert.Equal(t, "photos/", cfg.Store.PhotosPath)
	assert.Equal(t, 10*time.Second, cfg.Store.Timeout)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 120*time.Minute, cfg.Admin.SessionTTL)
	assert.Equal(t, 60*time.Second, cfg.Redis.TTL)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.HTTP.SecureCookie)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GITHUB_REPO", "stmary/directory")
	t.Setenv("PHOTOS_PATH", "/images")
	t.Setenv("GITHUB_API_URL", "http://localhost:9000/")
	t.Setenv("STORE_TIMEOUT_SECONDS", "3")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("COOKIE_SECURE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "images/", cfg.Store.PhotosPath)
	assert.Equal(t, "http://localhost:9000", cfg.Store.APIBaseURL)
	assert.Equal(t, 3*time.Second, cfg.Store.Timeout)
	assert.True(t, cfg.Redis.Enabled())
	assert.True(t, cfg.HTTP.SecureCookie)
}

func TestLoadRejectsBadRepo(t *testing.T) {
	for _, repo := range []string{"", "noslash", "a/b/c", "/b"} {
		t.Setenv("GITHUB_REPO", repo)
		_, err := Load()
		assert.Error(t, err, repo)
	}
}

func TestValidateServe(t *testing.T) {
	cfg := &Config{Admin: AdminConfig{SessionSecret: "k", SessionTTL: time.Hour}}
	assert.Error(t, cfg.ValidateServe(), "admin password has no default")

	cfg.Admin.Password = "pw"
	assert.NoError(t, cfg.ValidateServe())

	cfg.Admin.SessionSecret = ""
	assert.Error(t, cfg.ValidateServe())
}
