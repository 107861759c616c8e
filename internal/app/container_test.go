package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kapu/parish-directory-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		Store: config.StoreConfig{
			Repo:       "stmary/directory",
			Branch:     "main",
			APIBaseURL: "http://127.0.0.1:1",
			RawBaseURL: "https://raw.example",
			DataPath:   "data.json",
			PhotosPath: "photos/",
			Timeout:    time.Second,
		},
		Admin: config.AdminConfig{Password: "pw", SessionSecret: "k", SessionTTL: time.Hour},
		HTTP:  config.HTTPConfig{Addr: ":0", RequestTimeout: time.Second},
		Directory: config.DirectoryConfig{
			Name:     "St. Mary",
			TimeZone: "Africa/Lagos",
		},
	}
}

func TestBuildWithoutRedis(t *testing.T) {
	c, err := Build(context.Background(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Cache)
	assert.False(t, c.Store.HasCredential())
	require.NotNil(t, c.Repository)

	sess, err := c.Guard.Login("pw")
	require.NoError(t, err)
	assert.True(t, sess.IsAuthenticated())

	resp, err := c.NewServer().App().Test(httptest.NewRequest(http.MethodGet, "/healthz", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBuildSkipsUnreachableRedis(t *testing.T) {
	cfg := testConfig()
	cfg.Redis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

	c, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()
	assert.Nil(t, c.Cache)
}

func TestBuildRequiresConfigAndLogger(t *testing.T) {
	_, err := Build(context.Background(), nil, zap.NewNop())
	assert.Error(t, err)
	_, err = Build(context.Background(), testConfig(), nil)
	assert.Error(t, err)
}
