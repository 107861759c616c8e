package app

import (
	"context"
	"fmt"

	"github.com/kapu/parish-directory-go/internal/config"
	"github.com/kapu/parish-directory-go/internal/constants"
	"github.com/kapu/parish-directory-go/internal/directory"
	"github.com/kapu/parish-directory-go/internal/service/cache"
	"github.com/kapu/parish-directory-go/internal/service/contentstore"
	"github.com/kapu/parish-directory-go/internal/session"
	"github.com/kapu/parish-directory-go/internal/util"
	"github.com/kapu/parish-directory-go/internal/web"
	"go.uber.org/zap"
)

// Container bundles the assembled services every command works from.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Store      *contentstore.GitHubClient
	Cache      *cache.CacheService
	Repository *directory.Repository
	Guard      *session.Guard

	closers []func()
}

// Build assembles the store client, the optional Redis cache, the repository and the
// session guard. Nothing here talks to GitHub; Redis is pinged when configured and
// skipped with a warning when unreachable.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build cancelled: %w", err)
	}

	c := &Container{Config: cfg, Logger: logger}

	c.Store = contentstore.NewGitHubClient(contentstore.GitHubConfig{
		Repo:       cfg.Store.Repo,
		Branch:     cfg.Store.Branch,
		Token:      cfg.Store.Token,
		APIBaseURL: cfg.Store.APIBaseURL,
		RawBaseURL: cfg.Store.RawBaseURL,
		Timeout:    cfg.Store.Timeout,
	}, logger)
	if !c.Store.HasCredential() {
		logger.Warn("GITHUB_TOKEN not set; the directory is read-only")
	}

	// a nil *CacheService must not end up inside the interface
	var docCache directory.DocumentCache
	if cfg.Redis.Enabled() {
		cacheSvc, err := cache.NewCacheService(cache.CacheConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		}, logger)
		if err != nil {
			logger.Warn("Redis unavailable, serving without document cache", zap.Error(err))
		} else {
			c.Cache = cacheSvc
			docCache = cacheSvc
			c.closers = append(c.closers, func() {
				_ = cacheSvc.Close()
			})
		}
	}

	clock := util.NewClock(util.LoadLocation(cfg.Directory.TimeZone))
	c.Repository = directory.NewRepository(c.Store, docCache, directory.Config{
		DataPath:   cfg.Store.DataPath,
		PhotosPath: cfg.Store.PhotosPath,
	}, clock, logger)

	c.Guard = session.NewGuard(session.GuardConfig{
		AdminSecret: cfg.Admin.Password,
		SigningKey:  cfg.Admin.SessionSecret,
		TTL:         cfg.Admin.SessionTTL,
	}, logger)

	logger.Info("Directory services assembled",
		zap.String("repo", cfg.Store.Repo),
		zap.String("branch", cfg.Store.Branch),
		zap.String("data_path", cfg.Store.DataPath),
		zap.Bool("cache", c.Cache != nil),
	)
	return c, nil
}

// NewServer wires the HTTP surface over the assembled services.
func (c *Container) NewServer() *web.Server {
	cfg := web.Config{
		DirectoryName:  c.Config.Directory.Name,
		RequestTimeout: c.Config.HTTP.RequestTimeout,
		MaxUploadBytes: constants.HTTPConfig.MaxUploadBytes,
		SecureCookie:   c.Config.HTTP.SecureCookie,
		AssetURL:       c.Store.RawURL,
	}
	if c.Cache != nil {
		cfg.CacheHealthy = c.Cache.IsConnected
	}
	return web.NewServer(c.Repository, c.Guard, cfg, c.Logger)
}

// Close releases what Build opened, newest first.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
