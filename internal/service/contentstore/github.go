package contentstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kapu/parish-directory-go/internal/constants"
	"github.com/kapu/parish-directory-go/internal/util"
	"github.com/kapu/parish-directory-go/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type GitHubConfig struct {
	Repo       string
	Branch     string
	Token      string
	APIBaseURL string
	RawBaseURL string
	Timeout    time.Duration
}

// GitHubClient talks to the GitHub repository contents API.
type GitHubClient struct {
	httpClient    *http.Client
	cfg           GitHubConfig
	hasCredential bool
	breaker       *util.CircuitBreaker
	logger        *zap.Logger
}

const (
	mediaTypeJSON = "application/vnd.github+json"
	mediaTypeRaw  = "application/vnd.github.raw"
)

type contentResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
	SHA      string `json:"sha"`
	Size     int64  `json:"size"`
}

type writeRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type writeResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

type apiErrorBody struct {
	Message string `json:"message"`
}

func NewGitHubClient(cfg GitHubConfig, logger *zap.Logger) *GitHubClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = constants.StoreConfig.APIBaseURL
	}
	if cfg.RawBaseURL == "" {
		cfg.RawBaseURL = constants.StoreConfig.RawBaseURL
	}
	if cfg.Branch == "" {
		cfg.Branch = constants.StoreConfig.Branch
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.StoreConfig.Timeout
	}

	base := &http.Client{Timeout: cfg.Timeout}
	httpClient := base
	if cfg.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}))
		httpClient.Timeout = cfg.Timeout
	}

	return &GitHubClient{
		httpClient:    httpClient,
		cfg:           cfg,
		hasCredential: cfg.Token != "",
		breaker: util.NewCircuitBreaker("github-contents",
			constants.CircuitBreakerConfig.FailureThreshold,
			constants.CircuitBreakerConfig.ResetTimeout,
			logger),
		logger: logger,
	}
}

// HasCredential reports whether writes can be attempted at all.
func (c *GitHubClient) HasCredential() bool {
	return c.hasCredential
}

// RawURL is the public download URL for path on the configured branch.
func (c *GitHubClient) RawURL(path string) string {
	return fmt.Sprintf("%s/%s/%s/%s", c.cfg.RawBaseURL, c.cfg.Repo, c.cfg.Branch, escapePath(path))
}

func (c *GitHubClient) Fetch(ctx context.Context, path string) (*Content, error) {
	params := url.Values{}
	params.Set("ref", c.cfg.Branch)

	status, body, err := c.doRequest(ctx, http.MethodGet, path, params, nil, mediaTypeJSON)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusNotFound:
		return nil, errors.NewNotFoundError("file not found in store", path)
	case status < 200 || status >= 300:
		return nil, errors.NewTransportError(
			fmt.Sprintf("store read failed: %s", describe(status, body)), path, status, nil)
	}

	var resp contentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.NewTransportError("failed to decode store response", path, status, err)
	}
	if resp.Type != "" && resp.Type != "file" {
		return nil, errors.NewTransportError(fmt.Sprintf("store path is a %s, not a file", resp.Type), path, status, nil)
	}

	var data []byte
	switch {
	case resp.Encoding == "none":
		// files over 1 MB come back without content; only the raw media type carries them
		data, err = c.fetchRaw(ctx, path, params)
		if err != nil {
			return nil, err
		}
	case resp.Encoding == "base64" || (resp.Encoding == "" && resp.Content == ""):
		data, err = decodeContent(resp.Content)
		if err != nil {
			return nil, errors.NewTransportError("failed to decode file content", path, status, err)
		}
	default:
		return nil, errors.NewTransportError(fmt.Sprintf("unsupported content encoding %q", resp.Encoding), path, status, nil)
	}

	c.logger.Debug("Fetched file from store",
		zap.String("path", path),
		zap.String("sha", resp.SHA),
		zap.Int("bytes", len(data)),
	)

	return &Content{Path: path, Data: data, Token: Token(resp.SHA)}, nil
}

func (c *GitHubClient) fetchRaw(ctx context.Context, path string, params url.Values) ([]byte, error) {
	status, body, err := c.doRequest(ctx, http.MethodGet, path, params, nil, mediaTypeRaw)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, errors.NewTransportError(
			fmt.Sprintf("store raw read failed: %s", describe(status, body)), path, status, nil)
	}
	return body, nil
}

func (c *GitHubClient) Write(ctx context.Context, path string, data []byte, token Token, message string) (Token, error) {
	if !c.hasCredential {
		return "", errors.NewNotConfiguredError("store write credential not configured", "GITHUB_TOKEN")
	}

	req := writeRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(data),
		SHA:     string(token),
		Branch:  c.cfg.Branch,
	}

	status, body, err := c.doRequest(ctx, http.MethodPut, path, nil, req, mediaTypeJSON)
	if err != nil {
		return "", err
	}

	switch {
	case status == http.StatusOK || status == http.StatusCreated:
	case status == http.StatusConflict:
		return "", errors.NewConflictError("stored version changed since it was read", path, string(token))
	case status == http.StatusUnprocessableEntity && (token == "" || mentionsSHA(body)):
		// GitHub answers 422 when a create omits the sha of an existing file or the sha is stale
		return "", errors.NewConflictError("stored version does not match", path, string(token))
	default:
		return "", errors.NewTransportError(
			fmt.Sprintf("store write failed: %s", describe(status, body)), path, status, nil)
	}

	var resp writeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", errors.NewTransportError("failed to decode store write response", path, status, err)
	}
	if resp.Content.SHA == "" {
		return "", errors.NewTransportError("store write response carried no version", path, status, nil)
	}

	c.logger.Info("Wrote file to store",
		zap.String("path", path),
		zap.String("previous_sha", string(token)),
		zap.String("sha", resp.Content.SHA),
		zap.Int("bytes", len(data)),
	)

	return Token(resp.Content.SHA), nil
}

// doRequest performs one request. Only transport-level failures come back as errors;
// HTTP statuses are left to the caller.
func (c *GitHubClient) doRequest(ctx context.Context, method, path string, params url.Values, reqBody any, accept string) (int, []byte, error) {
	if !c.breaker.CanExecute() {
		msg := fmt.Sprintf("store temporarily unavailable, retry in %s", c.breaker.RetryAfter().Round(time.Second))
		return 0, nil, errors.NewTransportError(msg, path, 0, nil)
	}

	reqURL := fmt.Sprintf("%s/repos/%s/contents/%s", c.cfg.APIBaseURL, c.cfg.Repo, escapePath(path))
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return 0, nil, errors.NewTransportError("failed to marshal store request", path, 0, err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return 0, nil, errors.NewTransportError("failed to create store request", path, 0, err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		c.logger.Warn("Store request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return 0, nil, errors.NewTransportError("store request failed", path, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure()
		return 0, nil, errors.NewTransportError("failed to read store response", path, resp.StatusCode, err)
	}

	if resp.StatusCode >= 500 {
		c.breaker.RecordFailure()
	} else {
		c.breaker.RecordSuccess()
	}

	return resp.StatusCode, body, nil
}

func decodeContent(content string) ([]byte, error) {
	cleaned := strings.NewReplacer("\n", "", "\r", "").Replace(content)
	return base64.StdEncoding.DecodeString(cleaned)
}

func escapePath(path string) string {
	parts := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func mentionsSHA(body []byte) bool {
	var apiErr apiErrorBody
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "sha")
}

func describe(status int, body []byte) string {
	var apiErr apiErrorBody
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Sprintf("%d %s", status, apiErr.Message)
	}
	limit := int(constants.StoreConfig.MaxErrorBody)
	return fmt.Sprintf("%d %s", status, util.TruncateString(string(body), limit))
}
