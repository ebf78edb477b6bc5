// Package api fetches shader documents from shadertoy.com.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/richinsley/goshadertoyvr/document"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const DefaultBaseURL = "https://www.shadertoy.com"

// ErrNotPublic is returned by the API for shaders not published with API
// access. The raw site endpoint can still serve them.
var ErrNotPublic = errors.New("shader is not available through the API")

// Client fetches shaders. With a Key set the public API is tried first;
// otherwise, or when the API refuses, the site's own endpoint is used.
type Client struct {
	BaseURL string
	Key     string
	// CacheDir holds fetched documents as <id>.json. Empty disables the
	// cache.
	CacheDir string
	HTTP     *http.Client

	log *zap.Logger
}

func NewClient(key, cacheDir string, log *zap.Logger) *Client {
	return &Client{
		BaseURL:  DefaultBaseURL,
		Key:      key,
		CacheDir: cacheDir,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
		log:      log,
	}
}

// ShaderID extracts the shader ID from an ID or a shadertoy.com/view URL.
func ShaderID(idOrURL string) (string, error) {
	id := idOrURL
	if strings.Contains(id, "/") {
		id = filepath.Base(strings.TrimSuffix(id, "/"))
	}
	if id == "" || id == "." {
		return "", fmt.Errorf("no shader id in %q", idOrURL)
	}
	for _, r := range id {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return "", fmt.Errorf("invalid shader id %q", id)
		}
	}
	return id, nil
}

// Fetch returns the shader document for idOrURL, from the cache when
// present.
func (c *Client) Fetch(ctx context.Context, idOrURL string) (*document.Shader, error) {
	id, err := ShaderID(idOrURL)
	if err != nil {
		return nil, err
	}

	cachePath := ""
	if c.CacheDir != "" {
		cachePath = filepath.Join(c.CacheDir, id+".json")
		if doc, err := document.Load(cachePath); err == nil {
			c.log.Debug("Shader loaded from cache", zap.String("id", id), zap.String("path", cachePath))
			return doc, nil
		}
	}

	var resp *document.ShadertoyResponse
	if c.Key != "" {
		resp, err = c.fetchAPI(ctx, id)
		if err != nil {
			c.log.Warn("Shadertoy API request failed, trying site endpoint", zap.String("id", id), zap.Error(err))
		}
	}
	if resp == nil {
		resp, err = c.fetchRaw(ctx, id)
		if err != nil {
			return nil, err
		}
	}
	c.dropUnsupportedInputs(id, resp)

	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode shader %s: %w", id, err)
	}
	doc, err := document.DecodeJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", id, err)
	}
	if cachePath != "" {
		if err := writeCache(cachePath, data); err != nil {
			c.log.Warn("Failed to cache shader", zap.String("path", cachePath), zap.Error(err))
		} else {
			c.log.Info("Shader cached", zap.String("id", id), zap.String("path", cachePath))
		}
	}
	return doc, nil
}

// dropUnsupportedInputs removes inputs such as keyboard and buffer
// channels that have no channel kind here.
func (c *Client) dropUnsupportedInputs(id string, resp *document.ShadertoyResponse) {
	if resp.Shader == nil {
		return
	}
	for i := range resp.Shader.RenderPass {
		pass := &resp.Shader.RenderPass[i]
		kept := pass.Inputs[:0]
		for _, in := range pass.Inputs {
			if _, err := document.ParseKind(in.CType); err != nil {
				c.log.Warn("Dropping unsupported input", zap.String("id", id),
					zap.Int("channel", in.Channel), zap.String("ctype", in.CType))
				continue
			}
			kept = append(kept, in)
		}
		pass.Inputs = kept
	}
}

func (c *Client) fetchAPI(ctx context.Context, id string) (*document.ShadertoyResponse, error) {
	u := fmt.Sprintf("%s/api/v1/shaders/%s?%s", c.BaseURL, url.PathEscape(id), url.Values{"key": {c.Key}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp document.ShadertoyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode shader JSON: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrNotPublic, resp.Error)
	}
	return &resp, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("User-Agent", "goshadertoyvr")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", req.URL.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad response status: %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

func writeCache(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
