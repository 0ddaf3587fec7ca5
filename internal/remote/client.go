package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

const maxMetadataBytes = 8 << 20

// HTTPClient 描述最小化的 HTTP 客户端接口，方便测试时替换。
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option 用于配置 Client。
type Option func(*Client)

// WithHTTPClient 设置 HTTP 客户端。
func WithHTTPClient(h HTTPClient) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithUserAgent 设置请求使用的 User-Agent。
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// Client 读取远程或本地资源：http(s) 地址走 HTTP，其余按本地路径处理。
type Client struct {
	httpClient HTTPClient
	userAgent  string
}

// NewClient 创建资源客户端。
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		userAgent:  "vodka",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open 打开指定位置的资源，返回内容与长度（未知时为 -1）。
func (c *Client) Open(ctx context.Context, location string) (io.ReadCloser, int64, error) {
	if path, ok := localPath(location); ok {
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, fmt.Errorf("remote: open %s: %w", path, err)
		}
		size := int64(-1)
		if info, err := f.Stat(); err == nil {
			size = info.Size()
		}
		return f, size, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("remote: request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("remote: unexpected status %d from %s", resp.StatusCode, location)
	}
	return resp.Body, resp.ContentLength, nil
}

// ReadAll 读取一个小型资源的全部内容。
func (c *Client) ReadAll(ctx context.Context, location string) ([]byte, error) {
	body, _, err := c.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxMetadataBytes))
	if err != nil {
		return nil, fmt.Errorf("remote: read body: %w", err)
	}
	return data, nil
}

// Tags 读取 tag 列表，顺序与服务端一致（最新在前）。
func (c *Client) Tags(ctx context.Context, location string) ([]Tag, error) {
	var tags []Tag
	if err := c.getJSON(ctx, location, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// Releases 读取 release 列表。
func (c *Client) Releases(ctx context.Context, location string) ([]Release, error) {
	var releases []Release
	if err := c.getJSON(ctx, location, &releases); err != nil {
		return nil, err
	}
	return releases, nil
}

func (c *Client) getJSON(ctx context.Context, location string, v any) error {
	data, err := c.ReadAll(ctx, location)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}
	return nil
}

func localPath(location string) (string, bool) {
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return "", false
	case strings.HasPrefix(location, "file://"):
		u, err := url.Parse(location)
		if err != nil {
			return strings.TrimPrefix(location, "file://"), true
		}
		return u.Path, true
	default:
		return location, true
	}
}

// Tag 表示 tag 列表中的一项。
type Tag struct {
	Name string `json:"name"`
}

// Release 表示 release 列表中的一项。
type Release struct {
	TagName    string  `json:"tag_name"`
	Draft      bool    `json:"draft"`
	Prerelease bool    `json:"prerelease"`
	HTMLURL    string  `json:"html_url"`
	Assets     []Asset `json:"assets"`
}

// Asset 表示 release 附带的文件。
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}
