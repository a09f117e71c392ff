package api

import (
	"compress/flate"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shirenchuang/bilibili-data-mcp/internal/browser"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/config"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/logger"
)

// Options 客户端选项
type Options struct {
	BaseURL   string // www.bilibili.com
	APIURL    string // api.bilibili.com
	UserAgent string
	Cookie    string // "a=b; c=d"
	// RequestDelay 每次请求前固定等待的时长
	RequestDelay time.Duration
	Timeout      time.Duration
}

// Client B站API客户端
type Client struct {
	httpClient *http.Client
	opts       Options
}

// NewClient 创建API客户端
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	opts.APIURL = strings.TrimRight(opts.APIURL, "/")

	return &Client{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		opts: opts,
	}
}

// NewClientFromConfig 根据配置创建客户端
func NewClientFromConfig(cfg *config.Config, cookie string) *Client {
	return NewClient(Options{
		BaseURL:      cfg.Bilibili.BaseURL,
		APIURL:       cfg.Bilibili.APIURL,
		UserAgent:    cfg.Bilibili.UserAgent,
		Cookie:       cookie,
		RequestDelay: cfg.Bilibili.RequestDelay,
		Timeout:      cfg.Bilibili.Timeout,
	})
}

// HasCookie 是否带有用户cookies
func (c *Client) HasCookie() bool {
	return strings.TrimSpace(c.opts.Cookie) != ""
}

// BaseURL 主站地址
func (c *Client) BaseURL() string {
	return c.opts.BaseURL
}

// getHeaders 获取标准请求头
func (c *Client) getHeaders(referer string) map[string]string {
	if referer == "" {
		referer = c.opts.BaseURL + "/"
	}
	return map[string]string{
		"User-Agent":      c.opts.UserAgent,
		"Referer":         referer,
		"Origin":          c.opts.BaseURL,
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
		"Cache-Control":   "no-cache",
	}
}

// pace 请求前的固定延迟
func (c *Client) pace(ctx context.Context) error {
	if c.opts.RequestDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(c.opts.RequestDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "请求被取消")
	}
}

// makeRequest 发起GET请求，返回状态码和解码后的响应体
func (c *Client) makeRequest(ctx context.Context, rawURL string, params url.Values, headers map[string]string) (int, []byte, error) {
	if err := c.pace(ctx); err != nil {
		return 0, nil, err
	}

	if len(params) > 0 {
		rawURL = rawURL + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, errors.Wrap(err, "创建GET请求失败")
	}

	if c.opts.Cookie != "" {
		req.Header.Set("Cookie", c.opts.Cookie)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	logger.Debugf("GET %s", rawURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, errors.Wrap(err, "网络请求失败")
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	// 弹幕接口固定返回deflate压缩，Go的Transport只会自动解gzip
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "deflate") {
		fr := flate.NewReader(resp.Body)
		defer fr.Close()
		body = fr
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return resp.StatusCode, nil, errors.Wrap(err, "读取响应失败")
	}
	return resp.StatusCode, data, nil
}

// envelope B站JSON接口的外层结构
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// getJSON 请求JSON接口并把data解析到out，业务码非0时返回*Error
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, referer string, out interface{}) error {
	status, body, err := c.makeRequest(ctx, c.opts.APIURL+path, params, c.getHeaders(referer))
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &Error{StatusCode: status}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return errors.Wrap(err, "JSON解析失败")
	}
	if env.Code != 0 {
		return &Error{StatusCode: status, Code: env.Code, Message: env.Message}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return errors.Wrapf(err, "解析 %s 响应失败", path)
	}
	return nil
}

// Fetch 以普通HTTP请求获取页面，实现browser.Fetcher
func (c *Client) Fetch(ctx context.Context, rawURL string, opts browser.FetchOptions) (*browser.Page, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	headers := c.getHeaders(opts.Referer)
	headers["Accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	delete(headers, "Origin")

	status, body, err := c.makeRequest(ctx, rawURL, nil, headers)
	if err != nil {
		return nil, errors.Wrapf(err, "获取页面失败: %s", rawURL)
	}
	return &browser.Page{URL: rawURL, StatusCode: status, HTML: string(body)}, nil
}
