package browser

import (
	"context"
	"time"
)

// Page 抓取到的页面
type Page struct {
	URL        string
	StatusCode int
	HTML       string
}

// FetchOptions 页面抓取选项
type FetchOptions struct {
	// WaitSelector 渲染后等待出现的选择器，超时只记录警告
	WaitSelector string
	Timeout      time.Duration
	Referer      string
}

// Fetcher 获取页面HTML，HTTP客户端和浏览器池都实现了该接口
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, opts FetchOptions) (*Page, error)
}
