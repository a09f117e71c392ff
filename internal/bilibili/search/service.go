package search

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/api"
	"github.com/shirenchuang/bilibili-data-mcp/internal/browser"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/logger"
)

// VideoResult 视频搜索结果
type VideoResult struct {
	Bvid        string `json:"bvid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Pic         string `json:"pic"`
	Play        int64  `json:"play"`
	VideoReview int64  `json:"video_review"`
	Duration    string `json:"duration"`
	Author      string `json:"author"`
	Pubdate     int64  `json:"pubdate"`
}

// ArticleResult 专栏搜索结果
type ArticleResult struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Pic         string `json:"pic"`
	Reply       int64  `json:"reply"`
	Like        int64  `json:"like"`
	Author      string `json:"author"`
	Category    string `json:"category"`
	URL         string `json:"url"`
}

// searchIndicators 搜索结果页上至少会出现其中之一
var searchIndicators = []string{
	"搜索结果", "search-result", "video-item", "bili-video-card",
	"video-card", "search-list", "result-list", "vui_tabs",
}

const (
	videoCardSelector   = ".bili-video-card"
	articleCardSelector = ".b-article-card, .search-article-card"
)

// Service 搜索服务
type Service struct {
	client *api.Client
	// pages 脚本方式搜索视频时使用的抓取引擎
	pages browser.Fetcher
	// renderer 专栏搜索页完全由前端渲染，只能用浏览器
	renderer  browser.Fetcher
	searchURL string
	baseURL   string
	now       func() time.Time
}

// NewService 创建搜索服务
func NewService(client *api.Client, pages, renderer browser.Fetcher, searchURL string) *Service {
	return &Service{
		client:    client,
		pages:     pages,
		renderer:  renderer,
		searchURL: strings.TrimRight(searchURL, "/"),
		baseURL:   client.BaseURL(),
		now:       time.Now,
	}
}

// SearchVideos 按关键词搜索视频
func (s *Service) SearchVideos(ctx context.Context, keyword string, topk int, method bilibili.Method) ([]VideoResult, error) {
	logger.WithField("method", method).Infof("搜索视频: %s (topk=%d)", keyword, topk)
	if method == bilibili.MethodScript {
		return s.searchVideosScript(ctx, keyword, topk)
	}
	return s.searchVideosAPI(ctx, keyword, topk)
}

func (s *Service) searchVideosAPI(ctx context.Context, keyword string, topk int) ([]VideoResult, error) {
	data, err := s.client.SearchAll(ctx, keyword, 1)
	if err != nil {
		return nil, errors.Wrap(err, "搜索视频失败")
	}
	items, err := data.Videos()
	if err != nil {
		return nil, errors.Wrap(err, "解析搜索结果失败")
	}

	results := make([]VideoResult, 0, topk)
	for _, item := range items {
		if len(results) >= topk {
			break
		}
		results = append(results, VideoResult{
			Bvid:        item.Bvid,
			Title:       bilibili.StripTags(item.Title),
			Description: bilibili.StripTags(item.Description),
			Pic:         bilibili.AbsoluteURL(item.Pic),
			Play:        item.Play,
			VideoReview: item.VideoReview,
			Duration:    item.Duration,
			Author:      item.Author,
			Pubdate:     item.Pubdate,
		})
	}
	return results, nil
}

func (s *Service) searchVideosScript(ctx context.Context, keyword string, topk int) ([]VideoResult, error) {
	searchURL := s.searchURL + "/all?keyword=" + url.QueryEscape(keyword)
	page, err := s.pages.Fetch(ctx, searchURL, browser.FetchOptions{
		WaitSelector: videoCardSelector,
		Referer:      s.baseURL + "/",
	})
	if err != nil {
		return nil, err
	}
	if page.StatusCode != 0 && page.StatusCode != http.StatusOK {
		return nil, errors.Wrap(&api.Error{StatusCode: page.StatusCode}, "获取搜索页面失败")
	}
	if !hasSearchContent(page.HTML) {
		return nil, errors.New("无法获取搜索结果页面")
	}

	return parseVideoCards(page.HTML, topk, s.now())
}

// SearchArticles 按关键词搜索专栏，解析不到结果时返回空列表
func (s *Service) SearchArticles(ctx context.Context, keyword string, topk int) ([]ArticleResult, error) {
	logger.Infof("搜索专栏: %s (topk=%d)", keyword, topk)

	searchURL := s.searchURL + "/article?keyword=" + url.QueryEscape(keyword)
	page, err := s.renderer.Fetch(ctx, searchURL, browser.FetchOptions{
		WaitSelector: articleCardSelector,
		Referer:      s.baseURL + "/",
	})
	if err != nil {
		return nil, errors.Wrap(err, "搜索专栏失败")
	}
	if page.StatusCode != 0 && page.StatusCode != http.StatusOK {
		return nil, errors.Wrap(&api.Error{StatusCode: page.StatusCode}, "获取搜索页面失败")
	}

	results, err := parseArticleCards(page.HTML, topk)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		logger.Warnf("专栏搜索页面没有解析到结果: %s", keyword)
	}
	return results, nil
}

func hasSearchContent(html string) bool {
	for _, indicator := range searchIndicators {
		if strings.Contains(html, indicator) {
			return true
		}
	}
	return false
}
