package article

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/api"
	"github.com/shirenchuang/bilibili-data-mcp/internal/browser"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/logger"
)

// Article 专栏文章
type Article struct {
	CvID             string    `json:"cv_id"`
	Title            string    `json:"title"`
	Author           string    `json:"author"`
	AuthorAvatar     string    `json:"author_avatar"`
	PublishTime      string    `json:"publish_time"`
	Content          string    `json:"content"`
	Images           []string  `json:"images"`
	ContentStructure []Segment `json:"content_structure"`
	Tags             []string  `json:"tags"`
	LikeCount        int64     `json:"like_count"`
	CommentCount     int64     `json:"comment_count"`
	ShareCount       int64     `json:"share_count"`
	CoinCount        int64     `json:"coin_count"`
	FavoriteCount    int64     `json:"favorite_count"`
	URL              string    `json:"url"`
}

// Segment 正文片段，Type 为 text 或 image
type Segment struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	URL     string `json:"url,omitempty"`
	Index   *int   `json:"index,omitempty"`
}

// Service 专栏服务
type Service struct {
	pages   browser.Fetcher
	baseURL string
}

// NewService 创建专栏服务
func NewService(pages browser.Fetcher, baseURL string) *Service {
	return &Service{pages: pages, baseURL: strings.TrimRight(baseURL, "/")}
}

// Get 获取专栏文章，cvID 可以带 cv 前缀
func (s *Service) Get(ctx context.Context, cvID string) (*Article, error) {
	id, err := bilibili.NormalizeCVID(cvID)
	if err != nil {
		return nil, err
	}
	logger.Infof("获取专栏文章: cv%s", id)

	page, err := s.pages.Fetch(ctx, fmt.Sprintf("%s/read/cv%s", s.baseURL, id), browser.FetchOptions{
		WaitSelector: ".opus-module-content",
	})
	if err != nil {
		return nil, errors.Wrap(err, "获取文章页面失败")
	}

	switch page.StatusCode {
	case http.StatusNotFound:
		return nil, errors.Errorf("文章不存在: cv%s。请检查CV号是否正确", id)
	case http.StatusForbidden:
		return nil, errors.Errorf("访问被拒绝: cv%s。文章可能被删除或设为私密", id)
	case 0, http.StatusOK:
	default:
		return nil, errors.Wrap(&api.Error{StatusCode: page.StatusCode}, "获取文章页面失败")
	}
	if bilibili.IsNotFoundPage(page.HTML, bilibili.PageArticle) {
		return nil, errors.Errorf("文章不存在: cv%s。请检查CV号是否正确", id)
	}

	article, err := parseArticle(page.HTML, id)
	if err != nil {
		return nil, err
	}
	if article.Title == "" {
		return nil, errors.Errorf("无法从页面中提取文章信息: cv%s。文章可能不存在、被删除或页面结构发生变化", id)
	}
	return article, nil
}

// toolbarCounts 侧边栏按钮与统计字段的对应关系
var toolbarCounts = []struct {
	class string
	field func(a *Article) *int64
}{
	{"like", func(a *Article) *int64 { return &a.LikeCount }},
	{"coin", func(a *Article) *int64 { return &a.CoinCount }},
	{"favorite", func(a *Article) *int64 { return &a.FavoriteCount }},
	{"forward", func(a *Article) *int64 { return &a.ShareCount }},
	{"comment", func(a *Article) *int64 { return &a.CommentCount }},
}

func parseArticle(html, id string) (*Article, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errors.Wrap(err, "解析文章页面失败")
	}

	article := &Article{
		CvID:             id,
		Title:            bilibili.CollapseSpace(doc.Find(".opus-module-title__text").First().Text()),
		Author:           bilibili.CollapseSpace(doc.Find(".opus-module-author__name").First().Text()),
		PublishTime:      bilibili.CollapseSpace(doc.Find(".opus-module-author__pub__text").First().Text()),
		Images:           []string{},
		ContentStructure: []Segment{},
		Tags:             []string{},
		URL:              "https://www.bilibili.com/read/cv" + id,
	}
	if avatar, ok := doc.Find(".opus-module-author__avatar img, .opus-module-author img").First().Attr("src"); ok {
		article.AuthorAvatar = bilibili.AbsoluteURL(avatar)
	}

	parseContent(doc.Find(".opus-module-content").First(), article)

	doc.Find(".opus-module-extend__item__text").Each(func(_ int, s *goquery.Selection) {
		if tag := bilibili.CollapseSpace(s.Text()); tag != "" {
			article.Tags = append(article.Tags, tag)
		}
	})

	for _, c := range toolbarCounts {
		text := doc.Find(".side-toolbar__action." + c.class + " .side-toolbar__action__text").First().Text()
		*c.field(article) = bilibili.ParseCount(text)
	}
	return article, nil
}

// parseContent 按文档顺序收集正文段落和配图
func parseContent(content *goquery.Selection, article *Article) {
	var paragraphs []string
	content.Find("p, .opus-para-pic img").Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "img" {
			if src, _ := s.Attr("src"); isRemoteImage(src) {
				addImage(article, src)
			}
			return
		}

		text := bilibili.CollapseSpace(s.Text())
		if text == "" {
			return
		}
		paragraphs = append(paragraphs, text)
		article.ContentStructure = append(article.ContentStructure, Segment{Type: "text", Content: text})
	})
	article.Content = strings.Join(paragraphs, "\n\n")

	if len(article.Images) == 0 {
		collectLooseImages(content, article)
	}
}

// imageExcludes 头像、图标等不属于正文的图片
var imageExcludes = []string{"face", "avatar", "icon", "logo"}

// minImageURLLen 正文配图的地址通常较长，短地址多为装饰图
const minImageURLLen = 50

// collectLooseImages 正文没有图片块时，先找懒加载图片，再找任意图片
func collectLooseImages(content *goquery.Selection, article *Article) {
	for _, selector := range []string{`img[loading="lazy"]`, "img"} {
		content.Find(selector).Each(func(_ int, s *goquery.Selection) {
			src, _ := s.Attr("src")
			if !isRemoteImage(src) || len(src) <= minImageURLLen {
				return
			}
			for _, word := range imageExcludes {
				if strings.Contains(src, word) {
					return
				}
			}
			addImage(article, src)
		})
		if len(article.Images) > 0 {
			return
		}
	}
}

func isRemoteImage(src string) bool {
	return strings.HasPrefix(src, "//") || strings.HasPrefix(src, "http")
}

func addImage(article *Article, src string) {
	src = bilibili.AbsoluteURL(src)
	index := len(article.Images)
	article.Images = append(article.Images, src)
	article.ContentStructure = append(article.ContentStructure, Segment{Type: "image", URL: src, Index: &index})
}
