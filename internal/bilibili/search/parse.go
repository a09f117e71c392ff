package search

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili"
)

var (
	bvidHrefPattern = regexp.MustCompile(`/video/(BV[A-Za-z0-9]{10})`)
	cvHrefPattern   = regexp.MustCompile(`/read/cv(\d+)`)
	likePattern     = regexp.MustCompile(`(\d+)\s*点赞`)
	replyPattern    = regexp.MustCompile(`(\d+)\s*条评论`)
)

// parseVideoCards 解析搜索页上的视频卡片，按bvid去重
func parseVideoCards(html string, topk int, now time.Time) ([]VideoResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errors.Wrap(err, "解析搜索页面失败")
	}

	seen := make(map[string]bool)
	results := make([]VideoResult, 0, topk)
	doc.Find(videoCardSelector).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if len(results) >= topk {
			return false
		}

		href, _ := card.Find(`a[href*="/video/BV"]`).First().Attr("href")
		m := bvidHrefPattern.FindStringSubmatch(href)
		if m == nil || seen[m[1]] {
			return true
		}

		title, _ := card.Find("h3[title]").First().Attr("title")
		if title == "" {
			title = bilibili.CollapseSpace(card.Find("h3").First().Text())
		}
		if title == "" {
			return true
		}
		seen[m[1]] = true

		stats := card.Find(".bili-video-card__stats--item span")
		pic, _ := card.Find("img").First().Attr("src")

		results = append(results, VideoResult{
			Bvid:        m[1],
			Title:       title,
			Pic:         bilibili.AbsoluteURL(pic),
			Play:        bilibili.ParseCount(stats.Eq(0).Text()),
			VideoReview: bilibili.ParseCount(stats.Eq(1).Text()),
			Duration:    strings.TrimSpace(card.Find(".bili-video-card__stats__duration").First().Text()),
			Author:      bilibili.CollapseSpace(card.Find(".bili-video-card__info--author").First().Text()),
			Pubdate:     bilibili.ParsePubDate(card.Find(".bili-video-card__info--date").First().Text(), now),
		})
		return true
	})
	return results, nil
}

// parseArticleCards 解析专栏搜索页的文章卡片
func parseArticleCards(html string, topk int) ([]ArticleResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errors.Wrap(err, "解析专栏搜索页面失败")
	}

	seen := make(map[string]bool)
	results := make([]ArticleResult, 0, topk)
	doc.Find(articleCardSelector).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if len(results) >= topk {
			return false
		}

		href, _ := card.Find(`a[href*="/read/cv"]`).First().Attr("href")
		m := cvHrefPattern.FindStringSubmatch(href)
		if m == nil || seen[m[1]] {
			return true
		}

		titleSel := card.Find(".b_text.i_card_title a, .text1").First()
		title, _ := titleSel.Attr("title")
		if title == "" {
			title = bilibili.CollapseSpace(titleSel.Text())
		}
		if title == "" {
			return true
		}
		seen[m[1]] = true

		info := card.Find(".atc-info").First()
		infoText := info.Text()
		pic, _ := card.Find("img").First().Attr("src")

		results = append(results, ArticleResult{
			ID:          m[1],
			Title:       title,
			Description: bilibili.CollapseSpace(card.Find(".atc-desc").First().Text()),
			Pic:         bilibili.AbsoluteURL(pic),
			Reply:       matchInt(replyPattern, infoText),
			Like:        matchInt(likePattern, infoText),
			Category:    bilibili.CollapseSpace(info.Find("a").First().Text()),
			URL:         "https://www.bilibili.com/read/cv" + m[1],
		})
		return true
	})
	return results, nil
}

func matchInt(re *regexp.Regexp, text string) int64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, _ := strconv.ParseInt(m[1], 10, 64)
	return n
}
