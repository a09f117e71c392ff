package video

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/api"
	"github.com/shirenchuang/bilibili-data-mcp/internal/browser"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/logger"
)

const titleSuffix = "_哔哩哔哩_bilibili"

var (
	initialStatePattern = regexp.MustCompile(`(?s)window\.__INITIAL_STATE__\s*=\s*(\{.*?\});\s*\(function`)

	descPattern     = regexp.MustCompile(`"desc":"((?:[^"\\]|\\.)*)"`)
	picPattern      = regexp.MustCompile(`"pic":"((?:[^"\\]|\\.)*)"`)
	ownerPattern    = regexp.MustCompile(`"owner":\{"mid":(\d+),"name":"((?:[^"\\]|\\.)*)"`)
	replyPattern    = regexp.MustCompile(`"reply":(\d+)`)
	pubdatePattern  = regexp.MustCompile(`"pubdate":(\d+)`)
	durationPattern = regexp.MustCompile(`"duration":(\d+)`)
	tnamePattern    = regexp.MustCompile(`"tname":"((?:[^"\\]|\\.)*)"`)
	tagsPattern     = regexp.MustCompile(`"tags":\[([^\]]*)\]`)
	tagNamePattern  = regexp.MustCompile(`"tag_name":"((?:[^"\\]|\\.)*)"`)
	rawTitlePattern = regexp.MustCompile(`"title":"((?:[^"\\]|\\.)*)"`)
)

// initialState 视频页内嵌的 window.__INITIAL_STATE__
type initialState struct {
	Bvid      string        `json:"bvid"`
	VideoData api.VideoView `json:"videoData"`
	Tags      []struct {
		TagName string `json:"tag_name"`
	} `json:"tags"`
}

// getInfoScript 抓取视频页面并解析
func (s *Service) getInfoScript(ctx context.Context, bvid string) (*Info, error) {
	page, err := s.pages.Fetch(ctx, URL(s.client.BaseURL(), bvid), browser.FetchOptions{
		WaitSelector: "h1",
	})
	if err != nil {
		return nil, errors.Wrap(err, "获取视频页面失败")
	}

	switch page.StatusCode {
	case http.StatusNotFound:
		return nil, errors.Errorf("视频不存在: %s。请检查BV号是否正确", bvid)
	case http.StatusForbidden:
		return nil, errors.Errorf("访问被拒绝: %s。视频可能被删除或设为私密", bvid)
	case 0, http.StatusOK:
	default:
		return nil, errors.Wrap(&api.Error{StatusCode: page.StatusCode}, "获取视频页面失败")
	}
	if bilibili.IsNotFoundPage(page.HTML, bilibili.PageVideo) {
		return nil, errors.Errorf("视频不存在: %s。请检查BV号是否正确", bvid)
	}

	if info := parseInitialState(page.HTML); info != nil {
		return info, nil
	}
	logger.Debugf("页面中没有可用的初始状态，改用页面文本解析: %s", bvid)

	info, err := parsePage(page.HTML, bvid)
	if err != nil {
		return nil, err
	}
	if info.Title == "" && info.OwnerName == "" {
		return nil, errors.Errorf("无法从页面中提取视频信息: %s。视频可能不存在、被删除或页面结构发生变化", bvid)
	}
	return info, nil
}

// parseInitialState 解析页面初始状态，解析失败或没有视频数据时返回nil
func parseInitialState(html string) *Info {
	m := initialStatePattern.FindStringSubmatch(html)
	if m == nil {
		return nil
	}

	var state initialState
	if err := json.Unmarshal([]byte(m[1]), &state); err != nil {
		logger.Debugf("解析__INITIAL_STATE__失败: %v", err)
		return nil
	}
	if state.VideoData.Title == "" {
		return nil
	}

	var tags []string
	for _, tag := range state.Tags {
		if tag.TagName != "" {
			tags = append(tags, tag.TagName)
		}
	}
	return fromView(&state.VideoData, tags)
}

// parsePage 从页面文本和内嵌脚本片段中提取视频信息
func parsePage(html, bvid string) (*Info, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errors.Wrap(err, "解析视频页面失败")
	}

	info := &Info{
		Bvid:  bvid,
		Title: strings.TrimSpace(strings.Replace(bilibili.PageTitle(html), titleSuffix, "", 1)),
		Desc:  matchString(descPattern, html),
		Pic:   bilibili.AbsoluteURL(matchString(picPattern, html)),
		Tname: matchString(tnamePattern, html),
		Tags:  []string{},
		Pages: []Page{},
	}
	if info.Title == "" {
		info.Title = matchString(rawTitlePattern, html)
	}

	if m := ownerPattern.FindStringSubmatch(html); m != nil {
		info.OwnerMid, _ = strconv.ParseInt(m[1], 10, 64)
		info.OwnerName = unescape(m[2])
	}

	text := func(selector string) string {
		return strings.TrimSpace(doc.Find(selector).First().Text())
	}
	info.View = bilibili.ParseCount(text(".view-text"))
	info.Danmaku = bilibili.ParseCount(text(".dm-text"))
	info.Like = bilibili.ParseCount(text(".video-like-info"))
	info.Coin = bilibili.ParseCount(text(".video-coin-info"))
	info.Favorite = bilibili.ParseCount(text(".video-fav-info"))
	info.Share = bilibili.ParseCount(text(".video-share-info"))

	info.Reply = matchInt(replyPattern, html)
	info.Pubdate = matchInt(pubdatePattern, html)
	info.Duration = int(matchInt(durationPattern, html))

	if m := tagsPattern.FindStringSubmatch(html); m != nil {
		for _, tm := range tagNamePattern.FindAllStringSubmatch(m[1], -1) {
			info.Tags = append(info.Tags, unescape(tm[1]))
		}
	}
	return info, nil
}

func matchString(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return unescape(m[1])
	}
	return ""
}

func matchInt(re *regexp.Regexp, s string) int64 {
	if m := re.FindStringSubmatch(s); m != nil {
		n, _ := strconv.ParseInt(m[1], 10, 64)
		return n
	}
	return 0
}

// unescape 还原JSON字符串转义，如 \/ 和 \n
func unescape(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return s
	}
	return out
}
