package video

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/api"
	"github.com/shirenchuang/bilibili-data-mcp/internal/browser"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/logger"
)

// Info 视频信息
type Info struct {
	Bvid      string   `json:"bvid"`
	Aid       int64    `json:"aid"`
	Cid       int64    `json:"cid"`
	Title     string   `json:"title"`
	Desc      string   `json:"desc"`
	Pic       string   `json:"pic"`
	Pubdate   int64    `json:"pubdate"`
	Duration  int      `json:"duration"`
	View      int64    `json:"view"`
	Danmaku   int64    `json:"danmaku"`
	Reply     int64    `json:"reply"`
	Favorite  int64    `json:"favorite"`
	Coin      int64    `json:"coin"`
	Share     int64    `json:"share"`
	Like      int64    `json:"like"`
	OwnerName string   `json:"owner_name"`
	OwnerMid  int64    `json:"owner_mid"`
	Tname     string   `json:"tname"`
	Tags      []string `json:"tags"`
	Pages     []Page   `json:"pages"`
}

// Page 分P
type Page struct {
	Cid      int64  `json:"cid"`
	Page     int    `json:"page"`
	Part     string `json:"part"`
	Duration int    `json:"duration"`
}

// Service 视频服务
type Service struct {
	client *api.Client
	pages  browser.Fetcher
}

// NewService 创建视频服务，pages 为脚本方式使用的页面抓取引擎
func NewService(client *api.Client, pages browser.Fetcher) *Service {
	return &Service{client: client, pages: pages}
}

// GetVideoInfo 获取视频详细信息
func (s *Service) GetVideoInfo(ctx context.Context, bvid string, method bilibili.Method) (*Info, error) {
	if err := bilibili.ValidateBVID(bvid); err != nil {
		return nil, err
	}
	logger.WithField("method", method).Infof("获取视频信息: %s", bvid)

	if method == bilibili.MethodScript {
		return s.getInfoScript(ctx, bvid)
	}

	view, err := s.client.GetVideoView(ctx, bvid)
	if err != nil {
		return nil, describeError(err, bvid)
	}
	return fromView(view, nil), nil
}

// describeError 把接口错误转换成面向用户的提示
func describeError(err error, bvid string) error {
	switch {
	case api.IsNotFound(err):
		return errors.Errorf("视频不存在: %s。请检查BV号是否正确", bvid)
	case api.IsForbidden(err):
		return errors.Errorf("访问被拒绝: %s。视频可能被删除或设为私密", bvid)
	}
	return errors.Wrap(err, "获取视频信息失败")
}

// fromView 把view数据整理成Info，extraTags 是页面状态里单独给出的标签
func fromView(view *api.VideoView, extraTags []string) *Info {
	info := &Info{
		Bvid:      view.Bvid,
		Aid:       view.Aid,
		Cid:       view.FirstCid(),
		Title:     view.Title,
		Desc:      view.Desc,
		Pic:       bilibili.AbsoluteURL(view.Pic),
		Pubdate:   view.Pubdate,
		Duration:  view.Duration,
		View:      view.Stat.View,
		Danmaku:   view.Stat.Danmaku,
		Reply:     view.Stat.Reply,
		Favorite:  view.Stat.Favorite,
		Coin:      view.Stat.Coin,
		Share:     view.Stat.Share,
		Like:      view.Stat.Like,
		OwnerName: view.Owner.Name,
		OwnerMid:  view.Owner.Mid,
		Tname:     view.Tname,
		Tags:      []string{},
		Pages:     make([]Page, 0, len(view.Pages)),
	}

	for _, tag := range view.AllTags() {
		if tag.TagName != "" {
			info.Tags = append(info.Tags, tag.TagName)
		}
	}
	if len(info.Tags) == 0 {
		info.Tags = append(info.Tags, extraTags...)
	}
	for _, p := range view.Pages {
		info.Pages = append(info.Pages, Page{Cid: p.Cid, Page: p.Page, Part: p.Part, Duration: p.Duration})
	}
	return info
}

// URL 视频页面地址
func URL(baseURL, bvid string) string {
	return fmt.Sprintf("%s/video/%s", baseURL, bvid)
}
