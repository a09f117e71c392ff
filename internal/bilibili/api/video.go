package api

import (
	"context"
	"net/url"
)

// VideoView 视频详情 /x/web-interface/view
type VideoView struct {
	Aid      int64  `json:"aid"`
	Bvid     string `json:"bvid"`
	Title    string `json:"title"`
	Desc     string `json:"desc"`
	Duration int    `json:"duration"`
	Cid      int64  `json:"cid"`
	Pubdate  int64  `json:"pubdate"`
	Pic      string `json:"pic"`
	Tname    string `json:"tname"`
	Videos   int    `json:"videos"`
	Owner    struct {
		Mid  int64  `json:"mid"`
		Name string `json:"name"`
		Face string `json:"face"`
	} `json:"owner"`
	Stat struct {
		View     int64 `json:"view"`
		Danmaku  int64 `json:"danmaku"`
		Reply    int64 `json:"reply"`
		Favorite int64 `json:"favorite"`
		Coin     int64 `json:"coin"`
		Share    int64 `json:"share"`
		Like     int64 `json:"like"`
	} `json:"stat"`
	Pages []VideoPage `json:"pages"`

	// 不同接口版本的标签字段名不一致
	Tags     []VideoTag `json:"tag"`
	TagsList []VideoTag `json:"tags"`
}

// VideoTag 视频标签
type VideoTag struct {
	TagID   int64  `json:"tag_id"`
	TagName string `json:"tag_name"`
}

// VideoPage 分P信息
type VideoPage struct {
	Cid      int64  `json:"cid"`
	Page     int    `json:"page"`
	Part     string `json:"part"`
	Duration int    `json:"duration"`
}

// FirstCid 第一个分P的cid，没有分P列表时回退到顶层cid
func (v *VideoView) FirstCid() int64 {
	if len(v.Pages) > 0 && v.Pages[0].Cid != 0 {
		return v.Pages[0].Cid
	}
	return v.Cid
}

// AllTags 优先取 tag 字段，为空时取 tags
func (v *VideoView) AllTags() []VideoTag {
	if len(v.Tags) > 0 {
		return v.Tags
	}
	return v.TagsList
}

// GetVideoView 获取视频详情
func (c *Client) GetVideoView(ctx context.Context, bvid string) (*VideoView, error) {
	var view VideoView
	params := url.Values{"bvid": {bvid}}
	if err := c.getJSON(ctx, "/x/web-interface/view", params, c.opts.BaseURL+"/video/"+bvid, &view); err != nil {
		return nil, err
	}
	return &view, nil
}
