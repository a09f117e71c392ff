package api

import (
	"context"
	"net/url"
	"strconv"
)

// Reply 评论
type Reply struct {
	Rpid   int64 `json:"rpid"`
	Root   int64 `json:"root"`
	Parent int64 `json:"parent"`
	Like   int64 `json:"like"`
	Ctime  int64 `json:"ctime"`
	Rcount int   `json:"rcount"`
	Member struct {
		Mid   string `json:"mid"`
		Uname string `json:"uname"`
	} `json:"member"`
	Content struct {
		Message string `json:"message"`
	} `json:"content"`
	Replies []Reply `json:"replies"`
}

// ReplyPage 一页评论
type ReplyPage struct {
	Replies []Reply `json:"replies"`
	Page    struct {
		Num   int `json:"num"`
		Size  int `json:"size"`
		Count int `json:"count"`
	} `json:"page"`
	Cursor struct {
		IsEnd bool  `json:"is_end"`
		Next  int64 `json:"next"`
	} `json:"cursor"`
}

// MainReplies 视频评论区一页评论（按热度）
func (c *Client) MainReplies(ctx context.Context, aid int64, page, size int) (*ReplyPage, error) {
	params := url.Values{
		"type": {"1"},
		"oid":  {strconv.FormatInt(aid, 10)},
		"mode": {"3"},
		"plat": {"1"},
		"pn":   {strconv.Itoa(page)},
		"next": {strconv.Itoa(page)},
		"ps":   {strconv.Itoa(size)},
	}
	var data ReplyPage
	if err := c.getJSON(ctx, "/x/v2/reply/main", params, "", &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// SubReplies 某条评论下的楼中楼回复
func (c *Client) SubReplies(ctx context.Context, aid, root int64, page, size int) (*ReplyPage, error) {
	params := url.Values{
		"type": {"1"},
		"oid":  {strconv.FormatInt(aid, 10)},
		"root": {strconv.FormatInt(root, 10)},
		"pn":   {strconv.Itoa(page)},
		"ps":   {strconv.Itoa(size)},
	}
	var data ReplyPage
	if err := c.getJSON(ctx, "/x/v2/reply/reply", params, "", &data); err != nil {
		return nil, err
	}
	return &data, nil
}
