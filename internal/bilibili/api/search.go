package api

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

// SearchGroup 综合搜索结果中的一组，result_type 为 video、media_bangumi 等
type SearchGroup struct {
	ResultType string          `json:"result_type"`
	Data       json.RawMessage `json:"data"`
}

// SearchAllData 综合搜索 /x/web-interface/search/all/v2
type SearchAllData struct {
	Page       int           `json:"page"`
	PageSize   int           `json:"pagesize"`
	NumResults int           `json:"numResults"`
	Result     []SearchGroup `json:"result"`
}

// SearchVideoItem 搜索结果里的视频条目
type SearchVideoItem struct {
	Bvid        string `json:"bvid"`
	Aid         int64  `json:"aid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Pic         string `json:"pic"`
	Play        int64  `json:"play"`
	VideoReview int64  `json:"video_review"`
	Duration    string `json:"duration"`
	Author      string `json:"author"`
	Mid         int64  `json:"mid"`
	Pubdate     int64  `json:"pubdate"`
}

// Videos 取出 result_type 为 video 的条目
func (d *SearchAllData) Videos() ([]SearchVideoItem, error) {
	var videos []SearchVideoItem
	for _, group := range d.Result {
		if group.ResultType != "video" || len(group.Data) == 0 {
			continue
		}
		var items []SearchVideoItem
		if err := json.Unmarshal(group.Data, &items); err != nil {
			return nil, err
		}
		videos = append(videos, items...)
	}
	return videos, nil
}

// SearchAll 综合搜索
func (c *Client) SearchAll(ctx context.Context, keyword string, page int) (*SearchAllData, error) {
	params := url.Values{
		"keyword":   {keyword},
		"page":      {strconv.Itoa(page)},
		"page_size": {"20"},
	}
	var data SearchAllData
	if err := c.getJSON(ctx, "/x/web-interface/search/all/v2", params, "", &data); err != nil {
		return nil, err
	}
	return &data, nil
}
