package api

import (
	"context"

	"github.com/pkg/errors"
)

// NavInfo 导航信息，用于验证登录状态和获取用户信息
type NavInfo struct {
	IsLogin   bool   `json:"isLogin"`
	Uname     string `json:"uname"`
	Mid       int64  `json:"mid"`
	Face      string `json:"face"`
	LevelInfo struct {
		CurrentLevel int `json:"current_level"`
	} `json:"level_info"`
}

// GetNavInfo 获取导航信息，未登录时返回 IsLogin=false 而不是错误
func (c *Client) GetNavInfo(ctx context.Context) (*NavInfo, error) {
	var nav NavInfo
	err := c.getJSON(ctx, "/x/web-interface/nav", nil, "", &nav)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Code == -101 {
			return &NavInfo{IsLogin: false}, nil
		}
		return nil, err
	}
	return &nav, nil
}
