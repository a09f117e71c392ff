package auth

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/api"
)

// NavClient 能查询导航信息的客户端
type NavClient interface {
	GetNavInfo(ctx context.Context) (*api.NavInfo, error)
}

// LoginStatus 登录状态
type LoginStatus struct {
	HasCookies bool   `json:"has_cookies"`
	IsLogin    bool   `json:"is_login"`
	Uname      string `json:"uname,omitempty"`
	Mid        int64  `json:"mid,omitempty"`
	Level      int    `json:"level,omitempty"`
}

// CheckLoginStatus 用导航接口确认cookies是否仍然有效
func CheckLoginStatus(ctx context.Context, client NavClient, cookies CookieSet) (*LoginStatus, error) {
	status := &LoginStatus{HasCookies: len(cookies) > 0}
	if !status.HasCookies {
		return status, nil
	}

	nav, err := client.GetNavInfo(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "查询登录状态失败")
	}

	status.IsLogin = nav.IsLogin
	if nav.IsLogin {
		status.Uname = nav.Uname
		status.Mid = nav.Mid
		status.Level = nav.LevelInfo.CurrentLevel
	}
	return status, nil
}
