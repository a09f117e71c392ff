package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/playwright-community/playwright-go"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/config"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/logger"
)

// ConfirmFunc 等待用户确认已完成登录
type ConfirmFunc func(message string) error

// CaptureOptions 抓取选项
type CaptureOptions struct {
	// Auto 为true时轮询登录状态，不等待用户按回车
	Auto bool
}

// CaptureService 打开有界面的浏览器让用户登录，然后保存cookies
type CaptureService struct {
	config  *config.Config
	confirm ConfirmFunc
}

// NewCaptureService 创建cookie抓取服务
func NewCaptureService(cfg *config.Config, confirm ConfirmFunc) *CaptureService {
	return &CaptureService{
		config:  cfg,
		confirm: confirm,
	}
}

// Capture 抓取cookies并写入配置的cookie文件
func (s *CaptureService) Capture(ctx context.Context, opts CaptureOptions) (CookieSet, error) {
	logger.Info("正在启动浏览器...")

	pw, err := playwright.Run()
	if err != nil {
		return nil, errors.Wrap(err, "启动playwright失败")
	}
	defer pw.Stop()

	// 显示浏览器以便扫码
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(false),
	})
	if err != nil {
		return nil, errors.Wrap(err, "启动浏览器失败")
	}
	defer browser.Close()

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(s.config.Browser.UserAgent),
		Viewport: &playwright.Size{
			Width:  s.config.Browser.Viewport.Width,
			Height: s.config.Browser.Viewport.Height,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "创建浏览器上下文失败")
	}

	page, err := bctx.NewPage()
	if err != nil {
		return nil, errors.Wrap(err, "创建页面失败")
	}

	siteURL := s.config.Cookies.SiteURL
	fmt.Printf("🌐 正在打开B站: %s\n", siteURL)
	if _, err := page.Goto(siteURL, playwright.PageGotoOptions{
		Timeout: playwright.Float(60000),
	}); err != nil {
		return nil, errors.Wrap(err, "导航到B站失败")
	}
	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	}); err != nil {
		logger.Warnf("等待页面加载完成超时: %v", err)
	}

	if opts.Auto {
		fmt.Printf("⏰ 请在浏览器中登录，超时时间: %s\n", s.config.Cookies.LoginTimeout)
		if err := s.waitForLogin(ctx, bctx); err != nil {
			return nil, err
		}
	} else {
		if s.confirm == nil {
			return nil, errors.New("没有设置登录确认方式")
		}
		fmt.Println("请手动登录B站，登录完成后按回车键保存cookies...")
		if err := s.confirm("登录完成后请按回车键继续"); err != nil {
			return nil, errors.Wrap(err, "等待用户确认失败")
		}
	}

	raw, err := bctx.Cookies()
	if err != nil {
		return nil, errors.Wrap(err, "获取cookies失败")
	}

	cookies := FromPlaywright(raw).Sanitize().WithDomain(s.config.Cookies.Domain)
	if len(cookies) == 0 {
		return nil, errors.New("未获取到有效的cookies")
	}
	if !cookies.HasLogin() {
		logger.Warn("cookies中没有SESSDATA，可能尚未登录，评论等功能将不可用")
	}

	path := s.config.GetResolvedCookieFile()
	if err := cookies.Save(path); err != nil {
		return nil, err
	}

	logger.Infof("B站cookies已保存到: %s (%d 条)", path, len(cookies))
	return cookies, nil
}

// waitForLogin 轮询浏览器上下文中的SESSDATA
func (s *CaptureService) waitForLogin(ctx context.Context, bctx playwright.BrowserContext) error {
	timeout := time.NewTimer(s.config.Cookies.LoginTimeout)
	defer timeout.Stop()
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		if raw, err := bctx.Cookies(); err == nil && FromPlaywright(raw).HasLogin() {
			logger.Info("检测到登录成功")
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "登录被取消")
		case <-timeout.C:
			return errors.New("登录超时，请重试")
		case <-ticker.C:
			logger.Debug("继续等待用户完成登录...")
		}
	}
}
