package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/api"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/article"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/auth"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/comment"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/danmaku"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/search"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/video"
	"github.com/shirenchuang/bilibili-data-mcp/internal/browser"
	"github.com/shirenchuang/bilibili-data-mcp/internal/mcp"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/config"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "bilibili-mcp",
	Short:         "B站数据MCP服务",
	Long:          "以MCP工具的形式提供B站视频搜索、视频信息、弹幕、评论和专栏文章的只读查询。",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "配置文件路径")
	rootCmd.Flags().StringP("transport", "t", "stdio", "传输方式: stdio 或 http")
	rootCmd.Flags().StringP("port", "p", "18666", "HTTP传输的监听端口")
	rootCmd.SetOut(os.Stderr)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	v := viper.New()
	if err := v.BindPFlag("server.transport", cmd.Flags().Lookup("transport")); err != nil {
		return err
	}
	if err := v.BindPFlag("server.port", cmd.Flags().Lookup("port")); err != nil {
		return err
	}

	// 加载配置
	cfg, err := config.LoadWith(v, configPath)
	if err != nil {
		return errors.Wrap(err, "加载配置失败")
	}

	// 初始化日志系统
	if err := logger.Init(cfg); err != nil {
		return errors.Wrap(err, "初始化日志系统失败")
	}

	logger.Info("bilibili-mcp 服务启动中...")
	logger.Infof("配置文件: %s", configPath)

	// cookies只在启动时读取一次
	cookieFile := cfg.GetResolvedCookieFile()
	cookies, err := auth.LoadCookies(cookieFile)
	if err != nil {
		return err
	}
	if len(cookies) == 0 {
		logger.Warnf("未找到cookies (%s)，评论功能不可用，请先运行 bilibili-cookies", cookieFile)
	} else {
		logger.Infof("已加载 %d 条cookies: %s", len(cookies), cookieFile)
	}

	client := api.NewClientFromConfig(cfg, cookies.Header())

	// 浏览器池按需启动，专栏搜索和browser抓取引擎才会用到
	pool := browser.NewPool(cfg, cookies.Playwright(cfg.Cookies.Domain))
	defer func() {
		logger.WithFields(logrus.Fields(pool.Stats())).Debug("浏览器池状态")
		pool.Close()
	}()

	var pages browser.Fetcher = client
	if cfg.Scrape.Engine == "browser" {
		pages = pool
	}
	logger.Infof("网页抓取引擎: %s", cfg.Scrape.Engine)

	server := mcp.NewServer(cfg, mcp.Services{
		Search:   search.NewService(client, pages, pool, cfg.Bilibili.SearchURL),
		Video:    video.NewService(client, pages),
		Danmaku:  danmaku.NewService(client),
		Comments: comment.NewService(client, cfg.Comments),
		Articles: article.NewService(pages, cfg.Bilibili.BaseURL),
		Login: func(ctx context.Context) (*auth.LoginStatus, error) {
			return auth.CheckLoginStatus(ctx, client, cookies)
		},
	})

	if cfg.Server.Transport == "http" {
		return serveHTTP(cfg, server)
	}
	return serveStdio(cfg, server)
}

// serveStdio stdout只用于协议消息
func serveStdio(cfg *config.Config, server *mcp.Server) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printUsageInfo(cfg)
	logger.Info("通过stdio提供服务，等待MCP客户端连接...")

	if err := server.ServeStdio(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "stdio服务异常退出")
	}
	logger.Info("服务器已关闭")
	return nil
}

func serveHTTP(cfg *config.Config, server *mcp.Server) error {
	mux := http.NewServeMux()
	mux.Handle(cfg.Server.Path, server.HTTPHandler())

	httpServer := &http.Server{
		Addr:    cfg.Address(),
		Handler: mux,

		// 评论分页和浏览器渲染可能较慢
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("MCP服务器启动在 http://%s%s", cfg.Address(), cfg.Server.Path)
		logger.Info("服务器准备就绪，等待MCP客户端连接...")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	printUsageInfo(cfg)

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return errors.Wrap(err, "HTTP服务器启动失败")
	case <-quit:
	}

	logger.Info("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("服务器关闭失败: %v", err)
	}

	logger.Info("服务器已关闭")
	return nil
}

// printUsageInfo 打印使用说明，写到stderr
func printUsageInfo(cfg *config.Config) {
	w := os.Stderr
	fmt.Fprintln(w)
	fmt.Fprintln(w, "🚀 bilibili-mcp 服务已启动！")
	fmt.Fprintln(w)
	if cfg.Server.Transport == "http" {
		fmt.Fprintf(w, "📡 MCP服务地址: http://%s%s\n", cfg.Address(), cfg.Server.Path)
	} else {
		fmt.Fprintln(w, "📡 传输方式: stdio")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "📋 使用步骤:")
	fmt.Fprintln(w, "1. 获取评论需要登录cookies，请先运行:")
	fmt.Fprintln(w, "   ./bilibili-cookies capture")
	fmt.Fprintln(w, "   ./bilibili-cookies import auto  # 从本机浏览器导入")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "2. 在AI客户端中配置MCP:")
	fmt.Fprintf(w, "   - HTTP: claude mcp add --transport http bilibili-mcp http://localhost:%s%s\n", cfg.Server.Port, cfg.Server.Path)
	fmt.Fprintln(w, "   - stdio: 命令填写 ./bilibili-mcp --transport stdio")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "3. 可用的MCP工具:")
	fmt.Fprintln(w, "   - search_videos: 搜索视频")
	fmt.Fprintln(w, "   - search_articles: 搜索专栏")
	fmt.Fprintln(w, "   - get_video_info: 获取视频信息")
	fmt.Fprintln(w, "   - get_danmaku: 获取弹幕")
	fmt.Fprintln(w, "   - get_comments: 获取评论")
	fmt.Fprintln(w, "   - get_article: 获取专栏文章")
	fmt.Fprintln(w, "   - check_login_status: 检查登录状态")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "按 Ctrl+C 停止服务")
	fmt.Fprintln(w)
}
