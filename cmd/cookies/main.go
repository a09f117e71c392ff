package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/pkg/errors"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/api"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/auth"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/config"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/logger"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	configPath string
	autoLogin  bool
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bilibili-cookies",
	Short: "管理B站cookies",
	Long:  "获取并保存B站登录cookies，供 bilibili-mcp 获取评论等需要登录的数据使用。不带子命令时等同于 capture。",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(findConfigFile(configPath)); err != nil {
			return errors.Wrap(err, "加载配置失败")
		}
		return logger.Init(cfg)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCapture,
}

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "打开浏览器登录B站并保存cookies",
	Args:  cobra.NoArgs,
	RunE:  runCapture,
}

var importCmd = &cobra.Command{
	Use:   "import <path|auto>",
	Short: "从本机浏览器cookie库或cookies.txt导入",
	Long: `从 Firefox (cookies.sqlite)、Chrome (Cookies，仅未加密的值) 或 Netscape cookies.txt 导入B站cookies。
参数为 auto 时按 Firefox、Chrome、Chromium、Edge 的顺序自动查找。`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "检查已保存cookies的登录状态",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "配置文件路径")
	rootCmd.Flags().BoolVar(&autoLogin, "auto", false, "自动检测登录完成，不等待回车")
	captureCmd.Flags().BoolVar(&autoLogin, "auto", false, "自动检测登录完成，不等待回车")
	rootCmd.AddCommand(captureCmd, importCmd, checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
}

// findConfigFile 依次在当前目录和可执行文件所在目录查找配置文件
func findConfigFile(defaultPath string) string {
	if filepath.IsAbs(defaultPath) {
		return defaultPath
	}
	if _, err := os.Stat(defaultPath); err == nil {
		return defaultPath
	}

	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), defaultPath)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	// 都找不到时返回原路径，使用默认配置
	return defaultPath
}

func runCapture(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !autoLogin && !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("当前不是交互式终端，请使用 --auto 自动检测登录")
	}

	fmt.Println()
	fmt.Println("🔐 B站cookies获取工具")
	fmt.Println("==================")
	fmt.Printf("保存位置: %s\n", cfg.GetResolvedCookieFile())
	fmt.Println()

	existing, err := auth.LoadCookies(cfg.GetResolvedCookieFile())
	if err == nil && existing.HasLogin() {
		overwrite := false
		if err := survey.AskOne(&survey.Confirm{
			Message: "已存在登录cookies，是否重新获取？",
			Default: false,
		}, &overwrite); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println("已取消")
			return nil
		}
	}

	capture := auth.NewCaptureService(cfg, func(message string) error {
		var ignored string
		return survey.AskOne(&survey.Input{Message: message}, &ignored)
	})
	cookies, err := capture.Capture(ctx, auth.CaptureOptions{Auto: autoLogin})
	if err != nil {
		return errors.Wrap(err, "获取cookies失败")
	}

	fmt.Println()
	fmt.Printf("✅ 已保存 %d 条cookies\n", len(cookies))
	return reportStatus(ctx, cookies)
}

func runImport(cmd *cobra.Command, args []string) error {
	var (
		cookies auth.CookieSet
		source  *auth.ImportSource
		err     error
	)
	if args[0] == "auto" {
		cookies, source, err = auth.DetectBrowserCookies(cfg.Cookies.Domain)
	} else {
		cookies, source, err = auth.ImportCookies(args[0], cfg.Cookies.Domain)
	}
	if err != nil {
		return errors.Wrap(err, "导入cookies失败")
	}

	cookies = cookies.Sanitize().WithDomain(cfg.Cookies.Domain)
	if len(cookies) == 0 {
		return errors.Errorf("%s 中没有B站cookies", source.Path)
	}

	path := cfg.GetResolvedCookieFile()
	if err := cookies.Save(path); err != nil {
		return err
	}
	fmt.Printf("✅ 已从 %s (%s) 导入 %d 条cookies到 %s\n", source.Browser, source.Path, len(cookies), path)

	return reportStatus(cmd.Context(), cookies)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cookies, err := auth.LoadCookies(cfg.GetResolvedCookieFile())
	if err != nil {
		return err
	}
	return reportStatus(cmd.Context(), cookies)
}

// reportStatus 用导航接口确认cookies并打印登录用户
func reportStatus(ctx context.Context, cookies auth.CookieSet) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client := api.NewClientFromConfig(cfg, cookies.Header())
	status, err := auth.CheckLoginStatus(ctx, client, cookies)
	if err != nil {
		return err
	}

	switch {
	case !status.HasCookies:
		fmt.Printf("⚠️  未找到cookies: %s\n", cfg.GetResolvedCookieFile())
		fmt.Println("   请运行: ./bilibili-cookies capture")
	case !status.IsLogin:
		fmt.Println("⚠️  cookies已失效或未登录，评论功能不可用")
		fmt.Println("   请运行: ./bilibili-cookies capture")
	default:
		fmt.Printf("👤 已登录: %s (UID: %d, 等级: %d)\n", status.Uname, status.Mid, status.Level)
	}
	return nil
}
