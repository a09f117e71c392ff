package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 BILIBILI_MCP_SERVER_TRANSPORT
const EnvPrefix = "BILIBILI_MCP"

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Bilibili BilibiliConfig `mapstructure:"bilibili"`
	Comments CommentsConfig `mapstructure:"comments"`
	Scrape   ScrapeConfig   `mapstructure:"scrape"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Cookies  CookiesConfig  `mapstructure:"cookies"`
	Logging  LoggingConfig  `mapstructure:"logging"`

	// 运行时解析的路径（不保存到文件）
	resolved *ResolvedPaths
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Transport string `mapstructure:"transport"` // stdio 或 http
	Host      string `mapstructure:"host"`
	Port      string `mapstructure:"port"`
	Path      string `mapstructure:"path"`
}

// BilibiliConfig B站相关配置
type BilibiliConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIURL       string        `mapstructure:"api_url"`
	SearchURL    string        `mapstructure:"search_url"`
	UserAgent    string        `mapstructure:"user_agent"`
	RequestDelay time.Duration `mapstructure:"request_delay"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// CommentsConfig 评论抓取配置
type CommentsConfig struct {
	PageDelay   time.Duration `mapstructure:"page_delay"`
	MaxComments int           `mapstructure:"max_comments"`
	MaxPages    int           `mapstructure:"max_pages"`
	MaxReplies  int           `mapstructure:"max_replies"`
}

// ScrapeConfig 网页抓取配置
type ScrapeConfig struct {
	Engine string `mapstructure:"engine"` // http 或 browser
}

// BrowserConfig 浏览器配置
type BrowserConfig struct {
	Headless  bool                  `mapstructure:"headless"`
	UserAgent string                `mapstructure:"user_agent"`
	Timeout   time.Duration         `mapstructure:"timeout"`
	PoolSize  int                   `mapstructure:"pool_size"`
	Viewport  BrowserViewportConfig `mapstructure:"viewport"`
}

// BrowserViewportConfig 浏览器视口配置
type BrowserViewportConfig struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// CookiesConfig Cookie文件配置
type CookiesConfig struct {
	File         string        `mapstructure:"file"`
	Domain       string        `mapstructure:"domain"`
	SiteURL      string        `mapstructure:"site_url"`
	LoginTimeout time.Duration `mapstructure:"login_timeout"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ResolvedPaths 运行时解析的路径
type ResolvedPaths struct {
	LogOutput  string
	CookieFile string
}

// Load 加载配置文件，如果文件不存在则使用默认值
func Load(configPath string) (*Config, error) {
	return LoadWith(viper.New(), configPath)
}

// LoadWith 使用给定的viper实例加载配置，命令行flag可以提前绑定到该实例
func LoadWith(v *viper.Viper, configPath string) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, errors.Wrap(err, "读取配置文件失败")
			}
			// 文件不存在时使用默认配置，这里不能写stdout（stdio传输会占用）
			_, _ = os.Stderr.WriteString("⚠️  配置文件 " + configPath + " 不存在，使用默认配置\n")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "解析配置失败")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	resolved, err := createResolvedPaths(&config)
	if err != nil {
		return nil, errors.Wrap(err, "解析配置路径失败")
	}
	config.resolved = resolved

	return &config, nil
}

// Validate 校验取值范围
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		return errors.Errorf("不支持的传输方式: %s (可选: stdio, http)", c.Server.Transport)
	}

	switch c.Scrape.Engine {
	case "http", "browser":
	default:
		return errors.Errorf("不支持的抓取引擎: %s (可选: http, browser)", c.Scrape.Engine)
	}

	if c.Browser.PoolSize < 1 {
		return errors.New("browser.pool_size 必须大于0")
	}
	if c.Comments.MaxComments < 1 || c.Comments.MaxPages < 1 {
		return errors.New("comments.max_comments 和 comments.max_pages 必须大于0")
	}
	if c.Comments.MaxReplies < 0 {
		return errors.New("comments.max_replies 不能为负数")
	}
	return nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.transport", "stdio")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "18666")
	v.SetDefault("server.path", "/mcp")

	v.SetDefault("bilibili.base_url", "https://www.bilibili.com")
	v.SetDefault("bilibili.api_url", "https://api.bilibili.com")
	v.SetDefault("bilibili.search_url", "https://search.bilibili.com")
	v.SetDefault("bilibili.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("bilibili.request_delay", "1s")
	v.SetDefault("bilibili.timeout", "30s")

	v.SetDefault("comments.page_delay", "300ms")
	v.SetDefault("comments.max_comments", 100)
	v.SetDefault("comments.max_pages", 5)
	v.SetDefault("comments.max_replies", 10)

	v.SetDefault("scrape.engine", "http")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("browser.timeout", "30s")
	v.SetDefault("browser.pool_size", 1)
	v.SetDefault("browser.viewport.width", 1920)
	v.SetDefault("browser.viewport.height", 1080)

	v.SetDefault("cookies.file", "./bilibili_cookies.json")
	v.SetDefault("cookies.domain", ".bilibili.com")
	v.SetDefault("cookies.site_url", "https://www.bilibili.com/")
	v.SetDefault("cookies.login_timeout", "5m")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "")
}

// createResolvedPaths 创建解析后的路径结构，不修改原始配置
func createResolvedPaths(config *Config) (*ResolvedPaths, error) {
	resolved := &ResolvedPaths{}
	var err error

	if config.Logging.Output != "" {
		resolved.LogOutput, err = resolvePath(config.Logging.Output)
		if err != nil {
			return nil, errors.Wrap(err, "解析log output失败")
		}
	}

	if config.Cookies.File != "" {
		resolved.CookieFile, err = resolvePath(config.Cookies.File)
		if err != nil {
			return nil, errors.Wrap(err, "解析cookies.file失败")
		}
	}

	return resolved, nil
}

// resolvePath 解析单个路径，支持：
// 1. 环境变量替换 (${VAR} 或 $VAR)
// 2. 用户目录展开 (~)
// 3. 相对路径转绝对路径
func resolvePath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	originalPath := path

	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "无法获取用户目录")
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", errors.Wrapf(err, "无法转换为绝对路径 '%s'", originalPath)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// GetResolvedLogOutput 获取解析后的日志输出路径
func (c *Config) GetResolvedLogOutput() string {
	if c.resolved != nil && c.resolved.LogOutput != "" {
		return c.resolved.LogOutput
	}
	return c.Logging.Output
}

// GetResolvedCookieFile 获取解析后的Cookie文件路径
func (c *Config) GetResolvedCookieFile() string {
	if c.resolved != nil && c.resolved.CookieFile != "" {
		return c.resolved.CookieFile
	}
	return c.Cookies.File
}

// Address HTTP传输监听地址
func (c *Config) Address() string {
	return c.Server.Host + ":" + c.Server.Port
}
