package mcp

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/article"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/auth"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/comment"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/danmaku"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/search"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/video"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/config"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/logger"
	"github.com/sirupsen/logrus"
)

const (
	serverName    = "bilibili-data-mcp"
	serverVersion = "1.0.0"
)

// Searcher 视频和专栏搜索
type Searcher interface {
	SearchVideos(ctx context.Context, keyword string, topk int, method bilibili.Method) ([]search.VideoResult, error)
	SearchArticles(ctx context.Context, keyword string, topk int) ([]search.ArticleResult, error)
}

// VideoGetter 视频信息
type VideoGetter interface {
	GetVideoInfo(ctx context.Context, bvid string, method bilibili.Method) (*video.Info, error)
}

// DanmakuGetter 弹幕
type DanmakuGetter interface {
	Get(ctx context.Context, bvid, cid string) (*danmaku.Result, error)
}

// CommentLister 评论
type CommentLister interface {
	List(ctx context.Context, bvid string, opts comment.Options) ([]comment.Comment, error)
}

// ArticleGetter 专栏文章
type ArticleGetter interface {
	Get(ctx context.Context, cvID string) (*article.Article, error)
}

// LoginChecker 查询当前cookies的登录状态
type LoginChecker func(ctx context.Context) (*auth.LoginStatus, error)

// Services 工具调用依赖的业务服务
type Services struct {
	Search   Searcher
	Video    VideoGetter
	Danmaku  DanmakuGetter
	Comments CommentLister
	Articles ArticleGetter
	Login    LoginChecker
}

// Server MCP服务器
type Server struct {
	config    *config.Config
	services  Services
	mcpServer *server.MCPServer
}

// NewServer 创建MCP服务器并注册全部工具
func NewServer(cfg *config.Config, services Services) *Server {
	s := &Server{
		config:   cfg,
		services: services,
	}

	s.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(logToolCall),
	)
	s.mcpServer.AddTools(s.tools()...)

	return s
}

// MCPServer 底层的mcp-go服务器
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio 通过标准输入输出提供服务，直到ctx结束或输入关闭
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(log.New(logger.GetLogger().WriterLevel(logrus.ErrorLevel), "", 0))
	return stdio.Listen(ctx, in, out)
}

// HTTPHandler Streamable HTTP 传输的处理器
func (s *Server) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcpServer,
		server.WithEndpointPath(s.config.Server.Path),
	)
}

// logToolCall 记录每次工具调用的耗时和结果
func logToolCall(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		entry := logger.WithField("tool", req.Params.Name)
		entry.Info("执行工具调用")

		result, err := next(ctx, req)

		entry = entry.WithField("elapsed", time.Since(start).Round(time.Millisecond).String())
		switch {
		case err != nil:
			entry.Errorf("工具调用出错: %v", err)
		case result != nil && result.IsError:
			entry.Warn("工具调用返回错误")
		default:
			entry.Info("工具调用完成")
		}
		return result, err
	}
}
