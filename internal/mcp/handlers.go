package mcp

import (
	"context"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/comment"
)

// 搜索相关处理器

// handleSearchVideos 搜索视频
func (s *Server) handleSearchVideos(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keyword := strings.TrimSpace(req.GetString("keyword", ""))
	e := echo{"keyword": keyword, "search_type": "video"}
	if keyword == "" {
		return s.createErrorResult(errors.New("缺少keyword参数"), e), nil
	}

	method, err := bilibili.ParseMethod(req.GetString("method", ""))
	if err != nil {
		return s.createErrorResult(err, e), nil
	}
	topk := clamp(req.GetInt("topk", defaultSearchTopK), 1, maxSearchTopK)

	results, err := s.services.Search.SearchVideos(ctx, keyword, topk, method)
	if err != nil {
		return s.createErrorResult(err, e), nil
	}
	return s.createToolResult(string(method), results, e), nil
}

// handleSearchArticles 搜索专栏
func (s *Server) handleSearchArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keyword := strings.TrimSpace(req.GetString("keyword", ""))
	e := echo{"keyword": keyword, "search_type": "article"}
	if keyword == "" {
		return s.createErrorResult(errors.New("缺少keyword参数"), e), nil
	}
	topk := clamp(req.GetInt("topk", defaultSearchTopK), 1, maxSearchTopK)

	results, err := s.services.Search.SearchArticles(ctx, keyword, topk)
	if err != nil {
		return s.createErrorResult(err, e), nil
	}
	return s.createToolResult(string(bilibili.MethodScript), results, e), nil
}

// 视频相关处理器

// handleGetVideoInfo 获取视频信息
func (s *Server) handleGetVideoInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bvid := strings.TrimSpace(req.GetString("bvid", ""))
	e := echo{"bvid": bvid}
	if bvid == "" {
		return s.createErrorResult(errors.New("缺少bvid参数"), e), nil
	}

	method, err := bilibili.ParseMethod(req.GetString("method", ""))
	if err != nil {
		return s.createErrorResult(err, e), nil
	}

	info, err := s.services.Video.GetVideoInfo(ctx, bvid, method)
	if err != nil {
		return s.createErrorResult(err, e), nil
	}
	return s.createToolResult(string(method), info, e), nil
}

// handleGetDanmaku 获取弹幕
func (s *Server) handleGetDanmaku(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bvid := strings.TrimSpace(req.GetString("bvid", ""))
	cid := argString(req, "cid")
	e := echo{"bvid": bvid, "cid": cid}
	if bvid == "" {
		return s.createErrorResult(errors.New("缺少bvid参数"), e), nil
	}

	result, err := s.services.Danmaku.Get(ctx, bvid, cid)
	if err != nil {
		return s.createErrorResult(err, e), nil
	}
	e["cid"] = strconv.FormatInt(result.Cid, 10)
	return s.createToolResult(string(bilibili.MethodAPI), result, e), nil
}

// handleGetComments 获取评论
func (s *Server) handleGetComments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bvid := strings.TrimSpace(req.GetString("bvid", ""))
	e := echo{"bvid": bvid}
	if bvid == "" {
		return s.createErrorResult(errors.New("缺少bvid参数"), e), nil
	}

	opts := comment.Options{
		TopK:           clamp(req.GetInt("topk", defaultCommentTopK), 1, s.config.Comments.MaxComments),
		IncludeReplies: req.GetBool("include_replies", false),
		ReplyCount:     clamp(req.GetInt("reply_count", defaultReplyCount), 0, s.config.Comments.MaxReplies),
	}

	comments, err := s.services.Comments.List(ctx, bvid, opts)
	if err != nil {
		return s.createErrorResult(err, e), nil
	}
	return s.createToolResult(string(bilibili.MethodAPI), comments, e), nil
}

// 专栏相关处理器

// handleGetArticle 获取专栏文章
func (s *Server) handleGetArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cvID := strings.TrimSpace(argString(req, "cv_id"))
	e := echo{"cv_id": cvID}
	if cvID == "" {
		return s.createErrorResult(errors.New("缺少cv_id参数"), e), nil
	}

	article, err := s.services.Articles.Get(ctx, cvID)
	if err != nil {
		return s.createErrorResult(err, e), nil
	}
	return s.createToolResult(string(bilibili.MethodScript), article, e), nil
}

// 认证相关处理器

// handleCheckLoginStatus 检查登录状态
func (s *Server) handleCheckLoginStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.services.Login(ctx)
	if err != nil {
		return s.createErrorResult(err, nil), nil
	}
	return s.createToolResult(string(bilibili.MethodAPI), status, nil), nil
}

// argString 读取字符串参数，客户端把数字ID当数字传时也接受
func argString(req mcp.CallToolRequest, key string) string {
	switch v := req.GetArguments()[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
