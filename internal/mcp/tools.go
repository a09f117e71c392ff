package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	defaultSearchTopK  = 10
	maxSearchTopK      = 50
	defaultCommentTopK = 20
	defaultReplyCount  = 5
)

// tools 全部工具定义，均为只读操作
func (s *Server) tools() []server.ServerTool {
	methodOption := mcp.WithString("method",
		mcp.Description("获取方式: api 调用B站接口, script 抓取网页解析"),
		mcp.Enum("api", "script"),
		mcp.DefaultString("api"),
	)

	return []server.ServerTool{
		{
			Tool: mcp.NewTool("search_videos",
				mcp.WithDescription("按关键词搜索B站视频，返回BV号、标题、播放量、UP主等信息"),
				mcp.WithString("keyword", mcp.Required(), mcp.Description("搜索关键词")),
				mcp.WithNumber("topk",
					mcp.Description("返回结果数量，1-50"),
					mcp.DefaultNumber(defaultSearchTopK),
					mcp.Min(1),
					mcp.Max(maxSearchTopK),
				),
				methodOption,
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: s.handleSearchVideos,
		},
		{
			Tool: mcp.NewTool("search_articles",
				mcp.WithDescription("按关键词搜索B站专栏文章，需要浏览器渲染页面"),
				mcp.WithString("keyword", mcp.Required(), mcp.Description("搜索关键词")),
				mcp.WithNumber("topk",
					mcp.Description("返回结果数量，1-50"),
					mcp.DefaultNumber(defaultSearchTopK),
					mcp.Min(1),
					mcp.Max(maxSearchTopK),
				),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: s.handleSearchArticles,
		},
		{
			Tool: mcp.NewTool("get_video_info",
				mcp.WithDescription("获取视频详细信息，包括统计数据、UP主、标签和分P"),
				mcp.WithString("bvid", mcp.Required(), mcp.Description("视频BV号，例如 BV1GJ411x7h7")),
				methodOption,
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: s.handleGetVideoInfo,
		},
		{
			Tool: mcp.NewTool("get_danmaku",
				mcp.WithDescription("获取视频弹幕，返回原始XML"),
				mcp.WithString("bvid", mcp.Required(), mcp.Description("视频BV号")),
				mcp.WithString("cid", mcp.Description("分P的CID，不填时使用第一个分P")),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: s.handleGetDanmaku,
		},
		{
			Tool: mcp.NewTool("get_comments",
				mcp.WithDescription("获取视频评论，可选包含楼中楼回复，需要登录cookies"),
				mcp.WithString("bvid", mcp.Required(), mcp.Description("视频BV号")),
				mcp.WithNumber("topk",
					mcp.Description("返回评论数量"),
					mcp.DefaultNumber(defaultCommentTopK),
					mcp.Min(1),
					mcp.Max(float64(s.config.Comments.MaxComments)),
				),
				mcp.WithBoolean("include_replies",
					mcp.Description("是否获取每条评论的回复"),
					mcp.DefaultBool(false),
				),
				mcp.WithNumber("reply_count",
					mcp.Description("每条评论获取的回复数量"),
					mcp.DefaultNumber(defaultReplyCount),
					mcp.Min(0),
					mcp.Max(float64(s.config.Comments.MaxReplies)),
				),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: s.handleGetComments,
		},
		{
			Tool: mcp.NewTool("get_article",
				mcp.WithDescription("获取专栏文章正文、图片和互动数据"),
				mcp.WithString("cv_id", mcp.Required(), mcp.Description("专栏CV号，例如 12411259 或 cv12411259")),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: s.handleGetArticle,
		},
		{
			Tool: mcp.NewTool("check_login_status",
				mcp.WithDescription("检查当前cookies对应的B站登录状态"),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: s.handleCheckLoginStatus,
		},
	}
}
