package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pkg/errors"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/article"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/auth"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/comment"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/danmaku"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/search"
	"github.com/shirenchuang/bilibili-data-mcp/internal/bilibili/video"
	"github.com/shirenchuang/bilibili-data-mcp/pkg/config"
)

// fakeServices 记录调用参数并返回预设结果
type fakeServices struct {
	err error

	topk    int
	method  bilibili.Method
	cid     string
	options comment.Options
}

func (f *fakeServices) SearchVideos(ctx context.Context, keyword string, topk int, method bilibili.Method) ([]search.VideoResult, error) {
	f.topk, f.method = topk, method
	if f.err != nil {
		return nil, f.err
	}
	return []search.VideoResult{{Bvid: "BV1GJ411x7h7", Title: keyword}, {Bvid: "BV1xx411c7mD"}}, nil
}

func (f *fakeServices) SearchArticles(ctx context.Context, keyword string, topk int) ([]search.ArticleResult, error) {
	f.topk = topk
	if f.err != nil {
		return nil, f.err
	}
	return []search.ArticleResult{}, nil
}

func (f *fakeServices) GetVideoInfo(ctx context.Context, bvid string, method bilibili.Method) (*video.Info, error) {
	f.method = method
	if f.err != nil {
		return nil, f.err
	}
	return &video.Info{Bvid: bvid, Title: "标题"}, nil
}

func (f *fakeServices) Get(ctx context.Context, bvid, cid string) (*danmaku.Result, error) {
	f.cid = cid
	if f.err != nil {
		return nil, f.err
	}
	return &danmaku.Result{Bvid: bvid, Cid: 137649199, DanmakuXML: "<i></i>"}, nil
}

func (f *fakeServices) List(ctx context.Context, bvid string, opts comment.Options) ([]comment.Comment, error) {
	f.options = opts
	if f.err != nil {
		return nil, f.err
	}
	return []comment.Comment{{Rpid: 1, Replies: []comment.Reply{}}}, nil
}

// fakeArticles 文章服务和弹幕服务的方法名相同，单独实现
type fakeArticles struct{}

func (fakeArticles) Get(ctx context.Context, cvID string) (*article.Article, error) {
	if cvID == "0" {
		return nil, errors.New("文章不存在: 0")
	}
	return &article.Article{CvID: cvID, Title: "专栏"}, nil
}

func newTestServer(fake *fakeServices) *Server {
	cfg := &config.Config{
		Server:   config.ServerConfig{Transport: "stdio", Path: "/mcp"},
		Comments: config.CommentsConfig{MaxComments: 100, MaxPages: 5, MaxReplies: 10},
	}
	return NewServer(cfg, Services{
		Search:   fake,
		Video:    fake,
		Danmaku:  fake,
		Comments: fake,
		Articles: fakeArticles{},
		Login: func(ctx context.Context) (*auth.LoginStatus, error) {
			return &auth.LoginStatus{HasCookies: true, IsLogin: true, Uname: "测试用户"}, nil
		},
	})
}

// callTool 通过MCP消息调用工具，返回解析后的envelope和isError
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) (map[string]interface{}, bool) {
	t.Helper()
	msg, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]interface{}{"name": name, "arguments": args},
	})
	if err != nil {
		t.Fatal(err)
	}

	resp := s.MCPServer().HandleMessage(context.Background(), msg)
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	var rpc struct {
		Result struct {
			Content []mcp.TextContent `json:"content"`
			IsError bool              `json:"isError"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &rpc); err != nil || len(rpc.Result.Content) != 1 {
		t.Fatalf("unexpected response %s", raw)
	}
	text := rpc.Result.Content[0].Text

	var body map[string]interface{}
	if err := json.Unmarshal([]byte(text), &body); err != nil {
		t.Fatalf("result is not JSON: %v\n%s", err, text)
	}
	return body, rpc.Result.IsError
}

func TestToolsListed(t *testing.T) {
	s := newTestServer(&fakeServices{})
	resp := s.MCPServer().HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	out, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"search_videos", "search_articles", "get_video_info", "get_danmaku", "get_comments", "get_article", "check_login_status"} {
		if !strings.Contains(string(out), `"`+name+`"`) {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestSearchVideosEnvelope(t *testing.T) {
	fake := &fakeServices{}
	s := newTestServer(fake)

	body, isError := callTool(t, s, "search_videos", map[string]interface{}{"keyword": " 原神 ", "topk": 500, "method": "script"})
	if isError {
		t.Fatalf("unexpected error result: %v", body)
	}
	if body["success"] != true || body["method"] != "script" || body["total"] != float64(2) {
		t.Errorf("envelope = %v", body)
	}
	if body["keyword"] != "原神" || body["search_type"] != "video" {
		t.Errorf("echo = %v", body)
	}
	if fake.topk != maxSearchTopK || fake.method != bilibili.MethodScript {
		t.Errorf("topk = %d, method = %s", fake.topk, fake.method)
	}
}

func TestSearchDefaultsAndClamping(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
		want int
	}{
		{"default", map[string]interface{}{"keyword": "go"}, defaultSearchTopK},
		{"zero", map[string]interface{}{"keyword": "go", "topk": 0}, 1},
		{"negative", map[string]interface{}{"keyword": "go", "topk": -3}, 1},
		{"in range", map[string]interface{}{"keyword": "go", "topk": 7}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeServices{}
			callTool(t, newTestServer(fake), "search_articles", tt.args)
			if fake.topk != tt.want {
				t.Errorf("topk = %d, want %d", fake.topk, tt.want)
			}
		})
	}
}

func TestSearchArticlesEmptyList(t *testing.T) {
	body, isError := callTool(t, newTestServer(&fakeServices{}), "search_articles", map[string]interface{}{"keyword": "go"})
	if isError || body["total"] != float64(0) || body["method"] != "script" || body["search_type"] != "article" {
		t.Errorf("envelope = %v", body)
	}
	if data, ok := body["data"].([]interface{}); !ok || len(data) != 0 {
		t.Errorf("data = %#v", body["data"])
	}
}

func TestInvalidArguments(t *testing.T) {
	tests := []struct {
		tool string
		args map[string]interface{}
		want string
	}{
		{"search_videos", map[string]interface{}{}, "缺少keyword参数"},
		{"search_videos", map[string]interface{}{"keyword": "go", "method": "rss"}, "不支持的获取方法"},
		{"get_video_info", map[string]interface{}{"bvid": ""}, "缺少bvid参数"},
		{"get_danmaku", map[string]interface{}{}, "缺少bvid参数"},
		{"get_comments", map[string]interface{}{}, "缺少bvid参数"},
		{"get_article", map[string]interface{}{}, "缺少cv_id参数"},
	}
	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			body, isError := callTool(t, newTestServer(&fakeServices{}), tt.tool, tt.args)
			if !isError || body["success"] != false {
				t.Fatalf("expected error result, got %v", body)
			}
			if msg, _ := body["error"].(string); !strings.Contains(msg, tt.want) {
				t.Errorf("error = %q, want containing %q", msg, tt.want)
			}
		})
	}
}

func TestServiceErrorEchoesArguments(t *testing.T) {
	fake := &fakeServices{err: errors.New("视频不存在: BV1GJ411x7h7。请检查BV号是否正确")}
	body, isError := callTool(t, newTestServer(fake), "get_video_info", map[string]interface{}{"bvid": "BV1GJ411x7h7"})
	if !isError {
		t.Fatal("expected isError")
	}
	if body["bvid"] != "BV1GJ411x7h7" || !strings.HasPrefix(body["error"].(string), "视频不存在") {
		t.Errorf("envelope = %v", body)
	}
	if _, ok := body["data"]; ok {
		t.Errorf("error envelope should not carry data: %v", body)
	}
}

func TestGetVideoInfoObjectTotal(t *testing.T) {
	fake := &fakeServices{}
	body, _ := callTool(t, newTestServer(fake), "get_video_info", map[string]interface{}{"bvid": "BV1GJ411x7h7"})
	if body["total"] != float64(1) || body["method"] != "api" || fake.method != bilibili.MethodAPI {
		t.Errorf("envelope = %v", body)
	}
}

func TestGetDanmakuNumericCid(t *testing.T) {
	fake := &fakeServices{}
	body, isError := callTool(t, newTestServer(fake), "get_danmaku", map[string]interface{}{"bvid": "BV1GJ411x7h7", "cid": 137649199})
	if isError {
		t.Fatalf("unexpected error: %v", body)
	}
	if fake.cid != "137649199" {
		t.Errorf("cid passed = %q", fake.cid)
	}
	if body["cid"] != "137649199" || body["method"] != "api" {
		t.Errorf("envelope = %v", body)
	}
}

func TestGetDanmakuEchoesResolvedCid(t *testing.T) {
	fake := &fakeServices{}
	body, _ := callTool(t, newTestServer(fake), "get_danmaku", map[string]interface{}{"bvid": "BV1GJ411x7h7"})
	if fake.cid != "" || body["cid"] != "137649199" {
		t.Errorf("cid = %q, echo = %v", fake.cid, body["cid"])
	}
}

func TestGetCommentsOptions(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
		want comment.Options
	}{
		{"defaults", map[string]interface{}{}, comment.Options{TopK: defaultCommentTopK, ReplyCount: defaultReplyCount}},
		{"capped", map[string]interface{}{"topk": 1000, "include_replies": true, "reply_count": 99}, comment.Options{TopK: 100, IncludeReplies: true, ReplyCount: 10}},
		{"floor", map[string]interface{}{"topk": 0, "reply_count": -1}, comment.Options{TopK: 1, ReplyCount: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeServices{}
			tt.args["bvid"] = "BV1GJ411x7h7"
			body, _ := callTool(t, newTestServer(fake), "get_comments", tt.args)
			if fake.options != tt.want {
				t.Errorf("options = %+v, want %+v", fake.options, tt.want)
			}
			if body["total"] != float64(1) || body["bvid"] != "BV1GJ411x7h7" {
				t.Errorf("envelope = %v", body)
			}
		})
	}
}

func TestGetArticle(t *testing.T) {
	s := newTestServer(&fakeServices{})

	body, isError := callTool(t, s, "get_article", map[string]interface{}{"cv_id": "cv12411259"})
	if isError || body["cv_id"] != "cv12411259" || body["method"] != "script" {
		t.Errorf("envelope = %v", body)
	}

	body, isError = callTool(t, s, "get_article", map[string]interface{}{"cv_id": "0"})
	if !isError || body["error"] != "文章不存在: 0" {
		t.Errorf("envelope = %v", body)
	}
}

func TestCheckLoginStatus(t *testing.T) {
	body, isError := callTool(t, newTestServer(&fakeServices{}), "check_login_status", nil)
	if isError {
		t.Fatalf("unexpected error: %v", body)
	}
	data, _ := body["data"].(map[string]interface{})
	if data["is_login"] != true || data["uname"] != "测试用户" {
		t.Errorf("data = %v", data)
	}
}
